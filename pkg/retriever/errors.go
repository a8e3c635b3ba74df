package retriever

import "errors"

var (
	// ErrIndexUnavailable is returned when the guideline collection is missing
	// and the automatic build could not produce it.
	ErrIndexUnavailable = errors.New("guideline index unavailable")

	// ErrCorruptDocument is returned when a stored chunk cannot be turned back
	// into a guideline.
	ErrCorruptDocument = errors.New("corrupt guideline document")
)
