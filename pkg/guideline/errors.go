package guideline

import "errors"

// ErrMalformedRecord is returned when a corpus entry cannot be parsed into a Record.
var ErrMalformedRecord = errors.New("malformed guideline record")
