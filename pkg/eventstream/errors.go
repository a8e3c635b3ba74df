package eventstream

import "errors"

// ErrNilIndexEvent indicates a nil index event payload was provided to a publisher.
var ErrNilIndexEvent = errors.New("nil index event")
