package index

import "errors"

// ErrCorpus is returned when the corpus cannot be read or contains a
// malformed entry. Nothing is written when it is returned.
var ErrCorpus = errors.New("invalid guideline corpus")
