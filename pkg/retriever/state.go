package retriever

// State is the lifecycle state of a Retriever's index.
type State int

const (
	// Uninitialized means the collection has not been checked yet.
	Uninitialized State = iota

	// Ready means the collection exists and can be queried.
	Ready

	// Failed means the last automatic build failed. The next EnsureReady
	// tries again.
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
