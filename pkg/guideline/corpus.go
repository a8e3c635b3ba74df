package guideline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Corpus is the on-disk guideline document.
type Corpus struct {
	Guidelines []Entry `json:"guidelines"`
}

// DecodeCorpus reads a corpus document from r.
func DecodeCorpus(r io.Reader) (*Corpus, error) {
	var c Corpus
	dec := json.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decoding corpus: %w", err)
	}
	if c.Guidelines == nil {
		return nil, fmt.Errorf("decoding corpus: missing %q array", "guidelines")
	}
	return &c, nil
}

// LoadCorpus reads and decodes the corpus file at path.
func LoadCorpus(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus: %w", err)
	}
	defer f.Close()

	return DecodeCorpus(f)
}

// Records converts every entry in the corpus. The first malformed entry
// aborts the conversion; its index is included in the error.
func (c *Corpus) Records() ([]Record, error) {
	records := make([]Record, 0, len(c.Guidelines))
	for i, e := range c.Guidelines {
		r, err := FromEntry(e)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		records = append(records, r)
	}
	return records, nil
}
