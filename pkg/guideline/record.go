// Package guideline models WCAG success criteria as they flow through the
// retrieval pipeline: raw corpus entries, parsed records, rendered text, and
// the flat metadata stored alongside each indexed chunk.
package guideline

import (
	"fmt"
	"strings"
	"unicode"
)

// DefaultURLBase is the documentation root used when a corpus entry omits its url.
const DefaultURLBase = "https://www.w3.org/WAI/WCAG22/Understanding/"

// Record is a single WCAG success criterion.
// RefID is the sole identity used for deduplication.
type Record struct {
	RefID       string   `json:"ref_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Techniques  []string `json:"techniques"`
	Failures    []string `json:"failures"`
}

// Entry is a raw guideline as it appears in the corpus file.
// URL is a pointer so an absent url can be told apart from an explicitly
// empty one.
type Entry struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         *string  `json:"url,omitempty"`
	Techniques  []string `json:"techniques,omitempty"`
	Failures    []string `json:"failures,omitempty"`
}

// FromEntry converts a corpus entry into a Record. The entry's name is split
// on its first run of whitespace into the ref id and the title. Techniques
// and failures may not contain ListDelimiter.
func FromEntry(e Entry) (Record, error) {
	name := strings.TrimSpace(e.Name)

	idx := strings.IndexFunc(name, unicode.IsSpace)
	if idx <= 0 {
		return Record{}, fmt.Errorf("%w: name %q has no separable ref id", ErrMalformedRecord, e.Name)
	}

	refID := name[:idx]
	title := strings.TrimSpace(name[idx:])
	if title == "" {
		return Record{}, fmt.Errorf("%w: name %q has no title", ErrMalformedRecord, e.Name)
	}

	for _, list := range [][]string{e.Techniques, e.Failures} {
		for _, item := range list {
			if strings.Contains(item, ListDelimiter) {
				return Record{}, fmt.Errorf("%w: %s: list item %q contains %q", ErrMalformedRecord, refID, item, ListDelimiter)
			}
		}
	}

	url := DefaultURL(refID)
	if e.URL != nil {
		url = *e.URL
	}

	return Record{
		RefID:       refID,
		Title:       title,
		Description: e.Description,
		URL:         url,
		Techniques:  cloneStrings(e.Techniques),
		Failures:    cloneStrings(e.Failures),
	}, nil
}

// DefaultURL derives the Understanding document URL for a ref id.
func DefaultURL(refID string) string {
	return DefaultURLBase + strings.ToLower(refID) + ".html"
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
