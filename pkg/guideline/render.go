package guideline

import (
	"strings"
)

const (
	uncategorized = "Uncategorized"
	noKeywords    = "No specific keywords"
)

// Category groups the success criteria under one WCAG guideline number.
type Category struct {
	Prefix   string
	Name     string
	Keywords []string
}

// categories is the ref id prefix table used to annotate rendered text.
// Lookup is longest-prefix, so order only matters for readability.
var categories = []Category{
	// Perceivable
	{Prefix: "1.1", Name: "Text Alternatives", Keywords: []string{"alt text", "image descriptions", "non-text content", "screen readers"}},
	{Prefix: "1.2", Name: "Time-based Media", Keywords: []string{"captions", "audio", "video", "multimedia", "transcripts"}},
	{Prefix: "1.3", Name: "Adaptable Content", Keywords: []string{"structure", "semantics", "headings", "labels", "relationships"}},
	{Prefix: "1.4", Name: "Distinguishable Content", Keywords: []string{"contrast", "color", "text size", "spacing", "visual presentation"}},

	// Operable
	{Prefix: "2.1", Name: "Keyboard Accessibility", Keywords: []string{"keyboard", "navigation", "shortcuts", "input methods"}},
	{Prefix: "2.2", Name: "Time Limits", Keywords: []string{"timing", "animations", "auto-updates", "interruptions"}},
	{Prefix: "2.3", Name: "Seizures and Physical Reactions", Keywords: []string{"seizures", "flashing", "animations", "motion"}},
	{Prefix: "2.4", Name: "Navigation", Keywords: []string{"navigation", "landmarks", "headings", "focus", "links"}},
	{Prefix: "2.5", Name: "Input Modalities", Keywords: []string{"pointer", "touch", "gestures", "motion", "input methods"}},

	// Understandable
	{Prefix: "3.1", Name: "Readable Content", Keywords: []string{"language", "readability", "pronunciation"}},
	{Prefix: "3.2", Name: "Predictable Behavior", Keywords: []string{"predictable", "consistency", "navigation", "behavior"}},
	{Prefix: "3.3", Name: "Input Assistance", Keywords: []string{"forms", "errors", "labels", "instructions", "validation"}},

	// Robust
	{Prefix: "4.1", Name: "Compatibility", Keywords: []string{"parsing", "compatibility", "aria", "status messages"}},
}

// Categories returns a copy of the prefix table.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Classify returns the category whose prefix is the longest match for refID.
// A prefix matches only on a dot boundary, so "1.1" matches "1.1.1" but not
// "1.10.1".
func Classify(refID string) (Category, bool) {
	var (
		best  Category
		found bool
	)
	for _, c := range categories {
		if !matchesPrefix(refID, c.Prefix) {
			continue
		}
		if !found || len(c.Prefix) > len(best.Prefix) {
			best = c
			found = true
		}
	}
	return best, found
}

func matchesPrefix(refID, prefix string) bool {
	if !strings.HasPrefix(refID, prefix) {
		return false
	}
	rest := refID[len(prefix):]
	return rest == "" || rest[0] == '.'
}

// Render produces the text that is chunked and embedded for a record.
// It is a pure function of the record and the category table.
func Render(r Record) string {
	cats, kws := uncategorized, noKeywords
	if c, ok := Classify(r.RefID); ok {
		cats = c.Name
		kws = strings.Join(c.Keywords, ", ")
	}

	ref := r.URL
	if ref == "" {
		ref = "N/A"
	}

	var b strings.Builder
	b.WriteString("WCAG 2.2 Success Criterion ")
	b.WriteString(r.RefID)
	b.WriteString(": ")
	b.WriteString(r.Title)
	b.WriteString("\n\nDescription:\n")
	b.WriteString(r.Description)
	b.WriteString("\n\nCategories: ")
	b.WriteString(cats)
	b.WriteString("\nKeywords: ")
	b.WriteString(kws)

	writeBullets(&b, "Techniques:", r.Techniques)
	writeBullets(&b, "Common Failures:", r.Failures)

	b.WriteString("\n\nThis guideline helps ensure web content is accessible to users with disabilities by addressing:\n")
	b.WriteString("- Users who rely on screen readers and assistive technologies\n")
	b.WriteString("- Users with visual impairments\n")
	b.WriteString("- Users with motor impairments\n")
	b.WriteString("- Users with cognitive disabilities\n")
	b.WriteString("\nReference: ")
	b.WriteString(ref)
	b.WriteString("\n")

	return b.String()
}

func writeBullets(b *strings.Builder, header string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n\n")
	b.WriteString(header)
	for _, it := range items {
		b.WriteString("\n- ")
		b.WriteString(it)
	}
}
