package guideline_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/wcagrag/pkg/guideline"
)

func strPtr(s string) *string { return &s }

var _ = Describe("FromEntry", func() {
	It("rejects list items containing the metadata delimiter", func() {
		_, err := guideline.FromEntry(guideline.Entry{
			Name:       "1.3.1 Info and Relationships",
			Techniques: []string{"H51: Using table markup | with headers"},
		})
		Expect(errors.Is(err, guideline.ErrMalformedRecord)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("1.3.1"))

		_, err = guideline.FromEntry(guideline.Entry{
			Name:     "1.3.1 Info and Relationships",
			Failures: []string{"F46|F48"},
		})
		Expect(errors.Is(err, guideline.ErrMalformedRecord)).To(BeTrue())
	})

	It("splits the name on the first whitespace", func() {
		r, err := guideline.FromEntry(guideline.Entry{
			Name:        "1.1.1 Non-text Content",
			Description: "All non-text content has a text alternative.",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(r.RefID).To(Equal("1.1.1"))
		Expect(r.Title).To(Equal("Non-text Content"))
		Expect(r.Description).To(Equal("All non-text content has a text alternative."))
	})

	It("keeps everything after the first whitespace in the title", func() {
		r, err := guideline.FromEntry(guideline.Entry{Name: "2.4.7 Focus  Visible\tAA"})
		Expect(err).NotTo(HaveOccurred())
		Expect(r.RefID).To(Equal("2.4.7"))
		Expect(r.Title).To(Equal("Focus  Visible\tAA"))
	})

	It("derives the default url from the lower-cased ref id", func() {
		r, err := guideline.FromEntry(guideline.Entry{Name: "1.4.3 Contrast (Minimum)"})
		Expect(err).NotTo(HaveOccurred())
		Expect(r.URL).To(Equal("https://www.w3.org/WAI/WCAG22/Understanding/1.4.3.html"))
	})

	It("keeps an explicit url even when empty", func() {
		r, err := guideline.FromEntry(guideline.Entry{Name: "1.4.3 Contrast", URL: strPtr("")})
		Expect(err).NotTo(HaveOccurred())
		Expect(r.URL).To(BeEmpty())

		r, err = guideline.FromEntry(guideline.Entry{Name: "1.4.3 Contrast", URL: strPtr("https://example.com/c")})
		Expect(err).NotTo(HaveOccurred())
		Expect(r.URL).To(Equal("https://example.com/c"))
	})

	It("defaults missing lists to empty lists", func() {
		r, err := guideline.FromEntry(guideline.Entry{Name: "3.3.1 Error Identification"})
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Techniques).To(BeEmpty())
		Expect(r.Techniques).NotTo(BeNil())
		Expect(r.Failures).To(BeEmpty())
	})

	DescribeTable("rejects names without a separable ref id",
		func(name string) {
			_, err := guideline.FromEntry(guideline.Entry{Name: name})
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, guideline.ErrMalformedRecord)).To(BeTrue())
		},
		Entry("no whitespace", "BadEntryNoSpace"),
		Entry("empty", ""),
		Entry("whitespace only", "   "),
		Entry("trailing whitespace only", "1.1.1 "),
	)
})

var _ = Describe("Classify", func() {
	It("matches every guideline group", func() {
		for _, c := range guideline.Categories() {
			got, ok := guideline.Classify(c.Prefix + ".1")
			Expect(ok).To(BeTrue(), c.Prefix)
			Expect(got.Name).To(Equal(c.Name))
		}
	})

	It("only matches on a dot boundary", func() {
		_, ok := guideline.Classify("1.10.1")
		Expect(ok).To(BeFalse())
	})

	It("reports unknown prefixes as unmatched", func() {
		_, ok := guideline.Classify("5.1.1")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Render", func() {
	record := guideline.Record{
		RefID:       "1.1.1",
		Title:       "Non-text Content",
		Description: "All non-text content has a text alternative.",
		URL:         "https://www.w3.org/WAI/WCAG22/Understanding/1.1.1.html",
		Techniques:  []string{"G94: Providing short text alternative", "H37: Using alt attributes"},
		Failures:    []string{"F65: Omitting the alt attribute"},
	}

	It("is deterministic", func() {
		Expect(guideline.Render(record)).To(Equal(guideline.Render(record)))
	})

	It("renders the header, categories and keywords", func() {
		text := guideline.Render(record)
		Expect(text).To(HavePrefix("WCAG 2.2 Success Criterion 1.1.1: Non-text Content\n"))
		Expect(text).To(ContainSubstring("Description:\nAll non-text content has a text alternative."))
		Expect(text).To(ContainSubstring("Categories: Text Alternatives\n"))
		Expect(text).To(ContainSubstring("Keywords: alt text, image descriptions, non-text content, screen readers"))
	})

	It("renders technique and failure bullets in order", func() {
		text := guideline.Render(record)
		Expect(text).To(ContainSubstring("Techniques:\n- G94: Providing short text alternative\n- H37: Using alt attributes"))
		Expect(text).To(ContainSubstring("Common Failures:\n- F65: Omitting the alt attribute"))
		Expect(strings.Index(text, "Techniques:")).To(BeNumerically("<", strings.Index(text, "Common Failures:")))
	})

	It("omits empty technique and failure blocks", func() {
		r := record
		r.Techniques = nil
		r.Failures = []string{}
		text := guideline.Render(r)
		Expect(text).NotTo(ContainSubstring("Techniques:"))
		Expect(text).NotTo(ContainSubstring("Common Failures:"))
	})

	It("renders the footer and reference", func() {
		text := guideline.Render(record)
		Expect(text).To(ContainSubstring("- Users with cognitive disabilities"))
		Expect(text).To(HaveSuffix("Reference: https://www.w3.org/WAI/WCAG22/Understanding/1.1.1.html\n"))
	})

	It("falls back for unknown prefixes and missing urls", func() {
		text := guideline.Render(guideline.Record{RefID: "9.9.9", Title: "Unknown"})
		Expect(text).To(ContainSubstring("Categories: Uncategorized"))
		Expect(text).To(ContainSubstring("Keywords: No specific keywords"))
		Expect(text).To(ContainSubstring("Reference: N/A"))
	})
})

var _ = Describe("Metadata", func() {
	It("round-trips lists through the flat representation", func() {
		r := guideline.Record{
			RefID:      "3.3.1",
			Title:      "Error Identification",
			URL:        "u",
			Techniques: []string{"G83", "ARIA21"},
			Failures:   []string{},
		}
		meta := r.Metadata()
		Expect(meta).To(HaveKeyWithValue("techniques", "G83|ARIA21"))
		Expect(meta).To(HaveKeyWithValue("failures", ""))

		back := guideline.FromMetadata(meta, "chunk text")
		Expect(back.RefID).To(Equal(r.RefID))
		Expect(back.Title).To(Equal(r.Title))
		Expect(back.URL).To(Equal(r.URL))
		Expect(back.Techniques).To(Equal(r.Techniques))
		Expect(back.Failures).To(BeEmpty())
		Expect(back.Description).To(Equal("chunk text"))
	})

	It("tolerates missing keys", func() {
		back := guideline.FromMetadata(map[string]string{"ref_id": "1.1.1"}, "")
		Expect(back.URL).To(BeEmpty())
		Expect(back.Techniques).To(BeEmpty())
	})
})

var _ = Describe("Corpus", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "guideline-corpus-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("loads entries and converts them in order", func() {
		path := filepath.Join(tmpDir, "corpus.json")
		Expect(os.WriteFile(path, []byte(`{"guidelines":[
			{"name":"1.1.1 Non-text Content","description":"d1","techniques":["G94"]},
			{"name":"2.1.1 Keyboard","description":"d2","url":"https://example.com/k"}
		]}`), 0o600)).To(Succeed())

		c, err := guideline.LoadCorpus(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Guidelines).To(HaveLen(2))

		records, err := c.Records()
		Expect(err).NotTo(HaveOccurred())
		Expect(records[0].RefID).To(Equal("1.1.1"))
		Expect(records[0].Techniques).To(Equal([]string{"G94"}))
		Expect(records[1].URL).To(Equal("https://example.com/k"))
	})

	It("reports the index of a malformed entry", func() {
		c, err := guideline.DecodeCorpus(strings.NewReader(`{"guidelines":[{"name":"1.1.1 Ok"},{"name":"BadEntryNoSpace"}]}`))
		Expect(err).NotTo(HaveOccurred())

		_, err = c.Records()
		Expect(err).To(MatchError(ContainSubstring("entry 1")))
		Expect(errors.Is(err, guideline.ErrMalformedRecord)).To(BeTrue())
	})

	It("rejects documents without a guidelines array", func() {
		_, err := guideline.DecodeCorpus(strings.NewReader(`{"other":[]}`))
		Expect(err).To(HaveOccurred())
	})

	It("fails on a missing file", func() {
		_, err := guideline.LoadCorpus(filepath.Join(tmpDir, "missing.json"))
		Expect(err).To(HaveOccurred())
	})
})
