package cliui_test

import (
	"bytes"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/wcagrag/pkg/cliui"
	"github.com/papercomputeco/wcagrag/pkg/guideline"
)

var _ = Describe("Mark", func() {
	It("distinguishes success from failure", func() {
		Expect(cliui.Mark(nil)).To(Equal(cliui.SuccessMark))
		Expect(cliui.Mark(errors.New("boom"))).To(Equal(cliui.FailMark))
	})
})

var _ = Describe("Step", func() {
	It("ends with the result mark and returns fn's error", func() {
		var buf bytes.Buffer
		boom := errors.New("boom")

		err := cliui.Step(&buf, "Building index", func() error {
			time.Sleep(100 * time.Millisecond)
			return boom
		})
		Expect(err).To(Equal(boom))

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\r")
		last := lines[len(lines)-1]
		Expect(last).To(ContainSubstring(cliui.FailMark))
		Expect(last).To(ContainSubstring("Building index"))
	})
})

var _ = Describe("FormatDuration", func() {
	It("uses milliseconds below a second", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})
})

var _ = Describe("guideline rendering", func() {
	rec := guideline.Record{
		RefID:       "2.1.1",
		Title:       "Keyboard",
		Description: "All functionality is operable through a keyboard interface.",
		URL:         "https://www.w3.org/WAI/WCAG22/Understanding/2.1.1.html",
		Techniques:  []string{"G202"},
	}

	It("builds markdown with lists only when present", func() {
		md := cliui.GuidelineMarkdown(rec, 0.25)
		Expect(md).To(HavePrefix("## 2.1.1 Keyboard"))
		Expect(md).To(ContainSubstring("distance 0.2500"))
		Expect(md).To(ContainSubstring("- G202"))
		Expect(md).NotTo(ContainSubstring("Common failures"))
	})

	It("previews text on a single bounded line", func() {
		p := cliui.Preview("one\ntwo   three four five", 12)
		Expect(p).NotTo(ContainSubstring("\n"))
		Expect(strings.HasSuffix(p, "…")).To(BeTrue())
		Expect(cliui.Preview("short", 12)).To(Equal("short"))
	})

	It("renders a list line with the ref id and title", func() {
		line := cliui.GuidelineLine(rec, 0.5)
		Expect(line).To(ContainSubstring("2.1.1"))
		Expect(line).To(ContainSubstring("Keyboard"))
	})
})
