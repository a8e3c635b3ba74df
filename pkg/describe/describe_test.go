package describe_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/wcagrag/pkg/describe"
	"github.com/papercomputeco/wcagrag/pkg/logger"
	testutils "github.com/papercomputeco/wcagrag/pkg/utils/test"
)

const diff = `-<img src="logo.png">
+<img src="logo.png" alt="Company logo">`

var _ = Describe("BuildPrompt", func() {
	It("includes the file, the diff and every focus area", func() {
		p := describe.BuildPrompt(diff, "header.html")
		Expect(p).To(ContainSubstring("File: header.html"))
		Expect(p).To(ContainSubstring(`alt="Company logo"`))
		Expect(p).To(ContainSubstring("1. UI elements being modified"))
		Expect(p).To(ContainSubstring("3. ARIA attributes or roles"))
		Expect(p).To(ContainSubstring("7. Keyboard interaction changes"))
		Expect(p).To(ContainSubstring("10. Media alternatives"))
		Expect(p).To(ContainSubstring("users with different disabilities"))
	})
})

var _ = Describe("Generator", func() {
	var (
		ctx context.Context
		s   *testutils.MockSummarizer
		g   *describe.Generator
	)

	BeforeEach(func() {
		ctx = context.Background()
		s = testutils.NewMockSummarizer("  Adds alternative text to the logo image.\n")
		g = describe.NewGenerator(s, logger.Nop())
	})

	It("returns the trimmed model output", func() {
		out, err := g.Describe(ctx, diff, "header.html")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("Adds alternative text to the logo image."))
		Expect(s.LastPrompt()).To(Equal(describe.BuildPrompt(diff, "header.html")))
	})

	It("rejects an empty diff without calling the model", func() {
		_, err := g.Describe(ctx, " \n", "header.html")
		Expect(errors.Is(err, describe.ErrEmptyDiff)).To(BeTrue())
		Expect(s.Prompts).To(BeEmpty())
	})

	It("rejects an empty description", func() {
		s.Response = "   "
		_, err := g.Describe(ctx, diff, "header.html")
		Expect(errors.Is(err, describe.ErrEmptyDescription)).To(BeTrue())
	})

	It("surfaces summarizer errors", func() {
		s.Err = errors.New("model overloaded")
		_, err := g.Describe(ctx, diff, "header.html")
		Expect(err).To(MatchError(ContainSubstring("model overloaded")))
	})

	It("accepts a plain function", func() {
		g = describe.NewGenerator(describe.SummarizerFunc(func(context.Context, string) (string, error) {
			return "focus order changed", nil
		}), nil)

		out, err := g.Describe(ctx, diff, "nav.tsx")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("focus order changed"))
	})
})
