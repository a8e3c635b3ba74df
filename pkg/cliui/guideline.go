package cliui

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/papercomputeco/wcagrag/pkg/guideline"
)

var (
	RefStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	TitleStyle = lipgloss.NewStyle().Bold(true)
	ScoreStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// GuidelineLine renders "1.1.1 Non-text Content (0.1234)" for list output.
func GuidelineLine(r guideline.Record, score float32) string {
	return fmt.Sprintf("%s %s %s",
		RefStyle.Render(r.RefID),
		TitleStyle.Render(r.Title),
		ScoreStyle.Render(fmt.Sprintf("(%.4f)", score)),
	)
}

// Preview flattens text onto one line and cuts it to width cells.
func Preview(text string, width int) string {
	flat := strings.Join(strings.Fields(text), " ")
	return ansi.Truncate(flat, width, "…")
}

// GuidelineMarkdown formats a retrieved guideline for RenderMarkdown.
func GuidelineMarkdown(r guideline.Record, score float32) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s %s\n\n", r.RefID, r.Title)
	fmt.Fprintf(&b, "*distance %.4f* · [Understanding %s](%s)\n\n", score, r.RefID, r.URL)
	b.WriteString("```\n")
	b.WriteString(strings.TrimSpace(r.Description))
	b.WriteString("\n```\n")
	writeList(&b, "Techniques", r.Techniques)
	writeList(&b, "Common failures", r.Failures)
	return b.String()
}

func writeList(b *strings.Builder, header string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n**%s**\n\n", header)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}
