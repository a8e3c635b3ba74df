// Package chunker splits rendered guideline text into bounded, overlapping
// chunks for embedding. Splitting is recursive: the text is cut on the first
// separator that occurs in it, oversized pieces are split again with the
// remaining separators, and small pieces are merged back up to the size limit.
package chunker

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultSize is the maximum chunk length in characters.
	DefaultSize = 1000

	// DefaultOverlap is the maximum shared content carried between chunks.
	DefaultOverlap = 200
)

// DefaultSeparators are tried in order; the empty separator is a hard cut.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter is a recursive character text splitter.
type Splitter struct {
	size       int
	overlap    int
	separators []string
}

// New creates a Splitter. When no separators are given DefaultSeparators are
// used. A trailing hard-cut separator is always appended so every chunk can
// be brought under size.
func New(size, overlap int, separators ...string) (*Splitter, error) {
	if size <= 0 {
		return nil, errors.New("chunk size must be positive")
	}
	if overlap < 0 {
		return nil, errors.New("chunk overlap must not be negative")
	}
	if overlap >= size {
		return nil, errors.New("chunk overlap must be smaller than chunk size")
	}

	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	seps := make([]string, 0, len(separators)+1)
	seps = append(seps, separators...)
	if seps[len(seps)-1] != "" {
		seps = append(seps, "")
	}

	return &Splitter{size: size, overlap: overlap, separators: seps}, nil
}

// NewDefault returns a Splitter with the default size, overlap and separators.
func NewDefault() *Splitter {
	s, _ := New(DefaultSize, DefaultOverlap)
	return s
}

// Size returns the configured maximum chunk length.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the configured overlap length.
func (s *Splitter) Overlap() int { return s.overlap }

// Split cuts text into chunks of at most Size characters. Chunks are trimmed
// of surrounding whitespace and blank chunks are dropped, so blank input
// yields no chunks and any other input yields at least one.
func (s *Splitter) Split(text string) []string {
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var (
		chunks []string
		good   []string
	)
	for _, piece := range splitKeep(text, separator) {
		if runeLen(piece) < s.size {
			good = append(good, piece)
			continue
		}

		if len(good) > 0 {
			chunks = append(chunks, s.merge(good)...)
			good = nil
		}

		if len(rest) == 0 {
			if trimmed := strings.TrimSpace(piece); trimmed != "" {
				chunks = append(chunks, trimmed)
			}
			continue
		}
		chunks = append(chunks, s.split(piece, rest)...)
	}

	if len(good) > 0 {
		chunks = append(chunks, s.merge(good)...)
	}

	return chunks
}

// merge greedily packs pieces into chunks, keeping up to overlap characters
// of trailing pieces as the start of the next chunk.
func (s *Splitter) merge(pieces []string) []string {
	var (
		chunks  []string
		current []string
		total   int
	)

	for _, p := range pieces {
		n := runeLen(p)
		if total+n > s.size && len(current) > 0 {
			if c := strings.TrimSpace(strings.Join(current, "")); c != "" {
				chunks = append(chunks, c)
			}
			for total > s.overlap || (total+n > s.size && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}

	if c := strings.TrimSpace(strings.Join(current, "")); c != "" {
		chunks = append(chunks, c)
	}

	return chunks
}

// splitKeep splits text on sep and keeps the separator attached to the start
// of the following piece. The empty separator splits into characters.
func splitKeep(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i > 0 {
			p = sep + p
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
