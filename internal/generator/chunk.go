package generator

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxChunkLen is the longest piece of material sent in one prompt.
const MaxChunkLen = 500

var sentenceEnd = regexp.MustCompile(`[.!?]+`)

// SplitText packs sentences into chunks of at most max characters. Text that
// already fits is returned unchanged as a single chunk. A sentence longer
// than max is broken on word boundaries.
func SplitText(text string, max int) []string {
	if max <= 0 {
		max = MaxChunkLen
	}
	if utf8.RuneCountInString(text) <= max {
		return []string{text}
	}

	var (
		chunks  []string
		current strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, sentence := range sentenceEnd.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		for _, piece := range wrap(sentence, max-2) {
			if utf8.RuneCountInString(current.String())+utf8.RuneCountInString(piece)+2 > max {
				flush()
			}
			current.WriteString(piece)
			current.WriteString(". ")
		}
	}
	flush()
	return chunks
}

// wrap breaks s on whitespace into pieces no longer than max runes. Words
// longer than max are cut.
func wrap(s string, max int) []string {
	if utf8.RuneCountInString(s) <= max {
		return []string{s}
	}
	var (
		out  []string
		line []rune
	)
	for _, word := range strings.Fields(s) {
		w := []rune(word)
		for len(w) > max {
			if len(line) > 0 {
				out = append(out, string(line))
				line = nil
			}
			out = append(out, string(w[:max]))
			w = w[max:]
		}
		switch {
		case len(line) == 0:
			line = w
		case len(line)+1+len(w) <= max:
			line = append(append(line, ' '), w...)
		default:
			out = append(out, string(line))
			line = w
		}
	}
	if len(line) > 0 {
		out = append(out, string(line))
	}
	return out
}
