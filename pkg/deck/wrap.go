package deck

import (
	"strings"

	"github.com/ponchocards/ponchocards/pkg/deck/canvas"
)

// Wrap breaks text into lines no wider than width millimetres at the given
// font size. Words are packed greedily; a word wider than a whole line is
// split between runes. Explicit newlines start a new line. Text with no
// visible characters yields no lines.
func Wrap(m canvas.Metrics, text string, size float64, bold bool, width float64) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		lines = append(lines, wrapParagraph(m, para, size, bold, width)...)
	}
	return lines
}

func wrapParagraph(m canvas.Metrics, text string, size float64, bold bool, width float64) []string {
	fits := func(s string) bool { return m.StringWidth(s, size, bold) <= width }

	var lines []string
	cur := ""
	for _, word := range strings.Fields(text) {
		if cur != "" {
			if candidate := cur + " " + word; fits(candidate) {
				cur = candidate
				continue
			}
			lines = append(lines, cur)
			cur = ""
		}
		if fits(word) {
			cur = word
			continue
		}
		chunks := splitRunes(word, fits)
		lines = append(lines, chunks[:len(chunks)-1]...)
		cur = chunks[len(chunks)-1]
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// splitRunes cuts word into the longest prefixes that fit. Each chunk holds
// at least one rune, so the loop always advances.
func splitRunes(word string, fits func(string) bool) []string {
	runes := []rune(word)
	var chunks []string
	for len(runes) > 0 {
		n := 1
		for n < len(runes) && fits(string(runes[:n+1])) {
			n++
		}
		chunks = append(chunks, string(runes[:n]))
		runes = runes[n:]
	}
	return chunks
}
