package quality

import (
	"regexp"
	"strings"
)

var (
	// wordRe matches letter/digit runs in any script; Go's \w is ASCII-only
	// and would miss Cyrillic entirely.
	wordRe     = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	mdSignalRe = regexp.MustCompile("[#*_`]+")
	htmlTagRe  = regexp.MustCompile(`<[^>]+>`)
)

// SplitSections splits free text into named sections by locating exact-match
// heading lines. A line whose trimmed content equals one of the expected
// titles starts a new section; following lines belong to its body until the
// next recognized heading or end of text. Lines before the first heading are
// discarded. If a heading occurs twice, the second occurrence wins.
//
// Matching is deliberately strict: headings are produced by an LLM that is
// instructed to emit one fixed literal string per section, so an exact match
// both validates compliance and avoids false positives from body text.
func SplitSections(text string, expectedTitles []string) map[string]string {
	titles := make(map[string]struct{}, len(expectedTitles))
	for _, t := range expectedTitles {
		titles[strings.TrimSpace(t)] = struct{}{}
	}

	sections := make(map[string]string)

	var (
		current string
		buf     []string
	)

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if _, ok := titles[trimmed]; ok {
			if current != "" {
				sections[current] = strings.TrimSpace(strings.Join(buf, "\n"))
				buf = buf[:0]
			}

			current = trimmed

			continue
		}

		if current != "" {
			buf = append(buf, strings.TrimRight(line, " \t\r"))
		}
	}

	if current != "" {
		sections[current] = strings.TrimSpace(strings.Join(buf, "\n"))
	}

	return sections
}

// WordCount counts maximal runs of word characters. It is a length
// heuristic, not a tokenizer.
func WordCount(s string) int {
	return len(wordRe.FindAllStringIndex(s, -1))
}

// HasMarkup reports whether text contains an HTML-tag-like pattern or a run
// of Markdown signal characters. This is a coarse syntactic check; the
// target format (plain chat messages) legitimately never needs these
// characters, so false positives on literal # or * in prose are accepted.
func HasMarkup(s string) bool {
	return mdSignalRe.MatchString(s) || htmlTagRe.MatchString(s)
}
