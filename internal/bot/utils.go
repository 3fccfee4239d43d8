package bot

import "strings"

// splitMessage breaks text into parts no longer than limit bytes, preferring
// paragraph boundaries, then line boundaries, then a hard cut on a rune
// boundary.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var parts []string

	rest := text
	for len(rest) > limit {
		cut := findCut(rest, limit)

		part := strings.TrimSpace(rest[:cut])
		if part != "" {
			parts = append(parts, part)
		}

		rest = strings.TrimSpace(rest[cut:])
	}

	if rest != "" {
		parts = append(parts, rest)
	}

	return parts
}

func findCut(text string, limit int) int {
	window := text[:limit]

	if idx := strings.LastIndex(window, "\n\n"); idx > 0 {
		return idx
	}

	if idx := strings.LastIndex(window, "\n"); idx > 0 {
		return idx
	}

	// Hard cut, stepping back to a rune boundary.
	cut := limit
	for cut > 0 && !utf8RuneStart(text[cut]) {
		cut--
	}

	if cut == 0 {
		return limit
	}

	return cut
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
