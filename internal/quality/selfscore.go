package quality

import "strings"

// SelfScoreMarker is the literal marker the generation prompt instructs the
// model to append, followed by its own assessment of the answer.
const SelfScoreMarker = "SELF-SCORE:"

// SplitSelfScore separates a candidate's embedded self-assessment from the
// main answer body, so the critic can evaluate the substantive content
// independently of the producer's own rating. The marker is recognized only
// at the start of a trimmed line; everything from that line onward is
// returned as the self-assessment. If no marker is present, the body is the
// whole text and the self-assessment is empty.
func SplitSelfScore(text string) (body, selfScore string) {
	lines := strings.Split(text, "\n")

	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), SelfScoreMarker) {
			body = strings.TrimSpace(strings.Join(lines[:i], "\n"))
			selfScore = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), SelfScoreMarker))

			return body, selfScore
		}
	}

	return strings.TrimSpace(text), ""
}
