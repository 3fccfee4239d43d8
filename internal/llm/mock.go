package llm

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
)

const (
	mockCritiqueScore    = 8.0
	mockCritiqueFeedback = "8\nДостаточно полный ответ, добавьте больше конкретики по отрасли."
	mockEmbeddingDims    = 1536
	mockSentence         = "Планетарные аспекты периода поддерживают устойчивое развитие компании и взвешенные управленческие решения."
	mockSentencesPerBody = 12
)

// mockHeadingRe matches the numbered section list inside a generation
// prompt, so the mock can echo back exactly the headings the rubric expects.
var mockHeadingRe = regexp.MustCompile(`(?m)^\d+\. (.+)$`)

// mockClient produces deterministic offline answers. It exists so the bot
// can run end to end, quality gate included, without an API key.
type mockClient struct{}

// NewMock creates the offline client.
func NewMock() Client {
	return &mockClient{}
}

func (m *mockClient) Generate(_ context.Context, prompt string) (string, error) {
	var sb strings.Builder

	for _, match := range mockHeadingRe.FindAllStringSubmatch(prompt, -1) {
		sb.WriteString(strings.TrimSpace(match[1]))
		sb.WriteString("\n")

		for i := 0; i < mockSentencesPerBody; i++ {
			sb.WriteString(mockSentence)
			sb.WriteString(" ")
		}

		sb.WriteString("\n")
	}

	if sb.Len() == 0 {
		sb.WriteString(mockSentence)
	}

	return strings.TrimSpace(sb.String()), nil
}

func (m *mockClient) Critique(_ context.Context, _ string) (Critique, error) {
	score := mockCritiqueScore

	return Critique{Score: &score, Feedback: mockCritiqueFeedback}, nil
}

// GetEmbedding returns a deterministic unit-independent vector derived from
// the text, so similarity queries behave consistently across runs.
func (m *mockClient) GetEmbedding(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))

	seed := h.Sum64()
	vec := make([]float32, mockEmbeddingDims)

	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed>>33))/float32(1<<31) + 0.5
	}

	return vec, nil
}
