package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/astrorabbit/astro-bot/internal/core/errors"
)

func TestParseCriticScore(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  float64
	}{
		{"leading integer", "7 - хороший ответ, но мало конкретики", 7},
		{"decimal point", "Оценка: 8.5 из 10", 8.5},
		{"decimal comma", "Я бы поставил 6,5 баллов", 6.5},
		{"clamped low", "0 из 10, ответ пустой", 1},
		{"clamped high", "15/10, отличный ответ", 10},
		{"first number wins", "9, хотя местами тянет на 5", 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCriticScore(tt.reply)

			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseCriticScoreNoNumber(t *testing.T) {
	_, err := ParseCriticScore("ответ неплохой, но оценку дать не могу")

	assert.ErrorIs(t, err, apperrors.ErrScoreNotFound)
}

func TestMockGenerateEchoesHeadings(t *testing.T) {
	prompt := "Составь прогноз. Обязательные разделы:\n" +
		"1. 🌟 ВЛИЯНИЕ ЗНАКА ЗОДИАКА НА КОМПАНИЮ\n" +
		"2. 💼 РЕКОМЕНДАЦИИ\n"

	out, err := NewMock().Generate(context.Background(), prompt)

	require.NoError(t, err)
	assert.Contains(t, out, "🌟 ВЛИЯНИЕ ЗНАКА ЗОДИАКА НА КОМПАНИЮ")
	assert.Contains(t, out, "💼 РЕКОМЕНДАЦИИ")
	assert.Greater(t, len(strings.Fields(out)), 20)
}

func TestMockCritique(t *testing.T) {
	crit, err := NewMock().Critique(context.Background(), "любой текст")

	require.NoError(t, err)
	require.NotNil(t, crit.Score)
	assert.InDelta(t, 8.0, *crit.Score, 1e-9)
}

func TestMockEmbeddingDeterministic(t *testing.T) {
	m := NewMock()

	a, err := m.GetEmbedding(context.Background(), "компания")
	require.NoError(t, err)

	b, err := m.GetEmbedding(context.Background(), "компания")
	require.NoError(t, err)

	c, err := m.GetEmbedding(context.Background(), "другая компания")
	require.NoError(t, err)

	assert.Len(t, a, mockEmbeddingDims)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
