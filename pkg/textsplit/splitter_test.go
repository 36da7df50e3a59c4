package textsplit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_EmptyInput(t *testing.T) {
	c := NewChunker(500, 10)

	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   \n\t  "))
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	c := NewChunker(500, 10)

	chunks := c.Split("Le juge statue sur les dépens.")
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "dépens")
}

func TestSplit_Deterministic(t *testing.T) {
	c := NewChunker(20, 5)
	text := strings.Repeat("le tribunal a jugé que la demande était recevable ", 10)

	first := c.Split(text)
	second := c.Split(text)
	assert.Equal(t, first, second)
}

func TestSplit_OverlapAndBounds(t *testing.T) {
	c := NewChunker(10, 3)

	words := make([]string, 25)
	for i := range words {
		words[i] = string(rune('a' + i%26))
	}
	chunks := c.Split(strings.Join(words, " "))

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(strings.Fields(chunk)), 10)
	}

	// Consecutive chunks share their boundary tokens.
	firstTokens := strings.Fields(chunks[0])
	secondTokens := strings.Fields(chunks[1])
	assert.Equal(t, firstTokens[len(firstTokens)-3:], secondTokens[:3])
}

func TestNewChunker_SanitizesBadParams(t *testing.T) {
	c := NewChunker(5, -1)
	assert.Equal(t, 0, c.Overlap)

	c = NewChunker(3, 10)
	assert.Greater(t, c.ChunkSize, c.Overlap)
}
