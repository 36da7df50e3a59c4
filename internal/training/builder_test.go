package training

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eun-legal/backend/internal/storage/models"
)

type fakeLawStore struct {
	laws []models.CodeOrLaw
}

func (s *fakeLawStore) ReadAllLaws(context.Context) ([]models.CodeOrLaw, error) {
	return s.laws, nil
}

type fakeArticleStore struct {
	byCode map[string][]models.Article
}

func (s *fakeArticleStore) ReadByCode(_ context.Context, codeID string) ([]models.Article, error) {
	return s.byCode[codeID], nil
}

type datasetMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type datasetLine struct {
	Messages []datasetMessage `json:"messages"`
}

func buildLines(t *testing.T, b *Builder) []string {
	t.Helper()

	var sb strings.Builder
	_, err := b.BuildDataset(context.Background(), &sb)
	require.NoError(t, err)

	out := strings.TrimRight(sb.String(), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func fixtureStores() (*fakeLawStore, *fakeArticleStore) {
	laws := &fakeLawStore{laws: []models.CodeOrLaw{
		{ID: "LOI1", Title: "LOI n° 1901-07-01 du 1er juillet 1901", StartDate: time.Now()},
	}}
	arts := &fakeArticleStore{byCode: map[string][]models.Article{
		"LOI1": {
			{ID: "A1", CodeID: "LOI1", Number: "1", Text: "Les associations se forment librement."},
		},
	}}
	return laws, arts
}

func TestBuildDataset_LineFormat(t *testing.T) {
	laws, arts := fixtureStores()
	b := NewBuilder(laws, arts, 512*1024)

	lines := buildLines(t, b)
	require.Len(t, lines, 1)

	// Hand-assembled JSON must still be valid JSON.
	var parsed datasetLine
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &parsed))
	require.Len(t, parsed.Messages, 2)

	assert.Equal(t, "user", parsed.Messages[0].Role)
	assert.Equal(t, "Article 1 de la LOI n° 1901-07-01 du 1er juillet 1901", parsed.Messages[0].Content)
	assert.Equal(t, "assistant", parsed.Messages[1].Role)
	assert.Equal(t, "Les associations se forment librement.", parsed.Messages[1].Content)
}

func TestBuildDataset_SkipsEmptyArticles(t *testing.T) {
	laws, arts := fixtureStores()
	arts.byCode["LOI1"] = append(arts.byCode["LOI1"], models.Article{ID: "A2", CodeID: "LOI1", Number: "2", Text: "   "})

	b := NewBuilder(laws, arts, 512*1024)
	assert.Len(t, buildLines(t, b), 1)
}

func TestBuildDataset_SplitsOversizedArticles(t *testing.T) {
	laws, arts := fixtureStores()
	arts.byCode["LOI1"] = []models.Article{
		{ID: "A1", CodeID: "LOI1", Number: "1", Text: strings.Repeat("loi ", 400)},
	}

	b := NewBuilder(laws, arts, 512)
	lines := buildLines(t, b)
	require.Greater(t, len(lines), 1)

	for i, line := range lines {
		assert.LessOrEqual(t, len(line), 512, "line %d over budget", i)

		var parsed datasetLine
		require.NoError(t, json.Unmarshal([]byte(line), &parsed))
		assert.Contains(t, parsed.Messages[0].Content, "(")
	}

	// Reassembled parts restore the full text.
	var rebuilt strings.Builder
	for _, line := range lines {
		var parsed datasetLine
		require.NoError(t, json.Unmarshal([]byte(line), &parsed))
		rebuilt.WriteString(parsed.Messages[1].Content)
	}
	assert.Equal(t, strings.TrimSpace(strings.Repeat("loi ", 400)), rebuilt.String())
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `ligne 1\nligne 2`, escape("ligne 1\nligne 2"))
	assert.Equal(t, `dit \"non\"`, escape(`dit "non"`))
	assert.Equal(t, `a\\b`, escape(`a\b`))
	// Zero-width and control characters vanish entirely.
	assert.Equal(t, "ab", escape("a​b"))
	assert.Equal(t, "ab", escape("ab"))
	assert.Equal(t, "ab", escape("a\bb"))
}

func TestLine_IsValidJSON(t *testing.T) {
	line := Line("question \"piège\"\n", "réponse\tavec​ du bruit")

	var parsed datasetLine
	require.NoError(t, json.Unmarshal([]byte(line), &parsed))
	assert.Equal(t, "réponse\tavec du bruit", parsed.Messages[1].Content)
}
