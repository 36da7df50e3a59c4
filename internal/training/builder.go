// Package training exports the stored statutes as a JSONL fine-tuning
// dataset, one user/assistant exchange per article.
package training

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/eun-legal/backend/internal/storage/models"
	"github.com/eun-legal/backend/pkg/logger"
)

// envelopeMargin is the byte cost of the JSON wrapper around the two
// message contents, used when budgeting oversized articles.
const envelopeMargin = 86

type LawStore interface {
	ReadAllLaws(ctx context.Context) ([]models.CodeOrLaw, error)
}

type ArticleStore interface {
	ReadByCode(ctx context.Context, codeID string) ([]models.Article, error)
}

type Builder struct {
	laws      LawStore
	articles  ArticleStore
	lineLimit int
}

func NewBuilder(laws LawStore, articles ArticleStore, lineLimit int) *Builder {
	return &Builder{laws: laws, articles: articles, lineLimit: lineLimit}
}

// BuildDataset writes one JSONL line per stored statute article. Articles
// whose line would exceed the limit are split into numbered parts. The
// number of lines written is returned.
func (b *Builder) BuildDataset(ctx context.Context, w io.Writer) (int, error) {
	laws, err := b.laws.ReadAllLaws(ctx)
	if err != nil {
		return 0, err
	}

	lines := 0
	for _, law := range laws {
		arts, err := b.articles.ReadByCode(ctx, law.ID)
		if err != nil {
			return lines, err
		}

		for _, art := range arts {
			text := strings.TrimSpace(art.Text)
			if text == "" {
				continue
			}

			prompt := fmt.Sprintf("Article %s de la %s", art.Number, law.Title)
			line := Line(prompt, text)

			if len(line) <= b.lineLimit {
				if _, err := io.WriteString(w, line+"\n"); err != nil {
					return lines, err
				}
				lines++
				continue
			}

			budget := b.lineLimit - envelopeMargin - len(escape(prompt))
			for i, part := range splitRunes(text, budget) {
				partPrompt := fmt.Sprintf("Article %s (%d) de la %s", art.Number, i+1, law.Title)
				if _, err := io.WriteString(w, Line(partPrompt, part)+"\n"); err != nil {
					return lines, err
				}
				lines++
			}
		}
	}

	logger.Info("Training dataset built", zap.Int("lines", lines))
	return lines, nil
}

// Line renders one dataset entry. The JSON is assembled by hand so that
// escaping stays byte-exact and predictable against the line budget.
func Line(user, assistant string) string {
	var sb strings.Builder
	sb.WriteString(`{"messages":[{"role":"user","content":"`)
	sb.WriteString(escape(user))
	sb.WriteString(`"},{"role":"assistant","content":"`)
	sb.WriteString(escape(assistant))
	sb.WriteString(`"}]}`)
	return sb.String()
}

// escape produces a JSON-safe string body. Invisible and zero-width
// characters that leak out of the source HTML are dropped entirely, they
// only corrupt tokenizers downstream.
func escape(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\f':
			sb.WriteString(`\f`)
		case '\b':
		default:
			if invisible(r) {
				continue
			}
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func invisible(r rune) bool {
	switch {
	case r < 0x20, r == 0x7f:
		return true
	case r >= 0x200b && r <= 0x200f:
		return true
	case r >= 0x202a && r <= 0x202e:
		return true
	case r == 0x2060, r == 0xfeff:
		return true
	}
	return false
}

// splitRunes cuts s into pieces of at most max bytes without breaking
// multi-byte runes.
func splitRunes(s string, max int) []string {
	if max <= 0 {
		return []string{s}
	}

	var parts []string
	var sb strings.Builder
	for _, r := range s {
		if sb.Len()+len(string(r)) > max {
			parts = append(parts, sb.String())
			sb.Reset()
		}
		sb.WriteRune(r)
	}
	if sb.Len() > 0 {
		parts = append(parts, sb.String())
	}
	return parts
}
