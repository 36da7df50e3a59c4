// Package textsplit cuts long text into token-bounded chunks with a small
// overlap, the unit fed to the embedding backends.
package textsplit

import (
	"strings"

	"github.com/jdkato/prose/v2"
)

const DefaultOverlap = 10

type Chunker struct {
	ChunkSize int
	Overlap   int
}

func NewChunker(chunkSize, overlap int) *Chunker {
	if overlap < 0 {
		overlap = 0
	}
	if chunkSize <= overlap {
		chunkSize = overlap + 1
	}
	return &Chunker{ChunkSize: chunkSize, Overlap: overlap}
}

// Split tokenizes text and regroups the tokens into chunks of at most
// ChunkSize tokens, consecutive chunks sharing the last Overlap tokens.
// Pure function of its input; whitespace-only text yields no chunks.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	if len(tokens) <= c.ChunkSize {
		return []string{strings.Join(tokens, " ")}
	}

	step := c.ChunkSize - c.Overlap
	var chunks []string
	for start := 0; start < len(tokens); start += step {
		end := start + c.ChunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, strings.Join(tokens[start:end], " "))
		if end == len(tokens) {
			break
		}
	}
	return chunks
}

func tokenize(text string) []string {
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
		prose.WithSegmentation(false),
	)
	if err != nil {
		// Degrade to whitespace splitting rather than dropping the text.
		return strings.Fields(text)
	}

	docTokens := doc.Tokens()
	tokens := make([]string, 0, len(docTokens))
	for _, t := range docTokens {
		if t.Text != "" {
			tokens = append(tokens, t.Text)
		}
	}
	return tokens
}
