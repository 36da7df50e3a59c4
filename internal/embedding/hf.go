package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HFProvider calls the Hugging Face inference API. Depending on the model,
// the API answers either a single vector or one vector per token; token
// vectors are centered into a single one.
type HFProvider struct {
	baseURL    string
	token      string
	model      string
	httpClient *http.Client
}

func NewHFProvider(baseURL, token, model string) *HFProvider {
	return &HFProvider{
		baseURL: baseURL,
		token:   token,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (p *HFProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s", p.baseURL, p.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding request returned status %d: %s", resp.StatusCode, data)
	}

	return decodeHFVector(data)
}

func (p *HFProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Dimension embeds a short probe string and measures the result.
func (p *HFProvider) Dimension(ctx context.Context) (int, error) {
	v, err := p.Embed(ctx, "test")
	if err != nil {
		return 0, fmt.Errorf("failed to probe embedding dimension: %w", err)
	}
	return len(v), nil
}

func decodeHFVector(data []byte) ([]float32, error) {
	var tokenVectors [][]float32
	if err := json.Unmarshal(data, &tokenVectors); err == nil {
		return Center(tokenVectors)
	}

	var vector []float32
	if err := json.Unmarshal(data, &vector); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(vector) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return Normalize(vector)
}
