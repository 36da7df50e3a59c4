// Package judilibre consumes the Cour de cassation Judilibre API through
// the PISTE gateway.
package judilibre

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/eun-legal/backend/internal/sourceapi/piste"
)

type Client struct {
	baseURL    string
	tokens     *piste.TokenSource
	httpClient *http.Client
}

func NewClient(baseURL string, tokens *piste.TokenSource) *Client {
	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Export returns one batch of decisions for a jurisdiction, no newer than
// dateEnd (YYYY-MM-DD). The crawl walks backwards in time by lowering
// dateEnd between calls.
func (c *Client) Export(ctx context.Context, jurisdiction string, batch, batchSize int, dateEnd string) (*ExportBatch, error) {
	params := url.Values{}
	params.Set("jurisdiction", jurisdiction)
	params.Set("batch", strconv.Itoa(batch))
	params.Set("batch_size", strconv.Itoa(batchSize))
	params.Set("date_end", dateEnd)
	params.Set("resolve_references", "true")

	var page ExportBatch
	if err := c.get(ctx, "/export", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Decision fetches one full decision body by id.
func (c *Client) Decision(ctx context.Context, id string) (*Decision, error) {
	params := url.Values{}
	params.Set("id", id)
	params.Set("resolve_references", "true")

	var d Decision
	if err := c.get(ctx, "/decision", params, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// get sends an authenticated request. A 401 response invalidates the
// cached token and retries once with a fresh one.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	resp, err := c.send(ctx, path, params)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		c.tokens.Invalidate()
		if resp, err = c.send(ctx, path, params); err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("judilibre %s returned status %d: %s", path, resp.StatusCode, data)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("judilibre %s request failed: %w", path, err)
	}
	return resp, nil
}
