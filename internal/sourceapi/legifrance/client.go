// Package legifrance consumes the DILA LegiFrance API through the PISTE
// gateway.
package legifrance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eun-legal/backend/internal/sourceapi/piste"
)

const (
	codeListPageSize = 10
	lawListPageSize  = 10000
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

// ListCodes returns one page of the code catalogue, in title order so that
// pages stay stable across calls.
func (c *Client) ListCodes(ctx context.Context, pageNumber int) (*TextListPage, error) {
	var page TextListPage
	err := c.post(ctx, "/list/code", listCodesRequest{
		PageSize:   codeListPageSize,
		PageNumber: pageNumber,
		States:     []string{"VIGUEUR", "ABROGE", "VIGUEUR_DIFF"},
		Sort:       "TITLE_ASC",
	}, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// ListLaws returns the statutes currently in force, newest first. The page
// size is large enough to cover the whole corpus in one call.
func (c *Client) ListLaws(ctx context.Context) (*TextListPage, error) {
	var page TextListPage
	err := c.post(ctx, "/list/loda", listLawsRequest{
		Sort:        "PUBLICATION_DATE_DESC",
		LegalStatus: []string{"VIGUEUR"},
		Natures:     []string{"LOI"},
		PageNumber:  1,
		PageSize:    lawListPageSize,
	}, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// ConsultText fetches the section tree of a code or statute as of the
// given date (YYYY-MM-DD).
func (c *Client) ConsultText(ctx context.Context, textID, date string) (*TextRoot, error) {
	var resp consultResponse
	if err := c.post(ctx, "/consult/lawDecree", consultRequest{TextID: textID, Date: date}, &resp); err != nil {
		return nil, err
	}
	return &resp.Texte, nil
}

// GetArticle fetches one article with its full text and validity dates.
func (c *Client) GetArticle(ctx context.Context, id string) (*Article, error) {
	var resp getArticleResponse
	if err := c.post(ctx, "/consult/getArticle", getArticleRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp.Article, nil
}

// post sends an authenticated request. A 401 response invalidates the
// cached token and retries once with a fresh one.
func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.send(ctx, path, body)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		c.tokens.Invalidate()
		if resp, err = c.send(ctx, path, body); err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("legifrance %s returned status %d: %s", path, resp.StatusCode, data)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, path string, body []byte) (*http.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("legifrance %s request failed: %w", path, err)
	}
	return resp, nil
}
