package legifrance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eun-legal/backend/internal/sourceapi/piste"
)

// apiServer serves both the OAuth endpoint and the API, rejecting stale
// bearer tokens so the 401 re-auth path can be exercised.
type apiServer struct {
	srv          *httptest.Server
	tokenIssues  int
	currentToken string
	apiCalls     int
}

func newAPIServer(t *testing.T) *apiServer {
	t.Helper()
	s := &apiServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		s.tokenIssues++
		s.currentToken = fmt.Sprintf("tok-%d", s.tokenIssues)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":%q,"expires_in":3600}`, s.currentToken)
	})
	mux.HandleFunc("/api/consult/getArticle", func(w http.ResponseWriter, r *http.Request) {
		s.apiCalls++
		if r.Header.Get("Authorization") != "Bearer "+s.currentToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var req getArticleRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"article":{"id":%q,"num":"12","texte":"Texte de l'article.","etat":"VIGUEUR"}}`, req.ID)
	})

	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *apiServer) client() *Client {
	tokens := piste.NewTokenSource(s.srv.URL+"/oauth/token", "id", "secret")
	return NewClient(s.srv.URL+"/api", tokens)
}

func TestGetArticle(t *testing.T) {
	s := newAPIServer(t)
	c := s.client()

	art, err := c.GetArticle(context.Background(), "LEGIARTI123")
	require.NoError(t, err)

	assert.Equal(t, "LEGIARTI123", art.ID)
	assert.Equal(t, "12", art.Num)
	assert.Equal(t, "VIGUEUR", art.Etat)
	assert.Equal(t, 1, s.tokenIssues)
}

func TestGetArticle_ReauthenticatesOnceOn401(t *testing.T) {
	s := newAPIServer(t)
	c := s.client()

	// First call caches a token, then the server rotates it away.
	_, err := c.GetArticle(context.Background(), "A1")
	require.NoError(t, err)
	s.currentToken = "rotated"

	art, err := c.GetArticle(context.Background(), "A2")
	require.NoError(t, err)
	assert.Equal(t, "A2", art.ID)
	assert.Equal(t, 2, s.tokenIssues, "the 401 must trigger exactly one re-auth")
}
