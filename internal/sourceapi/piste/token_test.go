package piste

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenServer(t *testing.T, requests *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "id", r.Form.Get("client_id"))

		*requests++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"tok-%d","expires_in":3600}`, *requests)
	}))
}

func TestTokenSource_CachesToken(t *testing.T) {
	requests := 0
	srv := tokenServer(t, &requests)
	defer srv.Close()

	ts := NewTokenSource(srv.URL, "id", "secret")

	first, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", first)

	second, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, requests)
}

func TestTokenSource_InvalidateForcesRefetch(t *testing.T) {
	requests := 0
	srv := tokenServer(t, &requests)
	defer srv.Close()

	ts := NewTokenSource(srv.URL, "id", "secret")

	_, err := ts.Token(context.Background())
	require.NoError(t, err)

	ts.Invalidate()

	tok, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
	assert.Equal(t, 2, requests)
}

func TestTokenSource_ServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusBadRequest)
	}))
	defer srv.Close()

	ts := NewTokenSource(srv.URL, "id", "secret")
	_, err := ts.Token(context.Background())
	assert.ErrorContains(t, err, "400")
}
