package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchangeCode_Success(t *testing.T) {
	var form map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = map[string]string{
			"grant_type":    r.Form.Get("grant_type"),
			"code":          r.Form.Get("code"),
			"redirect_uri":  r.Form.Get("redirect_uri"),
			"client_id":     r.Form.Get("client_id"),
			"code_verifier": r.Form.Get("code_verifier"),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-1",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"scope":        "echo:read",
		})
	}))
	defer ts.Close()

	tok, err := ExchangeCode(context.Background(), ts.Client(), ts.URL,
		"xyz", "verifier-123", "http://127.0.0.1:9200/callback", "demo-client")
	require.NoError(t, err)

	assert.Equal(t, "tok-1", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, int64(3600), tok.ExpiresIn)
	assert.Equal(t, "echo:read", tok.Scope)

	assert.Equal(t, map[string]string{
		"grant_type":    "authorization_code",
		"code":          "xyz",
		"redirect_uri":  "http://127.0.0.1:9200/callback",
		"client_id":     "demo-client",
		"code_verifier": "verifier-123",
	}, form)
}

func TestExchangeCode_Non2xxCarriesStatusAndBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
	}))
	defer ts.Close()

	_, err := ExchangeCode(context.Background(), ts.Client(), ts.URL,
		"stale-code", "v", "http://127.0.0.1:9200/callback", "demo-client")
	require.Error(t, err)

	var xerr *TokenExchangeError
	require.True(t, errors.As(err, &xerr))
	assert.Equal(t, http.StatusBadRequest, xerr.Status)
	assert.Contains(t, xerr.Body, "invalid_grant")
}

func TestExchangeCode_MissingAccessToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"token_type": "Bearer"})
	}))
	defer ts.Close()

	_, err := ExchangeCode(context.Background(), ts.Client(), ts.URL,
		"xyz", "v", "http://127.0.0.1:9200/callback", "demo-client")
	require.Error(t, err)

	var perr *ProtocolError
	require.True(t, errors.As(err, &perr))
}
