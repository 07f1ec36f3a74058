package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// ExchangeCode swaps an authorization code for a token at the token
// endpoint: a form-encoded POST with grant_type=authorization_code, code,
// redirect_uri, client_id and code_verifier. As a public client the client_id
// travels in the body, not in Basic auth. There are no retries — the code and
// verifier are single-use, so a failed exchange means restarting the flow.
func ExchangeCode(ctx context.Context, client *http.Client, tokenEndpoint, code, verifier, redirectURI, clientID string) (*TokenResponse, error) {
	conf := &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURI,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenEndpoint,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	if client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
	}

	tok, err := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) {
			return nil, &TokenExchangeError{
				Status: rErr.Response.StatusCode,
				Body:   strings.TrimSpace(string(rErr.Body)),
			}
		}
		// oauth2 reports a 2xx body without an access_token as a plain
		// error rather than a RetrieveError.
		if strings.Contains(err.Error(), "missing access_token") {
			return nil, &ProtocolError{Reason: "token response missing access_token"}
		}
		return nil, fmt.Errorf("token request: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, &ProtocolError{Reason: "token response missing access_token"}
	}

	resp := &TokenResponse{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		ExpiresIn:   tok.ExpiresIn,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		resp.Scope = scope
	}
	return resp, nil
}
