package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/agentauth/agentauth/internal/browser"
)

// openURL is swapped out by tests to fake the user's browser.
var openURL = browser.OpenURL

// Config holds everything one flow attempt needs. Nothing in it is shared
// between attempts; PKCE pair and state are generated per call.
type Config struct {
	// AuthServerURL enables direct discovery against a known server.
	AuthServerURL string
	// Challenge is a raw WWW-Authenticate header value from a 401; when set
	// it takes precedence and discovery is challenge-driven.
	Challenge string

	ClientID     string
	Scope        string
	CallbackAddr string        // bind address for the redirect listener
	Timeout      time.Duration // bound on waiting for the browser redirect
	HTTPClient   *http.Client
}

// Authorize runs one attempt of the OAuth 2.1 authorization-code flow with
// PKCE and returns the token the authorization server issued.
//
// The ordering is load-bearing: the callback listener accepts connections
// before the authorization URL is handed to the user, the captured result is
// consumed and validated before the listener is torn down, and the listener
// is gone before the token exchange starts. Every error aborts the attempt;
// codes and verifiers are single-use, so the caller restarts from scratch if
// it wants to retry.
func Authorize(ctx context.Context, cfg Config) (*TokenResponse, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client_id is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	var meta *ServerMetadata
	var err error
	switch {
	case cfg.Challenge != "":
		meta, err = DiscoverFromChallenge(ctx, cfg.HTTPClient, cfg.Challenge)
	case cfg.AuthServerURL != "":
		meta, err = DiscoverDirect(ctx, cfg.HTTPClient, cfg.AuthServerURL)
	default:
		return nil, fmt.Errorf("either an authorization server URL or a WWW-Authenticate challenge is required")
	}
	if err != nil {
		return nil, fmt.Errorf("authorization server discovery: %w", err)
	}
	log.Debugf("authorization endpoint %s, token endpoint %s", meta.AuthorizationEndpoint, meta.TokenEndpoint)

	pkce, err := GeneratePKCE()
	if err != nil {
		return nil, err
	}
	state, err := GenerateState()
	if err != nil {
		return nil, err
	}

	// The listener must accept connections before the user sees the URL, or
	// a fast login races the bind.
	srv := &CallbackServer{Addr: cfg.CallbackAddr}
	if err := srv.Start(); err != nil {
		return nil, err
	}
	defer srv.Close()

	authURL := authorizationURL(meta, cfg, srv.RedirectURI(), pkce.Challenge, state)
	log.Info("opening browser for authorization")
	if err := openURL(authURL); err != nil {
		log.Debugf("could not open browser: %v", err)
	}
	fmt.Printf("If the browser does not open, visit:\n%s\n\n", authURL)

	res, err := srv.WaitForResult(ctx, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("waiting for authorization: %w", err)
	}
	log.Debug("authorization code received")

	if res.State != state {
		return nil, &ProtocolError{Reason: "state mismatch on authorization callback"}
	}

	// Free the port before talking to the token endpoint; the browser side
	// of the flow is over.
	redirectURI := srv.RedirectURI()
	srv.Close()

	token, err := ExchangeCode(ctx, cfg.HTTPClient, meta.TokenEndpoint, res.Code, pkce.Verifier, redirectURI, cfg.ClientID)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	log.Debug("token exchange complete")
	return token, nil
}

// authorizationURL builds the front-channel request: response_type=code plus
// client_id, redirect_uri, scope, S256 challenge and state.
func authorizationURL(meta *ServerMetadata, cfg Config, redirectURI, challenge, state string) string {
	conf := &oauth2.Config{
		ClientID:    cfg.ClientID,
		RedirectURL: redirectURI,
		Endpoint:    oauth2.Endpoint{AuthURL: meta.AuthorizationEndpoint},
	}
	if cfg.Scope != "" {
		conf.Scopes = []string{cfg.Scope}
	}
	return conf.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}
