package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"
)

// DiscoverDirect fetches RFC 8414 authorization-server metadata from
// {authServerURL}/.well-known/oauth-authorization-server. When the server URL
// carries a path, the path-appended form is tried first with a path-less
// fallback, since servers disagree on RFC 8414 section 3. A failed fetch is
// never retried; the flow attempt is over.
func DiscoverDirect(ctx context.Context, client *http.Client, authServerURL string) (*ServerMetadata, error) {
	urls, err := wellKnownURLs(authServerURL, "oauth-authorization-server")
	if err != nil {
		return nil, &DiscoveryError{URL: authServerURL, Reason: "invalid authorization server URL", Err: err}
	}

	var lastErr error
	for _, wellKnown := range urls {
		meta, err := fetchServerMetadata(ctx, client, wellKnown)
		if err != nil {
			lastErr = err
			continue
		}
		return meta, nil
	}
	return nil, lastErr
}

// DiscoverFromChallenge resolves authorization-server metadata starting from
// a 401 WWW-Authenticate header: it extracts the resource_metadata URL,
// fetches the protected-resource metadata there, selects the first listed
// authorization server, and performs direct discovery against it.
func DiscoverFromChallenge(ctx context.Context, client *http.Client, wwwAuthenticate string) (*ServerMetadata, error) {
	metaURL, err := ResourceMetadataURL(wwwAuthenticate)
	if err != nil {
		return nil, err
	}
	log.Debugf("resource metadata advertised at %s", metaURL)

	resMeta, err := FetchProtectedResourceMetadata(ctx, client, metaURL)
	if err != nil {
		return nil, err
	}

	// First-listed server wins; see DESIGN.md for the trust discussion.
	authServer := resMeta.AuthorizationServers[0]
	log.Debugf("using authorization server %s", authServer)
	return DiscoverDirect(ctx, client, authServer)
}

// FetchProtectedResourceMetadata fetches an RFC 9728 protected-resource
// metadata document from the exact URL a challenge advertised.
func FetchProtectedResourceMetadata(ctx context.Context, client *http.Client, metaURL string) (*ProtectedResourceMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metaURL, nil)
	if err != nil {
		return nil, &DiscoveryError{URL: metaURL, Reason: "invalid resource metadata URL", Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &DiscoveryError{URL: metaURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &DiscoveryError{URL: metaURL, Status: resp.StatusCode}
	}

	var meta ProtectedResourceMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, &DiscoveryError{URL: metaURL, Reason: "malformed resource metadata", Err: err}
	}
	if len(meta.AuthorizationServers) == 0 {
		return nil, &DiscoveryError{URL: metaURL, Reason: "no authorization_servers in resource metadata"}
	}
	return &meta, nil
}

func fetchServerMetadata(ctx context.Context, client *http.Client, wellKnown string) (*ServerMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnown, nil)
	if err != nil {
		return nil, &DiscoveryError{URL: wellKnown, Reason: "invalid discovery URL", Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &DiscoveryError{URL: wellKnown, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &DiscoveryError{URL: wellKnown, Status: resp.StatusCode}
	}

	var meta ServerMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, &DiscoveryError{URL: wellKnown, Reason: "malformed server metadata", Err: err}
	}
	if meta.AuthorizationEndpoint == "" {
		return nil, &DiscoveryError{URL: wellKnown, Reason: "missing authorization_endpoint"}
	}
	if meta.TokenEndpoint == "" {
		return nil, &DiscoveryError{URL: wellKnown, Reason: "missing token_endpoint"}
	}
	return &meta, nil
}

// wellKnownURLs returns the discovery URLs to try, in order. Per RFC 8414
// section 3 any path on the issuer is appended after the well-known segment;
// the path-less variant is kept as a fallback for servers that ignore that.
func wellKnownURLs(rawURL, suffix string) ([]string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("URL %q has no scheme or host", rawURL)
	}
	base := fmt.Sprintf("%s://%s/.well-known/%s", u.Scheme, u.Host, suffix)
	path := strings.TrimRight(u.Path, "/")
	if path == "" {
		return []string{base}, nil
	}
	return []string{base + path, base}, nil
}
