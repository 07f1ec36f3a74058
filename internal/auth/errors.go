package auth

import (
	"fmt"
	"time"
)

// DiscoveryError reports unreachable or malformed authorization-server or
// protected-resource metadata.
type DiscoveryError struct {
	URL    string
	Status int    // upstream HTTP status, 0 if the request never completed
	Reason string // what was wrong with the document, if it was fetched
	Err    error  // underlying transport error, if any
}

func (e *DiscoveryError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("discovery: %s returned %d", e.URL, e.Status)
	case e.Reason != "":
		return fmt.Sprintf("discovery: %s: %s", e.URL, e.Reason)
	default:
		return fmt.Sprintf("discovery: %s: %v", e.URL, e.Err)
	}
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// ProtocolError reports a violation of the OAuth protocol contract: a state
// mismatch on the callback, a challenge header without resource_metadata, or
// a token response without an access_token. It always aborts the flow.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "protocol error: " + e.Reason }

// TokenExchangeError reports a non-2xx response from the token endpoint,
// carrying the upstream status and body. The exchange is never retried: the
// authorization code and PKCE verifier are single-use.
type TokenExchangeError struct {
	Status int
	Body   string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token endpoint returned %d: %s", e.Status, e.Body)
}

// TimeoutError reports that no authorization callback arrived within the
// configured wait bound.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	if e.After > 0 {
		return fmt.Sprintf("no authorization callback received within %s", e.After)
	}
	return "timed out waiting for authorization callback"
}
