package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultCallbackAddr is where the redirect listener binds unless the caller
// chose another address. Port 0 is accepted for an OS-assigned port.
const DefaultCallbackAddr = "127.0.0.1:9200"

const confirmationPage = `<html><body><h1>Authorization complete</h1>
<p>You can close this tab and return to the terminal.</p></body></html>`

// callbackOutcome is what one redirect request produced: a result or an
// OAuth error relayed by the authorization server.
type callbackOutcome struct {
	result AuthorizationResult
	err    error
}

// CallbackServer is a single-use local listener for the authorization
// redirect. It serves GET /callback (anything else is a 404), captures at
// most one result, and hands it to exactly one waiter. The result slot is
// write-once: a second redirect gets the confirmation page again but cannot
// overwrite what the first one delivered.
type CallbackServer struct {
	// Addr is the bind address; empty means DefaultCallbackAddr.
	Addr string

	host     string
	port     int
	listener net.Listener
	server   *http.Server

	outcome   chan callbackOutcome
	capture   sync.Once
	closeOnce sync.Once
}

// Start binds the listener and begins accepting connections. When Start
// returns nil the listener is live, so the authorization URL may be handed
// to the user. Call Close to release the port.
func (s *CallbackServer) Start() error {
	addr := s.Addr
	if addr == "" {
		addr = DefaultCallbackAddr
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("start callback listener on %s: %w", addr, err)
	}
	s.listener = ln
	s.port = ln.Addr().(*net.TCPAddr).Port
	if s.host, _, err = net.SplitHostPort(addr); err != nil || s.host == "" {
		s.host = "127.0.0.1"
	}
	s.outcome = make(chan callbackOutcome, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", s.handleCallback)
	s.server = &http.Server{Handler: mux}

	go s.server.Serve(ln)
	log.Debugf("callback listener on %s", s.RedirectURI())
	return nil
}

// RedirectURI returns the redirect_uri to register in the authorization
// request, reflecting the actually bound port.
func (s *CallbackServer) RedirectURI() string {
	return fmt.Sprintf("http://%s/callback", net.JoinHostPort(s.host, fmt.Sprint(s.port)))
}

// WaitForResult blocks, without polling, until the browser delivers the
// redirect, the timeout elapses, or ctx is cancelled. A zero timeout means
// wait as long as ctx allows. It must be called at most once per flow.
func (s *CallbackServer) WaitForResult(ctx context.Context, timeout time.Duration) (AuthorizationResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return AuthorizationResult{}, &TimeoutError{After: timeout}
		}
		return AuthorizationResult{}, ctx.Err()
	case o := <-s.outcome:
		return o.result, o.err
	}
}

// Close shuts the listener down and releases the bound port. It is
// idempotent and safe from any state.
func (s *CallbackServer) Close() {
	s.closeOnce.Do(func() {
		if s.server != nil {
			s.server.Close()
		}
	})
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if oauthErr := q.Get("error"); oauthErr != "" {
		desc := q.Get("error_description")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "<html><body><h1>Authorization failed</h1><p>%s: %s</p></body></html>", oauthErr, desc)
		s.deliver(callbackOutcome{err: fmt.Errorf("authorization server denied the request: %s: %s", oauthErr, desc)})
		return
	}

	code := q.Get("code")
	if code == "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "<html><body><h1>Missing authorization code</h1></body></html>")
		s.deliver(callbackOutcome{err: &ProtocolError{Reason: "callback carried no authorization code"}})
		return
	}

	// The user's browser interaction is complete here, whatever the token
	// exchange does later, so the confirmation page is always served.
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, confirmationPage)

	s.deliver(callbackOutcome{result: AuthorizationResult{Code: code, State: q.Get("state")}})
}

// deliver writes the result slot at most once. Later redirects are answered
// but silently dropped.
func (s *CallbackServer) deliver(o callbackOutcome) {
	s.capture.Do(func() {
		s.outcome <- o
	})
}
