package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startCallbackServer(t *testing.T) *CallbackServer {
	t.Helper()
	s := &CallbackServer{Addr: "127.0.0.1:0"}
	require.NoError(t, s.Start())
	t.Cleanup(s.Close)
	return s
}

func TestCallbackServer_RedirectURI(t *testing.T) {
	s := startCallbackServer(t)
	assert.Regexp(t, `^http://127\.0\.0\.1:\d+/callback$`, s.RedirectURI())
}

func TestCallbackServer_CapturesCodeAndState(t *testing.T) {
	s := startCallbackServer(t)

	go func() {
		time.Sleep(20 * time.Millisecond)
		http.Get(s.RedirectURI() + "?code=xyz&state=abc123")
	}()

	res, err := s.WaitForResult(context.Background(), 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "xyz", res.Code)
	assert.Equal(t, "abc123", res.State)
}

func TestCallbackServer_ConfirmationPage(t *testing.T) {
	s := startCallbackServer(t)

	resp, err := http.Get(s.RedirectURI() + "?code=xyz&state=abc")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Authorization complete")
}

func TestCallbackServer_OtherPathsReturn404(t *testing.T) {
	s := startCallbackServer(t)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/favicon.ico", s.port))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// A 404 must not satisfy the wait.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = s.WaitForResult(ctx, 0)
	require.Error(t, err)
}

func TestCallbackServer_SingleCapture(t *testing.T) {
	s := startCallbackServer(t)

	// Two distinct redirects: the first wins, the second is answered but
	// must not overwrite the result.
	resp1, err := http.Get(s.RedirectURI() + "?code=first&state=s1")
	require.NoError(t, err)
	resp1.Body.Close()

	resp2, err := http.Get(s.RedirectURI() + "?code=second&state=s2")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	res, err := s.WaitForResult(context.Background(), 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "first", res.Code)
	assert.Equal(t, "s1", res.State)
}

func TestCallbackServer_OAuthErrorRedirect(t *testing.T) {
	s := startCallbackServer(t)

	resp, err := http.Get(s.RedirectURI() + "?error=access_denied&error_description=user+said+no")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, err = s.WaitForResult(context.Background(), 2*time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access_denied")
}

func TestCallbackServer_MissingCode(t *testing.T) {
	s := startCallbackServer(t)

	resp, err := http.Get(s.RedirectURI() + "?state=abc")
	require.NoError(t, err)
	resp.Body.Close()

	_, err = s.WaitForResult(context.Background(), 2*time.Second)
	var perr *ProtocolError
	require.True(t, errors.As(err, &perr))
}

func TestCallbackServer_WaitTimeout(t *testing.T) {
	s := startCallbackServer(t)

	_, err := s.WaitForResult(context.Background(), 50*time.Millisecond)
	require.Error(t, err)

	var terr *TimeoutError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, 50*time.Millisecond, terr.After)
}

func TestCallbackServer_WaitCancellation(t *testing.T) {
	s := startCallbackServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := s.WaitForResult(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCallbackServer_CloseReleasesPort(t *testing.T) {
	s := &CallbackServer{Addr: "127.0.0.1:0"}
	require.NoError(t, s.Start())
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	s.Close()
	s.Close() // idempotent

	// The port must be rebindable within a bounded window.
	var rebound *CallbackServer
	require.Eventually(t, func() bool {
		c := &CallbackServer{Addr: addr}
		if err := c.Start(); err != nil {
			return false
		}
		rebound = c
		return true
	}, 2*time.Second, 20*time.Millisecond)
	rebound.Close()
}
