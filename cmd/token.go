package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentauth/agentauth/internal/auth"
	"github.com/agentauth/agentauth/internal/resource"
)

var (
	flagAuthServer   string
	flagResource     string
	flagClientID     string
	flagScope        string
	flagCallbackAddr string
	flagTimeout      time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Obtain an access token via the authorization-code flow",
	Long: `Run one OAuth 2.1 authorization-code + PKCE flow and print the access token.

Discovery is direct when --auth-server is given. With --resource instead,
agentauth probes the resource unauthenticated and follows the
resource_metadata hint from the 401 WWW-Authenticate challenge.

Examples:
  # Known authorization server
  agentauth token --auth-server https://as.example.com --client-id demo-client --scope echo:read

  # Only the protected resource is known
  agentauth token --resource http://localhost:9091/echo --client-id demo-client`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runToken,
}

func init() {
	f := tokenCmd.Flags()
	f.StringVar(&flagAuthServer, "auth-server", "", "authorization server base URL (env AGENTAUTH_AUTH_SERVER)")
	f.StringVar(&flagResource, "resource", "", "protected resource URL to probe for a challenge (env AGENTAUTH_RESOURCE)")
	f.StringVar(&flagClientID, "client-id", "", "OAuth client identifier (env AGENTAUTH_CLIENT_ID)")
	f.StringVar(&flagScope, "scope", "", "requested scope (env AGENTAUTH_SCOPE)")
	f.StringVar(&flagCallbackAddr, "callback-addr", auth.DefaultCallbackAddr, "bind address for the local redirect listener")
	f.DurationVar(&flagTimeout, "timeout", 2*time.Minute, "how long to wait for the browser redirect")

	callCmd.Flags().AddFlagSet(f)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := flowConfig(cmd.Context())
	if err != nil {
		return err
	}

	tok, err := auth.Authorize(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	fmt.Println(tok.AccessToken)
	return nil
}

// flowConfig assembles the flow configuration from flags and environment.
// When only a resource URL is known, it probes it to pick up the
// WWW-Authenticate challenge that drives discovery.
func flowConfig(ctx context.Context) (auth.Config, error) {
	cfg := auth.Config{
		AuthServerURL: fromFlagOrEnv(flagAuthServer, "AGENTAUTH_AUTH_SERVER"),
		ClientID:      fromFlagOrEnv(flagClientID, "AGENTAUTH_CLIENT_ID"),
		Scope:         fromFlagOrEnv(flagScope, "AGENTAUTH_SCOPE"),
		CallbackAddr:  flagCallbackAddr,
		Timeout:       flagTimeout,
	}
	if cfg.ClientID == "" {
		return auth.Config{}, fmt.Errorf("--client-id (or AGENTAUTH_CLIENT_ID) is required")
	}

	resourceURL := fromFlagOrEnv(flagResource, "AGENTAUTH_RESOURCE")
	if cfg.AuthServerURL == "" {
		if resourceURL == "" {
			return auth.Config{}, fmt.Errorf("one of --auth-server or --resource is required")
		}
		client := &resource.Client{}
		resp, err := client.Get(ctx, resourceURL, "")
		if err != nil {
			return auth.Config{}, err
		}
		if !resp.Unauthorized() {
			return auth.Config{}, fmt.Errorf("resource %s did not challenge (status %d); nothing to discover from", resourceURL, resp.Status)
		}
		cfg.Challenge = resp.Challenge
	}
	return cfg, nil
}
