package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/agentauth/agentauth/internal/auth"
	"github.com/agentauth/agentauth/internal/resource"
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Call a protected resource, authorizing on demand",
	Long: `GET a protected resource and print the response body.

If the resource answers 401 with a WWW-Authenticate challenge, agentauth runs
the authorization flow driven by that challenge and repeats the request with
the obtained bearer token.

Example:
  agentauth call --resource "http://localhost:9091/echo?text=hello" --client-id demo-client`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCall,
}

func runCall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	resourceURL := fromFlagOrEnv(flagResource, "AGENTAUTH_RESOURCE")
	if resourceURL == "" {
		return fmt.Errorf("--resource (or AGENTAUTH_RESOURCE) is required")
	}

	client := &resource.Client{}
	resp, err := client.Get(ctx, resourceURL, "")
	if err != nil {
		return err
	}

	if resp.Unauthorized() {
		log.Debugf("resource challenged: %s", resp.Challenge)
		cfg := auth.Config{
			Challenge:    resp.Challenge,
			ClientID:     fromFlagOrEnv(flagClientID, "AGENTAUTH_CLIENT_ID"),
			Scope:        fromFlagOrEnv(flagScope, "AGENTAUTH_SCOPE"),
			CallbackAddr: flagCallbackAddr,
			Timeout:      flagTimeout,
		}
		if cfg.ClientID == "" {
			return fmt.Errorf("--client-id (or AGENTAUTH_CLIENT_ID) is required")
		}

		tok, err := auth.Authorize(ctx, cfg)
		if err != nil {
			return err
		}

		resp, err = client.Get(ctx, resourceURL, tok.AccessToken)
		if err != nil {
			return err
		}
	}

	if resp.Status < 200 || resp.Status >= 300 {
		return fmt.Errorf("resource returned %d: %s", resp.Status, resp.Body)
	}
	fmt.Println(resp.Body)
	return nil
}
