package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var appVersion = "dev"

func SetVersion(v string) {
	appVersion = v
}

var flagVerbose bool

var rootCmd = &cobra.Command{
	Use:   "agentauth",
	Short: "Obtain bearer tokens for protected resources via OAuth 2.1 + PKCE",
	Long: "agentauth runs the OAuth 2.1 authorization-code flow with PKCE as a\n" +
		"public client, so an agent can obtain a bearer token for a protected\n" +
		"resource without a pre-registered client secret.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Optional .env next to the working directory; missing file is fine.
		_ = godotenv.Load()
		if flagVerbose {
			log.SetLevel(log.DebugLevel)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "show detailed progress")
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.SetVersionTemplate(fmt.Sprintf("agentauth v%s\n", appVersion))
}

func Execute() error {
	rootCmd.Version = appVersion
	return rootCmd.Execute()
}

// fromFlagOrEnv resolves a config value: an explicit flag wins, otherwise
// the environment variable (possibly loaded from .env) is consulted.
func fromFlagOrEnv(flagVal, envKey string) string {
	if flagVal != "" {
		return flagVal
	}
	return os.Getenv(envKey)
}
