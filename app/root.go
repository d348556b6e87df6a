// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "evaka-apigw",
	Short: "evaka-apigw is the authentication gateway for the evaka frontends",
	Long: `evaka-apigw terminates SAML, OIDC, AD and mobile PIN authentication
for the citizen and employee single-page applications, establishes
server-side sessions and proxies the resulting identity to the
core service backend.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
