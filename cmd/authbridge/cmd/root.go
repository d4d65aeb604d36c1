// Package cmd implements the authbridge command line.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var configURL string

var rootCmd = &cobra.Command{
	Use:   "authbridge",
	Short: "Route authorization requests to a user facing popup and wait for the decision",
	Long: `authbridge correlates authorization requests (connect, sign, allowance, unlock, ...)
issued by a background host with the decisions a user makes in a popup.

Requests and replies travel over Redis pub/sub when redis.url is configured,
otherwise over an in-process bus with the popup running inline.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configURL, "config", "c", "", "Config URL (file path, file://, mem://, gs://, s3://)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
