package cmd

import (
	"fmt"
	"os"

	"EchoQ/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "echoq",
	Short: "EchoQ is the playback queue service for the streaming client.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
