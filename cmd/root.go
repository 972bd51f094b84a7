package cmd

import (
	"fmt"
	"os"

	"playshelf/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "playshelf",
	Short: "Playshelf is a personal audiobook and music server.",
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
