package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "voicenote",
	Short: "Dictate short notes from the terminal",
	Long: `voicenote turns continuous speech into a short text note.
It keeps one Deepgram stream alive while you talk, reconnecting when the
stream drops, and prints the saved note as JSON.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("log-level") {
			_ = os.Setenv("VOICENOTE_LOG_LEVEL", logLevel)
		}
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.AddCommand(doctorCmd, dictateCmd, foldersCmd)
}
