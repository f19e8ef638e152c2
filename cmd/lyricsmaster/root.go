package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for lyricsmaster.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lyricsmaster",
		Short: "Download lyrics of whole discographies",
		Long: `lyricsmaster downloads the lyrics of an artist's albums from LyricWiki,
AZLyrics, Genius, Lyrics007 or MusixMatch and saves them as text files.

Requests can go through Tor. With a Tor control port, lyricsmaster asks for
a new identity before every album.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-file", "", "Also write logs to this file, rotated by size")

	cmd.AddCommand(NewGetCmd())
	cmd.AddCommand(NewProvidersCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		if !errors.Is(err, errNothingFetched) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
