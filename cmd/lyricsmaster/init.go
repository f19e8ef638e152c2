package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/lyricsmaster/internal/config"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a lyricsmaster configuration file",
		Long: `Init writes a commented .lyricsmaster configuration file.

lyricsmaster reads .lyricsmaster from the current directory, then from the
home directory, then config.yaml from the XDG config directory.

Examples:
  # Create .lyricsmaster in current directory
  lyricsmaster init

  # Create config file at a specific path
  lyricsmaster init -o ~/.config/lyricsmaster/config.yaml

  # Force overwrite existing file
  lyricsmaster init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if err := config.WriteTemplate(outputPath, force); err != nil {
		return fmt.Errorf("%w (use -f to overwrite)", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to set:")
	fmt.Fprintln(out, "  - the default lyrics provider and save folder")
	fmt.Fprintln(out, "  - the number of parallel downloads")
	fmt.Fprintln(out, "  - Tor proxy and control port settings")

	return nil
}
