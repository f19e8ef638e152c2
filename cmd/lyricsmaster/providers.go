package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/lyricsmaster/internal/provider"
)

// NewProvidersCmd creates the providers command.
func NewProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the supported lyrics sites",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range provider.Names() {
				marker := " "
				if name == provider.Default {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
			}
		},
	}
}
