package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	charextractor "github.com/menta2k/character-extractor"
)

// NewVersionCmd creates the version command
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "character-extractor %s\n", charextractor.GetVersion())
		},
	}
}
