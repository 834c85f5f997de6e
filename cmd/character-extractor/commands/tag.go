package commands

import (
	"github.com/spf13/cobra"

	"github.com/menta2k/character-extractor/internal/utils"
)

// NewTagCmd creates the tag command
func NewTagCmd(app *App) *cobra.Command {
	var in string
	var threshold float64

	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Run only the tag classifier on an image",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := utils.CheckInput(in); err != nil {
				return err
			}
			if threshold > 0 {
				app.Config.Pipeline.Threshold = threshold
			}

			ctx, cancel := runContext(cmd.Context(), 0)
			defer cancel()

			ex, err := app.extractor(ctx)
			if err != nil {
				return err
			}
			defer app.closeExtractor(ex)

			output, err := ex.Tag(ctx, in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), output)
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "input image path or URL")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "tag confidence threshold (overrides config)")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}
