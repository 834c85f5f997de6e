package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/menta2k/character-extractor/internal/utils"
	"github.com/menta2k/character-extractor/pkg/pipeline"
)

// NewProcessCmd creates the process command
func NewProcessCmd(app *App) *cobra.Command {
	var in, out, cropDir string
	var threshold float64
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Extract attributes for every character in an image",
		Long: `Crops each character out of the input image, tags the crop and asks the
vision-language model about the attributes the tags could not settle.
The result maps every crop path to its attributes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := utils.CheckInput(in); err != nil {
				return err
			}
			if threshold > 0 {
				app.Config.Pipeline.Threshold = threshold
			}
			if cropDir != "" {
				app.Config.Pipeline.CropDir = cropDir
			}

			ctx, cancel := runContext(cmd.Context(), timeout)
			defer cancel()

			ex, err := app.extractor(ctx)
			if err != nil {
				return err
			}
			defer app.closeExtractor(ex)

			result, err := ex.Process(ctx, in)
			if err != nil {
				return err
			}

			if out == "" {
				return printJSON(cmd.OutOrStdout(), result)
			}
			if err := pipeline.WriteResult(out, result); err != nil {
				return fmt.Errorf("failed to write result: %w", err)
			}
			app.Logger.Info("result written", zap.String("path", out), zap.Int("characters", len(result)))
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "input image path or URL (jpg/png/webp)")
	cmd.Flags().StringVar(&out, "out", "", "write the JSON result to this file instead of stdout")
	cmd.Flags().StringVar(&cropDir, "crop-dir", "", "directory for character crops (overrides config)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "tag confidence threshold (overrides config)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "abort the whole run after this long, 0 for no limit")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}
