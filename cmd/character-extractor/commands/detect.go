package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	charextractor "github.com/menta2k/character-extractor"
	"github.com/menta2k/character-extractor/internal/utils"
)

// NewDetectCmd creates the detect command
func NewDetectCmd(app *App) *cobra.Command {
	var in, outDir string

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect and crop characters without extracting attributes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := utils.CheckInput(in); err != nil {
				return err
			}

			ctx, cancel := runContext(cmd.Context(), 0)
			defer cancel()

			if outDir == "" {
				outDir = app.Config.Pipeline.CropDir
			}
			personCropper, err := charextractor.NewPersonCropper(app.Config, app.Logger)
			if err != nil {
				return err
			}

			crops, err := personCropper.Crop(ctx, in, outDir)
			if err != nil {
				return err
			}
			if len(crops) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No characters found")
				return nil
			}
			for _, c := range crops {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "input image path or URL")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory for crops (default: pipeline crop dir)")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}
