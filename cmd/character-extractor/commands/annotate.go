package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/menta2k/character-extractor/pkg/annotate"
	"github.com/menta2k/character-extractor/pkg/tagger"
)

// NewAnnotateCmd creates the annotate command
func NewAnnotateCmd(app *App) *cobra.Command {
	var dataset, buckets, out string

	cmd := &cobra.Command{
		Use:   "annotate",
		Short: "Label a tagged dataset with attribute buckets",
		Long: `Reads a dataset JSON file mapping image paths to comma separated tags and
writes, per image, the tags of each bucket it matched. Images tagged with
more than one character are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if buckets == "" {
				buckets = app.Config.Tagger.BucketsPath
			}
			b, err := tagger.LoadBuckets(buckets, app.Logger)
			if err != nil {
				return err
			}

			entries, err := annotate.LoadDataset(dataset)
			if err != nil {
				return err
			}

			annotated := annotate.Annotate(entries, b)
			if err := annotate.Save(out, annotated); err != nil {
				return fmt.Errorf("failed to write annotations: %w", err)
			}

			app.Logger.Info("dataset annotated",
				zap.Int("images", len(entries)),
				zap.Int("annotated", len(annotated)),
				zap.Int("skipped", len(entries)-len(annotated)),
			)
			printSuccess(cmd.OutOrStdout(), "Annotated %d of %d images into %s", len(annotated), len(entries), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", "", "dataset JSON file")
	cmd.Flags().StringVar(&buckets, "buckets", "", "bucket configuration (default: tagger.buckets_path)")
	cmd.Flags().StringVar(&out, "out", "annotated_dataset.json", "output file")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}
