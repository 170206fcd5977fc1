package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reviewprep/internal/export"
	"reviewprep/internal/features"
)

var featuresFlags struct {
	outDir  string
	reviews string
}

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Build per-reviewer features from the cleaned reviews",
	Long: `Aggregates the cleaned reviews into one row per reviewer and writes the raw
features plus a z-score scaled copy, both keyed by reviewerID. The scaled file
is the input for clustering.`,
	Args: cobra.NoArgs,
	RunE: runFeatures,
}

func init() {
	featuresCmd.Flags().StringVarP(&featuresFlags.outDir, "out-dir", "o", "", "Directory holding the cleaned outputs")
	featuresCmd.Flags().StringVar(&featuresFlags.reviews, "reviews", "", "Cleaned reviews CSV (default: the configured reviews_csv)")
}

func runFeatures(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(featuresFlags.outDir)
	if err != nil {
		return err
	}
	in := featuresFlags.reviews
	if in == "" {
		in = cfg.Outputs.ReviewsCSV
	}
	reviews, err := export.ReadReviewsCSV(in)
	if err != nil {
		return fmt.Errorf("read cleaned reviews: %w", err)
	}
	raw, err := features.BuildReviewerFeatures(reviews)
	if err != nil {
		return err
	}
	scaled, err := features.Scale(raw)
	if err != nil {
		return err
	}
	if err := export.WriteCSV(cfg.Outputs.Features, raw); err != nil {
		return fmt.Errorf("write features: %w", err)
	}
	if err := export.WriteCSV(cfg.Outputs.ScaledFeatures, scaled); err != nil {
		return fmt.Errorf("write scaled features: %w", err)
	}
	getLogger().Info("built reviewer features",
		zap.String("reviews", in),
		zap.Int("review_rows", reviews.Len()),
		zap.Int("reviewers", raw.Len()),
		zap.String("features", cfg.Outputs.Features),
		zap.String("scaled", cfg.Outputs.ScaledFeatures))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Reviewers: %d\n", raw.Len())
	fmt.Fprintf(out, "Wrote %s\n", cfg.Outputs.Features)
	fmt.Fprintf(out, "Wrote %s\n", cfg.Outputs.ScaledFeatures)
	return nil
}
