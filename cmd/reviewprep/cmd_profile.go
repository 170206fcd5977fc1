package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reviewprep/internal/export"
	"reviewprep/internal/profile"
)

var profileFlags struct {
	outDir string
	output string
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Re-profile the cleaned reviews and metadata outputs",
	Args:  cobra.NoArgs,
	RunE:  runProfile,
}

func init() {
	profileCmd.Flags().StringVarP(&profileFlags.outDir, "out-dir", "o", "", "Directory holding the cleaned outputs")
	profileCmd.Flags().StringVar(&profileFlags.output, "output", "", "Markdown file to write (default: the configured profile path)")
}

func runProfile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(profileFlags.outDir)
	if err != nil {
		return err
	}
	reviews, err := export.ReadReviewsCSV(cfg.Outputs.ReviewsCSV)
	if err != nil {
		return fmt.Errorf("read cleaned reviews: %w", err)
	}
	metadata, err := export.ReadMetadataJSONL(cfg.Outputs.MetadataJSONL)
	if err != nil {
		return fmt.Errorf("read cleaned metadata: %w", err)
	}

	out := profileFlags.output
	if out == "" {
		out = cfg.Outputs.Profile
	}
	report := profile.Build(profile.Input{
		RunID:       uuid.NewString(),
		Dataset:     cfg.Dataset,
		GeneratedAt: time.Now().UTC(),
		Reviews:     reviews,
		Metadata:    metadata,
	})
	if err := writeText(out, report); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	getLogger().Info("wrote profile",
		zap.String("path", out),
		zap.Int("reviews", reviews.Len()),
		zap.Int("metadata", metadata.Len()))
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
	return nil
}
