package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reviewprep/internal/clean"
	"reviewprep/internal/config"
	"reviewprep/internal/export"
	"reviewprep/internal/jsonl"
	"reviewprep/internal/profile"
)

var cleanFlags struct {
	dataset  string
	reviews  string
	metadata string
	outDir   string
	limit    int
	parquet  string
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean and join a review dump with its product metadata",
	Long: `Loads <dataset>.json and meta_<dataset>.json, normalizes both tables, keeps
the reviews whose product has a title and a description, and writes the
cleaned reviews CSV, metadata JSON Lines, a SQLite database, an optional
Parquet file and a markdown profile.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	f := cleanCmd.Flags()
	f.StringVar(&cleanFlags.dataset, "dataset", "", "Dataset name, e.g. Digital_Music")
	f.StringVar(&cleanFlags.reviews, "reviews", "", "Reviews JSON Lines file (overrides --dataset)")
	f.StringVar(&cleanFlags.metadata, "metadata", "", "Metadata JSON Lines file (overrides --dataset)")
	f.StringVarP(&cleanFlags.outDir, "out-dir", "o", "", "Output directory")
	f.IntVar(&cleanFlags.limit, "limit", 0, "If > 0, read at most this many records per input")
	f.StringVar(&cleanFlags.parquet, "parquet", "", "Also write the cleaned reviews as Parquet to this path")
}

type cleanResult struct {
	RunID    string
	Reviews  jsonl.Stats
	Metadata jsonl.Stats
	Cleaning clean.Report
	Outputs  config.Outputs
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cleanFlags.outDir)
	if err != nil {
		return err
	}
	if cleanFlags.dataset != "" {
		cfg.Dataset = cleanFlags.dataset
	}
	if cleanFlags.reviews != "" {
		cfg.ReviewsPath = cleanFlags.reviews
	}
	if cleanFlags.metadata != "" {
		cfg.MetadataPath = cleanFlags.metadata
	}
	if cleanFlags.limit > 0 {
		cfg.Limit = cleanFlags.limit
	}
	if cleanFlags.parquet != "" {
		cfg.Outputs.Parquet = cleanFlags.parquet
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := cleanDataset(ctx, cfg, getLogger())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:      %s\n", res.RunID)
	fmt.Fprintf(out, "Reviews:  %d read, %d invalid, %d duplicates, %d unmatched, %d kept\n",
		res.Reviews.SourceRows, res.Reviews.InvalidRows, res.Cleaning.ReviewDuplicates, res.Cleaning.ReviewsUnmatched, res.Cleaning.ReviewRows)
	fmt.Fprintf(out, "Products: %d read, %d invalid, %d duplicates, %d incomplete, %d kept\n",
		res.Metadata.SourceRows, res.Metadata.InvalidRows, res.Cleaning.MetadataDuplicates, res.Cleaning.MetadataIncomplete, res.Cleaning.MetadataRows)
	fmt.Fprintf(out, "Wrote %s\n", res.Outputs.ReviewsCSV)
	fmt.Fprintf(out, "Wrote %s\n", res.Outputs.MetadataJSONL)
	fmt.Fprintf(out, "Wrote %s\n", res.Outputs.SQLite)
	if res.Outputs.Parquet != "" {
		fmt.Fprintf(out, "Wrote %s\n", res.Outputs.Parquet)
	}
	fmt.Fprintf(out, "Wrote %s\n", res.Outputs.Profile)
	return nil
}

func cleanDataset(ctx context.Context, cfg config.Config, logger *zap.Logger) (cleanResult, error) {
	reviewsPath, metadataPath, err := cfg.InputPaths()
	if err != nil {
		return cleanResult{}, err
	}
	res := cleanResult{RunID: uuid.NewString(), Outputs: cfg.Outputs}
	started := time.Now().UTC()
	logger = logger.With(zap.String("run_id", res.RunID))

	reviews, reviewStats, err := jsonl.Load(reviewsPath, jsonl.LoadOptions{Limit: cfg.Limit, Logger: logger})
	if err != nil {
		return cleanResult{}, fmt.Errorf("load reviews: %w", err)
	}
	metadata, metadataStats, err := jsonl.Load(metadataPath, jsonl.LoadOptions{Limit: cfg.Limit, Logger: logger})
	if err != nil {
		return cleanResult{}, fmt.Errorf("load metadata: %w", err)
	}
	res.Reviews, res.Metadata = reviewStats, metadataStats

	res.Cleaning = clean.Process(reviews, metadata, clean.Options{
		ReviewDropColumns:   cfg.ReviewDropColumns,
		MetadataDropColumns: cfg.MetadataDropColumns,
		ReviewDedupeKeys:    cfg.ReviewDedupeKeys,
		MetadataRequired:    cfg.MetadataRequired,
		Logger:              logger,
	})

	if err := export.WriteCSV(cfg.Outputs.ReviewsCSV, reviews); err != nil {
		return cleanResult{}, fmt.Errorf("write reviews csv: %w", err)
	}
	logger.Info("wrote output", zap.String("path", cfg.Outputs.ReviewsCSV), zap.Int("rows", reviews.Len()))
	if err := export.WriteMetadataJSONL(cfg.Outputs.MetadataJSONL, metadata); err != nil {
		return cleanResult{}, fmt.Errorf("write metadata jsonl: %w", err)
	}
	logger.Info("wrote output", zap.String("path", cfg.Outputs.MetadataJSONL), zap.Int("rows", metadata.Len()))

	run := export.Run{
		ID:           res.RunID,
		StartedAt:    started,
		Dataset:      datasetName(cfg, reviewsPath),
		ReviewRows:   reviews.Len(),
		MetadataRows: metadata.Len(),
	}
	err = export.WriteSQLite(ctx, cfg.Outputs.SQLite, run,
		export.NamedTable{Name: "reviews_cleaned", Table: reviews, Indexes: []string{clean.JoinKey, "reviewerID"}},
		export.NamedTable{Name: "metadata_cleaned", Table: metadata, Indexes: []string{clean.JoinKey}},
	)
	if err != nil {
		return cleanResult{}, fmt.Errorf("write sqlite: %w", err)
	}
	logger.Info("wrote output", zap.String("path", cfg.Outputs.SQLite))

	if cfg.Outputs.Parquet != "" {
		if err := export.WriteReviewsParquet(cfg.Outputs.Parquet, reviews); err != nil {
			return cleanResult{}, fmt.Errorf("write parquet: %w", err)
		}
		logger.Info("wrote output", zap.String("path", cfg.Outputs.Parquet), zap.Int("rows", reviews.Len()))
	}

	report := profile.Build(profile.Input{
		RunID:         res.RunID,
		Dataset:       run.Dataset,
		GeneratedAt:   started,
		Reviews:       reviews,
		Metadata:      metadata,
		ReviewStats:   reviewStats,
		MetadataStats: metadataStats,
		Cleaning:      res.Cleaning,
	})
	if err := writeText(cfg.Outputs.Profile, report); err != nil {
		return cleanResult{}, fmt.Errorf("write profile: %w", err)
	}
	logger.Info("wrote output", zap.String("path", cfg.Outputs.Profile))
	return res, nil
}

func datasetName(cfg config.Config, reviewsPath string) string {
	if cfg.Dataset != "" {
		return cfg.Dataset
	}
	return strings.TrimSuffix(filepath.Base(reviewsPath), filepath.Ext(reviewsPath))
}

func writeText(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
