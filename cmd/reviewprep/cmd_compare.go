package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reviewprep/internal/clean"
	"reviewprep/internal/compare"
)

var compareFlags struct {
	reference string
	candidate string
	keys      []string
	output    string
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Score a cleaned CSV against a reference export",
	Long: `Aligns the rows of --candidate with --reference on the key columns and
scores every reference column. Numbers and booleans compare by value, so 5 and
5.0 or True and true count as equal. Exits non-zero only on read errors.`,
	Args: cobra.NoArgs,
	RunE: runCompare,
}

func init() {
	f := compareCmd.Flags()
	f.StringVar(&compareFlags.reference, "reference", "", "Reference CSV (required)")
	f.StringVar(&compareFlags.candidate, "candidate", "", "Candidate CSV (default: the configured reviews_csv)")
	f.StringSliceVar(&compareFlags.keys, "key", clean.DefaultReviewDedupeKeys, "Key columns used to align rows")
	f.StringVar(&compareFlags.output, "output", "", "Write the JSON report to this path")
	_ = compareCmd.MarkFlagRequired("reference")
}

func runCompare(cmd *cobra.Command, args []string) error {
	candidate := compareFlags.candidate
	if candidate == "" {
		cfg, err := loadConfig("")
		if err != nil {
			return err
		}
		candidate = cfg.Outputs.ReviewsCSV
	}
	rep, err := compare.Files(compareFlags.reference, candidate, compareFlags.keys)
	if err != nil {
		return err
	}
	getLogger().Info("compared exports",
		zap.String("reference", compareFlags.reference),
		zap.String("candidate", candidate),
		zap.String("status", rep.Status),
		zap.Float64("dataset_similarity", rep.DatasetSimilarity),
		zap.Int("matched_rows", rep.Alignment.MatchedRows))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Status:     %s\n", rep.Status)
	fmt.Fprintf(out, "Rows:       %d matched, %d reference, %d candidate\n",
		rep.Alignment.MatchedRows, rep.Alignment.ReferenceRows, rep.Alignment.CandidateRows)
	fmt.Fprintf(out, "Similarity: %.6f (with coverage %.6f)\n", rep.DatasetSimilarity, rep.OverallScore)
	for _, c := range rep.Columns {
		if !c.Present {
			fmt.Fprintf(out, "  %-16s missing\n", c.Column)
			continue
		}
		if c.ExactRate < 1 {
			fmt.Fprintf(out, "  %-16s exact=%.4f similarity=%.4f\n", c.Column, c.ExactRate, c.Similarity)
		}
	}
	if compareFlags.output != "" {
		if err := rep.WriteJSON(compareFlags.output); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(out, "Wrote %s\n", compareFlags.output)
	}
	return nil
}
