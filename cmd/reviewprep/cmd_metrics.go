package main

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"reviewprep/internal/config"
	"reviewprep/internal/metrics"
)

var metricsFlags struct {
	outDir       string
	labeled      string
	reference    string
	features     string
	noSilhouette bool
	cluster      string
	coverage     string
	diversity    string
	frequency    string
	idColumn     string
	featureCols  []string
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Score externally assigned clusters",
	Long: `Reads a CSV carrying a cluster label per row and reports per-cluster size,
coverage, diversity and frequency plus the silhouette score of the labels over
the scaled feature vectors.

Coverage divides each cluster size by the number of distinct values of the
coverage column in the reference table (the cleaned reviews by default).
Feature rows are matched to labeled rows through the id column.`,
	Args: cobra.NoArgs,
	RunE: runMetrics,
}

func init() {
	f := metricsCmd.Flags()
	f.StringVarP(&metricsFlags.outDir, "out-dir", "o", "", "Output directory")
	f.StringVar(&metricsFlags.labeled, "labeled", "", "CSV with the cluster column (required)")
	f.StringVar(&metricsFlags.reference, "reference", "", "Reference CSV for coverage (default: the cleaned reviews)")
	f.StringVar(&metricsFlags.features, "features", "", "Feature CSV for the silhouette score (default: the scaled features)")
	f.BoolVar(&metricsFlags.noSilhouette, "no-silhouette", false, "Skip the silhouette score")
	f.StringVar(&metricsFlags.cluster, "cluster-column", "", "Cluster id column")
	f.StringVar(&metricsFlags.coverage, "coverage-column", "", "Column whose distinct reference values are the coverage denominator")
	f.StringVar(&metricsFlags.diversity, "diversity-column", "", "Numeric column for diversity")
	f.StringVar(&metricsFlags.frequency, "frequency-column", "", "Numeric column for frequency")
	f.StringVar(&metricsFlags.idColumn, "id-column", "", "Column joining labeled rows to feature rows")
	f.StringSliceVar(&metricsFlags.featureCols, "feature-columns", nil, "Feature columns (default: every numeric column)")
	_ = metricsCmd.MarkFlagRequired("labeled")
}

func runMetrics(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(metricsFlags.outDir)
	if err != nil {
		return err
	}
	applyMetricsFlags(&cfg.Metrics)
	m := cfg.Metrics
	logger := getLogger()

	labeled, err := metrics.ReadFrame(metricsFlags.labeled, m.ClusterColumn, m.IDColumn)
	if err != nil {
		return fmt.Errorf("read labeled table: %w", err)
	}
	refPath := metricsFlags.reference
	if refPath == "" {
		refPath = cfg.Outputs.ReviewsCSV
	}
	reference, err := metrics.ReadFrame(refPath, m.CoverageColumn)
	if err != nil {
		return fmt.Errorf("read reference table: %w", err)
	}

	var x *mat.Dense
	if !metricsFlags.noSilhouette {
		featPath := metricsFlags.features
		if featPath == "" {
			featPath = cfg.Outputs.ScaledFeatures
		}
		x, err = loadFeatures(featPath, labeled, m)
		if err != nil {
			return err
		}
	}

	rep, err := metrics.Compute(metrics.Input{
		Labeled:         labeled,
		Reference:       reference,
		Features:        x,
		ClusterColumn:   m.ClusterColumn,
		CoverageColumn:  m.CoverageColumn,
		DiversityColumn: m.DiversityColumn,
		FrequencyColumn: m.FrequencyColumn,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	rep.RunID = uuid.NewString()

	if err := rep.WriteCSV(cfg.Outputs.MetricsCSV); err != nil {
		return fmt.Errorf("write metrics csv: %w", err)
	}
	if err := rep.WriteJSON(cfg.Outputs.MetricsJSON); err != nil {
		return fmt.Errorf("write metrics json: %w", err)
	}
	logger.Info("wrote cluster metrics",
		zap.String("csv", cfg.Outputs.MetricsCSV),
		zap.String("json", cfg.Outputs.MetricsJSON))

	out := cmd.OutOrStdout()
	fmt.Fprint(out, rep.Summary())
	fmt.Fprintf(out, "Wrote %s\n", cfg.Outputs.MetricsCSV)
	fmt.Fprintf(out, "Wrote %s\n", cfg.Outputs.MetricsJSON)
	return nil
}

func applyMetricsFlags(m *config.Metrics) {
	for _, o := range []struct {
		flag string
		dst  *string
	}{
		{metricsFlags.cluster, &m.ClusterColumn},
		{metricsFlags.coverage, &m.CoverageColumn},
		{metricsFlags.diversity, &m.DiversityColumn},
		{metricsFlags.frequency, &m.FrequencyColumn},
		{metricsFlags.idColumn, &m.IDColumn},
	} {
		if o.flag != "" {
			*o.dst = o.flag
		}
	}
	if len(metricsFlags.featureCols) > 0 {
		m.FeatureColumns = metricsFlags.featureCols
	}
}

// loadFeatures reads the feature CSV and lines its rows up with labeled. When
// labeled has no id column the files must already share row order.
func loadFeatures(path string, labeled dataframe.DataFrame, m config.Metrics) (*mat.Dense, error) {
	features, err := metrics.ReadFrame(path, m.IDColumn)
	if err != nil {
		return nil, fmt.Errorf("read features: %w", err)
	}
	if hasColumn(labeled, m.IDColumn) {
		features, err = metrics.Align(labeled, features, m.IDColumn)
		if err != nil {
			return nil, fmt.Errorf("align features: %w", err)
		}
	}
	x, cols, err := metrics.FeatureMatrix(features, m.FeatureColumns, m.IDColumn, m.ClusterColumn)
	if err != nil {
		return nil, fmt.Errorf("feature matrix: %w", err)
	}
	getLogger().Debug("loaded feature matrix", zap.String("path", path), zap.Strings("columns", cols), zap.Int("rows", features.Nrow()))
	return x, nil
}

func hasColumn(df dataframe.DataFrame, col string) bool {
	for _, n := range df.Names() {
		if n == col {
			return true
		}
	}
	return false
}
