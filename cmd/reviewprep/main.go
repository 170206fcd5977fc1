package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reviewprep/internal/config"
	"reviewprep/internal/logging"
)

var (
	configPath string
	verbose    bool
	logFormat  string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "reviewprep",
	Short: "Clean e-commerce review dumps and score cluster assignments",
	Long: `reviewprep turns raw review and product-metadata JSON Lines dumps into
join-ready cleaned tables, and computes quality metrics for cluster labels
produced elsewhere.

  reviewprep clean --dataset Digital_Music
  reviewprep features
  reviewprep metrics --labeled clusters.csv`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose, logFormat)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML pipeline config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "Log encoding: json or console")

	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(compareCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads --config and applies the output directory override, if any.
func loadConfig(outDir string) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if outDir != "" {
		cfg.OutDir = outDir
		cfg.Outputs = config.Outputs{Parquet: cfg.Outputs.Parquet}
		cfg.ResolveOutputs()
	}
	return cfg, nil
}

func getLogger() *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
