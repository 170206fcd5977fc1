// Package config loads the YAML pipeline configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	defaultDataDir        = "data"
	defaultOutDir         = "data_cleaned"
	defaultClusterColumn  = "cluster"
	defaultCoverageColumn = "reviewerID"
	defaultDiversity      = "mean_overall"
	defaultFrequency      = "review_count"
)

type Config struct {
	DataDir      string `yaml:"data_dir"`
	OutDir       string `yaml:"out_dir"`
	Dataset      string `yaml:"dataset"`
	ReviewsPath  string `yaml:"reviews_path"`
	MetadataPath string `yaml:"metadata_path"`
	Limit        int    `yaml:"limit"`

	ReviewDropColumns   []string `yaml:"review_drop_columns"`
	MetadataDropColumns []string `yaml:"metadata_drop_columns"`
	ReviewDedupeKeys    []string `yaml:"review_dedupe_keys"`
	MetadataRequired    []string `yaml:"metadata_required"`

	Outputs Outputs `yaml:"outputs"`
	Metrics Metrics `yaml:"metrics"`
}

type Outputs struct {
	ReviewsCSV    string `yaml:"reviews_csv"`
	MetadataJSONL string `yaml:"metadata_jsonl"`
	SQLite        string `yaml:"sqlite"`
	Parquet       string `yaml:"parquet"`
	Profile       string `yaml:"profile"`

	Features       string `yaml:"features"`
	ScaledFeatures string `yaml:"scaled_features"`
	MetricsCSV     string `yaml:"metrics_csv"`
	MetricsJSON    string `yaml:"metrics_json"`
}

type Metrics struct {
	ClusterColumn   string   `yaml:"cluster_column"`
	CoverageColumn  string   `yaml:"coverage_column"`
	DiversityColumn string   `yaml:"diversity_column"`
	FrequencyColumn string   `yaml:"frequency_column"`
	IDColumn        string   `yaml:"id_column"`
	FeatureColumns  []string `yaml:"feature_columns"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	cfg.applyDefaults(".")
	return cfg
}

// Load reads a YAML config file, fills defaults relative to its directory and
// validates it. An empty path yields Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config yaml: %w", err)
	}
	cfg.applyDefaults(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults(configDir string) {
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir
	}
	if cfg.OutDir == "" {
		cfg.OutDir = defaultOutDir
	}
	cfg.DataDir = resolve(configDir, cfg.DataDir)
	cfg.OutDir = resolve(configDir, cfg.OutDir)
	if cfg.ReviewsPath != "" {
		cfg.ReviewsPath = resolve(configDir, cfg.ReviewsPath)
	}
	if cfg.MetadataPath != "" {
		cfg.MetadataPath = resolve(configDir, cfg.MetadataPath)
	}
	for _, p := range []*string{&cfg.Outputs.ReviewsCSV, &cfg.Outputs.MetadataJSONL, &cfg.Outputs.SQLite, &cfg.Outputs.Parquet, &cfg.Outputs.Profile,
		&cfg.Outputs.Features, &cfg.Outputs.ScaledFeatures, &cfg.Outputs.MetricsCSV, &cfg.Outputs.MetricsJSON} {
		*p = resolve(configDir, *p)
	}
	cfg.ResolveOutputs()

	if cfg.Metrics.ClusterColumn == "" {
		cfg.Metrics.ClusterColumn = defaultClusterColumn
	}
	if cfg.Metrics.CoverageColumn == "" {
		cfg.Metrics.CoverageColumn = defaultCoverageColumn
	}
	if cfg.Metrics.IDColumn == "" {
		cfg.Metrics.IDColumn = defaultCoverageColumn
	}
	if cfg.Metrics.DiversityColumn == "" {
		cfg.Metrics.DiversityColumn = defaultDiversity
	}
	if cfg.Metrics.FrequencyColumn == "" {
		cfg.Metrics.FrequencyColumn = defaultFrequency
	}
}

// ResolveOutputs fills unset output paths under OutDir. Call it again after
// changing OutDir.
func (cfg *Config) ResolveOutputs() {
	o := &cfg.Outputs
	if o.ReviewsCSV == "" {
		o.ReviewsCSV = filepath.Join(cfg.OutDir, "reviews_cleaned.csv")
	}
	if o.MetadataJSONL == "" {
		o.MetadataJSONL = filepath.Join(cfg.OutDir, "metadata_cleaned.json")
	}
	if o.SQLite == "" {
		o.SQLite = filepath.Join(cfg.OutDir, "cleaned.sqlite")
	}
	if o.Profile == "" {
		o.Profile = filepath.Join(cfg.OutDir, "profile.md")
	}
	if o.Features == "" {
		o.Features = filepath.Join(cfg.OutDir, "reviewer_features.csv")
	}
	if o.ScaledFeatures == "" {
		o.ScaledFeatures = filepath.Join(cfg.OutDir, "reviewer_features_scaled.csv")
	}
	if o.MetricsCSV == "" {
		o.MetricsCSV = filepath.Join(cfg.OutDir, "cluster_metrics.csv")
	}
	if o.MetricsJSON == "" {
		o.MetricsJSON = filepath.Join(cfg.OutDir, "cluster_metrics.json")
	}
}

// InputPaths returns the review and metadata files to load. Explicit paths win;
// otherwise both are derived from Dataset inside DataDir.
func (cfg Config) InputPaths() (reviews, metadata string, err error) {
	reviews, metadata = cfg.ReviewsPath, cfg.MetadataPath
	if reviews == "" || metadata == "" {
		if cfg.Dataset == "" {
			return "", "", fmt.Errorf("dataset or both reviews_path and metadata_path are required")
		}
		if reviews == "" {
			reviews = filepath.Join(cfg.DataDir, cfg.Dataset+".json")
		}
		if metadata == "" {
			metadata = filepath.Join(cfg.DataDir, "meta_"+cfg.Dataset+".json")
		}
	}
	return reviews, metadata, nil
}

func (cfg Config) Validate() error {
	if cfg.Limit < 0 {
		return fmt.Errorf("limit must be >= 0, got %d", cfg.Limit)
	}
	if cfg.Metrics.ClusterColumn == cfg.Metrics.DiversityColumn && cfg.Metrics.DiversityColumn != "" {
		return fmt.Errorf("metrics.diversity_column must differ from the cluster column")
	}
	if cfg.Metrics.ClusterColumn == cfg.Metrics.FrequencyColumn && cfg.Metrics.FrequencyColumn != "" {
		return fmt.Errorf("metrics.frequency_column must differ from the cluster column")
	}
	return nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
