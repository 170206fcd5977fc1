package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "reviewprep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaultsRelativeToConfig(t *testing.T) {
	path := writeConfig(t, `
dataset: Digital_Music
outputs:
  parquet: out/reviews.parquet
metrics:
  diversity_column: mean_overall
  frequency_column: review_count
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, "data_cleaned", "reviews_cleaned.csv"), cfg.Outputs.ReviewsCSV)
	assert.Equal(t, filepath.Join(dir, "data_cleaned", "metadata_cleaned.json"), cfg.Outputs.MetadataJSONL)
	assert.Equal(t, filepath.Join(dir, "out", "reviews.parquet"), cfg.Outputs.Parquet)
	assert.Equal(t, "cluster", cfg.Metrics.ClusterColumn)
	assert.Equal(t, "reviewerID", cfg.Metrics.CoverageColumn)

	reviews, meta, err := cfg.InputPaths()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data", "Digital_Music.json"), reviews)
	assert.Equal(t, filepath.Join(dir, "data", "meta_Digital_Music.json"), meta)
}

func TestLoadExplicitPathsWin(t *testing.T) {
	path := writeConfig(t, `
reviews_path: /abs/All_Beauty_tiny.json
metadata_path: raw/meta_All_Beauty_tiny.json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	reviews, meta, err := cfg.InputPaths()
	require.NoError(t, err)
	assert.Equal(t, "/abs/All_Beauty_tiny.json", reviews)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "raw", "meta_All_Beauty_tiny.json"), meta)
}

func TestInputPathsNeedDataset(t *testing.T) {
	_, _, err := Default().InputPaths()
	require.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "limit: -1\n"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "metrics:\n  diversity_column: cluster\n"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "dataset: [unterminated\n"))
	require.Error(t, err)
}

func TestLoadEmptyPathIsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, filepath.Join("data_cleaned", "cleaned.sqlite"), cfg.Outputs.SQLite)
	assert.Equal(t, "mean_overall", cfg.Metrics.DiversityColumn)
	assert.Equal(t, "review_count", cfg.Metrics.FrequencyColumn)
}
