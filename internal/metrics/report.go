package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"reviewprep/internal/export"
	"reviewprep/internal/table"
)

var nanValues = []string{"", "NA", "NaN", "<nil>", "nan"}

type Input struct {
	// Labeled carries the cluster column plus the diversity and frequency columns.
	Labeled dataframe.DataFrame
	// Reference is the table whose distinct coverage-column values are the
	// coverage denominator.
	Reference dataframe.DataFrame
	// Features is row-aligned with Labeled. Nil skips the silhouette score.
	Features *mat.Dense

	ClusterColumn   string
	CoverageColumn  string
	DiversityColumn string
	FrequencyColumn string
	Logger          *zap.Logger
}

type ClusterMetrics struct {
	ClusterID string
	Size      int
	Coverage  float64
	Diversity float64
	Frequency float64
}

type Report struct {
	RunID            string           `json:"run_id,omitempty"`
	Rows             int              `json:"rows"`
	CoverageColumn   string           `json:"coverage_column"`
	CoverageDistinct int              `json:"coverage_distinct"`
	Clusters         []ClusterMetrics `json:"clusters"`
	Silhouette       float64          `json:"-"`
}

// Compute builds the per-cluster metrics table and the silhouette score.
func Compute(in Input) (Report, error) {
	logger := in.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sizes, err := ClusterSizes(in.Labeled, in.ClusterColumn)
	if err != nil {
		return Report{}, fmt.Errorf("cluster sizes: %w", err)
	}
	distinct, err := Distinct(in.Reference, in.CoverageColumn)
	if err != nil {
		return Report{}, fmt.Errorf("coverage reference: %w", err)
	}
	coverage := Coverage(sizes, distinct)
	diversity, err := Diversity(in.Labeled, in.ClusterColumn, in.DiversityColumn)
	if err != nil {
		return Report{}, fmt.Errorf("diversity: %w", err)
	}
	frequency, err := Frequency(in.Labeled, in.ClusterColumn, in.FrequencyColumn)
	if err != nil {
		return Report{}, fmt.Errorf("frequency: %w", err)
	}

	rep := Report{
		Rows:             in.Labeled.Nrow(),
		CoverageColumn:   in.CoverageColumn,
		CoverageDistinct: distinct,
		Silhouette:       math.NaN(),
	}
	for _, c := range sizes {
		rep.Clusters = append(rep.Clusters, ClusterMetrics{
			ClusterID: c.ClusterID,
			Size:      c.Size,
			Coverage:  coverage[c.ClusterID],
			Diversity: diversity[c.ClusterID],
			Frequency: frequency[c.ClusterID],
		})
	}

	if in.Features != nil {
		labels, ok, err := Labels(in.Labeled, in.ClusterColumn)
		if err != nil {
			return Report{}, err
		}
		features, labels, err := labeledRows(in.Features, labels, ok)
		if err != nil {
			return Report{}, err
		}
		rep.Silhouette, err = Silhouette(features, labels)
		if err != nil {
			return Report{}, fmt.Errorf("silhouette: %w", err)
		}
	}
	logger.Info("computed cluster quality metrics",
		zap.Int("rows", rep.Rows),
		zap.Int("clusters", len(rep.Clusters)),
		zap.Int("coverage_distinct", distinct),
		zap.Float64("silhouette", rep.Silhouette))
	return rep, nil
}

// labeledRows keeps the feature rows whose cluster id is present.
func labeledRows(x *mat.Dense, labels []string, ok []bool) (*mat.Dense, []string, error) {
	n, c := x.Dims()
	if n != len(labels) {
		return nil, nil, fmt.Errorf("%w: %d feature rows, %d labeled rows", ErrRowMismatch, n, len(labels))
	}
	var keep []int
	for i := range labels {
		if ok[i] {
			keep = append(keep, i)
		}
	}
	if len(keep) == n {
		return x, labels, nil
	}
	if len(keep) == 0 {
		return nil, nil, fmt.Errorf("%w: no labeled rows", ErrLabelCount)
	}
	out := mat.NewDense(len(keep), c, nil)
	kept := make([]string, len(keep))
	for j, i := range keep {
		out.SetRow(j, x.RawRowView(i))
		kept[j] = labels[i]
	}
	return out, kept, nil
}

// Align reorders the rows of features to follow the id column of labeled.
// Every labeled id must have a feature row.
func Align(labeled, features dataframe.DataFrame, idCol string) (dataframe.DataFrame, error) {
	want, err := column(labeled, idCol)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("labeled: %w", err)
	}
	have, err := column(features, idCol)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("features: %w", err)
	}
	index := make(map[string]int, have.Len())
	for i, id := range have.Records() {
		if _, dup := index[id]; !dup {
			index[id] = i
		}
	}
	rows := make([]int, 0, want.Len())
	for _, id := range want.Records() {
		i, ok := index[id]
		if !ok {
			return dataframe.DataFrame{}, fmt.Errorf("%w: no features for %s %q", ErrRowMismatch, idCol, id)
		}
		rows = append(rows, i)
	}
	out := features.Subset(rows)
	if out.Err != nil {
		return dataframe.DataFrame{}, out.Err
	}
	return out, nil
}

// ReadFrame loads a CSV with gota. stringCols are kept as text so numeric
// cluster ids and identifiers are not reinterpreted.
func ReadFrame(path string, stringCols ...string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer f.Close()
	return DecodeFrame(f, stringCols...)
}

// DecodeFrame is ReadFrame over a reader.
func DecodeFrame(r io.Reader, stringCols ...string) (dataframe.DataFrame, error) {
	types := map[string]series.Type{}
	for _, c := range stringCols {
		if c != "" {
			types[c] = series.String
		}
	}
	df := dataframe.ReadCSV(r,
		dataframe.WithTypes(types),
		dataframe.NaNValues(nanValues),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read csv: %w", df.Err)
	}
	return df, nil
}

// FeatureMatrix copies the named numeric columns of df into a dense matrix.
// With no names, every numeric column not listed in exclude is used.
func FeatureMatrix(df dataframe.DataFrame, cols []string, exclude ...string) (*mat.Dense, []string, error) {
	if len(cols) == 0 {
		skip := map[string]struct{}{}
		for _, c := range exclude {
			skip[c] = struct{}{}
		}
		for _, n := range df.Names() {
			if _, ok := skip[n]; ok {
				continue
			}
			switch df.Col(n).Type() {
			case series.Float, series.Int:
				cols = append(cols, n)
			}
		}
	}
	if len(cols) == 0 {
		return nil, nil, fmt.Errorf("%w: no numeric feature columns", ErrMissingColumn)
	}
	rows := df.Nrow()
	m := mat.NewDense(rows, len(cols), nil)
	for j, c := range cols {
		s, err := column(df, c)
		if err != nil {
			return nil, nil, err
		}
		for i, v := range s.Float() {
			if math.IsNaN(v) {
				return nil, nil, fmt.Errorf("feature %q row %d: missing value", c, i)
			}
			m.Set(i, j, v)
		}
	}
	return m, cols, nil
}

// WriteCSV writes the metrics table with the Cluster_ID, Cluster_Size,
// Coverage, Diversity and Frequency columns. NaN cells are empty.
func (r Report) WriteCSV(path string) error {
	t := table.New([]string{"Cluster_ID", "Cluster_Size", "Coverage", "Diversity", "Frequency"}, nil)
	for _, c := range r.Clusters {
		t.Rows = append(t.Rows, table.Row{
			"Cluster_ID":   c.ClusterID,
			"Cluster_Size": c.Size,
			"Coverage":     c.Coverage,
			"Diversity":    c.Diversity,
			"Frequency":    c.Frequency,
		})
	}
	return export.WriteCSV(path, t)
}

// WriteJSON writes the report as an indented JSON document.
func (r Report) WriteJSON(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	content, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	content = append(content, '\n')
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// MarshalJSON writes NaN metrics as null.
func (c ClusterMetrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ClusterID string   `json:"cluster_id"`
		Size      int      `json:"cluster_size"`
		Coverage  *float64 `json:"coverage"`
		Diversity *float64 `json:"diversity"`
		Frequency *float64 `json:"frequency"`
	}{c.ClusterID, c.Size, nullable(c.Coverage), nullable(c.Diversity), nullable(c.Frequency)})
}

// MarshalJSON adds the silhouette score, null when it was not computed.
func (r Report) MarshalJSON() ([]byte, error) {
	type plain Report
	return json.Marshal(struct {
		plain
		Silhouette *float64 `json:"silhouette"`
	}{plain(r), nullable(r.Silhouette)})
}

// Summary renders the metrics table for terminal output.
func (r Report) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-12s %8s %10s %10s %10s\n", "Cluster_ID", "Size", "Coverage", "Diversity", "Frequency")
	for _, c := range r.Clusters {
		fmt.Fprintf(&sb, "%-12s %8d %10.4f %10.4f %10.4f\n", c.ClusterID, c.Size, c.Coverage, c.Diversity, c.Frequency)
	}
	if math.IsNaN(r.Silhouette) {
		sb.WriteString("Silhouette: n/a\n")
	} else {
		fmt.Fprintf(&sb, "Silhouette: %.4f\n", r.Silhouette)
	}
	return sb.String()
}

func nullable(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
