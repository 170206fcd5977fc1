// Package metrics scores externally produced cluster assignments: per-cluster
// size, coverage, diversity and frequency, plus the overall silhouette score.
//
// Every per-cluster metric is keyed by a cluster id column that must already
// exist in the labeled table. Rows whose cluster id is missing belong to no
// cluster.
package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrMissingColumn = errors.New("column not found")
	ErrRowMismatch   = errors.New("feature rows do not match labeled rows")
	ErrLabelCount    = errors.New("number of distinct labels must be between 2 and n_samples-1")
	ErrMissingLabel  = errors.New("missing cluster label")
)

type ClusterCount struct {
	ClusterID string
	Size      int
}

// Labels returns the cluster id of every row; missing ids are "" with ok false.
func Labels(df dataframe.DataFrame, clusterCol string) ([]string, []bool, error) {
	s, err := column(df, clusterCol)
	if err != nil {
		return nil, nil, err
	}
	recs := s.Records()
	nan := s.IsNaN()
	ok := make([]bool, len(recs))
	for i := range recs {
		if nan[i] || recs[i] == "" {
			recs[i] = ""
			continue
		}
		ok[i] = true
	}
	return recs, ok, nil
}

// ClusterSizes counts rows per cluster, largest first. Ties are ordered by
// cluster id.
func ClusterSizes(df dataframe.DataFrame, clusterCol string) ([]ClusterCount, error) {
	labels, ok, err := Labels(df, clusterCol)
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for i, l := range labels {
		if ok[i] {
			counts[l]++
		}
	}
	out := make([]ClusterCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, ClusterCount{ClusterID: id, Size: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size != out[j].Size {
			return out[i].Size > out[j].Size
		}
		return lessLabel(out[i].ClusterID, out[j].ClusterID)
	})
	return out, nil
}

// Coverage divides each cluster size by distinct, the number of distinct values
// of the coverage column in the reference table.
func Coverage(sizes []ClusterCount, distinct int) map[string]float64 {
	out := make(map[string]float64, len(sizes))
	for _, c := range sizes {
		if distinct == 0 {
			out[c.ClusterID] = math.NaN()
			continue
		}
		out[c.ClusterID] = float64(c.Size) / float64(distinct)
	}
	return out
}

// Distinct counts the distinct non-missing values of col.
func Distinct(df dataframe.DataFrame, col string) (int, error) {
	s, err := column(df, col)
	if err != nil {
		return 0, err
	}
	recs := s.Records()
	nan := s.IsNaN()
	seen := map[string]struct{}{}
	for i, r := range recs {
		if nan[i] || r == "" {
			continue
		}
		seen[r] = struct{}{}
	}
	return len(seen), nil
}

// Diversity is the per-cluster sample standard deviation of col. Clusters with
// fewer than two values get NaN.
func Diversity(df dataframe.DataFrame, clusterCol, col string) (map[string]float64, error) {
	return aggregate(df, clusterCol, col, func(xs []float64) float64 {
		if len(xs) < 2 {
			return math.NaN()
		}
		return stat.StdDev(xs, nil)
	})
}

// Frequency is the per-cluster mean of col. Clusters without values get NaN.
func Frequency(df dataframe.DataFrame, clusterCol, col string) (map[string]float64, error) {
	return aggregate(df, clusterCol, col, func(xs []float64) float64 {
		if len(xs) == 0 {
			return math.NaN()
		}
		return stat.Mean(xs, nil)
	})
}

func aggregate(df dataframe.DataFrame, clusterCol, col string, fn func([]float64) float64) (map[string]float64, error) {
	labels, ok, err := Labels(df, clusterCol)
	if err != nil {
		return nil, err
	}
	s, err := column(df, col)
	if err != nil {
		return nil, err
	}
	vals := s.Float()
	groups := map[string][]float64{}
	for i, l := range labels {
		if !ok[i] {
			continue
		}
		if _, seen := groups[l]; !seen {
			groups[l] = nil
		}
		if !math.IsNaN(vals[i]) {
			groups[l] = append(groups[l], vals[i])
		}
	}
	out := make(map[string]float64, len(groups))
	for l, xs := range groups {
		out[l] = fn(xs)
	}
	return out, nil
}

func column(df dataframe.DataFrame, col string) (series.Series, error) {
	if col == "" {
		return series.Series{}, fmt.Errorf("%w: empty column name", ErrMissingColumn)
	}
	for _, n := range df.Names() {
		if n == col {
			s := df.Col(col)
			if s.Err != nil {
				return series.Series{}, s.Err
			}
			return s, nil
		}
	}
	return series.Series{}, fmt.Errorf("%w: %q", ErrMissingColumn, col)
}

// lessLabel orders numeric labels numerically and everything else lexically.
func lessLabel(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	switch {
	case errA == nil && errB == nil:
		if fa != fb {
			return fa < fb
		}
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}
