package metrics

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Silhouette returns the mean silhouette coefficient of labels over the rows of
// x using euclidean distance. Row i of x must describe the same sample as
// labels[i]. Samples alone in their cluster score 0.
func Silhouette(x mat.Matrix, labels []string) (float64, error) {
	n, _ := x.Dims()
	if n != len(labels) {
		return 0, fmt.Errorf("%w: %d feature rows, %d labels", ErrRowMismatch, n, len(labels))
	}
	index := map[string]int{}
	assign := make([]int, n)
	for i, l := range labels {
		if l == "" {
			return 0, fmt.Errorf("%w: row %d", ErrMissingLabel, i)
		}
		id, ok := index[l]
		if !ok {
			id = len(index)
			index[l] = id
		}
		assign[i] = id
	}
	k := len(index)
	if k < 2 || k > n-1 {
		return 0, fmt.Errorf("%w: got %d labels for %d samples", ErrLabelCount, k, n)
	}

	rows := denseRows(x)
	sizes := make([]int, k)
	for _, c := range assign {
		sizes[c]++
	}

	total := 0.0
	sums := make([]float64, k)
	for i := 0; i < n; i++ {
		for c := range sums {
			sums[c] = 0
		}
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			sums[assign[j]] += floats.Distance(rows[i], rows[j], 2)
		}
		own := assign[i]
		if sizes[own] == 1 {
			continue
		}
		a := sums[own] / float64(sizes[own]-1)
		b := -1.0
		for c := 0; c < k; c++ {
			if c == own {
				continue
			}
			if m := sums[c] / float64(sizes[c]); b < 0 || m < b {
				b = m
			}
		}
		if d := max(a, b); d > 0 {
			total += (b - a) / d
		}
	}
	return total / float64(n), nil
}

func denseRows(x mat.Matrix) [][]float64 {
	r, c := x.Dims()
	out := make([][]float64, r)
	if d, ok := x.(*mat.Dense); ok {
		for i := range out {
			out[i] = d.RawRowView(i)
		}
		return out
	}
	for i := range out {
		row := make([]float64, c)
		for j := range row {
			row[j] = x.At(i, j)
		}
		out[i] = row
	}
	return out
}
