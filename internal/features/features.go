// Package features derives per-reviewer numeric features from the cleaned
// reviews. The scaled output is the input handed to external clustering.
package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"reviewprep/internal/table"
)

const IDColumn = "reviewerID"

// Columns lists the numeric feature columns in output order.
var Columns = []string{"review_count", "mean_overall", "mean_vote", "verified_ratio", "distinct_products"}

type reviewer struct {
	id       string
	reviews  int
	overall  []float64
	votes    []float64
	verified int
	flagged  int
	products map[string]struct{}
}

// BuildReviewerFeatures returns one row per reviewer in first-seen order.
// Rows without a reviewer id are skipped. Means and ratios over no values
// are 0 so every feature row is complete.
func BuildReviewerFeatures(reviews *table.Table) (*table.Table, error) {
	if !reviews.HasColumn(IDColumn) {
		return nil, fmt.Errorf("reviews table has no %s column", IDColumn)
	}
	var order []*reviewer
	byID := map[string]*reviewer{}
	for _, r := range reviews.Rows {
		id, ok := table.String(r[IDColumn])
		if !ok {
			continue
		}
		rv := byID[id]
		if rv == nil {
			rv = &reviewer{id: id, products: map[string]struct{}{}}
			byID[id] = rv
			order = append(order, rv)
		}
		rv.reviews++
		if f, ok := table.Float(r["overall"]); ok {
			rv.overall = append(rv.overall, f)
		}
		if f, ok := table.Float(r["vote"]); ok {
			rv.votes = append(rv.votes, f)
		}
		if b, ok := r["verified"].(bool); ok {
			rv.flagged++
			if b {
				rv.verified++
			}
		}
		if asin, ok := table.String(r["asin"]); ok {
			rv.products[asin] = struct{}{}
		}
	}

	out := table.New(append([]string{IDColumn}, Columns...), nil)
	for _, rv := range order {
		out.Rows = append(out.Rows, table.Row{
			IDColumn:            rv.id,
			"review_count":      float64(rv.reviews),
			"mean_overall":      meanOr(rv.overall, 0),
			"mean_vote":         meanOr(rv.votes, 0),
			"verified_ratio":    ratio(rv.verified, rv.flagged),
			"distinct_products": float64(len(rv.products)),
		})
	}
	return out, nil
}

// Scale returns a copy of t with cols z-score standardized using the
// population standard deviation. Missing cells stay missing and do not count
// toward the moments. A column with zero spread scales to 0.
func Scale(t *table.Table, cols ...string) (*table.Table, error) {
	if len(cols) == 0 {
		cols = Columns
	}
	out := table.New(append([]string(nil), t.Columns...), make([]table.Row, len(t.Rows)))
	for i, r := range t.Rows {
		row := make(table.Row, len(r))
		for k, v := range r {
			row[k] = v
		}
		out.Rows[i] = row
	}
	for _, c := range cols {
		if !t.HasColumn(c) {
			return nil, fmt.Errorf("scale: column %q not found", c)
		}
		var xs []float64
		for _, r := range t.Rows {
			if f, ok := table.Float(r[c]); ok {
				xs = append(xs, f)
			}
		}
		mean, std := stat.PopMeanStdDev(xs, nil)
		for _, r := range out.Rows {
			f, ok := table.Float(r[c])
			if !ok {
				r[c] = nil
				continue
			}
			if std == 0 || math.IsNaN(std) {
				r[c] = 0.0
				continue
			}
			r[c] = (f - mean) / std
		}
	}
	return out, nil
}

func meanOr(xs []float64, empty float64) float64 {
	if len(xs) == 0 {
		return empty
	}
	return stat.Mean(xs, nil)
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
