package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewprep/internal/table"
)

func reviews() *table.Table {
	return table.New([]string{"reviewerID", "asin", "overall", "vote", "verified"}, []table.Row{
		{"reviewerID": "B", "asin": "p1", "overall": 5.0, "vote": float32(2), "verified": true},
		{"reviewerID": "A", "asin": "p1", "overall": 3.0, "vote": nil, "verified": false},
		{"reviewerID": "B", "asin": "p1", "overall": 4.0, "vote": float32(4), "verified": false},
		{"reviewerID": "B", "asin": "p2", "overall": 3.0, "vote": nil, "verified": nil},
		{"reviewerID": nil, "asin": "p3", "overall": 1.0},
	})
}

func TestBuildReviewerFeatures(t *testing.T) {
	out, err := BuildReviewerFeatures(reviews())
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, []string{"reviewerID", "review_count", "mean_overall", "mean_vote", "verified_ratio", "distinct_products"}, out.Columns)

	b := out.Rows[0]
	assert.Equal(t, "B", b["reviewerID"])
	assert.Equal(t, 3.0, b["review_count"])
	assert.InDelta(t, 4.0, b["mean_overall"], 1e-12)
	assert.InDelta(t, 3.0, b["mean_vote"], 1e-12)
	assert.InDelta(t, 0.5, b["verified_ratio"], 1e-12)
	assert.Equal(t, 2.0, b["distinct_products"])

	a := out.Rows[1]
	assert.Equal(t, "A", a["reviewerID"])
	assert.Equal(t, 0.0, a["mean_vote"])
	assert.Equal(t, 0.0, a["verified_ratio"])
}

func TestBuildReviewerFeaturesNeedsID(t *testing.T) {
	_, err := BuildReviewerFeatures(table.New([]string{"asin"}, nil))
	require.Error(t, err)
}

func TestScale(t *testing.T) {
	in := table.New([]string{"reviewerID", "x", "flat"}, []table.Row{
		{"reviewerID": "a", "x": 1.0, "flat": 2.0},
		{"reviewerID": "b", "x": 3.0, "flat": 2.0},
		{"reviewerID": "c", "x": nil, "flat": 2.0},
	})
	out, err := Scale(in, "x", "flat")
	require.NoError(t, err)

	assert.Equal(t, "a", out.Rows[0]["reviewerID"])
	assert.InDelta(t, -1.0, out.Rows[0]["x"], 1e-12)
	assert.InDelta(t, 1.0, out.Rows[1]["x"], 1e-12)
	assert.Nil(t, out.Rows[2]["x"])
	assert.Equal(t, 0.0, out.Rows[0]["flat"])

	// input untouched
	assert.Equal(t, 1.0, in.Rows[0]["x"])

	_, err = Scale(in, "missing")
	require.Error(t, err)
}

func TestScaleDefaultColumns(t *testing.T) {
	raw, err := BuildReviewerFeatures(reviews())
	require.NoError(t, err)
	scaled, err := Scale(raw)
	require.NoError(t, err)
	for _, c := range Columns {
		var sum float64
		for _, r := range scaled.Rows {
			f, ok := table.Float(r[c])
			require.True(t, ok, c)
			require.False(t, math.IsNaN(f), c)
			sum += f
		}
		assert.InDelta(t, 0, sum, 1e-9, c)
	}
}
