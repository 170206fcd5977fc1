package table

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *Table {
	return New([]string{"id", "summary", "score"}, []Row{
		{"id": "a", "summary": "great", "score": 5.0},
		{"id": "a", "summary": "great", "score": 4.0},
		{"id": "a", "summary": nil, "score": 3.0},
		{"id": "a", "summary": nil, "score": 2.0},
		{"id": "b", "summary": "great", "score": math.NaN()},
	})
}

func TestDropDuplicatesKeepsFirstAndTreatsMissingAsEqual(t *testing.T) {
	tbl := sampleTable()
	dropped := tbl.DropDuplicates("id", "summary")

	require.Equal(t, 2, dropped)
	require.Len(t, tbl.Rows, 3)
	assert.Equal(t, 5.0, tbl.Rows[0]["score"])
	assert.Equal(t, 3.0, tbl.Rows[1]["score"])
	assert.Equal(t, "b", tbl.Rows[2]["id"])
}

func TestDropDuplicatesDistinguishesTypes(t *testing.T) {
	tbl := New([]string{"k"}, []Row{{"k": "1"}, {"k": 1.0}})
	assert.Equal(t, 0, tbl.DropDuplicates("k"))
}

func TestDropMissingTreatsNaNAsMissing(t *testing.T) {
	tbl := sampleTable()
	dropped := tbl.DropMissing("summary", "score")

	assert.Equal(t, 3, dropped)
	assert.Len(t, tbl.Rows, 2)
}

func TestDropColumnsIgnoresUnknown(t *testing.T) {
	tbl := sampleTable()
	tbl.DropColumns("score", "nope")

	assert.Equal(t, []string{"id", "summary"}, tbl.Columns)
	_, ok := tbl.Rows[0]["score"]
	assert.False(t, ok)
}

func TestApplyAddsColumn(t *testing.T) {
	tbl := sampleTable()
	tbl.Apply("flag", func(v any) any { return v == nil })

	assert.True(t, tbl.HasColumn("flag"))
	assert.Equal(t, true, tbl.Rows[0]["flag"])
}

func TestMapValuesVisitsAbsentCells(t *testing.T) {
	tbl := New([]string{"a", "b"}, []Row{{"a": "x"}})
	seen := 0
	tbl.MapValues(func(v any) any {
		seen++
		return v
	})
	assert.Equal(t, 2, seen)
}

func TestDistinctSkipsMissing(t *testing.T) {
	tbl := sampleTable()
	assert.Equal(t, 1, tbl.Distinct("summary"))
	assert.Equal(t, 2, tbl.Distinct("id"))
	assert.Equal(t, 4, tbl.Distinct("score"))
}

func TestFloat(t *testing.T) {
	f, ok := Float(float32(1.5))
	assert.True(t, ok)
	assert.Equal(t, 1.5, f)

	_, ok = Float(math.NaN())
	assert.False(t, ok)

	_, ok = Float("1.5")
	assert.False(t, ok)
}
