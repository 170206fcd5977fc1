package export

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewprep/internal/table"
)

func cleanedReviews() *table.Table {
	day := time.Date(2014, 7, 26, 0, 0, 0, 0, time.UTC)
	return table.New(
		[]string{"overall", "verified", "reviewerID", "asin", "reviewText", "summary", "unixReviewTime", "vote"},
		[]table.Row{
			{"overall": 5.0, "verified": true, "reviewerID": "R1", "asin": "A1", "reviewText": "great album", "summary": "Five, Stars", "unixReviewTime": day, "vote": float32(12)},
			{"overall": 2.5, "verified": false, "reviewerID": "R2", "asin": "A1", "reviewText": nil, "summary": `say "hi"`, "unixReviewTime": day, "vote": nil},
		},
	)
}

func cleanedMetadata() *table.Table {
	return table.New(
		[]string{"description", "title", "also_buy", "rank", "price", "asin", "details"},
		[]table.Row{
			{"description": "Debut", "title": "One", "also_buy": []any{"A2"}, "rank": float32(1234567), "price": float32(12.99), "asin": "A1", "details": `{"Label:":"Indie"}`},
			{"description": "Second", "title": "Two", "also_buy": nil, "rank": nil, "price": nil, "asin": "A2", "details": nil},
		},
	)
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cleaned", "reviews.csv")
	require.NoError(t, WriteCSV(path, cleanedReviews()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "overall,verified,reviewerID,asin,reviewText,summary,unixReviewTime,vote\n" +
		"5.0,True,R1,A1,great album,\"Five, Stars\",2014-07-26,12.0\n" +
		"2.5,False,R2,A1,,\"say \"\"hi\"\"\",2014-07-26,\n"
	assert.Equal(t, want, string(raw))
}

func TestReadReviewsCSVRestoresTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.csv")
	require.NoError(t, WriteCSV(path, cleanedReviews()))

	back, err := ReadReviewsCSV(path)
	require.NoError(t, err)
	require.Len(t, back.Rows, 2)
	assert.Equal(t, cleanedReviews().Rows, back.Rows)
}

func TestMetadataJSONLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.json")
	require.NoError(t, WriteMetadataJSONL(path, cleanedMetadata()))

	back, err := ReadMetadataJSONL(path)
	require.NoError(t, err)
	assert.Equal(t, cleanedMetadata().Columns, back.Columns)
	assert.Equal(t, float32(12.99), back.Rows[0]["price"])
	assert.Equal(t, float32(1234567), back.Rows[0]["rank"])
	assert.Equal(t, []any{"A2"}, back.Rows[0]["also_buy"])
	assert.Nil(t, back.Rows[1]["price"])
}

func TestPythonLikeFloatString(t *testing.T) {
	assert.Equal(t, "5.0", pythonLikeFloatString(5, 64))
	assert.Equal(t, "1234567.0", pythonLikeFloatString(1234567, 32))
	assert.Equal(t, "12.99", pythonLikeFloatString(float64(float32(12.99)), 32))
	assert.Equal(t, "1e-05", pythonLikeFloatString(0.00001, 64))
	assert.Equal(t, "0.0", pythonLikeFloatString(0, 64))
}

func TestWriteSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.sqlite")
	run := Run{ID: "run-1", StartedAt: time.Now(), Dataset: "Digital_Music", ReviewRows: 2, MetadataRows: 2}
	err := WriteSQLite(context.Background(), path, run,
		NamedTable{Name: "reviews_cleaned", Table: cleanedReviews(), Indexes: []string{"asin", "reviewerID"}},
		NamedTable{Name: "metadata_cleaned", Table: cleanedMetadata(), Indexes: []string{"asin"}},
	)
	require.NoError(t, err)

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM reviews_cleaned WHERE verified = 1`).Scan(&n))
	assert.Equal(t, 1, n)

	var price float64
	require.NoError(t, db.QueryRow(`SELECT price FROM metadata_cleaned WHERE asin = 'A1'`).Scan(&price))
	assert.Equal(t, 12.99, price)

	var missing sql.NullFloat64
	require.NoError(t, db.QueryRow(`SELECT price FROM metadata_cleaned WHERE asin = 'A2'`).Scan(&missing))
	assert.False(t, missing.Valid)

	var dataset string
	require.NoError(t, db.QueryRow(`SELECT dataset FROM runs WHERE run_id = 'run-1'`).Scan(&dataset))
	assert.Equal(t, "Digital_Music", dataset)
}

func TestWriteReviewsParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.parquet")
	require.NoError(t, WriteReviewsParquet(path, cleanedReviews()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(raw), 8)
	assert.Equal(t, "PAR1", string(raw[:4]))
	assert.Equal(t, "PAR1", string(raw[len(raw)-4:]))
}

func TestToReviewRecordLeavesMissingNil(t *testing.T) {
	rec := toReviewRecord(cleanedReviews().Rows[1])
	require.NotNil(t, rec.Overall)
	assert.Equal(t, 2.5, *rec.Overall)
	assert.Nil(t, rec.ReviewText)
	assert.Nil(t, rec.Vote)
	require.NotNil(t, rec.UnixReviewTime)
	assert.Equal(t, "2014-07-26", *rec.UnixReviewTime)
}
