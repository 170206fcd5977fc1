package metrics

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const labeledCSV = `reviewerID,asin,cluster,overall,review_count
A,p1,0,5,1
B,p2,0,3,3
C,p1,1,4,2
D,p3,1,4,4
E,p2,1,1,6
F,p4,,2,1
`

const referenceCSV = `reviewerID,asin
A,p1
B,p1
C,p2
D,p2
E,p3
F,p3
G,p4
H,p4
I,p5
J,p5
A,p6
`

func frame(t *testing.T, csv string, stringCols ...string) dataframe.DataFrame {
	t.Helper()
	df, err := DecodeFrame(strings.NewReader(csv), stringCols...)
	require.NoError(t, err)
	return df
}

func TestClusterSizesOrderAndMissingLabels(t *testing.T) {
	df := frame(t, labeledCSV, "cluster")
	sizes, err := ClusterSizes(df, "cluster")
	require.NoError(t, err)
	assert.Equal(t, []ClusterCount{{ClusterID: "1", Size: 3}, {ClusterID: "0", Size: 2}}, sizes)
}

func TestClusterSizesTiesOrderedByID(t *testing.T) {
	df := frame(t, "cluster\n10\n2\nb\na\n", "cluster")
	sizes, err := ClusterSizes(df, "cluster")
	require.NoError(t, err)
	var ids []string
	for _, s := range sizes {
		ids = append(ids, s.ClusterID)
	}
	assert.Equal(t, []string{"2", "10", "a", "b"}, ids)
}

func TestCoverage(t *testing.T) {
	ref := frame(t, referenceCSV)
	distinct, err := Distinct(ref, "reviewerID")
	require.NoError(t, err)
	assert.Equal(t, 10, distinct)

	cov := Coverage([]ClusterCount{{"1", 3}, {"0", 2}}, distinct)
	assert.InDelta(t, 0.3, cov["1"], 1e-12)
	assert.InDelta(t, 0.2, cov["0"], 1e-12)

	cov = Coverage([]ClusterCount{{"1", 3}}, 0)
	assert.True(t, math.IsNaN(cov["1"]))
}

func TestDiversityAndFrequency(t *testing.T) {
	df := frame(t, labeledCSV, "cluster")

	div, err := Diversity(df, "cluster", "overall")
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt2, div["0"], 1e-12)
	assert.InDelta(t, math.Sqrt(3), div["1"], 1e-12)
	assert.Len(t, div, 2)

	freq, err := Frequency(df, "cluster", "review_count")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, freq["0"], 1e-12)
	assert.InDelta(t, 4.0, freq["1"], 1e-12)
}

func TestDiversitySingleValueIsNaN(t *testing.T) {
	df := frame(t, "cluster,overall\na,1\nb,2\nb,\n", "cluster")
	div, err := Diversity(df, "cluster", "overall")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(div["a"]))
	assert.True(t, math.IsNaN(div["b"]))

	freq, err := Frequency(df, "cluster", "overall")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, freq["b"], 1e-12)
}

func TestMissingColumn(t *testing.T) {
	df := frame(t, labeledCSV, "cluster")
	_, err := ClusterSizes(df, "label")
	assert.ErrorIs(t, err, ErrMissingColumn)
	_, err = Diversity(df, "cluster", "helpful")
	assert.ErrorIs(t, err, ErrMissingColumn)
	_, err = Distinct(df, "")
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestSilhouetteTwoClusters(t *testing.T) {
	x := mat.NewDense(4, 1, []float64{0, 1, 10, 11})
	got, err := Silhouette(x, []string{"a", "a", "b", "b"})
	require.NoError(t, err)
	want := (9.5/10.5 + 8.5/9.5) / 2
	assert.InDelta(t, want, got, 1e-12)
}

func TestSilhouetteSingletonScoresZero(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{0, 0, 1, 0, 5, 0})
	got, err := Silhouette(x, []string{"a", "a", "b"})
	require.NoError(t, err)
	assert.InDelta(t, (0.8+0.75)/3, got, 1e-12)
}

func TestSilhouetteErrors(t *testing.T) {
	x := mat.NewDense(3, 1, []float64{0, 1, 2})

	_, err := Silhouette(x, []string{"a", "a"})
	assert.ErrorIs(t, err, ErrRowMismatch)

	_, err = Silhouette(x, []string{"a", "a", "a"})
	assert.ErrorIs(t, err, ErrLabelCount)

	_, err = Silhouette(x, []string{"a", "b", "c"})
	assert.ErrorIs(t, err, ErrLabelCount)

	_, err = Silhouette(x, []string{"a", "", "b"})
	assert.ErrorIs(t, err, ErrMissingLabel)
}

func TestAlignAndFeatureMatrix(t *testing.T) {
	labeled := frame(t, "reviewerID,cluster\nB,0\nA,1\n", "reviewerID", "cluster")
	features := frame(t, "reviewerID,review_count,mean_overall\nA,1.5,-1\nB,-0.5,2\nC,0,0\n", "reviewerID")

	aligned, err := Align(labeled, features, "reviewerID")
	require.NoError(t, err)
	m, cols, err := FeatureMatrix(aligned, nil, "reviewerID", "cluster")
	require.NoError(t, err)
	assert.Equal(t, []string{"review_count", "mean_overall"}, cols)
	assert.Equal(t, []float64{-0.5, 2}, m.RawRowView(0))
	assert.Equal(t, []float64{1.5, -1}, m.RawRowView(1))

	m, _, err = FeatureMatrix(aligned, []string{"mean_overall"})
	require.NoError(t, err)
	r, c := m.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 1, c)

	_, err = Align(frame(t, "reviewerID\nZ\n", "reviewerID"), features, "reviewerID")
	assert.ErrorIs(t, err, ErrRowMismatch)

	_, _, err = FeatureMatrix(features, []string{"nope"})
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestFeatureMatrixRejectsMissing(t *testing.T) {
	df := frame(t, "a,b\n1,2\n3,\n")
	_, _, err := FeatureMatrix(df, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `feature "b" row 1`)
}

func TestComputeWritesReport(t *testing.T) {
	labeled := frame(t, labeledCSV, "cluster")
	ref := frame(t, referenceCSV)
	features := mat.NewDense(6, 1, []float64{0, 1, 10, 11, 12, 100})

	rep, err := Compute(Input{
		Labeled:         labeled,
		Reference:       ref,
		Features:        features,
		ClusterColumn:   "cluster",
		CoverageColumn:  "reviewerID",
		DiversityColumn: "overall",
		FrequencyColumn: "review_count",
	})
	require.NoError(t, err)
	require.Len(t, rep.Clusters, 2)
	assert.Equal(t, "1", rep.Clusters[0].ClusterID)
	assert.Equal(t, 3, rep.Clusters[0].Size)
	assert.InDelta(t, 0.3, rep.Clusters[0].Coverage, 1e-12)
	assert.Equal(t, 10, rep.CoverageDistinct)
	assert.Equal(t, 6, rep.Rows)
	assert.False(t, math.IsNaN(rep.Silhouette))
	assert.Greater(t, rep.Silhouette, 0.5)

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "metrics.csv")
	require.NoError(t, rep.WriteCSV(csvPath))
	got, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(got)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Cluster_ID,Cluster_Size,Coverage,Diversity,Frequency", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,3,0.3,1.7320508075688"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "0,2,0.2,1.414213562373"), lines[2])

	jsonPath := filepath.Join(dir, "sub", "metrics.json")
	require.NoError(t, rep.WriteJSON(jsonPath))
	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "silhouette")
	assert.EqualValues(t, 10, doc["coverage_distinct"])
	clusters := doc["clusters"].([]any)
	assert.Equal(t, "1", clusters[0].(map[string]any)["cluster_id"])
}

func TestComputeWithoutFeatures(t *testing.T) {
	rep, err := Compute(Input{
		Labeled:         frame(t, "cluster,overall,n\na,1,1\n", "cluster"),
		Reference:       frame(t, "reviewerID,x\n,1\n"),
		ClusterColumn:   "cluster",
		CoverageColumn:  "reviewerID",
		DiversityColumn: "overall",
		FrequencyColumn: "n",
	})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(rep.Silhouette))
	assert.True(t, math.IsNaN(rep.Clusters[0].Coverage))
	assert.True(t, math.IsNaN(rep.Clusters[0].Diversity))

	raw, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"silhouette":null`)
	assert.Contains(t, string(raw), `"diversity":null`)
	assert.Contains(t, rep.Summary(), "Silhouette: n/a")
}
