package clean

import (
	"go.uber.org/zap"

	"reviewprep/internal/table"
)

var (
	DefaultReviewDropColumns   = []string{"reviewTime", "style", "reviewerName", "image"}
	DefaultMetadataDropColumns = []string{
		"category", "fit", "tech1", "tech2", "feature", "date",
		"similar_item", "main_cat", "imageURL", "imageURLHighRes",
	}
	DefaultReviewDedupeKeys = []string{"reviewerID", "summary"}
	DefaultMetadataRequired = []string{"description", "title"}
	reviewStringColumns     = []string{"reviewerID", "asin", "reviewText", "summary"}
	metadataStringColumns   = []string{"description", "title", "brand", "details", "asin"}
)

const JoinKey = "asin"

// Options selects the columns each stage touches. Zero values fall back to the
// defaults above.
type Options struct {
	ReviewDropColumns   []string
	MetadataDropColumns []string
	ReviewDedupeKeys    []string
	MetadataRequired    []string
	Logger              *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.ReviewDropColumns == nil {
		o.ReviewDropColumns = DefaultReviewDropColumns
	}
	if o.MetadataDropColumns == nil {
		o.MetadataDropColumns = DefaultMetadataDropColumns
	}
	if len(o.ReviewDedupeKeys) == 0 {
		o.ReviewDedupeKeys = DefaultReviewDedupeKeys
	}
	if len(o.MetadataRequired) == 0 {
		o.MetadataRequired = DefaultMetadataRequired
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

type Report struct {
	ReviewDuplicates   int `json:"review_duplicates"`
	MetadataDuplicates int `json:"metadata_duplicates"`
	MetadataIncomplete int `json:"metadata_incomplete"`
	ReviewsUnmatched   int `json:"reviews_unmatched"`
	ReviewRows         int `json:"review_rows"`
	MetadataRows       int `json:"metadata_rows"`
}

// PreprocessReviews cleans a raw review table in place.
func PreprocessReviews(t *table.Table, opts Options) int {
	opts = opts.withDefaults()
	t.DropColumns(opts.ReviewDropColumns...)
	t.MapValues(NullValues)
	dropped := t.DropDuplicates(opts.ReviewDedupeKeys...)

	t.Apply("overall", Float64)
	t.Apply("verified", Bool)
	t.Apply("unixReviewTime", ReviewTime)
	t.Apply("reviewText", CleanText)
	t.Apply("vote", CleanVote)
	for _, c := range reviewStringColumns {
		t.Apply(c, Stringify)
	}
	opts.Logger.Info("preprocessed reviews",
		zap.Int("rows", t.Len()),
		zap.Int("duplicates_dropped", dropped),
		zap.Strings("columns", t.Columns))
	return dropped
}

// PreprocessMetadata cleans a raw product-metadata table in place.
func PreprocessMetadata(t *table.Table, opts Options) {
	opts = opts.withDefaults()
	t.DropColumns(opts.MetadataDropColumns...)
	t.MapValues(NullValues)

	t.Apply("rank", CleanRank)
	t.Apply("price", CleanPrice)
	t.Apply("description", CleanDescription)
	for _, c := range metadataStringColumns {
		t.Apply(c, Stringify)
	}
	opts.Logger.Info("preprocessed metadata",
		zap.Int("rows", t.Len()),
		zap.Strings("columns", t.Columns))
}

// JoinReport counts the rows each join step removed.
type JoinReport struct {
	Incomplete int
	Duplicates int
	Unmatched  int
}

// Join keeps the metadata rows with every required column present, then the
// first complete row per asin, then the reviews whose asin matches one of them.
// Reviews are filtered, never widened: no metadata column other than the key
// ends up in the review table.
func Join(reviews, metadata *table.Table, opts Options) JoinReport {
	opts = opts.withDefaults()
	var rep JoinReport
	rep.Incomplete = metadata.DropMissing(opts.MetadataRequired...)
	rep.Duplicates = metadata.DropDuplicates(JoinKey)

	known := make(map[string]struct{}, metadata.Len())
	for _, r := range metadata.Rows {
		if k, ok := r[JoinKey].(string); ok {
			known[k] = struct{}{}
		}
	}
	rep.Unmatched = reviews.Filter(func(r table.Row) bool {
		k, ok := r[JoinKey].(string)
		if !ok {
			return false
		}
		_, hit := known[k]
		return hit
	})

	opts.Logger.Info("joined reviews to metadata",
		zap.Int("metadata_incomplete", rep.Incomplete),
		zap.Int("metadata_duplicates", rep.Duplicates),
		zap.Int("reviews_unmatched", rep.Unmatched),
		zap.Int("review_rows", reviews.Len()),
		zap.Int("metadata_rows", metadata.Len()))
	return rep
}

// Process runs both preprocessors and the join.
func Process(reviews, metadata *table.Table, opts Options) Report {
	var rep Report
	rep.ReviewDuplicates = PreprocessReviews(reviews, opts)
	PreprocessMetadata(metadata, opts)
	j := Join(reviews, metadata, opts)
	rep.MetadataIncomplete, rep.MetadataDuplicates, rep.ReviewsUnmatched = j.Incomplete, j.Duplicates, j.Unmatched
	rep.ReviewRows = reviews.Len()
	rep.MetadataRows = metadata.Len()
	return rep
}
