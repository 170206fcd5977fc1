// Package profile renders a markdown report describing a cleaning run.
package profile

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"reviewprep/internal/clean"
	"reviewprep/internal/jsonl"
	"reviewprep/internal/table"
)

var (
	DefaultNumericColumns = []string{"overall", "vote", "rank", "price"}
	DefaultValueColumns   = []string{"overall", "verified", "brand"}
)

const topValues = 20

type Input struct {
	RunID       string
	Dataset     string
	GeneratedAt time.Time

	Reviews  *table.Table
	Metadata *table.Table

	// Loader stats are zero when the profile is built from cleaned outputs.
	ReviewStats   jsonl.Stats
	MetadataStats jsonl.Stats
	Cleaning      clean.Report

	NumericColumns []string
	ValueColumns   []string
}

// Build renders the report. Tables may be nil.
func Build(in Input) string {
	if in.NumericColumns == nil {
		in.NumericColumns = DefaultNumericColumns
	}
	if in.ValueColumns == nil {
		in.ValueColumns = DefaultValueColumns
	}
	title := "reviews"
	if in.Dataset != "" {
		title = in.Dataset
	}
	lines := []string{
		fmt.Sprintf("# %s profiling + cleaning report", title),
		"",
	}
	if in.RunID != "" {
		lines = append(lines, fmt.Sprintf("- Run: `%s`", in.RunID))
	}
	if !in.GeneratedAt.IsZero() {
		lines = append(lines, fmt.Sprintf("- Generated: %s", in.GeneratedAt.UTC().Format(time.RFC3339)))
	}
	lines = append(lines, "", "## Dataset shape")
	if in.ReviewStats.SourceRows > 0 || in.MetadataStats.SourceRows > 0 {
		lines = append(lines,
			fmt.Sprintf("- Review lines read: %s", fmtInt(in.ReviewStats.SourceRows)),
			fmt.Sprintf("- Invalid review lines skipped: %s", fmtInt(in.ReviewStats.InvalidRows)),
			fmt.Sprintf("- Metadata lines read: %s", fmtInt(in.MetadataStats.SourceRows)),
			fmt.Sprintf("- Invalid metadata lines skipped: %s", fmtInt(in.MetadataStats.InvalidRows)),
			fmt.Sprintf("- Duplicate reviews dropped: %s", fmtInt(in.Cleaning.ReviewDuplicates)),
			fmt.Sprintf("- Duplicate products dropped: %s", fmtInt(in.Cleaning.MetadataDuplicates)),
			fmt.Sprintf("- Products without title or description: %s", fmtInt(in.Cleaning.MetadataIncomplete)),
			fmt.Sprintf("- Reviews without a matching product: %s", fmtInt(in.Cleaning.ReviewsUnmatched)),
		)
	}
	for _, nt := range tables(in) {
		lines = append(lines, fmt.Sprintf("- `%s`: %s rows, %s columns", nt.name, fmtInt(nt.t.Len()), fmtInt(len(nt.t.Columns))))
	}
	lines = append(lines, "")

	lines = append(lines, "## Uniqueness")
	for _, nt := range tables(in) {
		for _, col := range []string{"reviewerID", "asin"} {
			if !nt.t.HasColumn(col) {
				continue
			}
			uniq, dup := uniqueness(nt.t, col)
			lines = append(lines, fmt.Sprintf("- `%s.%s` unique=%s, duplicate_rows=%s", nt.name, col, fmtInt(uniq), fmtInt(dup)))
		}
	}
	lines = append(lines, "")

	for _, nt := range tables(in) {
		lines = append(lines, fmt.Sprintf("## Missingness: %s", nt.name))
		for _, m := range missingness(nt.t) {
			lines = append(lines, fmt.Sprintf("- `%s`: %.1f%% null", m.col, m.pct))
		}
		lines = append(lines, "")
	}

	if in.Reviews != nil {
		if lo, hi, ok := dateRange(in.Reviews, "unixReviewTime"); ok {
			lines = append(lines, "## Review date range",
				fmt.Sprintf("- min: %s", lo.Format(time.DateOnly)),
				fmt.Sprintf("- max: %s", hi.Format(time.DateOnly)),
				"")
		}
	}

	lines = append(lines, "## Numeric summaries")
	for _, nt := range tables(in) {
		for _, col := range in.NumericColumns {
			nums := gatherNums(nt.t, col)
			if len(nums) == 0 {
				continue
			}
			sort.Float64s(nums)
			lines = append(lines, fmt.Sprintf("- `%s.%s`: count=%s, min=%s, median=%s, mean=%s, max=%s",
				nt.name, col, fmtInt(len(nums)), fmt4g(nums[0]), fmt4g(median(nums)), fmt4g(stat.Mean(nums, nil)), fmt4g(nums[len(nums)-1]),
			))
		}
	}
	lines = append(lines, "")

	lines = append(lines, fmt.Sprintf("## Value counts (top %d)", topValues))
	for _, nt := range tables(in) {
		for _, col := range in.ValueColumns {
			if !nt.t.HasColumn(col) {
				continue
			}
			items := ValueCounts(nt.t, col)
			if len(items) == 0 {
				continue
			}
			lines = append(lines, fmt.Sprintf("### `%s.%s`", nt.name, col))
			for i := 0; i < len(items) && i < topValues; i++ {
				lines = append(lines, fmt.Sprintf("- %s: %s", items[i].Value, fmtInt(items[i].Count)))
			}
			lines = append(lines, "")
		}
	}
	return strings.Join(lines, "\n")
}

type ValueCount struct {
	Value string
	Count int
}

// ValueCounts counts the rendered values of col, most frequent first. Missing
// cells count under <NA>; ties are ordered by value, numbers first.
func ValueCounts(t *table.Table, col string) []ValueCount {
	counts := map[string]int{}
	for _, r := range t.Rows {
		k := "<NA>"
		if !table.IsMissing(r[col]) {
			k = render(r[col])
		}
		counts[k]++
	}
	items := make([]ValueCount, 0, len(counts))
	for k, v := range counts {
		items = append(items, ValueCount{k, v})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return lessValue(items[i].Value, items[j].Value)
		}
		return items[i].Count > items[j].Count
	})
	return items
}

type namedTable struct {
	name string
	t    *table.Table
}

func tables(in Input) []namedTable {
	var out []namedTable
	if in.Reviews != nil {
		out = append(out, namedTable{"reviews", in.Reviews})
	}
	if in.Metadata != nil {
		out = append(out, namedTable{"metadata", in.Metadata})
	}
	return out
}

type miss struct {
	col string
	pct float64
}

func missingness(t *table.Table) []miss {
	out := make([]miss, 0, len(t.Columns))
	for _, col := range t.Columns {
		nulls := 0
		for _, r := range t.Rows {
			if table.IsMissing(r[col]) {
				nulls++
			}
		}
		out = append(out, miss{col, safeDiv(float64(nulls)*100, float64(t.Len()))})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].pct > out[j].pct })
	return out
}

func uniqueness(t *table.Table, col string) (uniqueNonNil int, duplicateRows int) {
	counts := map[string]int{}
	for _, r := range t.Rows {
		if table.IsMissing(r[col]) {
			continue
		}
		counts[table.Canonical(r[col])]++
	}
	for _, c := range counts {
		uniqueNonNil++
		if c > 1 {
			duplicateRows += c
		}
	}
	return
}

func dateRange(t *table.Table, col string) (lo, hi time.Time, ok bool) {
	for _, r := range t.Rows {
		d, isTime := r[col].(time.Time)
		if !isTime {
			continue
		}
		if !ok || d.Before(lo) {
			lo = d
		}
		if !ok || d.After(hi) {
			hi = d
		}
		ok = true
	}
	return lo, hi, ok
}

func gatherNums(t *table.Table, col string) []float64 {
	var out []float64
	for _, r := range t.Rows {
		if _, isBool := r[col].(bool); isBool {
			continue
		}
		if f, ok := table.Float(r[col]); ok {
			out = append(out, f)
		}
	}
	return out
}

func render(v any) string {
	switch t := v.(type) {
	case bool:
		if t {
			return "True"
		}
		return "False"
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32)
	case time.Time:
		return t.UTC().Format(time.DateOnly)
	}
	return table.Canonical(v)
}

func lessValue(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	switch {
	case errA == nil && errB == nil && fa != fb:
		return fa < fb
	case errA == nil && errB != nil:
		return true
	case errA != nil && errB == nil:
		return false
	}
	return a < b
}

func fmtInt(v int) string {
	s := strconv.Itoa(v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		return "-" + s
	}
	return s
}

func fmt4g(v float64) string { return strconv.FormatFloat(v, 'g', 4, 64) }

func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
