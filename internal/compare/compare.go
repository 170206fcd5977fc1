// Package compare scores how closely a candidate CSV export reproduces a
// reference export of the same table. Rows are aligned on key columns and
// columns by header name.
package compare

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"reviewprep/internal/export"
	"reviewprep/internal/table"
)

var reNumeric = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)$`)

type Alignment struct {
	Keys                   []string `json:"keys"`
	MatchedRows            int      `json:"matched_rows"`
	ReferenceRows          int      `json:"reference_rows"`
	CandidateRows          int      `json:"candidate_rows"`
	CoverageReference      float64  `json:"coverage_reference"`
	CoverageCandidate      float64  `json:"coverage_candidate"`
	DuplicateReferenceKeys int      `json:"duplicate_reference_keys,omitempty"`
	DuplicateCandidateKeys int      `json:"duplicate_candidate_keys,omitempty"`
	UnmatchedCandidateRows int      `json:"unmatched_candidate_rows,omitempty"`
	Complete               bool     `json:"complete"`

	pairs [][2]int
}

type ColumnScore struct {
	Column     string  `json:"column"`
	Present    bool    `json:"present"`
	Similarity float64 `json:"similarity"`
	ExactRate  float64 `json:"exact_rate"`
}

type Report struct {
	Status            string        `json:"status"`
	ReferencePath     string        `json:"reference_csv"`
	CandidatePath     string        `json:"candidate_csv"`
	Alignment         Alignment     `json:"row_alignment"`
	Columns           []ColumnScore `json:"columns"`
	ExtraColumns      []string      `json:"extra_candidate_columns"`
	DatasetSimilarity float64       `json:"dataset_similarity"`
	OverallScore      float64       `json:"overall_score_with_coverage"`
}

// Files loads both CSVs and compares them.
func Files(referencePath, candidatePath string, keys []string) (Report, error) {
	ref, err := export.ReadCSV(referencePath)
	if err != nil {
		return Report{}, fmt.Errorf("load reference: %w", err)
	}
	cand, err := export.ReadCSV(candidatePath)
	if err != nil {
		return Report{}, fmt.Errorf("load candidate: %w", err)
	}
	rep, err := Tables(ref, cand, keys)
	if err != nil {
		return Report{}, err
	}
	rep.ReferencePath, rep.CandidatePath = referencePath, candidatePath
	return rep, nil
}

// Tables compares two string tables as read by export.ReadCSV.
func Tables(ref, cand *table.Table, keys []string) (Report, error) {
	if len(keys) == 0 {
		return Report{}, fmt.Errorf("at least one key column is required")
	}
	for _, k := range keys {
		if !ref.HasColumn(k) {
			return Report{}, fmt.Errorf("reference has no key column %q", k)
		}
		if !cand.HasColumn(k) {
			return Report{}, fmt.Errorf("candidate has no key column %q", k)
		}
	}
	al := align(ref, cand, keys)
	rep := Report{Alignment: al}

	total := 0.0
	for _, col := range ref.Columns {
		if !cand.HasColumn(col) {
			rep.Columns = append(rep.Columns, ColumnScore{Column: col})
			continue
		}
		sim, exact := scoreColumn(ref, cand, al.pairs, col)
		total += sim
		rep.Columns = append(rep.Columns, ColumnScore{Column: col, Present: true, Similarity: round6(sim), ExactRate: round6(exact)})
	}
	for _, col := range cand.Columns {
		if !ref.HasColumn(col) {
			rep.ExtraColumns = append(rep.ExtraColumns, col)
		}
	}
	rep.DatasetSimilarity = round6(safeDiv(total, float64(len(ref.Columns))))
	rep.OverallScore = round6(rep.DatasetSimilarity * math.Min(al.CoverageReference, al.CoverageCandidate))

	switch {
	case al.MatchedRows == 0:
		rep.Status = "no_overlap"
	case al.Complete && rep.DatasetSimilarity == 1 && len(rep.ExtraColumns) == 0:
		rep.Status = "ok"
	default:
		rep.Status = "diff"
	}
	return rep, nil
}

// WriteJSON writes the report as an indented JSON document.
func (r Report) WriteJSON(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

func align(ref, cand *table.Table, keys []string) Alignment {
	refIndex := make(map[string]int, ref.Len())
	dupRef := 0
	for i, row := range ref.Rows {
		k, ok := rowKey(row, keys)
		if !ok {
			continue
		}
		if _, exists := refIndex[k]; exists {
			dupRef++
			continue
		}
		refIndex[k] = i
	}
	var pairs [][2]int
	seen := make(map[int]struct{}, cand.Len())
	unmatched, dupCand := 0, 0
	for ci, row := range cand.Rows {
		k, ok := rowKey(row, keys)
		if !ok {
			unmatched++
			continue
		}
		ri, ok := refIndex[k]
		if !ok {
			unmatched++
			continue
		}
		if _, exists := seen[ri]; exists {
			dupCand++
			continue
		}
		seen[ri] = struct{}{}
		pairs = append(pairs, [2]int{ri, ci})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })
	matched := len(pairs)
	return Alignment{
		Keys:                   keys,
		MatchedRows:            matched,
		ReferenceRows:          ref.Len(),
		CandidateRows:          cand.Len(),
		CoverageReference:      round6(safeDiv(float64(matched), float64(ref.Len()))),
		CoverageCandidate:      round6(safeDiv(float64(matched), float64(cand.Len()))),
		DuplicateReferenceKeys: dupRef,
		DuplicateCandidateKeys: dupCand,
		UnmatchedCandidateRows: unmatched,
		Complete:               dupRef == 0 && dupCand == 0 && unmatched == 0 && matched == ref.Len() && matched == cand.Len(),
		pairs:                  pairs,
	}
}

func rowKey(r table.Row, keys []string) (string, bool) {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = canonicalScalar(cell(r[k]))
		if parts[i] == "" {
			return "", false
		}
	}
	return strings.Join(parts, "\x1f"), true
}

func scoreColumn(ref, cand *table.Table, pairs [][2]int, col string) (sim, exact float64) {
	if len(pairs) == 0 {
		return 0, 0
	}
	for _, p := range pairs {
		a, b := cell(ref.Rows[p[0]][col]), cell(cand.Rows[p[1]][col])
		sim += ValueSimilarity(a, b)
		if canonicalScalar(a) == canonicalScalar(b) {
			exact++
		}
	}
	n := float64(len(pairs))
	return sim / n, exact / n
}

func cell(v any) string {
	s, _ := v.(string)
	return s
}

// ValueSimilarity scores two rendered cells in [0, 1]. Booleans and decimals
// compare by value, so "5" and "5.0" match; other text falls back to a
// normalized edit distance.
func ValueSimilarity(a, b string) float64 {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	if ab, ok := parseBool(a); ok {
		if bb, ok := parseBool(b); ok {
			if ab == bb {
				return 1
			}
			return 0
		}
	}
	if ad, ok := parseDecimal(a); ok {
		if bd, ok := parseDecimal(b); ok {
			if ad.Cmp(bd) == 0 {
				return 1
			}
			af, _ := ad.Float64()
			bf, _ := bd.Float64()
			denom := math.Max(math.Max(math.Abs(af), math.Abs(bf)), 1)
			return math.Max(0, 1-math.Abs(af-bf)/denom)
		}
	}
	return levenshteinSimilarity(a, b)
}

func levenshteinSimilarity(a, b string) float64 {
	ar, br := []rune(a), []rune(b)
	denom := max(len(ar), len(br))
	if denom == 0 {
		return 1
	}
	return math.Max(0, 1-float64(levenshtein(ar, br))/float64(denom))
}

func levenshtein(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i, ca := range a {
		curr[0] = i + 1
		for j, cb := range b {
			sub := prev[j]
			if ca != cb {
				sub++
			}
			curr[j+1] = min(curr[j]+1, prev[j+1]+1, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

func parseDecimal(s string) (*big.Rat, bool) {
	if !reNumeric.MatchString(s) {
		return nil, false
	}
	r, ok := new(big.Rat).SetString(s)
	return r, ok
}

func canonicalScalar(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if b, ok := parseBool(v); ok {
		if b {
			return "true"
		}
		return "false"
	}
	if r, ok := parseDecimal(v); ok {
		return r.RatString()
	}
	return v
}

func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
