// Package clean normalizes raw review and product-metadata tables and joins them.
//
// Every cleaning function is total: it maps any raw JSON scalar, list or object
// to a cleaned value or to nil, the missing sentinel. Malformed values never
// produce errors.
package clean

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"

	"reviewprep/internal/table"
)

var (
	reNonLetter = regexp.MustCompile(`[^a-zA-Z]`)
	reRank      = regexp.MustCompile(`(\d{1,3}(?:,\d{3})*) in`)
	rePrice     = regexp.MustCompile(`((?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d{1,10})?)`)
)

// NullValues unifies empty strings, lists and objects to missing.
func NullValues(v any) any {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
	case []any:
		if len(t) == 0 {
			return nil
		}
	case map[string]any:
		if len(t) == 0 {
			return nil
		}
	}
	return v
}

// CleanText reduces free text to lowercase ASCII words separated by single
// spaces. Markup is stripped first when the text looks like HTML.
func CleanText(v any) any {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	if strings.ContainsAny(s, "<>") {
		s = stripHTML(s)
	}
	s = norm.NFKC.String(s)
	s = reNonLetter.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func stripHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return sb.String()
}

// CleanRank extracts the sales rank from strings like "1,234 in CDs & Vinyl (".
// A list contributes its first element.
func CleanRank(v any) any {
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil
		}
		v = list[0]
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	m := reRank.FindStringSubmatch(s)
	if len(m) < 2 {
		return nil
	}
	return parseFloat32(strings.ReplaceAll(m[1], ",", ""))
}

// CleanPrice extracts the first dollar amount of a price string. Only strings
// starting with '$' are considered.
func CleanPrice(v any) any {
	s, ok := v.(string)
	if !ok || s == "" || s[0] != '$' {
		return nil
	}
	m := rePrice.FindStringSubmatch(s)
	if len(m) < 2 {
		return nil
	}
	return parseFloat32(strings.ReplaceAll(m[1], ",", ""))
}

// CleanDescription flattens a list of description paragraphs into one string.
func CleanDescription(v any) any {
	switch t := v.(type) {
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if p == nil {
				continue
			}
			if s, ok := p.(string); ok {
				parts = append(parts, s)
			} else {
				parts = append(parts, fmt.Sprint(p))
			}
		}
		s := strings.TrimSpace(strings.Join(parts, " "))
		if s == "" {
			return nil
		}
		return s
	case string:
		return t
	default:
		return nil
	}
}

// CleanVote turns helpful-vote counts such as "1,024" into float32.
func CleanVote(v any) any {
	if s, ok := v.(string); ok {
		return parseFloat32(strings.ReplaceAll(s, ",", ""))
	}
	return Float32(v)
}

// Float32 coerces numeric and numeric-string values to float32.
func Float32(v any) any {
	switch t := v.(type) {
	case string:
		return parseFloat32(t)
	case float64:
		if math.IsNaN(t) {
			return nil
		}
		return float32(t)
	case float32:
		if math.IsNaN(float64(t)) {
			return nil
		}
		return t
	default:
		return nil
	}
}

// Float64 coerces numeric and numeric-string values to float64.
func Float64(v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) {
			return nil
		}
		return t
	case float32:
		return Float64(float64(t))
	case string:
		if f, ok := table.ParseFloat(t); ok {
			return f
		}
	}
	return nil
}

// Bool keeps booleans and accepts the common textual spellings.
func Bool(v any) any {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1":
			return true
		case "false", "0":
			return false
		}
	}
	return nil
}

// ReviewTime converts unix seconds to a UTC time.
func ReviewTime(v any) any {
	var secs float64
	switch t := v.(type) {
	case float64:
		secs = t
	case string:
		f, ok := table.ParseFloat(t)
		if !ok {
			return nil
		}
		secs = f
	default:
		return nil
	}
	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return nil
	}
	return time.Unix(int64(secs), 0).UTC()
}

// Stringify coerces a value to the string column type. Objects and lists become
// JSON with sorted keys, missing stays missing.
func Stringify(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return t
	case bool:
		if t {
			return "True"
		}
		return "False"
	case float64:
		if math.IsNaN(t) {
			return nil
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		if math.IsNaN(float64(t)) {
			return nil
		}
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case []any, map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

func parseFloat32(s string) any {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return float32(f)
}
