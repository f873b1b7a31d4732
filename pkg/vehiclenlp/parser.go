// Package vehiclenlp extracts a structured vehicle query (make, model, year
// range, color, budget, body type, feature tags) from free-form customer
// text using normalized synonym tables and regex patterns. Parsing is pure
// and deterministic: no I/O, no external calls, and it never fails — fields
// that cannot be extracted stay at their zero value.
package vehiclenlp

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// StructuredQuery is the structured filter set extracted from one message.
type StructuredQuery struct {
	Make      string   `json:"make,omitempty"`
	Model     string   `json:"model,omitempty"`
	Trim      string   `json:"trim,omitempty"`
	YearMin   int      `json:"year_min,omitempty"`
	YearMax   int      `json:"year_max,omitempty"`
	Color     string   `json:"color,omitempty"`
	BudgetMax int      `json:"budget_max,omitempty"`
	BodyType  string   `json:"body_type,omitempty"`
	Features  []string `json:"features,omitempty"`
}

// HasStrongSignals reports whether the query carries at least one
// high-confidence structured filter. This is the sole gate deciding whether
// the retriever attempts metadata filtering at all.
func (q StructuredQuery) HasStrongSignals() bool {
	return q.Make != "" || q.Model != "" || q.YearMin != 0 || q.YearMax != 0 ||
		q.BudgetMax != 0 || q.BodyType != ""
}

// tableEntry is a precompiled synonym-table row.
type tableEntry struct {
	key       string
	canonical string
	re        *regexp.Regexp // word-boundary matcher, nil for substring tables
}

var (
	makeEntries  []tableEntry // longest key first
	modelEntries []tableEntry
	colorEntries []tableEntry
	bodyEntries  []tableEntry

	featureRes []*regexp.Regexp
	trimRe     = regexp.MustCompile(trimPattern)

	// Range pattern is tried before the single-year pattern; both are
	// restricted to the plausible 2010-2029 window.
	yearRangeRe  = regexp.MustCompile(`\b(20[12]\d)\s*(?:[-–—]|to)\s*(20[12]\d)\b`)
	yearSingleRe = regexp.MustCompile(`\b(20[12]\d)\b`)

	budgetRes []budgetMatcher
)

type budgetMatcher struct {
	re   *regexp.Regexp
	mult int
}

// sortedEntries flattens a synonym table into a deterministic slice:
// longest key first so "grand cherokee" beats "cherokee", ties broken
// lexicographically so map iteration order never leaks into results.
func sortedEntries(table map[string]string, wordBoundary bool) []tableEntry {
	entries := make([]tableEntry, 0, len(table))
	for k, v := range table {
		e := tableEntry{key: k, canonical: v}
		if wordBoundary {
			e.re = regexp.MustCompile(`\b` + regexp.QuoteMeta(k) + `\b`)
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if len(entries[i].key) != len(entries[j].key) {
			return len(entries[i].key) > len(entries[j].key)
		}
		return entries[i].key < entries[j].key
	})
	return entries
}

func init() {
	makeEntries = sortedEntries(makeSynonyms, true)
	modelEntries = sortedEntries(modelToMake, true)
	colorEntries = sortedEntries(colorSynonyms, false)
	bodyEntries = sortedEntries(bodyTypeSynonyms, false)

	for _, g := range featureGroups {
		featureRes = append(featureRes, regexp.MustCompile(g))
	}

	// Budget patterns, ordered by keyword specificity ("under" before
	// "around") and then by suffix specificity (k/thousand/000 before the
	// bare number). The first matching pattern wins.
	keywords := []string{`under`, `less\s+than`, `around`, `budget`}
	suffixes := []struct {
		pat  string
		mult int
	}{
		{`\s*k\b`, 1000},
		{`\s*thousand\b`, 1000},
		{`\s*000\b`, 1000},
		{``, 1},
	}
	for _, kw := range keywords {
		for _, sfx := range suffixes {
			re := regexp.MustCompile(kw + `\s*\$?(\d+(?:,\d{3})*)` + sfx.pat)
			budgetRes = append(budgetRes, budgetMatcher{re: re, mult: sfx.mult})
		}
	}
}

// Parse extracts a StructuredQuery from a customer message. Case-insensitive;
// under-specified messages simply yield a query with no strong signals.
func Parse(text string) StructuredQuery {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return StructuredQuery{}
	}

	q := StructuredQuery{}
	q.Make, q.Model, q.Trim = extractMakeModelTrim(lower)
	q.YearMin, q.YearMax = extractYearRange(lower)
	q.Color = firstSubstring(colorEntries, lower)
	q.BudgetMax = extractBudget(lower)
	q.BodyType = firstSubstring(bodyEntries, lower)
	q.Features = extractFeatures(lower)
	return q
}

// extractMakeModelTrim finds make, model, and trim. An explicit make synonym
// always wins; a model's implied make is used only when no make was found.
func extractMakeModelTrim(text string) (mk, model, trim string) {
	for _, e := range makeEntries {
		if e.re.MatchString(text) {
			mk = e.canonical
			break
		}
	}
	for _, e := range modelEntries {
		if e.re.MatchString(text) {
			model = e.key
			if mk == "" {
				mk = e.canonical
			}
			break
		}
	}
	if m := trimRe.FindStringSubmatch(text); m != nil {
		trim = m[1]
	}
	return mk, model, trim
}

func extractYearRange(text string) (int, int) {
	if m := yearRangeRe.FindStringSubmatch(text); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		return lo, hi
	}
	if m := yearSingleRe.FindStringSubmatch(text); m != nil {
		y, _ := strconv.Atoi(m[1])
		return y, y
	}
	return 0, 0
}

func extractBudget(text string) int {
	for _, bm := range budgetRes {
		m := bm.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		if err != nil {
			continue
		}
		return n * bm.mult
	}
	return 0
}

func firstSubstring(entries []tableEntry, text string) string {
	for _, e := range entries {
		if strings.Contains(text, e.key) {
			return e.canonical
		}
	}
	return ""
}

func extractFeatures(text string) []string {
	var features []string
	for _, re := range featureRes {
		if m := re.FindStringSubmatch(text); m != nil {
			features = append(features, m[1])
		}
	}
	return features
}
