package retrieval

import (
	"sort"
	"strings"

	"github.com/aryanmundre/MaqroDealerships-sub000/engine/domain"
	"github.com/aryanmundre/MaqroDealerships-sub000/engine/semantic"
	"github.com/aryanmundre/MaqroDealerships-sub000/pkg/vehiclenlp"
)

// applyFilters applies the structured-query constraints to a candidate pool.
// Hard constraints (budget, year range, make/model) exclude; soft constraints
// (body type, color, features) multiply the score down; an exact make match
// adds a capped bonus. The result is re-sorted by adjusted score.
func applyFilters(pool []semantic.SearchResult, q vehiclenlp.StructuredQuery, w Weights) []semantic.SearchResult {
	var out []semantic.SearchResult
	for _, r := range pool {
		item := r.Item

		// Hard constraints. An unknown price (0) passes the budget check;
		// excluding it would hide cars whose price the source never gave.
		if q.BudgetMax > 0 && item.Price > q.BudgetMax {
			continue
		}
		if q.YearMin > 0 && item.Year < q.YearMin {
			continue
		}
		if q.YearMax > 0 && item.Year > q.YearMax {
			continue
		}
		// A customer asking for a specific make or model does not want a
		// different vehicle scored down; they want it gone. The fallback in
		// SearchHybrid still covers the no-match case.
		if q.Make != "" && !strings.EqualFold(item.Make, q.Make) {
			continue
		}
		if q.Model != "" && !strings.Contains(strings.ToLower(item.Model), strings.ToLower(q.Model)) {
			continue
		}

		score := r.Score
		if q.BodyType != "" && !itemMentions(item, q.BodyType) {
			score *= w.BodyTypePenalty
		}
		if q.Color != "" && !colorMatches(item, q.Color) {
			score *= w.ColorPenalty
		}
		for _, feat := range q.Features {
			if !itemMentions(item, feat) {
				score *= w.FeaturePenalty
			}
		}
		if q.Make != "" && strings.EqualFold(item.Make, q.Make) {
			score += w.MakeBonus
			if score > w.ScoreCap {
				score = w.ScoreCap
			}
		}

		r.Score = score
		out = append(out, r)
	}
	sortResults(out)
	return out
}

// colorMatches reports whether the requested color appears in the item's
// color column or descriptive text. The column alone is not enough: it often
// holds a trade name ("pearl white") or is empty while the description
// carries the color.
func colorMatches(item domain.InventoryItem, color string) bool {
	color = strings.ToLower(color)
	for _, field := range []string{item.Color, item.Description, item.Features} {
		if strings.Contains(strings.ToLower(field), color) {
			return true
		}
	}
	return false
}

// itemMentions reports whether the item's descriptive text contains the
// phrase. Used for body-type and feature checks, which have no dedicated
// columns.
func itemMentions(item domain.InventoryItem, phrase string) bool {
	phrase = strings.ToLower(phrase)
	for _, field := range []string{item.Model, item.Features, item.Description, item.Condition} {
		if strings.Contains(strings.ToLower(field), phrase) {
			return true
		}
	}
	return false
}

// sortResults orders by score descending, ties broken by item id so equal
// scores rank deterministically.
func sortResults(rs []semantic.SearchResult) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Score != rs[j].Score {
			return rs[i].Score > rs[j].Score
		}
		return rs[i].Item.ID < rs[j].Item.ID
	})
}
