package retrieval

import (
	"fmt"
	"strings"

	"github.com/aryanmundre/MaqroDealerships-sub000/pkg/fn"
	"github.com/aryanmundre/MaqroDealerships-sub000/pkg/vehiclenlp"
)

// buildVariants derives the query set for the widened hybrid pool. The raw
// query always comes first; the derived variants restate the structured
// signals in the vocabulary the embedding texts use, pulling in candidates
// the raw phrasing missed.
func buildVariants(raw string, q vehiclenlp.StructuredQuery) []string {
	variants := []string{raw}

	if q.Make != "" || q.Model != "" {
		variants = append(variants, strings.TrimSpace(q.Make+" "+q.Model))
	}
	if q.YearMin > 0 && (q.Make != "" || q.Model != "") {
		variants = append(variants, strings.TrimSpace(fmt.Sprintf("%d %s %s", q.YearMin, q.Make, q.Model)))
	}
	if q.Color != "" {
		subject := q.Model
		if subject == "" {
			subject = q.BodyType
		}
		if subject == "" {
			subject = q.Make
		}
		if subject != "" {
			variants = append(variants, q.Color+" "+subject)
		}
	}
	if q.BudgetMax > 0 {
		subject := q.BodyType
		if subject == "" {
			subject = strings.TrimSpace(q.Make + " " + q.Model)
		}
		if subject == "" {
			subject = "car"
		}
		variants = append(variants, fmt.Sprintf("%s under $%d", subject, q.BudgetMax))
	}
	if len(q.Features) > 0 {
		subject := q.BodyType
		if subject == "" {
			subject = "car"
		}
		variants = append(variants, subject+" with "+strings.Join(q.Features, " "))
	}

	return fn.Unique(variants)
}
