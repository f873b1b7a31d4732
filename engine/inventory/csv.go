package inventory

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/aryanmundre/MaqroDealerships-sub000/engine/domain"
)

// CSVSource reads inventory from a dealership CSV export. Header names are
// matched case-insensitively; recognised columns are id, make, model, year,
// price, mileage, color, description, features, condition, status. Rows
// missing make, model, or a plausible year are logged and skipped. Prices
// like "TBD" or "Call" degrade to 0.
type CSVSource struct {
	path string
	log  *slog.Logger
}

// NewCSVSource creates a source reading from path.
func NewCSVSource(path string, log *slog.Logger) *CSVSource {
	if log == nil {
		log = slog.Default()
	}
	return &CSVSource{path: path, log: log}
}

// Items implements Source. The dealership id is stamped onto every row; the
// CSV itself carries no tenancy.
func (s *CSVSource) Items(ctx context.Context, dealershipID string) ([]domain.InventoryItem, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("inventory: open %s: %w", s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("inventory: read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["make"]; !ok {
		return nil, fmt.Errorf("inventory: %s has no make column", s.path)
	}

	var items []domain.InventoryItem
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			s.log.Warn("skipping malformed csv row", "file", s.path, "line", line, "error", err)
			continue
		}

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		item := domain.InventoryItem{
			ID:           field("id"),
			DealershipID: dealershipID,
			Make:         field("make"),
			Model:        field("model"),
			Price:        domain.ParsePrice(field("price")),
			Mileage:      parseCount(field("mileage")),
			Color:        field("color"),
			Description:  field("description"),
			Features:     field("features"),
			Condition:    field("condition"),
			Status:       domain.ItemStatus(strings.ToLower(field("status"))),
		}
		item.Year, _ = strconv.Atoi(field("year"))
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if item.Status == "" {
			item.Status = domain.StatusActive
		}

		if err := domain.ValidateItem(item); err != nil {
			s.log.Warn("skipping invalid inventory row", "file", s.path, "line", line, "error", err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// parseCount parses a non-negative integer count, tolerating commas and a
// trailing unit word ("18,000 miles"). Anything else degrades to 0.
func parseCount(s string) int {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0
	}
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, ",", "")
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
