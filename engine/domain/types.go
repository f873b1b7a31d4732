// Package domain defines core domain types, constants, and validation for the
// Maqro retrieval engine. It acts as the validation gate at engine entry points.
package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ItemStatus is the lifecycle status of an inventory item.
type ItemStatus string

const (
	StatusActive  ItemStatus = "active"
	StatusSold    ItemStatus = "sold"
	StatusPending ItemStatus = "pending"
)

// ValidItemStatuses is the set of recognised lifecycle statuses.
var ValidItemStatuses = map[ItemStatus]bool{
	StatusActive: true, StatusSold: true, StatusPending: true,
}

// InventoryItem is a single vehicle listing owned by a dealership.
// Price is in whole dollars; 0 means the source price was missing or
// non-numeric ("TBD", "Call", ...).
type InventoryItem struct {
	ID           string     `json:"id" db:"id"`
	DealershipID string     `json:"dealership_id" db:"dealership_id"`
	Make         string     `json:"make" db:"make"`
	Model        string     `json:"model" db:"model"`
	Year         int        `json:"year" db:"year"`
	Price        int        `json:"price" db:"price"`
	Mileage      int        `json:"mileage" db:"mileage"`
	Color        string     `json:"color,omitempty" db:"color"`
	Description  string     `json:"description,omitempty" db:"description"`
	Features     string     `json:"features,omitempty" db:"features"`
	Condition    string     `json:"condition,omitempty" db:"condition"`
	Status       ItemStatus `json:"status" db:"status"`
}

// FormatForEmbedding renders the item as the text its embedding is built
// from. Changing this layout invalidates every stored vector, so it stays
// byte-compatible with what the indexer wrote.
func (v InventoryItem) FormatForEmbedding() string {
	parts := []string{fmt.Sprintf("%d %s %s", v.Year, v.Make, v.Model)}

	if v.Price > 0 {
		parts = append(parts, "$"+groupThousands(v.Price))
	} else {
		parts = append(parts, "Price available upon request")
	}
	if v.Features != "" {
		parts = append(parts, v.Features)
	}
	if v.Description != "" {
		parts = append(parts, v.Description)
	}
	if v.Mileage > 0 {
		parts = append(parts, groupThousands(v.Mileage)+" miles")
	}
	if v.Color != "" {
		parts = append(parts, "Color: "+v.Color)
	}
	if v.Condition != "" {
		parts = append(parts, "Condition: "+v.Condition)
	}
	return strings.Join(parts, ". ")
}

// DedupKey identifies the physical listing for result deduplication:
// two entries with the same year/make/model/price are the same car reached
// through different query variants.
func (v InventoryItem) DedupKey() string {
	return fmt.Sprintf("%d-%s-%s-%d",
		v.Year, strings.ToLower(v.Make), strings.ToLower(v.Model), v.Price)
}

// ParsePrice converts a source price string to whole dollars. Currency
// symbols, commas, and decimal cents are stripped; anything non-numeric
// ("TBD", "N/A", "Call") degrades to 0 rather than failing.
func ParsePrice(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return int(f)
}

// groupThousands formats n with comma separators (12345 -> "12,345").
func groupThousands(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
