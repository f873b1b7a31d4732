package inventory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCSVSource_Items(t *testing.T) {
	path := writeCSV(t, `id,make,model,year,price,mileage,color,features,condition
v1,Volkswagen,Tiguan,2022,"$29,900","18,000 miles",white,panoramic sunroof,excellent
v2,Honda,CR-V,2021,TBD,42000,silver,awd,good
`)
	src := NewCSVSource(path, nil)
	items, err := src.Items(context.Background(), "dealer-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}

	got := items[0]
	if got.DealershipID != "dealer-1" {
		t.Errorf("DealershipID = %q", got.DealershipID)
	}
	if got.Make != "Volkswagen" || got.Model != "Tiguan" || got.Year != 2022 {
		t.Errorf("identity fields = %s %s %d", got.Make, got.Model, got.Year)
	}
	if got.Price != 29900 {
		t.Errorf("Price = %d, want 29900", got.Price)
	}
	if got.Mileage != 18000 {
		t.Errorf("Mileage = %d, want 18000", got.Mileage)
	}

	// "TBD" price degrades to 0 rather than dropping the row.
	if items[1].Price != 0 {
		t.Errorf("TBD price = %d, want 0", items[1].Price)
	}
}

func TestCSVSource_SkipsBadRows(t *testing.T) {
	path := writeCSV(t, `make,model,year,price
Toyota,Camry,2020,21000
,NoMake,2021,15000
Honda,,2019,17000
Ford,F-150,not-a-year,35000
Kia,Telluride,2023,39000
`)
	src := NewCSVSource(path, nil)
	items, err := src.Items(context.Background(), "dealer-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2 (bad rows skipped)", len(items))
	}
	if items[0].Make != "Toyota" || items[1].Make != "Kia" {
		t.Errorf("kept rows = %s, %s", items[0].Make, items[1].Make)
	}
	// Rows without an id column get a generated one.
	if items[0].ID == "" || items[0].ID == items[1].ID {
		t.Errorf("ids not generated uniquely: %q, %q", items[0].ID, items[1].ID)
	}
}

func TestCSVSource_MissingMakeColumn(t *testing.T) {
	path := writeCSV(t, "model,year\nCamry,2020\n")
	if _, err := NewCSVSource(path, nil).Items(context.Background(), "d1"); err == nil {
		t.Fatal("expected error for csv without make column")
	}
}

func TestCSVSource_MissingFile(t *testing.T) {
	if _, err := NewCSVSource("/nonexistent.csv", nil).Items(context.Background(), "d1"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"18,000 miles", 18000},
		{"42000", 42000},
		{"", 0},
		{"unknown", 0},
		{"-5", 0},
	}
	for _, tt := range tests {
		if got := parseCount(tt.in); got != tt.want {
			t.Errorf("parseCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
