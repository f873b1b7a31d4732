package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aryanmundre/MaqroDealerships-sub000/engine/domain"
	"github.com/aryanmundre/MaqroDealerships-sub000/engine/retrieval"
	"github.com/aryanmundre/MaqroDealerships-sub000/engine/semantic"
)

// stubProvider embeds by hashing words onto fixed dimensions so related
// texts score above zero and unrelated ones do not.
type stubProvider struct{ vocab map[string]int }

func (p *stubProvider) dim(w string) int {
	if p.vocab == nil {
		p.vocab = make(map[string]int)
	}
	if i, ok := p.vocab[w]; ok {
		return i
	}
	i := len(p.vocab) % 128
	p.vocab[w] = i
	return i
}

func (p *stubProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (p *stubProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, 128)
		for _, w := range strings.Fields(strings.ToLower(t)) {
			vec[p.dim(strings.Trim(w, ".,$?!"))]++
		}
		out[i] = vec
	}
	return out, nil
}

type listSource struct{ items []domain.InventoryItem }

func (s *listSource) Items(ctx context.Context, dealershipID string) ([]domain.InventoryItem, error) {
	return s.items, nil
}

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := &listSource{items: []domain.InventoryItem{
		{ID: "v1", DealershipID: "d1", Make: "Volkswagen", Model: "Tiguan",
			Year: 2022, Price: 29900, Color: "white", Status: domain.StatusActive},
		{ID: "v2", DealershipID: "d1", Make: "Toyota", Model: "Camry",
			Year: 2020, Price: 19500, Color: "black", Status: domain.StatusActive},
	}}
	opts := retrieval.DefaultOptions()
	opts.MinScore = 0.05
	svc := retrieval.New(semantic.NewFlatIndex(), &stubProvider{}, src, opts, logger, nil)
	if err := svc.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RebuildIndex(context.Background(), "d1"); err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	registerRoutes(mux, svc, logger)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandleSearch(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/search",
		`{"query":"volkswagen tiguan","dealership_id":"d1","top_k":5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count == 0 || resp.Results[0].Item.ID != "v1" {
		t.Errorf("results = %+v, want v1 first", resp.Results)
	}
}

func TestHandleSearch_BadRequests(t *testing.T) {
	mux := newTestMux(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"empty query", `{"query":"","dealership_id":"d1"}`},
		{"missing tenant", `{"query":"camry"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, mux, http.MethodPost, "/api/search/hybrid", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandleSearch_NoResultsIsEmptyList(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/search",
		`{"query":"submarine periscope","dealership_id":"d1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Results == nil || resp.Count != 0 {
		t.Errorf("want empty results array, got %s", rec.Body.String())
	}
}

func TestHandleIndexOps(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/index/rebuild", `{"dealership_id":"d1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("rebuild status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp IndexResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Indexed != 2 {
		t.Errorf("Indexed = %d, want 2", resp.Indexed)
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/index/backfill", `{"dealership_id":"d1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("backfill status = %d", rec.Code)
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Indexed != 0 {
		t.Errorf("backfill Indexed = %d, want 0", resp.Indexed)
	}
}

func TestHandleHealth(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health?dealership_id=d1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" {
		t.Errorf("Status = %q", resp.Status)
	}
	if resp.Stats == nil || resp.Stats.Entries != 2 || resp.Stats.Backend != "flat" {
		t.Errorf("Stats = %+v", resp.Stats)
	}
}
