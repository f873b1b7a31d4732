package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aryanmundre/MaqroDealerships-sub000/engine/domain"
	"github.com/aryanmundre/MaqroDealerships-sub000/engine/retrieval"
	"github.com/aryanmundre/MaqroDealerships-sub000/engine/semantic"
)

// SearchRequest is the JSON body for the search endpoints.
type SearchRequest struct {
	Query        string `json:"query"`
	DealershipID string `json:"dealership_id"`
	TopK         int    `json:"top_k,omitempty"`
}

// SearchResponse is the JSON response for the search endpoints.
type SearchResponse struct {
	Results []semantic.SearchResult `json:"results"`
	Count   int                     `json:"count"`
}

// IndexRequest is the JSON body for rebuild/backfill.
type IndexRequest struct {
	DealershipID string `json:"dealership_id"`
}

// IndexResponse reports how many items were embedded.
type IndexResponse struct {
	Indexed int `json:"indexed"`
}

func registerRoutes(mux *http.ServeMux, svc *retrieval.Service, logger *slog.Logger) {
	mux.HandleFunc("GET /api/health", handleHealth(svc))
	mux.HandleFunc("POST /api/search", handleSearch(svc.Search, logger))
	mux.HandleFunc("POST /api/search/hybrid", handleSearch(svc.SearchHybrid, logger))
	mux.HandleFunc("POST /api/index/rebuild", handleIndexOp(svc.RebuildIndex, logger))
	mux.HandleFunc("POST /api/index/backfill", handleIndexOp(svc.BackfillMissing, logger))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain sentinels to HTTP statuses; anything else is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyQuery),
		errors.Is(err, domain.ErrTenantRequired),
		errors.Is(err, domain.ErrInvalidItem),
		errors.Is(err, domain.ErrEmptyInventory):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotInitialized):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func handleSearch(search func(ctx context.Context, query, tenantID string, k int) ([]semantic.SearchResult, error), logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		results, err := search(r.Context(), req.Query, req.DealershipID, req.TopK)
		if err != nil {
			status := statusFor(err)
			if status == http.StatusInternalServerError {
				logger.Error("search failed", "err", err)
				writeError(w, status, "internal server error")
				return
			}
			writeError(w, status, err.Error())
			return
		}
		if results == nil {
			results = []semantic.SearchResult{}
		}
		writeJSON(w, http.StatusOK, SearchResponse{Results: results, Count: len(results)})
	}
}

func handleIndexOp(op func(ctx context.Context, tenantID string) (int, error), logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req IndexRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		n, err := op(r.Context(), req.DealershipID)
		if err != nil {
			status := statusFor(err)
			if status == http.StatusInternalServerError {
				logger.Error("index operation failed", "err", err)
				writeError(w, status, "internal server error")
				return
			}
			writeError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, IndexResponse{Indexed: n})
	}
}

// HealthResponse reports service and index state.
type HealthResponse struct {
	Status string           `json:"status"`
	Stats  *retrieval.Stats `json:"stats,omitempty"`
}

func handleHealth(svc *retrieval.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok"}
		if !svc.Ready() {
			resp.Status = "starting"
		}
		if tenant := r.URL.Query().Get("dealership_id"); tenant != "" {
			if st, err := svc.Stats(r.Context(), tenant); err == nil {
				resp.Stats = &st
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
