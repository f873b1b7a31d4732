package embed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/aryanmundre/MaqroDealerships-sub000/pkg/fn"
)

func fastRetry() fn.RetryOpts {
	return fn.RetryOpts{MaxAttempts: 3, InitialWait: 0, MaxWait: 0}
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

// respond writes a well-formed embeddings response for the given inputs,
// deriving each vector from the input length so tests can verify mapping.
func respond(w http.ResponseWriter, inputs []string) {
	type item struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	}
	data := make([]item, len(inputs))
	for i, in := range inputs {
		data[i] = item{Index: i, Embedding: []float32{float32(len(in)), 1}}
	}
	json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func decodeInputs(r *http.Request) []string {
	var req struct {
		Input []string `json:"input"`
	}
	json.NewDecoder(r.Body).Decode(&req)
	return req.Input
}

func TestClient_EmbedTexts(t *testing.T) {
	var calls int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		respond(w, decodeInputs(r))
	})

	opts := DefaultOptions("test-model")
	opts.Retry = fastRetry()
	c := NewClient(srv.URL, "test-key", opts)

	vecs, err := c.EmbedTexts(context.Background(), []string{"ab", "cdef"})
	if err != nil {
		t.Fatalf("EmbedTexts: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vecs))
	}
	if vecs[0][0] != 2 || vecs[1][0] != 4 {
		t.Errorf("vectors out of order: %v", vecs)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestClient_Batching(t *testing.T) {
	var calls int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		inputs := decodeInputs(r)
		if len(inputs) > 2 {
			t.Errorf("chunk size %d exceeds batch size", len(inputs))
		}
		respond(w, inputs)
	})

	opts := DefaultOptions("test-model")
	opts.BatchSize = 2
	opts.Retry = fastRetry()
	c := NewClient(srv.URL, "", opts)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := c.EmbedTexts(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedTexts: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vecs), len(texts))
	}
	for i, txt := range texts {
		if vecs[i][0] != float32(len(txt)) {
			t.Errorf("vector %d mismapped: %v", i, vecs[i])
		}
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestClient_EmptyText(t *testing.T) {
	c := NewClient("http://unused", "", DefaultOptions("m"))
	for _, texts := range [][]string{nil, {}, {""}, {"ok", "   "}} {
		if _, err := c.EmbedTexts(context.Background(), texts); !errors.Is(err, ErrEmptyText) {
			t.Errorf("EmbedTexts(%q) err = %v, want ErrEmptyText", texts, err)
		}
	}
}

func TestClient_RetriesTransientFailure(t *testing.T) {
	var calls int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		respond(w, decodeInputs(r))
	})

	opts := DefaultOptions("m")
	opts.Retry = fastRetry()
	c := NewClient(srv.URL, "", opts)

	if _, err := c.EmbedText(context.Background(), "hello"); err != nil {
		t.Fatalf("EmbedText after retries: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestClient_CountMismatch(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		respond(w, []string{"only one"})
	})
	opts := DefaultOptions("m")
	opts.Retry = fn.RetryOpts{MaxAttempts: 1}
	c := NewClient(srv.URL, "", opts)

	if _, err := c.EmbedTexts(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error on vector count mismatch")
	}
}

// fakeProvider counts upstream calls for cache tests.
type fakeProvider struct {
	calls int
	fail  bool
}

func (f *fakeProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.fail {
		return nil, fmt.Errorf("upstream down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func TestCached_HitAndMiss(t *testing.T) {
	inner := &fakeProvider{}
	c, err := NewCached(inner, 16)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if _, err := c.EmbedText(ctx, "hello"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.EmbedText(ctx, "hello"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", inner.calls)
	}

	// Batch with one hit and one miss only sends the miss upstream.
	vecs, err := c.EmbedTexts(ctx, []string{"hello", "world!!"})
	if err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Errorf("upstream calls = %d, want 2", inner.calls)
	}
	if vecs[0][0] != 5 || vecs[1][0] != 7 {
		t.Errorf("batch result mismapped: %v", vecs)
	}
}

func TestCached_Eviction(t *testing.T) {
	inner := &fakeProvider{}
	c, err := NewCached(inner, 2)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, s := range []string{"a", "b", "c"} {
		if _, err := c.EmbedText(ctx, s); err != nil {
			t.Fatal(err)
		}
	}
	if c.Len() != 2 {
		t.Errorf("cache len = %d, want 2", c.Len())
	}
	// "a" was evicted; re-embedding it hits upstream again.
	if _, err := c.EmbedText(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 4 {
		t.Errorf("upstream calls = %d, want 4", inner.calls)
	}
}

func TestCached_UpstreamErrorNotCached(t *testing.T) {
	inner := &fakeProvider{fail: true}
	c, err := NewCached(inner, 4)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.EmbedText(context.Background(), "x"); err == nil {
		t.Fatal("expected upstream error")
	}
	if c.Len() != 0 {
		t.Errorf("cache len = %d, want 0", c.Len())
	}
}
