package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/opinionworker/internal/opinion"
	"sjsage522/opinionworker/internal/product"
	"sjsage522/opinionworker/internal/stats"
	"sjsage522/opinionworker/internal/store"
	"sjsage522/opinionworker/pkg/errors"
	"sjsage522/opinionworker/services/metrics"
)

type fakeExtractor struct {
	mu     sync.Mutex
	result *product.Result
	err    error
	calls  []string
}

func (f *fakeExtractor) Extract(_ context.Context, id string) (*product.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	return f.result, f.err
}

func sampleProduct(id string) *product.Product {
	records := []opinion.Record{
		{
			ID:             "r1",
			Recommendation: opinion.RecommendationYes,
			Stars:          5,
			ProsEN:         []string{"quiet", "cheap"},
			Published:      time.Date(2023, 5, 4, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:             "r2",
			Recommendation: opinion.RecommendationNo,
			Stars:          2,
			ProsEN:         []string{"quiet"},
			ConsEN:         []string{"heavy"},
			Published:      time.Date(2023, 5, 5, 12, 0, 0, 0, time.UTC),
		},
	}
	return &product.Product{
		ID:       id,
		Name:     "Odkurzacz X",
		Opinions: records,
		Stats:    stats.Aggregate(records),
	}
}

func newTestServer(t *testing.T, ex product.ProductExtractor) (*httptest.Server, *store.FileStore) {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	srv := New(ex, fs, metrics.NewRegistry(), zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, fs
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t, &fakeExtractor{})

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, &fakeExtractor{})

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestInvalidProductID(t *testing.T) {
	ex := &fakeExtractor{}
	ts, _ := newTestServer(t, ex)

	for _, path := range []string{"/products/abc", "/products/123", "/products/12345678901/opinions"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
		assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
		var p problem
		decode(t, resp, &p)
		assert.Equal(t, http.StatusBadRequest, p.Status)
	}

	resp, err := http.Post(ts.URL+"/products/12ab56/extract", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, ex.calls, "extractor must not run for invalid ids")
}

func TestUnknownProduct(t *testing.T) {
	ts, _ := newTestServer(t, &fakeExtractor{})

	resp, err := http.Get(ts.URL + "/products/123456")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/products/123456/opinions")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestExtractThenRead(t *testing.T) {
	p := sampleProduct("123456")
	ex := &fakeExtractor{result: &product.Result{
		Product: p,
		Pages:   2,
		Failures: []product.Failure{
			{RecordID: "r3", Page: 1, Reason: errors.ErrorTypeMalformed, Err: errors.NewMalformed("r3", "stars", nil)},
		},
	}}
	ts, fs := newTestServer(t, ex)

	resp, err := http.Post(ts.URL+"/products/123456/extract", "", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view map[string]interface{}
	decode(t, resp, &view)
	assert.Equal(t, "123456", view["product_id"])
	assert.Equal(t, "Odkurzacz X", view["product_name"])
	assert.EqualValues(t, 2, view["pages"])
	failures := view["failures"].([]interface{})
	require.Len(t, failures, 1)
	assert.Equal(t, "malformed", failures[0].(map[string]interface{})["reason"])
	topPros := view["top_pros"].([]interface{})
	require.NotEmpty(t, topPros)
	assert.Equal(t, "quiet", topPros[0].(map[string]interface{})["text"])
	assert.Equal(t, []string{"123456"}, ex.calls)

	assert.True(t, fs.Exists("123456"))

	resp, err = http.Get(ts.URL + "/products/123456")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var meta map[string]interface{}
	decode(t, resp, &meta)
	st := meta["stats"].(map[string]interface{})
	assert.EqualValues(t, 2, st["opinions_count"])
	assert.InDelta(t, 3.5, st["average_stars"], 0.001)

	resp, err = http.Get(ts.URL + "/products/123456/opinions")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var records []opinion.Record
	decode(t, resp, &records)
	require.Len(t, records, 2)
	assert.Equal(t, "r1", records[0].ID)
	assert.Equal(t, opinion.RecommendationNo, records[1].Recommendation)

	resp, err = http.Get(ts.URL + "/products")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []map[string]interface{}
	decode(t, resp, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "123456", list[0]["product_id"])
}

func TestExtractFetchFailure(t *testing.T) {
	ex := &fakeExtractor{err: errors.NewStatus("http://example.test/123456", http.StatusServiceUnavailable)}
	ts, fs := newTestServer(t, ex)

	resp, err := http.Post(ts.URL+"/products/123456/extract", "", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	var p problem
	decode(t, resp, &p)
	assert.True(t, strings.Contains(p.Detail, "503"))
	assert.False(t, fs.Exists("123456"))
}

func TestExtractAbortedOnMalformed(t *testing.T) {
	p := sampleProduct("654321")
	ex := &fakeExtractor{
		result: &product.Result{Product: p, Pages: 1},
		err:    errors.NewMalformed("r9", "stars", nil),
	}
	ts, fs := newTestServer(t, ex)

	resp, err := http.Post(ts.URL+"/products/654321/extract", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.False(t, fs.Exists("654321"), "aborted runs are not stored")
}

// countingStore reports nothing stored and counts reads that reach it
type countingStore struct {
	mu    sync.Mutex
	reads int
}

func (c *countingStore) Save(*product.Product) error { return nil }
func (c *countingStore) List() ([]string, error) { return nil, nil }
func (c *countingStore) Exists(string) bool { return false }

func (c *countingStore) Load(id string) (*product.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	return nil, errors.NewStorage(id, "read failed", nil)
}

func (c *countingStore) LoadMeta(id string) (*product.Product, error) {
	return c.Load(id)
}

func TestMissingProductIsNotRead(t *testing.T) {
	cs := &countingStore{}
	ts := httptest.NewServer(New(&fakeExtractor{}, cs, nil, zerolog.Nop()).Handler())
	defer ts.Close()

	for _, path := range []string{"/products/123456", "/products/123456/opinions"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
	assert.Zero(t, cs.reads)
}
