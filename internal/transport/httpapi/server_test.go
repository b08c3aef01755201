package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/webcat/search-service/internal/domain"
	healthuc "github.com/webcat/search-service/internal/usecase/health"
	indexeruc "github.com/webcat/search-service/internal/usecase/indexer"
	searchuc "github.com/webcat/search-service/internal/usecase/search"
)

type mockSearcher struct {
	page     searchuc.Page
	err      error
	gotQuery string
	gotPage  int
	gotLimit int
	calls    int
}

func (m *mockSearcher) Search(_ context.Context, query string, page, limit int) (searchuc.Page, error) {
	m.calls++
	m.gotQuery = query
	m.gotPage = page
	m.gotLimit = limit
	return m.page, m.err
}

type mockIndexer struct {
	updated   int
	updateErr error
	report    indexeruc.Report
	reportErr error
	gotIDs    []int64
}

func (m *mockIndexer) UpdateItemEmbeddings(_ context.Context, itemIDs []int64) (int, error) {
	m.gotIDs = itemIDs
	if m.updateErr != nil {
		return 0, m.updateErr
	}
	return m.updated, nil
}

func (m *mockIndexer) ReindexAll(_ context.Context) (indexeruc.Report, error) {
	return m.report, m.reportErr
}

type mockServerEmbedder struct {
	result domain.EmbeddingResult
	err    error
}

func (m *mockServerEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return m.result, m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report {
	return m.report
}

type serverMocks struct {
	search  *mockSearcher
	indexer *mockIndexer
	embed   *mockServerEmbedder
	health  *mockHealth
}

func newTestServer(t *testing.T) (*chi.Mux, *serverMocks) {
	t.Helper()
	mocks := &serverMocks{
		search:  &mockSearcher{},
		indexer: &mockIndexer{},
		embed:   &mockServerEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}},
		health: &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
		}},
	}
	srv := NewServer(mocks.search, mocks.indexer, mocks.embed, mocks.health, zap.NewNop())
	r := chi.NewRouter()
	srv.RegisterRoutes(r)
	return r, mocks
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestSearchEndpoint(t *testing.T) {
	r, mocks := newTestServer(t)
	mocks.search.page = searchuc.Page{
		Results: []domain.SearchResult{{ItemID: 7, Title: "Oak dresser", Score: 0.9}},
		Total:   1, Page: 1, Limit: 20, Pages: 1, Query: "oak",
	}

	rr := doRequest(t, r, "GET", "/search?q=oak&page=1&limit=20", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rr.Code, rr.Body.String())
	}

	var page searchuc.Page
	if err := json.NewDecoder(rr.Body).Decode(&page); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if page.Total != 1 || len(page.Results) != 1 || page.Results[0].ItemID != 7 {
		t.Errorf("page = %+v", page)
	}
	if mocks.search.gotQuery != "oak" || mocks.search.gotPage != 1 || mocks.search.gotLimit != 20 {
		t.Errorf("service called with (%q, %d, %d)",
			mocks.search.gotQuery, mocks.search.gotPage, mocks.search.gotLimit)
	}
}

func TestSearchEndpointMissingQuery(t *testing.T) {
	r, mocks := newTestServer(t)

	rr := doRequest(t, r, "GET", "/search", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	if mocks.search.calls != 0 {
		t.Error("search service called without a query")
	}
}

func TestSearchEndpointDefaults(t *testing.T) {
	r, mocks := newTestServer(t)

	rr := doRequest(t, r, "GET", "/search?q=oak&page=abc", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if mocks.search.gotPage != 1 {
		t.Errorf("page = %d, want fallback 1 for malformed value", mocks.search.gotPage)
	}
	if mocks.search.gotLimit != 0 {
		t.Errorf("limit = %d, want 0 so the service applies its default", mocks.search.gotLimit)
	}
}

func TestSearchEndpointNullSafeResults(t *testing.T) {
	r, _ := newTestServer(t)

	rr := doRequest(t, r, "GET", "/search?q=nothing", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"results":[]`) {
		t.Errorf("body = %s, want empty array not null", rr.Body.String())
	}
}

func TestSearchEndpointBackendUnavailable(t *testing.T) {
	r, mocks := newTestServer(t)
	mocks.search.err = domain.ErrSearchBackendUnavailable

	rr := doRequest(t, r, "GET", "/search?q=oak", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}

func TestEmbedEndpoint(t *testing.T) {
	r, _ := newTestServer(t)

	rr := doRequest(t, r, "POST", "/embed", `{"text":"oak dresser"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rr.Code, rr.Body.String())
	}

	var resp embedResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Dimensions != 3 || len(resp.Embedding) != 3 {
		t.Errorf("resp = %+v, want 3 dimensions", resp)
	}
}

func TestEmbedEndpointEmptyText(t *testing.T) {
	r, mocks := newTestServer(t)
	mocks.embed.err = domain.ErrEmptyText

	rr := doRequest(t, r, "POST", "/embed", `{"text":""}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestEmbedEndpointProviderFailure(t *testing.T) {
	r, mocks := newTestServer(t)
	mocks.embed.err = domain.ErrEmbeddingProviderError

	rr := doRequest(t, r, "POST", "/embed", `{"text":"oak"}`)
	if rr.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rr.Code)
	}
}

func TestEmbedEndpointBadBody(t *testing.T) {
	r, _ := newTestServer(t)

	rr := doRequest(t, r, "POST", "/embed", `{not json`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestUpdateEmbeddingsEndpoint(t *testing.T) {
	r, mocks := newTestServer(t)
	mocks.indexer.updated = 2

	rr := doRequest(t, r, "POST", "/update-embeddings", `{"itemIds":[1,2,3]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rr.Code, rr.Body.String())
	}

	var resp updateEmbeddingsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Updated != 2 {
		t.Errorf("Updated = %d, want 2", resp.Updated)
	}
	if len(mocks.indexer.gotIDs) != 3 {
		t.Errorf("service got ids %v, want 3 ids", mocks.indexer.gotIDs)
	}
}

func TestUpdateEmbeddingsEndpointMissingIDs(t *testing.T) {
	r, mocks := newTestServer(t)
	mocks.indexer.updateErr = domain.ErrInvalidItemIDs

	rr := doRequest(t, r, "POST", "/update-embeddings", `{}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestUpdateEmbeddingsEndpointEmptyList(t *testing.T) {
	r, mocks := newTestServer(t)

	rr := doRequest(t, r, "POST", "/update-embeddings", `{"itemIds":[]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rr.Code, rr.Body.String())
	}

	var resp updateEmbeddingsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Updated != 0 {
		t.Errorf("Updated = %d, want 0", resp.Updated)
	}
	if mocks.indexer.gotIDs == nil {
		t.Error("service must receive a non-nil empty list")
	}
}

func TestReindexEndpoint(t *testing.T) {
	r, mocks := newTestServer(t)
	mocks.indexer.report = indexeruc.Report{Processed: 24, Errors: 1, Total: 25}

	rr := doRequest(t, r, "POST", "/reindex", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp reindexResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Processed != 24 || resp.Errors != 1 || resp.Total != 25 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestReindexEndpointBackendFailure(t *testing.T) {
	r, mocks := newTestServer(t)
	mocks.indexer.reportErr = domain.ErrSearchBackendUnavailable

	rr := doRequest(t, r, "POST", "/reindex", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := newTestServer(t)

	rr := doRequest(t, r, "GET", "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp healthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("Status = %q, want ok", resp.Status)
	}
}

func TestHealthEndpointDegraded(t *testing.T) {
	r, mocks := newTestServer(t)
	mocks.health.report = healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckError},
	}

	rr := doRequest(t, r, "GET", "/health", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}

func TestUnknownErrorMapsTo500(t *testing.T) {
	r, mocks := newTestServer(t)
	mocks.search.err = context.DeadlineExceeded

	rr := doRequest(t, r, "GET", "/search?q=oak", "")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "internal error") {
		t.Errorf("body = %s, want generic message", rr.Body.String())
	}
}
