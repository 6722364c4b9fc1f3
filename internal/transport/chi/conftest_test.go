package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelf/internal/domain"
	"github.com/kailas-cloud/shelf/internal/domain/popular"
	"github.com/kailas-cloud/shelf/internal/domain/product"
	domrec "github.com/kailas-cloud/shelf/internal/domain/recommendation"
	"github.com/kailas-cloud/shelf/internal/domain/search/pagination"
	"github.com/kailas-cloud/shelf/internal/domain/search/request"
	"github.com/kailas-cloud/shelf/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/shelf/internal/usecase/health"
)

type mockSearcher struct {
	lastReq    *request.Request
	resp       result.Response
	popular    popular.Response
	popularErr error
	lastLimit  int
	cleared    int
	clearFails bool
}

func (m *mockSearcher) Search(_ context.Context, req *request.Request) result.Response {
	m.lastReq = req
	if !m.resp.Success {
		return result.Failed(req.Query())
	}
	resp := m.resp
	resp.Query = req.Query()
	return resp
}

func (m *mockSearcher) PopularSearches(_ context.Context, limit int) (popular.Response, error) {
	m.lastLimit = limit
	if limit <= 0 {
		return popular.Response{}, domain.NewValidationError("limit", "must be positive")
	}
	return m.popular, m.popularErr
}

func (m *mockSearcher) ClearCache(_ context.Context) result.CacheClearResponse {
	m.cleared++
	if m.clearFails {
		return result.CacheClearResponse{Success: false, Message: "Failed to clear cache"}
	}
	return result.CacheClearResponse{Success: true, Message: "Cache cleared successfully"}
}

type mockRecommender struct {
	userID  string
	history []string
}

func (m *mockRecommender) Recommend(_ context.Context, userID string, history []string) (domrec.Response, error) {
	m.userID, m.history = userID, history
	if strings.TrimSpace(userID) == "" {
		return domrec.Response{}, domain.NewValidationError("user_id", "is required")
	}
	return domrec.Response{
		Success:     true,
		UserID:      userID,
		Source:      domrec.SourcePopularityFallback,
		HistoryUsed: []string{},
		Results:     []domrec.Product{},
	}, nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

type testServer struct {
	router http.Handler
	search *mockSearcher
	recs   *mockRecommender
	health *mockHealth
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	pg, _ := pagination.New(1, 2, 1)
	ts := &testServer{
		search: &mockSearcher{resp: result.Response{
			Success:    true,
			Results:    result.Results{Product: []product.Document{{ID: "p1", Score: 0.9, ScoreOriginal: 0.9}}},
			Pagination: pg,
		}},
		recs: &mockRecommender{},
		health: &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
		}},
	}
	srv := NewServer(ts.search, ts.recs, ts.health,
		Options{DefaultPageSize: 20, MaxPageSize: 100, DefaultPopularLimit: 10}, zap.NewNop())
	r := chi.NewRouter()
	srv.Register(r)
	ts.router = r
	return ts
}

func (ts *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}
