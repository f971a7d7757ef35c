package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docai-tools/invoice-reconciler/internal/models"
	"github.com/docai-tools/invoice-reconciler/internal/service"
)

// Mock services

type mockReview struct {
	acceptFunc func(ctx context.Context, req service.AcceptRequest) (*service.AcceptedReview, error)
	commitFunc func(ctx context.Context, accepted *service.AcceptedReview) (*models.GoldStamp, error)
	rejectFunc func(ctx context.Context, invoiceID, reviewedBy, notes string) error
}

func (m *mockReview) Accept(ctx context.Context, req service.AcceptRequest) (*service.AcceptedReview, error) {
	if m.acceptFunc != nil {
		return m.acceptFunc(ctx, req)
	}
	return &service.AcceptedReview{InvoiceID: req.InvoiceID}, nil
}

func (m *mockReview) Commit(ctx context.Context, accepted *service.AcceptedReview) (*models.GoldStamp, error) {
	if m.commitFunc != nil {
		return m.commitFunc(ctx, accepted)
	}
	return &models.GoldStamp{
		ReviewedBy: "alice",
		ReviewedAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	}, nil
}

func (m *mockReview) Reject(ctx context.Context, invoiceID, reviewedBy, notes string) error {
	if m.rejectFunc != nil {
		return m.rejectFunc(ctx, invoiceID, reviewedBy, notes)
	}
	return nil
}

type mockMetrics struct {
	getMetricsFunc func(ctx context.Context) (*models.ReconciliationMetrics, error)
}

func (m *mockMetrics) GetMetrics(ctx context.Context) (*models.ReconciliationMetrics, error) {
	if m.getMetricsFunc != nil {
		return m.getMetricsFunc(ctx)
	}
	return &models.ReconciliationMetrics{TotalInvoiceCount: 2}, nil
}

type mockQueue struct {
	queueFunc    func(ctx context.Context, statusFilter string) ([]models.ReviewQueueEntry, error)
	getEntryFunc func(ctx context.Context, invoiceID string) (*models.ReviewQueueEntry, error)
}

func (m *mockQueue) Queue(ctx context.Context, statusFilter string) ([]models.ReviewQueueEntry, error) {
	if m.queueFunc != nil {
		return m.queueFunc(ctx, statusFilter)
	}
	return []models.ReviewQueueEntry{}, nil
}

func (m *mockQueue) GetEntry(ctx context.Context, invoiceID string) (*models.ReviewQueueEntry, error) {
	if m.getEntryFunc != nil {
		return m.getEntryFunc(ctx, invoiceID)
	}
	return nil, nil
}

type mockBronze struct {
	snapshot *models.BronzeSnapshot
}

func (m *mockBronze) GetSnapshot(ctx context.Context, invoiceID string) *models.BronzeSnapshot {
	if m.snapshot != nil {
		return m.snapshot
	}
	return &models.BronzeSnapshot{InvoiceID: invoiceID}
}

type mockGold struct {
	items []models.LineItem
	total *models.InvoiceTotal
}

func (m *mockGold) GetItems(ctx context.Context, invoiceID string) ([]models.LineItem, error) {
	return m.items, nil
}

func (m *mockGold) GetTotal(ctx context.Context, invoiceID string) (*models.InvoiceTotal, error) {
	return m.total, nil
}

type mockInsights struct {
	askFunc func(ctx context.Context, question string) (*models.InsightResult, error)
}

func (m *mockInsights) FraudRisk(ctx context.Context, invoiceID string) (*models.FraudAssessment, error) {
	return &models.FraudAssessment{RiskLevel: models.RiskLow, Parsed: true}, nil
}

func (m *mockInsights) Categorize(ctx context.Context, invoiceID string) (*models.CategoryResult, error) {
	return &models.CategoryResult{Category: "Other"}, nil
}

func (m *mockInsights) Ask(ctx context.Context, question string) (*models.InsightResult, error) {
	if m.askFunc != nil {
		return m.askFunc(ctx, question)
	}
	return &models.InsightResult{Answer: "ok", Parsed: true}, nil
}

func (m *mockInsights) SpendInsights(ctx context.Context) (*models.InsightResult, error) {
	return &models.InsightResult{Answer: "flat", Parsed: true}, nil
}

type mockStore struct {
	saveFunc func(ctx context.Context, fileName string, content []byte) error
	getFunc  func(ctx context.Context, fileName string) ([]byte, error)
}

func (m *mockStore) Save(ctx context.Context, fileName string, content []byte) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, fileName, content)
	}
	return nil
}

func (m *mockStore) Get(ctx context.Context, fileName string) ([]byte, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, fileName)
	}
	return []byte("%PDF"), nil
}

func (m *mockStore) List(ctx context.Context) ([]string, error) {
	return []string{"inv001.pdf"}, nil
}

type mockPager struct{}

func (m *mockPager) PageCount(document []byte) (int, error) {
	return 2, nil
}

func (m *mockPager) RenderPage(document []byte, page int) ([]byte, error) {
	return []byte("PNG"), nil
}

type mockReport struct{}

func (m *mockReport) Write(ctx context.Context, w io.Writer) error {
	_, err := w.Write([]byte("xlsx"))
	return err
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type testServer struct {
	server   *Server
	review   *mockReview
	queue    *mockQueue
	gold     *mockGold
	insights *mockInsights
	store    *mockStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		review:   &mockReview{},
		queue:    &mockQueue{},
		gold:     &mockGold{},
		insights: &mockInsights{},
		store:    &mockStore{},
	}

	handlers := NewHandlers(
		ts.review,
		&mockMetrics{},
		ts.queue,
		&mockBronze{},
		ts.gold,
		ts.insights,
		ts.store,
		&mockPager{},
		&mockReport{},
		&mockLogger{},
	)
	ts.server = NewServer(DefaultServerConfig(), handlers, &mockLogger{})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandlers_HealthCheck(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeResponse(t, w).Success)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHandlers_GetMetrics(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/metrics", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
}

func TestHandlers_ListQueue(t *testing.T) {
	ts := newTestServer(t)

	t.Run("default filter is All", func(t *testing.T) {
		var seenFilter string
		ts.queue.queueFunc = func(_ context.Context, statusFilter string) ([]models.ReviewQueueEntry, error) {
			seenFilter = statusFilter
			return []models.ReviewQueueEntry{{InvoiceID: "INV-001"}}, nil
		}

		w := ts.do(t, http.MethodGet, "/api/invoices", nil, "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, models.StatusFilterAll, seenFilter)
	})

	t.Run("invalid status filter is rejected", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/invoices?status=Bogus", nil, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, decodeResponse(t, w).Success)
	})
}

func TestHandlers_GetInvoice(t *testing.T) {
	ts := newTestServer(t)

	t.Run("not found when nothing exists anywhere", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/invoices/INV-404", nil, "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("found when a queue entry exists", func(t *testing.T) {
		ts.queue.getEntryFunc = func(_ context.Context, invoiceID string) (*models.ReviewQueueEntry, error) {
			return &models.ReviewQueueEntry{InvoiceID: invoiceID}, nil
		}

		w := ts.do(t, http.MethodGet, "/api/invoices/INV-001", nil, "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decodeResponse(t, w).Success)
	})
}

func TestHandlers_AcceptInvoice(t *testing.T) {
	ts := newTestServer(t)

	t.Run("accept and commit succeed", func(t *testing.T) {
		var seen service.AcceptRequest
		ts.review.acceptFunc = func(_ context.Context, req service.AcceptRequest) (*service.AcceptedReview, error) {
			seen = req
			return &service.AcceptedReview{InvoiceID: req.InvoiceID}, nil
		}

		body := `{"source": "document_ai", "reviewed_by": "alice", "notes": "ok"}`
		w := ts.do(t, http.MethodPost, "/api/invoices/INV-001/accept", strings.NewReader(body), "application/json")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "INV-001", seen.InvoiceID)
		assert.Equal(t, models.SourceDocumentAI, seen.Source)
		assert.Equal(t, "alice", seen.ReviewedBy)
	})

	t.Run("missing reviewer fails binding", func(t *testing.T) {
		body := `{"source": "document_ai"}`
		w := ts.do(t, http.MethodPost, "/api/invoices/INV-001/accept", strings.NewReader(body), "application/json")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("validation errors map to 400", func(t *testing.T) {
		ts.review.acceptFunc = func(context.Context, service.AcceptRequest) (*service.AcceptedReview, error) {
			return nil, service.ErrNoItems
		}

		body := `{"source": "transactional", "reviewed_by": "alice"}`
		w := ts.do(t, http.MethodPost, "/api/invoices/INV-001/accept", strings.NewReader(body), "application/json")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("concurrent review maps to 409", func(t *testing.T) {
		ts.review.acceptFunc = nil
		ts.review.commitFunc = func(context.Context, *service.AcceptedReview) (*models.GoldStamp, error) {
			return nil, service.ErrConcurrentReview
		}

		body := `{"source": "transactional", "reviewed_by": "alice"}`
		w := ts.do(t, http.MethodPost, "/api/invoices/INV-001/accept", strings.NewReader(body), "application/json")

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestHandlers_RejectInvoice(t *testing.T) {
	ts := newTestServer(t)

	var seenReviewer string
	ts.review.rejectFunc = func(_ context.Context, _, reviewedBy, _ string) error {
		seenReviewer = reviewedBy
		return nil
	}

	body := `{"reviewed_by": "alice", "notes": "both wrong"}`
	w := ts.do(t, http.MethodPost, "/api/invoices/INV-001/reject", strings.NewReader(body), "application/json")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", seenReviewer)
}

func TestHandlers_GetDocumentPage(t *testing.T) {
	ts := newTestServer(t)

	t.Run("no queue entry means no document", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/invoices/INV-001/document", nil, "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("renders the requested page", func(t *testing.T) {
		ts.queue.getEntryFunc = func(_ context.Context, invoiceID string) (*models.ReviewQueueEntry, error) {
			return &models.ReviewQueueEntry{InvoiceID: invoiceID, FileName: "inv001.pdf"}, nil
		}

		w := ts.do(t, http.MethodGet, "/api/invoices/INV-001/document?page=1", nil, "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
		assert.Equal(t, "2", w.Header().Get("X-Page-Count"))
	})

	t.Run("bad page number", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/invoices/INV-001/document?page=abc", nil, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandlers_AskAssistant(t *testing.T) {
	ts := newTestServer(t)

	var seenQuestion string
	ts.insights.askFunc = func(_ context.Context, question string) (*models.InsightResult, error) {
		seenQuestion = question
		return &models.InsightResult{Answer: "answer", Parsed: true}, nil
	}

	body := `{"question": "how many pending?"}`
	w := ts.do(t, http.MethodPost, "/api/assistant", strings.NewReader(body), "application/json")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "how many pending?", seenQuestion)
}

func TestHandlers_UploadDocument(t *testing.T) {
	ts := newTestServer(t)

	t.Run("stores the uploaded file", func(t *testing.T) {
		var savedName string
		var savedContent []byte
		ts.store.saveFunc = func(_ context.Context, fileName string, content []byte) error {
			savedName = fileName
			savedContent = content
			return nil
		}

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "inv001.pdf")
		require.NoError(t, err)
		_, err = fw.Write([]byte("%PDF fake"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		w := ts.do(t, http.MethodPost, "/api/documents", &buf, mw.FormDataContentType())

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "inv001.pdf", savedName)
		assert.Equal(t, []byte("%PDF fake"), savedContent)
	})

	t.Run("missing file field", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/documents", nil, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandlers_ExportReport(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/reports/reconciliation.xlsx", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "reconciliation.xlsx")
	assert.Equal(t, "xlsx", w.Body.String())
}
