package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docai-tools/invoice-reconciler/internal/models"
	"github.com/docai-tools/invoice-reconciler/internal/service"
)

// ReviewActions is the accept/commit/reject surface of the review service.
type ReviewActions interface {
	Accept(ctx context.Context, req service.AcceptRequest) (*service.AcceptedReview, error)
	Commit(ctx context.Context, accepted *service.AcceptedReview) (*models.GoldStamp, error)
	Reject(ctx context.Context, invoiceID, reviewedBy, notes string) error
}

// MetricsProvider serves the dashboard counters.
type MetricsProvider interface {
	GetMetrics(ctx context.Context) (*models.ReconciliationMetrics, error)
}

// QueueProvider serves the review queue.
type QueueProvider interface {
	Queue(ctx context.Context, statusFilter string) ([]models.ReviewQueueEntry, error)
	GetEntry(ctx context.Context, invoiceID string) (*models.ReviewQueueEntry, error)
}

// SnapshotProvider serves bronze snapshots.
type SnapshotProvider interface {
	GetSnapshot(ctx context.Context, invoiceID string) *models.BronzeSnapshot
}

// GoldReader serves committed gold records.
type GoldReader interface {
	GetItems(ctx context.Context, invoiceID string) ([]models.LineItem, error)
	GetTotal(ctx context.Context, invoiceID string) (*models.InvoiceTotal, error)
}

// InsightProvider serves the AI-backed endpoints.
type InsightProvider interface {
	FraudRisk(ctx context.Context, invoiceID string) (*models.FraudAssessment, error)
	Categorize(ctx context.Context, invoiceID string) (*models.CategoryResult, error)
	Ask(ctx context.Context, question string) (*models.InsightResult, error)
	SpendInsights(ctx context.Context) (*models.InsightResult, error)
}

// DocumentStore serves the staged invoice documents.
type DocumentStore interface {
	Save(ctx context.Context, fileName string, content []byte) error
	Get(ctx context.Context, fileName string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
}

// PageRenderer renders staged PDF pages.
type PageRenderer interface {
	PageCount(document []byte) (int, error)
	RenderPage(document []byte, page int) ([]byte, error)
}

// ReportWriter streams the reconciliation workbook.
type ReportWriter interface {
	Write(ctx context.Context, w io.Writer) error
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	review   ReviewActions
	metrics  MetricsProvider
	queue    QueueProvider
	bronze   SnapshotProvider
	gold     GoldReader
	insights InsightProvider
	stage    DocumentStore
	pager    PageRenderer
	report   ReportWriter
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	review ReviewActions,
	metrics MetricsProvider,
	queue QueueProvider,
	bronze SnapshotProvider,
	gold GoldReader,
	insights InsightProvider,
	stage DocumentStore,
	pager PageRenderer,
	report ReportWriter,
	logger Logger,
) *Handlers {
	return &Handlers{
		review:   review,
		metrics:  metrics,
		queue:    queue,
		bronze:   bronze,
		gold:     gold,
		insights: insights,
		stage:    stage,
		pager:    pager,
		report:   report,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// InvoiceDetailResponse bundles everything the review screen needs for one
// invoice: bronze snapshot, committed gold record and queue entry.
type InvoiceDetailResponse struct {
	InvoiceID  string                   `json:"invoice_id"`
	Bronze     *models.BronzeSnapshot   `json:"bronze"`
	GoldItems  []models.LineItem        `json:"gold_items,omitempty"`
	GoldTotal  *models.InvoiceTotal     `json:"gold_total,omitempty"`
	QueueEntry *models.ReviewQueueEntry `json:"queue_entry,omitempty"`
}

// AcceptInvoiceRequest is the accept payload: the winning source, optional
// edited rows and the reviewer identity.
type AcceptInvoiceRequest struct {
	Source     string               `json:"source" binding:"required"`
	Items      []models.LineItem    `json:"items"`
	Total      *models.InvoiceTotal `json:"total"`
	ReviewedBy string               `json:"reviewed_by" binding:"required"`
	Notes      string               `json:"notes"`
}

// RejectInvoiceRequest is the reject payload.
type RejectInvoiceRequest struct {
	ReviewedBy string `json:"reviewed_by" binding:"required"`
	Notes      string `json:"notes"`
}

// AcceptInvoiceResponse reports the committed stamp.
type AcceptInvoiceResponse struct {
	InvoiceID  string `json:"invoice_id"`
	ReviewedBy string `json:"reviewed_by"`
	ReviewedAt string `json:"reviewed_at"`
	Notes      string `json:"notes,omitempty"`
}

// AssistantRequest carries the free-form question.
type AssistantRequest struct {
	Question string `json:"question" binding:"required"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// GetMetrics handles GET /api/metrics
func (h *Handlers) GetMetrics(c *gin.Context) {
	metrics, err := h.metrics.GetMetrics(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to load metrics", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to load metrics",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    metrics,
	})
}

// ListQueue handles GET /api/invoices
func (h *Handlers) ListQueue(c *gin.Context) {
	statusFilter := c.DefaultQuery("status", models.StatusFilterAll)
	if !models.ValidStatusFilter(statusFilter) {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid status filter: " + statusFilter,
		})
		return
	}

	entries, err := h.queue.Queue(c.Request.Context(), statusFilter)
	if err != nil {
		h.logger.Error("Failed to load review queue", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to load review queue",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    entries,
	})
}

// GetInvoice handles GET /api/invoices/:id
func (h *Handlers) GetInvoice(c *gin.Context) {
	invoiceID := c.Param("id")
	ctx := c.Request.Context()

	snapshot := h.bronze.GetSnapshot(ctx, invoiceID)

	goldItems, err := h.gold.GetItems(ctx, invoiceID)
	if err != nil {
		h.logger.Error("Failed to load gold items", "invoice_id", invoiceID, "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to load invoice",
		})
		return
	}

	goldTotal, err := h.gold.GetTotal(ctx, invoiceID)
	if err != nil {
		h.logger.Error("Failed to load gold total", "invoice_id", invoiceID, "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to load invoice",
		})
		return
	}

	entry, err := h.queue.GetEntry(ctx, invoiceID)
	if err != nil {
		h.logger.Error("Failed to load queue entry", "invoice_id", invoiceID, "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to load invoice",
		})
		return
	}

	if snapshot.IsEmpty() && goldTotal == nil && entry == nil {
		c.JSON(http.StatusNotFound, Response{
			Success: false,
			Error:   "invoice not found",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: InvoiceDetailResponse{
			InvoiceID:  invoiceID,
			Bronze:     snapshot,
			GoldItems:  goldItems,
			GoldTotal:  goldTotal,
			QueueEntry: entry,
		},
	})
}

// AcceptInvoice handles POST /api/invoices/:id/accept
func (h *Handlers) AcceptInvoice(c *gin.Context) {
	invoiceID := c.Param("id")

	var req AcceptInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	accepted, err := h.review.Accept(ctx, service.AcceptRequest{
		InvoiceID:  invoiceID,
		Source:     models.Source(req.Source),
		Items:      req.Items,
		Total:      req.Total,
		ReviewedBy: req.ReviewedBy,
		Notes:      req.Notes,
	})
	if err != nil {
		h.logger.Error("Accept failed", "invoice_id", invoiceID, "error", err)
		c.JSON(acceptStatusCode(err), Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	stamp, err := h.review.Commit(ctx, accepted)
	if err != nil {
		h.logger.Error("Commit failed", "invoice_id", invoiceID, "error", err)
		c.JSON(acceptStatusCode(err), Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: AcceptInvoiceResponse{
			InvoiceID:  invoiceID,
			ReviewedBy: stamp.ReviewedBy,
			ReviewedAt: stamp.ReviewedAt.Format(time.RFC3339),
			Notes:      stamp.Notes,
		},
	})
}

// RejectInvoice handles POST /api/invoices/:id/reject
func (h *Handlers) RejectInvoice(c *gin.Context) {
	invoiceID := c.Param("id")

	var req RejectInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
		})
		return
	}

	if err := h.review.Reject(c.Request.Context(), invoiceID, req.ReviewedBy, req.Notes); err != nil {
		h.logger.Error("Reject failed", "invoice_id", invoiceID, "error", err)
		c.JSON(acceptStatusCode(err), Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
	})
}

// GetDocumentPage handles GET /api/invoices/:id/document
func (h *Handlers) GetDocumentPage(c *gin.Context) {
	invoiceID := c.Param("id")
	ctx := c.Request.Context()

	entry, err := h.queue.GetEntry(ctx, invoiceID)
	if err != nil {
		h.logger.Error("Failed to load queue entry", "invoice_id", invoiceID, "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to load invoice",
		})
		return
	}
	if entry == nil || entry.FileName == "" {
		c.JSON(http.StatusNotFound, Response{
			Success: false,
			Error:   "no document associated with invoice",
		})
		return
	}

	document, err := h.stage.Get(ctx, entry.FileName)
	if err != nil {
		c.JSON(http.StatusNotFound, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	page := 0
	if pageStr := c.Query("page"); pageStr != "" {
		page, err = strconv.Atoi(pageStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{
				Success: false,
				Error:   "invalid page number: " + pageStr,
			})
			return
		}
	}

	count, err := h.pager.PageCount(document)
	if err != nil {
		h.logger.Error("Failed to open document", "invoice_id", invoiceID, "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to open document",
		})
		return
	}

	image, err := h.pager.RenderPage(document, page)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	c.Header("X-Page-Count", strconv.Itoa(count))
	c.Data(http.StatusOK, "image/png", image)
}

// GetFraudRisk handles GET /api/invoices/:id/fraud
func (h *Handlers) GetFraudRisk(c *gin.Context) {
	invoiceID := c.Param("id")

	assessment, err := h.insights.FraudRisk(c.Request.Context(), invoiceID)
	if err != nil {
		h.logger.Error("Fraud assessment failed", "invoice_id", invoiceID, "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "fraud assessment failed",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    assessment,
	})
}

// GetCategory handles GET /api/invoices/:id/category
func (h *Handlers) GetCategory(c *gin.Context) {
	invoiceID := c.Param("id")

	result, err := h.insights.Categorize(c.Request.Context(), invoiceID)
	if err != nil {
		h.logger.Error("Categorization failed", "invoice_id", invoiceID, "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "categorization failed",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    result,
	})
}

// AskAssistant handles POST /api/assistant
func (h *Handlers) AskAssistant(c *gin.Context) {
	var req AssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
		})
		return
	}

	result, err := h.insights.Ask(c.Request.Context(), req.Question)
	if err != nil {
		h.logger.Error("Assistant failed", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "assistant failed",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    result,
	})
}

// GetSpendInsights handles GET /api/insights
func (h *Handlers) GetSpendInsights(c *gin.Context) {
	result, err := h.insights.SpendInsights(c.Request.Context())
	if err != nil {
		h.logger.Error("Spend insight failed", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "spend insight failed",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    result,
	})
}

// UploadDocument handles POST /api/documents
func (h *Handlers) UploadDocument(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "file field is required",
		})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "failed to open upload",
		})
		return
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "failed to read upload",
		})
		return
	}

	if err := h.stage.Save(c.Request.Context(), file.Filename, content); err != nil {
		h.logger.Error("Upload failed", "file_name", file.Filename, "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    gin.H{"file_name": file.Filename, "size": len(content)},
	})
}

// ListDocuments handles GET /api/documents
func (h *Handlers) ListDocuments(c *gin.Context) {
	names, err := h.stage.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list documents", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to list documents",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    names,
	})
}

// ExportReport handles GET /api/reports/reconciliation.xlsx
func (h *Handlers) ExportReport(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.report.Write(c.Request.Context(), &buf); err != nil {
		h.logger.Error("Report export failed", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "report export failed",
		})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="reconciliation.xlsx"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}

// acceptStatusCode maps review service errors to HTTP status codes.
func acceptStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrConcurrentReview):
		return http.StatusConflict
	case errors.Is(err, service.ErrNoItems),
		errors.Is(err, service.ErrNoTotals),
		errors.Is(err, service.ErrMissingReviewer),
		errors.Is(err, service.ErrInvalidSource),
		errors.Is(err, service.ErrNegativeValue):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
