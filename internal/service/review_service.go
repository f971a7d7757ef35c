package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/docai-tools/invoice-reconciler/internal/domain/workflow"
	"github.com/docai-tools/invoice-reconciler/internal/models"
	"github.com/docai-tools/invoice-reconciler/internal/repository"
	"github.com/docai-tools/invoice-reconciler/pkg/database"
)

// Validation and commit failures surfaced to the action boundary.
var (
	// ErrNoItems is returned when an accept carries no line items.
	ErrNoItems = errors.New("no item data to submit")

	// ErrNoTotals is returned when an accept carries no totals record.
	ErrNoTotals = errors.New("no total data to submit")

	// ErrMissingReviewer is returned when an accept has no reviewer identity.
	ErrMissingReviewer = errors.New("reviewer identity is required")

	// ErrInvalidSource is returned when the accepted source is not a bronze layer.
	ErrInvalidSource = errors.New("accepted source must be transactional or document_ai")

	// ErrNegativeValue is returned when a quantity or price is negative.
	ErrNegativeValue = errors.New("quantities and prices must not be negative")

	// ErrConcurrentReview is returned when another commit touched the invoice
	// between accept and commit.
	ErrConcurrentReview = errors.New("invoice was reviewed concurrently, reload and retry")
)

// AcceptRequest is one reviewer decision: which source wins, optional edited
// rows overriding that source, and the reviewer's identity and notes.
type AcceptRequest struct {
	InvoiceID  string
	Source     models.Source
	Items      []models.LineItem    // nil: take the chosen source's bronze items
	Total      *models.InvoiceTotal // nil: take the chosen source's bronze totals
	ReviewedBy string
	Notes      string
}

// AcceptedReview is a validated accept, ready to commit. It carries the
// review machine and the optimistic concurrency token observed at accept.
type AcceptedReview struct {
	InvoiceID  string
	Source     models.Source
	Items      []models.LineItem
	Total      models.InvoiceTotal
	ReviewedBy string
	Notes      string

	machine  workflow.StateMachine
	observed time.Time
}

// State exposes the review machine state for callers and tests.
func (a *AcceptedReview) State() workflow.State {
	return a.machine.State()
}

// ReviewService is the gold record writer: it validates accepts, performs the
// atomic per-invoice replace of the gold layer, and flips the review status
// as part of the same transaction.
type ReviewService struct {
	db                 *database.DB
	bronze             *BronzeAccessor
	gold               *repository.GoldRepository
	reconcile          *repository.ReconcileRepository
	automationIdentity string
	logger             *zap.Logger
	now                func() time.Time
}

// NewReviewService creates a new review service
func NewReviewService(
	db *database.DB,
	bronze *BronzeAccessor,
	gold *repository.GoldRepository,
	reconcile *repository.ReconcileRepository,
	automationIdentity string,
	logger *zap.Logger,
) *ReviewService {
	return &ReviewService{
		db:                 db,
		bronze:             bronze,
		gold:               gold,
		reconcile:          reconcile,
		automationIdentity: automationIdentity,
		logger:             logger,
		now:                time.Now,
	}
}

// WithClock overrides the commit clock. Tests use it to pin timestamps.
func (s *ReviewService) WithClock(now func() time.Time) *ReviewService {
	s.now = now
	return s
}

// Accept validates a reviewer decision and stages it for commit. No store
// mutation happens here; a failed accept leaves everything untouched.
func (s *ReviewService) Accept(ctx context.Context, req AcceptRequest) (*AcceptedReview, error) {
	if req.InvoiceID == "" {
		return nil, fmt.Errorf("invoice id is required")
	}
	if req.ReviewedBy == "" {
		return nil, ErrMissingReviewer
	}
	if req.Source != models.SourceTransactional && req.Source != models.SourceDocumentAI {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSource, req.Source)
	}

	items := req.Items
	total := req.Total
	if items == nil || total == nil {
		snapshot := s.bronze.GetSnapshot(ctx, req.InvoiceID)
		srcItems, srcTotals := snapshot.TransactItems, snapshot.TransactTotals
		if req.Source == models.SourceDocumentAI {
			srcItems, srcTotals = snapshot.DocumentAIItems, snapshot.DocumentAITotals
		}
		if items == nil {
			items = srcItems
		}
		if total == nil && len(srcTotals) > 0 {
			t := srcTotals[0]
			total = &t
		}
	}

	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if total == nil {
		return nil, ErrNoTotals
	}

	notes := req.Notes
	for _, item := range items {
		if item.Quantity < 0 || item.UnitPrice < 0 || item.TotalPrice < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNegativeValue, item.ProductName)
		}
		// Line totals are trusted but checked; a discrepancy becomes a note,
		// never a rejection.
		expected := decimal.NewFromFloat(item.Quantity).
			Mul(decimal.NewFromFloat(item.UnitPrice)).
			Round(2)
		got := decimal.NewFromFloat(item.TotalPrice).Round(2)
		if !expected.Equal(got) {
			notes = appendNote(notes, fmt.Sprintf(
				"line total discrepancy for %q: %s expected, %s submitted",
				item.ProductName, expected.StringFixed(2), got.StringFixed(2)))
		}
	}

	// Observe the status stamp now; commit verifies it inside the replace
	// transaction so a concurrent reviewer is detected instead of silently
	// overwritten.
	var observed time.Time
	if entry, err := s.reconcile.GetEntry(ctx, req.InvoiceID); err != nil {
		return nil, fmt.Errorf("failed to read review status: %w", err)
	} else if entry != nil {
		observed = entry.LastModified
	}

	existing, err := s.gold.GetTotal(ctx, req.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to read gold state: %w", err)
	}

	initial := workflow.StatePending
	if existing != nil {
		initial = workflow.StateCommitted
	}
	guard := func(context.Context) bool { return len(items) > 0 }
	machine := workflow.NewReviewMachine(initial, guard)

	trigger := workflow.TriggerAccept
	if initial == workflow.StateCommitted {
		trigger = workflow.TriggerReopen
	}
	if err := machine.Fire(ctx, trigger); err != nil {
		return nil, err
	}

	return &AcceptedReview{
		InvoiceID:  req.InvoiceID,
		Source:     req.Source,
		Items:      items,
		Total:      *total,
		ReviewedBy: req.ReviewedBy,
		Notes:      notes,
		machine:    machine,
		observed:   observed,
	}, nil
}

// Commit atomically replaces the gold record for the accepted invoice and
// flips its review status. Delete, insert and status update either all land
// or none do.
func (s *ReviewService) Commit(ctx context.Context, accepted *AcceptedReview) (*models.GoldStamp, error) {
	if accepted == nil {
		return nil, fmt.Errorf("nothing accepted")
	}
	if !accepted.machine.CanFire(workflow.TriggerCommit) {
		return nil, fmt.Errorf("%w: commit from %s", workflow.ErrInvalidTransition, accepted.machine.State())
	}

	now := s.now().UTC()
	stamp := models.GoldStamp{
		ReviewedBy: accepted.ReviewedBy,
		ReviewedAt: now,
		Notes:      accepted.Notes,
	}

	status := models.StatusReviewed
	if accepted.ReviewedBy == s.automationIdentity {
		status = models.StatusAutoReconciled
	}

	err := s.db.WithTransaction(func(tx *sql.Tx) error {
		current, err := s.reconcile.LastModified(tx, accepted.InvoiceID)
		if err != nil {
			return err
		}
		if !current.Equal(accepted.observed) {
			return ErrConcurrentReview
		}

		if err := s.gold.ReplaceItems(tx, accepted.InvoiceID, accepted.Items, stamp); err != nil {
			return err
		}
		if err := s.gold.ReplaceTotals(tx, accepted.InvoiceID, accepted.Total, stamp); err != nil {
			return err
		}
		return s.reconcile.UpdateStatus(tx, accepted.InvoiceID, status, stamp.ReviewedBy, now)
	})
	if err != nil {
		if errors.Is(err, ErrConcurrentReview) {
			s.logger.Warn("Concurrent review detected, commit aborted",
				zap.String("invoice_id", accepted.InvoiceID),
				zap.String("reviewed_by", accepted.ReviewedBy))
			return nil, err
		}
		s.logger.Error("Gold commit failed, replace rolled back",
			zap.String("invoice_id", accepted.InvoiceID),
			zap.Error(err))
		return nil, fmt.Errorf("gold commit failed: %w", err)
	}

	if err := accepted.machine.Fire(ctx, workflow.TriggerCommit); err != nil {
		return nil, err
	}

	s.bronze.Invalidate(ctx, accepted.InvoiceID)

	s.logger.Info("Gold record committed",
		zap.String("invoice_id", accepted.InvoiceID),
		zap.String("source", accepted.Source.String()),
		zap.String("reviewed_by", stamp.ReviewedBy),
		zap.String("status", status.String()),
		zap.Int("item_count", len(accepted.Items)))

	return &stamp, nil
}

// Reject flips the invoice to Rejected without touching the gold layer.
func (s *ReviewService) Reject(ctx context.Context, invoiceID, reviewedBy, notes string) error {
	if invoiceID == "" {
		return fmt.Errorf("invoice id is required")
	}
	if reviewedBy == "" {
		return ErrMissingReviewer
	}

	now := s.now().UTC()
	err := s.db.WithTransaction(func(tx *sql.Tx) error {
		return s.reconcile.UpdateStatus(tx, invoiceID, models.StatusRejected, reviewedBy, now)
	})
	if err != nil {
		s.logger.Error("Reject failed",
			zap.String("invoice_id", invoiceID), zap.Error(err))
		return fmt.Errorf("reject failed: %w", err)
	}

	s.logger.Info("Invoice rejected",
		zap.String("invoice_id", invoiceID),
		zap.String("reviewed_by", reviewedBy),
		zap.String("notes", notes))
	return nil
}

func appendNote(notes, extra string) string {
	if strings.TrimSpace(notes) == "" {
		return extra
	}
	return notes + "; " + extra
}
