package models

import "time"

// ReviewStatus is the per-invoice, per-table reconciliation status published
// by the external comparator and flipped by the gold record writer.
type ReviewStatus string

const (
	StatusPendingReview  ReviewStatus = "Pending Review"
	StatusReviewed       ReviewStatus = "Reviewed"
	StatusAutoReconciled ReviewStatus = "Auto-reconciled"
	StatusRejected       ReviewStatus = "Rejected"

	// StatusFilterAll is accepted by queue queries only, never stored.
	StatusFilterAll = "All"
)

// AutomationReviewer is the sentinel identity stamped on gold rows committed
// without human edits because the bronze sources already agreed.
const AutomationReviewer = "Auto-reconciled"

// IsValid returns true for statuses that may be stored on a reconcile row.
func (s ReviewStatus) IsValid() bool {
	switch s {
	case StatusPendingReview, StatusReviewed, StatusAutoReconciled, StatusRejected:
		return true
	}
	return false
}

// String returns the string representation of the status.
func (s ReviewStatus) String() string {
	return string(s)
}

// ValidStatusFilter reports whether the value may be used as a queue filter.
func ValidStatusFilter(v string) bool {
	return v == StatusFilterAll || ReviewStatus(v).IsValid()
}

// GoldStamp is the reviewer identity, commit time and notes written onto
// every gold row. Commits without a stamp are not allowed.
type GoldStamp struct {
	ReviewedBy string    `json:"reviewed_by"`
	ReviewedAt time.Time `json:"reviewed_at"`
	Notes      string    `json:"notes,omitempty"`
}

// ReviewQueueEntry is one row of the reconciliation review queue: an invoice
// with its comparator-published statuses and mismatch description.
type ReviewQueueEntry struct {
	InvoiceID    string       `json:"invoice_id"`
	ItemsStatus  ReviewStatus `json:"items_status"`
	TotalsStatus ReviewStatus `json:"totals_status"`
	MismatchText string       `json:"mismatch_text,omitempty"`
	FileName     string       `json:"file_name,omitempty"`
	ReviewedBy   string       `json:"reviewed_by,omitempty"`
	LastModified time.Time    `json:"last_modified"`
}
