package models

import "time"

// Source identifies which extraction layer a row came from.
type Source string

const (
	SourceTransactional Source = "transactional"
	SourceDocumentAI    Source = "document_ai"
	SourceGold          Source = "gold"
)

// IsValid returns true if the source is one of the known extraction layers.
func (s Source) IsValid() bool {
	switch s {
	case SourceTransactional, SourceDocumentAI, SourceGold:
		return true
	}
	return false
}

// String returns the string representation of the source.
func (s Source) String() string {
	return string(s)
}

// LineItem represents one product row on an invoice, from a single source.
type LineItem struct {
	InvoiceID   string  `json:"invoice_id"`
	ProductName string  `json:"product_name"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
}

// InvoiceTotal represents the per-invoice totals record from a single source.
// Reviewer fields are populated only on gold-layer rows.
type InvoiceTotal struct {
	InvoiceID         string     `json:"invoice_id"`
	InvoiceDate       time.Time  `json:"invoice_date"`
	Subtotal          float64    `json:"subtotal"`
	Tax               float64    `json:"tax"`
	Total             float64    `json:"total"`
	ReviewedBy        string     `json:"reviewed_by,omitempty"`
	ReviewedTimestamp *time.Time `json:"reviewed_timestamp,omitempty"`
	Notes             string     `json:"notes,omitempty"`
}

// BronzeSnapshot holds the four raw datasets for one invoice: line items and
// totals from both upstream extraction sources. Any of the fields may be
// empty; an unknown invoice id yields an entirely empty snapshot.
type BronzeSnapshot struct {
	InvoiceID        string         `json:"invoice_id"`
	TransactItems    []LineItem     `json:"transact_items"`
	TransactTotals   []InvoiceTotal `json:"transact_totals"`
	DocumentAIItems  []LineItem     `json:"document_ai_items"`
	DocumentAITotals []InvoiceTotal `json:"document_ai_totals"`
}

// IsEmpty reports whether no bronze source produced any data for the invoice.
func (s *BronzeSnapshot) IsEmpty() bool {
	return len(s.TransactItems) == 0 && len(s.TransactTotals) == 0 &&
		len(s.DocumentAIItems) == 0 && len(s.DocumentAITotals) == 0
}
