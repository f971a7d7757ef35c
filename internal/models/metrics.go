package models

// ReconciliationMetrics holds the completeness counters and amounts for the
// dashboard. Ratios are derived by the metrics service with zero-denominator
// guards; raw aggregates come straight from the warehouse tables.
type ReconciliationMetrics struct {
	TotalInvoiceCount          int64   `json:"total_invoice_count"`
	ReconciledInvoiceCount     int64   `json:"reconciled_invoice_count"`
	AutoReconciledInvoiceCount int64   `json:"auto_reconciled_invoice_count"`
	CorrectionsMade            int64   `json:"corrections_made"`
	GrandTotalAmount           float64 `json:"grand_total_amount"`
	TotalReconciledAmount      float64 `json:"total_reconciled_amount"`
	ReconciledInvoiceRatio     float64 `json:"reconciled_invoice_ratio"`
	ReconciledAmountRatio      float64 `json:"reconciled_amount_ratio"`
}

// InvoiceStats is the statistical context used for fraud scoring prompts.
type InvoiceStats struct {
	InvoiceID     string  `json:"invoice_id"`
	Total         float64 `json:"total"`
	InvoiceDate   string  `json:"invoice_date"`
	ItemCount     int64   `json:"item_count"`
	SystemAverage float64 `json:"system_average"`
	SystemStddev  float64 `json:"system_stddev"`
	ZScore        float64 `json:"z_score"`
	SimilarCount  int64   `json:"similar_count"`
}

// MonthlySpend is one month of invoice volume for trend prompts.
type MonthlySpend struct {
	Month        string  `json:"month"`
	InvoiceCount int64   `json:"invoice_count"`
	TotalSpend   float64 `json:"total_spend"`
}
