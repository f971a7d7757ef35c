package ai

import (
	"fmt"
	"strings"

	"github.com/docai-tools/invoice-reconciler/internal/models"
)

const fraudSystemPrompt = "You are a fraud detection analyst for an invoice reconciliation system. " +
	"You assess invoices against the statistical profile of the invoice population. " +
	"Always respond in the exact format requested, with no extra commentary."

const categorySystemPrompt = "You are an expense categorization assistant. " +
	"Classify invoices into spending categories from their line items. " +
	"Always respond with valid JSON."

const assistantSystemPrompt = "You are a reconciliation assistant for an invoice validation dashboard. " +
	"Answer questions using only the reconciliation state provided. " +
	"Be concise and factual; say so when the data cannot answer the question."

const spendSystemPrompt = "You are a financial analyst. Summarize spending trends from monthly " +
	"invoice volumes. Highlight notable changes and keep the summary short."

// buildFraudPrompt renders the statistical context for one invoice.
func buildFraudPrompt(stats *models.InvoiceStats) string {
	return fmt.Sprintf(`Assess the fraud risk of this invoice against the system-wide profile:

**Invoice:**
- ID: %s
- Total: %.2f
- Date: %s
- Line items: %d

**System profile:**
- Average invoice total: %.2f
- Standard deviation: %.2f
- Z-score of this invoice: %.2f
- Invoices within 10%% of this total: %d

Respond with EXACTLY one line in this format, nothing else:
RISK_LEVEL|RISK_SCORE|ANALYSIS

Where RISK_LEVEL is LOW, MEDIUM or HIGH, RISK_SCORE is a number from 0 to 100,
and ANALYSIS is one or two sentences explaining the assessment.`,
		stats.InvoiceID,
		stats.Total,
		stats.InvoiceDate,
		stats.ItemCount,
		stats.SystemAverage,
		stats.SystemStddev,
		stats.ZScore,
		stats.SimilarCount,
	)
}

// buildCategoryPrompt renders the categorization request for one invoice.
func buildCategoryPrompt(invoiceID string, products []string, total float64) string {
	return fmt.Sprintf(`Categorize this invoice into one spending category:

**Invoice:**
- ID: %s
- Total: %.2f
- Products: %s

Pick the single best category: Food & Beverage, Office Supplies, Travel,
Utilities, Professional Services, Equipment, or Other.

Respond with ONLY a valid JSON object (no markdown, no explanation):
{
  "category": string,
  "confidence": number between 0.0 and 1.0,
  "reasoning": string
}`,
		invoiceID,
		total,
		strings.Join(products, ", "),
	)
}

// buildAssistantPrompt embeds the reconciliation state into the question.
func buildAssistantPrompt(question string, metrics *models.ReconciliationMetrics, statusCounts map[string]int64) string {
	var counts strings.Builder
	for status, count := range statusCounts {
		fmt.Fprintf(&counts, "- %s: %d\n", status, count)
	}

	return fmt.Sprintf(`Current reconciliation state:

**Totals:**
- Invoices: %d
- Reconciled: %d (%.2f%%)
- Auto-reconciled: %d
- Corrections made: %d
- Grand total amount: %.2f
- Reconciled amount: %.2f (%.2f%%)

**Review status counts:**
%s
**Question:**
%s`,
		metrics.TotalInvoiceCount,
		metrics.ReconciledInvoiceCount,
		metrics.ReconciledInvoiceRatio*100,
		metrics.AutoReconciledInvoiceCount,
		metrics.CorrectionsMade,
		metrics.GrandTotalAmount,
		metrics.TotalReconciledAmount,
		metrics.ReconciledAmountRatio*100,
		counts.String(),
		sanitizeQuestion(question),
	)
}

// buildSpendPrompt renders the monthly volume table for trend analysis.
func buildSpendPrompt(months []models.MonthlySpend) string {
	var rows strings.Builder
	for _, m := range months {
		fmt.Fprintf(&rows, "- %s: %d invoices, %.2f total\n", m.Month, m.InvoiceCount, m.TotalSpend)
	}

	return fmt.Sprintf(`Monthly invoice volumes, oldest first:

%s
Summarize the spending trend in at most four sentences. Call out the
highest month and any month-over-month change above 20%%.`, rows.String())
}

// sanitizeQuestion strips characters that would break the prompt framing.
func sanitizeQuestion(question string) string {
	question = strings.ReplaceAll(question, "`", "'")
	return strings.TrimSpace(question)
}
