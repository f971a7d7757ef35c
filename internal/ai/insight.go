// Package ai turns reconciliation data into model-backed insights. Every
// operation degrades instead of failing: malformed model output comes back as
// a tagged fallback result carrying the raw text, never as an error.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/docai-tools/invoice-reconciler/internal/models"
)

// Insighter runs the four insight operations against a completion client.
type Insighter struct {
	client CompletionClient
	logger *zap.Logger
}

// NewInsighter creates a new insighter
func NewInsighter(client CompletionClient, logger *zap.Logger) *Insighter {
	return &Insighter{
		client: client,
		logger: logger,
	}
}

// AssessFraudRisk scores one invoice against the system-wide statistical
// profile. The model answers a RISK_LEVEL|RISK_SCORE|ANALYSIS tuple; anything
// else becomes a LOW/0 fallback with the raw text preserved.
func (i *Insighter) AssessFraudRisk(ctx context.Context, stats *models.InvoiceStats) models.FraudAssessment {
	if stats == nil {
		return models.FraudAssessment{
			RiskLevel: models.RiskLow,
			Analysis:  "no statistical data available for this invoice",
		}
	}

	content, err := i.client.Complete(ctx, fraudSystemPrompt, buildFraudPrompt(stats))
	if err != nil {
		i.logger.Warn("Fraud assessment call failed",
			zap.String("invoice_id", stats.InvoiceID), zap.Error(err))
		return models.FraudAssessment{
			RiskLevel: models.RiskLow,
			Analysis:  fmt.Sprintf("assessment unavailable: %v", err),
			ZScore:    stats.ZScore,
		}
	}

	assessment, ok := parseFraudTuple(content)
	if !ok {
		i.logger.Warn("Fraud assessment response not parseable",
			zap.String("invoice_id", stats.InvoiceID),
			zap.String("content", content))
		return models.FraudAssessment{
			RiskLevel: models.RiskLow,
			Analysis:  content,
			ZScore:    stats.ZScore,
			Raw:       content,
		}
	}

	assessment.ZScore = stats.ZScore
	i.logger.Info("Fraud assessment completed",
		zap.String("invoice_id", stats.InvoiceID),
		zap.String("risk_level", assessment.RiskLevel),
		zap.Float64("risk_score", assessment.RiskScore))
	return assessment
}

// Categorize assigns a spending category to an invoice from its product
// names. JSON parse first, markdown-wrapped JSON second, keyword rules last.
func (i *Insighter) Categorize(ctx context.Context, invoiceID string, products []string, total float64) models.CategoryResult {
	content, err := i.client.Complete(ctx, categorySystemPrompt, buildCategoryPrompt(invoiceID, products, total))
	if err != nil {
		i.logger.Warn("Categorization call failed",
			zap.String("invoice_id", invoiceID), zap.Error(err))
		return keywordCategory(products, fmt.Sprintf("categorization unavailable: %v", err))
	}

	var result models.CategoryResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		if jsonStr := extractJSON(content); jsonStr != "" {
			if err := json.Unmarshal([]byte(jsonStr), &result); err == nil && result.Category != "" {
				result.Parsed = true
				return result
			}
		}

		i.logger.Warn("Categorization response not parseable",
			zap.String("invoice_id", invoiceID),
			zap.String("content", content))
		fallback := keywordCategory(products, content)
		fallback.Raw = content
		return fallback
	}

	if result.Category == "" {
		fallback := keywordCategory(products, content)
		fallback.Raw = content
		return fallback
	}

	result.Parsed = true
	return result
}

// Answer responds to a free-form question grounded in the current
// reconciliation state.
func (i *Insighter) Answer(ctx context.Context, question string, metrics *models.ReconciliationMetrics, statusCounts map[string]int64) models.InsightResult {
	if strings.TrimSpace(question) == "" {
		return models.InsightResult{Answer: "ask a question about the reconciliation state"}
	}
	if metrics == nil {
		metrics = &models.ReconciliationMetrics{}
	}

	content, err := i.client.Complete(ctx, assistantSystemPrompt, buildAssistantPrompt(question, metrics, statusCounts))
	if err != nil {
		i.logger.Warn("Assistant call failed", zap.Error(err))
		return models.InsightResult{Answer: fmt.Sprintf("assistant unavailable: %v", err)}
	}

	return models.InsightResult{Answer: strings.TrimSpace(content), Parsed: true}
}

// SpendInsights summarizes monthly spend trends.
func (i *Insighter) SpendInsights(ctx context.Context, months []models.MonthlySpend) models.InsightResult {
	if len(months) == 0 {
		return models.InsightResult{Answer: "no spending history to analyze"}
	}

	content, err := i.client.Complete(ctx, spendSystemPrompt, buildSpendPrompt(months))
	if err != nil {
		i.logger.Warn("Spend insight call failed", zap.Error(err))
		return models.InsightResult{Answer: fmt.Sprintf("insight unavailable: %v", err)}
	}

	return models.InsightResult{Answer: strings.TrimSpace(content), Parsed: true}
}

// parseFraudTuple parses RISK_LEVEL|RISK_SCORE|ANALYSIS.
func parseFraudTuple(content string) (models.FraudAssessment, bool) {
	line := strings.TrimSpace(content)
	parts := strings.SplitN(line, "|", 3)
	if len(parts) != 3 {
		return models.FraudAssessment{}, false
	}

	level := strings.ToUpper(strings.TrimSpace(parts[0]))
	if level != models.RiskLow && level != models.RiskMedium && level != models.RiskHigh {
		return models.FraudAssessment{}, false
	}

	score, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || score < 0 || score > 100 {
		return models.FraudAssessment{}, false
	}

	return models.FraudAssessment{
		RiskLevel: level,
		RiskScore: score,
		Analysis:  strings.TrimSpace(parts[2]),
		Parsed:    true,
	}, true
}

var categoryKeywords = []struct {
	category string
	words    []string
}{
	{"Food & Beverage", []string{"coffee", "tea", "milk", "bread", "juice", "snack", "food", "lunch", "dinner", "catering"}},
	{"Office Supplies", []string{"paper", "pen", "stapler", "toner", "notebook", "folder", "envelope"}},
	{"Travel", []string{"flight", "hotel", "taxi", "train", "mileage", "airfare"}},
	{"Utilities", []string{"electricity", "water", "internet", "phone", "gas"}},
	{"Equipment", []string{"laptop", "monitor", "keyboard", "printer", "chair", "desk"}},
}

// keywordCategory is the last-resort classifier when the model's answer is
// unusable. Low confidence, Parsed stays false.
func keywordCategory(products []string, reasoning string) models.CategoryResult {
	joined := strings.ToLower(strings.Join(products, " "))
	for _, entry := range categoryKeywords {
		for _, word := range entry.words {
			if strings.Contains(joined, word) {
				return models.CategoryResult{
					Category:   entry.category,
					Confidence: 0.3,
					Reasoning:  reasoning,
				}
			}
		}
	}
	return models.CategoryResult{
		Category:   "Other",
		Confidence: 0.1,
		Reasoning:  reasoning,
	}
}

// extractJSON pulls the first balanced JSON object out of text, for answers
// wrapped in markdown fences or prose.
func extractJSON(content string) string {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return content[start : i+1]
				}
			}
		}
	}
	return ""
}
