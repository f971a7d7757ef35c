package models

// AI insight results are tagged: Parsed reports whether the model's output
// matched the expected shape, or whether the result is a degraded fallback
// carrying the raw text for human inspection. Callers must treat
// Parsed == false results as advisory only.

// FraudAssessment is the parsed RISK_LEVEL|RISK_SCORE|ANALYSIS tuple from the
// fraud scoring completion.
type FraudAssessment struct {
	RiskLevel string  `json:"risk_level"`
	RiskScore float64 `json:"risk_score"`
	Analysis  string  `json:"analysis"`
	ZScore    float64 `json:"z_score"`
	Parsed    bool    `json:"parsed"`
	Raw       string  `json:"raw,omitempty"`
}

// Risk level constants returned by the fraud completion.
const (
	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"
)

// CategoryResult is the parsed categorization response.
type CategoryResult struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Parsed     bool    `json:"parsed"`
	Raw        string  `json:"raw,omitempty"`
}

// InsightResult is a free-text answer from the assistant or spend insight
// completions. Parsed is false when the completion call itself failed and
// Answer carries an error description instead of model output.
type InsightResult struct {
	Answer string `json:"answer"`
	Parsed bool   `json:"parsed"`
}
