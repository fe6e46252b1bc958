package model

// PredictionSource identifies which candidate source won a prediction.
type PredictionSource string

// Prediction source constants, in priority order.
const (
	SourceSupplierHistory PredictionSource = "supplier_history"
	SourceSimilarSupplier PredictionSource = "similar_supplier"
	SourceMLModel         PredictionSource = "ml_model"
	SourceAmountPattern   PredictionSource = "amount_pattern"
	SourceCategoryRules   PredictionSource = "category_rules"
	SourceAIInference     PredictionSource = "ai_inference"
	// SourceFallback marks the hard-coded last-resort answer returned when
	// every other source came up empty.
	SourceFallback PredictionSource = "fallback"
)

// AccountAlternative is a runner-up candidate surfaced alongside the
// winning prediction.
type AccountAlternative struct {
	Account     string
	AccountName string
	Source      PredictionSource
	Confidence  float64
}

// AccountPrediction is the ranked outcome of account prediction for one
// transaction. It is an ephemeral projection over learned state and static
// rule tables; it is never persisted.
type AccountPrediction struct {
	Account      string
	AccountName  string
	Source       PredictionSource
	Reasoning    string
	Alternatives []AccountAlternative
	Confidence   float64
}
