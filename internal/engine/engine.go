// Package engine fuses account candidates from supplier history, learned
// patterns, amount and seasonal heuristics, category rules and an AI
// fallback into a ranked prediction. It always answers: every internal
// failure degrades to a lower-priority source, and an empty field ends at
// the hard-coded general-purchases fallback.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/konteragroup/kontera/internal/category"
	"github.com/konteragroup/kontera/internal/inference"
	"github.com/konteragroup/kontera/internal/model"
	"github.com/konteragroup/kontera/internal/similarity"
)

// Fixed confidence ceilings per source.
const (
	similarSupplierConfidence = 0.75
	patternConfidenceFactor   = 0.9
	amountConfidence          = 0.6
	seasonalConfidence        = 0.7
	categoryConfidence        = 0.65
	aiConfidenceCap           = 0.85
	fallbackConfidence        = 0.3

	// aiTriggerThreshold gates the AI fallback: it runs only when no
	// internal candidate reaches this confidence.
	aiTriggerThreshold = 0.7

	// maxAlternatives bounds how many runner-up candidates are surfaced.
	maxAlternatives = 3
)

// Fallback account returned when every source comes up empty.
const (
	fallbackAccount     = "4010"
	fallbackAccountName = "Inköp av varor och material"
)

// Engine predicts GL accounts for transactions.
type Engine struct {
	suppliers SupplierLookup
	patterns  PatternMatcher
	inferrer  AccountInferrer
	logger    *slog.Logger
	aiTimeout time.Duration
}

// New creates a prediction engine.
func New(suppliers SupplierLookup, patterns PatternMatcher, inferrer AccountInferrer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		suppliers: suppliers,
		patterns:  patterns,
		inferrer:  inferrer,
		logger:    logger,
		aiTimeout: 30 * time.Second,
	}
}

// candidate is one scored account suggestion from a single source.
type candidate struct {
	account     string
	accountName string
	source      model.PredictionSource
	detail      string
	confidence  float64
}

// Predict returns a ranked account prediction for one transaction. It
// never fails: read errors against the stores degrade to treating the
// supplier as unseen, and a dead AI fallback still leaves the hard-coded
// default answer.
func (e *Engine) Predict(ctx context.Context, companyID string, txn model.Transaction) model.AccountPrediction {
	candidates := e.gatherCandidates(ctx, companyID, txn)

	if best := maxConfidence(candidates); len(candidates) == 0 || best < aiTriggerThreshold {
		if ai := e.aiCandidate(ctx, txn); ai != nil {
			candidates = append(candidates, *ai)
		}
	}

	if len(candidates) == 0 {
		return model.AccountPrediction{
			Account:     fallbackAccount,
			AccountName: fallbackAccountName,
			Confidence:  fallbackConfidence,
			Source:      model.SourceFallback,
			Reasoning:   reasoningFor(candidate{source: model.SourceFallback}),
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].confidence > candidates[j].confidence
	})

	top := candidates[0]
	prediction := model.AccountPrediction{
		Account:     top.account,
		AccountName: top.accountName,
		Confidence:  top.confidence,
		Source:      top.source,
		Reasoning:   reasoningFor(top),
	}

	for _, c := range candidates[1:] {
		if len(prediction.Alternatives) == maxAlternatives {
			break
		}
		prediction.Alternatives = append(prediction.Alternatives, model.AccountAlternative{
			Account:     c.account,
			AccountName: c.accountName,
			Confidence:  c.confidence,
			Source:      c.source,
		})
	}

	e.logger.Debug("account predicted",
		"company_id", companyID,
		"supplier", txn.SupplierName,
		"account", prediction.Account,
		"confidence", prediction.Confidence,
		"source", prediction.Source,
		"alternatives", len(prediction.Alternatives))

	return prediction
}

// gatherCandidates collects candidates from the internal sources in fixed
// priority order.
func (e *Engine) gatherCandidates(ctx context.Context, companyID string, txn model.Transaction) []candidate {
	var candidates []candidate

	// 1. Exact supplier history.
	exact, err := e.suppliers.Get(ctx, companyID, txn.SupplierName)
	if err != nil {
		// A profile read failure degrades to an unseen supplier.
		e.logger.Warn("supplier lookup failed, treating supplier as unseen", "error", err)
		exact = nil
	}
	if exact != nil && exact.DefaultAccount != "" {
		candidates = append(candidates, candidate{
			account:     exact.DefaultAccount,
			accountName: exact.DefaultAccountName,
			confidence:  exact.LearningStats.ConfidenceScore,
			source:      model.SourceSupplierHistory,
			detail:      fmt.Sprintf("%d transactions", exact.LearningStats.TotalTransactions),
		})
	}

	// 2. Similar supplier, only when it is a different profile.
	similar, err := e.suppliers.FindSimilar(ctx, companyID, txn.SupplierName)
	if err != nil {
		e.logger.Warn("similar-supplier lookup failed", "error", err)
		similar = nil
	}
	if similar != nil && similar.DefaultAccount != "" &&
		(exact == nil || similar.NormalizedName != exact.NormalizedName) {
		candidates = append(candidates, candidate{
			account:     similar.DefaultAccount,
			accountName: similar.DefaultAccountName,
			confidence:  similarSupplierConfidence,
			source:      model.SourceSimilarSupplier,
			detail:      similar.DisplayName,
		})
	}

	// 3. Learned description pattern.
	patternMatch, err := e.patterns.Match(ctx, companyID, txn.SupplierName, txn.Description)
	if err != nil {
		e.logger.Warn("pattern match failed", "error", err)
		patternMatch = nil
	}
	if patternMatch != nil {
		candidates = append(candidates, candidate{
			account:     patternMatch.Account,
			accountName: patternMatch.AccountName,
			confidence:  patternMatch.SuccessRate * patternConfidenceFactor,
			source:      model.SourceMLModel,
			detail:      fmt.Sprintf("%.0f%% success rate", patternMatch.SuccessRate*100),
		})
	}

	// 4. Amount bucket heuristic.
	if c := amountCandidate(txn.Amount); c != nil {
		candidates = append(candidates, *c)
	}

	// 5. Seasonal keyword heuristic.
	if c := seasonalCandidate(txn); c != nil {
		candidates = append(candidates, *c)
	}

	// 6. Category rule.
	if cat := category.Classify(txn.SupplierName, txn.Description); cat != model.CategoryOther {
		defaults := category.Defaults(cat)
		candidates = append(candidates, candidate{
			account:     defaults.Account,
			accountName: defaults.AccountName,
			confidence:  categoryConfidence,
			source:      model.SourceCategoryRules,
			detail:      string(cat),
		})
	}

	return candidates
}

// aiCandidate invokes the inference fallback with a bounded guidance list.
// The reported confidence is clamped to the AI ceiling regardless of what
// the model claims.
func (e *Engine) aiCandidate(ctx context.Context, txn model.Transaction) *candidate {
	if e.inferrer == nil {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, e.aiTimeout)
	defer cancel()

	common := category.CommonAccounts()
	guidance := make([]inference.CommonAccount, len(common))
	for i, a := range common {
		guidance[i] = inference.CommonAccount{Account: a.Account, AccountName: a.AccountName}
	}

	result, err := e.inferrer.InferAccount(callCtx, inference.AccountRequest{
		SupplierName:   txn.SupplierName,
		Description:    txn.Description,
		Amount:         txn.Amount,
		CommonAccounts: guidance,
	})
	if err != nil {
		e.logger.Warn("AI account inference failed", "error", err)
		return nil
	}

	confidence := result.Confidence
	if confidence > aiConfidenceCap {
		confidence = aiConfidenceCap
	}

	return &candidate{
		account:     result.Account,
		accountName: result.AccountName,
		confidence:  confidence,
		source:      model.SourceAIInference,
	}
}

// Amount thresholds for the bucket heuristic.
const (
	smallPurchaseMax = 500
	capitalizeMin    = 50000
)

func amountCandidate(amount float64) *candidate {
	switch {
	case amount > 0 && amount < smallPurchaseMax:
		return &candidate{
			account:     "5460",
			accountName: "Förbrukningsmaterial",
			confidence:  amountConfidence,
			source:      model.SourceAmountPattern,
		}
	case amount >= capitalizeMin:
		return &candidate{
			account:     "1220",
			accountName: "Inventarier och verktyg",
			confidence:  amountConfidence,
			source:      model.SourceAmountPattern,
		}
	default:
		return nil
	}
}

// seasonalRule ties month-of-year and description keywords to an account.
type seasonalRule struct {
	account     string
	accountName string
	keywords    []string
	months      []time.Month
}

var seasonalRules = []seasonalRule{
	{
		months:      []time.Month{time.November, time.December},
		keywords:    []string{"julbord", "julfest", "julklapp", "christmas", "holiday party"},
		account:     "6072",
		accountName: "Representation, ej avdragsgill",
	},
	{
		months:      []time.Month{time.May, time.June, time.July, time.August},
		keywords:    []string{"sommarfest", "kickoff", "personalfest"},
		account:     "6072",
		accountName: "Representation, ej avdragsgill",
	},
}

func seasonalCandidate(txn model.Transaction) *candidate {
	if txn.Date.IsZero() {
		return nil
	}

	month := txn.Date.Month()
	description := similarity.Normalize(txn.Description)
	if description == "" {
		return nil
	}

	for _, rule := range seasonalRules {
		if !containsMonth(rule.months, month) {
			continue
		}
		for _, keyword := range rule.keywords {
			if strings.Contains(description, keyword) {
				return &candidate{
					account:     rule.account,
					accountName: rule.accountName,
					confidence:  seasonalConfidence,
					source:      model.SourceAmountPattern,
				}
			}
		}
	}

	return nil
}

func containsMonth(months []time.Month, m time.Month) bool {
	for _, month := range months {
		if month == m {
			return true
		}
	}
	return false
}

func maxConfidence(candidates []candidate) float64 {
	best := 0.0
	for _, c := range candidates {
		if c.confidence > best {
			best = c.confidence
		}
	}
	return best
}

// reasoningFor renders the fixed template for the winning source.
func reasoningFor(c candidate) string {
	switch c.source {
	case model.SourceSupplierHistory:
		return fmt.Sprintf("Based on this supplier's coding history (%s).", c.detail)
	case model.SourceSimilarSupplier:
		return fmt.Sprintf("A similar supplier, %s, is coded to this account.", c.detail)
	case model.SourceMLModel:
		return fmt.Sprintf("Matches a learned description pattern (%s).", c.detail)
	case model.SourceAmountPattern:
		return "Heuristic based on the transaction amount and date."
	case model.SourceCategoryRules:
		return fmt.Sprintf("Default account for %s suppliers.", c.detail)
	case model.SourceAIInference:
		return "Suggested by AI inference over the transaction details."
	default:
		return "No reliable signal found; defaulting to general purchases."
	}
}
