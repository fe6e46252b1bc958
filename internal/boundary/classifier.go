// Package boundary decides, page by page, whether each page of an upload
// begins a new document. Decisions are sequential because each page's
// classification sees the document type decided for the page before it.
package boundary

import (
	"context"
	"log/slog"
	"time"

	"github.com/konteragroup/kontera/internal/common"
	"github.com/konteragroup/kontera/internal/inference"
	"github.com/konteragroup/kontera/internal/model"
	"github.com/konteragroup/kontera/internal/service"
)

// ImageStore retrieves page image bytes by opaque reference.
type ImageStore interface {
	Get(ctx context.Context, ref string) ([]byte, error)
}

// Classifier runs per-page boundary classification over an upload.
type Classifier struct {
	inference inference.Client
	images    ImageStore
	logger    *slog.Logger
	timeout   time.Duration
	retryOpts service.RetryOptions
}

// defaultConfidence is assigned to pages that fall back to the heuristic
// default because the image or the inference call was unusable.
const defaultConfidence = 0.5

// NewClassifier creates a boundary classifier.
func NewClassifier(client inference.Client, images ImageStore, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		inference: client,
		images:    images,
		logger:    logger,
		timeout:   30 * time.Second,
		retryOpts: service.RetryOptions{
			// One retry, then fall back to the heuristic default. A slow or
			// broken inference call must never stall the whole analysis.
			MaxAttempts:  2,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// AnalyzePages classifies every page of one upload in page order and
// returns the full analysis result. An empty ref list is the one hard
// error: there is nothing to classify.
func (c *Classifier) AnalyzePages(ctx context.Context, refs []string) (*model.MultiPageAnalysisResult, error) {
	if len(refs) == 0 {
		return nil, common.ErrNoPages
	}

	pages := make([]model.Page, 0, len(refs))
	var previousType model.DocumentType

	for i, ref := range refs {
		pageNumber := i + 1
		page := c.classifyPage(ctx, ref, pageNumber, previousType)

		// Page 1 always starts a document. This is a hard rule, applied
		// after classification so a degenerate all-continuation answer
		// from the model cannot produce zero documents.
		if pageNumber == 1 {
			page.IsNewDocument = true
		}

		previousType = page.DocumentType
		pages = append(pages, page)
	}

	documentsDetected := 0
	for _, p := range pages {
		if p.IsNewDocument {
			documentsDetected++
		}
	}

	result := &model.MultiPageAnalysisResult{
		TotalPages:        len(pages),
		DocumentsDetected: documentsDetected,
		Pages:             pages,
		SplitStrategy:     splitStrategy(len(pages), documentsDetected),
	}

	c.logger.Info("page analysis complete",
		"total_pages", result.TotalPages,
		"documents_detected", result.DocumentsDetected,
		"split_strategy", result.SplitStrategy)

	return result, nil
}

// classifyPage classifies a single page, degrading to the heuristic
// default on any image or inference failure.
func (c *Classifier) classifyPage(ctx context.Context, ref string, pageNumber int, previousType model.DocumentType) model.Page {
	image, err := c.images.Get(ctx, ref)
	if err != nil {
		c.logger.Warn("page image unavailable, using default classification",
			"page", pageNumber,
			"ref", ref,
			"error", err)
		return c.defaultPage(ref, pageNumber, previousType)
	}

	var classification inference.PageClassification
	err = common.WithRetry(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var callErr error
		classification, callErr = c.inference.ClassifyPage(callCtx, inference.PageRequest{
			Image:        image,
			PageNumber:   pageNumber,
			PreviousType: string(previousType),
		})
		return callErr
	}, c.retryOpts)
	if err != nil {
		c.logger.Warn("page classification failed, using default classification",
			"page", pageNumber,
			"error", err)
		return c.defaultPage(ref, pageNumber, previousType)
	}

	return model.Page{
		PageNumber:    pageNumber,
		ImageRef:      ref,
		IsNewDocument: classification.IsNewDocument,
		DocumentType:  model.ParseDocumentType(classification.DocumentType),
		Confidence:    classification.Confidence,
	}
}

// defaultPage is the fail-open heuristic: page 1 starts a document,
// every other page continues the previous one.
func (c *Classifier) defaultPage(ref string, pageNumber int, previousType model.DocumentType) model.Page {
	docType := previousType
	if docType == "" {
		docType = model.DocTypeOther
	}

	return model.Page{
		PageNumber:    pageNumber,
		ImageRef:      ref,
		IsNewDocument: pageNumber == 1,
		DocumentType:  docType,
		Confidence:    defaultConfidence,
	}
}

func splitStrategy(totalPages, documentsDetected int) model.SplitStrategy {
	switch {
	case totalPages == 1:
		return model.SplitSingle
	case documentsDetected > 1:
		return model.SplitMultiple
	default:
		return model.SplitMerged
	}
}
