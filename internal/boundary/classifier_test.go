package boundary

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/konteragroup/kontera/internal/common"
	"github.com/konteragroup/kontera/internal/inference"
	"github.com/konteragroup/kontera/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockImageStore serves fixed bytes per ref and can fail selected refs.
type mockImageStore struct {
	failRefs map[string]bool
}

func (m *mockImageStore) Get(_ context.Context, ref string) ([]byte, error) {
	if m.failRefs[ref] {
		return nil, fmt.Errorf("image %s unavailable", ref)
	}
	return []byte("image-bytes-" + ref), nil
}

// mockInference answers page classification from a per-page script.
type mockInference struct {
	answers map[int]inference.PageClassification
	errPage map[int]bool
	calls   int
}

func (m *mockInference) ClassifyPage(_ context.Context, req inference.PageRequest) (inference.PageClassification, error) {
	m.calls++
	if m.errPage[req.PageNumber] {
		return inference.PageClassification{}, common.ErrInferenceFailed
	}
	if ans, ok := m.answers[req.PageNumber]; ok {
		return ans, nil
	}
	return inference.PageClassification{DocumentType: "OTHER", Confidence: 0.5}, nil
}

func (m *mockInference) InferAccount(_ context.Context, _ inference.AccountRequest) (inference.AccountInference, error) {
	return inference.AccountInference{}, common.ErrInferenceFailed
}

func newTestClassifier(inf inference.Client, store ImageStore) *Classifier {
	c := NewClassifier(inf, store, slog.Default())
	c.retryOpts.MaxAttempts = 1
	c.retryOpts.InitialDelay = 0
	return c
}

func TestAnalyzePagesEmptyInput(t *testing.T) {
	c := newTestClassifier(&mockInference{}, &mockImageStore{})

	_, err := c.AnalyzePages(context.Background(), nil)
	assert.ErrorIs(t, err, common.ErrNoPages)
}

func TestAnalyzePagesSinglePage(t *testing.T) {
	inf := &mockInference{
		answers: map[int]inference.PageClassification{
			1: {IsNewDocument: true, DocumentType: "RECEIPT", Confidence: 0.9},
		},
	}
	c := newTestClassifier(inf, &mockImageStore{})

	result, err := c.AnalyzePages(context.Background(), []string{"p1.png"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalPages)
	assert.Equal(t, 1, result.DocumentsDetected)
	assert.Equal(t, model.SplitSingle, result.SplitStrategy)
	assert.Equal(t, model.DocTypeReceipt, result.Pages[0].DocumentType)
}

func TestAnalyzePagesFirstPageAlwaysNewDocument(t *testing.T) {
	// Degenerate model output: every page reported as continuation.
	inf := &mockInference{
		answers: map[int]inference.PageClassification{
			1: {IsNewDocument: false, DocumentType: "INVOICE", Confidence: 0.8},
			2: {IsNewDocument: false, DocumentType: "INVOICE", Confidence: 0.8},
			3: {IsNewDocument: false, DocumentType: "INVOICE", Confidence: 0.8},
		},
	}
	c := newTestClassifier(inf, &mockImageStore{})

	result, err := c.AnalyzePages(context.Background(), []string{"p1", "p2", "p3"})
	require.NoError(t, err)

	assert.True(t, result.Pages[0].IsNewDocument, "page 1 must always start a document")
	assert.Equal(t, 1, result.DocumentsDetected)
	assert.Equal(t, model.SplitMerged, result.SplitStrategy)
}

func TestAnalyzePagesThreePageInvoiceMerged(t *testing.T) {
	inf := &mockInference{
		answers: map[int]inference.PageClassification{
			1: {IsNewDocument: true, DocumentType: "INVOICE", Confidence: 0.95},
			2: {IsNewDocument: false, DocumentType: "INVOICE", Confidence: 0.9},
			3: {IsNewDocument: false, DocumentType: "INVOICE", Confidence: 0.9},
		},
	}
	c := newTestClassifier(inf, &mockImageStore{})

	result, err := c.AnalyzePages(context.Background(), []string{"p1", "p2", "p3"})
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalPages)
	assert.Equal(t, 1, result.DocumentsDetected)
	assert.Equal(t, model.SplitMerged, result.SplitStrategy)
}

func TestAnalyzePagesMultipleDocuments(t *testing.T) {
	inf := &mockInference{
		answers: map[int]inference.PageClassification{
			1: {IsNewDocument: true, DocumentType: "INVOICE", Confidence: 0.95},
			2: {IsNewDocument: false, DocumentType: "INVOICE", Confidence: 0.9},
			3: {IsNewDocument: true, DocumentType: "RECEIPT", Confidence: 0.85},
			4: {IsNewDocument: true, DocumentType: "INVOICE", Confidence: 0.9},
			5: {IsNewDocument: false, DocumentType: "INVOICE", Confidence: 0.9},
		},
	}
	c := newTestClassifier(inf, &mockImageStore{})

	result, err := c.AnalyzePages(context.Background(), []string{"p1", "p2", "p3", "p4", "p5"})
	require.NoError(t, err)

	assert.Equal(t, 3, result.DocumentsDetected)
	assert.Equal(t, model.SplitMultiple, result.SplitStrategy)
}

func TestAnalyzePagesImageFetchFailureDefaults(t *testing.T) {
	inf := &mockInference{
		answers: map[int]inference.PageClassification{
			1: {IsNewDocument: true, DocumentType: "INVOICE", Confidence: 0.95},
		},
	}
	store := &mockImageStore{failRefs: map[string]bool{"p2": true}}
	c := newTestClassifier(inf, store)

	result, err := c.AnalyzePages(context.Background(), []string{"p1", "p2"})
	require.NoError(t, err)

	p2 := result.Pages[1]
	assert.False(t, p2.IsNewDocument, "broken page defaults to continuation")
	assert.Equal(t, model.DocTypeInvoice, p2.DocumentType, "default inherits the previous page's type")
	assert.InDelta(t, 0.5, p2.Confidence, 1e-9)
}

func TestAnalyzePagesInferenceFailureDefaults(t *testing.T) {
	inf := &mockInference{
		errPage: map[int]bool{1: true, 2: true},
	}
	c := newTestClassifier(inf, &mockImageStore{})

	result, err := c.AnalyzePages(context.Background(), []string{"p1", "p2"})
	require.NoError(t, err, "inference failure must never block the analysis")

	assert.True(t, result.Pages[0].IsNewDocument)
	assert.Equal(t, model.DocTypeOther, result.Pages[0].DocumentType, "no previous type falls back to OTHER")
	assert.False(t, result.Pages[1].IsNewDocument)
	assert.Equal(t, model.DocTypeOther, result.Pages[1].DocumentType)
}

func TestAnalyzePagesSequentialPreviousType(t *testing.T) {
	seen := make(map[int]string)
	inf := &recordingInference{seen: seen}
	c := newTestClassifier(inf, &mockImageStore{})

	_, err := c.AnalyzePages(context.Background(), []string{"p1", "p2", "p3"})
	require.NoError(t, err)

	assert.Equal(t, "", seen[1])
	assert.Equal(t, "STATEMENT", seen[2], "page 2 must see page 1's decided type")
	assert.Equal(t, "STATEMENT", seen[3])
}

// recordingInference records the previous type each page request carried.
type recordingInference struct {
	seen map[int]string
}

func (r *recordingInference) ClassifyPage(_ context.Context, req inference.PageRequest) (inference.PageClassification, error) {
	r.seen[req.PageNumber] = req.PreviousType
	return inference.PageClassification{IsNewDocument: req.PageNumber == 1, DocumentType: "STATEMENT", Confidence: 0.9}, nil
}

func (r *recordingInference) InferAccount(_ context.Context, _ inference.AccountRequest) (inference.AccountInference, error) {
	return inference.AccountInference{}, common.ErrInferenceFailed
}
