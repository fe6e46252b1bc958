package assembler

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/konteragroup/kontera/internal/common"
	"github.com/konteragroup/kontera/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAssembler() *Assembler {
	a := New(slog.Default())
	counter := 0
	a.newID = func() string {
		counter++
		return fmt.Sprintf("job-%d", counter)
	}
	a.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	return a
}

func makePages(newDocFlags ...bool) []model.Page {
	pages := make([]model.Page, len(newDocFlags))
	for i, isNew := range newDocFlags {
		pages[i] = model.Page{
			PageNumber:    i + 1,
			ImageRef:      fmt.Sprintf("page-%d.png", i+1),
			IsNewDocument: isNew,
			DocumentType:  model.DocTypeInvoice,
			Confidence:    0.9,
		}
	}
	return pages
}

func analysisFor(pages []model.Page) *model.MultiPageAnalysisResult {
	detected := 0
	for _, p := range pages {
		if p.IsNewDocument {
			detected++
		}
	}
	strategy := model.SplitMerged
	if len(pages) == 1 {
		strategy = model.SplitSingle
	} else if detected > 1 {
		strategy = model.SplitMultiple
	}
	return &model.MultiPageAnalysisResult{
		TotalPages:        len(pages),
		DocumentsDetected: detected,
		Pages:             pages,
		SplitStrategy:     strategy,
	}
}

func TestAssembleSinglePage(t *testing.T) {
	a := newTestAssembler()

	jobs, err := a.Assemble("company-1", "kvitto.pdf", analysisFor(makePages(true)))
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	job := jobs[0]
	assert.Equal(t, "kvitto.pdf", job.FileName)
	assert.Equal(t, []int{1}, job.PageNumbers)
	assert.False(t, job.IsMultiPage)
	assert.False(t, job.SplitFromOriginal)
	assert.Equal(t, 0, job.DocumentIndex)
	assert.Equal(t, model.JobStatusProcessing, job.Status)
}

func TestAssembleMergedThreePages(t *testing.T) {
	a := newTestAssembler()

	jobs, err := a.Assemble("company-1", "faktura.pdf", analysisFor(makePages(true, false, false)))
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	job := jobs[0]
	assert.Equal(t, "faktura.pdf", job.FileName, "merged uploads keep the original name")
	assert.Equal(t, []int{1, 2, 3}, job.PageNumbers)
	assert.Equal(t, []string{"page-1.png", "page-2.png", "page-3.png"}, job.PageRefs)
	assert.True(t, job.IsMultiPage)
	assert.False(t, job.SplitFromOriginal)
}

func TestAssembleMultipleDocuments(t *testing.T) {
	a := newTestAssembler()

	// Documents start at pages 1, 3 and 4.
	jobs, err := a.Assemble("company-1", "bunt.pdf", analysisFor(makePages(true, false, true, true, false)))
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	assert.Equal(t, []int{1, 2}, jobs[0].PageNumbers)
	assert.Equal(t, []int{3}, jobs[1].PageNumbers)
	assert.Equal(t, []int{4, 5}, jobs[2].PageNumbers)

	for i, job := range jobs {
		assert.Equal(t, i, job.DocumentIndex)
		assert.True(t, job.SplitFromOriginal)
		assert.Equal(t, job.PageRefs[0], job.PrimaryImageRef)
	}

	assert.Equal(t, "bunt_doc1_2p.pdf", jobs[0].FileName)
	assert.Equal(t, "bunt_doc2.pdf", jobs[1].FileName)
	assert.Equal(t, "bunt_doc3_2p.pdf", jobs[2].FileName)
}

func TestAssemblePartitionInvariant(t *testing.T) {
	a := newTestAssembler()

	tests := []struct {
		name  string
		flags []bool
	}{
		{name: "alternating", flags: []bool{true, true, true, true}},
		{name: "front heavy", flags: []bool{true, false, false, true}},
		{name: "tail group open at end", flags: []bool{true, true, false, false, false}},
		{name: "mid singles", flags: []bool{true, true, true, false, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, err := a.Assemble("c", "f.pdf", analysisFor(makePages(tt.flags...)))
			require.NoError(t, err)

			var all []int
			for _, job := range jobs {
				all = append(all, job.PageNumbers...)
			}

			require.Len(t, all, len(tt.flags))
			for i, n := range all {
				assert.Equal(t, i+1, n, "pages must partition 1..N in order")
			}
		})
	}
}

func TestAssembleEmptyResult(t *testing.T) {
	a := newTestAssembler()

	_, err := a.Assemble("c", "f.pdf", &model.MultiPageAnalysisResult{})
	assert.ErrorIs(t, err, common.ErrNoPages)

	_, err = a.Assemble("c", "f.pdf", nil)
	assert.ErrorIs(t, err, common.ErrNoPages)
}
