// Package assembler groups classified pages into accounting jobs. Each
// detected document boundary group becomes exactly one job; the union of
// all jobs' pages partitions the upload with no gaps or overlaps.
package assembler

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/konteragroup/kontera/internal/common"
	"github.com/konteragroup/kontera/internal/model"
)

// Assembler turns analysis results into jobs.
type Assembler struct {
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// New creates an assembler.
func New(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// Assemble produces one or more jobs from a completed page analysis.
func (a *Assembler) Assemble(companyID, fileName string, result *model.MultiPageAnalysisResult) ([]model.Job, error) {
	if result == nil || len(result.Pages) == 0 {
		return nil, common.ErrNoPages
	}

	var jobs []model.Job
	switch result.SplitStrategy {
	case model.SplitSingle, model.SplitMerged:
		jobs = []model.Job{a.buildJob(companyID, fileName, result.Pages, 0, result.SplitStrategy)}
	case model.SplitMultiple:
		jobs = a.splitIntoJobs(companyID, fileName, result.Pages)
	default:
		return nil, fmt.Errorf("unknown split strategy %q", result.SplitStrategy)
	}

	a.logger.Info("assembled jobs",
		"company_id", companyID,
		"file_name", fileName,
		"jobs", len(jobs),
		"split_strategy", result.SplitStrategy)

	return jobs, nil
}

// splitIntoJobs walks pages in order, opening a new group at every
// isNewDocument page (page 1 always opens group 0) and flushing the final
// open group at the end.
func (a *Assembler) splitIntoJobs(companyID, fileName string, pages []model.Page) []model.Job {
	var jobs []model.Job
	var group []model.Page

	flush := func() {
		if len(group) == 0 {
			return
		}
		jobs = append(jobs, a.buildJob(companyID, fileName, group, len(jobs), model.SplitMultiple))
		group = nil
	}

	for _, page := range pages {
		if page.IsNewDocument && len(group) > 0 {
			flush()
		}
		group = append(group, page)
	}
	flush()

	return jobs
}

func (a *Assembler) buildJob(companyID, fileName string, pages []model.Page, documentIndex int, strategy model.SplitStrategy) model.Job {
	pageRefs := make([]string, len(pages))
	pageNumbers := make([]int, len(pages))
	for i, p := range pages {
		pageRefs[i] = p.ImageRef
		pageNumbers[i] = p.PageNumber
	}

	return model.Job{
		ID:                a.newID(),
		CompanyID:         companyID,
		FileName:          deriveFileName(fileName, documentIndex, len(pages), strategy),
		PrimaryImageRef:   pageRefs[0],
		PageRefs:          pageRefs,
		PageNumbers:       pageNumbers,
		IsMultiPage:       len(pages) > 1,
		SplitFromOriginal: strategy == model.SplitMultiple,
		DocumentIndex:     documentIndex,
		Status:            model.JobStatusProcessing,
		CreatedAt:         a.now(),
	}
}

// deriveFileName suffixes split documents with their index and, for
// multi-page groups, the page count: invoice.pdf -> invoice_doc2_3p.pdf.
func deriveFileName(fileName string, documentIndex, pageCount int, strategy model.SplitStrategy) string {
	if strategy != model.SplitMultiple {
		return fileName
	}

	ext := filepath.Ext(fileName)
	stem := strings.TrimSuffix(fileName, ext)

	if pageCount > 1 {
		return fmt.Sprintf("%s_doc%d_%dp%s", stem, documentIndex+1, pageCount, ext)
	}
	return fmt.Sprintf("%s_doc%d%s", stem, documentIndex+1, ext)
}
