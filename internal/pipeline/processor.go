// Package pipeline orchestrates document ingestion: page analysis, job
// assembly and persistence, for one upload or a bounded-concurrency batch.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/konteragroup/kontera/internal/model"
)

// defaultParallelism bounds how many uploads a batch processes at once.
const defaultParallelism = 4

// PageAnalyzer classifies the pages of one upload.
// *boundary.Classifier satisfies it.
type PageAnalyzer interface {
	AnalyzePages(ctx context.Context, refs []string) (*model.MultiPageAnalysisResult, error)
}

// JobAssembler groups classified pages into jobs.
// *assembler.Assembler satisfies it.
type JobAssembler interface {
	Assemble(companyID, fileName string, result *model.MultiPageAnalysisResult) ([]model.Job, error)
}

// JobStorage persists assembled jobs. service.Storage satisfies it.
type JobStorage interface {
	SaveJobs(ctx context.Context, jobs []model.Job) error
}

// Upload is one incoming file: its page image references in page order.
type Upload struct {
	CompanyID string
	FileName  string
	PageRefs  []string
}

// Result is the outcome of processing one upload. Err is set when the
// upload failed; Jobs is set otherwise.
type Result struct {
	Upload Upload
	Jobs   []model.Job
	Err    error
}

// Processor runs uploads through analysis, assembly and persistence.
type Processor struct {
	analyzer    PageAnalyzer
	assembler   JobAssembler
	storage     JobStorage
	logger      *slog.Logger
	onProgress  func(Result)
	parallelism int
}

// NewProcessor creates a pipeline processor.
func NewProcessor(analyzer PageAnalyzer, assembler JobAssembler, storage JobStorage, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		analyzer:    analyzer,
		assembler:   assembler,
		storage:     storage,
		logger:      logger,
		parallelism: defaultParallelism,
	}
}

// SetParallelism overrides the batch concurrency bound. Values below one
// are ignored.
func (p *Processor) SetParallelism(n int) {
	if n >= 1 {
		p.parallelism = n
	}
}

// SetProgress registers a callback invoked once per completed upload in a
// batch, successful or not. The callback must be safe for concurrent use.
func (p *Processor) SetProgress(fn func(Result)) {
	p.onProgress = fn
}

// Process runs one upload end to end and returns the persisted jobs.
func (p *Processor) Process(ctx context.Context, upload Upload) ([]model.Job, error) {
	result, err := p.analyzer.AnalyzePages(ctx, upload.PageRefs)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze %s: %w", upload.FileName, err)
	}

	jobs, err := p.assembler.Assemble(upload.CompanyID, upload.FileName, result)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble jobs for %s: %w", upload.FileName, err)
	}

	// Analysis and assembly are complete; the jobs are ready for coding.
	for i := range jobs {
		jobs[i].Status = model.JobStatusReady
	}

	if err := p.storage.SaveJobs(ctx, jobs); err != nil {
		return nil, fmt.Errorf("failed to save jobs for %s: %w", upload.FileName, err)
	}

	p.logger.Info("upload processed",
		"company_id", upload.CompanyID,
		"file_name", upload.FileName,
		"pages", len(upload.PageRefs),
		"jobs", len(jobs))

	return jobs, nil
}

// ProcessAll runs a batch of uploads with bounded parallelism. One
// upload's failure never stops the others; results come back in input
// order with per-upload errors attached.
func (p *Processor) ProcessAll(ctx context.Context, uploads []Upload) []Result {
	results := make([]Result, len(uploads))

	sem := make(chan struct{}, p.parallelism)
	var wg sync.WaitGroup

	for i, upload := range uploads {
		wg.Add(1)
		go func(i int, upload Upload) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = Result{Upload: upload, Err: ctx.Err()}
				if p.onProgress != nil {
					p.onProgress(results[i])
				}
				return
			}

			jobs, err := p.Process(ctx, upload)
			if err != nil {
				p.logger.Error("upload failed",
					"company_id", upload.CompanyID,
					"file_name", upload.FileName,
					"error", err)
			}
			results[i] = Result{Upload: upload, Jobs: jobs, Err: err}
			if p.onProgress != nil {
				p.onProgress(results[i])
			}
		}(i, upload)
	}

	wg.Wait()
	return results
}
