package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/konteragroup/kontera/internal/assembler"
	"github.com/konteragroup/kontera/internal/boundary"
	"github.com/konteragroup/kontera/internal/pipeline"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// pageImageExtensions lists the file types treated as page images.
var pageImageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <upload-dir>...",
		Short: "Split uploaded page images into document jobs",
		Long: `Analyze the page images of one or more uploads, detect document
boundaries, and persist one job per detected document.

Each argument is a directory holding the page images of a single upload,
named so that lexical order is page order.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runProcess,
	}

	cmd.Flags().Int("parallelism", 4, "how many uploads to process at once")

	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	company, err := requireCompany()
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	client, err := initInference()
	if err != nil {
		return err
	}

	var uploads []pipeline.Upload
	var roots []string
	for _, dir := range args {
		upload, err := uploadFromDir(company, dir)
		if err != nil {
			return err
		}
		uploads = append(uploads, upload)
		roots = append(roots, dir)
	}

	// All uploads share one image store rooted at the common parent, with
	// refs relative to it.
	root, err := commonRoot(roots)
	if err != nil {
		return err
	}
	for i := range uploads {
		if err := relativizeRefs(&uploads[i], root); err != nil {
			return err
		}
	}

	classifier := boundary.NewClassifier(client, boundary.NewFileImageStore(root), slog.Default())
	processor := pipeline.NewProcessor(classifier, assembler.New(slog.Default()), store, slog.Default())
	if parallelism, flagErr := cmd.Flags().GetInt("parallelism"); flagErr == nil {
		processor.SetParallelism(parallelism)
	}

	bar := progressbar.NewOptions(len(uploads),
		progressbar.OptionSetDescription("Processing uploads"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	processor.SetProgress(func(pipeline.Result) { _ = bar.Add(1) })

	results := processor.ProcessAll(ctx, uploads)
	_ = bar.Finish()

	var failed int
	var totalJobs int
	for _, r := range results {
		if r.Err != nil {
			failed++
			slog.Error("upload failed", "file", r.Upload.FileName, "error", r.Err)
			continue
		}
		totalJobs += len(r.Jobs)
		for _, job := range r.Jobs {
			slog.Info("job created",
				"job_id", job.ID,
				"file_name", job.FileName,
				"pages", len(job.PageRefs),
				"multi_page", job.IsMultiPage)
		}
	}

	slog.Info("processing complete",
		"uploads", len(uploads),
		"jobs", totalJobs,
		"failed", failed)

	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(uploads))
	}
	return nil
}

// uploadFromDir builds an upload from a directory of page images, sorted
// lexically so file naming defines page order.
func uploadFromDir(companyID, dir string) (pipeline.Upload, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return pipeline.Upload{}, fmt.Errorf("failed to read upload directory %s: %w", dir, err)
	}

	var refs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if pageImageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			refs = append(refs, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(refs)

	if len(refs) == 0 {
		return pipeline.Upload{}, fmt.Errorf("no page images found in %s", dir)
	}

	return pipeline.Upload{
		CompanyID: companyID,
		FileName:  filepath.Base(filepath.Clean(dir)) + ".pdf",
		PageRefs:  refs,
	}, nil
}

// commonRoot returns the deepest directory containing every given path.
func commonRoot(paths []string) (string, error) {
	if len(paths) == 0 {
		return "", fmt.Errorf("no upload directories given")
	}

	abs := make([]string, len(paths))
	for i, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		abs[i] = a
	}

	root := filepath.Dir(abs[0])
	for _, p := range abs[1:] {
		for !strings.HasPrefix(p+string(os.PathSeparator), root+string(os.PathSeparator)) {
			parent := filepath.Dir(root)
			if parent == root {
				break
			}
			root = parent
		}
	}
	return root, nil
}

// relativizeRefs rewrites an upload's page refs relative to the image
// store root.
func relativizeRefs(upload *pipeline.Upload, root string) error {
	for i, ref := range upload.PageRefs {
		abs, err := filepath.Abs(ref)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", ref, err)
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return fmt.Errorf("failed to relativize %s: %w", ref, err)
		}
		upload.PageRefs[i] = rel
	}
	return nil
}
