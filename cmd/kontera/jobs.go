package main

import (
	"fmt"
	"strings"

	"github.com/konteragroup/kontera/internal/model"
	"github.com/spf13/cobra"
)

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect jobs produced by document splitting",
	}

	cmd.AddCommand(jobsListCmd())
	cmd.AddCommand(jobsShowCmd())
	cmd.AddCommand(jobsStatusCmd())

	return cmd
}

func jobsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the company's jobs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			jobs, err := store.GetJobsByCompany(ctx, company)
			if err != nil {
				return fmt.Errorf("failed to list jobs: %w", err)
			}

			if len(jobs) == 0 {
				fmt.Println("No jobs yet.")
				return nil
			}

			fmt.Printf("%-36s %-30s %-10s %5s %s\n", "ID", "FILE", "STATUS", "PAGES", "CREATED")
			for _, job := range jobs {
				fmt.Printf("%-36s %-30s %-10s %5d %s\n",
					job.ID,
					truncateName(job.FileName, 30),
					job.Status,
					len(job.PageRefs),
					job.CreatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func jobsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			job, err := store.GetJob(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get job: %w", err)
			}

			fmt.Printf("Job:        %s\n", job.ID)
			fmt.Printf("Company:    %s\n", job.CompanyID)
			fmt.Printf("File:       %s\n", job.FileName)
			fmt.Printf("Status:     %s\n", job.Status)
			fmt.Printf("Pages:      %d (original pages %s)\n", len(job.PageRefs), formatPageNumbers(job.PageNumbers))
			fmt.Printf("Multi-page: %v\n", job.IsMultiPage)
			fmt.Printf("Split:      %v (document %d)\n", job.SplitFromOriginal, job.DocumentIndex+1)
			fmt.Printf("Created:    %s\n", job.CreatedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func jobsStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id> <processing|ready|failed>",
		Short: "Move a job to a new status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			status := model.JobStatus(args[1])
			switch status {
			case model.JobStatusProcessing, model.JobStatusReady, model.JobStatusFailed:
			default:
				return fmt.Errorf("unknown job status %q", args[1])
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.UpdateJobStatus(ctx, args[0], status); err != nil {
				return fmt.Errorf("failed to update job status: %w", err)
			}

			fmt.Printf("Job %s is now %s\n", args[0], status)
			return nil
		},
	}
}

func formatPageNumbers(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, ", ")
}
