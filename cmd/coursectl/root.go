package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/wtppaul/course-catalog/internal/jobs"
)

// Defaults are the configured job settings flags fall back to.
type Defaults struct {
	TieBreak  string
	BatchSize int
}

// Opener connects to the catalog. close releases everything it opened.
type Opener func(ctx context.Context, configPath string) (runner *jobs.Runner, defaults Defaults, close func(), err error)

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, open Opener) int {
	return runWithOutput(ctx, args, open, os.Stdout, os.Stderr)
}

func runWithOutput(ctx context.Context, args []string, open Opener, stdout, stderr io.Writer) int {
	root := newRootCmd(open)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func newRootCmd(open Opener) *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "coursectl",
		Short:         "Course catalog maintenance jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", ".", "directory holding an optional app.env")

	root.AddCommand(newLinkChaptersCmd(open, &configPath))
	root.AddCommand(newMigrateAccessCmd(open, &configPath))
	return root
}

func newLinkChaptersCmd(open Opener, configPath *string) *cobra.Command {
	var (
		courseID string
		dryRun   bool
		tieBreak string
	)
	cmd := &cobra.Command{
		Use:   "link-chapters",
		Short: "Link chapters to the same-titled chapter of the previous version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := jobs.LinkOptions{DryRun: dryRun}
			if courseID != "" {
				id, err := uuid.Parse(courseID)
				if err != nil {
					return fmt.Errorf("invalid --course: %w", err)
				}
				opts.CourseID = &id
			}

			runner, defaults, closeFn, err := open(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer closeFn()

			if !cmd.Flags().Changed("tie-break") {
				tieBreak = defaults.TieBreak
			}
			if opts.TieBreak, err = jobs.ParseTieBreak(tieBreak); err != nil {
				return err
			}

			report, runErr := runner.LinkChapters(cmd.Context(), opts)
			if report != nil {
				fmt.Fprintln(cmd.OutOrStdout(), report.Summary())
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&courseID, "course", "", "only link chapters of this course id")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be linked without writing")
	cmd.Flags().StringVar(&tieBreak, "tie-break", string(jobs.TieBreakSkip), "ambiguous title policy: skip or last-wins")
	return cmd
}

func newMigrateAccessCmd(open Opener, configPath *string) *cobra.Command {
	var (
		dryRun    bool
		batchSize int
	)
	cmd := &cobra.Command{
		Use:   "migrate-access",
		Short: "Create access grants for completed purchases that lack one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner, defaults, closeFn, err := open(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer closeFn()

			if !cmd.Flags().Changed("batch-size") {
				batchSize = defaults.BatchSize
			}
			if batchSize < 1 {
				return fmt.Errorf("--batch-size must be positive")
			}

			report, runErr := runner.MigrateAccess(cmd.Context(), jobs.MigrateOptions{DryRun: dryRun, BatchSize: batchSize})
			if report != nil {
				fmt.Fprintln(cmd.OutOrStdout(), report.Summary())
			}
			return runErr
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be created without writing")
	cmd.Flags().IntVar(&batchSize, "batch-size", jobs.DefaultBatchSize, "purchases read per page")
	return cmd
}
