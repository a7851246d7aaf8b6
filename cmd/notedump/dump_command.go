package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"notedump/internal/auth"
	"notedump/internal/convert"
	"notedump/internal/graph"
	"notedump/internal/journal"
	"notedump/internal/links"
	"notedump/internal/logging"
	"notedump/internal/pipeline"
	"notedump/internal/services"
	"notedump/internal/walker"
)

func newDumpCommand(ctx *commandContext) *cobra.Command {
	var (
		outputDir   string
		sectionName string
		startPage   int
		maxPages    int
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "dump <notebook>",
		Short: "Export one notebook to markdown files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if outputDir == "" {
				outputDir = cfg.Paths.OutputDir
			}
			if concurrency <= 0 {
				concurrency = cfg.Export.Concurrency
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			// One export per output directory at a time.
			lock := flock.New(filepath.Join(outputDir, ".notedump.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire output lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another export is already writing to %s", outputDir)
			}
			defer func() { _ = lock.Unlock() }()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			tokens := auth.NewManager(cfg, logger)
			client := graph.NewClient(cfg, tokens, logger)
			resolver := links.NewResolver()
			w := walker.New(client, resolver, logger)

			store, err := journal.Open(cfg)
			if err != nil {
				logger.Warn("run journal unavailable", logging.Error(err))
				store = nil
			} else {
				defer store.Close()
			}

			orchestrator := pipeline.New(client, convert.New(resolver), store, logger)
			result, runErr := orchestrator.Run(runCtx, pipeline.Options{
				Notebook:         args[0],
				Section:          sectionName,
				OutputDir:        outputDir,
				Concurrency:      concurrency,
				QueueDepthFactor: cfg.Export.QueueDepthFactor,
			}, func(walkCtx context.Context, emit walker.EmitFunc) error {
				return w.Walk(walkCtx, walker.Options{
					Notebook:  args[0],
					Section:   sectionName,
					StartPage: startPage,
					MaxPages:  maxPages,
				}, emit)
			})

			if result != nil {
				printRunSummary(cmd, result, outputDir)
			}
			if errors.Is(runErr, services.ErrAuthExpired) {
				return fmt.Errorf("%w (run 'notedump login' first)", runErr)
			}
			// Individual page failures do not fail the command; only
			// run-aborting errors do.
			return runErr
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (defaults to paths.output_dir)")
	cmd.Flags().StringVarP(&sectionName, "section", "s", "", "Export only this section")
	cmd.Flags().IntVar(&startPage, "start-page", 0, "First page to export per section (1-indexed)")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "Maximum pages to export per section")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Worker pool size (defaults to export.concurrency)")
	return cmd
}

func printRunSummary(cmd *cobra.Command, result *pipeline.Result, outputDir string) {
	out := cmd.OutOrStdout()
	rows := [][]string{{
		result.RunID,
		strconv.Itoa(result.Stats.Total),
		successText(strconv.Itoa(result.Stats.Succeeded)),
		failureText(strconv.Itoa(result.Stats.Failed)),
		result.Stats.Duration.Round(time.Millisecond).String(),
	}}
	fmt.Fprintln(out, renderTable([]string{"Run", "Pages", "Succeeded", "Failed", "Duration"}, rows, 1, 2, 3, 4))

	if len(result.Failures) > 0 {
		failureRows := make([][]string, 0, len(result.Failures))
		for _, failure := range result.Failures {
			failureRows = append(failureRows, []string{failure.PageID, failure.Title, failure.Err.Error()})
		}
		fmt.Fprintln(out, renderTable([]string{"Page", "Title", "Cause"}, failureRows))
	}
	fmt.Fprintf(out, "Markdown written to %s\n", outputDir)
}
