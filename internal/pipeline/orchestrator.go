package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"notedump/internal/attach"
	"notedump/internal/convert"
	"notedump/internal/journal"
	"notedump/internal/logging"
	"notedump/internal/markup"
	"notedump/internal/services"
	"notedump/internal/walker"
)

// Fetcher is the slice of the Graph client the workers consume.
type Fetcher interface {
	PageContent(ctx context.Context, pageID string) ([]byte, error)
	Attachment(ctx context.Context, resourceURL string) ([]byte, error)
}

// Source feeds page items into the pipeline, blocking on emit for
// backpressure. The walker's Walk method has this shape.
type Source func(ctx context.Context, emit walker.EmitFunc) error

// Stats are the aggregate counts of one run.
type Stats struct {
	Total     int
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// Failure describes one page that did not export.
type Failure struct {
	PageID string
	Title  string
	Err    error
}

// Result is everything a finished run reports.
type Result struct {
	RunID    string
	Stats    Stats
	Failures []Failure
}

// Options configures one run.
type Options struct {
	RunID            string // assigned when empty
	Notebook         string
	Section          string
	OutputDir        string
	Concurrency      int
	QueueDepthFactor int

	// Observe, when set, receives the number of queued plus in-flight
	// tasks after every enqueue. Used by backpressure tests.
	Observe func(pending int64)
}

type outcome struct {
	item walker.Item
	err  error
}

// Orchestrator owns the worker pool.
type Orchestrator struct {
	fetcher   Fetcher
	converter *convert.Converter
	store     *journal.Store // optional
	logger    *slog.Logger
}

func New(fetcher Fetcher, converter *convert.Converter, store *journal.Store, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		fetcher:   fetcher,
		converter: converter,
		store:     store,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Run drains the source through the worker pool and reports aggregate
// statistics. The returned error is non-nil only for run-aborting
// conditions: a failed enumeration or a cancelled context. Individual page
// failures land in the result instead.
func (o *Orchestrator) Run(ctx context.Context, opts Options, source Source) (*Result, error) {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	depthFactor := opts.QueueDepthFactor
	if depthFactor <= 0 {
		depthFactor = 2
	}

	ctx = services.WithRunID(ctx, opts.RunID)
	logger := logging.WithContext(ctx, o.logger)
	started := time.Now()

	if o.store != nil {
		err := o.store.StartRun(ctx, journal.Run{
			ID:        opts.RunID,
			Notebook:  opts.Notebook,
			Section:   opts.Section,
			OutputDir: opts.OutputDir,
			StartedAt: started,
		})
		if err != nil {
			logger.Warn("journal unavailable for this run", logging.Error(err))
		}
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrIO, "pipeline", "output dir", opts.OutputDir, err)
	}

	tasks := make(chan walker.Item, depthFactor*concurrency)
	outcomes := make(chan outcome, concurrency)
	var pending atomic.Int64

	// Producer: the walker blocks here once the queue is full.
	walkErr := make(chan error, 1)
	go func() {
		defer close(tasks)
		walkErr <- source(ctx, func(ctx context.Context, item walker.Item) error {
			select {
			case tasks <- item:
				if opts.Observe != nil {
					opts.Observe(pending.Add(1))
				}
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range tasks {
				err := o.process(ctx, opts, item)
				pending.Add(-1)
				outcomes <- outcome{item: item, err: err}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	// Single mutation point for the statistics.
	result := &Result{RunID: opts.RunID}
	for out := range outcomes {
		result.Stats.Total++
		status := journal.PageSucceeded
		errText := ""
		if out.err != nil {
			result.Stats.Failed++
			result.Failures = append(result.Failures, Failure{
				PageID: out.item.Stub.ID,
				Title:  out.item.Stub.Title,
				Err:    out.err,
			})
			status = journal.PageFailed
			errText = out.err.Error()
			logger.Warn("page failed",
				logging.String(logging.FieldPageID, out.item.Stub.ID),
				logging.String(logging.FieldPageTitle, out.item.Stub.Title),
				logging.Error(out.err))
		} else {
			result.Stats.Succeeded++
			logger.Info("page exported",
				logging.String(logging.FieldPageID, out.item.Stub.ID),
				logging.String("filename", out.item.Filename))
		}
		if o.store != nil {
			recErr := o.store.RecordPage(ctx, journal.PageRecord{
				RunID:       opts.RunID,
				PageID:      out.item.Stub.ID,
				Title:       out.item.Stub.Title,
				Filename:    out.item.Filename,
				Status:      status,
				Error:       errText,
				CompletedAt: time.Now(),
			})
			if recErr != nil {
				logger.Warn("journal write failed", logging.Error(recErr))
			}
		}
	}
	result.Stats.Duration = time.Since(started)

	if o.store != nil {
		err := o.store.FinishRun(ctx, opts.RunID, result.Stats.Total,
			result.Stats.Succeeded, result.Stats.Failed, time.Now())
		if err != nil {
			logger.Warn("journal write failed", logging.Error(err))
		}
	}

	if err := <-walkErr; err != nil {
		return result, err
	}
	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	logger.Info("run complete",
		logging.Int("total", result.Stats.Total),
		logging.Int("succeeded", result.Stats.Succeeded),
		logging.Int("failed", result.Stats.Failed),
		logging.Duration("duration", result.Stats.Duration))
	return result, nil
}

// process moves one page through fetch, convert, and write.
func (o *Orchestrator) process(ctx context.Context, opts Options, item walker.Item) error {
	ctx = services.WithPageID(ctx, item.Stub.ID)

	content, err := o.fetcher.PageContent(services.WithStage(ctx, StateFetching.String()), item.Stub.ID)
	if err != nil {
		return err
	}

	doc, err := markup.Parse(content)
	if err != nil {
		return err
	}

	writer := attach.NewWriter(opts.OutputDir, item.Filename)
	attachFn := func(target, suggestedName string) (string, error) {
		data, err := o.fetcher.Attachment(services.WithStage(ctx, StateConverting.String()), target)
		if err != nil {
			return "", err
		}
		return writer.Write(data, suggestedName)
	}

	res, err := o.converter.Convert(convert.Metadata{
		Title:    item.Stub.Title,
		Notebook: item.Notebook,
		Section:  item.Section,
		Created:  item.Stub.Created,
		Modified: item.Stub.Modified,
	}, doc, attachFn)
	if err != nil {
		return err
	}

	path := filepath.Join(opts.OutputDir, item.Filename)
	if err := os.WriteFile(path, []byte(res.Markdown), 0o644); err != nil {
		return services.Wrap(services.ErrIO, "pipeline", StateWriting.String(), path, err)
	}
	return nil
}
