package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"notedump/internal/convert"
	"notedump/internal/graph"
	"notedump/internal/links"
	"notedump/internal/logging"
	"notedump/internal/naming"
	"notedump/internal/pipeline"
	"notedump/internal/services"
	"notedump/internal/walker"
)

type fakeFetcher struct {
	mu          sync.Mutex
	pages       map[string][]byte
	attachments map[string][]byte
	fail        map[string]error
	delay       time.Duration
}

func (f *fakeFetcher) PageContent(ctx context.Context, pageID string) ([]byte, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fail[pageID]; ok {
		return nil, err
	}
	content, ok := f.pages[pageID]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "graph", "request", pageID, nil)
	}
	return content, nil
}

func (f *fakeFetcher) Attachment(ctx context.Context, resourceURL string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if data, ok := f.attachments[resourceURL]; ok {
		return data, nil
	}
	return nil, services.Wrap(services.ErrNotFound, "graph", "request", resourceURL, nil)
}

func page(body string) []byte {
	return []byte("<html><body>" + body + "</body></html>")
}

// sliceSource registers every item with the resolver up front and then
// emits them, the same ordering contract the walker provides.
func sliceSource(resolver *links.Resolver, items []walker.Item) pipeline.Source {
	return func(ctx context.Context, emit walker.EmitFunc) error {
		for _, item := range items {
			resolver.Register(item.Stub.ID, item.Filename)
		}
		for _, item := range items {
			if err := emit(ctx, item); err != nil {
				return err
			}
		}
		return nil
	}
}

func makeItems(n int) []walker.Item {
	items := make([]walker.Item, 0, n)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("p-%d", i)
		title := fmt.Sprintf("Page %d", i)
		items = append(items, walker.Item{
			Stub:     graph.PageStub{ID: id, Title: title, Order: i},
			Notebook: "Trips",
			Section:  "Alps",
			Filename: naming.PageFilename(title, id),
		})
	}
	return items
}

func newOrchestrator(fetcher pipeline.Fetcher, resolver *links.Resolver) *pipeline.Orchestrator {
	return pipeline.New(fetcher, convert.New(resolver), nil, logging.NewNop())
}

func TestRunCountsAddUp(t *testing.T) {
	items := makeItems(20)
	fetcher := &fakeFetcher{pages: map[string][]byte{}, fail: map[string]error{}}
	for _, item := range items {
		fetcher.pages[item.Stub.ID] = page("<p>content</p>")
	}
	fetcher.fail["p-3"] = services.Wrap(services.ErrFatal, "graph", "request", "status 400", nil)
	fetcher.fail["p-17"] = services.Wrap(services.ErrRateLimited, "graph", "request", "retries exhausted", nil)

	resolver := links.NewResolver()
	result, err := newOrchestrator(fetcher, resolver).Run(context.Background(), pipeline.Options{
		Notebook:    "Trips",
		OutputDir:   t.TempDir(),
		Concurrency: 4,
	}, sliceSource(resolver, items))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Stats.Total != 20 {
		t.Fatalf("total = %d, want 20", result.Stats.Total)
	}
	if result.Stats.Succeeded+result.Stats.Failed != result.Stats.Total {
		t.Fatalf("succeeded %d + failed %d != total %d",
			result.Stats.Succeeded, result.Stats.Failed, result.Stats.Total)
	}
	if result.Stats.Failed != 2 || len(result.Failures) != 2 {
		t.Fatalf("failed = %d, failures = %v", result.Stats.Failed, result.Failures)
	}
}

func TestRunWritesMarkdownFiles(t *testing.T) {
	items := makeItems(2)
	fetcher := &fakeFetcher{pages: map[string][]byte{
		"p-1": page("<h1>One</h1><p>alpha</p>"),
		"p-2": page("<p>beta</p>"),
	}}
	outputDir := t.TempDir()

	resolver := links.NewResolver()
	result, err := newOrchestrator(fetcher, resolver).Run(context.Background(), pipeline.Options{
		Notebook:    "Trips",
		OutputDir:   outputDir,
		Concurrency: 2,
	}, sliceSource(resolver, items))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stats.Succeeded != 2 {
		t.Fatalf("succeeded = %d, failures = %v", result.Stats.Succeeded, result.Failures)
	}

	data, err := os.ReadFile(filepath.Join(outputDir, items[0].Filename))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "title: Page 1\n") {
		t.Fatalf("missing header:\n%s", text)
	}
	if !strings.Contains(text, "# One") || !strings.Contains(text, "alpha") {
		t.Fatalf("missing body:\n%s", text)
	}
}

func TestRunResolvesLinksRegardlessOfDispatchOrder(t *testing.T) {
	items := makeItems(2)
	linkTo := func(id string) string {
		return fmt.Sprintf(`<p>see <a href="https://graph.microsoft.com/v1.0/me/onenote/pages/%s">other</a></p>`, id)
	}
	fetcher := &fakeFetcher{pages: map[string][]byte{
		"p-1": page(linkTo("p-2")),
		"p-2": page(linkTo("p-1")),
	}}
	outputDir := t.TempDir()

	resolver := links.NewResolver()
	result, err := newOrchestrator(fetcher, resolver).Run(context.Background(), pipeline.Options{
		Notebook:    "Trips",
		OutputDir:   outputDir,
		Concurrency: 2,
	}, sliceSource(resolver, items))
	if err != nil || result.Stats.Succeeded != 2 {
		t.Fatalf("Run = %+v, %v", result, err)
	}

	first, _ := os.ReadFile(filepath.Join(outputDir, items[0].Filename))
	second, _ := os.ReadFile(filepath.Join(outputDir, items[1].Filename))
	if !strings.Contains(string(first), "@note("+items[1].Filename+")") {
		t.Fatalf("page 1 did not resolve forward link:\n%s", first)
	}
	if !strings.Contains(string(second), "@note("+items[0].Filename+")") {
		t.Fatalf("page 2 did not resolve backward link:\n%s", second)
	}
}

func TestRunOutOfScopeLinkDegrades(t *testing.T) {
	items := makeItems(1)
	fetcher := &fakeFetcher{pages: map[string][]byte{
		"p-1": page(`<p><a href="https://graph.microsoft.com/v1.0/me/onenote/pages/p-elsewhere">old</a></p>`),
	}}
	outputDir := t.TempDir()

	resolver := links.NewResolver()
	result, err := newOrchestrator(fetcher, resolver).Run(context.Background(), pipeline.Options{
		Notebook:    "Trips",
		OutputDir:   outputDir,
		Concurrency: 1,
	}, sliceSource(resolver, items))
	if err != nil || result.Stats.Succeeded != 1 {
		t.Fatalf("Run = %+v, %v", result, err)
	}
	data, _ := os.ReadFile(filepath.Join(outputDir, items[0].Filename))
	if !strings.Contains(string(data), "old [broken link]") {
		t.Fatalf("missing broken-link fallback:\n%s", data)
	}
}

func TestRunBackpressure(t *testing.T) {
	items := makeItems(1000)
	fetcher := &fakeFetcher{pages: map[string][]byte{}, delay: time.Millisecond}
	for _, item := range items {
		fetcher.pages[item.Stub.ID] = page("<p>x</p>")
	}

	var mu sync.Mutex
	var maxPending int64
	resolver := links.NewResolver()
	result, err := newOrchestrator(fetcher, resolver).Run(context.Background(), pipeline.Options{
		Notebook:         "Trips",
		OutputDir:        t.TempDir(),
		Concurrency:      4,
		QueueDepthFactor: 2,
		Observe: func(pending int64) {
			mu.Lock()
			if pending > maxPending {
				maxPending = pending
			}
			mu.Unlock()
		},
	}, sliceSource(resolver, items))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stats.Total != 1000 {
		t.Fatalf("total = %d", result.Stats.Total)
	}
	// queue capacity (2*4) plus one task per worker
	if maxPending > 12 {
		t.Fatalf("max pending = %d, want <= 12", maxPending)
	}
}

func TestRunAttachmentsWritten(t *testing.T) {
	items := makeItems(1)
	fetcher := &fakeFetcher{
		pages: map[string][]byte{
			"p-1": page(`<p><img src="https://res/1" alt="photo.png"/><img src="https://res/1" alt="photo.png"/></p>`),
		},
		attachments: map[string][]byte{
			"https://res/1": []byte("png-bytes"),
		},
	}
	outputDir := t.TempDir()

	resolver := links.NewResolver()
	result, err := newOrchestrator(fetcher, resolver).Run(context.Background(), pipeline.Options{
		Notebook:    "Trips",
		OutputDir:   outputDir,
		Concurrency: 1,
	}, sliceSource(resolver, items))
	if err != nil || result.Stats.Succeeded != 1 {
		t.Fatalf("Run = %+v, %v", result, err)
	}

	stem := strings.TrimSuffix(items[0].Filename, ".md")
	first := filepath.Join(outputDir, stem+"_attachments", "photo.png")
	second := filepath.Join(outputDir, stem+"_attachments", "photo-1.png")
	for _, path := range []string{first, second} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("attachment missing: %v", err)
		}
	}
	data, _ := os.ReadFile(filepath.Join(outputDir, items[0].Filename))
	if !strings.Contains(string(data), "@attachment("+stem+"_attachments/photo.png)") ||
		!strings.Contains(string(data), "@attachment("+stem+"_attachments/photo-1.png)") {
		t.Fatalf("body does not reference both attachments:\n%s", data)
	}
}

func TestRunIdempotent(t *testing.T) {
	items := makeItems(3)
	fetcher := &fakeFetcher{pages: map[string][]byte{}}
	for _, item := range items {
		fetcher.pages[item.Stub.ID] = page("<h2>Stable</h2><p>content</p>")
	}

	export := func() map[string]string {
		outputDir := t.TempDir()
		resolver := links.NewResolver()
		_, err := newOrchestrator(fetcher, resolver).Run(context.Background(), pipeline.Options{
			Notebook:    "Trips",
			OutputDir:   outputDir,
			Concurrency: 3,
		}, sliceSource(resolver, items))
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		files := map[string]string{}
		entries, err := os.ReadDir(outputDir)
		if err != nil {
			t.Fatalf("read output dir: %v", err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			data, err := os.ReadFile(filepath.Join(outputDir, entry.Name()))
			if err != nil {
				t.Fatalf("read %s: %v", entry.Name(), err)
			}
			files[entry.Name()] = string(data)
		}
		return files
	}

	first := export()
	second := export()
	if len(first) != 3 {
		t.Fatalf("files = %d, want 3", len(first))
	}
	for name, content := range first {
		if second[name] != content {
			t.Fatalf("output for %s differs between runs", name)
		}
	}
}

func TestRunEnumerationFailureAborts(t *testing.T) {
	fetcher := &fakeFetcher{}
	resolver := links.NewResolver()
	wantErr := services.Wrap(services.ErrNotFound, "walker", "notebook", "no notebook named \"x\"", nil)

	result, err := newOrchestrator(fetcher, resolver).Run(context.Background(), pipeline.Options{
		Notebook:    "x",
		OutputDir:   t.TempDir(),
		Concurrency: 2,
	}, func(ctx context.Context, emit walker.EmitFunc) error {
		return wantErr
	})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want not-found", err)
	}
	if result.Stats.Total != 0 {
		t.Fatalf("total = %d, want 0", result.Stats.Total)
	}
}

func TestRunCancellation(t *testing.T) {
	items := makeItems(100)
	fetcher := &fakeFetcher{pages: map[string][]byte{}, delay: 5 * time.Millisecond}
	for _, item := range items {
		fetcher.pages[item.Stub.ID] = page("<p>x</p>")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(25 * time.Millisecond)
		cancel()
	}()

	resolver := links.NewResolver()
	result, err := newOrchestrator(fetcher, resolver).Run(ctx, pipeline.Options{
		Notebook:    "Trips",
		OutputDir:   t.TempDir(),
		Concurrency: 2,
	}, sliceSource(resolver, items))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if result == nil {
		t.Fatal("no partial statistics returned")
	}
	if result.Stats.Total >= 100 {
		t.Fatalf("total = %d, dispatch did not stop", result.Stats.Total)
	}
	if result.Stats.Succeeded+result.Stats.Failed != result.Stats.Total {
		t.Fatalf("counts inconsistent after cancel: %+v", result.Stats)
	}
}
