package walker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"notedump/internal/graph"
	"notedump/internal/links"
	"notedump/internal/logging"
	"notedump/internal/naming"
	"notedump/internal/services"
)

// Client is the slice of the Graph API the walker consumes.
type Client interface {
	Notebooks(ctx context.Context) ([]graph.Notebook, error)
	Sections(ctx context.Context, notebookID string) ([]graph.Section, error)
	SectionGroups(ctx context.Context, notebookID string) ([]graph.SectionGroup, error)
	GroupSections(ctx context.Context, groupID string) ([]graph.Section, error)
	GroupSectionGroups(ctx context.Context, groupID string) ([]graph.SectionGroup, error)
	PageStubs(ctx context.Context, sectionID, cursor string) ([]graph.PageStub, string, error)
}

// Options selects what to export.
type Options struct {
	Notebook  string
	Section   string // optional exact-match section filter
	StartPage int    // 1-indexed first page per section; 0 means from the start
	MaxPages  int    // page cap per section; 0 means unlimited
}

// Item is one page selected for export, with the context the converter
// needs for the metadata header.
type Item struct {
	Stub     graph.PageStub
	Notebook string
	Section  string
	Filename string
}

// EmitFunc receives items in section order. It may block to apply
// backpressure; returning an error stops the walk.
type EmitFunc func(ctx context.Context, item Item) error

// Walker drives enumeration.
type Walker struct {
	client   Client
	resolver *links.Resolver
	logger   *slog.Logger
}

func New(client Client, resolver *links.Resolver, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Walker{
		client:   client,
		resolver: resolver,
		logger:   logging.NewComponentLogger(logger, "walker"),
	}
}

// Walk enumerates all pages selected by opts and passes them to emit. It
// fails before emitting anything when the notebook or section filter does
// not match, so enumeration errors never leave partial output behind.
func (w *Walker) Walk(ctx context.Context, opts Options, emit EmitFunc) error {
	notebook, err := w.findNotebook(ctx, opts.Notebook)
	if err != nil {
		return err
	}

	sections, err := w.collectSections(ctx, notebook.ID)
	if err != nil {
		return err
	}
	if opts.Section != "" {
		filtered := sections[:0]
		for _, section := range sections {
			if section.DisplayName == opts.Section {
				filtered = append(filtered, section)
			}
		}
		if len(filtered) == 0 {
			return services.Wrap(services.ErrNotFound, "walker", "section",
				fmt.Sprintf("no section named %q in notebook %q", opts.Section, notebook.DisplayName), nil)
		}
		sections = filtered
	}

	w.logger.Info("walking notebook",
		logging.String(logging.FieldNotebook, notebook.DisplayName),
		logging.Int("sections", len(sections)))

	for _, section := range sections {
		if err := w.walkSection(ctx, notebook, section, opts, emit); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) findNotebook(ctx context.Context, name string) (graph.Notebook, error) {
	notebooks, err := w.client.Notebooks(ctx)
	if err != nil {
		return graph.Notebook{}, err
	}
	// First exact case-sensitive match wins.
	for _, notebook := range notebooks {
		if notebook.DisplayName == name {
			return notebook, nil
		}
	}
	candidates := make([]string, 0, len(notebooks))
	for _, notebook := range notebooks {
		candidates = append(candidates, notebook.DisplayName)
	}
	return graph.Notebook{}, services.Wrap(services.ErrNotFound, "walker", "notebook",
		fmt.Sprintf("no notebook named %q, available: %s", name, strings.Join(candidates, ", ")), nil)
}

// collectSections returns the notebook's sections in tree order, descending
// section groups depth first.
func (w *Walker) collectSections(ctx context.Context, notebookID string) ([]graph.Section, error) {
	sections, err := w.client.Sections(ctx, notebookID)
	if err != nil {
		return nil, err
	}
	groups, err := w.client.SectionGroups(ctx, notebookID)
	if err != nil {
		return nil, err
	}
	for _, group := range groups {
		nested, err := w.collectGroup(ctx, group)
		if err != nil {
			return nil, err
		}
		sections = append(sections, nested...)
	}
	return sections, nil
}

func (w *Walker) collectGroup(ctx context.Context, group graph.SectionGroup) ([]graph.Section, error) {
	sections, err := w.client.GroupSections(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	children, err := w.client.GroupSectionGroups(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		nested, err := w.collectGroup(ctx, child)
		if err != nil {
			return nil, err
		}
		sections = append(sections, nested...)
	}
	return sections, nil
}

func (w *Walker) walkSection(ctx context.Context, notebook graph.Notebook, section graph.Section, opts Options, emit EmitFunc) error {
	var stubs []graph.PageStub
	cursor := ""
	for {
		page, next, err := w.client.PageStubs(ctx, section.ID, cursor)
		if err != nil {
			return err
		}
		stubs = append(stubs, page...)
		if next == "" {
			break
		}
		cursor = next
	}

	stubs = window(stubs, opts.StartPage, opts.MaxPages)
	w.logger.Debug("section enumerated",
		logging.String(logging.FieldSection, section.DisplayName),
		logging.Int("pages", len(stubs)))

	// Register the whole section before emitting anything from it.
	items := make([]Item, 0, len(stubs))
	for _, stub := range stubs {
		filename := naming.PageFilename(stub.Title, stub.ID)
		w.resolver.Register(stub.ID, filename)
		if clientID, ok := links.PageID(stub.Links.Client.Href); ok {
			w.resolver.Register(clientID, filename)
		}
		items = append(items, Item{
			Stub:     stub,
			Notebook: notebook.DisplayName,
			Section:  section.DisplayName,
			Filename: filename,
		})
	}
	for _, item := range items {
		if err := emit(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// window applies the 1-indexed start page and page cap.
func window(stubs []graph.PageStub, start, max int) []graph.PageStub {
	if start > 1 {
		if start > len(stubs) {
			return nil
		}
		stubs = stubs[start-1:]
	}
	if max > 0 && len(stubs) > max {
		stubs = stubs[:max]
	}
	return stubs
}
