// Package attach persists page attachments under a collision-free layout.
//
// Each page owns a "<stem>_attachments" directory next to its markdown
// file, so names can only collide within a single page; duplicates there
// receive deterministic numeric suffixes.
package attach

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"notedump/internal/naming"
	"notedump/internal/services"
)

// Writer stores attachments for exactly one page. It is owned by the worker
// converting that page and must not be shared.
type Writer struct {
	outputDir string
	dirName   string
	created   bool
	usedNames map[string]int
}

// NewWriter returns a writer for the page identified by its destination
// filename. The attachment directory is created lazily on first write, so
// pages without attachments leave no empty directories behind.
func NewWriter(outputDir, pageFilename string) *Writer {
	return &Writer{
		outputDir: outputDir,
		dirName:   naming.AttachmentDir(pageFilename),
		usedNames: make(map[string]int),
	}
}

// Write persists one attachment and returns the relative path the page's
// markdown should reference.
func (w *Writer) Write(data []byte, suggestedName string) (string, error) {
	name := w.dedupe(sanitizeName(suggestedName))

	if !w.created {
		if err := os.MkdirAll(filepath.Join(w.outputDir, w.dirName), 0o755); err != nil {
			return "", services.Wrap(services.ErrIO, "attach", "create directory", w.dirName, err)
		}
		w.created = true
	}

	target := filepath.Join(w.outputDir, w.dirName, name)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", services.Wrap(services.ErrIO, "attach", "write", name, err)
	}
	return filepath.ToSlash(filepath.Join(w.dirName, name)), nil
}

// dedupe appends -1, -2, ... before the extension for repeated names.
func (w *Writer) dedupe(name string) string {
	count, seen := w.usedNames[name]
	if !seen {
		w.usedNames[name] = 0
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for {
		count++
		candidate := fmt.Sprintf("%s-%d%s", base, count, ext)
		if _, taken := w.usedNames[candidate]; !taken {
			w.usedNames[name] = count
			w.usedNames[candidate] = 0
			return candidate
		}
	}
}

func sanitizeName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "attachment.bin"
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if strings.ContainsRune(`/\:*?"<>|`, r) || r < ' ' {
			b.WriteByte('-')
			continue
		}
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), " .")
	if out == "" {
		return "attachment.bin"
	}
	return out
}
