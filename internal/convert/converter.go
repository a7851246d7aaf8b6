package convert

import (
	"fmt"
	"strings"
	"time"

	"notedump/internal/links"
	"notedump/internal/markup"
)

// Metadata is the page context rendered into the header block.
type Metadata struct {
	Title    string
	Notebook string
	Section  string
	Created  time.Time
	Modified time.Time
}

// AttachFunc persists one embedded resource and returns the relative path
// the markdown should reference. Implementations typically fetch the
// resource and hand the bytes to an attachment writer.
type AttachFunc func(target, suggestedName string) (string, error)

// Result is a fully converted page.
type Result struct {
	Markdown      string
	ResolvedLinks []string
	BrokenLinks   []string
	Attachments   []string
}

// Converter renders page trees to markdown, consulting the resolver for
// cross-page references.
type Converter struct {
	resolver *links.Resolver
}

func New(resolver *links.Resolver) *Converter {
	return &Converter{resolver: resolver}
}

// Convert renders one page. Unsupported elements degrade to inline error
// markers; only attachment persistence failures fail the page.
func (c *Converter) Convert(meta Metadata, doc *markup.Node, attach AttachFunc) (*Result, error) {
	r := &renderer{resolver: c.resolver, attach: attach, result: &Result{}}

	var blocks []string
	for _, child := range doc.Children {
		block, err := r.renderBlock(child, 0)
		if err != nil {
			return nil, err
		}
		if block != "" {
			blocks = append(blocks, block)
		}
	}

	var b strings.Builder
	writeHeader(&b, meta)
	b.WriteString(strings.Join(blocks, "\n\n"))
	b.WriteString("\n")
	r.result.Markdown = b.String()
	return r.result, nil
}

// writeHeader emits the metadata block. Key order is fixed so re-exports
// diff cleanly.
func writeHeader(b *strings.Builder, meta Metadata) {
	fmt.Fprintf(b, "title: %s\n", meta.Title)
	fmt.Fprintf(b, "created: %s\n", meta.Created.UTC().Format(time.RFC3339))
	fmt.Fprintf(b, "modified: %s\n", meta.Modified.UTC().Format(time.RFC3339))
	fmt.Fprintf(b, "notebook: %s\n", meta.Notebook)
	fmt.Fprintf(b, "section: %s\n", meta.Section)
	b.WriteString("\n")
}

type renderer struct {
	resolver *links.Resolver
	attach   AttachFunc
	result   *Result
}

func (r *renderer) renderBlock(n *markup.Node, depth int) (string, error) {
	switch n.Kind {
	case markup.KindHeading:
		inline, err := r.renderInlineChildren(n)
		if err != nil {
			return "", err
		}
		level := n.Level
		if level < 1 {
			level = 1
		}
		if level > 6 {
			level = 6
		}
		return strings.Repeat("#", level) + " " + strings.TrimSpace(inline), nil
	case markup.KindParagraph:
		inline, err := r.renderInlineChildren(n)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(inline), nil
	case markup.KindList:
		lines, err := r.renderList(n, depth)
		if err != nil {
			return "", err
		}
		return strings.Join(lines, "\n"), nil
	case markup.KindTable:
		return r.renderTable(n)
	case markup.KindCodeBlock:
		return "```\n" + n.Text + "\n```", nil
	case markup.KindUnknown:
		return degraded(n), nil
	default:
		// Stray inline content at block level renders as a paragraph.
		inline, err := r.renderInline(n)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(inline), nil
	}
}

func (r *renderer) renderList(n *markup.Node, depth int) ([]string, error) {
	var lines []string
	indent := strings.Repeat("    ", depth)
	for i, item := range n.Children {
		marker := "- "
		if n.Ordered {
			marker = fmt.Sprintf("%d. ", i+1)
		}

		var inline strings.Builder
		var nested []string
		for _, child := range item.Children {
			if child.Kind == markup.KindList {
				sub, err := r.renderList(child, depth+1)
				if err != nil {
					return nil, err
				}
				nested = append(nested, sub...)
				continue
			}
			part, err := r.renderInline(child)
			if err != nil {
				return nil, err
			}
			inline.WriteString(part)
		}
		lines = append(lines, indent+marker+strings.TrimSpace(inline.String()))
		lines = append(lines, nested...)
	}
	return lines, nil
}

func (r *renderer) renderTable(n *markup.Node) (string, error) {
	var lines []string
	for i, row := range n.Children {
		if row.Kind != markup.KindTableRow {
			continue
		}
		var cells []string
		for _, cell := range row.Children {
			inline, err := r.renderInlineChildren(cell)
			if err != nil {
				return "", err
			}
			cells = append(cells, strings.TrimSpace(inline))
		}
		lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
		if i == 0 {
			separators := make([]string, len(cells))
			for j := range separators {
				separators[j] = "---"
			}
			lines = append(lines, "| "+strings.Join(separators, " | ")+" |")
		}
	}
	return strings.Join(lines, "\n"), nil
}

func (r *renderer) renderInlineChildren(n *markup.Node) (string, error) {
	var b strings.Builder
	for _, child := range n.Children {
		part, err := r.renderInline(child)
		if err != nil {
			return "", err
		}
		b.WriteString(part)
	}
	return b.String(), nil
}

func (r *renderer) renderInline(n *markup.Node) (string, error) {
	switch n.Kind {
	case markup.KindText:
		return styled(n.Text, n.TextStyle), nil
	case markup.KindLineBreak:
		return "  \n", nil
	case markup.KindLink:
		return r.renderLink(n)
	case markup.KindImage:
		name := n.Name
		if name == "" {
			name = n.Alt
		}
		if name == "" {
			name = "image"
		}
		return r.renderAttachment(n.Target, name)
	case markup.KindAttachment:
		name := n.Name
		if name == "" {
			name = "attachment"
		}
		return r.renderAttachment(n.Target, name)
	case markup.KindUnknown:
		return degraded(n), nil
	default:
		return r.renderInlineChildren(n)
	}
}

func (r *renderer) renderLink(n *markup.Node) (string, error) {
	text, err := r.renderInlineChildren(n)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)

	pageID, isPage := links.PageID(n.Target)
	if !isPage {
		if text == "" {
			text = n.Target
		}
		return fmt.Sprintf("[%s](%s)", text, n.Target), nil
	}

	filename, ok := r.resolver.Resolve(pageID)
	if !ok {
		r.result.BrokenLinks = append(r.result.BrokenLinks, pageID)
		if text == "" {
			return "[broken link]", nil
		}
		return text + " [broken link]", nil
	}
	r.result.ResolvedLinks = append(r.result.ResolvedLinks, filename)
	return fmt.Sprintf("@note(%s)", filename), nil
}

func (r *renderer) renderAttachment(target, suggestedName string) (string, error) {
	if target == "" {
		return degraded(&markup.Node{Kind: markup.KindAttachment, Name: suggestedName}), nil
	}
	rel, err := r.attach(target, suggestedName)
	if err != nil {
		return "", err
	}
	r.result.Attachments = append(r.result.Attachments, rel)
	return fmt.Sprintf("@attachment(%s)", rel), nil
}

func degraded(n *markup.Node) string {
	name := n.Name
	if name == "" {
		name = n.Kind.String()
	}
	return fmt.Sprintf("[conversion error: unsupported %s element]", name)
}

// styled wraps a text run in markdown delimiters. Leading and trailing
// spaces stay outside the delimiters, which markdown would otherwise
// refuse to honor. Underline has no markdown equivalent and degrades to
// emphasis.
func styled(text string, style markup.Style) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return text
	}
	leading := text[:strings.Index(text, trimmed[:1])]
	trailing := text[len(leading)+len(trimmed):]

	out := trimmed
	if style.Code {
		out = "`" + out + "`"
	} else {
		switch {
		case style.Bold && (style.Italic || style.Underline):
			out = "***" + out + "***"
		case style.Bold:
			out = "**" + out + "**"
		case style.Italic || style.Underline:
			out = "*" + out + "*"
		}
		if style.Strike {
			out = "~~" + out + "~~"
		}
	}
	return leading + out + trailing
}
