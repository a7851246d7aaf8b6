package markup

// Kind enumerates the closed set of node variants.
type Kind int

const (
	KindDocument Kind = iota
	KindHeading
	KindParagraph
	KindList
	KindListItem
	KindTable
	KindTableRow
	KindTableCell
	KindImage
	KindAttachment
	KindLink
	KindText
	KindLineBreak
	KindCodeBlock
	KindUnknown
)

var kindNames = map[Kind]string{
	KindDocument:   "document",
	KindHeading:    "heading",
	KindParagraph:  "paragraph",
	KindList:       "list",
	KindListItem:   "list_item",
	KindTable:      "table",
	KindTableRow:   "table_row",
	KindTableCell:  "table_cell",
	KindImage:      "image",
	KindAttachment: "attachment",
	KindLink:       "link",
	KindText:       "text",
	KindLineBreak:  "line_break",
	KindCodeBlock:  "code_block",
	KindUnknown:    "unknown",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "invalid"
}

// Style carries inline text formatting flags, accumulated while descending
// through styling elements.
type Style struct {
	Bold      bool
	Italic    bool
	Underline bool
	Strike    bool
	Code      bool
}

func (s Style) merge(other Style) Style {
	return Style{
		Bold:      s.Bold || other.Bold,
		Italic:    s.Italic || other.Italic,
		Underline: s.Underline || other.Underline,
		Strike:    s.Strike || other.Strike,
		Code:      s.Code || other.Code,
	}
}

// Node is one element of the parsed page tree. Field use depends on Kind:
// Level for headings, Ordered for lists, Text/TextStyle for text runs,
// Target for link hrefs, image sources, and attachment data URLs, Name for
// attachment filenames and unknown tag names, Alt for image alt text.
type Node struct {
	Kind      Kind
	Level     int
	Ordered   bool
	Text      string
	TextStyle Style
	Target    string
	Name      string
	Alt       string
	Children  []*Node
}

// AttachmentRefs walks the tree and returns the remote URLs of every image
// and file attachment, in document order.
func (n *Node) AttachmentRefs() []string {
	var refs []string
	n.walk(func(node *Node) {
		if (node.Kind == KindImage || node.Kind == KindAttachment) && node.Target != "" {
			refs = append(refs, node.Target)
		}
	})
	return refs
}

func (n *Node) walk(visit func(*Node)) {
	if n == nil {
		return
	}
	visit(n)
	for _, child := range n.Children {
		child.walk(visit)
	}
}
