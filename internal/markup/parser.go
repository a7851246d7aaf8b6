package markup

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"notedump/internal/services"
)

var bodyQuery = xpath.MustCompile("//body")

// Parse converts raw page XHTML into a document node tree.
func Parse(content []byte) (*Node, error) {
	root, err := xmlquery.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, services.Wrap(services.ErrConversion, "markup", "parse", "malformed page content", err)
	}
	body := xmlquery.QuerySelector(root, bodyQuery)
	if body == nil {
		return nil, services.Wrap(services.ErrConversion, "markup", "parse", "page content has no body element", nil)
	}

	doc := &Node{Kind: KindDocument}
	parseBlocks(body, doc)
	return doc, nil
}

// parseBlocks appends block-level nodes found under parent to dst.
func parseBlocks(parent *xmlquery.Node, dst *Node) {
	for child := parent.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case xmlquery.TextNode, xmlquery.CharDataNode:
			if text := collapseSpace(child.Data); text != "" {
				para := &Node{Kind: KindParagraph}
				para.Children = append(para.Children, &Node{Kind: KindText, Text: text})
				dst.Children = append(dst.Children, para)
			}
		case xmlquery.ElementNode:
			parseBlockElement(child, dst)
		}
	}
}

func parseBlockElement(el *xmlquery.Node, dst *Node) {
	switch strings.ToLower(el.Data) {
	case "div", "section", "article", "body":
		// OneNote wraps page content in nested divs; flatten them.
		parseBlocks(el, dst)
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level, _ := strconv.Atoi(el.Data[1:])
		heading := &Node{Kind: KindHeading, Level: level}
		parseInline(el, heading, Style{})
		dst.Children = append(dst.Children, heading)
	case "p":
		para := &Node{Kind: KindParagraph}
		parseInline(el, para, Style{})
		if len(para.Children) > 0 {
			dst.Children = append(dst.Children, para)
		}
	case "ul", "ol":
		dst.Children = append(dst.Children, parseList(el))
	case "table":
		dst.Children = append(dst.Children, parseTable(el))
	case "pre":
		dst.Children = append(dst.Children, &Node{Kind: KindCodeBlock, Text: innerText(el)})
	case "img":
		para := &Node{Kind: KindParagraph}
		para.Children = append(para.Children, imageNode(el))
		dst.Children = append(dst.Children, para)
	case "object":
		para := &Node{Kind: KindParagraph}
		para.Children = append(para.Children, attachmentNode(el))
		dst.Children = append(dst.Children, para)
	case "br", "hr":
		// Block-level breaks add nothing between paragraphs.
	default:
		dst.Children = append(dst.Children, &Node{Kind: KindUnknown, Name: el.Data})
	}
}

func parseList(el *xmlquery.Node) *Node {
	list := &Node{Kind: KindList, Ordered: strings.EqualFold(el.Data, "ol")}
	for child := el.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xmlquery.ElementNode || !strings.EqualFold(child.Data, "li") {
			continue
		}
		item := &Node{Kind: KindListItem}
		for grand := child.FirstChild; grand != nil; grand = grand.NextSibling {
			if grand.Type == xmlquery.ElementNode && (strings.EqualFold(grand.Data, "ul") || strings.EqualFold(grand.Data, "ol")) {
				item.Children = append(item.Children, parseList(grand))
				continue
			}
			parseInlineNode(grand, item, Style{})
		}
		list.Children = append(list.Children, item)
	}
	return list
}

func parseTable(el *xmlquery.Node) *Node {
	table := &Node{Kind: KindTable}
	collectRows(el, table)
	return table
}

func collectRows(el *xmlquery.Node, table *Node) {
	for child := el.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xmlquery.ElementNode {
			continue
		}
		switch strings.ToLower(child.Data) {
		case "thead", "tbody", "tfoot":
			collectRows(child, table)
		case "tr":
			row := &Node{Kind: KindTableRow}
			for cell := child.FirstChild; cell != nil; cell = cell.NextSibling {
				if cell.Type != xmlquery.ElementNode {
					continue
				}
				switch strings.ToLower(cell.Data) {
				case "td", "th":
					cellNode := &Node{Kind: KindTableCell}
					parseInline(cell, cellNode, Style{})
					row.Children = append(row.Children, cellNode)
				}
			}
			table.Children = append(table.Children, row)
		}
	}
}

// parseInline appends inline nodes found under el to dst.
func parseInline(el *xmlquery.Node, dst *Node, style Style) {
	for child := el.FirstChild; child != nil; child = child.NextSibling {
		parseInlineNode(child, dst, style)
	}
}

func parseInlineNode(n *xmlquery.Node, dst *Node, style Style) {
	switch n.Type {
	case xmlquery.TextNode, xmlquery.CharDataNode:
		if text := collapseSpace(n.Data); text != "" {
			dst.Children = append(dst.Children, &Node{Kind: KindText, Text: text, TextStyle: style})
		}
	case xmlquery.ElementNode:
		switch strings.ToLower(n.Data) {
		case "b", "strong":
			parseInline(n, dst, style.merge(Style{Bold: true}))
		case "i", "em":
			parseInline(n, dst, style.merge(Style{Italic: true}))
		case "u":
			parseInline(n, dst, style.merge(Style{Underline: true}))
		case "s", "del", "strike":
			parseInline(n, dst, style.merge(Style{Strike: true}))
		case "code", "tt":
			parseInline(n, dst, style.merge(Style{Code: true}))
		case "span":
			parseInline(n, dst, style.merge(styleFromCSS(n.SelectAttr("style"))))
		case "a":
			link := &Node{Kind: KindLink, Target: n.SelectAttr("href")}
			parseInline(n, link, style)
			dst.Children = append(dst.Children, link)
		case "br":
			dst.Children = append(dst.Children, &Node{Kind: KindLineBreak})
		case "img":
			dst.Children = append(dst.Children, imageNode(n))
		case "object":
			dst.Children = append(dst.Children, attachmentNode(n))
		case "sup", "sub", "small", "mark":
			parseInline(n, dst, style)
		default:
			dst.Children = append(dst.Children, &Node{Kind: KindUnknown, Name: n.Data})
		}
	}
}

func imageNode(el *xmlquery.Node) *Node {
	// Graph serves a downsampled src and the original in data-fullres-src.
	target := el.SelectAttr("data-fullres-src")
	if target == "" {
		target = el.SelectAttr("src")
	}
	return &Node{Kind: KindImage, Target: target, Alt: el.SelectAttr("alt")}
}

func attachmentNode(el *xmlquery.Node) *Node {
	return &Node{
		Kind:   KindAttachment,
		Target: el.SelectAttr("data"),
		Name:   el.SelectAttr("data-attachment"),
	}
}

func innerText(el *xmlquery.Node) string {
	var b strings.Builder
	var visit func(*xmlquery.Node)
	visit = func(n *xmlquery.Node) {
		if n.Type == xmlquery.TextNode || n.Type == xmlquery.CharDataNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(el)
	return strings.Trim(b.String(), "\n")
}

func styleFromCSS(css string) Style {
	var style Style
	for _, decl := range strings.Split(css, ";") {
		key, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.ToLower(strings.TrimSpace(value))
		switch key {
		case "font-weight":
			if value == "bold" || value == "bolder" {
				style.Bold = true
			} else if weight, err := strconv.Atoi(value); err == nil && weight >= 600 {
				style.Bold = true
			}
		case "font-style":
			if value == "italic" || value == "oblique" {
				style.Italic = true
			}
		case "text-decoration", "text-decoration-line":
			if strings.Contains(value, "underline") {
				style.Underline = true
			}
			if strings.Contains(value, "line-through") {
				style.Strike = true
			}
		}
	}
	return style
}

// collapseSpace squeezes runs of whitespace to single spaces while keeping
// a boundary space so adjacent styled runs stay separated.
func collapseSpace(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	out := strings.Join(fields, " ")
	if startsWithSpace(text) {
		out = " " + out
	}
	if endsWithSpace(text) {
		out += " "
	}
	return out
}

func startsWithSpace(s string) bool {
	return strings.TrimLeft(s, " \t\r\n") != s
}

func endsWithSpace(s string) bool {
	return strings.TrimRight(s, " \t\r\n") != s
}
