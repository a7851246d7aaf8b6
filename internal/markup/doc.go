// Package markup parses OneNote page XHTML into a closed node tree.
//
// The tree has one variant per supported construct (headings, paragraphs,
// lists, tables, images, file attachments, links, styled text runs).
// Elements the parser does not understand become Unknown nodes carrying
// their tag name, which the converter renders as inline degradation
// markers instead of failing the page.
package markup
