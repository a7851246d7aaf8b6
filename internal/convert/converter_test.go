package convert_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"notedump/internal/convert"
	"notedump/internal/links"
	"notedump/internal/markup"
)

func testMeta() convert.Metadata {
	return convert.Metadata{
		Title:    "Packing",
		Notebook: "Trips",
		Section:  "Alps",
		Created:  time.Date(2023, 4, 1, 9, 30, 0, 0, time.UTC),
		Modified: time.Date(2023, 4, 2, 18, 0, 0, 0, time.UTC),
	}
}

func noAttach(target, name string) (string, error) {
	return "", fmt.Errorf("unexpected attachment %q", target)
}

func mustParse(t *testing.T, body string) *markup.Node {
	t.Helper()
	doc, err := markup.Parse([]byte("<html><body>" + body + "</body></html>"))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func TestConvertHeaderOrder(t *testing.T) {
	doc := mustParse(t, "<p>hello</p>")
	res, err := convert.New(links.NewResolver()).Convert(testMeta(), doc, noAttach)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	want := "title: Packing\n" +
		"created: 2023-04-01T09:30:00Z\n" +
		"modified: 2023-04-02T18:00:00Z\n" +
		"notebook: Trips\n" +
		"section: Alps\n" +
		"\n" +
		"hello\n"
	if res.Markdown != want {
		t.Fatalf("markdown:\n%s\nwant:\n%s", res.Markdown, want)
	}
}

func TestConvertInlineStyles(t *testing.T) {
	doc := mustParse(t, `<p>go <b>fast</b> or <i>slow</i>, never <u>late</u> or <s>wrong</s></p>`)
	res, err := convert.New(links.NewResolver()).Convert(testMeta(), doc, noAttach)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	body := res.Markdown
	for _, want := range []string{"**fast**", "*slow*", "*late*", "~~wrong~~"} {
		if !strings.Contains(body, want) {
			t.Fatalf("markdown %q missing %q", body, want)
		}
	}
	if !strings.Contains(body, "go **fast** or") {
		t.Fatalf("word spacing lost around styled run: %q", body)
	}
}

func TestConvertListsAndTables(t *testing.T) {
	doc := mustParse(t, `<ol><li>first</li><li>second<ul><li>nested</li></ul></li></ol>`+
		`<table><tr><th>Item</th><th>Count</th></tr><tr><td>Tent</td><td>1</td></tr></table>`)
	res, err := convert.New(links.NewResolver()).Convert(testMeta(), doc, noAttach)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	for _, want := range []string{
		"1. first",
		"2. second",
		"    - nested",
		"| Item | Count |",
		"| --- | --- |",
		"| Tent | 1 |",
	} {
		if !strings.Contains(res.Markdown, want) {
			t.Fatalf("markdown:\n%s\nmissing %q", res.Markdown, want)
		}
	}
}

func TestConvertResolvedNoteLink(t *testing.T) {
	resolver := links.NewResolver()
	resolver.Register("1-dest!1", "gear-list-1a2b3c4d.md")

	doc := mustParse(t, `<p>see <a href="https://graph.microsoft.com/v1.0/me/onenote/pages/1-dest!1">gear</a></p>`)
	res, err := convert.New(resolver).Convert(testMeta(), doc, noAttach)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !strings.Contains(res.Markdown, "@note(gear-list-1a2b3c4d.md)") {
		t.Fatalf("markdown missing note token:\n%s", res.Markdown)
	}
	if len(res.ResolvedLinks) != 1 || res.ResolvedLinks[0] != "gear-list-1a2b3c4d.md" {
		t.Fatalf("ResolvedLinks = %v", res.ResolvedLinks)
	}
}

func TestConvertBrokenLinkFallback(t *testing.T) {
	doc := mustParse(t, `<p>see <a href="https://graph.microsoft.com/v1.0/me/onenote/pages/1-missing!1">old notes</a></p>`)
	res, err := convert.New(links.NewResolver()).Convert(testMeta(), doc, noAttach)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !strings.Contains(res.Markdown, "old notes [broken link]") {
		t.Fatalf("markdown missing broken-link fallback:\n%s", res.Markdown)
	}
	if len(res.BrokenLinks) != 1 {
		t.Fatalf("BrokenLinks = %v", res.BrokenLinks)
	}
}

func TestConvertExternalLinkUntouched(t *testing.T) {
	doc := mustParse(t, `<p><a href="https://example.com/trail">trail guide</a></p>`)
	res, err := convert.New(links.NewResolver()).Convert(testMeta(), doc, noAttach)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !strings.Contains(res.Markdown, "[trail guide](https://example.com/trail)") {
		t.Fatalf("markdown:\n%s", res.Markdown)
	}
}

func TestConvertAttachmentToken(t *testing.T) {
	doc := mustParse(t, `<p><object data="https://graph.example/res/abc/$value" data-attachment="itinerary.pdf"/></p>`)
	var gotTarget, gotName string
	attach := func(target, name string) (string, error) {
		gotTarget, gotName = target, name
		return "packing-1a2b3c4d_attachments/itinerary.pdf", nil
	}
	res, err := convert.New(links.NewResolver()).Convert(testMeta(), doc, attach)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if gotTarget != "https://graph.example/res/abc/$value" || gotName != "itinerary.pdf" {
		t.Fatalf("attach called with %q, %q", gotTarget, gotName)
	}
	if !strings.Contains(res.Markdown, "@attachment(packing-1a2b3c4d_attachments/itinerary.pdf)") {
		t.Fatalf("markdown missing attachment token:\n%s", res.Markdown)
	}
	if len(res.Attachments) != 1 {
		t.Fatalf("Attachments = %v", res.Attachments)
	}
}

func TestConvertAttachmentErrorFailsPage(t *testing.T) {
	doc := mustParse(t, `<p><img src="https://graph.example/small"/></p>`)
	wantErr := errors.New("disk full")
	_, err := convert.New(links.NewResolver()).Convert(testMeta(), doc, func(string, string) (string, error) {
		return "", wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestConvertUnknownElementDegrades(t *testing.T) {
	doc := mustParse(t, `<p>before</p><video src="x"></video><p>after</p>`)
	res, err := convert.New(links.NewResolver()).Convert(testMeta(), doc, noAttach)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !strings.Contains(res.Markdown, `[conversion error: unsupported video element]`) {
		t.Fatalf("markdown missing degradation marker:\n%s", res.Markdown)
	}
	if !strings.Contains(res.Markdown, "before") || !strings.Contains(res.Markdown, "after") {
		t.Fatalf("surrounding content lost:\n%s", res.Markdown)
	}
}

func TestConvertDeterministic(t *testing.T) {
	doc := mustParse(t, `<h1>Title</h1><p>body <b>text</b></p><ul><li>a</li><li>b</li></ul>`)
	c := convert.New(links.NewResolver())
	first, err := c.Convert(testMeta(), doc, noAttach)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	second, err := c.Convert(testMeta(), doc, noAttach)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if first.Markdown != second.Markdown {
		t.Fatal("repeated conversion produced different output")
	}
}
