package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// GraphStub serves a canned OneNote tree through the Graph API wire shapes
// used by the client: listing envelopes with value arrays, page content as
// XHTML, and attachment bytes.
type GraphStub struct {
	Notebooks   []map[string]any            // id, displayName
	Sections    map[string][]map[string]any // notebook id -> sections
	Pages       map[string][]map[string]any // section id -> page stubs
	Content     map[string]string           // page id -> XHTML body
	Attachments map[string][]byte           // resource path -> bytes

	server *httptest.Server
}

// Start serves the stub and returns the base URL to point the client at.
func (g *GraphStub) Start(t testing.TB) string {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/notebooks", func(w http.ResponseWriter, r *http.Request) {
		writeListing(w, g.Notebooks)
	})
	mux.HandleFunc("/notebooks/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/notebooks/"), "/")
		switch {
		case len(parts) == 2 && parts[1] == "sections":
			writeListing(w, g.Sections[parts[0]])
		case len(parts) == 2 && parts[1] == "sectionGroups":
			writeListing(w, nil)
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/sections/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/sections/"), "/")
		if len(parts) == 2 && parts[1] == "pages" {
			writeListing(w, g.Pages[parts[0]])
			return
		}
		http.NotFound(w, r)
	})
	mux.HandleFunc("/pages/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/pages/"), "/")
		if len(parts) == 2 && parts[1] == "content" {
			if content, ok := g.Content[parts[0]]; ok {
				fmt.Fprintf(w, "<html><body>%s</body></html>", content)
				return
			}
		}
		http.NotFound(w, r)
	})
	mux.HandleFunc("/resources/", func(w http.ResponseWriter, r *http.Request) {
		if data, ok := g.Attachments[r.URL.Path]; ok {
			w.Write(data)
			return
		}
		http.NotFound(w, r)
	})

	g.server = httptest.NewServer(mux)
	t.Cleanup(g.server.Close)
	return g.server.URL
}

// URL returns the base URL of the running stub.
func (g *GraphStub) URL() string {
	return g.server.URL
}

func writeListing(w http.ResponseWriter, value []map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	if value == nil {
		value = []map[string]any{}
	}
	json.NewEncoder(w).Encode(map[string]any{"value": value})
}
