package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"notedump/internal/auth"
	"notedump/internal/testsupport"
)

type cliTestEnv struct {
	configPath string
	outputDir  string
	stub       *testsupport.GraphStub
}

// setupCLITestEnv writes a config file pointing at a stubbed Graph API and
// a pre-authenticated token cache.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	outputDir := filepath.Join(base, "output")
	tokenPath := filepath.Join(base, "token.json")

	stub := &testsupport.GraphStub{
		Notebooks: []map[string]any{{"id": "nb-1", "displayName": "Trips"}},
		Sections: map[string][]map[string]any{
			"nb-1": {{"id": "sec-1", "displayName": "Alps"}},
		},
		Pages: map[string][]map[string]any{
			"sec-1": {
				{"id": "p-1", "title": "Packing", "order": 1,
					"createdDateTime": "2023-04-01T09:30:00Z", "lastModifiedDateTime": "2023-04-02T18:00:00Z"},
				{"id": "p-2", "title": "Routes", "order": 2,
					"createdDateTime": "2023-04-03T09:30:00Z", "lastModifiedDateTime": "2023-04-03T10:00:00Z"},
			},
		},
		Content: map[string]string{
			"p-1": "<h1>Packing</h1><p>boots and maps</p>",
			"p-2": "<p>take the high trail</p>",
		},
	}
	baseURL := stub.Start(t)

	if err := auth.SaveToken(tokenPath, &auth.Token{
		AccessToken: "test-token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}

	configPath := filepath.Join(base, "config.toml")
	configBody := fmt.Sprintf(`[paths]
output_dir = %q
log_dir = %q
token_path = %q

[graph]
base_url = %q
client_id = "test-client"

[export]
concurrency = 2

[logging]
level = "warn"
`, outputDir, filepath.Join(base, "logs"), tokenPath, baseURL)
	if err := os.WriteFile(configPath, []byte(configBody), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{configPath: configPath, outputDir: outputDir, stub: stub}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("output missing %q:\n%s", needle, haystack)
	}
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// Second init without --overwrite refuses.
	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected refusal, got %v", err)
	}
}

func TestConfigShowCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "graph.client_id")
	requireContains(t, out, "test-client")
}

func TestListCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"list"}, env.configPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "Trips")

	out, _, err = runCLI(t, []string{"list", "Trips"}, env.configPath)
	if err != nil {
		t.Fatalf("list Trips: %v", err)
	}
	requireContains(t, out, "Alps")
}

func TestDumpCommandExportsNotebook(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"dump", "Trips"}, env.configPath)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	requireContains(t, out, "Markdown written to")

	entries, err := os.ReadDir(env.outputDir)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var markdown []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".md") {
			markdown = append(markdown, entry.Name())
		}
	}
	if len(markdown) != 2 {
		t.Fatalf("markdown files = %v, want 2", markdown)
	}

	for _, name := range markdown {
		data, err := os.ReadFile(filepath.Join(env.outputDir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !strings.Contains(string(data), "notebook: Trips") {
			t.Fatalf("%s missing header:\n%s", name, data)
		}
	}
}

func TestDumpCommandUnknownNotebook(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"dump", "Nope"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "Nope") {
		t.Fatalf("expected enumeration failure, got %v", err)
	}
}

func TestRunsCommandShowsHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"dump", "Trips"}, env.configPath); err != nil {
		t.Fatalf("dump: %v", err)
	}

	out, _, err := runCLI(t, []string{"runs"}, env.configPath)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "Trips")
	requireContains(t, out, "2")
}
