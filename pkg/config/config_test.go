package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `source: orgmode
search_back: 2
orgmode:
  filename: ~/org/time.org
project_mapping:
  - from: Cynaptic_3000
    to: Cynaptic 3000
task_mapping:
  - from: meeting
    to: Meeting
  - from: admin
    to: Admin/Orga
vcs:
  - type: git
    author: mreinhardt
    repos:
      - /src/one
      - /src/two
harvest:
  account_id: "4711"
jira:
  url: https://jira.example.com
  user: mreinhardt
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("EDITOR", "nano")
	t.Setenv("TIMEBOOK_HARVEST_TOKEN", "from-env")

	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Source != "orgmode" || cfg.SearchBack != 2 {
		t.Errorf("Expected source orgmode and search back 2, got %s/%d", cfg.Source, cfg.SearchBack)
	}
	if cfg.DefaultTask != "Development" {
		t.Errorf("Expected default task Development, got '%s'", cfg.DefaultTask)
	}
	if cfg.Editor != "nano" {
		t.Errorf("Expected EDITOR to win, got '%s'", cfg.Editor)
	}
	if len(cfg.ProjectMapping) != 1 || cfg.ProjectMapping[0].From != "Cynaptic_3000" {
		t.Errorf("Expected project mapping key case to survive, got %+v", cfg.ProjectMapping)
	}
	if len(cfg.TaskMapping) != 2 || cfg.TaskMapping[1].To != "Admin/Orga" {
		t.Errorf("Expected ordered task mapping, got %+v", cfg.TaskMapping)
	}
	if len(cfg.VCS) != 1 || len(cfg.VCS[0].Repos) != 2 || cfg.VCS[0].Author != "mreinhardt" {
		t.Errorf("Unexpected vcs config: %+v", cfg.VCS)
	}
	if cfg.Harvest.Token != "from-env" || cfg.Harvest.AccountID != "4711" {
		t.Errorf("Expected harvest secrets from env and file, got %+v", cfg.Harvest)
	}
	if !cfg.Harvest.Enabled() || !cfg.Jira.Enabled() || cfg.Redmine.Enabled() || cfg.GitHub.Enabled() {
		t.Errorf("Unexpected enabled backends: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("EDITOR", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Source != "plaintext" || cfg.SearchBack != 4 || cfg.Editor != "vi" {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
	if cfg.Plaintext.LogPath != "~/.timelog" {
		t.Errorf("Expected default log path, got '%s'", cfg.Plaintext.LogPath)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := writeConfig(t, "redmine:\n  url: https://redmine.example.com\n")
	envPath := filepath.Join(filepath.Dir(path), ".env")
	if err := os.WriteFile(envPath, []byte("TIMEBOOK_REDMINE_API_KEY=dotenv-key\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("TIMEBOOK_REDMINE_API_KEY") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Redmine.APIKey != "dotenv-key" {
		t.Errorf("Expected API key from .env, got '%s'", cfg.Redmine.APIKey)
	}
}

func TestLoadInvalid(t *testing.T) {
	for name, content := range map[string]string{
		"source":      "source: paper\n",
		"vcs":         "vcs:\n  - type: hg\n",
		"search back": "search_back: 0\n",
		"yaml":        "source: [\n",
	} {
		if _, err := Load(writeConfig(t, content)); err == nil {
			t.Errorf("Expected an error for invalid %s", name)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Gcal.Calendar = "Work log"
	cfg.ProjectMapping = []Mapping{{From: "A", To: "Proj1"}}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Gcal.Calendar != "Work log" || Mappings(loaded.ProjectMapping)["A"] != "Proj1" {
		t.Errorf("Expected saved values, got %+v", loaded)
	}
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.Harvest.Token = "secret"
	var buf bytes.Buffer
	if err := Write(&buf, cfg.Redacted()); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "secret") {
		t.Errorf("Expected token to be masked, got:\n%s", buf.String())
	}
	if cfg.Harvest.Token != "secret" {
		t.Error("Expected Redacted not to modify the original")
	}
}

func TestResolveSecrets(t *testing.T) {
	cfg := Default()
	cfg.GitHub.TokenCommand = "echo gh-token"
	if err := cfg.ResolveSecrets(context.Background()); err != nil {
		t.Fatalf("ResolveSecrets failed: %v", err)
	}
	if cfg.GitHub.Token != "gh-token" {
		t.Errorf("Expected token from command, got '%s'", cfg.GitHub.Token)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandHome("~/.timelog"); got != filepath.Join(home, ".timelog") {
		t.Errorf("Expected path below home, got %s", got)
	}
	if got := ExpandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("Expected absolute path unchanged, got %s", got)
	}
}
