// Package config loads the timebook configuration file.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	xdgAppName = "timebook"
	configFile = "config.yaml"
	envFile    = ".env"
	envPrefix  = "TIMEBOOK"
)

// Sources names the supported time-log sources.
var Sources = []string{"plaintext", "orgmode", "hamster", "timewarrior", "gcal"}

// secretKeys may be supplied as TIMEBOOK_<SECTION>_<KEY> instead of in the
// file.
var secretKeys = []string{
	"jira.user", "jira.password",
	"redmine.user", "redmine.password", "redmine.api_key",
	"github.token",
	"harvest.account_id", "harvest.token",
}

type Config struct {
	Source      string `yaml:"source" mapstructure:"source"`
	DefaultTask string `yaml:"default_task" mapstructure:"default_task"`
	SearchBack  int    `yaml:"search_back" mapstructure:"search_back"`
	Editor      string `yaml:"editor,omitempty" mapstructure:"editor"`
	SessionFile string `yaml:"session_file,omitempty" mapstructure:"session_file"`
	HistoryFile string `yaml:"history_file,omitempty" mapstructure:"history_file"`
	// ListFile is where `list save` writes when no file is given.
	ListFile string `yaml:"list_file,omitempty" mapstructure:"list_file"`
	// ListItemTemplate is a mustache template rendered once per booking by
	// `list`.
	ListItemTemplate string `yaml:"list_item_template,omitempty" mapstructure:"list_item_template"`
	// ListTemplateFile is a mustache file rendered once over all bookings.
	// It replaces ListItemTemplate when set.
	ListTemplateFile string `yaml:"list_template_file,omitempty" mapstructure:"list_template_file"`

	// ProjectMapping maps tracker projects to billing project codes.
	ProjectMapping []Mapping `yaml:"project_mapping,omitempty" mapstructure:"project_mapping"`
	// TaskMapping maps description keywords to billing tasks, first match
	// wins.
	TaskMapping []Mapping `yaml:"task_mapping,omitempty" mapstructure:"task_mapping"`

	Plaintext   PlaintextConfig   `yaml:"plaintext" mapstructure:"plaintext"`
	Orgmode     OrgmodeConfig     `yaml:"orgmode" mapstructure:"orgmode"`
	Hamster     HamsterConfig     `yaml:"hamster" mapstructure:"hamster"`
	Timewarrior TimewarriorConfig `yaml:"timewarrior" mapstructure:"timewarrior"`
	Gcal        GcalConfig        `yaml:"gcal" mapstructure:"gcal"`
	VCS         []VCSConfig       `yaml:"vcs,omitempty" mapstructure:"vcs"`

	Jira    JiraConfig    `yaml:"jira" mapstructure:"jira"`
	Redmine RedmineConfig `yaml:"redmine" mapstructure:"redmine"`
	GitHub  GitHubConfig  `yaml:"github" mapstructure:"github"`
	Harvest HarvestConfig `yaml:"harvest" mapstructure:"harvest"`
}

// Mapping is one ordered from/to pair. Lists keep the key case that YAML
// map keys lose when read through viper.
type Mapping struct {
	From string `yaml:"from" mapstructure:"from"`
	To   string `yaml:"to" mapstructure:"to"`
}

type PlaintextConfig struct {
	// LogPath is a file, a directory or a glob pattern.
	LogPath string `yaml:"log_path" mapstructure:"log_path"`
}

type OrgmodeConfig struct {
	Filename string `yaml:"filename" mapstructure:"filename"`
}

type HamsterConfig struct {
	Database string `yaml:"database,omitempty" mapstructure:"database"`
}

type TimewarriorConfig struct {
	Executable string `yaml:"executable,omitempty" mapstructure:"executable"`
}

type GcalConfig struct {
	Calendar string `yaml:"calendar" mapstructure:"calendar"`
}

type VCSConfig struct {
	Type       string   `yaml:"type" mapstructure:"type"` // git or svn
	Executable string   `yaml:"executable,omitempty" mapstructure:"executable"`
	Author     string   `yaml:"author,omitempty" mapstructure:"author"`
	Repos      []string `yaml:"repos" mapstructure:"repos"`
}

type JiraConfig struct {
	URL             string `yaml:"url,omitempty" mapstructure:"url"`
	User            string `yaml:"user,omitempty" mapstructure:"user"`
	Password        string `yaml:"password,omitempty" mapstructure:"password"`
	PasswordCommand string `yaml:"password_command,omitempty" mapstructure:"password_command"`
	ContractsField  string `yaml:"contracts_field,omitempty" mapstructure:"contracts_field"`
}

type RedmineConfig struct {
	URL             string `yaml:"url,omitempty" mapstructure:"url"`
	User            string `yaml:"user,omitempty" mapstructure:"user"`
	Password        string `yaml:"password,omitempty" mapstructure:"password"`
	PasswordCommand string `yaml:"password_command,omitempty" mapstructure:"password_command"`
	APIKey          string `yaml:"api_key,omitempty" mapstructure:"api_key"`
}

type GitHubConfig struct {
	Token        string `yaml:"token,omitempty" mapstructure:"token"`
	TokenCommand string `yaml:"token_command,omitempty" mapstructure:"token_command"`
	Organization string `yaml:"organization,omitempty" mapstructure:"organization"`
	ProjectNum   int    `yaml:"project_num,omitempty" mapstructure:"project_num"`
}

type HarvestConfig struct {
	URL          string `yaml:"url,omitempty" mapstructure:"url"`
	AccountID    string `yaml:"account_id,omitempty" mapstructure:"account_id"`
	Token        string `yaml:"token,omitempty" mapstructure:"token"`
	TokenCommand string `yaml:"token_command,omitempty" mapstructure:"token_command"`
}

func (j JiraConfig) Enabled() bool    { return j.URL != "" }
func (r RedmineConfig) Enabled() bool { return r.URL != "" }
func (g GitHubConfig) Enabled() bool  { return g.Organization != "" }
func (h HarvestConfig) Enabled() bool { return h.AccountID != "" }

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Source:      "plaintext",
		DefaultTask: "Development",
		SearchBack:  4,
		Plaintext:   PlaintextConfig{LogPath: "~/.timelog"},
	}
}

// Dir returns the timebook config directory below XDG_CONFIG_HOME.
func Dir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, xdgAppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the configuration at path, or at GetConfigPath when path is
// empty. A missing file yields the defaults. Secrets are also taken from
// the environment and from a .env file next to the config file.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = GetConfigPath(); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(filepath.Join(filepath.Dir(path), envFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v := viper.New()
	def := Default()
	v.SetDefault("source", def.Source)
	v.SetDefault("default_task", def.DefaultTask)
	v.SetDefault("search_back", def.SearchBack)
	v.SetDefault("plaintext.log_path", def.Plaintext.LogPath)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range secretKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if editor := os.Getenv("EDITOR"); editor != "" {
		cfg.Editor = editor
	}
	if cfg.Editor == "" {
		cfg.Editor = "vi"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values a run cannot start without.
func (c *Config) Validate() error {
	known := false
	for _, s := range Sources {
		if c.Source == s {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown source %q, expected one of %s", c.Source, strings.Join(Sources, ", "))
	}
	for _, vcs := range c.VCS {
		if vcs.Type != "git" && vcs.Type != "svn" {
			return fmt.Errorf("unrecognized vcs: %s", vcs.Type)
		}
	}
	if c.SearchBack < 1 {
		return fmt.Errorf("search_back must be at least 1, got %d", c.SearchBack)
	}
	return nil
}

// ResolveSecrets runs the configured *_command programs and stores their
// trimmed output as the matching secret.
func (c *Config) ResolveSecrets(ctx context.Context) error {
	targets := []struct {
		command string
		value   *string
	}{
		{c.Jira.PasswordCommand, &c.Jira.Password},
		{c.Redmine.PasswordCommand, &c.Redmine.Password},
		{c.GitHub.TokenCommand, &c.GitHub.Token},
		{c.Harvest.TokenCommand, &c.Harvest.Token},
	}
	for _, target := range targets {
		if target.command == "" {
			continue
		}
		args := strings.Fields(target.command)
		out, err := exec.CommandContext(ctx, args[0], args[1:]...).Output()
		if err != nil {
			return fmt.Errorf("secret command %q failed: %w", args[0], err)
		}
		*target.value = strings.TrimSpace(string(out))
	}
	return nil
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	r := *c
	mask := func(s *string) {
		if *s != "" {
			*s = "********"
		}
	}
	mask(&r.Jira.Password)
	mask(&r.Redmine.Password)
	mask(&r.Redmine.APIKey)
	mask(&r.GitHub.Token)
	mask(&r.Harvest.Token)
	return &r
}

// Write encodes cfg as YAML.
func Write(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

// Save writes cfg to path, creating its directory.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()
	return Write(f, cfg)
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// Mappings converts an ordered mapping list into a lookup table.
func Mappings(pairs []Mapping) map[string]string {
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		m[p.From] = p.To
	}
	return m
}
