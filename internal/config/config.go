// Package config loads easygit's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

// Store backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Revert engines.
const (
	EngineGoGit = "gogit"
	EngineExec  = "exec"
)

// Theme presets.
const (
	ThemeDracula = "dracula"
	ThemeDefault = "default"
)

const (
	DefaultAPIURL       = "https://api.github.com"
	DefaultToastSeconds = 3
	DefaultRedisPrefix  = "easygit"

	// EnvAPIURL overrides api_url.
	EnvAPIURL = "EASYGIT_API_URL"
)

// Config is the on-disk configuration.
type Config struct {
	APIURL       string       `yaml:"api_url"`
	StateDir     string       `yaml:"state_dir"`
	Store        StoreConfig  `yaml:"store"`
	Revert       RevertConfig `yaml:"revert"`
	Open         OpenConfig   `yaml:"open"`
	ToastSeconds int          `yaml:"toast_seconds"`
	Theme        string       `yaml:"theme"`
	Keybindings  Keybindings  `yaml:"keybindings"`

	// path is where this config was loaded from.
	path string
}

// StoreConfig selects where the access token is kept.
type StoreConfig struct {
	Backend     string `yaml:"backend"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix"`
}

// RevertConfig controls how remote reverts are made.
type RevertConfig struct {
	Engine      string `yaml:"engine"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// OpenConfig overrides the command used to open URLs.
type OpenConfig struct {
	Command string `yaml:"command"`
}

// Keybindings maps actions to one or more key sequences.
type Keybindings map[string][]string

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		APIURL:   DefaultAPIURL,
		StateDir: DefaultStateDir(),
		Store: StoreConfig{
			Backend:     BackendFile,
			RedisAddr:   "localhost:6379",
			RedisPrefix: DefaultRedisPrefix,
		},
		Revert:       RevertConfig{Engine: EngineGoGit},
		ToastSeconds: DefaultToastSeconds,
		Theme:        ThemeDracula,
		Keybindings:  DefaultKeybindings(),
	}
}

// DefaultKeybindings returns the built-in keybinding map.
func DefaultKeybindings() Keybindings {
	return Keybindings{
		"quit":         {"q", "ctrl+c"},
		"help":         {"?"},
		"up":           {"k", "up"},
		"down":         {"j", "down"},
		"next_panel":   {"tab", "l", "right"},
		"prev_panel":   {"shift+tab", "h", "left"},
		"select":       {"enter"},
		"menu":         {"m"},
		"close":        {"esc"},
		"refresh":      {"r"},
		"logout":       {"L"},
		"toggle_split": {"v"},
		"next_hunk":    {"]"},
		"prev_hunk":    {"["},
		"page_down":    {"ctrl+d", "pgdown"},
		"page_up":      {"ctrl+u", "pgup"},
	}
}

// MergeKeybindings overlays user overrides onto defaults.
func MergeKeybindings(overrides Keybindings) Keybindings {
	defaults := DefaultKeybindings()
	for action, keys := range overrides {
		if len(keys) == 0 {
			continue
		}
		defaults[action] = keys
	}
	return defaults
}

// DefaultPath returns $XDG_CONFIG_HOME/easygit/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".easygit", "config.yaml")
	}
	return filepath.Join(dir, "easygit", "config.yaml")
}

// DefaultStateDir returns ~/.easygit.
func DefaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".easygit"
	}
	return filepath.Join(home, ".easygit")
}

// Load reads the config at path, or DefaultPath when path is empty. A missing
// file at the default location yields the defaults; a missing explicit path is
// an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnv(os.Getenv)
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the file this config was loaded from.
func (c *Config) Path() string {
	return c.path
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvAPIURL)); v != "" {
		c.APIURL = v
	}
}

// normalize fills fields a partial file left empty and expands ~ in paths.
func (c *Config) normalize() {
	d := DefaultConfig()
	if c.APIURL == "" {
		c.APIURL = d.APIURL
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	if c.StateDir == "" {
		c.StateDir = d.StateDir
	}
	c.StateDir = expandHome(c.StateDir)
	if c.Store.Backend == "" {
		c.Store.Backend = d.Store.Backend
	}
	if c.Store.RedisAddr == "" {
		c.Store.RedisAddr = d.Store.RedisAddr
	}
	if c.Store.RedisPrefix == "" {
		c.Store.RedisPrefix = d.Store.RedisPrefix
	}
	if c.Revert.Engine == "" {
		c.Revert.Engine = d.Revert.Engine
	}
	if c.ToastSeconds == 0 {
		c.ToastSeconds = d.ToastSeconds
	}
	if c.Theme == "" {
		c.Theme = d.Theme
	}
	c.Keybindings = MergeKeybindings(c.Keybindings)
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendFile, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("%w: store.backend %q (want file, redis or memory)", ErrInvalidConfig, c.Store.Backend)
	}
	switch c.Revert.Engine {
	case EngineGoGit, EngineExec:
	default:
		return fmt.Errorf("%w: revert.engine %q (want gogit or exec)", ErrInvalidConfig, c.Revert.Engine)
	}
	switch c.Theme {
	case ThemeDracula, ThemeDefault:
	default:
		return fmt.Errorf("%w: theme %q", ErrInvalidConfig, c.Theme)
	}
	if c.ToastSeconds < 0 {
		return fmt.Errorf("%w: toast_seconds must be positive", ErrInvalidConfig)
	}
	return nil
}

// ToastDuration is how long a toast stays visible.
func (c *Config) ToastDuration() time.Duration {
	if c.ToastSeconds <= 0 {
		return DefaultToastSeconds * time.Second
	}
	return time.Duration(c.ToastSeconds) * time.Second
}

// LogPath is the TUI log file inside the state directory.
func (c *Config) LogPath() string {
	return filepath.Join(c.StateDir, "easygit.log")
}

// Palette holds the colors the TUI draws with.
type Palette struct {
	Accent    lipgloss.Color
	Text      lipgloss.Color
	Dim       lipgloss.Color
	Border    lipgloss.Color
	Selection lipgloss.Color
	Added     lipgloss.Color
	Removed   lipgloss.Color
	Hunk      lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Info      lipgloss.Color
}

// PaletteFor resolves a theme name to colors. Unknown names get the default palette.
func PaletteFor(theme string) Palette {
	if theme == ThemeDracula {
		return Palette{
			Accent:    lipgloss.Color("#BD93F9"),
			Text:      lipgloss.Color("#F8F8F2"),
			Dim:       lipgloss.Color("#6272A4"),
			Border:    lipgloss.Color("#44475A"),
			Selection: lipgloss.Color("#44475A"),
			Added:     lipgloss.Color("#50FA7B"),
			Removed:   lipgloss.Color("#FF5555"),
			Hunk:      lipgloss.Color("#8BE9FD"),
			Success:   lipgloss.Color("#50FA7B"),
			Error:     lipgloss.Color("#FF5555"),
			Info:      lipgloss.Color("#8BE9FD"),
		}
	}
	return Palette{
		Accent:    lipgloss.Color("#5F5FAF"),
		Text:      lipgloss.Color("#FFFFFF"),
		Dim:       lipgloss.Color("#888888"),
		Border:    lipgloss.Color("#3A3A3A"),
		Selection: lipgloss.Color("#303060"),
		Added:     lipgloss.Color("#A8E6A3"),
		Removed:   lipgloss.Color("#E6A3A3"),
		Hunk:      lipgloss.Color("#87AFD7"),
		Success:   lipgloss.Color("#A8E6A3"),
		Error:     lipgloss.Color("#E6A3A3"),
		Info:      lipgloss.Color("#87AFD7"),
	}
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
