// Package manifest handles loxvm.toml configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the configuration file.
const FileName = "loxvm.toml"

// Manifest represents a loxvm.toml configuration.
type Manifest struct {
	VM      VMConfig      `toml:"vm"`
	REPL    REPLConfig    `toml:"repl"`
	History HistoryConfig `toml:"history"`
	Log     LogConfig     `toml:"log"`

	// Dir is the directory containing the loxvm.toml file (set at load time).
	// Empty for the built-in defaults.
	Dir string `toml:"-"`
}

// VMConfig controls execution.
type VMConfig struct {
	Trace       bool `toml:"trace"`
	Disassemble bool `toml:"disassemble"`
}

// REPLConfig configures the interactive prompt.
type REPLConfig struct {
	Prompt  string `toml:"prompt"`
	History bool   `toml:"history"`
}

// HistoryConfig configures the evaluation history database.
type HistoryConfig struct {
	Path  string `toml:"path"`
	Limit int    `toml:"limit"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no loxvm.toml exists.
func Default() *Manifest {
	m := &Manifest{
		REPL: REPLConfig{History: true},
	}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.REPL.Prompt == "" {
		m.REPL.Prompt = "> "
	}
	if m.History.Path == "" {
		m.History.Path = filepath.Join(".loxvm", "history.db")
	}
	if m.History.Limit <= 0 {
		m.History.Limit = 20
	}
}

// Load parses a loxvm.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := &Manifest{REPL: REPLConfig{History: true}}
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	return m, nil
}

// FindAndLoad walks up from startDir to find a loxvm.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// HistoryPath returns the history database path. Relative paths are
// resolved against the manifest directory, or the user's home directory
// for the built-in defaults.
func (m *Manifest) HistoryPath() string {
	if filepath.IsAbs(m.History.Path) {
		return m.History.Path
	}
	base := m.Dir
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		base = home
	}
	return filepath.Join(base, m.History.Path)
}

// LogFile returns the log file path, or nil to log to stderr.
func (m *Manifest) LogFile() *string {
	if m.Log.File == "" {
		return nil
	}
	path := m.Log.File
	if !filepath.IsAbs(path) && m.Dir != "" {
		path = filepath.Join(m.Dir, path)
	}
	return &path
}
