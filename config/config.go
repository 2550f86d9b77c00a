package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"imgdup/types"
)

//go:embed sample_config.toml
var sampleConfig string

// Output contains configuration for the report.
type Output struct {
	File       string `toml:"file"`        // relative paths resolve against Dir
	Format     string `toml:"format"`      // text, table, json or html
	JSONIndent int    `toml:"json_indent"` // 0 writes compact JSON
}

// Cache contains configuration for the fingerprint cache.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // Default: ~/.cache/imgdup/fingerprints.db
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// Config holds every setting of a run.
type Config struct {
	Dir        string   `toml:"dir"`
	Recursive  bool     `toml:"recursive"`
	Extensions []string `toml:"extensions"`
	Threads    int      `toml:"threads"`   // 0 means one per CPU
	HashSize   int      `toml:"hash_size"` // fingerprint is hash_size² bits
	Threshold  float64  `toml:"threshold"` // percent of differing bits
	Fast       bool     `toml:"fast"`
	Hasher     string   `toml:"hasher"`
	DupOnly    bool     `toml:"dup_only"`
	Limit      int      `toml:"limit"` // 0 means no limit

	Output  Output  `toml:"output"`
	Cache   Cache   `toml:"cache"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(dir, "imgdup", "config.toml"), nil
}

// DefaultCachePath returns the default fingerprint cache location
func DefaultCachePath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "imgdup", "fingerprints.db")
	}

	// Fallback to the directory containing the executable
	exePath, err := os.Executable()
	if err != nil {
		return "fingerprints.db"
	}
	return filepath.Join(filepath.Dir(exePath), "fingerprints.db")
}

// Load reads the configuration file at path, or the default location when
// path is empty. A missing file yields the defaults. The result is
// normalised but not validated, so flags can still override it.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.Normalize(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		path = defaultPath
	}

	expanded, err := ExpandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", expanded)
	}
	return expanded, true, nil
}

// Normalize trims and expands the path and name fields.
func (c *Config) Normalize() error {
	var err error
	if c.Dir, err = ExpandPath(strings.TrimSpace(c.Dir)); err != nil {
		return err
	}
	if c.Cache.Path, err = ExpandPath(strings.TrimSpace(c.Cache.Path)); err != nil {
		return err
	}
	if c.Logging.File, err = ExpandPath(strings.TrimSpace(c.Logging.File)); err != nil {
		return err
	}
	c.Output.File = strings.TrimSpace(c.Output.File)

	exts := make([]string, 0, len(c.Extensions))
	for _, ext := range c.Extensions {
		ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if ext != "" {
			exts = append(exts, ext)
		}
	}
	c.Extensions = exts

	c.Hasher = strings.ToLower(strings.TrimSpace(c.Hasher))
	if c.Hasher == "" {
		c.Hasher = defaultHasher
	}
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	return nil
}

// HashSettings derives the fingerprint settings for the run.
func (c *Config) HashSettings() types.HashSettings {
	mode := types.ModeAccurate
	if c.Fast {
		mode = types.ModeFast
	}
	return types.HashSettings{Resolution: c.HashSize, Mode: mode}
}

// ThresholdFraction converts the percentage threshold into a fraction of bits.
func (c *Config) ThresholdFraction() float64 {
	return c.Threshold / 100
}

// CachePath returns the configured cache location or the default one.
func (c *Config) CachePath() string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	return DefaultCachePath()
}

// OutputPath resolves the report file against the search directory.
// It returns "" when the report goes to stdout.
func (c *Config) OutputPath() string {
	if c.Output.File == "" {
		return ""
	}
	path := c.Output.File
	if strings.HasPrefix(path, "~") {
		if expanded, err := ExpandPath(path); err == nil {
			return expanded
		}
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir, path)
}

// CheckOutputWritable creates the report file early so a bad path fails
// before any image is hashed.
func (c *Config) CheckOutputWritable() error {
	path := c.OutputPath()
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &ConfigurationError{Field: "output.file", Reason: err.Error()}
	}
	return f.Close()
}

// SilentStdout reports whether status lines must be suppressed because the
// JSON report itself goes to stdout.
func (c *Config) SilentStdout() bool {
	return c.Output.File == "" && c.Output.Format == "json"
}

// Encode writes the configuration as TOML.
func (c *Config) Encode(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(c)
}

// ExpandPath expands a leading ~ and makes the path absolute. Empty stays empty.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to path. An existing file
// is only replaced when overwrite is set.
func CreateSample(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
