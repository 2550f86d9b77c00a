package config

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"imgdup/types"
)

func validConfig(t *testing.T) Config {
	t.Helper()
	cfg := Default()
	cfg.Dir = t.TempDir()
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	return cfg
}

func TestDefaultIsValid(t *testing.T) {
	cfg := validConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got := cfg.HashSettings(); got != (types.HashSettings{Resolution: 8, Mode: types.ModeAccurate}) {
		t.Errorf("HashSettings() = %+v", got)
	}
	if got := cfg.ThresholdFraction(); got != 0.03 {
		t.Errorf("ThresholdFraction() = %v, want 0.03", got)
	}
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	var sample Config
	if err := toml.Unmarshal([]byte(sampleConfig), &sample); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	def := Default()
	if sample.HashSize != def.HashSize || sample.Threshold != def.Threshold || sample.Hasher != def.Hasher {
		t.Errorf("sample %+v drifted from defaults %+v", sample, def)
	}
	if strings.Join(sample.Extensions, ",") != strings.Join(def.Extensions, ",") {
		t.Errorf("sample extensions %v, defaults %v", sample.Extensions, def.Extensions)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists || resolved != path {
		t.Errorf("resolved=%s exists=%v", resolved, exists)
	}
	if cfg.HashSize != defaultHashSize || cfg.Hasher != defaultHasher {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
dir = "` + filepath.ToSlash(dir) + `"
recursive = true
extensions = [".JPG", " png "]
threads = 3
hash_size = 16
threshold = 5.0
fast = true
hasher = " GoImageHash "

[output]
file = "report.html"
format = "HTML"

[logging]
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("config file not detected")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if !cfg.Recursive || cfg.Threads != 3 || !cfg.Fast {
		t.Errorf("scalar fields not loaded: %+v", cfg)
	}
	if strings.Join(cfg.Extensions, ",") != "JPG,png" {
		t.Errorf("extensions = %v", cfg.Extensions)
	}
	if cfg.Hasher != "goimagehash" || cfg.Output.Format != "html" || cfg.Logging.Level != "debug" {
		t.Errorf("names not normalised: hasher=%q format=%q level=%q", cfg.Hasher, cfg.Output.Format, cfg.Logging.Level)
	}
	if got := cfg.HashSettings(); got.Resolution != 16 || got.Mode != types.ModeFast {
		t.Errorf("HashSettings() = %+v", got)
	}
	if got := cfg.OutputPath(); got != filepath.Join(dir, "report.html") {
		t.Errorf("OutputPath() = %s", got)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("hash_sise = 8\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, _, err := Load(path); err == nil {
		t.Fatal("expected error for misspelled key")
	}
}

func TestValidateReportsField(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"zero hash size", func(c *Config) { c.HashSize = 0 }, "hash_size"},
		{"negative hash size", func(c *Config) { c.HashSize = -8 }, "hash_size"},
		{"hash size unsupported by hasher", func(c *Config) { c.HashSize = 6 }, "hash_size"},
		{"phash needs 8", func(c *Config) { c.Hasher = "phash"; c.HashSize = 16 }, "hash_size"},
		{"negative threads", func(c *Config) { c.Threads = -1 }, "threads"},
		{"negative limit", func(c *Config) { c.Limit = -5 }, "limit"},
		{"NaN threshold", func(c *Config) { c.Threshold = math.NaN() }, "threshold"},
		{"infinite threshold", func(c *Config) { c.Threshold = math.Inf(1) }, "threshold"},
		{"unknown hasher", func(c *Config) { c.Hasher = "md5" }, "hasher"},
		{"unknown format", func(c *Config) { c.Output.Format = "xml" }, "output.format"},
		{"negative indent", func(c *Config) { c.Output.JSONIndent = -2 }, "output.json_indent"},
		{"unknown level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"empty dir", func(c *Config) { c.Dir = "" }, "dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.modify(&cfg)
			err := cfg.Validate()
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() = %v, want *ConfigurationError", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestValidateAcceptsOutOfRangeThreshold(t *testing.T) {
	for _, threshold := range []float64{-1, 0, 100, 250} {
		cfg := validConfig(t)
		cfg.Threshold = threshold
		if err := cfg.Validate(); err != nil {
			t.Errorf("threshold %v rejected: %v", threshold, err)
		}
	}
}

func TestOutputPath(t *testing.T) {
	cfg := validConfig(t)
	if cfg.OutputPath() != "" {
		t.Errorf("empty output file should mean stdout")
	}
	abs := filepath.Join(t.TempDir(), "out.json")
	cfg.Output.File = abs
	if cfg.OutputPath() != abs {
		t.Errorf("absolute path changed: %s", cfg.OutputPath())
	}
}

func TestCheckOutputWritable(t *testing.T) {
	cfg := validConfig(t)
	cfg.Output.File = "results.txt"
	if err := cfg.CheckOutputWritable(); err != nil {
		t.Fatalf("CheckOutputWritable: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Dir, "results.txt")); err != nil {
		t.Errorf("output file not created: %v", err)
	}

	cfg.Output.File = filepath.Join("missing", "dir", "results.txt")
	var cfgErr *ConfigurationError
	if err := cfg.CheckOutputWritable(); !errors.As(err, &cfgErr) || cfgErr.Field != "output.file" {
		t.Errorf("unwritable path: got %v", err)
	}
}

func TestSilentStdout(t *testing.T) {
	cfg := validConfig(t)
	cfg.Output.Format = "json"
	if !cfg.SilentStdout() {
		t.Error("JSON to stdout should silence status lines")
	}
	cfg.Output.File = "out.json"
	if cfg.SilentStdout() {
		t.Error("JSON to a file should keep status lines")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path, false); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if err := CreateSample(path, false); err == nil {
		t.Error("second CreateSample should refuse to overwrite")
	}
	if err := CreateSample(path, true); err != nil {
		t.Errorf("CreateSample with overwrite: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil || !exists {
		t.Fatalf("Load sample: exists=%v err=%v", exists, err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("sample config invalid: %v", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := validConfig(t)
	cfg.Limit = 12
	var buf bytes.Buffer
	if err := cfg.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var back Config
	if err := toml.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.Limit != 12 || back.Dir != cfg.Dir || back.Output.Format != cfg.Output.Format {
		t.Errorf("round trip lost data: %+v", back)
	}
}
