package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"imgdup/config"
	"imgdup/testsupport"
)

type cliTestEnv struct {
	dir        string
	configPath string
	cachePath  string
}

// setupCLITestEnv writes two identical images and one unrelated image to a
// fresh directory. The config path never exists so the user's configuration
// is not read.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	dir := filepath.Join(base, "photos")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir photos: %v", err)
	}
	testsupport.WriteImage(t, filepath.Join(dir, "a.png"), testsupport.Noise(96, 64, 1))
	testsupport.WriteImage(t, filepath.Join(dir, "b.png"), testsupport.Noise(96, 64, 1))
	testsupport.WriteImage(t, filepath.Join(dir, "c.png"), testsupport.Noise(96, 64, 2))

	return &cliTestEnv{
		dir:        dir,
		configPath: filepath.Join(base, "config", "config.toml"),
		cachePath:  filepath.Join(base, "cache", "fingerprints.db"),
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--config", env.configPath, "--cache-path", env.cachePath}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q in output:\n%s", needle, haystack)
	}
}

type jsonOutput struct {
	RunID    string `json:"run_id"`
	Settings struct {
		HashSize  int     `json:"hash_size"`
		Threshold float64 `json:"threshold"`
		Threads   int     `json:"threads"`
	} `json:"settings"`
	Images []struct {
		Path     string `json:"path"`
		Similars []struct {
			Path string `json:"path"`
		} `json:"similars"`
	} `json:"images"`
	Errors []struct {
		Path string `json:"path"`
		Kind string `json:"kind"`
	} `json:"errors"`
}

func decodeJSON(t *testing.T, data string) jsonOutput {
	t.Helper()
	var out jsonOutput
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		t.Fatalf("stdout is not a JSON report: %v\n%s", err, data)
	}
	return out
}

func TestFindJSONToStdout(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, env, "--json=2", "-t", "2", env.dir)
	if err != nil {
		t.Fatalf("imgdup: %v", err)
	}
	if strings.Contains(stdout, "Searching for images") {
		t.Fatalf("status lines leaked into JSON output:\n%s", stdout)
	}
	requireContains(t, stdout, "\n  \"settings\"")

	out := decodeJSON(t, stdout)
	if out.RunID == "" {
		t.Error("run_id missing")
	}
	if out.Settings.HashSize != 8 || out.Settings.Threshold != 0.03 || out.Settings.Threads != 2 {
		t.Errorf("settings = %+v", out.Settings)
	}
	if len(out.Images) != 3 || len(out.Errors) != 0 {
		t.Fatalf("got %d images and %d errors, want 3 and 0", len(out.Images), len(out.Errors))
	}

	similars := map[string][]string{}
	for _, img := range out.Images {
		for _, s := range img.Similars {
			similars[filepath.Base(img.Path)] = append(similars[filepath.Base(img.Path)], filepath.Base(s.Path))
		}
	}
	if got := similars["a.png"]; len(got) != 1 || got[0] != "b.png" {
		t.Errorf("a.png similars = %v, want [b.png]", got)
	}
	if got := similars["b.png"]; len(got) != 1 || got[0] != "a.png" {
		t.Errorf("b.png similars = %v, want [a.png]", got)
	}
	if got := similars["c.png"]; len(got) != 0 {
		t.Errorf("c.png similars = %v, want none", got)
	}
}

func TestFindWritesOutfileRelativeToDir(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, env, "--dir", env.dir, "-o", "report.txt", "-u")
	if err != nil {
		t.Fatalf("imgdup: %v", err)
	}
	requireContains(t, stdout, "Testing output file")
	requireContains(t, stdout, "Searching for images...")
	requireContains(t, stdout, "Images found: 3")
	requireContains(t, stdout, "Processing images in")

	data, err := os.ReadFile(filepath.Join(env.dir, "report.txt"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	report := string(data)
	requireContains(t, report, "Threshold: 3.00%")
	requireContains(t, report, "a.png")
	if strings.Contains(report, "c.png") {
		t.Errorf("dup-only report lists c.png:\n%s", report)
	}
}

func TestFindLimit(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, env, "-l", "2", env.dir)
	if err != nil {
		t.Fatalf("imgdup: %v", err)
	}
	requireContains(t, stdout, "Limiting to: 2")
	requireContains(t, stdout, "Results: 2 images")
}

func TestFindRejectsInvalidConfiguration(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "--hash-size", "6", env.dir)
	var cfgErr *config.ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "hash_size" {
		t.Fatalf("err = %v, want hash_size ConfigurationError", err)
	}

	_, _, err = runCLI(t, env, "--format", "xml", env.dir)
	if !errors.As(err, &cfgErr) || cfgErr.Field != "output.format" {
		t.Fatalf("err = %v, want output.format ConfigurationError", err)
	}
}

func TestFindRejectsDirTwice(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "--dir", env.dir, env.dir); err == nil {
		t.Fatal("expected an error when the directory is given twice")
	}
}

func TestFindUsesConfigFile(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(filepath.Dir(env.configPath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "dir = \"" + filepath.ToSlash(env.dir) + "\"\nthreshold = 0.0\n\n[output]\nformat = \"json\"\n"
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	stdout, _, err := runCLI(t, env)
	if err != nil {
		t.Fatalf("imgdup: %v", err)
	}
	out := decodeJSON(t, stdout)
	if out.Settings.Threshold != 0 || len(out.Images) != 3 {
		t.Fatalf("config file ignored: %+v", out.Settings)
	}

	stdout, _, err = runCLI(t, env, "--format", "text")
	if err != nil {
		t.Fatalf("imgdup: %v", err)
	}
	requireContains(t, stdout, "Searching for images...")
}

func TestFindWithCache(t *testing.T) {
	env := setupCLITestEnv(t)

	for run := 1; run <= 2; run++ {
		stdout, _, err := runCLI(t, env, "--cache", env.dir)
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		if run == 1 {
			requireContains(t, stdout, "Fingerprint cache: 0 reused, 3 hashed.")
		} else {
			requireContains(t, stdout, "Fingerprint cache: 3 reused, 0 hashed.")
		}
	}

	stdout, _, err := runCLI(t, env, "cache", "stats")
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	requireContains(t, stdout, "Entries: 3")
	requireContains(t, stdout, "goimagehash")

	if err := os.Remove(filepath.Join(env.dir, "c.png")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	stdout, _, err = runCLI(t, env, "cache", "prune")
	if err != nil {
		t.Fatalf("cache prune: %v", err)
	}
	requireContains(t, stdout, "Pruned 1 cache entries")
}

func TestConfigInitShowAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, stdout, "defaults were used")
	requireContains(t, stdout, "Configuration valid")

	target := filepath.Join(t.TempDir(), "imgdup.toml")
	stdout, _, err = runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, stdout, "Wrote sample configuration")

	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Error("config init replaced an existing file without --overwrite")
	}
	if _, _, err := runCLI(t, env, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Errorf("config init --overwrite: %v", err)
	}

	env.configPath = target
	stdout, _, err = runCLI(t, env, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, stdout, "# Loaded from "+target)
	requireContains(t, stdout, "hash_size = 8")
}
