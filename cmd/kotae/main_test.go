package main

import (
	"flag"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"
)

func nopLogger(t *testing.T) *zap.Logger {
	t.Helper()
	return zap.NewNop()
}

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"¿qué es una red?", "-top-k", "5"},
			expected: []string{"-top-k", "5", "¿qué es una red?"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-top-k", "5", "gradiente"},
			expected: []string{"-top-k", "5", "gradiente"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"descenso del gradiente"},
			expected: []string{"descenso del gradiente"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"red", "neuronal", "--output", "json"},
			expected: []string{"--output", "json", "red", "neuronal"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"gradiente"}, "gradiente"},
		{"multiple words", []string{"¿Qué", "es", "una", "red?"}, "¿Qué es una red?"},
		{"single quoted phrase", []string{"red neuronal"}, "red neuronal"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildQuery(tt.args)
			if got != tt.expected {
				t.Errorf("buildQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestThresholdFlag(t *testing.T) {
	newFS := func() (*flag.FlagSet, *float64) {
		fs := flag.NewFlagSet("ask", flag.ContinueOnError)
		return fs, fs.Float64("threshold", 0, "")
	}

	fs, v := newFS()
	if err := fs.Parse([]string{"hola"}); err != nil {
		t.Fatal(err)
	}
	if got := thresholdFlag(fs, "threshold", *v); got != nil {
		t.Errorf("unset flag should give nil, got %v", *got)
	}

	fs, v = newFS()
	if err := fs.Parse([]string{"-threshold", "0", "hola"}); err != nil {
		t.Fatal(err)
	}
	got := thresholdFlag(fs, "threshold", *v)
	if got == nil || *got != 0 {
		t.Errorf("explicit zero threshold should be kept, got %v", got)
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8000
storage:
  database_path: "./kotae.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolvedCanon, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
document:
  chunk_size: 500
  chunk_overlap: 50
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Document.ChunkSize != 500 || cfg.Document.ChunkOverlap != 50 {
		t.Errorf("unexpected document config: %+v", cfg.Document)
	}
}

func TestLoadConfig_rejectsBadChunking(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
document:
  chunk_size: 100
  chunk_overlap: 100
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := loadConfig(configPath); err == nil {
		t.Error("expected validation error for overlap >= chunk_size")
	}
}

func TestInitializeComponents(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "./data/kotae.db"
  vector_index_path: "./data/vectors"
embedding:
  provider: mock
  dimensions: 8
qa:
  provider: none
vector:
  index_type: memory
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	c, err := initializeComponents(cfg, nopLogger(t))
	if err != nil {
		t.Fatalf("initializeComponents: %v", err)
	}
	defer c.Close()

	if c.Engine == nil || c.Indexer == nil || c.Holder == nil {
		t.Fatal("components not wired")
	}
	if c.Holder.Loaded() {
		t.Error("holder should start empty")
	}
	restoreCorpus(c, nopLogger(t))
	if c.Holder.Loaded() {
		t.Error("nothing persisted, holder should stay empty")
	}

	st, err := statusDirect(configPath)
	if err != nil {
		t.Fatalf("statusDirect: %v", err)
	}
	if st.Chunks != 0 || st.VectorIndexType != "memory" {
		t.Errorf("unexpected status: %+v", st)
	}
}
