package indexer

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeScanConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "index.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadScanConfig(t *testing.T) {
	p := writeScanConfig(t, `
include:
  - "*.md"
exclude:
  - "drafts/*.md"
validation:
  min_file_size: 10
  max_file_size: 5000
`)

	cfg, err := LoadScanConfig(p)
	if err != nil {
		t.Fatalf("LoadScanConfig: %v", err)
	}
	if !reflect.DeepEqual(cfg.IncludePatterns, []string{"*.md"}) {
		t.Errorf("IncludePatterns = %v", cfg.IncludePatterns)
	}
	if !reflect.DeepEqual(cfg.ExcludePatterns, []string{"drafts/*.md"}) {
		t.Errorf("ExcludePatterns = %v", cfg.ExcludePatterns)
	}
	if cfg.MinFileSize != 10 || cfg.MaxFileSize != 5000 {
		t.Errorf("size bounds = [%d, %d]", cfg.MinFileSize, cfg.MaxFileSize)
	}
}

func TestLoadScanConfigDefaults(t *testing.T) {
	p := writeScanConfig(t, "include: []\n")

	cfg, err := LoadScanConfig(p)
	if err != nil {
		t.Fatalf("LoadScanConfig: %v", err)
	}
	if cfg.MinFileSize != 0 || cfg.MaxFileSize != 10*1024*1024 {
		t.Errorf("size bounds = [%d, %d], want defaults", cfg.MinFileSize, cfg.MaxFileSize)
	}
}

func TestLoadScanConfigMissing(t *testing.T) {
	if _, err := LoadScanConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadScanConfigInvalidBounds(t *testing.T) {
	p := writeScanConfig(t, "validation:\n  min_file_size: 100\n  max_file_size: 10\n")
	if _, err := LoadScanConfig(p); err == nil {
		t.Fatal("expected error for max below min")
	}
}

func TestScanFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main/001.md", strings.Repeat("内容", 20))
	writeFile(t, dir, "daily/002.md", strings.Repeat("内容", 20))
	writeFile(t, dir, "drafts/003.md", strings.Repeat("内容", 20))
	writeFile(t, dir, "main/notes.txt", "忽略")
	writeFile(t, dir, "main/tiny.md", "x")

	cfg := &ScanConfig{
		IncludePatterns: []string{"*.md"},
		ExcludePatterns: []string{"drafts/*.md"},
		MinFileSize:     10,
		MaxFileSize:     10 * 1024 * 1024,
	}

	files, err := ScanFiles(dir, cfg)
	if err != nil {
		t.Fatalf("ScanFiles: %v", err)
	}
	if !reflect.DeepEqual(files, []string{"daily/002.md", "main/001.md"}) {
		t.Errorf("files = %v", files)
	}
}

func TestScanFilesMissingDir(t *testing.T) {
	cfg := &ScanConfig{MaxFileSize: defaultMaxFileSize}
	if _, err := ScanFiles(filepath.Join(t.TempDir(), "gone"), cfg); err == nil {
		t.Fatal("expected error for missing contents directory")
	}
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		rel     string
		want    bool
	}{
		{"*.md", "main/501-600/588.md", true},
		{"*.md", "main/notes.txt", false},
		{"drafts/*.md", "drafts/a.md", true},
		{"drafts/*.md", "archive/drafts/a.md", true},
		{"drafts/*.md", "drafts/sub/a.md", false},
		{"main/*/*.md", "main/501-600/588.md", true},
		{"main/*/*.md", "daily/501-600/588.md", false},
		{"588.md", "main/501-600/588.md", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.rel, func(t *testing.T) {
			if got := matchPattern(tt.pattern, tt.rel); got != tt.want {
				t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.pattern, tt.rel, got, tt.want)
			}
		})
	}
}
