package indexer

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Default file size limits in bytes.
const (
	defaultMinFileSize = 0
	defaultMaxFileSize = 10 * 1024 * 1024
)

// ScanConfig controls which markdown files the scanner accepts.
type ScanConfig struct {
	IncludePatterns []string
	ExcludePatterns []string
	MinFileSize     int64
	MaxFileSize     int64
}

// LoadScanConfig reads the indexing configuration file. A missing or
// unreadable config is an error so the pipeline never silently indexes
// the wrong file set.
func LoadScanConfig(configFile string) (*ScanConfig, error) {
	v := viper.New()
	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read index config %s: %w", configFile, err)
	}

	cfg := &ScanConfig{
		IncludePatterns: v.GetStringSlice("include"),
		ExcludePatterns: v.GetStringSlice("exclude"),
		MinFileSize:     defaultMinFileSize,
		MaxFileSize:     defaultMaxFileSize,
	}
	if v.IsSet("validation.min_file_size") {
		cfg.MinFileSize = v.GetInt64("validation.min_file_size")
	}
	if v.IsSet("validation.max_file_size") {
		cfg.MaxFileSize = v.GetInt64("validation.max_file_size")
	}
	if cfg.MinFileSize < 0 || cfg.MaxFileSize < cfg.MinFileSize {
		return nil, fmt.Errorf("index config %s: invalid file size bounds [%d, %d]",
			configFile, cfg.MinFileSize, cfg.MaxFileSize)
	}
	return cfg, nil
}

// ScanFiles walks contentsDir and returns the relative slash-separated
// paths of all markdown files that pass the config's pattern and size
// filters, sorted by the walk order (lexical).
func ScanFiles(contentsDir string, cfg *ScanConfig) ([]string, error) {
	info, err := os.Stat(contentsDir)
	if err != nil {
		return nil, fmt.Errorf("contents directory %s: %w", contentsDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("contents path %s is not a directory", contentsDir)
	}

	var files []string
	err = filepath.WalkDir(contentsDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}

		rel, err := filepath.Rel(contentsDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if !cfg.accepts(rel) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		if fi.Size() < cfg.MinFileSize || fi.Size() > cfg.MaxFileSize {
			return nil
		}

		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", contentsDir, err)
	}
	return files, nil
}

// accepts reports whether a relative path passes the include and exclude
// pattern filters. An empty include list accepts everything.
func (c *ScanConfig) accepts(rel string) bool {
	if len(c.IncludePatterns) > 0 {
		included := false
		for _, pat := range c.IncludePatterns {
			if matchPattern(pat, rel) {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}
	for _, pat := range c.ExcludePatterns {
		if matchPattern(pat, rel) {
			return false
		}
	}
	return true
}

// matchPattern matches rel against a glob pattern anchored at the right:
// a pattern without a separator matches the file name, one with
// separators matches the trailing path segments.
func matchPattern(pattern, rel string) bool {
	if !strings.Contains(pattern, "/") {
		ok, err := path.Match(pattern, path.Base(rel))
		return err == nil && ok
	}

	patSegments := strings.Split(pattern, "/")
	relSegments := strings.Split(rel, "/")
	if len(patSegments) > len(relSegments) {
		return false
	}

	tail := relSegments[len(relSegments)-len(patSegments):]
	for i, pat := range patSegments {
		ok, err := path.Match(pat, tail[i])
		if err != nil || !ok {
			return false
		}
	}
	return true
}
