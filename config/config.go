// Package config loads iheaders.yaml and merges it with CLI flags into the
// values the driver and cache packages need.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CacheTarget describes one named entry under the YAML file's caches: map.
type CacheTarget struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// File is the decoded shape of iheaders.yaml.
type File struct {
	Token     string                 `yaml:"token"`
	TabIndent int                    `yaml:"tab_indent"`
	HeaderDir string                 `yaml:"header_dir"`
	Caches    map[string]CacheTarget `yaml:"caches"`
}

const fileName = "iheaders.yaml"

// Load walks upward from dir looking for iheaders.yaml, returning a zero
// File (not an error) if none is found -- an iheaders.yaml is optional,
// CLI flags and built-in defaults are enough on their own.
func Load(dir string) (File, error) {
	path, err := findUpward(dir, fileName)
	if err != nil {
		return File{}, err
	}
	if path == "" {
		return File{}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return File{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

func findUpward(dir, name string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Cache resolves a named cache target, reporting ok=false if name is unset
// or absent from the file's caches: map.
func (f File) Cache(name string) (CacheTarget, bool) {
	if name == "" {
		return CacheTarget{}, false
	}
	t, ok := f.Caches[name]
	return t, ok
}
