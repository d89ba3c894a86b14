package cache

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileManifest is the on-disk shape of a file-backed store: a flat list of
// entries, the simplest representation that still round-trips through
// gopkg.in/yaml.v3 without a schema migration of its own.
type fileManifest struct {
	Entries []fileEntry `yaml:"entries"`
}

type fileEntry struct {
	SourceHash  string    `yaml:"source_hash"`
	ConfigHash  string    `yaml:"config_hash"`
	OutputPath  string    `yaml:"output_path"`
	OutputHash  string    `yaml:"output_hash"`
	GeneratedAt time.Time `yaml:"generated_at"`
}

// fileStore backs the manifest with a single YAML file plus an advisory
// lock, for invocations with no database configured at all.
type fileStore struct {
	path string
}

// NewFileStore returns a Store backed by the YAML file at path. The file is
// created on first Record if it does not already exist.
func NewFileStore(path string) (Store, error) {
	return &fileStore{path: path}, nil
}

func (s *fileStore) Lookup(ctx context.Context, key CacheKey) (ManifestEntry, bool, error) {
	unlock, err := lockFile(s.path)
	if err != nil {
		return ManifestEntry{}, false, err
	}
	defer unlock()

	manifest, err := s.read()
	if err != nil {
		return ManifestEntry{}, false, err
	}

	sourceHash, configHash := hexEncode(key.SourceHash), hexEncode(key.ConfigHash)
	for _, e := range manifest.Entries {
		if e.SourceHash != sourceHash || e.ConfigHash != configHash {
			continue
		}
		outputHash, err := hexDecode32(e.OutputHash)
		if err != nil {
			return ManifestEntry{}, false, fmt.Errorf("cache: corrupt output_hash for %s: %w", e.OutputPath, err)
		}
		return ManifestEntry{
			Key:         key,
			OutputPath:  e.OutputPath,
			OutputHash:  outputHash,
			GeneratedAt: e.GeneratedAt,
		}, true, nil
	}
	return ManifestEntry{}, false, nil
}

func (s *fileStore) Record(ctx context.Context, entry ManifestEntry) error {
	unlock, err := lockFile(s.path)
	if err != nil {
		return err
	}
	defer unlock()

	manifest, err := s.read()
	if err != nil {
		return err
	}

	sourceHash, configHash := hexEncode(entry.Key.SourceHash), hexEncode(entry.Key.ConfigHash)
	row := fileEntry{
		SourceHash:  sourceHash,
		ConfigHash:  configHash,
		OutputPath:  entry.OutputPath,
		OutputHash:  hex.EncodeToString(entry.OutputHash[:]),
		GeneratedAt: entry.GeneratedAt,
	}

	replaced := false
	for i, e := range manifest.Entries {
		if e.SourceHash == sourceHash && e.ConfigHash == configHash && e.OutputPath == entry.OutputPath {
			manifest.Entries[i] = row
			replaced = true
			break
		}
	}
	if !replaced {
		manifest.Entries = append(manifest.Entries, row)
	}

	return s.write(manifest)
}

func (s *fileStore) List(ctx context.Context) ([]ManifestEntry, error) {
	unlock, err := lockFile(s.path)
	if err != nil {
		return nil, err
	}
	defer unlock()

	manifest, err := s.read()
	if err != nil {
		return nil, err
	}
	entries := make([]ManifestEntry, 0, len(manifest.Entries))
	for _, e := range manifest.Entries {
		sourceHash, err := hexDecode32(e.SourceHash)
		if err != nil {
			return nil, err
		}
		configHash, err := hexDecode32(e.ConfigHash)
		if err != nil {
			return nil, err
		}
		outputHash, err := hexDecode32(e.OutputHash)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ManifestEntry{
			Key:         CacheKey{SourceHash: sourceHash, ConfigHash: configHash},
			OutputPath:  e.OutputPath,
			OutputHash:  outputHash,
			GeneratedAt: e.GeneratedAt,
		})
	}
	return entries, nil
}

func (s *fileStore) Clear(ctx context.Context) error {
	unlock, err := lockFile(s.path)
	if err != nil {
		return err
	}
	defer unlock()
	return s.write(fileManifest{})
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) read() (fileManifest, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return fileManifest{}, nil
	}
	if err != nil {
		return fileManifest{}, fmt.Errorf("cache: reading %s: %w", s.path, err)
	}
	var manifest fileManifest
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return fileManifest{}, fmt.Errorf("cache: parsing %s: %w", s.path, err)
	}
	return manifest, nil
}

func (s *fileStore) write(manifest fileManifest) error {
	raw, err := yaml.Marshal(manifest)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("cache: writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("cache: replacing %s: %w", s.path, err)
	}
	return nil
}
