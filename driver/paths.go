package driver

import (
	"os"
	"path/filepath"
	"strings"
)

// destHeaderPath computes where the generated header for source belongs,
// replacing a RootDir prefix with HeaderDir (preserving the remaining
// subtree) and rewriting the .c extension to .h.
func destHeaderPath(source string, opts Options) (string, error) {
	rewritten := rewriteExtension(source)

	if opts.HeaderDir == "" {
		return rewritten, nil
	}

	rel := rewritten
	if opts.RootDir != "" {
		r, err := filepath.Rel(opts.RootDir, rewritten)
		if err != nil {
			return "", &DriverError{Path: source, Err: err}
		}
		rel = r
	} else {
		rel = filepath.Base(rewritten)
	}
	return filepath.Join(opts.HeaderDir, rel), nil
}

func rewriteExtension(source string) string {
	ext := filepath.Ext(source)
	if ext == "" {
		return source + ".h"
	}
	return strings.TrimSuffix(source, ext) + ".h"
}

// createParents makes every parent directory of path that does not already
// exist, with permissions restricted to the owner, mirroring the original
// tool's create_parents.
func createParents(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "/" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return &DriverError{Path: dir, Err: err}
	}
	return nil
}
