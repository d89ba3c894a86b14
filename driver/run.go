// Package driver wires the parser core, the build cache, and the
// filesystem together into the multi-file behaviour the CLI exposes:
// selecting an output mode, resolving destination paths, optionally
// skipping unchanged files, and fanning independent files out across a
// bounded worker pool.
package driver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	iheaderscache "github.com/jarcode-foss/iheaders/cache"
	"github.com/jarcode-foss/iheaders/parser"
)

// Run processes every entry in sources according to opts, aggregating any
// per-file failures into a *MultiError.
func Run(ctx context.Context, sources []string, opts Options) error {
	switch opts.Mode {
	case ModeHeaderMerged:
		return runSequential(ctx, sources, opts, opts.openMergedOutput)
	case ModeStdout:
		return runSequential(ctx, sources, opts, opts.openStdout)
	default:
		return runConcurrent(ctx, sources, opts)
	}
}

func (o Options) openMergedOutput() (io.Writer, func(), error) {
	if err := createParents(o.SingleOutput); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(o.SingleOutput, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, &DriverError{Path: o.SingleOutput, Err: err}
	}
	return f, func() { f.Close() }, nil
}

func (o Options) openStdout() (io.Writer, func(), error) {
	if o.Stdout != nil {
		return o.Stdout, func() {}, nil
	}
	return os.Stdout, func() {}, nil
}

// runSequential handles the two modes where every source's output lands in
// one shared stream, so ordering (and therefore single-threaded processing)
// matters.
func runSequential(ctx context.Context, sources []string, opts Options, open func() (io.Writer, func(), error)) error {
	f, closeFn, err := open()
	if err != nil {
		return err
	}
	defer closeFn()

	var multi MultiError
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := processOne(ctx, src, opts, f); err != nil {
			multi.Errors = append(multi.Errors, err)
		}
	}
	if len(multi.Errors) > 0 {
		return &multi
	}
	return nil
}

// runConcurrent handles per-file header emission and in-place strip, where
// each source writes an independent destination and can safely run in
// parallel, bounded by opts.Concurrency.
func runConcurrent(ctx context.Context, sources []string, opts Options) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency())

	var multi MultiError
	var mu sync.Mutex
	for _, src := range sources {
		src := src
		g.Go(func() error {
			if err := processOne(gctx, src, opts, nil); err != nil {
				mu.Lock()
				multi.Errors = append(multi.Errors, err)
				mu.Unlock()
			}
			return nil
		})
	}
	// Errors are collected through multi, not the errgroup's own error
	// path, so one file's failure never cancels its siblings.
	_ = g.Wait()

	if len(multi.Errors) > 0 {
		return &multi
	}
	return nil
}

// processOne runs the cache-check/parse/cache-record sequence for a single
// source. When dest is non-nil its output is appended there (merged/stdout
// modes); otherwise the destination is computed from opts and opened fresh
// (per-file/strip modes).
func processOne(ctx context.Context, source string, opts Options, dest io.Writer) error {
	start := time.Now()
	log := opts.logger().WithFields(logrus.Fields{"file": source, "mode": int(opts.Mode)})

	raw, err := os.ReadFile(source)
	if err != nil {
		return &DriverError{Path: source, Err: err}
	}

	key := iheaderscache.CacheKey{
		SourceHash: iheaderscache.HashBytes(raw),
		ConfigHash: iheaderscache.ConfigHash(opts.Token, opts.TabIndent, opts.Mode == ModeStrip),
	}

	outPath := source
	if opts.Mode == ModeHeaderPerFile {
		p, err := destHeaderPath(source, opts)
		if err != nil {
			return err
		}
		outPath = p
	}

	if opts.Cache != nil && !opts.NoCache && dest == nil {
		if entry, ok, err := opts.Cache.Lookup(ctx, key); err != nil {
			log.WithError(err).Warn("cache lookup failed, reprocessing")
		} else if ok {
			if existing, err := os.ReadFile(entry.OutputPath); err == nil {
				if iheaderscache.HashBytes(existing) == entry.OutputHash {
					log.WithField("duration_ms", time.Since(start).Milliseconds()).Info("skipping unchanged file")
					return nil
				}
			}
		}
	}

	var buf bytes.Buffer
	cfg := opts.parserConfig(source, func(event string, pos parser.Pos) {
		log.WithField("pos", pos.String()).Debug(event)
	})

	if opts.IncludeGuards && opts.Mode != ModeStrip {
		macro, err := writeGuardPrologue(&buf)
		if err != nil {
			return &DriverError{Path: source, Err: err}
		}
		if ok, err := parser.Parse(bytes.NewReader(raw), &buf, cfg); err != nil {
			return translateParseErr(source, err)
		} else if !ok {
			return &DriverError{Path: source, Err: fmt.Errorf("parse did not complete")}
		}
		if err := writeGuardEpilogue(&buf, macro); err != nil {
			return &DriverError{Path: source, Err: err}
		}
	} else {
		if ok, err := parser.Parse(bytes.NewReader(raw), &buf, cfg); err != nil {
			return translateParseErr(source, err)
		} else if !ok {
			return &DriverError{Path: source, Err: fmt.Errorf("parse did not complete")}
		}
	}

	if dest != nil {
		if _, err := dest.Write(buf.Bytes()); err != nil {
			return &DriverError{Path: source, Err: err}
		}
	} else {
		if err := createParents(outPath); err != nil {
			return err
		}
		if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
			return &DriverError{Path: outPath, Err: err}
		}
	}

	if opts.Cache != nil && dest == nil {
		entry := iheaderscache.ManifestEntry{
			Key:         key,
			OutputPath:  outPath,
			OutputHash:  iheaderscache.HashBytes(buf.Bytes()),
			GeneratedAt: time.Now(),
		}
		if err := opts.Cache.Record(ctx, entry); err != nil {
			log.WithError(err).Warn("cache record failed")
		}
	}

	log.WithField("duration_ms", time.Since(start).Milliseconds()).Info("generated header")
	return nil
}

func translateParseErr(source string, err error) error {
	return &DriverError{Path: source, Err: err}
}
