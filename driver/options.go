package driver

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/jarcode-foss/iheaders/cache"
	"github.com/jarcode-foss/iheaders/parser"
)

// Mode selects how the driver disposes of a source file's generated output.
type Mode int

const (
	// ModeHeaderPerFile writes one header next to (or under HeaderDir from)
	// each source file.
	ModeHeaderPerFile Mode = iota
	// ModeHeaderMerged concatenates every source's header output into one
	// file at SingleOutput.
	ModeHeaderMerged
	// ModeStdout writes every source's header output to a single stream,
	// without touching the filesystem.
	ModeStdout
	// ModeStrip rewrites each source file in place with annotations
	// replaced by whitespace.
	ModeStrip
)

// Options configures one driver run over a set of source files.
type Options struct {
	Mode Mode

	// HeaderDir and RootDir together control per-file destination paths:
	// a source under RootDir has its RootDir prefix replaced by HeaderDir
	// before the .c -> .h rewrite, preserving the subtree layout.
	HeaderDir string
	RootDir   string

	// SingleOutput is the destination for ModeHeaderMerged.
	SingleOutput string

	// Stdout is where ModeStdout writes; defaults to os.Stdout.
	Stdout io.Writer

	IncludeGuards bool

	Token     string
	TabIndent int

	// Cache is consulted before parsing and updated after a successful
	// write in per-file and strip modes; merged and stdout output bypass
	// it. nil disables caching entirely.
	Cache   cache.Store
	NoCache bool

	// Concurrency bounds how many files are processed at once.
	Concurrency int

	Logger *logrus.Logger
}

func (o Options) parserConfig(sourceName string, trace func(event string, pos parser.Pos)) parser.Config {
	return parser.Config{
		Token:      o.Token,
		TabWidth:   o.TabIndent,
		Strip:      o.Mode == ModeStrip,
		SourceName: sourceName,
		Trace:      trace,
	}
}

func (o Options) logger() *logrus.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logrus.StandardLogger()
}

func (o Options) concurrency() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return 4
}
