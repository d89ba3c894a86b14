package cmd

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jarcode-foss/iheaders/cache"
	iheadersconfig "github.com/jarcode-foss/iheaders/config"
	"github.com/jarcode-foss/iheaders/driver"
)

var (
	rootCmd = &cobra.Command{
		Use:          "iheaders",
		Short:        "iheaders",
		SilenceUsage: true,
		Long:         `Extracts C declarations annotated with inline header comments into generated headers, or strips them from the source in place.`,
		RunE:         runRoot,
	}

	verbose       bool
	strip         bool
	token         string
	headerDir     string
	rootDir       string
	singleOutput  string
	stdoutOut     bool
	includeGuards bool
	tabIndent     int
	cacheName     string
	noCache       bool
)

// Execute executes the root command.
func Execute() error {
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log parser trace events")
	rootCmd.Flags().BoolVarP(&strip, "strip", "p", false, "strip annotations from the source in place instead of generating headers")
	rootCmd.Flags().StringVarP(&token, "token", "t", "", "annotation sentinel token (default \"@\")")
	rootCmd.Flags().StringVarP(&headerDir, "header-dir", "d", "", "directory to write generated headers under")
	rootCmd.Flags().StringVarP(&rootDir, "root-dir", "r", "", "source subtree root preserved under --header-dir")
	rootCmd.Flags().StringVarP(&singleOutput, "single-output", "s", "", "merge all generated headers into one file")
	rootCmd.Flags().BoolVarP(&stdoutOut, "stdout", "O", false, "write all generated headers to stdout")
	rootCmd.Flags().BoolVarP(&includeGuards, "include-guards", "G", false, "wrap each generated header in a unique include guard")
	rootCmd.Flags().IntVarP(&tabIndent, "tab-indent", "I", -1, "column width of a tab for block indentation trim (default 4)")
	rootCmd.Flags().StringVarP(&cacheName, "cache", "c", "", "named build-cache target from iheaders.yaml to consult")
	rootCmd.Flags().BoolVar(&noCache, "no-cache", false, "force reprocessing of every file, still updating the cache")

	rootCmd.AddCommand(cacheCmd)
	return rootCmd.Execute()
}

func init() {
	if os.Getenv("IHEADERS_DEBUG") != "" {
		logrus.SetLevel(logrus.DebugLevel)
	}
}

func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		_ = cmd.Help()
		return errors.New("need at least one source file or directory")
	}
	if err := validateModeFlags(); err != nil {
		_ = cmd.Help()
		return err
	}

	sources, err := expandSources(args)
	if err != nil {
		return err
	}

	fileCfg, err := iheadersconfig.Load(".")
	if err != nil {
		return err
	}

	logger := logrus.StandardLogger()
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	opts := driver.Options{
		Mode:          resolveMode(),
		HeaderDir:     firstNonEmpty(headerDir, fileCfg.HeaderDir),
		RootDir:       rootDir,
		SingleOutput:  singleOutput,
		Stdout:        cmd.OutOrStdout(),
		IncludeGuards: includeGuards,
		Token:         firstNonEmpty(token, fileCfg.Token, "@"),
		TabIndent:     resolveTabIndent(fileCfg),
		NoCache:       noCache,
		Logger:        logger,
	}

	store, err := resolveCache(cmd.Context(), fileCfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		opts.Cache = store
	}

	return driver.Run(cmd.Context(), sources, opts)
}

// resolveTabIndent gives -I priority over iheaders.yaml's tab_indent over
// the built-in default of 4, treating -1 (the flag's unset sentinel) as
// "not given" since 0 is itself a meaningful value (disables trim).
func resolveTabIndent(fileCfg iheadersconfig.File) int {
	if tabIndent >= 0 {
		return tabIndent
	}
	if fileCfg.TabIndent > 0 {
		return fileCfg.TabIndent
	}
	return 4
}

func resolveMode() driver.Mode {
	switch {
	case strip:
		return driver.ModeStrip
	case singleOutput != "":
		return driver.ModeHeaderMerged
	case stdoutOut:
		return driver.ModeStdout
	default:
		return driver.ModeHeaderPerFile
	}
}

func validateModeFlags() error {
	exclusive := 0
	if singleOutput != "" {
		exclusive++
	}
	if headerDir != "" || rootDir != "" {
		exclusive++
	}
	if stdoutOut {
		exclusive++
	}
	if exclusive > 1 {
		return errors.New("at most one of --single-output, --header-dir/--root-dir, --stdout may be given")
	}
	if rootDir != "" && headerDir == "" {
		return errors.New("--root-dir requires --header-dir")
	}
	return nil
}

func resolveCache(ctx context.Context, fileCfg iheadersconfig.File) (cache.Store, error) {
	if cacheName == "" {
		return nil, nil
	}
	target, ok := fileCfg.Cache(cacheName)
	if !ok {
		return nil, errors.New("unknown cache target " + cacheName)
	}
	return openCacheTarget(ctx, target)
}

func openCacheTarget(ctx context.Context, target iheadersconfig.CacheTarget) (cache.Store, error) {
	switch target.Driver {
	case "sqlite":
		return cache.NewSQLiteStore(target.DSN)
	case "postgres", "sqlserver":
		return cache.NewSQLStore(ctx, target.Driver, target.DSN)
	case "file":
		return cache.NewFileStore(target.DSN)
	default:
		return nil, errors.New("unsupported cache driver " + target.Driver)
	}
}

// expandSources turns a mix of file and directory arguments into a stable,
// lexically sorted list of *.c files, grounded on the pack's fs.WalkDir
// based filesystem traversal convention.
func expandSources(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") && path != arg {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) == ".c" {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(out)
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
