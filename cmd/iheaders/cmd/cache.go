package cmd

import (
	"errors"
	"fmt"

	"github.com/alecthomas/repr"
	"github.com/spf13/cobra"

	iheadercache "github.com/jarcode-foss/iheaders/cache"
	iheadersconfig "github.com/jarcode-foss/iheaders/config"
)

var (
	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect or reset a named build-cache target",
	}

	cacheLsCmd = &cobra.Command{
		Use:   "ls NAME",
		Short: "List every manifest entry recorded in a named cache target",
		RunE:  runCacheLs,
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear NAME",
		Short: "Remove every manifest entry recorded in a named cache target",
		RunE:  runCacheClear,
	}
)

func init() {
	cacheCmd.AddCommand(cacheLsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func openNamedCache(cmd *cobra.Command, args []string) (iheadercache.Store, iheadercache.Lister, error) {
	if len(args) != 1 {
		_ = cmd.Help()
		return nil, nil, errors.New("need to specify a cache target name")
	}
	fileCfg, err := iheadersconfig.Load(".")
	if err != nil {
		return nil, nil, err
	}
	target, ok := fileCfg.Cache(args[0])
	if !ok {
		return nil, nil, errors.New("unknown cache target " + args[0])
	}
	store, err := openCacheTarget(cmd.Context(), target)
	if err != nil {
		return nil, nil, err
	}
	lister, ok := store.(iheadercache.Lister)
	if !ok {
		store.Close()
		return nil, nil, errors.New("cache target " + args[0] + " does not support listing")
	}
	return store, lister, nil
}

func runCacheLs(cmd *cobra.Command, args []string) error {
	store, lister, err := openNamedCache(cmd, args)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := lister.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no manifest entries")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", repr.String(e.OutputPath), e.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	store, lister, err := openNamedCache(cmd, args)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := lister.Clear(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
	return nil
}
