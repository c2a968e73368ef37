package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/haukened/scam-index/internal/scam/common/log"
	"github.com/haukened/scam-index/internal/scam/common/metrics"
	"github.com/haukened/scam-index/internal/scam/config"
	"github.com/haukened/scam-index/internal/scam/gateways/feed"
	"github.com/haukened/scam-index/internal/scam/repos/artifact"
	"github.com/haukened/scam-index/internal/scam/repos/catalog"
	"github.com/haukened/scam-index/internal/scam/repos/catalog/bolt"
	"github.com/haukened/scam-index/internal/scam/repos/catalog/lru"
	"github.com/haukened/scam-index/internal/scam/repos/exclusions"
	"github.com/haukened/scam-index/internal/scam/services/indexer"
)

const (
	version = "0.1.0-dev"
	appName = "scam-indexer"
)

// loadConfig is replaced in tests.
var loadConfig = config.LoadFile

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfg     *config.AppConfig
		cfgFile string
	)
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Build and query a verified Bloom filter index of known scam sites",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			c, err := loadConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			if err := log.Configure(c.Env, c.Log.Level); err != nil {
				return fmt.Errorf("logging configuration error: %w", err)
			}
			cfg = c
			return nil
		},
	}
	cmd.SetVersionTemplate(appName + " {{.Version}}\n")
	cmd.PersistentFlags().StringVar(&cfgFile, "config", os.Getenv(config.ConfigFileEnv), "YAML, JSON or TOML config file (env: "+config.ConfigFileEnv+")")

	cmd.AddCommand(&cobra.Command{
		Use:   "build",
		Short: "Fetch the feed, build and verify the filter, and commit it with the catalog",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(c.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runBuild(ctx, cfg)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "check NAME...",
		Short: "Look names or URLs up in the committed index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runCheck(cfg, args, c.OutOrStdout())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "inspect",
		Short: "Print slice and catalog statistics of the committed index",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return runInspect(cfg, c.OutOrStdout())
		},
	})
	return cmd
}

// runBuild wires the indexer from cfg and runs it once. Metrics are written
// whether or not the run succeeds.
func runBuild(ctx context.Context, cfg *config.AppConfig) (err error) {
	logger := log.GetLogger()
	log.Info(map[string]any{
		"version":  version,
		"env":      cfg.Env,
		"feed":     cfg.Feed.URL,
		"filter":   cfg.Filter.Path,
		"store":    cfg.Store.DB,
		"fp_rate":  cfg.Filter.FPRate,
		"growth":   cfg.Filter.Growth,
		"textfile": cfg.Metrics.Textfile,
	}, "scam_indexer_build")

	excl, err := exclusions.Load(cfg.Exclude.File, cfg.Exclude.Domains)
	if err != nil {
		return err
	}
	src, err := feed.NewSource(feed.Options{
		URL:      cfg.Feed.URL,
		Timeout:  cfg.Feed.Timeout,
		MaxBytes: cfg.Feed.MaxBytes,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	store, err := openStore(cfg.Store.DB)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	m := metrics.New()
	ix, err := indexer.New(indexer.Deps{
		Source:     src,
		Store:      store,
		Exclusions: excl,
		Options: indexer.Options{
			FPRate:      cfg.Filter.FPRate,
			Growth:      cfg.Filter.Growth,
			MinCapacity: cfg.Filter.MinCapacity,
		},
		Path:    cfg.Filter.Path,
		Metrics: m,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	_, runErr := ix.Run(ctx)
	if werr := m.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
		log.Warn(map[string]any{"path": cfg.Metrics.Textfile, "error": werr}, "metrics_write_failed")
	}
	return runErr
}

// runCheck prints one line per name: LISTED or CLEAN, the key that decided
// it, and the catalog category when confirmed.
func runCheck(cfg *config.AppConfig, names []string, out io.Writer) (err error) {
	filter, err := artifact.Load(cfg.Filter.Path)
	if err != nil {
		return err
	}
	store, err := openStore(cfg.Store.DB)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	cache, err := lru.New(cfg.Cache.Size)
	if err != nil {
		return err
	}
	repo := catalog.NewRepository(store, cache, filter, log.GetLogger())

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, name := range names {
		d := repo.Decide(name)
		switch {
		case d.Listed && d.Confirmed:
			fmt.Fprintf(tw, "LISTED\t%s\t%s\t%s\n", name, d.MatchedKey, d.Record.Category)
		case d.Listed:
			fmt.Fprintf(tw, "LISTED\t%s\t%s\t(unconfirmed)\n", name, d.MatchedKey)
		default:
			fmt.Fprintf(tw, "CLEAN\t%s\t%s\t\n", name, d.MatchedKey)
		}
	}
	return tw.Flush()
}

// runInspect prints filter slice statistics and, when present, catalog metadata.
func runInspect(cfg *config.AppConfig, out io.Writer) error {
	filter, err := artifact.Load(cfg.Filter.Path)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "path\t%s\n", cfg.Filter.Path)
	fmt.Fprintf(tw, "fp rate\t%g\n", filter.FPRate())
	fmt.Fprintf(tw, "growth\t%d\n", filter.GrowthRatio())
	fmt.Fprintf(tw, "count\t%d\n", filter.Count())
	fmt.Fprintf(tw, "capacity\t%d\n", filter.Capacity())
	fmt.Fprintf(tw, "estimated fp\t%.6f\n", filter.EstimatedFPRate())
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "slice\tcapacity\tcount\tbits\thashes\tfp rate")
	for i, s := range filter.Stats() {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%g\n", i, s.Capacity, s.Count, s.Bits, s.Hashes, s.FPRate)
	}

	if _, statErr := os.Stat(cfg.Store.DB); statErr == nil {
		store, err := openStore(cfg.Store.DB)
		if err != nil {
			return err
		}
		st := store.Stats()
		if cerr := store.Close(); cerr != nil {
			return cerr
		}
		fmt.Fprintln(tw)
		fmt.Fprintf(tw, "catalog version\t%d\n", st.Version)
		fmt.Fprintf(tw, "catalog records\t%d\n", st.Records)
		fmt.Fprintf(tw, "catalog run\t%s\n", st.RunID)
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return statErr
	}
	return tw.Flush()
}

func openStore(path string) (catalog.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}
	store, err := bolt.New(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	return store, nil
}
