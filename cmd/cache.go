package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/opexdevelop/mediacache/internal/formatter"
	"github.com/opexdevelop/mediacache/internal/repositories"
	"github.com/opexdevelop/mediacache/internal/ui"
	"github.com/urfave/cli/v3"
)

// CacheList prints the cached artifacts.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	store, err := r.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	lister, ok := store.(repositories.Lister)
	if !ok {
		return fmt.Errorf("cache backend %q does not support listing", r.config.Cache.Backend)
	}

	entries, err := lister.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list cache entries: %w", err)
	}

	switch {
	case cmd.Bool("json"):
		out, err := formatter.EntriesToJSON(entries)
		if err != nil {
			return err
		}
		return r.writePlain("%s\n", out)
	case cmd.Bool("csv"):
		out, err := formatter.EntriesToCSV(entries)
		if err != nil {
			return err
		}
		return r.writePlain("%s", out)
	case cmd.Bool("interactive"):
		_, err := tea.NewProgram(ui.NewBrowseModel(entries), tea.WithContext(ctx)).Run()
		return err
	default:
		return r.writePlain("%s", formatter.EntriesToText(entries))
	}
}

// CacheDrop evicts one cached artifact by key.
func (r *Runner) CacheDrop(ctx context.Context, cmd *cli.Command) error {
	key := cmd.String("key")
	if key == "" {
		return fmt.Errorf("cache key is required")
	}

	r.reloadConfig(cmd)

	store, err := r.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to drop cache entry: %w", err)
	}

	r.logger.Info("cache entry dropped", "key", key)
	return r.writePlain("✓ Dropped %s\n", key)
}

// CacheRefresh reports a stale handle and re-fetches the artifact once.
func (r *Runner) CacheRefresh(ctx context.Context, cmd *cli.Command) error {
	key := cmd.String("key")
	if key == "" {
		return fmt.Errorf("cache key is required")
	}

	r.reloadConfig(cmd)

	engine, cleanup, err := r.openEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := engine.ReportDeliveryFailure(ctx, key); err != nil {
		return fmt.Errorf("failed to evict stale entry: %w", err)
	}

	result, err := engine.DeliverKey(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("failed to re-fetch artifact: %w", err)
	}

	return r.writePlain("%s", formatter.DeliverToText(result))
}

func cacheCommand(r *Runner) *cli.Command {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
	}

	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and manage the delivery cache",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List cached artifacts",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
					&cli.BoolFlag{Name: "csv", Usage: "Output as CSV"},
					&cli.BoolFlag{Name: "interactive", Aliases: []string{"i"}, Usage: "Browse in a TUI"},
					configFlag,
				},
				Action: r.CacheList,
			},
			{
				Name:  "drop",
				Usage: "Evict a cached artifact",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "key", Usage: "Cache key to evict", Required: true},
					configFlag,
				},
				Action: r.CacheDrop,
			},
			{
				Name:  "refresh",
				Usage: "Report a stale handle and re-fetch the artifact",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "key", Usage: "Cache key to refresh", Required: true},
					configFlag,
				},
				Action: r.CacheRefresh,
			},
		},
	}
}
