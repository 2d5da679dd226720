package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/opexdevelop/mediacache/internal/delivery"
	"github.com/opexdevelop/mediacache/internal/formatter"
	"github.com/opexdevelop/mediacache/internal/models"
	"github.com/opexdevelop/mediacache/internal/shared"
	"github.com/opexdevelop/mediacache/internal/ui"
	"github.com/urfave/cli/v3"
)

// Fetch delivers an artifact, downloading and caching it on a miss.
func (r *Runner) Fetch(ctx context.Context, cmd *cli.Command) error {
	raw := cmd.Args().First()
	if raw == "" {
		return fmt.Errorf("%w: a source URL or ID is required", shared.ErrInvalidSource)
	}

	kind := models.MediaKind(cmd.String("kind"))
	if !kind.Valid() {
		return fmt.Errorf("%w: %q (want audio or video)", shared.ErrInvalidKind, cmd.String("kind"))
	}

	quality := cmd.String("quality")
	if quality == "" {
		quality = kind.DefaultQuality()
	}

	r.reloadConfig(cmd)

	engine, cleanup, err := r.openEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	var result *delivery.DeliverResult
	if cmd.Bool("plain") || cmd.Bool("json") {
		result, err = engine.Deliver(ctx, raw, kind, quality, nil)
	} else {
		result, err = r.fetchWithTUI(ctx, engine, raw, kind, quality)
	}
	if err != nil {
		return fmt.Errorf("delivery failed: %w", err)
	}

	if cmd.Bool("json") {
		out, err := formatter.DeliverToJSON(result)
		if err != nil {
			return err
		}
		return r.writePlain("%s\n", out)
	}

	return r.writePlain("%s", formatter.DeliverToText(result))
}

// fetchWithTUI runs the delivery behind a progress view. The engine works in
// a goroutine; the model drains progress until the outcome arrives.
func (r *Runner) fetchWithTUI(ctx context.Context, engine *delivery.Engine, raw string, kind models.MediaKind, quality string) (*delivery.DeliverResult, error) {
	progress := make(chan delivery.ProgressUpdate, 16)
	outcome := make(chan ui.FetchOutcome, 1)

	go func() {
		result, err := engine.Deliver(ctx, raw, kind, quality, progress)
		close(progress)
		outcome <- ui.FetchOutcome{Result: result, Err: err}
	}()

	model := ui.NewFetchModel(raw, progress, outcome)
	finished, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	if err != nil {
		return nil, fmt.Errorf("TUI failed: %w", err)
	}

	return finished.(ui.FetchModel).Result()
}

func fetchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Deliver an artifact, fetching and caching it on a miss",
		ArgsUsage: "<url>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "kind",
				Aliases: []string{"k"},
				Usage:   "Media kind: audio or video",
				Value:   "audio",
			},
			&cli.StringFlag{
				Name:    "quality",
				Aliases: []string{"q"},
				Usage:   "Bitrate in kbps (audio) or resolution (video)",
			},
			&cli.BoolFlag{
				Name:  "plain",
				Usage: "Disable the progress TUI",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output as JSON (implies --plain)",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
			},
		},
		Action: r.Fetch,
	}
}
