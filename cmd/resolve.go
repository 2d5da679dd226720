package main

import (
	"context"
	"fmt"

	"github.com/opexdevelop/mediacache/internal/formatter"
	"github.com/opexdevelop/mediacache/internal/models"
	"github.com/opexdevelop/mediacache/internal/shared"
	"github.com/urfave/cli/v3"
)

// Resolve parses a source URL and fetches its title without downloading.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
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

	result, err := engine.Resolve(ctx, raw, kind, quality)
	if err != nil {
		return fmt.Errorf("failed to resolve source: %w", err)
	}

	if cmd.Bool("json") {
		out, err := formatter.ResolveToJSON(result)
		if err != nil {
			return err
		}
		return r.writePlain("%s\n", out)
	}

	return r.writePlain("%s", formatter.ResolveToText(result))
}

func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve a source URL to its title without downloading",
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
				Name:  "json",
				Usage: "Output as JSON",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
			},
		},
		Action: r.Resolve,
	}
}
