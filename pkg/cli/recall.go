package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func recallCommand() *cli.Command {
	var (
		cfg      config
		topk     int64
		category string
		asJSON   bool
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "topk",
			Aliases:     []string{"k"},
			Usage:       "Maximum number of results",
			Value:       5,
			Destination: &topk,
		},
		&cli.StringFlag{
			Name:        "category",
			Aliases:     []string{"c"},
			Usage:       "Restrict results to one category",
			Destination: &category,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Print results as JSON",
			Destination: &asJSON,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, embeddingFlags(&cfg)...)

	return &cli.Command{
		Name:      "recall",
		Usage:     "Recall memories by semantic similarity",
		ArgsUsage: "<query>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			query := c.Args().First()
			if query == "" {
				return goerr.New("query argument is required")
			}

			p, err := cfg.newPipeline(ctx)
			if err != nil {
				return err
			}

			hits, err := p.memory.Recall(ctx, query, int(topk), category)
			if err != nil {
				return err
			}

			w := c.Root().Writer
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(hits)
			}

			if len(hits) == 0 {
				fmt.Fprintln(w, "Nothing recalled")
				return nil
			}
			for _, h := range hits {
				fmt.Fprintf(w, "[%.3f] (%s) %s\n", h.Score, h.Category, h.Text)
			}
			return nil
		},
	}
}
