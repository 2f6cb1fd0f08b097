package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func searchCommand() *cli.Command {
	var (
		cfg    config
		topk   int64
		asJSON bool
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "topk",
			Aliases:     []string{"k"},
			Usage:       "Maximum number of results",
			Value:       5,
			Destination: &topk,
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
		Name:      "search",
		Usage:     "Search the knowledge base by semantic similarity",
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

			hits, err := p.knowledge.Search(ctx, query, int(topk))
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
				fmt.Fprintln(w, "No matches")
				return nil
			}
			for _, h := range hits {
				fmt.Fprintf(w, "[%.3f] %s#%d\n%s\n\n", h.Score, h.Source, h.Index, h.Text)
			}
			return nil
		},
	}
}
