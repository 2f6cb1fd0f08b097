package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func rememberCommand() *cli.Command {
	var (
		cfg      config
		category string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "category",
			Aliases:     []string{"c"},
			Usage:       "Category label (default: general)",
			Destination: &category,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, embeddingFlags(&cfg)...)

	return &cli.Command{
		Name:      "remember",
		Usage:     "Store a fact in long-lived memory",
		ArgsUsage: "<text>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			text := c.Args().First()
			if text == "" {
				return goerr.New("text argument is required")
			}

			p, err := cfg.newPipeline(ctx)
			if err != nil {
				return err
			}

			id, created, err := p.memory.Remember(ctx, text, category)
			if err != nil {
				return err
			}

			if created {
				fmt.Fprintf(c.Root().Writer, "Remembered %s\n", id)
			} else {
				fmt.Fprintf(c.Root().Writer, "Already known as %s\n", id)
			}
			return nil
		},
	}
}
