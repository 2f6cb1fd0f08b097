package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func ingestCommand() *cli.Command {
	var (
		cfg    config
		text   string
		source string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "text",
			Aliases:     []string{"t"},
			Usage:       "Raw text to ingest instead of a file",
			Destination: &text,
		},
		&cli.StringFlag{
			Name:        "source",
			Aliases:     []string{"s"},
			Usage:       "Source label (default: file path, or \"manual\" for raw text)",
			Destination: &source,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, embeddingFlags(&cfg)...)

	return &cli.Command{
		Name:      "ingest",
		Usage:     "Ingest a document into the knowledge base",
		ArgsUsage: "[file]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			path := c.Args().First()
			if path == "" && text == "" {
				return goerr.New("either a file argument or --text is required")
			}
			if path != "" && text != "" {
				return goerr.New("a file argument and --text are mutually exclusive")
			}

			p, err := cfg.newPipeline(ctx)
			if err != nil {
				return err
			}

			var n int
			if path != "" {
				n, err = p.knowledge.IngestFile(ctx, path, source)
			} else {
				n, err = p.knowledge.Ingest(ctx, text, source)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Ingested %d chunks\n", n)
			return nil
		},
	}
}
