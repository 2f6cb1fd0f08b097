package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/tamias/pkg/server"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func serveCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, embeddingFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve MCP tools over stdio",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			p, err := cfg.newPipeline(ctx)
			if err != nil {
				return err
			}

			srv := server.New(p.knowledge, p.memory, p.info)
			return srv.Run(ctx, Version)
		},
	}
}
