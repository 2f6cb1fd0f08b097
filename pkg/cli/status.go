package cli

import (
	"context"
	"encoding/json"

	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/tamias/pkg/model"
)

func statusCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, embeddingFlags(&cfg)...)

	return &cli.Command{
		Name:  "status",
		Usage: "Print the configuration and collection stats as JSON",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			p, err := cfg.newPipeline(ctx)
			if err != nil {
				return err
			}

			status := &model.Status{
				DataDir:      p.info.DataDir,
				Backend:      p.info.Backend,
				Dimension:    p.info.Dimension,
				ChunkSize:    p.info.ChunkSize,
				ChunkOverlap: p.info.ChunkOverlap,
				Knowledge:    p.knowledge.Stats(ctx),
				Memory:       p.memory.Stats(ctx),
			}

			enc := json.NewEncoder(c.Root().Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(status)
		},
	}
}
