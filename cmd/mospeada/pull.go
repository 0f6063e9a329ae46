package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/kigichang/mospeada/internal/hub"
)

func pullCmd() *cli.Command {
	var (
		opts    modelOpts
		weights bool
	)

	return &cli.Command{
		Name:      "pull",
		Usage:     "Download a model's files from the hub into the local cache",
		ArgsUsage: "[org/name]",
		Flags: append(append(modelFlags(&opts), loggingFlags()...),
			&cli.BoolFlag{
				Name:        "weights",
				Usage:       "also download the safetensors weights",
				Value:       true,
				Destination: &weights,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, log := setupLogger(ctx)
			cfg := loadConfig()
			opts.applyConfig(cfg, c)
			if c.Args().Len() > 0 {
				opts.model = c.Args().First()
			}
			if opts.model == "" {
				return cli.Exit("error: no model specified", 1)
			}

			repo, err := opts.openRepo(log)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			fetch := func(name string, get func(context.Context, hub.Repo) (string, error), required bool) error {
				p, err := get(ctx, repo)
				if err != nil {
					if required {
						return fmt.Errorf("fetch %s: %w", name, err)
					}
					log.Warn("optional file not available", "file", name)
					return nil
				}
				fmt.Println(p)
				return nil
			}

			if err := fetch("config.json", hub.ConfigFile, true); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if err := fetch("tokenizer.json", hub.TokenizerFile, true); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			_ = fetch("tokenizer_config.json", hub.TokenizerConfigFile, false)
			_ = fetch("generation_config.json", hub.GenerationConfigFile, false)

			if weights {
				files, err := hub.SafetensorsFiles(ctx, repo)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: fetch weights: %v", err), 1)
				}
				for _, f := range files {
					fmt.Println(f)
				}
			}

			log.Info("model pulled", "model", repo.ModelID())
			return nil
		},
	}
}
