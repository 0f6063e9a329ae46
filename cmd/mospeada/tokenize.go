package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/kigichang/mospeada/internal/hub"
	"github.com/kigichang/mospeada/internal/tokenizer"
)

func tokenizeCmd() *cli.Command {
	var (
		opts   modelOpts
		decode bool
	)

	return &cli.Command{
		Name:      "tokenize",
		Usage:     "Encode text with a model's tokenizer and print the token ids",
		ArgsUsage: "<text>",
		Flags: append(append(modelFlags(&opts), loggingFlags()...),
			&cli.BoolFlag{
				Name:        "decode",
				Usage:       "also print each token's decoded text",
				Destination: &decode,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, log := setupLogger(ctx)
			cfg := loadConfig()
			opts.applyConfig(cfg, c)

			if c.Args().Len() == 0 {
				return cli.Exit("error: no text given", 1)
			}
			text := strings.Join(c.Args().Slice(), " ")

			repo, err := opts.openRepo(log)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			tokPath, err := hub.TokenizerFile(ctx, repo)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			tokCfgPath, err := hub.TokenizerConfigFile(ctx, repo)
			if err != nil {
				tokCfgPath = ""
			}
			tok, err := tokenizer.LoadBPE(tokPath, tokCfgPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load tokenizer: %v", err), 1)
			}

			ids, err := tok.Encode(text)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: encode: %v", err), 1)
			}

			fmt.Printf("%d tokens\n", len(ids))
			if decode {
				for _, id := range ids {
					piece, err := tok.Decode([]int{id})
					if err != nil {
						piece = tok.TokenString(id)
					}
					fmt.Printf("%7d  %q\n", id, piece)
				}
			} else {
				fmt.Println(joinInts(ids))
			}
			return nil
		},
	}
}

func joinInts(ids []int) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, id := range ids {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d", id)
	}
	b.WriteByte(']')
	return b.String()
}
