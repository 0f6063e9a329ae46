package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/kigichang/mospeada/internal/inference"
	"github.com/kigichang/mospeada/internal/tokenizer"
)

func runCmd() *cli.Command {
	var (
		opts     modelOpts
		prompt   string
		system   string
		msgsFile string

		maxTokens     int64
		temp          float64
		topK          int64
		topP          float64
		repeatPenalty float64
		repeatLastN   int64
		seed          int64

		noTemplate bool
		echoPrompt bool
		showStats  bool
	)

	return &cli.Command{
		Name:  "run",
		Usage: "Generate text, either for a single prompt or interactively",
		Flags: append(append(modelFlags(&opts), loggingFlags()...),
			&cli.StringFlag{
				Name:        "prompt",
				Aliases:     []string{"p"},
				Usage:       "prompt text (omit for interactive chat)",
				Destination: &prompt,
			},
			&cli.StringFlag{
				Name:        "system",
				Aliases:     []string{"sys"},
				Usage:       "optional system prompt",
				Destination: &system,
			},
			&cli.StringFlag{
				Name:        "messages",
				Aliases:     []string{"f"},
				Usage:       "JSON file with an initial messages array",
				Destination: &msgsFile,
			},
			&cli.Int64Flag{
				Name:        "max-tokens",
				Aliases:     []string{"n", "steps"},
				Usage:       "max tokens to generate (-1 = until EOS)",
				Value:       -1,
				Destination: &maxTokens,
			},
			&cli.Float64Flag{
				Name:        "temp",
				Aliases:     []string{"temperature", "t"},
				Usage:       "sampling temperature (0 = greedy)",
				Value:       0.8,
				Destination: &temp,
			},
			&cli.Int64Flag{
				Name:        "top-k",
				Aliases:     []string{"top_k"},
				Usage:       "top-k sampling parameter (0 = disabled)",
				Value:       40,
				Destination: &topK,
			},
			&cli.Float64Flag{
				Name:        "top-p",
				Aliases:     []string{"top_p"},
				Usage:       "top-p sampling parameter",
				Value:       0.95,
				Destination: &topP,
			},
			&cli.Float64Flag{
				Name:        "repeat-penalty",
				Aliases:     []string{"repetition_penalty"},
				Usage:       "repetition penalty (1.0 = disabled)",
				Value:       1.1,
				Destination: &repeatPenalty,
			},
			&cli.Int64Flag{
				Name:        "repeat-last-n",
				Usage:       "history window for the repetition penalty (0 = all)",
				Value:       64,
				Destination: &repeatLastN,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "sampling RNG seed (-1 = random)",
				Value:       -1,
				Destination: &seed,
			},
			&cli.StringSliceFlag{
				Name:  "stop",
				Usage: "stop generation when the output ends with this string (repeatable)",
			},
			&cli.BoolFlag{
				Name:        "no-template",
				Usage:       "disable chat template rendering",
				Destination: &noTemplate,
			},
			&cli.BoolFlag{
				Name:        "echo-prompt",
				Usage:       "print the rendered prompt before generation",
				Destination: &echoPrompt,
			},
			&cli.BoolFlag{
				Name:        "stats",
				Usage:       "print generation stats after each turn",
				Value:       true,
				Destination: &showStats,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, log := setupLogger(ctx)
			cfg := loadConfig()
			opts.applyConfig(cfg, c)
			applySampling(cfg, c, &temp, &topK, &topP, &repeatPenalty, &repeatLastN, &maxTokens, &seed)

			eng, err := opts.buildEngine(ctx, log)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load model: %v", err), 1)
			}
			defer func() { _ = eng.Close() }()

			if seed == -1 {
				seed = time.Now().UnixNano()
			}

			msgs := make([]tokenizer.Message, 0, 8)
			if system != "" {
				msgs = append(msgs, tokenizer.Message{Role: "system", Content: system})
			}
			if msgsFile != "" {
				loaded, err := tokenizer.LoadMessagesJSON(msgsFile)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: load messages: %v", err), 1)
				}
				msgs = append(msgs, loaded...)
			}

			interactive := prompt == ""
			if interactive {
				fmt.Fprintln(os.Stderr, "Interactive mode. Type /exit to quit.")
			} else {
				msgs = append(msgs, tokenizer.Message{Role: "user", Content: prompt})
			}

			for {
				if interactive {
					input, err := readInteractiveLine("> ")
					if err != nil {
						if errors.Is(err, io.EOF) {
							return nil
						}
						return cli.Exit(fmt.Sprintf("error: read input: %v", err), 1)
					}
					input = strings.TrimSpace(input)
					if input == "/exit" {
						return nil
					}
					if input == "" {
						continue
					}
					msgs = append(msgs, tokenizer.Message{Role: "user", Content: input})
				}

				reqOpts := &inference.RequestOptions{
					Messages:          msgs,
					MaxTokens:         ptr(int(maxTokens)),
					Seed:              &seed,
					Temperature:       &temp,
					TopK:              ptr(int(topK)),
					TopP:              &topP,
					RepetitionPenalty: &repeatPenalty,
					RepeatLastN:       ptr(int(repeatLastN)),
					StopStrings:       c.StringSlice("stop"),
					NoTemplate:        noTemplate,
					EchoPrompt:        echoPrompt && !interactive,
				}
				req, err := inference.ResolveRequest(reqOpts, eng.GenerationConfig())
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}

				result, err := eng.Generate(ctx, req, func(frag string) {
					fmt.Print(frag)
				})
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: generation: %v", err), 1)
				}
				fmt.Println()
				if showStats {
					fmt.Fprintf(os.Stderr, "Stats: %.2f TPS (%d tokens in %s, stop=%s)\n",
						result.Stats.TPS, result.Stats.TokensGenerated,
						result.Stats.Duration.Round(time.Millisecond), result.StopReason)
				}

				if !interactive {
					return nil
				}
				msgs = append(msgs, tokenizer.Message{Role: "assistant", Content: result.Text})
				// Each turn draws fresh randomness.
				seed++
			}
		},
	}
}

// applySampling layers config file values under flags the user did not
// set.
func applySampling(cfg Config, c *cli.Command,
	temp *float64, topK *int64, topP, repeatPenalty *float64,
	repeatLastN, maxTokens, seed *int64,
) {
	if cfg.Temperature != nil && !c.IsSet("temp") {
		*temp = *cfg.Temperature
	}
	if cfg.TopK != nil && !c.IsSet("top-k") {
		*topK = *cfg.TopK
	}
	if cfg.TopP != nil && !c.IsSet("top-p") {
		*topP = *cfg.TopP
	}
	if cfg.RepetitionPenalty != nil && !c.IsSet("repeat-penalty") {
		*repeatPenalty = *cfg.RepetitionPenalty
	}
	if cfg.RepeatLastN != nil && !c.IsSet("repeat-last-n") {
		*repeatLastN = *cfg.RepeatLastN
	}
	if cfg.MaxTokens != nil && !c.IsSet("max-tokens") {
		*maxTokens = *cfg.MaxTokens
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		*seed = *cfg.Seed
	}
}

func ptr[T any](v T) *T { return &v }
