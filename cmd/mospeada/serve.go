package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/kigichang/mospeada/internal/api"
)

func serveCmd() *cli.Command {
	var (
		opts        modelOpts
		addr        string
		readTimeout time.Duration
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the OpenAI-compatible chat completions API",
		Flags: append(append(modelFlags(&opts), loggingFlags()...),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "HTTP read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, log := setupLogger(ctx)
			cfg := loadConfig()
			opts.applyConfig(cfg, c)
			if cfg.ServerAddress != "" && !c.IsSet("addr") {
				addr = cfg.ServerAddress
			}

			eng, err := opts.buildEngine(ctx, log)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load model: %v", err), 1)
			}
			defer func() { _ = eng.Close() }()

			server := api.NewServer(eng, eng.GenerationConfig(), opts.model, log)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)

			log.Info("starting server", "address", addr, "model", opts.model)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
