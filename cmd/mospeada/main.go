package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kigichang/mospeada/internal/logger"
)

var (
	logLevel  string
	logFormat string
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json)",
			Value:       "pretty",
			Destination: &logFormat,
		},
	}
}

// setupLogger builds the logger from the logging flags and stores it in
// the context for anything downstream that calls logger.FromContext.
func setupLogger(ctx context.Context) (context.Context, logger.Logger) {
	level := logger.ParseLevel(logLevel)
	var log logger.Logger
	if logFormat == "json" {
		log = logger.JSON(os.Stderr, level)
	} else {
		log = logger.Pretty(os.Stderr, level)
	}
	return logger.WithContext(ctx, log), log
}

func main() {
	app := &cli.Command{
		Name:  "mospeada",
		Usage: "Local LLM text generation CLI",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			runCmd(),
			serveCmd(),
			pullCmd(),
			tokenizeCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
