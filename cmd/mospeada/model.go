package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/kigichang/mospeada/internal/decode"
	"github.com/kigichang/mospeada/internal/hub"
	"github.com/kigichang/mospeada/internal/inference"
	"github.com/kigichang/mospeada/internal/logger"
	"github.com/kigichang/mospeada/internal/toy"
)

// modelOpts are the flags shared by every command that opens a model.
type modelOpts struct {
	model    string
	revision string
	cacheDir string
	token    string

	maxContext int64
	demoHidden int64
	demoSeed   int64
}

func modelFlags(o *modelOpts) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "model id on the hub (org/name) or path to a local model directory",
			Destination: &o.model,
		},
		&cli.StringFlag{
			Name:        "revision",
			Usage:       "model revision (branch, tag or commit)",
			Value:       "main",
			Destination: &o.revision,
		},
		&cli.StringFlag{
			Name:        "cache-dir",
			Usage:       "hub download cache directory",
			Destination: &o.cacheDir,
		},
		&cli.StringFlag{
			Name:        "token",
			Usage:       "hub access token (defaults to HF_TOKEN)",
			Destination: &o.token,
		},
		&cli.Int64Flag{
			Name:        "max-context",
			Aliases:     []string{"ctx", "c"},
			Usage:       "max context length",
			Value:       4096,
			Destination: &o.maxContext,
		},
		&cli.Int64Flag{
			Name:        "demo-hidden",
			Usage:       "hidden size of the built-in demo backend",
			Value:       64,
			Destination: &o.demoHidden,
		},
		&cli.Int64Flag{
			Name:        "demo-seed",
			Usage:       "weight seed of the built-in demo backend",
			Value:       1,
			Destination: &o.demoSeed,
		},
	}
}

func (o *modelOpts) applyConfig(cfg Config, c *cli.Command) {
	if o.model == "" {
		o.model = cfg.Model
	}
	if cfg.Revision != "" && !c.IsSet("revision") {
		o.revision = cfg.Revision
	}
	if cfg.CacheDir != "" && !c.IsSet("cache-dir") {
		o.cacheDir = cfg.CacheDir
	}
	if cfg.Token != "" && !c.IsSet("token") {
		o.token = cfg.Token
	}
}

// openRepo resolves the model flag: an existing directory is used in
// place, anything else is treated as a hub model id.
func (o *modelOpts) openRepo(log logger.Logger) (hub.Repo, error) {
	if o.model == "" {
		return nil, fmt.Errorf("no model specified (use --model or the config file)")
	}
	if st, err := os.Stat(o.model); err == nil && st.IsDir() {
		return hub.NewLocalRepo(filepath.Base(filepath.Clean(o.model)), o.model), nil
	}
	if !strings.Contains(o.model, "/") {
		return nil, fmt.Errorf("model %q is neither a directory nor an org/name hub id", o.model)
	}

	opts := []hub.Option{
		hub.WithRevision(o.revision),
		hub.WithLogger(log),
	}
	if o.cacheDir != "" {
		opts = append(opts, hub.WithCacheDir(o.cacheDir))
	}
	if o.token != "" {
		opts = append(opts, hub.WithToken(o.token))
	}
	return hub.FromPretrained(o.model, opts...)
}

// buildEngine opens the repo and assembles an engine on the built-in demo
// backend, sized to the model's vocabulary.
func (o *modelOpts) buildEngine(ctx context.Context, log logger.Logger) (*inference.EngineImpl, error) {
	repo, err := o.openRepo(log)
	if err != nil {
		return nil, err
	}
	loader := &inference.Loader{
		Repo: repo,
		NewModel: func(vocabSize int) (decode.Model, error) {
			return toy.New(vocabSize, int(o.demoHidden), o.demoSeed, int(o.maxContext)), nil
		},
		Log: log,
	}
	return loader.Load(ctx)
}
