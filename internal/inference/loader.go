package inference

import (
	"context"
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"github.com/kigichang/mospeada/internal/decode"
	"github.com/kigichang/mospeada/internal/hub"
	"github.com/kigichang/mospeada/internal/logger"
	"github.com/kigichang/mospeada/internal/tokenizer"
	"github.com/kigichang/mospeada/internal/tplparser"
)

// Loader assembles an engine from a model repo. The caller supplies the
// model execution backend, either directly or through NewModel when the
// backend needs the tokenizer's vocabulary size; the loader resolves
// tokenizer, chat template family and generation defaults from the repo's
// files.
type Loader struct {
	Repo     hub.Repo
	Model    decode.Model
	NewModel func(vocabSize int) (decode.Model, error)
	Log      logger.Logger
}

// modelConfig is the slice of config.json the loader cares about.
type modelConfig struct {
	ModelType string `json:"model_type"`
}

func (l *Loader) Load(ctx context.Context) (*EngineImpl, error) {
	log := l.Log
	if log == nil {
		log = logger.Default()
	}

	tokPath, err := hub.TokenizerFile(ctx, l.Repo)
	if err != nil {
		return nil, err
	}
	tokCfgPath, err := hub.TokenizerConfigFile(ctx, l.Repo)
	if err != nil {
		// Tokenizer config is optional; special token names then come
		// from tokenizer.json alone.
		tokCfgPath = ""
	}
	tok, err := tokenizer.LoadBPE(tokPath, tokCfgPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	arch, err := l.loadModelType(ctx)
	if err != nil {
		return nil, err
	}

	family, ok := tplparser.Detect(arch, tok.ChatTemplate())
	if !ok {
		return nil, &tplparser.TemplateError{
			Reason: fmt.Sprintf("no chat template family for architecture %q", arch),
		}
	}
	log.Info("model loaded",
		"model", l.Repo.ModelID(),
		"architecture", arch,
		"template", string(family),
		"vocab", tok.VocabSize(),
	)

	var genCfg *GenerationConfig
	if p, err := hub.GenerationConfigFile(ctx, l.Repo); err == nil {
		genCfg, err = LoadGenerationConfig(p)
		if err != nil {
			return nil, err
		}
	}

	model := l.Model
	if model == nil {
		if l.NewModel == nil {
			return nil, fmt.Errorf("loader: no model backend configured")
		}
		model, err = l.NewModel(tok.VocabSize())
		if err != nil {
			return nil, err
		}
	}

	builder := NewPromptBuilder(family, tok,
		tok.TokenString(tok.BOSID()),
		tok.TokenString(tok.EOSID()),
		tok.AddBOS(),
	)
	return NewEngine(model, tok, builder, genCfg, log), nil
}

func (l *Loader) loadModelType(ctx context.Context) (string, error) {
	p, err := hub.ConfigFile(ctx, l.Repo)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", err
	}
	var cfg modelConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("model config: %w", err)
	}
	return cfg.ModelType, nil
}
