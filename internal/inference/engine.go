package inference

import (
	"context"

	"github.com/kigichang/mospeada/internal/decode"
	"github.com/kigichang/mospeada/internal/logger"
	"github.com/kigichang/mospeada/internal/tokenizer"
)

// EngineImpl runs generation sessions against one loaded model. Sessions
// carry all per-request state, so a single engine serves concurrent
// requests as long as the model's Forward is safe for concurrent caches.
type EngineImpl struct {
	model      decode.Model
	tok        tokenizer.Tokenizer
	builder    *PromptBuilder
	genCfg     *GenerationConfig
	stopTokens []int
	log        logger.Logger
}

var _ Engine = (*EngineImpl)(nil)

// NewEngine wires an engine from its parts. genCfg may be nil; stop
// tokens then come from the tokenizer alone.
func NewEngine(model decode.Model, tok tokenizer.Tokenizer, builder *PromptBuilder, genCfg *GenerationConfig, log logger.Logger) *EngineImpl {
	if log == nil {
		log = logger.Default()
	}
	return &EngineImpl{
		model:      model,
		tok:        tok,
		builder:    builder,
		genCfg:     genCfg,
		stopTokens: BuildStopTokens(genCfg, tok),
		log:        log,
	}
}

// GenerationConfig returns the model's generation defaults, possibly nil.
func (e *EngineImpl) GenerationConfig() *GenerationConfig { return e.genCfg }

// NewSession validates the request and prepares a session. No model work
// happens until the session's first Next call.
func (e *EngineImpl) NewSession(req *Request) (*Session, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return newSession(req, e.builder, e.model, e.tok, e.stopTokens), nil
}

// Generate runs a full session, invoking stream for each text fragment as
// it becomes stable. stream may be nil. Cancellation via ctx ends the
// session early and returns the partial result.
func (e *EngineImpl) Generate(ctx context.Context, req *Request, stream StreamFunc) (*Result, error) {
	sess, err := e.NewSession(req)
	if err != nil {
		return nil, err
	}

	first := true
	for {
		frag, done, err := sess.Next(ctx)
		if err != nil {
			return nil, err
		}
		if first {
			first = false
			// The prompt text exists only after the first call prefilled.
			if req.EchoPrompt && stream != nil {
				stream(sess.PromptText())
			}
		}
		if stream != nil && frag != "" {
			stream(frag)
		}
		if done {
			r := sess.Result()
			e.logResult(r)
			return r, nil
		}
	}
}

func (e *EngineImpl) logResult(r *Result) {
	e.log.Debug("generation finished",
		"stop_reason", string(r.StopReason),
		"tokens", r.Stats.TokensGenerated,
		"tps", r.Stats.TPS,
	)
}

func (e *EngineImpl) Close() error { return nil }
