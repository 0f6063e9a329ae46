package inference

import "github.com/kigichang/mospeada/internal/tokenizer"

// RequestOptions is a partially specified request, as it arrives from the
// CLI or the HTTP API. Nil fields fall back to the model's generation
// config, then to hard defaults.
type RequestOptions struct {
	Messages []tokenizer.Message

	MaxTokens *int
	Seed      *int64

	Temperature       *float64
	TopK              *int
	TopP              *float64
	RepetitionPenalty *float64
	RepeatLastN       *int

	StopStrings []string

	NoTemplate bool
	EchoPrompt bool
}

// Hard defaults applied when neither the caller nor the model config
// specifies a value.
const (
	defaultTemperature       = 0.8
	defaultTopK              = 40
	defaultTopP              = 0.95
	defaultRepetitionPenalty = 1.1
	defaultRepeatLastN       = 64
)

// ResolveRequest layers hard defaults, then the model's generation config,
// then the caller's options, and returns a validated Request.
func ResolveRequest(opts *RequestOptions, gc *GenerationConfig) (*Request, error) {
	req := &Request{
		Messages:          opts.Messages,
		MaxTokens:         -1,
		Temperature:       defaultTemperature,
		TopK:              defaultTopK,
		TopP:              defaultTopP,
		RepetitionPenalty: defaultRepetitionPenalty,
		RepeatLastN:       defaultRepeatLastN,
		StopStrings:       opts.StopStrings,
		NoTemplate:        opts.NoTemplate,
		EchoPrompt:        opts.EchoPrompt,
	}

	if gc != nil {
		if gc.Temperature != nil {
			req.Temperature = *gc.Temperature
		}
		if gc.TopK != nil {
			req.TopK = *gc.TopK
		}
		if gc.TopP != nil {
			req.TopP = *gc.TopP
		}
		if gc.RepetitionPenalty != nil {
			req.RepetitionPenalty = *gc.RepetitionPenalty
		}
		if gc.MaxNewTokens != nil {
			req.MaxTokens = *gc.MaxNewTokens
		}
		if gc.Sampling() == SamplingArgMax {
			req.Temperature = 0
		}
	}

	if opts.Temperature != nil {
		req.Temperature = *opts.Temperature
	}
	if opts.TopK != nil {
		req.TopK = *opts.TopK
	}
	if opts.TopP != nil {
		req.TopP = *opts.TopP
	}
	if opts.RepetitionPenalty != nil {
		req.RepetitionPenalty = *opts.RepetitionPenalty
	}
	if opts.RepeatLastN != nil {
		req.RepeatLastN = *opts.RepeatLastN
	}
	if opts.MaxTokens != nil {
		req.MaxTokens = *opts.MaxTokens
	}
	if opts.Seed != nil {
		req.Seed = *opts.Seed
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}
