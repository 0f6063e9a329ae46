package inference

import (
	"context"
	"time"

	"github.com/kigichang/mospeada/internal/tokenizer"
)

// StreamFunc receives decoded text fragments as they become stable.
type StreamFunc func(fragment string)

// Engine produces chat completions for one loaded model.
type Engine interface {
	Generate(ctx context.Context, req *Request, stream StreamFunc) (*Result, error)
	Close() error
}

// Request is a fully resolved generation request. Use ResolveRequest to
// apply model and hard defaults to partially specified options.
type Request struct {
	Messages []tokenizer.Message

	MaxTokens int // <= 0 means unlimited
	Seed      int64

	Temperature       float64
	TopK              int     // 0 disables
	TopP              float64 // 0 disables
	RepetitionPenalty float64 // 0 or 1 disables
	RepeatLastN       int     // 0 means entire history

	StopStrings []string

	NoTemplate bool
	EchoPrompt bool
}

// StopReason records which stop condition ended a generation.
type StopReason string

const (
	StopReasonEOS        StopReason = "eos"
	StopReasonMaxTokens  StopReason = "max_tokens"
	StopReasonStopString StopReason = "stop_string"
	StopReasonCancelled  StopReason = "cancelled"
)

type Stats struct {
	PromptTokens    int
	TokensGenerated int
	Duration        time.Duration
	TPS             float64
}

// Result is the final outcome of a session, including partial output when
// the session was cancelled.
type Result struct {
	Text       string
	Tokens     []int
	StopReason StopReason
	Stats      Stats
}

// Validate rejects malformed sampling parameters and empty conversations
// before any model work happens.
func (r *Request) Validate() error {
	if len(r.Messages) == 0 {
		return &ConfigError{Field: "messages", Reason: "conversation is empty"}
	}
	if r.Temperature < 0 {
		return &ConfigError{Field: "temperature", Reason: "must be >= 0"}
	}
	if r.TopP < 0 || r.TopP > 1 {
		return &ConfigError{Field: "top_p", Reason: "must be in (0,1]"}
	}
	if r.TopK < 0 {
		return &ConfigError{Field: "top_k", Reason: "must be >= 1 when set"}
	}
	if r.RepetitionPenalty != 0 && r.RepetitionPenalty < 1 {
		return &ConfigError{Field: "repetition_penalty", Reason: "must be >= 1"}
	}
	if r.RepeatLastN < 0 {
		return &ConfigError{Field: "repeat_last_n", Reason: "must be >= 0"}
	}
	return nil
}
