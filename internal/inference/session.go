package inference

import (
	"context"
	"strings"
	"time"

	"github.com/kigichang/mospeada/internal/decode"
	"github.com/kigichang/mospeada/internal/logits"
	"github.com/kigichang/mospeada/internal/tokenizer"
)

type sessionState int

const (
	stateInit sessionState = iota
	statePrefilling
	stateDecoding
	stateCompleted
	stateCancelled
	stateFailed
)

// Session is a single generation over one conversation. It owns its
// decoder cache, sampler state and detokenizer, so concurrent sessions on
// the same model never interfere.
//
// Next pulls the next stable text fragment. The prompt is rendered,
// encoded and prefilled lazily on the first call.
type Session struct {
	req     *Request
	builder *PromptBuilder
	dec     *decode.Decoder
	sampler *logits.Sampler
	stream  *tokenizer.Stream

	stopTokens []int

	state      sessionState
	history    []int // prompt + generated, for the repetition penalty
	tokens     []int // generated only, stop token included
	pending    []float32
	promptText string
	emitted    strings.Builder
	start      time.Time
	result     *Result
}

func newSession(req *Request, b *PromptBuilder, model decode.Model, tok tokenizer.Tokenizer, stopTokens []int) *Session {
	return &Session{
		req:     req,
		builder: b,
		dec:     decode.NewDecoder(model),
		sampler: logits.NewSampler(logits.Config{
			Seed:              req.Seed,
			Temperature:       float32(req.Temperature),
			TopP:              float32(req.TopP),
			RepetitionPenalty: float32(req.RepetitionPenalty),
			TopK:              req.TopK,
			RepeatLastN:       req.RepeatLastN,
		}),
		stream:     tokenizer.NewStream(tok),
		stopTokens: stopTokens,
	}
}

// Next advances the session until the next non-empty text fragment is
// available or a stop condition is reached. done reports that the session
// has finished; Result is available once done is true with a nil error.
//
// A cancelled context ends the session with StopReasonCancelled and a
// partial result rather than an error. A finished session returns
// ErrSessionFinished on further calls.
func (s *Session) Next(ctx context.Context) (fragment string, done bool, err error) {
	switch s.state {
	case stateCompleted, stateCancelled, stateFailed:
		return "", true, ErrSessionFinished
	}

	for {
		if ctx.Err() != nil {
			return s.finishFlush("", StopReasonCancelled)
		}

		if s.state == stateInit {
			if err := s.prefill(); err != nil {
				return s.fail(err)
			}
		}

		id := s.sampler.Sample(s.pending, s.history)
		s.history = append(s.history, id)
		s.tokens = append(s.tokens, id)

		if isStopToken(s.stopTokens, id) {
			// The stop token counts toward the budget but its text is
			// never emitted.
			return s.finishFlush("", StopReasonEOS)
		}

		frag, err := s.stream.Push(id)
		if err != nil {
			return s.fail(&SessionError{Stage: StageDecode, Err: err})
		}
		s.emitted.WriteString(frag)

		if s.req.MaxTokens > 0 && len(s.tokens) >= s.req.MaxTokens {
			return s.finishFlush(frag, StopReasonMaxTokens)
		}

		if len(s.req.StopStrings) > 0 {
			rest, err := s.stream.Rest()
			if err != nil {
				return s.fail(&SessionError{Stage: StageDecode, Err: err})
			}
			if _, hit := hasStopSuffix(s.emitted.String()+rest, s.req.StopStrings); hit {
				return s.finishFlush(frag, StopReasonStopString)
			}
		}

		lg, err := s.dec.Step(id)
		if err != nil {
			return s.fail(&SessionError{Stage: StageDecode, Err: err})
		}
		s.pending = lg

		if frag != "" {
			return frag, false, nil
		}
	}
}

// Result returns the session outcome, or nil while the session is still
// running or after a failure.
func (s *Session) Result() *Result { return s.result }

// PromptText returns the rendered prompt. Empty until the first Next call
// has prefilled the session.
func (s *Session) PromptText() string { return s.promptText }

func (s *Session) prefill() error {
	s.state = statePrefilling
	s.start = time.Now()

	text, err := s.builder.Render(s.req)
	if err != nil {
		return &SessionError{Stage: StageRender, Err: err}
	}
	s.promptText = text

	ids, err := s.builder.tok.Encode(text)
	if err != nil {
		return &SessionError{Stage: StageEncode, Err: err}
	}
	s.history = append(s.history, ids...)

	lg, err := s.dec.Prefill(ids)
	if err != nil {
		return &SessionError{Stage: StagePrefill, Err: err}
	}
	s.pending = lg
	s.state = stateDecoding
	return nil
}

// finishFlush drains the detokenizer tail, records the result and releases
// the cache. carried is a fragment produced this iteration that has not
// been returned to the caller yet.
func (s *Session) finishFlush(carried string, reason StopReason) (string, bool, error) {
	rest := ""
	if s.state == stateDecoding {
		r, err := s.stream.Rest()
		if err != nil {
			return s.fail(&SessionError{Stage: StageDecode, Err: err})
		}
		rest = r
		s.emitted.WriteString(rest)
	}

	dur := time.Since(s.start)
	if s.start.IsZero() {
		dur = 0
	}
	tps := 0.0
	if dur > 0 {
		tps = float64(len(s.tokens)) / dur.Seconds()
	}
	s.result = &Result{
		Text:       s.emitted.String(),
		Tokens:     append([]int(nil), s.tokens...),
		StopReason: reason,
		Stats: Stats{
			PromptTokens:    len(s.history) - len(s.tokens),
			TokensGenerated: len(s.tokens),
			Duration:        dur,
			TPS:             tps,
		},
	}

	if reason == StopReasonCancelled {
		s.state = stateCancelled
	} else {
		s.state = stateCompleted
	}
	s.dec.Discard()
	return carried + rest, true, nil
}

func (s *Session) fail(err error) (string, bool, error) {
	s.state = stateFailed
	s.dec.Discard()
	return "", true, err
}
