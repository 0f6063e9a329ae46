package inference

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/kigichang/mospeada/internal/decode"
	"github.com/kigichang/mospeada/internal/tokenizer"
	"github.com/kigichang/mospeada/internal/tplparser"
)

// scriptTok decodes ids through a fixed word table. Encode always returns
// the same three-token prompt.
type scriptTok struct {
	words map[int]string
}

func (f *scriptTok) Encode(string) ([]int, error) { return []int{1, 2, 3}, nil }

func (f *scriptTok) Decode(ids []int) (string, error) {
	var b strings.Builder
	for _, id := range ids {
		w, ok := f.words[id]
		if !ok {
			return "", &tokenizer.DecodeError{ID: id}
		}
		b.WriteString(w)
	}
	return b.String(), nil
}

func (f *scriptTok) EOSID() int { return 9 }

func newScriptTok() *scriptTok {
	return &scriptTok{words: map[int]string{
		1: "a", 2: "b", 3: "c",
		5: "foo", 6: "bar", 7: "seven",
	}}
}

// scriptModel forces a fixed token sequence under greedy sampling: the
// n-th forward call puts all probability mass on script[n].
type scriptModel struct {
	vocab  int
	script []int
	calls  int
}

func (m *scriptModel) Forward(tokens []int, cache *decode.Cache) ([]float32, error) {
	lg := make([]float32, m.vocab)
	next := m.script[len(m.script)-1]
	if m.calls < len(m.script) {
		next = m.script[m.calls]
	}
	m.calls++
	lg[next] = 10
	return lg, nil
}

func newTestEngine(script []int) (*EngineImpl, *scriptTok) {
	tok := newScriptTok()
	model := &scriptModel{vocab: 16, script: script}
	builder := NewPromptBuilder(tplparser.FamilyChatML, tok, "", "", false)
	return NewEngine(model, tok, builder, nil, nil), tok
}

func greedyRequest(maxTokens int) *Request {
	return &Request{
		Messages:   []tokenizer.Message{{Role: "user", Content: "hi"}},
		MaxTokens:  maxTokens,
		NoTemplate: true,
	}
}

func TestImmediateEOS(t *testing.T) {
	eng, _ := newTestEngine([]int{9})

	res, err := eng.Generate(context.Background(), greedyRequest(5), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.StopReason != StopReasonEOS {
		t.Fatalf("stop reason = %q, want eos", res.StopReason)
	}
	if res.Stats.TokensGenerated != 1 {
		t.Fatalf("tokens generated = %d, want 1", res.Stats.TokensGenerated)
	}
	if res.Text != "" {
		t.Fatalf("text = %q, want empty", res.Text)
	}
	if !reflect.DeepEqual(res.Tokens, []int{9}) {
		t.Fatalf("tokens = %v, want [9]", res.Tokens)
	}
}

func TestEOSAfterText(t *testing.T) {
	eng, _ := newTestEngine([]int{7, 9})

	var streamed []string
	res, err := eng.Generate(context.Background(), greedyRequest(5), func(s string) {
		streamed = append(streamed, s)
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "seven" {
		t.Fatalf("text = %q, want %q", res.Text, "seven")
	}
	if !reflect.DeepEqual(res.Tokens, []int{7, 9}) {
		t.Fatalf("tokens = %v", res.Tokens)
	}
	if res.StopReason != StopReasonEOS {
		t.Fatalf("stop reason = %q", res.StopReason)
	}
	if got := strings.Join(streamed, ""); got != "seven" {
		t.Fatalf("streamed = %q", got)
	}
}

func TestEOSBeatsMaxTokens(t *testing.T) {
	// The budget allows exactly one token and that token is EOS; the
	// higher-priority reason wins.
	eng, _ := newTestEngine([]int{9})

	res, err := eng.Generate(context.Background(), greedyRequest(1), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.StopReason != StopReasonEOS {
		t.Fatalf("stop reason = %q, want eos", res.StopReason)
	}
}

func TestMaxTokens(t *testing.T) {
	eng, _ := newTestEngine([]int{5, 6, 5, 6, 5, 6})

	res, err := eng.Generate(context.Background(), greedyRequest(3), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.StopReason != StopReasonMaxTokens {
		t.Fatalf("stop reason = %q, want max_tokens", res.StopReason)
	}
	if res.Stats.TokensGenerated != 3 {
		t.Fatalf("tokens generated = %d, want 3", res.Stats.TokensGenerated)
	}
	if res.Text != "foobarfoo" {
		t.Fatalf("text = %q", res.Text)
	}
}

func TestStopString(t *testing.T) {
	eng, _ := newTestEngine([]int{5, 6, 5, 5})

	req := greedyRequest(10)
	req.StopStrings = []string{"bar"}
	res, err := eng.Generate(context.Background(), req, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.StopReason != StopReasonStopString {
		t.Fatalf("stop reason = %q, want stop_string", res.StopReason)
	}
	if res.Text != "foobar" {
		t.Fatalf("text = %q, want %q", res.Text, "foobar")
	}
	if res.Stats.TokensGenerated != 2 {
		t.Fatalf("tokens generated = %d, want 2", res.Stats.TokensGenerated)
	}
}

func TestCancellation(t *testing.T) {
	eng, _ := newTestEngine([]int{5, 6, 5, 6})

	sess, err := eng.NewSession(greedyRequest(100))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	frag, done, err := sess.Next(ctx)
	if err != nil || done {
		t.Fatalf("first Next: frag=%q done=%v err=%v", frag, done, err)
	}
	if frag != "foo" {
		t.Fatalf("first fragment = %q", frag)
	}

	cancel()
	_, done, err = sess.Next(ctx)
	if err != nil {
		t.Fatalf("cancelled Next returned error: %v", err)
	}
	if !done {
		t.Fatal("cancelled Next not done")
	}

	res := sess.Result()
	if res == nil {
		t.Fatal("no result after cancellation")
	}
	if res.StopReason != StopReasonCancelled {
		t.Fatalf("stop reason = %q, want cancelled", res.StopReason)
	}
	if res.Stats.TokensGenerated != 1 {
		t.Fatalf("tokens generated = %d, want 1", res.Stats.TokensGenerated)
	}
	if res.Text != "foo" {
		t.Fatalf("text = %q", res.Text)
	}

	// A finished session refuses further use.
	if _, _, err := sess.Next(context.Background()); !errors.Is(err, ErrSessionFinished) {
		t.Fatalf("reuse error = %v, want ErrSessionFinished", err)
	}
}

func TestEchoPrompt(t *testing.T) {
	eng, _ := newTestEngine([]int{7, 9})

	req := greedyRequest(5)
	req.EchoPrompt = true
	var streamed []string
	res, err := eng.Generate(context.Background(), req, func(s string) {
		streamed = append(streamed, s)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(streamed) == 0 || streamed[0] != "hi" {
		t.Fatalf("streamed = %q, want prompt first", streamed)
	}
	if res.Text != "seven" {
		t.Fatalf("text = %q", res.Text)
	}
}

func TestRequestValidation(t *testing.T) {
	eng, _ := newTestEngine([]int{9})

	tests := []struct {
		name  string
		req   *Request
		field string
	}{
		{
			name:  "empty conversation",
			req:   &Request{},
			field: "messages",
		},
		{
			name: "negative temperature",
			req: &Request{
				Messages:    []tokenizer.Message{{Role: "user", Content: "hi"}},
				Temperature: -1,
			},
			field: "temperature",
		},
		{
			name: "top_p out of range",
			req: &Request{
				Messages: []tokenizer.Message{{Role: "user", Content: "hi"}},
				TopP:     1.5,
			},
			field: "top_p",
		},
		{
			name: "penalty below one",
			req: &Request{
				Messages:          []tokenizer.Message{{Role: "user", Content: "hi"}},
				RepetitionPenalty: 0.5,
			},
			field: "repetition_penalty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.Generate(context.Background(), tt.req, nil)
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("error = %v, want *ConfigError", err)
			}
			if ce.Field != tt.field {
				t.Fatalf("field = %q, want %q", ce.Field, tt.field)
			}
		})
	}
}

func TestModelFailureWrapped(t *testing.T) {
	tok := newScriptTok()
	builder := NewPromptBuilder(tplparser.FamilyChatML, tok, "", "", false)
	eng := NewEngine(&failModel{}, tok, builder, nil, nil)

	_, err := eng.Generate(context.Background(), greedyRequest(5), nil)
	var se *SessionError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *SessionError", err)
	}
	if se.Stage != StagePrefill {
		t.Fatalf("stage = %q, want prefill", se.Stage)
	}
	var me *decode.ModelError
	if !errors.As(err, &me) {
		t.Fatalf("error chain %v does not contain *decode.ModelError", err)
	}
}

type failModel struct{}

func (failModel) Forward([]int, *decode.Cache) ([]float32, error) {
	return nil, errors.New("weights corrupt")
}
