package api

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/kigichang/mospeada/internal/inference"
	"github.com/kigichang/mospeada/internal/tokenizer"
)

// ChatCompletionRequest is the accepted subset of the OpenAI chat
// completions request body.
type ChatCompletionRequest struct {
	Model               string        `json:"model"`
	Messages            []ChatMessage `json:"messages"`
	Temperature         *float64      `json:"temperature,omitempty"`
	TopP                *float64      `json:"top_p,omitempty"`
	TopK                *int          `json:"top_k,omitempty"`
	MaxTokens           *int          `json:"max_tokens,omitempty"`
	MaxCompletionTokens *int          `json:"max_completion_tokens,omitempty"`
	RepetitionPenalty   *float64      `json:"repetition_penalty,omitempty"`
	Seed                *int64        `json:"seed,omitempty"`
	Stop                any           `json:"stop,omitempty"`
	Stream              *bool         `json:"stream,omitempty"`
	User                string        `json:"user,omitempty"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   ChatUsage    `json:"usage"`
}

type ChatChoice struct {
	Index        int          `json:"index"`
	Message      *ChatMessage `json:"message,omitempty"`
	Delta        *ChatMessage `json:"delta,omitempty"`
	FinishReason *string      `json:"finish_reason"`
}

type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionChunk is one SSE event of a streamed completion.
type ChatCompletionChunk struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
}

type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ErrorBody matches the OpenAI error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

// toRequestOptions maps the wire request onto engine request options.
func toRequestOptions(req *ChatCompletionRequest) (*inference.RequestOptions, error) {
	msgs := make([]tokenizer.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, tokenizer.Message{Role: m.Role, Content: m.Content})
	}

	stops, err := parseStop(req.Stop)
	if err != nil {
		return nil, err
	}

	opts := &inference.RequestOptions{
		Messages:          msgs,
		Temperature:       req.Temperature,
		TopP:              req.TopP,
		TopK:              req.TopK,
		RepetitionPenalty: req.RepetitionPenalty,
		Seed:              req.Seed,
		StopStrings:       stops,
	}
	// max_completion_tokens is the newer name and wins over max_tokens.
	if req.MaxCompletionTokens != nil {
		opts.MaxTokens = req.MaxCompletionTokens
	} else if req.MaxTokens != nil {
		opts.MaxTokens = req.MaxTokens
	}
	return opts, nil
}

// parseStop accepts the string-or-array form of the stop field.
func parseStop(v any) ([]string, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{s}, nil
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("stop: expected string elements")
			}
			out = append(out, str)
		}
		return out, nil
	case []string:
		return s, nil
	default:
		return nil, fmt.Errorf("stop: expected string or array of strings")
	}
}

// finishReason maps an engine stop reason onto the wire vocabulary.
func finishReason(r inference.StopReason) string {
	switch r {
	case inference.StopReasonMaxTokens:
		return "length"
	case inference.StopReasonCancelled:
		return "cancelled"
	default:
		return "stop"
	}
}

func decodeJSON[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("invalid JSON body: %w", err)
	}
	return v, nil
}
