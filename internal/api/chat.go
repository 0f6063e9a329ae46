package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/kigichang/mospeada/internal/inference"
)

func (s *Server) handleChatCompletions(c *echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return writeBadRequest(c, "read body: "+err.Error())
	}
	req, err := decodeJSON[ChatCompletionRequest](body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if len(req.Messages) == 0 {
		return writeBadRequest(c, "messages is required and must not be empty")
	}

	opts, err := toRequestOptions(&req)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	inferReq, err := inference.ResolveRequest(opts, s.genCfg)
	if err != nil {
		var ce *inference.ConfigError
		if errors.As(err, &ce) {
			return writeError(c, http.StatusBadRequest, "invalid_request_error", ce.Reason, ce.Field)
		}
		return writeBadRequest(c, err.Error())
	}

	completionID := "chatcmpl-" + uuid.NewString()
	created := s.clock().Unix()
	model := req.Model
	if model == "" {
		model = s.modelID
	}

	if req.Stream != nil && *req.Stream {
		return s.chatStream(c, inferReq, completionID, created, model)
	}
	return s.chatSync(c, inferReq, completionID, created, model)
}

func (s *Server) chatSync(c *echo.Context, req *inference.Request, completionID string, created int64, model string) error {
	result, err := s.engine.Generate(c.Request().Context(), req, nil)
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "")
	}

	reason := finishReason(result.StopReason)
	return c.JSON(http.StatusOK, ChatCompletionResponse{
		ID:      completionID,
		Object:  "chat.completion",
		Created: created,
		Model:   model,
		Choices: []ChatChoice{{
			Index:        0,
			Message:      &ChatMessage{Role: "assistant", Content: result.Text},
			FinishReason: &reason,
		}},
		Usage: ChatUsage{
			PromptTokens:     result.Stats.PromptTokens,
			CompletionTokens: result.Stats.TokensGenerated,
			TotalTokens:      result.Stats.PromptTokens + result.Stats.TokensGenerated,
		},
	})
}

func (s *Server) chatStream(c *echo.Context, req *inference.Request, completionID string, created int64, model string) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")

	flusher, ok := res.(interface{ Flush() })
	if !ok {
		return writeError(c, http.StatusInternalServerError, "server_error", "streaming unsupported", "")
	}

	chunk := func(choice ChatChoice) ChatCompletionChunk {
		return ChatCompletionChunk{
			ID:      completionID,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   model,
			Choices: []ChatChoice{choice},
		}
	}

	// Opening chunk carries the assistant role.
	if err := sendSSE(res, chunk(ChatChoice{Delta: &ChatMessage{Role: "assistant"}})); err != nil {
		return err
	}
	flusher.Flush()

	result, err := s.engine.Generate(c.Request().Context(), req, func(frag string) {
		_ = sendSSE(res, chunk(ChatChoice{Delta: &ChatMessage{Content: frag}}))
		flusher.Flush()
	})
	if err != nil {
		s.log.Error("generation failed", "error", err)
		_ = sendSSE(res, map[string]any{"error": err.Error()})
		flusher.Flush()
		return nil
	}

	reason := finishReason(result.StopReason)
	_ = sendSSE(res, chunk(ChatChoice{Delta: &ChatMessage{}, FinishReason: &reason}))
	_, _ = fmt.Fprint(res, "data: [DONE]\n\n")
	flusher.Flush()
	return nil
}

func sendSSE(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", b)
	return err
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, "")
}

func writeError(c *echo.Context, status int, errType, msg, param string) error {
	return c.JSON(status, ErrorBody{Error: ErrorDetail{
		Message: msg,
		Type:    errType,
		Param:   param,
	}})
}
