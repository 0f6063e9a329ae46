// Package api exposes a loaded model over an OpenAI-compatible HTTP
// surface: chat completions (with SSE streaming) and model listing.
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/kigichang/mospeada/internal/inference"
	"github.com/kigichang/mospeada/internal/logger"
	"github.com/kigichang/mospeada/internal/version"
)

// Server serves one engine under one model id.
type Server struct {
	engine  inference.Engine
	genCfg  *inference.GenerationConfig
	modelID string
	log     logger.Logger
	clock   func() time.Time
}

func NewServer(engine inference.Engine, genCfg *inference.GenerationConfig, modelID string, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	if modelID == "" {
		modelID = "mospeada"
	}
	return &Server{
		engine:  engine,
		genCfg:  genCfg,
		modelID: modelID,
		log:     log,
		clock:   time.Now,
	}
}

// Register attaches all routes to an echo instance.
func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/chat/completions", s.handleChatCompletions)
	e.GET("/v1/models", s.handleListModels)
	e.GET("/healthz", s.handleHealth)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.String(),
	})
}

func (s *Server) handleListModels(c *echo.Context) error {
	return c.JSON(http.StatusOK, ModelList{
		Object: "list",
		Data: []Model{{
			ID:      s.modelID,
			Object:  "model",
			Created: s.clock().Unix(),
			OwnedBy: "local",
		}},
	})
}
