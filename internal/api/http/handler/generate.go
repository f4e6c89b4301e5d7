package handler

import (
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/pixelforge/pixelforge/internal/generation"
	"github.com/pixelforge/pixelforge/internal/observability/logging"
	"github.com/pixelforge/pixelforge/pkg/errors"
	"github.com/pixelforge/pixelforge/pkg/types"
)

// GenerateHandler serves code generation requests
type GenerateHandler struct {
	service *generation.Service
	logger  logging.Logger
}

// NewGenerateHandler creates the generation handler
func NewGenerateHandler(service *generation.Service, logger logging.Logger) *GenerateHandler {
	return &GenerateHandler{service: service, logger: logger}
}

// Generate handles POST /api/v1/generate
func (h *GenerateHandler) Generate(c *gin.Context) {
	req, err := h.bindRequest(c)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		if result != nil {
			// Backend failures still carry a result describing the attempt
			c.JSON(errStatus(err), result)
			return
		}
		respondError(c, err)
		return
	}

	respondOK(c, result)
}

// GenerateStream handles POST /api/v1/generate/stream as server-sent events
func (h *GenerateHandler) GenerateStream(c *gin.Context) {
	req, err := h.bindRequest(c)
	if err != nil {
		respondError(c, err)
		return
	}

	chunks, err := h.service.GenerateStream(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		chunk, ok := <-chunks
		if !ok {
			return false
		}

		payload := gin.H{"type": chunk.Type, "content": chunk.Content}
		if chunk.Err != nil {
			payload["error"] = chunk.Err.Error()
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return false
		}

		c.SSEvent(string(chunk.Type), string(raw))
		return chunk.Type == types.ChunkTypeContent
	})
}

// bindRequest decodes and stamps the inbound generation request
func (h *GenerateHandler) bindRequest(c *gin.Context) (*types.GenerationRequest, error) {
	var req types.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, errors.New(errors.CodeRequestInvalid, errors.ErrorTypeValidation,
			"malformed request body", 400).WithCause(err)
	}

	if req.UserID == "" {
		req.UserID = c.GetHeader("X-User-ID")
	}
	if req.UserID != "" {
		ctx := types.WithUserID(c.Request.Context(), req.UserID)
		c.Request = c.Request.WithContext(ctx)
	}
	return &req, nil
}

func errStatus(err error) int {
	if appErr, ok := err.(*errors.AppError); ok {
		return appErr.HTTPStatus
	}
	return 500
}
