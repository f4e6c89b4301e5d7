// Package handler implements the HTTP API handlers for generation and
// model inspection.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pixelforge/pixelforge/pkg/errors"
)

// respondError writes a structured error response. AppErrors keep their
// code and status; anything else becomes an internal error.
func respondError(c *gin.Context, err error) {
	appErr, ok := err.(*errors.AppError)
	if !ok {
		appErr = errors.InternalError("unexpected error").WithCause(err)
	}

	c.Error(err)
	c.JSON(appErr.HTTPStatus, gin.H{"error": appErr})
}

// respondOK writes a success payload
func respondOK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}
