// Package middleware provides the HTTP middleware chain: request id
// propagation and structured request logging.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pixelforge/pixelforge/pkg/types"
)

// HeaderRequestID carries the request id between client and server
const HeaderRequestID = "X-Request-ID"

// RequestID assigns each request an id, honoring a client-supplied one,
// and threads it through the request context and response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		ctx := types.WithRequestID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderRequestID, id)

		c.Next()
	}
}
