package httpmw

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/northstarhq/northstar/internal/common/logger"
)

// RequestIDHeader is the header carrying the client-supplied request id.
const RequestIDHeader = "X-Request-ID"

// requestIDContextKey is the gin context key mirroring logger.RequestIDKey.
const requestIDContextKey = "request_id"

// RequestID attaches a request id to the request context and response headers.
// A client-supplied id is honored; otherwise a fresh UUID is generated.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, id)
		c.Request = c.Request.WithContext(ctx)
		c.Set(requestIDContextKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
