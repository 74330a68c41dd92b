// Package idempotency guards mutating billing endpoints against
// duplicate execution on client retry.
package idempotency

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nexuscore/nexuscore/internal/idempotency/domain"
)

// HeaderKey is the request header carrying the client-chosen key.
const HeaderKey = "Idempotency-Key"

type bufferedWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// GinMiddleware replays the stored response when a key has already
// completed with the same payload. Requests without the header pass
// through untouched; a failed handler releases the key so the client
// can retry.
func GinMiddleware(svc domain.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderKey))
		if key == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "bad_request",
				"message": err.Error(),
			})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		// The concrete path, not the route template: the same key against
		// a different resource is a reuse, not a retry.
		replay, err := svc.Begin(c.Request.Context(), key, c.Request.Method, c.Request.URL.Path, body)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		if replay != nil {
			c.Data(replay.StatusCode, "application/json; charset=utf-8", replay.Body)
			c.Abort()
			return
		}

		writer := &bufferedWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()
		c.Writer = writer.ResponseWriter

		if len(c.Errors) > 0 {
			_ = svc.Fail(c.Request.Context(), key)
			return
		}
		_ = svc.Complete(c.Request.Context(), key, writer.Status(), writer.buf.Bytes())
	}
}
