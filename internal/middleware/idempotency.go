package middleware

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/microcourses/lms-api/internal/service"
	appErrors "github.com/microcourses/lms-api/pkg/errors"
	"github.com/microcourses/lms-api/pkg/response"
)

// IdempotencyKeyHeader is the client-supplied retry token.
const IdempotencyKeyHeader = "Idempotency-Key"

// Idempotency makes POST mutations safe under client retries. Requests
// without a key are rejected before any business logic runs; a repeated
// key within the retention window short-circuits with the first recorded
// response, status and body verbatim. Non-POST requests pass through.
//
// The contract does not diff payloads: reusing a key with a different
// body replays the original response regardless.
func Idempotency(store *service.IdempotencyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			response.Error(c, appErrors.WithField(appErrors.Clone(appErrors.ErrMissingIdempotencyKey, ""), IdempotencyKeyHeader))
			c.Abort()
			return
		}

		if record := store.Check(c.Request.Context(), key); record != nil {
			c.Data(record.Status, "application/json; charset=utf-8", record.Body)
			c.Abort()
			return
		}

		writer := &bodyCaptureWriter{ResponseWriter: c.Writer}
		c.Writer = writer

		c.Next()

		store.Record(c.Request.Context(), key, writer.Status(), writer.body.Bytes())
	}
}

// bodyCaptureWriter tees the response body so it can be recorded for
// replay after the handler chain finishes.
type bodyCaptureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
