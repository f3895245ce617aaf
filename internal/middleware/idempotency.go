package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// IdempotencyKeyHeader is the HTTP header carrying the client's idempotency key.
	IdempotencyKeyHeader = "Idempotency-Key"

	idempotencyReplayedHeader = "X-Idempotency-Replayed"
)

// Headers never replayed from the cache. Encoding headers are set again by the
// compression middleware on replay.
var skipReplayHeaders = map[string]bool{
	"Set-Cookie":       true,
	"Content-Length":   true,
	"Content-Encoding": true,
	"Vary":             true,
	RequestIDHeader:    true,
}

// Idempotency returns a middleware that replays the stored response when a mutating
// request repeats its Idempotency-Key. The fingerprint covers the key, the method, the
// path, the Authorization header and the body, so the same key sent by another caller
// or with another payload is processed normally. Only 2xx responses are stored.
func Idempotency(cache *IdempotencyCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cache == nil || !isMutating(c.Request.Method) {
			c.Next()
			return
		}
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}

		fingerprint, err := idempotencyFingerprint(key, c.Request)
		if err != nil {
			c.Next()
			return
		}

		if cached, ok := cache.Get(fingerprint); ok {
			for k, values := range cached.Header {
				for _, v := range values {
					c.Writer.Header().Add(k, v)
				}
			}
			c.Header(idempotencyReplayedHeader, "true")
			c.Data(cached.StatusCode, cached.Header.Get("Content-Type"), cached.Body)
			c.Abort()
			return
		}

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder
		c.Next()

		status := recorder.Status()
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			return
		}
		header := http.Header{}
		for k, values := range recorder.Header() {
			if !skipReplayHeaders[k] {
				header[k] = append([]string(nil), values...)
			}
		}
		cache.Set(fingerprint, &cachedResponse{
			StatusCode: status,
			Header:     header,
			Body:       recorder.body.Bytes(),
		})
	}
}

func isMutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

func idempotencyFingerprint(key string, req *http.Request) (string, error) {
	h := sha256.New()
	for _, part := range []string{key, req.Method, req.URL.Path, req.Header.Get("Authorization")} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return "", err
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
		h.Write(body)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// bodyRecorder tees the response body while it is written.
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
