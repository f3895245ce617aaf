package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/guttosm/campus-access/internal/domain/dto"
	"github.com/guttosm/campus-access/internal/domain/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// recordingLoggingService collects entries written through the LoggingService interface.
type recordingLoggingService struct {
	mu      sync.Mutex
	entries []*model.LogEntry
	err     error
	written chan struct{}
}

func newRecordingLoggingService() *recordingLoggingService {
	return &recordingLoggingService{written: make(chan struct{}, 100)}
}

func (s *recordingLoggingService) CreateLog(_ context.Context, entry *model.LogEntry) error {
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
	s.written <- struct{}{}
	return s.err
}

func (s *recordingLoggingService) CreateLogs(_ context.Context, entries []*model.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	return s.err
}

func (s *recordingLoggingService) QueryLogs(context.Context, model.LogQueryOptions) ([]*model.LogEntry, error) {
	return nil, nil
}

func (s *recordingLoggingService) CountLogs(context.Context, model.LogQueryOptions) (int64, error) {
	return 0, nil
}

func (s *recordingLoggingService) Entries() []*model.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.LogEntry(nil), s.entries...)
}

// waitWrites blocks until n entries were written or the test times out.
func (s *recordingLoggingService) waitWrites(t *testing.T, n int) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for range n {
		select {
		case <-s.written:
		case <-timeout:
			t.Fatal("timed out waiting for log writes")
		}
	}
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router *gin.Engine, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	return serve(router, req)
}

func decodeError(t *testing.T, body io.Reader) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp
}

func newPost(path string) *http.Request {
	return httptest.NewRequest(http.MethodPost, path, nil)
}
