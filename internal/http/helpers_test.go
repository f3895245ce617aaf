package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/guttosm/campus-access/internal/domain/dto"
	"github.com/guttosm/campus-access/internal/middleware"
	"github.com/guttosm/campus-access/internal/rbac"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// envelope decodes both success and error bodies.
type envelope struct {
	Status    string            `json:"status"`
	Data      json.RawMessage   `json:"data"`
	Message   string            `json:"message"`
	Error     string            `json:"error"`
	Details   map[string]string `json:"details"`
	RequestID string            `json:"request_id"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &out))
	return out
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	if s, ok := v.(string); ok {
		return bytes.NewReader([]byte(s))
	}
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func perform(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func newJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, jsonBody(t, body))
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func testClaims(role rbac.Role) *dto.Claims {
	return &dto.Claims{
		UserID:  primitive.NewObjectID(),
		Email:   "ada@campus.test",
		Name:    "Ada",
		Role:    role,
		TokenID: "token-id",
	}
}

// authenticated stands in for JWTAuth and ResolveRole.
func authenticated(claims *dto.Claims) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(string(middleware.ClaimsKey), claims)
		c.Set(string(middleware.RoleKey), claims.Role)
		c.Next()
	}
}

// testRouter builds an engine with the request id middleware and, when claims is set,
// an authenticated caller.
func testRouter(claims *dto.Claims) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID())
	if claims != nil {
		router.Use(authenticated(claims))
	}
	return router
}
