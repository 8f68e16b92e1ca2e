package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newLoggedRouter(logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), ZapLogger(logger))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/notifications/:id/read", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/notifications/stream", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRequestIDAssignedAndEchoed(t *testing.T) {
	r := newLoggedRouter(zap.NewNop())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Len(t, rec.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestZapLoggerLevelsAndRouteTemplate(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := newLoggedRouter(zap.New(core))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/notifications/n-42/read", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/notifications/stream", nil))

	entries := logs.All()
	require.Len(t, entries, 3)

	require.Equal(t, zapcore.DebugLevel, entries[0].Level)

	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	require.Equal(t, "/notifications/:id/read", entries[1].ContextMap()["route"])

	require.Equal(t, zapcore.InfoLevel, entries[2].Level)
	require.Equal(t, "stream closed", entries[2].Message)
}
