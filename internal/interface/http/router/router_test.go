package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xiebiao/bookshelf/internal/application/userbook"
	"github.com/xiebiao/bookshelf/internal/domain/book"
	"github.com/xiebiao/bookshelf/internal/domain/user"
	"github.com/xiebiao/bookshelf/internal/infrastructure/config"
	"github.com/xiebiao/bookshelf/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/bookshelf/internal/interface/http/handler"
	"github.com/xiebiao/bookshelf/internal/interface/http/router"
)

func newRouter(t *testing.T, mutate func(cfg *config.Config)) *gin.Engine {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.Mode = gin.TestMode
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	if mutate != nil {
		mutate(cfg)
	}

	users := memory.NewUserRepository()
	facade := userbook.NewFacade(
		user.NewService(users),
		book.NewService(memory.NewBookRepository(), book.WithOwnerCheck(users)),
		memory.NewTxManager(),
		userbook.NopPublisher{},
		zap.NewNop(),
		userbook.Options{},
	)
	return router.New(cfg, handler.NewUserBookHandler(facade, zap.NewNop()), zap.NewNop())
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRouter_Ping(t *testing.T) {
	r := newRouter(t, nil)

	w := get(r, "/ping")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pong"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_Metrics(t *testing.T) {
	r := newRouter(t, nil)

	_ = get(r, "/api/v1/user/get/42")
	w := get(r, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `bookshelf_http_requests_total{method="GET",route="/api/v1/user/get/:userId",status="400"}`)
}

func TestRouter_MetricsDisabled(t *testing.T) {
	r := newRouter(t, func(cfg *config.Config) { cfg.Metrics.Enabled = false })

	assert.Equal(t, http.StatusNotFound, get(r, "/metrics").Code)
}

func TestRouter_RateLimitOnlyOnAPI(t *testing.T) {
	r := newRouter(t, func(cfg *config.Config) {
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.RPS = 0.001
		cfg.RateLimit.Burst = 1
	})

	assert.Equal(t, http.StatusBadRequest, get(r, "/api/v1/user/get/1").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/api/v1/user/get/1").Code)

	// 健康检查不限流
	assert.Equal(t, http.StatusOK, get(r, "/ping").Code)
	assert.Equal(t, http.StatusOK, get(r, "/ping").Code)
}

func TestRouter_TracingEnabled(t *testing.T) {
	r := newRouter(t, func(cfg *config.Config) { cfg.Tracing.Enabled = true })

	assert.Equal(t, http.StatusOK, get(r, "/ping").Code)
}
