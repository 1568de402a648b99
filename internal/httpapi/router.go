package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/suPer8Hu/tg-gpt-bridge/internal/history"
	"github.com/suPer8Hu/tg-gpt-bridge/internal/httpapi/handlers"
	"github.com/suPer8Hu/tg-gpt-bridge/internal/httpapi/middleware"
)

// NewRouter builds the read-only ops API. health may be nil when the history
// backend has nothing to ping.
func NewRouter(store history.Store, health handlers.HealthCheck, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.Recovery(log))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(log))

	h := handlers.NewHandler(store, health, log)

	r.GET("/ping", h.Ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/chats/:chat_id/history", h.GetHistory)
	return r
}
