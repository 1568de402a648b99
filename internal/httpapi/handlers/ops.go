package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Ping(c *gin.Context) {
	OK(c, gin.H{"pong": true})
}

func (h *Handler) Healthz(c *gin.Context) {
	if h.Health != nil {
		if err := h.Health(c.Request.Context()); err != nil {
			h.log.Warnw("health check failed", "err", err)
			Fail(c, http.StatusServiceUnavailable, 50301, "storage unavailable")
			return
		}
	}
	OK(c, gin.H{"status": "up"})
}

// GetHistory dumps the stored conversation. A history that could not be read
// is reported as an error rather than an empty list.
func (h *Handler) GetHistory(c *gin.Context) {
	chatID, err := strconv.ParseInt(c.Param("chat_id"), 10, 64)
	if err != nil {
		Fail(c, http.StatusBadRequest, 10002, "invalid chat_id")
		return
	}

	res := h.Store.Get(c.Request.Context(), chatID)
	if res.Err != nil {
		Fail(c, http.StatusInternalServerError, 50001, "history unavailable")
		return
	}

	OK(c, gin.H{
		"chat_id":  chatID,
		"count":    len(res.Messages),
		"messages": res.Messages,
	})
}
