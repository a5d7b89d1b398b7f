// README: Notification listing handler.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/modules/notify"
	"carpool/internal/types"
)

type NotifyHandler struct {
	notify *notify.Service
}

func NewNotifyHandler(svc *notify.Service) *NotifyHandler {
	return &NotifyHandler{notify: svc}
}

func (h *NotifyHandler) List(c *gin.Context) {
	ns, err := h.notify.List(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"notifications": ns})
}
