package admin

import (
	"strings"

	"github.com/courier-next/internal/constants"
	"github.com/courier-next/internal/http/response"
	"github.com/courier-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListNotificationEvents 发件箱事件列表，用于排查投递状态
func (h *Handler) ListNotificationEvents(c *gin.Context) {
	filter := repository.NotificationEventFilter{
		Recipient:      strings.ToLower(strings.TrimSpace(c.Query("recipient"))),
		EventType:      constants.NotificationEventType(strings.TrimSpace(c.Query("event_type"))),
		Status:         strings.ToLower(strings.TrimSpace(c.Query("status"))),
		TrackingNumber: strings.TrimSpace(c.Query("tracking_number")),
	}
	items, err := h.NotificationService.ListEvents(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, items)
}
