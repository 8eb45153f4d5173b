package public

import (
	"github.com/courier-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// TrackParcel 按运单号公开追踪
func (h *Handler) TrackParcel(c *gin.Context) {
	view, err := h.ParcelService.TrackByNumber(c.Request.Context(), c.Param("tracking_number"))
	if err != nil {
		respondParcelError(c, err)
		return
	}
	response.Success(c, view)
}
