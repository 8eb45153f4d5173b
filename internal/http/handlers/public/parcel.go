package public

import (
	"strings"

	handlershared "github.com/courier-next/internal/http/handlers/shared"
	"github.com/courier-next/internal/http/response"
	"github.com/courier-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ListMyParcels 当前用户作为寄件人或收件人的包裹
func (h *Handler) ListMyParcels(c *gin.Context) {
	caller, ok := getCaller(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.PaginationFromQuery(c)
	createdFrom, ok := handlershared.ParseTimeQuery(c, "created_from")
	if !ok {
		return
	}
	createdTo, ok := handlershared.ParseTimeQuery(c, "created_to")
	if !ok {
		return
	}

	items, total, err := h.ParcelService.Search(c.Request.Context(), caller, service.ParcelSearchInput{
		Page:           page,
		PageSize:       pageSize,
		Status:         strings.TrimSpace(c.Query("status")),
		TrackingNumber: strings.TrimSpace(c.Query("tracking_number")),
		Keyword:        strings.TrimSpace(c.Query("keyword")),
		CreatedFrom:    createdFrom,
		CreatedTo:      createdTo,
	})
	if err != nil {
		respondParcelError(c, err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// GetMyParcel 包裹详情
func (h *Handler) GetMyParcel(c *gin.Context) {
	caller, ok := getCaller(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	parcel, err := h.ParcelService.Get(c.Request.Context(), caller, id)
	if err != nil {
		respondParcelError(c, err)
		return
	}
	response.Success(c, parcel)
}

// GetParcelHistory 包裹状态流转记录
func (h *Handler) GetParcelHistory(c *gin.Context) {
	caller, ok := getCaller(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	items, err := h.ParcelService.History(c.Request.Context(), caller, id)
	if err != nil {
		respondParcelError(c, err)
		return
	}
	response.Success(c, items)
}

// GetParcelRoute 路线估算，无法计算时 route 为 null
func (h *Handler) GetParcelRoute(c *gin.Context) {
	caller, ok := getCaller(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	route, err := h.ParcelService.EstimateRoute(c.Request.Context(), caller, id)
	if err != nil {
		respondParcelError(c, err)
		return
	}
	response.Success(c, gin.H{"route": route})
}

// ReceiveParcel 收件人确认签收
func (h *Handler) ReceiveParcel(c *gin.Context) {
	caller, ok := getCaller(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	parcel, err := h.ParcelService.MarkReceived(c.Request.Context(), caller, id)
	if err != nil {
		respondParcelError(c, err)
		return
	}
	response.Success(c, parcel)
}
