package admin

import (
	"strings"

	handlershared "github.com/courier-next/internal/http/handlers/shared"
	"github.com/courier-next/internal/http/response"
	"github.com/courier-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ListParcels 包裹检索
func (h *Handler) ListParcels(c *gin.Context) {
	caller, ok := getCaller(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.PaginationFromQuery(c)
	senderID, ok := handlershared.ParseUintQuery(c, "sender_id")
	if !ok {
		return
	}
	receiverID, ok := handlershared.ParseUintQuery(c, "receiver_id")
	if !ok {
		return
	}
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
		SenderID:       senderID,
		ReceiverID:     receiverID,
		CreatedFrom:    createdFrom,
		CreatedTo:      createdTo,
	})
	if err != nil {
		respondParcelError(c, err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// GetParcel 包裹详情
func (h *Handler) GetParcel(c *gin.Context) {
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

// CreateParcel 管理员直接建单
func (h *Handler) CreateParcel(c *gin.Context) {
	caller, ok := getCaller(c)
	if !ok {
		return
	}
	var req service.CreateParcelInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	parcel, err := h.ParcelService.Create(c.Request.Context(), caller, req)
	if err != nil {
		respondParcelError(c, err)
		return
	}
	requestLog(c).Infow("admin_parcel_created",
		"operator_id", caller.ID,
		"parcel_id", parcel.ID,
		"tracking_number", parcel.TrackingNumber,
	)
	response.Success(c, parcel)
}

// UpdateParcelStatus 更新单个包裹状态
func (h *Handler) UpdateParcelStatus(c *gin.Context) {
	caller, ok := getCaller(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req service.UpdateParcelStatusInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	parcel, err := h.ParcelService.UpdateStatus(c.Request.Context(), caller, id, req)
	if err != nil {
		respondParcelError(c, err)
		return
	}
	response.Success(c, parcel)
}

// BulkUpdateParcelStatus 批量更新包裹状态，全部成功或全部回滚
func (h *Handler) BulkUpdateParcelStatus(c *gin.Context) {
	caller, ok := getCaller(c)
	if !ok {
		return
	}
	var req service.BulkUpdateParcelStatusInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	affected, err := h.ParcelService.BulkUpdateStatus(c.Request.Context(), caller, req)
	if err != nil {
		respondParcelError(c, err)
		return
	}
	requestLog(c).Infow("admin_parcel_bulk_status_updated",
		"operator_id", caller.ID,
		"status", req.Status,
		"affected", affected,
	)
	response.Success(c, gin.H{"affected": affected})
}

// DeleteParcel 软删除包裹
func (h *Handler) DeleteParcel(c *gin.Context) {
	caller, ok := getCaller(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.ParcelService.Delete(c.Request.Context(), caller, id); err != nil {
		respondParcelError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
