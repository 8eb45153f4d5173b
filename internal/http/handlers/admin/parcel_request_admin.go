package admin

import (
	"strings"

	handlershared "github.com/courier-next/internal/http/handlers/shared"
	"github.com/courier-next/internal/http/response"
	"github.com/courier-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ListParcelRequests 全部寄件申请
func (h *Handler) ListParcelRequests(c *gin.Context) {
	caller, ok := getCaller(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.PaginationFromQuery(c)
	senderID, ok := handlershared.ParseUintQuery(c, "sender_id")
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

	items, total, err := h.ParcelRequestService.List(c.Request.Context(), caller, service.RequestListInput{
		Page:        page,
		PageSize:    pageSize,
		Status:      strings.TrimSpace(c.Query("status")),
		SenderID:    senderID,
		Keyword:     strings.TrimSpace(c.Query("keyword")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondParcelRequestError(c, err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// GetParcelRequest 寄件申请详情
func (h *Handler) GetParcelRequest(c *gin.Context) {
	caller, ok := getCaller(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	item, err := h.ParcelRequestService.Get(c.Request.Context(), caller, id)
	if err != nil {
		respondParcelRequestError(c, err)
		return
	}
	response.Success(c, item)
}

// SetParcelRequestStatus 审批寄件申请，通过时同步生成包裹
func (h *Handler) SetParcelRequestStatus(c *gin.Context) {
	caller, ok := getCaller(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req service.SetRequestStatusInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	decision, err := h.ParcelRequestService.SetStatus(c.Request.Context(), caller, id, req)
	if err != nil {
		respondParcelRequestError(c, err)
		return
	}
	requestLog(c).Infow("admin_parcel_request_status_set",
		"operator_id", caller.ID,
		"request_id", id,
		"status", req.Status,
		"parcel_created", decision.ParcelCreated,
	)
	response.Success(c, decision)
}

// ConvertParcelRequest 已通过的申请转为包裹，重复调用返回同一包裹
func (h *Handler) ConvertParcelRequest(c *gin.Context) {
	caller, ok := getCaller(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	parcel, created, err := h.ConversionService.Convert(c.Request.Context(), caller, id)
	if err != nil {
		respondParcelRequestError(c, err)
		return
	}
	response.Success(c, gin.H{
		"parcel":  parcel,
		"created": created,
	})
}

// DeleteParcelRequest 删除寄件申请
func (h *Handler) DeleteParcelRequest(c *gin.Context) {
	caller, ok := getCaller(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.ParcelRequestService.Delete(c.Request.Context(), caller, id); err != nil {
		respondParcelRequestError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
