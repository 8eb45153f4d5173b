package public

import (
	"strings"

	handlershared "github.com/courier-next/internal/http/handlers/shared"
	"github.com/courier-next/internal/http/response"
	"github.com/courier-next/internal/service"

	"github.com/gin-gonic/gin"
)

// SubmitParcelRequest 提交寄件申请
func (h *Handler) SubmitParcelRequest(c *gin.Context) {
	caller, ok := getCaller(c)
	if !ok {
		return
	}
	var req service.SubmitParcelRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	created, err := h.ParcelRequestService.Submit(c.Request.Context(), caller, req)
	if err != nil {
		respondParcelRequestError(c, err)
		return
	}
	response.Success(c, created)
}

// ListMyParcelRequests 当前用户的寄件申请列表
func (h *Handler) ListMyParcelRequests(c *gin.Context) {
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

	items, total, err := h.ParcelRequestService.List(c.Request.Context(), caller, service.RequestListInput{
		Page:        page,
		PageSize:    pageSize,
		Status:      strings.TrimSpace(c.Query("status")),
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

// GetMyParcelRequest 寄件申请详情
func (h *Handler) GetMyParcelRequest(c *gin.Context) {
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

// DeleteMyParcelRequest 撤回待审批的寄件申请
func (h *Handler) DeleteMyParcelRequest(c *gin.Context) {
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
