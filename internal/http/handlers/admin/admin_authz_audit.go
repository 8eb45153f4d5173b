package admin

import (
	"strings"

	handlershared "github.com/courier-next/internal/http/handlers/shared"
	"github.com/courier-next/internal/http/response"
	"github.com/courier-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListAuthzAuditLogs 获取权限审计日志列表
func (h *Handler) ListAuthzAuditLogs(c *gin.Context) {
	page, pageSize := handlershared.PaginationFromQuery(c)
	operatorID, ok := handlershared.ParseUintQuery(c, "operator_user_id")
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

	items, total, err := h.AuthzAuditService.ListForAdmin(repository.AuthzAuditLogListFilter{
		Page:           page,
		PageSize:       pageSize,
		OperatorUserID: operatorID,
		Action:         strings.TrimSpace(c.Query("action")),
		Role:           strings.TrimSpace(c.Query("role")),
		Object:         strings.TrimSpace(c.Query("object")),
		Method:         strings.ToUpper(strings.TrimSpace(c.Query("method"))),
		Keyword:        strings.TrimSpace(c.Query("keyword")),
		CreatedFrom:    createdFrom,
		CreatedTo:      createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}
