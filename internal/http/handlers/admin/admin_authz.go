package admin

import (
	"errors"
	"net/url"
	"strings"

	"github.com/courier-next/internal/authz"
	"github.com/courier-next/internal/http/response"
	"github.com/courier-next/internal/models"
	"github.com/courier-next/internal/service"

	"github.com/gin-gonic/gin"
)

type authzRolePayload struct {
	Role string `json:"role" binding:"required"`
}

type authzPolicyPayload struct {
	Role   string `json:"role" binding:"required"`
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

// ListAuthzRoles 获取角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, roles)
}

// CreateAuthzRole 创建角色
func (h *Handler) CreateAuthzRole(c *gin.Context) {
	caller, ok := getCaller(c)
	if !ok {
		return
	}
	var req authzRolePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	role, err := h.AuthzService.EnsureRole(req.Role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.policy_invalid", err)
		return
	}

	h.recordAuthzAudit(c, service.AuthzAuditRecordInput{
		Operator:  caller,
		Action:    "role_create",
		Role:      role,
		RequestID: currentRequestID(c),
		Detail:    models.JSON{"role": role},
	})
	requestLog(c).Infow("admin_authz_role_created",
		"operator_id", caller.ID,
		"role", role,
	)

	response.Success(c, gin.H{"role": role})
}

// GetAuthzRolePolicies 获取角色策略
func (h *Handler) GetAuthzRolePolicies(c *gin.Context) {
	role := decodeRoleParam(c.Param("role"))
	if role == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	policies, err := h.AuthzService.GetRolePolicies(role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.policy_invalid", err)
		return
	}
	response.Success(c, policies)
}

// GrantAuthzPolicy 授予角色策略
func (h *Handler) GrantAuthzPolicy(c *gin.Context) {
	h.changeAuthzPolicy(c, "policy_grant", h.AuthzService.GrantRolePolicy)
}

// RevokeAuthzPolicy 撤销角色策略
func (h *Handler) RevokeAuthzPolicy(c *gin.Context) {
	h.changeAuthzPolicy(c, "policy_revoke", h.AuthzService.RevokeRolePolicy)
}

func (h *Handler) changeAuthzPolicy(c *gin.Context, action string, apply func(role, object, action string) error) {
	caller, ok := getCaller(c)
	if !ok {
		return
	}
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := apply(req.Role, req.Object, req.Action); err != nil {
		if errors.Is(err, authz.ErrBuiltinPolicy) {
			respondError(c, response.CodeConflict, "error.policy_builtin", err)
			return
		}
		respondError(c, response.CodeBadRequest, "error.policy_invalid", err)
		return
	}

	role, _ := authz.NormalizeRole(req.Role)
	object := authz.NormalizeObject(req.Object)
	method := authz.NormalizeAction(req.Action)
	h.recordAuthzAudit(c, service.AuthzAuditRecordInput{
		Operator:  caller,
		Action:    action,
		Role:      role,
		Object:    object,
		Method:    method,
		RequestID: currentRequestID(c),
		Detail: models.JSON{
			"role":   role,
			"object": object,
			"method": method,
		},
	})
	requestLog(c).Infow("admin_authz_policy_changed",
		"operator_id", caller.ID,
		"action", action,
		"role", role,
		"object", object,
		"method", method,
	)

	response.Success(c, nil)
}

func (h *Handler) recordAuthzAudit(c *gin.Context, input service.AuthzAuditRecordInput) {
	if h == nil || h.AuthzAuditService == nil {
		return
	}
	if err := h.AuthzAuditService.Record(input); err != nil {
		requestLog(c).Warnw("admin_authz_audit_record_failed",
			"error", err,
			"action", input.Action,
			"operator_id", input.Operator.ID,
		)
	}
}

func decodeRoleParam(value string) string {
	decoded, err := url.QueryUnescape(value)
	if err != nil {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(decoded)
}
