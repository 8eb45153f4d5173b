package authz

import (
	"fmt"

	"github.com/courier-next/internal/constants"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵；ADMIN 继承 USER 的全部接口
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: constants.RoleUser,
			Policies: []Policy{
				{Object: "/auth/me", Action: "GET"},
				{Object: "/auth/password", Action: "PUT"},
				{Object: "/parcel-requests", Action: "*"},
				{Object: "/parcel-requests/:id", Action: "*"},
				{Object: "/parcels", Action: "GET"},
				{Object: "/parcels/:id", Action: "GET"},
				{Object: "/parcels/:id/history", Action: "GET"},
				{Object: "/parcels/:id/route", Action: "GET"},
				{Object: "/parcels/:id/receive", Action: "POST"},
			},
		},
		{
			Role:     constants.RoleAdmin,
			Inherits: []string{constants.RoleUser},
			Policies: []Policy{
				{Object: "/admin/*", Action: "*"},
			},
		},
	}
}

// BootstrapBuiltinRoles 写入预置角色、继承关系与默认策略；已存在的规则跳过
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return fmt.Errorf("create builtin role failed: %w", err)
		}
		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}
		for _, policy := range seed.Policies {
			action, err := validAction(policy.Action)
			if err != nil {
				return fmt.Errorf("builtin policy %s: %w", policy.Object, err)
			}
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}

func builtinPolicySet() map[Policy]struct{} {
	set := make(map[Policy]struct{})
	for _, seed := range BuiltinRoleSeeds() {
		role, err := NormalizeRole(seed.Role)
		if err != nil {
			continue
		}
		for _, policy := range seed.Policies {
			set[Policy{Subject: role, Object: NormalizeObject(policy.Object), Action: NormalizeAction(policy.Action)}] = struct{}{}
		}
	}
	return set
}
