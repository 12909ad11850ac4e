package authz

import "fmt"

// 预置角色
const (
	RoleViewer           = "viewer"
	RoleShippingOperator = "shipping_operator"
	RoleCatalogManager   = "catalog_manager"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: RoleViewer,
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
			},
		},
		{
			Role:     RoleShippingOperator,
			Inherits: []string{RoleViewer},
			Policies: []Policy{
				{Object: "/admin/orders/:id/dispatch", Action: "POST"},
				{Object: "/admin/orders/:id/dispatch/async", Action: "POST"},
				{Object: "/admin/orders/:id/retry", Action: "POST"},
				{Object: "/admin/orders/:id/deliver", Action: "POST"},
				{Object: "/admin/orders/:id/tracking", Action: "GET"},
				{Object: "/admin/orders/:id/label", Action: "GET"},
			},
		},
		{
			Role:     RoleCatalogManager,
			Inherits: []string{RoleViewer},
			Policies: []Policy{
				{Object: "/admin/products", Action: "*"},
				{Object: "/admin/products/:id", Action: "*"},
				{Object: "/admin/products/:id/colors", Action: "POST"},
				{Object: "/admin/colors/:id/stock", Action: "PUT"},
				{Object: "/admin/categories", Action: "*"},
				{Object: "/admin/categories/:id", Action: "*"},
				{Object: "/admin/coupons", Action: "*"},
				{Object: "/admin/coupons/:id", Action: "*"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, _, err := s.ensureRole(seed.Role)
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
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
