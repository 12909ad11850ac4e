package admin

import (
	"github.com/setwear/internal/authz"
	"github.com/setwear/internal/http/response"

	"github.com/gin-gonic/gin"
)

// RoleView 角色及其策略
type RoleView struct {
	Role     string         `json:"role"`
	Policies []authz.Policy `json:"policies"`
}

// GetAuthzRoles 角色列表与当前员工的角色
func (h *Handler) GetAuthzRoles(c *gin.Context) {
	staffID, ok := getStaffID(c)
	if !ok {
		return
	}
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	views := make([]RoleView, 0, len(roles))
	for _, role := range roles {
		policies, err := h.AuthzService.GetRolePolicies(role)
		if err != nil {
			respondError(c, response.CodeInternal, "error.internal", err)
			return
		}
		views = append(views, RoleView{Role: role, Policies: policies})
	}
	mine, err := h.AuthzService.GetStaffRoles(staffID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, gin.H{
		"roles":    views,
		"my_roles": mine,
	})
}
