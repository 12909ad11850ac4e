package admin

import (
	"github.com/setwear/internal/http/response"
	"github.com/setwear/internal/service"

	"github.com/gin-gonic/gin"
)

// CategoryRequest 创建/更新分类请求
type CategoryRequest struct {
	Name      string `json:"name" binding:"required"`
	Slug      string `json:"slug"`
	Image     string `json:"image"`
	SortOrder int    `json:"sort_order"`
}

func (r CategoryRequest) toInput() service.CategoryInput {
	return service.CategoryInput{
		Name:      r.Name,
		Slug:      r.Slug,
		Image:     r.Image,
		SortOrder: r.SortOrder,
	}
}

// GetCategories 分类列表
func (h *Handler) GetCategories(c *gin.Context) {
	categories, err := h.CategoryService.List()
	if err != nil {
		respondError(c, response.CodeInternal, "error.category_fetch_failed", err)
		return
	}
	response.Success(c, categories)
}

// CreateCategory 创建分类
func (h *Handler) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	category, err := h.CategoryService.Create(req.toInput())
	if err != nil {
		respondWithMappedError(c, err, categoryErrorRules, response.CodeInternal, "error.category_save_failed")
		return
	}
	response.Success(c, category)
}

// UpdateCategory 更新分类
func (h *Handler) UpdateCategory(c *gin.Context) {
	categoryID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	category, err := h.CategoryService.Update(categoryID, req.toInput())
	if err != nil {
		respondWithMappedError(c, err, categoryErrorRules, response.CodeInternal, "error.category_save_failed")
		return
	}
	response.Success(c, category)
}

// DeleteCategory 删除分类，仍有商品时返回冲突
func (h *Handler) DeleteCategory(c *gin.Context) {
	categoryID, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.CategoryService.Delete(categoryID); err != nil {
		respondWithMappedError(c, err, categoryErrorRules, response.CodeInternal, "error.category_save_failed")
		return
	}
	staffID, _ := c.Get("staff_id")
	requestLog(c).Infow("admin_category_deleted", "staff_id", staffID, "category_id", categoryID)
	response.Success(c, gin.H{"deleted": true})
}
