package service

import (
	"fmt"
	"strings"

	"github.com/setwear/internal/logger"
	"github.com/setwear/internal/models"
	"github.com/setwear/internal/repository"
)

// CategoryService 分类业务服务
type CategoryService struct {
	repo        repository.CategoryRepository
	productRepo repository.ProductRepository
}

// NewCategoryService 创建分类服务
func NewCategoryService(repo repository.CategoryRepository, productRepo repository.ProductRepository) *CategoryService {
	return &CategoryService{repo: repo, productRepo: productRepo}
}

// CategoryInput 创建/更新分类输入
type CategoryInput struct {
	Name      string
	Slug      string
	Image     string
	SortOrder int
}

// CategoryDetail 分类详情及其上架商品
type CategoryDetail struct {
	Category models.Category
	Products []models.Product
	Total    int64
}

// List 获取分类列表
func (s *CategoryService) List() ([]models.Category, error) {
	return s.repo.List()
}

// Detail 按 slug 获取分类及分页的上架商品
func (s *CategoryService) Detail(slug string, page, pageSize int) (*CategoryDetail, error) {
	category, err := s.repo.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}
	products, total, err := s.productRepo.List(repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		Category:   category.Slug,
		OnlyActive: true,
		WithColors: true,
	})
	if err != nil {
		return nil, err
	}
	return &CategoryDetail{Category: *category, Products: products, Total: total}, nil
}

func (s *CategoryService) normalizeInput(input *CategoryInput, excludeID uint) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return fmt.Errorf("%w: name is required", ErrCategoryInvalid)
	}
	input.Slug = Slugify(input.Slug)
	if input.Slug == "" {
		input.Slug = Slugify(input.Name)
	}
	if input.Slug == "" {
		return fmt.Errorf("%w: name %q has no slug characters", ErrCategoryInvalid, input.Name)
	}
	input.Image = strings.TrimSpace(input.Image)

	count, err := s.repo.CountByName(input.Name, excludeID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrCategoryNameExists
	}
	count, err = s.repo.CountBySlug(input.Slug, excludeID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrCategorySlugExists
	}
	return nil
}

// Create 创建分类，slug 为空时由名称生成
func (s *CategoryService) Create(input CategoryInput) (*models.Category, error) {
	if err := s.normalizeInput(&input, 0); err != nil {
		return nil, err
	}
	category := models.Category{
		Name:      input.Name,
		Slug:      input.Slug,
		Image:     input.Image,
		SortOrder: input.SortOrder,
	}
	if err := s.repo.Create(&category); err != nil {
		return nil, err
	}
	return &category, nil
}

// Update 更新分类
func (s *CategoryService) Update(id uint, input CategoryInput) (*models.Category, error) {
	category, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}
	if err := s.normalizeInput(&input, id); err != nil {
		return nil, err
	}
	category.Name = input.Name
	category.Slug = input.Slug
	category.Image = input.Image
	category.SortOrder = input.SortOrder
	if err := s.repo.Update(category); err != nil {
		return nil, err
	}
	return category, nil
}

// Delete 删除分类，仍有关联商品时拒绝
func (s *CategoryService) Delete(id uint) error {
	category, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if category == nil {
		return ErrCategoryNotFound
	}
	count, err := s.repo.CountProducts(id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %d products still assigned", ErrCategoryInUse, count)
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	logger.SW("category_id", id).Infow("catalog_category_deleted", "slug", category.Slug)
	return nil
}
