package repository

import (
	"strings"

	"github.com/courier-next/internal/models"

	"gorm.io/gorm"
)

// AuthzAuditLogRepository 权限变更审计
type AuthzAuditLogRepository interface {
	Create(entry *models.AuthzAuditLog) error
	List(filter AuthzAuditLogListFilter) ([]models.AuthzAuditLog, int64, error)
}

// GormAuthzAuditLogRepository GORM 实现
type GormAuthzAuditLogRepository struct {
	db *gorm.DB
}

// NewAuthzAuditLogRepository 创建审计仓库
func NewAuthzAuditLogRepository(db *gorm.DB) *GormAuthzAuditLogRepository {
	return &GormAuthzAuditLogRepository{db: db}
}

// Create 追加一条审计，审计只增不改
func (r *GormAuthzAuditLogRepository) Create(entry *models.AuthzAuditLog) error {
	if entry == nil {
		return nil
	}
	return r.db.Create(entry).Error
}

// List 按条件分页，最新的在前
func (r *GormAuthzAuditLogRepository) List(filter AuthzAuditLogListFilter) ([]models.AuthzAuditLog, int64, error) {
	query := r.db.Model(&models.AuthzAuditLog{}).Scopes(filter.scope)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	entries := make([]models.AuthzAuditLog, 0)
	if total == 0 {
		return entries, 0, nil
	}
	err := applyPagination(query, filter.Page, filter.PageSize).
		Order("created_at DESC").
		Order("id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (f AuthzAuditLogListFilter) scope(query *gorm.DB) *gorm.DB {
	exact := map[string]string{
		"action": strings.TrimSpace(f.Action),
		"role":   strings.ToLower(strings.TrimSpace(f.Role)),
		"object": strings.TrimSpace(f.Object),
		"method": strings.ToUpper(strings.TrimSpace(f.Method)),
	}
	for _, column := range []string{"action", "role", "object", "method"} {
		if value := exact[column]; value != "" {
			query = query.Where(column+" = ?", value)
		}
	}
	if f.OperatorUserID != 0 {
		query = query.Where("operator_user_id = ?", f.OperatorUserID)
	}
	if f.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		query = query.Where("created_at <= ?", *f.CreatedTo)
	}
	return applyKeyword(query, f.Keyword, "operator_email", "object", "request_id")
}
