package repository

import (
	"time"

	"github.com/courier-next/internal/constants"
	"github.com/courier-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ParcelRequestRepository 寄件申请数据访问接口
type ParcelRequestRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ParcelRequestRepository

	Create(req *models.ParcelRequest) error
	GetByID(id uint) (*models.ParcelRequest, error)
	GetByIDForUpdate(id uint) (*models.ParcelRequest, error)
	List(filter ParcelRequestListFilter) ([]models.ParcelRequest, int64, error)
	TransitionStatus(id uint, from, to constants.RequestStatus, updates map[string]interface{}) (bool, error)
	LinkParcel(id, parcelID uint) error
	SoftDelete(id uint, at time.Time) (bool, error)
}

// GormParcelRequestRepository GORM 实现
type GormParcelRequestRepository struct {
	db *gorm.DB
}

// NewParcelRequestRepository 创建寄件申请仓库
func NewParcelRequestRepository(db *gorm.DB) *GormParcelRequestRepository {
	return &GormParcelRequestRepository{db: db}
}

// WithTx 绑定事务
func (r *GormParcelRequestRepository) WithTx(tx *gorm.DB) ParcelRequestRepository {
	if tx == nil {
		return r
	}
	return &GormParcelRequestRepository{db: tx}
}

// Transaction 执行事务
func (r *GormParcelRequestRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建申请
func (r *GormParcelRequestRepository) Create(req *models.ParcelRequest) error {
	return r.db.Create(req).Error
}

// GetByID 获取未删除的申请
func (r *GormParcelRequestRepository) GetByID(id uint) (*models.ParcelRequest, error) {
	if id == 0 {
		return nil, nil
	}
	var req models.ParcelRequest
	if err := r.db.First(&req, id).Error; err != nil {
		return nil, ignoreNotFound(err)
	}
	return &req, nil
}

// GetByIDForUpdate 加行锁获取申请（sqlite 下忽略锁）
func (r *GormParcelRequestRepository) GetByIDForUpdate(id uint) (*models.ParcelRequest, error) {
	if id == 0 {
		return nil, nil
	}
	var req models.ParcelRequest
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, id).Error; err != nil {
		return nil, ignoreNotFound(err)
	}
	return &req, nil
}

// List 申请列表
func (r *GormParcelRequestRepository) List(filter ParcelRequestListFilter) ([]models.ParcelRequest, int64, error) {
	query := r.db.Model(&models.ParcelRequest{})
	if filter.SenderID != 0 {
		query = query.Where("sender_id = ?", filter.SenderID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	query = applyKeyword(query, filter.Keyword, "receiver_email", "description", "pickup_location", "destination_location")
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.ParcelRequest
	if err := query.Order("id DESC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// TransitionStatus 条件更新状态，仅当当前状态为 from 时生效，返回是否命中
func (r *GormParcelRequestRepository) TransitionStatus(id uint, from, to constants.RequestStatus, updates map[string]interface{}) (bool, error) {
	values := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range updates {
		values[k] = v
	}
	result := r.db.Model(&models.ParcelRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// LinkParcel 回写转换后的包裹
func (r *GormParcelRequestRepository) LinkParcel(id, parcelID uint) error {
	return r.db.Model(&models.ParcelRequest{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"parcel_id": parcelID, "updated_at": time.Now()}).Error
}

// SoftDelete 仅删除待审批的申请，返回是否命中
func (r *GormParcelRequestRepository) SoftDelete(id uint, at time.Time) (bool, error) {
	result := r.db.Model(&models.ParcelRequest{}).
		Where("id = ? AND status = ?", id, constants.RequestStatusPending).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"deleted_at": at,
			"updated_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
