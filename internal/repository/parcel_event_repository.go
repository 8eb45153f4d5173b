package repository

import (
	"github.com/courier-next/internal/models"

	"gorm.io/gorm"
)

// ParcelEventRepository 包裹状态流转记录
type ParcelEventRepository interface {
	WithTx(tx *gorm.DB) ParcelEventRepository
	Create(event *models.ParcelStatusEvent) error
	ListByParcel(parcelID uint) ([]models.ParcelStatusEvent, error)
}

// GormParcelEventRepository GORM 实现
type GormParcelEventRepository struct {
	db *gorm.DB
}

// NewParcelEventRepository 创建流转记录仓库
func NewParcelEventRepository(db *gorm.DB) *GormParcelEventRepository {
	return &GormParcelEventRepository{db: db}
}

// WithTx 绑定事务
func (r *GormParcelEventRepository) WithTx(tx *gorm.DB) ParcelEventRepository {
	if tx == nil {
		return r
	}
	return &GormParcelEventRepository{db: tx}
}

// Create 写入流转记录
func (r *GormParcelEventRepository) Create(event *models.ParcelStatusEvent) error {
	return r.db.Create(event).Error
}

// ListByParcel 按时间顺序列出
func (r *GormParcelEventRepository) ListByParcel(parcelID uint) ([]models.ParcelStatusEvent, error) {
	var rows []models.ParcelStatusEvent
	if err := r.db.Where("parcel_id = ?", parcelID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
