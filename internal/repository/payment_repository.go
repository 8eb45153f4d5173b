package repository

import (
	"github.com/courier-next/internal/models"

	"gorm.io/gorm"
)

// 每个包裹至多一条未删除的结算记录
const (
	PaymentParcelUniqueIndex  = "ux_payments_parcel_active"
	PaymentParcelUniqueColumn = "payments.parcel_id"
)

// PaymentRepository 运费结算数据访问接口
type PaymentRepository interface {
	WithTx(tx *gorm.DB) PaymentRepository
	Create(payment *models.Payment) error
	GetByParcelID(parcelID uint) (*models.Payment, error)
	CountByParcelID(parcelID uint) (int64, error)
}

// GormPaymentRepository GORM 实现
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建结算仓库
func NewPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPaymentRepository) WithTx(tx *gorm.DB) PaymentRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentRepository{db: tx}
}

// Create 创建结算记录
func (r *GormPaymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// GetByParcelID 获取包裹的结算记录
func (r *GormPaymentRepository) GetByParcelID(parcelID uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.Where("parcel_id = ?", parcelID).First(&payment).Error; err != nil {
		return nil, ignoreNotFound(err)
	}
	return &payment, nil
}

// CountByParcelID 统计包裹的结算记录数
func (r *GormPaymentRepository) CountByParcelID(parcelID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Payment{}).Where("parcel_id = ?", parcelID).Count(&count).Error
	return count, err
}
