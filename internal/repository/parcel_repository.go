package repository

import (
	"strings"
	"time"

	"github.com/courier-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 唯一约束名称，用于区分冲突来源
const (
	ParcelRequestUniqueIndex  = "ux_parcels_request_active"
	ParcelRequestUniqueColumn = "parcels.parcel_request_id"
	TrackingNumberUniqueIndex = "idx_parcels_tracking_number"
	TrackingNumberColumn      = "parcels.tracking_number"
)

// ParcelRepository 包裹数据访问接口
type ParcelRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ParcelRepository

	Create(parcel *models.Parcel) error
	GetByID(id uint) (*models.Parcel, error)
	GetByIDForUpdate(id uint) (*models.Parcel, error)
	ListByIDsForUpdate(ids []uint) ([]models.Parcel, error)
	GetActiveByRequestID(requestID uint) (*models.Parcel, error)
	GetByTrackingNumber(trackingNumber string) (*models.Parcel, error)
	Search(filter ParcelSearchFilter) ([]models.Parcel, int64, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	SoftDelete(id uint, at time.Time) (bool, error)
}

// GormParcelRepository GORM 实现
type GormParcelRepository struct {
	db *gorm.DB
}

// NewParcelRepository 创建包裹仓库
func NewParcelRepository(db *gorm.DB) *GormParcelRepository {
	return &GormParcelRepository{db: db}
}

// WithTx 绑定事务
func (r *GormParcelRepository) WithTx(tx *gorm.DB) ParcelRepository {
	if tx == nil {
		return r
	}
	return &GormParcelRepository{db: tx}
}

// Transaction 执行事务
func (r *GormParcelRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建包裹，唯一约束冲突原样返回由调用方判断
func (r *GormParcelRepository) Create(parcel *models.Parcel) error {
	return r.db.Create(parcel).Error
}

// GetByID 获取未删除的包裹
func (r *GormParcelRepository) GetByID(id uint) (*models.Parcel, error) {
	if id == 0 {
		return nil, nil
	}
	var parcel models.Parcel
	if err := r.db.First(&parcel, id).Error; err != nil {
		return nil, ignoreNotFound(err)
	}
	return &parcel, nil
}

// GetByIDForUpdate 加行锁获取包裹
func (r *GormParcelRepository) GetByIDForUpdate(id uint) (*models.Parcel, error) {
	if id == 0 {
		return nil, nil
	}
	var parcel models.Parcel
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&parcel, id).Error; err != nil {
		return nil, ignoreNotFound(err)
	}
	return &parcel, nil
}

// ListByIDsForUpdate 批量加锁获取，按 id 升序避免死锁
func (r *GormParcelRepository) ListByIDsForUpdate(ids []uint) ([]models.Parcel, error) {
	if len(ids) == 0 {
		return []models.Parcel{}, nil
	}
	var rows []models.Parcel
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetActiveByRequestID 获取申请对应的未删除包裹
func (r *GormParcelRepository) GetActiveByRequestID(requestID uint) (*models.Parcel, error) {
	if requestID == 0 {
		return nil, nil
	}
	var parcel models.Parcel
	if err := r.db.Where("parcel_request_id = ?", requestID).First(&parcel).Error; err != nil {
		return nil, ignoreNotFound(err)
	}
	return &parcel, nil
}

// GetByTrackingNumber 按运单号获取
func (r *GormParcelRepository) GetByTrackingNumber(trackingNumber string) (*models.Parcel, error) {
	normalized := strings.ToUpper(strings.TrimSpace(trackingNumber))
	if normalized == "" {
		return nil, nil
	}
	var parcel models.Parcel
	if err := r.db.Where("tracking_number = ?", normalized).First(&parcel).Error; err != nil {
		return nil, ignoreNotFound(err)
	}
	return &parcel, nil
}

// Search 包裹检索
func (r *GormParcelRepository) Search(filter ParcelSearchFilter) ([]models.Parcel, int64, error) {
	query := r.db.Model(&models.Parcel{})
	if filter.VisibleTo != 0 {
		email := strings.ToLower(strings.TrimSpace(filter.VisibleEmail))
		if email != "" {
			query = query.Where("(sender_id = ? OR receiver_id = ? OR LOWER(receiver_email) = ?)", filter.VisibleTo, filter.VisibleTo, email)
		} else {
			query = query.Where("(sender_id = ? OR receiver_id = ?)", filter.VisibleTo, filter.VisibleTo)
		}
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if tn := strings.ToUpper(strings.TrimSpace(filter.TrackingNumber)); tn != "" {
		query = query.Where("tracking_number = ?", tn)
	}
	query = applyKeyword(query, filter.Keyword, "description", "pickup_location", "destination_location", "current_location")
	if filter.SenderID != 0 {
		query = query.Where("sender_id = ?", filter.SenderID)
	}
	if filter.ReceiverID != 0 {
		query = query.Where("receiver_id = ?", filter.ReceiverID)
	}
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

	var rows []models.Parcel
	if err := query.Order("id DESC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// UpdateFields 按字段更新，不允许改写运费
func (r *GormParcelRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	delete(updates, "price")
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return r.db.Model(&models.Parcel{}).Where("id = ?", id).Updates(updates).Error
}

// SoftDelete 软删除，保留全部字段
func (r *GormParcelRepository) SoftDelete(id uint, at time.Time) (bool, error) {
	result := r.db.Model(&models.Parcel{}).
		Where("id = ?", id).
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
