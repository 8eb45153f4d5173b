package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment 运费结算记录（每个包裹至多一条，见 AutoMigrate 中的唯一索引）
type Payment struct {
	ID        uint           `gorm:"primarykey" json:"id"`                      // 主键
	ParcelID  uint           `gorm:"index;not null" json:"parcel_id"`           // 包裹ID
	PayerID   uint           `gorm:"index;not null" json:"payer_id"`            // 付款人（寄件人）
	Amount    Money          `gorm:"type:decimal(20,2);not null" json:"amount"` // 金额，等于包裹运费
	Currency  string         `gorm:"not null" json:"currency"`                  // 币种
	Method    string         `gorm:"not null" json:"method"`                    // 支付方式
	Status    string         `gorm:"index;not null" json:"status"`              // 支付状态
	PaidAt    *time.Time     `gorm:"index" json:"paid_at"`                      // 完成时间
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                   // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                   // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                            // 软删除时间
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}
