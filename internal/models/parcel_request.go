package models

import (
	"time"

	"github.com/courier-next/internal/constants"

	"gorm.io/gorm"
)

// ParcelRequest 寄件申请
type ParcelRequest struct {
	ID                  uint                    `gorm:"primarykey" json:"id"`                          // 主键
	SenderID            uint                    `gorm:"index;not null" json:"sender_id"`               // 申请人
	ReceiverEmail       string                  `gorm:"index;not null" json:"receiver_email"`          // 收件人邮箱
	ReceiverName        string                  `gorm:"not null;default:''" json:"receiver_name"`      // 收件人名称（可能为空）
	Description         string                  `gorm:"type:text;not null" json:"description"`         // 物品描述
	Weight              float64                 `gorm:"not null" json:"weight"`                        // 重量（kg）
	PickupLocation      string                  `gorm:"not null" json:"pickup_location"`               // 取件地址
	DestinationLocation string                  `gorm:"not null" json:"destination_location"`          // 送达地址
	RequestedPickupDate *time.Time              `json:"requested_pickup_date"`                         // 期望取件时间
	SpecialInstructions string                  `gorm:"type:text" json:"special_instructions"`         // 特殊说明
	Status              constants.RequestStatus `gorm:"type:varchar(20);index;not null" json:"status"` // 状态
	AdminNotes          string                  `gorm:"type:text" json:"admin_notes"`                  // 审批备注
	ReviewedBy          *uint                   `gorm:"index" json:"reviewed_by,omitempty"`            // 审批管理员
	ReviewedAt          *time.Time              `json:"reviewed_at,omitempty"`                         // 审批时间
	ParcelID            *uint                   `gorm:"index" json:"parcel_id,omitempty"`              // 转换后的包裹
	IsDeleted           bool                    `gorm:"not null;default:false" json:"is_deleted"`      // 软删除标记
	CreatedAt           time.Time               `gorm:"index" json:"created_at"`                       // 创建时间
	UpdatedAt           time.Time               `gorm:"index" json:"updated_at"`                       // 更新时间
	DeletedAt           gorm.DeletedAt          `gorm:"index" json:"deleted_at,omitempty"`             // 软删除时间

	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

// TableName 指定表名
func (ParcelRequest) TableName() string {
	return "parcel_requests"
}
