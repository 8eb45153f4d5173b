package models

import (
	"time"

	"github.com/courier-next/internal/constants"

	"gorm.io/gorm"
)

// Parcel 包裹
type Parcel struct {
	ID                   uint                   `gorm:"primarykey" json:"id"`                                // 主键
	TrackingNumber       string                 `gorm:"uniqueIndex;size:32;not null" json:"tracking_number"` // 运单号
	SenderID             uint                   `gorm:"index;not null" json:"sender_id"`                     // 寄件人
	ReceiverID           uint                   `gorm:"index;not null" json:"receiver_id"`                   // 收件人
	ReceiverEmail        string                 `gorm:"index;not null;default:''" json:"receiver_email"`     // 创建时的收件人邮箱
	Description          string                 `gorm:"type:text;not null" json:"description"`               // 物品描述
	Weight               float64                `gorm:"not null" json:"weight"`                              // 重量（kg）
	Price                Money                  `gorm:"type:decimal(20,2);not null" json:"price"`            // 运费，创建后不可变
	Currency             string                 `gorm:"not null;default:'USD'" json:"currency"`              // 币种
	Status               constants.ParcelStatus `gorm:"type:varchar(20);index;not null" json:"status"`       // 状态
	PickupLocation       string                 `gorm:"not null" json:"pickup_location"`                     // 取件地址
	PickupLatitude       *float64               `json:"pickup_latitude"`                                     // 取件纬度
	PickupLongitude      *float64               `json:"pickup_longitude"`                                    // 取件经度
	DestinationLocation  string                 `gorm:"not null" json:"destination_location"`                // 送达地址
	DestinationLatitude  *float64               `json:"destination_latitude"`                                // 送达纬度
	DestinationLongitude *float64               `json:"destination_longitude"`                               // 送达经度
	CurrentLocation      string                 `gorm:"not null;default:''" json:"current_location"`         // 当前位置
	CurrentLatitude      *float64               `json:"current_latitude"`                                    // 当前纬度
	CurrentLongitude     *float64               `json:"current_longitude"`                                   // 当前经度
	ParcelRequestID      *uint                  `gorm:"index" json:"parcel_request_id,omitempty"`            // 来源申请（未删除行唯一，见 AutoMigrate）
	IsDeleted            bool                   `gorm:"not null;default:false" json:"is_deleted"`            // 软删除标记
	CreatedAt            time.Time              `gorm:"index" json:"created_at"`                             // 创建时间
	UpdatedAt            time.Time              `gorm:"index" json:"updated_at"`                             // 更新时间
	DeletedAt            gorm.DeletedAt         `gorm:"index" json:"deleted_at,omitempty"`                   // 软删除时间

	Sender   *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver *User `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
}

// TableName 指定表名
func (Parcel) TableName() string {
	return "parcels"
}

// ParcelStatusEvent 包裹状态流转记录
type ParcelStatusEvent struct {
	ID         uint                   `gorm:"primarykey" json:"id"`
	ParcelID   uint                   `gorm:"index;not null" json:"parcel_id"`
	FromStatus constants.ParcelStatus `gorm:"type:varchar(20);not null;default:''" json:"from_status"`
	ToStatus   constants.ParcelStatus `gorm:"type:varchar(20);not null" json:"to_status"`
	Location   string                 `gorm:"not null;default:''" json:"location"`
	Latitude   *float64               `json:"latitude"`
	Longitude  *float64               `json:"longitude"`
	OperatorID *uint                  `gorm:"index" json:"operator_id,omitempty"`
	CreatedAt  time.Time              `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (ParcelStatusEvent) TableName() string {
	return "parcel_status_events"
}
