package events

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/courier-next/internal/config"
	"github.com/courier-next/internal/constants"
	"github.com/courier-next/internal/logger"
	"github.com/courier-next/internal/models"

	"github.com/segmentio/kafka-go"
)

// 事件类型
const (
	TypeParcelCreated       = "parcel.created"
	TypeParcelStatusChanged = "parcel.status_changed"
	TypeParcelDeleted       = "parcel.deleted"
)

// Writer kafka.Writer 中用到的部分，便于测试替换
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ParcelEvent 包裹生命周期事件
type ParcelEvent struct {
	Type            string                 `json:"type"`
	ParcelID        uint                   `json:"parcel_id"`
	TrackingNumber  string                 `json:"tracking_number"`
	ParcelRequestID *uint                  `json:"parcel_request_id,omitempty"`
	FromStatus      constants.ParcelStatus `json:"from_status,omitempty"`
	Status          constants.ParcelStatus `json:"status"`
	CurrentLocation string                 `json:"current_location"`
	Price           string                 `json:"price"`
	Currency        string                 `json:"currency"`
	OccurredAt      time.Time              `json:"occurred_at"`
}

// NewParcelEvent 由包裹快照生成事件
func NewParcelEvent(eventType string, parcel *models.Parcel, from constants.ParcelStatus) ParcelEvent {
	return ParcelEvent{
		Type:            eventType,
		ParcelID:        parcel.ID,
		TrackingNumber:  parcel.TrackingNumber,
		ParcelRequestID: parcel.ParcelRequestID,
		FromStatus:      from,
		Status:          parcel.Status,
		CurrentLocation: parcel.CurrentLocation,
		Price:           parcel.Price.String(),
		Currency:        parcel.Currency,
		OccurredAt:      time.Now().UTC(),
	}
}

// Publisher 事件发布，未启用时为空操作
type Publisher struct {
	writer       Writer
	writeTimeout time.Duration
	inflight     sync.WaitGroup
}

// NewPublisher 按配置创建发布者
func NewPublisher(cfg config.EventsConfig) *Publisher {
	if !cfg.Enabled || len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return &Publisher{}
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return NewPublisherWithWriter(w, time.Duration(cfg.WriteTimeoutMS)*time.Millisecond)
}

// NewPublisherWithWriter 注入自定义 writer
func NewPublisherWithWriter(w Writer, writeTimeout time.Duration) *Publisher {
	if writeTimeout <= 0 {
		writeTimeout = 3 * time.Second
	}
	return &Publisher{writer: w, writeTimeout: writeTimeout}
}

// Enabled 是否启用
func (p *Publisher) Enabled() bool {
	return p != nil && p.writer != nil
}

// Publish 以运单号为 key 写入，同一包裹的事件落在同一分区保持顺序
func (p *Publisher) Publish(ctx context.Context, events ...ParcelEvent) error {
	if !p.Enabled() || len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		body, err := json.Marshal(event)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(event.TrackingNumber),
			Value: body,
			Headers: []kafka.Header{
				{Key: "type", Value: []byte(event.Type)},
				{Key: "parcel_id", Value: []byte(strconv.FormatUint(uint64(event.ParcelID), 10))},
			},
		})
	}
	ctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()
	return p.writer.WriteMessages(ctx, msgs...)
}

// PublishAsync 提交后发布，失败只记日志
func (p *Publisher) PublishAsync(events ...ParcelEvent) {
	if !p.Enabled() || len(events) == 0 {
		return
	}
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		if err := p.Publish(context.Background(), events...); err != nil {
			logger.Warnw("parcel_event_publish_failed",
				"count", len(events),
				"type", events[0].Type,
				"error", err,
			)
		}
	}()
}

// Close 等待异步发布完成后关闭 writer
func (p *Publisher) Close() error {
	if !p.Enabled() {
		return nil
	}
	p.inflight.Wait()
	return p.writer.Close()
}
