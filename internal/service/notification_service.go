package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/courier-next/internal/config"
	"github.com/courier-next/internal/constants"
	"github.com/courier-next/internal/i18n"
	"github.com/courier-next/internal/logger"
	"github.com/courier-next/internal/models"
	"github.com/courier-next/internal/queue"
	"github.com/courier-next/internal/repository"

	"gorm.io/gorm"
)

// NotificationEnqueuer 通知投递任务入队
type NotificationEnqueuer interface {
	EnqueueNotification(payload queue.NotificationDeliverPayload) error
}

// NotificationService 通知发件箱：事务内落库，提交后入队，由 worker 投递
type NotificationService struct {
	eventRepo     repository.NotificationEventRepository
	mailer        Mailer
	enqueuer      NotificationEnqueuer
	sealer        *secretSealer
	publicURL     string
	defaultLocale string
}

// NewNotificationService 创建通知服务
func NewNotificationService(cfg *config.Config, eventRepo repository.NotificationEventRepository, mailer Mailer, enqueuer NotificationEnqueuer) *NotificationService {
	svc := &NotificationService{
		eventRepo:     eventRepo,
		mailer:        mailer,
		enqueuer:      enqueuer,
		defaultLocale: i18n.DefaultLocale,
	}
	secret := ""
	if cfg != nil {
		secret = cfg.Notification.SecretKey
		svc.publicURL = strings.TrimRight(strings.TrimSpace(cfg.App.PublicURL), "/")
		if locale := strings.TrimSpace(cfg.App.DefaultLocale); locale != "" {
			svc.defaultLocale = i18n.NormalizeLocale(locale)
		}
	}
	svc.sealer = newSecretSealer(secret)
	return svc
}

// Record 在业务事务内写入待投递事件
func (s *NotificationService) Record(tx *gorm.DB, events ...*models.NotificationEvent) error {
	if s == nil || len(events) == 0 {
		return nil
	}
	rows := make([]*models.NotificationEvent, 0, len(events))
	for _, event := range events {
		if event == nil {
			continue
		}
		if strings.TrimSpace(event.Recipient) == "" || event.EventType == "" {
			return ErrNotificationEventInvalid
		}
		event.Status = constants.NotificationEventStatusPending
		if event.Locale == "" {
			event.Locale = s.defaultLocale
		}
		rows = append(rows, event)
	}
	return s.eventRepo.WithTx(tx).CreateBatch(rows)
}

// Dispatch 事务提交后把事件推入队列；失败只记录日志，由中继补投
func (s *NotificationService) Dispatch(events []*models.NotificationEvent) {
	if s == nil || s.enqueuer == nil || len(events) == 0 {
		return
	}
	queued := make([]uint, 0, len(events))
	for _, event := range events {
		if event == nil || event.ID == 0 {
			continue
		}
		err := s.enqueuer.EnqueueNotification(queue.NotificationDeliverPayload{
			EventID:   event.ID,
			EventType: event.EventType,
		})
		if errors.Is(err, queue.ErrQueueDisabled) {
			logger.Debugw("notification_queue_disabled", "event_id", event.ID)
			break
		}
		if err != nil {
			logger.Warnw("notification_enqueue_failed",
				"event_id", event.ID,
				"event_type", event.EventType,
				"error", err,
			)
			continue
		}
		queued = append(queued, event.ID)
	}
	if len(queued) == 0 {
		return
	}
	if err := s.eventRepo.MarkQueued(queued, time.Now()); err != nil {
		logger.Warnw("notification_mark_queued_failed", "event_ids", queued, "error", err)
	}
}

// RelayPending 重新入队滞留在 pending 的事件，返回处理条数
func (s *NotificationService) RelayPending(olderThan time.Duration, limit int) (int, error) {
	if s == nil {
		return 0, nil
	}
	rows, err := s.eventRepo.ListPending(time.Now().Add(-olderThan), limit)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	events := make([]*models.NotificationEvent, 0, len(rows))
	for i := range rows {
		events = append(events, &rows[i])
	}
	s.Dispatch(events)
	return len(events), nil
}

// Deliver 投递单个事件，返回错误时由队列重试
func (s *NotificationService) Deliver(ctx context.Context, eventID uint) error {
	event, err := s.eventRepo.GetByID(eventID)
	if err != nil {
		return err
	}
	if event == nil {
		logger.Warnw("notification_event_missing", "event_id", eventID)
		return nil
	}
	if event.Status == constants.NotificationEventStatusSent || event.Status == constants.NotificationEventStatusSkipped {
		return nil
	}

	secret := ""
	if event.SealedSecret != "" {
		secret, err = s.sealer.Open(event.SealedSecret)
		if err != nil {
			logger.Errorw("notification_secret_open_failed", "event_id", event.ID, "error", err)
			return s.eventRepo.MarkSkipped(event.ID, err.Error(), time.Now())
		}
	}
	subject, body, err := s.render(event, secret)
	if err != nil {
		return s.eventRepo.MarkSkipped(event.ID, err.Error(), time.Now())
	}

	if s.mailer == nil {
		return s.eventRepo.MarkSkipped(event.ID, ErrEmailServiceDisabled.Error(), time.Now())
	}
	sendErr := s.mailer.SendText(ctx, event.Recipient, subject, body)
	switch {
	case sendErr == nil:
		logger.Infow("notification_delivered",
			"event_id", event.ID,
			"event_type", event.EventType,
			"recipient", event.Recipient,
		)
		return s.eventRepo.MarkDelivered(event.ID, time.Now())
	case errors.Is(sendErr, ErrEmailServiceDisabled),
		errors.Is(sendErr, ErrEmailServiceNotConfigured),
		errors.Is(sendErr, ErrInvalidEmail),
		errors.Is(sendErr, ErrEmailRecipientRejected):
		logger.Warnw("notification_skipped",
			"event_id", event.ID,
			"event_type", event.EventType,
			"reason", sendErr.Error(),
		)
		return s.eventRepo.MarkSkipped(event.ID, sendErr.Error(), time.Now())
	default:
		if err := s.eventRepo.RecordFailure(event.ID, sendErr.Error(), time.Now()); err != nil {
			logger.Warnw("notification_record_failure_failed", "event_id", event.ID, "error", err)
		}
		return sendErr
	}
}

// ListEvents 查询发件箱记录
func (s *NotificationService) ListEvents(filter repository.NotificationEventFilter) ([]models.NotificationEvent, error) {
	filter.Recipient = normalizeEmail(filter.Recipient)
	return s.eventRepo.List(filter)
}
