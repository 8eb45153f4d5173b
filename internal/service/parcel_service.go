package service

import (
	"context"
	"strings"
	"time"

	"github.com/courier-next/internal/config"
	"github.com/courier-next/internal/constants"
	"github.com/courier-next/internal/events"
	"github.com/courier-next/internal/geo"
	"github.com/courier-next/internal/logger"
	"github.com/courier-next/internal/models"
	"github.com/courier-next/internal/pricing"
	"github.com/courier-next/internal/repository"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// CreateParcelInput 管理员直接建单参数
type CreateParcelInput struct {
	SenderID             uint     `json:"sender_id"`
	ReceiverEmail        string   `json:"receiver_email" validate:"required,email,max=255"`
	Description          string   `json:"description" validate:"required,max=1000"`
	Weight               float64  `json:"weight" validate:"gt=0.1,lte=1000"`
	PickupLocation       string   `json:"pickup_location" validate:"required,max=500"`
	DestinationLocation  string   `json:"destination_location" validate:"required,max=500"`
	PickupLatitude       *float64 `json:"pickup_latitude" validate:"omitempty,gte=-90,lte=90"`
	PickupLongitude      *float64 `json:"pickup_longitude" validate:"omitempty,gte=-180,lte=180"`
	DestinationLatitude  *float64 `json:"destination_latitude" validate:"omitempty,gte=-90,lte=90"`
	DestinationLongitude *float64 `json:"destination_longitude" validate:"omitempty,gte=-180,lte=180"`
}

// UpdateParcelStatusInput 状态更新参数
type UpdateParcelStatusInput struct {
	Status          string `json:"status" validate:"required"`
	CurrentLocation string `json:"current_location" validate:"max=500"`
}

// BulkUpdateParcelStatusInput 批量状态更新参数
type BulkUpdateParcelStatusInput struct {
	IDs    []uint `json:"ids" validate:"required,min=1,max=100,dive,gt=0"`
	Status string `json:"status" validate:"required"`
}

// ParcelService 包裹状态机
type ParcelService struct {
	parcelRepo       repository.ParcelRepository
	paymentRepo      repository.PaymentRepository
	eventRepo        repository.ParcelEventRepository
	userRepo         repository.UserRepository
	identity         *IdentityService
	notifications    *NotificationService
	geocoder         geo.Geocoder
	publisher        *events.Publisher
	trackingNumber   TrackingNumberGenerator
	trackingAttempts int
	currency         string
}

// ParcelServiceOptions 包裹服务依赖
type ParcelServiceOptions struct {
	ParcelRepo    repository.ParcelRepository
	PaymentRepo   repository.PaymentRepository
	EventRepo     repository.ParcelEventRepository
	UserRepo      repository.UserRepository
	Identity      *IdentityService
	Notifications *NotificationService
	Geocoder      geo.Geocoder
	Publisher     *events.Publisher
}

// NewParcelService 创建包裹服务
func NewParcelService(cfg *config.Config, opts ParcelServiceOptions) *ParcelService {
	svc := &ParcelService{
		parcelRepo:       opts.ParcelRepo,
		paymentRepo:      opts.PaymentRepo,
		eventRepo:        opts.EventRepo,
		userRepo:         opts.UserRepo,
		identity:         opts.Identity,
		notifications:    opts.Notifications,
		geocoder:         opts.Geocoder,
		publisher:        opts.Publisher,
		trackingNumber:   newTrackingNumberGenerator("PCL"),
		trackingAttempts: 5,
		currency:         "USD",
	}
	if svc.geocoder == nil {
		svc.geocoder = geo.Disabled{}
	}
	if cfg != nil {
		if cfg.Parcel.TrackingPrefix != "" {
			svc.trackingNumber = newTrackingNumberGenerator(cfg.Parcel.TrackingPrefix)
		}
		if cfg.Parcel.TrackingAttempts > 0 {
			svc.trackingAttempts = cfg.Parcel.TrackingAttempts
		}
		if currency := strings.TrimSpace(cfg.App.DefaultCurrency); currency != "" {
			svc.currency = strings.ToUpper(currency)
		}
	}
	return svc
}

// parcelDraft 事务外准备好的建单数据（地理编码与计价）
type parcelDraft struct {
	SenderID        uint
	ReceiverEmail   string
	Description     string
	Weight          float64
	Pickup          geo.Resolved
	Destination     geo.Resolved
	Price           models.Money
	ParcelRequestID *uint
}

// prepareDraft 并发解析取件与送达地址，失败时保留原始地址
func (s *ParcelService) prepareDraft(ctx context.Context, in CreateParcelInput, requestID *uint) parcelDraft {
	draft := parcelDraft{
		SenderID:        in.SenderID,
		ReceiverEmail:   normalizeEmail(in.ReceiverEmail),
		Description:     in.Description,
		Weight:          in.Weight,
		Price:           models.NewMoney(pricing.Price(in.Weight)),
		ParcelRequestID: requestID,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		draft.Pickup = s.resolveAddress(gctx, in.PickupLocation, in.PickupLatitude, in.PickupLongitude)
		return nil
	})
	g.Go(func() error {
		draft.Destination = s.resolveAddress(gctx, in.DestinationLocation, in.DestinationLatitude, in.DestinationLongitude)
		return nil
	})
	_ = g.Wait()
	return draft
}

func (s *ParcelService) resolveAddress(ctx context.Context, raw string, lat, lng *float64) geo.Resolved {
	if lat != nil && lng != nil {
		return geo.Resolved{Address: strings.TrimSpace(raw), Lat: lat, Lng: lng}
	}
	return geo.Best(ctx, s.geocoder, raw)
}

// Create 管理员直接建单
func (s *ParcelService) Create(ctx context.Context, caller Caller, input CreateParcelInput) (*models.Parcel, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	trimInput(&input.ReceiverEmail, &input.Description, &input.PickupLocation, &input.DestinationLocation)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.SenderID == 0 {
		input.SenderID = caller.ID
	}
	sender, err := s.userRepo.GetByID(input.SenderID)
	if err != nil {
		return nil, err
	}
	if sender == nil {
		return nil, newValidationError("sender_id", "exists")
	}
	if normalizeEmail(sender.Email) == normalizeEmail(input.ReceiverEmail) {
		return nil, ErrCannotSendToSelf
	}
	if err := s.rejectAdminReceiver(input.ReceiverEmail); err != nil {
		return nil, err
	}

	draft := s.prepareDraft(ctx, input, nil)
	var parcel *models.Parcel
	var outbox []*models.NotificationEvent
	err = s.parcelRepo.Transaction(func(tx *gorm.DB) error {
		created, evts, err := s.persistDraft(tx, draft, sender, caller.ID)
		if err != nil {
			return err
		}
		if err := s.notifications.Record(tx, evts...); err != nil {
			return err
		}
		parcel, outbox = created, evts
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterCreate(parcel, outbox)
	return parcel, nil
}

// rejectAdminReceiver 事务外提前拦截，避免无谓的地理编码
func (s *ParcelService) rejectAdminReceiver(email string) error {
	existing, err := s.identity.Lookup(email)
	if err != nil {
		return err
	}
	if existing != nil && existing.Role == constants.RoleAdmin {
		return ErrReceiverIsAdmin
	}
	return nil
}

// persistDraft 在事务内确保收件人、写入包裹与初始流转记录，返回待发通知
func (s *ParcelService) persistDraft(tx *gorm.DB, draft parcelDraft, sender *models.User, operatorID uint) (*models.Parcel, []*models.NotificationEvent, error) {
	receiver, credential, err := s.identity.EnsureReceiver(tx, draft.ReceiverEmail)
	if err != nil {
		return nil, nil, err
	}
	parcel := &models.Parcel{
		SenderID:             draft.SenderID,
		ReceiverID:           receiver.ID,
		ReceiverEmail:        receiver.Email,
		Description:          draft.Description,
		Weight:               draft.Weight,
		Price:                draft.Price,
		Currency:             s.currency,
		Status:               constants.ParcelStatusPickedUp,
		PickupLocation:       draft.Pickup.Address,
		PickupLatitude:       draft.Pickup.Lat,
		PickupLongitude:      draft.Pickup.Lng,
		DestinationLocation:  draft.Destination.Address,
		DestinationLatitude:  draft.Destination.Lat,
		DestinationLongitude: draft.Destination.Lng,
		CurrentLocation:      draft.Pickup.Address,
		CurrentLatitude:      draft.Pickup.Lat,
		CurrentLongitude:     draft.Pickup.Lng,
		ParcelRequestID:      draft.ParcelRequestID,
	}
	if err := s.insertWithTrackingNumber(tx, parcel); err != nil {
		return nil, nil, err
	}
	if err := s.recordHistory(tx, parcel, "", operatorID); err != nil {
		return nil, nil, err
	}

	outbox := parcelCreatedEvents(parcel, targetOf(sender), targetOf(receiver))
	if credential != nil {
		event, err := s.notifications.credentialsEvent(credential, receiver.Locale)
		if err != nil {
			return nil, nil, err
		}
		outbox = append(outbox, event)
	}
	return parcel, outbox, nil
}

// insertWithTrackingNumber 运单号冲突时换号重试，其余唯一冲突原样返回
func (s *ParcelService) insertWithTrackingNumber(tx *gorm.DB, parcel *models.Parcel) error {
	for attempt := 1; attempt <= s.trackingAttempts; attempt++ {
		trackingNumber, err := s.trackingNumber(time.Now())
		if err != nil {
			return err
		}
		parcel.ID = 0
		parcel.TrackingNumber = trackingNumber
		err = createInSavepoint(tx, func(db *gorm.DB) error {
			return s.parcelRepo.WithTx(db).Create(parcel)
		})
		if err == nil {
			return nil
		}
		if !repository.UniqueViolationOn(err, repository.TrackingNumberUniqueIndex, repository.TrackingNumberColumn) {
			return err
		}
		logger.Warnw("tracking_number_collision",
			"tracking_number", trackingNumber,
			"attempt", attempt,
		)
	}
	return ErrTrackingNumberExhausted
}

func (s *ParcelService) recordHistory(tx *gorm.DB, parcel *models.Parcel, from constants.ParcelStatus, operatorID uint) error {
	event := &models.ParcelStatusEvent{
		ParcelID:   parcel.ID,
		FromStatus: from,
		ToStatus:   parcel.Status,
		Location:   parcel.CurrentLocation,
		Latitude:   parcel.CurrentLatitude,
		Longitude:  parcel.CurrentLongitude,
	}
	if operatorID != 0 {
		event.OperatorID = &operatorID
	}
	return s.eventRepo.WithTx(tx).Create(event)
}

func (s *ParcelService) afterCreate(parcel *models.Parcel, outbox []*models.NotificationEvent) {
	logger.Infow("parcel_created",
		"parcel_id", parcel.ID,
		"tracking_number", parcel.TrackingNumber,
		"parcel_request_id", parcel.ParcelRequestID,
	)
	s.notifications.Dispatch(outbox)
	s.publisher.PublishAsync(events.NewParcelEvent(events.TypeParcelCreated, parcel, ""))
}

// UpdateStatus 管理员更新包裹状态
func (s *ParcelService) UpdateStatus(ctx context.Context, caller Caller, id uint, input UpdateParcelStatusInput) (*models.Parcel, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	trimInput(&input.Status, &input.CurrentLocation)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	status, ok := constants.ParseParcelStatus(input.Status)
	if !ok {
		return nil, ErrInvalidParcelStatus
	}
	return s.applyStatus(ctx, caller.ID, id, status, input.CurrentLocation)
}

// MarkReceived 收件人确认签收
func (s *ParcelService) MarkReceived(ctx context.Context, caller Caller, id uint) (*models.Parcel, error) {
	parcel, err := s.parcelRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if parcel == nil {
		return nil, ErrParcelNotFound
	}
	if caller.ID == 0 || parcel.ReceiverID != caller.ID {
		return nil, ErrForbidden
	}
	if parcel.Status != constants.ParcelStatusDelivered {
		return nil, ErrParcelNotDelivered
	}
	return s.applyStatus(ctx, caller.ID, id, constants.ParcelStatusReceived, "")
}

// parcelChange 单个包裹一次状态变更的结果
type parcelChange struct {
	parcel  *models.Parcel
	from    constants.ParcelStatus
	applied bool
	outbox  []*models.NotificationEvent
}

func (s *ParcelService) applyStatus(ctx context.Context, operatorID, id uint, status constants.ParcelStatus, location string) (*models.Parcel, error) {
	var resolved *geo.Resolved
	if status != constants.ParcelStatusDelivered && location != "" {
		best := geo.Best(ctx, s.geocoder, location)
		resolved = &best
	}

	var change parcelChange
	err := s.parcelRepo.Transaction(func(tx *gorm.DB) error {
		parcel, err := s.parcelRepo.WithTx(tx).GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if parcel == nil {
			return ErrParcelNotFound
		}
		change, err = s.transition(tx, parcel, status, resolved, operatorID)
		if err != nil {
			return err
		}
		return s.notifications.Record(tx, change.outbox...)
	})
	if err != nil {
		return nil, err
	}
	s.afterStatusChange(change)
	return change.parcel, nil
}

// transition 在事务内执行一次流转：校验、位置处理、送达结算、历史与通知
func (s *ParcelService) transition(tx *gorm.DB, parcel *models.Parcel, to constants.ParcelStatus, location *geo.Resolved, operatorID uint) (parcelChange, error) {
	from := parcel.Status
	change := parcelChange{parcel: parcel, from: from}
	if isParcelNoop(from, to) {
		return change, nil
	}
	if !canTransitionParcel(from, to) {
		return change, ErrParcelStatusTransition
	}

	updates := map[string]interface{}{"status": to}
	switch {
	case to == constants.ParcelStatusDelivered:
		parcel.CurrentLocation = parcel.DestinationLocation
		parcel.CurrentLatitude = parcel.DestinationLatitude
		parcel.CurrentLongitude = parcel.DestinationLongitude
	case location != nil:
		parcel.CurrentLocation = location.Address
		parcel.CurrentLatitude = location.Lat
		parcel.CurrentLongitude = location.Lng
	}
	updates["current_location"] = parcel.CurrentLocation
	updates["current_latitude"] = parcel.CurrentLatitude
	updates["current_longitude"] = parcel.CurrentLongitude
	if err := s.parcelRepo.WithTx(tx).UpdateFields(parcel.ID, updates); err != nil {
		return change, err
	}
	parcel.Status = to

	if to == constants.ParcelStatusDelivered {
		if err := s.ensurePayment(tx, parcel); err != nil {
			return change, err
		}
	}
	if err := s.recordHistory(tx, parcel, from, operatorID); err != nil {
		return change, err
	}
	change.applied = true

	if from == to {
		return change, nil
	}
	users, err := s.userRepo.WithTx(tx).ListByIDs([]uint{parcel.SenderID, parcel.ReceiverID})
	if err != nil {
		return change, err
	}
	targets := make([]notifyTarget, 0, len(users))
	for i := range users {
		targets = append(targets, targetOf(&users[i]))
	}
	change.outbox = parcelStatusEvents(parcel, targets...)
	return change, nil
}

// ensurePayment 送达时补齐唯一一条结算记录
func (s *ParcelService) ensurePayment(tx *gorm.DB, parcel *models.Parcel) error {
	repo := s.paymentRepo.WithTx(tx)
	count, err := repo.CountByParcelID(parcel.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	now := time.Now()
	payment := &models.Payment{
		ParcelID: parcel.ID,
		PayerID:  parcel.SenderID,
		Amount:   parcel.Price,
		Currency: parcel.Currency,
		Method:   constants.PaymentMethodOnDelivery,
		Status:   constants.PaymentStatusCompleted,
		PaidAt:   &now,
	}
	err = createInSavepoint(tx, func(db *gorm.DB) error {
		return s.paymentRepo.WithTx(db).Create(payment)
	})
	if repository.UniqueViolationOn(err, repository.PaymentParcelUniqueIndex, repository.PaymentParcelUniqueColumn) {
		return nil
	}
	if err == nil {
		logger.Infow("parcel_payment_settled",
			"parcel_id", parcel.ID,
			"payment_id", payment.ID,
			"amount", payment.Amount.String(),
		)
	}
	return err
}

func (s *ParcelService) afterStatusChange(changes ...parcelChange) {
	var outbox []*models.NotificationEvent
	var published []events.ParcelEvent
	for _, change := range changes {
		if !change.applied || change.from == change.parcel.Status {
			continue
		}
		logger.Infow("parcel_status_changed",
			"parcel_id", change.parcel.ID,
			"from", change.from,
			"to", change.parcel.Status,
		)
		outbox = append(outbox, change.outbox...)
		published = append(published, events.NewParcelEvent(events.TypeParcelStatusChanged, change.parcel, change.from))
	}
	s.notifications.Dispatch(outbox)
	s.publisher.PublishAsync(published...)
}

// BulkUpdateStatus 批量更新，逐个校验并各自使用自身的目的地；任一失败整体回滚
func (s *ParcelService) BulkUpdateStatus(ctx context.Context, caller Caller, input BulkUpdateParcelStatusInput) (int64, error) {
	if err := requireAdmin(caller); err != nil {
		return 0, err
	}
	trimInput(&input.Status)
	if err := validateInput(input); err != nil {
		return 0, err
	}
	status, ok := constants.ParseParcelStatus(input.Status)
	if !ok {
		return 0, ErrInvalidParcelStatus
	}
	ids := uniqueIDs(input.IDs)

	var changes []parcelChange
	err := s.parcelRepo.Transaction(func(tx *gorm.DB) error {
		rows, err := s.parcelRepo.WithTx(tx).ListByIDsForUpdate(ids)
		if err != nil {
			return err
		}
		if len(rows) != len(ids) {
			return ErrParcelNotFound
		}
		changes = make([]parcelChange, 0, len(rows))
		var outbox []*models.NotificationEvent
		for i := range rows {
			change, err := s.transition(tx, &rows[i], status, nil, caller.ID)
			if err != nil {
				return err
			}
			changes = append(changes, change)
			outbox = append(outbox, change.outbox...)
		}
		return s.notifications.Record(tx, outbox...)
	})
	if err != nil {
		return 0, err
	}
	s.afterStatusChange(changes...)

	var affected int64
	for _, change := range changes {
		if change.applied {
			affected++
		}
	}
	return affected, nil
}

// Delete 管理员软删除，保留全部字段
func (s *ParcelService) Delete(ctx context.Context, caller Caller, id uint) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	parcel, err := s.parcelRepo.GetByID(id)
	if err != nil {
		return err
	}
	if parcel == nil {
		return ErrParcelNotFound
	}
	ok, err := s.parcelRepo.SoftDelete(id, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrParcelNotFound
	}
	logger.Infow("parcel_deleted", "parcel_id", id, "operator_id", caller.ID)
	s.publisher.PublishAsync(events.NewParcelEvent(events.TypeParcelDeleted, parcel, parcel.Status))
	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// isParcelVisible 寄件人、收件人或建档前按邮箱匹配的收件人可见
func isParcelVisible(caller Caller, parcel *models.Parcel) bool {
	if caller.IsAdmin() {
		return true
	}
	if caller.ID != 0 && (parcel.SenderID == caller.ID || parcel.ReceiverID == caller.ID) {
		return true
	}
	email := caller.NormalizedEmail()
	return email != "" && normalizeEmail(parcel.ReceiverEmail) == email
}
