package service

import (
	"context"
	"strings"
	"time"

	"github.com/courier-next/internal/constants"
	"github.com/courier-next/internal/logger"
	"github.com/courier-next/internal/models"
	"github.com/courier-next/internal/repository"

	"gorm.io/gorm"
)

// SubmitParcelRequestInput 寄件申请参数
type SubmitParcelRequestInput struct {
	ReceiverEmail       string     `json:"receiver_email" validate:"required,email,max=255"`
	Description         string     `json:"description" validate:"required,max=1000"`
	Weight              float64    `json:"weight" validate:"gt=0.1,lte=1000"`
	PickupLocation      string     `json:"pickup_location" validate:"required,max=500"`
	DestinationLocation string     `json:"destination_location" validate:"required,max=500"`
	RequestedPickupDate *time.Time `json:"requested_pickup_date"`
	SpecialInstructions string     `json:"special_instructions" validate:"max=1000"`
}

// SetRequestStatusInput 审批参数
type SetRequestStatusInput struct {
	Status     string `json:"status" validate:"required"`
	AdminNotes string `json:"admin_notes" validate:"max=1000"`
}

// RequestListInput 申请列表条件
type RequestListInput struct {
	Page        int
	PageSize    int
	Status      string
	SenderID    uint
	Keyword     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// RequestDecision 审批结果，通过时附带包裹
type RequestDecision struct {
	Request       *models.ParcelRequest `json:"request"`
	Parcel        *models.Parcel        `json:"parcel,omitempty"`
	ParcelCreated bool                  `json:"parcel_created"`
}

// ParcelRequestService 寄件申请状态机
type ParcelRequestService struct {
	requestRepo   repository.ParcelRequestRepository
	userRepo      repository.UserRepository
	identity      *IdentityService
	notifications *NotificationService
	conversion    *ConversionService
}

// NewParcelRequestService 创建寄件申请服务
func NewParcelRequestService(
	requestRepo repository.ParcelRequestRepository,
	userRepo repository.UserRepository,
	identity *IdentityService,
	notifications *NotificationService,
	conversion *ConversionService,
) *ParcelRequestService {
	return &ParcelRequestService{
		requestRepo:   requestRepo,
		userRepo:      userRepo,
		identity:      identity,
		notifications: notifications,
		conversion:    conversion,
	}
}

// Submit 提交寄件申请并通知全部管理员
func (s *ParcelRequestService) Submit(ctx context.Context, caller Caller, input SubmitParcelRequestInput) (*models.ParcelRequest, error) {
	if caller.ID == 0 {
		return nil, ErrUnauthorized
	}
	trimInput(&input.ReceiverEmail, &input.Description, &input.PickupLocation, &input.DestinationLocation, &input.SpecialInstructions)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	sender, err := s.userRepo.GetByID(caller.ID)
	if err != nil {
		return nil, err
	}
	if sender == nil {
		return nil, ErrUnauthorized
	}
	receiverEmail := normalizeEmail(input.ReceiverEmail)
	if receiverEmail == normalizeEmail(sender.Email) {
		return nil, ErrCannotSendToSelf
	}
	receiver, err := s.identity.Lookup(receiverEmail)
	if err != nil {
		return nil, err
	}
	receiverName := ""
	if receiver != nil {
		if receiver.Role == constants.RoleAdmin {
			return nil, ErrReceiverIsAdmin
		}
		receiverName = receiver.DisplayName
	}

	req := &models.ParcelRequest{
		SenderID:            sender.ID,
		ReceiverEmail:       receiverEmail,
		ReceiverName:        receiverName,
		Description:         input.Description,
		Weight:              input.Weight,
		PickupLocation:      input.PickupLocation,
		DestinationLocation: input.DestinationLocation,
		RequestedPickupDate: input.RequestedPickupDate,
		SpecialInstructions: input.SpecialInstructions,
		Status:              constants.RequestStatusPending,
	}
	var outbox []*models.NotificationEvent
	err = s.requestRepo.Transaction(func(tx *gorm.DB) error {
		if err := s.requestRepo.WithTx(tx).Create(req); err != nil {
			return err
		}
		admins, err := s.identity.ListAdmins(tx)
		if err != nil {
			return err
		}
		outbox = newRequestEvents(admins, req, sender.Email)
		return s.notifications.Record(tx, outbox...)
	})
	if err != nil {
		return nil, err
	}
	s.notifications.Dispatch(outbox)
	logger.Infow("parcel_request_submitted",
		"parcel_request_id", req.ID,
		"sender_id", sender.ID,
		"admin_notified", len(outbox),
	)
	return req, nil
}

// SetStatus 管理员审批；重复通过视为重试，返回已有包裹
func (s *ParcelRequestService) SetStatus(ctx context.Context, caller Caller, id uint, input SetRequestStatusInput) (*RequestDecision, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	trimInput(&input.Status, &input.AdminNotes)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	status, ok := constants.ParseRequestStatus(input.Status)
	if !ok {
		return nil, newValidationError("status", "oneof")
	}
	req, err := s.requestRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}

	switch {
	case status == constants.RequestStatusApproved && req.Status == constants.RequestStatusApproved:
		parcel, created, err := s.conversion.convert(ctx, caller, req, nil)
		if err != nil {
			return nil, err
		}
		return s.decision(req.ID, parcel, created)
	case req.Status != constants.RequestStatusPending || status == constants.RequestStatusPending:
		return nil, ErrRequestStatusInvalid
	case status == constants.RequestStatusApproved:
		parcel, created, err := s.conversion.approveAndConvert(ctx, caller, req, input.AdminNotes)
		if err != nil {
			return nil, err
		}
		return s.decision(req.ID, parcel, created)
	default:
		if err := s.reject(caller, req, input.AdminNotes); err != nil {
			return nil, err
		}
		return s.decision(req.ID, nil, false)
	}
}

func (s *ParcelRequestService) reject(caller Caller, req *models.ParcelRequest, notes string) error {
	var outbox []*models.NotificationEvent
	err := s.requestRepo.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		ok, err := s.requestRepo.WithTx(tx).TransitionStatus(req.ID, constants.RequestStatusPending, constants.RequestStatusRejected, map[string]interface{}{
			"admin_notes": notes,
			"reviewed_by": caller.ID,
			"reviewed_at": now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return ErrRequestStatusInvalid
		}
		sender, err := s.userRepo.WithTx(tx).GetByID(req.SenderID)
		if err != nil {
			return err
		}
		if sender == nil {
			return nil
		}
		req.Status = constants.RequestStatusRejected
		req.AdminNotes = notes
		target := targetOf(sender)
		outbox = []*models.NotificationEvent{
			requestStatusEvent(target, req),
			requestRejectedEvent(target, req),
		}
		return s.notifications.Record(tx, outbox...)
	})
	if err != nil {
		return err
	}
	s.notifications.Dispatch(outbox)
	logger.Infow("parcel_request_rejected", "parcel_request_id", req.ID, "operator_id", caller.ID)
	return nil
}

func (s *ParcelRequestService) decision(id uint, parcel *models.Parcel, created bool) (*RequestDecision, error) {
	req, err := s.requestRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	return &RequestDecision{Request: req, Parcel: parcel, ParcelCreated: created}, nil
}

// Delete 软删除待审批的申请，申请人本人或管理员可操作
func (s *ParcelRequestService) Delete(ctx context.Context, caller Caller, id uint) error {
	req, err := s.requestRepo.GetByID(id)
	if err != nil {
		return err
	}
	if req == nil {
		return ErrRequestNotFound
	}
	if !caller.IsAdmin() && req.SenderID != caller.ID {
		return ErrForbidden
	}
	if req.Status != constants.RequestStatusPending {
		return ErrRequestNotPending
	}
	ok, err := s.requestRepo.SoftDelete(id, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrRequestNotPending
	}
	logger.Infow("parcel_request_deleted", "parcel_request_id", id, "operator_id", caller.ID)
	return nil
}

// Get 管理员可查看全部，其他人只能查看自己提交的申请
func (s *ParcelRequestService) Get(ctx context.Context, caller Caller, id uint) (*models.ParcelRequest, error) {
	req, err := s.requestRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if !caller.IsAdmin() && req.SenderID != caller.ID {
		return nil, ErrForbidden
	}
	return req, nil
}

// List 申请列表，非管理员限定为本人
func (s *ParcelRequestService) List(ctx context.Context, caller Caller, input RequestListInput) ([]models.ParcelRequest, int64, error) {
	if caller.ID == 0 {
		return nil, 0, ErrUnauthorized
	}
	filter := repository.ParcelRequestListFilter{
		Page:        input.Page,
		PageSize:    input.PageSize,
		SenderID:    input.SenderID,
		Keyword:     strings.TrimSpace(input.Keyword),
		CreatedFrom: input.CreatedFrom,
		CreatedTo:   input.CreatedTo,
	}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, ok := constants.ParseRequestStatus(raw)
		if !ok {
			return nil, 0, newValidationError("status", "oneof")
		}
		filter.Status = status
	}
	if !caller.IsAdmin() {
		filter.SenderID = caller.ID
	}
	return s.requestRepo.List(filter)
}
