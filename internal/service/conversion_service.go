package service

import (
	"context"
	"errors"
	"time"

	"github.com/courier-next/internal/constants"
	"github.com/courier-next/internal/logger"
	"github.com/courier-next/internal/models"
	"github.com/courier-next/internal/repository"

	"gorm.io/gorm"
)

// errConversionRaced 条件更新未命中，说明已被其他请求处理
var errConversionRaced = errors.New("parcel request changed concurrently")

// ConversionService 把已通过的申请幂等地转换为唯一一个包裹
type ConversionService struct {
	requestRepo   repository.ParcelRequestRepository
	parcelRepo    repository.ParcelRepository
	userRepo      repository.UserRepository
	parcels       *ParcelService
	notifications *NotificationService
}

// NewConversionService 创建转换服务
func NewConversionService(
	requestRepo repository.ParcelRequestRepository,
	parcelRepo repository.ParcelRepository,
	userRepo repository.UserRepository,
	parcels *ParcelService,
	notifications *NotificationService,
) *ConversionService {
	return &ConversionService{
		requestRepo:   requestRepo,
		parcelRepo:    parcelRepo,
		userRepo:      userRepo,
		parcels:       parcels,
		notifications: notifications,
	}
}

// approval 审批通过时需要与转换同事务写入的字段
type approval struct {
	AdminID uint
	Notes   string
}

// Convert 转换已通过的申请；返回的 bool 表示本次是否新建
func (s *ConversionService) Convert(ctx context.Context, caller Caller, requestID uint) (*models.Parcel, bool, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, false, err
	}
	req, err := s.requestRepo.GetByID(requestID)
	if err != nil {
		return nil, false, err
	}
	if req == nil {
		return nil, false, ErrRequestNotFound
	}
	if req.Status != constants.RequestStatusApproved {
		return nil, false, ErrRequestNotApproved
	}
	return s.convert(ctx, caller, req, nil)
}

// approveAndConvert PENDING→APPROVED 与建单在同一事务内完成
func (s *ConversionService) approveAndConvert(ctx context.Context, caller Caller, req *models.ParcelRequest, notes string) (*models.Parcel, bool, error) {
	return s.convert(ctx, caller, req, &approval{AdminID: caller.ID, Notes: notes})
}

func (s *ConversionService) convert(ctx context.Context, caller Caller, req *models.ParcelRequest, approve *approval) (*models.Parcel, bool, error) {
	existing, err := s.parcelRepo.GetActiveByRequestID(req.ID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	sender, err := s.userRepo.GetByID(req.SenderID)
	if err != nil {
		return nil, false, err
	}
	if sender == nil {
		return nil, false, ErrNotFound
	}
	requestID := req.ID
	draft := s.parcels.prepareDraft(ctx, CreateParcelInput{
		SenderID:            req.SenderID,
		ReceiverEmail:       req.ReceiverEmail,
		Description:         req.Description,
		Weight:              req.Weight,
		PickupLocation:      req.PickupLocation,
		DestinationLocation: req.DestinationLocation,
	}, &requestID)

	var parcel *models.Parcel
	var outbox []*models.NotificationEvent
	err = s.parcelRepo.Transaction(func(tx *gorm.DB) error {
		requestRepo := s.requestRepo.WithTx(tx)
		if approve != nil {
			now := time.Now()
			ok, err := requestRepo.TransitionStatus(req.ID, constants.RequestStatusPending, constants.RequestStatusApproved, map[string]interface{}{
				"admin_notes": approve.Notes,
				"reviewed_by": approve.AdminID,
				"reviewed_at": now,
			})
			if err != nil {
				return err
			}
			if !ok {
				return errConversionRaced
			}
			req.Status = constants.RequestStatusApproved
			req.AdminNotes = approve.Notes
			req.ReviewedBy = &approve.AdminID
			req.ReviewedAt = &now
		} else {
			locked, err := requestRepo.GetByIDForUpdate(req.ID)
			if err != nil {
				return err
			}
			if locked == nil {
				return ErrRequestNotFound
			}
			if locked.Status != constants.RequestStatusApproved {
				return ErrRequestNotApproved
			}
		}

		created, evts, err := s.parcels.persistDraft(tx, draft, sender, caller.ID)
		if err != nil {
			return err
		}
		if err := requestRepo.LinkParcel(req.ID, created.ID); err != nil {
			return err
		}
		if approve != nil {
			evts = append([]*models.NotificationEvent{requestStatusEvent(targetOf(sender), req)}, evts...)
		}
		if err := s.notifications.Record(tx, evts...); err != nil {
			return err
		}
		parcel, outbox = created, evts
		return nil
	})
	if err != nil {
		if errors.Is(err, errConversionRaced) ||
			repository.UniqueViolationOn(err, repository.ParcelRequestUniqueIndex, repository.ParcelRequestUniqueColumn) {
			return s.resolveLostRace(req.ID, err)
		}
		return nil, false, err
	}

	linked := parcel.ID
	req.ParcelID = &linked
	s.parcels.afterCreate(parcel, outbox)
	logger.Infow("parcel_request_converted",
		"parcel_request_id", req.ID,
		"parcel_id", parcel.ID,
		"operator_id", caller.ID,
	)
	return parcel, true, nil
}

// resolveLostRace 并发输家返回赢家的包裹，不产生任何通知
func (s *ConversionService) resolveLostRace(requestID uint, cause error) (*models.Parcel, bool, error) {
	existing, err := s.parcelRepo.GetActiveByRequestID(requestID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		logger.Infow("parcel_request_conversion_deduplicated",
			"parcel_request_id", requestID,
			"parcel_id", existing.ID,
		)
		return existing, false, nil
	}
	if errors.Is(cause, errConversionRaced) {
		// 条件更新未命中且没有包裹：申请已被拒绝或删除
		req, err := s.requestRepo.GetByID(requestID)
		if err != nil {
			return nil, false, err
		}
		if req == nil {
			return nil, false, ErrRequestNotFound
		}
		return nil, false, ErrRequestStatusInvalid
	}
	return nil, false, cause
}
