package service

import (
	"context"
	"strings"
	"time"

	"github.com/courier-next/internal/constants"
	"github.com/courier-next/internal/geo"
	"github.com/courier-next/internal/models"
	"github.com/courier-next/internal/repository"
)

// ParcelSearchInput 包裹检索条件
type ParcelSearchInput struct {
	Page           int
	PageSize       int
	Status         string
	TrackingNumber string
	Keyword        string
	SenderID       uint
	ReceiverID     uint
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
}

// TrackingView 公开追踪视图，不暴露收发件人身份
type TrackingView struct {
	TrackingNumber       string                     `json:"tracking_number"`
	Status               constants.ParcelStatus     `json:"status"`
	Description          string                     `json:"description"`
	Weight               float64                    `json:"weight"`
	PickupLocation       string                     `json:"pickup_location"`
	PickupLatitude       *float64                   `json:"pickup_latitude"`
	PickupLongitude      *float64                   `json:"pickup_longitude"`
	DestinationLocation  string                     `json:"destination_location"`
	DestinationLatitude  *float64                   `json:"destination_latitude"`
	DestinationLongitude *float64                   `json:"destination_longitude"`
	CurrentLocation      string                     `json:"current_location"`
	CurrentLatitude      *float64                   `json:"current_latitude"`
	CurrentLongitude     *float64                   `json:"current_longitude"`
	Polyline             string                     `json:"polyline"`
	DistanceKm           *float64                   `json:"distance_km"`
	DurationHours        *float64                   `json:"duration_hours"`
	History              []models.ParcelStatusEvent `json:"history"`
	CreatedAt            time.Time                  `json:"created_at"`
	UpdatedAt            time.Time                  `json:"updated_at"`
}

// TrackByNumber 公开追踪，路线计算失败时折线为空
func (s *ParcelService) TrackByNumber(ctx context.Context, trackingNumber string) (*TrackingView, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, newValidationError("tracking_number", "required")
	}
	parcel, err := s.parcelRepo.GetByTrackingNumber(trackingNumber)
	if err != nil {
		return nil, err
	}
	if parcel == nil {
		return nil, ErrParcelNotFound
	}
	history, err := s.eventRepo.ListByParcel(parcel.ID)
	if err != nil {
		return nil, err
	}

	view := &TrackingView{
		TrackingNumber:       parcel.TrackingNumber,
		Status:               parcel.Status,
		Description:          parcel.Description,
		Weight:               parcel.Weight,
		PickupLocation:       parcel.PickupLocation,
		PickupLatitude:       parcel.PickupLatitude,
		PickupLongitude:      parcel.PickupLongitude,
		DestinationLocation:  parcel.DestinationLocation,
		DestinationLatitude:  parcel.DestinationLatitude,
		DestinationLongitude: parcel.DestinationLongitude,
		CurrentLocation:      parcel.CurrentLocation,
		CurrentLatitude:      parcel.CurrentLatitude,
		CurrentLongitude:     parcel.CurrentLongitude,
		History:              history,
		CreatedAt:            parcel.CreatedAt,
		UpdatedAt:            parcel.UpdatedAt,
	}
	origin, destination := trackingRouteEndpoints(parcel)
	if route := geo.BestRoute(ctx, s.geocoder, origin, destination); route != nil {
		view.Polyline = route.Polyline
		distance, duration := route.DistanceKm, route.DurationHours
		view.DistanceKm = &distance
		view.DurationHours = &duration
	}
	return view, nil
}

// trackingRouteEndpoints 送达前取件地到当前位置，送达后取件地到目的地；有坐标用坐标
func trackingRouteEndpoints(parcel *models.Parcel) (string, string) {
	origin := geo.Point(parcel.PickupLocation, parcel.PickupLatitude, parcel.PickupLongitude)
	if parcel.Status.HasArrived() {
		return origin, geo.Point(parcel.DestinationLocation, parcel.DestinationLatitude, parcel.DestinationLongitude)
	}
	return origin, geo.Point(parcel.CurrentLocation, parcel.CurrentLatitude, parcel.CurrentLongitude)
}

// Search 检索包裹，非管理员只能看到与自己相关的包裹
func (s *ParcelService) Search(ctx context.Context, caller Caller, input ParcelSearchInput) ([]models.Parcel, int64, error) {
	if caller.ID == 0 {
		return nil, 0, ErrUnauthorized
	}
	filter := repository.ParcelSearchFilter{
		Page:           input.Page,
		PageSize:       input.PageSize,
		TrackingNumber: input.TrackingNumber,
		Keyword:        strings.TrimSpace(input.Keyword),
		SenderID:       input.SenderID,
		ReceiverID:     input.ReceiverID,
		CreatedFrom:    input.CreatedFrom,
		CreatedTo:      input.CreatedTo,
	}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, ok := constants.ParseParcelStatus(raw)
		if !ok {
			return nil, 0, ErrInvalidParcelStatus
		}
		filter.Status = status
	}
	if !caller.IsAdmin() {
		filter.VisibleTo = caller.ID
		filter.VisibleEmail = caller.NormalizedEmail()
	}
	return s.parcelRepo.Search(filter)
}

// Get 获取包裹详情
func (s *ParcelService) Get(ctx context.Context, caller Caller, id uint) (*models.Parcel, error) {
	parcel, err := s.parcelRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if parcel == nil {
		return nil, ErrParcelNotFound
	}
	if !isParcelVisible(caller, parcel) {
		return nil, ErrForbidden
	}
	return parcel, nil
}

// History 包裹状态流转记录
func (s *ParcelService) History(ctx context.Context, caller Caller, id uint) ([]models.ParcelStatusEvent, error) {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return nil, err
	}
	return s.eventRepo.ListByParcel(id)
}

// EstimateRoute 取件地到目的地的距离与时长，无法计算时返回 nil
func (s *ParcelService) EstimateRoute(ctx context.Context, caller Caller, id uint) (*geo.Route, error) {
	parcel, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	origin := geo.Point(parcel.PickupLocation, parcel.PickupLatitude, parcel.PickupLongitude)
	destination := geo.Point(parcel.DestinationLocation, parcel.DestinationLatitude, parcel.DestinationLongitude)
	return geo.BestRoute(ctx, s.geocoder, origin, destination), nil
}
