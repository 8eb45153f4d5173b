package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/courier-next/internal/constants"
	"github.com/courier-next/internal/i18n"
	"github.com/courier-next/internal/models"
)

// notifyTarget 通知接收方
type notifyTarget struct {
	Email  string
	Locale string
}

func targetOf(user *models.User) notifyTarget {
	if user == nil {
		return notifyTarget{}
	}
	return notifyTarget{Email: user.Email, Locale: user.Locale}
}

// uniqueTargets 去掉空邮箱与重复邮箱
func uniqueTargets(targets ...notifyTarget) []notifyTarget {
	seen := make(map[string]struct{}, len(targets))
	out := make([]notifyTarget, 0, len(targets))
	for _, target := range targets {
		email := normalizeEmail(target.Email)
		if email == "" {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		target.Email = email
		out = append(out, target)
	}
	return out
}

func newEvent(eventType constants.NotificationEventType, target notifyTarget, payload models.JSON) *models.NotificationEvent {
	return &models.NotificationEvent{
		EventType: eventType,
		Recipient: normalizeEmail(target.Email),
		Locale:    target.Locale,
		Payload:   payload,
	}
}

func requestPayload(req *models.ParcelRequest) models.JSON {
	return models.JSON{
		"request_id":     strconv.FormatUint(uint64(req.ID), 10),
		"receiver_email": req.ReceiverEmail,
		"description":    req.Description,
		"weight":         strconv.FormatFloat(req.Weight, 'f', -1, 64),
		"pickup":         req.PickupLocation,
		"destination":    req.DestinationLocation,
		"status":         string(req.Status),
		"admin_notes":    req.AdminNotes,
	}
}

func parcelPayload(parcel *models.Parcel) models.JSON {
	return models.JSON{
		"parcel_id":        strconv.FormatUint(uint64(parcel.ID), 10),
		"tracking_number":  parcel.TrackingNumber,
		"pickup":           parcel.PickupLocation,
		"destination":      parcel.DestinationLocation,
		"current_location": parcel.CurrentLocation,
		"price":            parcel.Price.String(),
		"currency":         parcel.Currency,
		"status":           string(parcel.Status),
	}
}

// newRequestEvents 每个管理员一条
func newRequestEvents(admins []models.User, req *models.ParcelRequest, senderEmail string) []*models.NotificationEvent {
	events := make([]*models.NotificationEvent, 0, len(admins))
	for i := range admins {
		payload := requestPayload(req)
		payload["sender_email"] = senderEmail
		events = append(events, newEvent(constants.NotificationNewRequest, targetOf(&admins[i]), payload))
	}
	return events
}

func requestStatusEvent(target notifyTarget, req *models.ParcelRequest) *models.NotificationEvent {
	return newEvent(constants.NotificationRequestStatus, target, requestPayload(req))
}

func requestRejectedEvent(target notifyTarget, req *models.ParcelRequest) *models.NotificationEvent {
	return newEvent(constants.NotificationRequestRejected, target, requestPayload(req))
}

func parcelCreatedEvents(parcel *models.Parcel, targets ...notifyTarget) []*models.NotificationEvent {
	targets = uniqueTargets(targets...)
	events := make([]*models.NotificationEvent, 0, len(targets))
	for _, target := range targets {
		events = append(events, newEvent(constants.NotificationParcelCreated, target, parcelPayload(parcel)))
	}
	return events
}

func parcelStatusEvents(parcel *models.Parcel, targets ...notifyTarget) []*models.NotificationEvent {
	targets = uniqueTargets(targets...)
	events := make([]*models.NotificationEvent, 0, len(targets))
	for _, target := range targets {
		events = append(events, newEvent(constants.NotificationParcelStatus, target, parcelPayload(parcel)))
	}
	return events
}

// credentialsEvent 临时密码只以密文形式进入发件箱
func (s *NotificationService) credentialsEvent(cred *IssuedCredential, locale string) (*models.NotificationEvent, error) {
	if cred == nil {
		return nil, nil
	}
	sealed, err := s.sealer.Seal(cred.Password)
	if err != nil {
		return nil, err
	}
	event := newEvent(constants.NotificationCredentialsIssued, notifyTarget{Email: cred.Email, Locale: locale}, models.JSON{
		"email":      cred.Email,
		"expires_at": cred.ExpiresAt.UTC().Format(time.RFC3339),
	})
	event.SealedSecret = sealed
	return event, nil
}

func (s *NotificationService) trackingURL(trackingNumber string) string {
	if s.publicURL == "" {
		return trackingNumber
	}
	return s.publicURL + "/track/" + trackingNumber
}

// render 按事件类型与语言生成邮件
func (s *NotificationService) render(event *models.NotificationEvent, secret string) (string, string, error) {
	locale := i18n.NormalizeLocale(event.Locale)
	p := event.Payload
	switch event.EventType {
	case constants.NotificationNewRequest:
		return i18n.Sprintf(locale, "email.new_request.subject", p.String("request_id")),
			i18n.Sprintf(locale, "email.new_request.body",
				p.String("sender_email"), p.String("request_id"), p.String("receiver_email"),
				p.String("description"), p.String("weight"), p.String("pickup"), p.String("destination")),
			nil
	case constants.NotificationRequestStatus:
		return i18n.Sprintf(locale, "email.request_status.subject", p.String("request_id")),
			i18n.Sprintf(locale, "email.request_status.body", p.String("request_id"), statusLabel(locale, "request", p.String("status"))),
			nil
	case constants.NotificationRequestRejected:
		return i18n.Sprintf(locale, "email.request_rejected.subject", p.String("request_id")),
			i18n.Sprintf(locale, "email.request_rejected.body", p.String("request_id"), p.String("admin_notes")),
			nil
	case constants.NotificationParcelCreated:
		tn := p.String("tracking_number")
		return i18n.Sprintf(locale, "email.parcel_created.subject", tn),
			i18n.Sprintf(locale, "email.parcel_created.body",
				tn, p.String("pickup"), p.String("destination"), p.String("price"), p.String("currency"), s.trackingURL(tn)),
			nil
	case constants.NotificationParcelStatus:
		tn := p.String("tracking_number")
		return i18n.Sprintf(locale, "email.parcel_status.subject", tn),
			i18n.Sprintf(locale, "email.parcel_status.body",
				tn, statusLabel(locale, "parcel", p.String("status")), p.String("current_location"), s.trackingURL(tn)),
			nil
	case constants.NotificationCredentialsIssued:
		if secret == "" {
			return "", "", ErrNotificationSecretInvalid
		}
		return i18n.T(locale, "email.credentials.subject"),
			i18n.Sprintf(locale, "email.credentials.body", p.String("email"), secret, p.String("expires_at")),
			nil
	default:
		return "", "", fmt.Errorf("%w: %s", ErrNotificationEventInvalid, event.EventType)
	}
}

func statusLabel(locale, kind, status string) string {
	key := kind + ".status." + strings.ToLower(strings.TrimSpace(status))
	label := i18n.T(locale, key)
	if label == key {
		return status
	}
	return label
}
