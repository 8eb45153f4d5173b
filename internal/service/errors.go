package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// 参数校验
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrPasswordInvalid     = errors.New("password invalid")
	ErrInvalidParcelStatus = errors.New("invalid parcel status")
)

// 资源不存在
var (
	ErrNotFound        = errors.New("not found")
	ErrRequestNotFound = errors.New("parcel request not found")
	ErrParcelNotFound  = errors.New("parcel not found")
)

// 状态冲突
var (
	ErrRequestStatusInvalid   = errors.New("parcel request status does not allow this action")
	ErrRequestNotPending      = errors.New("parcel request is not pending")
	ErrRequestNotApproved     = errors.New("parcel request is not approved")
	ErrParcelStatusTransition = errors.New("parcel status transition not allowed")
	ErrEmailExists            = errors.New("email already registered")
)

// 权限
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("user disabled")
	ErrForbidden          = errors.New("forbidden")
	ErrCannotSendToSelf   = errors.New("cannot send a parcel to yourself")
	ErrReceiverIsAdmin    = errors.New("receiver is an administrator")
	ErrParcelNotDelivered = errors.New("parcel is not delivered")
)

// 内部错误
var (
	ErrTrackingNumberExhausted   = errors.New("tracking number generation exhausted")
	ErrNotificationEventInvalid  = errors.New("notification event invalid")
	ErrNotificationSecretInvalid = errors.New("notification secret invalid")
)

// 邮件
var (
	ErrEmailServiceDisabled      = errors.New("email service disabled")
	ErrEmailServiceNotConfigured = errors.New("email service not configured")
	ErrInvalidEmail              = errors.New("invalid email")
	ErrEmailRecipientRejected    = errors.New("email recipient rejected")
)

// ValidationError 输入校验失败，携带字段级原因
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrInvalidInput.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for field, rule := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, rule))
	}
	return ErrInvalidInput.Error() + ": " + strings.Join(parts, ",")
}

// Unwrap 归类到 ErrInvalidInput
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func newValidationError(field, rule string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: rule}}
}

// fromValidatorError 转换 validator 的字段错误
func fromValidatorError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[fe.Field()] = fe.Tag()
	}
	return out
}
