package public

import (
	handlershared "github.com/courier-next/internal/http/handlers/shared"
	"github.com/courier-next/internal/http/response"
	"github.com/courier-next/internal/service"

	"github.com/gin-gonic/gin"
)

type mappedHandlerError = handlershared.MappedError

var authErrorRules = []mappedHandlerError{
	{Target: service.ErrEmailExists, Code: response.CodeConflict, Key: "error.email_exists"},
	{Target: service.ErrInvalidCredentials, Code: response.CodeUnauthorized, Key: "error.invalid_credentials"},
	{Target: service.ErrPasswordInvalid, Code: response.CodeBadRequest, Key: "error.password_invalid"},
}

var parcelRequestErrorRules = []mappedHandlerError{
	{Target: service.ErrRequestNotFound, Code: response.CodeNotFound, Key: "error.request_not_found"},
	{Target: service.ErrRequestNotPending, Code: response.CodeConflict, Key: "error.request_not_pending"},
	{Target: service.ErrCannotSendToSelf, Code: response.CodeBadRequest, Key: "error.cannot_send_to_self"},
	{Target: service.ErrReceiverIsAdmin, Code: response.CodeBadRequest, Key: "error.receiver_is_admin"},
}

var parcelErrorRules = []mappedHandlerError{
	{Target: service.ErrParcelNotFound, Code: response.CodeNotFound, Key: "error.parcel_not_found"},
	{Target: service.ErrInvalidParcelStatus, Code: response.CodeBadRequest, Key: "error.parcel_status_invalid"},
	{Target: service.ErrParcelNotDelivered, Code: response.CodeConflict, Key: "error.parcel_not_delivered"},
	{Target: service.ErrParcelStatusTransition, Code: response.CodeConflict, Key: "error.parcel_transition_invalid"},
}

func respondAuthError(c *gin.Context, err error) {
	handlershared.RespondWithMappedError(c, err, authErrorRules, response.CodeInternal, "error.internal")
}

func respondParcelRequestError(c *gin.Context, err error) {
	handlershared.RespondWithMappedError(c, err, parcelRequestErrorRules, response.CodeInternal, "error.internal")
}

func respondParcelError(c *gin.Context, err error) {
	handlershared.RespondWithMappedError(c, err, parcelErrorRules, response.CodeInternal, "error.internal")
}
