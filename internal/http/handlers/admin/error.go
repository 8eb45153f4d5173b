package admin

import (
	handlershared "github.com/courier-next/internal/http/handlers/shared"
	"github.com/courier-next/internal/http/response"
	"github.com/courier-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var parcelRequestErrorRules = []handlershared.MappedError{
	{Target: service.ErrRequestNotFound, Code: response.CodeNotFound, Key: "error.request_not_found"},
	{Target: service.ErrRequestStatusInvalid, Code: response.CodeConflict, Key: "error.request_status_invalid"},
	{Target: service.ErrRequestNotPending, Code: response.CodeConflict, Key: "error.request_not_pending"},
	{Target: service.ErrRequestNotApproved, Code: response.CodeConflict, Key: "error.request_not_approved"},
	{Target: service.ErrReceiverIsAdmin, Code: response.CodeBadRequest, Key: "error.receiver_is_admin"},
	{Target: service.ErrCannotSendToSelf, Code: response.CodeBadRequest, Key: "error.cannot_send_to_self"},
	{Target: service.ErrTrackingNumberExhausted, Code: response.CodeInternal, Key: "error.tracking_exhausted"},
}

var parcelErrorRules = []handlershared.MappedError{
	{Target: service.ErrParcelNotFound, Code: response.CodeNotFound, Key: "error.parcel_not_found"},
	{Target: service.ErrInvalidParcelStatus, Code: response.CodeBadRequest, Key: "error.parcel_status_invalid"},
	{Target: service.ErrParcelStatusTransition, Code: response.CodeConflict, Key: "error.parcel_transition_invalid"},
	{Target: service.ErrReceiverIsAdmin, Code: response.CodeBadRequest, Key: "error.receiver_is_admin"},
	{Target: service.ErrCannotSendToSelf, Code: response.CodeBadRequest, Key: "error.cannot_send_to_self"},
	{Target: service.ErrTrackingNumberExhausted, Code: response.CodeInternal, Key: "error.tracking_exhausted"},
}

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondParcelRequestError(c *gin.Context, err error) {
	handlershared.RespondWithMappedError(c, err, parcelRequestErrorRules, response.CodeInternal, "error.internal")
}

func respondParcelError(c *gin.Context, err error) {
	handlershared.RespondWithMappedError(c, err, parcelErrorRules, response.CodeInternal, "error.internal")
}
