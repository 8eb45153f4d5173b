package admin

import (
	handlershared "github.com/courier-next/internal/http/handlers/shared"
	"github.com/courier-next/internal/service"

	"github.com/gin-gonic/gin"
)

func getCaller(c *gin.Context) (service.Caller, bool) {
	return handlershared.CallerFromContext(c)
}

func currentRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}
