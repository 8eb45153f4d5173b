package public

import (
	handlershared "github.com/courier-next/internal/http/handlers/shared"
	"github.com/courier-next/internal/service"

	"github.com/gin-gonic/gin"
)

func getCaller(c *gin.Context) (service.Caller, bool) {
	return handlershared.CallerFromContext(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}
