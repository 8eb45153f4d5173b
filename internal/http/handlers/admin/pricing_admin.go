package admin

import (
	"github.com/courier-next/internal/http/response"
	"github.com/courier-next/internal/pricing"

	"github.com/gin-gonic/gin"
)

// ListPricingTiers 运费阶梯
func (h *Handler) ListPricingTiers(c *gin.Context) {
	response.Success(c, pricing.Tiers())
}
