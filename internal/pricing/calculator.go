// Package pricing 按重量阶梯计算运费。
package pricing

import "github.com/shopspring/decimal"

// Tier 重量阶梯，UpperKg 为含上界，最后一档为零值表示无上限
type Tier struct {
	Label   string          `json:"label"`
	UpperKg decimal.Decimal `json:"upper_kg"`
	RatePer decimal.Decimal `json:"rate_per_kg"`
}

var tiers = []Tier{
	{Label: "light", UpperKg: decimal.NewFromInt(5), RatePer: decimal.NewFromInt(5)},
	{Label: "medium", UpperKg: decimal.NewFromInt(20), RatePer: decimal.NewFromInt(8)},
	{Label: "heavy", UpperKg: decimal.NewFromInt(50), RatePer: decimal.NewFromInt(12)},
	{Label: "freight", RatePer: decimal.NewFromInt(20)},
}

// Tiers 返回阶梯表副本
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

// TierFor 返回重量所在阶梯
func TierFor(weightKg float64) Tier {
	w := decimal.NewFromFloat(weightKg)
	for _, tier := range tiers[:len(tiers)-1] {
		if w.LessThanOrEqual(tier.UpperKg) {
			return tier
		}
	}
	return tiers[len(tiers)-1]
}

// Price 运费 = 重量 × 所在阶梯单价，保留两位小数
func Price(weightKg float64) decimal.Decimal {
	if weightKg <= 0 {
		return decimal.Zero
	}
	tier := TierFor(weightKg)
	return decimal.NewFromFloat(weightKg).Mul(tier.RatePer).Round(2)
}
