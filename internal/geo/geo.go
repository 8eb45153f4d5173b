// Package geo 封装地址解析与路线估算，所有失败以 *Failure 返回，调用方按尽力而为处理。
package geo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/courier-next/internal/logger"
)

// FailureReason 失败原因
type FailureReason string

const (
	ReasonEmptyInput     FailureReason = "empty_input"
	ReasonNetwork        FailureReason = "network"
	ReasonQuota          FailureReason = "quota"
	ReasonZeroResults    FailureReason = "zero_results"
	ReasonAmbiguous      FailureReason = "ambiguous"
	ReasonInvalidRequest FailureReason = "invalid_request"
	ReasonUnavailable    FailureReason = "unavailable"
	ReasonDecode         FailureReason = "decode"
)

// Failure 地理服务调用失败
type Failure struct {
	Op     string
	Reason FailureReason
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("geo %s failed (%s): %v", f.Op, f.Reason, f.Err)
	}
	return fmt.Sprintf("geo %s failed (%s)", f.Op, f.Reason)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// AsFailure 提取 *Failure
func AsFailure(err error) (*Failure, bool) {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure, true
	}
	return nil, false
}

// Location 解析结果
type Location struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	FormattedAddress string  `json:"formatted_address"`
}

// Route 路线估算结果
type Route struct {
	DistanceKm    float64 `json:"distance_km"`
	DurationHours float64 `json:"duration_hours"`
	Polyline      string  `json:"polyline"`
}

// Geocoder 地理编码与路线服务
type Geocoder interface {
	Resolve(ctx context.Context, address string) (*Location, error)
	ResolveCoordinates(ctx context.Context, lat, lng float64) (*Location, error)
	Route(ctx context.Context, origin, destination string) (*Route, error)
}

// Resolved 尽力解析后的地址：成功时为规范地址与坐标，失败时保留原始文本且坐标为空
type Resolved struct {
	Address  string
	Lat      *float64
	Lng      *float64
	Geocoded bool
}

// Best 尽力解析地址，失败只记录日志
func Best(ctx context.Context, g Geocoder, raw string) Resolved {
	raw = strings.TrimSpace(raw)
	out := Resolved{Address: raw}
	if g == nil || raw == "" {
		return out
	}
	loc, err := g.Resolve(ctx, raw)
	if err != nil || loc == nil {
		logFailure("resolve", err)
		return out
	}
	lat, lng := loc.Lat, loc.Lng
	out.Lat = &lat
	out.Lng = &lng
	out.Geocoded = true
	if formatted := strings.TrimSpace(loc.FormattedAddress); formatted != "" {
		out.Address = formatted
	}
	return out
}

// BestRoute 尽力估算路线，失败返回 nil
func BestRoute(ctx context.Context, g Geocoder, origin, destination string) *Route {
	origin = strings.TrimSpace(origin)
	destination = strings.TrimSpace(destination)
	if g == nil || origin == "" || destination == "" {
		return nil
	}
	route, err := g.Route(ctx, origin, destination)
	if err != nil {
		logFailure("route", err)
		return nil
	}
	return route
}

// Point 将坐标格式化为路线端点，坐标缺失时回退到地址文本
func Point(address string, lat, lng *float64) string {
	if lat != nil && lng != nil {
		return strconv.FormatFloat(*lat, 'f', 6, 64) + "," + strconv.FormatFloat(*lng, 'f', 6, 64)
	}
	return strings.TrimSpace(address)
}

func logFailure(op string, err error) {
	if failure, ok := AsFailure(err); ok {
		logger.Warnw("geo_call_degraded", "op", op, "reason", failure.Reason, "error", failure.Err)
		return
	}
	logger.Warnw("geo_call_degraded", "op", op, "error", err)
}

// Disabled 未配置地图服务时使用，所有调用返回 unavailable
type Disabled struct{}

func (Disabled) Resolve(context.Context, string) (*Location, error) {
	return nil, &Failure{Op: "resolve", Reason: ReasonUnavailable}
}

func (Disabled) ResolveCoordinates(context.Context, float64, float64) (*Location, error) {
	return nil, &Failure{Op: "reverse", Reason: ReasonUnavailable}
}

func (Disabled) Route(context.Context, string, string) (*Route, error) {
	return nil, &Failure{Op: "route", Reason: ReasonUnavailable}
}
