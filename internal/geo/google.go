package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultGoogleBaseURL = "https://maps.googleapis.com/maps/api"

// GoogleOptions Google Maps 客户端配置
type GoogleOptions struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	Language string
	Region   string
	// HTTPClient 为空时按 Timeout 创建
	HTTPClient *http.Client
}

// GoogleClient Google Maps Geocoding / Directions 客户端
type GoogleClient struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	language   string
	region     string
	httpClient *http.Client
}

// NewGoogleClient 创建客户端
func NewGoogleClient(opts GoogleOptions) *GoogleClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultGoogleBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &GoogleClient{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		timeout:    timeout,
		language:   strings.TrimSpace(opts.Language),
		region:     strings.TrimSpace(opts.Region),
		httpClient: client,
	}
}

type googleGeocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		PartialMatch     bool   `json:"partial_match"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

type googleDirectionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
		Legs []struct {
			Distance struct {
				Value int `json:"value"` // 米
			} `json:"distance"`
			Duration struct {
				Value int `json:"value"` // 秒
			} `json:"duration"`
		} `json:"legs"`
	} `json:"routes"`
}

// Resolve 正向地理编码
func (c *GoogleClient) Resolve(ctx context.Context, address string) (*Location, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, &Failure{Op: "resolve", Reason: ReasonEmptyInput}
	}
	params := url.Values{}
	params.Set("address", address)
	return c.geocode(ctx, "resolve", params)
}

// ResolveCoordinates 逆地理编码
func (c *GoogleClient) ResolveCoordinates(ctx context.Context, lat, lng float64) (*Location, error) {
	params := url.Values{}
	params.Set("latlng", strconv.FormatFloat(lat, 'f', 6, 64)+","+strconv.FormatFloat(lng, 'f', 6, 64))
	return c.geocode(ctx, "reverse", params)
}

func (c *GoogleClient) geocode(ctx context.Context, op string, params url.Values) (*Location, error) {
	var out googleGeocodeResponse
	if err := c.get(ctx, op, "/geocode/json", params, &out); err != nil {
		return nil, err
	}
	if failure := statusFailure(op, out.Status, out.ErrorMessage); failure != nil {
		return nil, failure
	}
	if len(out.Results) == 0 {
		return nil, &Failure{Op: op, Reason: ReasonZeroResults}
	}
	first := out.Results[0]
	if len(out.Results) > 1 && first.PartialMatch {
		return nil, &Failure{Op: op, Reason: ReasonAmbiguous, Err: fmt.Errorf("%d partial matches", len(out.Results))}
	}
	return &Location{
		Lat:              first.Geometry.Location.Lat,
		Lng:              first.Geometry.Location.Lng,
		FormattedAddress: first.FormattedAddress,
	}, nil
}

// Route 路线估算，多段 leg 的距离与时长累加
func (c *GoogleClient) Route(ctx context.Context, origin, destination string) (*Route, error) {
	origin = strings.TrimSpace(origin)
	destination = strings.TrimSpace(destination)
	if origin == "" || destination == "" {
		return nil, &Failure{Op: "route", Reason: ReasonEmptyInput}
	}
	params := url.Values{}
	params.Set("origin", origin)
	params.Set("destination", destination)

	var out googleDirectionsResponse
	if err := c.get(ctx, "route", "/directions/json", params, &out); err != nil {
		return nil, err
	}
	if failure := statusFailure("route", out.Status, out.ErrorMessage); failure != nil {
		return nil, failure
	}
	if len(out.Routes) == 0 || len(out.Routes[0].Legs) == 0 {
		return nil, &Failure{Op: "route", Reason: ReasonZeroResults}
	}
	var meters, seconds int
	for _, leg := range out.Routes[0].Legs {
		meters += leg.Distance.Value
		seconds += leg.Duration.Value
	}
	return &Route{
		DistanceKm:    roundTo(float64(meters)/1000, 2),
		DurationHours: roundTo(float64(seconds)/3600, 2),
		Polyline:      out.Routes[0].OverviewPolyline.Points,
	}, nil
}

func (c *GoogleClient) get(ctx context.Context, op, path string, params url.Values, dest interface{}) error {
	if c.apiKey == "" {
		return &Failure{Op: op, Reason: ReasonUnavailable, Err: errors.New("api key not configured")}
	}
	params.Set("key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	if c.region != "" {
		params.Set("region", c.region)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return &Failure{Op: op, Reason: ReasonInvalidRequest, Err: stripRequestURL(err)}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Failure{Op: op, Reason: ReasonNetwork, Err: stripRequestURL(err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &Failure{Op: op, Reason: ReasonQuota, Err: fmt.Errorf("http %d", resp.StatusCode)}
	case resp.StatusCode >= 500:
		return &Failure{Op: op, Reason: ReasonUnavailable, Err: fmt.Errorf("http %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		return &Failure{Op: op, Reason: ReasonInvalidRequest, Err: fmt.Errorf("http %d", resp.StatusCode)}
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &Failure{Op: op, Reason: ReasonDecode, Err: err}
	}
	return nil
}

// stripRequestURL 去掉 *url.Error 中的请求地址，地址带有 key 参数
func stripRequestURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

func statusFailure(op, status, message string) *Failure {
	var err error
	if message != "" {
		err = errors.New(message)
	}
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "OK":
		return nil
	case "ZERO_RESULTS", "NOT_FOUND":
		return &Failure{Op: op, Reason: ReasonZeroResults, Err: err}
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		return &Failure{Op: op, Reason: ReasonQuota, Err: err}
	case "REQUEST_DENIED", "INVALID_REQUEST", "MAX_WAYPOINTS_EXCEEDED", "MAX_ROUTE_LENGTH_EXCEEDED":
		return &Failure{Op: op, Reason: ReasonInvalidRequest, Err: err}
	default:
		return &Failure{Op: op, Reason: ReasonUnavailable, Err: err}
	}
}

func roundTo(value float64, places int) float64 {
	factor := math.Pow10(places)
	return math.Round(value*factor) / factor
}
