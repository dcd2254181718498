package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"skydash/internal/errorutil"
	"skydash/internal/logger"
)

// StaticGeolocator reports a fixed, configured position
type StaticGeolocator struct {
	lat, lon *float64
}

// NewStaticGeolocator returns a geolocator for the given coordinates.
// Missing coordinates make every request fail as position unavailable.
func NewStaticGeolocator(lat, lon *float64) *StaticGeolocator {
	return &StaticGeolocator{lat: lat, lon: lon}
}

func (g *StaticGeolocator) Name() string { return "static" }

func (g *StaticGeolocator) CurrentPosition(ctx context.Context) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, classifyPositionError(err)
	}
	if g.lat == nil || g.lon == nil {
		return Position{}, NewLocationError(LocationPositionUnavailable, errors.New("no coordinates configured"))
	}
	return Position{Latitude: *g.lat, Longitude: *g.lon}, nil
}

// IPGeolocator estimates the position from the public IP via an ip-api.com compatible endpoint
type IPGeolocator struct {
	client *resty.Client
	url    string
}

// ipAPIResponse is the subset of the ip-api.com JSON body we read
type ipAPIResponse struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	City        string  `json:"city"`
	Region      string  `json:"regionName"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// NewIPGeolocator creates an IP-based geolocator querying lookupURL
func NewIPGeolocator(lookupURL, userAgent string, timeout time.Duration) *IPGeolocator {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client := resty.New().
		SetHeader("User-Agent", userAgent).
		SetTimeout(timeout).
		SetRetryCount(0)

	client.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		logger.LogAPIResponse(resp.Request.Method, resp.Request.URL, resp.StatusCode(), resp.Time().String(), len(resp.Body()))
		return nil
	})

	return &IPGeolocator{client: client, url: lookupURL}
}

func (g *IPGeolocator) Name() string { return "ip" }

// CurrentPosition maps 403 to permission denied, other non-2xx and
// status != "success" to position unavailable, and timeouts to the timeout code.
func (g *IPGeolocator) CurrentPosition(ctx context.Context) (Position, error) {
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("fields", "status,message,city,regionName,country,countryCode,lat,lon").
		Get(g.url)
	if err != nil {
		netErr := errorutil.LogNetworkError(logger.Get().Logger, errorutil.NewNetworkError("ip lookup", g.url, err))
		return Position{}, classifyPositionError(netErr)
	}

	if resp.StatusCode() == http.StatusForbidden {
		return Position{}, NewLocationError(LocationPermissionDenied,
			errorutil.NewHTTPStatusError("ip lookup", g.url, resp.StatusCode(), errors.New("lookup refused")))
	}
	if !resp.IsSuccess() {
		return Position{}, NewLocationError(LocationPositionUnavailable,
			errorutil.NewHTTPStatusError("ip lookup", g.url, resp.StatusCode(), fmt.Errorf("unexpected status %s", resp.Status())))
	}

	var data ipAPIResponse
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return Position{}, NewLocationError(LocationPositionUnavailable, fmt.Errorf("decode ip lookup response: %w", err))
	}
	if data.Status != "success" {
		return Position{}, NewLocationError(LocationPositionUnavailable, fmt.Errorf("ip lookup failed: %s", data.Message))
	}

	logger.Debug("IP geolocation resolved to %s, %s (%s)", data.City, data.Region, data.CountryCode)
	return Position{Latitude: data.Lat, Longitude: data.Lon}, nil
}
