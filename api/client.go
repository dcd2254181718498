package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"skydash/internal/errorutil"
	"skydash/internal/logger"
)

const (
	defaultBaseURL   = "https://api.openweathermap.org"
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "Skydash/1.0"

	directGeoEndpoint  = "/geo/1.0/direct"
	reverseGeoEndpoint = "/geo/1.0/reverse"
	weatherEndpoint    = "/data/2.5/weather"
	forecastEndpoint   = "/data/2.5/forecast"
	airEndpoint        = "/data/2.5/air_pollution"
)

// ClientOptions configures the OpenWeather HTTP client. Zero values fall back to defaults.
type ClientOptions struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// OpenWeatherClient handles OpenWeather geocoding and weather API interactions
type OpenWeatherClient struct {
	client  *resty.Client
	apiKey  string
	baseURL string
	timeout time.Duration
}

// NewOpenWeatherClient creates a client authenticated with the configured API key.
// Requests are never retried.
func NewOpenWeatherClient(apiKey string, opts ClientOptions) *OpenWeatherClient {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "application/json").
		SetTimeout(opts.Timeout).
		SetRetryCount(0)

	client.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		headers := make(map[string]string)
		for key, values := range req.Header {
			if len(values) > 0 {
				headers[key] = values[0]
			}
		}
		if _, ok := headers["User-Agent"]; !ok {
			headers["User-Agent"] = c.Header.Get("User-Agent")
		}
		logger.LogAPIRequest(req.Method, req.URL, headers)
		return nil
	})

	client.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		logger.LogAPIResponse(resp.Request.Method, resp.Request.URL, resp.StatusCode(), resp.Time().String(), len(resp.Body()))
		return nil
	})

	return &OpenWeatherClient{
		client:  client,
		apiKey:  apiKey,
		baseURL: opts.BaseURL,
		timeout: opts.Timeout,
	}
}

// resolveKey prefers a per-call key and falls back to the configured one
func (c *OpenWeatherClient) resolveKey(override string) string {
	if override != "" {
		return override
	}
	return c.apiKey
}

// get performs a GET against endpoint and decodes a 2xx JSON body into out.
// Transport failures come back as *errorutil.NetworkError; non-2xx responses as
// *errorutil.NetworkError wrapping *OpenWeatherAPIError.
func (c *OpenWeatherClient) get(ctx context.Context, operation, endpoint string, params map[string]string, apiKey string, out any) error {
	url := c.baseURL + endpoint

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("appid", c.resolveKey(apiKey)).
		Get(endpoint)
	if err != nil {
		netErr := errorutil.NewNetworkError(operation, url, err).WithTimeout(c.timeout)
		return errorutil.LogNetworkError(logger.Get().Logger, netErr)
	}

	if !resp.IsSuccess() {
		netErr := errorutil.NewHTTPStatusError(operation, url, resp.StatusCode(), parseOpenWeatherError(resp))
		return errorutil.LogNetworkError(logger.Get().Logger, netErr)
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		attrs := append(errorutil.URLContext(url), errorutil.ProviderContext("openweather", endpoint)...)
		return errorutil.LogAndWrap(logger.Get().Logger, "decode "+operation+" response", err, attrs...)
	}
	return nil
}

// formatCoord renders a coordinate without trailing zeros, e.g. 51.5074 or -0.1
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parseOpenWeatherError creates appropriate error from API response
func parseOpenWeatherError(resp *resty.Response) error {
	statusCode := resp.StatusCode()

	// cod is a number on most endpoints and a string on some
	var apiError struct {
		Cod     json.RawMessage `json:"cod"`
		Message string          `json:"message"`
	}

	if err := json.Unmarshal(resp.Body(), &apiError); err == nil && apiError.Message != "" {
		return &OpenWeatherAPIError{
			StatusCode: statusCode,
			Code:       parseCod(apiError.Cod, statusCode),
			Message:    apiError.Message,
		}
	}

	switch statusCode {
	case 401:
		return &OpenWeatherAPIError{
			StatusCode: statusCode,
			Code:       401,
			Message:    "Invalid API key. Please verify your OpenWeather API key.",
		}
	case 404:
		return &OpenWeatherAPIError{
			StatusCode: statusCode,
			Code:       404,
			Message:    "Location not found. Please check your query or coordinates.",
		}
	case 429:
		return &OpenWeatherAPIError{
			StatusCode: statusCode,
			Code:       429,
			Message:    "API rate limit exceeded. Please try again later.",
		}
	default:
		return &OpenWeatherAPIError{
			StatusCode: statusCode,
			Code:       statusCode,
			Message:    fmt.Sprintf("API request failed with status %d", statusCode),
		}
	}
}

func parseCod(raw json.RawMessage, fallback int) int {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// OpenWeatherAPIError represents an error response from the OpenWeather API
type OpenWeatherAPIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *OpenWeatherAPIError) Error() string {
	return fmt.Sprintf("OpenWeather API error (code %d): %s", e.Code, e.Message)
}
