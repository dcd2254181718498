package api

import (
	"context"
	"errors"
	"fmt"

	"skydash/internal/errorutil"
	"skydash/internal/logger"
)

const currentLocationName = "Current Location"

// ErrGeolocationUnsupported is returned when no position source is configured
var ErrGeolocationUnsupported = errors.New("geolocation is not supported on this host")

// ErrLocationName wraps failures of the reverse-geocoding step
var ErrLocationName = errors.New("failed to get location name")

// Position is a point reported by a Geolocator
type Position struct {
	Latitude  float64
	Longitude float64
}

// Geolocator reports the caller's current position.
// Failures should be *LocationError; other errors are classified by GetCurrentLocation.
type Geolocator interface {
	Name() string
	CurrentPosition(ctx context.Context) (Position, error)
}

// LocationErrorCode classifies a position failure
type LocationErrorCode int

const (
	LocationUnknown             LocationErrorCode = 0
	LocationPermissionDenied    LocationErrorCode = 1
	LocationPositionUnavailable LocationErrorCode = 2
	LocationTimeout             LocationErrorCode = 3
)

// LocationError is a position failure with a user-facing message
type LocationError struct {
	Code LocationErrorCode
	Err  error
}

// Message returns the text shown to the user for this code
func (e *LocationError) Message() string {
	switch e.Code {
	case LocationPermissionDenied:
		return "Location access was denied"
	case LocationPositionUnavailable:
		return "Location information is unavailable"
	case LocationTimeout:
		return "Location request timed out"
	default:
		return "Unable to retrieve your location"
	}
}

func (e *LocationError) Error() string {
	return e.Message()
}

func (e *LocationError) Unwrap() error {
	return e.Err
}

// NewLocationError builds a LocationError around an underlying cause
func NewLocationError(code LocationErrorCode, err error) *LocationError {
	return &LocationError{Code: code, Err: err}
}

// classifyPositionError maps any geolocator failure onto a LocationError
func classifyPositionError(err error) *LocationError {
	var locErr *LocationError
	if errors.As(err, &locErr) {
		return locErr
	}
	if errorutil.IsTimeout(err) {
		return NewLocationError(LocationTimeout, err)
	}
	return NewLocationError(LocationUnknown, err)
}

// LocationResult is a resolved current location
type LocationResult struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Name    string  `json:"name"`
	Country string  `json:"country"`
	State   string  `json:"state"`
}

// GetCurrentLocation asks the geolocator for a position and names it through
// reverse geocoding with the configured API key. The loading signal is held
// for the whole call.
func (s *SuggestionService) GetCurrentLocation(ctx context.Context) (*LocationResult, error) {
	done := s.beginLoading()
	defer done()

	if s.geo == nil {
		return nil, ErrGeolocationUnsupported
	}

	complete := logger.LogOperationStart("current_location", map[string]any{
		"geolocator": s.geo.Name(),
	})

	posCtx, cancel := context.WithTimeout(ctx, s.opts.LocationTimeout)
	pos, err := s.geo.CurrentPosition(posCtx)
	cancel()
	if err != nil {
		locErr := classifyPositionError(err)
		complete(locErr)
		return nil, locErr
	}

	places, err := s.client.ReverseGeocode(ctx, pos.Latitude, pos.Longitude, 1)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrLocationName, err)
		errorutil.LogWarning(logger.Get().Logger, "current location", err, errorutil.GeoContext(pos.Latitude, pos.Longitude)...)
		complete(err)
		return nil, err
	}

	result := &LocationResult{
		Lat:  pos.Latitude,
		Lon:  pos.Longitude,
		Name: currentLocationName,
	}
	if len(places) > 0 {
		if places[0].Name != "" {
			result.Name = places[0].Name
		}
		result.Country = places[0].Country
		result.State = places[0].State
	}

	complete(nil)
	return result, nil
}
