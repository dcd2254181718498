package api

import (
	"context"
	"strconv"

	"skydash/internal/logger"
)

// GeocodingResponse is one entry of the /geo/1.0 direct and reverse endpoints
type GeocodingResponse struct {
	Name       string            `json:"name"`
	LocalNames map[string]string `json:"local_names,omitempty"`
	Lat        float64           `json:"lat"`
	Lon        float64           `json:"lon"`
	Country    string            `json:"country"`
	State      string            `json:"state,omitempty"`
}

// DirectGeocode looks up places matching a free-text city query.
// apiKey overrides the configured key when non-empty.
func (c *OpenWeatherClient) DirectGeocode(ctx context.Context, query string, limit int, apiKey string) ([]GeocodingResponse, error) {
	complete := logger.LogOperationStart("direct_geocode", map[string]any{
		"query": query,
		"limit": limit,
	})

	var places []GeocodingResponse
	err := c.get(ctx, "direct geocoding", directGeoEndpoint, map[string]string{
		"q":     query,
		"limit": strconv.Itoa(limit),
	}, apiKey, &places)

	complete(err)
	if err != nil {
		return nil, err
	}
	return places, nil
}

// ReverseGeocode resolves coordinates to named places using the configured key
func (c *OpenWeatherClient) ReverseGeocode(ctx context.Context, lat, lon float64, limit int) ([]GeocodingResponse, error) {
	complete := logger.LogOperationStart("reverse_geocode", map[string]any{
		"latitude":  lat,
		"longitude": lon,
	})

	var places []GeocodingResponse
	err := c.get(ctx, "reverse geocoding", reverseGeoEndpoint, map[string]string{
		"lat":   formatCoord(lat),
		"lon":   formatCoord(lon),
		"limit": strconv.Itoa(limit),
	}, "", &places)

	complete(err)
	if err != nil {
		return nil, err
	}
	return places, nil
}
