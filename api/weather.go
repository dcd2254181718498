package api

import (
	"context"

	"golang.org/x/sync/errgroup"

	"skydash/internal/errorutil"
	"skydash/internal/logger"
)

// CurrentWeatherResponse represents the OpenWeather current weather API response.
// Temperatures are Kelvin; no units parameter is sent.
type CurrentWeatherResponse struct {
	Coord      Coordinates        `json:"coord"`
	Weather    []WeatherCondition `json:"weather"`
	Base       string             `json:"base"`
	Main       MainWeatherData    `json:"main"`
	Visibility int                `json:"visibility"` // meters
	Wind       WindData           `json:"wind"`
	Clouds     CloudData          `json:"clouds"`
	Rain       *PrecipitationData `json:"rain,omitempty"`
	Snow       *PrecipitationData `json:"snow,omitempty"`
	Dt         int64              `json:"dt"`
	Sys        struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	Timezone int    `json:"timezone"` // shift in seconds from UTC
	ID       int    `json:"id"`
	Name     string `json:"name"`
}

// ForecastResponse represents the 5-day / 3-hour forecast response
type ForecastResponse struct {
	Cnt  int            `json:"cnt"`
	List []ForecastItem `json:"list"`
	City CityInfo       `json:"city"`
}

// ForecastItem represents a single 3-hour forecast entry
type ForecastItem struct {
	Dt         int64              `json:"dt"`
	Main       MainWeatherData    `json:"main"`
	Weather    []WeatherCondition `json:"weather"`
	Clouds     CloudData          `json:"clouds"`
	Wind       WindData           `json:"wind"`
	Visibility int                `json:"visibility"`
	Pop        float64            `json:"pop"`
	Rain       *PrecipitationData `json:"rain,omitempty"`
	Snow       *PrecipitationData `json:"snow,omitempty"`
	DtTxt      string             `json:"dt_txt"`
}

// MainWeatherData contains temperature, pressure, and humidity information
type MainWeatherData struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Pressure  float64 `json:"pressure"` // hPa
	Humidity  int     `json:"humidity"` // percent
}

// WeatherCondition represents weather condition details
type WeatherCondition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// CloudData contains cloud coverage information
type CloudData struct {
	All int `json:"all"`
}

// WindData contains wind speed (m/s) and direction. Gust is nil when the payload omits it.
type WindData struct {
	Speed float64  `json:"speed"`
	Deg   float64  `json:"deg"`
	Gust  *float64 `json:"gust,omitempty"`
}

// PrecipitationData contains precipitation volume in mm
type PrecipitationData struct {
	OneHour   float64 `json:"1h,omitempty"`
	ThreeHour float64 `json:"3h,omitempty"`
}

// CityInfo contains city information from the forecast response
type CityInfo struct {
	ID       int         `json:"id"`
	Name     string      `json:"name"`
	Coord    Coordinates `json:"coord"`
	Country  string      `json:"country"`
	Timezone int         `json:"timezone"`
	Sunrise  int64       `json:"sunrise"`
	Sunset   int64       `json:"sunset"`
}

// Coordinates represents latitude and longitude
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// AirPollutionResponse represents the current air pollution response
type AirPollutionResponse struct {
	Coord Coordinates         `json:"coord"`
	List  []AirPollutionEntry `json:"list"`
}

// AirPollutionEntry is one air quality reading
type AirPollutionEntry struct {
	Dt   int64 `json:"dt"`
	Main struct {
		AQI int `json:"aqi"` // 1 (good) to 5 (very poor)
	} `json:"main"`
	Components AirComponents `json:"components"`
}

// AirComponents holds pollutant concentrations in μg/m³
type AirComponents struct {
	CO   float64 `json:"co"`
	NO   float64 `json:"no"`
	NO2  float64 `json:"no2"`
	O3   float64 `json:"o3"`
	SO2  float64 `json:"so2"`
	PM25 float64 `json:"pm2_5"`
	PM10 float64 `json:"pm10"`
	NH3  float64 `json:"nh3"`
}

func coordParams(lat, lon float64) map[string]string {
	return map[string]string{
		"lat": formatCoord(lat),
		"lon": formatCoord(lon),
	}
}

// GetCurrentWeather fetches current conditions for a coordinate
func (c *OpenWeatherClient) GetCurrentWeather(ctx context.Context, lat, lon float64) (*CurrentWeatherResponse, error) {
	complete := logger.LogOperationStart("weather_api_current", map[string]any{
		"latitude":  lat,
		"longitude": lon,
	})

	var weather CurrentWeatherResponse
	if err := c.get(ctx, "current weather", weatherEndpoint, coordParams(lat, lon), "", &weather); err != nil {
		complete(err)
		return nil, err
	}

	complete(nil)
	return &weather, nil
}

// GetForecast fetches the 5-day / 3-hour forecast for a coordinate
func (c *OpenWeatherClient) GetForecast(ctx context.Context, lat, lon float64) (*ForecastResponse, error) {
	complete := logger.LogOperationStart("weather_api_forecast", map[string]any{
		"latitude":  lat,
		"longitude": lon,
	})

	var forecast ForecastResponse
	if err := c.get(ctx, "forecast", forecastEndpoint, coordParams(lat, lon), "", &forecast); err != nil {
		complete(err)
		return nil, err
	}

	complete(nil)
	return &forecast, nil
}

// GetAirPollution fetches the current air quality reading for a coordinate
func (c *OpenWeatherClient) GetAirPollution(ctx context.Context, lat, lon float64) (*AirPollutionResponse, error) {
	complete := logger.LogOperationStart("weather_api_air_pollution", map[string]any{
		"latitude":  lat,
		"longitude": lon,
	})

	var air AirPollutionResponse
	if err := c.get(ctx, "air pollution", airEndpoint, coordParams(lat, lon), "", &air); err != nil {
		complete(err)
		return nil, err
	}

	complete(nil)
	return &air, nil
}

// WeatherBundle holds the three payloads the presenter consumes
type WeatherBundle struct {
	Current  *CurrentWeatherResponse
	Forecast *ForecastResponse
	Air      *AirPollutionResponse
}

// GetWeatherBundle fetches current weather, forecast and air pollution concurrently.
// The first failure cancels the remaining requests.
func (c *OpenWeatherClient) GetWeatherBundle(ctx context.Context, lat, lon float64) (*WeatherBundle, error) {
	var bundle WeatherBundle
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		current, err := c.GetCurrentWeather(gctx, lat, lon)
		bundle.Current = current
		return err
	})
	g.Go(func() error {
		forecast, err := c.GetForecast(gctx, lat, lon)
		bundle.Forecast = forecast
		return err
	})
	g.Go(func() error {
		air, err := c.GetAirPollution(gctx, lat, lon)
		bundle.Air = air
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, errorutil.LogAndReturn(logger.Get().Logger, "weather bundle", err, errorutil.GeoContext(lat, lon)...)
	}
	return &bundle, nil
}
