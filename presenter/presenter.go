// Package presenter turns raw OpenWeather payloads into the dashboard view model.
// Every function here is pure apart from the clock and time zone held by Presenter.
package presenter

import (
	"time"

	"skydash/api"
)

const (
	dateLayout    = "Jan 2"
	weekdayLayout = "Monday"
	timeLayout    = "03:04 PM"
	dayKeyLayout  = "2006-01-02"

	maxForecastDays = 5
	maxHourlySlots  = 8

	middayStartHour = 11
	middayEndHour   = 13
)

// WeatherView is the complete dashboard model
type WeatherView struct {
	Current    CurrentWeather  `json:"current"`
	Forecast   []DailyForecast `json:"forecast"`
	Highlights Highlights      `json:"highlights"`
	Hourly     HourlyForecast  `json:"hourly"`
}

type CurrentWeather struct {
	Temperature int        `json:"temperature"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	Date        string     `json:"date"`
	Weekday     string     `json:"weekday"`
	Location    PlaceLabel `json:"location"`
}

type PlaceLabel struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// DailyForecast is the midday reading for one day
type DailyForecast struct {
	Date        string `json:"date"`
	Weekday     string `json:"weekday"`
	Temperature int    `json:"temperature"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type Highlights struct {
	AirQuality AirQuality   `json:"airQuality"`
	SunTime    SunTime      `json:"sunTime"`
	Humidity   IntMeasure   `json:"humidity"`
	Pressure   FloatMeasure `json:"pressure"`
	Visibility FloatMeasure `json:"visibility"`
	FeelsLike  IntMeasure   `json:"feelsLike"`
}

type AirQuality struct {
	Category   string     `json:"category"`
	Value      int        `json:"value"`
	Components Pollutants `json:"components"`
}

// Pollutants are passed through from the payload unchanged (μg/m³)
type Pollutants struct {
	PM25 float64 `json:"pm2_5"`
	SO2  float64 `json:"so2"`
	NO2  float64 `json:"no2"`
	O3   float64 `json:"o3"`
}

type SunTime struct {
	Sunrise string `json:"sunrise"`
	Sunset  string `json:"sunset"`
}

type IntMeasure struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

type FloatMeasure struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// HourlyForecast holds two parallel series over the same slots
type HourlyForecast struct {
	Temperature []HourlyTemperature `json:"temperature"`
	Wind        []HourlyWind        `json:"wind"`
}

type HourlyTemperature struct {
	Time        string `json:"time"`
	Temperature int    `json:"temperature"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

type HourlyWind struct {
	Time      string  `json:"time"`
	Speed     int     `json:"speed"`     // km/h
	Direction float64 `json:"direction"` // degrees
	Icon      string  `json:"icon"`
	Gust      *int    `json:"gust"` // km/h, null when not reported
}

// Presenter builds views relative to a clock and a display time zone
type Presenter struct {
	Now      func() time.Time
	Location *time.Location
}

// New returns a Presenter using the wall clock. A nil loc means time.Local.
func New(loc *time.Location) *Presenter {
	if loc == nil {
		loc = time.Local
	}
	return &Presenter{Now: time.Now, Location: loc}
}

// ProcessWeatherData builds the view with the wall clock in the host time zone
func ProcessWeatherData(current *api.CurrentWeatherResponse, forecast *api.ForecastResponse, air *api.AirPollutionResponse) *WeatherView {
	return New(time.Local).Process(current, forecast, air)
}

// Process returns nil when any payload is missing or the air reading list is empty
func (p *Presenter) Process(current *api.CurrentWeatherResponse, forecast *api.ForecastResponse, air *api.AirPollutionResponse) *WeatherView {
	if current == nil || forecast == nil || air == nil || len(air.List) == 0 {
		return nil
	}

	now := p.Now()
	return &WeatherView{
		Current:    p.current(current, now),
		Forecast:   p.daily(forecast),
		Highlights: p.highlights(current, air.List[0]),
		Hourly:     p.hourly(forecast, now),
	}
}

// condition returns the first reported condition, or a zero value
func condition(conditions []api.WeatherCondition) api.WeatherCondition {
	if len(conditions) == 0 {
		return api.WeatherCondition{}
	}
	return conditions[0]
}

func (p *Presenter) local(unix int64) time.Time {
	return time.Unix(unix, 0).In(p.Location)
}

func (p *Presenter) current(w *api.CurrentWeatherResponse, now time.Time) CurrentWeather {
	cond := condition(w.Weather)
	local := now.In(p.Location)
	return CurrentWeather{
		Temperature: KelvinToCelsius(w.Main.Temp),
		Description: cond.Description,
		Icon:        cond.Icon,
		Date:        local.Format(dateLayout),
		Weekday:     local.Format(weekdayLayout),
		Location: PlaceLabel{
			City:    w.Name,
			Country: w.Sys.Country,
		},
	}
}

// daily keys entries by UTC date, keeps those whose local hour is within the
// midday window, lets the last one per day win and returns at most five days
// in first-seen order.
func (p *Presenter) daily(f *api.ForecastResponse) []DailyForecast {
	var order []string
	days := make(map[string]DailyForecast)

	for _, item := range f.List {
		local := p.local(item.Dt)
		if h := local.Hour(); h < middayStartHour || h > middayEndHour {
			continue
		}

		key := time.Unix(item.Dt, 0).UTC().Format(dayKeyLayout)
		if _, seen := days[key]; !seen {
			order = append(order, key)
		}

		cond := condition(item.Weather)
		days[key] = DailyForecast{
			Date:        local.Format(dateLayout),
			Weekday:     local.Format(weekdayLayout),
			Temperature: KelvinToCelsius(item.Main.Temp),
			Description: cond.Description,
			Icon:        cond.Icon,
		}
	}

	if len(order) > maxForecastDays {
		order = order[:maxForecastDays]
	}
	result := make([]DailyForecast, 0, len(order))
	for _, key := range order {
		result = append(result, days[key])
	}
	return result
}

func (p *Presenter) highlights(w *api.CurrentWeatherResponse, reading api.AirPollutionEntry) Highlights {
	return Highlights{
		AirQuality: AirQuality{
			Category: AQICategory(reading.Main.AQI),
			Value:    reading.Main.AQI,
			Components: Pollutants{
				PM25: reading.Components.PM25,
				SO2:  reading.Components.SO2,
				NO2:  reading.Components.NO2,
				O3:   reading.Components.O3,
			},
		},
		SunTime: SunTime{
			Sunrise: p.local(w.Sys.Sunrise).Format(timeLayout),
			Sunset:  p.local(w.Sys.Sunset).Format(timeLayout),
		},
		Humidity:   IntMeasure{Value: w.Main.Humidity, Unit: "%"},
		Pressure:   FloatMeasure{Value: w.Main.Pressure, Unit: "hPa"},
		Visibility: FloatMeasure{Value: float64(w.Visibility) / 1000, Unit: "km"},
		FeelsLike:  IntMeasure{Value: KelvinToCelsius(w.Main.FeelsLike), Unit: "°C"},
	}
}

// hourly keeps entries whose UTC date is today or tomorrow, without skipping
// past hours. Today is the UTC date of now; tomorrow is the UTC date of the
// local clock advanced by one day.
func (p *Presenter) hourly(f *api.ForecastResponse, now time.Time) HourlyForecast {
	today := now.UTC().Format(dayKeyLayout)
	tomorrow := now.In(p.Location).AddDate(0, 0, 1).UTC().Format(dayKeyLayout)

	result := HourlyForecast{
		Temperature: make([]HourlyTemperature, 0, maxHourlySlots),
		Wind:        make([]HourlyWind, 0, maxHourlySlots),
	}

	for _, item := range f.List {
		if len(result.Temperature) == maxHourlySlots {
			break
		}
		day := time.Unix(item.Dt, 0).UTC().Format(dayKeyLayout)
		if day != today && day != tomorrow {
			continue
		}

		slot := p.local(item.Dt).Format(timeLayout)
		cond := condition(item.Weather)

		result.Temperature = append(result.Temperature, HourlyTemperature{
			Time:        slot,
			Temperature: KelvinToCelsius(item.Main.Temp),
			Icon:        cond.Icon,
			Description: cond.Description,
		})

		var gust *int
		if item.Wind.Gust != nil && *item.Wind.Gust != 0 {
			g := MpsToKmh(*item.Wind.Gust)
			gust = &g
		}
		result.Wind = append(result.Wind, HourlyWind{
			Time:      slot,
			Speed:     MpsToKmh(item.Wind.Speed),
			Direction: item.Wind.Deg,
			Icon:      WindDirectionIcon(item.Wind.Deg),
			Gust:      gust,
		})
	}

	return result
}
