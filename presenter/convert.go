package presenter

import "math"

// round matches the dashboard's half-up rounding: 26.5 -> 27, -0.5 -> 0
func round(x float64) int {
	return int(math.Floor(x + 0.5))
}

// KelvinToCelsius converts and rounds to a whole degree
func KelvinToCelsius(kelvin float64) int {
	return round(kelvin - 273.15)
}

// MpsToKmh converts meters per second to whole kilometers per hour
func MpsToKmh(speed float64) int {
	return round(speed * 3.6)
}

// WindDirectionIcon maps degrees to one of eight compass sectors.
// North wraps across 0°. Values outside every sector (NaN) map to "unknown".
func WindDirectionIcon(degrees float64) string {
	switch {
	case degrees >= 337.5 || degrees < 22.5:
		return "north"
	case degrees >= 22.5 && degrees < 67.5:
		return "northeast"
	case degrees >= 67.5 && degrees < 112.5:
		return "east"
	case degrees >= 112.5 && degrees < 157.5:
		return "southeast"
	case degrees >= 157.5 && degrees < 202.5:
		return "south"
	case degrees >= 202.5 && degrees < 247.5:
		return "southwest"
	case degrees >= 247.5 && degrees < 292.5:
		return "west"
	case degrees >= 292.5 && degrees < 337.5:
		return "northwest"
	}
	return "unknown"
}

var aqiCategories = map[int]string{
	1: "Good",
	2: "Fair",
	3: "Moderate",
	4: "Poor",
	5: "Very Poor",
}

// AQICategory labels an air quality index; anything outside 1..5 is "Unknown"
func AQICategory(aqi int) string {
	if category, ok := aqiCategories[aqi]; ok {
		return category
	}
	return "Unknown"
}
