package presenter

import (
	"math"
	"testing"
)

func TestKelvinToCelsius(t *testing.T) {
	tests := []struct {
		kelvin float64
		want   int
	}{
		{300, 27},
		{273.15, 0},
		{0, -273},
		{274.15, 1},
		{263.15, -10},
		{310.4, 37},
	}

	for _, tt := range tests {
		if got := KelvinToCelsius(tt.kelvin); got != tt.want {
			t.Errorf("KelvinToCelsius(%v) = %d, want %d", tt.kelvin, got, tt.want)
		}
	}
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{20.5, 21},
		{-0.5, 0},
		{-1.5, -1},
		{-1.6, -2},
		{2.49, 2},
	}

	for _, tt := range tests {
		if got := round(tt.in); got != tt.want {
			t.Errorf("round(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMpsToKmh(t *testing.T) {
	tests := []struct {
		speed float64
		want  int
	}{
		{0, 0},
		{1, 4},
		{2.5, 9},
		{4.17, 15},
		{10.3, 37},
		{0.139, 1},
	}

	for _, tt := range tests {
		if got := MpsToKmh(tt.speed); got != tt.want {
			t.Errorf("MpsToKmh(%v) = %d, want %d", tt.speed, got, tt.want)
		}
	}
}

func TestWindDirectionIcon(t *testing.T) {
	tests := []struct {
		degrees float64
		want    string
	}{
		{0, "north"},
		{22.4, "north"},
		{22.5, "northeast"},
		{67.5, "east"},
		{112.5, "southeast"},
		{157.5, "south"},
		{202.5, "southwest"},
		{247.5, "west"},
		{292.5, "northwest"},
		{337.4, "northwest"},
		{337.5, "north"},
		{359.9, "north"},
		{360, "north"},
		{math.NaN(), "unknown"},
	}

	for _, tt := range tests {
		if got := WindDirectionIcon(tt.degrees); got != tt.want {
			t.Errorf("WindDirectionIcon(%v) = %q, want %q", tt.degrees, got, tt.want)
		}
	}
}

func TestAQICategory(t *testing.T) {
	tests := []struct {
		aqi  int
		want string
	}{
		{1, "Good"},
		{2, "Fair"},
		{3, "Moderate"},
		{4, "Poor"},
		{5, "Very Poor"},
		{0, "Unknown"},
		{6, "Unknown"},
		{-1, "Unknown"},
	}

	for _, tt := range tests {
		if got := AQICategory(tt.aqi); got != tt.want {
			t.Errorf("AQICategory(%d) = %q, want %q", tt.aqi, got, tt.want)
		}
	}
}
