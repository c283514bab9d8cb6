package geo

import (
	"errors"
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want, eps              float64
	}{
		{"same point", 52.52, 13.405, 52.52, 13.405, 0, 1e-9},
		{"quarter meridian", 0, 0, 90, 0, math.Pi / 2 * EarthRadiusMeters, 1e-6},
		{"antipodal", 0, 0, 0, 180, math.Pi * EarthRadiusMeters, 1e-6},
		{"berlin to hamburg", 52.52, 13.405, 53.5511, 9.9937, 255_000, 2_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.want) > tt.eps {
				t.Fatalf("Haversine = %f, want %f ± %f", got, tt.want, tt.eps)
			}
			back := Haversine(tt.lat2, tt.lon2, tt.lat1, tt.lon1)
			if math.Abs(got-back) > 1e-6 {
				t.Fatalf("not symmetric: %f vs %f", got, back)
			}
		})
	}
}

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		lat, lon float64
		want     bool
	}{
		{0, 0, true},
		{90, 180, true},
		{-90, -180, true},
		{90.1, 0, false},
		{0, -180.5, false},
	}
	for _, tt := range tests {
		if got := ValidateCoordinates(tt.lat, tt.lon); got != tt.want {
			t.Errorf("ValidateCoordinates(%v, %v) = %v, want %v", tt.lat, tt.lon, got, tt.want)
		}
	}
}

func TestParseLatLon(t *testing.T) {
	lat, lon, err := ParseLatLon(" 52.5 , 13.4 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lat != 52.5 || lon != 13.4 {
		t.Fatalf("got %v,%v", lat, lon)
	}

	tests := []struct {
		in   string
		want error
	}{
		{"52.5", ErrMalformed},
		{"x,13", ErrLatitude},
		{"95,13", ErrLatitude},
		{"52,181", ErrLongitude},
		{"52,", ErrLongitude},
	}
	for _, tt := range tests {
		if _, _, err := ParseLatLon(tt.in); !errors.Is(err, tt.want) {
			t.Errorf("ParseLatLon(%q) err = %v, want %v", tt.in, err, tt.want)
		}
	}
}
