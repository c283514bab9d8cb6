// Package geo holds coordinate helpers shared by geo filters and the in-memory backend.
package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// EarthRadiusMeters is the mean earth radius used for arc distances.
const EarthRadiusMeters = 6371008.7714

// Coordinate parse errors.
var (
	ErrMalformed = errors.New("want lat,lon")
	ErrLatitude  = errors.New("bad latitude")
	ErrLongitude = errors.New("bad longitude")
)

// ValidateCoordinates checks lat in [-90, 90] and lon in [-180, 180].
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// ParseLatLon parses a "lat,lon" pair and validates the ranges.
func ParseLatLon(s string) (lat, lon float64, err error) {
	latS, lonS, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, ErrMalformed
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(latS), 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, ErrLatitude
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(lonS), 64)
	if err != nil || lon < -180 || lon > 180 {
		return 0, 0, ErrLongitude
	}
	return lat, lon, nil
}

// Haversine returns the great-circle distance in meters.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(a))
}
