package model

import (
	"fmt"
	"math"
	"strconv"

	"salah-reminder-bot/internal/domain"
)

// Location is a validated pair of geographic coordinates. It is a value type:
// two locations are equal when both coordinates are equal.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func NewLocation(lat, lng float64) (Location, error) {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return Location{}, fmt.Errorf("%w: latitude %v must be between -90 and 90", domain.ErrInvalidLocation, lat)
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return Location{}, fmt.Errorf("%w: longitude %v must be between -180 and 180", domain.ErrInvalidLocation, lng)
	}
	return Location{Latitude: lat, Longitude: lng}, nil
}

func (l Location) Equal(other Location) bool {
	return l.Latitude == other.Latitude && l.Longitude == other.Longitude
}

func (l Location) String() string {
	return strconv.FormatFloat(l.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(l.Longitude, 'f', -1, 64)
}

// Key is the cache key of the location. Coordinates are rounded to 4 decimals
// (~11m), far below the resolution at which prayer times change.
func (l Location) Key() string {
	return fmt.Sprintf("%.4f,%.4f", l.Latitude, l.Longitude)
}
