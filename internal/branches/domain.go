package branches

import (
	"errors"
	"math"
	"time"
)

// ErrCoordinatePair is returned when only one of latitude/longitude is set.
var ErrCoordinatePair = errors.New("latitude and longitude must be provided together")

// ErrCoordinateRange is returned for out-of-range coordinates.
var ErrCoordinateRange = errors.New("latitude must be within [-90,90] and longitude within [-180,180]")

// Branch is a physical store location.
type Branch struct {
	ID        int64     `json:"id"`
	Name      string    `json:"branch_name"`
	Location  string    `json:"location"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BranchProduct is a product row scoped to one branch with its available
// (unreserved) quantity.
type BranchProduct struct {
	ProductID    int64   `json:"product_id"`
	ProductName  string  `json:"product_name"`
	CategoryName *string `json:"category_name"`
	Price        float64 `json:"price"`
	Quantity     int64   `json:"quantity"`
	Reserved     int64   `json:"reserved_quantity"`
	Available    int64   `json:"available_quantity"`
	Status       string  `json:"status"`
}

// BranchInput carries create/update fields.
type BranchInput struct {
	Name      string
	Location  string
	Latitude  *float64
	Longitude *float64
}

// Validate enforces the coordinate invariants.
func (in BranchInput) Validate() error {
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return ErrCoordinatePair
	}
	if in.Latitude != nil {
		if *in.Latitude < -90 || *in.Latitude > 90 || *in.Longitude < -180 || *in.Longitude > 180 {
			return ErrCoordinateRange
		}
	}
	return nil
}

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance between two points in
// kilometres.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
