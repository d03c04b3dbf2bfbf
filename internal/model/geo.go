package model

// GeoInfo is the result of a GeoIP lookup. Any field may be unset.
type GeoInfo struct {
	Country   string
	City      string
	Latitude  *float64
	Longitude *float64
}
