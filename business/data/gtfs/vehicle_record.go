// Package gtfs holds records derived from gtfs-realtime feeds and their persistence
package gtfs

// TripDelays maps trip_id to the arrival delay in seconds reported for the trip.
// A nil delay means the trip was present in the trip update feed without any arrival delay.
type TripDelays map[string]*int

// Lookup returns the delay for tripId, nil when the trip is missing or has no delay
func (t TripDelays) Lookup(tripId string) *int {
	if t == nil {
		return nil
	}
	return t[tripId]
}

// VehicleRecord is a vehicle position joined with the delay of the trip it is serving
type VehicleRecord struct {
	VehicleId string  `json:"id"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	// Delay in seconds, positive is late. nil when no delay is known for the vehicle's trip
	Delay   *int   `json:"delay"`
	RouteId string `json:"route"`
}
