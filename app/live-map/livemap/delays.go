package livemap

import (
	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/OpenTransitTools/delaycast/business/data/gtfs"
)

//ExtractTripDelays maps each trip in the trip update feed to the arrival delay of its first stop time update
//that carries one. Trips without such an update map to nil. A repeated trip id keeps the last entity's delay.
func ExtractTripDelays(feed *gtfsrt.FeedMessage) gtfs.TripDelays {
	delays := make(gtfs.TripDelays)
	for _, entity := range feed.GetEntity() {
		tripUpdate := entity.GetTripUpdate()
		if tripUpdate == nil {
			continue
		}
		delays[tripUpdate.GetTrip().GetTripId()] = firstArrivalDelay(tripUpdate)
	}
	return delays
}

//firstArrivalDelay scans stop time updates in feed order
func firstArrivalDelay(tripUpdate *gtfsrt.TripUpdate) *int {
	for _, stopTimeUpdate := range tripUpdate.GetStopTimeUpdate() {
		arrival := stopTimeUpdate.GetArrival()
		if arrival == nil || arrival.Delay == nil {
			continue
		}
		delay := int(arrival.GetDelay())
		return &delay
	}
	return nil
}
