package livemap

import (
	"context"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/OpenTransitTools/delaycast/business/data/gtfs"
)

//JoinVehicles builds a gtfs.VehicleRecord for every vehicle position entity in feed order, with the delay of the
//trip it serves. Fields missing from the feed are left at their zero value.
func JoinVehicles(feed *gtfsrt.FeedMessage, delays gtfs.TripDelays) []gtfs.VehicleRecord {
	var vehicles []gtfs.VehicleRecord
	for _, entity := range feed.GetEntity() {
		vehicle := entity.GetVehicle()
		if vehicle == nil {
			continue
		}
		trip := vehicle.GetTrip()
		vehicles = append(vehicles, gtfs.VehicleRecord{
			VehicleId: vehicle.GetVehicle().GetId(),
			Latitude:  float64(vehicle.GetPosition().GetLatitude()),
			Longitude: float64(vehicle.GetPosition().GetLongitude()),
			Delay:     delays.Lookup(trip.GetTripId()),
			RouteId:   trip.GetRouteId(),
		})
	}
	return vehicles
}

//feedLocations are the two feeds joined to produce vehicle records
type feedLocations struct {
	tripUpdatesUrl      string
	vehiclePositionsUrl string
}

//LoadVehicleData fetches the trip update feed, extracts delays, then fetches vehicle positions and joins them
func LoadVehicleData(ctx context.Context,
	fetcher *FeedFetcher,
	tripUpdatesUrl string,
	vehiclePositionsUrl string) []gtfs.VehicleRecord {
	delays := ExtractTripDelays(fetcher.Fetch(ctx, tripUpdatesUrl))
	return JoinVehicles(fetcher.Fetch(ctx, vehiclePositionsUrl), delays)
}

//load runs LoadVehicleData for both feed locations
func (f feedLocations) load(ctx context.Context, fetcher *FeedFetcher) []gtfs.VehicleRecord {
	return LoadVehicleData(ctx, fetcher, f.tripUpdatesUrl, f.vehiclePositionsUrl)
}

//invalidate drops both feeds from fetcher's cache
func (f feedLocations) invalidate(fetcher *FeedFetcher) {
	fetcher.Invalidate(f.tripUpdatesUrl)
	fetcher.Invalidate(f.vehiclePositionsUrl)
}
