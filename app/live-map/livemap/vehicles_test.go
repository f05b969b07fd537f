package livemap

import (
	"context"
	"testing"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/OpenTransitTools/delaycast/business/data/gtfs"
	"github.com/matryer/is"
	"google.golang.org/protobuf/proto"
)

func TestJoinVehicles(t *testing.T) {
	is := is.New(t)
	delays := gtfs.TripDelays{
		"trip-late":     intPtr(300),
		"trip-no-delay": nil,
	}
	feed := makeFeedMessage(
		makeVehicleEntity("V2", "trip-no-delay", "4", 50.5, 19.5),
		makeTripUpdateEntity("T1", "trip-late", makeStopTimeUpdate(intPtr(300))),
		makeVehicleEntity("V1", "trip-late", "52", 50.25, 19.75),
		makeVehicleEntity("V3", "trip-unknown", "139", 50, 20),
	)

	vehicles := JoinVehicles(feed, delays)
	is.Equal(len(vehicles), 3)

	// feed order is kept
	is.Equal(vehicles[0].VehicleId, "V2")
	is.Equal(vehicles[1].VehicleId, "V1")
	is.Equal(vehicles[2].VehicleId, "V3")

	is.True(vehicles[0].Delay == nil)
	is.Equal(*vehicles[1].Delay, 300)
	is.True(vehicles[2].Delay == nil)

	is.Equal(vehicles[1].RouteId, "52")
	is.Equal(vehicles[1].Latitude, 50.25)
	is.Equal(vehicles[1].Longitude, 19.75)
}

func TestJoinVehicles_DelayMatchesLookup(t *testing.T) {
	is := is.New(t)
	delays := gtfs.TripDelays{"a": intPtr(1), "b": nil, "c": intPtr(-90)}
	feed := makeFeedMessage(
		makeVehicleEntity("1", "a", "1", 0, 0),
		makeVehicleEntity("2", "b", "1", 0, 0),
		makeVehicleEntity("3", "c", "1", 0, 0),
		makeVehicleEntity("4", "d", "1", 0, 0),
	)
	tripIds := []string{"a", "b", "c", "d"}
	for i, vehicle := range JoinVehicles(feed, delays) {
		is.Equal(vehicle.Delay, delays[tripIds[i]]) // same pointer or both nil
	}
}

func TestJoinVehicles_MissingFields(t *testing.T) {
	is := is.New(t)
	feed := makeFeedMessage(&gtfsrt.FeedEntity{
		Id:      proto.String("1"),
		Vehicle: &gtfsrt.VehiclePosition{},
	})
	vehicles := JoinVehicles(feed, gtfs.TripDelays{"": intPtr(30)})
	is.Equal(len(vehicles), 1)
	is.Equal(vehicles[0], gtfs.VehicleRecord{Delay: vehicles[0].Delay})
	is.Equal(*vehicles[0].Delay, 30) // a vehicle without a trip matches the trip update without a trip id
}

func TestJoinVehicles_EmptyFeed(t *testing.T) {
	is := is.New(t)
	is.Equal(len(JoinVehicles(&gtfsrt.FeedMessage{}, nil)), 0)
}

func TestLoadVehicleData(t *testing.T) {
	is := is.New(t)
	feeds := newTestFeeds(t)

	vehicles := LoadVehicleData(context.Background(), feeds.fetcher,
		feeds.locations.tripUpdatesUrl, feeds.locations.vehiclePositionsUrl)
	is.Equal(len(vehicles), 4)
	is.Equal(*vehicles[0].Delay, 300)
	is.Equal(*vehicles[1].Delay, -120)
	is.True(vehicles[2].Delay == nil)
	is.True(vehicles[3].Delay == nil)
	is.Equal(feeds.tripUpdates.requestCount(), 1)
	is.Equal(feeds.vehiclePositions.requestCount(), 1)
}

func TestLoadVehicleData_TripUpdatesUnavailable(t *testing.T) {
	is := is.New(t)
	feeds := newTestFeeds(t)
	feeds.tripUpdates.setStatus(500)

	vehicles := feeds.locations.load(context.Background(), feeds.fetcher)
	is.Equal(len(vehicles), 4)
	for _, vehicle := range vehicles {
		is.True(vehicle.Delay == nil)
	}
}
