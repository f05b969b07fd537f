package livemap

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/bluele/gcache"
	"google.golang.org/protobuf/proto"
)

func intPtr(i int) *int {
	return &i
}

func newTestLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

//makeFeedMessage wraps entities in a FeedMessage with the required header
func makeFeedMessage(entities ...*gtfsrt.FeedEntity) *gtfsrt.FeedMessage {
	return &gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(1704096000),
		},
		Entity: entities,
	}
}

//makeStopTimeUpdate builds a stop time update, with an arrival delay when delay is not nil
func makeStopTimeUpdate(delay *int) *gtfsrt.TripUpdate_StopTimeUpdate {
	update := &gtfsrt.TripUpdate_StopTimeUpdate{}
	if delay != nil {
		update.Arrival = &gtfsrt.TripUpdate_StopTimeEvent{Delay: proto.Int32(int32(*delay))}
	}
	return update
}

func makeTripUpdateEntity(id string, tripId string, stopTimeUpdates ...*gtfsrt.TripUpdate_StopTimeUpdate) *gtfsrt.FeedEntity {
	return &gtfsrt.FeedEntity{
		Id: proto.String(id),
		TripUpdate: &gtfsrt.TripUpdate{
			Trip:           &gtfsrt.TripDescriptor{TripId: proto.String(tripId)},
			StopTimeUpdate: stopTimeUpdates,
		},
	}
}

func makeVehicleEntity(vehicleId string, tripId string, routeId string, lat float32, lon float32) *gtfsrt.FeedEntity {
	return &gtfsrt.FeedEntity{
		Id: proto.String(vehicleId),
		Vehicle: &gtfsrt.VehiclePosition{
			Trip: &gtfsrt.TripDescriptor{
				TripId:  proto.String(tripId),
				RouteId: proto.String(routeId),
			},
			Vehicle:  &gtfsrt.VehicleDescriptor{Id: proto.String(vehicleId)},
			Position: &gtfsrt.Position{Latitude: proto.Float32(lat), Longitude: proto.Float32(lon)},
		},
	}
}

//feedServer serves a replaceable gtfs-rt feed and counts requests
type feedServer struct {
	mu       sync.Mutex
	feed     []byte
	status   int
	requests int
	delay    time.Duration
	server   *httptest.Server
}

func newFeedServer(t *testing.T, feed *gtfsrt.FeedMessage) *feedServer {
	f := &feedServer{status: http.StatusOK}
	f.setFeed(t, feed)
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests++
		delay, status, feed := f.delay, f.status, f.feed
		f.mu.Unlock()
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_, _ = w.Write(feed)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *feedServer) setFeed(t *testing.T, feed *gtfsrt.FeedMessage) {
	data, err := proto.Marshal(feed)
	if err != nil {
		t.Fatalf("unable to marshal test feed: %v", err)
	}
	f.setBytes(data)
}

func (f *feedServer) setBytes(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feed = data
}

func (f *feedServer) setStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

//setDelay holds each response for delay, or until the client gives up
func (f *feedServer) setDelay(delay time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = delay
}

func (f *feedServer) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func (f *feedServer) url() string {
	return f.server.URL
}

//testFeeds holds trip update and vehicle position servers and a fetcher using a test clock
type testFeeds struct {
	tripUpdates      *feedServer
	vehiclePositions *feedServer
	clock            gcache.FakeClock
	fetcher          *FeedFetcher
	locations        feedLocations
}

func newTestFeeds(t *testing.T) *testFeeds {
	tripUpdates := newFeedServer(t, makeFeedMessage(
		makeTripUpdateEntity("1", "trip-late", makeStopTimeUpdate(nil), makeStopTimeUpdate(intPtr(300))),
		makeTripUpdateEntity("2", "trip-early", makeStopTimeUpdate(intPtr(-120))),
		makeTripUpdateEntity("3", "trip-no-delay", makeStopTimeUpdate(nil)),
	))
	vehiclePositions := newFeedServer(t, makeFeedMessage(
		makeVehicleEntity("V1", "trip-late", "52", 50.06, 19.94),
		makeVehicleEntity("V2", "trip-early", "4", 50.07, 19.95),
		makeVehicleEntity("V3", "trip-no-delay", "52", 50.08, 19.96),
		makeVehicleEntity("V4", "trip-unknown", "139", 50.09, 19.97),
	))
	clock := gcache.NewFakeClock()
	return &testFeeds{
		tripUpdates:      tripUpdates,
		vehiclePositions: vehiclePositions,
		clock:            clock,
		fetcher:          NewFeedFetcher(newTestLogger(), http.DefaultClient, time.Minute, clock),
		locations: feedLocations{
			tripUpdatesUrl:      tripUpdates.url(),
			vehiclePositionsUrl: vehiclePositions.url(),
		},
	}
}
