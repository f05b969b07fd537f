package livemap

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/OpenTransitTools/delaycast/business/data/gtfs"
	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
)

//RecorderConfig controls the route delay recorder loop
type RecorderConfig struct {
	EverySeconds     int
	RecordToDatabase bool
	PublishOverNats  bool
	Subject          string
}

//routeDelayPublisher sends route delay observations to their destinations (database and nats)
type routeDelayPublisher struct {
	log              *log.Logger
	db               *sqlx.DB
	natsConnection   *nats.Conn
	subject          string
	recordToDatabase bool
	publishOverNats  bool
}

//makeRouteDelayPublisher creates routeDelayPublisher
func makeRouteDelayPublisher(log *log.Logger,
	db *sqlx.DB,
	natsConnection *nats.Conn,
	cfg RecorderConfig) *routeDelayPublisher {
	return &routeDelayPublisher{
		log:              log,
		db:               db,
		natsConnection:   natsConnection,
		subject:          cfg.Subject,
		recordToDatabase: cfg.RecordToDatabase && db != nil,
		publishOverNats:  cfg.PublishOverNats && natsConnection != nil,
	}
}

//publish sends observations over NATS and records them to the database according to
//publishOverNats and recordToDatabase
func (p *routeDelayPublisher) publish(observations []*gtfs.RouteDelayObservation) {
	now := time.Now()
	for _, observation := range observations {
		observation.CreatedAt = now
	}
	if p.publishOverNats {
		p.sendOverNats(observations)
	}
	if p.recordToDatabase {
		p.record(observations)
	}
}

func (p *routeDelayPublisher) sendOverNats(observations []*gtfs.RouteDelayObservation) {
	jsonData, err := json.Marshal(observations)
	if err != nil {
		p.log.Printf("failed to marshal route delay observations in "+
			"routeDelayPublisher.sendOverNats, error:%v", err)
		return
	}
	err = p.natsConnection.Publish(p.subject, jsonData)
	if err != nil {
		p.log.Printf("failed to send route delay observations in "+
			"routeDelayPublisher.sendOverNats, error:%v", err)
	}
}

func (p *routeDelayPublisher) record(observations []*gtfs.RouteDelayObservation) {
	err := gtfs.RecordRouteDelayObservations(observations, p.db)
	if err != nil {
		p.log.Printf("failed to record %d route delay observations, error:%v", len(observations), err)
	}
}

//routeDelayRecorder turns the joined vehicle feed into route delay observations
type routeDelayRecorder struct {
	log       *log.Logger
	fetcher   *FeedFetcher
	feeds     feedLocations
	holidays  *transitHolidayCalendar
	publisher *routeDelayPublisher
}

//recordOnce loads vehicles, summarizes delays per route and publishes the result
func (r *routeDelayRecorder) recordOnce(ctx context.Context, at time.Time) []*gtfs.RouteDelayObservation {
	vehicles := r.feeds.load(ctx, r.fetcher)
	observations := gtfs.SummarizeRouteDelays(vehicles, at, r.holidays.isHoliday(at))
	r.log.Printf("summarized %d vehicles into %d route delay observations", len(vehicles), len(observations))
	if len(observations) > 0 {
		r.publisher.publish(observations)
	}
	return observations
}

//runRecorderLoop records route delays every cfg.EverySeconds until shutdownSignal
func runRecorderLoop(recorder *routeDelayRecorder,
	cfg RecorderConfig,
	shutdownSignal chan bool) {

	loopDuration := time.Duration(cfg.EverySeconds) * time.Second

	sleepChan := make(chan bool, 1)
	sleep := time.Duration(0) //sleep for zero seconds the first time

	for {

		go func() {
			time.Sleep(sleep)
			sleepChan <- true
		}()

		select {
		case <-shutdownSignal:
			recorder.log.Printf("Exiting recorder loop on shutdown signal")
			return
		case <-sleepChan:
		}

		// mark the time we start working
		start := time.Now()

		ctx, cancel := context.WithTimeout(context.Background(), loopDuration)
		recorder.recordOnce(ctx, start)
		cancel()

		// attempt to run the loop every EverySeconds by subtracting the time it took to perform the work
		workTook := time.Now().Sub(start)

		recorder.log.Printf("recording took %s\n", fmtDuration(workTook))

		// if the work took longer than EverySeconds don't sleep at all on the next loop
		if workTook >= loopDuration {
			sleep = time.Duration(0)
		} else {
			sleep = loopDuration - workTook
		}
	}
}

//fmtDuration returns a string presentation of time.Duration for logging
func fmtDuration(d time.Duration) string {
	d = d.Round(time.Millisecond)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	mill := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d.%d", h, m, mill)
}
