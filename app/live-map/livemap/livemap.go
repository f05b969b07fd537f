// Package livemap serves a live map of transit vehicles colored by how late their trips are running
package livemap

import (
	logger "log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/bluele/gcache"
	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
)

//Config holds everything StartServices needs
type Config struct {
	HttpPort            int
	TripUpdatesUrl      string
	VehiclePositionsUrl string
	CacheDuration       time.Duration
	Map                 MapOptions
	RecorderEnabled     bool
	Recorder            RecorderConfig
}

//StartServices brings up the web service and, when enabled, the route delay recorder. Exits on shutdown signal
func StartServices(log *logger.Logger,
	cfg Config,
	client *http.Client,
	db *sqlx.DB,
	natsConn *nats.Conn,
	shutdownSignal chan os.Signal) {

	wg := sync.WaitGroup{}

	//shared by all requests and the recorder
	fetcher := NewFeedFetcher(log, client, cfg.CacheDuration, gcache.NewRealClock())
	feeds := feedLocations{
		tripUpdatesUrl:      cfg.TripUpdatesUrl,
		vehiclePositionsUrl: cfg.VehiclePositionsUrl,
	}

	//create shutdown channels
	webServiceShutdown := make(chan bool, 1)
	recorderShutdown := make(chan bool, 1)

	wg.Add(1)
	go runWebService(log, &wg, makeVehicleHandler(log, fetcher, feeds, cfg.Map), cfg.HttpPort, webServiceShutdown)

	if cfg.RecorderEnabled {
		recorder := &routeDelayRecorder{
			log:       log,
			fetcher:   fetcher,
			feeds:     feeds,
			holidays:  makeTransitHolidayCalendar(),
			publisher: makeRouteDelayPublisher(log, db, natsConn, cfg.Recorder),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			runRecorderLoop(recorder, cfg.Recorder, recorderShutdown)
		}()
	}

	<-shutdownSignal
	log.Printf("Exiting on shutdown signal, shutting down subroutines")
	webServiceShutdown <- true
	recorderShutdown <- true
	wg.Wait()
	log.Printf("Subroutines shut down, exiting live map")
}
