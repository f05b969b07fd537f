package main

import (
	"fmt"
	logger "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OpenTransitTools/delaycast/app/live-map/livemap"
	"github.com/OpenTransitTools/delaycast/foundation/database"
	"github.com/OpenTransitTools/delaycast/foundation/httpclient"
	"github.com/ardanlabs/conf"
	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "LIVE_MAP : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	var cfg struct {
		conf.Version
		Args conf.Args
		Web  struct {
			Port int `conf:"default:8080"`
		}
		GTFS struct {
			VehiclePositionsUrl string `conf:"default:https://gtfs.ztp.krakow.pl/VehiclePositions.pb"`
			TripUpdatesUrl      string `conf:"default:https://gtfs.ztp.krakow.pl/TripUpdates.pb"`
			CacheSeconds        int    `conf:"default:60"`
			TimeoutSeconds      int    `conf:"default:10"`
			InsecureSkipVerify  bool   `conf:"default:true"`
		}
		Map struct {
			Title           string  `conf:"default:Kraków Bus & Tram Live Tracker"`
			Attribution     string  `conf:"default:Data: Zarząd Transportu Publicznego w Krakowie (GTFS Realtime)"`
			CenterLatitude  float64 `conf:"default:50.0647"`
			CenterLongitude float64 `conf:"default:19.945"`
			Zoom            int     `conf:"default:12"`
		}
		Recorder struct {
			Enabled          bool   `conf:"default:false"`
			EverySeconds     int    `conf:"default:60"`
			RecordToDatabase bool   `conf:"default:true"`
			PublishOverNats  bool   `conf:"default:false"`
			Subject          string `conf:"default:route-delay-observations"`
		}
		DB struct {
			User       string `conf:"default:postgres"`
			Password   string `conf:"default:postgres,noprint"`
			Host       string `conf:"default:0.0.0.0"`
			Name       string `conf:"default:postgres"`
			DisableTLS bool   `conf:"default:true"`
		}
		NATS struct {
			Url string `conf:"default:nats://localhost:4222"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Live map of transit vehicles colored by trip delay"
	const prefix = "LIVE_MAP"
	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %w", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	// =========================================================================
	// Start Database, only required to record route delays

	var db *sqlx.DB
	if cfg.Recorder.Enabled && cfg.Recorder.RecordToDatabase {
		log.Println("main: Initializing database support")
		db, err = database.Open(database.Config{
			User:       cfg.DB.User,
			Password:   cfg.DB.Password,
			Host:       cfg.DB.Host,
			Name:       cfg.DB.Name,
			DisableTLS: cfg.DB.DisableTLS,
		})
		if err != nil {
			return fmt.Errorf("connecting to db: %w", err)
		}
		defer func() {
			log.Printf("main: Database Stopping : %s", cfg.DB.Host)
			err = db.Close()
			if err != nil {
				log.Printf("main: error closing database: %v", err)
			}
		}()
	}

	// =========================================================================
	// Start NATS, only required to publish route delays

	var natsConn *nats.Conn
	if cfg.Recorder.Enabled && cfg.Recorder.PublishOverNats {
		log.Printf("main: Connecting to NATS at %s", cfg.NATS.Url)
		natsConn, err = nats.Connect(cfg.NATS.Url)
		if err != nil {
			return fmt.Errorf("connecting to nats: %w", err)
		}
		defer natsConn.Close()
	}

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	client := httpclient.NewClient(httpclient.Config{
		Timeout:            time.Duration(cfg.GTFS.TimeoutSeconds) * time.Second,
		InsecureSkipVerify: cfg.GTFS.InsecureSkipVerify,
	})

	livemap.StartServices(log, livemap.Config{
		HttpPort:            cfg.Web.Port,
		TripUpdatesUrl:      cfg.GTFS.TripUpdatesUrl,
		VehiclePositionsUrl: cfg.GTFS.VehiclePositionsUrl,
		CacheDuration:       time.Duration(cfg.GTFS.CacheSeconds) * time.Second,
		Map: livemap.MapOptions{
			Title:           cfg.Map.Title,
			Attribution:     cfg.Map.Attribution,
			CenterLatitude:  cfg.Map.CenterLatitude,
			CenterLongitude: cfg.Map.CenterLongitude,
			Zoom:            cfg.Map.Zoom,
		},
		RecorderEnabled: cfg.Recorder.Enabled,
		Recorder: livemap.RecorderConfig{
			EverySeconds:     cfg.Recorder.EverySeconds,
			RecordToDatabase: cfg.Recorder.RecordToDatabase,
			PublishOverNats:  cfg.Recorder.PublishOverNats,
			Subject:          cfg.Recorder.Subject,
		},
	}, client, db, natsConn, shutdown)
	return nil
}
