package main

import (
	"context"
	"fmt"
	logger "log"
	"os"
	"time"

	"github.com/OpenTransitTools/delaycast/app/delay-forecaster/forecaster"
	"github.com/OpenTransitTools/delaycast/business/data/delayhistory"
	"github.com/OpenTransitTools/delaycast/foundation/database"
	"github.com/ardanlabs/conf"
	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "DELAY_FORECASTER : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	var cfg struct {
		conf.Version
		Args    conf.Args
		History struct {
			Source     string `conf:"default:csv"`
			CsvPath    string `conf:"default:mock_delays.csv"`
			SinceHours int    `conf:"default:168"`
		}
		Model struct {
			Names            []string `conf:"default:amazon/chronos-t5-tiny;amazon/chronos-t5-small;amazon/chronos-bolt-tiny"`
			Device           string   `conf:"default:cpu"`
			PredictionLength int      `conf:"default:10"`
			NumSamples       int      `conf:"default:20"`
			TimeoutSeconds   int      `conf:"default:120"`
		}
		NATS struct {
			Url            string `conf:"default:nats://localhost:4222"`
			LoadSubject    string `conf:"default:forecast-model-load"`
			PredictSubject string `conf:"default:forecast-request"`
		}
		Output struct {
			JsonPath   string `conf:"default:raw_forecasts.json"`
			BinaryPath string `conf:"default:raw_forecasts.pb"`
		}
		DB struct {
			User       string `conf:"default:postgres"`
			Password   string `conf:"default:postgres,noprint"`
			Host       string `conf:"default:0.0.0.0"`
			Name       string `conf:"default:postgres"`
			DisableTLS bool   `conf:"default:true"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Forecast per route delays from delay history"
	const prefix = "DELAY_FORECASTER"
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
	// Load delay history

	var db *sqlx.DB
	if cfg.History.Source == "db" {
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

	since := time.Now().Add(-time.Duration(cfg.History.SinceHours) * time.Hour)
	observations, err := delayhistory.Load(cfg.History.Source, cfg.History.CsvPath, db, since)
	if err != nil {
		return fmt.Errorf("loading delay history: %w", err)
	}
	log.Printf("main: loaded %d delay observations", len(observations))

	// =========================================================================
	// Connect to the model runner

	log.Printf("main: Connecting to NATS at %s", cfg.NATS.Url)
	natsConn, err := nats.Connect(cfg.NATS.Url)
	if err != nil {
		return fmt.Errorf("connecting to nats: %w", err)
	}
	defer natsConn.Close()

	runner := forecaster.NewNatsModelRunner(natsConn, cfg.NATS.LoadSubject, cfg.NATS.PredictSubject,
		time.Duration(cfg.Model.TimeoutSeconds)*time.Second)

	ctx := context.Background()
	log.Println("main: Loading forecasting model (this may take a moment)...")
	modelName, err := forecaster.LoadFirstAvailableModel(ctx, log, runner, cfg.Model.Names, cfg.Model.Device)
	if err != nil {
		return err
	}

	f := forecaster.NewForecaster(log, runner, modelName, cfg.Model.PredictionLength, cfg.Model.NumSamples)
	forecasts := f.Run(ctx, observations)

	if err = forecaster.WriteArtifacts(forecasts, cfg.Output.JsonPath, cfg.Output.BinaryPath); err != nil {
		return err
	}
	forecaster.LogSummary(log, forecasts)
	return nil
}
