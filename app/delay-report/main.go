package main

import (
	"fmt"
	logger "log"
	"math/rand"
	"os"
	"time"

	"github.com/OpenTransitTools/delaycast/app/delay-report/report"
	"github.com/OpenTransitTools/delaycast/business/data/delayhistory"
	"github.com/OpenTransitTools/delaycast/business/data/forecast"
	"github.com/OpenTransitTools/delaycast/foundation/database"
	"github.com/ardanlabs/conf"
	"github.com/jmoiron/sqlx"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "DELAY_REPORT : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
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
		Forecasts struct {
			JsonPath string `conf:"default:raw_forecasts.json"`
		}
		Output struct {
			JsonPath string `conf:"default:forecasts.json"`
		}
		Report struct {
			Steps             int    `conf:"default:4"`
			StepHours         int    `conf:"default:2"`
			ProbabilityMin    int    `conf:"default:95"`
			ProbabilityMax    int    `conf:"default:98"`
			OnTimeProbability string `conf:"default:99.9%"`
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
	cfg.Version.Desc = "Build the predicted delay report from raw forecasts"
	const prefix = "DELAY_REPORT"
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

	forecasts, err := forecast.ReadJSON(cfg.Forecasts.JsonPath)
	if err != nil {
		return err
	}

	records := report.BuildRecords(log, observations, forecasts, report.Options{
		Steps:             cfg.Report.Steps,
		StepDuration:      time.Duration(cfg.Report.StepHours) * time.Hour,
		ProbabilityMin:    cfg.Report.ProbabilityMin,
		ProbabilityMax:    cfg.Report.ProbabilityMax,
		OnTimeProbability: cfg.Report.OnTimeProbability,
	}, rand.New(rand.NewSource(time.Now().UnixNano())))

	if err = forecast.WriteRecords(cfg.Output.JsonPath, records); err != nil {
		return err
	}
	log.Printf("main: Saved %s with %d predictions", cfg.Output.JsonPath, len(records))
	return nil
}
