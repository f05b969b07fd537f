// Package delayhistory holds historical per route delay observations used to train and anchor delay forecasts
package delayhistory

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/OpenTransitTools/delaycast/foundation/csvfile"
	"github.com/OpenTransitTools/delaycast/foundation/database"
	"github.com/jmoiron/sqlx"
)

// Observation is a single delay value observed on a route
type Observation struct {
	RouteId   string    `db:"route_id"`
	Timestamp time.Time `db:"observed_time"`
	// Delay in minutes
	Delay float64 `db:"delay_minutes"`
}

// TimestampLayouts are the timestamp formats accepted in the timestamp column, tried in order
var TimestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
}

// ReadCSV reads observations from a csv file with route_id, timestamp and delay columns.
// Rows are returned in file order. Timestamps without a zone are read as UTC.
func ReadCSV(r io.Reader, filename string) ([]Observation, error) {
	parser, err := csvfile.NewParser(r, filename)
	if err != nil {
		return nil, err
	}
	var observations []Observation
	err = csvfile.ReadRows(parser, csvfile.RowReaderFunc(func(p *csvfile.Parser) error {
		observation := Observation{
			RouteId:   NormalizeRouteId(p.GetString("route_id", false)),
			Timestamp: p.GetTime("timestamp", false, time.UTC, TimestampLayouts...),
			Delay:     p.GetFloat64("delay", false),
		}
		if err := p.Err(); err != nil {
			return err
		}
		observations = append(observations, observation)
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return observations, nil
}

// ReadCSVFile opens path and reads observations with ReadCSV
func ReadCSVFile(path string) ([]Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open delay history: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return ReadCSV(f, path)
}

// LoadFromDB retrieves route delay observations recorded at or after since, ordered by observed time
func LoadFromDB(db *sqlx.DB, since time.Time) ([]Observation, error) {
	statementString := "select route_id, observed_time, delay_minutes " +
		"from route_delay_observation " +
		"where observed_time >= :since " +
		"order by observed_time, route_id"
	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, db, map[string]interface{}{
		"since": since,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to query route delay observations: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()
	var observations []Observation
	for rows.Next() {
		var observation Observation
		if err = rows.StructScan(&observation); err != nil {
			return nil, err
		}
		observation.RouteId = NormalizeRouteId(observation.RouteId)
		observations = append(observations, observation)
	}
	return observations, rows.Err()
}

// Load retrieves observations from the configured source, "csv" reads csvPath, "db" queries db
func Load(source string, csvPath string, db *sqlx.DB, since time.Time) ([]Observation, error) {
	switch source {
	case "csv", "":
		return ReadCSVFile(csvPath)
	case "db":
		if db == nil {
			return nil, fmt.Errorf("history source db requires a database connection")
		}
		return LoadFromDB(db, since)
	}
	return nil, fmt.Errorf("unknown history source %q", source)
}

// NormalizeRouteId writes integer route ids without leading zeros or a plus sign, so "07" and "7" are the same route.
// Other ids are returned unchanged.
func NormalizeRouteId(routeId string) string {
	n, err := strconv.Atoi(routeId)
	if err != nil {
		return routeId
	}
	return strconv.Itoa(n)
}

// RoutesInOrder returns each route once, in the order it first appears in observations
func RoutesInOrder(observations []Observation) []string {
	seen := make(map[string]bool)
	var routes []string
	for _, observation := range observations {
		if !seen[observation.RouteId] {
			seen[observation.RouteId] = true
			routes = append(routes, observation.RouteId)
		}
	}
	return routes
}

// SeriesForRoute returns the delays observed on routeId in the order they appear in observations
func SeriesForRoute(observations []Observation, routeId string) []float64 {
	var series []float64
	for _, observation := range observations {
		if observation.RouteId == routeId {
			series = append(series, observation.Delay)
		}
	}
	return series
}

// LatestTimestampByRoute returns the most recent observation time of each route
func LatestTimestampByRoute(observations []Observation) map[string]time.Time {
	latest := make(map[string]time.Time)
	for _, observation := range observations {
		if current, present := latest[observation.RouteId]; !present || observation.Timestamp.After(current) {
			latest[observation.RouteId] = observation.Timestamp
		}
	}
	return latest
}

// SortedRoutes returns the distinct routes in ascending order. Routes are compared as integers
// when every route id is an integer, otherwise as strings.
func SortedRoutes(observations []Observation) []string {
	routes := RoutesInOrder(observations)
	numeric := make(map[string]int, len(routes))
	allNumeric := true
	for _, route := range routes {
		n, err := strconv.Atoi(route)
		if err != nil {
			allNumeric = false
			break
		}
		numeric[route] = n
	}
	if allNumeric {
		sort.SliceStable(routes, func(i, j int) bool {
			return numeric[routes[i]] < numeric[routes[j]]
		})
	} else {
		sort.Strings(routes)
	}
	return routes
}
