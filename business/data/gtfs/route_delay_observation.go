package gtfs

import (
	"time"

	"github.com/jmoiron/sqlx"
)

// RouteDelayObservation is the average delay of the vehicles seen on a route at one point in time.
// primary key consists of RouteId, ObservedTime
type RouteDelayObservation struct {
	RouteId      string    `db:"route_id" json:"route_id"`
	ObservedTime time.Time `db:"observed_time" json:"observed_time"`
	//DelayMinutes is the mean delay of vehicles with a known delay, in minutes
	DelayMinutes float64 `db:"delay_minutes" json:"delay_minutes"`
	//VehicleCount is the number of vehicles with a known delay included in DelayMinutes
	VehicleCount int `db:"vehicle_count" json:"vehicle_count"`
	//Holiday is true when ObservedTime falls on an observed holiday
	Holiday   bool      `db:"holiday" json:"holiday"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SummarizeRouteDelays builds one RouteDelayObservation per route from vehicles that have a known delay.
// Results are ordered by the first appearance of each route in vehicles.
func SummarizeRouteDelays(vehicles []VehicleRecord, at time.Time, holiday bool) []*RouteDelayObservation {
	sums := make(map[string]int)
	counts := make(map[string]int)
	var order []string
	for _, vehicle := range vehicles {
		if vehicle.Delay == nil {
			continue
		}
		if _, present := counts[vehicle.RouteId]; !present {
			order = append(order, vehicle.RouteId)
		}
		sums[vehicle.RouteId] += *vehicle.Delay
		counts[vehicle.RouteId]++
	}
	results := make([]*RouteDelayObservation, 0, len(order))
	for _, routeId := range order {
		results = append(results, &RouteDelayObservation{
			RouteId:      routeId,
			ObservedTime: at,
			DelayMinutes: float64(sums[routeId]) / float64(counts[routeId]) / 60.0,
			VehicleCount: counts[routeId],
			Holiday:      holiday,
		})
	}
	return results
}

// RecordRouteDelayObservations saves observations into the database in a single transaction
func RecordRouteDelayObservations(observations []*RouteDelayObservation, db *sqlx.DB) error {
	if len(observations) == 0 {
		return nil
	}
	statementString := "insert into route_delay_observation " +
		"(route_id, " +
		"observed_time, " +
		"delay_minutes, " +
		"vehicle_count, " +
		"holiday, " +
		"created_at) " +
		"values " +
		"(:route_id, " +
		":observed_time, " +
		":delay_minutes, " +
		":vehicle_count, " +
		":holiday, " +
		":created_at)"

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	statementString = tx.Rebind(statementString)
	for _, observation := range observations {
		_, err = tx.NamedExec(statementString, observation)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
