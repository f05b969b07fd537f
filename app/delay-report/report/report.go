// Package report turns raw route forecasts into user facing predicted delay records
package report

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/OpenTransitTools/delaycast/business/data/delayhistory"
	"github.com/OpenTransitTools/delaycast/business/data/forecast"
)

//TimeLayout formats current_time and predicted_time
const TimeLayout = "2006-01-02 15:04:05"

//Options controls how forecasts become records
type Options struct {
	//Steps is the number of leading forecast values reported per route
	Steps int
	//StepDuration separates consecutive predicted times
	StepDuration time.Duration
	//ProbabilityMin and ProbabilityMax bound the displayed probability of a delayed step
	ProbabilityMin int
	ProbabilityMax int
	//OnTimeProbability is displayed when the predicted delay is zero
	OnTimeProbability string
}

//DefaultOptions returns the standard report layout, four steps two hours apart
func DefaultOptions() Options {
	return Options{
		Steps:             4,
		StepDuration:      2 * time.Hour,
		ProbabilityMin:    95,
		ProbabilityMax:    98,
		OnTimeProbability: "99.9%",
	}
}

//BuildRecords creates records for every route in observations, ordered by route, anchored on the route's
//latest observed time. Routes without a forecast, or whose id is not an integer, are skipped with a warning.
func BuildRecords(log *log.Logger,
	observations []delayhistory.Observation,
	forecasts *forecast.RouteForecasts,
	options Options,
	random *rand.Rand) []forecast.Record {

	latest := delayhistory.LatestTimestampByRoute(observations)
	records := make([]forecast.Record, 0)
	for _, routeId := range delayhistory.SortedRoutes(observations) {
		route, err := strconv.Atoi(routeId)
		if err != nil {
			log.Printf("warning: skipping route %q, route id is not an integer", routeId)
			continue
		}
		values, present := forecasts.Get(strconv.Itoa(route))
		if !present {
			log.Printf("warning: skipping route %s, no forecast", routeId)
			continue
		}
		if values == nil {
			log.Printf("warning: skipping route %s, forecast failed", routeId)
			continue
		}
		if len(values) > options.Steps {
			values = values[:options.Steps]
		}
		lastObserved := latest[routeId]
		for i, value := range values {
			step := i + 1
			delay := math.Round(value*100) / 100
			record := forecast.Record{
				CurrentTime:    lastObserved.Format(TimeLayout),
				PredictedTime:  lastObserved.Add(time.Duration(step) * options.StepDuration).Format(TimeLayout),
				PredictedDelay: formatMinutes(delay),
				Route:          route,
			}
			if delay == 0 {
				record.Probability = options.OnTimeProbability
				record.Status = forecast.StatusOnTime
			} else {
				record.Probability = fmt.Sprintf("%d%%", randomInclusive(random, options.ProbabilityMin, options.ProbabilityMax))
				record.Status = forecast.StatusDelayed
			}
			records = append(records, record)
		}
	}
	return records
}

//formatMinutes writes delay in the shortest form that keeps a decimal point, "1.0 minutes", "2.25 minutes"
func formatMinutes(delay float64) string {
	text := strconv.FormatFloat(delay, 'f', -1, 64)
	if !strings.ContainsAny(text, ".eE") {
		text += ".0"
	}
	return text + " minutes"
}

//randomInclusive returns an int in [min, max]
func randomInclusive(random *rand.Rand, min int, max int) int {
	if max <= min {
		return min
	}
	return min + random.Intn(max-min+1)
}
