// Package forecaster predicts future per route delays from delay history using an external forecasting model
package forecaster

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/OpenTransitTools/delaycast/business/data/delayhistory"
	"github.com/OpenTransitTools/delaycast/business/data/forecast"
)

//ErrNoModelAvailable is returned when none of the configured models could be loaded
var ErrNoModelAvailable = errors.New("could not load any forecasting model")

//LoadFirstAvailableModel tries to load each of modelNames in order and returns the first one that loads
func LoadFirstAvailableModel(ctx context.Context,
	log *log.Logger,
	runner ModelRunner,
	modelNames []string,
	device string) (string, error) {
	for _, modelName := range modelNames {
		log.Printf("Trying to load: %s", modelName)
		err := runner.LoadModel(ctx, modelName, device)
		if err != nil {
			log.Printf("Failed to load %s: %s", modelName, truncate(err.Error(), 100))
			continue
		}
		log.Printf("Successfully loaded %s", modelName)
		return modelName, nil
	}
	return "", ErrNoModelAvailable
}

//MedianForecast reduces sample paths to the median value at each step.
//With an even number of samples the lower of the two middle values is used.
func MedianForecast(samples [][]float64) ([]float64, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no sample paths")
	}
	steps := len(samples[0])
	for i, path := range samples {
		if len(path) != steps {
			return nil, fmt.Errorf("sample path %d has %d steps, expected %d", i, len(path), steps)
		}
	}
	medians := make([]float64, steps)
	column := make([]float64, len(samples))
	for step := 0; step < steps; step++ {
		for i, path := range samples {
			column[i] = path[step]
		}
		sort.Float64s(column)
		medians[step] = column[(len(column)-1)/2]
	}
	return medians, nil
}

//Forecaster predicts the delay series of each route with a loaded model
type Forecaster struct {
	log              *log.Logger
	runner           ModelRunner
	modelName        string
	predictionLength int
	numSamples       int
}

//NewForecaster builds Forecaster using modelName on runner
func NewForecaster(log *log.Logger, runner ModelRunner, modelName string, predictionLength int, numSamples int) *Forecaster {
	return &Forecaster{
		log:              log,
		runner:           runner,
		modelName:        modelName,
		predictionLength: predictionLength,
		numSamples:       numSamples,
	}
}

//ForecastRoute predicts the median delay path following series
func (f *Forecaster) ForecastRoute(ctx context.Context, routeId string, series []float64) ([]float64, error) {
	response, err := f.runner.Predict(ctx, PredictionRequest{
		ModelName:        f.modelName,
		Context:          series,
		PredictionLength: f.predictionLength,
		NumSamples:       f.numSamples,
	})
	if err != nil {
		return nil, err
	}
	return MedianForecast(response.Samples)
}

//Run forecasts every route in observations in order of first appearance. A route whose prediction fails is
//recorded with a nil forecast and the remaining routes are still processed.
func (f *Forecaster) Run(ctx context.Context, observations []delayhistory.Observation) *forecast.RouteForecasts {
	forecasts := forecast.NewRouteForecasts()
	for _, routeId := range delayhistory.RoutesInOrder(observations) {
		series := delayhistory.SeriesForRoute(observations, routeId)
		f.log.Printf("Processing route %s with %d historical data points...", routeId, len(series))
		medians, err := f.ForecastRoute(ctx, routeId, series)
		if err != nil {
			f.log.Printf("warning: error predicting for route %s: %v", routeId, err)
			forecasts.Set(delayhistory.NormalizeRouteId(routeId), nil)
			continue
		}
		f.log.Printf("Predicted delays for route %s: %v", routeId, roundValues(medians))
		forecasts.Set(delayhistory.NormalizeRouteId(routeId), medians)
	}
	return forecasts
}

//LogSummary logs the forecast of every route, or Failed when it has none
func LogSummary(log *log.Logger, forecasts *forecast.RouteForecasts) {
	log.Printf("All forecasts:")
	for _, routeId := range forecasts.Routes() {
		values, _ := forecasts.Get(routeId)
		if len(values) == 0 {
			log.Printf("Route %s: Failed", routeId)
			continue
		}
		log.Printf("Route %s: %v", routeId, roundValues(values))
	}
}

//WriteArtifacts writes forecasts as json to jsonPath and as a serialized protobuf Struct to binaryPath
func WriteArtifacts(forecasts *forecast.RouteForecasts, jsonPath string, binaryPath string) error {
	if err := forecast.WriteJSON(jsonPath, forecasts); err != nil {
		return fmt.Errorf("writing %s: %w", jsonPath, err)
	}
	if len(binaryPath) == 0 {
		return nil
	}
	if err := forecast.WriteBinary(binaryPath, forecasts); err != nil {
		return fmt.Errorf("writing %s: %w", binaryPath, err)
	}
	return nil
}

//roundValues rounds values to 2 decimals for logging
func roundValues(values []float64) []float64 {
	rounded := make([]float64, len(values))
	for i, v := range values {
		rounded[i] = math.Round(v*100) / 100
	}
	return rounded
}

//truncate shortens s to at most n bytes
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
