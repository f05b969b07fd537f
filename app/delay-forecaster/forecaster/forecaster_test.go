package forecaster

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenTransitTools/delaycast/business/data/delayhistory"
	"github.com/OpenTransitTools/delaycast/business/data/forecast"
	"github.com/matryer/is"
)

func newTestLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

//fakeRunner loads only models in available and answers predictions with fixed samples,
//failing for contexts whose first value is in failFirstValues
type fakeRunner struct {
	available       map[string]bool
	loadAttempts    []string
	requests        []PredictionRequest
	samples         [][]float64
	failFirstValues map[float64]bool
}

func (f *fakeRunner) LoadModel(_ context.Context, modelName string, _ string) error {
	f.loadAttempts = append(f.loadAttempts, modelName)
	if f.available[modelName] {
		return nil
	}
	return errors.New("model not found: " + modelName)
}

func (f *fakeRunner) Predict(_ context.Context, request PredictionRequest) (PredictionResponse, error) {
	f.requests = append(f.requests, request)
	if len(request.Context) > 0 && f.failFirstValues[request.Context[0]] {
		return PredictionResponse{}, errors.New("prediction failed")
	}
	return PredictionResponse{Samples: f.samples}, nil
}

func TestLoadFirstAvailableModel(t *testing.T) {
	tests := []struct {
		name      string
		available map[string]bool
		want      string
		wantErr   error
		attempts  int
	}{
		{
			name:      "first",
			available: map[string]bool{"amazon/chronos-t5-tiny": true, "amazon/chronos-t5-small": true},
			want:      "amazon/chronos-t5-tiny",
			attempts:  1,
		},
		{
			name:      "fallback",
			available: map[string]bool{"amazon/chronos-bolt-tiny": true},
			want:      "amazon/chronos-bolt-tiny",
			attempts:  3,
		},
		{
			name:      "none",
			available: map[string]bool{},
			wantErr:   ErrNoModelAvailable,
			attempts:  3,
		},
	}
	modelNames := []string{"amazon/chronos-t5-tiny", "amazon/chronos-t5-small", "amazon/chronos-bolt-tiny"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			runner := &fakeRunner{available: tt.available}
			got, err := LoadFirstAvailableModel(context.Background(), newTestLogger(), runner, modelNames, "cpu")
			is.True(errors.Is(err, tt.wantErr))
			is.Equal(got, tt.want)
			is.Equal(len(runner.loadAttempts), tt.attempts)
		})
	}
}

func TestMedianForecast(t *testing.T) {
	tests := []struct {
		name    string
		samples [][]float64
		want    []float64
		wantErr bool
	}{
		{
			name:    "odd sample count",
			samples: [][]float64{{1, 10}, {3, 30}, {2, 20}},
			want:    []float64{2, 20},
		},
		{
			name:    "even sample count takes lower middle",
			samples: [][]float64{{4}, {1}, {3}, {2}},
			want:    []float64{2},
		},
		{
			name:    "single path",
			samples: [][]float64{{1.5, -0.5}},
			want:    []float64{1.5, -0.5},
		},
		{
			name:    "no samples",
			samples: nil,
			wantErr: true,
		},
		{
			name:    "ragged paths",
			samples: [][]float64{{1, 2}, {1}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			got, err := MedianForecast(tt.samples)
			is.Equal(err != nil, tt.wantErr)
			is.Equal(got, tt.want)
		})
	}
}

func makeTestHistory() []delayhistory.Observation {
	at := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	return []delayhistory.Observation{
		{RouteId: "12", Timestamp: at, Delay: 1},
		{RouteId: "3", Timestamp: at, Delay: 99},
		{RouteId: "12", Timestamp: at.Add(time.Hour), Delay: 2},
		{RouteId: "07", Timestamp: at, Delay: 5},
	}
}

func TestForecaster_Run(t *testing.T) {
	is := is.New(t)
	runner := &fakeRunner{
		samples:         [][]float64{{1, 0, 2.5}, {3, 1, 4}, {0, 0, 2}},
		failFirstValues: map[float64]bool{99: true},
	}
	f := NewForecaster(newTestLogger(), runner, "amazon/chronos-t5-tiny", 10, 20)

	forecasts := f.Run(context.Background(), makeTestHistory())
	is.Equal(forecasts.Routes(), []string{"12", "3", "7"})

	values, _ := forecasts.Get("12")
	is.Equal(values, []float64{1, 0, 2.5})
	values, present := forecasts.Get("3")
	is.True(present)
	is.True(values == nil) // failed route recorded as absent

	is.Equal(len(runner.requests), 3)
	is.Equal(runner.requests[0].Context, []float64{1, 2})
	is.Equal(runner.requests[0].ModelName, "amazon/chronos-t5-tiny")
	is.Equal(runner.requests[0].PredictionLength, 10)
	is.Equal(runner.requests[0].NumSamples, 20)

	LogSummary(newTestLogger(), forecasts)
}

func TestWriteArtifacts(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	forecasts := forecast.NewRouteForecasts()
	forecasts.Set("12", []float64{1, 0, 2.5, 0})
	forecasts.Set("3", nil)

	jsonPath := filepath.Join(dir, "raw_forecasts.json")
	binaryPath := filepath.Join(dir, "raw_forecasts.pb")
	is.NoErr(WriteArtifacts(forecasts, jsonPath, binaryPath))

	fromJSON, err := forecast.ReadJSON(jsonPath)
	is.NoErr(err)
	is.Equal(fromJSON.Routes(), []string{"12", "3"})

	fromBinary, err := forecast.ReadBinary(binaryPath)
	is.NoErr(err)
	values, _ := fromBinary.Get("12")
	is.Equal(values, []float64{1, 0, 2.5, 0})
}

func TestRoundValues(t *testing.T) {
	is := is.New(t)
	is.Equal(roundValues([]float64{1.234, -0.006, 2.5}), []float64{1.23, -0.01, 2.5})
}
