package forecast

import (
	"encoding/json"
	"fmt"
	"os"
)

// Record is a single user facing predicted delay of a route
type Record struct {
	CurrentTime    string `json:"current_time"`
	PredictedTime  string `json:"predicted_time"`
	PredictedDelay string `json:"predicted_delay"`
	Probability    string `json:"probability"`
	Status         string `json:"status"`
	Route          int    `json:"route"`
}

// Status values of Record
const (
	StatusOnTime  = "On time"
	StatusDelayed = "Delayed"
)

// WriteRecords writes records to path as an indented json list
func WriteRecords(path string, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("unable to encode forecast records: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// ReadRecords reads records written by WriteRecords
func ReadRecords(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read forecast records: %w", err)
	}
	var records []Record
	if err = json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("unable to parse forecast records in %s: %w", path, err)
	}
	return records, nil
}
