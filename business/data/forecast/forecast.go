// Package forecast holds the forecast artifacts exchanged between the forecaster and the report
package forecast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// RouteForecasts maps route id to its predicted delay series in minutes.
// A route whose prediction failed is present with a nil series. Routes keep insertion order.
type RouteForecasts struct {
	routes []string
	values map[string][]float64
}

// NewRouteForecasts creates an empty RouteForecasts
func NewRouteForecasts() *RouteForecasts {
	return &RouteForecasts{values: make(map[string][]float64)}
}

// Set records values for routeId, nil marks the route as failed
func (f *RouteForecasts) Set(routeId string, values []float64) {
	if _, present := f.values[routeId]; !present {
		f.routes = append(f.routes, routeId)
	}
	f.values[routeId] = values
}

// Get returns the forecast for routeId, present is false when the route was never recorded
func (f *RouteForecasts) Get(routeId string) (values []float64, present bool) {
	values, present = f.values[routeId]
	return
}

// Routes returns route ids in insertion order
func (f *RouteForecasts) Routes() []string {
	return append([]string(nil), f.routes...)
}

// Len returns the number of routes recorded
func (f *RouteForecasts) Len() int {
	return len(f.routes)
}

// MarshalJSON writes an object with keys in insertion order, failed routes as null
func (f *RouteForecasts) MarshalJSON() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteByte('{')
	for i, route := range f.routes {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(route)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(f.values[route])
		if err != nil {
			return nil, fmt.Errorf("unable to encode forecast for route %s: %w", route, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of route id to list or null, keeping the document's key order
func (f *RouteForecasts) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	token, err := decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("forecasts must be a json object")
	}
	*f = *NewRouteForecasts()
	for decoder.More() {
		token, err = decoder.Token()
		if err != nil {
			return err
		}
		route, ok := token.(string)
		if !ok {
			return fmt.Errorf("unexpected key %v in forecasts", token)
		}
		var values []float64
		if err = decoder.Decode(&values); err != nil {
			return fmt.Errorf("unable to decode forecast for route %s: %w", route, err)
		}
		f.Set(route, values)
	}
	_, err = decoder.Token()
	return err
}

// WriteJSON writes forecasts to path as indented json
func WriteJSON(path string, forecasts *RouteForecasts) error {
	data, err := json.MarshalIndent(forecasts, "", "    ")
	if err != nil {
		return fmt.Errorf("unable to encode forecasts: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// ReadJSON reads forecasts written by WriteJSON
func ReadJSON(path string) (*RouteForecasts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read forecasts: %w", err)
	}
	forecasts := NewRouteForecasts()
	if err = json.Unmarshal(data, forecasts); err != nil {
		return nil, fmt.Errorf("unable to parse forecasts in %s: %w", path, err)
	}
	return forecasts, nil
}

// ToStruct converts forecasts to a google.protobuf.Struct, failed routes become null values
func ToStruct(forecasts *RouteForecasts) (*structpb.Struct, error) {
	fields := make(map[string]interface{}, forecasts.Len())
	for _, route := range forecasts.routes {
		values := forecasts.values[route]
		if values == nil {
			fields[route] = nil
			continue
		}
		list := make([]interface{}, len(values))
		for i, v := range values {
			list[i] = v
		}
		fields[route] = list
	}
	return structpb.NewStruct(fields)
}

// FromStruct converts a google.protobuf.Struct back to forecasts. Routes are ordered by id
// as Struct does not preserve key order.
func FromStruct(s *structpb.Struct) (*RouteForecasts, error) {
	routes := make([]string, 0, len(s.GetFields()))
	for route := range s.GetFields() {
		routes = append(routes, route)
	}
	sort.Strings(routes)
	forecasts := NewRouteForecasts()
	for _, route := range routes {
		value := s.GetFields()[route]
		switch kind := value.GetKind().(type) {
		case *structpb.Value_NullValue:
			forecasts.Set(route, nil)
		case *structpb.Value_ListValue:
			list := kind.ListValue.GetValues()
			values := make([]float64, len(list))
			for i, item := range list {
				number, ok := item.GetKind().(*structpb.Value_NumberValue)
				if !ok {
					return nil, fmt.Errorf("route %s has non numeric forecast value at %d", route, i)
				}
				values[i] = number.NumberValue
			}
			forecasts.Set(route, values)
		default:
			return nil, fmt.Errorf("route %s has unexpected forecast value %v", route, value)
		}
	}
	return forecasts, nil
}

// WriteBinary writes forecasts to path as a serialized google.protobuf.Struct
func WriteBinary(path string, forecasts *RouteForecasts) error {
	s, err := ToStruct(forecasts)
	if err != nil {
		return fmt.Errorf("unable to convert forecasts: %w", err)
	}
	data, err := proto.Marshal(s)
	if err != nil {
		return fmt.Errorf("unable to encode forecasts: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// ReadBinary reads forecasts written by WriteBinary
func ReadBinary(path string) (*RouteForecasts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read forecasts: %w", err)
	}
	s := &structpb.Struct{}
	if err = proto.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("unable to parse forecasts in %s: %w", path, err)
	}
	return FromStruct(s)
}
