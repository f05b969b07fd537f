package livemap

import (
	"encoding/json"
	"io"
)

//geoJSONGeometry is a GeoJSON Point
type geoJSONGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

//geoJSONFeature is a GeoJSON Feature carrying Marker as its properties
type geoJSONFeature struct {
	Type       string          `json:"type"`
	Geometry   geoJSONGeometry `json:"geometry"`
	Properties Marker          `json:"properties"`
}

//FeatureCollection is a GeoJSON FeatureCollection of vehicle markers, with the legend as a foreign member
type FeatureCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
	Legend   *Legend          `json:"legend,omitempty"`
}

//featureCollectionRenderer implements Renderer by collecting a FeatureCollection
type featureCollectionRenderer struct {
	collection FeatureCollection
}

//makeFeatureCollectionRenderer creates an empty featureCollectionRenderer
func makeFeatureCollectionRenderer() *featureCollectionRenderer {
	return &featureCollectionRenderer{
		collection: FeatureCollection{
			Type:     "FeatureCollection",
			Features: make([]geoJSONFeature, 0),
		},
	}
}

//DrawMarker adds marker as a Point feature, GeoJSON orders coordinates longitude first
func (f *featureCollectionRenderer) DrawMarker(marker Marker) error {
	f.collection.Features = append(f.collection.Features, geoJSONFeature{
		Type: "Feature",
		Geometry: geoJSONGeometry{
			Type:        "Point",
			Coordinates: [2]float64{marker.Longitude, marker.Latitude},
		},
		Properties: marker,
	})
	return nil
}

//DrawLegend sets the collection's legend
func (f *featureCollectionRenderer) DrawLegend(legend Legend) error {
	f.collection.Legend = &legend
	return nil
}

//writeTo writes the collected features as json
func (f *featureCollectionRenderer) writeTo(w io.Writer) error {
	return json.NewEncoder(w).Encode(f.collection)
}
