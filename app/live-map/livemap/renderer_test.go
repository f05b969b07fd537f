package livemap

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestFeatureCollectionRenderer(t *testing.T) {
	is := is.New(t)
	renderer := makeFeatureCollectionRenderer()
	is.NoErr(RenderVehicles(renderer, makeTestVehicles(), AllRoutes))

	buf := new(bytes.Buffer)
	is.NoErr(renderer.writeTo(buf))

	var collection struct {
		Type     string `json:"type"`
		Features []struct {
			Type     string `json:"type"`
			Geometry struct {
				Type        string     `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
		Legend Legend `json:"legend"`
	}
	is.NoErr(json.Unmarshal(buf.Bytes(), &collection))
	is.Equal(collection.Type, "FeatureCollection")
	is.Equal(len(collection.Features), 4)

	first := collection.Features[0]
	is.Equal(first.Type, "Feature")
	is.Equal(first.Geometry.Type, "Point")
	is.Equal(first.Geometry.Coordinates, []float64{19.94, 50.06}) // longitude first
	is.Equal(first.Properties["color"], ColorRed)
	is.Equal(first.Properties["delay_label"], "+5 min")
	is.Equal(first.Properties["route"], "52")
	is.Equal(collection.Legend, DelayLegend())
}

func TestFeatureCollectionRenderer_Empty(t *testing.T) {
	is := is.New(t)
	renderer := makeFeatureCollectionRenderer()
	is.NoErr(RenderVehicles(renderer, nil, AllRoutes))
	buf := new(bytes.Buffer)
	is.NoErr(renderer.writeTo(buf))
	is.True(strings.Contains(buf.String(), `"features":[]`))
}

func TestMapPageRenderer(t *testing.T) {
	is := is.New(t)
	options := MapOptions{
		Title:           "Live Tracker",
		Attribution:     "Data: test feed",
		CenterLatitude:  50.0647,
		CenterLongitude: 19.945,
		Zoom:            12,
	}
	vehicles := makeTestVehicles()
	renderer := makeMapPageRenderer(options, DistinctRoutes(vehicles), "52", 60)
	is.NoErr(RenderVehicles(renderer, vehicles, "52"))
	renderer.setFetchedAt(time.Date(2024, 1, 1, 8, 15, 30, 0, time.UTC))

	is.Equal(renderer.page.Routes, []string{AllRoutes, "139", "4", "52"})
	is.Equal(len(renderer.page.Markers), 2)
	is.True(renderer.page.Legend != nil)
	is.True(strings.Contains(renderer.page.Legend.HTML, "&gt; 2 min late"))

	buf := new(bytes.Buffer)
	is.NoErr(renderer.writeTo(buf))
	page := buf.String()
	is.True(strings.Contains(page, "<title>Live Tracker</title>"))
	is.True(strings.Contains(page, "Data cached for 60 seconds"))
	is.True(strings.Contains(page, "Vehicle positions fetched at 08:15:30"))
	is.True(strings.Contains(page, `<meta http-equiv="refresh" content="60">`))
	is.True(strings.Contains(page, "Refresh Map Now"))
	is.True(strings.Contains(page, `<option value="52" selected>52</option>`))
	is.True(strings.Contains(page, `<option value="All">All</option>`))
	is.True(strings.Contains(page, "Data: test feed"))
	is.True(strings.Contains(page, "50.0647"))
	is.True(strings.Contains(page, `"id":"V1"`))
	is.True(!strings.Contains(page, `"id":"V2"`))
}

func TestMapPageRenderer_NoAutoRefreshWithoutCache(t *testing.T) {
	is := is.New(t)
	renderer := makeMapPageRenderer(MapOptions{Title: "Live Tracker"}, []string{"52"}, AllRoutes, 0)
	is.NoErr(RenderVehicles(renderer, makeTestVehicles(), AllRoutes))

	buf := new(bytes.Buffer)
	is.NoErr(renderer.writeTo(buf))
	page := buf.String()
	is.True(!strings.Contains(page, `http-equiv="refresh"`))
	is.True(!strings.Contains(page, "fetched at"))
}
