package livemap

import (
	"fmt"
	"html"
	"sort"

	"github.com/OpenTransitTools/delaycast/business/data/gtfs"
)

//AllRoutes is the route selection that displays every vehicle
const AllRoutes = "All"

//marker styling
const (
	markerRadius      = 5
	markerFillOpacity = 0.8
)

//Marker is a single point drawn on the map for a vehicle
type Marker struct {
	VehicleId   string  `json:"id"`
	RouteId     string  `json:"route"`
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lon"`
	Color       string  `json:"color"`
	Radius      int     `json:"radius"`
	FillOpacity float64 `json:"fill_opacity"`
	DelayLabel  string  `json:"delay_label"`
	//Popup is html shown when the marker is selected
	Popup string `json:"popup"`
}

//LegendEntry describes one marker color
type LegendEntry struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

//Legend explains marker colors
type Legend struct {
	Title   string        `json:"title"`
	Entries []LegendEntry `json:"entries"`
}

//Renderer draws markers and the legend onto some output surface
type Renderer interface {
	DrawMarker(marker Marker) error
	DrawLegend(legend Legend) error
}

//DelayLegend returns the fixed legend matching DelayColor
func DelayLegend() Legend {
	return Legend{
		Title: "Delay",
		Entries: []LegendEntry{
			{Label: "> 2 min late", Color: ColorRed},
			{Label: "on time", Color: ColorGreen},
			{Label: "> 1 min early", Color: ColorBlue},
			{Label: "no info", Color: ColorGray},
		},
	}
}

//DistinctRoutes returns each route seen in vehicles once, in ascending order
func DistinctRoutes(vehicles []gtfs.VehicleRecord) []string {
	seen := make(map[string]bool)
	routes := make([]string, 0)
	for _, vehicle := range vehicles {
		if seen[vehicle.RouteId] {
			continue
		}
		seen[vehicle.RouteId] = true
		routes = append(routes, vehicle.RouteId)
	}
	sort.Strings(routes)
	return routes
}

//FilterByRoute returns the vehicles on route, or all vehicles when route is AllRoutes.
//vehicles is not modified.
func FilterByRoute(vehicles []gtfs.VehicleRecord, route string) []gtfs.VehicleRecord {
	if route == AllRoutes {
		return vehicles
	}
	results := make([]gtfs.VehicleRecord, 0)
	for _, vehicle := range vehicles {
		if vehicle.RouteId == route {
			results = append(results, vehicle)
		}
	}
	return results
}

//MakeMarker builds the Marker for vehicle
func MakeMarker(vehicle gtfs.VehicleRecord) Marker {
	label := FormatDelay(vehicle.Delay)
	return Marker{
		VehicleId:   vehicle.VehicleId,
		RouteId:     vehicle.RouteId,
		Latitude:    vehicle.Latitude,
		Longitude:   vehicle.Longitude,
		Color:       DelayColor(vehicle.Delay),
		Radius:      markerRadius,
		FillOpacity: markerFillOpacity,
		DelayLabel:  label,
		Popup: fmt.Sprintf("Bus/Tram %s<br>Route %s<br>Delay: %s",
			html.EscapeString(vehicle.VehicleId), html.EscapeString(vehicle.RouteId), label),
	}
}

//RenderVehicles draws a marker for every vehicle on the selected route followed by the legend.
//The first error from renderer is returned.
func RenderVehicles(renderer Renderer, vehicles []gtfs.VehicleRecord, route string) error {
	for _, vehicle := range FilterByRoute(vehicles, route) {
		if err := renderer.DrawMarker(MakeMarker(vehicle)); err != nil {
			return err
		}
	}
	return renderer.DrawLegend(DelayLegend())
}
