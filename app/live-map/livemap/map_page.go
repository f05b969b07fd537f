package livemap

import (
	"embed"
	"fmt"
	"html"
	"html/template"
	"io"
	"strings"
	"time"
)

//go:embed templates/map.html
var templateFS embed.FS

var mapPageTemplate = template.Must(template.ParseFS(templateFS, "templates/map.html"))

//MapOptions configures the map page
type MapOptions struct {
	Title           string
	Attribution     string
	CenterLatitude  float64
	CenterLongitude float64
	Zoom            int
}

//pageLegend is the legend as rendered into the page
type pageLegend struct {
	HTML string
}

//mapPage is the data handed to mapPageTemplate
type mapPage struct {
	MapOptions
	Routes         []string
	Selected       string
	CacheSeconds   int
	RefreshSeconds int
	FetchedAt      string
	Markers        []Marker
	Legend         *pageLegend
}

//mapPageRenderer implements Renderer by collecting markers for a leaflet map page
type mapPageRenderer struct {
	page mapPage
}

//makeMapPageRenderer creates mapPageRenderer for a page offering routes with selected chosen
func makeMapPageRenderer(options MapOptions, routes []string, selected string, cacheSeconds int) *mapPageRenderer {
	return &mapPageRenderer{
		page: mapPage{
			MapOptions:     options,
			Routes:         append([]string{AllRoutes}, routes...),
			Selected:       selected,
			CacheSeconds:   cacheSeconds,
			RefreshSeconds: cacheSeconds,
			Markers:        make([]Marker, 0),
		},
	}
}

//setFetchedAt records when the displayed vehicle positions were retrieved
func (m *mapPageRenderer) setFetchedAt(fetchedAt time.Time) {
	m.page.FetchedAt = fetchedAt.Format("15:04:05")
}

//DrawMarker adds marker to the page
func (m *mapPageRenderer) DrawMarker(marker Marker) error {
	m.page.Markers = append(m.page.Markers, marker)
	return nil
}

//DrawLegend renders legend as the page's map control
func (m *mapPageRenderer) DrawLegend(legend Legend) error {
	var sb strings.Builder
	sb.WriteString("<strong>")
	sb.WriteString(html.EscapeString(legend.Title))
	sb.WriteString("</strong>")
	for _, entry := range legend.Entries {
		fmt.Fprintf(&sb, "<br><i style=\"background:%s\"></i>%s",
			html.EscapeString(entry.Color), html.EscapeString(entry.Label))
	}
	m.page.Legend = &pageLegend{HTML: sb.String()}
	return nil
}

//writeTo executes the page template
func (m *mapPageRenderer) writeTo(w io.Writer) error {
	return mapPageTemplate.Execute(w, m.page)
}
