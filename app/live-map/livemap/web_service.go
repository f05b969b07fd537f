package livemap

import (
	"bytes"
	"context"
	"encoding/json"
	logger "log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
)

//defaultHttpHandler simple default http handler for default route
type defaultHttpHandler struct {
}

//ServeHTTP implements defaultHttpHandler http.Handler interface
func (h *defaultHttpHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Application-Status", "OK")
}

//vehicleHandler holds what is needed to respond to map, vehicle and route requests
type vehicleHandler struct {
	log        *logger.Logger
	fetcher    *FeedFetcher
	feeds      feedLocations
	mapOptions MapOptions
}

//makeVehicleHandler factory
func makeVehicleHandler(log *logger.Logger,
	fetcher *FeedFetcher,
	feeds feedLocations,
	mapOptions MapOptions) *vehicleHandler {
	return &vehicleHandler{
		log:        log,
		fetcher:    fetcher,
		feeds:      feeds,
		mapOptions: mapOptions,
	}
}

//selectedRoute reads the route query parameter, AllRoutes when absent
func selectedRoute(r *http.Request) string {
	route := r.FormValue("route")
	if len(route) == 0 {
		return AllRoutes
	}
	return route
}

//serveMap renders the map page. refresh=true drops cached feeds and redirects back to the page without it
func (v *vehicleHandler) serveMap(w http.ResponseWriter, r *http.Request) {
	if strings.ToLower(r.FormValue("refresh")) == "true" {
		v.feeds.invalidate(v.fetcher)
		target := url.URL{Path: "/map", RawQuery: url.Values{"route": {selectedRoute(r)}}.Encode()}
		http.Redirect(w, r, target.String(), http.StatusSeeOther)
		return
	}
	vehicles := v.feeds.load(r.Context(), v.fetcher)
	renderer := makeMapPageRenderer(v.mapOptions, DistinctRoutes(vehicles), selectedRoute(r),
		int(v.fetcher.CacheDuration()/time.Second))
	if fetchedAt, present := v.fetcher.FetchedAt(v.feeds.vehiclePositionsUrl); present {
		renderer.setFetchedAt(fetchedAt)
	}
	if err := RenderVehicles(renderer, vehicles, selectedRoute(r)); err != nil {
		v.log.Printf("Error rendering map: error:%v\n", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	buf := new(bytes.Buffer)
	if err := renderer.writeTo(buf); err != nil {
		v.log.Printf("Error executing map template: error:%v\n", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	v.write(w, buf.Bytes(), "map page")
}

//serveVehicles sends vehicles on the selected route as a GeoJSON FeatureCollection
func (v *vehicleHandler) serveVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles := v.feeds.load(r.Context(), v.fetcher)
	renderer := makeFeatureCollectionRenderer()
	if err := RenderVehicles(renderer, vehicles, selectedRoute(r)); err != nil {
		v.log.Printf("Error rendering vehicles: error:%v\n", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	buf := new(bytes.Buffer)
	if err := renderer.writeTo(buf); err != nil {
		v.log.Printf("Error marshaling vehicles to json: error:%v\n", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	v.write(w, buf.Bytes(), "vehicles")
}

//serveRoutes sends the routes currently observed in the vehicle feed as a json list
func (v *vehicleHandler) serveRoutes(w http.ResponseWriter, r *http.Request) {
	routes := DistinctRoutes(v.feeds.load(r.Context(), v.fetcher))
	jsonData, err := json.Marshal(routes)
	if err != nil {
		v.log.Printf("Error marshaling routes to json: error:%v\n", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	v.write(w, jsonData, "routes")
}

//serveFeed writes the decoded feed named in the path as protobuf text, or the raw feed unless text=true
func (v *vehicleHandler) serveFeed(w http.ResponseWriter, r *http.Request) {
	var feedUrl string
	switch mux.Vars(r)["name"] {
	case "trip-updates":
		feedUrl = v.feeds.tripUpdatesUrl
	case "vehicle-positions":
		feedUrl = v.feeds.vehiclePositionsUrl
	default:
		http.NotFound(w, r)
		return
	}
	feed := v.fetcher.Fetch(r.Context(), feedUrl)
	if strings.ToLower(r.FormValue("text")) == "true" {
		stringResponse := prototext.MarshalOptions{Multiline: true}.Format(feed)
		w.Header().Set("Content-Type", "text/plain")
		v.write(w, []byte(stringResponse), "feed in text format")
		return
	}
	//an empty fallback feed has no header, which is required
	data, err := proto.MarshalOptions{AllowPartial: true}.Marshal(feed)
	if err != nil {
		v.log.Printf("Failed to marshal FeedMessage to bytes, error:%s", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/x-protobuf")
	v.write(w, data, "feed")
}

//write sends data, logging the outcome
func (v *vehicleHandler) write(w http.ResponseWriter, data []byte, what string) {
	bytesWritten, err := w.Write(data)
	if err != nil {
		v.log.Printf("Error writing bytes to http.ResponseWriter, error:%s", err)
		return
	}
	v.log.Printf("wrote %d bytes for %s", bytesWritten, what)
}

//makeRouter registers all live map routes
func makeRouter(handler *vehicleHandler) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/", &defaultHttpHandler{})
	r.HandleFunc("/map", handler.serveMap).Methods(http.MethodGet)
	r.HandleFunc("/vehicles", handler.serveVehicles).Methods(http.MethodGet)
	r.HandleFunc("/routes", handler.serveRoutes).Methods(http.MethodGet)
	r.HandleFunc("/feeds/{name}", handler.serveFeed).Methods(http.MethodGet)
	return r
}

//createServer creates configured http.Server for the live map
func createServer(handler *vehicleHandler, httpPort int) *http.Server {
	srv := &http.Server{
		Addr:         strings.Join([]string{"0.0.0.0", strconv.Itoa(httpPort)}, ":"),
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      makeRouter(handler),
	}
	return srv
}

//runWebService starts up the live map web service, and terminates on shutdown signal
func runWebService(log *logger.Logger,
	wg *sync.WaitGroup,
	handler *vehicleHandler,
	httpPort int,
	shutdownSignal chan bool,
) {
	defer wg.Done()
	srv := createServer(handler, httpPort)
	log.Printf("Starting server on port %d", httpPort)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Printf("server ListenAndServe ended. %s", err)
		}
	}()

	<-shutdownSignal
	log.Printf("ending webservice on shutdown signal")
	shutdownCtx, serverCancelFunc := context.WithTimeout(context.Background(), time.Duration(5)*time.Second)
	defer serverCancelFunc()
	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		log.Printf("error shutting down webservice, error:%s", err)
	}
}
