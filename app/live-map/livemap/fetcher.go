package livemap

import (
	"context"
	"log"
	"net/http"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/OpenTransitTools/delaycast/foundation/httpclient"
	"github.com/bluele/gcache"
	"google.golang.org/protobuf/proto"
)

//feedCacheSize bounds the number of feed urls held, the live map uses two
const feedCacheSize = 8

//cachedFeed is a decoded feed and when it was retrieved
type cachedFeed struct {
	feed      *gtfsrt.FeedMessage
	fetchedAt time.Time
}

//FeedFetcher retrieves and decodes gtfs-realtime feeds, reusing the last successful decode of each url
//until it is more than the cache duration old
type FeedFetcher struct {
	log           *log.Logger
	client        *http.Client
	cache         gcache.Cache
	clock         gcache.Clock
	cacheDuration time.Duration
}

//NewFeedFetcher builds FeedFetcher. clock supplies the time used for cache expiry, the real clock when nil
func NewFeedFetcher(log *log.Logger, client *http.Client, cacheDuration time.Duration, clock gcache.Clock) *FeedFetcher {
	if clock == nil {
		clock = gcache.NewRealClock()
	}
	return &FeedFetcher{
		log:    log,
		client: client,
		cache: gcache.New(feedCacheSize).
			Simple().
			Expiration(cacheDuration).
			Clock(clock).
			Build(),
		clock:         clock,
		cacheDuration: cacheDuration,
	}
}

//Fetch returns the decoded feed at url. Any failure is logged as a warning and an empty FeedMessage returned.
//Failed fetches are not cached.
func (f *FeedFetcher) Fetch(ctx context.Context, url string) *gtfsrt.FeedMessage {
	if cached, present := f.cached(url); present {
		return cached.feed
	}
	feed, err := f.retrieveFeed(ctx, url)
	if err != nil {
		f.log.Printf("warning: error fetching %s: %v", url, err)
		return &gtfsrt.FeedMessage{}
	}
	err = f.cache.Set(url, cachedFeed{feed: feed, fetchedAt: f.clock.Now()})
	if err != nil {
		f.log.Printf("unable to cache feed %s: %v", url, err)
	}
	return feed
}

//FetchedAt returns when the feed currently cached for url was retrieved
func (f *FeedFetcher) FetchedAt(url string) (time.Time, bool) {
	cached, present := f.cached(url)
	return cached.fetchedAt, present
}

//Invalidate drops the cached feed for url so the next Fetch retrieves it again
func (f *FeedFetcher) Invalidate(url string) {
	f.cache.Remove(url)
}

//CacheDuration returns how long a decoded feed is reused
func (f *FeedFetcher) CacheDuration() time.Duration {
	return f.cacheDuration
}

//cached returns the unexpired cache entry for url
func (f *FeedFetcher) cached(url string) (cachedFeed, bool) {
	value, err := f.cache.GetIFPresent(url)
	if err != nil {
		return cachedFeed{}, false
	}
	cached, ok := value.(cachedFeed)
	return cached, ok
}

//retrieveFeed performs the GET and decodes the body
func (f *FeedFetcher) retrieveFeed(ctx context.Context, url string) (*gtfsrt.FeedMessage, error) {
	gtfsResponseBytes, err := httpclient.RetrieveBytes(ctx, f.client, url)
	if err != nil {
		return nil, err
	}
	feed := &gtfsrt.FeedMessage{}
	err = proto.Unmarshal(gtfsResponseBytes, feed)
	if err != nil {
		return nil, err
	}
	return feed, nil
}
