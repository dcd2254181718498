package api

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"sync"
	"testing"
	"time"
)

const londonBody = `[
	{"name":"London","lat":51.5073219,"lon":-0.1276474,"country":"GB","state":"England"},
	{"name":"London","lat":42.9832406,"lon":-81.243372,"country":"CA","state":"Ontario"},
	{"name":"Londonderry","lat":54.9978678,"lon":-7.3213056,"country":"GB"}
]`

func newTestService(t *testing.T, handler http.HandlerFunc, opts SuggestionOptions) (*SuggestionService, *fakeOpenWeather) {
	t.Helper()
	fake, server := newFakeOpenWeather(t, map[string]http.HandlerFunc{directGeoEndpoint: handler})
	return NewSuggestionService(newTestClient(server.URL), nil, opts), fake
}

func TestShortQueryMakesNoRequest(t *testing.T) {
	svc, fake := newTestService(t, jsonHandler(200, londonBody), SuggestionOptions{})

	for _, q := range []string{"", "L", "é"} {
		got, err := svc.SearchCities(context.Background(), q, "")
		if err != nil || len(got) != 0 || got == nil {
			t.Errorf("SearchCities(%q) = %v, %v; want empty non-nil slice", q, got, err)
		}
	}
	if n := fake.callCount(directGeoEndpoint); n != 0 {
		t.Errorf("server saw %d requests, want 0", n)
	}
}

func TestQueryLengthIsNotTrimmed(t *testing.T) {
	svc, fake := newTestService(t, jsonHandler(200, `[]`), SuggestionOptions{})

	svc.GetCitySuggestions(context.Background(), " a", "")
	if n := fake.callCount(directGeoEndpoint); n != 1 {
		t.Errorf("two-character query with a space should be sent, got %d requests", n)
	}
}

func TestSuggestionMapping(t *testing.T) {
	svc, fake := newTestService(t, jsonHandler(200, londonBody), SuggestionOptions{})

	got := svc.GetCitySuggestions(context.Background(), "London", "")
	want := []PlaceSuggestion{
		{ID: "51.5073219_-0.1276474", Name: "London", State: "England", Country: "GB", Lat: 51.5073219, Lon: -0.1276474, DisplayName: "London, England, GB"},
		{ID: "42.9832406_-81.243372", Name: "London", State: "Ontario", Country: "CA", Lat: 42.9832406, Lon: -81.243372, DisplayName: "London, Ontario, CA"},
		{ID: "54.9978678_-7.3213056", Name: "Londonderry", State: "", Country: "GB", Lat: 54.9978678, Lon: -7.3213056, DisplayName: "Londonderry, GB"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetCitySuggestions() =\n%+v\nwant\n%+v", got, want)
	}

	q := fake.lastQuery(directGeoEndpoint)
	if q.Get("q") != "London" || q.Get("limit") != "5" || q.Get("appid") != testAPIKey {
		t.Errorf("unexpected query parameters: %v", q)
	}
}

func TestSuggestionCacheIsCaseInsensitive(t *testing.T) {
	svc, fake := newTestService(t, jsonHandler(200, londonBody), SuggestionOptions{})
	ctx := context.Background()

	first := svc.GetCitySuggestions(ctx, "London", "")
	second := svc.GetCitySuggestions(ctx, "LONDON", "")
	third := svc.GetCitySuggestions(ctx, "london", "")

	if n := fake.callCount(directGeoEndpoint); n != 1 {
		t.Errorf("server saw %d requests, want 1", n)
	}
	if !reflect.DeepEqual(first, second) || !reflect.DeepEqual(first, third) {
		t.Error("cached results differ from the first fetch")
	}

	// callers may modify their copy without touching the cache
	second[0].Name = "changed"
	if again := svc.GetCitySuggestions(ctx, "london", ""); again[0].Name != "London" {
		t.Error("cached suggestions were modified through a returned slice")
	}
}

func TestClearCacheForcesRefetch(t *testing.T) {
	svc, fake := newTestService(t, jsonHandler(200, londonBody), SuggestionOptions{})
	ctx := context.Background()

	svc.GetCitySuggestions(ctx, "London", "")
	svc.ClearCache()
	if svc.CacheSize() != 0 {
		t.Errorf("CacheSize() = %d after ClearCache", svc.CacheSize())
	}
	svc.GetCitySuggestions(ctx, "London", "")

	if n := fake.callCount(directGeoEndpoint); n != 2 {
		t.Errorf("server saw %d requests, want 2", n)
	}
}

func TestSuggestionCacheExpires(t *testing.T) {
	svc, fake := newTestService(t, jsonHandler(200, londonBody), SuggestionOptions{CacheTTL: 50 * time.Millisecond})
	ctx := context.Background()

	svc.GetCitySuggestions(ctx, "Paris", "")
	time.Sleep(100 * time.Millisecond)
	svc.GetCitySuggestions(ctx, "Paris", "")

	if n := fake.callCount(directGeoEndpoint); n != 2 {
		t.Errorf("server saw %d requests, want 2 after expiry", n)
	}
}

func TestSuggestionCacheIsBounded(t *testing.T) {
	svc, fake := newTestService(t, jsonHandler(200, londonBody), SuggestionOptions{MaxEntries: 2})
	ctx := context.Background()

	for _, q := range []string{"Paris", "Berlin", "Madrid"} {
		svc.GetCitySuggestions(ctx, q, "")
		time.Sleep(2 * time.Millisecond)
	}
	if svc.CacheSize() > 2 {
		t.Errorf("CacheSize() = %d, want at most 2", svc.CacheSize())
	}

	svc.GetCitySuggestions(ctx, "Madrid", "")
	if n := fake.callCount(directGeoEndpoint); n != 3 {
		t.Errorf("most recent query should still be cached, server saw %d requests", n)
	}

	svc.GetCitySuggestions(ctx, "Paris", "")
	if n := fake.callCount(directGeoEndpoint); n != 4 {
		t.Errorf("oldest query should have been evicted, server saw %d requests", n)
	}
}

func TestSuggestionAPIKeyOverride(t *testing.T) {
	svc, fake := newTestService(t, jsonHandler(200, `[]`), SuggestionOptions{})

	svc.GetCitySuggestions(context.Background(), "Oslo", "caller-key")
	if got := fake.lastQuery(directGeoEndpoint).Get("appid"); got != "caller-key" {
		t.Errorf("appid = %q, want caller-key", got)
	}

	svc.GetCitySuggestions(context.Background(), "Bergen", "")
	if got := fake.lastQuery(directGeoEndpoint).Get("appid"); got != testAPIKey {
		t.Errorf("appid = %q, want configured key", got)
	}
}

func TestSuggestionFailures(t *testing.T) {
	svc, fake := newTestService(t, jsonHandler(401, `{"cod":401,"message":"Invalid API key."}`), SuggestionOptions{})
	ctx := context.Background()

	got := svc.GetCitySuggestions(ctx, "Rome", "")
	if got == nil || len(got) != 0 {
		t.Errorf("GetCitySuggestions() = %v, want empty slice", got)
	}

	_, err := svc.SearchCities(ctx, "Rome", "")
	var apiErr *OpenWeatherAPIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 401 {
		t.Errorf("SearchCities() error = %v, want OpenWeather 401", err)
	}

	// failures are not cached
	if n := fake.callCount(directGeoEndpoint); n != 2 {
		t.Errorf("server saw %d requests, want 2", n)
	}
	if svc.Loading() {
		t.Error("Loading() should be false after failures")
	}
}

func TestNoMatchesIsNotAnError(t *testing.T) {
	svc, _ := newTestService(t, jsonHandler(200, `[]`), SuggestionOptions{})

	got, err := svc.SearchCities(context.Background(), "Qwxz", "")
	if err != nil {
		t.Fatalf("SearchCities() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("SearchCities() = %v, want empty slice", got)
	}
}

func TestConcurrentMissesShareOneRequest(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 10)
	svc, fake := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		jsonHandler(200, londonBody)(w, r)
	}, SuggestionOptions{})

	const callers = 5
	results := make([][]PlaceSuggestion, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.GetCitySuggestions(context.Background(), "London", "")
		}(i)
	}

	<-started
	if !svc.Loading() {
		t.Error("Loading() should be true while a request is in flight")
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := fake.callCount(directGeoEndpoint); n != 1 {
		t.Errorf("server saw %d requests, want 1", n)
	}
	for i := 1; i < callers; i++ {
		if !reflect.DeepEqual(results[0], results[i]) {
			t.Errorf("caller %d got different results", i)
		}
	}
	if svc.Loading() {
		t.Error("Loading() should be false once all requests finish")
	}
}

func TestLoadingSurvivesOverlappingRequests(t *testing.T) {
	releaseSlow := make(chan struct{})
	slowStarted := make(chan struct{})
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "Slowtown" {
			close(slowStarted)
			<-releaseSlow
		}
		jsonHandler(200, `[]`)(w, r)
	}, SuggestionOptions{})

	done := make(chan struct{})
	go func() {
		svc.GetCitySuggestions(context.Background(), "Slowtown", "")
		close(done)
	}()
	<-slowStarted

	// a fast request finishing must not clear the slow one's loading state
	svc.GetCitySuggestions(context.Background(), "Fastville", "")
	if !svc.Loading() {
		t.Error("Loading() should remain true while another request is in flight")
	}

	close(releaseSlow)
	<-done
	if svc.Loading() {
		t.Error("Loading() should be false once all requests finish")
	}
}

func TestClearCacheDuringRequest(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	svc, fake := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case started <- struct{}{}:
			<-release
		default:
		}
		jsonHandler(200, londonBody)(w, r)
	}, SuggestionOptions{})
	ctx := context.Background()

	done := make(chan []PlaceSuggestion)
	go func() { done <- svc.GetCitySuggestions(ctx, "London", "") }()
	<-started

	svc.ClearCache()
	close(release)
	if got := <-done; len(got) != 3 {
		t.Errorf("request started before ClearCache returned %d suggestions, want 3", len(got))
	}
	if svc.CacheSize() != 0 {
		t.Errorf("CacheSize() = %d, a request started before ClearCache must not fill the cache", svc.CacheSize())
	}

	svc.GetCitySuggestions(ctx, "London", "")
	if n := fake.callCount(directGeoEndpoint); n != 2 {
		t.Errorf("server saw %d requests, want 2", n)
	}
}

func TestQueryAfterClearDoesNotJoinOlderRequest(t *testing.T) {
	releaseFirst := make(chan struct{})
	started := make(chan string, 2)
	var mu sync.Mutex
	calls := 0
	svc, fake := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			started <- "first"
			<-releaseFirst
		} else {
			started <- "second"
		}
		jsonHandler(200, londonBody)(w, r)
	}, SuggestionOptions{})
	ctx := context.Background()

	firstDone := make(chan struct{})
	go func() {
		svc.GetCitySuggestions(ctx, "London", "")
		close(firstDone)
	}()
	<-started

	svc.ClearCache()

	secondDone := make(chan struct{})
	go func() {
		svc.GetCitySuggestions(ctx, "london", "")
		close(secondDone)
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		close(releaseFirst)
		t.Fatal("query after ClearCache waited on the older request instead of fetching")
	}
	<-secondDone
	close(releaseFirst)
	<-firstDone

	// the newer result is cached, the older one is discarded
	svc.GetCitySuggestions(ctx, "LONDON", "")
	if n := fake.callCount(directGeoEndpoint); n != 2 {
		t.Errorf("server saw %d requests, want 2", n)
	}
}
