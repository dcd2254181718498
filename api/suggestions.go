package api

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"skydash/internal/errorutil"
	"skydash/internal/logger"
)

// PlaceSuggestion is one city candidate for a search query
type PlaceSuggestion struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	State       string  `json:"state"`
	Country     string  `json:"country"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"displayName"`
}

// newPlaceSuggestion maps a geocoding entry to a suggestion
func newPlaceSuggestion(g GeocodingResponse) PlaceSuggestion {
	display := fmt.Sprintf("%s, %s", g.Name, g.Country)
	if g.State != "" {
		display = fmt.Sprintf("%s, %s, %s", g.Name, g.State, g.Country)
	}
	return PlaceSuggestion{
		ID:          formatCoord(g.Lat) + "_" + formatCoord(g.Lon),
		Name:        g.Name,
		State:       g.State,
		Country:     g.Country,
		Lat:         g.Lat,
		Lon:         g.Lon,
		DisplayName: display,
	}
}

// SuggestionOptions tunes the suggestion service. Zero values fall back to defaults.
type SuggestionOptions struct {
	Limit           int
	MinQueryLength  int
	CacheTTL        time.Duration
	MaxEntries      int
	LocationTimeout time.Duration
}

func (o *SuggestionOptions) applyDefaults() {
	if o.Limit <= 0 {
		o.Limit = 5
	}
	if o.MinQueryLength <= 0 {
		o.MinQueryLength = 2
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = time.Hour
	}
	if o.MaxEntries <= 0 {
		o.MaxEntries = 500
	}
	if o.LocationTimeout <= 0 {
		o.LocationTimeout = 10 * time.Second
	}
}

// SuggestionService looks up city suggestions and the current location.
// It is safe for concurrent use.
type SuggestionService struct {
	client   *OpenWeatherClient
	geo      Geolocator
	opts     SuggestionOptions
	cache    *cache.Cache
	group    singleflight.Group
	storeMu  sync.Mutex
	gen      uint64 // bumped by ClearCache; guarded by storeMu
	inflight atomic.Int64
}

// NewSuggestionService creates a service. geo may be nil when the host has no position source.
func NewSuggestionService(client *OpenWeatherClient, geo Geolocator, opts SuggestionOptions) *SuggestionService {
	opts.applyDefaults()
	return &SuggestionService{
		client: client,
		geo:    geo,
		opts:   opts,
		cache:  cache.New(opts.CacheTTL, 2*opts.CacheTTL),
	}
}

// Loading reports whether any suggestion or location request is in flight
func (s *SuggestionService) Loading() bool {
	return s.inflight.Load() > 0
}

func (s *SuggestionService) beginLoading() func() {
	s.inflight.Add(1)
	return func() { s.inflight.Add(-1) }
}

// GetCitySuggestions returns suggestions for query, or an empty slice on any failure.
// Failures are logged.
func (s *SuggestionService) GetCitySuggestions(ctx context.Context, query, apiKey string) []PlaceSuggestion {
	suggestions, err := s.SearchCities(ctx, query, apiKey)
	if err != nil {
		errorutil.LogWarning(logger.Get().Logger, "city suggestions", err, errorutil.QueryContext(query, s.opts.Limit)...)
		return []PlaceSuggestion{}
	}
	return suggestions
}

// SearchCities returns suggestions for query. Queries shorter than the minimum
// length (in characters, untrimmed) return an empty slice without a request.
// Results are cached per lowercased query; concurrent misses for the same
// query share one request.
// apiKey overrides the configured key when non-empty.
func (s *SuggestionService) SearchCities(ctx context.Context, query, apiKey string) ([]PlaceSuggestion, error) {
	if utf8.RuneCountInString(query) < s.opts.MinQueryLength {
		return []PlaceSuggestion{}, nil
	}

	key := strings.ToLower(query)
	if cached, found := s.cache.Get(key); found {
		logger.LogWithFields(logger.DebugLevel, "Suggestion cache hit", map[string]any{"cache_key": key})
		return slices.Clone(cached.([]PlaceSuggestion)), nil
	}

	done := s.beginLoading()
	defer done()

	// requests started before a ClearCache neither fill the new cache nor
	// absorb callers that arrive after it
	gen := s.generation()
	v, err, shared := s.group.Do(strconv.FormatUint(gen, 10)+":"+key, func() (any, error) {
		places, err := s.client.DirectGeocode(ctx, query, s.opts.Limit, apiKey)
		if err != nil {
			return nil, err
		}

		suggestions := make([]PlaceSuggestion, 0, len(places))
		for _, p := range places {
			suggestions = append(suggestions, newPlaceSuggestion(p))
		}
		s.store(gen, key, suggestions)
		return suggestions, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch city suggestions: %w", err)
	}
	if shared {
		logger.LogWithFields(logger.DebugLevel, "Suggestion request shared", map[string]any{"cache_key": key})
	}

	return slices.Clone(v.([]PlaceSuggestion)), nil
}

func (s *SuggestionService) generation() uint64 {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	return s.gen
}

// store caches suggestions fetched in generation gen, evicting the entry
// closest to expiry when full. Results from before the last ClearCache are dropped.
func (s *SuggestionService) store(gen uint64, key string, suggestions []PlaceSuggestion) {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()

	if gen != s.gen {
		logger.LogWithFields(logger.DebugLevel, "Suggestion result discarded after cache clear", map[string]any{"cache_key": key})
		return
	}

	if _, exists := s.cache.Get(key); !exists {
		if s.cache.ItemCount() >= s.opts.MaxEntries {
			s.cache.DeleteExpired()
		}
		for s.cache.ItemCount() >= s.opts.MaxEntries {
			if !s.evictOldest() {
				break
			}
		}
	}
	s.cache.Set(key, suggestions, cache.DefaultExpiration)
}

func (s *SuggestionService) evictOldest() bool {
	oldestKey := ""
	oldest := int64(math.MaxInt64)
	for k, item := range s.cache.Items() {
		if item.Expiration < oldest {
			oldestKey, oldest = k, item.Expiration
		}
	}
	if oldestKey == "" {
		return false
	}
	s.cache.Delete(oldestKey)
	logger.LogWithFields(logger.DebugLevel, "Suggestion cache eviction", map[string]any{"cache_key": oldestKey})
	return true
}

// ClearCache drops every cached suggestion list. Requests already in flight
// still return their results but do not repopulate the cache.
func (s *SuggestionService) ClearCache() {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	s.gen++
	s.cache.Flush()
}

// CacheSize returns the number of cached queries, including expired ones not yet swept
func (s *SuggestionService) CacheSize() int {
	return s.cache.ItemCount()
}
