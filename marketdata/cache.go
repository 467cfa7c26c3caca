package marketdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/rustyeddy/folio/market"
)

// Cache stores one msgpack-encoded series per (ticker, date) under a
// directory. Entries are permanent: a calendar day's prices never change
// after the fact, so there is no expiry.
type Cache struct {
	dir string
	log zerolog.Logger
}

// NewCache creates the cache directory if needed.
func NewCache(dir string, log zerolog.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{
		dir: dir,
		log: log.With().Str("component", "pricecache").Logger(),
	}, nil
}

func (c *Cache) path(ticker string, date time.Time) string {
	// Index tickers like ^RUT contain characters unfit for filenames.
	safe := strings.NewReplacer("/", "_", "^", "_").Replace(ticker)
	return filepath.Join(c.dir, fmt.Sprintf("%s_%s.msgpack", safe, date.Format("2006-01-02")))
}

// Load returns the cached series for (ticker, date), or false on a miss.
// A corrupt entry counts as a miss; it will be overwritten by the next Store.
func (c *Cache) Load(ticker string, date time.Time) (market.Series, bool) {
	data, err := os.ReadFile(c.path(ticker, date))
	if err != nil {
		return nil, false
	}

	var series market.Series
	if err := msgpack.Unmarshal(data, &series); err != nil {
		c.log.Warn().Err(err).Str("ticker", ticker).Msg("Discarding corrupt cache entry")
		return nil, false
	}
	return series, true
}

// Store writes the series for (ticker, date).
func (c *Cache) Store(ticker string, date time.Time, series market.Series) error {
	data, err := msgpack.Marshal(series)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := os.WriteFile(c.path(ticker, date), data, 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// CachedSource wraps a market.Source with the read-before-fetch,
// write-through cache.
type CachedSource struct {
	src   market.Source
	cache *Cache
	log   zerolog.Logger
}

var _ market.Source = (*CachedSource)(nil)

// NewCachedSource wraps src with cache.
func NewCachedSource(src market.Source, cache *Cache, log zerolog.Logger) *CachedSource {
	return &CachedSource{
		src:   src,
		cache: cache,
		log:   log.With().Str("component", "marketdata").Logger(),
	}
}

// Bars serves from cache when possible and falls through to the underlying
// source, writing the result back. Cache write failures are logged and
// otherwise ignored; the fetched prices are still returned.
func (s *CachedSource) Bars(ctx context.Context, ticker string, days int, asOf time.Time) (market.Series, error) {
	if series, ok := s.cache.Load(ticker, asOf); ok {
		return series, nil
	}

	series, err := s.src.Bars(ctx, ticker, days, asOf)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Store(ticker, asOf, series); err != nil {
		s.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to cache price data")
	}
	return series, nil
}
