package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/optiondesk/marketdata/internal/api"
	"github.com/optiondesk/marketdata/internal/model"
)

// Config holds store configuration.
type Config struct {
	Exchange     string        // Catalog exchange to fetch (e.g., "NFO")
	Underlyings  []string      // Whitelisted underlying names
	Freshness    time.Duration // Max cache snapshot age before a synchronous refetch
	FetchTimeout time.Duration // Per-fetch timeout
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Exchange:     "NFO",
		Underlyings:  []string{"NIFTY", "BANKNIFTY", "FINNIFTY", "MIDCPNIFTY"},
		Freshness:    24 * time.Hour,
		FetchTimeout: 30 * time.Second,
	}
}

// Store is the in-memory instrument catalog.
type Store struct {
	cfg       Config
	client    *api.Client
	cache     Cache // optional
	logger    *slog.Logger
	whitelist map[string]bool

	group singleflight.Group

	mu           sync.RWMutex
	ready        bool
	instruments  []model.Instrument
	byUnderlying map[string][]model.Instrument
	loadedAt     time.Time
}

// NewStore creates an empty, not-yet-ready store. cache may be nil.
func NewStore(cfg Config, client *api.Client, cache Cache, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	whitelist := make(map[string]bool, len(cfg.Underlyings))
	for _, name := range cfg.Underlyings {
		whitelist[name] = true
	}
	return &Store{
		cfg:          cfg,
		client:       client,
		cache:        cache,
		logger:       logger,
		whitelist:    whitelist,
		byUnderlying: make(map[string][]model.Instrument),
	}
}

// Ready reports whether Load has completed (possibly with an empty catalog).
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Count returns the number of instruments in the catalog.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.instruments)
}

// LoadedAt returns when the current catalog was installed.
func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Load populates the catalog. It is idempotent: once the store is ready
// further calls return immediately, and concurrent callers share a single
// underlying fetch. Errors are logged and degrade to an empty ready
// catalog, never surfaced.
func (s *Store) Load(ctx context.Context) {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()
	if ready {
		return
	}

	s.group.Do("load", func() (any, error) {
		s.mu.RLock()
		ready := s.ready
		s.mu.RUnlock()
		if !ready {
			s.load(ctx)
		}
		return nil, nil
	})
}

// load runs the cache-first load path.
func (s *Store) load(ctx context.Context) {
	if s.cache != nil {
		snap, ok, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn("catalog cache read failed", "error", err)
		}
		if ok && snap.Age() < s.cfg.Freshness {
			s.install(snap.Instruments, snap.SavedAt)
			s.logger.Info("catalog loaded from cache",
				"instruments", len(snap.Instruments),
				"age", snap.Age().Round(time.Second),
			)
			// Refresh in the background so the cache converges on the
			// live catalog without blocking callers.
			go func() {
				if err := s.Refresh(context.Background()); err != nil {
					s.logger.Warn("background catalog refresh failed", "error", err)
				}
			}()
			return
		}
	}

	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("catalog fetch failed, starting with empty catalog", "error", err)
		s.install(nil, time.Now())
	}
}

// Refresh fetches the catalog from the network, installs it, and persists
// it to the cache. Unlike Load it reports errors so callers (the
// background refresher) can log retry context.
func (s *Store) Refresh(ctx context.Context) error {
	fetchCtx := ctx
	if s.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.cfg.FetchTimeout)
		defer cancel()
	}

	raw, err := s.client.GetInstruments(fetchCtx, s.cfg.Exchange)
	if err != nil {
		return err
	}

	instruments := s.filter(raw)
	now := time.Now()
	s.install(instruments, now)

	s.logger.Info("catalog refreshed",
		"fetched", len(raw),
		"kept", len(instruments),
	)

	if s.cache != nil {
		snap := Snapshot{Instruments: instruments, SavedAt: now}
		if err := s.cache.Put(ctx, snap); err != nil {
			s.logger.Warn("catalog cache write failed", "error", err)
		}
	}
	return nil
}

// filter keeps CE/PE contracts on whitelisted underlyings.
func (s *Store) filter(raw []api.APIInstrument) []model.Instrument {
	out := make([]model.Instrument, 0, len(raw))
	for i := range raw {
		inst := raw[i].ToModel()
		if !inst.IsOption() || !s.whitelist[inst.Name] {
			continue
		}
		out = append(out, inst)
	}
	return out
}

// install atomically replaces the catalog and its indexes.
func (s *Store) install(instruments []model.Instrument, loadedAt time.Time) {
	byUnderlying := make(map[string][]model.Instrument)
	for _, inst := range instruments {
		byUnderlying[inst.Name] = append(byUnderlying[inst.Name], inst)
	}

	s.mu.Lock()
	s.instruments = instruments
	s.byUnderlying = byUnderlying
	s.loadedAt = loadedAt
	s.ready = true
	s.mu.Unlock()
}
