package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/optiondesk/marketdata/internal/api"
	"github.com/optiondesk/marketdata/internal/model"
)

// fakeCache is an in-memory Cache for tests.
type fakeCache struct {
	mu   sync.Mutex
	snap Snapshot
	ok   bool
	puts int
}

func (f *fakeCache) Get(ctx context.Context) (Snapshot, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, f.ok, nil
}

func (f *fakeCache) Put(ctx context.Context, snap Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = snap
	f.ok = true
	f.puts++
	return nil
}

func (f *fakeCache) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

func instrumentJSON(symbol, name, instrumentType string, strike float64, expiry string, token int64) map[string]any {
	return map[string]any{
		"instrument_token": token,
		"tradingsymbol":    symbol,
		"name":             name,
		"exchange":         "NFO",
		"segment":          "NFO-OPT",
		"instrument_type":  instrumentType,
		"strike":           strike,
		"expiry":           expiry,
	}
}

// catalogServer serves a fixed instrument list and counts fetches.
func catalogServer(t *testing.T, instruments []map[string]any) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var fetches atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"instruments": instruments})
	}))
	return server, &fetches
}

func TestStore_LoadFromNetwork(t *testing.T) {
	// The FUT contract is not an option and USDINR is not whitelisted;
	// both must be filtered out.
	server, _ := catalogServer(t, []map[string]any{
		instrumentJSON("NIFTY25SEP24500CE", "NIFTY", "CE", 24500, "2025-09-30", 101),
		instrumentJSON("NIFTY25SEP24500PE", "NIFTY", "PE", 24500, "2025-09-30", 102),
		instrumentJSON("NIFTY25SEPFUT", "NIFTY", "FUT", 0, "2025-09-30", 103),
		instrumentJSON("USDINR25SEP88CE", "USDINR", "CE", 88, "2025-09-30", 104),
		instrumentJSON("BANKNIFTY25SEP52000CE", "BANKNIFTY", "CE", 52000, "2025-09-30", 105),
	})
	defer server.Close()

	client := api.NewClient(server.URL, "")
	store := NewStore(DefaultConfig(), client, nil, nil)

	store.Load(context.Background())

	if !store.Ready() {
		t.Fatal("store not ready after Load")
	}
	if got := store.Count(); got != 3 {
		t.Errorf("Count = %d, want 3 (CE/PE on whitelisted underlyings only)", got)
	}
}

func TestStore_LoadIdempotent(t *testing.T) {
	server, fetches := catalogServer(t, []map[string]any{
		instrumentJSON("NIFTY25SEP24500CE", "NIFTY", "CE", 24500, "2025-09-30", 101),
	})
	defer server.Close()

	client := api.NewClient(server.URL, "")
	store := NewStore(DefaultConfig(), client, nil, nil)

	store.Load(context.Background())
	store.Load(context.Background())
	store.Load(context.Background())

	if got := fetches.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}
}

func TestStore_LoadConcurrentSingleFetch(t *testing.T) {
	var fetches atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		time.Sleep(50 * time.Millisecond) // hold the fetch open so callers overlap
		json.NewEncoder(w).Encode(map[string]any{"instruments": []map[string]any{
			instrumentJSON("NIFTY25SEP24500CE", "NIFTY", "CE", 24500, "2025-09-30", 101),
		}})
	}))
	defer server.Close()

	client := api.NewClient(server.URL, "")
	store := NewStore(DefaultConfig(), client, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Load(context.Background())
		}()
	}
	wg.Wait()

	if got := fetches.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1 (concurrent loads must share one fetch)", got)
	}
	if got := store.Count(); got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}
}

func TestStore_LoadFailureDegradesToEmptyReady(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := api.NewClient(server.URL, "", api.WithRetries(0, 0))
	store := NewStore(DefaultConfig(), client, nil, nil)

	store.Load(context.Background())

	if !store.Ready() {
		t.Error("store must be ready even when the fetch fails")
	}
	if got := store.Count(); got != 0 {
		t.Errorf("Count = %d, want 0", got)
	}
}

func TestStore_LoadFromFreshCache(t *testing.T) {
	// The network is slow; a fresh cache must make Load return without
	// waiting on it.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]any{"instruments": []map[string]any{}})
	}))
	defer server.Close()

	cache := &fakeCache{
		ok: true,
		snap: Snapshot{
			SavedAt: time.Now().Add(-time.Hour),
			Instruments: []model.Instrument{
				{TradingSymbol: "NIFTY25SEP24500CE", Name: "NIFTY", InstrumentType: "CE", Strike: 24500},
				{TradingSymbol: "NIFTY25SEP24500PE", Name: "NIFTY", InstrumentType: "PE", Strike: 24500},
			},
		},
	}

	client := api.NewClient(server.URL, "")
	store := NewStore(DefaultConfig(), client, cache, nil)

	start := time.Now()
	store.Load(context.Background())

	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("Load took %v, want cache-hit path to skip the network wait", elapsed)
	}
	if got := store.Count(); got != 2 {
		t.Errorf("Count = %d, want 2 (from cache)", got)
	}
}

func TestStore_StaleCacheRefetches(t *testing.T) {
	server, fetches := catalogServer(t, []map[string]any{
		instrumentJSON("NIFTY25SEP24500CE", "NIFTY", "CE", 24500, "2025-09-30", 101),
	})
	defer server.Close()

	cache := &fakeCache{
		ok: true,
		snap: Snapshot{
			SavedAt: time.Now().Add(-25 * time.Hour), // past the 24h window
			Instruments: []model.Instrument{
				{TradingSymbol: "STALE", Name: "NIFTY", InstrumentType: "CE"},
			},
		},
	}

	client := api.NewClient(server.URL, "")
	store := NewStore(DefaultConfig(), client, cache, nil)

	store.Load(context.Background())

	if got := fetches.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1 (stale cache must refetch)", got)
	}
	if got := store.Count(); got != 1 {
		t.Errorf("Count = %d, want 1 (network catalog, not the stale one)", got)
	}
	if cache.putCount() != 1 {
		t.Errorf("cache puts = %d, want 1", cache.putCount())
	}

	got := store.Search("nifty", 0)
	if len(got) != 1 || got[0].TradingSymbol != "NIFTY25SEP24500CE" {
		t.Errorf("catalog contents = %v, want refetched instrument", got)
	}
}
