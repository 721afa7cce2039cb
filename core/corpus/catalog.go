package corpus

import (
	"context"
	"sync"
	"time"
)

// LoadEvent is delivered to subscribers after every load attempt.
type LoadEvent struct {
	Provider string
	Snapshot *Snapshot // nil when Err is set
	Err      error
	Duration time.Duration
	// Changed is true when the fingerprint differs from the previous
	// successful load.
	Changed bool
}

// Catalog is the request-facing access point to the corpus.
//
// With a zero TTL every Snapshot call reads the store again. With a
// positive TTL the last snapshot is served until it expires or Invalidate
// is called.
type Catalog struct {
	provider Provider
	opts     LoadOptions
	ttl      time.Duration

	mu       sync.RWMutex
	current  *Snapshot
	loadedAt time.Time
	lastFP   string

	subMu  sync.Mutex
	subs   map[int]func(LoadEvent)
	nextID int
}

// NewCatalog returns a catalog over p.
func NewCatalog(p Provider, ttl time.Duration, opts LoadOptions) *Catalog {
	return &Catalog{
		provider: p,
		opts:     opts,
		ttl:      ttl,
		subs:     make(map[int]func(LoadEvent)),
	}
}

// Provider returns the underlying provider.
func (c *Catalog) Provider() Provider {
	return c.provider
}

// Snapshot returns a corpus snapshot, loading it when needed.
func (c *Catalog) Snapshot(ctx context.Context) (*Snapshot, error) {
	if c.ttl <= 0 {
		return c.Reload(ctx)
	}

	c.mu.RLock()
	if c.fresh() {
		snap := c.current
		c.mu.RUnlock()
		return snap, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	// Double-check after acquiring write lock
	if c.fresh() {
		snap := c.current
		c.mu.Unlock()
		return snap, nil
	}
	ev := c.loadEvent(ctx)
	c.record(&ev)
	c.mu.Unlock()

	c.publish(ev)
	return ev.Snapshot, ev.Err
}

// Current returns the most recent successful snapshot without loading.
func (c *Catalog) Current() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Reload loads a new snapshot regardless of TTL. Concurrent reloads do
// not block each other; the last to finish becomes Current.
func (c *Catalog) Reload(ctx context.Context) (*Snapshot, error) {
	ev := c.loadEvent(ctx)

	c.mu.Lock()
	c.record(&ev)
	c.mu.Unlock()

	c.publish(ev)
	return ev.Snapshot, ev.Err
}

// Invalidate forces the next Snapshot call to reload.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.loadedAt = time.Time{}
	c.mu.Unlock()
}

// Subscribe registers fn for load events and returns a function that
// removes it. fn runs synchronously on the loading goroutine.
func (c *Catalog) Subscribe(fn func(LoadEvent)) (unsubscribe func()) {
	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

// fresh must be called with c.mu held.
func (c *Catalog) fresh() bool {
	return c.current != nil && !c.loadedAt.IsZero() && time.Since(c.loadedAt) < c.ttl
}

func (c *Catalog) loadEvent(ctx context.Context) LoadEvent {
	start := time.Now()
	snap, err := Load(ctx, c.provider, c.opts)
	return LoadEvent{
		Provider: c.provider.Name(),
		Snapshot: snap,
		Err:      err,
		Duration: time.Since(start),
	}
}

// record must be called with c.mu held for writing.
func (c *Catalog) record(ev *LoadEvent) {
	if ev.Err != nil {
		return
	}
	ev.Changed = ev.Snapshot.Fingerprint != c.lastFP
	c.current = ev.Snapshot
	c.loadedAt = time.Now()
	c.lastFP = ev.Snapshot.Fingerprint
}

func (c *Catalog) publish(ev LoadEvent) {
	c.subMu.Lock()
	fns := make([]func(LoadEvent), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
