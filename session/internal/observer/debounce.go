// Package observer coalesces rapid bursts of low-level DOM change events
// into a single reindex trigger, so a page doing a dozen mutations across
// one frame doesn't cause a dozen re-snapshots. Adapted from the debounce/
// dedup machinery the teacher uses to batch raw mutation records.
package observer

import "time"

// Config controls the debouncer's batching behaviour.
type Config struct {
	// Window is the debounce time: the feed waits this long after the
	// last event before flushing. Default 250ms.
	Window time.Duration
	// MaxBuffer flushes immediately once this many events accumulate.
	// Default 1000.
	MaxBuffer int
}

func (c *Config) applyDefaults() {
	if c.Window <= 0 {
		c.Window = 250 * time.Millisecond
	}
	if c.MaxBuffer <= 0 {
		c.MaxBuffer = 1000
	}
}

// Event is one raw change signal: an xpath/selector and the kind of
// change that occurred at it.
type Event struct {
	Key string
	Op  string
	At  time.Time
}

// Debouncer collects Events and calls flushFn once the window expires or
// the buffer fills, after deduplicating bursts at the same key.
type Debouncer struct {
	cfg     Config
	events  []Event
	dedup   *deduper
	timer   *time.Timer
	flushFn func([]Event)
}

// New creates a Debouncer that calls flushFn with the deduplicated,
// coalesced event batch.
func New(cfg Config, flushFn func([]Event)) *Debouncer {
	cfg.applyDefaults()
	return &Debouncer{
		cfg:     cfg,
		events:  make([]Event, 0, cfg.MaxBuffer),
		dedup:   newDeduper(),
		flushFn: flushFn,
	}
}

// Add pushes a raw event, dropping it if it is a near-duplicate of one
// already buffered, and (re)starts the debounce window. Returns true if
// an immediate flush was triggered (buffer full).
func (d *Debouncer) Add(e Event) bool {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	if d.dedup.isDuplicate(e) {
		return false
	}

	d.events = append(d.events, e)
	if len(d.events) >= d.cfg.MaxBuffer {
		d.Flush()
		return true
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.cfg.Window, d.Flush)
	return false
}

// Flush emits the buffered events and resets state.
func (d *Debouncer) Flush() {
	if len(d.events) == 0 {
		return
	}
	batch := make([]Event, len(d.events))
	copy(batch, d.events)
	d.events = d.events[:0]
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.flushFn(batch)
}
