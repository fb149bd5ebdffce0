package gateway

import "sync"

// loadState is the per-model state machine: absent -> loading -> ready.
// Transitions are idempotent and concurrent callers of the same model
// rendezvous on the same load rather than each triggering their own.
type loadState int

const (
	stateAbsent loadState = iota
	stateLoading
	stateReady
)

type modelEntry struct {
	mu    sync.Mutex
	state loadState
	err   error
}

// ModelCache is a per-process, per-backend cache of loaded models. It never
// shares state across processes and is cleared only by process exit.
type ModelCache struct {
	mu      sync.Mutex
	entries map[string]*modelEntry
}

func NewModelCache() *ModelCache {
	return &ModelCache{entries: make(map[string]*modelEntry)}
}

func (c *ModelCache) entryFor(modelID string) *modelEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[modelID]
	if !ok {
		e = &modelEntry{}
		c.entries[modelID] = e
	}
	return e
}

// EnsureLoaded runs load() at most once per model until a load succeeds,
// regardless of how many goroutines call EnsureLoaded concurrently for the
// same modelID; all callers observe the same result once loading settles.
// A failed load is not cached: the next call runs load() again.
func (c *ModelCache) EnsureLoaded(modelID string, load func() error) error {
	e := c.entryFor(modelID)
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case stateReady:
		return nil
	case stateAbsent:
		e.state = stateLoading
		err := load()
		if err != nil {
			e.state = stateAbsent
			e.err = err
			return err
		}
		e.state = stateReady
		e.err = nil
		return nil
	default: // stateLoading should not be observable here since e.mu serializes callers
		return e.err
	}
}

// IsReady reports whether modelID has finished loading.
func (c *ModelCache) IsReady(modelID string) bool {
	e := c.entryFor(modelID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == stateReady
}
