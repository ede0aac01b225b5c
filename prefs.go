package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrPreferencesClosed is returned for writes issued after Close.
var ErrPreferencesClosed = errors.New("preferences closed")

// commitTimeout bounds a single commit to the backing Store.
const commitTimeout = 10 * time.Second

type writeOp struct {
	key   string
	value *string       // nil removes the key
	done  chan struct{} // non-nil marks a flush barrier
}

// Preferences is a named container of string preferences. Reads go to the
// Store until the first write loads the namespace, then they are served
// from memory. Writes update memory immediately and are committed to the
// backing Store by a single writer goroutine, in the order they were made.
type Preferences struct {
	name   string
	store  Store
	logger *slog.Logger

	mu     sync.RWMutex
	values map[string]string
	loaded bool
	closed bool

	// qmu guards the pending queue. It is never held across a commit.
	qmu     sync.Mutex
	pending []writeOp
	closing bool

	wake    chan struct{}
	stopped chan struct{}
}

func newPreferences(name string, store Store, logger *slog.Logger) *Preferences {
	p := &Preferences{
		name:    name,
		store:   store,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go p.run()
	return p
}

// newClosedPreferences returns a container that rejects writes and has no
// writer.
func newClosedPreferences(name string, store Store, logger *slog.Logger) *Preferences {
	p := &Preferences{
		name:    name,
		store:   store,
		logger:  logger,
		closed:  true,
		closing: true,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	close(p.stopped)
	return p
}

// Name returns the namespace this container is stored under.
func (p *Preferences) Name() string { return p.name }

// enqueue appends op for the writer. It never blocks on the writer.
func (p *Preferences) enqueue(op writeOp) {
	p.qmu.Lock()
	p.pending = append(p.pending, op)
	p.qmu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Preferences) run() {
	defer close(p.stopped)

	for {
		p.qmu.Lock()
		batch := p.pending
		p.pending = nil
		closing := p.closing
		p.qmu.Unlock()

		for _, op := range batch {
			p.commit(op)
		}

		if len(batch) == 0 {
			if closing {
				return
			}
			<-p.wake
		}
	}
}

func (p *Preferences) commit(op writeOp) {
	if op.done != nil {
		close(op.done)
		return
	}

	// Commits outlive the request that queued them.
	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()

	var err error
	if op.value == nil {
		err = p.store.Delete(ctx, p.name, op.key)
	} else {
		err = p.store.Put(ctx, p.name, op.key, *op.value)
	}
	if err != nil {
		p.logger.Error("preference commit failed", "error", err, "namespace", p.name, "key", op.key)
	}
}

func (p *Preferences) ensureLoaded(ctx context.Context) error {
	p.mu.RLock()
	loaded := p.loaded
	p.mu.RUnlock()
	if loaded {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return nil
	}

	values, err := p.store.GetAll(ctx, p.name)
	if err != nil {
		return fmt.Errorf("loading preferences %q: %w", p.name, err)
	}
	if values == nil {
		values = make(map[string]string)
	}

	p.values = values
	p.loaded = true
	p.logger.Debug("preferences loaded", "namespace", p.name, "count", len(values))
	return nil
}

// GetString returns the value stored under key, or nil if there is none.
func (p *Preferences) GetString(ctx context.Context, key string) (*string, error) {
	p.mu.RLock()
	if p.loaded {
		defer p.mu.RUnlock()
		v, ok := p.values[key]
		if !ok {
			return nil, nil
		}
		return &v, nil
	}
	p.mu.RUnlock()

	// Nothing has been written through this container yet, so the Store
	// holds the current value.
	v, found, err := p.store.Get(ctx, p.name, key)
	if err != nil {
		return nil, fmt.Errorf("reading preference %q: %w", key, err)
	}
	if !found {
		return nil, nil
	}
	return &v, nil
}

// PutString stores value under key, replacing any prior value. A nil value
// removes the key. The call returns once the write is visible to readers of
// this container; the durable commit happens asynchronously.
func (p *Preferences) PutString(ctx context.Context, key string, value *string) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrPreferencesClosed
	}

	if err := p.ensureLoaded(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPreferencesClosed
	}

	op := writeOp{key: key}
	if value == nil {
		delete(p.values, key)
	} else {
		v := *value
		p.values[key] = v
		op.value = &v
	}

	// Enqueued under mu so queue order matches the order writes became visible.
	p.enqueue(op)
	return nil
}

// Flush blocks until every write queued before the call is committed, or
// ctx is done.
func (p *Preferences) Flush(ctx context.Context) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return p.wait(ctx, p.stopped)
	}
	done := make(chan struct{})
	p.enqueue(writeOp{done: done})
	p.mu.RUnlock()

	return p.wait(ctx, done)
}

// Close commits pending writes and stops the writer. Later writes fail with
// ErrPreferencesClosed; reads keep working.
func (p *Preferences) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.qmu.Lock()
	p.closing = true
	p.qmu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}

	return p.wait(ctx, p.stopped)
}

func (p *Preferences) wait(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for preferences %q: %w", p.name, ctx.Err())
	}
}

// PreferencesProvider hands out one process-wide Preferences per name,
// creating it on first use.
type PreferencesProvider struct {
	store  Store
	logger *slog.Logger

	mu     sync.Mutex
	prefs  map[string]*Preferences
	closed bool
}

// NewPreferencesProvider creates a provider backed by store.
func NewPreferencesProvider(store Store, logger *slog.Logger) *PreferencesProvider {
	return &PreferencesProvider{
		store:  store,
		logger: logger,
		prefs:  make(map[string]*Preferences),
	}
}

// Preferences returns the container for name. After Close it returns a
// closed container for names it has not seen.
func (pp *PreferencesProvider) Preferences(name string) *Preferences {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	p, ok := pp.prefs[name]
	if !ok && pp.closed {
		return newClosedPreferences(name, pp.store, pp.logger)
	}
	if !ok {
		p = newPreferences(name, pp.store, pp.logger)
		pp.prefs[name] = p
	}
	return p
}

// Flush commits pending writes of every container.
func (pp *PreferencesProvider) Flush(ctx context.Context) error {
	var errs []error
	for _, p := range pp.snapshot() {
		if err := p.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every container, then the backing store.
func (pp *PreferencesProvider) Close(ctx context.Context) error {
	pp.mu.Lock()
	if pp.closed {
		pp.mu.Unlock()
		return nil
	}
	pp.closed = true
	pp.mu.Unlock()

	var errs []error
	for _, p := range pp.snapshot() {
		if err := p.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := pp.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}
	return errors.Join(errs...)
}

func (pp *PreferencesProvider) snapshot() []*Preferences {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	out := make([]*Preferences, 0, len(pp.prefs))
	for _, p := range pp.prefs {
		out = append(out, p)
	}
	return out
}
