package queue

import (
	"context"
	"sync"
	"time"

	"EchoQ/logger"
	"EchoQ/model"
)

// SlotStore is the durable per-identity key/value slot snapshots are written
// to. Implemented by cache.SnapshotStore; tests use an in-memory fake.
type SlotStore interface {
	Get(ctx context.Context, identity int64) (*model.PlayerSnapshot, error)
	Set(ctx context.Context, identity int64, snap model.PlayerSnapshot) error
	Delete(ctx context.Context, identity int64) error
}

const writeTimeout = 5 * time.Second

// Persister coalesces snapshot writes for one identity: every Schedule call
// resets a timer and on firing only the most recent snapshot is written.
// Writes for the anonymous identity (zero) are suppressed.
type Persister struct {
	mu       sync.Mutex
	identity int64
	slots    SlotStore
	delay    time.Duration
	timer    *time.Timer
	pending  *model.PlayerSnapshot
	closed   bool
}

// NewPersister creates a persister writing to the given slot.
func NewPersister(slots SlotStore, identity int64, delay time.Duration) *Persister {
	return &Persister{
		identity: identity,
		slots:    slots,
		delay:    delay,
	}
}

// Schedule records the latest snapshot and (re)starts the debounce window.
func (p *Persister) Schedule(snap model.PlayerSnapshot) {
	if p.identity == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.pending = &snap
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.delay, p.fire)
}

func (p *Persister) fire() {
	p.mu.Lock()
	snap := p.pending
	p.pending = nil
	closed := p.closed
	p.mu.Unlock()
	if snap == nil || closed {
		return
	}
	p.write(*snap)
}

// Flush writes any pending snapshot immediately, used on shutdown.
func (p *Persister) Flush() {
	p.mu.Lock()
	snap := p.pending
	p.pending = nil
	if p.timer != nil {
		p.timer.Stop()
	}
	p.mu.Unlock()
	if snap != nil {
		p.write(*snap)
	}
}

// Close cancels any pending write. A closed persister never writes again, so
// a torn-down session cannot write into its old slot.
func (p *Persister) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.pending = nil
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// write performs the actual slot write. Errors are logged and dropped: a
// failed persistence write never affects in-memory state.
func (p *Persister) write(snap model.PlayerSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := p.slots.Set(ctx, p.identity, snap); err != nil {
		logger.Warn("failed to persist player snapshot",
			logger.ErrorField(err),
			logger.Int64("identity", p.identity))
	}
}
