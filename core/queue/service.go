package queue

import (
	"context"
	"sync"
	"time"

	"EchoQ/core/bus"
	"EchoQ/logger"
)

// session pairs one identity's engine with its persister. gen tags hydration
// attempts so a superseded hydration cannot overwrite newer state.
type session struct {
	eng     *Engine
	persist *Persister
	gen     uint64
}

// Service manages one queue engine per identity and connects the engines to
// the rest of the application through the event bus.
type Service struct {
	mu       sync.Mutex
	sessions map[int64]*session

	oracle   Oracle
	slots    SlotStore
	bus      *bus.Bus
	debounce time.Duration
	unsubs   []func()
}

// NewService creates the queue service and subscribes it to the bus topics
// the engine consumes.
func NewService(oracle Oracle, slots SlotStore, b *bus.Bus, debounce time.Duration) *Service {
	s := &Service{
		sessions: make(map[int64]*session),
		oracle:   oracle,
		slots:    slots,
		bus:      b,
		debounce: debounce,
	}

	s.unsubs = append(s.unsubs,
		b.Subscribe(bus.TopicIdentityChanged, func(event interface{}) {
			ev, ok := event.(bus.IdentityChanged)
			if !ok || ev.Identity == 0 {
				return
			}
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := s.Hydrate(ctx, ev.Identity); err != nil {
					logger.Error("hydration failed",
						logger.ErrorField(err),
						logger.Int64("identity", ev.Identity))
				}
			}()
		}),
		b.Subscribe(bus.TopicSessionEnded, func(event interface{}) {
			if ev, ok := event.(bus.SessionEnded); ok {
				s.EndSession(ev.Identity)
			}
		}),
		b.Subscribe(bus.TopicLibraryChanged, func(event interface{}) {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				s.Reconcile(ctx)
			}()
		}),
		b.Subscribe(bus.TopicCatalogUpdated, func(event interface{}) {
			if ev, ok := event.(bus.CatalogItemsUpdated); ok {
				for _, sess := range s.liveSessions() {
					sess.eng.ApplyCatalogUpdates(ev.Items)
				}
			}
		}),
		b.Subscribe(bus.TopicCatalogDeleted, func(event interface{}) {
			if ev, ok := event.(bus.CatalogItemsDeleted); ok {
				for _, sess := range s.liveSessions() {
					sess.eng.ApplyCatalogDeletes(ev.IDs)
				}
			}
		}),
	)

	return s
}

// ensureSession returns the session for an identity, creating it on first
// touch. Caller holds the lock.
func (s *Service) ensureSession(identity int64) *session {
	if sess, ok := s.sessions[identity]; ok {
		return sess
	}
	eng := NewEngine()
	persist := NewPersister(s.slots, identity, s.debounce)
	eng.SetOnChange(persist.Schedule)
	sess := &session{eng: eng, persist: persist}
	s.sessions[identity] = sess
	return sess
}

// Engine returns the engine for an identity, hydrating it from the
// persisted slot on first acquisition.
func (s *Service) Engine(ctx context.Context, identity int64) (*Engine, error) {
	s.mu.Lock()
	sess, existed := s.sessions[identity]
	if !existed {
		sess = s.ensureSession(identity)
	}
	s.mu.Unlock()

	if !existed {
		if err := s.Hydrate(ctx, identity); err != nil {
			return nil, err
		}
	}
	return sess.eng, nil
}

// EndSession performs the full reset for an ended session and tears down the
// persister so no write can land in the old slot afterwards.
func (s *Service) EndSession(identity int64) {
	s.mu.Lock()
	sess, ok := s.sessions[identity]
	if ok {
		delete(s.sessions, identity)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	sess.persist.Flush()
	sess.persist.Close()
	sess.eng.SetOnChange(nil)
	sess.eng.Reset()
	logger.Info("queue session ended", logger.Int64("identity", identity))
}

// Forget discards an identity's state entirely: the session is torn down
// without a final flush and the persisted slot is deleted, so nothing is
// restored on the next login.
func (s *Service) Forget(ctx context.Context, identity int64) error {
	s.mu.Lock()
	sess, ok := s.sessions[identity]
	if ok {
		delete(s.sessions, identity)
	}
	s.mu.Unlock()
	if ok {
		sess.persist.Close()
		sess.eng.SetOnChange(nil)
		sess.eng.Reset()
	}

	if err := s.slots.Delete(ctx, identity); err != nil {
		return err
	}
	logger.Info("queue state forgotten", logger.Int64("identity", identity))
	return nil
}

func (s *Service) liveSessions() []*session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// Close unsubscribes from the bus and tears down every live session,
// flushing pending snapshot writes.
func (s *Service) Close() {
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[int64]*session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.persist.Flush()
		sess.persist.Close()
	}
}
