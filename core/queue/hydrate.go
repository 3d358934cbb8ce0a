package queue

import (
	"context"

	"EchoQ/core/bus"
	"EchoQ/logger"
	"EchoQ/model"

	"github.com/samber/lo"
)

// Oracle confirms which track ids still exist in the catalog. It must be
// safe to call with large id sets in one round trip. Implemented by
// repository.CatalogRepository.
type Oracle interface {
	FilterExisting(ctx context.Context, ids []int64) ([]int64, error)
}

// Hydrate restores the persisted snapshot for an identity: it loads the
// slot, confirms every referenced track id against the oracle, strips stale
// entries and installs the filtered snapshot wholesale. A hydration that is
// superseded by a newer one for the same identity discards its result.
func (s *Service) Hydrate(ctx context.Context, identity int64) error {
	if identity == 0 {
		return nil
	}

	s.mu.Lock()
	sess := s.ensureSession(identity)
	sess.gen++
	gen := sess.gen
	s.mu.Unlock()

	snap, err := s.slots.Get(ctx, identity)
	if err != nil {
		return err
	}
	if snap == nil {
		// No snapshot or an unreadable one: state stays at defaults.
		return nil
	}

	ids := snap.TrackIDs()
	confirmed, err := s.oracle.FilterExisting(ctx, ids)
	if err != nil {
		// Fail open: a stale track surfacing briefly is less harmful than
		// losing the whole restored queue to a transient error.
		logger.Warn("existence check failed during hydration, keeping all tracks",
			logger.ErrorField(err),
			logger.Int64("identity", identity))
		confirmed = ids
	}

	filtered := filterSnapshot(snap, confirmed)

	// The check and the install stay under one critical section so a newer
	// hydration finishing in between cannot be overwritten by stale results.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[identity] != sess || sess.gen != gen {
		// A newer hydration or a session teardown won the race.
		return nil
	}

	// Install triggers the persister, which writes the filtered snapshot
	// back so a second hydration does not redo the same filtering.
	sess.eng.Install(filtered)
	return nil
}

// filterSnapshot retains only entries whose track id was confirmed. Items
// without a catalog id (ad-hoc one-offs) cannot be checked and are always
// kept. A current item with an unconfirmed id is cleared and playback
// forced off.
func filterSnapshot(snap *model.PlayerSnapshot, confirmed []int64) model.PlayerSnapshot {
	exists := make(map[int64]bool, len(confirmed))
	for _, id := range confirmed {
		exists[id] = true
	}
	keep := func(id int64) bool {
		return id == 0 || exists[id]
	}

	out := snap.Clone()
	out.QueueManual = lo.Filter(out.QueueManual, func(it model.QueueItem, _ int) bool {
		return keep(it.ID)
	})
	out.QueueAuto = lo.Filter(out.QueueAuto, func(it model.QueueItem, _ int) bool {
		return keep(it.ID)
	})
	out.History = lo.Filter(out.History, func(it model.QueueItem, _ int) bool {
		return keep(it.ID)
	})
	out.Collection = lo.Filter(out.Collection, func(t model.Track, _ int) bool {
		return keep(t.ID)
	})
	if out.Current != nil && !keep(out.Current.ID) {
		out.Current = nil
		out.AudioURL = ""
		out.Title = ""
		out.Artist = ""
		out.CoverURL = ""
		out.CurrentID = 0
		out.Playing = false
	}
	return out
}

// Reconcile is the lightweight counterpart of Hydrate: it re-checks the ids
// every live engine currently holds, prunes the ones the catalog no longer
// confirms and emits a tracks-deleted notification for them. Oracle errors
// are skipped silently; the next trigger retries.
func (s *Service) Reconcile(ctx context.Context) {
	s.mu.Lock()
	live := make(map[int64]*session, len(s.sessions))
	for id, sess := range s.sessions {
		live[id] = sess
	}
	s.mu.Unlock()

	for identity, sess := range live {
		snap := sess.eng.Snapshot()
		ids := snap.TrackIDs()
		if len(ids) == 0 {
			continue
		}

		confirmed, err := s.oracle.FilterExisting(ctx, ids)
		if err != nil {
			logger.Debug("existence check failed during reconciliation, skipping",
				logger.ErrorField(err),
				logger.Int64("identity", identity))
			continue
		}

		missing, _ := lo.Difference(ids, confirmed)
		if len(missing) == 0 {
			continue
		}

		sess.eng.ApplyCatalogDeletes(missing)
		s.bus.Publish(bus.TopicTracksDeleted, bus.TracksDeleted{Identity: identity, IDs: missing})
		logger.Info("pruned tracks no longer in catalog",
			logger.Int64("identity", identity),
			logger.Int("count", len(missing)))
	}
}
