package bus

import (
	"testing"

	"EchoQ/model"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := New()
	var got []int64

	b.Subscribe(TopicCatalogDeleted, func(event interface{}) {
		got = append(got, 1)
	})
	b.Subscribe(TopicCatalogDeleted, func(event interface{}) {
		got = append(got, 2)
	})

	b.Publish(TopicCatalogDeleted, CatalogItemsDeleted{IDs: []int64{9}})

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("handlers invoked = %v, want [1 2] in subscription order", got)
	}
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	b := New()
	b.Publish(TopicLibraryChanged, LibraryChanged{})
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	calls := 0
	unsub := b.Subscribe(TopicIdentityChanged, func(event interface{}) {
		calls++
	})

	b.Publish(TopicIdentityChanged, IdentityChanged{Identity: 1})
	unsub()
	b.Publish(TopicIdentityChanged, IdentityChanged{Identity: 2})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}

	// Unsubscribing twice is harmless.
	unsub()
}

func TestTopicsAreIndependent(t *testing.T) {
	b := New()
	updated, deleted := 0, 0
	b.Subscribe(TopicCatalogUpdated, func(event interface{}) { updated++ })
	b.Subscribe(TopicCatalogDeleted, func(event interface{}) { deleted++ })

	b.Publish(TopicCatalogUpdated, CatalogItemsUpdated{Items: []model.Track{{ID: 1}}})

	if updated != 1 || deleted != 0 {
		t.Errorf("updated = %d, deleted = %d, want 1 and 0", updated, deleted)
	}
}

func TestPayloadPassedThrough(t *testing.T) {
	b := New()
	var got TracksDeleted
	b.Subscribe(TopicTracksDeleted, func(event interface{}) {
		if ev, ok := event.(TracksDeleted); ok {
			got = ev
		}
	})

	b.Publish(TopicTracksDeleted, TracksDeleted{Identity: 3, IDs: []int64{4, 5}})

	if got.Identity != 3 || len(got.IDs) != 2 {
		t.Errorf("payload = %+v, want identity 3 with 2 ids", got)
	}
}
