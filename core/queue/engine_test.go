package queue

import (
	"math/rand"
	"testing"

	"EchoQ/model"
)

func track(id int64) model.Track {
	return model.Track{ID: id, Title: "Track", Artist: "Artist", AudioURL: "/audio.mp3"}
}

func newTestEngine() *Engine {
	e := NewEngine()
	e.rng = rand.New(rand.NewSource(1))
	return e
}

// checkInvariants verifies qid uniqueness across every list and that the
// current item is not present in either queue.
func checkInvariants(t *testing.T, e *Engine) {
	t.Helper()
	snap := e.Snapshot()

	seen := make(map[string]bool)
	note := func(qid, where string) {
		if qid == "" {
			t.Errorf("empty qid in %s", where)
		}
		if seen[qid] {
			t.Errorf("duplicate qid %s in %s", qid, where)
		}
		seen[qid] = true
	}
	if snap.Current != nil {
		note(snap.Current.QID, "current")
	}
	for _, it := range snap.QueueManual {
		note(it.QID, "queueManual")
	}
	for _, it := range snap.QueueAuto {
		note(it.QID, "queueAuto")
	}
	for _, it := range snap.History {
		note(it.QID, "history")
	}

	up := snap.UpNext()
	if len(up) != len(snap.QueueManual)+len(snap.QueueAuto) {
		t.Errorf("upNext length = %d, want %d", len(up), len(snap.QueueManual)+len(snap.QueueAuto))
	}
	for i, it := range snap.QueueManual {
		if up[i].QID != it.QID {
			t.Errorf("upNext[%d] = %s, want manual item %s", i, up[i].QID, it.QID)
		}
	}
	for i, it := range snap.QueueAuto {
		j := len(snap.QueueManual) + i
		if up[j].QID != it.QID {
			t.Errorf("upNext[%d] = %s, want auto item %s", j, up[j].QID, it.QID)
		}
	}
}

func TestEngine_AddToQueue(t *testing.T) {
	e := newTestEngine()

	e.AddToQueue(track(1))
	e.AddToQueue(track(1)) // same track twice is allowed

	snap := e.Snapshot()
	if len(snap.QueueManual) != 2 {
		t.Fatalf("len(queueManual) = %d, want 2", len(snap.QueueManual))
	}
	if snap.QueueManual[0].QID == snap.QueueManual[1].QID {
		t.Error("repeated enqueue of the same track must get distinct qids")
	}
	if snap.QueueManual[0].Origin != model.OriginManual {
		t.Errorf("origin = %q, want manual", snap.QueueManual[0].Origin)
	}
	checkInvariants(t, e)
}

func TestEngine_RemoveFromQueue_AbsentIsNoop(t *testing.T) {
	e := newTestEngine()
	item := e.AddToQueue(track(1))

	e.RemoveFromQueue("no-such-qid")
	if len(e.UpNext()) != 1 {
		t.Error("removing an absent qid must not change the queue")
	}

	e.RemoveFromQueue(item.QID)
	if len(e.UpNext()) != 0 {
		t.Error("item should have been removed")
	}
}

func TestEngine_MoveManual(t *testing.T) {
	e := newTestEngine()
	a := e.AddToQueue(track(1))
	b := e.AddToQueue(track(2))
	c := e.AddToQueue(track(3))

	e.MoveManual(0, 2)

	snap := e.Snapshot()
	got := []string{snap.QueueManual[0].QID, snap.QueueManual[1].QID, snap.QueueManual[2].QID}
	want := []string{b.QID, c.QID, a.QID}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("queueManual[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestEngine_MoveManual_SameIndexIsNoop(t *testing.T) {
	e := newTestEngine()
	a := e.AddToQueue(track(1))
	b := e.AddToQueue(track(2))

	e.MoveManual(1, 1)

	snap := e.Snapshot()
	if snap.QueueManual[0].QID != a.QID || snap.QueueManual[1].QID != b.QID {
		t.Error("moveManual(i, i) must preserve order")
	}
}

func TestEngine_MoveManual_OutOfRangeIsNoop(t *testing.T) {
	e := newTestEngine()
	a := e.AddToQueue(track(1))
	b := e.AddToQueue(track(2))

	e.MoveManual(5, 0)
	e.MoveManual(-1, 0)
	e.MoveManual(0, 5)
	e.MoveManual(0, -1)

	snap := e.Snapshot()
	if len(snap.QueueManual) != 2 ||
		snap.QueueManual[0].QID != a.QID || snap.QueueManual[1].QID != b.QID {
		t.Error("out-of-range moveManual must be a no-op")
	}
}

func TestEngine_PlayFromList_NoShuffle(t *testing.T) {
	e := newTestEngine()
	tracks := []model.Track{track(1), track(2), track(3), track(4), track(5)}

	e.PlayFromList(model.PlaylistSource(7), tracks, 3)

	snap := e.Snapshot()
	if snap.Current == nil || snap.Current.ID != 3 {
		t.Fatalf("current = %v, want track 3", snap.Current)
	}
	if !snap.Playing {
		t.Error("playback should have started")
	}
	if len(snap.History) != 2 || snap.History[0].ID != 1 || snap.History[1].ID != 2 {
		t.Errorf("history ids wrong: %v", historyIDs(snap))
	}
	if len(snap.QueueAuto) != 2 || snap.QueueAuto[0].ID != 4 || snap.QueueAuto[1].ID != 5 {
		t.Errorf("queueAuto wrong")
	}
	if snap.QueueAuto[0].Origin != model.OriginAuto {
		t.Errorf("origin = %q, want auto", snap.QueueAuto[0].Origin)
	}
	if snap.QueueAuto[0].From != model.PlaylistSource(7) {
		t.Errorf("from = %+v, want playlist 7", snap.QueueAuto[0].From)
	}
	checkInvariants(t, e)
}

func TestEngine_PlayFromList_Shuffle(t *testing.T) {
	e := newTestEngine()
	e.ToggleShuffle() // shuffle on, no collection yet
	tracks := []model.Track{track(1), track(2), track(3), track(4), track(5)}

	e.PlayFromList(model.AlbumSource(9), tracks, 3)

	snap := e.Snapshot()
	if snap.Current == nil || snap.Current.ID != 3 {
		t.Fatalf("current id = %v, want 3", snap.CurrentID)
	}
	if len(snap.History) != 0 {
		t.Errorf("history should be empty under shuffle, got %d items", len(snap.History))
	}
	// queueAuto must be a permutation of {1,2,4,5}
	want := map[int64]bool{1: true, 2: true, 4: true, 5: true}
	if len(snap.QueueAuto) != 4 {
		t.Fatalf("len(queueAuto) = %d, want 4", len(snap.QueueAuto))
	}
	for _, it := range snap.QueueAuto {
		if !want[it.ID] {
			t.Errorf("unexpected id %d in shuffled queueAuto", it.ID)
		}
		delete(want, it.ID)
	}
	checkInvariants(t, e)
}

func TestEngine_PlayFromList_EmptyIsNoop(t *testing.T) {
	e := newTestEngine()

	e.PlayFromList(model.PlaylistSource(1), nil, 0)

	snap := e.Snapshot()
	if snap.Current != nil || snap.Playing {
		t.Error("empty list must not start playback")
	}
}

func TestEngine_PlayFromList_UnknownStartDefaultsToFirst(t *testing.T) {
	e := newTestEngine()

	e.PlayFromList(model.PlaylistSource(1), []model.Track{track(1), track(2)}, 42)

	snap := e.Snapshot()
	if snap.Current == nil || snap.Current.ID != 1 {
		t.Errorf("current id = %d, want 1", snap.CurrentID)
	}
}

func TestEngine_NextPrefersManualQueue(t *testing.T) {
	e := newTestEngine()
	e.PlayFromList(model.PlaylistSource(1), []model.Track{track(1), track(2), track(3)}, 1)
	e.AddToQueue(track(9))

	e.Next()

	snap := e.Snapshot()
	if snap.Current == nil || snap.Current.ID != 9 {
		t.Errorf("current id = %d, want manual item 9", snap.CurrentID)
	}
	if len(snap.QueueManual) != 0 {
		t.Error("manual queue should have been consumed")
	}
	checkInvariants(t, e)
}

func TestEngine_NextOnEmptyQueuesStops(t *testing.T) {
	e := newTestEngine()
	e.PlaySong(PlayRequest{AudioURL: "/a.mp3", Title: "A", Artist: "X"})

	e.Next()

	snap := e.Snapshot()
	if snap.Playing {
		t.Error("playback should stop with both queues empty")
	}
	if snap.Current == nil {
		t.Error("current item must stay in place when stopping")
	}
}

func TestEngine_NextPrevSymmetry(t *testing.T) {
	e := newTestEngine()
	e.PlaySong(PlayRequest{AudioURL: "/a.mp3", Title: "A", Artist: "X", TrackID: 1})
	b := e.AddToQueue(track(2))

	before := e.Snapshot()
	e.Next()
	e.Prev()
	after := e.Snapshot()

	if after.Current == nil || after.Current.QID != before.Current.QID {
		t.Errorf("current after next+prev = %v, want %v", after.Current, before.Current)
	}
	if len(after.QueueManual) != 1 || after.QueueManual[0].QID != b.QID {
		t.Error("manual queue should be restored by prev")
	}
	checkInvariants(t, e)
}

func TestEngine_PrevReinsertsAutoItemIntoAutoQueue(t *testing.T) {
	e := newTestEngine()
	e.PlayFromList(model.PlaylistSource(1), []model.Track{track(1), track(2), track(3)}, 2)

	e.Prev()

	snap := e.Snapshot()
	if snap.Current == nil || snap.Current.ID != 1 {
		t.Fatalf("current id = %d, want 1", snap.CurrentID)
	}
	if len(snap.QueueAuto) == 0 || snap.QueueAuto[0].ID != 2 {
		t.Error("previous current should be back at the front of the auto queue")
	}
	checkInvariants(t, e)
}

func TestEngine_PrevOnEmptyHistoryIsNoop(t *testing.T) {
	e := newTestEngine()
	e.PlaySong(PlayRequest{AudioURL: "/a.mp3", Title: "A", Artist: "X"})

	before := e.Snapshot()
	e.Prev()
	after := e.Snapshot()

	if after.Current.QID != before.Current.QID {
		t.Error("prev with empty history must be a no-op")
	}
}

func TestEngine_PlayNow(t *testing.T) {
	e := newTestEngine()
	e.PlaySong(PlayRequest{AudioURL: "/a.mp3", Title: "A", Artist: "X"})
	prev := e.Snapshot().Current
	b := e.AddToQueue(track(2))

	e.PlayNow(b.QID)

	snap := e.Snapshot()
	if snap.Current == nil || snap.Current.QID != b.QID {
		t.Fatal("queued item should be current")
	}
	if len(snap.QueueManual) != 0 {
		t.Error("item should have been removed from the queue")
	}
	if len(snap.History) != 1 || snap.History[0].QID != prev.QID {
		t.Error("previous current should be on history")
	}
	checkInvariants(t, e)
}

func TestEngine_PlayNow_AbsentIsNoop(t *testing.T) {
	e := newTestEngine()
	e.AddToQueue(track(1))

	e.PlayNow("missing")

	if e.Snapshot().Current != nil {
		t.Error("playNow with unknown qid must not change current")
	}
}

func TestEngine_ClearQueueKeepCurrent(t *testing.T) {
	e := newTestEngine()
	e.PlayFromList(model.PlaylistSource(1), []model.Track{track(1), track(2), track(3)}, 0)
	e.AddToQueue(track(9))

	e.ClearQueue(true)

	snap := e.Snapshot()
	if len(snap.QueueManual) != 0 || len(snap.QueueAuto) != 0 {
		t.Error("both queues should be empty")
	}
	if snap.Current == nil || !snap.Playing {
		t.Error("current item and playback must be untouched")
	}
	if snap.Source.IsZero() {
		t.Error("source must be untouched with keepCurrent")
	}
}

func TestEngine_ClearQueueFullReset(t *testing.T) {
	e := newTestEngine()
	e.PlayFromList(model.PlaylistSource(1), []model.Track{track(1), track(2)}, 0)
	e.CycleRepeat()

	e.ClearQueue(false)

	snap := e.Snapshot()
	if snap.Current != nil || snap.Playing {
		t.Error("full reset must clear current and stop playback")
	}
	if snap.Shuffle || snap.Repeat != model.RepeatOff {
		t.Error("full reset must reset shuffle and repeat")
	}
	if !snap.Source.IsZero() || len(snap.Collection) != 0 {
		t.Error("full reset must clear source and collection")
	}
}

func TestEngine_PlaySong_CollectionJump(t *testing.T) {
	e := newTestEngine()
	e.PlayFromList(model.PlaylistSource(1), []model.Track{track(1), track(2), track(3)}, 0)

	e.PlaySong(PlayRequest{TrackID: 3, AudioURL: "/c.mp3", Title: "C", Artist: "X"})

	snap := e.Snapshot()
	if snap.Current == nil || snap.Current.ID != 3 {
		t.Fatalf("current id = %d, want 3", snap.CurrentID)
	}
	// Jump within collection rebuilds history from the collection prefix.
	if len(snap.History) != 2 {
		t.Errorf("len(history) = %d, want 2", len(snap.History))
	}
	if snap.Current.Origin != model.OriginAuto {
		t.Errorf("collection jump should produce an auto item, got %q", snap.Current.Origin)
	}
}

func TestEngine_PlaySong_AdHoc(t *testing.T) {
	e := newTestEngine()
	e.PlayFromList(model.PlaylistSource(1), []model.Track{track(1), track(2)}, 0)

	e.PlaySong(PlayRequest{TrackID: 77, AudioURL: "/x.mp3", Title: "X", Artist: "Y"})

	snap := e.Snapshot()
	if snap.Current == nil || snap.Current.ID != 77 {
		t.Fatal("ad-hoc track should be current")
	}
	if snap.Current.Origin != model.OriginManual {
		t.Errorf("ad-hoc item origin = %q, want manual", snap.Current.Origin)
	}
	// The auto queue from the previous collection continues untouched.
	if len(snap.QueueAuto) != 1 || snap.QueueAuto[0].ID != 2 {
		t.Error("auto queue must not be rebuilt on the ad-hoc path")
	}
}

func TestEngine_ToggleShuffle_RebuildsAroundCurrent(t *testing.T) {
	e := newTestEngine()
	e.PlayFromList(model.PlaylistSource(1), []model.Track{track(1), track(2), track(3), track(4)}, 2)
	cur := e.Snapshot().Current

	e.ToggleShuffle()

	snap := e.Snapshot()
	if !snap.Shuffle {
		t.Fatal("shuffle should be on")
	}
	if snap.Current == nil || snap.Current.QID != cur.QID {
		t.Error("toggling shuffle must not replace the current item")
	}
	if len(snap.History) != 0 {
		t.Error("history should be reset by the shuffle rebuild")
	}
	if len(snap.QueueAuto) != 3 {
		t.Errorf("len(queueAuto) = %d, want 3", len(snap.QueueAuto))
	}
	checkInvariants(t, e)

	e.ToggleShuffle() // back off

	snap = e.Snapshot()
	if len(snap.History) != 1 || snap.History[0].ID != 1 {
		t.Error("shuffle off should rebuild ordered history from the collection")
	}
	if len(snap.QueueAuto) != 2 || snap.QueueAuto[0].ID != 3 || snap.QueueAuto[1].ID != 4 {
		t.Error("shuffle off should rebuild the auto queue in collection order")
	}
	if snap.Current.QID != cur.QID {
		t.Error("toggling back must still keep the current item")
	}
}

func TestEngine_ToggleShuffle_NoCollectionShufflesInPlace(t *testing.T) {
	e := newTestEngine()
	for i := int64(1); i <= 5; i++ {
		e.AddToQueue(track(i))
	}
	// Move the manual items into the auto queue is not possible directly;
	// shuffle without a collection only affects the auto queue, so the
	// manual queue must keep its order.
	before := e.Snapshot()

	e.ToggleShuffle()

	after := e.Snapshot()
	for i := range before.QueueManual {
		if after.QueueManual[i].QID != before.QueueManual[i].QID {
			t.Error("shuffle must never reorder the manual queue")
			break
		}
	}
}

func TestEngine_CycleRepeat(t *testing.T) {
	e := newTestEngine()

	e.CycleRepeat()
	if e.Snapshot().Repeat != model.RepeatOne {
		t.Error("repeat should be one")
	}
	e.CycleRepeat()
	if e.Snapshot().Repeat != model.RepeatOff {
		t.Error("repeat should be off")
	}
}

func TestEngine_TrackEnded_RepeatOne(t *testing.T) {
	e := newTestEngine()
	e.PlayFromList(model.PlaylistSource(1), []model.Track{track(1), track(2)}, 0)
	e.CycleRepeat() // repeat one
	cur := e.Snapshot().Current

	e.TrackEnded()

	snap := e.Snapshot()
	if snap.Current == nil || snap.Current.QID != cur.QID {
		t.Error("repeat one must replay the current item on natural end")
	}
	if !snap.Playing {
		t.Error("playback should continue")
	}

	// An explicit next always advances.
	e.Next()
	if e.Snapshot().Current.ID != 2 {
		t.Error("explicit next must advance despite repeat one")
	}
}

func TestEngine_ApplyCatalogDeletes(t *testing.T) {
	e := newTestEngine()
	e.PlayFromList(model.PlaylistSource(1), []model.Track{track(1), track(9), track(3)}, 9)
	e.AddToQueue(track(9))

	e.ApplyCatalogDeletes([]int64{9})

	snap := e.Snapshot()
	if snap.Current != nil {
		t.Error("deleted current item must be cleared")
	}
	if snap.Playing {
		t.Error("playback must stop when the current item is deleted")
	}
	for _, it := range snap.UpNext() {
		if it.ID == 9 {
			t.Error("deleted id must be removed from the queues")
		}
	}
	for _, it := range snap.History {
		if it.ID == 9 {
			t.Error("deleted id must be removed from history")
		}
	}
	for _, tr := range snap.Collection {
		if tr.ID == 9 {
			t.Error("deleted id must be removed from the collection")
		}
	}
}

func TestEngine_ApplyCatalogUpdates(t *testing.T) {
	e := newTestEngine()
	e.PlayFromList(model.PlaylistSource(1), []model.Track{track(1), track(2)}, 0)

	e.ApplyCatalogUpdates([]model.Track{{ID: 1, Title: "Renamed"}})

	snap := e.Snapshot()
	if snap.Current.Title != "Renamed" {
		t.Errorf("current title = %q, want Renamed", snap.Current.Title)
	}
	if snap.Current.Artist == "" {
		t.Error("absent fields must be preserved on merge")
	}
	if snap.Collection[0].Title != "Renamed" {
		t.Error("collection entry should be updated too")
	}
}

func historyIDs(snap model.PlayerSnapshot) []int64 {
	ids := make([]int64, 0, len(snap.History))
	for _, it := range snap.History {
		ids = append(ids, it.ID)
	}
	return ids
}
