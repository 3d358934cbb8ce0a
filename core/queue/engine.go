// Package queue implements the playback queue engine: the state model of
// "what is playing now and what plays next", its mutation operations, the
// shuffle/repeat algorithms, debounced per-identity persistence and
// hydration against the track catalog.
package queue

import (
	"math/rand"
	"sync"
	"time"

	"EchoQ/model"

	"github.com/google/uuid"
)

// Engine owns the authoritative playback state for one identity. All access
// goes through its methods; the mutex stands in for the single logical
// thread of the browser client this engine was designed for.
type Engine struct {
	mu       sync.Mutex
	st       model.PlayerSnapshot
	rng      *rand.Rand
	onChange func(model.PlayerSnapshot)
}

// NewEngine creates an engine at default state.
func NewEngine() *Engine {
	return &Engine{
		st:  model.DefaultSnapshot(),
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetOnChange registers a callback invoked with a snapshot copy after every
// observable state change. Used to schedule debounced persistence.
func (e *Engine) SetOnChange(fn func(model.PlayerSnapshot)) {
	e.mu.Lock()
	e.onChange = fn
	e.mu.Unlock()
}

func (e *Engine) notify(snap model.PlayerSnapshot) {
	if e.onChange != nil {
		e.onChange(snap)
	}
}

// newItem wraps a track into a queue item with a fresh qid.
func (e *Engine) newItem(t model.Track, origin model.Origin) model.QueueItem {
	return model.QueueItem{
		Track:  t,
		QID:    uuid.NewString(),
		Origin: origin,
		From:   e.st.Source,
	}
}

// setCurrent promotes an item to currently playing and syncs the flat
// playback fields from it.
func (e *Engine) setCurrent(item *model.QueueItem, playing bool) {
	e.st.Current = item
	if item == nil {
		e.st.AudioURL = ""
		e.st.Title = ""
		e.st.Artist = ""
		e.st.CoverURL = ""
		e.st.CurrentID = 0
		e.st.Playing = false
		return
	}
	e.st.AudioURL = item.AudioURL
	e.st.Title = item.Title
	e.st.Artist = item.Artist
	e.st.CoverURL = item.CoverURL
	e.st.CurrentID = item.ID
	e.st.Playing = playing
}

// Snapshot returns a deep copy of the current state.
func (e *Engine) Snapshot() model.PlayerSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.Clone()
}

// UpNext returns the externally visible coming-up list: manual queue first,
// then the automatic queue.
func (e *Engine) UpNext() []model.QueueItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.UpNext()
}

// Install replaces the whole state, used by hydration. Replacement is
// wholesale so overlapping hydrations can never interleave field by field.
func (e *Engine) Install(snap model.PlayerSnapshot) {
	e.mu.Lock()
	e.st = snap.Clone()
	if e.st.Repeat == "" {
		e.st.Repeat = model.RepeatOff
	}
	out := e.st.Clone()
	e.mu.Unlock()
	e.notify(out)
}

// Reset returns the engine to its default state.
func (e *Engine) Reset() {
	e.Install(model.DefaultSnapshot())
}

// AddToQueue appends a track to the end of the manual queue with a fresh
// qid and the currently active source reference. The same track may be
// queued any number of times.
func (e *Engine) AddToQueue(t model.Track) model.QueueItem {
	e.mu.Lock()
	item := e.newItem(t, model.OriginManual)
	e.st.QueueManual = append(e.st.QueueManual, item)
	snap := e.st.Clone()
	e.mu.Unlock()
	e.notify(snap)
	return item
}

// RemoveFromQueue removes the item with the given qid from whichever queue
// contains it. Absent qid is a no-op.
func (e *Engine) RemoveFromQueue(qid string) {
	e.mu.Lock()
	removed := false
	if i := indexByQID(e.st.QueueManual, qid); i >= 0 {
		e.st.QueueManual = append(e.st.QueueManual[:i], e.st.QueueManual[i+1:]...)
		removed = true
	} else if i := indexByQID(e.st.QueueAuto, qid); i >= 0 {
		e.st.QueueAuto = append(e.st.QueueAuto[:i], e.st.QueueAuto[i+1:]...)
		removed = true
	}
	if !removed {
		e.mu.Unlock()
		return
	}
	snap := e.st.Clone()
	e.mu.Unlock()
	e.notify(snap)
}

// MoveManual reorders the manual queue by extracting the item at from and
// reinserting it at to. Out-of-range indices and from==to are no-ops.
func (e *Engine) MoveManual(from, to int) {
	e.mu.Lock()
	n := len(e.st.QueueManual)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		e.mu.Unlock()
		return
	}
	item := e.st.QueueManual[from]
	rest := append(e.st.QueueManual[:from], e.st.QueueManual[from+1:]...)
	e.st.QueueManual = append(rest[:to], append([]model.QueueItem{item}, rest[to:]...)...)
	snap := e.st.Clone()
	e.mu.Unlock()
	e.notify(snap)
}

// ClearQueue empties both queues. With keepCurrent=false it additionally
// clears the current item, stops playback and resets shuffle, repeat,
// source, collection and history to defaults.
func (e *Engine) ClearQueue(keepCurrent bool) {
	e.mu.Lock()
	if keepCurrent {
		e.st.QueueManual = nil
		e.st.QueueAuto = nil
	} else {
		e.st = model.DefaultSnapshot()
	}
	snap := e.st.Clone()
	e.mu.Unlock()
	e.notify(snap)
}

// PlayNow promotes the queued item with the given qid to currently playing,
// pushing the previous current item onto history. Absent qid is a no-op.
func (e *Engine) PlayNow(qid string) {
	e.mu.Lock()
	var item *model.QueueItem
	if i := indexByQID(e.st.QueueManual, qid); i >= 0 {
		it := e.st.QueueManual[i]
		e.st.QueueManual = append(e.st.QueueManual[:i], e.st.QueueManual[i+1:]...)
		item = &it
	} else if i := indexByQID(e.st.QueueAuto, qid); i >= 0 {
		it := e.st.QueueAuto[i]
		e.st.QueueAuto = append(e.st.QueueAuto[:i], e.st.QueueAuto[i+1:]...)
		item = &it
	}
	if item == nil {
		e.mu.Unlock()
		return
	}
	if e.st.Current != nil {
		e.st.History = append(e.st.History, *e.st.Current)
	}
	e.setCurrent(item, true)
	snap := e.st.Clone()
	e.mu.Unlock()
	e.notify(snap)
}

// PlayRequest describes a play-one action coming from the client.
type PlayRequest struct {
	AudioURL string `json:"audioUrl"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	CoverURL string `json:"coverUrl,omitempty"`
	TrackID  int64  `json:"trackId,omitempty"`
}

// PlaySong plays one track. When the track id is a member of the active
// collection this is a jump to that position inside the collection and the
// automatic queue is rebuilt around it. Otherwise a synthetic one-off item
// becomes current; the two paths have different queue continuation
// semantics and are deliberately not reconciled.
func (e *Engine) PlaySong(req PlayRequest) {
	e.mu.Lock()
	if req.TrackID != 0 {
		if i := indexByTrackID(e.st.Collection, req.TrackID); i >= 0 {
			e.rebuildFrom(i)
			snap := e.st.Clone()
			e.mu.Unlock()
			e.notify(snap)
			return
		}
	}

	item := e.newItem(model.Track{
		ID:       req.TrackID,
		Title:    req.Title,
		Artist:   req.Artist,
		CoverURL: req.CoverURL,
		AudioURL: req.AudioURL,
	}, model.OriginManual)
	if e.st.Current != nil {
		e.st.History = append(e.st.History, *e.st.Current)
	}
	e.setCurrent(&item, true)
	snap := e.st.Clone()
	e.mu.Unlock()
	e.notify(snap)
}

// PlayFromList establishes a new collection and source reference from an
// ordered track list, then rebuilds the automatic queue starting at
// startTrackID (index 0 when zero or absent). An empty list is a no-op.
func (e *Engine) PlayFromList(src model.SourceRef, tracks []model.Track, startTrackID int64) {
	if len(tracks) == 0 {
		return
	}
	e.mu.Lock()
	e.st.Source = src
	e.st.Collection = append([]model.Track(nil), tracks...)
	start := 0
	if i := indexByTrackID(e.st.Collection, startTrackID); i >= 0 {
		start = i
	}
	e.rebuildFrom(start)
	snap := e.st.Clone()
	e.mu.Unlock()
	e.notify(snap)
}

// rebuildFrom rebuilds current, history and the automatic queue from the
// collection at index i, honoring the shuffle flag. Every derived item
// gets a fresh qid, origin auto and the active source reference. The manual
// queue is left untouched. Caller holds the lock.
func (e *Engine) rebuildFrom(i int) {
	if i < 0 || i >= len(e.st.Collection) {
		return
	}

	now := e.newItem(e.st.Collection[i], model.OriginAuto)

	if e.st.Shuffle {
		e.st.History = nil
		rest := make([]model.Track, 0, len(e.st.Collection)-1)
		rest = append(rest, e.st.Collection[:i]...)
		rest = append(rest, e.st.Collection[i+1:]...)
		// Fisher-Yates
		for j := len(rest) - 1; j > 0; j-- {
			k := e.rng.Intn(j + 1)
			rest[j], rest[k] = rest[k], rest[j]
		}
		auto := make([]model.QueueItem, 0, len(rest))
		for _, t := range rest {
			auto = append(auto, e.newItem(t, model.OriginAuto))
		}
		e.st.QueueAuto = auto
	} else {
		hist := make([]model.QueueItem, 0, i)
		for _, t := range e.st.Collection[:i] {
			hist = append(hist, e.newItem(t, model.OriginAuto))
		}
		e.st.History = hist
		auto := make([]model.QueueItem, 0, len(e.st.Collection)-i-1)
		for _, t := range e.st.Collection[i+1:] {
			auto = append(auto, e.newItem(t, model.OriginAuto))
		}
		e.st.QueueAuto = auto
	}

	e.setCurrent(&now, true)
}

// rebuildAround regenerates history and the automatic queue around the
// existing current item without replacing it, used by shuffle toggling so
// playback is not interrupted. Caller holds the lock.
func (e *Engine) rebuildAround(i int) {
	cur := e.st.Current
	playing := e.st.Playing
	e.rebuildFrom(i)
	e.setCurrent(cur, playing)
}

// ToggleShuffle flips the shuffle flag. With an active collection the
// automatic queue and history are rebuilt around the current item under
// the new flag. Without one, the automatic queue is shuffled in place on
// enable; on disable the received order stands, since the original order
// is not recoverable without a collection.
func (e *Engine) ToggleShuffle() {
	e.mu.Lock()
	e.st.Shuffle = !e.st.Shuffle

	if e.st.Current != nil && len(e.st.Collection) > 0 {
		if i := indexByTrackID(e.st.Collection, e.st.Current.ID); i >= 0 {
			e.rebuildAround(i)
			snap := e.st.Clone()
			e.mu.Unlock()
			e.notify(snap)
			return
		}
	}

	if e.st.Shuffle {
		for j := len(e.st.QueueAuto) - 1; j > 0; j-- {
			k := e.rng.Intn(j + 1)
			e.st.QueueAuto[j], e.st.QueueAuto[k] = e.st.QueueAuto[k], e.st.QueueAuto[j]
		}
	}
	snap := e.st.Clone()
	e.mu.Unlock()
	e.notify(snap)
}

// CycleRepeat toggles repeat between off and one.
func (e *Engine) CycleRepeat() {
	e.mu.Lock()
	if e.st.Repeat == model.RepeatOne {
		e.st.Repeat = model.RepeatOff
	} else {
		e.st.Repeat = model.RepeatOne
	}
	snap := e.st.Clone()
	e.mu.Unlock()
	e.notify(snap)
}

// Next advances to the next item: the previous current goes onto history,
// the manual queue has priority over the automatic one. With both queues
// empty playback stops and the current item stays in place. An explicit
// Next always advances, regardless of repeat mode.
func (e *Engine) Next() {
	e.mu.Lock()
	e.advance()
	snap := e.st.Clone()
	e.mu.Unlock()
	e.notify(snap)
}

// advance implements Next. Caller holds the lock.
func (e *Engine) advance() {
	var next *model.QueueItem
	if len(e.st.QueueManual) > 0 {
		it := e.st.QueueManual[0]
		e.st.QueueManual = e.st.QueueManual[1:]
		next = &it
	} else if len(e.st.QueueAuto) > 0 {
		it := e.st.QueueAuto[0]
		e.st.QueueAuto = e.st.QueueAuto[1:]
		next = &it
	}

	if next == nil {
		// Stopped, not empty: the current item stays.
		e.st.Playing = false
		return
	}

	if e.st.Current != nil {
		e.st.History = append(e.st.History, *e.st.Current)
	}
	e.setCurrent(next, true)
}

// TrackEnded handles natural end of playback: with repeat one the current
// item replays, otherwise it behaves like Next.
func (e *Engine) TrackEnded() {
	e.mu.Lock()
	if e.st.Repeat == model.RepeatOne && e.st.Current != nil {
		e.st.Playing = true
		snap := e.st.Clone()
		e.mu.Unlock()
		e.notify(snap)
		return
	}
	e.advance()
	snap := e.st.Clone()
	e.mu.Unlock()
	e.notify(snap)
}

// Prev pops the most recent history entry and makes it current. The item
// that was playing is reinserted at the front of the queue it originated
// from, per its origin tag. Empty history is a no-op.
func (e *Engine) Prev() {
	e.mu.Lock()
	n := len(e.st.History)
	if n == 0 {
		e.mu.Unlock()
		return
	}
	last := e.st.History[n-1]
	e.st.History = e.st.History[:n-1]

	if cur := e.st.Current; cur != nil {
		if cur.Origin == model.OriginManual {
			e.st.QueueManual = append([]model.QueueItem{*cur}, e.st.QueueManual...)
		} else {
			e.st.QueueAuto = append([]model.QueueItem{*cur}, e.st.QueueAuto...)
		}
	}
	e.setCurrent(&last, true)
	snap := e.st.Clone()
	e.mu.Unlock()
	e.notify(snap)
}

// ApplyCatalogUpdates merges fresh metadata into matching entries by track
// id. Fields present in the update overwrite, absent fields are preserved.
func (e *Engine) ApplyCatalogUpdates(items []model.Track) {
	if len(items) == 0 {
		return
	}
	byID := make(map[int64]model.Track, len(items))
	for _, t := range items {
		byID[t.ID] = t
	}

	e.mu.Lock()
	changed := false
	if e.st.Current != nil {
		if upd, ok := byID[e.st.Current.ID]; ok {
			mergeTrack(&e.st.Current.Track, upd)
			e.setCurrent(e.st.Current, e.st.Playing)
			changed = true
		}
	}
	for i := range e.st.QueueManual {
		if upd, ok := byID[e.st.QueueManual[i].ID]; ok {
			mergeTrack(&e.st.QueueManual[i].Track, upd)
			changed = true
		}
	}
	for i := range e.st.QueueAuto {
		if upd, ok := byID[e.st.QueueAuto[i].ID]; ok {
			mergeTrack(&e.st.QueueAuto[i].Track, upd)
			changed = true
		}
	}
	for i := range e.st.Collection {
		if upd, ok := byID[e.st.Collection[i].ID]; ok {
			mergeTrack(&e.st.Collection[i], upd)
			changed = true
		}
	}
	if !changed {
		e.mu.Unlock()
		return
	}
	snap := e.st.Clone()
	e.mu.Unlock()
	e.notify(snap)
}

// ApplyCatalogDeletes removes matching entries from both queues, history and
// the collection. If the current item is among the deleted ids it is cleared
// and playback stops.
func (e *Engine) ApplyCatalogDeletes(ids []int64) {
	if len(ids) == 0 {
		return
	}
	gone := make(map[int64]bool, len(ids))
	for _, id := range ids {
		gone[id] = true
	}

	e.mu.Lock()
	before := len(e.st.QueueManual) + len(e.st.QueueAuto) + len(e.st.History) + len(e.st.Collection)
	e.st.QueueManual = dropItems(e.st.QueueManual, gone)
	e.st.QueueAuto = dropItems(e.st.QueueAuto, gone)
	e.st.History = dropItems(e.st.History, gone)
	e.st.Collection = dropTracks(e.st.Collection, gone)
	after := len(e.st.QueueManual) + len(e.st.QueueAuto) + len(e.st.History) + len(e.st.Collection)

	changed := before != after
	if e.st.Current != nil && gone[e.st.Current.ID] {
		e.setCurrent(nil, false)
		changed = true
	}
	if !changed {
		e.mu.Unlock()
		return
	}
	snap := e.st.Clone()
	e.mu.Unlock()
	e.notify(snap)
}

func indexByQID(items []model.QueueItem, qid string) int {
	for i, it := range items {
		if it.QID == qid {
			return i
		}
	}
	return -1
}

func indexByTrackID(tracks []model.Track, id int64) int {
	if id == 0 {
		return -1
	}
	for i, t := range tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func dropItems(items []model.QueueItem, gone map[int64]bool) []model.QueueItem {
	out := items[:0:0]
	for _, it := range items {
		if !gone[it.ID] {
			out = append(out, it)
		}
	}
	return out
}

func dropTracks(tracks []model.Track, gone map[int64]bool) []model.Track {
	out := tracks[:0:0]
	for _, t := range tracks {
		if !gone[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

// mergeTrack overwrites dst fields that are present (non-zero) in src.
func mergeTrack(dst *model.Track, src model.Track) {
	if src.Title != "" {
		dst.Title = src.Title
	}
	if src.Artist != "" {
		dst.Artist = src.Artist
	}
	if src.Album != "" {
		dst.Album = src.Album
	}
	if src.CoverURL != "" {
		dst.CoverURL = src.CoverURL
	}
	if src.AudioURL != "" {
		dst.AudioURL = src.AudioURL
	}
	if src.Duration != 0 {
		dst.Duration = src.Duration
	}
	if src.AlbumID != 0 {
		dst.AlbumID = src.AlbumID
	}
	if src.ArtistID != 0 {
		dst.ArtistID = src.ArtistID
	}
	if len(src.PlaylistIDs) > 0 {
		dst.PlaylistIDs = src.PlaylistIDs
	}
}
