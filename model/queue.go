package model

// Origin distinguishes user-enqueued items from items the engine derived
// while playing through a collection.
type Origin string

const (
	OriginManual Origin = "manual"
	OriginAuto   Origin = "auto"
)

// SourceKind tags the collection context driving automatic queue
// continuation.
type SourceKind string

const (
	SourceNone     SourceKind = ""
	SourcePlaylist SourceKind = "playlist"
	SourceAlbum    SourceKind = "album"
)

// SourceRef identifies the active collection context. At most one is active
// at a time; the zero value means none.
type SourceRef struct {
	Kind SourceKind `json:"kind,omitempty"`
	ID   int64      `json:"id,omitempty"`
}

// PlaylistSource returns a SourceRef for a playlist.
func PlaylistSource(id int64) SourceRef {
	return SourceRef{Kind: SourcePlaylist, ID: id}
}

// AlbumSource returns a SourceRef for an album.
func AlbumSource(id int64) SourceRef {
	return SourceRef{Kind: SourceAlbum, ID: id}
}

// IsZero reports whether no collection context is active.
func (s SourceRef) IsZero() bool {
	return s.Kind == SourceNone
}

// QueueItem is a Track occurrence in the queue. The same track may be queued
// more than once; queue operations identify items by QID, never by track id.
type QueueItem struct {
	Track
	QID    string    `json:"qid"`    // Engine-generated, unique per occurrence
	Origin Origin    `json:"origin"` // manual or auto
	From   SourceRef `json:"from"`   // Provenance, used only for queue rebuilding
}

// RepeatMode is a two-state cycle: off or repeat-one.
type RepeatMode string

const (
	RepeatOff RepeatMode = "off"
	RepeatOne RepeatMode = "one"
)

// PlayerSnapshot is the full reproducible playback state. It is what the
// persistence manager writes to the per-identity slot and what hydration
// installs wholesale.
type PlayerSnapshot struct {
	AudioURL  string `json:"audioUrl,omitempty"`
	Title     string `json:"title,omitempty"`
	Artist    string `json:"artist,omitempty"`
	CoverURL  string `json:"coverUrl,omitempty"`
	CurrentID int64  `json:"currentId,omitempty"`
	Playing   bool   `json:"playing"`

	Current     *QueueItem  `json:"current,omitempty"`
	QueueManual []QueueItem `json:"queueManual"`
	QueueAuto   []QueueItem `json:"queueAuto"`
	History     []QueueItem `json:"history"` // Most recent last

	Shuffle    bool       `json:"shuffle"`
	Repeat     RepeatMode `json:"repeat"`
	Source     SourceRef  `json:"source"`
	Collection []Track    `json:"collection"`
}

// DefaultSnapshot returns the engine's initial state.
func DefaultSnapshot() PlayerSnapshot {
	return PlayerSnapshot{Repeat: RepeatOff}
}

// UpNext is the externally visible "coming up" list: the manual queue
// followed by the automatic queue. It is derived on demand and never stored.
func (s *PlayerSnapshot) UpNext() []QueueItem {
	up := make([]QueueItem, 0, len(s.QueueManual)+len(s.QueueAuto))
	up = append(up, s.QueueManual...)
	up = append(up, s.QueueAuto...)
	return up
}

// TrackIDs returns the distinct track ids referenced anywhere in the
// snapshot: current item, both queues, history and the collection.
func (s *PlayerSnapshot) TrackIDs() []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	add := func(id int64) {
		if id != 0 && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if s.Current != nil {
		add(s.Current.ID)
	}
	for _, it := range s.QueueManual {
		add(it.ID)
	}
	for _, it := range s.QueueAuto {
		add(it.ID)
	}
	for _, it := range s.History {
		add(it.ID)
	}
	for _, t := range s.Collection {
		add(t.ID)
	}
	return ids
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s *PlayerSnapshot) Clone() PlayerSnapshot {
	out := *s
	if s.Current != nil {
		cur := *s.Current
		out.Current = &cur
	}
	out.QueueManual = append([]QueueItem(nil), s.QueueManual...)
	out.QueueAuto = append([]QueueItem(nil), s.QueueAuto...)
	out.History = append([]QueueItem(nil), s.History...)
	out.Collection = append([]Track(nil), s.Collection...)
	return out
}
