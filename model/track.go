package model

import "time"

// Track is a catalog reference used by the queue engine. The engine never
// mutates a Track it receives; catalog updates arrive as whole replacement
// values and are merged by id.
type Track struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Album       string  `json:"album,omitempty"`
	CoverURL    string  `json:"coverUrl,omitempty"`
	AudioURL    string  `json:"audioUrl"` // Playable locator, absolute URL or presigned object URL
	Duration    float64 `json:"duration,omitempty"` // Duration in seconds
	AlbumID     int64   `json:"albumId,omitempty"`
	ArtistID    int64   `json:"artistId,omitempty"`
	PlaylistIDs []int64 `json:"playlistIds,omitempty"`
}

// CatalogTrack is the GORM model behind the tracks table. The repository
// converts rows to Track values before they reach the engine.
type CatalogTrack struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	UserID    int64     `json:"userId"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Album     string    `json:"album"`
	AudioPath string    `json:"-"` // MinIO object key for the audio file
	CoverPath string    `json:"coverPath"`
	Duration  float64   `json:"duration"`
	AlbumID   int64     `json:"albumId"`
	ArtistID  int64     `json:"artistId"`
	State     int8      `json:"state"` // 0=soft deleted, 1=normal
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName maps CatalogTrack onto the existing tracks table.
func (CatalogTrack) TableName() string {
	return "tracks"
}
