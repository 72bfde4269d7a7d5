package models

import "time"

// Destination collections. They are provisioned before ingestion starts.
const (
	CollectionMovies   = "movies"
	CollectionShows    = "shows"
	CollectionSeasons  = "showSeasons"
	CollectionEpisodes = "showEpisodes"
)

// AgeRestriction is the enumerated age tier attribute shared by movies and shows.
type AgeRestriction string

const (
	AR7  AgeRestriction = "AR7"
	AR13 AgeRestriction = "AR13"
	AR16 AgeRestriction = "AR16"
	AR18 AgeRestriction = "AR18"
)

// Valid reports whether the tier is one the schema accepts.
func (a AgeRestriction) Valid() bool {
	switch a {
	case AR7, AR13, AR16, AR18:
		return true
	}
	return false
}

// Schema limits enforced before a record is written.
const (
	MaxNameLength        = 255
	MaxDescriptionLength = 5000
	MaxListLength        = 1024
	MinDurationMinutes   = 1
	MaxDurationMinutes   = 1000
	MaxSortIndex         = 1000

	DefaultDescription = "Just watch it, no time to explain!"
)

// MovieRecord is a document in the movies collection.
type MovieRecord struct {
	Name               string         `mapstructure:"name"`
	Description        string         `mapstructure:"description"`
	ThumbnailImageID   string         `mapstructure:"thumbnailImageId"`
	ReleaseDate        int64          `mapstructure:"releaseDate,omitempty"`
	ReleaseYear        int            `mapstructure:"releaseYear,omitempty"`
	DurationMinutes    int            `mapstructure:"durationMinutes"`
	AgeRestriction     AgeRestriction `mapstructure:"ageRestriction"`
	TrendingIndex      float64        `mapstructure:"trendingIndex"`
	IsOriginal         bool           `mapstructure:"isOriginal"`
	NetflixReleaseDate int64          `mapstructure:"netflixReleaseDate,omitempty"`
	Genres             []string       `mapstructure:"genres"`
	Tags               []string       `mapstructure:"tags"`
	Cast               []string       `mapstructure:"cast"`
}

// ShowRecord is a document in the shows collection.
type ShowRecord struct {
	Name             string         `mapstructure:"name"`
	Description      string         `mapstructure:"description"`
	ThumbnailImageID string         `mapstructure:"thumbnailImageId"`
	ReleaseDate      int64          `mapstructure:"releaseDate,omitempty"`
	ReleaseYear      int            `mapstructure:"releaseYear,omitempty"`
	AgeRestriction   AgeRestriction `mapstructure:"ageRestriction"`
	Genres           []string       `mapstructure:"genres"`
	Tags             []string       `mapstructure:"tags"`
	Cast             []string       `mapstructure:"cast"`
}

// SeasonRecord is a document in the showSeasons collection. ShowID must
// reference a show that has already been written.
type SeasonRecord struct {
	ShowID      string `mapstructure:"showId"`
	SortIndex   int    `mapstructure:"sortIndex"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	ReleaseDate int64  `mapstructure:"releaseDate,omitempty"`
	ReleaseYear int    `mapstructure:"releaseYear,omitempty"`
}

// EpisodeRecord is a document in the showEpisodes collection. ShowSeasonID
// must reference a season that has already been written.
type EpisodeRecord struct {
	ShowSeasonID    string `mapstructure:"showSeasonId"`
	SortIndex       int    `mapstructure:"sortIndex"`
	Name            string `mapstructure:"name"`
	Description     string `mapstructure:"description"`
	ReleaseDate     int64  `mapstructure:"releaseDate,omitempty"`
	ReleaseYear     int    `mapstructure:"releaseYear,omitempty"`
	DurationMinutes int    `mapstructure:"durationMinutes"`
}

// Fields is the attribute map handed to a document store.
type Fields map[string]any

// Record is a document as acknowledged by the document store.
type Record struct {
	ID         string `json:"id"`
	Collection string `json:"collection"`
	Fields     Fields `json:"fields"`
}

// Run states reported through IngestionStatus.
const (
	StatusNeverRun = "never_run"
	StatusRunning  = "running"
	StatusSuccess  = "success"
	StatusFailure  = "failure"
)

// IngestionStatus tracks the progress of the current ingestion run
type IngestionStatus struct {
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at,omitempty"`
	Status          string         `json:"status"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	Kind            string         `json:"kind,omitempty"`
	Page            int            `json:"page"`
	MaxPages        int            `json:"max_pages"`
	RecordsCreated  map[string]int `json:"records_created"`
	ItemsSkipped    int            `json:"items_skipped"`
	ItemsFailed     int            `json:"items_failed"`
	WriteRecoveries int            `json:"write_recoveries"`
}
