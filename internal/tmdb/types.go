package tmdb

import (
	"strings"
	"time"
)

// Kind selects the TMDB catalog a request targets.
type Kind string

const (
	KindMovie Kind = "movie"
	KindShow  Kind = "tv"
)

type (
	// ListingPage is one page of the /popular endpoint.
	ListingPage struct {
		Page         int        `json:"page"`
		Results      []ListItem `json:"results"`
		TotalPages   int        `json:"total_pages"`
		TotalResults int        `json:"total_results"`
	}

	// ListItem is the summary of a movie or show found on a listing page.
	// Movies carry Title, shows carry Name.
	ListItem struct {
		ID           int     `json:"id"`
		Title        string  `json:"title"`
		Name         string  `json:"name"`
		Overview     string  `json:"overview"`
		PosterPath   string  `json:"poster_path"`
		BackdropPath string  `json:"backdrop_path"`
		Adult        bool    `json:"adult"`
		Popularity   float64 `json:"popularity"`
	}

	Genre struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	Keyword struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	CastMember struct {
		ID         int     `json:"id"`
		Name       string  `json:"name"`
		Character  string  `json:"character"`
		Popularity float64 `json:"popularity"`
		Order      int     `json:"order"`
	}

	Credits struct {
		ID   int          `json:"id"`
		Cast []CastMember `json:"cast"`
	}

	MovieDetail struct {
		ID          int     `json:"id"`
		Title       string  `json:"title"`
		Overview    string  `json:"overview"`
		Adult       bool    `json:"adult"`
		Runtime     int     `json:"runtime"`
		ReleaseDate string  `json:"release_date"`
		Popularity  float64 `json:"popularity"`
		Genres      []Genre `json:"genres"`
	}

	SeasonSummary struct {
		ID           int    `json:"id"`
		Name         string `json:"name"`
		Overview     string `json:"overview"`
		AirDate      string `json:"air_date"`
		SeasonNumber int    `json:"season_number"`
		EpisodeCount int    `json:"episode_count"`
	}

	ShowDetail struct {
		ID           int             `json:"id"`
		Name         string          `json:"name"`
		Overview     string          `json:"overview"`
		Adult        bool            `json:"adult"`
		FirstAirDate string          `json:"first_air_date"`
		Popularity   float64         `json:"popularity"`
		Genres       []Genre         `json:"genres"`
		Seasons      []SeasonSummary `json:"seasons"`
	}

	Episode struct {
		ID            int    `json:"id"`
		Name          string `json:"name"`
		Overview      string `json:"overview"`
		AirDate       string `json:"air_date"`
		EpisodeNumber int    `json:"episode_number"`
		Runtime       int    `json:"runtime"`
	}

	SeasonDetail struct {
		ID           int       `json:"id"`
		Name         string    `json:"name"`
		SeasonNumber int       `json:"season_number"`
		Episodes     []Episode `json:"episodes"`
	}

	// keywordsResponse covers both keyword payloads: movies list them under
	// "keywords", shows under "results".
	keywordsResponse struct {
		ID       int       `json:"id"`
		Keywords []Keyword `json:"keywords"`
		Results  []Keyword `json:"results"`
	}
)

// DisplayName returns the title of a movie or the name of a show.
func (item ListItem) DisplayName() string {
	if item.Title != "" {
		return item.Title
	}
	return item.Name
}

// ImagePath returns the poster, falling back to the backdrop. An empty
// result means the item has no usable image.
func (item ListItem) ImagePath() string {
	if p := strings.TrimSpace(item.PosterPath); p != "" {
		return p
	}
	return strings.TrimSpace(item.BackdropPath)
}

// ParseDate parses a TMDB YYYY-MM-DD date as UTC midnight. Empty and
// malformed values report false.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	parsed, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// GenreNames extracts genre names in provider order.
func GenreNames(genres []Genre) []string {
	out := make([]string, 0, len(genres))
	for _, g := range genres {
		if name := strings.TrimSpace(g.Name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// KeywordNames extracts keyword names in provider order.
func KeywordNames(keywords []Keyword) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if name := strings.TrimSpace(k.Name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
