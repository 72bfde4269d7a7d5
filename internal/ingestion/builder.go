package ingestion

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/cyderes/catalog-ingestion-service/internal/models"
	"github.com/cyderes/catalog-ingestion-service/internal/tmdb"
)

// movieCastLimit is how many of the most popular cast members a movie keeps.
const movieCastLimit = 5

// BuildMovie maps a fully fetched movie onto a catalog record. Synthetic
// fields are left zero; an Enricher fills them.
func BuildMovie(item tmdb.ListItem, detail *tmdb.MovieDetail, keywords []tmdb.Keyword, credits *tmdb.Credits, thumbnailID string) models.MovieRecord {
	releaseDate, releaseYear := releaseFields(detail.ReleaseDate)

	ageRestriction := models.AR13
	if detail.Adult || item.Adult {
		ageRestriction = models.AR18
	}

	return models.MovieRecord{
		Name:             clampName(firstNonEmpty(detail.Title, item.DisplayName())),
		Description:      clampDescription(firstNonEmpty(detail.Overview, item.Overview)),
		ThumbnailImageID: thumbnailID,
		ReleaseDate:      releaseDate,
		ReleaseYear:      releaseYear,
		DurationMinutes:  clampDuration(detail.Runtime),
		AgeRestriction:   ageRestriction,
		TrendingIndex:    firstPositive(detail.Popularity, item.Popularity),
		Genres:           tmdb.GenreNames(detail.Genres),
		Tags:             tmdb.KeywordNames(keywords),
		Cast:             topCast(credits, movieCastLimit),
	}
}

// BuildShow maps a fully fetched show onto a catalog record. TMDB exposes
// no content rating on TV listings, so every show gets the strictest tier.
func BuildShow(item tmdb.ListItem, detail *tmdb.ShowDetail, keywords []tmdb.Keyword, credits *tmdb.Credits, thumbnailID string) models.ShowRecord {
	releaseDate, releaseYear := releaseFields(detail.FirstAirDate)

	return models.ShowRecord{
		Name:             clampName(firstNonEmpty(detail.Name, item.DisplayName())),
		Description:      clampDescription(firstNonEmpty(detail.Overview, item.Overview)),
		ThumbnailImageID: thumbnailID,
		ReleaseDate:      releaseDate,
		ReleaseYear:      releaseYear,
		AgeRestriction:   models.AR18,
		Genres:           tmdb.GenreNames(detail.Genres),
		Tags:             tmdb.KeywordNames(keywords),
		Cast:             castNames(credits),
	}
}

// BuildSeason maps the season at position sortIndex of a persisted show.
func BuildSeason(showID string, sortIndex int, season tmdb.SeasonSummary) models.SeasonRecord {
	releaseDate, releaseYear := releaseFields(season.AirDate)

	return models.SeasonRecord{
		ShowID:      showID,
		SortIndex:   sortIndex,
		Name:        clampName(firstNonEmpty(season.Name, fmt.Sprintf("Season %d", season.SeasonNumber))),
		Description: clampDescription(season.Overview),
		ReleaseDate: releaseDate,
		ReleaseYear: releaseYear,
	}
}

// BuildEpisode maps the episode at position sortIndex of a persisted season.
func BuildEpisode(seasonID string, sortIndex int, episode tmdb.Episode) models.EpisodeRecord {
	releaseDate, releaseYear := releaseFields(episode.AirDate)

	return models.EpisodeRecord{
		ShowSeasonID:    seasonID,
		SortIndex:       sortIndex,
		Name:            clampName(firstNonEmpty(episode.Name, fmt.Sprintf("Episode %d", episode.EpisodeNumber))),
		Description:     clampDescription(episode.Overview),
		ReleaseDate:     releaseDate,
		ReleaseYear:     releaseYear,
		DurationMinutes: clampDuration(episode.Runtime),
	}
}

// releaseFields returns the epoch seconds and year of a provider date, or
// zeros when the date is missing or malformed.
func releaseFields(value string) (int64, int) {
	parsed, ok := tmdb.ParseDate(value)
	if !ok {
		return 0, 0
	}
	return parsed.Unix(), parsed.Year()
}

func clampDuration(runtime int) int {
	return min(max(runtime, models.MinDurationMinutes), models.MaxDurationMinutes)
}

func clampName(name string) string {
	return truncateRunes(strings.TrimSpace(name), models.MaxNameLength)
}

func clampDescription(description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return models.DefaultDescription
	}
	return truncateRunes(description, models.MaxDescriptionLength)
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

// topCast returns the names of the limit most popular cast members.
func topCast(credits *tmdb.Credits, limit int) []string {
	if credits == nil {
		return []string{}
	}

	cast := slices.Clone(credits.Cast)
	slices.SortStableFunc(cast, func(a, b tmdb.CastMember) int {
		return cmp.Compare(b.Popularity, a.Popularity)
	})
	if len(cast) > limit {
		cast = cast[:limit]
	}
	return memberNames(cast)
}

func castNames(credits *tmdb.Credits) []string {
	if credits == nil {
		return []string{}
	}
	return memberNames(credits.Cast)
}

func memberNames(cast []tmdb.CastMember) []string {
	out := make([]string, 0, len(cast))
	for _, member := range cast {
		if name := strings.TrimSpace(member.Name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...float64) float64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
