package ingestion

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cyderes/catalog-ingestion-service/internal/config"
	"github.com/cyderes/catalog-ingestion-service/internal/models"
	"github.com/mitchellh/mapstructure"
)

// ListMode selects how genres, tags and cast are written.
type ListMode string

const (
	// ListJoined writes each list as one comma-separated string attribute.
	ListJoined ListMode = "joined"
	// ListSeparate writes each list as a string array attribute.
	ListSeparate ListMode = "list"
)

// DateMode selects which release attribute is written.
type DateMode string

const (
	DateFull DateMode = "date"
	DateYear DateMode = "year"
)

// TrendingMode selects where a movie's trendingIndex comes from.
type TrendingMode string

const (
	TrendingPopularity TrendingMode = "popularity"
	TrendingRandom     TrendingMode = "random"
)

const listSeparator = ", "

// Shape describes the destination schema variant records are encoded for.
type Shape struct {
	Lists    ListMode
	Dates    DateMode
	Trending TrendingMode
}

// DefaultShape is the schema the catalog currently provisions.
func DefaultShape() Shape {
	return Shape{Lists: ListJoined, Dates: DateFull, Trending: TrendingRandom}
}

// ShapeFromConfig reads the shape from validated ingestion configuration.
func ShapeFromConfig(cfg config.IngestionConfig) Shape {
	return Shape{
		Lists:    ListMode(cfg.ListMode),
		Dates:    DateMode(cfg.DateMode),
		Trending: TrendingMode(cfg.TrendingMode),
	}
}

// Encode flattens a record struct into the attribute map written to the
// document store.
func (s Shape) Encode(record any) (models.Fields, error) {
	var raw map[string]any
	if err := mapstructure.Decode(record, &raw); err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", record, err)
	}

	fields := make(models.Fields, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case models.AgeRestriction:
			fields[key] = string(v)
		case []string:
			fields[key] = s.encodeList(v)
		default:
			fields[key] = v
		}
	}

	if s.Dates == DateYear {
		delete(fields, "releaseDate")
	} else {
		delete(fields, "releaseYear")
	}

	return fields, nil
}

func (s Shape) encodeList(values []string) any {
	if s.Lists == ListSeparate {
		out := make([]string, 0, len(values))
		for _, v := range values {
			out = append(out, truncateRunes(v, models.MaxNameLength))
		}
		return out
	}
	return joinBounded(values, models.MaxListLength)
}

// joinBounded joins values with ", ", dropping trailing entries that would
// push the result past limit runes. A single oversized entry is cut.
func joinBounded(values []string, limit int) string {
	var b strings.Builder
	length := 0
	for i, v := range values {
		sep := 0
		if i > 0 {
			sep = utf8.RuneCountInString(listSeparator)
		}
		n := utf8.RuneCountInString(v)
		if length+sep+n > limit {
			if i == 0 {
				return truncateRunes(v, limit)
			}
			break
		}
		if i > 0 {
			b.WriteString(listSeparator)
		}
		b.WriteString(v)
		length += sep + n
	}
	return b.String()
}
