package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/cyderes/catalog-ingestion-service/internal/config"
	"github.com/cyderes/catalog-ingestion-service/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

const sqlDialect = "postgres"

//go:embed migrations/*.sql
var migrations embed.FS

// Postgres identifiers are case-folded, so camelCase collection names map
// onto snake_case tables.
var postgresTables = map[string]string{
	models.CollectionMovies:   "movies",
	models.CollectionShows:    "shows",
	models.CollectionSeasons:  "show_seasons",
	models.CollectionEpisodes: "show_episodes",
}

// PostgreSQLStorage implements DocumentStore with one JSONB table per collection
type PostgreSQLStorage struct {
	db      *sqlx.DB
	builder sq.StatementBuilderType
}

// NewPostgreSQLStorage connects to PostgreSQL and applies the embedded migrations
func NewPostgreSQLStorage(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*PostgreSQLStorage, error) {
	db, err := sqlx.ConnectContext(ctx, sqlDialect, cfg.PostgresURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := ExecuteMigrations(ctx, db.DB, logger); err != nil {
		db.Close()
		return nil, err
	}

	return newPostgreSQLStorage(db), nil
}

func newPostgreSQLStorage(db *sqlx.DB) *PostgreSQLStorage {
	return &PostgreSQLStorage{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// ExecuteMigrations runs the compile-time embedded SQL migrations (found in
// the 'migrations' dir of this package) against db.
func ExecuteMigrations(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{logger.Named("migrations").Sugar()})
	if err := goose.SetDialect(sqlDialect); err != nil {
		return fmt.Errorf("failed to set dialect for DB migration: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to migrate DB: %w", err)
	}

	return nil
}

// CreateRecord inserts one document as a JSONB row
func (p *PostgreSQLStorage) CreateRecord(ctx context.Context, collection string, fields models.Fields) (models.Record, error) {
	table, ok := postgresTables[collection]
	if !ok {
		return models.Record{}, fmt.Errorf("unknown collection %q", collection)
	}

	payload, err := json.Marshal(fields)
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to marshal %s record: %w", collection, err)
	}

	id := uuid.NewString()
	query, args, err := p.builder.
		Insert(table).
		Columns("id", "fields").
		Values(id, string(payload)).
		ToSql()
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to build insert for %s: %w", collection, err)
	}

	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return models.Record{}, fmt.Errorf("failed to store %s record: %w", collection, err)
	}

	return models.Record{ID: id, Collection: collection, Fields: fields}, nil
}

// Close closes the database pool
func (p *PostgreSQLStorage) Close() error {
	return p.db.Close()
}

// gooseLogger routes migration output through zap.
type gooseLogger struct {
	*zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.Infof(strings.TrimSuffix(format, "\n"), v...)
}
