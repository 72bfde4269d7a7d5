package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the application
type Config struct {
	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	Storage   StorageConfig
	Blob      BlobConfig
	Provider  ProviderConfig
	Ingestion IngestionConfig
	Events    EventsConfig
	Server    ServerConfig
}

// StorageConfig holds document store configuration
type StorageConfig struct {
	Type          string `env:"STORAGE_TYPE" env-default:"mongodb"` // "mongodb", "dynamodb", "postgresql", "memory"
	Region        string `env:"AWS_REGION" env-default:"us-west-2"`
	TablePrefix   string `env:"TABLE_PREFIX" env-default:"catalog_"`
	Endpoint      string `env:"DYNAMODB_ENDPOINT"` // Custom endpoint for local testing
	MongoDBURI    string `env:"MONGODB_URI" env-default:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGODB_DATABASE" env-default:"catalog"`
	PostgresURI   string `env:"POSTGRES_URI"`
}

// BlobConfig holds blob store configuration
type BlobConfig struct {
	Type         string `env:"BLOB_STORE_TYPE" env-default:"s3"` // "s3", "gridfs", "memory"
	Region       string `env:"AWS_REGION" env-default:"us-west-2"`
	Bucket       string `env:"S3_BUCKET" env-default:"catalog-assets"`
	Endpoint     string `env:"S3_ENDPOINT"` // S3-compatible servers, path-style addressing
	Prefix       string `env:"S3_PREFIX" env-default:"thumbnails/"`
	GridFSBucket string `env:"GRIDFS_BUCKET" env-default:"assets"`
	// GridFS shares the document store's MongoDB connection settings.
	MongoDBURI    string `env:"MONGODB_URI" env-default:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGODB_DATABASE" env-default:"catalog"`
}

// ProviderConfig holds metadata provider configuration
type ProviderConfig struct {
	APIKey         string        `env:"TMDB_API_KEY"`
	BaseURL        string        `env:"TMDB_BASE_URL" env-default:"https://api.themoviedb.org/3"`
	ImageBaseURL   string        `env:"TMDB_IMAGE_BASE_URL" env-default:"https://image.tmdb.org/t/p"`
	Timeout        time.Duration `env:"API_TIMEOUT" env-default:"30s"`
	MovieImageSize string        `env:"MOVIE_IMAGE_SIZE" env-default:"original"`
	ShowImageSize  string        `env:"SHOW_IMAGE_SIZE" env-default:"w500"`
}

// IngestionConfig holds ingestion-related configuration
type IngestionConfig struct {
	MaxPages        int           `env:"MAX_PAGES" env-default:"25"`
	Movies          bool          `env:"INGEST_MOVIES" env-default:"true"`
	Shows           bool          `env:"INGEST_SHOWS" env-default:"false"`
	Concurrency     int           `env:"ITEM_CONCURRENCY" env-default:"1"`
	RetryBackoff    time.Duration `env:"RETRY_BACKOFF" env-default:"1s"`
	ListMode        string        `env:"RECORD_LIST_MODE" env-default:"joined"` // "joined", "list"
	DateMode        string        `env:"RECORD_DATE_MODE" env-default:"date"`   // "date", "year"
	TrendingMode    string        `env:"TRENDING_MODE" env-default:"random"`    // "random", "popularity"
	SyntheticFields bool          `env:"SYNTHETIC_FIELDS" env-default:"true"`
	WipeAssets      bool          `env:"WIPE_ASSETS" env-default:"false"`
}

// EventsConfig holds event publishing configuration. An empty URL disables publishing.
type EventsConfig struct {
	NATSURL string `env:"NATS_URL"`
}

// ServerConfig holds status HTTP server configuration. Port 0 disables the server.
type ServerConfig struct {
	Port int `env:"SERVER_PORT" env-default:"0"`
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects values that cannot be mapped onto a component.
func (c *Config) Validate() error {
	// An empty value counts as missing.
	if c.Provider.APIKey == "" {
		return fmt.Errorf("TMDB_API_KEY is required")
	}
	if err := oneOf("STORAGE_TYPE", c.Storage.Type, "mongodb", "dynamodb", "postgresql", "memory"); err != nil {
		return err
	}
	if err := oneOf("BLOB_STORE_TYPE", c.Blob.Type, "s3", "gridfs", "memory"); err != nil {
		return err
	}
	if err := oneOf("RECORD_LIST_MODE", c.Ingestion.ListMode, "joined", "list"); err != nil {
		return err
	}
	if err := oneOf("RECORD_DATE_MODE", c.Ingestion.DateMode, "date", "year"); err != nil {
		return err
	}
	if err := oneOf("TRENDING_MODE", c.Ingestion.TrendingMode, "random", "popularity"); err != nil {
		return err
	}

	// Random trending values come from the enricher.
	if c.Ingestion.TrendingMode == "random" && !c.Ingestion.SyntheticFields {
		return fmt.Errorf("TRENDING_MODE=random requires SYNTHETIC_FIELDS=true")
	}

	if c.Storage.Type == "postgresql" && c.Storage.PostgresURI == "" {
		return fmt.Errorf("POSTGRES_URI is required for postgresql storage")
	}
	if c.Ingestion.MaxPages < 1 {
		return fmt.Errorf("MAX_PAGES must be at least 1, got %d", c.Ingestion.MaxPages)
	}
	if c.Ingestion.Concurrency < 1 {
		return fmt.Errorf("ITEM_CONCURRENCY must be at least 1, got %d", c.Ingestion.Concurrency)
	}
	if c.Ingestion.RetryBackoff <= 0 {
		return fmt.Errorf("RETRY_BACKOFF must be positive, got %s", c.Ingestion.RetryBackoff)
	}

	return nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("unsupported %s: %q (allowed: %v)", key, value, allowed)
}
