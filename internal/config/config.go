package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	ProjectID string
	Storage   StorageConfig
	BigQuery  BigQueryConfig
	Server    ServerConfig
	Backfill  BackfillConfig
}

// StorageConfig holds the bucket layout. Files arrive under InboundPrefix,
// land under ProcessedPrefix/YYYY/MM on success and under ErrorPrefix on any
// rejection.
type StorageConfig struct {
	Bucket          string
	InboundPrefix   string
	ProcessedPrefix string
	ErrorPrefix     string
}

// BigQueryConfig identifies the durable line-item table.
type BigQueryConfig struct {
	DatasetID string
	TableID   string
}

// ServerConfig holds HTTP server settings for the push adapter.
type ServerConfig struct {
	Port string
}

// BackfillConfig holds settings for the backfill CLI.
type BackfillConfig struct {
	Concurrency int
}

// Load reads configuration from environment variables with the NFE_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NFE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("storage.inbound_prefix", "recebidas/")
	v.SetDefault("storage.processed_prefix", "processados")
	v.SetDefault("storage.error_prefix", "erros")
	v.SetDefault("bigquery.dataset", "Data_base")
	v.SetDefault("bigquery.table", "Frigorifico_Nota_Fiscal")
	v.SetDefault("server.port", ":8080")
	v.SetDefault("backfill.concurrency", 4)

	envBindings := map[string]string{
		"project_id":               "NFE_PROJECT_ID",
		"storage.bucket":           "NFE_STORAGE_BUCKET",
		"storage.inbound_prefix":   "NFE_STORAGE_INBOUND_PREFIX",
		"storage.processed_prefix": "NFE_STORAGE_PROCESSED_PREFIX",
		"storage.error_prefix":     "NFE_STORAGE_ERROR_PREFIX",
		"bigquery.dataset":         "NFE_BIGQUERY_DATASET",
		"bigquery.table":           "NFE_BIGQUERY_TABLE",
		"server.port":              "NFE_SERVER_PORT",
		"backfill.concurrency":     "NFE_BACKFILL_CONCURRENCY",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	// Cloud Run and the Functions Framework set a PORT env var. Use it when
	// NFE_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("NFE_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg := &Config{
		ProjectID: v.GetString("project_id"),
		Storage: StorageConfig{
			Bucket:          v.GetString("storage.bucket"),
			InboundPrefix:   v.GetString("storage.inbound_prefix"),
			ProcessedPrefix: v.GetString("storage.processed_prefix"),
			ErrorPrefix:     v.GetString("storage.error_prefix"),
		},
		BigQuery: BigQueryConfig{
			DatasetID: v.GetString("bigquery.dataset"),
			TableID:   v.GetString("bigquery.table"),
		},
		Server: ServerConfig{
			Port: serverPort,
		},
		Backfill: BackfillConfig{
			Concurrency: v.GetInt("backfill.concurrency"),
		},
	}

	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("NFE_PROJECT_ID environment variable must be set")
	}

	return cfg, nil
}
