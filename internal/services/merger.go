package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/sudleather/nfe-ingest/internal/config"
	"github.com/sudleather/nfe-ingest/internal/gcp"
	"github.com/sudleather/nfe-ingest/internal/models"
)

var (
	// ErrLoadFailed means the staging table could not be created or loaded.
	ErrLoadFailed = errors.New("failed to stage extracted rows")
	// ErrMergeFailed means the conditional insert into the durable table
	// failed.
	ErrMergeFailed = errors.New("failed to merge staged rows")
)

// Merger reconciles extracted rows into the durable table. Repeating the same
// rows any number of times must leave each natural key present exactly once.
type Merger interface {
	Merge(ctx context.Context, rows []models.ExtractedRow) error
}

// BigQueryMerger implements Merger with a per-invocation staging table and a
// key-conditional MERGE into the durable table. Neither failure mode is
// retried here; redelivery by the trigger owns retries.
type BigQueryMerger struct {
	client    *bigquery.Client
	projectID string
	config    config.BigQueryConfig
}

// NewBigQueryMerger creates a new BigQueryMerger instance.
func NewBigQueryMerger(client *bigquery.Client, cfg config.BigQueryConfig) *BigQueryMerger {
	return &BigQueryMerger{client: client, projectID: client.Project(), config: cfg}
}

// Merge stages rows into an ephemeral table, runs the conditional insert, and
// drops the staging table on every exit path. The staging name is unique per
// invocation, not per document, so two racing deliveries of the same invoice
// never collide; the MERGE keeps their inserts commutative.
func (m *BigQueryMerger) Merge(ctx context.Context, rows []models.ExtractedRow) error {
	if len(rows) == 0 {
		return fmt.Errorf("%w: no rows to stage", ErrLoadFailed)
	}

	schema, err := bigquery.InferSchema(models.ExtractedRow{})
	if err != nil {
		return fmt.Errorf("%w: infer schema: %v", ErrLoadFailed, err)
	}

	stagingID := m.stagingTableID()
	staging := m.client.Dataset(m.config.DatasetID).Table(stagingID)
	meta := &bigquery.TableMetadata{
		Schema: schema,
		// Safety net in case the process dies before the deferred delete.
		ExpirationTime: time.Now().Add(time.Hour),
	}
	if err := staging.Create(ctx, meta); err != nil {
		return fmt.Errorf("%w: create staging table %s: %v", ErrLoadFailed, stagingID, err)
	}
	defer func() {
		if err := staging.Delete(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("Failed to drop staging table. It will expire on its own.",
				"stagingTable", stagingID, "error", err)
		}
	}()

	if err := staging.Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("%w: load into %s: %v", ErrLoadFailed, stagingID, err)
	}

	query := m.client.Query(m.mergeQuery(stagingID))
	job, err := query.Run(ctx)
	if err != nil {
		return fmt.Errorf("%w: start merge job: %v", ErrMergeFailed, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%w: wait for merge job: %v", ErrMergeFailed, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrMergeFailed, err)
	}

	slog.Info("Merged rows into durable table.",
		"rowCount", len(rows), "table", m.config.TableID, "stagingTable", stagingID)
	return nil
}

// EnsureTable creates the durable table with the row schema if it does not
// exist yet.
func (m *BigQueryMerger) EnsureTable(ctx context.Context) error {
	table := m.client.Dataset(m.config.DatasetID).Table(m.config.TableID)
	if _, err := table.Metadata(ctx); err == nil {
		return nil
	} else if !gcp.IsNotFound(err) {
		return fmt.Errorf("failed to inspect table %s: %w", m.config.TableID, err)
	}

	schema, err := bigquery.InferSchema(models.ExtractedRow{})
	if err != nil {
		return fmt.Errorf("failed to infer table schema: %w", err)
	}
	if err := table.Create(ctx, &bigquery.TableMetadata{Schema: schema}); err != nil {
		return fmt.Errorf("failed to create table %s: %w", m.config.TableID, err)
	}
	slog.Info("Created durable table.", "dataset", m.config.DatasetID, "table", m.config.TableID)
	return nil
}

func (m *BigQueryMerger) stagingTableID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s_staging_%s", m.config.TableID, suffix)
}

// mergeQuery builds the insert-only reconciliation. Rows whose
// (CNPJ, numero_nf, numero_item) key already exists in the durable table are
// left untouched; nothing is ever updated or deleted.
func (m *BigQueryMerger) mergeQuery(stagingID string) string {
	durable := fmt.Sprintf("%s.%s.%s", m.projectID, m.config.DatasetID, m.config.TableID)
	staging := fmt.Sprintf("%s.%s.%s", m.projectID, m.config.DatasetID, stagingID)
	return fmt.Sprintf("MERGE `%s` T\n"+
		"USING `%s` S\n"+
		"ON T.CNPJ = S.CNPJ AND T.numero_nf = S.numero_nf AND T.numero_item = S.numero_item\n"+
		"WHEN NOT MATCHED THEN\n"+
		"  INSERT ROW", durable, staging)
}
