package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sudleather/nfe-ingest/internal/config"
	"github.com/sudleather/nfe-ingest/internal/gcp"
	"github.com/sudleather/nfe-ingest/internal/models"
	"github.com/sudleather/nfe-ingest/internal/nfe"
)

// Processor runs one invocation end to end: relevance gate, fetch, parse,
// merge, relocate. Each invocation is a single synchronous unit of work with
// no internal parallelism.
type Processor struct {
	store  ObjectStore
	merger Merger
	router *Router
}

// NewProcessor builds the processor and its GCP clients from configuration.
func NewProcessor(ctx context.Context, cfg *config.Config) (*Processor, error) {
	store, err := gcp.NewObjectStore(ctx)
	if err != nil {
		return nil, err
	}
	bqClient, err := gcp.NewBigQueryClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, err
	}
	merger := NewBigQueryMerger(bqClient, cfg.BigQuery)

	slog.Info("Invoice processor initialized.",
		"projectId", cfg.ProjectID, "dataset", cfg.BigQuery.DatasetID, "table", cfg.BigQuery.TableID)
	return newProcessor(store, merger, NewRouter(store, cfg.Storage)), nil
}

func newProcessor(store ObjectStore, merger Merger, router *Router) *Processor {
	return &Processor{store: store, merger: merger, router: router}
}

// Process handles one delivered object and returns its terminal outcome.
// Parse and merge failures are recovered into the outcome and drive the
// relocation; they never escape as invocation failures, so the trigger is
// not provoked into redelivering a document that already reached a verdict.
func (p *Processor) Process(ctx context.Context, bucket, object string) models.Outcome {
	logCtx := slog.With("gcsBucket", bucket, "gcsObject", object)

	if !p.router.IsRelevant(object) {
		logCtx.Info("Object is not an inbound invoice XML. Ignoring.")
		return models.OutcomeIgnored
	}
	logCtx.Info("Processing inbound invoice.")

	outcome, err := p.run(ctx, logCtx, bucket, object)
	if outcome == models.OutcomeAlreadyHandled {
		return outcome
	}
	if err != nil {
		logCtx.Error("Invoice rejected.", "outcome", outcome.String(), "error", err)
	}

	if err := p.router.Route(ctx, bucket, object, outcome, time.Now()); err != nil {
		// Leave the file in place; a future delivery retries the move.
		logCtx.Error("Failed to relocate artifact. Leaving it at the source path.", "error", err)
	}
	return outcome
}

func (p *Processor) run(ctx context.Context, logCtx *slog.Logger, bucket, object string) (models.Outcome, error) {
	data, err := p.store.FetchText(ctx, bucket, object)
	if err != nil {
		if gcp.IsNotFound(err) {
			logCtx.Info("Object no longer exists. A previous invocation already handled it.")
			return models.OutcomeAlreadyHandled, nil
		}
		return models.OutcomeRejectedSystem, fmt.Errorf("failed to fetch object: %w", err)
	}

	rows, err := nfe.Parse(data)
	if err != nil {
		return models.OutcomeRejectedParsing, err
	}
	logCtx.Info("Extracted line items.", "rowCount", len(rows), "invoiceNumber", rows[0].InvoiceNumber)

	if err := p.merger.Merge(ctx, rows); err != nil {
		if errors.Is(err, ErrLoadFailed) || errors.Is(err, ErrMergeFailed) {
			return models.OutcomeRejectedMerge, err
		}
		return models.OutcomeRejectedSystem, err
	}

	return models.OutcomeProcessed, nil
}
