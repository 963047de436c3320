package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/sudleather/nfe-ingest/internal/config"
	"github.com/sudleather/nfe-ingest/internal/gcp"
	"github.com/sudleather/nfe-ingest/internal/models"
)

// ErrRelocationFailed means the copy or delete step of a move failed. The
// caller logs it and leaves the file in place; a later delivery retries.
var ErrRelocationFailed = errors.New("failed to relocate artifact")

// ObjectStore is the slice of the storage client the pipeline consumes.
// *gcp.ObjectStore satisfies it; tests substitute an in-memory fake.
type ObjectStore interface {
	FetchText(ctx context.Context, bucket, object string) ([]byte, error)
	Move(ctx context.Context, bucket, src, dst string) error
}

// Router gates which objects enter the pipeline and relocates each artifact
// according to its terminal outcome.
type Router struct {
	store  ObjectStore
	config config.StorageConfig
}

// NewRouter creates a new Router instance.
func NewRouter(store ObjectStore, cfg config.StorageConfig) *Router {
	return &Router{store: store, config: cfg}
}

// IsRelevant reports whether the object is an unprocessed inbound invoice:
// under the inbound prefix with an .xml suffix. Everything else short-circuits
// the pipeline with no relocation.
func (r *Router) IsRelevant(object string) bool {
	return strings.HasPrefix(object, r.config.InboundPrefix) &&
		strings.HasSuffix(strings.ToLower(object), ".xml")
}

// DestinationFor computes the target path for an outcome. Processed files are
// grouped by the year/month they were handled, not the invoice's issue date.
// Rejections share one flat error folder; the failure kind lives in the logs.
func (r *Router) DestinationFor(object string, outcome models.Outcome, now time.Time) string {
	base := path.Base(object)
	if outcome == models.OutcomeProcessed {
		return fmt.Sprintf("%s/%04d/%02d/%s", r.config.ProcessedPrefix, now.Year(), int(now.Month()), base)
	}
	return fmt.Sprintf("%s/%s", r.config.ErrorPrefix, base)
}

// Route relocates the artifact for a terminal outcome. A missing source means
// a concurrent invocation already moved it; that is not a failure.
func (r *Router) Route(ctx context.Context, bucket, object string, outcome models.Outcome, now time.Time) error {
	dst := r.DestinationFor(object, outcome, now)
	if err := r.store.Move(ctx, bucket, object, dst); err != nil {
		if gcp.IsNotFound(err) {
			slog.Info("Artifact already relocated by a concurrent invocation.",
				"gcsBucket", bucket, "gcsObject", object)
			return nil
		}
		return fmt.Errorf("%w: %s to %s: %v", ErrRelocationFailed, object, dst, err)
	}
	slog.Info("Relocated artifact.",
		"gcsBucket", bucket, "gcsObject", object, "destination", dst, "outcome", outcome.String())
	return nil
}
