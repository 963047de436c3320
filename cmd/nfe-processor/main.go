package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/sudleather/nfe-ingest/internal/config"
	"github.com/sudleather/nfe-ingest/internal/models"
	"github.com/sudleather/nfe-ingest/internal/services"
)

var (
	processorInstance *services.Processor
	once              sync.Once
	initErr           error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the CloudEvent function. Eventarc routes storage finalize
	// events here.
	functions.CloudEvent("ProcessInvoice", processInvoice)
}

func main() {
	port := "8080"
	if envPort := os.Getenv("PORT"); envPort != "" {
		port = envPort
	}
	if err := funcframework.Start(port); err != nil {
		slog.Error("funcframework failed to start", "error", err)
		os.Exit(1)
	}
}

// processInvoice is the Cloud Function entry point.
func processInvoice(ctx context.Context, e cloudevents.Event) error {
	// One-time initialization of the GCP clients.
	once.Do(func() {
		var cfg *config.Config
		cfg, initErr = config.Load()
		if initErr != nil {
			return
		}
		processorInstance, initErr = services.NewProcessor(context.Background(), cfg)
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var evt models.StorageObjectEvent
	if err := json.Unmarshal(e.Data(), &evt); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}
	if evt.Bucket == "" || evt.Name == "" {
		return fmt.Errorf("event is missing bucket or name: %s", string(e.Data()))
	}

	// Every terminal outcome returns nil: redelivery is only useful for
	// malformed payloads, never for a document that already has a verdict.
	outcome := processorInstance.Process(ctx, evt.Bucket, evt.Name)
	slog.Info("Invocation finished.", "gcsObject", evt.Name, "outcome", outcome.String())
	return nil
}
