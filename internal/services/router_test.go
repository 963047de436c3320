package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudleather/nfe-ingest/internal/config"
	"github.com/sudleather/nfe-ingest/internal/models"
)

func testStorageConfig() config.StorageConfig {
	return config.StorageConfig{
		Bucket:          "nfe-inbox",
		InboundPrefix:   "recebidas/",
		ProcessedPrefix: "processados",
		ErrorPrefix:     "erros",
	}
}

func TestIsRelevant(t *testing.T) {
	router := NewRouter(newFakeStore(), testStorageConfig())

	tests := []struct {
		object string
		want   bool
	}{
		{"recebidas/NFE-123.xml", true},
		{"recebidas/sub/NFE-123.XML", true},
		{"recebidas/notas.txt", false},
		{"recebidas/NFE-123.xml.bak", false},
		{"processados/2024/03/NFE-123.xml", false},
		{"NFE-123.xml", false},
		{"recebidas/", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, router.IsRelevant(tt.object), "object %q", tt.object)
	}
}

func TestDestinationFor(t *testing.T) {
	router := NewRouter(newFakeStore(), testStorageConfig())
	now := time.Date(2024, time.March, 5, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, "processados/2024/03/NFE-123.xml",
		router.DestinationFor("recebidas/NFE-123.xml", models.OutcomeProcessed, now))

	// All rejections share one flat error folder; the kind is in the logs.
	for _, outcome := range []models.Outcome{
		models.OutcomeRejectedParsing,
		models.OutcomeRejectedMerge,
		models.OutcomeRejectedSystem,
	} {
		assert.Equal(t, "erros/NFE-123.xml",
			router.DestinationFor("recebidas/NFE-123.xml", outcome, now))
	}
}

func TestRouteMovesArtifact(t *testing.T) {
	store := newFakeStore()
	store.put("nfe-inbox", "recebidas/NFE-123.xml", []byte("<xml/>"))
	router := NewRouter(store, testStorageConfig())
	now := time.Date(2024, time.March, 5, 14, 30, 0, 0, time.UTC)

	err := router.Route(context.Background(), "nfe-inbox", "recebidas/NFE-123.xml", models.OutcomeProcessed, now)
	require.NoError(t, err)
	assert.False(t, store.has("nfe-inbox", "recebidas/NFE-123.xml"))
	assert.True(t, store.has("nfe-inbox", "processados/2024/03/NFE-123.xml"))
}

func TestRouteToleratesMissingSource(t *testing.T) {
	// The loser of a duplicate-delivery race finds the file already gone.
	router := NewRouter(newFakeStore(), testStorageConfig())
	err := router.Route(context.Background(), "nfe-inbox", "recebidas/NFE-123.xml", models.OutcomeProcessed, time.Now())
	assert.NoError(t, err)
}

func TestRouteReportsRelocationFailure(t *testing.T) {
	store := newFakeStore()
	store.put("nfe-inbox", "recebidas/NFE-123.xml", []byte("<xml/>"))
	store.failMove = true
	router := NewRouter(store, testStorageConfig())

	err := router.Route(context.Background(), "nfe-inbox", "recebidas/NFE-123.xml", models.OutcomeProcessed, time.Now())
	require.ErrorIs(t, err, ErrRelocationFailed)
}
