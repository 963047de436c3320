// Command nfe-server receives Pub/Sub push deliveries of storage
// notifications and runs the invoice pipeline for each one.
package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/sudleather/nfe-ingest/internal/config"
	"github.com/sudleather/nfe-ingest/internal/models"
	"github.com/sudleather/nfe-ingest/internal/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	processor, err := services.NewProcessor(context.Background(), cfg)
	if err != nil {
		slog.Error("Failed to initialize processor", "error", err)
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	router.POST("/", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusBadRequest, "failed to read body")
			return
		}

		bucket, object, err := models.ObjectReference(body)
		if err != nil {
			// The one retry-inducing failure: a payload the trigger should
			// not have sent.
			slog.Warn("Rejecting unrecognized trigger payload.", "error", err)
			c.String(http.StatusBadRequest, "invalid trigger payload")
			return
		}

		outcome := processor.Process(c.Request.Context(), bucket, object)
		c.JSON(http.StatusOK, gin.H{
			"object":  object,
			"outcome": outcome.String(),
		})
	})

	slog.Info("Starting invoice push endpoint.", "port", cfg.Server.Port)
	if err := router.Run(cfg.Server.Port); err != nil {
		slog.Error("Server terminated", "error", err)
		os.Exit(1)
	}
}
