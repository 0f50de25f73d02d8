// Package main provides the OCR gateway router setup.
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/lumina-docs/ocr-gateway/cmd/ocr-gateway/handlers"
	"github.com/lumina-docs/ocr-gateway/internal/config"
	"github.com/lumina-docs/ocr-gateway/internal/document"
	"github.com/lumina-docs/ocr-gateway/internal/observability"
	"github.com/lumina-docs/ocr-gateway/internal/ocr"
	"github.com/lumina-docs/ocr-gateway/internal/pipeline"
)

// NewRouter creates the gateway router with all routes configured.
func NewRouter(logger *observability.Logger, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"ocr-gateway"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ready"}`))
	})

	// Assemble the processing pipeline
	normalizer := document.NewNormalizer(cfg.Render.DPI, cfg.Render.JPEGQuality, logger)
	client := ocr.NewClient(ocr.Config{
		BaseURL:        cfg.Upstream.BaseURL,
		Model:          cfg.Upstream.Model,
		Timeout:        cfg.Upstream.Timeout.Std(),
		MaxRetries:     cfg.Upstream.MaxRetries,
		InitialBackoff: cfg.Upstream.InitialBackoff.Std(),
		MaxBackoff:     cfg.Upstream.MaxBackoff.Std(),
	}, logger)
	proc := pipeline.NewPipeline(normalizer, client, logger)

	ocrHandler := handlers.NewOCRHandler(logger, proc, cfg.Server.MaxUploadBytes)

	r.Post("/ocr", ocrHandler.Recognize)
	r.Post("/ocr/batch", ocrHandler.RecognizeBatch)

	return r
}
