// Package pipeline wires the normalizer and the OCR client into the
// per-document processing workflow.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lumina-docs/ocr-gateway/internal/domain"
	"github.com/lumina-docs/ocr-gateway/internal/observability"
)

// Pipeline orchestrates normalization and sequential per-page
// recognition. It holds no per-request state; every call is
// independent.
type Pipeline struct {
	normalizer domain.Normalizer
	recognizer domain.Recognizer
	logger     *observability.Logger
}

// NewPipeline creates a new processing pipeline.
func NewPipeline(normalizer domain.Normalizer, recognizer domain.Recognizer, logger *observability.Logger) *Pipeline {
	return &Pipeline{
		normalizer: normalizer,
		recognizer: recognizer,
		logger:     logger.WithComponent("pipeline"),
	}
}

// Process handles the complete workflow for one document: normalize,
// recognize each page in order, assemble the result. Any failure
// discards pages already processed; there is no partial delivery.
func (p *Pipeline) Process(ctx context.Context, doc domain.UploadedDocument) (*domain.DocumentResult, error) {
	docID := uuid.New()
	logger := p.logger.WithDocument(docID.String(), doc.Filename)
	start := time.Now()

	pages, err := p.normalizer.Normalize(ctx, doc)
	if err != nil {
		logger.Warn().Err(err).Msg("normalization failed")
		return nil, err
	}

	logger.Info().Int("pages", len(pages)).Msg("document normalized")

	results := make([]domain.PageResult, 0, len(pages))

	for _, page := range pages {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		result, err := p.recognizer.Recognize(ctx, page)
		if err != nil {
			logger.Error().Err(err).Int("page", page.Index).Msg("recognition failed")
			return nil, err
		}

		results = append(results, *result)
	}

	logger.Info().
		Int("pages", len(results)).
		Dur("elapsed", time.Since(start)).
		Msg("document processed")

	return &domain.DocumentResult{
		ID:        docID,
		Filename:  doc.Filename,
		PageCount: len(results),
		Pages:     results,
	}, nil
}
