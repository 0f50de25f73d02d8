package domain

import "context"

// Normalizer turns an upload into an ordered sequence of page images
type Normalizer interface {
	// Normalize classifies the upload by extension and rasterizes it.
	// PDFs produce one PageImage per page; images pass through as a
	// single PageImage.
	Normalize(ctx context.Context, doc UploadedDocument) ([]PageImage, error)
}

// Recognizer performs OCR inference for a single page image
type Recognizer interface {
	// Recognize sends one page to the upstream inference endpoint and
	// returns its markdown plus structured layout.
	Recognize(ctx context.Context, page PageImage) (*PageResult, error)
}

// Processor orchestrates normalization and per-page recognition
type Processor interface {
	// Process handles the complete workflow for one document.
	// The result is all-or-nothing: any page failure fails the call.
	Process(ctx context.Context, doc UploadedDocument) (*DocumentResult, error)
}
