// Package document normalizes uploads into ordered page images. PDFs
// are rasterized page by page with go-fitz (MuPDF); single images pass
// through unchanged after a decode check.
package document

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"

	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gen2brain/go-fitz"

	"github.com/lumina-docs/ocr-gateway/internal/domain"
	"github.com/lumina-docs/ocr-gateway/internal/observability"
)

// imageFormats maps supported image extensions to the format name
// reported by image.DecodeConfig and the MIME type forwarded upstream.
var imageFormats = map[string]struct {
	decodeName string
	mime       string
}{
	".png":  {"png", "image/png"},
	".jpg":  {"jpeg", "image/jpeg"},
	".jpeg": {"jpeg", "image/jpeg"},
	".bmp":  {"bmp", "image/bmp"},
	".tiff": {"tiff", "image/tiff"},
	".webp": {"webp", "image/webp"},
}

// Normalizer implements document classification and PDF rasterization.
type Normalizer struct {
	dpi         float64
	jpegQuality int
	logger      *observability.Logger
}

// NewNormalizer creates a normalizer rendering PDF pages at the given
// DPI and JPEG quality.
func NewNormalizer(dpi float64, jpegQuality int, logger *observability.Logger) *Normalizer {
	return &Normalizer{
		dpi:         dpi,
		jpegQuality: jpegQuality,
		logger:      logger.WithComponent("normalizer"),
	}
}

// SupportedExtension reports whether the filename carries a supported
// extension.
func SupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".pdf" {
		return true
	}
	_, ok := imageFormats[ext]
	return ok
}

// SupportedExtensions lists the recognized extensions, for error
// messages.
func SupportedExtensions() []string {
	return []string{".pdf", ".png", ".jpg", ".jpeg", ".bmp", ".tiff", ".webp"}
}

// Normalize turns an upload into an ordered sequence of page images.
func (n *Normalizer) Normalize(ctx context.Context, doc domain.UploadedDocument) ([]domain.PageImage, error) {
	ext := strings.ToLower(filepath.Ext(doc.Filename))

	if ext == ".pdf" {
		return n.rasterizePDF(ctx, doc)
	}

	format, ok := imageFormats[ext]
	if !ok {
		return nil, domain.UnsupportedFormatError(
			fmt.Sprintf("unsupported file type %q, allowed: %s", ext, strings.Join(SupportedExtensions(), ", ")), nil)
	}

	return n.passthroughImage(doc, format.decodeName, format.mime)
}

// passthroughImage validates that the bytes decode as the declared
// format and wraps them as the single page of the document.
func (n *Normalizer) passthroughImage(doc domain.UploadedDocument, decodeName, mime string) ([]domain.PageImage, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(doc.Data))
	if err != nil {
		return nil, domain.DocumentParseError(
			fmt.Sprintf("file %q does not decode as %s", doc.Filename, decodeName), err)
	}

	if format != decodeName {
		return nil, domain.DocumentParseError(
			fmt.Sprintf("file %q declares %s but contains %s", doc.Filename, decodeName, format), nil)
	}

	return []domain.PageImage{{
		Index:  0,
		Data:   doc.Data,
		MIME:   mime,
		Width:  cfg.Width,
		Height: cfg.Height,
	}}, nil
}

// rasterizePDF renders every page of the PDF to a JPEG at the
// configured DPI, in page order.
func (n *Normalizer) rasterizePDF(ctx context.Context, doc domain.UploadedDocument) ([]domain.PageImage, error) {
	pdf, err := fitz.NewFromMemory(doc.Data)
	if err != nil {
		return nil, domain.DocumentParseError(
			fmt.Sprintf("file %q is not a valid PDF", doc.Filename), err)
	}
	defer pdf.Close()

	pageCount := pdf.NumPage()
	if pageCount == 0 {
		return nil, domain.DocumentParseError(
			fmt.Sprintf("file %q has no pages", doc.Filename), nil)
	}

	n.logger.Debug().
		Str("filename", doc.Filename).
		Int("pages", pageCount).
		Msg("rasterizing PDF")

	pages := make([]domain.PageImage, 0, pageCount)

	for pageNum := 0; pageNum < pageCount; pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img, err := pdf.ImageDPI(pageNum, n.dpi)
		if err != nil {
			return nil, domain.DocumentParseError(
				fmt.Sprintf("failed to render page %d of %q", pageNum+1, doc.Filename), err)
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: n.jpegQuality}); err != nil {
			return nil, domain.InternalError(
				fmt.Sprintf("failed to encode page %d as JPEG", pageNum+1), err)
		}

		bounds := img.Bounds()
		pages = append(pages, domain.PageImage{
			Index:  pageNum,
			Data:   buf.Bytes(),
			MIME:   "image/jpeg",
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
		})
	}

	return pages, nil
}
