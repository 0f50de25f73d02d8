// Package handlers provides HTTP handlers for the OCR gateway API.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/lumina-docs/ocr-gateway/internal/document"
	"github.com/lumina-docs/ocr-gateway/internal/domain"
	"github.com/lumina-docs/ocr-gateway/internal/observability"
)

// OCRHandler handles document recognition requests.
type OCRHandler struct {
	logger         *observability.Logger
	processor      domain.Processor
	maxUploadBytes int64
}

// NewOCRHandler creates a new OCR handler.
func NewOCRHandler(logger *observability.Logger, processor domain.Processor, maxUploadBytes int64) *OCRHandler {
	return &OCRHandler{
		logger:         logger,
		processor:      processor,
		maxUploadBytes: maxUploadBytes,
	}
}

// PageResultDTO represents one page in the API response.
type PageResultDTO struct {
	Markdown string          `json:"markdown"`
	Layout   json.RawMessage `json:"json"`
}

// DocumentResultDTO represents the API response for one document.
type DocumentResultDTO struct {
	Filename string          `json:"filename"`
	Pages    int             `json:"pages"`
	Results  []PageResultDTO `json:"results"`
}

// BatchResultDTO represents the API response for a batch upload,
// one entry per file in upload order.
type BatchResultDTO struct {
	Documents []DocumentResultDTO `json:"documents"`
}

// errorDTO is the error response body.
type errorDTO struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// Recognize handles POST /ocr: a multipart upload with a single `file`
// field, answered with the per-page recognition results in page order.
func (h *OCRHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeUploadError(w, err)
		return
	}
	defer file.Close()

	doc, err := readUpload(file, header)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid upload", err.Error())
		return
	}

	// Reject unrecognized extensions before any work happens.
	if !document.SupportedExtension(doc.Filename) {
		h.writeError(w, http.StatusBadRequest, "unsupported file type",
			fmt.Sprintf("allowed: %s", strings.Join(document.SupportedExtensions(), ", ")))
		return
	}

	result, err := h.processor.Process(ctx, *doc)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toDocumentDTO(result))
}

// RecognizeBatch handles POST /ocr/batch: a multipart upload with
// repeated `files` fields. Every file is validated before any is
// processed; the whole batch fails together by default.
func (h *OCRHandler) RecognizeBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.writeUploadError(w, err)
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		h.writeError(w, http.StatusBadRequest, "no files provided", "multipart field `files` is required")
		return
	}

	for _, header := range headers {
		if !document.SupportedExtension(header.Filename) {
			h.writeError(w, http.StatusBadRequest,
				fmt.Sprintf("unsupported file type %q", header.Filename),
				fmt.Sprintf("allowed: %s", strings.Join(document.SupportedExtensions(), ", ")))
			return
		}
	}

	resp := BatchResultDTO{
		Documents: make([]DocumentResultDTO, 0, len(headers)),
	}

	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid upload", err.Error())
			return
		}

		doc, err := readUpload(file, header)
		file.Close()
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid upload", err.Error())
			return
		}

		result, err := h.processor.Process(ctx, *doc)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}

		resp.Documents = append(resp.Documents, toDocumentDTO(result))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// readUpload drains one multipart file into an UploadedDocument.
func readUpload(file multipart.File, header *multipart.FileHeader) (*domain.UploadedDocument, error) {
	if header.Filename == "" {
		return nil, fmt.Errorf("upload has no filename")
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("upload %q is empty", header.Filename)
	}

	return &domain.UploadedDocument{
		Filename: header.Filename,
		Data:     data,
	}, nil
}

func toDocumentDTO(result *domain.DocumentResult) DocumentResultDTO {
	dto := DocumentResultDTO{
		Filename: result.Filename,
		Pages:    result.PageCount,
		Results:  make([]PageResultDTO, 0, len(result.Pages)),
	}

	for _, page := range result.Pages {
		dto.Results = append(dto.Results, PageResultDTO{
			Markdown: page.Markdown,
			Layout:   page.Layout,
		})
	}

	return dto
}

// writeUploadError maps multipart parsing failures, distinguishing
// oversized bodies from malformed ones.
func (h *OCRHandler) writeUploadError(w http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		h.writeError(w, http.StatusRequestEntityTooLarge, "upload too large",
			fmt.Sprintf("limit is %d bytes", maxBytesErr.Limit))
		return
	}

	h.writeError(w, http.StatusBadRequest, "invalid multipart upload", err.Error())
}

// writeDomainError maps pipeline failures to their HTTP status class.
func (h *OCRHandler) writeDomainError(w http.ResponseWriter, err error) {
	status := domain.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Int("status", status).Msg("document processing failed")
	}

	h.writeError(w, status, string(domain.KindOf(err)), err.Error())
}

func (h *OCRHandler) writeError(w http.ResponseWriter, status int, message, detail string) {
	h.writeJSON(w, status, errorDTO{Error: message, Detail: detail})
}

func (h *OCRHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}
