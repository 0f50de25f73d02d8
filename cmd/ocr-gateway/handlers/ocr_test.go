package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-docs/ocr-gateway/internal/domain"
	"github.com/lumina-docs/ocr-gateway/internal/observability"
)

// stubProcessor returns a canned result or error and records calls.
type stubProcessor struct {
	err   error
	calls int
}

func (s *stubProcessor) Process(_ context.Context, doc domain.UploadedDocument) (*domain.DocumentResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}

	return &domain.DocumentResult{
		ID:        uuid.New(),
		Filename:  doc.Filename,
		PageCount: 1,
		Pages: []domain.PageResult{
			{Markdown: "# Recognized", Layout: json.RawMessage(`{"parsing_res_list": []}`)},
		},
	}, nil
}

func newTestHandler(proc domain.Processor, maxBytes int64) *OCRHandler {
	return NewOCRHandler(observability.Nop(), proc, maxBytes)
}

// multipartBody builds a multipart body with one file part per entry.
func multipartBody(t *testing.T, field string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		part, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func postOCR(t *testing.T, h *OCRHandler, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	body, contentType := multipartBody(t, "file", map[string][]byte{filename: data})
	req := httptest.NewRequest(http.MethodPost, "/ocr", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.Recognize(rec, req)
	return rec
}

func TestRecognize_Success(t *testing.T) {
	proc := &stubProcessor{}
	rec := postOCR(t, newTestHandler(proc, 1<<20), "scan.png", []byte("fake png bytes"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp DocumentResultDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "scan.png", resp.Filename)
	assert.Equal(t, 1, resp.Pages)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "# Recognized", resp.Results[0].Markdown)
	assert.JSONEq(t, `{"parsing_res_list": []}`, string(resp.Results[0].Layout))
	assert.Equal(t, 1, proc.calls)
}

func TestRecognize_UnsupportedExtension(t *testing.T) {
	proc := &stubProcessor{}
	rec := postOCR(t, newTestHandler(proc, 1<<20), "report.docx", []byte("data"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	// Rejected before the pipeline ever runs
	assert.Zero(t, proc.calls)

	var resp errorDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "unsupported")
	assert.Contains(t, resp.Detail, ".pdf")
}

func TestRecognize_MissingFileField(t *testing.T) {
	body, contentType := multipartBody(t, "wrong_field", map[string][]byte{"scan.png": []byte("data")})
	req := httptest.NewRequest(http.MethodPost, "/ocr", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	newTestHandler(&stubProcessor{}, 1<<20).Recognize(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecognize_EmptyUpload(t *testing.T) {
	rec := postOCR(t, newTestHandler(&stubProcessor{}, 1<<20), "scan.png", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecognize_UploadTooLarge(t *testing.T) {
	large := bytes.Repeat([]byte("x"), 2048)
	rec := postOCR(t, newTestHandler(&stubProcessor{}, 512), "scan.png", large)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	var resp errorDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "too large")
}

func TestRecognize_DomainErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"parse failure", domain.DocumentParseError("bad bytes", nil), http.StatusBadRequest},
		{"endpoint down", domain.InferenceUnavailableError("refused", nil), http.StatusServiceUnavailable},
		{"upstream error", domain.InferenceError("model failed", nil), http.StatusBadGateway},
		{"internal", domain.InternalError("unexpected", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postOCR(t, newTestHandler(&stubProcessor{err: tt.err}, 1<<20), "scan.png", []byte("data"))
			assert.Equal(t, tt.want, rec.Code)

			var resp errorDTO
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, string(domain.KindOf(tt.err)), resp.Error)
		})
	}
}

func TestRecognizeBatch_Success(t *testing.T) {
	proc := &stubProcessor{}
	body, contentType := multipartBody(t, "files", map[string][]byte{
		"a.png": []byte("first"),
		"b.pdf": []byte("second"),
	})

	req := httptest.NewRequest(http.MethodPost, "/ocr/batch", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	newTestHandler(proc, 1<<20).RecognizeBatch(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp BatchResultDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Documents, 2)
	assert.Equal(t, 2, proc.calls)
}

func TestRecognizeBatch_ValidatesBeforeProcessing(t *testing.T) {
	proc := &stubProcessor{}
	body, contentType := multipartBody(t, "files", map[string][]byte{
		"a.png":  []byte("fine"),
		"b.docx": []byte("not fine"),
	})

	req := httptest.NewRequest(http.MethodPost, "/ocr/batch", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	newTestHandler(proc, 1<<20).RecognizeBatch(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	// One bad file fails the batch with no processing at all
	assert.Zero(t, proc.calls)
}

func TestRecognizeBatch_NoFiles(t *testing.T) {
	body, contentType := multipartBody(t, "files", nil)
	req := httptest.NewRequest(http.MethodPost, "/ocr/batch", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	newTestHandler(&stubProcessor{}, 1<<20).RecognizeBatch(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
