package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-docs/ocr-gateway/cmd/ocr-gateway/handlers"
	"github.com/lumina-docs/ocr-gateway/internal/config"
	"github.com/lumina-docs/ocr-gateway/internal/observability"
)

// fakeUpstream emulates the chat completions endpoint with a fixed
// reply containing markdown and a layout block.
func fakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		content := "# Invoice\n\nTotal: 42.00\n\n```json\n{\"width\": 64, \"height\": 48, \"parsing_res_list\": []}\n```"
		body, _ := json.Marshal(map[string]any{
			"id": "cmpl-1",
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})

		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
}

func testRouterConfig(upstreamURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Upstream.BaseURL = upstreamURL + "/v1"
	return cfg
}

func pngUpload(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.White)
		}
	}

	var encoded bytes.Buffer
	require.NoError(t, png.Encode(&encoded, img))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "scan.png")
	require.NoError(t, err)
	_, err = part.Write(encoded.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &body, mw.FormDataContentType()
}

func TestRouter_OCREndToEnd(t *testing.T) {
	upstream := fakeUpstream(t)
	defer upstream.Close()

	router := NewRouter(observability.Nop(), testRouterConfig(upstream.URL))
	gateway := httptest.NewServer(router)
	defer gateway.Close()

	body, contentType := pngUpload(t)
	resp, err := http.Post(gateway.URL+"/ocr", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result handlers.DocumentResultDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))

	assert.Equal(t, "scan.png", result.Filename)
	assert.Equal(t, 1, result.Pages)
	require.Len(t, result.Results, 1)
	assert.Contains(t, result.Results[0].Markdown, "# Invoice")
	assert.JSONEq(t, `{"width": 64, "height": 48, "parsing_res_list": []}`, string(result.Results[0].Layout))
}

func TestRouter_UpstreamUnreachable(t *testing.T) {
	upstream := fakeUpstream(t)
	upstream.Close() // Endpoint is gone before the gateway starts

	router := NewRouter(observability.Nop(), testRouterConfig(upstream.URL))
	gateway := httptest.NewServer(router)
	defer gateway.Close()

	body, contentType := pngUpload(t)
	resp, err := http.Post(gateway.URL+"/ocr", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRouter_ConcurrentRequestsIndependent(t *testing.T) {
	// The upstream echoes a digest of the image it received, so every
	// response is attributable to exactly one upload.
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content []struct {
					ImageURL *struct {
						URL string `json:"url"`
					} `json:"image_url"`
				} `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var imageURL string
		for _, part := range req.Messages[0].Content {
			if part.ImageURL != nil {
				imageURL = part.ImageURL.URL
			}
		}

		content := fmt.Sprintf("digest %x", sha256.Sum256([]byte(imageURL)))
		body, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})

		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	defer upstream.Close()

	router := NewRouter(observability.Nop(), testRouterConfig(upstream.URL))
	gateway := httptest.NewServer(router)
	defer gateway.Close()

	const workers = 8

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			// Every worker uploads a different image under a different name
			img := image.NewRGBA(image.Rect(0, 0, 8+i, 8))
			for y := 0; y < 8; y++ {
				for x := 0; x < 8+i; x++ {
					img.Set(x, y, color.RGBA{R: uint8(30 * i), G: 128, B: 200, A: 255})
				}
			}

			var encoded bytes.Buffer
			if !assert.NoError(t, png.Encode(&encoded, img)) {
				return
			}

			filename := fmt.Sprintf("scan-%d.png", i)

			var body bytes.Buffer
			mw := multipart.NewWriter(&body)
			part, err := mw.CreateFormFile("file", filename)
			if !assert.NoError(t, err) {
				return
			}
			if _, err := part.Write(encoded.Bytes()); err != nil {
				assert.NoError(t, err)
				return
			}
			if !assert.NoError(t, mw.Close()) {
				return
			}

			resp, err := http.Post(gateway.URL+"/ocr", mw.FormDataContentType(), &body)
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			if !assert.Equal(t, http.StatusOK, resp.StatusCode) {
				return
			}

			var result handlers.DocumentResultDTO
			if !assert.NoError(t, json.NewDecoder(resp.Body).Decode(&result)) {
				return
			}

			dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(encoded.Bytes())
			want := fmt.Sprintf("digest %x", sha256.Sum256([]byte(dataURL)))

			assert.Equal(t, filename, result.Filename)
			if assert.Len(t, result.Results, 1) {
				assert.Equal(t, want, result.Results[0].Markdown)
			}
		}(i)
	}
	wg.Wait()
}

func TestRouter_HealthEndpoints(t *testing.T) {
	router := NewRouter(observability.Nop(), config.DefaultConfig())
	gateway := httptest.NewServer(router)
	defer gateway.Close()

	for _, path := range []string{"/health", "/ready"} {
		resp, err := http.Get(gateway.URL + path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		resp.Body.Close()
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	router := NewRouter(observability.Nop(), config.DefaultConfig())
	gateway := httptest.NewServer(router)
	defer gateway.Close()

	resp, err := http.Get(gateway.URL + "/ocr")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
