package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lumina-docs/ocr-gateway/cmd/ocr-batch/ui"
	"github.com/lumina-docs/ocr-gateway/internal/config"
	"github.com/lumina-docs/ocr-gateway/internal/document"
)

// pageResult mirrors one entry of the gateway's results array.
type pageResult struct {
	Markdown string          `json:"markdown"`
	Layout   json.RawMessage `json:"json"`
}

// documentResult mirrors the gateway's single-document response.
type documentResult struct {
	Filename string       `json:"filename"`
	Pages    int          `json:"pages"`
	Results  []pageResult `json:"results"`
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Send all supported files in a directory to the gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		if inputDir == "" {
			inputDir = cfg.Client.InputDir
		}
		if outputDir == "" {
			outputDir = cfg.Client.OutputDir
		}
		if apiURL == "" {
			apiURL = cfg.Client.APIURL
		}

		files, err := collectFiles(inputDir)
		if err != nil {
			return err
		}

		if len(files) == 0 {
			ui.Info("No supported files found in %s", inputDir)
			return nil
		}

		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}

		ui.Info("Found %d files to process", len(files))

		client := gatewayClient(cfg)
		bar := ui.NewProgressBar(int64(len(files)), "Processing")

		failed := 0
		for _, path := range files {
			if err := processFile(client, path, outputDir); err != nil {
				failed++
				ui.Failure("%s: %v", filepath.Base(path), err)
				if !continueOnError {
					bar.Finish()
					return fmt.Errorf("processing aborted at %s", filepath.Base(path))
				}
			}
			bar.Add()
		}
		bar.Finish()

		if failed > 0 {
			ui.Failure("%d of %d files failed", failed, len(files))
		} else {
			ui.Success("Processed %d files, results in %s", len(files), outputDir)
		}

		return nil
	},
}

// collectFiles lists supported documents in dir, sorted by name.
func collectFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if document.SupportedExtension(entry.Name()) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	sort.Strings(files)
	return files, nil
}

// processFile uploads one document and saves its per-page results
// under <outputDir>/<file-stem>/.
func processFile(client *http.Client, path, outputDir string) error {
	result, err := uploadFile(client, path)
	if err != nil {
		return err
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return saveResults(result, filepath.Join(outputDir, stem))
}

// uploadFile POSTs one file to the gateway as a multipart upload.
func uploadFile(client *http.Client, path string) (*documentResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, apiURL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result documentResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}

	return &result, nil
}

// saveResults writes page_<n>.md and page_<n>.json for each page.
func saveResults(result *documentResult, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create result directory: %w", err)
	}

	for i, page := range result.Results {
		if page.Markdown != "" {
			mdPath := filepath.Join(dir, fmt.Sprintf("page_%03d.md", i+1))
			if err := os.WriteFile(mdPath, []byte(page.Markdown), 0o644); err != nil {
				return err
			}
		}

		if len(page.Layout) > 0 && string(page.Layout) != "null" {
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, page.Layout, "", "  "); err != nil {
				return fmt.Errorf("format layout for page %d: %w", i+1, err)
			}

			jsonPath := filepath.Join(dir, fmt.Sprintf("page_%03d.json", i+1))
			if err := os.WriteFile(jsonPath, pretty.Bytes(), 0o644); err != nil {
				return err
			}
		}
	}

	return nil
}
