// Package domain holds the core data model and error types shared
// across the gateway: uploaded documents, rasterized page images, and
// per-page recognition results.
package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// UploadedDocument is a raw upload as received from the caller.
// It lives for the duration of one request.
type UploadedDocument struct {
	Filename string
	Data     []byte
}

// PageImage is one rasterized page of a document, the unit of OCR
// inference. Index is 0-based and matches the source page order.
type PageImage struct {
	Index  int
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// PageResult holds the recognition output for a single page: the
// markdown reconstruction and the structured layout returned by the
// model. Layout is nil when the model reply carried no layout block.
type PageResult struct {
	Markdown string
	Layout   json.RawMessage
}

// DocumentResult is the terminal artifact for one processed document.
// Pages are ordered by source page index.
type DocumentResult struct {
	ID        uuid.UUID
	Filename  string
	PageCount int
	Pages     []PageResult
}

// LayoutBlock is one parsed block inside a page layout, as emitted by
// the PaddleOCR-VL parsing pipeline.
type LayoutBlock struct {
	BlockLabel   string      `json:"block_label"`
	BlockContent string      `json:"block_content"`
	BlockBBox    []int       `json:"block_bbox"`
	BlockID      int         `json:"block_id"`
	BlockOrder   *int        `json:"block_order,omitempty"`
	GroupID      *int        `json:"group_id,omitempty"`
	Polygon      [][]float64 `json:"block_polygon_points,omitempty"`
}

// PageLayout is the structured layout object for one page.
type PageLayout struct {
	PageIndex      *int          `json:"page_index,omitempty"`
	Width          int           `json:"width"`
	Height         int           `json:"height"`
	ParsingResList []LayoutBlock `json:"parsing_res_list"`
}
