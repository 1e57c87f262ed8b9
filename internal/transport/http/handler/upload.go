package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"docuchat/internal/app"
	"docuchat/internal/model"
	"docuchat/internal/pkg/pdfextract"
)

// Ingester splits, embeds, and stores one document as an atomic batch.
type Ingester interface {
	Ingest(ctx context.Context, input app.IngestInput) (*app.IngestResult, error)
}

type UploadHandler struct {
	ingester Ingester
	extract  func(r io.Reader) (string, error)
	maxSize  int64
}

// NewUploadHandler caps accepted files at maxPDFMB megabytes.
func NewUploadHandler(ingester Ingester, maxPDFMB int) *UploadHandler {
	return &UploadHandler{
		ingester: ingester,
		extract:  pdfextract.ExtractText,
		maxSize:  int64(maxPDFMB) << 20,
	}
}

// Upload accepts a multipart form with a "file" PDF field, extracts its
// text, and ingests it into the document store. Errors are returned as
// plain text so the chat UI can show them directly.
func (h *UploadHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.String(http.StatusBadRequest, "No file provided")
		return
	}
	if strings.ToLower(filepath.Ext(file.Filename)) != ".pdf" {
		c.String(http.StatusBadRequest, "Only PDF files are supported")
		return
	}
	if file.Size > h.maxSize {
		c.String(http.StatusRequestEntityTooLarge, "File too large (max %d MB)", h.maxSize>>20)
		return
	}

	f, err := file.Open()
	if err != nil {
		c.String(http.StatusBadRequest, "Error processing PDF: "+err.Error())
		return
	}
	defer f.Close()

	text, err := h.extract(f)
	if err != nil {
		c.String(http.StatusBadRequest, "Error processing PDF: "+err.Error())
		return
	}

	result, err := h.ingester.Ingest(c.Request.Context(), app.IngestInput{
		Name:    file.Filename,
		Source:  model.SourceUpload,
		Content: text,
	})
	if err != nil {
		if errors.Is(err, app.ErrNoText) {
			c.String(http.StatusBadRequest, "Error processing PDF: "+app.ErrNoText.Error())
			return
		}
		c.String(http.StatusInternalServerError, "Error ingesting document: "+err.Error())
		return
	}

	// document_count is the store-wide chunk total after this ingest.
	c.JSON(http.StatusOK, gin.H{
		"message":        "Successfully processed and added " + file.Filename,
		"document_count": result.TotalChunks,
	})
}
