package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"docuchat/internal/model"
)

// DocumentLister exposes the read side of the document store.
type DocumentLister interface {
	ListDocuments(ctx context.Context) ([]model.Document, error)
	CountChunks(ctx context.Context) (int64, error)
}

type DocumentsHandler struct {
	store DocumentLister
}

func NewDocumentsHandler(store DocumentLister) *DocumentsHandler {
	return &DocumentsHandler{store: store}
}

// List returns every ingested document plus the total chunk count.
func (h *DocumentsHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	docs, err := h.store.ListDocuments(ctx)
	if err != nil {
		c.String(http.StatusInternalServerError, "Error listing documents: "+err.Error())
		return
	}
	count, err := h.store.CountChunks(ctx)
	if err != nil {
		c.String(http.StatusInternalServerError, "Error counting chunks: "+err.Error())
		return
	}
	if docs == nil {
		docs = []model.Document{}
	}

	c.JSON(http.StatusOK, gin.H{
		"documents":   docs,
		"chunk_count": count,
	})
}
