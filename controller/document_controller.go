package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github/itish2003/docsearch/models"
	"github/itish2003/docsearch/services"
)

// FolderIndexer is the part of services.FolderIndexer the API needs.
type FolderIndexer interface {
	IndexFolder(ctx context.Context, dirPath string) (*models.IndexFolderReport, error)
}

// DocumentController handles the HTTP requests for the document API. It
// depends on the DocumentService and the folder indexer for the actual work.
type DocumentController struct {
	documents services.DocumentService
	indexer   FolderIndexer
}

// NewDocumentController creates a new DocumentController.
func NewDocumentController(documents services.DocumentService, indexer FolderIndexer) *DocumentController {
	return &DocumentController{
		documents: documents,
		indexer:   indexer,
	}
}

// Register mounts the document routes on r.
func (c *DocumentController) Register(r gin.IRouter) {
	r.POST("/documents/", c.AddDocument)
	r.POST("/documents/pdf/", c.AddPDFDocument)
	r.GET("/documents/:doc_id", c.GetDocument)
	r.POST("/search/", c.Search)
	r.POST("/index-folder/", c.IndexFolder)
}

// AddDocument is the handler for POST /documents/.
func (c *DocumentController) AddDocument(ctx *gin.Context) {
	var req models.AddDocumentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}

	docID, err := c.documents.AddText(ctx.Request.Context(), req.Content)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, models.AddDocumentResponse{DocID: docID})
}

// AddPDFDocument is the handler for POST /documents/pdf/. The upload is read
// straight from the multipart part under the "file" field.
func (c *DocumentController) AddPDFDocument(ctx *gin.Context) {
	header, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Missing PDF upload: " + err.Error()})
		return
	}

	file, err := header.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Could not read upload: " + err.Error()})
		return
	}
	defer file.Close()

	docID, err := c.documents.AddPDF(ctx.Request.Context(), header.Header.Get("Content-Type"), file)
	if err != nil {
		respondError(ctx, err)
		return
	}
	log.Printf("API: Stored uploaded PDF %s as %s", header.Filename, docID)
	ctx.JSON(http.StatusOK, models.AddDocumentResponse{DocID: docID})
}

// GetDocument is the handler for GET /documents/:doc_id.
func (c *DocumentController) GetDocument(ctx *gin.Context) {
	doc, err := c.documents.Get(ctx.Request.Context(), ctx.Param("doc_id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, models.GetDocumentResponse{Content: doc.Content})
}

// Search is the handler for POST /search/. It responds with a bare JSON
// array of document ids, best match first.
func (c *DocumentController) Search(ctx *gin.Context) {
	var req models.SearchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}

	ids, err := c.documents.Search(ctx.Request.Context(), req.Query)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, ids)
}

// IndexFolder is the handler for POST /index-folder/. The folder may be given
// as a JSON body or as the folder_path query parameter.
func (c *DocumentController) IndexFolder(ctx *gin.Context) {
	var req models.IndexFolderRequest
	if body := ctx.Request.Body; body != nil && body != http.NoBody {
		// an empty body decodes to io.EOF
		if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
			return
		}
	}
	if req.FolderPath == "" {
		if err := ctx.ShouldBindQuery(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid query: " + err.Error()})
			return
		}
	}
	if req.FolderPath == "" {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "folder_path is required"})
		return
	}

	report, err := c.indexer.IndexFolder(ctx.Request.Context(), req.FolderPath)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, models.IndexFolderResponse{
		Message:           fmt.Sprintf("Indexed all PDFs from folder: %s", req.FolderPath),
		IndexFolderReport: *report,
	})
}

func respondError(ctx *gin.Context, err error) {
	status := models.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("API ERROR: %s %s: %v", ctx.Request.Method, ctx.FullPath(), err)
	}
	ctx.JSON(status, models.ErrorResponse{Error: err.Error()})
}
