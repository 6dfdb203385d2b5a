// internal/api/v2/documents.go
package api

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/gearmap/gearmap-go/internal/errors"
	"github.com/gearmap/gearmap-go/internal/extract"
	"github.com/gearmap/gearmap-go/internal/filestore"
	"github.com/gearmap/gearmap-go/internal/mapping"
	"github.com/gearmap/gearmap-go/internal/pdf"
)

// initDocumentRoutes registers the upload/convert/download endpoints. The
// upload route carries a per-client rate limit on top of the group's body
// size limit.
func (c *Controller) initDocumentRoutes() {
	uploadLimiter := middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(c.Settings.WebServer.UploadRate),
			Burst:     c.Settings.WebServer.UploadRate * 2,
			ExpiresIn: 3 * time.Minute,
		}),
	})

	c.Group.POST("/documents", c.UploadDocument, uploadLimiter)
	c.Group.POST("/documents/:id/convert", c.ConvertDocument)
	c.Group.GET("/downloads/:id", c.DownloadFile)
}

// UploadResponse describes an accepted document.
type UploadResponse struct {
	UploadID        string `json:"upload_id"`
	Filename        string `json:"filename"`
	PageCount       int    `json:"page_count"`
	AnnotationCount int    `json:"annotation_count"`
	SizeBytes       int    `json:"size_bytes"`
}

// UploadDocument accepts a multipart PDF upload, parses it once to verify it
// is readable and to count its pages and annotations, and stores it under a
// fresh upload id.
func (c *Controller) UploadDocument(ctx echo.Context) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return c.HandleError(ctx, err, "Missing file in upload", http.StatusBadRequest)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to open uploaded file", http.StatusInternalServerError)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to read uploaded file", http.StatusInternalServerError)
	}

	reader, err := pdf.NewReaderFromBytes(data)
	if err != nil {
		parseErr := errors.New(err).
			Component("api").
			Category(errors.CategoryDocumentParse).
			Context("operation", "upload_document").
			Build()
		return c.HandleError(ctx, parseErr, "Uploaded file is not a readable PDF", http.StatusUnprocessableEntity)
	}

	pages, annotations, err := extract.Count(reader)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to inspect uploaded document", http.StatusUnprocessableEntity)
	}

	if maxPages := c.Settings.Conversion.MaxPages; maxPages > 0 && pages > maxPages {
		limitErr := errors.Newf("document has %d pages, limit is %d", pages, maxPages).
			Component("api").
			Category(errors.CategoryLimit).
			Context("operation", "upload_document").
			Build()
		return c.HandleError(ctx, limitErr, "Document exceeds the page limit", http.StatusRequestEntityTooLarge)
	}

	id := c.Files.PutUpload(filestore.Upload{
		Name:        fileHeader.Filename,
		Data:        data,
		Pages:       pages,
		Annotations: annotations,
	})

	c.logAPIRequest(ctx, "document uploaded",
		"upload_id", id,
		"pages", pages,
		"annotations", annotations,
		"size_bytes", len(data))

	return ctx.JSON(http.StatusCreated, UploadResponse{
		UploadID:        id,
		Filename:        fileHeader.Filename,
		PageCount:       pages,
		AnnotationCount: annotations,
		SizeBytes:       len(data),
	})
}

// ConvertRequest selects the mapping direction for a conversion. An empty
// direction falls back to the configured default.
type ConvertRequest struct {
	Direction string `json:"direction"`
}

// ConvertDocument runs the conversion for a previously uploaded document and
// stores the output for download. A conversion with skipped annotations is
// still a success, the statistics tell the caller what happened.
func (c *Controller) ConvertDocument(ctx echo.Context) error {
	id := ctx.Param("id")

	upload, err := c.Files.GetUpload(id)
	if err != nil {
		return c.HandleError(ctx, err, "Upload not found or expired", http.StatusNotFound)
	}

	var req ConvertRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	if req.Direction == "" {
		req.Direction = c.Settings.Conversion.DefaultDirection
	}

	out, result, err := c.Engine.Convert(ctx.Request().Context(), upload.Data, upload.Name, mapping.Direction(req.Direction))
	if err != nil {
		return c.HandleError(ctx, err, "Conversion failed", http.StatusInternalServerError)
	}

	fileID := c.Files.PutOutput(filestore.Output{
		Name:   result.ConvertedName,
		Data:   out,
		Result: result,
	})

	result.UploadID = id
	result.FileID = fileID
	result.DownloadURL = "/api/v2/downloads/" + fileID

	return ctx.JSON(http.StatusOK, result)
}

// DownloadFile serves a converted document as a PDF attachment. Outputs are
// transient, an expired id is indistinguishable from an unknown one.
func (c *Controller) DownloadFile(ctx echo.Context) error {
	output, err := c.Files.GetOutput(ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "File not found or expired", http.StatusNotFound)
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+output.Name+`"`)
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	ctx.Response().Header().Set("Pragma", "no-cache")
	return ctx.Blob(http.StatusOK, "application/pdf", output.Data)
}

// logAPIRequest is a helper to log handler events with common context fields.
func (c *Controller) logAPIRequest(ctx echo.Context, msg string, args ...any) {
	if c.apiLogger == nil {
		return
	}
	baseAttrs := []any{
		"path", ctx.Request().URL.Path,
		"ip", ctx.RealIP(),
	}
	baseAttrs = append(baseAttrs, args...)
	c.apiLogger.Info(msg, baseAttrs...)
}
