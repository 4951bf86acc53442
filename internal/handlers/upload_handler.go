package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/storydesk/backend/internal/uploads"
	"github.com/labstack/echo/v4"
)

// Uploader stores media files and removes them again by URL
type Uploader interface {
	Upload(ctx context.Context, f uploads.File, role uploads.Role) (string, error)
	Delete(ctx context.Context, url string) error
}

// UploadHandler handles media uploads
type UploadHandler struct {
	uploader Uploader
}

// NewUploadHandler creates a new UploadHandler
func NewUploadHandler(uploader Uploader) *UploadHandler {
	return &UploadHandler{uploader: uploader}
}

// RegisterUploadRoutes registers upload routes
func (h *UploadHandler) RegisterUploadRoutes(g *echo.Group) {
	g.POST("/uploads/:role", h.Upload)
	g.DELETE("/uploads", h.Delete)
}

// Upload stores the multipart "file" for the role in the path and returns
// its public URL
func (h *UploadHandler) Upload(c echo.Context) error {
	role, err := uploads.ParseRole(c.Param("role"))
	if err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" is required")
	}
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	url, err := h.uploader.Upload(c.Request().Context(), uploads.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        src,
	}, role)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, echo.Map{"url": url})
}

// Delete removes the object behind ?url=
func (h *UploadHandler) Delete(c echo.Context) error {
	url := c.QueryParam("url")
	if url == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}
	if err := h.uploader.Delete(c.Request().Context(), url); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "File deleted"})
}
