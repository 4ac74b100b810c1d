package avatar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/avatar-compressor/internal/api/respond"
	"github.com/aliskhannn/avatar-compressor/internal/model"
	"github.com/aliskhannn/avatar-compressor/internal/repository/avatar"
)

// uploadFieldPatterns are the substrings an upload form field name must
// contain to be picked up as the profile picture. The first matching
// field wins, so repeated fields do not double-wire the pipeline.
var uploadFieldPatterns = []string{"avatar", "profile", "photo", "image"}

// service defines the interface for avatar-related operations.
type service interface {
	SaveAvatar(ctx context.Context, ownerID uuid.UUID, filename, contentType string, size int64, src io.Reader) (uuid.UUID, string, error)
	GetAvatar(ctx context.Context, id uuid.UUID) (model.Avatar, io.ReadCloser, error)
	GetAvatarMeta(ctx context.Context, id uuid.UUID) (model.Avatar, error)
	DeleteAvatar(ctx context.Context, id uuid.UUID) error
}

// Handler provides HTTP handlers for avatar-related endpoints.
// It depends on a service interface to perform the business logic.
type Handler struct {
	service   service
	maxMemory int64
}

// NewHandler creates a new Handler with the given service and multipart
// parse memory limit in bytes.
func NewHandler(s service, maxMemory int64) *Handler {
	return &Handler{service: s, maxMemory: maxMemory}
}

// Upload handles the HTTP request for uploading a profile picture.
// It scans the multipart form for a file field whose name matches one of
// the known upload patterns, saves it via the service, and responds with
// the saved file info.
func (h *Handler) Upload(c *ginext.Context) {
	if err := c.Request.ParseMultipartForm(h.maxMemory); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("parse multipart form failed: %v", err))
		return
	}

	header := findUploadFile(c.Request.MultipartForm)
	if header == nil {
		zlog.Logger.Warn().Msg("no upload field found in form")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("no image file field found"))
		return
	}

	file, err := header.Open()
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to open the uploaded file")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("failed to retrieve the file"))
		return
	}
	defer file.Close()

	zlog.Logger.Printf("uploaded file: %v", header.Filename)
	zlog.Logger.Printf("file size: %v", header.Size)
	zlog.Logger.Printf("MIME header: %v", header.Header)

	ownerID, err := uuid.Parse(c.PostForm("owner_id"))
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to parse owner id")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid owner_id: %v", err))
		return
	}

	contentType := header.Header.Get("Content-Type")

	id, dst, err := h.service.SaveAvatar(c.Request.Context(), ownerID, header.Filename, contentType, header.Size, file)
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to save the avatar")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to save the avatar: %v", err))
		return
	}

	zlog.Logger.Printf("saved file: %v", dst)

	respond.OK(c, map[string]interface{}{
		"id":       id,
		"filename": header.Filename,
		"path":     dst,
	})
}

// findUploadFile returns the first file header whose field name contains
// one of the upload patterns. Field names are checked in sorted order so
// the choice does not depend on map iteration order.
func findUploadFile(form *multipart.Form) *multipart.FileHeader {
	if form == nil {
		return nil
	}

	names := make([]string, 0, len(form.File))
	for name := range form.File {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, pattern := range uploadFieldPatterns {
		for _, name := range names {
			if strings.Contains(strings.ToLower(name), pattern) && len(form.File[name]) > 0 {
				return form.File[name][0]
			}
		}
	}

	return nil
}

// Get serves the actual image bytes for a given avatar ID. The
// compressed variant is served when processing finished; the original
// otherwise.
func (h *Handler) Get(c *ginext.Context) {
	idStr := c.Param("id")
	if idStr == "" {
		zlog.Logger.Warn().Msg("missing id")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("missing id"))
		return
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to parse id")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid id: %v", err))
		return
	}

	_, reader, err := h.service.GetAvatar(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, avatar.ErrAvatarNotFound) {
			zlog.Logger.Warn().Msg("avatar not found")
			respond.Fail(c, http.StatusNotFound, fmt.Errorf("avatar not found"))
			return
		}

		zlog.Logger.Err(err).Msg("failed to get avatar")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to get avatar: %v", err))
		return
	}
	defer reader.Close()

	// Disable browser caching to always fetch the latest image.
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")

	respond.JPEG(c, http.StatusOK, reader)
}

// GetMeta returns metadata about the avatar (filename, status, sizes)
// without serving the file itself. The status field doubles as the
// progress indicator for the upload page.
func (h *Handler) GetMeta(c *ginext.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid id"))
		return
	}

	a, err := h.service.GetAvatarMeta(c.Request.Context(), id)
	if err != nil {
		respond.Fail(c, http.StatusNotFound, fmt.Errorf("avatar not found"))
		return
	}

	respond.OK(c, a)
}

// Delete removes an avatar by ID.
func (h *Handler) Delete(c *ginext.Context) {
	idStr := c.Param("id")
	if idStr == "" {
		zlog.Logger.Warn().Msg("missing id")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("missing id"))
		return
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to parse id")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid id: %v", err))
		return
	}

	if err := h.service.DeleteAvatar(c.Request.Context(), id); err != nil {
		if errors.Is(err, avatar.ErrAvatarNotFound) {
			zlog.Logger.Warn().Msg("avatar not found")
			respond.Fail(c, http.StatusNotFound, fmt.Errorf("avatar not found"))
			return
		}

		zlog.Logger.Err(err).Msg("failed to delete the avatar")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to delete avatar: %w", err))
		return
	}

	c.Status(http.StatusNoContent)
}
