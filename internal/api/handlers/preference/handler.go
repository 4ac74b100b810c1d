package preference

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/avatar-compressor/internal/api/respond"
	"github.com/aliskhannn/avatar-compressor/internal/repository/preference"
)

// repository defines the interface for the preference store.
type repository interface {
	Get(ctx context.Context) (int, error)
	Set(ctx context.Context, targetKB int) error
}

// Handler provides HTTP handlers for the compression size preference.
type Handler struct {
	repo repository
}

func NewHandler(r repository) *Handler {
	return &Handler{repo: r}
}

// SetRequest is the body of the PUT request.
type SetRequest struct {
	TargetKB int `json:"target_kb"`
}

// Get returns the stored target size. When no preference is stored it
// responds with target_kb 0 and enabled false, which the upload page
// treats as "do not compress".
func (h *Handler) Get(c *ginext.Context) {
	targetKB, err := h.repo.Get(c.Request.Context())
	if err != nil {
		if errors.Is(err, preference.ErrPreferenceNotSet) {
			respond.OK(c, map[string]interface{}{
				"enabled":   false,
				"target_kb": 0,
			})
			return
		}

		zlog.Logger.Err(err).Msg("failed to get preference")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to get preference"))
		return
	}

	respond.OK(c, map[string]interface{}{
		"enabled":   true,
		"target_kb": targetKB,
	})
}

// Set stores a new target size. Only positive values are accepted.
func (h *Handler) Set(c *ginext.Context) {
	var req SetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Logger.Err(err).Msg("failed to bind preference request")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	if req.TargetKB <= 0 {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("target_kb must be a positive integer"))
		return
	}

	if err := h.repo.Set(c.Request.Context(), req.TargetKB); err != nil {
		zlog.Logger.Err(err).Msg("failed to save preference")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to save preference"))
		return
	}

	respond.OK(c, map[string]interface{}{
		"target_kb": req.TargetKB,
	})
}
