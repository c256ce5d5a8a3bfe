package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/imageforge/imageforge/internal/api/respond"
)

// feedbackDir is the storage subdirectory feedback records are written into.
const feedbackDir = "feedback"

// fileStorage defines the interface for persisting feedback records.
type fileStorage interface {
	Save(ctx context.Context, subdir, filename string, src io.Reader) (string, error)
}

// Handler persists user feedback and tool ratings as JSON records.
type Handler struct {
	storage fileStorage
}

// NewHandler creates a new Handler with the given storage.
func NewHandler(fs fileStorage) *Handler {
	return &Handler{storage: fs}
}

type feedbackRequest struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

type ratingRequest struct {
	Tool   string `json:"tool"`
	Rating int    `json:"rating"`
}

type record struct {
	Kind      string `json:"kind"`
	CreatedAt string `json:"created_at"`
	Message   string `json:"message,omitempty"`
	Email     string `json:"email,omitempty"`
	Tool      string `json:"tool,omitempty"`
	Rating    int    `json:"rating,omitempty"`
}

// Feedback accepts a free-form feedback message with an optional email.
func (h *Handler) Feedback(c *ginext.Context) {
	var req feedbackRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}
	if req.Message == "" {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("message is required"))
		return
	}

	rec := record{
		Kind:      "feedback",
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Message:   req.Message,
		Email:     req.Email,
	}
	if err := h.save(c.Request.Context(), rec); err != nil {
		zlog.Logger.Err(err).Msg("failed to save feedback")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to save feedback"))
		return
	}

	respond.OK(c, map[string]string{"message": "Thank you for your feedback!"})
}

// Rating accepts a 1-5 rating for one of the tools.
func (h *Handler) Rating(c *ginext.Context) {
	var req ratingRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("rating must be between 1 and 5"))
		return
	}

	rec := record{
		Kind:      "rating",
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Tool:      req.Tool,
		Rating:    req.Rating,
	}
	if err := h.save(c.Request.Context(), rec); err != nil {
		zlog.Logger.Err(err).Msg("failed to save rating")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to save rating"))
		return
	}

	respond.OK(c, map[string]string{"message": "Thanks for rating!"})
}

func (h *Handler) save(ctx context.Context, rec record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	name := fmt.Sprintf("%s_%d_%s.json", rec.Kind, time.Now().UnixNano(), uuid.New().String()[:8])
	if _, err := h.storage.Save(ctx, feedbackDir, name, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}
