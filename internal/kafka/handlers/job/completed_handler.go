package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/imageforge/imageforge/internal/model"
)

type repository interface {
	SaveJob(ctx context.Context, meta model.JobMetadata) error
}

// CompletedHandler consumes completed-job events and records them in the
// job history repository.
type CompletedHandler struct {
	repo repository
}

func NewCompletedHandler(r repository) *CompletedHandler {
	return &CompletedHandler{repo: r}
}

func (h *CompletedHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var meta model.JobMetadata
	if err := json.Unmarshal(msg.Value, &meta); err != nil {
		return fmt.Errorf("unmarshal job event: %w", err)
	}

	if err := h.repo.SaveJob(ctx, meta); err != nil {
		return fmt.Errorf("save job record: %w", err)
	}

	return nil
}
