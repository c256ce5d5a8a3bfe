package job

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/imageforge/imageforge/internal/model"
)

type fakeRepo struct {
	saved []model.JobMetadata
}

func (r *fakeRepo) SaveJob(_ context.Context, meta model.JobMetadata) error {
	r.saved = append(r.saved, meta)
	return nil
}

func TestHandleRecordsJob(t *testing.T) {
	repo := &fakeRepo{}
	h := NewCompletedHandler(repo)

	meta := model.JobMetadata{ID: "job-42", HEICSupported: false}
	value, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if err := h.Handle(context.Background(), kafka.Message{Key: []byte(meta.ID), Value: value}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(repo.saved) != 1 || repo.saved[0].ID != "job-42" {
		t.Errorf("job not recorded: %+v", repo.saved)
	}
}

func TestHandleRejectsGarbage(t *testing.T) {
	h := NewCompletedHandler(&fakeRepo{})
	if err := h.Handle(context.Background(), kafka.Message{Value: []byte("not json")}); err == nil {
		t.Error("expected an error for a malformed event")
	}
}
