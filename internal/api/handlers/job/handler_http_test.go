package job_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	jobapi "github.com/imageforge/imageforge/internal/api/handlers/job"
	"github.com/imageforge/imageforge/internal/model"
	jobrepo "github.com/imageforge/imageforge/internal/repository/job"
	"github.com/imageforge/imageforge/internal/storage/file"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

type fakeService struct {
	meta  model.JobMetadata
	files int
	op    model.Operation
}

func (s *fakeService) ProcessBatch(_ context.Context, files []model.UploadedFile, _ []model.ManifestEntry, opts model.Options, _ bool) (model.JobMetadata, error) {
	s.files = len(files)
	s.op = opts.Op
	return s.meta, nil
}

type fakeRepo struct{}

func (fakeRepo) GetJob(context.Context, string) (model.JobMetadata, error) {
	return model.JobMetadata{}, jobrepo.ErrJobNotFound
}

func newBatchRouter(t *testing.T, svc *fakeService) *ginext.Engine {
	t.Helper()
	h := jobapi.NewHandler(svc, fakeRepo{}, file.NewStorage(t.TempDir()))
	r := ginext.New()
	r.POST("/api/batch-process", h.BatchProcess)
	return r
}

func batchRequest(t *testing.T, fileSize int) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("files", "upload.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(make([]byte, fileSize)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	w.WriteField("manifest", `[{"original_name":"upload.png","original_extension":"png"}]`)
	w.WriteField("operation", "convert")
	if err := w.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/batch-process", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestBatchProcessRejectsOversizedBody(t *testing.T) {
	svc := &fakeService{}
	r := newBatchRouter(t, svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, batchRequest(t, 40<<20))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
	if svc.files != 0 {
		t.Errorf("oversized upload reached the service with %d file(s)", svc.files)
	}
}

func TestBatchProcessAcceptsBodyWithinLimit(t *testing.T) {
	svc := &fakeService{meta: model.JobMetadata{ID: "job-ok"}}
	r := newBatchRouter(t, svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, batchRequest(t, 1<<20))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if svc.files != 1 {
		t.Errorf("service saw %d file(s), want 1", svc.files)
	}
	if svc.op != model.OperationConvert {
		t.Errorf("service saw operation %q, want convert", svc.op)
	}
}
