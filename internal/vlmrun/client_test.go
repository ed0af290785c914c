package vlmrun

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/vidscribe/vidscribe/internal/model"
)

func writeTempVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("fake video bytes"), 0o600); err != nil {
		t.Fatalf("writing temp video: %v", err)
	}
	return path
}

func TestUpload_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parsing multipart form: %v", err)
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file field: %v", err)
		}
		defer f.Close()
		if header.Filename != "clip.mp4" {
			t.Errorf("unexpected filename: %s", header.Filename)
		}
		data, _ := io.ReadAll(f)
		if string(data) != "fake video bytes" {
			t.Errorf("unexpected file contents: %q", data)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"file-123","filename":"clip.mp4"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", srv.Client())
	ref, err := c.Upload(context.Background(), writeTempVideo(t), "clip.mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.ID != "file-123" {
		t.Errorf("expected file ID file-123, got %s", ref.ID)
	}
}

func TestUpload_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"invalid api key"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad-key", srv.Client())
	_, err := c.Upload(context.Background(), writeTempVideo(t), "clip.mp4")

	var upErr *model.UploadError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UploadError, got %v", err)
	}
	if upErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", upErr.StatusCode)
	}
}

func TestUpload_MissingFile(t *testing.T) {
	c := NewClient("http://unused", "k", http.DefaultClient)
	_, err := c.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), "missing.mp4")

	var upErr *model.UploadError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UploadError, got %v", err)
	}
}

func TestGenerate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/video/generate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		want := `{"file_id":"file-123","domain":"video.transcription","batch":true,"callback_url":"https://cb.example.com?jobId=j1"}`
		if string(body) != want {
			t.Errorf("unexpected request body:\ngot  %s\nwant %s", body, want)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pred-1","status":"pending","created_at":"2026-03-01T12:00:00Z"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", srv.Client())
	pred, err := c.Generate(context.Background(), "file-123", model.GenerateOptions{
		Domain:      "video.transcription",
		Batch:       true,
		CallbackURL: "https://cb.example.com?jobId=j1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pred.ID != "pred-1" || pred.Status != "pending" {
		t.Errorf("unexpected prediction: %+v", pred)
	}
	if pred.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be parsed")
	}
}

func TestGenerate_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", srv.Client())
	_, err := c.Generate(context.Background(), "file-123", model.GenerateOptions{Domain: "video.transcription"})

	var subErr *model.SubmissionError
	if !errors.As(err, &subErr) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}
}

func TestGetPrediction_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predictions/pred-1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "pred-1",
			"status": "completed",
			"created_at": "2026-03-01T12:00:00Z",
			"completed_at": "2026-03-01T12:05:00Z",
			"response": {"segments":[{"audio":{"content":"hi"}}]},
			"usage": {"credits": 3}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", srv.Client())
	pred, err := c.GetPrediction(context.Background(), "pred-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pred.Status != "completed" {
		t.Errorf("expected status completed, got %s", pred.Status)
	}
	if pred.CompletedAt == nil {
		t.Error("expected CompletedAt to be parsed")
	}
	if len(pred.Response) == 0 {
		t.Error("expected response body to be retained")
	}
}

func TestGetPrediction_QueryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", srv.Client())
	_, err := c.GetPrediction(context.Background(), "pred-1")

	var qErr *model.QueryError
	if !errors.As(err, &qErr) {
		t.Fatalf("expected QueryError, got %v", err)
	}
	if qErr.StatusCode != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", qErr.StatusCode)
	}
}

func TestListPredictions_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predictions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "50" {
			t.Errorf("unexpected limit: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"pred-2","status":"running","created_at":"2026-03-01T13:00:00Z"},
			{"id":"pred-1","status":"completed","created_at":"2026-03-01T12:00:00Z"}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", srv.Client())
	preds, err := c.ListPredictions(context.Background(), 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(preds) != 2 {
		t.Fatalf("expected 2 predictions, got %d", len(preds))
	}
	if preds[0].ID != "pred-2" || preds[1].ID != "pred-1" {
		t.Errorf("unexpected order: %+v", preds)
	}
}

func TestListPredictions_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not valid json`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", srv.Client())
	_, err := c.ListPredictions(context.Background(), 50)
	if err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
}
