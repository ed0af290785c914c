package tracker

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/vidscribe/vidscribe/internal/model"
)

func TestExtractTranscript(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "segments joined with single space",
			response: `{"segments":[{"audio":{"content":"Hello"}},{"audio":{"content":""}},{"audio":{"content":"world"}}]}`,
			want:     "Hello world",
		},
		{
			name:     "plain string used verbatim",
			response: `"full text"`,
			want:     "full text",
		},
		{
			name:     "empty segments list",
			response: `{"segments":[]}`,
			want:     "",
		},
		{
			name:     "object without segments",
			response: `{"summary":"no transcript here"}`,
			want:     "",
		},
		{
			name:     "empty response",
			response: ``,
			want:     "",
		},
		{
			name:     "null response",
			response: `null`,
			want:     "",
		},
		{
			name:     "segment missing audio field",
			response: `{"segments":[{"video":{}},{"audio":{"content":"kept"}}]}`,
			want:     "kept",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractTranscript(json.RawMessage(tt.response))
			if got != tt.want {
				t.Errorf("extractTranscript(%s) = %q, want %q", tt.response, got, tt.want)
			}
		})
	}
}

func TestClassify_CompletedWithoutResponse(t *testing.T) {
	out := classify("completed", "", nil, []byte(`{"status":"completed"}`))
	if out.kind != outcomeOther {
		t.Fatalf("expected completed without response to classify as passthrough, got kind %d", out.kind)
	}
	if out.status != model.StatusCompleted {
		t.Errorf("expected passthrough status completed, got %s", out.status)
	}
}

func TestClassify_MissingStatus(t *testing.T) {
	out := classify("", "", nil, []byte(`{}`))
	if out.kind != outcomeOther || out.status != "unknown" {
		t.Errorf("expected unknown passthrough, got %+v", out)
	}
}

func TestApply_CompletedAtNotOverwritten(t *testing.T) {
	earlier := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := model.JobRecord{
		JobID:       "job_1_abc",
		Status:      model.StatusCompleted,
		CompletedAt: &earlier,
	}
	out := classify("failed", "late failure", nil, []byte(`{"status":"failed"}`))

	merged := apply(rec, out, mergeCallback, time.Now().UTC())
	if !merged.CompletedAt.Equal(earlier) {
		t.Errorf("expected first terminal timestamp kept, got %v", merged.CompletedAt)
	}
}
