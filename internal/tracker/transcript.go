package tracker

import (
	"encoding/json"
	"strings"
)

// transcriptSegment is one segment of a transcription response body.
type transcriptSegment struct {
	Audio struct {
		Content string `json:"content"`
	} `json:"audio"`
}

type transcriptResponse struct {
	Segments []transcriptSegment `json:"segments"`
}

// extractTranscript pulls the transcript text out of a remote response body.
// Segmented responses are joined with a single space, skipping empty
// segments. A response that is itself a JSON string is used verbatim.
// Anything else yields an empty transcript.
func extractTranscript(response json.RawMessage) string {
	if len(response) == 0 {
		return ""
	}

	var tr transcriptResponse
	if err := json.Unmarshal(response, &tr); err == nil && tr.Segments != nil {
		parts := make([]string, 0, len(tr.Segments))
		for _, seg := range tr.Segments {
			if seg.Audio.Content != "" {
				parts = append(parts, seg.Audio.Content)
			}
		}
		return strings.Join(parts, " ")
	}

	var plain string
	if err := json.Unmarshal(response, &plain); err == nil {
		return plain
	}

	return ""
}
