package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/vidscribe/vidscribe/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// SlackNotifier posts terminal job transitions to a Slack channel via
// Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts each finished job to Slack.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Notify sends one Slack message for the finished job, retrying once when
// rate limited.
func (s *SlackNotifier) Notify(rec model.JobRecord) error {
	body, err := json.Marshal(buildPayload(rec))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		delay := retryDelay(resp.Header.Get("Retry-After"))
		s.logger.Warn("slack rate limited, retrying", "retry_after", delay.String())
		time.Sleep(delay)

		resp2, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}
		defer resp2.Body.Close()

		if resp2.StatusCode != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", resp2.StatusCode)
		}
		s.logger.Info("slack message sent", "job_id", rec.JobID, "retried", true)
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}
	s.logger.Info("slack message sent", "job_id", rec.JobID)
	return nil
}

// maxRetryAfterSecs bounds how long a Retry-After header is honored, so a
// bad header cannot stall the caller's notify hook.
const maxRetryAfterSecs = 10

func retryDelay(header string) time.Duration {
	secs, _ := strconv.Atoi(header)
	if secs <= 0 {
		secs = 1
	}
	if secs > maxRetryAfterSecs {
		secs = maxRetryAfterSecs
	}
	return time.Duration(secs) * time.Second
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func buildPayload(rec model.JobRecord) slackPayload {
	header := "✅ Transcription completed"
	if rec.Status == model.StatusError {
		header = "❌ Transcription failed"
	}

	fields := []slackText{
		{Type: "mrkdwn", Text: "*Job:*\n" + rec.JobID},
		{Type: "mrkdwn", Text: "*Status:*\n" + string(rec.Status)},
	}
	if rec.PredictionID != "" {
		fields = append(fields, slackText{Type: "mrkdwn", Text: "*Prediction:*\n" + rec.PredictionID})
	}
	if rec.CompletedAt != nil {
		fields = append(fields, slackText{Type: "mrkdwn", Text: "*Finished:*\n" + rec.CompletedAt.Format(time.RFC1123)})
	}

	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: header}},
		{Type: "section", Fields: fields},
	}

	if rec.Status == model.StatusError && rec.Error != "" {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "*Error:* " + rec.Error},
		})
	} else if rec.Transcript != "" {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: excerpt(rec.Transcript, 300)},
		})
	}

	blocks = append(blocks, slackBlock{Type: "divider"})
	return slackPayload{Blocks: blocks}
}

func excerpt(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
