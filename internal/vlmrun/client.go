package vlmrun

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/vidscribe/vidscribe/internal/model"
)

// DefaultBaseURL is the production VLM Run API endpoint.
const DefaultBaseURL = "https://api.vlm.run/v1"

// Ensure Client implements model.InferenceClient.
var _ model.InferenceClient = (*Client)(nil)

// Client talks to the VLM Run HTTP API. It is cheap to construct, so a fresh
// one is built per caller credential.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client for the VLM Run API. baseURL falls back to
// DefaultBaseURL when empty.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// predictionResponse mirrors the prediction object returned by the API.
type predictionResponse struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	CreatedAt   string          `json:"created_at"`
	CompletedAt string          `json:"completed_at"`
	Response    json.RawMessage `json:"response"`
	Message     string          `json:"message"`
	Usage       json.RawMessage `json:"usage"`
}

func (p predictionResponse) toModel() model.Prediction {
	pred := model.Prediction{
		ID:       p.ID,
		Status:   p.Status,
		Response: p.Response,
		Message:  p.Message,
		Usage:    p.Usage,
	}
	if t, err := time.Parse(time.RFC3339, p.CreatedAt); err == nil {
		pred.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, p.CompletedAt); err == nil {
		pred.CompletedAt = &t
	}
	return pred
}

type fileResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

// Upload sends the file at path to the files endpoint as multipart form data
// and returns the remote file reference.
func (c *Client) Upload(ctx context.Context, path string, filename string) (model.FileRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.FileRef{}, &model.UploadError{Err: err}
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return model.FileRef{}, &model.UploadError{Err: err}
	}
	if _, err := io.Copy(part, f); err != nil {
		return model.FileRef{}, &model.UploadError{Err: err}
	}
	if err := mw.Close(); err != nil {
		return model.FileRef{}, &model.UploadError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", &buf)
	if err != nil {
		return model.FileRef{}, &model.UploadError{Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.FileRef{}, &model.UploadError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.FileRef{}, &model.UploadError{StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return model.FileRef{}, &model.UploadError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", bodySummary(body)),
		}
	}

	var fr fileResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return model.FileRef{}, &model.UploadError{StatusCode: resp.StatusCode, Err: err}
	}
	return model.FileRef{ID: fr.ID, Filename: fr.Filename}, nil
}

// generateRequest mirrors the video generate request body.
type generateRequest struct {
	FileID      string `json:"file_id"`
	Domain      string `json:"domain"`
	Batch       bool   `json:"batch"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// Generate submits an uploaded file for transcription and returns the new
// prediction.
func (c *Client) Generate(ctx context.Context, fileID string, opts model.GenerateOptions) (model.Prediction, error) {
	reqBody := generateRequest{
		FileID:      fileID,
		Domain:      opts.Domain,
		Batch:       opts.Batch,
		CallbackURL: opts.CallbackURL,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return model.Prediction{}, &model.SubmissionError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/video/generate", bytes.NewReader(body))
	if err != nil {
		return model.Prediction{}, &model.SubmissionError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Prediction{}, &model.SubmissionError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Prediction{}, &model.SubmissionError{StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return model.Prediction{}, &model.SubmissionError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", bodySummary(respBody)),
		}
	}

	var pr predictionResponse
	if err := json.Unmarshal(respBody, &pr); err != nil {
		return model.Prediction{}, &model.SubmissionError{StatusCode: resp.StatusCode, Err: err}
	}
	return pr.toModel(), nil
}

// GetPrediction fetches the current state of a single prediction.
func (c *Client) GetPrediction(ctx context.Context, predictionID string) (model.Prediction, error) {
	url := fmt.Sprintf("%s/predictions/%s", c.baseURL, predictionID)
	body, status, err := c.get(ctx, url)
	if err != nil {
		return model.Prediction{}, &model.QueryError{StatusCode: status, Err: err}
	}

	var pr predictionResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return model.Prediction{}, &model.QueryError{StatusCode: status, Err: err}
	}
	return pr.toModel(), nil
}

// ListPredictions fetches the most recent predictions, newest first.
func (c *Client) ListPredictions(ctx context.Context, limit int) ([]model.Prediction, error) {
	url := fmt.Sprintf("%s/predictions?limit=%d", c.baseURL, limit)
	body, status, err := c.get(ctx, url)
	if err != nil {
		return nil, &model.QueryError{StatusCode: status, Err: err}
	}

	var prs []predictionResponse
	if err := json.Unmarshal(body, &prs); err != nil {
		return nil, &model.QueryError{StatusCode: status, Err: err}
	}
	preds := make([]model.Prediction, 0, len(prs))
	for _, pr := range prs {
		preds = append(preds, pr.toModel())
	}
	return preds, nil
}

// get performs an authorized GET and returns the body. The returned status
// code is zero if the request never reached the server.
func (c *Client) get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("unexpected status: %s", bodySummary(body))
	}
	return body, resp.StatusCode, nil
}

// bodySummary truncates an error body for inclusion in error messages.
func bodySummary(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
