// Package api is the HTTP client for the pipeline backend's REST surface.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/osoriano/pitwall/internal/models"
)

// ErrRunNotFound distinguishes a 404 on a run resource from transient
// failures. The sync engine treats it as terminal for the watched run.
var ErrRunNotFound = errors.New("run not found")

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("GET %s: %w", path, ErrRunNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decode response: %w", path, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("POST %s: %w", path, ErrRunNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("POST %s: unexpected status %d", path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("POST %s: decode response: %w", path, err)
	}
	return nil
}

// GetRun fetches the authoritative run status.
func (c *Client) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	var run models.Run
	if err := c.get(ctx, "/api/runs/"+url.PathEscape(runID), &run); err != nil {
		return nil, err
	}
	if run.ID == "" {
		run.ID = runID
	}
	return &run, nil
}

func (c *Client) ListRuns(ctx context.Context) ([]models.RunSummary, error) {
	var resp struct {
		Runs []models.RunSummary `json:"runs"`
	}
	if err := c.get(ctx, "/api/runs", &resp); err != nil {
		return nil, err
	}
	return resp.Runs, nil
}

// StartRun launches a new pipeline run for the given brief. The backend
// returns immediately; progress is observed through polling.
func (c *Client) StartRun(ctx context.Context, brief string) (*models.Run, error) {
	var run models.Run
	body := map[string]string{"brief": brief}
	if err := c.post(ctx, "/api/runs", body, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (c *Client) GetArtifacts(ctx context.Context, runID string) (*models.Artifacts, error) {
	var artifacts models.Artifacts
	if err := c.get(ctx, "/api/runs/"+url.PathEscape(runID)+"/artifacts", &artifacts); err != nil {
		return nil, err
	}
	return &artifacts, nil
}

func (c *Client) GetFiles(ctx context.Context, runID string) ([]models.FileEntry, error) {
	var resp struct {
		Files []models.FileEntry `json:"files"`
		Total int                `json:"total"`
	}
	if err := c.get(ctx, "/api/runs/"+url.PathEscape(runID)+"/files", &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// GetFileContent fetches a single generated file. path is the file's
// backend-relative path, escaped segment by segment.
func (c *Client) GetFileContent(ctx context.Context, runID, path string) (*models.FileEntry, error) {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	var file models.FileEntry
	endpoint := "/api/runs/" + url.PathEscape(runID) + "/files/" + strings.Join(segments, "/")
	if err := c.get(ctx, endpoint, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

func (c *Client) GetDecisions(ctx context.Context, runID string) ([]models.DecisionEntry, error) {
	var resp struct {
		Decisions []models.DecisionEntry `json:"decisions"`
		Total     int                    `json:"total"`
	}
	if err := c.get(ctx, "/api/runs/"+url.PathEscape(runID)+"/decisions", &resp); err != nil {
		return nil, err
	}
	return resp.Decisions, nil
}

func (c *Client) GetActivity(ctx context.Context, runID string) ([]models.ActivityEntry, error) {
	var resp struct {
		Activity []models.ActivityEntry `json:"activity"`
		Total    int                    `json:"total"`
	}
	if err := c.get(ctx, "/api/runs/"+url.PathEscape(runID)+"/activity", &resp); err != nil {
		return nil, err
	}
	return resp.Activity, nil
}

func (c *Client) GetDeployStatus(ctx context.Context) (*models.DeployStatus, error) {
	var status models.DeployStatus
	if err := c.get(ctx, "/api/deploy/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// DecisionResult is the backend's acknowledgment of a gate decision.
// AlreadyProcessed means a prior submission won the race; callers treat
// it as success but must not predict a transition from it.
type DecisionResult struct {
	RunID        string           `json:"run_id"`
	Status       models.RunStatus `json:"status"`
	CurrentPhase models.Phase     `json:"current_phase"`
	Message      string           `json:"message"`
}

func (r *DecisionResult) AlreadyProcessed() bool {
	return r.Status == "already_processed"
}

// SubmitDecision posts a gate decision. The backend acknowledges before
// the pipeline actually advances.
func (c *Client) SubmitDecision(ctx context.Context, runID string, decision models.Decision, feedback string) (*DecisionResult, error) {
	body := map[string]string{
		"decision": string(decision),
		"feedback": feedback,
	}
	var result DecisionResult
	if err := c.post(ctx, "/api/runs/"+url.PathEscape(runID)+"/hitl", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Export(ctx context.Context, runID string) (*models.ExportResult, error) {
	var result models.ExportResult
	if err := c.post(ctx, "/api/runs/"+url.PathEscape(runID)+"/export", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) DeployCheck(ctx context.Context) (*models.DeployCheck, error) {
	var check models.DeployCheck
	if err := c.get(ctx, "/api/deploy/check", &check); err != nil {
		return nil, err
	}
	return &check, nil
}

func (c *Client) Deploy(ctx context.Context, apiKey string) (*models.DeployResult, error) {
	body := map[string]string{"anthropic_api_key": apiKey}
	var result models.DeployResult
	if err := c.post(ctx, "/api/deploy", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Teardown(ctx context.Context) error {
	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	return c.post(ctx, "/api/teardown", nil, &resp)
}
