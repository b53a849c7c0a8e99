// Package asana is a thin REST client for the slice of the Asana API the
// bridge uses: task creation and deletion, user lookup and webhook
// management.
package asana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nomadicseo/slack-asana-bridge/internal/biz/domain"
	"github.com/nomadicseo/slack-asana-bridge/internal/biz/repo"
)

const defaultBaseURL = "https://app.asana.com/api/1.0"

// Client talks to the Asana REST API with a personal access token.
type Client struct {
	token   string
	baseURL string
	httpCli *http.Client
}

// NewClient creates an Asana client.
func NewClient(token string) *Client {
	return &Client{
		token:   token,
		baseURL: defaultBaseURL,
		httpCli: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientWithBaseURL creates a client against a non-default API root,
// used in tests.
func NewClientWithBaseURL(token, baseURL string) *Client {
	c := NewClient(token)
	c.baseURL = baseURL
	return c
}

// apiError is the error envelope Asana returns on non-2xx responses.
type apiError struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *Client) do(ctx context.Context, method, path string, payload, result interface{}) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s %s", domain.ErrNotFound, method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && len(apiErr.Errors) > 0 {
			return fmt.Errorf("asana API error (%d): %s", resp.StatusCode, apiErr.Errors[0].Message)
		}
		return fmt.Errorf("asana API error (%d): %s", resp.StatusCode, string(data))
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// taskData is the task representation used for creation responses.
type taskData struct {
	GID       string `json:"gid"`
	Name      string `json:"name"`
	Permalink string `json:"permalink_url"`
}

// CreateTask creates a task in the requested project. An assignee GID
// takes precedence over an email; Asana accepts either in the same field.
func (c *Client) CreateTask(ctx context.Context, req repo.CreateTaskRequest) (*repo.CreatedTask, error) {
	fields := map[string]interface{}{
		"name":     req.Name,
		"notes":    req.Notes,
		"projects": []string{req.ProjectID},
	}
	if req.DueOn != "" {
		fields["due_on"] = req.DueOn
	}
	switch {
	case req.AssigneeGID != "":
		fields["assignee"] = req.AssigneeGID
	case req.AssigneeEmail != "":
		fields["assignee"] = req.AssigneeEmail
	}

	var resp struct {
		Data taskData `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/tasks", map[string]interface{}{"data": fields}, &resp); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	fmt.Printf("[Asana] Created task %s (%s)\n", resp.Data.GID, resp.Data.Name)
	return &repo.CreatedTask{GID: resp.Data.GID, URL: resp.Data.Permalink}, nil
}

// DeleteTask removes a task. A missing task maps to domain.ErrNotFound so
// callers can treat it as already gone.
func (c *Client) DeleteTask(ctx context.Context, taskGID string) error {
	if err := c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(taskGID), nil, nil); err != nil {
		return fmt.Errorf("failed to delete task %s: %w", taskGID, err)
	}
	fmt.Printf("[Asana] Deleted task %s\n", taskGID)
	return nil
}

// Workspace is an Asana workspace reference.
type Workspace struct {
	GID  string `json:"gid"`
	Name string `json:"name"`
}

// Workspaces lists the workspaces the token can see.
func (c *Client) Workspaces(ctx context.Context) ([]Workspace, error) {
	var resp struct {
		Data []Workspace `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/workspaces", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	return resp.Data, nil
}

// User is an Asana user reference.
type User struct {
	GID   string `json:"gid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// FindUserByEmail resolves a workspace user by email. Returns
// domain.ErrNotFound when no user matches.
func (c *Client) FindUserByEmail(ctx context.Context, workspaceGID, email string) (*User, error) {
	path := fmt.Sprintf("/workspaces/%s/users?opt_fields=name,email", url.PathEscape(workspaceGID))
	var resp struct {
		Data []User `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	for i := range resp.Data {
		if resp.Data[i].Email == email {
			return &resp.Data[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no user with email %s", domain.ErrNotFound, email)
}

// Webhook is an established Asana webhook.
type Webhook struct {
	GID      string `json:"gid"`
	Target   string `json:"target"`
	Active   bool   `json:"active"`
	Resource struct {
		GID string `json:"gid"`
	} `json:"resource"`
}

// ListWebhooks lists the webhooks registered in a workspace.
func (c *Client) ListWebhooks(ctx context.Context, workspaceGID string) ([]Webhook, error) {
	path := "/webhooks?workspace=" + url.QueryEscape(workspaceGID)
	var resp struct {
		Data []Webhook `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	return resp.Data, nil
}

// CreateWebhook registers a webhook on a resource (usually a project)
// pointing at the bridge's Asana endpoint. Asana performs the
// X-Hook-Secret handshake against the target before this call returns.
func (c *Client) CreateWebhook(ctx context.Context, resourceGID, targetURL string) (*Webhook, error) {
	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"resource": resourceGID,
			"target":   targetURL,
		},
	}
	var resp struct {
		Data Webhook `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/webhooks", payload, &resp); err != nil {
		return nil, fmt.Errorf("failed to create webhook for %s: %w", resourceGID, err)
	}
	fmt.Printf("[Asana] Created webhook %s for resource %s\n", resp.Data.GID, resourceGID)
	return &resp.Data, nil
}
