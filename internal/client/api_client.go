package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"taskflow/internal/domain"
	"taskflow/internal/dto"
)

const requestTimeout = 10 * time.Second

// APIClient is a thin typed wrapper over the server REST API. Every call is
// bounded by a timeout; a timed-out call is reported as a network failure
// because the write may or may not have landed.
type APIClient struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ API = (*APIClient)(nil)

// NewAPIClient creates a client for the API at baseURL, e.g.
// "http://localhost:8080/api".
func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// GetBoardDetail fetches the full board snapshot
func (c *APIClient) GetBoardDetail(ctx context.Context, boardID string) (*dto.BoardDetailResponse, error) {
	var out dto.BoardDetailResponse
	if err := c.do(ctx, http.MethodGet, "/boards/"+boardID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTask creates a task and returns the server record with its real id
func (c *APIClient) CreateTask(ctx context.Context, req *dto.CreateTaskRequest) (*domain.Task, error) {
	var out domain.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTask updates task attributes
func (c *APIClient) UpdateTask(ctx context.Context, taskID string, req *dto.UpdateTaskRequest) (*domain.Task, error) {
	var out domain.Task
	if err := c.do(ctx, http.MethodPut, "/tasks/"+taskID, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MoveTask moves a task between or within columns
func (c *APIClient) MoveTask(ctx context.Context, taskID string, req *dto.MoveTaskRequest) (*domain.Task, error) {
	var out domain.Task
	if err := c.do(ctx, http.MethodPost, "/tasks/"+taskID+"/move", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTask deletes a task
func (c *APIClient) DeleteTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+taskID, nil, nil)
}

// UpdateBoard updates board attributes
func (c *APIClient) UpdateBoard(ctx context.Context, boardID string, req *dto.UpdateBoardRequest) (*domain.Board, error) {
	var out domain.Board
	if err := c.do(ctx, http.MethodPut, "/boards/"+boardID, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateComment appends a comment to a task
func (c *APIClient) CreateComment(ctx context.Context, taskID string, req *dto.CreateCommentRequest) (*domain.Comment, error) {
	var out domain.Comment
	if err := c.do(ctx, http.MethodPost, "/tasks/"+taskID+"/comments", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkNotificationRead marks one notification as read
func (c *APIClient) MarkNotificationRead(ctx context.Context, notificationID string) (*domain.Notification, error) {
	var out domain.Notification
	if err := c.do(ctx, http.MethodPost, "/notifications/"+notificationID+"/read", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListNotifications fetches the latest notifications page
func (c *APIClient) ListNotifications(ctx context.Context, unreadOnly bool) ([]*domain.Notification, error) {
	path := "/notifications?page=1&limit=50"
	if unreadOnly {
		path += "&unread=true"
	}
	var out struct {
		Notifications []*domain.Notification `json:"notifications"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Notifications, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &APIError{Kind: ErrKindValidation, Message: err.Error()}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &APIError{Kind: ErrKindValidation, Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Kind: ErrKindNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return classifyStatus(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return &APIError{Kind: ErrKindServer, Status: resp.StatusCode, Message: err.Error()}
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &APIError{Kind: ErrKindServer, Status: resp.StatusCode, Message: err.Error()}
	}
	return nil
}

func classifyStatus(resp *http.Response) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	message := resp.Status
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}

	kind := ErrKindServer
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = ErrKindNotAuthorized
	case http.StatusNotFound:
		kind = ErrKindNotFound
	case http.StatusBadRequest, http.StatusConflict:
		kind = ErrKindValidation
	}
	return &APIError{Kind: kind, Status: resp.StatusCode, Message: message}
}

// IsNetworkError reports whether err represents a transport failure
func IsNetworkError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind == ErrKindNetwork
	}
	return false
}
