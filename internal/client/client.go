// Package client is a typed HTTP client for the task manager API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BuzzLyutic/secure-task-manager/internal/model"
)

// APIError is returned for every non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// SetToken sets the bearer token sent with task requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) Register(ctx context.Context, username, email, password string) (int64, error) {
	var resp struct {
		Message string `json:"message"`
		UserID  int64  `json:"userId"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &resp)
	return resp.UserID, err
}

// Login authenticates and returns a session holding the token and the public profile.
// The client keeps using the new token afterwards.
func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	var resp struct {
		Token    string `json:"token"`
		UserID   int64  `json:"userId"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	if err != nil {
		return Session{}, err
	}

	c.token = resp.Token
	return Session{
		Token: resp.Token,
		User:  model.Identity{UserID: resp.UserID, Username: resp.Username, Email: resp.Email},
	}, nil
}

func (c *Client) ListTasks(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &tasks)
	return tasks, err
}

func (c *Client) GetTask(ctx context.Context, id int64) (model.Task, error) {
	var task model.Task
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/tasks/%d", id), nil, &task)
	return task, err
}

func (c *Client) CreateTask(ctx context.Context, title, description string) (model.Task, error) {
	var task model.Task
	err := c.do(ctx, http.MethodPost, "/api/tasks", map[string]string{
		"title":       title,
		"description": description,
	}, &task)
	return task, err
}

func (c *Client) UpdateTask(ctx context.Context, id int64, title, description string, isCompleted bool) (model.Task, error) {
	var task model.Task
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/tasks/%d", id), map[string]any{
		"title":       title,
		"description": description,
		"isCompleted": isCompleted,
	}, &task)
	return task, err
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
