// Package client talks to the message backend over its REST contract.
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

	"chatwidget/internal/model"
)

// ErrRequestFailed covers both transport failures and non-2xx answers.
var ErrRequestFailed = errors.New("request failed")

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// New returns a client for baseURL. The default HTTP client has no timeout
// and requests are never retried.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type contentBody struct {
	Content string `json:"content"`
}

func (c *Client) ListMessages(ctx context.Context) ([]model.Message, error) {
	var messages []model.Message
	if err := c.do(ctx, http.MethodGet, "/messages", nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// CreateMessage returns every message the server answered with, in order.
func (c *Client) CreateMessage(ctx context.Context, content string) ([]model.Message, error) {
	var messages []model.Message
	if err := c.do(ctx, http.MethodPost, "/messages", contentBody{Content: content}, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *Client) UpdateMessage(ctx context.Context, id uint, content string) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/messages/%d", id), contentBody{Content: content}, nil)
}

func (c *Client) DeleteMessage(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/messages/%d", id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: marshal %s %s body: %v", ErrRequestFailed, method, path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: build %s %s: %v", ErrRequestFailed, method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrRequestFailed, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s response: %v", ErrRequestFailed, method, path, err)
	}
	return nil
}

// StatusError is returned for non-2xx responses. It matches ErrRequestFailed
// under errors.Is.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("request failed: %s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("request failed: %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrRequestFailed
}
