// Package client talks to the chat-room HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Participant struct {
	Name       string `json:"name"`
	LastStatus int64  `json:"lastStatus"`
}

type Message struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
	Type string `json:"type"`
	Time string `json:"time"`
}

// APIError is returned for every non 2xx answer.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// Client acts on behalf of one user.
type Client struct {
	baseURL string
	user    string
	http    *http.Client
}

func New(baseURL, user string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), user: user, http: httpClient}
}

func (c *Client) User() string { return c.user }

func (c *Client) Join(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/participants", map[string]string{"name": c.user}, nil)
}

func (c *Client) Heartbeat(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/status", nil, nil)
}

func (c *Client) Participants(ctx context.Context) ([]Participant, error) {
	var participants []Participant
	err := c.do(ctx, http.MethodGet, "/participants", nil, &participants)
	return participants, err
}

func (c *Client) Send(ctx context.Context, to, text string, private bool) error {
	messageType := "message"
	if private {
		messageType = "private_message"
	}
	return c.do(ctx, http.MethodPost, "/messages", map[string]string{"to": to, "text": text, "type": messageType}, nil)
}

// Messages lists what the user can read, limit 0 meaning everything.
func (c *Client) Messages(ctx context.Context, limit int) ([]Message, error) {
	path := "/messages"
	if limit != 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var messages []Message
	err := c.do(ctx, http.MethodGet, path, nil, &messages)
	return messages, err
}

func (c *Client) Update(ctx context.Context, id, to, text, messageType string) (Message, error) {
	var updated Message
	err := c.do(ctx, http.MethodPut, "/messages/"+url.PathEscape(id),
		map[string]string{"to": to, "text": text, "type": messageType}, &updated)
	return updated, err
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/messages/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.user != "" {
		req.Header.Set("user", c.user)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
