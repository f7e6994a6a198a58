// Package client is the Go client for the strand API: a thin HTTP wrapper
// plus a Session that keeps a local optimistic cache reconciled against the
// server.
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
	"time"

	"github.com/google/uuid"

	"github.com/strandhq/strand/internal/apperr"
	"github.com/strandhq/strand/internal/models"
)

// Client calls the REST surface. It is safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New builds a client for the given base URL ("http://localhost:8081")
// authenticating with the given bearer token.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type createMessageRequest struct {
	ChannelID uuid.UUID `json:"channel_id"`
	Content   string    `json:"content"`
	ImageURL  *string   `json:"image_url,omitempty"`
	ThreadID  *int64    `json:"thread_id,omitempty"`
}

// CreateMessage posts a new message (or thread reply when threadID is set)
// and returns the canonical server record.
func (c *Client) CreateMessage(ctx context.Context, channelID uuid.UUID, content string, imageURL *string, threadID *int64) (*models.Message, error) {
	var msg models.Message
	err := c.do(ctx, http.MethodPost, "/v1/messages", createMessageRequest{
		ChannelID: channelID,
		Content:   content,
		ImageURL:  imageURL,
		ThreadID:  threadID,
	}, &msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages fetches one page of a channel's top-level messages. cursor ""
// means the first (newest) page.
func (c *Client) ListMessages(ctx context.Context, channelID uuid.UUID, cursor string, limit int) (*models.MessagePage, error) {
	q := url.Values{}
	q.Set("channel_id", channelID.String())
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var page models.MessagePage
	if err := c.do(ctx, http.MethodGet, "/v1/messages?"+q.Encode(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// UpdateMessage replaces a message's content (author only).
func (c *Client) UpdateMessage(ctx context.Context, messageID int64, content string) (*models.Message, error) {
	var msg models.Message
	err := c.do(ctx, http.MethodPut,
		fmt.Sprintf("/v1/messages/%d", messageID),
		map[string]string{"content": content}, &msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetThread resolves a thread: the root message and its replies.
func (c *Client) GetThread(ctx context.Context, rootID int64) (*models.ThreadView, error) {
	var view models.ThreadView
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/messages/%d/thread", rootID), nil, &view)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ToggleReaction flips the caller's emoji reaction on a message and returns
// the recomputed aggregate.
func (c *Client) ToggleReaction(ctx context.Context, messageID int64, emoji string) (*models.ReactionUpdate, error) {
	var update models.ReactionUpdate
	err := c.do(ctx, http.MethodPost,
		fmt.Sprintf("/v1/messages/%d/reactions", messageID),
		map[string]string{"emoji": emoji}, &update)
	if err != nil {
		return nil, err
	}
	return &update, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// statusError maps an HTTP failure back into the engine's error kinds so
// callers branch on apperr.KindOf rather than status codes. Rate limits
// propagate verbatim.
func statusError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return apperr.New(apperr.KindNotFound, msg)
	case http.StatusForbidden:
		return apperr.New(apperr.KindForbidden, msg)
	case http.StatusBadRequest:
		return apperr.New(apperr.KindInvalidThreadTarget, msg)
	case http.StatusTooManyRequests:
		return apperr.New(apperr.KindRateLimited, msg)
	default:
		return apperr.New(apperr.KindInternal, msg)
	}
}
