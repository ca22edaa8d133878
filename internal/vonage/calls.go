package vonage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIError carries a non-success call-control response back to the caller.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vonage call control status %d: %s", e.Status, e.Body)
}

// BearerSource supplies a bearer token for the call-control API.
type BearerSource interface {
	Token() (string, error)
}

// Client drives the Vonage voice call-control API.
type Client struct {
	baseURL string
	tokens  BearerSource
	client  *http.Client
}

func NewClient(baseURL string, tokens BearerSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		tokens:  tokens,
		client:  &http.Client{Timeout: timeout},
	}
}

type streamRequest struct {
	StreamURL []string `json:"stream_url"`
	Loop      int      `json:"loop"`
}

// Play instructs the provider to stream audioURL into the live call leg,
// once. The provider signals success with 204; any other status is returned
// as an *APIError, never a panic.
func (c *Client) Play(ctx context.Context, callUUID, audioURL string) error {
	token, err := c.tokens.Token()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(streamRequest{StreamURL: []string{audioURL}, Loop: 1})
	if err != nil {
		return fmt.Errorf("marshal stream request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/calls/%s/stream", c.baseURL, callUUID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create stream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send stream request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return &APIError{Status: res.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return nil
}
