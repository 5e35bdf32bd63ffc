// Package remote calls an external validation endpoint. The caller
// treats any failure, timeout included, as ErrUnavailable and falls
// back to local validation; a slow or broken endpoint must never block
// or break message handling.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout caps one remote check end to end.
const DefaultTimeout = 5 * time.Second

const maxResponseBytes = 1 << 20

// ErrUnavailable reports that the endpoint could not produce a
// verdict. It is internal to validation and never surfaces to callers
// of the validator.
var ErrUnavailable = errors.New("remote validation unavailable")

// Request is the payload sent to the endpoint.
type Request struct {
	Input   string  `json:"input"`
	Context Context `json:"context"`
}

// Context carries the client attributes the endpoint scores on.
// Timestamp is milliseconds since the Unix epoch.
type Context struct {
	Identity          string `json:"identity"`
	Timestamp         int64  `json:"timestamp"`
	ClientFingerprint string `json:"clientFingerprint,omitempty"`
	UserAgent         string `json:"userAgent,omitempty"`
	Origin            string `json:"origin,omitempty"`
}

// Verdict is the endpoint's decision.
type Verdict struct {
	IsValid        bool   `json:"isValid"`
	SanitizedInput string `json:"sanitizedInput,omitempty"`
	Reason         string `json:"reason,omitempty"`
	ThreatLevel    string `json:"threatLevel,omitempty"`
}

// Client posts validation requests to one endpoint.
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient builds a client. A non-positive timeout falls back to
// DefaultTimeout.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Check posts req and returns the endpoint's verdict. Transport
// errors, timeouts, non-2xx statuses, and undecodable bodies all
// come back wrapped in ErrUnavailable.
func (c *Client) Check(ctx context.Context, req Request) (*Verdict, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", ErrUnavailable, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var verdict Verdict
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&verdict); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}
	return &verdict, nil
}
