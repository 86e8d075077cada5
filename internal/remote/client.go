// Package remote talks to the strategy alert service over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amirphl/alertdesk/internal/alert"
	"github.com/amirphl/alertdesk/internal/utils"
	"github.com/google/uuid"
)

const (
	activePath     = "/strategy/alert"
	historicalPath = "/strategy/historical-alert"

	actionDelAlert = "del-alert"

	// SessionCookie carries the session identifier.
	SessionCookie = "TWISTED_SESSION"
	// RequestIDHeader correlates a request with server side logs.
	RequestIDHeader = "X-Request-Id"

	maxBodySize = 8 << 20
)

// Credentials are opaque values supplied by the host application.
type Credentials struct {
	Token     string
	SessionID string
}

// Header returns the credentials as request headers, for transports that
// cannot go through Client.
func (c Credentials) Header() http.Header {
	h := http.Header{}
	if c.Token != "" {
		h.Set("Authorization", "Bearer "+c.Token)
	}
	if c.SessionID != "" {
		h.Set("Cookie", (&http.Cookie{Name: SessionCookie, Value: c.SessionID}).String())
	}
	return h
}

type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
}

// RemovalResult is the application level outcome of a removal request.
type RemovalResult struct {
	Error    bool     `json:"error"`
	Messages []string `json:"messages"`
}

type listResponse struct {
	Data []json.RawMessage `json:"data"`
}

type removeRequest struct {
	MarketID string `json:"market-id"`
	AlertID  int    `json:"alert-id"`
	Action   string `json:"action"`
}

type Client struct {
	baseURL string
	creds   Credentials
	http    *http.Client
}

func NewClient(baseURL string, creds Credentials, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		http:    hc,
	}
}

// ActiveAlerts fetches the full set of active alerts. Records that fail
// validation are logged and skipped.
func (c *Client) ActiveAlerts(ctx context.Context) ([]alert.ActiveAlert, error) {
	raw, err := c.fetchList(ctx, activePath)
	if err != nil {
		return nil, err
	}
	alerts, errs := decodeList(raw, activeRecord.toAlert)
	for _, e := range errs {
		utils.GetLogger().Warnf("Remote | skipping active alert: %v", e)
	}
	return alerts, nil
}

// HistoricalAlerts fetches the server bounded list of fired alerts.
func (c *Client) HistoricalAlerts(ctx context.Context) ([]alert.HistoricalAlert, error) {
	raw, err := c.fetchList(ctx, historicalPath)
	if err != nil {
		return nil, err
	}
	alerts, errs := decodeList(raw, historicalRecord.toAlert)
	for _, e := range errs {
		utils.GetLogger().Warnf("Remote | skipping historical alert: %v", e)
	}
	return alerts, nil
}

// RemoveAlert asks the service to delete an active alert. A returned error
// means the request did not complete; an application level refusal is
// reported through RemovalResult.Error.
func (c *Client) RemoveAlert(ctx context.Context, marketID string, alertID int) (RemovalResult, error) {
	body, err := json.Marshal(removeRequest{MarketID: marketID, AlertID: alertID, Action: actionDelAlert})
	if err != nil {
		return RemovalResult{}, err
	}

	status, data, err := c.do(ctx, http.MethodDelete, activePath, body)
	if err != nil {
		return RemovalResult{}, err
	}

	var res RemovalResult
	var decodeErr error
	if len(bytes.TrimSpace(data)) > 0 {
		decodeErr = json.Unmarshal(data, &res)
	}
	switch {
	case res.Error:
		return res, nil
	case status >= 300:
		return RemovalResult{}, fmt.Errorf("remove alert %s:%d: unexpected status %d", marketID, alertID, status)
	case decodeErr != nil:
		// any other 2xx body is an acknowledgement
		return RemovalResult{}, nil
	}
	return res, nil
}

func (c *Client) fetchList(ctx context.Context, path string) ([]json.RawMessage, error) {
	status, data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %d", path, status)
	}

	var resp listResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	return resp.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}

	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.creds.Header() {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	utils.GetLogger().Debugf("Remote | %s %s -> %d (request %s)", method, path, resp.StatusCode, reqID)
	return resp.StatusCode, data, nil
}
