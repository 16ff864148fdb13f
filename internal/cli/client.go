package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charliek/revive/internal/api"
	"github.com/charliek/revive/internal/constants"
)

// Client is an HTTP client for the revive API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new API client. The token comes from REVIVE_API_TOKEN
// or, failing that, the token file written by the daemon.
func NewClient(baseURL string) *Client {
	token := strings.TrimSpace(os.Getenv(constants.EnvAPIToken))
	if token == "" {
		token, _ = loadToken() // token may not exist when auth is off
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			// provider calls behind PUT /target can take the full request timeout
			Timeout: constants.DefaultRequestTimeout + 5*time.Second,
		},
	}
}

// GetStatus gets the watchdog status
func (c *Client) GetStatus() (*api.StatusResponse, error) {
	var resp api.StatusResponse
	if err := c.do(http.MethodGet, "/api/v1/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Watch registers serverID as the monitored target
func (c *Client) Watch(serverID string) (*api.TargetResponse, error) {
	var resp api.TargetResponse
	if err := c.do(http.MethodPut, "/api/v1/target", api.WatchRequest{ServerID: serverID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Unwatch clears the monitored target
func (c *Client) Unwatch() error {
	var resp api.SuccessResponse
	return c.do(http.MethodDelete, "/api/v1/target", nil, &resp)
}

// Recover starts a manual recovery and returns its run id
func (c *Client) Recover(reason string) (string, error) {
	var resp api.RecoverResponse
	if err := c.do(http.MethodPost, "/api/v1/recover", api.RecoverRequest{Reason: reason}, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// Shutdown stops the daemon
func (c *Client) Shutdown() error {
	var resp api.SuccessResponse
	return c.do(http.MethodPost, "/api/v1/shutdown", nil, &resp)
}

// EventParams contains parameters for event queries
type EventParams struct {
	Limit   int
	Types   []string
	Pattern string
	Regex   bool
}

func (p EventParams) query(withLimit bool) string {
	query := url.Values{}
	if withLimit && p.Limit > 0 {
		query.Set("limit", strconv.Itoa(p.Limit))
	}
	if len(p.Types) > 0 {
		query.Set("type", strings.Join(p.Types, ","))
	}
	if p.Pattern != "" {
		query.Set("pattern", p.Pattern)
	}
	if p.Regex {
		query.Set("regex", "true")
	}
	if len(query) == 0 {
		return ""
	}
	return "?" + query.Encode()
}

// GetEvents gets journal events with optional filtering
func (c *Client) GetEvents(params EventParams) (*api.EventsResponse, error) {
	var resp api.EventsResponse
	if err := c.do(http.MethodGet, "/api/v1/events"+params.query(true), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StreamEvents calls callback for every event until ctx is cancelled or the
// server closes the stream.
func (c *Client) StreamEvents(ctx context.Context, params EventParams, callback func(api.EventResponse)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/events/stream"+params.query(false), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	c.addAuthHeader(req)

	// the stream has no deadline; ctx ends it
	streamClient := *c.httpClient
	streamClient.Timeout = 0

	resp, err := streamClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}

		var event api.EventResponse
		if err := json.Unmarshal([]byte(data), &event); err == nil {
			callback(event)
		}
	}
}

func (c *Client) do(method, path string, body, v any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.addAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

// APIError is an error response from the daemon
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var errResp api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
		apiErr.Code = errResp.Code
		apiErr.Message = errResp.Error
	}
	return apiErr
}

// addAuthHeader adds the Authorization header if a token is available
func (c *Client) addAuthHeader(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// RecentEvents returns the last limit events, oldest first
func (c *Client) RecentEvents(limit int) ([]api.EventResponse, error) {
	resp, err := c.GetEvents(EventParams{Limit: limit})
	if err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// FollowEvents streams every new event until ctx is cancelled
func (c *Client) FollowEvents(ctx context.Context, callback func(api.EventResponse)) error {
	return c.StreamEvents(ctx, EventParams{}, callback)
}
