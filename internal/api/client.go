package api

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

// Client talks to a running daemon over its HTTP API. It is what the CLI
// commands use; the zero value is not usable, construct with NewClient.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the daemon bound at addr (host:port or a
// full http URL).
func NewClient(addr string) *Client {
	base := strings.TrimSpace(addr)
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var payload DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Submit enqueues one conversion and returns the pending job.
func (c *Client) Submit(ctx context.Context, sourceURL string) (*JobPayload, error) {
	var payload JobResponse
	if err := c.do(ctx, http.MethodPost, "/api/jobs", SubmitRequest{URL: sourceURL}, &payload); err != nil {
		return nil, err
	}
	return &payload.Job, nil
}

// SubmitBulk enqueues a batch of conversions all-or-nothing.
func (c *Client) SubmitBulk(ctx context.Context, sourceURLs []string) ([]JobPayload, error) {
	var payload JobListResponse
	if err := c.do(ctx, http.MethodPost, "/api/jobs/bulk", BulkSubmitRequest{URLs: sourceURLs}, &payload); err != nil {
		return nil, err
	}
	return payload.Jobs, nil
}

// ListJobs fetches jobs newest first, optionally filtered by status.
func (c *Client) ListJobs(ctx context.Context, statuses ...string) ([]JobPayload, error) {
	path := "/api/jobs"
	if len(statuses) > 0 {
		query := url.Values{}
		for _, status := range statuses {
			query.Add("status", status)
		}
		path += "?" + query.Encode()
	}
	var payload JobListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Jobs, nil
}

// GetJob fetches one job. A missing job returns a nil payload.
func (c *Client) GetJob(ctx context.Context, id int64) (*JobPayload, error) {
	var payload JobResponse
	err := c.do(ctx, http.MethodGet, "/api/jobs/"+strconv.FormatInt(id, 10), nil, &payload)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payload.Job, nil
}

// DeleteJob removes a job and its artifact. Reports whether a job existed.
func (c *Client) DeleteJob(ctx context.Context, id int64) (bool, error) {
	err := c.do(ctx, http.MethodDelete, "/api/jobs/"+strconv.FormatInt(id, 10), nil, nil)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Download streams the artifact of one completed job. The caller owns the
// returned body.
func (c *Client) Download(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	resp, err := c.open(ctx, "/api/jobs/"+strconv.FormatInt(id, 10)+"/download")
	if err != nil {
		return nil, "", err
	}
	return resp.Body, fileNameFromDisposition(resp.Header.Get("Content-Disposition")), nil
}

// DownloadBundle streams a ZIP archive of the completed artifacts among ids.
func (c *Client) DownloadBundle(ctx context.Context, ids []int64) (io.ReadCloser, string, error) {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	resp, err := c.open(ctx, "/api/download?ids="+strings.Join(parts, ","))
	if err != nil {
		return nil, "", err
	}
	return resp.Body, fileNameFromDisposition(resp.Header.Get("Content-Disposition")), nil
}

func (c *Client) open(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("daemon unreachable: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return resp, nil
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
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// StatusError reports a non-2xx daemon response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Code)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	statusErr, ok := err.(*StatusError)
	return ok && statusErr.Code == code
}

func statusError(resp *http.Response) error {
	var payload ErrorResponse
	message := ""
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&payload); err == nil {
		message = payload.Error
	}
	return &StatusError{Code: resp.StatusCode, Message: message}
}

func fileNameFromDisposition(header string) string {
	const marker = `filename="`
	idx := strings.Index(header, marker)
	if idx < 0 {
		return ""
	}
	rest := header[idx+len(marker):]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return ""
	}
	return rest[:end]
}
