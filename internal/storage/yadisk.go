package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"photobak/internal/photobak"
)

const (
	// DefaultYaDiskAPIURL is the Yandex Disk REST API root.
	DefaultYaDiskAPIURL = "https://cloud-api.yandex.net/v1/disk"

	defaultPollInterval = time.Second
)

// YaDiskStorage is a Yandex Disk implementation of the Storage interface
// built on the public REST API.
type YaDiskStorage struct {
	name         string
	baseURL      string
	token        string
	client       *http.Client
	pollInterval time.Duration
}

// YaDiskOption customizes a YaDiskStorage.
type YaDiskOption func(*YaDiskStorage)

// WithHTTPClient replaces the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) YaDiskOption {
	return func(s *YaDiskStorage) { s.client = c }
}

// WithPollInterval sets how often a pending async operation is checked.
func WithPollInterval(d time.Duration) YaDiskOption {
	return func(s *YaDiskStorage) { s.pollInterval = d }
}

// NewYaDiskStorage creates a Yandex Disk storage using an OAuth token.
// An empty baseURL selects DefaultYaDiskAPIURL.
func NewYaDiskStorage(name, baseURL, token string, opts ...YaDiskOption) *YaDiskStorage {
	if baseURL == "" {
		baseURL = DefaultYaDiskAPIURL
	}
	s := &YaDiskStorage{
		name:         name,
		baseURL:      strings.TrimRight(baseURL, "/"),
		token:        token,
		client:       &http.Client{Timeout: 5 * time.Minute},
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// yaDiskError is the error body returned by the API.
type yaDiskError struct {
	StatusCode  int    `json:"-"`
	Message     string `json:"message"`
	Description string `json:"description"`
	Code        string `json:"error"`
}

func (e *yaDiskError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("yandex disk: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("yandex disk: HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// link is the body of responses that point at another URL.
type link struct {
	Href   string `json:"href"`
	Method string `json:"method"`
}

func (s *YaDiskStorage) endpoint(resource string, params url.Values) string {
	return s.baseURL + resource + "?" + params.Encode()
}

// do sends an authorized request and returns the response.
// The caller closes the body.
func (s *YaDiskStorage) do(ctx context.Context, method, rawURL string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+s.token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", method, err)
	}
	return resp, nil
}

// apiError reads an error body out of resp.
func apiError(resp *http.Response) error {
	e := &yaDiskError{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(data, e)
	return e
}

// Status queries GET /resources. 200 is present, 404 absent, anything else
// an error.
func (s *YaDiskStorage) Status(ctx context.Context, p string) photobak.PathStatus {
	params := url.Values{"path": {p}, "fields": {"type"}}
	resp, err := s.do(ctx, http.MethodGet, s.endpoint("/resources", params), nil)
	if err != nil {
		return photobak.Failed(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return photobak.Present()
	case http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return photobak.Absent()
	default:
		return photobak.Failed(apiError(resp))
	}
}

// CreateFolder issues PUT /resources.
func (s *YaDiskStorage) CreateFolder(ctx context.Context, p string) error {
	resp, err := s.do(ctx, http.MethodPut, s.endpoint("/resources", url.Values{"path": {p}}), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return apiError(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// MoveFolder issues POST /resources/move without overwrite. When the API
// answers 202 the move runs asynchronously and is polled until it finishes.
func (s *YaDiskStorage) MoveFolder(ctx context.Context, from, to string) error {
	params := url.Values{"from": {from}, "path": {to}, "overwrite": {"false"}}
	resp, err := s.do(ctx, http.MethodPost, s.endpoint("/resources/move", params), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		io.Copy(io.Discard, resp.Body)
		return nil
	case http.StatusAccepted:
		var op link
		if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
			return fmt.Errorf("decoding move operation: %w", err)
		}
		return s.waitOperation(ctx, op.Href)
	default:
		return apiError(resp)
	}
}

// waitOperation polls an async operation until it succeeds or fails.
func (s *YaDiskStorage) waitOperation(ctx context.Context, href string) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		status, err := s.operationStatus(ctx, href)
		if err != nil {
			return err
		}
		switch status {
		case "success":
			return nil
		case "failed":
			return fmt.Errorf("yandex disk: operation failed: %s", href)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *YaDiskStorage) operationStatus(ctx context.Context, href string) (string, error) {
	resp, err := s.do(ctx, http.MethodGet, href, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding operation status: %w", err)
	}
	return body.Status, nil
}

// UploadFile requests an upload link with overwrite enabled and PUTs the
// content to it.
func (s *YaDiskStorage) UploadFile(ctx context.Context, p string, r io.Reader, size int64) error {
	params := url.Values{"path": {p}, "overwrite": {"true"}}
	resp, err := s.do(ctx, http.MethodGet, s.endpoint("/resources/upload", params), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	var target link
	if err := json.NewDecoder(resp.Body).Decode(&target); err != nil {
		return fmt.Errorf("decoding upload link: %w", err)
	}

	method := target.Method
	if method == "" {
		method = http.MethodPut
	}
	req, err := http.NewRequestWithContext(ctx, method, target.Href, r)
	if err != nil {
		return fmt.Errorf("building upload request: %w", err)
	}
	req.ContentLength = size

	up, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	defer up.Body.Close()

	switch up.StatusCode {
	case http.StatusCreated, http.StatusAccepted, http.StatusOK:
		io.Copy(io.Discard, up.Body)
		return nil
	default:
		return apiError(up)
	}
}

// ValidateSetup fetches the disk information to check the token.
func (s *YaDiskStorage) ValidateSetup(ctx context.Context) error {
	resp, err := s.do(ctx, http.MethodGet, s.baseURL+"/", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// Compile-time check that YaDiskStorage implements photobak.Storage interface
var _ photobak.Storage = (*YaDiskStorage)(nil)
