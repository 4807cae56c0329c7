package vk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"photobak/internal/config"
	"photobak/internal/photobak"
)

const (
	DefaultAPIURL     = "https://api.vk.com/method/"
	DefaultAPIVersion = "5.131"
	DefaultAlbum      = "profile"

	// pageSize is the largest count photos.get accepts.
	pageSize = 1000

	// errInvalidUserID is returned by users.get for unknown handles.
	errInvalidUserID = 113
)

// Client talks to the VK API. It resolves identities with users.get and
// lists photos with photos.get.
type Client struct {
	baseURL    string
	token      string
	version    string
	album      string
	limit      int
	loc        *time.Location
	httpClient *http.Client
	logger     photobak.Logger
}

// NewClient creates a VK client from the source configuration and the access
// token loaded at startup.
func NewClient(cfg config.SourceConfig, token string, logger photobak.Logger) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty vk token", photobak.ErrConfiguration)
	}

	loc := time.Local
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("%w: loading timezone %q: %v", photobak.ErrConfiguration, cfg.Timezone, err)
		}
		loc = l
	}

	c := &Client{
		baseURL:    cfg.APIURL,
		token:      token,
		version:    cfg.APIVersion,
		album:      cfg.Album,
		limit:      cfg.Limit,
		loc:        loc,
		httpClient: &http.Client{Timeout: time.Minute},
		logger:     logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultAPIURL
	}
	if !strings.HasSuffix(c.baseURL, "/") {
		c.baseURL += "/"
	}
	if c.version == "" {
		c.version = DefaultAPIVersion
	}
	if c.album == "" {
		c.album = DefaultAlbum
	}
	return c, nil
}

// apiError is the error object of a VK API response.
type apiError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("vk api error %d: %s", e.Code, e.Message)
}

// call performs a VK API method and decodes its "response" field into out.
func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	params.Set("access_token", c.token)
	params.Set("v", c.version)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+method+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("building %s request: %w", method, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &photobak.BackendError{Op: method, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &photobak.BackendError{Op: method, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	var envelope struct {
		Response json.RawMessage `json:"response"`
		Error    *apiError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return &photobak.BackendError{Op: method, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if err := json.Unmarshal(envelope.Response, out); err != nil {
		return &photobak.BackendError{Op: method, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// ResolveIdentity accepts a numeric id or a screen name.
func (c *Client) ResolveIdentity(ctx context.Context, handle string) (photobak.Identity, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return "", fmt.Errorf("%w: empty handle", photobak.ErrIdentityNotFound)
	}

	var users []struct {
		ID int64 `json:"id"`
	}
	err := c.call(ctx, "users.get", url.Values{"user_ids": {handle}}, &users)
	if err != nil {
		var e *apiError
		if errors.As(err, &e) {
			if e.Code == errInvalidUserID {
				return "", fmt.Errorf("%w: %s", photobak.ErrIdentityNotFound, handle)
			}
			return "", &photobak.BackendError{Op: "users.get", Err: e}
		}
		return "", err
	}
	if len(users) == 0 {
		return "", fmt.Errorf("%w: %s", photobak.ErrIdentityNotFound, handle)
	}

	id := photobak.Identity(strconv.FormatInt(users[0].ID, 10))
	c.logger.Debug("vk user resolved", "handle", handle, "id", id.String())
	return id, nil
}

type photo struct {
	ID    int64 `json:"id"`
	Date  int64 `json:"date"`
	Likes struct {
		Count int `json:"count"`
	} `json:"likes"`
	Sizes []struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"sizes"`
}

// ListAssets pages through photos.get until every photo (or the configured
// limit) has been read.
func (c *Client) ListAssets(ctx context.Context, id photobak.Identity, order photobak.Order) ([]photobak.PhotoAsset, error) {
	rev := "0"
	if order == photobak.OrderReverseChronological {
		rev = "1"
	}

	var assets []photobak.PhotoAsset
	for offset := 0; ; {
		count := pageSize
		if c.limit > 0 {
			count = min(pageSize, c.limit-len(assets))
		}

		var page struct {
			Count int     `json:"count"`
			Items []photo `json:"items"`
		}
		params := url.Values{
			"owner_id":    {id.String()},
			"album_id":    {c.album},
			"rev":         {rev},
			"extended":    {"1"},
			"photo_sizes": {"0"},
			"offset":      {strconv.Itoa(offset)},
			"count":       {strconv.Itoa(count)},
		}
		if err := c.call(ctx, "photos.get", params, &page); err != nil {
			var e *apiError
			if errors.As(err, &e) {
				return nil, &photobak.BackendError{Op: "photos.get", Err: e}
			}
			return nil, err
		}

		for _, p := range page.Items {
			assets = append(assets, c.toAsset(p))
		}
		offset += len(page.Items)

		if len(page.Items) == 0 || offset >= page.Count {
			break
		}
		if c.limit > 0 && len(assets) >= c.limit {
			break
		}
	}

	c.logger.Debug("vk photos listed", "id", id.String(), "count", len(assets))
	return assets, nil
}

func (c *Client) toAsset(p photo) photobak.PhotoAsset {
	sizes := make([]photobak.SizeVariant, len(p.Sizes))
	for i, s := range p.Sizes {
		sizes[i] = photobak.SizeVariant{Type: s.Type, URL: s.URL}
	}
	return photobak.PhotoAsset{
		ID:        strconv.FormatInt(p.ID, 10),
		Likes:     p.Likes.Count,
		CreatedAt: time.Unix(p.Date, 0).In(c.loc),
		Sizes:     sizes,
	}
}

var _ photobak.PhotoSource = (*Client)(nil)
