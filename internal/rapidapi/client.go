package rapidapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultHost    = "instagram-reels-downloader-api.p.rapidapi.com"
	defaultTimeout = 20 * time.Second
)

// ErrNoVideo is returned when the API answered but listed no video media.
var ErrNoVideo = errors.New("rapidapi: no video in response")

// StatusError is a non-200 answer from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rapidapi: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the Instagram Reels Downloader API on RapidAPI.
type Client struct {
	baseURL string
	host    string
	key     string
	http    *http.Client
}

type Options struct {
	Key  string
	Host string
	// BaseURL overrides https://<Host>, mainly for tests.
	BaseURL string
	// ProxyURL routes requests through an HTTP proxy.
	ProxyURL string
}

func NewClient(opts Options) (*Client, error) {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = DefaultHost
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://" + host
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if p := strings.TrimSpace(opts.ProxyURL); p != "" {
		proxy, err := url.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("rapidapi: parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	return &Client{
		baseURL: baseURL,
		host:    host,
		key:     strings.TrimSpace(opts.Key),
		http: &http.Client{
			Timeout:   defaultTimeout,
			Transport: transport,
		},
	}, nil
}

type Media struct {
	Type      string `json:"type"`
	URL       string `json:"url"`
	Extension string `json:"extension"`
	Quality   string `json:"quality"`
}

type DownloadResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Title  string  `json:"title"`
		Medias []Media `json:"medias"`
	} `json:"data"`
}

// Video returns the first video media of the response.
func (r *DownloadResponse) Video() (Media, bool) {
	for _, m := range r.Data.Medias {
		if m.Type == "video" && strings.TrimSpace(m.URL) != "" {
			return m, true
		}
	}
	return Media{}, false
}

// Download asks the API for the media behind postURL.
func (c *Client) Download(ctx context.Context, postURL string) (*DownloadResponse, error) {
	postURL = strings.TrimSpace(postURL)
	if postURL == "" {
		return nil, fmt.Errorf("rapidapi: url is required")
	}

	u, err := url.Parse(c.baseURL + "/download")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("url", postURL)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-rapidapi-host", c.host)
	req.Header.Set("x-rapidapi-key", c.key)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out DownloadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("rapidapi: decode response: %w", err)
	}
	return &out, nil
}

// VideoURL resolves postURL to a direct video URL.
func (c *Client) VideoURL(ctx context.Context, postURL string) (Media, error) {
	resp, err := c.Download(ctx, postURL)
	if err != nil {
		return Media{}, err
	}
	m, ok := resp.Video()
	if !ok {
		return Media{}, ErrNoVideo
	}
	return m, nil
}
