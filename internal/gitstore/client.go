package gitstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

const defaultTimeout = 8 * time.Second

// ClientOptions controls how the GitHub-backed store client is initialised.
type ClientOptions struct {
	Token      string
	Repo       string // "owner/name"
	Branch     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logrus.Logger
}

// Client implements Store on top of the GitHub repository contents API.
type Client struct {
	httpClient *http.Client
	token      string
	repo       string
	branch     string
	baseURL    string
	timeout    time.Duration
	logger     *logrus.Logger
}

var _ Store = (*Client)(nil)

// NewClient constructs a contents-API client for the configured repository.
func NewClient(opts ClientOptions) (*Client, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, eris.New("github token is required")
	}

	repo := strings.TrimSpace(opts.Repo)
	if parts := strings.Split(repo, "/"); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, eris.Errorf("repository must be owner/name, got %q", opts.Repo)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	branch := strings.TrimSpace(opts.Branch)
	if branch == "" {
		branch = "main"
	}

	return &Client{
		httpClient: httpClient,
		token:      opts.Token,
		repo:       repo,
		branch:     branch,
		baseURL:    baseURL,
		timeout:    timeout,
		logger:     opts.Logger,
	}, nil
}

type contentsResponse struct {
	Content string `json:"content"`
	SHA     string `json:"sha"`
}

type writeRequest struct {
	Message string `json:"message"`
	Content string `json:"content,omitempty"`
	Branch  string `json:"branch,omitempty"`
	SHA     string `json:"sha,omitempty"`
}

// Read fetches the file at path together with its current revision token.
func (c *Client) Read(ctx context.Context, path string) (*File, error) {
	endpoint := c.contentsURL(path) + "?ref=" + url.QueryEscape(c.branch)

	status, body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusNotFound:
		return nil, eris.Wrapf(ErrNotFound, "reading %s", path)
	case status != http.StatusOK:
		return nil, c.apiError(status, body, "reading %s", path)
	}

	var decoded contentsResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, eris.Wrapf(err, "decoding contents response for %s", path)
	}

	// The API wraps base64 payloads at 60 columns.
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(decoded.Content, "\n", ""))
	if err != nil {
		return nil, eris.Wrapf(err, "decoding base64 content for %s", path)
	}

	return &File{Content: raw, Revision: decoded.SHA}, nil
}

// Write stores content at path. An empty revision creates the file; a non-empty
// revision performs an atomic replace conditioned on that revision still being
// current, failing with ErrConflict otherwise.
func (c *Client) Write(ctx context.Context, path string, content []byte, message, revision string) error {
	payload, err := json.Marshal(writeRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  c.branch,
		SHA:     revision,
	})
	if err != nil {
		return eris.Wrapf(err, "encoding write request for %s", path)
	}

	status, body, err := c.do(ctx, http.MethodPut, c.contentsURL(path), payload)
	if err != nil {
		return err
	}

	switch status {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusConflict, http.StatusPreconditionFailed, http.StatusUnprocessableEntity:
		// 422 covers create-without-revision over an existing path.
		return eris.Wrapf(ErrConflict, "writing %s", path)
	default:
		return c.apiError(status, body, "writing %s", path)
	}
}

// Delete removes the file at path, conditioned on the supplied revision.
func (c *Client) Delete(ctx context.Context, path, message, revision string) error {
	if revision == "" {
		return eris.Errorf("deleting %s: revision is required", path)
	}

	payload, err := json.Marshal(writeRequest{
		Message: message,
		Branch:  c.branch,
		SHA:     revision,
	})
	if err != nil {
		return eris.Wrapf(err, "encoding delete request for %s", path)
	}

	status, body, err := c.do(ctx, http.MethodDelete, c.contentsURL(path), payload)
	if err != nil {
		return err
	}

	switch status {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return eris.Wrapf(ErrNotFound, "deleting %s", path)
	case http.StatusConflict, http.StatusPreconditionFailed, http.StatusUnprocessableEntity:
		return eris.Wrapf(ErrConflict, "deleting %s", path)
	default:
		return c.apiError(status, body, "deleting %s", path)
	}
}

// Ping verifies the repository is reachable with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/repos/%s", c.baseURL, c.repo)

	status, body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	if status != http.StatusOK {
		return c.apiError(status, body, "pinging repository %s", c.repo)
	}

	return nil
}

func (c *Client) contentsURL(path string) string {
	escaped := url.PathEscape(strings.TrimLeft(path, "/"))
	// Keep directory separators readable in logs and requests.
	escaped = strings.ReplaceAll(escaped, "%2F", "/")
	return fmt.Sprintf("%s/repos/%s/contents/%s", c.baseURL, c.repo, escaped)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, eris.Wrapf(err, "building %s request", method)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.WithFields(logrus.Fields{
				"method": method,
				"url":    endpoint,
				"error":  err.Error(),
			}).Error("content store request failed")
		}
		return 0, nil, eris.Wrapf(ErrUnavailable, "%s %s: %v", method, endpoint, err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return 0, nil, eris.Wrapf(ErrUnavailable, "reading response for %s %s: %v", method, endpoint, err)
	}

	return resp.StatusCode, responseBody, nil
}

func (c *Client) apiError(status int, body []byte, format string, args ...interface{}) error {
	var apiMessage struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &apiMessage)

	operation := fmt.Sprintf(format, args...)

	if c.logger != nil {
		c.logger.WithFields(logrus.Fields{
			"status":  status,
			"message": apiMessage.Message,
		}).Error(operation)
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden || status >= 500 {
		return eris.Wrapf(ErrUnavailable, "%s: status %d: %s", operation, status, apiMessage.Message)
	}

	return eris.Errorf("%s: unexpected status %d: %s", operation, status, apiMessage.Message)
}
