// Package api provides a raw HTTP client for the OfSpectrum API.
//
// Unlike a production client, this one deliberately performs no retries,
// no backoff, and no caching: the harness asserts on the outcome of a
// single request, including non-2xx status codes. Only transport
// failures surface as errors.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ofspectrum/apicheck/internal/output"
	"github.com/ofspectrum/apicheck/internal/version"
)

// Client is a single-attempt HTTP client for the OfSpectrum API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	verbose    bool
}

// Response wraps an API response. Body is fully read and the connection
// released before Response is returned.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// UnmarshalData unmarshals the response body into the given value.
func (r *Response) UnmarshalData(v any) error {
	return json.Unmarshal(r.Body, v)
}

// ContentType returns the response Content-Type header.
func (r *Response) ContentType() string {
	return r.Headers.Get("Content-Type")
}

// NewClient creates a new API client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// SetVerbose enables request logging for debugging.
func (c *Client) SetVerbose(v bool) {
	c.verbose = v
}

// Close releases idle connections held by the client.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Get performs a GET request with the given bearer key.
func (c *Client) Get(ctx context.Context, key, path string) (*Response, error) {
	return c.do(ctx, http.MethodGet, key, path, "", nil)
}

// Delete performs a DELETE request with the given bearer key.
func (c *Client) Delete(ctx context.Context, key, path string) (*Response, error) {
	return c.do(ctx, http.MethodDelete, key, path, "", nil)
}

// FilePart describes a file to attach to a multipart request.
type FilePart struct {
	Field       string
	Path        string
	ContentType string
}

// PostMultipart uploads a file with additional form fields.
func (c *Client) PostMultipart(ctx context.Context, key, path string, file FilePart, fields map[string]string) (*Response, error) {
	f, err := os.Open(file.Path) //nolint:gosec // G304: fixture path built by the harness
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file.Path, err)
	}
	defer f.Close()

	var buf strings.Builder
	mw := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}

	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, filepath.Base(file.Path))}
	ct := file.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	hdr["Content-Type"] = []string{ct}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	return c.do(ctx, http.MethodPost, key, path, mw.FormDataContentType(), strings.NewReader(buf.String()))
}

func (c *Client) do(ctx context.Context, method, key, path, contentType string, body io.Reader) (*Response, error) {
	url := c.buildURL(path)

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("User-Agent", version.UserAgent())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if c.verbose {
		fmt.Fprintf(os.Stderr, "[apicheck] %s %s\n", method, url)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, output.ErrNetwork(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if c.verbose {
		fmt.Fprintf(os.Stderr, "[apicheck] HTTP %d (%d bytes)\n", resp.StatusCode, len(respBody))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}, nil
}

func (c *Client) buildURL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}
