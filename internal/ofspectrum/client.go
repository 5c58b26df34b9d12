// Package ofspectrum is a typed client wrapper for the OfSpectrum
// audio-watermarking API: API tokens, usage quotas, watermark
// encode/decode, and watermark-note media management.
package ofspectrum

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

	"github.com/ofspectrum/apicheck/internal/version"
)

// Config holds client settings.
type Config struct {
	APIKey  string
	BaseURL string
}

// Client is the OfSpectrum API client. Create one per credential and
// release it with Close when done.
type Client struct {
	cfg        Config
	httpClient *http.Client

	tokens    *TokensService
	quotas    *QuotasService
	audio     *AudioService
	notebooks *NotebooksService
}

// New creates a client for the given configuration.
func New(cfg Config) *Client {
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
	c.tokens = &TokensService{client: c}
	c.quotas = &QuotasService{client: c}
	c.audio = &AudioService{client: c}
	c.notebooks = &NotebooksService{client: c}
	return c
}

// Tokens returns the API-token service.
func (c *Client) Tokens() *TokensService { return c.tokens }

// Quotas returns the usage-quota service.
func (c *Client) Quotas() *QuotasService { return c.quotas }

// Audio returns the watermark encode/decode service.
func (c *Client) Audio() *AudioService { return c.audio }

// Notebooks returns the watermark-note service.
func (c *Client) Notebooks() *NotebooksService { return c.notebooks }

// Close releases the underlying transport.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// getJSON performs a GET and unmarshals the body into v.
func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.send(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := c.checkResponse(resp)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &Error{Kind: KindAPI, Message: fmt.Sprintf("failed to parse response: %v", err), Cause: err}
	}
	return nil
}

// delete performs a DELETE.
func (c *Client) delete(ctx context.Context, path string) error {
	resp, err := c.send(ctx, http.MethodDelete, path, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, err = c.checkResponse(resp)
	return err
}

// filePart describes a file attached to a multipart request.
type filePart struct {
	field       string
	path        string
	contentType string
}

// postMultipart uploads a file with form fields and returns the raw
// *http.Response. The caller owns the body.
func (c *Client) postMultipart(ctx context.Context, path string, file filePart, fields map[string]string) (*http.Response, error) {
	f, err := os.Open(file.path) //nolint:gosec // G304: caller-supplied audio path
	if err != nil {
		return nil, &Error{Kind: KindValidation, Message: fmt.Sprintf("cannot open audio file: %v", err), Cause: err}
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
	hdr["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name=%q; filename=%q`, file.field, filepath.Base(file.path))}
	ct := file.contentType
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

	return c.send(ctx, http.MethodPost, path, mw.FormDataContentType(), strings.NewReader(buf.String()))
}

func (c *Client) send(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("User-Agent", version.UserAgent())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: "network error", Cause: err}
	}
	return resp, nil
}

// checkResponse reads the body and converts non-2xx statuses into
// structured errors. The response body is consumed either way.
func (c *Client) checkResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindAPI, Message: "failed to read response", Cause: err}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	return nil, statusError(resp.StatusCode, body)
}

// statusError maps an HTTP status and body to a structured error.
func statusError(status int, body []byte) *Error {
	msg := errorMessage(body)
	switch status {
	case http.StatusUnauthorized:
		if msg == "" {
			msg = "authentication failed"
		}
		return &Error{Kind: KindAuth, Message: msg, HTTPStatus: status}
	case http.StatusForbidden:
		if msg == "" {
			msg = "access denied"
		}
		return &Error{Kind: KindForbidden, Message: msg, HTTPStatus: status}
	case http.StatusNotFound:
		if msg == "" {
			msg = "resource not found"
		}
		return &Error{Kind: KindNotFound, Message: msg, HTTPStatus: status}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if msg == "" {
			msg = "request rejected by validation"
		}
		return &Error{Kind: KindValidation, Message: msg, HTTPStatus: status}
	default:
		if msg == "" {
			msg = fmt.Sprintf("request failed (HTTP %d)", status)
		}
		return &Error{Kind: KindAPI, Message: msg, HTTPStatus: status}
	}
}

// errorMessage extracts a human-readable message from an error body.
func errorMessage(body []byte) string {
	var e struct {
		Detail  string `json:"detail"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	for _, m := range []string{e.Detail, e.Error, e.Message} {
		if m != "" {
			return m
		}
	}
	return ""
}
