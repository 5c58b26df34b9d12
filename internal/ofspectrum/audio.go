package ofspectrum

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
)

// Strength bounds accepted by the encode endpoint.
const (
	MinStrength = 0.1
	MaxStrength = 2.0
)

// Metadata headers on a streamed encode response.
const (
	HeaderAudioDuration = "X-Audio-Duration"
	HeaderTokenID       = "X-Token-Id"

	// HeaderEncodingInfo must never appear on responses; it carries
	// internal watermark parameters.
	HeaderEncodingInfo = "X-Encoding-Info"
)

// AudioService performs watermark encoding and decoding.
type AudioService struct {
	client *Client
}

// EncodeRequest holds the parameters for a watermark-encode call.
type EncodeRequest struct {
	AudioPath  string
	TokenID    string
	Strength   float64
	Normalize  bool
	OutputPath string
}

// EncodeResult describes a completed encode. The watermarked audio has
// been written to the request's OutputPath.
type EncodeResult struct {
	AudioDuration float64
	TokenID       string
	OutputPath    string
	Bytes         int

	// Header carries the raw response headers for metadata inspection.
	Header http.Header
}

// Encode uploads audio and writes the watermarked result to
// req.OutputPath. Strength is validated client-side before any request
// is made.
func (s *AudioService) Encode(ctx context.Context, req EncodeRequest) (*EncodeResult, error) {
	if req.Strength < MinStrength || req.Strength > MaxStrength {
		return nil, &Error{
			Kind:    KindValidation,
			Message: fmt.Sprintf("strength must be between %.1f and %.1f, got %g", MinStrength, MaxStrength, req.Strength),
		}
	}

	fields := map[string]string{
		"token_id":      req.TokenID,
		"strength":      strconv.FormatFloat(req.Strength, 'f', -1, 64),
		"normalize":     strconv.FormatBool(req.Normalize),
		"response_type": "stream",
	}
	resp, err := s.client.postMultipart(ctx, "/audio/watermark/encode",
		filePart{field: "audio", path: req.AudioPath, contentType: "audio/wav"}, fields)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, statusError(resp.StatusCode, body)
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, "audio") && !strings.Contains(ct, "octet-stream") {
		return nil, &Error{Kind: KindAPI, Message: fmt.Sprintf("unexpected content type %q", ct), HTTPStatus: resp.StatusCode}
	}

	out, err := os.Create(req.OutputPath) //nolint:gosec // G304: caller-supplied output path
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", req.OutputPath, err)
	}
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", req.OutputPath, err)
	}

	result := &EncodeResult{
		TokenID:    resp.Header.Get(HeaderTokenID),
		OutputPath: req.OutputPath,
		Bytes:      int(n),
		Header:     resp.Header,
	}
	if d, err := strconv.ParseFloat(resp.Header.Get(HeaderAudioDuration), 64); err == nil {
		result.AudioDuration = d
	}
	return result, nil
}

// DecodeResult describes a watermark-decode response.
type DecodeResult struct {
	Watermarked bool   `json:"watermarked"`
	TokenID     string `json:"token_id"`

	raw map[string]json.RawMessage
}

// Has reports whether the response body carried the named field.
// Used by the harness to verify internal metadata stays redacted.
func (r *DecodeResult) Has(field string) bool {
	_, ok := r.raw[field]
	return ok
}

// UnmarshalJSON captures both the typed fields and the raw field set.
func (r *DecodeResult) UnmarshalJSON(data []byte) error {
	type alias DecodeResult
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = DecodeResult(a)
	return json.Unmarshal(data, &r.raw)
}

// Decode uploads audio and reports whether a watermark was found.
// The service may wrap the payload in a "data" envelope; both shapes
// are accepted.
func (s *AudioService) Decode(ctx context.Context, audioPath string) (*DecodeResult, error) {
	resp, err := s.client.postMultipart(ctx, "/audio/watermark/decode",
		filePart{field: "audio", path: audioPath, contentType: "audio/wav"}, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindAPI, Message: "failed to read response", Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, body)
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	payload := body
	if json.Unmarshal(body, &envelope) == nil && len(envelope.Data) > 0 {
		payload = envelope.Data
	}

	var result DecodeResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, &Error{Kind: KindAPI, Message: fmt.Sprintf("failed to parse response: %v", err), Cause: err}
	}
	return &result, nil
}
