package harness

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/ofspectrum/apicheck/internal/api"
)

// expectedQuotaCount is the number of quota entries the service exposes
// per user. Deviation is flagged as a warning, not a failure.
const expectedQuotaCount = 5

// probeURLTokens lists API tokens. Returns the first token id; ok is
// false when the list is empty or the request failed.
func (r *Runner) probeURLTokens(ctx context.Context) (string, bool) {
	const name = "[URL] GET /tokens/"

	resp, err := r.URL.Get(ctx, r.KeyA, "/tokens/")
	if err != nil {
		r.Report.Fail(name, err.Error())
		return "", false
	}
	if resp.StatusCode != http.StatusOK {
		r.Report.Fail(name, fmt.Sprintf("Status: %d, Body: %s", resp.StatusCode, snippet(resp.Body, 100)))
		return "", false
	}

	var tokens []struct {
		ID string `json:"id"`
	}
	if err := resp.UnmarshalData(&tokens); err != nil {
		r.Report.Fail(name, fmt.Sprintf("Invalid JSON: %v", err))
		return "", false
	}

	r.Report.Pass(name, fmt.Sprintf("Status: %d, Count: %d", resp.StatusCode, len(tokens)))
	if len(tokens) == 0 {
		return "", false
	}
	return tokens[0].ID, true
}

// probeURLQuotas lists usage quotas and verifies the filtered count.
func (r *Runner) probeURLQuotas(ctx context.Context) {
	const name = "[URL] GET /usage/quotas/all"

	resp, err := r.URL.Get(ctx, r.KeyA, "/usage/quotas/all")
	if err != nil {
		r.Report.Fail(name, err.Error())
		return
	}
	if resp.StatusCode != http.StatusOK {
		r.Report.Fail(name, fmt.Sprintf("Status: %d", resp.StatusCode))
		return
	}

	var quotas []struct {
		ServiceName string `json:"service_name"`
		Remaining   int    `json:"remaining"`
		QuotaLimit  int    `json:"quota_limit"`
	}
	if err := resp.UnmarshalData(&quotas); err != nil {
		r.Report.Fail(name, fmt.Sprintf("Invalid JSON: %v", err))
		return
	}

	r.Report.Pass(name, fmt.Sprintf("Status: %d, Count: %d", resp.StatusCode, len(quotas)))
	if len(quotas) == expectedQuotaCount {
		r.Report.Pass("[URL] Quotas filter", fmt.Sprintf("Exactly %d quotas returned", expectedQuotaCount))
	} else {
		r.Report.Warn("[URL] Quotas filter", fmt.Sprintf("Expected %d, got %d", expectedQuotaCount, len(quotas)))
	}
	for _, q := range quotas {
		r.note("  - %s: %d/%d", q.ServiceName, q.Remaining, q.QuotaLimit)
	}
}

// probeURLEncode uploads the fixture audio for watermarking and saves
// the streamed result. Returns the output path on success.
func (r *Runner) probeURLEncode(ctx context.Context, tokenID string) (string, bool) {
	const name = "[URL] POST encode (stream)"

	resp, err := r.URL.PostMultipart(ctx, r.KeyA, "/audio/watermark/encode",
		api.FilePart{Field: "audio", Path: r.Fixtures.Input, ContentType: "audio/wav"},
		map[string]string{
			"token_id":      tokenID,
			"strength":      "1.0",
			"normalize":     "true",
			"response_type": "stream",
		})
	if err != nil {
		r.Report.Fail(name, err.Error())
		return "", false
	}
	if resp.StatusCode != http.StatusOK {
		r.Report.Fail(name, fmt.Sprintf("Status: %d, Body: %s", resp.StatusCode, snippet(resp.Body, 200)))
		return "", false
	}

	ct := resp.ContentType()
	if !strings.Contains(ct, "audio") && !strings.Contains(ct, "octet-stream") {
		r.Report.Fail(name, fmt.Sprintf("Unexpected content type: %s", ct))
		return "", false
	}

	if err := os.WriteFile(r.Fixtures.WatermarkedURL, resp.Body, 0o644); err != nil {
		r.Report.Fail(name, fmt.Sprintf("Cannot save output: %v", err))
		return "", false
	}
	r.Report.Pass(name, fmt.Sprintf("Saved %d bytes", len(resp.Body)))

	r.note("  X-Audio-Duration: %s", resp.Headers.Get("X-Audio-Duration"))
	r.note("  X-Token-Id: %s", resp.Headers.Get("X-Token-Id"))

	if resp.Headers.Get("X-Encoding-Info") != "" {
		r.Report.Warn("[URL] encode security", "X-Encoding-Info exposed in headers")
	} else {
		r.Report.Pass("[URL] encode security", "No encoding_info in headers")
	}

	return r.Fixtures.WatermarkedURL, true
}

// probeURLDecode uploads the watermarked audio and verifies the
// round-trip: watermark detected, same token id, no internal metadata.
func (r *Runner) probeURLDecode(ctx context.Context, audioPath, wantTokenID string) {
	const name = "[URL] POST decode"

	resp, err := r.URL.PostMultipart(ctx, r.KeyA, "/audio/watermark/decode",
		api.FilePart{Field: "audio", Path: audioPath, ContentType: "audio/wav"}, nil)
	if err != nil {
		r.Report.Fail(name, err.Error())
		return
	}
	if resp.StatusCode != http.StatusOK {
		r.Report.Fail(name, fmt.Sprintf("Status: %d, Body: %s", resp.StatusCode, snippet(resp.Body, 200)))
		return
	}

	var payload map[string]any
	if err := resp.UnmarshalData(&payload); err != nil {
		r.Report.Fail(name, fmt.Sprintf("Invalid JSON: %v", err))
		return
	}
	result := payload
	if inner, ok := payload["data"].(map[string]any); ok {
		result = inner
	}

	r.Report.Pass(name, "Status: 200")

	watermarked, _ := result["watermarked"].(bool)
	tokenID, _ := result["token_id"].(string)
	r.note("  watermarked: %v", watermarked)
	r.note("  token_id: %s", tokenID)

	if watermarked && tokenID == wantTokenID {
		r.Report.Pass("[URL] decode round-trip", fmt.Sprintf("watermarked=true, token_id=%s", shortID(tokenID)))
	} else {
		r.Report.Fail("[URL] decode round-trip",
			fmt.Sprintf("watermarked=%v, token_id=%s (want %s)", watermarked, tokenID, wantTokenID))
	}

	if _, exposed := result["encoding_info"]; exposed {
		r.Report.Warn("[URL] decode security", "encoding_info exposed in response")
	} else {
		r.Report.Pass("[URL] decode security", "No encoding_info in response")
	}
}

// probeURLNotebooks lists watermark-notes for a token. Returns the
// first notebook id.
func (r *Runner) probeURLNotebooks(ctx context.Context, tokenID string) (string, bool) {
	const name = "[URL] GET /watermark-notes"

	resp, err := r.URL.Get(ctx, r.KeyA, "/watermark-notes?token_id="+url.QueryEscape(tokenID))
	if err != nil {
		r.Report.Fail(name, err.Error())
		return "", false
	}
	if resp.StatusCode != http.StatusOK {
		r.Report.Fail(name, fmt.Sprintf("Status: %d", resp.StatusCode))
		return "", false
	}

	var notebooks []struct {
		ID string `json:"id"`
	}
	if err := resp.UnmarshalData(&notebooks); err != nil {
		r.Report.Fail(name, fmt.Sprintf("Invalid JSON: %v", err))
		return "", false
	}

	r.Report.Pass(name, fmt.Sprintf("Status: 200, Count: %d", len(notebooks)))
	if len(notebooks) == 0 {
		return "", false
	}
	return notebooks[0].ID, true
}

// probeURLMediaList lists a notebook's media and checks that raw
// storage URLs stay redacted.
func (r *Runner) probeURLMediaList(ctx context.Context, noteID string) {
	const name = "[URL] GET media list"

	resp, err := r.URL.Get(ctx, r.KeyA, fmt.Sprintf("/watermark-notes/%s/media", url.PathEscape(noteID)))
	if err != nil {
		r.Report.Fail(name, err.Error())
		return
	}
	if resp.StatusCode != http.StatusOK {
		r.Report.Fail(name, fmt.Sprintf("Status: %d", resp.StatusCode))
		return
	}

	var media []map[string]any
	if err := resp.UnmarshalData(&media); err != nil {
		r.Report.Fail(name, fmt.Sprintf("Invalid JSON: %v", err))
		return
	}

	r.Report.Pass(name, fmt.Sprintf("Status: 200, Count: %d", len(media)))

	exposed := false
	for _, m := range media {
		if _, ok := m["media_url"]; ok {
			exposed = true
			break
		}
	}
	if exposed {
		r.Report.Warn("[URL] media list security", "media_url exposed")
	} else {
		r.Report.Pass("[URL] media list security", "No media_url in response")
	}
}

// probeURLMediaUpload attaches the fixture audio to a notebook.
// Returns the new media id.
func (r *Runner) probeURLMediaUpload(ctx context.Context, noteID string) (string, bool) {
	const name = "[URL] POST media upload"

	resp, err := r.URL.PostMultipart(ctx, r.KeyA,
		fmt.Sprintf("/watermark-notes/%s/media", url.PathEscape(noteID)),
		api.FilePart{Field: "file", Path: r.Fixtures.Input, ContentType: "audio/wav"},
		map[string]string{"media_type": "audio/wav"})
	if err != nil {
		r.Report.Fail(name, err.Error())
		return "", false
	}
	if resp.StatusCode != http.StatusOK {
		r.Report.Fail(name, fmt.Sprintf("Status: %d, Body: %s", resp.StatusCode, snippet(resp.Body, 200)))
		return "", false
	}

	var result map[string]any
	if err := resp.UnmarshalData(&result); err != nil {
		r.Report.Fail(name, fmt.Sprintf("Invalid JSON: %v", err))
		return "", false
	}

	mediaID, _ := result["id"].(string)
	r.Report.Pass(name, fmt.Sprintf("Media ID: %s", shortID(mediaID)))

	if _, exposed := result["media_url"]; exposed {
		r.Report.Warn("[URL] upload security", "media_url exposed")
	} else {
		r.Report.Pass("[URL] upload security", "No media_url in response")
	}

	if mediaID == "" {
		return "", false
	}
	return mediaID, true
}

// probeURLSignedURL fetches the media download link and verifies it is
// a proxied download-token URL rather than a raw storage address.
func (r *Runner) probeURLSignedURL(ctx context.Context, mediaID string) {
	const name = "[URL] GET signed-url"

	resp, err := r.URL.Get(ctx, r.KeyA, fmt.Sprintf("/watermark-notes/media/%s/signed-url", url.PathEscape(mediaID)))
	if err != nil {
		r.Report.Fail(name, err.Error())
		return
	}
	if resp.StatusCode != http.StatusOK {
		r.Report.Fail(name, fmt.Sprintf("Status: %d", resp.StatusCode))
		return
	}

	var payload struct {
		URL string `json:"url"`
	}
	if err := resp.UnmarshalData(&payload); err != nil {
		r.Report.Fail(name, fmt.Sprintf("Invalid JSON: %v", err))
		return
	}

	u := payload.URL
	lower := strings.ToLower(u)
	switch {
	case strings.Contains(u, "/download?token="):
		r.Report.Pass("[URL] signed-url format", "Returns download token URL")
	case strings.Contains(lower, "supabase") || strings.Contains(lower, "storage"):
		r.Report.Warn("[URL] signed-url security", fmt.Sprintf("Exposes storage URL: %s", snippet([]byte(u), 50)))
	default:
		r.Report.Pass(name, fmt.Sprintf("URL: %s", snippet([]byte(u), 50)))
	}
}

// probeURLCrossUserDelete has user B try to delete user A's notebook.
// Anything other than 403/404 is a failure.
func (r *Runner) probeURLCrossUserDelete(ctx context.Context, noteID string) {
	const name = "[URL] Cross-user delete"

	resp, err := r.URL.Delete(ctx, r.KeyB, "/watermark-notes/"+url.PathEscape(noteID))
	if err != nil {
		r.Report.Fail(name, err.Error())
		return
	}

	switch resp.StatusCode {
	case http.StatusForbidden:
		r.Report.Pass(name, "Correctly blocked with 403")
	case http.StatusNotFound:
		r.Report.Pass(name, "Correctly blocked (404)")
	default:
		r.Report.Fail(name, fmt.Sprintf("Expected 403/404, got %d", resp.StatusCode))
	}
}

// probeURLInvalidKey verifies that a bogus bearer key is rejected.
func (r *Runner) probeURLInvalidKey(ctx context.Context) {
	const name = "[URL] Invalid API key"

	resp, err := r.URL.Get(ctx, "invalid_key_12345", "/tokens/")
	if err != nil {
		r.Report.Fail(name, err.Error())
		return
	}

	if resp.StatusCode == http.StatusUnauthorized {
		r.Report.Pass(name, "Correctly returns 401")
	} else {
		r.Report.Fail(name, fmt.Sprintf("Expected 401, got %d", resp.StatusCode))
	}
}
