package harness

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ofspectrum/apicheck/internal/ofspectrum"
)

// probeSDKTokens lists tokens through the client wrapper. Returns the
// first token id; ok is false when the list is empty or the call failed.
func (r *Runner) probeSDKTokens(ctx context.Context) (string, bool) {
	const name = "[SDK] tokens.List"

	tokens, err := r.SDK.Tokens().List(ctx)
	if err != nil {
		r.Report.Fail(name, err.Error())
		return "", false
	}
	if len(tokens) == 0 {
		r.Report.Warn(name, "No tokens found")
		return "", false
	}

	r.Report.Pass(name, fmt.Sprintf("Count: %d", len(tokens)))
	return tokens[0].ID, true
}

// probeSDKQuotas checks the encode quota and the filtered quota list.
func (r *Runner) probeSDKQuotas(ctx context.Context) {
	encode, err := r.SDK.Quotas().EncodeQuota(ctx)
	if err != nil {
		r.Report.Fail("[SDK] quotas.Encode", err.Error())
	} else {
		r.Report.Pass("[SDK] quotas.Encode", fmt.Sprintf("Remaining: %d/%d", encode.Remaining, encode.QuotaLimit))
	}

	quotas, err := r.SDK.Quotas().All(ctx)
	if err != nil {
		r.Report.Fail("[SDK] quotas.All", err.Error())
		return
	}
	r.Report.Pass("[SDK] quotas.All", fmt.Sprintf("Count: %d", len(quotas)))

	if len(quotas) == expectedQuotaCount {
		r.Report.Pass("[SDK] Quotas filter", fmt.Sprintf("Exactly %d quotas returned", expectedQuotaCount))
	} else {
		r.Report.Warn("[SDK] Quotas filter", fmt.Sprintf("Expected %d, got %d", expectedQuotaCount, len(quotas)))
	}
}

// probeSDKEncode watermarks the fixture audio. Returns the output path
// on success.
func (r *Runner) probeSDKEncode(ctx context.Context, tokenID string) (string, bool) {
	const name = "[SDK] audio.Encode"

	result, err := r.SDK.Audio().Encode(ctx, ofspectrum.EncodeRequest{
		AudioPath:  r.Fixtures.Input,
		TokenID:    tokenID,
		Strength:   1.0,
		Normalize:  true,
		OutputPath: r.Fixtures.WatermarkedSDK,
	})
	if err != nil {
		r.Report.Fail(name, err.Error())
		return "", false
	}
	if result.AudioDuration <= 0 {
		r.Report.Fail(name, "Missing audio duration header")
		return "", false
	}

	r.Report.Pass(name, fmt.Sprintf("Duration: %.2fs, %d bytes", result.AudioDuration, result.Bytes))

	if result.Header.Get(ofspectrum.HeaderEncodingInfo) != "" {
		r.Report.Warn("[SDK] encode security", "X-Encoding-Info exposed in headers")
	} else {
		r.Report.Pass("[SDK] encode security", "No encoding_info in headers")
	}

	return result.OutputPath, true
}

// probeSDKDecode detects the watermark and verifies the round-trip.
func (r *Runner) probeSDKDecode(ctx context.Context, audioPath, wantTokenID string) {
	const name = "[SDK] audio.Decode"

	result, err := r.SDK.Audio().Decode(ctx, audioPath)
	if err != nil {
		r.Report.Fail(name, err.Error())
		return
	}

	r.Report.Pass(name, fmt.Sprintf("watermarked=%v, token_id=%s", result.Watermarked, shortID(result.TokenID)))

	if result.Watermarked && result.TokenID == wantTokenID {
		r.Report.Pass("[SDK] decode round-trip", fmt.Sprintf("watermarked=true, token_id=%s", shortID(result.TokenID)))
	} else {
		r.Report.Fail("[SDK] decode round-trip",
			fmt.Sprintf("watermarked=%v, token_id=%s (want %s)", result.Watermarked, result.TokenID, wantTokenID))
	}

	if result.Has("encoding_info") {
		r.Report.Warn("[SDK] decode security", "encoding_info exposed in response")
	} else {
		r.Report.Pass("[SDK] decode security", "No encoding_info in response")
	}
}

// probeSDKNotebooks lists notebooks and, when one exists, its media.
func (r *Runner) probeSDKNotebooks(ctx context.Context, tokenID string) {
	const name = "[SDK] notebooks.List"

	notebooks, err := r.SDK.Notebooks().List(ctx, tokenID)
	if err != nil {
		r.Report.Fail(name, err.Error())
		return
	}
	r.Report.Pass(name, fmt.Sprintf("Count: %d", len(notebooks)))

	if len(notebooks) == 0 {
		r.Report.Warn("[SDK] notebooks.ListMedia", "No notebooks to test")
		return
	}

	media, err := r.SDK.Notebooks().ListMedia(ctx, notebooks[0].ID)
	if err != nil {
		r.Report.Fail("[SDK] notebooks.ListMedia", err.Error())
		return
	}
	r.Report.Pass("[SDK] notebooks.ListMedia", fmt.Sprintf("Count: %d", len(media)))

	exposed := false
	for _, m := range media {
		if m.Has("media_url") {
			exposed = true
			break
		}
	}
	if exposed {
		r.Report.Warn("[SDK] media security", "media_url exposed")
	} else {
		r.Report.Pass("[SDK] media security", "No media_url in response")
	}
}

// probeSDKStrengthValidation verifies the client rejects out-of-range
// watermark strengths without issuing a request.
func (r *Runner) probeSDKStrengthValidation(ctx context.Context, tokenID string) {
	for _, tc := range []struct {
		name     string
		strength float64
	}{
		{"[SDK] strength=0.05", 0.05},
		{"[SDK] strength=2.5", 2.5},
	} {
		_, err := r.SDK.Audio().Encode(ctx, ofspectrum.EncodeRequest{
			AudioPath:  r.Fixtures.Input,
			TokenID:    tokenID,
			Strength:   tc.strength,
			Normalize:  true,
			OutputPath: filepath.Join(r.Fixtures.Dir, "strength_probe.wav"),
		})
		switch {
		case err == nil:
			r.Report.Fail(tc.name, "Should have been rejected")
		case ofspectrum.IsValidation(err):
			r.Report.Pass(tc.name, "Correctly rejected")
		default:
			r.Report.Warn(tc.name, fmt.Sprintf("Rejected: %v", err))
		}
	}
}

// probeSDKInvalidKey verifies that a bogus key yields an authentication
// error, not a silent success or an unclassified failure.
func (r *Runner) probeSDKInvalidKey(ctx context.Context) {
	const name = "[SDK] Invalid API key"

	c := ofspectrum.New(ofspectrum.Config{APIKey: "invalid_key_12345", BaseURL: r.BaseURL})
	defer c.Close()

	_, err := c.Tokens().List(ctx)
	switch {
	case err == nil:
		r.Report.Fail(name, "Should have raised an error")
	case ofspectrum.IsAuth(err):
		r.Report.Pass(name, "Correctly raises auth error")
	default:
		r.Report.Fail(name, fmt.Sprintf("Expected authentication error, got: %v", err))
	}
}
