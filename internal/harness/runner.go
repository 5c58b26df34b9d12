package harness

import (
	"context"

	"github.com/ofspectrum/apicheck/internal/api"
	"github.com/ofspectrum/apicheck/internal/ofspectrum"
)

// Runner executes the probe sequences. All probes run sequentially on a
// single goroutine; a probe failure never aborts independent probes,
// but a missing prerequisite skips its dependents.
type Runner struct {
	URL     *api.Client
	SDK     *ofspectrum.Client
	KeyA    string
	KeyB    string
	BaseURL string

	Fixtures Fixtures
	Report   *Report

	// Notef prints progress detail between checks (quota lines,
	// identifiers in use). Optional.
	Notef func(format string, args ...any)
}

func (r *Runner) note(format string, args ...any) {
	if r.Notef != nil {
		r.Notef(format, args...)
	}
}

// RunURL executes the raw-HTTP probe sequence. If no API token is
// available the path terminates early: dependent probes are recorded as
// skipped, never failed.
func (r *Runner) RunURL(ctx context.Context) {
	tokenID, ok := r.probeURLTokens(ctx)
	if !ok {
		r.note("no tokens available, skipping remaining URL checks")
		for _, name := range []string{
			"[URL] GET /usage/quotas/all",
			"[URL] POST encode (stream)",
			"[URL] POST decode",
			"[URL] GET /watermark-notes",
			"[URL] GET media list",
			"[URL] POST media upload",
			"[URL] GET signed-url",
			"[URL] Cross-user delete",
		} {
			r.Report.Skip(name, "Skipped (no tokens available)")
		}
		r.probeURLInvalidKey(ctx)
		return
	}
	r.note("using token: %s", tokenID)

	r.probeURLQuotas(ctx)

	encoded, encodeOK := r.probeURLEncode(ctx, tokenID)
	if encodeOK {
		r.probeURLDecode(ctx, encoded, tokenID)
	} else {
		r.Report.Skip("[URL] POST decode", "Skipped (no encoded audio)")
	}

	noteID, notebookOK := r.probeURLNotebooks(ctx, tokenID)
	if notebookOK {
		r.probeURLMediaList(ctx, noteID)

		mediaID, uploadOK := r.probeURLMediaUpload(ctx, noteID)
		if uploadOK {
			r.probeURLSignedURL(ctx, mediaID)
		} else {
			r.Report.Skip("[URL] GET signed-url", "Skipped (no media uploaded)")
		}

		r.probeURLCrossUserDelete(ctx, noteID)
	} else {
		for _, name := range []string{
			"[URL] GET media list",
			"[URL] POST media upload",
			"[URL] GET signed-url",
			"[URL] Cross-user delete",
		} {
			r.Report.Skip(name, "Skipped (no notebooks available)")
		}
	}

	r.probeURLInvalidKey(ctx)
}

// RunSDK executes the SDK probe sequence.
func (r *Runner) RunSDK(ctx context.Context) {
	tokenID, ok := r.probeSDKTokens(ctx)
	if !ok {
		r.note("no tokens available via SDK, skipping dependent checks")
		for _, name := range []string{
			"[SDK] audio.Encode",
			"[SDK] audio.Decode",
			"[SDK] strength=0.05",
			"[SDK] strength=2.5",
		} {
			r.Report.Skip(name, "Skipped (no tokens available)")
		}
		r.probeSDKQuotas(ctx)
		r.probeSDKInvalidKey(ctx)
		return
	}

	r.probeSDKQuotas(ctx)

	encoded, encodeOK := r.probeSDKEncode(ctx, tokenID)
	if encodeOK {
		r.probeSDKDecode(ctx, encoded, tokenID)
	} else {
		r.Report.Skip("[SDK] audio.Decode", "Skipped (no encoded audio)")
	}

	r.probeSDKNotebooks(ctx, tokenID)
	r.probeSDKStrengthValidation(ctx, tokenID)
	r.probeSDKInvalidKey(ctx)
}

// snippet truncates a response body for failure messages.
func snippet(body []byte, n int) string {
	s := string(body)
	if len(s) > n {
		s = s[:n] + "..."
	}
	return s
}

// shortID truncates an identifier for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return id
}
