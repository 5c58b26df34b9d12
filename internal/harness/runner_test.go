package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ofspectrum/apicheck/internal/api"
	"github.com/ofspectrum/apicheck/internal/ofspectrum"
)

const (
	testKeyA = "key-user-a"
	testKeyB = "key-user-b"
)

// fakeService is a configurable stand-in for the watermarking API.
type fakeService struct {
	quotaCount       int
	noTokens         bool
	exposeEncoding   bool // leak encoding_info in decode body and encode headers
	exposeMediaURL   bool // leak media_url in media responses
	storageSignedURL bool // return a raw storage URL instead of a download token
	crossUserStatus  int  // status for user B deleting user A's notebook
	decodeTokenID    string
	acceptAnyKey     bool
}

func defaultFakeService() *fakeService {
	return &fakeService{
		quotaCount:      5,
		crossUserStatus: http.StatusForbidden,
		decodeTokenID:   "tok-1",
	}
}

func (s *fakeService) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if key != testKeyA && key != testKeyB && !s.acceptAnyKey {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid API key"})
			return
		}

		switch {
		case r.URL.Path == "/tokens/":
			if s.noTokens {
				fmt.Fprint(w, `[]`)
				return
			}
			fmt.Fprint(w, `[{"id":"tok-1","name":"primary"}]`)

		case r.URL.Path == "/usage/quotas/all":
			quotas := make([]map[string]any, s.quotaCount)
			for i := range quotas {
				quotas[i] = map[string]any{"service_name": fmt.Sprintf("svc-%d", i), "remaining": 10, "quota_limit": 100}
			}
			json.NewEncoder(w).Encode(quotas)

		case r.URL.Path == "/usage/quotas/encode":
			fmt.Fprint(w, `{"service_name":"encode","remaining":10,"quota_limit":100}`)

		case r.URL.Path == "/audio/watermark/encode":
			w.Header().Set("Content-Type", "audio/wav")
			w.Header().Set("X-Audio-Duration", "2.00")
			w.Header().Set("X-Token-Id", "tok-1")
			if s.exposeEncoding {
				w.Header().Set("X-Encoding-Info", "model=v3")
			}
			w.Write([]byte("WATERMARKED-AUDIO"))

		case r.URL.Path == "/audio/watermark/decode":
			body := map[string]any{"watermarked": true, "token_id": s.decodeTokenID}
			if s.exposeEncoding {
				body["encoding_info"] = map[string]string{"model": "v3"}
			}
			json.NewEncoder(w).Encode(body)

		case r.URL.Path == "/watermark-notes" && r.Method == http.MethodGet:
			fmt.Fprint(w, `[{"id":"note-1","title":"note","token_id":"tok-1"}]`)

		case r.URL.Path == "/watermark-notes/note-1/media" && r.Method == http.MethodGet:
			media := map[string]any{"id": "media-1", "media_type": "audio/wav"}
			if s.exposeMediaURL {
				media["media_url"] = "https://supabase.example/raw/media-1"
			}
			json.NewEncoder(w).Encode([]map[string]any{media})

		case r.URL.Path == "/watermark-notes/note-1/media" && r.Method == http.MethodPost:
			result := map[string]any{"id": "media-1"}
			if s.exposeMediaURL {
				result["media_url"] = "https://supabase.example/raw/media-1"
			}
			json.NewEncoder(w).Encode(result)

		case r.URL.Path == "/watermark-notes/media/media-1/signed-url":
			url := "/api/v1/watermark-notes/media/media-1/download?token=abc123"
			if s.storageSignedURL {
				url = "https://supabase.example/storage/v1/object/sign/media-1"
			}
			json.NewEncoder(w).Encode(map[string]string{"url": url})

		case r.URL.Path == "/watermark-notes/note-1" && r.Method == http.MethodDelete:
			if key == testKeyB {
				w.WriteHeader(s.crossUserStatus)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestRunner(t *testing.T, svc *fakeService) (*Runner, *Report) {
	t.Helper()

	srv := httptest.NewServer(svc.handler())
	t.Cleanup(srv.Close)

	fx, err := PrepareFixtures(t.TempDir())
	require.NoError(t, err)

	urlClient := api.NewClient(srv.URL)
	t.Cleanup(urlClient.Close)
	sdkClient := ofspectrum.New(ofspectrum.Config{APIKey: testKeyA, BaseURL: srv.URL})
	t.Cleanup(sdkClient.Close)

	report := NewReport(nil)
	return &Runner{
		URL:      urlClient,
		SDK:      sdkClient,
		KeyA:     testKeyA,
		KeyB:     testKeyB,
		BaseURL:  srv.URL,
		Fixtures: fx,
		Report:   report,
	}, report
}

func checkByName(r *Report, name string) *Check {
	for i := range r.Checks {
		if r.Checks[i].Name == name {
			return &r.Checks[i]
		}
	}
	return nil
}

func TestRunHappyPath(t *testing.T) {
	runner, report := newTestRunner(t, defaultFakeService())
	ctx := context.Background()

	runner.RunURL(ctx)
	runner.RunSDK(ctx)

	assert.Zero(t, report.Failed, "failures: %+v", failedChecks(report))
	assert.Zero(t, report.Warned, "warnings: %+v", warnedChecks(report))
	assert.Zero(t, report.Skipped)
	assert.Greater(t, report.Passed, 20)
	assert.InDelta(t, 100.0, report.PassRate(), 0.001)

	// Round-trip verified on both paths
	for _, name := range []string{"[URL] decode round-trip", "[SDK] decode round-trip"} {
		c := checkByName(report, name)
		require.NotNil(t, c, name)
		assert.Equal(t, StatusPass, c.Status, name)
	}

	// Watermarked outputs written to the scratch dir
	assert.FileExists(t, runner.Fixtures.WatermarkedURL)
	assert.FileExists(t, runner.Fixtures.WatermarkedSDK)
}

func TestRunQuotaCountDeviationWarns(t *testing.T) {
	svc := defaultFakeService()
	svc.quotaCount = 3
	runner, report := newTestRunner(t, svc)

	runner.RunURL(context.Background())
	runner.RunSDK(context.Background())

	assert.Zero(t, report.Failed)
	for _, name := range []string{"[URL] Quotas filter", "[SDK] Quotas filter"} {
		c := checkByName(report, name)
		require.NotNil(t, c, name)
		assert.Equal(t, StatusWarn, c.Status, name)
		assert.Contains(t, c.Message, "Expected 5, got 3")
	}
}

func TestRunMetadataLeaksWarn(t *testing.T) {
	svc := defaultFakeService()
	svc.exposeEncoding = true
	svc.exposeMediaURL = true
	svc.storageSignedURL = true
	runner, report := newTestRunner(t, svc)

	runner.RunURL(context.Background())
	runner.RunSDK(context.Background())

	assert.Zero(t, report.Failed)
	for _, name := range []string{
		"[URL] encode security",
		"[URL] decode security",
		"[URL] media list security",
		"[URL] upload security",
		"[URL] signed-url security",
		"[SDK] encode security",
		"[SDK] decode security",
		"[SDK] media security",
	} {
		c := checkByName(report, name)
		require.NotNil(t, c, name)
		assert.Equal(t, StatusWarn, c.Status, name)
	}
}

func TestRunCrossUserDeleteAllowedFails(t *testing.T) {
	svc := defaultFakeService()
	svc.crossUserStatus = http.StatusNoContent
	runner, report := newTestRunner(t, svc)

	runner.RunURL(context.Background())

	c := checkByName(report, "[URL] Cross-user delete")
	require.NotNil(t, c)
	assert.Equal(t, StatusFail, c.Status)
	assert.Contains(t, c.Message, "Expected 403/404")
}

func TestRunCrossUserDelete404Passes(t *testing.T) {
	svc := defaultFakeService()
	svc.crossUserStatus = http.StatusNotFound
	runner, report := newTestRunner(t, svc)

	runner.RunURL(context.Background())

	c := checkByName(report, "[URL] Cross-user delete")
	require.NotNil(t, c)
	assert.Equal(t, StatusPass, c.Status)
}

func TestRunNoTokensSkipsDependents(t *testing.T) {
	svc := defaultFakeService()
	svc.noTokens = true
	runner, report := newTestRunner(t, svc)

	runner.RunURL(context.Background())
	runner.RunSDK(context.Background())

	assert.Zero(t, report.Failed)
	assert.Positive(t, report.Skipped)

	for _, name := range []string{
		"[URL] POST encode (stream)",
		"[URL] Cross-user delete",
		"[SDK] audio.Encode",
		"[SDK] strength=2.5",
	} {
		c := checkByName(report, name)
		require.NotNil(t, c, name)
		assert.Equal(t, StatusSkip, c.Status, name)
	}

	// Credential rejection still runs without tokens
	for _, name := range []string{"[URL] Invalid API key", "[SDK] Invalid API key"} {
		c := checkByName(report, name)
		require.NotNil(t, c, name)
		assert.Equal(t, StatusPass, c.Status, name)
	}
}

func TestRunInvalidKeyAcceptedFails(t *testing.T) {
	svc := defaultFakeService()
	svc.acceptAnyKey = true
	runner, report := newTestRunner(t, svc)

	runner.RunURL(context.Background())
	runner.RunSDK(context.Background())

	for _, name := range []string{"[URL] Invalid API key", "[SDK] Invalid API key"} {
		c := checkByName(report, name)
		require.NotNil(t, c, name)
		assert.Equal(t, StatusFail, c.Status, name)
	}
}

func TestRunStrengthValidation(t *testing.T) {
	runner, report := newTestRunner(t, defaultFakeService())

	runner.RunSDK(context.Background())

	for _, name := range []string{"[SDK] strength=0.05", "[SDK] strength=2.5"} {
		c := checkByName(report, name)
		require.NotNil(t, c, name)
		assert.Equal(t, StatusPass, c.Status, name)
		assert.Contains(t, c.Message, "Correctly rejected")
	}
}

func failedChecks(r *Report) []Check {
	return checksWithStatus(r, StatusFail)
}

func warnedChecks(r *Report) []Check {
	return checksWithStatus(r, StatusWarn)
}

func checksWithStatus(r *Report, status Status) []Check {
	var out []Check
	for _, c := range r.Checks {
		if c.Status == status {
			out = append(out, c)
		}
	}
	return out
}
