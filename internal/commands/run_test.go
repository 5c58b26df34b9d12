package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ofspectrum/apicheck/internal/appctx"
	"github.com/ofspectrum/apicheck/internal/config"
	"github.com/ofspectrum/apicheck/internal/creds"
	"github.com/ofspectrum/apicheck/internal/harness"
	"github.com/ofspectrum/apicheck/internal/output"
)

func sampleReport() *harness.Report {
	r := harness.NewReport(nil)
	r.Pass("[URL] GET /tokens/", "Status: 200, Count: 1")
	r.Warn("[URL] Quotas filter", "Expected 5, got 3")
	r.Fail("[URL] Invalid API key", "Expected 401, got 200")
	r.Skip("[URL] POST decode", "Skipped (no encoded audio)")
	return r
}

func TestWriteReportFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, writeReportFile(path, "http://svc/api/v1", sampleReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var parsed struct {
		GeneratedAt string          `json:"generated_at"`
		BaseURL     string          `json:"base_url"`
		Checks      []harness.Check `json:"checks"`
		Passed      int             `json:"passed"`
		Failed      int             `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "http://svc/api/v1", parsed.BaseURL)
	assert.NotEmpty(t, parsed.GeneratedAt)
	assert.Len(t, parsed.Checks, 4)
	assert.Equal(t, 1, parsed.Passed)
	assert.Equal(t, 1, parsed.Failed)
}

func TestWriteReportFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	require.NoError(t, writeReportFile(path, "http://svc/api/v1", sampleReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	// Report fields are inlined beside the metadata
	assert.Equal(t, "http://svc/api/v1", parsed["base_url"])
	assert.NotNil(t, parsed["checks"])
	assert.Equal(t, 1, parsed["passed"])
}

func TestFilterReport(t *testing.T) {
	var buf bytes.Buffer
	err := filterReport(context.Background(), &buf, `.checks[] | select(.status == "fail") | .name`, sampleReport())
	require.NoError(t, err)
	assert.Equal(t, "\"[URL] Invalid API key\"\n", buf.String())
}

func TestFilterReportInvalidExpression(t *testing.T) {
	var buf bytes.Buffer
	err := filterReport(context.Background(), &buf, `.checks[ | broken`, sampleReport())
	require.Error(t, err)
	assert.Equal(t, output.CodeUsage, output.AsError(err).Code)
}

func TestRunCmdMutuallyExclusiveFlags(t *testing.T) {
	cfg := config.Default()
	cfg.NoKeyring = true
	app := &appctx.App{
		Config: cfg,
		Creds:  creds.NewStore(cfg),
		Output: output.New(output.Options{Format: output.FormatJSON, Writer: &bytes.Buffer{}}),
	}

	cmd := NewRunCmd()
	cmd.SetContext(appctx.WithApp(context.Background(), app))
	cmd.SetArgs([]string{"--url-only", "--sdk-only"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

// fakeWatermarkService implements just enough of the API surface for a
// full green run.
func fakeWatermarkService() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if key != "key-a" && key != "key-b" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"detail":"Invalid API key"}`)
			return
		}
		switch {
		case r.URL.Path == "/tokens/":
			fmt.Fprint(w, `[{"id":"tok-1"}]`)
		case r.URL.Path == "/usage/quotas/all":
			fmt.Fprint(w, `[{"service_name":"a"},{"service_name":"b"},{"service_name":"c"},{"service_name":"d"},{"service_name":"e"}]`)
		case r.URL.Path == "/usage/quotas/encode":
			fmt.Fprint(w, `{"service_name":"encode","remaining":9,"quota_limit":100}`)
		case r.URL.Path == "/audio/watermark/encode":
			w.Header().Set("Content-Type", "audio/wav")
			w.Header().Set("X-Audio-Duration", "2.00")
			w.Header().Set("X-Token-Id", "tok-1")
			w.Write([]byte("WM"))
		case r.URL.Path == "/audio/watermark/decode":
			fmt.Fprint(w, `{"watermarked":true,"token_id":"tok-1"}`)
		case r.URL.Path == "/watermark-notes" && r.Method == http.MethodGet:
			fmt.Fprint(w, `[{"id":"note-1"}]`)
		case r.URL.Path == "/watermark-notes/note-1/media" && r.Method == http.MethodGet:
			fmt.Fprint(w, `[{"id":"media-1"}]`)
		case r.URL.Path == "/watermark-notes/note-1/media" && r.Method == http.MethodPost:
			fmt.Fprint(w, `{"id":"media-1"}`)
		case r.URL.Path == "/watermark-notes/media/media-1/signed-url":
			fmt.Fprint(w, `{"url":"/api/v1/download?token=abc"}`)
		case r.URL.Path == "/watermark-notes/note-1" && r.Method == http.MethodDelete:
			if key == "key-b" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func TestRunChecksEndToEnd(t *testing.T) {
	srv := httptest.NewServer(fakeWatermarkService())
	defer srv.Close()

	cfg := config.Default()
	cfg.BaseURL = srv.URL
	cfg.NoKeyring = true

	var envelope bytes.Buffer
	app := &appctx.App{
		Config: cfg,
		Creds:  creds.NewStore(cfg),
		Output: output.New(output.Options{Format: output.FormatJSON, Writer: &envelope}),
	}

	scratch := t.TempDir()
	fx, err := harness.PrepareFixtures(scratch)
	require.NoError(t, err)

	reportPath := filepath.Join(scratch, "report.json")

	cmd := NewRunCmd()
	cmd.SetContext(appctx.WithApp(context.Background(), app))
	var cmdOut bytes.Buffer
	cmd.SetOut(&cmdOut)

	err = runChecks(cmd, app, creds.Credentials{KeyA: "key-a", KeyB: "key-b"}, fx, runOptions{
		reportPath: reportPath,
	})
	require.NoError(t, err)

	// Envelope carries the full report
	var resp struct {
		OK      bool   `json:"ok"`
		Summary string `json:"summary"`
		Data    struct {
			Failed int `json:"failed"`
			Passed int `json:"passed"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(envelope.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Zero(t, resp.Data.Failed)
	assert.Positive(t, resp.Data.Passed)
	assert.Contains(t, resp.Summary, "passed")

	assert.FileExists(t, reportPath)
}

func TestRunChecksFailureExitsNonZero(t *testing.T) {
	// Service that accepts any key: the invalid-key checks must fail.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tokens/":
			fmt.Fprint(w, `[]`)
		case "/usage/quotas/all":
			fmt.Fprint(w, `[]`)
		case "/usage/quotas/encode":
			fmt.Fprint(w, `{"remaining":1,"quota_limit":1}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.BaseURL = srv.URL
	cfg.NoKeyring = true

	app := &appctx.App{
		Config: cfg,
		Creds:  creds.NewStore(cfg),
		Output: output.New(output.Options{Format: output.FormatJSON, Writer: &bytes.Buffer{}}),
	}

	fx, err := harness.PrepareFixtures(t.TempDir())
	require.NoError(t, err)

	cmd := NewRunCmd()
	cmd.SetContext(appctx.WithApp(context.Background(), app))
	cmd.SetOut(&bytes.Buffer{})

	err = runChecks(cmd, app, creds.Credentials{KeyA: "key-a", KeyB: "key-b"}, fx, runOptions{})
	require.Error(t, err)

	oerr := output.AsError(err)
	assert.Equal(t, output.CodeChecks, oerr.Code)
	assert.Equal(t, output.ExitChecks, oerr.ExitCode())
}
