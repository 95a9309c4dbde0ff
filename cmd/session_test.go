package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/sentiment-cli/internal/devserver"
	"github.com/sells-group/sentiment-cli/internal/orchestrator"
	"github.com/sells-group/sentiment-cli/internal/store"
	"github.com/sells-group/sentiment-cli/pkg/analysis"
)

func newSessionOrchestrator(t *testing.T, baseURL string) *orchestrator.Orchestrator {
	t.Helper()
	return orchestrator.New(analysis.NewClient(baseURL), store.New(), nil, orchestrator.Config{})
}

func runScript(t *testing.T, orch *orchestrator.Orchestrator, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	require.NoError(t, runSession(context.Background(), orch, in, &out, zap.NewNop()))
	return out.String()
}

func TestSession_AgainstDevServer(t *testing.T) {
	srv := httptest.NewServer(devserver.New(devserver.Options{}).Handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("Fantastic onboarding\nTerrible billing portal\n"), 0o644))
	exported := filepath.Join(dir, "session.json")

	orch := newSessionOrchestrator(t, srv.URL)
	output := runScript(t, orch,
		"I love this product",
		"/file "+notes,
		"/summary",
		"/filter negative billing",
		"/status",
		"/export "+exported,
		"/bogus",
		"/quit",
		"never analyzed",
	)

	assert.Contains(t, output, "Added 1 row(s).")
	assert.Contains(t, output, "Added 2 row(s).")
	assert.Contains(t, output, "Terrible billing portal")
	assert.Contains(t, output, "service: up")
	assert.Contains(t, output, "Exported to "+exported)
	assert.Contains(t, output, "unknown command /bogus")
	assert.NotContains(t, output, "never analyzed")

	assert.Equal(t, 3, orch.Summary().Total)
	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Fantastic onboarding")
}

func TestSession_DemoWithoutService(t *testing.T) {
	// Nothing listens here, but demo data never contacts the service.
	orch := newSessionOrchestrator(t, "http://127.0.0.1:1")
	output := runScript(t, orch, "/demo", "/cloud", "/filter positive", "/clear", "/rows")

	assert.Contains(t, output, "Added 3 row(s).")
	assert.Contains(t, output, "unhelpful")
	assert.Contains(t, output, "I absolutely love this product!")
	assert.Equal(t, 0, orch.Summary().Total)
}

func TestSession_ServiceDown(t *testing.T) {
	orch := newSessionOrchestrator(t, "http://127.0.0.1:1")
	output := runScript(t, orch, "hello there", "/status", "/reset", "/status")

	assert.Contains(t, output, "analysis service is unreachable")
	assert.Contains(t, output, "service: down")
	assert.Contains(t, output, "service state reset")
	assert.Contains(t, output, "service: unknown")
}

func TestSession_UsageAndErrors(t *testing.T) {
	orch := newSessionOrchestrator(t, "http://127.0.0.1:1")
	output := runScript(t, orch,
		"/file",
		"/file /does/not/exist.txt",
		"/file photo.png",
		"/export",
		"/filter angry",
		"/filter all nothing-matches",
		"/help",
	)

	assert.Contains(t, output, "usage: /file <path>")
	assert.Contains(t, output, "usage: /export <path>")
	assert.Contains(t, output, "unknown label angry")
	assert.Contains(t, output, "No matching rows.")
	assert.Contains(t, output, "/summary")
	assert.Equal(t, 2, strings.Count(output, "error: "))
}
