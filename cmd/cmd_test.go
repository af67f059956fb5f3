// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/loopautoma/internal/config"
	"github.com/xkilldash9x/loopautoma/internal/monitor"
	"github.com/xkilldash9x/loopautoma/internal/observability"
	"github.com/xkilldash9x/loopautoma/internal/store"
)

// resetForTest silences the global logger; the first Initialize wins, so the
// commands' own initialization becomes a no-op.
func resetForTest(t *testing.T) {
	t.Helper()
	observability.ResetForTest()
	observability.InitializeLogger(config.LoggerConfig{Level: "fatal", Format: "console", ServiceName: "test"})
	t.Cleanup(observability.ResetForTest)
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetForTest(t)

	root := NewRootCommand()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const testConfig = `
llm:
  provider: mock
audio:
  backend: none
backend:
  kind: virtual
  virtual:
    width: 320
    height: 200
profiles:
  - id: ci
    interval: 10ms
    max_runtime: 80ms
    regions:
      - id: terminal
        x: 0
        y: 0
        width: 32
        height: 32
    actions:
      - type: llm_prompt_generation
        region_ids: [terminal, sidebar]
        risk_threshold: 0.5
      - type: type_text
        text: $prompt
      - type: key
        key: Enter
`

func TestVersion(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "loopautoma "+Version+"\n", out)

	out, err = executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestValidate(t *testing.T) {
	t.Run("reports unknown LLM regions as warnings", func(t *testing.T) {
		out, err := executeCommand(t, "validate", "--config", createTempConfig(t, testConfig))
		require.NoError(t, err)
		assert.Contains(t, out, `warning: profile "ci": actions[0] references unknown region "sidebar"`)
		assert.Contains(t, out, "configuration OK: 1 profile(s), 1 warning(s)")
	})

	t.Run("rejects an invalid configuration", func(t *testing.T) {
		_, err := executeCommand(t, "validate", "--config", createTempConfig(t, "llm:\n  provider: carrier-pigeon\n"))
		require.Error(t, err)
		assert.ErrorContains(t, err, "llm.provider must be one of")
	})

	t.Run("rejects a profile that fails to build", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		cfg.ProfileCfgs = []config.ProfileConfig{{
			ID:      "bad",
			Actions: []config.ActionConfig{{Type: config.ActionKey}},
		}}
		err := runValidate(zap.NewNop(), cfg, new(bytes.Buffer))
		assert.ErrorContains(t, err, "key action requires a key name")
	})
}

func TestDisplays(t *testing.T) {
	out, err := executeCommand(t, "displays", "--config", createTempConfig(t, testConfig))
	require.NoError(t, err)
	assert.Contains(t, out, "virtual-0")
	assert.Contains(t, out, "320x200")
}

func TestRunDryRunHitsMaxRuntime(t *testing.T) {
	out, err := executeCommand(t, "run", "ci", "--dry-run", "--config", createTempConfig(t, testConfig))
	require.Error(t, err)
	assert.ErrorIs(t, err, monitor.ErrMaxRuntime)
	assert.ErrorContains(t, err, `profile "ci"`)
	assert.Contains(t, out, "failed\tmax runtime exceeded")
}

func TestRunUnknownProfile(t *testing.T) {
	_, err := executeCommand(t, "run", "nightly", "--dry-run", "--config", createTempConfig(t, testConfig))
	assert.ErrorContains(t, err, `profile "nightly" is not configured`)
}

func TestSelectProfiles(t *testing.T) {
	cfg := config.NewDefaultConfig()
	_, err := selectProfiles(cfg, nil)
	assert.ErrorContains(t, err, "no profiles configured")

	cfg.ProfileCfgs = []config.ProfileConfig{{ID: "a"}, {ID: "b"}}
	all, err := selectProfiles(cfg, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	picked, err := selectProfiles(cfg, []string{"b"})
	require.NoError(t, err)
	require.Len(t, picked, 1)
	assert.Equal(t, "b", picked[0].ID)
}

type fakeStore struct {
	mu       sync.Mutex
	recorded []*monitor.Outcome
	runs     []store.Run
	listErr  error
}

func (f *fakeStore) Record(_ context.Context, o *monitor.Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, o)
	return nil
}

func (f *fakeStore) ListRuns(_ context.Context, limit int) ([]store.Run, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]store.Run(nil), f.runs...), nil
}

type fakeProvider struct {
	store   *fakeStore
	err     error
	cleaned bool
}

func (p *fakeProvider) Create(context.Context, config.Interface) (runStore, func(), error) {
	if p.err != nil {
		return nil, nil, p.err
	}
	return p.store, func() { p.cleaned = true }, nil
}

func TestRunProfilesRecordsOutcomes(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.LLMCfg.Provider = config.ProviderMock
	cfg.AudioCfg.Backend = "none"
	cfg.DatabaseCfg.URL = "postgres://loopautoma@localhost/loopautoma"
	cfg.ProfileCfgs = []config.ProfileConfig{{
		ID:         "ci",
		Interval:   5 * time.Millisecond,
		MaxRuntime: 30 * time.Millisecond,
		Regions:    []config.RegionConfig{{ID: "terminal", Width: 16, Height: 16}},
		Actions:    []config.ActionConfig{{Type: config.ActionKey, Key: "Enter"}},
	}}

	provider := &fakeProvider{store: &fakeStore{}}
	out := new(bytes.Buffer)
	err := runProfiles(context.Background(), zap.NewNop(), cfg, nil, runOptions{}, provider, out)
	require.ErrorIs(t, err, monitor.ErrMaxRuntime)

	assert.True(t, provider.cleaned)
	require.Len(t, provider.store.recorded, 1)
	assert.Equal(t, monitor.StateFailed, provider.store.recorded[0].State)
	assert.Contains(t, out.String(), "ci\t")
}

func TestRunProfilesStoreFailure(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.LLMCfg.Provider = config.ProviderMock
	cfg.AudioCfg.Backend = "none"
	cfg.DatabaseCfg.URL = "postgres://loopautoma@localhost/loopautoma"
	cfg.ProfileCfgs = []config.ProfileConfig{{ID: "ci", Actions: []config.ActionConfig{{Type: config.ActionKey, Key: "Enter"}}}}

	provider := &fakeProvider{err: errors.New("connection refused")}
	err := runProfiles(context.Background(), zap.NewNop(), cfg, nil, runOptions{}, provider, new(bytes.Buffer))
	assert.ErrorContains(t, err, "failed to initialize store: connection refused")
}

func TestHistory(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	runs := []store.Run{
		{ID: "run-2", ProfileID: "ci", State: "completed", Reason: "all tests pass", Decisions: 3, StartedAt: started, EndedAt: started.Add(time.Minute)},
		{ID: "run-1", ProfileID: "docs", State: "failed", Reason: "max runtime exceeded", StartedAt: started, EndedAt: started},
	}
	cfg := config.NewDefaultConfig()

	t.Run("table", func(t *testing.T) {
		provider := &fakeProvider{store: &fakeStore{runs: runs}}
		out := new(bytes.Buffer)
		require.NoError(t, runHistory(context.Background(), zap.NewNop(), cfg, provider, out, 10, "", false))

		assert.Contains(t, out.String(), "RUN")
		assert.Contains(t, out.String(), "run-2")
		assert.Contains(t, out.String(), "all tests pass")
		assert.Contains(t, out.String(), "1m0s")
		assert.True(t, provider.cleaned)
	})

	t.Run("profile filter and json", func(t *testing.T) {
		provider := &fakeProvider{store: &fakeStore{runs: runs}}
		out := new(bytes.Buffer)
		require.NoError(t, runHistory(context.Background(), zap.NewNop(), cfg, provider, out, 10, "docs", true))

		assert.Contains(t, out.String(), `"ProfileID": "docs"`)
		assert.NotContains(t, out.String(), "run-2")
	})

	t.Run("list failure", func(t *testing.T) {
		provider := &fakeProvider{store: &fakeStore{listErr: errors.New("relation \"runs\" does not exist")}}
		err := runHistory(context.Background(), zap.NewNop(), cfg, provider, new(bytes.Buffer), 10, "", false)
		assert.ErrorContains(t, err, "does not exist")
	})
}
