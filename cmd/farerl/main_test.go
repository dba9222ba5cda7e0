package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fare-rl-go/internal/engine"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPrintConfigAppliesFlags(t *testing.T) {
	out, err := execute(t, "--print-config", "--num-seats", "7", "--price-levels", "50,100", "--learning-rate", "0.3")
	require.NoError(t, err)
	assert.Contains(t, out, "num_seats: 7")
	assert.Contains(t, out, "learning_rate: 0.3")
	assert.Contains(t, out, "- 50")
	assert.Contains(t, out, "- 100")
}

func TestFlagBeatsEnv(t *testing.T) {
	t.Setenv("FARERL_NUM_SEATS", "30")
	out, err := execute(t, "--print-config")
	require.NoError(t, err)
	assert.Contains(t, out, "num_seats: 30")

	out, err = execute(t, "--print-config", "--num-seats", "9")
	require.NoError(t, err)
	assert.Contains(t, out, "num_seats: 9")
}

func TestInvalidFlagIsConfigurationError(t *testing.T) {
	_, err := execute(t, "--num-seats", "0")
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrConfiguration)
}

func TestTrainWritesReportAndArtifacts(t *testing.T) {
	dir := t.TempDir()
	chart := filepath.Join(dir, "charts.html")
	prom := filepath.Join(dir, "farerl.prom")

	out, err := execute(t,
		"--num-seats", "8",
		"--time-horizon", "4",
		"--price-levels", "60,120,180",
		"--episodes", "50",
		"--workers", "2",
		"--log-level", "error",
		"--color", "never",
		"--chart-path", chart,
		"--metrics-path", prom,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Training summary")
	assert.Contains(t, out, "Policy at 2 steps remaining (Economy)")
	assert.NotContains(t, out, "\x1b[")

	html, err := os.ReadFile(chart)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Revenue per episode")

	metrics, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "farerl_episodes_total 50")
	assert.Contains(t, string(metrics), `farerl_runs_total{status="done"} 1`)
}
