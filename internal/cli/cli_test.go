package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	config, shouldExit, err := Parse([]string{"plans/weekly.hcl"}, out)
	require.NoError(t, err)
	require.False(t, shouldExit)

	require.Equal(t, "plans/weekly.hcl", config.PlanPath)
	require.Empty(t, config.Trainer)
	require.Empty(t, config.Tester)
	require.Equal(t, 1, config.WorkerCount, "sequential by default")
	require.Equal(t, "json", config.LogFormat)
	require.Equal(t, "info", config.LogLevel)
	require.True(t, config.Watch)
	require.False(t, config.DryRun)
	require.False(t, config.ValidateOnly)
}

func TestParse_AllFlags(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	config, shouldExit, err := Parse([]string{
		"-plan", "plans",
		"-trainer", "python tools/train.py",
		"-tester", "python tools/test.py",
		"-output-root", "/scratch/outputs",
		"-ledger", "state/runs.db",
		"-dry-run",
		"-watch=false",
		"-workers", "2",
		"-log-format", "text",
		"-log-level", "debug",
		"-healthcheck-port", "8080",
	}, out)
	require.NoError(t, err)
	require.False(t, shouldExit)

	require.Equal(t, "plans", config.PlanPath)
	require.Equal(t, []string{"python", "tools/train.py"}, config.Trainer)
	require.Equal(t, []string{"python", "tools/test.py"}, config.Tester)
	require.Equal(t, "/scratch/outputs", config.OutputRoot)
	require.Equal(t, "state/runs.db", config.LedgerPath)
	require.True(t, config.DryRun)
	require.False(t, config.Watch)
	require.Equal(t, 2, config.WorkerCount)
	require.Equal(t, "text", config.LogFormat)
	require.Equal(t, "debug", config.LogLevel)
	require.Equal(t, 8080, config.HealthcheckPort)
}

func TestParse_PlanPathPrecedence(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	config, _, err := Parse([]string{"-p", "short.hcl"}, out)
	require.NoError(t, err)
	require.Equal(t, "short.hcl", config.PlanPath)

	config, _, err = Parse([]string{"-plan", "long.hcl", "positional.hcl"}, out)
	require.NoError(t, err)
	require.Equal(t, "long.hcl", config.PlanPath, "-plan wins over the positional argument")
}

func TestParse_NoPlanPrintsUsage(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	config, shouldExit, err := Parse(nil, out)
	require.NoError(t, err)
	require.True(t, shouldExit)
	require.Nil(t, config)
	require.Contains(t, out.String(), "Usage:")
}

func TestParse_InvalidValues(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{
			name:    "bad log format",
			args:    []string{"-log-format", "xml", "plan.hcl"},
			wantMsg: "invalid log-format",
		},
		{
			name:    "bad log level",
			args:    []string{"-log-level", "verbose", "plan.hcl"},
			wantMsg: "invalid log-level",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := &bytes.Buffer{}
			_, _, err := Parse(tc.args, out)
			require.Error(t, err)

			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			require.Equal(t, 2, exitErr.Code)
			require.Contains(t, exitErr.Message, tc.wantMsg)
		})
	}
}

func TestParse_WorkersPinnedToOne(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	config, _, err := Parse([]string{"-workers", "0", "plan.hcl"}, out)
	require.NoError(t, err)
	require.Equal(t, 1, config.WorkerCount)
}
