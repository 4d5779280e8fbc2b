// Package testutil provides the shared harness for integration tests: a
// temporary workspace with plan and config files, a stub trainer script, and
// captured log output.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pclab/shaperun/internal/app"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// ValidConfigYAML is a minimal experiment configuration that passes every
// validation check.
const ValidConfigYAML = `
TASK: classification
MODEL:
  TYPE: PN2SSG
INPUT:
  NUM_POINTS: 1024
DATASET:
  TYPE: ShapeNetH5
  NUM_CLASSES: 16
  ROOT_DIR: data/shapenet_hdf5
  TRAIN: [train, val]
  TEST: [test]
SOLVER:
  TYPE: Adam
  MAX_EPOCH: 200
  BASE_LR: 0.001
SCHEDULER:
  TYPE: MultiStepLR
  GAMMA: 0.5
  MultiStepLR:
    MILESTONES: [20, 40, 60, 80, 100, 120]
TRAIN:
  BATCH_SIZE: 32
TEST:
  BATCH_SIZE: 32
`

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	Dir       string
}

// RunIntegrationTest writes the given files into a temporary workspace,
// builds an App from the config, and runs it to completion. File contents
// and string config fields may reference the workspace root as ${DIR}; the
// harness substitutes the real path before anything runs.
func RunIntegrationTest(t *testing.T, files map[string]string, config app.Config) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	expand := func(s string) string { return strings.ReplaceAll(s, "${DIR}", tmpDir) }

	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		require.NoError(t, os.WriteFile(filePath, []byte(expand(content)), 0644))
	}

	if config.PlanPath == "" {
		config.PlanPath = tmpDir
	} else {
		config.PlanPath = filepath.Join(tmpDir, config.PlanPath)
	}
	config.LedgerPath = expand(config.LedgerPath)
	config.OutputRoot = expand(config.OutputRoot)
	if config.LogLevel == "" {
		config.LogLevel = "debug"
	}
	if config.LogFormat == "" {
		config.LogFormat = "text"
	}

	appConfig, err := app.NewConfig(config)
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}

	var harness *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				if os.Getenv("SHAPERUN_TEST_LOGS") == "true" {
					t.Logf("--- HARNESS RECOVERED PANIC ---\n%q", fmt.Sprintf("%v", r))
				}
				panicErr = r
			}
		}()
		harness = app.NewApp(logBuffer, appConfig)
	}()

	if panicErr != nil {
		return &HarnessResult{
			LogOutput: logBuffer.String(),
			Err:       fmt.Errorf("application startup panicked | %v", panicErr),
			Dir:       tmpDir,
		}
	}

	runErr := harness.Run(context.Background())

	if os.Getenv("SHAPERUN_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		Dir:       tmpDir,
	}
}

// StubTrainerScript returns a shell script that records each call's argv to
// callLog (one line per call) and writes a checkpoint tag into the
// invocation's OUTPUT_DIR. Extra shell lines can be appended via tail.
func StubTrainerScript(callLog string, tail string) string {
	return `#!/bin/sh
out=""
prev=""
for a in "$@"; do
	if [ "$prev" = "OUTPUT_DIR" ]; then out="$a"; fi
	prev="$a"
done
echo "$@" >> "` + callLog + `"
if [ -n "$out" ]; then printf 'model_final.pth' > "$out/last_checkpoint"; fi
` + tail
}

// WriteStubTrainer installs an executable stub trainer in dir and returns
// its absolute path.
func WriteStubTrainer(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}
