package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/recad/go-engine/internal/measure"
	"github.com/danielpatrickdp/recad/go-engine/internal/pipeline"
)

const fixtureDir = "../../internal/replay/testdata"

// execute runs the CLI with a private store and returns stdout, stderr and the error.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// reportsFromFixture writes the reports of a replay fixture to a standalone report file.
func reportsFromFixture(t *testing.T, name string) (string, string) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(fixtureDir, name+".json"))
	require.NoError(t, err)
	var fx struct {
		Transcript string          `json:"transcript"`
		Reports    json.RawMessage `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(data, &fx))
	path := filepath.Join(t.TempDir(), name+"_reports.json")
	require.NoError(t, os.WriteFile(path, fx.Reports, 0o644))
	return path, fx.Transcript
}

func useTempStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.db")
	t.Setenv("RECAD_STORE_PATH", path)
	return path
}

func TestCatalogJSON(t *testing.T) {
	useTempStore(t)
	out, _, err := execute(t, "", "catalog", "--format", "json")
	require.NoError(t, err)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.NotEmpty(t, entries)
	assert.Equal(t, "chord_cut", entries[0]["name"])
}

func TestCatalogBadFormat(t *testing.T) {
	useTempStore(t)
	_, _, err := execute(t, "", "catalog", "--format", "toml")
	require.Error(t, err)
}

func TestRunCompleteThenInspect(t *testing.T) {
	useTempStore(t)
	reports, transcript := reportsFromFixture(t, "chord_cut_complete")

	out, _, err := execute(t, "", "run", reports, "--transcript", transcript)
	require.NoError(t, err)

	var emitted []pipeline.EmittedFeature
	require.NoError(t, json.Unmarshal([]byte(out), &emitted))
	require.Len(t, emitted, 1)
	assert.Equal(t, "extrude_0", emitted[0].ID)
	assert.Len(t, emitted[0].Sketch.Constraints, 7)

	out, _, err = execute(t, "", "inspect", "--json")
	require.NoError(t, err)
	var rows []listRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "complete", rows[0].Status)
	assert.Equal(t, "chord_cut", rows[0].Pattern)

	out, _, err = execute(t, "", "inspect", "--run", rows[0].RunID, "--json")
	require.NoError(t, err)
	var detail detailOutput
	require.NoError(t, json.Unmarshal([]byte(out), &detail))
	stages := make([]string, len(detail.Stages))
	for i, s := range detail.Stages {
		stages[i] = s.Stage
	}
	assert.Equal(t, []string{"aggregate", "detect", "gate", "synthesize", "eval"}, stages)
	require.NotNil(t, detail.Gate)
	assert.Equal(t, "proceed", detail.Gate.Action)
}

func TestRunHaltOnMissing(t *testing.T) {
	useTempStore(t)
	reports, transcript := reportsFromFixture(t, "chord_cut_needs_input")

	_, errOut, err := execute(t, "", "run", reports, "--transcript", transcript, "--on-missing", "halt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, measure.ErrMissingMeasurement), "got %v", err)
	assert.Contains(t, errOut, "flat-to-flat")
}

func TestRunPromptSuppliesValue(t *testing.T) {
	useTempStore(t)
	reports, transcript := reportsFromFixture(t, "chord_cut_needs_input")

	out, errOut, err := execute(t, "78\n", "run", reports, "--transcript", transcript, "--no-store")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Informe")

	var emitted []pipeline.EmittedFeature
	require.NoError(t, json.Unmarshal([]byte(out), &emitted))
	require.Len(t, emitted, 1)
}

func TestRunWritesOutFile(t *testing.T) {
	useTempStore(t)
	reports, transcript := reportsFromFixture(t, "polar_holes")
	outPath := filepath.Join(t.TempDir(), "out.json")
	metricsPath := filepath.Join(t.TempDir(), "metrics.prom")

	_, _, err := execute(t, "", "run", reports, "--transcript", transcript, "-o", outPath, "--full", "--metrics-file", metricsPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var res struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Equal(t, "complete", res.Status)

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "recad_runs_total")
}

func TestRunBadOnMissing(t *testing.T) {
	useTempStore(t)
	reports, transcript := reportsFromFixture(t, "polar_holes")
	_, _, err := execute(t, "", "run", reports, "--transcript", transcript, "--on-missing", "guess")
	require.Error(t, err)
}

func TestReplayCommand(t *testing.T) {
	useTempStore(t)
	paths, err := filepath.Glob(filepath.Join(fixtureDir, "*.json"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	out, _, err := execute(t, "", append([]string{"replay"}, paths...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "0 failed")
}

func TestLogLevelOverride(t *testing.T) {
	useTempStore(t)
	_, _, err := execute(t, "", "--log-level", "loud", "catalog")
	require.Error(t, err)
}
