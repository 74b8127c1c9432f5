// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/odis2vcp/pkg/types"
)

// testStore opens a store in a temp dir whose clock advances one minute
// per call.
func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(types.ManifestConfig{Enabled: true, Dir: filepath.Join(t.TempDir(), "manifest")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	s.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Minute)
		return clock
	}
	return s
}

func artifact(i int) types.Artifact {
	return types.Artifact{
		Path:              filepath.Join("out", "17 VCP x.xml"),
		RecordIndex:       i,
		DiagnosticAddress: "17",
		StartAddress:      "0x0",
		ZDCName:           "V03935262CB",
		ZDCVersion:        "0001",
		Size:              2,
	}
}

func TestStore_RunLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.BeginRun(ctx, types.RunInfo{InputPath: "in.xml", Mode: types.ModeStructured, Description: "Leon", OutputDir: "out"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, s.RecordArtifact(ctx, id, artifact(1)))
	require.NoError(t, s.RecordArtifact(ctx, id, artifact(0)))
	require.NoError(t, s.FinishRun(ctx, id, types.RunSummary{Mode: types.ModeStructured, Total: 2, Converted: 2}, nil))

	run, err := s.Run(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "in.xml", run.InputPath)
	assert.Equal(t, types.ModeStructured, run.Mode)
	assert.Equal(t, "Leon", run.Description)
	assert.Equal(t, "out", run.OutputDir)
	assert.Equal(t, StatusCompleted, run.Status)
	assert.Empty(t, run.Error)
	assert.Equal(t, 2, run.Total)
	assert.Equal(t, 2, run.Converted)
	require.NotNil(t, run.FinishedAt)
	assert.True(t, run.FinishedAt.After(run.StartedAt))

	require.Len(t, run.Artifacts, 2)
	assert.Equal(t, 0, run.Artifacts[0].RecordIndex, "artifacts are ordered by record index")
	assert.Equal(t, artifact(1), run.Artifacts[1])
}

func TestStore_FailedRun(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.BeginRun(ctx, types.RunInfo{InputPath: "in.xml", Mode: types.ModeRaw})
	require.NoError(t, err)
	runErr := errors.Join(types.ErrMalformedRecord, errors.New("record #3"))
	require.NoError(t, s.FinishRun(ctx, id, types.RunSummary{Total: 4, Converted: 3}, runErr))

	run, err := s.Run(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, run.Status)
	assert.Contains(t, run.Error, "malformed record")
	assert.Equal(t, 3, run.Converted)
}

func TestStore_FinishUnknownRun(t *testing.T) {
	s := testStore(t)
	err := s.FinishRun(context.Background(), "nope", types.RunSummary{}, nil)
	assert.Error(t, err)

	_, err = s.Run(context.Background(), "nope")
	assert.Error(t, err)
}

func TestStore_FinishAfterCancel(t *testing.T) {
	s := testStore(t)
	id, err := s.BeginRun(context.Background(), types.RunInfo{InputPath: "in.xml", Mode: types.ModeRaw})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.FinishRun(ctx, id, types.RunSummary{}, context.Canceled))

	run, err := s.Run(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, run.Status)
}

func TestStore_RunsNewestFirst(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	var ids []string
	for _, in := range []string{"a.xml", "b.xml", "c.xml"} {
		id, err := s.BeginRun(ctx, types.RunInfo{InputPath: in, Mode: types.ModeRaw})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runs, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, StatusRunning, runs[0].Status)
	assert.Nil(t, runs[0].FinishedAt)

	runs, err = s.Runs(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestStore_ConcurrentArtifacts(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	id, err := s.BeginRun(ctx, types.RunInfo{InputPath: "in.xml", Mode: types.ModeRaw})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.RecordArtifact(ctx, id, artifact(i)))
		}()
	}
	wg.Wait()

	arts, err := s.Artifacts(ctx, id)
	require.NoError(t, err)
	assert.Len(t, arts, 20)
}

func TestStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(types.ManifestConfig{Dir: dir})
	require.NoError(t, err)
	id, err := s.BeginRun(context.Background(), types.RunInfo{InputPath: "in.xml", Mode: types.ModeRaw})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(types.ManifestConfig{Dir: dir})
	require.NoError(t, err)
	defer s.Close()
	run, err := s.Run(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "in.xml", run.InputPath)
}

func TestStore_Export(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.BeginRun(ctx, types.RunInfo{InputPath: "in.xml", Mode: types.ModeRaw, Description: "Leon"})
	require.NoError(t, err)
	require.NoError(t, s.RecordArtifact(ctx, id, artifact(0)))
	require.NoError(t, s.FinishRun(ctx, id, types.RunSummary{Total: 1, Converted: 1}, nil))

	t.Run("yaml", func(t *testing.T) {
		path, err := s.ExportYAML(ctx)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(s.Dir(), "export.yaml"), path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var runs []RunRecord
		require.NoError(t, yaml.Unmarshal(data, &runs))
		require.Len(t, runs, 1)
		assert.Equal(t, id, runs[0].ID)
		require.Len(t, runs[0].Artifacts, 1)
		assert.Equal(t, "V03935262CB", runs[0].Artifacts[0].ZDCName)
	})

	t.Run("json", func(t *testing.T) {
		path, err := s.ExportJSON(ctx)
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var runs []RunRecord
		require.NoError(t, json.Unmarshal(data, &runs))
		require.Len(t, runs, 1)
		assert.Equal(t, "Leon", runs[0].Description)
		assert.Equal(t, 1, runs[0].Converted)
	})
}
