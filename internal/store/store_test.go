package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idmasse/mappingbot/internal/pipeline"
)

func TestSaveAndListRuns(t *testing.T) {
	st, err := New(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer st.Close()

	started := time.Now().Add(-time.Minute)
	summary := &pipeline.RunSummary{
		RunID:   "run-1",
		Profile: "hybrid",
		Scope:   "run",
		Brands:  2,
		Totals: pipeline.Totals{
			Collected:  40,
			Attempted:  40,
			Approved:   38,
			Failed:     2,
			ChunksSent: 2,
		},
		StartedAt:  started,
		FinishedAt: time.Now(),
	}

	require.NoError(t, st.SaveRun(summary))

	runs, err := st.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, "hybrid", runs[0].Profile)
	assert.Equal(t, 38, runs[0].Approved)
	assert.Equal(t, 2, runs[0].Failed)
}

func TestRecentRunsOrdersNewestFirst(t *testing.T) {
	st, err := New(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer st.Close()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, st.SaveRun(&pipeline.RunSummary{
			RunID:     id,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := st.RecentRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "mid", runs[1].ID)
}
