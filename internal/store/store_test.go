package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/impactscan/internal/aggregate"
	"github.com/phobologic/impactscan/internal/effort"
	"github.com/phobologic/impactscan/internal/model"
)

func TestSaveRun(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, err := Open(ctx, filepath.Join(t.TempDir(), "sub", "runs.db"))
	require.NoError(t, err)
	defer s.Close()

	res := aggregate.Result{
		Critical: []model.CriticalRecord{{
			File: "GAPVENDA.mac", ProgramType: "Rotina MAC", Prefix: "GAP", FileClass: model.Official,
			Locator: "45", Terms: []string{"CCLI"}, Category: model.CategoryValidation,
			Pattern: "aritmetica", Rationale: "r", Code: "S TOTAL=CCLI+100",
		}},
		Unclassified: []model.UnclassifiedRecord{{
			File: "CLIX.int", Prefix: "CLI", FileClass: model.Official, Locator: "7",
			Terms: []string{"CCLI"}, Code: "S X=Y",
		}},
	}
	est := effort.Compute(res.Critical, res.Unclassified, effort.DefaultModel(), nil)

	id, err := s.SaveRun(ctx, Inputs{Transcript: "busca.txt", Terms: "termos.csv"}, res, est)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	for table, want := range map[string]int{
		"criticos":          1,
		"descartes":         0,
		"sem_classificacao": 1,
		"precificacao":      len(est.Detail),
	} {
		n, err := s.Count(ctx, table, id)
		require.NoError(t, err)
		assert.Equal(t, want, n, table)
	}

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, "busca.txt", runs[0].Transcript)
	assert.Equal(t, 1, runs[0].Critical)
	assert.Equal(t, est.Summary.TotalWithBuffer, runs[0].TotalWithBuffer)
}

func TestSaveRunTwiceKeepsRunsApart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, err := Open(ctx, filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer s.Close()

	est := effort.Compute(nil, nil, effort.DefaultModel(), nil)
	a, err := s.SaveRun(ctx, Inputs{}, aggregate.Result{}, est)
	require.NoError(t, err)
	b, err := s.SaveRun(ctx, Inputs{}, aggregate.Result{}, est)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	n, err := s.Count(ctx, "precificacao", a)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestCountRejectsUnknownTable(t *testing.T) {
	t.Parallel()

	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Count(context.Background(), "runs; DROP TABLE runs", "x")
	assert.Error(t, err)
}
