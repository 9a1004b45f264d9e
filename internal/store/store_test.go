package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"rgehrsitz/draftcheck/internal/facts"
	"rgehrsitz/draftcheck/internal/rules"
	"rgehrsitz/draftcheck/internal/runtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func verdict(runID string, final runtime.Final) *runtime.Verdict {
	return &runtime.Verdict{
		RunID:     runID,
		Final:     final,
		Reasons:   []runtime.Outcome{{RuleID: 201, Result: "Miễn gọi nhập ngũ", Category: rules.CategoryExempt, Source: "Phụ lục II"}},
		Rounds:    2,
		Converged: true,
		Catalog:   "fp",
		Facts:     map[string]facts.Value{"age": 20.0},
	}
}

func TestRecordAndGet(t *testing.T) {
	s := openTestStore(t)
	fixed := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	ctx := context.Background()
	require.NoError(t, s.Record(ctx, "subject-1", verdict("run-1", runtime.FinalExempt)))

	rec, err := s.Get(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, "subject-1", rec.SubjectID)
	assert.Equal(t, "fp", rec.Catalog)
	assert.Equal(t, runtime.FinalExempt, rec.Final)
	assert.True(t, fixed.Equal(rec.CreatedAt))
	require.NotNil(t, rec.Verdict)
	assert.Equal(t, runtime.FinalExempt, rec.Verdict.Final)
	assert.Equal(t, "Miễn gọi nhập ngũ", rec.Verdict.Reasons[0].Result)
	assert.Equal(t, 20.0, rec.Verdict.Facts["age"])
}

func TestGet_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecord_DuplicateRunID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, "", verdict("run-1", runtime.FinalExempt)))
	assert.Error(t, s.Record(ctx, "", verdict("run-1", runtime.FinalEligible)), "The audit log is append-only")
}

func TestListBySubject(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		at := base.Add(time.Duration(i) * time.Minute)
		s.now = func() time.Time { return at }
		require.NoError(t, s.Record(ctx, "subject-1", verdict(id, runtime.FinalEligible)))
	}
	s.now = func() time.Time { return base }
	require.NoError(t, s.Record(ctx, "subject-2", verdict("run-x", runtime.FinalDeferred)))

	records, err := s.ListBySubject(ctx, "subject-1", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "run-c", records[0].RunID, "Newest first")
	assert.Equal(t, "run-b", records[1].RunID)

	records, err = s.ListBySubject(ctx, "nobody", 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}
