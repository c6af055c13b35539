package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/navlens/navlens-cli/internal/findings"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRun() *findings.Run {
	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	runID := uuid.NewString()
	return &findings.Run{
		ID:         runID,
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Targets:    []string{"https://shop.example/", "https://other.example/"},
		Findings: []findings.Finding{
			{
				ID:         uuid.NewString(),
				RunID:      runID,
				ObservedAt: started.Add(10 * time.Second),
				Page:       "https://shop.example/",
				Check:      "touch-target",
				Region:     "primary-nav",
				Severity:   findings.SeverityMinor,
				Message:    "nav control tap height is 18px, below the 44px minimum",
				Selector:   "nav a:nth-child(3)",
				Details:    json.RawMessage(`{"width":80,"height":18}`),
			},
			{
				ID:         uuid.NewString(),
				RunID:      runID,
				ObservedAt: started.Add(20 * time.Second),
				Page:       "https://other.example/",
				Check:      "escape-close",
				Region:     "mobile-nav",
				Severity:   findings.SeverityMajor,
				Message:    "open mobile navigation drawer does not close on Escape",
			},
		},
	}
}

func TestSaveRunRejectsUnknownSeverity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := sampleRun()
	run.Findings[1].Severity = findings.Severity("catastrophic")

	err := s.SaveRun(ctx, run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catastrophic")

	// The transaction rolled back: nothing was persisted.
	_, err = s.GetRun(ctx, run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSaveAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := sampleRun()

	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Targets, got.Targets)
	require.Len(t, got.Findings, 2)

	// Ordered by observation time.
	assert.Equal(t, "touch-target", got.Findings[0].Check)
	assert.Equal(t, "escape-close", got.Findings[1].Check)

	first := got.Findings[0]
	assert.Equal(t, run.ID, first.RunID)
	assert.Equal(t, findings.SeverityMinor, first.Severity)
	assert.Equal(t, "nav a:nth-child(3)", first.Selector)
	assert.JSONEq(t, `{"width":80,"height":18}`, string(first.Details))

	// A finding without details round-trips to empty.
	assert.Empty(t, got.Findings[1].Details)
	assert.Empty(t, got.Findings[1].Selector)
}

func TestGetRunNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRun(context.Background(), "no-such-run")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestLatestRunID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.LatestRunID(ctx)
	assert.ErrorIs(t, err, ErrRunNotFound)

	older := sampleRun()
	newer := sampleRun()
	newer.StartedAt = older.StartedAt.Add(time.Hour)
	newer.Findings = nil
	require.NoError(t, s.SaveRun(ctx, older))
	require.NoError(t, s.SaveRun(ctx, newer))

	id, err := s.LatestRunID(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, id)
}

func TestSaveRunRejectsDuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := sampleRun()

	require.NoError(t, s.SaveRun(ctx, run))
	assert.Error(t, s.SaveRun(ctx, run))
}

func TestEmptyRunRoundTrips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := sampleRun()
	run.Findings = nil

	require.NoError(t, s.SaveRun(ctx, run))
	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Findings)
}
