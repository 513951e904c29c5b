package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-journal/internal/storage"
	"github.com/pkordes/travel-journal/testutil"
)

// seqOf returns the sequence number of the timer currently armed for id.
func seqOf(t *testing.T, p *LocalPlatform, id uuid.UUID) uint64 {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.timers[id]
	require.True(t, ok, "reminder %s not armed", id)
	return a.seq
}

// TestLocalPlatform_StaleTimerKeepsRescheduledRow fires the timer of a
// replaced reminder; the replacement must stay stored and undelivered.
func TestLocalPlatform_StaleTimerKeepsRescheduledRow(t *testing.T) {
	ctx := context.Background()
	var delivered []Reminder
	p, err := NewLocalPlatform(ctx, testutil.NewLocalDB(t), func(r Reminder) { delivered = append(delivered, r) }, nil)
	require.NoError(t, err)
	defer p.Close()

	id := uuid.New()
	old := Reminder{ID: id, Title: "old", FireAt: time.Now().Add(time.Hour)}
	require.NoError(t, p.Schedule(ctx, old))
	oldSeq := seqOf(t, p, id)

	next := Reminder{ID: id, Title: "new", FireAt: time.Now().Add(2 * time.Hour)}
	require.NoError(t, p.Schedule(ctx, next))

	p.fire(old, oldSeq)

	assert.Empty(t, delivered)
	pending, err := p.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "new", pending[0].Title)
}

// TestLocalPlatform_FireDeliversWhenRowRemovalFails closes the database under
// an armed reminder: it is still delivered and the failure is logged.
func TestLocalPlatform_FireDeliversWhenRowRemovalFails(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewLocalDB(t)
	var logs bytes.Buffer
	var delivered []Reminder
	p, err := NewLocalPlatform(ctx, db, func(r Reminder) { delivered = append(delivered, r) },
		slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, err)
	defer p.Close()

	r := Reminder{ID: uuid.New(), Title: "Zermatt tomorrow", FireAt: time.Now().Add(time.Hour)}
	require.NoError(t, p.Schedule(ctx, r))
	seq := seqOf(t, p, r.ID)

	require.NoError(t, storage.Close(db))
	p.fire(r, seq)

	require.Len(t, delivered, 1)
	assert.Equal(t, r.ID, delivered[0].ID)
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "remove fired reminder")
}
