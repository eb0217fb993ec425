package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletedAtFor(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	earlier := now.Add(-48 * time.Hour)

	got := CompletedAtFor(StatusInProgress, StatusCompleted, nil, now)
	require.NotNil(t, got)
	assert.Equal(t, now, *got)

	// staying completed keeps the original stamp
	got = CompletedAtFor(StatusCompleted, StatusCompleted, &earlier, now)
	require.NotNil(t, got)
	assert.Equal(t, earlier, *got)

	// leaving completed clears it
	assert.Nil(t, CompletedAtFor(StatusCompleted, StatusInProgress, &earlier, now))
	assert.Nil(t, CompletedAtFor(StatusPending, StatusRejected, nil, now))
}

func TestEffectivePriority(t *testing.T) {
	assert.Equal(t, PriorityEmergency, EffectivePriority(true, PriorityLow))
	assert.Equal(t, PriorityEmergency, EffectivePriority(true, ""))
	assert.Equal(t, PriorityHigh, EffectivePriority(false, PriorityHigh))
	assert.Equal(t, PriorityMedium, EffectivePriority(false, ""))
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	created := now.Add(-4*24*time.Hour - time.Hour)
	three, five := 3, 5

	assert.Equal(t, 4, DaysSince(created, now))
	assert.True(t, IsOverdue(StatusPending, created, &three, now))
	assert.True(t, IsOverdue(StatusInProgress, created, &three, now))
	assert.False(t, IsOverdue(StatusPending, created, &five, now))
	assert.False(t, IsOverdue(StatusCompleted, created, &three, now))
	assert.False(t, IsOverdue(StatusPending, created, nil, now))
}

func TestDaysSince_FutureCreatedAt(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 0, DaysSince(now.Add(time.Hour), now))
}

func TestNewReferenceNumber(t *testing.T) {
	now := time.Date(2024, 1, 2, 23, 0, 0, 0, time.UTC)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		ref, err := NewReferenceNumber(now)
		require.NoError(t, err)
		assert.True(t, IsReferenceNumber(ref), ref)
		assert.Equal(t, "ISS-20240102-", ref[:13])
		assert.False(t, seen[ref])
		seen[ref] = true
	}
	assert.False(t, IsReferenceNumber("ISS-2024-ABC"))
	assert.False(t, IsReferenceNumber("ISS-20240102-0000OOOO"))
}

func TestParseStatusAndPriority(t *testing.T) {
	st, ok := ParseStatus("Ολοκληρώθηκε")
	assert.True(t, ok)
	assert.Equal(t, StatusCompleted, st)

	st, ok = ParseStatus("in_progress")
	assert.True(t, ok)
	assert.Equal(t, StatusInProgress, st)

	_, ok = ParseStatus("done")
	assert.False(t, ok)

	p, ok := ParsePriority("Επείγουσα")
	assert.True(t, ok)
	assert.Equal(t, PriorityEmergency, p)
	assert.Equal(t, "Χαμηλή", PriorityLow.Label())
	assert.Equal(t, "Σε εξέλιξη", StatusInProgress.Label())
}
