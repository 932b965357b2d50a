package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		start     time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "gateway start date",
			start:     time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "zero start falls back to now",
			start:     time.Time{},
			wantStart: now,
			wantEnd:   now.Add(30 * 24 * time.Hour),
		},
		{
			name:      "year transition",
			start:     time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := SubscriptionWindow(tt.start, now)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestAdExpiryAndHighlight(t *testing.T) {
	now := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC), AdExpiry(now))
	assert.Equal(t, time.Date(2025, 2, 8, 8, 0, 0, 0, time.UTC), HighlightUntil(now))
}

func TestEndsWithin(t *testing.T) {
	now := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	assert.True(t, EndsWithin(now.Add(12*time.Hour), now, day))
	assert.True(t, EndsWithin(now.Add(day), now, day))
	assert.False(t, EndsWithin(now.Add(day+time.Second), now, day))
	assert.False(t, EndsWithin(now.Add(-time.Hour), now, day))
}

func TestCurrentWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		name      string
		start     time.Time
		wantStart time.Time
	}{
		{
			name:      "window still open",
			start:     now.Add(-5 * day),
			wantStart: now.Add(-5 * day),
		},
		{
			name:      "rolls past finished windows",
			start:     now.Add(-65 * day),
			wantStart: now.Add(-5 * day),
		},
		{
			name:      "window ending exactly now is finished",
			start:     now.Add(-30 * day),
			wantStart: now,
		},
		{
			name:      "zero start",
			start:     time.Time{},
			wantStart: now,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := CurrentWindow(tt.start, now)
			assert.Equal(t, tt.wantStart, from)
			assert.Equal(t, tt.wantStart.Add(30*day), to)
			assert.True(t, to.After(now))
		})
	}
}
