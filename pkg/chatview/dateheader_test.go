package chatview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHeaderLabel(t *testing.T) {
	// Saturday, March 14 2026, noon.
	now := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ts   time.Time
		want string
	}{
		{"same day", now.Add(-2 * time.Hour), "Today"},
		{"local midnight plus one second", time.Date(2026, time.March, 14, 0, 0, 1, 0, time.UTC), "Today"},
		{"previous calendar day", time.Date(2026, time.March, 13, 23, 59, 59, 0, time.UTC), "Yesterday"},
		{"two days ago", time.Date(2026, time.March, 12, 8, 0, 0, 0, time.UTC), "Thursday"},
		{"six days ago", time.Date(2026, time.March, 8, 8, 0, 0, 0, time.UTC), "Sunday"},
		{"seven days ago", time.Date(2026, time.March, 7, 8, 0, 0, 0, time.UTC), "March 7"},
		{"months ago", time.Date(2025, time.December, 25, 8, 0, 0, 0, time.UTC), "December 25"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, headerLabel(tc.ts, now))
		})
	}
}
