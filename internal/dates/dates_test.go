package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBetween(t *testing.T) {
	cases := []struct {
		name  string
		start time.Time
		end   time.Time
		want  []string
	}{
		{
			name:  "same day",
			start: time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC),
			want:  []string{"2025-01-10"},
		},
		{
			name:  "overnight into the small hours",
			start: time.Date(2025, 1, 10, 22, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 1, 12, 0, 30, 0, 0, time.UTC),
			want:  []string{"2025-01-10", "2025-01-11", "2025-01-12"},
		},
		{
			name:  "month boundary",
			start: time.Date(2025, 1, 31, 20, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 2, 1, 6, 0, 0, 0, time.UTC),
			want:  []string{"2025-01-31", "2025-02-01"},
		},
		{
			name:  "year boundary",
			start: time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC),
			want:  []string{"2024-12-31", "2025-01-01"},
		},
		{
			name:  "non-UTC inputs are normalized",
			start: time.Date(2025, 1, 11, 1, 0, 0, 0, time.FixedZone("PHT", 8*3600)),
			end:   time.Date(2025, 1, 11, 9, 0, 0, 0, time.FixedZone("PHT", 8*3600)),
			want:  []string{"2025-01-10", "2025-01-11"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Between(tc.start, tc.end))
		})
	}
}

func TestDayOf(t *testing.T) {
	got := DayOf(time.Date(2025, 1, 10, 23, 59, 59, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), got)

	// 01:00 PHT on the 11th is still the 10th in UTC.
	pht := time.FixedZone("PHT", 8*3600)
	got = DayOf(time.Date(2025, 1, 11, 1, 0, 0, 0, pht))
	assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), got)
}
