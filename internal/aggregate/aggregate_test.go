package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pace-club/internal/models"
	"github.com/pace-club/internal/types"
)

func run(distance float64, movingTime int64, opts ...func(*models.Activity)) models.Activity {
	act := models.Activity{
		Type:           types.ActivityRun,
		Distance:       distance,
		MovingTime:     movingTime,
		StartDateLocal: time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC),
	}
	for _, opt := range opts {
		opt(&act)
	}
	return act
}

func withStart(t time.Time) func(*models.Activity) {
	return func(a *models.Activity) { a.StartDateLocal = t }
}

func withCity(city string) func(*models.Activity) {
	return func(a *models.Activity) { a.LocationCity = city }
}

func withName(name string) func(*models.Activity) {
	return func(a *models.Activity) { a.Name = name }
}

func withWorkoutType(wt int) func(*models.Activity) {
	return func(a *models.Activity) { a.WorkoutType = &wt }
}

func TestSummarize_EmptyList(t *testing.T) {
	sum := Summarize(nil, "")

	assert.Equal(t, 0, sum.Stats.TotalRuns)
	assert.Equal(t, 0.0, sum.Stats.TotalDistance)
	assert.Equal(t, 0.0, sum.Stats.LongestRun)
	assert.Equal(t, 0, sum.Stats.ElevationGain)
	assert.Equal(t, Sentinel, sum.Stats.Pace)
	assert.Equal(t, Sentinel, sum.Stats.BestTime)
	assert.Equal(t, Sentinel, sum.Stats.Metro)
	assert.Empty(t, sum.Badges)
	assert.Empty(t, sum.Cities)
}

func TestSummarize_OneMileRun(t *testing.T) {
	// 1 mile in 10 minutes
	sum := Summarize([]models.Activity{run(1609.34, 600)}, "Phoenix")

	assert.InDelta(t, 1.0, sum.Stats.TotalDistance, 1e-9)
	assert.Equal(t, 1, sum.Stats.TotalRuns)
	assert.Equal(t, "10:00/mi", sum.Stats.Pace)
	assert.Equal(t, "Phoenix", sum.Stats.Metro)
}

func TestSummarize_IgnoresNonRuns(t *testing.T) {
	ride := models.Activity{Type: "Ride", Distance: 50000, MovingTime: 7200}
	sum := Summarize([]models.Activity{ride, run(1609.34, 600)}, "")

	assert.Equal(t, 1, sum.Stats.TotalRuns)
	assert.InDelta(t, 1.0, sum.Stats.TotalDistance, 1e-9)
}

func TestSummarize_MalformedRecordsContributeZero(t *testing.T) {
	activities := []models.Activity{
		run(0, 0),         // missing distance and time
		run(1609.34, 0),   // missing time: distance counts, pace does not
		run(0, 600),       // zero distance: no pace accumulation
		run(1609.34, 600), // well formed
	}

	sum := Summarize(activities, "")

	assert.Equal(t, 4, sum.Stats.TotalRuns)
	assert.InDelta(t, 2.0, sum.Stats.TotalDistance, 1e-9)
	// Only the well-formed run accumulates pace
	assert.Equal(t, "10:00/mi", sum.Stats.Pace)
}

func TestSummarize_ElevationRoundedAtEnd(t *testing.T) {
	a := run(1000, 300)
	a.ElevationGain = 10.3
	b := run(1000, 300)
	b.ElevationGain = 10.3

	sum := Summarize([]models.Activity{a, b}, "")
	assert.Equal(t, 21, sum.Stats.ElevationGain) // round(20.6), not round(10.3)*2
}

func TestSummarize_BadgePriorityAndCap(t *testing.T) {
	trail := withWorkoutType(types.WorkoutTrail)
	activities := []models.Activity{
		run(5000, 1800, trail, withCity("Phoenix")),
		run(6000, 2000, withName("Morning trail loop"), withCity("Denver")),
		run(7000, 2400, trail),
		run(3000, 1200), // road
	}

	sum := Summarize(activities, "")

	require.Len(t, sum.Badges, 3)
	assert.Equal(t, "Trail Lover", sum.Badges[0].Label)
	assert.Equal(t, "Longest Run: 4.3 mi", sum.Badges[1].Label)
	assert.Equal(t, "Cities Run: 2", sum.Badges[2].Label)
	// Pace qualified as a fourth badge but the cap holds
	for _, b := range sum.Badges {
		assert.NotContains(t, b.Label, "Avg Pace")
	}
}

func TestSummarize_RoadWarrior(t *testing.T) {
	activities := []models.Activity{
		run(5000, 1800),
		run(6000, 2000),
		run(7000, 2400, withWorkoutType(types.WorkoutTrail)),
	}

	sum := Summarize(activities, "")
	require.NotEmpty(t, sum.Badges)
	assert.Equal(t, "Road Warrior", sum.Badges[0].Label)
}

func TestSummarize_SurfaceTieYieldsNoSurfaceBadge(t *testing.T) {
	activities := []models.Activity{
		run(5000, 1800, withWorkoutType(types.WorkoutTrail)),
		run(6000, 2000),
	}

	sum := Summarize(activities, "")
	for _, b := range sum.Badges {
		assert.NotEqual(t, "Trail Lover", b.Label)
		assert.NotEqual(t, "Road Warrior", b.Label)
	}
}

func TestSummarize_PaceBadgeAsFiller(t *testing.T) {
	sum := Summarize([]models.Activity{run(1609.34, 600)}, "")

	// One road run beats zero trail runs, so the surface badge, the
	// longest-run badge, and the pace filler all emit.
	require.Len(t, sum.Badges, 3)
	assert.Equal(t, "Road Warrior", sum.Badges[0].Label)
	assert.Equal(t, "Longest Run: 1.0 mi", sum.Badges[1].Label)
	assert.Equal(t, "Avg Pace: 10:00/mi", sum.Badges[2].Label)
}

func TestBucket15(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"7 past rounds down", time.Date(2025, 6, 1, 7, 7, 0, 0, time.UTC), "07:00"},
		{"8 past rounds up", time.Date(2025, 6, 1, 7, 8, 0, 0, time.UTC), "07:15"},
		{"53 past rolls the hour", time.Date(2025, 6, 1, 7, 53, 0, 0, time.UTC), "08:00"},
		{"23:53 wraps to midnight", time.Date(2025, 6, 1, 23, 53, 0, 0, time.UTC), "00:00"},
		{"exact mark unchanged", time.Date(2025, 6, 1, 7, 30, 0, 0, time.UTC), "07:30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Bucket15(tt.at))
		})
	}
}

func TestSummarize_BestTimeFromBuckets(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2025, 6, 1, h, m, 0, 0, time.UTC) }
	activities := []models.Activity{
		run(1000, 300, withStart(at(7, 7))),
		run(1000, 300, withStart(at(7, 2))),
		run(1000, 300, withStart(at(18, 30))),
	}

	sum := Summarize(activities, "")
	assert.Equal(t, "07:00", sum.Stats.BestBucket)
	assert.Equal(t, "7:00 AM", sum.Stats.BestTime)
}

func TestFormatPace(t *testing.T) {
	assert.Equal(t, Sentinel, FormatPace(0, 0))
	assert.Equal(t, "10:00/mi", FormatPace(600, 1))
	assert.Equal(t, "9:30/mi", FormatPace(1140, 2))
	// Rounding that lands on 60 seconds carries into the minute
	assert.Equal(t, "10:00/mi", FormatPace(599.7, 1))
}

func TestRecentRuns(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	at := func(daysAgo int) time.Time { return now.AddDate(0, 0, -daysAgo) }

	activities := []models.Activity{
		run(1609.34*2.9, 1865, withStart(at(5))),
		run(1609.34*4.2, 2832, withStart(at(2))),
		run(1609.34*5.0, 3090, withStart(at(9))),
		run(1609.34*1.0, 600, withStart(at(20))),
	}

	recent := RecentRuns(activities, now, 3)

	require.Len(t, recent, 3)
	assert.Equal(t, 4.2, recent[0].Distance)
	assert.Equal(t, "2d ago", recent[0].Ago)
	assert.Equal(t, 2.9, recent[1].Distance)
	assert.Equal(t, "5d ago", recent[1].Ago)
	assert.Equal(t, 5.0, recent[2].Distance)
	assert.Equal(t, "1w ago", recent[2].Ago)

	assert.Equal(t, "47:12", recent[0].Time)
	assert.Equal(t, "11:14/mi", recent[0].Pace)
}

func TestRelativeAge(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		start time.Time
		want  string
	}{
		{now.Add(-2 * time.Hour), "Today"},
		{now.AddDate(0, 0, -1), "1d ago"},
		{now.AddDate(0, 0, -6), "6d ago"},
		{now.AddDate(0, 0, -7), "1w ago"},
		{now.AddDate(0, 0, -15), "2w ago"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RelativeAge(tt.start, now))
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "47:12", FormatDuration(2832))
	assert.Equal(t, "0:59", FormatDuration(59))
	assert.Equal(t, Sentinel, FormatDuration(0))
}
