// Package aggregate computes running statistics, badges, and recent-run
// views from activity records. All computations are pure: the same input
// list always produces the same output, and malformed records contribute
// zero rather than aborting the pass.
package aggregate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/pace-club/internal/models"
)

const metersPerMile = 1609.34

// Sentinel is the display value for stats that cannot be computed
const Sentinel = "-"

// maxBadges caps the badge list regardless of how many qualify
const maxBadges = 3

// Summary is the full derived view over an activity list
type Summary struct {
	Stats  models.AggregateStats `json:"stats"`
	Badges []models.Badge        `json:"badges"`
	Cities []string              `json:"cities"`
}

// Summarize performs one linear pass over the activity list and derives
// stats and badges. Only "Run" activities count; metro is copied from the
// athlete profile.
func Summarize(activities []models.Activity, metro string) Summary {
	stats := models.AggregateStats{
		Pace:     Sentinel,
		BestTime: Sentinel,
		Metro:    Sentinel,
	}
	if metro != "" {
		stats.Metro = metro
	}

	var (
		elevation        float64
		totalPaceSeconds float64
		paceCount        int
		trailRuns        int
		roadRuns         int
		timeBuckets      = make(map[string]int)
		citySet          = make(map[string]struct{})
	)

	for _, act := range activities {
		if !act.IsRun() {
			continue
		}
		stats.TotalRuns++

		miles := act.Distance / metersPerMile
		stats.TotalDistance += miles
		if miles > stats.LongestRun {
			stats.LongestRun = miles
		}
		elevation += act.ElevationGain

		if act.MovingTime > 0 && miles > 0 {
			totalPaceSeconds += float64(act.MovingTime) / miles
			paceCount++
		}

		if !act.StartDateLocal.IsZero() {
			timeBuckets[Bucket15(act.StartDateLocal)]++
		}

		if act.LocationCity != "" {
			citySet[act.LocationCity] = struct{}{}
		}
		if act.IsTrail() {
			trailRuns++
		} else {
			roadRuns++
		}
	}

	stats.ElevationGain = int(math.Round(elevation))
	stats.Pace = FormatPace(totalPaceSeconds, paceCount)
	stats.BestBucket = bestBucket(timeBuckets)
	stats.BestTime = formatClock(stats.BestBucket)

	cities := make([]string, 0, len(citySet))
	for city := range citySet {
		cities = append(cities, city)
	}
	sort.Strings(cities)

	return Summary{
		Stats:  stats,
		Badges: deriveBadges(trailRuns, roadRuns, stats.LongestRun, len(citySet), stats.Pace),
		Cities: cities,
	}
}

// deriveBadges evaluates badges in fixed priority order, capped at three:
// surface preference, longest run, distinct cities, average pace as filler.
func deriveBadges(trailRuns, roadRuns int, longestRun float64, cityCount int, pace string) []models.Badge {
	var badges []models.Badge

	// Surface badge only on a strict, nonzero majority; a tie yields none.
	if trailRuns > roadRuns && trailRuns > 0 {
		badges = append(badges, models.Badge{Label: "Trail Lover", Icon: "🌲"})
	} else if roadRuns > trailRuns && roadRuns > 0 {
		badges = append(badges, models.Badge{Label: "Road Warrior", Icon: "🛣️"})
	}

	if longestRun > 0 {
		badges = append(badges, models.Badge{
			Label: fmt.Sprintf("Longest Run: %.1f mi", longestRun),
			Icon:  "🏃‍♀️",
		})
	}

	if cityCount > 1 {
		badges = append(badges, models.Badge{
			Label: fmt.Sprintf("Cities Run: %d", cityCount),
			Icon:  "🌎",
		})
	}

	if len(badges) < maxBadges && pace != Sentinel && pace != "" {
		badges = append(badges, models.Badge{
			Label: fmt.Sprintf("Avg Pace: %s", pace),
			Icon:  "⏱️",
		})
	}

	if len(badges) > maxBadges {
		badges = badges[:maxBadges]
	}
	return badges
}

// RecentRuns returns up to limit runs sorted by start time descending,
// mapped to their display form relative to now.
func RecentRuns(activities []models.Activity, now time.Time, limit int) []models.RecentRun {
	runs := make([]models.Activity, 0, len(activities))
	for _, act := range activities {
		if act.IsRun() {
			runs = append(runs, act)
		}
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartDateLocal.After(runs[j].StartDateLocal)
	})
	if len(runs) > limit {
		runs = runs[:limit]
	}

	recent := make([]models.RecentRun, 0, len(runs))
	for _, run := range runs {
		miles := run.Distance / metersPerMile
		recent = append(recent, models.RecentRun{
			Distance: math.Round(miles*10) / 10,
			Time:     FormatDuration(run.MovingTime),
			Pace:     runPace(run.MovingTime, miles),
			Ago:      RelativeAge(run.StartDateLocal, now),
		})
	}
	return recent
}

// FormatPace formats accumulated per-mile seconds as "M:SS/mi", or the
// sentinel when no run contributed a pace.
func FormatPace(totalPaceSeconds float64, paceCount int) string {
	if paceCount == 0 {
		return Sentinel
	}
	avg := totalPaceSeconds / float64(paceCount)
	min := int(avg) / 60
	sec := int(math.Round(math.Mod(avg, 60)))
	if sec == 60 {
		min++
		sec = 0
	}
	return fmt.Sprintf("%d:%02d/mi", min, sec)
}

// runPace formats a single run's pace, or the sentinel for zero distance
// or missing duration.
func runPace(movingTime int64, miles float64) string {
	if movingTime <= 0 || miles <= 0 {
		return Sentinel
	}
	return FormatPace(float64(movingTime)/miles, 1)
}

// FormatDuration formats a duration in seconds as "M:SS"
func FormatDuration(seconds int64) string {
	if seconds <= 0 {
		return Sentinel
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// Bucket15 rounds a start time to its nearest quarter-hour mark, keyed
// "HH:MM". Minute 60 rolls into the next hour; hour 24 wraps to 00.
func Bucket15(t time.Time) string {
	hour := t.Hour()
	min := int(math.Round(float64(t.Minute())/15)) * 15
	if min == 60 {
		hour++
		min = 0
	}
	if hour == 24 {
		hour = 0
	}
	return fmt.Sprintf("%02d:%02d", hour, min)
}

// bestBucket returns the bucket with the highest tally. Ties break toward
// the earliest bucket so the result is deterministic.
func bestBucket(buckets map[string]int) string {
	best := ""
	bestCount := 0
	for bucket, count := range buckets {
		if count > bestCount || (count == bestCount && bucket < best) {
			bestCount = count
			best = bucket
		}
	}
	return best
}

// formatClock renders an "HH:MM" bucket as a clock time, or the sentinel
// for an empty bucket.
func formatClock(bucket string) string {
	if bucket == "" {
		return Sentinel
	}
	t, err := time.Parse("15:04", bucket)
	if err != nil {
		return Sentinel
	}
	return t.Format("3:04 PM")
}

// RelativeAge renders the age of a run relative to now: "Today", "1d ago",
// "{n}d ago" under a week, "{n}w ago" beyond.
func RelativeAge(start, now time.Time) string {
	days := int(now.Sub(start).Hours() / 24)
	switch {
	case days <= 0:
		return "Today"
	case days == 1:
		return "1d ago"
	case days < 7:
		return fmt.Sprintf("%dd ago", days)
	default:
		return fmt.Sprintf("%dw ago", days/7)
	}
}
