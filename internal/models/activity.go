package models

import (
	"strings"
	"time"

	"github.com/pace-club/internal/types"
)

// Activity is one immutable exercise record fetched from the fitness
// provider. Records are validated at the boundary (see strava package);
// missing numeric fields are zero and contribute nothing to aggregation.
type Activity struct {
	Type           types.ActivityType `json:"type"`
	Name           string             `json:"name,omitempty"`
	Distance       float64            `json:"distance"`
	MovingTime     int64              `json:"moving_time"`
	ElevationGain  float64            `json:"total_elevation_gain"`
	StartDateLocal time.Time          `json:"start_date_local"`
	LocationCity   string             `json:"location_city,omitempty"`
	WorkoutType    *int               `json:"workout_type,omitempty"`
}

// IsRun reports whether the activity counts toward running stats
func (a Activity) IsRun() bool {
	return a.Type == types.ActivityRun
}

// IsTrail reports whether the run counts as a trail run: either the
// provider's trail workout tag or a name containing "trail".
func (a Activity) IsTrail() bool {
	if a.WorkoutType != nil && *a.WorkoutType == types.WorkoutTrail {
		return true
	}
	return strings.Contains(strings.ToLower(a.Name), "trail")
}

// AggregateStats is the derived summary recomputed whenever the activity
// list changes. Recomputing from the same list is deterministic.
type AggregateStats struct {
	TotalDistance float64 `json:"totalDistance"`
	TotalRuns     int     `json:"totalRuns"`
	LongestRun    float64 `json:"longestRun"`
	ElevationGain int     `json:"elevationGain"`
	Pace          string  `json:"pace"`
	BestTime      string  `json:"bestTime"`
	BestBucket    string  `json:"bestBucket"`
	Metro         string  `json:"metro"`
}

// Badge is a derived label+icon pair summarizing a notable pattern
type Badge struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

// RecentRun is the display form of one recent activity
type RecentRun struct {
	Distance float64 `json:"distance"`
	Time     string  `json:"time"`
	Pace     string  `json:"pace"`
	Ago      string  `json:"ago"`
}
