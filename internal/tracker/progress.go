package tracker

import "fmt"

// Progress bundles every reporter value for one app.
type Progress struct {
	AppID            string  `json:"app_id"`
	Percent          float64 `json:"percent"`
	IsOverGoal       bool    `json:"is_over_goal"`
	OverGoalMinutes  int     `json:"over_goal_minutes"`
	RemainingMinutes int     `json:"remaining_minutes"`
}

func checkGoal(app TrackedApp) error {
	if app.DailyGoalMinutes <= 0 {
		return &InvariantError{AppID: app.ID, Message: fmt.Sprintf("daily goal must be positive, got %d", app.DailyGoalMinutes)}
	}
	return nil
}

// ProgressPercent is usage as a share of the goal, clamped at 100.
func ProgressPercent(app TrackedApp) (float64, error) {
	if err := checkGoal(app); err != nil {
		return 0, err
	}
	pct := 100 * float64(app.TodayUsageMinutes) / float64(app.DailyGoalMinutes)
	return min(100, pct), nil
}

func IsOverGoal(app TrackedApp) (bool, error) {
	if err := checkGoal(app); err != nil {
		return false, err
	}
	return app.TodayUsageMinutes > app.DailyGoalMinutes, nil
}

func OverGoalMinutes(app TrackedApp) (int, error) {
	if err := checkGoal(app); err != nil {
		return 0, err
	}
	return max(0, app.TodayUsageMinutes-app.DailyGoalMinutes), nil
}

// RemainingMinutes goes negative once over goal; callers clamp if they need to.
func RemainingMinutes(app TrackedApp) (int, error) {
	if err := checkGoal(app); err != nil {
		return 0, err
	}
	return app.DailyGoalMinutes - app.TodayUsageMinutes, nil
}

// Report computes all reporter values at once.
func Report(app TrackedApp) (Progress, error) {
	if err := checkGoal(app); err != nil {
		return Progress{}, err
	}
	pct, _ := ProgressPercent(app)
	over, _ := IsOverGoal(app)
	overMin, _ := OverGoalMinutes(app)
	remaining, _ := RemainingMinutes(app)
	return Progress{
		AppID:            app.ID,
		Percent:          pct,
		IsOverGoal:       over,
		OverGoalMinutes:  overMin,
		RemainingMinutes: remaining,
	}, nil
}

// FormatGoal renders a goal the way the goal picker shows it,
// e.g. "45 min", "2 hour", "1 hour 30 min".
func FormatGoal(minutes int) string {
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%d min", m)
	case m == 0:
		return fmt.Sprintf("%d hour", h)
	default:
		return fmt.Sprintf("%d hour %d min", h, m)
	}
}

// DaySummary counts how many of the apps used today are within their goal.
// Apps with no usage are left out.
type DaySummary struct {
	GoalsHit   int      `json:"goals_hit"`
	GoalsTotal int      `json:"goals_total"`
	OverGoal   []string `json:"over_goal,omitempty"` // app names
}

func (s DaySummary) String() string {
	return fmt.Sprintf("You hit %d/%d goals today!", s.GoalsHit, s.GoalsTotal)
}

func summarize(r *Registry) DaySummary {
	var s DaySummary
	r.each(func(a *TrackedApp) {
		if a.TodayUsageMinutes == 0 {
			return
		}
		s.GoalsTotal++
		if metGoal(a) {
			s.GoalsHit++
		} else {
			s.OverGoal = append(s.OverGoal, a.Name)
		}
	})
	return s
}

// metGoal reports whether a was opened today and stayed within its goal.
func metGoal(a *TrackedApp) bool {
	return a.TodayUsageMinutes > 0 && a.TodayUsageMinutes <= a.DailyGoalMinutes
}
