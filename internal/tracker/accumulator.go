package tracker

// tick applies one minute of usage to appID and takes focus away from every
// other app. It returns the remaining allowance before and after the tick.
func tick(r *Registry, appID string) (before, after int, err error) {
	target, err := r.lookup(appID)
	if err != nil {
		return 0, 0, err
	}

	before = target.DailyGoalMinutes - target.TodayUsageMinutes

	r.each(func(a *TrackedApp) {
		if a.ID != appID {
			deactivate(a)
		}
	})

	target.TodayUsageMinutes++
	target.CurrentSessionMinutes++
	target.IsActive = true

	after = target.DailyGoalMinutes - target.TodayUsageMinutes
	return before, after, nil
}

// endSession moves appID to Inactive. Ending an inactive app is a no-op.
func endSession(r *Registry, appID string) (ended bool, err error) {
	target, err := r.lookup(appID)
	if err != nil {
		return false, err
	}
	if !target.IsActive && target.CurrentSessionMinutes == 0 {
		return false, nil
	}
	deactivate(target)
	return true, nil
}

func deactivate(a *TrackedApp) {
	a.IsActive = false
	a.CurrentSessionMinutes = 0
}

// resetDay zeroes the daily counters and ends every session. Apps used today
// that stayed within their goal are credited before the reset.
func resetDay(r *Registry) DaySummary {
	summary := summarize(r)
	r.each(func(a *TrackedApp) {
		if metGoal(a) {
			a.GoalsMet++
		}
		a.TodayUsageMinutes = 0
		deactivate(a)
	})
	return summary
}
