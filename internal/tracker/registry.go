package tracker

import (
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// TrackedApp is one app whose daily usage is measured against a goal.
// Values handed out by the Tracker are copies; mutating them has no effect.
type TrackedApp struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	Icon                  string `json:"icon,omitempty"`
	Color                 string `json:"color,omitempty"`
	DailyGoalMinutes      int    `json:"daily_goal_minutes"`
	TodayUsageMinutes     int    `json:"today_usage_minutes"`
	CurrentSessionMinutes int    `json:"current_session_minutes"`
	IsActive              bool   `json:"is_active"`
	GoalsMet              int    `json:"goals_met"` // days closed within goal
}

// Registry owns the TrackedApp records. It is not safe for concurrent use;
// the Tracker serializes access to it.
type Registry struct {
	apps   map[string]*TrackedApp
	order  []string
	nextID int
}

func NewRegistry() *Registry {
	return &Registry{apps: make(map[string]*TrackedApp)}
}

// Add validates the input and stores a new inactive app with zeroed counters.
func (r *Registry) Add(name string, dailyGoalMinutes int, icon, color string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", newValidationError("name", "must not be empty")
	}
	if dailyGoalMinutes <= 0 {
		return "", newValidationError("daily_goal_minutes", "must be positive, got "+strconv.Itoa(dailyGoalMinutes))
	}

	r.nextID++
	id := strconv.Itoa(r.nextID)
	r.apps[id] = &TrackedApp{
		ID:               id,
		Name:             name,
		Icon:             icon,
		Color:            normalizeColor(color),
		DailyGoalMinutes: dailyGoalMinutes,
	}
	r.order = append(r.order, id)
	return id, nil
}

// lookup returns the live record for mutation.
func (r *Registry) lookup(id string) (*TrackedApp, error) {
	app, ok := r.apps[id]
	if !ok {
		return nil, &NotFoundError{AppID: id}
	}
	return app, nil
}

func (r *Registry) Get(id string) (TrackedApp, error) {
	app, err := r.lookup(id)
	if err != nil {
		return TrackedApp{}, err
	}
	return *app, nil
}

// List returns copies in insertion order.
func (r *Registry) List() []TrackedApp {
	out := make([]TrackedApp, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.apps[id])
	}
	return out
}

// FindByName returns the first app with the given name, ignoring case.
func (r *Registry) FindByName(name string) (TrackedApp, bool) {
	for _, id := range r.order {
		if strings.EqualFold(r.apps[id].Name, name) {
			return *r.apps[id], true
		}
	}
	return TrackedApp{}, false
}

func (r *Registry) each(fn func(*TrackedApp)) {
	for _, id := range r.order {
		fn(r.apps[id])
	}
}

// normalizeColor canonicalizes hex colors; anything else is kept verbatim
// since color is display metadata only.
func normalizeColor(color string) string {
	c, err := colorful.Hex(strings.TrimSpace(color))
	if err != nil {
		return color
	}
	return c.Hex()
}
