package ipc

import (
	"screentime/internal/event"
	"screentime/internal/tracker"
)

const DefaultSocketPath = "/tmp/screentime.sock"

// Command represents a command sent over the socket
type Command struct {
	Name string      `json:"name"`
	Args interface{} `json:"args,omitempty"`
}

// Response represents a response sent back over the socket
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	// ErrorKind is "validation", "not_found" or "invariant" for tracker errors
	ErrorKind string `json:"error_kind,omitempty"`
}

// --- Command Argument Structs ---

type AddAppArgs struct {
	Name             string `json:"name"`
	DailyGoalMinutes int    `json:"daily_goal_minutes"`
	Icon             string `json:"icon"`
	Color            string `json:"color"`
}

// AppArgs addresses a single app by id. Used by get_app, tick, end_session
// and get_progress.
type AppArgs struct {
	AppID string `json:"app_id"`
}

type StartRunArgs struct {
	AppID    string `json:"app_id"`
	Duration string `json:"duration,omitempty"` // e.g. "30s"; empty means the configured maximum
}

// --- Command Names (Constants) ---

const (
	CmdPing              = "ping"
	CmdGetStatus         = "get_status"
	CmdAddApp            = "add_app"
	CmdListApps          = "list_apps"
	CmdGetApp            = "get_app"
	CmdTick              = "tick"
	CmdEndSession        = "end_session"
	CmdStartRun          = "start_run"
	CmdStopRun           = "stop_run"
	CmdResetDay          = "reset_day"
	CmdListNotifications = "list_notifications"
	CmdGetProgress       = "get_progress"
	CmdGetSummary        = "get_summary"
)

// --- Response Data ---

type StatusData struct {
	RunState         event.RunState `json:"run_state"`
	RunID            string         `json:"run_id,omitempty"`
	RunAppID         string         `json:"run_app_id,omitempty"`
	RunRemainingSecs float64        `json:"run_remaining_secs"`
	ActiveAppID      string         `json:"active_app_id,omitempty"`
	Apps             int            `json:"apps"`
}

type TickData struct {
	AppID            string `json:"app_id"`
	RemainingMinutes int    `json:"remaining_minutes"`
}

type RunData struct {
	RunID string `json:"run_id"`
}

// AppProgress pairs an app snapshot with its reporter values, as rendered by
// the dashboard.
type AppProgress struct {
	App      tracker.TrackedApp `json:"app"`
	Progress tracker.Progress   `json:"progress"`
}
