package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"screentime/internal/config"
	"screentime/internal/ipc"
	"screentime/internal/tracker"
)

var (
	cfgPath    string
	dbPath     string
	socketPath string
)

var rootCmd = &cobra.Command{
	Use:   "screentime-cli",
	Short: "CLI tool to interact with the screentime daemon",
	Long:  `A command-line interface to manage tracked apps, drive sessions and read progress from the running screentime daemon via its Unix socket.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetFlags(0)
		if dbPath != "" && socketPath != "" {
			return
		}
		// Config loading is chatty; the CLI only wants the paths
		log.SetOutput(io.Discard)
		cfg, err := config.LoadConfig(cfgPath)
		log.SetOutput(os.Stderr)
		if err != nil {
			log.Printf("Warning: could not load config (%v), using defaults", err)
			cfg = &config.Config{DatabasePath: "screentime.db", SocketPath: ipc.DefaultSocketPath}
		}
		if dbPath == "" {
			dbPath = cfg.DatabasePath
		}
		if socketPath == "" {
			socketPath = cfg.SocketPath
		}
	},
}

// request sends cmd and exits on transport or daemon errors.
func request(cmd ipc.Command) ipc.Response {
	resp, err := ipc.Send(socketPath, cmd)
	if err != nil {
		log.Fatalf("%v\nIs the screentime daemon running?", err)
	}
	if !resp.Success {
		if resp.ErrorKind != "" {
			fmt.Fprintf(os.Stderr, "Error (%s): %s\n", resp.ErrorKind, resp.Message)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", resp.Message)
		}
		os.Exit(1)
	}
	return resp
}

// sendCommand prints the daemon's message and any data as JSON.
func sendCommand(cmd ipc.Command) {
	resp := request(cmd)
	fmt.Println("Success:", resp.Message)
	if resp.Data != nil {
		prettyData, err := json.MarshalIndent(resp.Data, "", "  ")
		if err == nil {
			fmt.Println("Data:")
			fmt.Println(string(prettyData))
		} else {
			fmt.Println("Data (raw):", resp.Data)
		}
	}
}

func decodeInto(resp ipc.Response, out interface{}) {
	if err := ipc.DecodeData(resp.Data, out); err != nil {
		log.Fatalf("Error decoding response: %v", err)
	}
}

// cell pads or truncates s to width display columns.
func cell(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

func printApps(apps []tracker.TrackedApp) {
	fmt.Println(cell("ID", 4), cell("NAME", 16), cell("GOAL", 16), cell("TODAY", 8), cell("SESSION", 8), cell("ACTIVE", 7), "GOALS MET")
	for _, a := range apps {
		active := ""
		if a.IsActive {
			active = "yes"
		}
		fmt.Println(
			cell(a.ID, 4),
			cell(a.Name, 16),
			cell(tracker.FormatGoal(a.DailyGoalMinutes), 16),
			cell(fmt.Sprintf("%d min", a.TodayUsageMinutes), 8),
			cell(fmt.Sprintf("%d min", a.CurrentSessionMinutes), 8),
			cell(active, 7),
			humanize.Comma(int64(a.GoalsMet)),
		)
	}
}

// --- Command Definitions ---

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check if the screentime daemon is running",
	Run: func(cmd *cobra.Command, args []string) {
		sendCommand(ipc.Command{Name: ipc.CmdPing})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active app and simulated run state",
	Run: func(cmd *cobra.Command, args []string) {
		var status ipc.StatusData
		decodeInto(request(ipc.Command{Name: ipc.CmdGetStatus}), &status)

		active := status.ActiveAppID
		if active == "" {
			active = "none"
		}
		fmt.Printf("Apps tracked: %d\n", status.Apps)
		fmt.Printf("Active app:   %s\n", active)
		fmt.Printf("Run:          %s", status.RunState)
		if status.RunID != "" {
			fmt.Printf(" (app %s, %.0fs left, id %s)", status.RunAppID, status.RunRemainingSecs, status.RunID)
		}
		fmt.Println()
	},
}

// App Command Group
var appCmd = &cobra.Command{
	Use:   "app",
	Short: "Manage tracked apps",
}

var appAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Start tracking an app with a daily goal",
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("name")
		goal, _ := cmd.Flags().GetInt("goal")
		icon, _ := cmd.Flags().GetString("icon")
		color, _ := cmd.Flags().GetString("color")
		sendCommand(ipc.Command{
			Name: ipc.CmdAddApp,
			Args: ipc.AddAppArgs{Name: name, DailyGoalMinutes: goal, Icon: icon, Color: color},
		})
	},
}

var appListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked apps in insertion order",
	Run: func(cmd *cobra.Command, args []string) {
		var apps []tracker.TrackedApp
		decodeInto(request(ipc.Command{Name: ipc.CmdListApps}), &apps)
		if len(apps) == 0 {
			fmt.Println("No apps tracked yet.")
			return
		}
		printApps(apps)
	},
}

var appShowCmd = &cobra.Command{
	Use:   "show <app-id>",
	Short: "Show one tracked app",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var a tracker.TrackedApp
		decodeInto(request(ipc.Command{Name: ipc.CmdGetApp, Args: ipc.AppArgs{AppID: args[0]}}), &a)
		printApps([]tracker.TrackedApp{a})
	},
}

var tickCmd = &cobra.Command{
	Use:   "tick <app-id>",
	Short: "Record one minute of foreground use",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sendCommand(ipc.Command{Name: ipc.CmdTick, Args: ipc.AppArgs{AppID: args[0]}})
	},
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Control usage sessions",
}

var sessionEndCmd = &cobra.Command{
	Use:   "end <app-id>",
	Short: "End the current session of an app",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sendCommand(ipc.Command{Name: ipc.CmdEndSession, Args: ipc.AppArgs{AppID: args[0]}})
	},
}

// Run Command Group
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate foreground use of an app for a while",
}

var runStartCmd = &cobra.Command{
	Use:   "start <app-id>",
	Short: "Tick an app on every collector interval until the run ends",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		duration, _ := cmd.Flags().GetString("duration")
		sendCommand(ipc.Command{
			Name: ipc.CmdStartRun,
			Args: ipc.StartRunArgs{AppID: args[0], Duration: duration},
		})
	},
}

var runStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the current run and end its session",
	Run: func(cmd *cobra.Command, args []string) {
		sendCommand(ipc.Command{Name: ipc.CmdStopRun})
	},
}

var dayCmd = &cobra.Command{
	Use:   "day",
	Short: "Day boundary operations",
}

var dayResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Zero today's usage for every app now",
	Run: func(cmd *cobra.Command, args []string) {
		resp := request(ipc.Command{Name: ipc.CmdResetDay})
		fmt.Println(resp.Message)
	},
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Show the most recent threshold notifications",
	Run: func(cmd *cobra.Command, args []string) {
		var notes []tracker.Notification
		decodeInto(request(ipc.Command{Name: ipc.CmdListNotifications}), &notes)
		if len(notes) == 0 {
			fmt.Println("No notifications.")
			return
		}
		for _, n := range notes {
			fmt.Printf("%s  %s\n", cell(humanize.Time(n.CreatedAt), 16), n.Message())
		}
	},
}

var progressCmd = &cobra.Command{
	Use:   "progress [app-id]",
	Short: "Show progress towards daily goals",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var all []ipc.AppProgress
		if len(args) == 1 {
			var one ipc.AppProgress
			decodeInto(request(ipc.Command{Name: ipc.CmdGetProgress, Args: ipc.AppArgs{AppID: args[0]}}), &one)
			all = append(all, one)
		} else {
			decodeInto(request(ipc.Command{Name: ipc.CmdGetProgress}), &all)
		}
		for _, p := range all {
			status := fmt.Sprintf("%d min left", p.Progress.RemainingMinutes)
			if p.Progress.IsOverGoal {
				status = fmt.Sprintf("%d min over", p.Progress.OverGoalMinutes)
			}
			fmt.Printf("%s %s %5.1f%%  %s\n", cell(p.App.Name, 16), progressBar(p.Progress.Percent, 20), p.Progress.Percent, status)
		}
	},
}

func progressBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show how many apps are within their goal today",
	Run: func(cmd *cobra.Command, args []string) {
		var s tracker.DaySummary
		decodeInto(request(ipc.Command{Name: ipc.CmdGetSummary}), &s)
		fmt.Println(s.String())
		if len(s.OverGoal) > 0 {
			fmt.Println("Over goal:", strings.Join(s.OverGoal, ", "))
		}
	},
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the screentime database file (default: loaded from config or 'screentime.db')")
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "", "Path to the daemon socket (default: loaded from config or '"+ipc.DefaultSocketPath+"')")

	// --- App Commands ---
	appAddCmd.Flags().StringP("name", "n", "", "App name (required)")
	appAddCmd.Flags().IntP("goal", "g", 0, "Daily goal in minutes (required)")
	appAddCmd.Flags().String("icon", "", "Icon name")
	appAddCmd.Flags().String("color", "", "Display color, e.g. '#E1306C'")
	appAddCmd.MarkFlagRequired("name")
	appAddCmd.MarkFlagRequired("goal")
	appCmd.AddCommand(appAddCmd, appListCmd, appShowCmd)
	rootCmd.AddCommand(appCmd)

	sessionCmd.AddCommand(sessionEndCmd)
	rootCmd.AddCommand(sessionCmd)

	// --- Run Commands ---
	runStartCmd.Flags().StringP("duration", "d", "", "Run length (e.g., '30s', '2m'); defaults to the daemon's max_run_seconds")
	runCmd.AddCommand(runStartCmd, runStopCmd)
	rootCmd.AddCommand(runCmd)

	dayCmd.AddCommand(dayResetCmd)
	rootCmd.AddCommand(dayCmd)

	// --- Report Commands ---
	reportUsageCmd.Flags().IntP("days", "d", 7, "Number of past days to include in the report")
	reportEventsCmd.Flags().IntP("days", "d", 1, "Number of past days to include")
	reportEventsCmd.Flags().StringSliceP("type", "t", nil, "Only show these event types (e.g. notification,day_reset)")
	reportCmd.AddCommand(reportUsageCmd, reportEventsCmd)
	rootCmd.AddCommand(reportCmd)

	// --- Other Commands ---
	rootCmd.AddCommand(pingCmd, statusCmd, tickCmd, notificationsCmd, progressCmd, summaryCmd, dashboardCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}
