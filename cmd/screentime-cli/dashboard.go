package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"screentime/internal/ipc"
	"screentime/internal/tracker"
)

var (
	underGoal = colorful.Color{R: 0.30, G: 0.80, B: 0.35}
	atGoal    = colorful.Color{R: 0.90, G: 0.20, B: 0.20}
)

// percentColor blends from green to red as usage approaches the goal.
func percentColor(percent float64) tcell.Color {
	c := underGoal.BlendLab(atGoal, percent/100).Clamped()
	return tcell.GetColor(c.Hex())
}

func appColor(hex string) tcell.Color {
	if c, err := colorful.Hex(hex); err == nil {
		return tcell.GetColor(c.Hex())
	}
	return tcell.ColorDefault
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Live view of usage and notifications",
	Long:  "Live view of usage and notifications. Enter starts a run for the selected app, 's' stops it, 'e' ends its session, 'q' quits.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("dashboard needs an interactive terminal")
		}
		interval, _ := cmd.Flags().GetDuration("refresh")
		return runDashboard(interval)
	},
}

func init() {
	dashboardCmd.Flags().Duration("refresh", time.Second, "Refresh interval")
}

type dashboard struct {
	app    *tview.Application
	table  *tview.Table
	feed   *tview.TextView
	status *tview.TextView
	ids    []string // row-1 -> app id
}

func runDashboard(interval time.Duration) error {
	d := &dashboard{
		app:    tview.NewApplication(),
		table:  tview.NewTable().SetFixed(1, 0).SetSelectable(true, false),
		feed:   tview.NewTextView().SetDynamicColors(true),
		status: tview.NewTextView().SetDynamicColors(true),
	}
	d.table.SetBorder(true).SetTitle(" screentime ")
	d.feed.SetBorder(true).SetTitle(" notifications ")

	d.table.SetSelectedFunc(func(row, _ int) {
		if id, ok := d.selected(row); ok {
			d.send(ipc.Command{Name: ipc.CmdStartRun, Args: ipc.StartRunArgs{AppID: id}})
		}
	})
	d.app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyEscape {
			d.app.Stop()
			return nil
		}
		switch ev.Rune() {
		case 'q':
			d.app.Stop()
			return nil
		case 's':
			d.send(ipc.Command{Name: ipc.CmdStopRun})
			return nil
		case 'e':
			row, _ := d.table.GetSelection()
			if id, ok := d.selected(row); ok {
				d.send(ipc.Command{Name: ipc.CmdEndSession, Args: ipc.AppArgs{AppID: id}})
			}
			return nil
		}
		return ev
	})

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(d.table, 0, 2, true).
		AddItem(d.feed, 8, 0, false).
		AddItem(d.status, 1, 0, false)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			snap := fetchSnapshot()
			d.app.QueueUpdateDraw(func() { d.render(snap) })
			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()

	err := d.app.SetRoot(layout, true).Run()
	close(done)
	return err
}

func (d *dashboard) selected(row int) (string, bool) {
	if row < 1 || row > len(d.ids) {
		return "", false
	}
	return d.ids[row-1], true
}

// send runs cmd in the background and reports the result in the status line.
func (d *dashboard) send(cmd ipc.Command) {
	go func() {
		resp, err := ipc.Send(socketPath, cmd)
		d.app.QueueUpdateDraw(func() {
			switch {
			case err != nil:
				d.status.SetText("[red]" + tview.Escape(err.Error()))
			case !resp.Success:
				d.status.SetText("[red]" + tview.Escape(resp.Message))
			default:
				d.status.SetText("[green]" + tview.Escape(resp.Message))
			}
		})
	}()
}

type snapshot struct {
	progress []ipc.AppProgress
	notes    []tracker.Notification
	err      error
}

func fetchSnapshot() snapshot {
	var snap snapshot
	resp, err := ipc.Send(socketPath, ipc.Command{Name: ipc.CmdGetProgress})
	if err != nil {
		snap.err = err
		return snap
	}
	if snap.err = ipc.DecodeData(resp.Data, &snap.progress); snap.err != nil {
		return snap
	}
	resp, err = ipc.Send(socketPath, ipc.Command{Name: ipc.CmdListNotifications})
	if err != nil {
		snap.err = err
		return snap
	}
	snap.err = ipc.DecodeData(resp.Data, &snap.notes)
	return snap
}

// render runs on the UI goroutine.
func (d *dashboard) render(snap snapshot) {
	if snap.err != nil {
		d.status.SetText("[red]" + tview.Escape(snap.err.Error()))
		return
	}

	d.table.Clear()
	for col, h := range []string{"App", "Goal", "Today", "Session", "Progress", "Left"} {
		d.table.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false).
			SetExpansion(1))
	}
	d.ids = d.ids[:0]
	for i, p := range snap.progress {
		row := i + 1
		d.ids = append(d.ids, p.App.ID)

		name := p.App.Name
		if p.App.IsActive {
			name = "▶ " + name
		}
		left := fmt.Sprintf("%d min", p.Progress.RemainingMinutes)
		if p.Progress.IsOverGoal {
			left = fmt.Sprintf("+%d min", p.Progress.OverGoalMinutes)
		}
		pc := percentColor(p.Progress.Percent)

		d.table.SetCell(row, 0, tview.NewTableCell(name).SetTextColor(appColor(p.App.Color)).SetExpansion(1))
		d.table.SetCell(row, 1, tview.NewTableCell(tracker.FormatGoal(p.App.DailyGoalMinutes)).SetExpansion(1))
		d.table.SetCell(row, 2, tview.NewTableCell(fmt.Sprintf("%d min", p.App.TodayUsageMinutes)).SetExpansion(1))
		d.table.SetCell(row, 3, tview.NewTableCell(fmt.Sprintf("%d min", p.App.CurrentSessionMinutes)).SetExpansion(1))
		d.table.SetCell(row, 4, tview.NewTableCell(fmt.Sprintf("%s %5.1f%%", progressBar(p.Progress.Percent, 10), p.Progress.Percent)).SetTextColor(pc).SetExpansion(1))
		d.table.SetCell(row, 5, tview.NewTableCell(left).SetTextColor(pc).SetExpansion(1))
	}

	d.feed.Clear()
	for _, n := range snap.notes {
		fmt.Fprintf(d.feed, "[gray]%s[-] %s\n", n.CreatedAt.Local().Format("15:04"), tview.Escape(n.Message()))
	}
}
