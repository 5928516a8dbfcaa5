package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/multierr"

	"screentime/internal/collector/hooks"
	"screentime/internal/collector/simulated"
	"screentime/internal/config"
	"screentime/internal/event"
	"screentime/internal/ipc"
	"screentime/internal/scheduler"
	"screentime/internal/storage"
	"screentime/internal/tracker"

	sqlitestore "screentime/internal/storage/sqlite"
)

type App struct {
	cfg       *config.Config
	tracker   *tracker.Tracker
	storage   storage.Storage
	collector *simulated.SimulatedCollector
	hookMan   *hooks.HookManager
	scheduler *scheduler.Scheduler
	// --- Socket Handling ---
	socketPath string
	listener   *net.UnixListener

	// Communication channels
	tickChan       chan event.Tick
	eventChan      chan event.Event
	hookUpdateChan chan interface{}

	wg     conc.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	cfgMu sync.Mutex
}

func NewApp(cfg *config.Config) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		cfg:            cfg,
		tickChan:       make(chan event.Tick, 10),
		eventChan:      make(chan event.Event, 100),
		hookUpdateChan: make(chan interface{}, 50),
		socketPath:     cfg.SocketPath,
		ctx:            ctx,
		cancel:         cancel,
	}
	if a.socketPath == "" {
		a.socketPath = ipc.DefaultSocketPath
	}

	a.tracker = tracker.New(
		tracker.WithNotifyHook(a.onNotification),
	)
	a.seedApps(cfg.Apps)

	// Initialize Storage
	a.storage = sqlitestore.NewSQLiteStore(cfg.DatabasePath)
	if err := a.storage.Init(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	a.collector = simulated.NewSimulatedCollector()
	a.hookMan = hooks.NewHookManager(cfg.MaxRunDuration(), a.collector, a.tracker, a.hookUpdateChan)
	a.scheduler = scheduler.NewScheduler(a.tracker, a.onDayReset)

	return a, nil
}

// Tracker exposes the engine, mainly for tests and embedding hosts.
func (a *App) Tracker() *tracker.Tracker {
	return a.tracker
}

// seedApps adds configured apps that the registry does not know by name yet.
func (a *App) seedApps(apps []config.AppConfig) {
	for _, ac := range apps {
		if _, exists := a.tracker.FindByName(ac.Name); exists {
			continue
		}
		id, err := a.tracker.AddApp(ac.Name, ac.DailyGoalMinutes, ac.Icon, ac.Color)
		if err != nil {
			log.Printf("Warning: skipping configured app '%s': %v", ac.Name, err)
			continue
		}
		log.Printf("Tracking app %s '%s' (goal %s)", id, ac.Name, tracker.FormatGoal(ac.DailyGoalMinutes))
		a.recordEvent(event.Event{Type: event.EventTypeAppAdded, AppID: id, AppName: ac.Name, Value: float64(ac.DailyGoalMinutes)})
	}
}

// setupSocket checks for existing socket and creates the listener
func (a *App) setupSocket() error {
	if _, err := os.Stat(a.socketPath); err == nil {
		conn, err := net.DialTimeout("unix", a.socketPath, 1*time.Second)
		if err == nil {
			conn.Close()
			return fmt.Errorf("socket %s already active, another instance might be running", a.socketPath)
		}
		log.Printf("Stale socket file found at %s, removing.", a.socketPath)
		if err := os.Remove(a.socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket file %s: %w", a.socketPath, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("error checking socket file %s: %w", a.socketPath, err)
	}

	addr, err := net.ResolveUnixAddr("unix", a.socketPath)
	if err != nil {
		return fmt.Errorf("failed to resolve unix addr %s: %w", a.socketPath, err)
	}

	listener, err := net.ListenUnix("unix", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on socket %s: %w", a.socketPath, err)
	}

	a.listener = listener
	log.Printf("Listening for commands on %s", a.socketPath)
	return nil
}

// listenForCommands accepts connections and handles them
func (a *App) listenForCommands() {
	defer log.Println("Socket command listener stopped.")

	for {
		conn, err := a.listener.AcceptUnix()
		if err != nil {
			select {
			case <-a.ctx.Done():
				return // Expected error on shutdown
			default:
				if errors.Is(err, net.ErrClosed) {
					return
				}
				log.Printf("Failed to accept connection: %v", err)
				time.Sleep(100 * time.Millisecond) // Avoid tight loop on persistent error
			}
			continue
		}
		a.wg.Go(func() { a.handleConnection(conn) })
	}
}

// handleConnection reads command, processes it, and sends response
func (a *App) handleConnection(conn *net.UnixConn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	var cmd ipc.Command
	if err := decoder.Decode(&cmd); err != nil {
		if err != io.EOF {
			log.Printf("Failed to decode command: %v", err)
		}
		_ = encoder.Encode(ipc.Response{Success: false, Message: "Failed to decode command: " + err.Error()})
		return
	}

	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	log.Printf("Received command: %s", cmd.Name)

	response := a.processCommand(cmd)

	if err := encoder.Encode(response); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

// processCommand routes the command to the correct handler
func (a *App) processCommand(cmd ipc.Command) ipc.Response {
	switch cmd.Name {
	case ipc.CmdPing:
		return ipc.Response{Success: true, Message: "pong"}

	case ipc.CmdGetStatus:
		run := a.hookMan.Status()
		status := ipc.StatusData{
			RunState:         run.State,
			RunID:            run.RunID,
			RunAppID:         run.AppID,
			RunRemainingSecs: run.RemainingTime.Seconds(),
			Apps:             len(a.tracker.List()),
		}
		if active, ok := a.tracker.Active(); ok {
			status.ActiveAppID = active.ID
		}
		return ipc.Response{Success: true, Data: status}

	case ipc.CmdAddApp:
		var args ipc.AddAppArgs
		if err := ipc.DecodeData(cmd.Args, &args); err != nil {
			return invalidArgs(cmd, err)
		}
		id, err := a.tracker.AddApp(args.Name, args.DailyGoalMinutes, args.Icon, args.Color)
		if err != nil {
			return errorResponse(err)
		}
		app, _ := a.tracker.Get(id)
		a.recordEvent(event.Event{Type: event.EventTypeAppAdded, AppID: id, AppName: app.Name, Value: float64(app.DailyGoalMinutes)})
		return ipc.Response{Success: true, Message: fmt.Sprintf("App '%s' added with id %s", app.Name, id), Data: app}

	case ipc.CmdListApps:
		return ipc.Response{Success: true, Data: a.tracker.List()}

	case ipc.CmdGetApp:
		var args ipc.AppArgs
		if err := ipc.DecodeData(cmd.Args, &args); err != nil {
			return invalidArgs(cmd, err)
		}
		app, err := a.tracker.Get(args.AppID)
		if err != nil {
			return errorResponse(err)
		}
		return ipc.Response{Success: true, Data: app}

	case ipc.CmdTick:
		var args ipc.AppArgs
		if err := ipc.DecodeData(cmd.Args, &args); err != nil {
			return invalidArgs(cmd, err)
		}
		remaining, err := a.applyTick(args.AppID)
		if err != nil {
			return errorResponse(err)
		}
		return ipc.Response{Success: true, Message: fmt.Sprintf("%d min remaining", remaining), Data: ipc.TickData{AppID: args.AppID, RemainingMinutes: remaining}}

	case ipc.CmdEndSession:
		var args ipc.AppArgs
		if err := ipc.DecodeData(cmd.Args, &args); err != nil {
			return invalidArgs(cmd, err)
		}
		if err := a.endSession(args.AppID, "manual"); err != nil {
			return errorResponse(err)
		}
		return ipc.Response{Success: true, Message: fmt.Sprintf("Session ended for app %s", args.AppID)}

	case ipc.CmdStartRun:
		var args ipc.StartRunArgs
		if err := ipc.DecodeData(cmd.Args, &args); err != nil {
			return invalidArgs(cmd, err)
		}
		if _, err := a.tracker.Get(args.AppID); err != nil {
			return errorResponse(err)
		}
		var duration time.Duration
		if args.Duration != "" {
			d, err := time.ParseDuration(args.Duration)
			if err != nil || d <= 0 {
				return ipc.Response{Success: false, Message: fmt.Sprintf("Invalid duration format '%s'", args.Duration), ErrorKind: "validation"}
			}
			duration = d
		}
		runID, ok := a.hookMan.SendStartRun(args.AppID, duration)
		if !ok {
			return ipc.Response{Success: false, Message: fmt.Sprintf("Run for app %s not started: daemon is shutting down", args.AppID)}
		}
		return ipc.Response{Success: true, Message: fmt.Sprintf("Run %s started for app %s", runID, args.AppID), Data: ipc.RunData{RunID: runID}}

	case ipc.CmdStopRun:
		a.hookMan.SendStopRun()
		return ipc.Response{Success: true, Message: "Run stop requested"}

	case ipc.CmdResetDay:
		summary := a.tracker.ResetDay()
		a.onDayReset(summary)
		return ipc.Response{Success: true, Message: summary.String(), Data: summary}

	case ipc.CmdListNotifications:
		return ipc.Response{Success: true, Data: a.tracker.Notifications()}

	case ipc.CmdGetProgress:
		var args ipc.AppArgs
		if err := ipc.DecodeData(cmd.Args, &args); err != nil {
			return invalidArgs(cmd, err)
		}
		if args.AppID != "" {
			p, err := a.progressFor(args.AppID)
			if err != nil {
				return errorResponse(err)
			}
			return ipc.Response{Success: true, Data: p}
		}
		var all []ipc.AppProgress
		for _, app := range a.tracker.List() {
			p, err := tracker.Report(app)
			if err != nil {
				return errorResponse(err)
			}
			all = append(all, ipc.AppProgress{App: app, Progress: p})
		}
		return ipc.Response{Success: true, Data: all}

	case ipc.CmdGetSummary:
		summary := a.tracker.Summary()
		return ipc.Response{Success: true, Message: summary.String(), Data: summary}

	default:
		return ipc.Response{Success: false, Message: fmt.Sprintf("Unknown command: %s", cmd.Name)}
	}
}

func (a *App) progressFor(appID string) (ipc.AppProgress, error) {
	app, err := a.tracker.Get(appID)
	if err != nil {
		return ipc.AppProgress{}, err
	}
	p, err := tracker.Report(app)
	if err != nil {
		return ipc.AppProgress{}, err
	}
	return ipc.AppProgress{App: app, Progress: p}, nil
}

func invalidArgs(cmd ipc.Command, err error) ipc.Response {
	return ipc.Response{Success: false, Message: fmt.Sprintf("Invalid args for %s: %v", cmd.Name, err)}
}

// errorResponse maps tracker errors onto a response the client can branch on.
func errorResponse(err error) ipc.Response {
	resp := ipc.Response{Success: false, Message: err.Error()}
	switch {
	case errors.Is(err, tracker.ErrValidation):
		resp.ErrorKind = "validation"
	case errors.Is(err, tracker.ErrNotFound):
		resp.ErrorKind = "not_found"
	case errors.Is(err, tracker.ErrInvariant):
		resp.ErrorKind = "invariant"
	}
	return resp
}

// applyTick advances appID by one minute and records the tick.
func (a *App) applyTick(appID string) (int, error) {
	remaining, err := a.tracker.Tick(appID)
	if err != nil {
		return 0, err
	}
	a.recordTick(appID, remaining)
	return remaining, nil
}

func (a *App) recordTick(appID string, remaining int) {
	app, _ := a.tracker.Get(appID)
	a.recordEvent(event.Event{Type: event.EventTypeTick, AppID: appID, AppName: app.Name, Value: float64(remaining)})
}

func (a *App) endSession(appID, reason string) error {
	if err := a.tracker.EndSession(appID); err != nil {
		return err
	}
	app, _ := a.tracker.Get(appID)
	a.recordEvent(event.Event{Type: event.EventTypeSessionEnd, AppID: appID, AppName: app.Name, Notes: reason})
	return nil
}

// onNotification is the tracker's notify hook.
func (a *App) onNotification(n tracker.Notification) {
	log.Printf("Notification: %s", n.Message())
	a.recordEvent(event.Event{
		Timestamp: n.CreatedAt,
		Type:      event.EventTypeNotification,
		AppID:     n.AppID,
		AppName:   n.AppName,
		Value:     float64(n.RemainingMinutes),
		Notes:     n.Message(),
	})
}

func (a *App) onDayReset(summary tracker.DaySummary) {
	a.recordEvent(event.Event{Type: event.EventTypeDayReset, Value: float64(summary.GoalsHit), Notes: summary.String()})
}

// onConfigChange picks up apps added to the config file while running.
// Other settings take effect on restart.
func (a *App) onConfigChange(cfg *config.Config) {
	a.cfgMu.Lock()
	defer a.cfgMu.Unlock()
	a.seedApps(cfg.Apps)
}

// recordEvent queues e for the event log without blocking the caller.
func (a *App) recordEvent(e event.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	select {
	case a.eventChan <- e:
	default:
		log.Printf("Warning: event queue full, dropping %s event for app '%s'", e.Type, e.AppID)
	}
}

func (a *App) Run() error {
	log.Println("Starting Screentime Application (Daemon Mode)...")
	log.Printf("Config: %+v", *a.cfg)

	if err := a.setupSocket(); err != nil {
		return multierr.Append(err, a.cleanup())
	}

	// Start signal handling
	a.handleSignals()

	a.wg.Go(a.processEvents)
	a.wg.Go(a.processTicks)
	a.wg.Go(a.mainLoop)

	a.hookMan.Start()

	a.wg.Go(func() {
		log.Println("Launching tick collector goroutine")
		err := a.collector.Start(a.ctx, a.cfg.TickInterval(), a.tickChan)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Tick collector error: %v", err)
		}
		log.Println("Tick collector goroutine finished.")
	})

	if err := a.scheduler.Start(a.cfg.DayResetSchedule); err != nil {
		log.Printf("Warning: day rollover disabled: %v", err)
	}

	config.WatchConfig(a.onConfigChange)

	a.wg.Go(a.listenForCommands)

	a.recordEvent(event.Event{Type: event.EventTypeAppStart})

	log.Println("Screentime daemon running. Send commands via screentime-cli or socket.")
	<-a.ctx.Done()

	log.Println("Shutdown signal received, waiting for components...")

	// End any simulated run before the tick loop goes away
	a.hookMan.Stop()
	a.scheduler.Stop()

	if a.listener != nil {
		log.Println("Closing command socket listener...")
		if err := a.listener.Close(); err != nil {
			log.Printf("Error closing socket listener: %v", err)
		}
	}

	waitChan := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(waitChan)
	}()

	select {
	case <-waitChan:
		log.Println("All application goroutines finished.")
	case <-time.After(5 * time.Second):
		log.Println("Warning: Timeout waiting for application goroutines to stop.")
	}

	err := a.cleanup()
	log.Println("Screentime Application finished.")
	return err
}

// Shutdown asks a running App to stop, as a signal would.
func (a *App) Shutdown() {
	a.cancel()
}

// mainLoop handles run updates from the hook manager
func (a *App) mainLoop() {
	defer log.Println("Main application loop stopped.")

	for {
		select {
		case <-a.ctx.Done():
			return

		case update := <-a.hookUpdateChan:
			switch u := update.(type) {
			case event.RunUpdate:
				if u.State == event.RunIdle {
					log.Printf("Run %s for app '%s' ended (%s)", u.RunID, u.AppID, u.Reason)
					app, _ := a.tracker.Get(u.AppID)
					a.recordEvent(event.Event{Type: event.EventTypeSessionEnd, AppID: u.AppID, AppName: app.Name, Notes: u.Reason})
				} else {
					log.Printf("Run %s: app '%s', remaining %s", u.RunID, u.AppID, formatDuration(u.RemainingTime))
				}
			default:
				log.Printf("Unknown update type from HookManager: %T", u)
			}
		}
	}
}

// processTicks applies ticks from the collector through the hook manager, so
// only ticks of the active run count.
func (a *App) processTicks() {
	defer log.Println("Tick processor stopped.")

	for {
		select {
		case <-a.ctx.Done():
			return
		case tk := <-a.tickChan:
			remaining, applied, err := a.hookMan.ApplyTick(tk, a.tracker.Tick)
			if err != nil {
				log.Printf("Error applying tick for app '%s': %v", tk.AppID, err)
				continue
			}
			if applied {
				a.recordTick(tk.AppID, remaining)
			}
		}
	}
}

// processEvents writes queued events to storage
func (a *App) processEvents() {
	defer log.Println("Event processor stopped.")

	for {
		select {
		case <-a.ctx.Done():
			a.drainEvents()
			return
		case e := <-a.eventChan:
			a.saveEvent(a.ctx, e)
		}
	}
}

func (a *App) drainEvents() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		select {
		case e := <-a.eventChan:
			a.saveEvent(ctx, e)
		default:
			return
		}
	}
}

func (a *App) saveEvent(ctx context.Context, e event.Event) {
	if _, err := a.storage.SaveEvent(ctx, e); err != nil {
		log.Printf("Error saving event (Type: %s, App: %s): %v", e.Type, e.AppID, err)
	}
}

func (a *App) handleSignals() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Printf("Received signal: %v. Initiating shutdown...", sig)
			a.cancel()
		case <-a.ctx.Done():
		}
		signal.Stop(sigChan)
	}()
}

// cleanup stops components and removes the socket file
func (a *App) cleanup() error {
	log.Println("Running cleanup...")
	a.cancel()

	var errs error

	saveCtx, saveCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer saveCancel()
	if _, err := a.storage.SaveEvent(saveCtx, event.Event{Timestamp: time.Now(), Type: event.EventTypeAppStop}); err != nil {
		log.Printf("Warning: Failed to save AppStop event: %v", err)
	}

	errs = multierr.Append(errs, a.collector.Stop())
	if a.storage != nil {
		errs = multierr.Append(errs, a.storage.Close())
	}

	if _, err := os.Stat(a.socketPath); err == nil && a.listener != nil {
		log.Printf("Removing socket file: %s", a.socketPath)
		if err := os.Remove(a.socketPath); err != nil && !os.IsNotExist(err) {
			errs = multierr.Append(errs, fmt.Errorf("failed to remove socket file %s: %w", a.socketPath, err))
		}
	}

	log.Println("Cleanup finished.")
	return errs
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
