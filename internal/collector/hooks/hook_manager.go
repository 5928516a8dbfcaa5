package hooks

import (
	"context"
	"log"
	"screentime/internal/collector"
	"screentime/internal/event"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionEnder is the part of the tracker a run needs when it finishes.
type SessionEnder interface {
	EndSession(appID string) error
}

// HookManager drives bounded simulated runs: it points the tick source at an
// app, arms a wall-clock bound, and always ends the app's session when the run
// is stopped, replaced or times out.
type HookManager struct {
	defaultDuration time.Duration
	targeter        collector.Targeter
	ender           SessionEnder

	// run state is shared with ApplyTick, so it lives behind runMu
	runMu        sync.Mutex
	run          *activeRun
	timer        *time.Timer
	timerEndTime time.Time

	cmdChan    chan interface{}
	updateChan chan<- interface{}

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

type activeRun struct {
	ID    string
	AppID string
}

// --- Command Types ---
type StartRunCmd struct {
	RunID    string
	AppID    string
	Duration time.Duration
}
type StopRunCmd struct{}

func NewHookManager(defaultDuration time.Duration, targeter collector.Targeter, ender SessionEnder, updateChan chan<- interface{}) *HookManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &HookManager{
		defaultDuration: defaultDuration,
		targeter:        targeter,
		ender:           ender,
		cmdChan:         make(chan interface{}, 10),
		updateChan:      updateChan,
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
	}
}

func (hm *HookManager) Start() {
	log.Println("Starting Hook Manager")
	go hm.runLoop()
}

// Stop cancels the loop and waits for it, so any active run has been ended
// when Stop returns.
func (hm *HookManager) Stop() {
	log.Println("Stopping Hook Manager")
	hm.cancel()
	<-hm.done
}

// SendStartRun queues a run for appID and returns its id. A zero duration
// uses the configured maximum. It reports false when the manager is stopped
// and the run was not queued.
func (hm *HookManager) SendStartRun(appID string, duration time.Duration) (string, bool) {
	if hm.ctx.Err() != nil {
		return "", false
	}
	runID := uuid.NewString()
	select {
	case hm.cmdChan <- StartRunCmd{RunID: runID, AppID: appID, Duration: duration}:
		return runID, true
	case <-hm.ctx.Done():
		return "", false
	}
}

func (hm *HookManager) SendStopRun() {
	select {
	case hm.cmdChan <- StopRunCmd{}:
	case <-hm.ctx.Done():
	}
}

// ApplyTick hands tk to apply only if it belongs to the active run. Ticks that
// were in flight when a run ended are dropped so the app stays Inactive.
func (hm *HookManager) ApplyTick(tk event.Tick, apply func(appID string) (int, error)) (remaining int, applied bool, err error) {
	hm.runMu.Lock()
	defer hm.runMu.Unlock()
	if hm.run == nil || hm.run.AppID != tk.AppID {
		return 0, false, nil
	}
	remaining, err = apply(tk.AppID)
	return remaining, err == nil, err
}

// Status reports the active run, if any.
func (hm *HookManager) Status() event.RunUpdate {
	hm.runMu.Lock()
	defer hm.runMu.Unlock()
	if hm.run == nil {
		return event.RunUpdate{State: event.RunIdle}
	}
	return event.RunUpdate{
		RunID:         hm.run.ID,
		State:         event.RunRunning,
		AppID:         hm.run.AppID,
		RemainingTime: max(0, time.Until(hm.timerEndTime)),
	}
}

func (hm *HookManager) runLoop() {
	defer close(hm.done)
	defer log.Println("Hook Manager loop stopped.")

	updateTicker := time.NewTicker(5 * time.Second)
	defer updateTicker.Stop()

	for {
		var timerChan <-chan time.Time
		hm.runMu.Lock()
		if hm.timer != nil {
			timerChan = hm.timer.C
		}
		hm.runMu.Unlock()

		select {
		case <-hm.ctx.Done():
			hm.finishRun("shutdown")
			return

		case cmd := <-hm.cmdChan:
			hm.handleCommand(cmd)

		case <-timerChan:
			hm.finishRun("timeout")

		case <-updateTicker.C:
			if status := hm.Status(); status.State == event.RunRunning {
				hm.sendUpdate(status)
			}
		}
	}
}

func (hm *HookManager) handleCommand(cmd interface{}) {
	switch c := cmd.(type) {
	case StartRunCmd:
		log.Printf("HookMgr Command: Start run %s for app '%s'", c.RunID, c.AppID)
		hm.finishRun("replaced")

		duration := c.Duration
		if duration <= 0 || duration > hm.defaultDuration {
			duration = hm.defaultDuration
		}

		hm.runMu.Lock()
		hm.run = &activeRun{ID: c.RunID, AppID: c.AppID}
		hm.timer = time.NewTimer(duration)
		hm.timerEndTime = time.Now().Add(duration)
		hm.targeter.SetTarget(c.AppID)
		hm.runMu.Unlock()

		log.Printf("HookMgr Run timer set for %s, ends at %s", duration, hm.timerEndTime.Format(time.Kitchen))
		hm.sendUpdate(event.RunUpdate{RunID: c.RunID, State: event.RunRunning, AppID: c.AppID, RemainingTime: duration})

	case StopRunCmd:
		log.Println("HookMgr Command: Stop run")
		if !hm.finishRun("stopped") {
			log.Println("HookMgr: Stop command received but no run active.")
		}

	default:
		log.Printf("Warning: Unknown command received in HookManager: %T", c)
	}
}

// finishRun ends the active run, if any. The target is cleared and the
// session ended under runMu so no tick can reactivate the app afterwards.
func (hm *HookManager) finishRun(reason string) bool {
	hm.runMu.Lock()
	run := hm.run
	if run == nil {
		hm.runMu.Unlock()
		return false
	}
	if hm.timer != nil && !hm.timer.Stop() {
		select {
		case <-hm.timer.C:
		default:
		}
	}
	hm.timer = nil
	hm.timerEndTime = time.Time{}
	hm.run = nil
	hm.targeter.ClearTarget()
	err := hm.ender.EndSession(run.AppID)
	hm.runMu.Unlock()

	if err != nil {
		log.Printf("Warning: failed to end session for app '%s': %v", run.AppID, err)
	}
	log.Printf("HookMgr Run %s finished (%s)", run.ID, reason)
	hm.sendUpdate(event.RunUpdate{RunID: run.ID, State: event.RunIdle, AppID: run.AppID, Reason: reason})
	return true
}

func (hm *HookManager) sendUpdate(update interface{}) {
	if hm.updateChan == nil {
		return
	}
	select {
	case hm.updateChan <- update:
	case <-time.After(100 * time.Millisecond): // don't block the loop on a slow consumer
		log.Println("Warning: Timeout sending update from HookManager")
	}
}
