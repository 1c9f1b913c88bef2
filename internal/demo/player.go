package demo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"campus-sentinel/internal/alerts"
	"campus-sentinel/internal/audit"
	"campus-sentinel/internal/staff"
	"campus-sentinel/pkg/logger"
)

var (
	ErrScenarioNotFound = errors.New("demo: scenario not found")
	ErrNoDemoRunning    = errors.New("demo: no demo running")
	ErrDemoComplete     = errors.New("demo: no more steps")
)

// AlertAPI is the slice of the alert service the player drives.
type AlertAPI interface {
	Create(ctx context.Context, req alerts.CreateRequest, createdBy string, kind audit.ActorKind) (alerts.Alert, error)
	Get(ctx context.Context, alertID string) (alerts.Alert, error)
	Acknowledge(ctx context.Context, alertID, staffID string) (alerts.Alert, error)
	UpdateStatus(ctx context.Context, alertID string, newStatus alerts.Status, updatedBy string, kind audit.ActorKind, notes string) (alerts.Alert, error)
	AddNote(ctx context.Context, alertID, note, addedBy string) (alerts.Alert, error)
	Resolve(ctx context.Context, alertID, resolvedBy string, rt alerts.ResolutionType, notes string, kind audit.ActorKind) (alerts.Alert, error)
	ClearMock(ctx context.Context) (int64, error)
}

// Assigner is the slice of the assignment engine the player drives.
type Assigner interface {
	AssignAlert(ctx context.Context, a alerts.Alert, excludeIDs []string, forceStaffID string) (staff.Profile, error)
	AssignCriticalAlert(ctx context.Context, a alerts.Alert, maxAssignees int) ([]staff.Profile, error)
	EscalateAlert(ctx context.Context, a alerts.Alert, reason string) (staff.Profile, error)
}

// State is the player's externally visible state.
type State struct {
	ScenarioID   string  `json:"scenario_id,omitempty"`
	ScenarioName string  `json:"scenario_name,omitempty"`
	AlertID      string  `json:"alert_id,omitempty"`
	CurrentStep  int     `json:"current_step"`
	TotalSteps   int     `json:"total_steps"`
	CurrentAction string `json:"current_action,omitempty"`

	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Speed          float64 `json:"speed"`
	Paused         bool    `json:"paused"`
	AutoAdvance    bool    `json:"auto_advance"`

	NextStepDescription string   `json:"next_step_description,omitempty"`
	NextStepInSeconds   *float64 `json:"next_step_in_seconds,omitempty"`
}

// Player runs demo scenarios against the real alert and assignment
// services. One scenario at a time; timers are explicit registrations
// cancelled on pause, stop and manual advance so a stopped demo never
// fires a stale step.
type Player struct {
	mu sync.Mutex

	alerts   AlertAPI
	assigner Assigner

	scenarios []Scenario
	byID      map[string]Scenario

	// baseCtx is what timer-driven steps run under; it outlives any
	// single request.
	baseCtx context.Context

	clock func() time.Time

	// running state, all guarded by mu
	active      *Scenario
	alertID     string
	currentStep int
	startedAt   time.Time
	paused      bool
	speed       float64
	autoAdvance bool
	timer       *time.Timer
}

func NewPlayer(baseCtx context.Context, alertAPI AlertAPI, assigner Assigner) *Player {
	scenarios := builtinScenarios()
	byID := make(map[string]Scenario, len(scenarios))
	for _, s := range scenarios {
		byID[s.ID] = s
	}
	return &Player{
		alerts:    alertAPI,
		assigner:  assigner,
		scenarios: scenarios,
		byID:      byID,
		baseCtx:   baseCtx,
		clock:     time.Now,
		speed:     1.0,
	}
}

// Scenarios lists the available scenarios.
func (p *Player) Scenarios() []Scenario {
	out := make([]Scenario, len(p.scenarios))
	copy(out, p.scenarios)
	return out
}

// Scenario returns one scenario by ID.
func (p *Player) Scenario(id string) (Scenario, error) {
	s, ok := p.byID[id]
	if !ok {
		return Scenario{}, ErrScenarioNotFound
	}
	return s, nil
}

// State reports the current demo state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

func (p *Player) stateLocked() State {
	st := State{
		CurrentStep: p.currentStep,
		Speed:       p.speed,
		Paused:      p.paused,
		AutoAdvance: p.autoAdvance,
	}
	if p.active == nil {
		return st
	}

	st.ScenarioID = p.active.ID
	st.ScenarioName = p.active.Name
	st.AlertID = p.alertID
	st.TotalSteps = len(p.active.Timeline)

	if !p.paused {
		st.ElapsedSeconds = p.clock().Sub(p.startedAt).Seconds() * p.speed
	}
	if p.currentStep > 0 && p.currentStep <= len(p.active.Timeline) {
		st.CurrentAction = p.active.Timeline[p.currentStep-1].Action
	}
	if p.currentStep < len(p.active.Timeline) {
		next := p.active.Timeline[p.currentStep]
		st.NextStepDescription = next.Description
		if !p.paused {
			remaining := (next.Delay.Seconds() - st.ElapsedSeconds) / p.speed
			if remaining < 0 {
				remaining = 0
			}
			st.NextStepInSeconds = &remaining
		}
	}
	return st
}

// Start launches a scenario, stopping any demo already running. Zero
// speed takes the scenario default.
func (p *Player) Start(ctx context.Context, scenarioID string, speed float64, autoAdvance bool) (State, error) {
	scenario, ok := p.byID[scenarioID]
	if !ok {
		return State{}, ErrScenarioNotFound
	}

	// Tear down any running demo first.
	if _, err := p.Stop(ctx); err != nil && !errors.Is(err, ErrNoDemoRunning) {
		return State{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if speed <= 0 {
		speed = scenario.DefaultSpeed
	}
	if speed <= 0 {
		speed = 1.0
	}

	req := scenario.Template
	req.IsMock = true
	req.MockScenario = scenario.ID
	created, err := p.alerts.Create(ctx, req, "system", audit.ActorKindSystem)
	if err != nil {
		return State{}, fmt.Errorf("demo: create scenario alert: %w", err)
	}

	p.active = &scenario
	p.alertID = created.ID
	p.currentStep = 0
	p.startedAt = p.clock()
	p.paused = false
	p.speed = speed
	p.autoAdvance = autoAdvance

	// The first step is always the create, which just happened.
	p.executeStepLocked(ctx, 0)
	if p.autoAdvance {
		p.scheduleNextLocked()
	}

	logger.From(ctx).Info("demo scenario started", "scenario", scenario.ID, "alert_id", created.ID, "speed", speed)
	return p.stateLocked(), nil
}

// Stop cancels the running demo and resolves its alert if still open.
func (p *Player) Stop(ctx context.Context) (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active == nil {
		return p.stateLocked(), ErrNoDemoRunning
	}
	p.cancelTimerLocked()

	if p.alertID != "" {
		a, err := p.alerts.Get(ctx, p.alertID)
		if err == nil && a.Status != alerts.StatusResolved {
			if _, err := p.alerts.Resolve(ctx, p.alertID, "system", alerts.ResolutionNoActionRequired, "Demo stopped", audit.ActorKindSystem); err != nil {
				logger.From(ctx).Warn("demo alert cleanup failed", "alert_id", p.alertID, "err", err)
			}
		}
	}

	final := p.stateLocked()
	p.resetLocked()
	logger.From(ctx).Info("demo stopped", "scenario", final.ScenarioID)
	return final, nil
}

// Pause freezes the timeline.
func (p *Player) Pause() (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active == nil {
		return p.stateLocked(), ErrNoDemoRunning
	}
	p.cancelTimerLocked()
	p.paused = true
	return p.stateLocked(), nil
}

// Resume continues a paused timeline.
func (p *Player) Resume() (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active == nil {
		return p.stateLocked(), ErrNoDemoRunning
	}
	p.paused = false
	if p.autoAdvance {
		p.scheduleNextLocked()
	}
	return p.stateLocked(), nil
}

// Advance executes the next step immediately.
func (p *Player) Advance(ctx context.Context) (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active == nil {
		return p.stateLocked(), ErrNoDemoRunning
	}
	if p.currentStep >= len(p.active.Timeline) {
		return p.stateLocked(), ErrDemoComplete
	}

	p.cancelTimerLocked()
	p.executeStepLocked(ctx, p.currentStep)
	if p.autoAdvance && !p.paused {
		p.scheduleNextLocked()
	}
	return p.stateLocked(), nil
}

// SetSpeed changes the playback speed and reschedules the pending step.
func (p *Player) SetSpeed(speed float64) (State, error) {
	if speed < 0.1 || speed > 100 {
		return State{}, fmt.Errorf("demo: speed must be between 0.1 and 100")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.speed = speed
	if p.active != nil && p.autoAdvance && !p.paused {
		p.cancelTimerLocked()
		p.scheduleNextLocked()
	}
	return p.stateLocked(), nil
}

func (p *Player) resetLocked() {
	p.cancelTimerLocked()
	p.active = nil
	p.alertID = ""
	p.currentStep = 0
	p.startedAt = time.Time{}
	p.paused = false
	p.speed = 1.0
	p.autoAdvance = false
}

func (p *Player) cancelTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Player) scheduleNextLocked() {
	if p.active == nil || p.currentStep >= len(p.active.Timeline) {
		return
	}

	next := p.active.Timeline[p.currentStep]
	var delay time.Duration
	if p.currentStep == 0 {
		delay = next.Delay
	} else {
		delay = next.Delay - p.active.Timeline[p.currentStep-1].Delay
	}
	delay = time.Duration(float64(delay) / p.speed)
	if delay < 100*time.Millisecond {
		delay = 100 * time.Millisecond
	}

	scenarioID := p.active.ID
	p.timer = time.AfterFunc(delay, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		// A stop, pause or restart may have raced the timer.
		if p.active == nil || p.active.ID != scenarioID || p.paused {
			return
		}
		p.executeStepLocked(p.baseCtx, p.currentStep)
		if p.currentStep < len(p.active.Timeline) {
			p.scheduleNextLocked()
		}
	})
}

func (p *Player) executeStepLocked(ctx context.Context, stepIndex int) {
	if p.active == nil || stepIndex >= len(p.active.Timeline) {
		return
	}
	step := p.active.Timeline[stepIndex]
	p.currentStep = stepIndex + 1

	log := logger.From(ctx)
	log.Info("executing demo step",
		"scenario", p.active.ID, "step", p.currentStep, "action", step.Action, "description", step.Description)

	if err := p.executeAction(ctx, step); err != nil {
		log.Error("demo step failed", "scenario", p.active.ID, "step", p.currentStep, "err", err)
	}
}

func (p *Player) executeAction(ctx context.Context, step Step) error {
	switch step.Action {
	case ActionCreate:
		// The alert is created when the scenario starts.
		return nil

	case ActionAutoAssign:
		a, err := p.alerts.Get(ctx, p.alertID)
		if err != nil {
			return err
		}
		if a.Severity == alerts.SeverityCritical {
			_, err = p.assigner.AssignCriticalAlert(ctx, a, 0)
		} else {
			_, err = p.assigner.AssignAlert(ctx, a, nil, "")
		}
		return err

	case ActionAcknowledge:
		a, err := p.alerts.Get(ctx, p.alertID)
		if err != nil {
			return err
		}
		if a.AssignedTo == "" {
			return errors.New("no assignee to acknowledge")
		}
		_, err = p.alerts.Acknowledge(ctx, p.alertID, a.AssignedTo)
		return err

	case ActionStatusChange:
		newStatus := alerts.Status(stringData(step.Data, "new_status", string(alerts.StatusInvestigating)))
		note := stringData(step.Data, "note", "")
		a, err := p.alerts.Get(ctx, p.alertID)
		if err != nil {
			return err
		}
		_, err = p.alerts.UpdateStatus(ctx, p.alertID, newStatus, a.AssignedTo, audit.ActorKindStaff, note)
		return err

	case ActionNoteAdd:
		note := stringData(step.Data, "note", step.Description)
		a, err := p.alerts.Get(ctx, p.alertID)
		if err != nil {
			return err
		}
		if a.AssignedTo == "" {
			return errors.New("no assignee to add note")
		}
		_, err = p.alerts.AddNote(ctx, p.alertID, note, a.AssignedTo)
		return err

	case ActionEscalate:
		reason := stringData(step.Data, "reason", "Demo escalation")
		a, err := p.alerts.Get(ctx, p.alertID)
		if err != nil {
			return err
		}
		_, err = p.assigner.EscalateAlert(ctx, a, reason)
		return err

	case ActionResolve:
		rt := alerts.ResolutionType(stringData(step.Data, "resolution_type", string(alerts.ResolutionResolved)))
		notes := stringData(step.Data, "notes", "Demo resolution")
		a, err := p.alerts.Get(ctx, p.alertID)
		if err != nil {
			return err
		}
		resolvedBy := a.AssignedTo
		if resolvedBy == "" {
			resolvedBy = "system"
		}
		_, err = p.alerts.Resolve(ctx, p.alertID, resolvedBy, rt, notes, audit.ActorKindSystem)
		return err

	default:
		return fmt.Errorf("unknown demo action %q", step.Action)
	}
}

// ClearMockData purges all mock alerts and their audit entries.
func (p *Player) ClearMockData(ctx context.Context) (int64, error) {
	p.mu.Lock()
	running := p.active != nil
	p.mu.Unlock()
	if running {
		if _, err := p.Stop(ctx); err != nil && !errors.Is(err, ErrNoDemoRunning) {
			return 0, err
		}
	}
	return p.alerts.ClearMock(ctx)
}

func stringData(data map[string]any, key, fallback string) string {
	if v, ok := data[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
