// AgentNet - Autonomous Agent Network Core
// Copyright (C) 2026 atproto-agent-network
//
// This file is part of AgentNet.
//
// AgentNet is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// AgentNet is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with AgentNet. If not, see <https://www.gnu.org/licenses/>.


// Package actor implements the agent actor lifecycle: a single-writer
// entity holding identity, config, session transcript, goals, and
// backoff state, driven by a timer-chained cycle of observe/think/act/
// reflect phases with mode rotation and tiered error backoff.
//
// The start/stop/timer/mutex-guarded-state shape uses a stop/done
// channel pair around a select over a per-cycle variable-interval
// timer, rather than a fixed-interval ticker.
package actor

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/atproto-agent-network/agentnet/internal/metrics"
	"github.com/atproto-agent-network/agentnet/internal/obslog"
	"github.com/atproto-agent-network/agentnet/pkg/agentconfig"
	"github.com/atproto-agent-network/agentnet/pkg/extension"
	"github.com/atproto-agent-network/agentnet/pkg/identity"
	"github.com/atproto-agent-network/agentnet/pkg/lexicon"
	"github.com/atproto-agent-network/agentnet/pkg/memory"
	"github.com/atproto-agent-network/agentnet/pkg/modelclient"
	"github.com/atproto-agent-network/agentnet/pkg/toolkit"
)

const (
	interruptThreshold = 10 * time.Second
	interruptInterval  = 1 * time.Second
	myTurnCap          = 15 * time.Second
	waitingCap         = 45 * time.Second
	goalArchiveAge     = 24 * time.Hour
	maxOutcomes        = 50
)

// IntervalReason is the observe-phase hint used to cap the next interval
// ahead of backoff/config considerations.
type IntervalReason string

const (
	ReasonMyTurn  IntervalReason = "my_turn"
	ReasonWaiting IntervalReason = "waiting"
	ReasonNone    IntervalReason = ""
)

// Observation is the result of the observe phase.
type Observation struct {
	IntervalReason IntervalReason
	Context        json.RawMessage
	HasInbox       bool
}

// Environment supplies the observe/act hooks that are specific to the
// deployment (a game world, a chat surface, a task queue). A nil
// Environment means observe always returns a zero Observation and act
// never injects auto-play calls.
type Environment interface {
	Observe(ctx context.Context) (Observation, error)
	// AutoPlay returns calls to inject when the model loop produced no
	// tool calls this cycle.
	AutoPlay(ctx context.Context) ([]toolkit.Call, error)
}

// Logger is the subset of obslog.Logger the actor needs.
type Logger interface {
	Info(msg string, fields ...obslog.Field)
	Warn(msg string, fields ...obslog.Field)
	Error(msg string, fields ...obslog.Field)
}

// Actor is one agent's single-writer runtime state.
type Actor struct {
	Name       string
	Identity   *identity.Identity
	Memory     *memory.Store
	Tools      *toolkit.Registry
	Model      modelclient.Client
	Env        Environment
	Extensions *extension.Registry
	Log        Logger

	// OnCycleEnd, if set, is invoked with the fresh Snapshot at the end of
	// every cycle; pkg/httpapi's Manager sets it to persist the snapshot
	// to a StateBackend without this package depending on pkg/store.
	OnCycleEnd func(Snapshot)

	mu               sync.Mutex
	config           *agentconfig.AgentConfig
	running          bool
	loopCount        int
	mode             Mode
	modeCounter      int
	backoff          BackoffState
	session          Session
	goals            []agentconfig.Goal
	outcomes         []toolkit.CallResult
	goalArchive      []agentconfig.Goal
	lastObservations json.RawMessage
	lastReflection   string
	inbox            []lexicon.Record

	extensionsReloadNeeded bool
	extensionsHintShown    bool
	extensionNames         []string
	pendingHint            string

	timer      *time.Timer
	nextFireAt time.Time
	stop       chan struct{}
	done       chan struct{}
}

// New constructs an actor. config is held by reference and mutated in
// place by housekeeping/goal pruning.
func New(name string, id *identity.Identity, mem *memory.Store, tools *toolkit.Registry, model modelclient.Client, cfg *agentconfig.AgentConfig) *Actor {
	log := obslog.Default()
	var l Logger = log
	return &Actor{
		Name: name, Identity: id, Memory: mem, Tools: tools, Model: model,
		Log: l, config: cfg, mode: ModeThink,
		stop: make(chan struct{}), done: make(chan struct{}),
	}
}

// Start transitions stopped -> running: sets running=true, ensures
// loopCount is initialized, and schedules the timer for "now" if none
// exists. It launches the background goroutine that fires RunCycle at
// each scheduled time.
func (a *Actor) Start(ctx context.Context) {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return
	}
	a.running = true
	if a.timer == nil {
		a.nextFireAt = time.Now()
		a.timer = time.NewTimer(0)
	}
	a.mu.Unlock()
	metrics.ActorsRunning.Inc()

	go a.loop(ctx)
}

// Stop sets running=false and clears the pending timer.
func (a *Actor) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	if a.timer != nil {
		a.timer.Stop()
	}
	a.mu.Unlock()
	metrics.ActorsRunning.Dec()

	close(a.stop)
	<-a.done
	a.stop = make(chan struct{})
	a.done = make(chan struct{})
}

// IsRunning reports the current loop state.
func (a *Actor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

func (a *Actor) loop(ctx context.Context) {
	defer close(a.done)
	for {
		a.mu.Lock()
		timer := a.timer
		a.mu.Unlock()
		if timer == nil {
			return
		}
		select {
		case <-timer.C:
			a.RunCycle(ctx)
			a.mu.Lock()
			stillRunning := a.running
			a.mu.Unlock()
			if !stillRunning {
				return
			}
		case <-a.stop:
			return
		}
	}
}

// NotifyInbox shortens the next timer to ~1s, if it is currently
// scheduled more than 10s away, whenever the inbox receives a write
// while running=true.
func (a *Actor) NotifyInbox() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running || a.timer == nil {
		return
	}
	if time.Until(a.nextFireAt) > interruptThreshold {
		a.timer.Stop()
		a.nextFireAt = time.Now().Add(interruptInterval)
		a.timer.Reset(interruptInterval)
	}
}

// RunCycle executes one tick of the cycle chain. It never returns an
// error: every phase failure is categorized, logged, and folded into
// the next interval's backoff instead.
func (a *Actor) RunCycle(ctx context.Context) {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		a.Log.Info("cycle.skipped", obslog.String("agent", a.Name))
		return
	}
	a.mu.Unlock()

	start := time.Now()
	errCount := 0
	seenCategories := map[Category]bool{}
	recordErr := func(phase string, err error) {
		if err == nil {
			return
		}
		errCount++
		cat := Categorize(phase, err)
		seenCategories[cat] = true
		metrics.CycleErrorsByCategory.WithLabelValues(a.Name, string(cat)).Inc()
		a.Log.Error("cycle.phase_error", obslog.String("agent", a.Name), obslog.String("phase", phase), obslog.Err(err))
	}

	a.maybeReloadExtensions()

	cfg := a.snapshotConfig()
	loopInterval := cfg.ClampedLoopInterval()

	mode := a.currentMode()
	metrics.CyclesStarted.WithLabelValues(a.Name, string(mode)).Inc()
	var obs Observation

	switch mode {
	case ModeThink:
		obs = a.runThinkMode(ctx, cfg, recordErr)
	case ModeHousekeeping:
		a.runHousekeeping(cfg)
	case ModeReflection:
		a.runReflection(ctx, cfg, recordErr)
	}

	a.mu.Lock()
	a.loopCount++
	loopCount := a.loopCount
	a.mode, a.modeCounter = RotateMode(a.mode, a.modeCounter)
	a.mu.Unlock()

	cycleStatus := "success"
	if len(seenCategories) > 0 {
		cycleStatus = "error"
	}
	metrics.CyclesCompleted.WithLabelValues(a.Name, cycleStatus).Inc()
	metrics.CycleDuration.WithLabelValues(a.Name, string(mode)).Observe(time.Since(start).Seconds())

	nextInterval := a.nextInterval(obs, seenCategories, loopInterval)
	a.scheduleNext(nextInterval)

	a.mu.Lock()
	backoff := a.backoff
	a.mu.Unlock()
	a.Log.Info("cycle.end",
		obslog.String("agent", a.Name),
		obslog.Duration("duration", time.Since(start)),
		obslog.Int("loopCount", loopCount),
		obslog.Int("errors", errCount),
		obslog.String("category", string(backoff.Category)),
		obslog.Int("streak", backoff.Streak),
		obslog.Duration("nextInterval", nextInterval),
	)

	if a.OnCycleEnd != nil {
		a.OnCycleEnd(a.Snapshot())
	}
}

func (a *Actor) snapshotConfig() *agentconfig.AgentConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.config
}

func (a *Actor) currentMode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// runThinkMode runs the think-mode branch: observe -> (if autonomous)
// think -> act -> reflect. Environment routing happens once up front: at
// most one selected extension claims the turn, and its alias table,
// phase whitelist, and auto-play hooks apply for the rest of the cycle.
func (a *Actor) runThinkMode(ctx context.Context, cfg *agentconfig.AgentConfig, recordErr func(string, error)) Observation {
	obs := a.observe(ctx, recordErr)

	claimed, envCtx, claimErr := extension.ClaimTurn(ctx, a.Name, a.selectedExtensions())
	recordErr("observe", claimErr)

	modelActed := false
	if cfg.LoopMode == agentconfig.LoopModeAutonomous {
		modelActed = a.think(ctx, cfg, obs, claimed, envCtx, recordErr)
	}
	a.act(ctx, cfg, claimed, modelActed, recordErr)
	a.reflect()
	return obs
}

// exposedTools is the tool-name set dispatched and advertised this
// phase: enabledTools minus suppressedTools, further narrowed by the
// claimed environment's phase whitelist when it has one.
func exposedTools(cfg *agentconfig.AgentConfig, claimed *extension.Extension) []string {
	var whitelist []string
	if claimed != nil {
		whitelist = claimed.PhaseWhitelist
	}
	return ExposedTools(cfg.EnabledTools, cfg.SuppressedTools, whitelist)
}

func (a *Actor) observe(ctx context.Context, recordErr func(string, error)) Observation {
	var obs Observation
	if a.Env != nil {
		var err error
		obs, err = a.Env.Observe(ctx)
		recordErr("observe", err)
	}
	a.mu.Lock()
	obs.HasInbox = obs.HasInbox || len(a.inbox) > 0
	a.lastObservations = obs.Context
	a.mu.Unlock()
	return obs
}

// think drives the model loop and reports whether the model took any
// tool action this cycle (auto-play in act only runs when it did not).
func (a *Actor) think(ctx context.Context, cfg *agentconfig.AgentConfig, obs Observation, claimed *extension.Extension, envCtx json.RawMessage, recordErr func(string, error)) bool {
	if a.Model == nil {
		return false
	}
	system := BuildSystemPrompt(cfg)
	a.mu.Lock()
	if a.pendingHint != "" {
		system = system + "\n\n" + a.pendingHint
		a.pendingHint = ""
	}
	a.mu.Unlock()
	userMsg := BuildUserMessage(cfg, a.snapshotGoals(), a.snapshotOutcomes(), obs, envCtx)

	a.mu.Lock()
	seed := append([]Message{}, a.session.Messages...)
	a.mu.Unlock()
	for _, msg := range a.drainInbox() {
		if text, ok := msg["content"].(map[string]interface{}); ok {
			if t, ok := text["text"].(string); ok {
				seed = append(seed, Message{Role: "user", Content: "[inbox] " + t})
				continue
			}
		}
		if raw, err := json.Marshal(msg); err == nil {
			seed = append(seed, Message{Role: "user", Content: "[inbox] " + string(raw)})
		}
	}
	seed = append(seed, Message{Role: "user", Content: userMsg})

	result, err := modelclient.RunLoop(ctx, a.Model, a.Tools, modelclient.LoopOptions{
		Models:       modelclient.FallbackChain(cfg.Model, cfg.FastModel),
		System:       system,
		Seed:         toModelMessages(seed),
		EnabledTools: exposedTools(cfg, claimed),
		Alias:        extension.AliasResolver(claimed),
	})
	recordErr("think", err)

	a.mu.Lock()
	for _, m := range result.History {
		trimmed, archiveBatch := a.session.Append(Message{Role: m.Role, Content: m.Content})
		if archiveBatch != nil {
			if err := a.archiveSession(*archiveBatch); err != nil {
				a.Log.Error("session.archive_failed", obslog.String("agent", a.Name), obslog.Err(err))
				continue
			}
		}
		a.session = trimmed
	}
	a.mu.Unlock()
	return len(result.Trace) > 0
}

// act runs environment auto-play: when the model took no action this
// cycle, the active environment may inject calls of its own. A single
// injected call is appended as-is; with several, all but the last become
// setup moves and the last is the turn-closer.
func (a *Actor) act(ctx context.Context, cfg *agentconfig.AgentConfig, claimed *extension.Extension, modelActed bool, recordErr func(string, error)) {
	if a.Tools == nil || modelActed {
		return
	}

	var injected []toolkit.Call
	var err error
	switch {
	case a.Env != nil:
		injected, err = a.Env.AutoPlay(ctx)
	case claimed != nil && claimed.AutoPlay != nil:
		injected, err = claimed.AutoPlay(ctx, a.Name)
	}
	recordErr("act", err)
	calls := toolkit.AutoPlayInjection(nil, injected)
	if len(calls) == 0 {
		return
	}

	report := a.Tools.Dispatch(ctx, calls, toolkit.DispatchOptions{
		EnabledTools: exposedTools(cfg, claimed),
		Alias:        extension.AliasResolver(claimed),
	})
	if claimed != nil && a.Extensions != nil {
		for _, res := range report.Results {
			a.Extensions.RecordToolCall(claimed.Name, res.OK)
		}
	}
	a.mu.Lock()
	a.outcomes = appendBounded(a.outcomes, report.Results, maxOutcomes)
	a.mu.Unlock()
}

func (a *Actor) reflect() {
	// reflect is the last phase of a think-mode cycle and writes nothing.
	// Goal changes come from update_goal tool calls and from a
	// reflection-mode cycle's parsed goal list.
}

// runHousekeeping prunes completed goals older than 24h, caps retained
// completions at maxCompletedGoals (overflow goes to the durable goals
// archive), and trims the outcome log to 50.
func (a *Actor) runHousekeeping(cfg *agentconfig.AgentConfig) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	var kept []agentconfig.Goal
	completed := 0
	for _, g := range a.goals {
		if g.Status == agentconfig.GoalCompleted {
			completed++
		}
	}
	for _, g := range a.goals {
		if g.Status == agentconfig.GoalCompleted {
			aged := g.CompletedAt != nil && now.Sub(*g.CompletedAt) > goalArchiveAge
			if aged || completed > cfg.MaxCompletedGoals {
				a.goalArchive = append(a.goalArchive, g)
				completed--
				continue
			}
		}
		kept = append(kept, g)
	}
	a.goals = kept

	if len(a.outcomes) > maxOutcomes {
		a.outcomes = a.outcomes[len(a.outcomes)-maxOutcomes:]
	}
}

// runReflection resets the conversation window, prompts with the last
// ten outcomes, accepts an optional updated goals list, and persists
// lastReflection.
func (a *Actor) runReflection(ctx context.Context, cfg *agentconfig.AgentConfig, recordErr func(string, error)) {
	if a.Model == nil {
		a.mu.Lock()
		a.session = Session{}
		a.mu.Unlock()
		return
	}

	recent := a.snapshotOutcomes()
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	prompt := BuildReflectionPrompt(recent)

	result, err := modelclient.RunLoop(ctx, a.Model, a.Tools, modelclient.LoopOptions{
		Models: modelclient.FallbackChain(cfg.Model, cfg.FastModel),
		System: BuildSystemPrompt(cfg),
		Seed:   []modelclient.Message{{Role: "user", Content: prompt}},
	})
	recordErr("reflection", err)

	if updated := parseGoalsUpdate(result.FinalText); updated != nil {
		a.SetGoals(updated)
	}

	a.mu.Lock()
	a.lastReflection = result.FinalText
	a.session = Session{}
	a.mu.Unlock()
}

// parseGoalsUpdate extracts the optional updated goals list a reflection
// response may carry as an embedded JSON array. Anything that doesn't
// parse into goals with IDs is ignored rather than surfaced as an error;
// reflection text is free-form and usually carries no update at all.
func parseGoalsUpdate(text string) []agentconfig.Goal {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil
	}
	var goals []agentconfig.Goal
	if err := json.Unmarshal([]byte(text[start:end+1]), &goals); err != nil {
		return nil
	}
	if len(goals) == 0 {
		return nil
	}
	for _, g := range goals {
		if g.ID == "" || g.Description == "" {
			return nil
		}
	}
	return goals
}

// nextInterval applies backoff, then the observe-phase interval hint,
// then falls back to the configured loop interval.
func (a *Actor) nextInterval(obs Observation, seenCategories map[Category]bool, configured time.Duration) time.Duration {
	a.mu.Lock()
	backoff := a.backoff
	a.mu.Unlock()

	next, backoffSeconds := backoff.Advance(seenCategories)
	a.mu.Lock()
	a.backoff = next
	a.mu.Unlock()

	if backoffSeconds > 0 {
		return time.Duration(backoffSeconds) * time.Second
	}

	switch obs.IntervalReason {
	case ReasonMyTurn:
		return minDuration(configured, myTurnCap)
	case ReasonWaiting:
		return minDuration(configured, waitingCap)
	default:
		return configured
	}
}

func (a *Actor) scheduleNext(interval time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextFireAt = time.Now().Add(interval)
	if a.timer == nil {
		a.timer = time.NewTimer(interval)
		return
	}
	a.timer.Stop()
	a.timer.Reset(interval)
}

// archiveSession persists an overflowing session window as an
// agent.session.archive record. The caller must not advance the live
// window past a batch whose archive write failed, or the overflow
// messages are lost with no durable copy. Called with a.mu already held
// by the caller (think's session-append loop), so the store call must
// not try to re-acquire it; it only touches a.Memory, which has its own
// independent locking.
func (a *Actor) archiveSession(batch ArchiveBatch) error {
	if a.Memory == nil {
		return nil
	}
	messages := make([]map[string]string, 0, len(batch.Messages))
	for _, m := range batch.Messages {
		messages = append(messages, map[string]string{"role": m.Role, "content": m.Content})
	}
	record := lexicon.Record{
		"$type":      string(lexicon.TypeSessionArchive),
		"messages":   messages,
		"fromIndex":  batch.FromIndex,
		"toIndex":    batch.ToIndex,
		"archivedAt": time.Now().UTC().Format(time.RFC3339),
	}
	_, err := a.Memory.StoreRecord(context.Background(), record)
	return err
}

func (a *Actor) snapshotGoals() []agentconfig.Goal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]agentconfig.Goal{}, a.goals...)
}

// SnapshotGoalsForTool exposes the same snapshot snapshotGoals takes, for
// tools outside this package (pkg/coretools's update_goal) that mutate the
// goal list via SetGoals rather than reaching into actor internals.
func (a *Actor) SnapshotGoalsForTool() []agentconfig.Goal {
	return a.snapshotGoals()
}

func (a *Actor) snapshotOutcomes() []toolkit.CallResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]toolkit.CallResult{}, a.outcomes...)
}

// SetGoals replaces the active goal list. Goals are mutated only
// through this method: either by a dedicated tool (pkg/coretools's
// update_goal) or by a validated think-result payload.
func (a *Actor) SetGoals(goals []agentconfig.Goal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.goals = goals
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func appendBounded(dst []toolkit.CallResult, src []toolkit.CallResult, max int) []toolkit.CallResult {
	out := append(dst, src...)
	if len(out) > max {
		out = out[len(out)-max:]
	}
	return out
}

func toModelMessages(msgs []Message) []modelclient.Message {
	out := make([]modelclient.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, modelclient.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
