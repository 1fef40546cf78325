// Package orchestrator implements the planning orchestrator (spec §4.12):
// a finite state machine over analyze_objective -> assign_agents ->
// coordinate_execution -> evaluate_findings -> {refine_approach |
// synthesize_results | END}, with hierarchical sub-orchestrator delegation,
// diminishing-returns detection, and accumulated (never prematurely
// resolved) conflict tracking.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/watchtower-oss/watchtower/pkg/llm"
)

// Phase is one FSM node.
type Phase string

const (
	PhaseAnalyzeObjective    Phase = "analyze_objective"
	PhaseAssignAgents        Phase = "assign_agents"
	PhaseCoordinateExecution Phase = "coordinate_execution"
	PhaseEvaluateFindings    Phase = "evaluate_findings"
	PhaseRefineApproach      Phase = "refine_approach"
	PhaseSynthesizeResults   Phase = "synthesize_results"
	PhaseEnd                 Phase = "end"
)

// Conflict is a contradiction surfaced during evaluation. It is forwarded
// to synthesis untouched — spec §4.12 forbids resolving it here.
type Conflict struct {
	FactIDs     [2]string
	Description string
}

// Config bounds the orchestrator's loop (spec §4.12 defaults).
type Config struct {
	MaxRefinements              int
	DiminishingReturnsThreshold float64
	MaxIterations               int // "iterations > 5" forces synthesis
	MaxDelegationDepth          int
	DelegationGroupSize         int // >= this many same-source subtasks triggers a sub-orchestrator
}

// DefaultConfig returns spec §4.12/§6.4's stated defaults. MaxRefinements
// is 7 per §6.4's `orchestrator.max_refinements` default; §8 scenario 6
// exercises termination with it explicitly overridden to 3.
func DefaultConfig() Config {
	return Config{
		MaxRefinements:              7,
		DiminishingReturnsThreshold: defaultDiminishingReturnsThreshold,
		MaxIterations:               5,
		MaxDelegationDepth:          2,
		DelegationGroupSize:         3,
	}
}

// State is the orchestrator's checkpointed run state (spec §4.12: "state
// is checkpointed ... so mid-run cancellation does not corrupt the run").
// It is a plain value — callers persist it by copying, not by holding a
// pointer into a live run.
type State struct {
	InvestigationID string
	Objective       string
	Depth           int
	Phase           Phase
	RefinementCount int
	Iterations      int
	Subtasks        []Subtask
	Findings        []Finding
	Coverage        CoverageMetrics
	Conflicts       []Conflict
}

// Runner executes one subtask against the live crawl/extract/classify
// pipeline and returns a Finding summarizing its signal. The orchestrator
// never touches articles or facts directly — it delegates execution and
// judges only the aggregate signal Runner reports (spec §9: global
// singletons become explicit dependency-injected services; the
// orchestrator's dependency here is Runner, not the stores themselves).
type Runner interface {
	Run(ctx context.Context, investigationID string, subtask Subtask) (Finding, error)
}

// Evaluator measures coverage and novelty against whatever has accumulated
// in the investigation's stores so far. Kept separate from Runner because
// coverage/novelty are properties of the accumulated set, not of any one
// subtask's execution.
type Evaluator interface {
	Coverage(ctx context.Context, investigationID string) CoverageMetrics
	Novelty(ctx context.Context, investigationID string, round int) NoveltyInputs
	Conflicts(ctx context.Context, investigationID string) []Conflict
}

// Orchestrator drives the FSM for one investigation.
type Orchestrator struct {
	Config    Config
	Runner    Runner
	Evaluator Evaluator
	LLM       llm.Client // optional; nil falls back to keyword decomposition
	log       *slog.Logger
}

// New builds an Orchestrator. client may be nil (mock mode / no LLM
// configured); runner and evaluator must not be nil.
func New(cfg Config, runner Runner, evaluator Evaluator, client llm.Client, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxRefinements == 0 {
		cfg = DefaultConfig()
	}
	return &Orchestrator{
		Config:    cfg,
		Runner:    runner,
		Evaluator: evaluator,
		LLM:       client,
		log:       log.With("component", "orchestrator"),
	}
}

// Run drives one investigation from analyze_objective through to END,
// returning the final checkpointed state. ctx cancellation is observed at
// every suspension point (coordinate_execution's subtask fan-out, and
// between phases).
func (o *Orchestrator) Run(ctx context.Context, investigationID, objective string) (State, error) {
	state := State{
		InvestigationID: investigationID,
		Objective:       objective,
		Phase:           PhaseAnalyzeObjective,
	}
	return o.run(ctx, state)
}

// resumeWithSubtasks drives a sub-orchestrator from assign_agents with a
// precomputed subtask set, skipping analyze_objective (the parent already
// decomposed the objective into this group) — spec §4.12's "sub-
// orchestrators expose the same interface; the parent treats them as
// ordinary workers".
func (o *Orchestrator) resumeWithSubtasks(ctx context.Context, investigationID, objective string, depth int, subtasks []Subtask) (State, error) {
	state := State{
		InvestigationID: investigationID,
		Objective:       objective,
		Depth:           depth,
		Phase:           PhaseAssignAgents,
		Subtasks:        subtasks,
	}
	return o.run(ctx, state)
}

func (o *Orchestrator) run(ctx context.Context, state State) (State, error) {
	for state.Phase != PhaseEnd {
		if err := ctx.Err(); err != nil {
			// Cancellation mid-run: return the checkpoint as-is rather
			// than corrupting it (spec §4.12/§5).
			return state, err
		}

		switch state.Phase {
		case PhaseAnalyzeObjective:
			state.Subtasks = Decompose(ctx, state.Objective, o.LLM)
			state.Phase = PhaseAssignAgents

		case PhaseAssignAgents:
			state.Subtasks = o.assignAgents(state)
			state.Phase = PhaseCoordinateExecution

		case PhaseCoordinateExecution:
			state.Iterations++
			findings, err := o.coordinateExecution(ctx, state)
			if err != nil {
				return state, fmt.Errorf("orchestrator: coordinate_execution: %w", err)
			}
			state.Findings = append(state.Findings, findings...)
			state.Phase = PhaseEvaluateFindings

		case PhaseEvaluateFindings:
			state.Coverage = o.Evaluator.Coverage(ctx, state.InvestigationID)
			state.Conflicts = append(state.Conflicts, o.Evaluator.Conflicts(ctx, state.InvestigationID)...)
			novelty := o.Evaluator.Novelty(ctx, state.InvestigationID, state.Iterations)
			state.Phase = o.evaluate(state, novelty)

		case PhaseRefineApproach:
			state.RefinementCount++
			state.Subtasks = o.refine(state)
			state.Phase = PhaseCoordinateExecution

		case PhaseSynthesizeResults:
			state.Phase = PhaseEnd

		default:
			return state, fmt.Errorf("orchestrator: unknown phase %q", state.Phase)
		}
	}
	return state, nil
}

// evaluate implements spec §4.12's evaluate_findings transition table, in
// the stated priority order.
func (o *Orchestrator) evaluate(state State, novelty NoveltyInputs) Phase {
	if state.RefinementCount > o.Config.MaxRefinements {
		return PhaseSynthesizeResults
	}

	maxIterations := o.Config.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultConfig().MaxIterations
	}
	if DiminishingReturns(NoveltyScore(novelty), o.Config.DiminishingReturnsThreshold) || state.Iterations > maxIterations {
		return PhaseSynthesizeResults
	}

	signal := SignalStrength(state.Findings)
	complete := state.Coverage.MeetsTargets()

	if isSignalStrong(signal) && !complete && state.RefinementCount < o.Config.MaxRefinements {
		return PhaseRefineApproach
	}
	if complete {
		return PhaseSynthesizeResults
	}
	if isSignalWeak(signal) && state.Iterations < 3 {
		return PhaseAssignAgents // explore: new assignment, not a counted refinement
	}
	return PhaseSynthesizeResults
}

// refine decomposes the objective again for the next round. When any
// coverage dimension is short, every subtask gets the same +0.2 diversity
// boost and one more retry (raising its retry penalty); the subtasks are
// not tailored to which dimensions are short.
func (o *Orchestrator) refine(state State) []Subtask {
	gaps := state.Coverage.Gaps()
	subtasks := Decompose(context.Background(), state.Objective, o.LLM)
	if len(gaps) == 0 {
		return subtasks
	}
	for i := range subtasks {
		subtasks[i].DiversityBonus = clamp01(subtasks[i].DiversityBonus + 0.2)
		subtasks[i].RetryCount++
		subtasks[i].RetryPenalty = clamp01(float64(subtasks[i].RetryCount) * 0.15)
		subtasks[i].ComputePriority()
	}
	return subtasks
}

// coordinateExecution runs every subtask concurrently (spec §5: "sources
// fetched concurrently within their limits"), tolerating individual
// subtask failures without aborting the round — the same asyncio.gather
// return-exceptions idiom spec §5 calls for.
func (o *Orchestrator) coordinateExecution(ctx context.Context, state State) ([]Finding, error) {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		findings []Finding
	)

	for _, subtask := range state.Subtasks {
		wg.Add(1)
		go func(st Subtask) {
			defer wg.Done()

			var (
				finding Finding
				err     error
			)
			if len(st.Children) > 0 {
				finding, err = o.runDelegated(ctx, state, st)
			} else {
				finding, err = o.Runner.Run(ctx, state.InvestigationID, st)
			}
			if err != nil {
				o.log.Warn("subtask failed", "subtask_id", st.ID, "error", err)
				return
			}

			mu.Lock()
			findings = append(findings, finding)
			mu.Unlock()
		}(subtask)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return findings, err
	}
	return findings, nil
}
