package orchestrator

import (
	"context"
	"fmt"

	"github.com/watchtower-oss/watchtower/pkg/schema"
)

// assignAgents groups subtasks by source type and, for any group meeting
// the delegation threshold within the depth cap, collapses it into one
// delegation node the parent treats as a single ordinary worker (spec
// §4.12: "for >=3 agents of a given source type, create a sub-orchestrator
// scoped to that source class ... depth capped at 2 ... the parent treats
// them as ordinary workers").
func (o *Orchestrator) assignAgents(state State) []Subtask {
	if state.Depth >= o.Config.MaxDelegationDepth {
		return state.Subtasks
	}

	groups := make(map[schema.SourceType][]Subtask)
	var order []schema.SourceType
	for _, st := range state.Subtasks {
		if _, seen := groups[st.SourceType]; !seen {
			order = append(order, st.SourceType)
		}
		groups[st.SourceType] = append(groups[st.SourceType], st)
	}

	threshold := o.Config.DelegationGroupSize
	if threshold <= 0 {
		threshold = DefaultConfig().DelegationGroupSize
	}

	assigned := make([]Subtask, 0, len(state.Subtasks))
	for _, st := range order {
		group := groups[st]
		if len(group) >= threshold {
			assigned = append(assigned, Subtask{
				ID:         fmt.Sprintf("sub-orchestrator-%s", st),
				SourceType: st,
				Query:      fmt.Sprintf("delegated: %d %s subtasks", len(group), st),
				Children:   group,
			})
			continue
		}
		assigned = append(assigned, group...)
	}
	return assigned
}

// runDelegated runs a grouped subtask set through a child Orchestrator one
// depth level deeper, aggregating its findings into a single Finding the
// parent's coordinate_execution treats like any other worker's result.
func (o *Orchestrator) runDelegated(ctx context.Context, parent State, node Subtask) (Finding, error) {
	child := &Orchestrator{
		Config:    o.Config,
		Runner:    o.Runner,
		Evaluator: o.Evaluator,
		LLM:       o.LLM,
		log:       o.log,
	}

	childState, err := child.resumeWithSubtasks(ctx, parent.InvestigationID, node.Query, parent.Depth+1, node.Children)
	if err != nil {
		return Finding{}, fmt.Errorf("sub-orchestrator %s: %w", node.ID, err)
	}
	return aggregateFindings(node.ID, childState.Findings), nil
}

// aggregateFindings collapses a sub-orchestrator's findings into the one
// Finding its parent sees, by component-wise mean.
func aggregateFindings(subtaskID string, findings []Finding) Finding {
	if len(findings) == 0 {
		return Finding{SubtaskID: subtaskID}
	}
	var agg Finding
	for _, f := range findings {
		agg.KeywordMatch += f.KeywordMatch
		agg.EntityDensity += f.EntityDensity
		agg.SourceCredibility += f.SourceCredibility
		agg.InfoDensity += f.InfoDensity
	}
	n := float64(len(findings))
	agg.SubtaskID = subtaskID
	agg.KeywordMatch /= n
	agg.EntityDensity /= n
	agg.SourceCredibility /= n
	agg.InfoDensity /= n
	return agg
}
