// Package registry implements the capability-indexed directory of live
// workers (spec §4.2): registration, heartbeats, and staleness sweep.
package registry

import (
	"sync"
	"time"
)

// Status is the liveness state of a registered agent.
type Status string

const (
	StatusActive Status = "active"
	StatusStale  Status = "stale"
)

// Agent is one registered worker.
type Agent struct {
	ID            string
	Name          string
	Capabilities  []string
	LastHeartbeat time.Time
	Status        Status
}

// Registry maps agent_id to Agent plus a secondary capability index.
// Registration and deregistration are idempotent; the registry never
// blocks callers (spec §4.2).
type Registry struct {
	mu           sync.RWMutex
	agents       map[string]*Agent
	byCapability map[string]map[string]struct{} // capability -> set of agent_id
	staleAfter   time.Duration
}

// New constructs a Registry. staleAfter configures how long an agent may
// go without a heartbeat before Sweep marks it stale.
func New(staleAfter time.Duration) *Registry {
	if staleAfter <= 0 {
		staleAfter = 2 * time.Minute
	}
	return &Registry{
		agents:       make(map[string]*Agent),
		byCapability: make(map[string]map[string]struct{}),
		staleAfter:   staleAfter,
	}
}

// Register adds or replaces an agent entry. Idempotent: registering the
// same ID again overwrites capabilities and refreshes the heartbeat.
func (r *Registry) Register(id, name string, capabilities []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.agents[id]; ok {
		r.unindexLocked(existing)
	}

	agent := &Agent{
		ID:            id,
		Name:          name,
		Capabilities:  append([]string(nil), capabilities...),
		LastHeartbeat: time.Now(),
		Status:        StatusActive,
	}
	r.agents[id] = agent
	for _, cap := range capabilities {
		set, ok := r.byCapability[cap]
		if !ok {
			set = make(map[string]struct{})
			r.byCapability[cap] = set
		}
		set[id] = struct{}{}
	}
}

// Deregister removes an agent. Idempotent: deregistering an unknown ID is a
// no-op.
func (r *Registry) Deregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.agents[id]
	if !ok {
		return
	}
	r.unindexLocked(agent)
	delete(r.agents, id)
}

func (r *Registry) unindexLocked(agent *Agent) {
	for _, cap := range agent.Capabilities {
		if set, ok := r.byCapability[cap]; ok {
			delete(set, agent.ID)
			if len(set) == 0 {
				delete(r.byCapability, cap)
			}
		}
	}
}

// Heartbeat refreshes an agent's LastHeartbeat and clears stale status.
// Unknown IDs are ignored.
func (r *Registry) Heartbeat(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if agent, ok := r.agents[id]; ok {
		agent.LastHeartbeat = time.Now()
		agent.Status = StatusActive
	}
}

// ByCapability returns a snapshot of agent IDs registered for capability,
// in O(1) amortized lookup.
func (r *Registry) ByCapability(capability string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byCapability[capability]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// Get returns a copy of the agent record, or ok=false if unknown.
func (r *Registry) Get(id string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agent, ok := r.agents[id]
	if !ok {
		return Agent{}, false
	}
	return *agent, true
}

// Sweep marks every agent whose heartbeat is older than staleAfter as
// StatusStale. Intended to be called periodically by a background
// goroutine owned by the caller.
func (r *Registry) Sweep() {
	cutoff := time.Now().Add(-r.staleAfter)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, agent := range r.agents {
		if agent.LastHeartbeat.Before(cutoff) {
			agent.Status = StatusStale
		}
	}
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
