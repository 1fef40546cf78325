package urlman

import (
	"strings"
	"sync"

	"github.com/watchtower-oss/watchtower/pkg/bus"
)

// EntityContext tracks entities discovered so far for one investigation,
// cross-referencing new content against known entity strings (normalized
// lowercase, spec §4.4) and broadcasting discoveries on context.update.
type EntityContext struct {
	mu        sync.RWMutex
	entities  map[string]map[string]struct{} // investigation_id -> normalized entity text set
	publisher *bus.Bus
}

// NewEntityContext builds a coordinator that publishes discoveries through
// publisher. publisher may be nil to run without broadcast (e.g. in tests).
func NewEntityContext(publisher *bus.Bus) *EntityContext {
	return &EntityContext{
		entities:  make(map[string]map[string]struct{}),
		publisher: publisher,
	}
}

// Observe records entityText as known for investigationID, returning true
// if it was already known (a cross-reference hit) and false if it is new
// (a discovery, broadcast on context.update).
func (c *EntityContext) Observe(investigationID, entityText string) (alreadyKnown bool) {
	norm := strings.ToLower(strings.TrimSpace(entityText))
	if norm == "" {
		return false
	}

	c.mu.Lock()
	set, ok := c.entities[investigationID]
	if !ok {
		set = make(map[string]struct{})
		c.entities[investigationID] = set
	}
	_, known := set[norm]
	set[norm] = struct{}{}
	c.mu.Unlock()

	if !known && c.publisher != nil {
		c.publisher.Publish(bus.TopicContextUpdate, map[string]any{
			"investigation_id": investigationID,
			"entity":           norm,
		})
	}
	return known
}

// Known returns a snapshot of every normalized entity string observed for
// an investigation.
func (c *EntityContext) Known(investigationID string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	set := c.entities[investigationID]
	out := make([]string, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	return out
}
