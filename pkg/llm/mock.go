package llm

import (
	"context"
	"strings"
	"sync"
)

// ScriptEntry is a single scripted response, consumed in order or routed
// by prompt substring. Grounded on the teacher's test/e2e ScriptedLLMClient
// dual-dispatch pattern, trimmed to this package's flattened Request/Response.
type ScriptEntry struct {
	Response Response
	Err      error
}

// Mock is a deterministic Client used by tests and by --mock-llm mode
// (spec §6.4: the process must run without a real credential when mock
// mode is explicitly enabled).
type Mock struct {
	mu       sync.Mutex
	seq      []ScriptEntry
	seqIndex int
	routes   map[string][]ScriptEntry // matched against a substring of req.SystemPrompt
	routeIdx map[string]int
	captured []Request
}

// NewMock constructs an empty scripted mock client.
func NewMock() *Mock {
	return &Mock{
		routes:   make(map[string][]ScriptEntry),
		routeIdx: make(map[string]int),
	}
}

// AddSequential appends an entry consumed in call order for unrouted calls.
func (m *Mock) AddSequential(entry ScriptEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq = append(m.seq, entry)
}

// AddRouted appends an entry returned when req.SystemPrompt contains key.
func (m *Mock) AddRouted(key string, entry ScriptEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[key] = append(m.routes[key], entry)
}

// Captured returns every request seen so far, in call order.
func (m *Mock) Captured() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.captured...)
}

// Complete implements Client.
func (m *Mock) Complete(ctx context.Context, req Request) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.captured = append(m.captured, req)

	for key, entries := range m.routes {
		if strings.Contains(strings.ToLower(req.SystemPrompt), strings.ToLower(key)) {
			idx := m.routeIdx[key]
			if idx < len(entries) {
				m.routeIdx[key] = idx + 1
				e := entries[idx]
				return e.Response, e.Err
			}
		}
	}

	if m.seqIndex < len(m.seq) {
		e := m.seq[m.seqIndex]
		m.seqIndex++
		return e.Response, e.Err
	}

	// No script left: return empty response rather than erroring, matching
	// the "mock mode degrades gracefully" behavior spec §7 requires of
	// Operational-kind failures.
	return Response{Text: "{}"}, nil
}
