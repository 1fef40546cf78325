package verification

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/watchtower-oss/watchtower/pkg/bus"
	"github.com/watchtower-oss/watchtower/pkg/classification"
	"github.com/watchtower-oss/watchtower/pkg/schema"
)

// defaultConcurrency is the middle of the 5-10 simultaneous verifications
// spec §4.11 calls for.
const defaultConcurrency = 8

// FactSource supplies a fact by ID; the caller wires this to the fact
// store (pkg/fact).
type FactSource interface {
	Get(factID string) (schema.ExtractedFact, bool)
}

// BatchProcessor drains a classification store's priority queue through
// Attempt with a bounded concurrency group, publishing a per-fact progress
// event on each completion and a batch-complete event at the end (spec
// §4.11).
type BatchProcessor struct {
	Facts          FactSource
	Classifications *classification.Store
	Executor       *Executor
	Bus            *bus.Bus
	Concurrency    int64
	EntitySig      func(schema.ExtractedFact) classification.EntitySignificance
	EventSig       func(schema.ExtractedFact) classification.EventSignificance
	log            *slog.Logger
}

// NewBatchProcessor builds a BatchProcessor. Its EntitySig/EventSig fields
// classify a fact for impact-tier re-scoring on confirmation; the
// constructor leaves them nil, and while nil the generic/routine defaults
// are used.
func NewBatchProcessor(facts FactSource, classifications *classification.Store, executor *Executor, b *bus.Bus, log *slog.Logger) *BatchProcessor {
	if log == nil {
		log = slog.Default()
	}
	return &BatchProcessor{
		Facts:           facts,
		Classifications: classifications,
		Executor:        executor,
		Bus:             b,
		Concurrency:     defaultConcurrency,
		log:             log.With("component", "verification_batch"),
	}
}

// FactProgress is published per completed verification attempt.
type FactProgress struct {
	InvestigationID string
	FactID          string
	Status          schema.VerificationStatus
}

// BatchComplete is published once the whole priority queue has drained.
type BatchComplete struct {
	InvestigationID string
	Processed       int
	Confirmed       int
	Refuted         int
	Unverifiable    int
}

// attemptCounts tracks how many query-attempt cycles each fact has used,
// across possibly multiple drain passes (PENDING/IN_PROGRESS facts may be
// revisited as new evidence becomes available).
type attemptCounts struct {
	mu     sync.Mutex
	counts map[string]int
}

func (a *attemptCounts) next(factID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.counts[factID]
	a.counts[factID] = n + 1
	return n
}

// Run drains the current priority queue for investigationID, verifying
// each fact with bounded concurrency until it reaches a terminal state or
// exhausts its attempt budget.
func (p *BatchProcessor) Run(ctx context.Context, investigationID string) BatchComplete {
	concurrency := p.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	sem := semaphore.NewWeighted(concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	counts := &attemptCounts{counts: make(map[string]int)}

	summary := BatchComplete{InvestigationID: investigationID}

	queue := p.Classifications.GetPriorityQueue()
	for _, c := range queue {
		if c.InvestigationID != "" && c.InvestigationID != investigationID {
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(current schema.FactClassification) {
			defer wg.Done()
			defer sem.Release(1)

			fact, ok := p.Facts.Get(current.FactID)
			if !ok {
				p.log.Warn("fact missing from store during verification", "fact_id", current.FactID)
				return
			}

			attempt := counts.next(current.FactID)
			outcome := Attempt(ctx, fact, current, p.Executor, AttemptContext{
				EntitySig:     p.entitySig(fact),
				EventSig:      p.eventSig(fact),
				AttemptsSoFar: attempt,
			})

			p.Classifications.Put(outcome.Classification)
			if p.Bus != nil {
				p.Bus.Publish(bus.TopicVerificationFactVerified, FactProgress{
					InvestigationID: investigationID,
					FactID:          current.FactID,
					Status:          outcome.Classification.VerificationStatus,
				})
			}

			mu.Lock()
			defer mu.Unlock()
			summary.Processed++
			switch outcome.Classification.VerificationStatus {
			case schema.VerificationConfirmed:
				summary.Confirmed++
			case schema.VerificationRefuted:
				summary.Refuted++
			case schema.VerificationUnverifiable:
				summary.Unverifiable++
			}
		}(c)
	}
	wg.Wait()

	if p.Bus != nil {
		p.Bus.Publish(bus.TopicVerificationBatchComplete, summary)
	}
	return summary
}

func (p *BatchProcessor) entitySig(f schema.ExtractedFact) classification.EntitySignificance {
	if p.EntitySig != nil {
		return p.EntitySig(f)
	}
	return classification.EntityGeneric
}

func (p *BatchProcessor) eventSig(f schema.ExtractedFact) classification.EventSignificance {
	if p.EventSig != nil {
		return p.EventSig(f)
	}
	return classification.EventRoutine
}
