package verification

import (
	"sort"
	"sync"

	"github.com/watchtower-oss/watchtower/pkg/schema"
)

// Store persists every verification attempt's result, retained indefinitely
// for audit (spec §3.4), and tracks which critical-tier facts are still
// awaiting human sign-off before their reclassification can finalize
// (spec §4.11: "reclassification is not finalized until the review bit is
// satisfied").
type Store struct {
	mu           sync.RWMutex
	byFactID     map[string][]schema.VerificationResult // append-only history per fact
	pendingReview map[string]struct{}
}

// NewStore builds an empty verification Store.
func NewStore() *Store {
	return &Store{
		byFactID:      make(map[string][]schema.VerificationResult),
		pendingReview: make(map[string]struct{}),
	}
}

// Record appends a verification attempt's result to a fact's history. If
// the result requires human review and hasn't been completed, the fact is
// added to the pending-review set.
func (s *Store) Record(result schema.VerificationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byFactID[result.FactID] = append(s.byFactID[result.FactID], result)
	if result.RequiresHumanReview && !result.HumanReviewCompleted {
		s.pendingReview[result.FactID] = struct{}{}
	} else {
		delete(s.pendingReview, result.FactID)
	}
}

// History returns every recorded result for factID, oldest first.
func (s *Store) History(factID string) []schema.VerificationResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]schema.VerificationResult(nil), s.byFactID[factID]...)
}

// Latest returns the most recent result for factID, or ok=false if none.
func (s *Store) Latest(factID string) (schema.VerificationResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hist := s.byFactID[factID]
	if len(hist) == 0 {
		return schema.VerificationResult{}, false
	}
	return hist[len(hist)-1], true
}

// CompleteReview marks a fact's outstanding human-review requirement
// satisfied, clearing it from the pending set. The fact's reclassification
// becomes final only once this is called (spec §4.11).
func (s *Store) CompleteReview(factID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pendingReview, factID)
	hist := s.byFactID[factID]
	if len(hist) > 0 {
		hist[len(hist)-1].HumanReviewCompleted = true
	}
}

// PendingReview returns every fact_id still awaiting human sign-off.
func (s *Store) PendingReview() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.pendingReview))
	for id := range s.pendingReview {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
