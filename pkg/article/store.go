// Package article implements the investigation-keyed article store
// (spec §4.6): O(1) save/retrieve/duplicate-check with URL dedup and an
// optional JSON snapshot.
package article

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/watchtower-oss/watchtower/pkg/schema"
)

// Stats accompany a retrieval.
type Stats struct {
	TotalArticles int `json:"total_articles"`
}

// Result wraps a retrieval per spec §4.6 ({articles, total_articles}).
type Result struct {
	Articles      []schema.Article `json:"articles"`
	TotalArticles int              `json:"total_articles"`
}

type investigationBucket struct {
	byURL      map[string]schema.Article
	orderedIDs []string // preserves insertion order for deterministic retrieval
}

// Store is the in-memory article index. Writes to the same investigation
// are serialized by mu (spec §5 "writes to the same investigation are
// serialized by a per-investigation lock"); this implementation uses one
// lock for simplicity since article writes are not a contention hotspot.
type Store struct {
	mu   sync.RWMutex
	data map[string]*investigationBucket
}

// New constructs an empty Store.
func New() *Store {
	return &Store{data: make(map[string]*investigationBucket)}
}

// SaveArticles idempotently saves articles for investigationID, keyed by
// their already-canonical URL. Re-saving the same URL overwrites in place
// without growing the order list (spec §4.6: "save_articles is idempotent
// per URL").
func (s *Store) SaveArticles(investigationID string, articles []schema.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.data[investigationID]
	if !ok {
		bucket = &investigationBucket{byURL: make(map[string]schema.Article)}
		s.data[investigationID] = bucket
	}

	for _, a := range articles {
		if _, exists := bucket.byURL[a.URL]; !exists {
			bucket.orderedIDs = append(bucket.orderedIDs, a.URL)
		}
		bucket.byURL[a.URL] = a
	}
}

// RetrieveByInvestigation returns every saved article for investigationID
// in save order, wrapped per spec §4.6.
func (s *Store) RetrieveByInvestigation(investigationID string) Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket, ok := s.data[investigationID]
	if !ok {
		return Result{Articles: []schema.Article{}, TotalArticles: 0}
	}
	out := make([]schema.Article, 0, len(bucket.orderedIDs))
	for _, url := range bucket.orderedIDs {
		out = append(out, bucket.byURL[url])
	}
	return Result{Articles: out, TotalArticles: len(out)}
}

// IsDuplicate reports whether url is already saved for investigationID,
// without mutating state.
func (s *Store) IsDuplicate(investigationID, url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket, ok := s.data[investigationID]
	if !ok {
		return false
	}
	_, exists := bucket.byURL[url]
	return exists
}

// snapshot is the JSON-serializable form used by Snapshot/Load (spec §6.5).
type snapshot struct {
	Investigations map[string][]schema.Article `json:"investigations"`
}

// Snapshot writes every investigation's articles to path as JSON, in the
// in-memory record layout verbatim (spec §6.5).
func (s *Store) Snapshot(path string) error {
	s.mu.RLock()
	snap := snapshot{Investigations: make(map[string][]schema.Article, len(s.data))}
	for invID, bucket := range s.data {
		arts := make([]schema.Article, 0, len(bucket.orderedIDs))
		for _, url := range bucket.orderedIDs {
			arts = append(arts, bucket.byURL[url])
		}
		snap.Investigations[invID] = arts
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reloads a snapshot written by Snapshot, reproducing indices
// deterministically.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for invID, articles := range snap.Investigations {
		bucket := &investigationBucket{byURL: make(map[string]schema.Article, len(articles))}
		for _, a := range articles {
			bucket.byURL[a.URL] = a
			bucket.orderedIDs = append(bucket.orderedIDs, a.URL)
		}
		s.data[invID] = bucket
	}
	return nil
}
