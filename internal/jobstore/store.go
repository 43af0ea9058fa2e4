package jobstore

import (
	"sort"
	"sync"
	"time"
)

// Store is a last-write-wins cache of the latest status per job, keyed by
// (kind, id). Every upsert replaces the prior record in full; there is no
// merge logic. The dispatcher is the only writer during normal operation,
// while any number of readers may query concurrently.
type Store struct {
	mu   sync.RWMutex
	seq  uint64
	jobs map[Kind]map[string]Record
}

// NewStore returns an empty store covering all known job kinds.
func NewStore() *Store {
	s := &Store{jobs: make(map[Kind]map[string]Record, len(Kinds()))}
	for _, kind := range Kinds() {
		s.jobs[kind] = make(map[string]Record)
	}
	return s
}

// Upsert replaces any existing record for (kind, id). The store assigns the
// arrival sequence and timestamp; everything else is taken from rec verbatim.
func (s *Store) Upsert(kind Kind, id string, rec Record) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	rec.ID = id
	rec.Kind = kind
	rec.Seq = s.seq
	rec.ReceivedAt = time.Now().UTC()

	byID, ok := s.jobs[kind]
	if !ok {
		byID = make(map[string]Record)
		s.jobs[kind] = byID
	}
	byID[id] = rec
	return rec
}

// Get returns a copy of the latest record for (kind, id), if present.
func (s *Store) Get(kind Kind, id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.jobs[kind][id]
	return rec, ok
}

// Evict removes the record for (kind, id). Removing an absent entry is a no-op.
func (s *Store) Evict(kind Kind, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs[kind], id)
}

// Clear removes every record from every kind.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for kind := range s.jobs {
		s.jobs[kind] = make(map[string]Record)
	}
}

// Len returns the total number of cached records across all kinds.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, byID := range s.jobs {
		total += len(byID)
	}
	return total
}

// Snapshot returns copies of all cached records ordered by arrival.
func (s *Store) Snapshot() []Record {
	s.mu.RLock()
	records := make([]Record, 0, 8)
	for _, byID := range s.jobs {
		for _, rec := range byID {
			records = append(records, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })
	return records
}

// Counts returns the number of cached records per status for the given kind.
func (s *Store) Counts(kind Kind) map[Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Status]int, 3)
	for _, rec := range s.jobs[kind] {
		counts[rec.Status]++
	}
	return counts
}
