package quest

import "sync"

// MemoryStore is the default in-process ProgressStore. Progress does not
// survive a restart; that tradeoff is deliberate for everything except
// the first-post quest, which checks the backend instead.
type MemoryStore struct {
	mu        sync.Mutex
	counts    map[string]int
	completed map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counts:    make(map[string]int),
		completed: make(map[string]bool),
	}
}

func key(userID, questID string) string {
	return userID + "/" + questID
}

func (s *MemoryStore) Progress(userID, questID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[key(userID, questID)], nil
}

func (s *MemoryStore) Increment(userID, questID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(userID, questID)
	s.counts[k]++
	return s.counts[k], nil
}

func (s *MemoryStore) Completed(userID, questID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed[key(userID, questID)], nil
}

func (s *MemoryStore) MarkCompleted(userID, questID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed[key(userID, questID)] = true
	return nil
}

func (s *MemoryStore) Close() error { return nil }
