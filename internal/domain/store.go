package domain

// ProgressStore tracks per-(user, quest) counters and completion markers.
// Increment must behave as an atomic read-modify-write under concurrent
// event handlers. The default implementation is in-memory; a durable
// implementation can be swapped in without touching call sites.
type ProgressStore interface {
	Progress(userID, questID string) (int, error)
	Increment(userID, questID string) (int, error)
	Completed(userID, questID string) (bool, error)
	MarkCompleted(userID, questID string) error
	Close() error
}
