package raft

// Log is the capability set the consensus core holds onto the host's
// durable log storage. The core never owns storage directly — the log
// is an external collaborator reached through this capability set; it
// only ever calls these seven methods.
//
// Implementations live outside this package (see package storage for
// two reference implementations); Append and TruncateSuffix are only
// ever called from within a single handler invocation, so an
// implementation never needs to guard against concurrent writers, only
// against concurrent readers observing a write mid-flight.
type Log interface {
	// FirstIndex returns the index of the oldest entry still retained,
	// or ok=false if the log is empty (fully compacted away).
	FirstIndex() (index LogIndex, ok bool)
	// LastIndex returns the index of the newest entry, or ok=false if
	// the log is empty.
	LastIndex() (index LogIndex, ok bool)
	// Term returns the term of the entry at index, Some(0) for index 0,
	// or ok=false if index is outside the retained range.
	Term(index LogIndex) (term Term, ok bool)
	// Entry returns the entry at index, or ok=false if it isn't
	// present (compacted or beyond the end of the log).
	Entry(index LogIndex) (entry LogEntry, ok bool)
	// Append adds entry to the log. The caller guarantees entry.Index
	// is exactly one past the current last index.
	Append(entry LogEntry)
	// TruncateSuffix removes every entry at index >= from.
	TruncateSuffix(from LogIndex)
	// MatchIndex returns the highest index durably flushed to stable
	// storage on this server, or ok=false if nothing has been flushed
	// yet.
	MatchIndex() (index LogIndex, ok bool)
}
