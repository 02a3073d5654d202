package raft

import "time"

// ServerProgress is what a leader tracks about one other server's
// replication state.
type ServerProgress struct {
	// NextIndex is the next log index to send this server.
	NextIndex LogIndex
	// MatchIndex is the highest index known to be replicated on this
	// server.
	MatchIndex LogIndex
	// LastSent is when we last sent this server a request, or the zero
	// value if we never have.
	LastSent time.Time
	// RequestPending is true while a request to this server is in
	// flight; replicateEntries will not send another until it clears.
	RequestPending bool
}

func newServerProgress(lastLogIndex LogIndex) ServerProgress {
	return ServerProgress{NextIndex: lastLogIndex + 1}
}
