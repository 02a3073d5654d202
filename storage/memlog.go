// Package storage provides reference implementations of raft.Log, the
// capability set the consensus core uses to read and write the
// replicated log. Neither implementation is part of the core itself —
// both live on the host side of the boundary the core's interface
// draws.
package storage

import (
	"sync"

	"github.com/pingcap-incubator/raftcore/raft"
)

// MemLog is an in-memory raft.Log, suitable for tests and for hosts
// that don't need entries to survive a restart.
type MemLog struct {
	mu sync.RWMutex

	// entries[i] holds the entry at index firstIndex+i.
	entries    []raft.LogEntry
	firstIndex raft.LogIndex
	matchIndex raft.LogIndex
	hasMatch   bool
}

// NewMemLog returns an empty log starting at index 1.
func NewMemLog() *MemLog {
	return &MemLog{firstIndex: 1}
}

func (l *MemLog) FirstIndex() (raft.LogIndex, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 {
		return 0, false
	}
	return l.firstIndex, true
}

func (l *MemLog) LastIndex() (raft.LogIndex, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 {
		return 0, false
	}
	return l.firstIndex + raft.LogIndex(len(l.entries)) - 1, true
}

func (l *MemLog) Term(index raft.LogIndex) (raft.Term, bool) {
	if index == 0 {
		return 0, true
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 || index < l.firstIndex || index > l.firstIndex+raft.LogIndex(len(l.entries))-1 {
		return 0, false
	}
	return l.entries[index-l.firstIndex].Term, true
}

func (l *MemLog) Entry(index raft.LogIndex) (raft.LogEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 || index < l.firstIndex || index > l.firstIndex+raft.LogIndex(len(l.entries))-1 {
		return raft.LogEntry{}, false
	}
	return l.entries[index-l.firstIndex], true
}

func (l *MemLog) Append(entry raft.LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		l.firstIndex = entry.Index
	}
	l.entries = append(l.entries, entry)
	l.matchIndex = entry.Index
	l.hasMatch = true
}

func (l *MemLog) TruncateSuffix(from raft.LogIndex) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return
	}
	if from < l.firstIndex {
		from = l.firstIndex
	}
	keep := from - l.firstIndex
	if keep > raft.LogIndex(len(l.entries)) {
		return
	}
	l.entries = l.entries[:keep]
	if l.hasMatch && l.matchIndex >= from {
		if keep == 0 {
			l.hasMatch = false
			l.matchIndex = 0
		} else {
			l.matchIndex = from - 1
		}
	}
}

// MatchIndex reports the last appended index: MemLog has no separate
// flush step, so every append is immediately "durable".
func (l *MemLog) MatchIndex() (raft.LogIndex, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.matchIndex, l.hasMatch
}
