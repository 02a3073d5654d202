package storage

import (
	"testing"

	"github.com/pingcap-incubator/raftcore/raft"
	"github.com/stretchr/testify/require"
)

func TestMemLogEmptyIndices(t *testing.T) {
	log := NewMemLog()
	_, ok := log.FirstIndex()
	require.False(t, ok)
	_, ok = log.LastIndex()
	require.False(t, ok)

	term, ok := log.Term(0)
	require.True(t, ok)
	require.Equal(t, raft.Term(0), term)
}

func TestMemLogAppendAndLookup(t *testing.T) {
	log := NewMemLog()
	log.Append(raft.LogEntry{Index: 1, Term: 1, Kind: raft.EntryNoop})
	log.Append(raft.LogEntry{Index: 2, Term: 1, Kind: raft.EntryCommand, Command: []byte("x")})

	last, ok := log.LastIndex()
	require.True(t, ok)
	require.Equal(t, raft.LogIndex(2), last)

	e, ok := log.Entry(2)
	require.True(t, ok)
	require.Equal(t, []byte("x"), e.Command)

	match, ok := log.MatchIndex()
	require.True(t, ok)
	require.Equal(t, raft.LogIndex(2), match)
}

func TestMemLogTruncateSuffix(t *testing.T) {
	log := NewMemLog()
	log.Append(raft.LogEntry{Index: 1, Term: 1, Kind: raft.EntryNoop})
	log.Append(raft.LogEntry{Index: 2, Term: 1, Kind: raft.EntryNoop})
	log.Append(raft.LogEntry{Index: 3, Term: 1, Kind: raft.EntryNoop})

	log.TruncateSuffix(2)

	last, ok := log.LastIndex()
	require.True(t, ok)
	require.Equal(t, raft.LogIndex(1), last)

	_, ok = log.Entry(2)
	require.False(t, ok)
}
