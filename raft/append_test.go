package raft

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAppendEntriesRejectsStaleTerm(t *testing.T) {
	now := time.Now()
	m, _ := newTestModule(1, []ServerId{1, 2, 3}, now)
	m.meta.CurrentTerm = 5

	tick := NewTick(now)
	result, err := m.AppendEntries(AppendEntriesBody{Term: 4, LeaderId: 2}, &tick)

	require.NoError(t, err)
	require.False(t, result.Response.Success)
	require.Nil(t, result.Response.LastLogIndex)
}

func TestAppendEntriesRefusesToTruncateCommittedEntries(t *testing.T) {
	now := time.Now()
	m, log := newTestModule(1, []ServerId{1, 2, 3}, now)

	log.Append(LogEntry{Index: 1, Term: 1, Kind: EntryNoop})
	log.Append(LogEntry{Index: 2, Term: 1, Kind: EntryNoop})
	m.meta.CurrentTerm = 1
	m.meta.CommitIndex = 2

	tick := NewTick(now)
	_, err := m.AppendEntries(AppendEntriesBody{
		Term:         1,
		LeaderId:     2,
		PrevLogIndex: 0,
		PrevLogTerm:  0,
		Entries:      []LogEntry{{Index: 1, Term: 2, Kind: EntryNoop}},
		LeaderCommit: 2,
	}, &tick)

	require.ErrorIs(t, err, ErrRefuseTruncateCommit)
}

func TestAppendEntriesAppendsAndAdvancesCommit(t *testing.T) {
	now := time.Now()
	m, log := newTestModule(1, []ServerId{1, 2, 3}, now)
	m.meta.CurrentTerm = 1

	tick := NewTick(now)
	result, err := m.AppendEntries(AppendEntriesBody{
		Term:         1,
		LeaderId:     2,
		PrevLogIndex: 0,
		PrevLogTerm:  0,
		Entries: []LogEntry{
			{Index: 1, Term: 1, Kind: EntryNoop},
			{Index: 2, Term: 1, Kind: EntryNoop},
		},
		LeaderCommit: 1,
	}, &tick)

	require.NoError(t, err)
	require.True(t, result.Response.Success)
	require.Equal(t, LogIndex(1), m.Meta().CommitIndex)

	last, ok := log.LastIndex()
	require.True(t, ok)
	require.Equal(t, LogIndex(2), last)
}

func TestAppendEntriesDemotesCandidateAtSameTerm(t *testing.T) {
	now := time.Now()
	m, _ := newTestModule(1, []ServerId{1, 2, 3}, now)

	tick := NewTick(now)
	m.StartElection(&tick)
	require.Equal(t, RoleCandidate, m.Role())
	term := m.Meta().CurrentTerm

	appendTick := NewTick(now)
	_, err := m.AppendEntries(AppendEntriesBody{Term: term, LeaderId: 2}, &appendTick)

	require.NoError(t, err)
	require.Equal(t, RoleFollower, m.Role())
}

func TestAppendEntriesConsistencyCheckBacksOffToCommitIndex(t *testing.T) {
	now := time.Now()
	m, log := newTestModule(1, []ServerId{1, 2, 3}, now)
	log.Append(LogEntry{Index: 1, Term: 1, Kind: EntryNoop})
	m.meta.CurrentTerm = 2
	m.meta.CommitIndex = 1

	tick := NewTick(now)
	result, err := m.AppendEntries(AppendEntriesBody{
		Term:         2,
		LeaderId:     2,
		PrevLogIndex: 1,
		PrevLogTerm:  2, // we actually have term 1 at index 1
		LeaderCommit: 1,
	}, &tick)

	require.NoError(t, err)
	require.False(t, result.Response.Success)
	require.NotNil(t, result.Response.LastLogIndex)
	require.Equal(t, LogIndex(1), *result.Response.LastLogIndex)
}
