package raft

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAppendEntriesCallbackAdvancesMatchIndexOnSuccess(t *testing.T) {
	now := time.Now()
	m, _ := newTestModule(1, []ServerId{1, 2, 3}, now)
	m.meta.CurrentTerm = 1
	makeLeader(m, 0, now)
	m.role.leader.servers[2].RequestPending = true

	tick := NewTick(now)
	m.AppendEntriesCallback(2, 5, AppendEntriesResponseBody{Term: 1, Success: true}, &tick)

	require.Equal(t, LogIndex(5), m.role.leader.servers[2].MatchIndex)
	require.Equal(t, LogIndex(6), m.role.leader.servers[2].NextIndex)
	require.False(t, m.role.leader.servers[2].RequestPending)
}

func TestAppendEntriesCallbackRollsBackNextIndexOnFailure(t *testing.T) {
	now := time.Now()
	m, _ := newTestModule(1, []ServerId{1, 2, 3}, now)
	m.meta.CurrentTerm = 1
	makeLeader(m, 10, now)
	m.role.leader.servers[2].NextIndex = 8

	hint := LogIndex(3)
	tick := NewTick(now)
	m.AppendEntriesCallback(2, 0, AppendEntriesResponseBody{Term: 1, Success: false, LastLogIndex: &hint}, &tick)

	require.Equal(t, LogIndex(4), m.role.leader.servers[2].NextIndex)
}

func TestAppendEntriesCallbackDecrementsNextIndexWithoutHint(t *testing.T) {
	now := time.Now()
	m, _ := newTestModule(1, []ServerId{1, 2, 3}, now)
	m.meta.CurrentTerm = 1
	makeLeader(m, 10, now)
	m.role.leader.servers[2].NextIndex = 8

	tick := NewTick(now)
	m.AppendEntriesCallback(2, 0, AppendEntriesResponseBody{Term: 1, Success: false}, &tick)

	require.Equal(t, LogIndex(7), m.role.leader.servers[2].NextIndex)
}

func TestAppendEntriesNoResponseClearsFlightControl(t *testing.T) {
	now := time.Now()
	m, _ := newTestModule(1, []ServerId{1, 2, 3}, now)
	makeLeader(m, 0, now)
	m.role.leader.servers[2].RequestPending = true

	tick := NewTick(now)
	m.AppendEntriesNoResponse(2, &tick)

	require.False(t, m.role.leader.servers[2].RequestPending)
}
