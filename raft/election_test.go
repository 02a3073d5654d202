package raft

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSingleNodeBecomesLeaderWithoutWaiting(t *testing.T) {
	now := time.Now()
	m, _ := newTestModule(1, []ServerId{1}, now)

	tick := NewTick(now)
	m.cycle(&tick)

	require.Equal(t, RoleLeader, m.Role())
}

func TestThreeNodeElectionRequiresMajority(t *testing.T) {
	now := time.Now()
	m, _ := newTestModule(1, []ServerId{1, 2, 3}, now)

	tick := NewTick(now.Add(time.Second))
	m.StartElection(&tick)

	require.Equal(t, RoleCandidate, m.Role())
	require.Len(t, tick.Messages, 2)

	// Three members means majority_size() == 2: our own vote plus one
	// more external grant is enough.
	cb1 := NewTick(now.Add(time.Second))
	m.RequestVoteCallback(2, RequestVoteResponseBody{Term: m.Meta().CurrentTerm, VoteGranted: true}, &cb1)
	require.Equal(t, RoleLeader, m.Role())
}

func TestSplitVoteStartsNewElectionAfterTimeout(t *testing.T) {
	now := time.Now()
	m, _ := newTestModule(1, []ServerId{1, 2, 3}, now)

	tick := NewTick(now)
	m.StartElection(&tick)
	firstTerm := m.Meta().CurrentTerm

	reject := NewTick(now)
	m.RequestVoteCallback(2, RequestVoteResponseBody{Term: firstTerm, VoteGranted: false}, &reject)
	require.True(t, m.role.candidate.someRejected)

	later := now.Add(time.Second)
	retry := NewTick(later)
	m.cycle(&retry)
	require.Equal(t, firstTerm+1, m.Meta().CurrentTerm, "a rejection forces the term to advance on retry")
}

func TestCandidateRetriesSameTermWithoutRejection(t *testing.T) {
	now := time.Now()
	m, _ := newTestModule(1, []ServerId{1, 2, 3}, now)

	tick := NewTick(now)
	m.StartElection(&tick)
	firstTerm := m.Meta().CurrentTerm

	retry := NewTick(now.Add(time.Second))
	m.StartElection(&retry)
	require.Equal(t, firstTerm, m.Meta().CurrentTerm, "no rejection yet, so the term should be reused on retry")
}

func TestTimeoutNowTriggersImmediateElection(t *testing.T) {
	now := time.Now()
	m, _ := newTestModule(1, []ServerId{1, 2, 3}, now)
	require.Equal(t, RoleFollower, m.Role())

	tick := NewTick(now)
	require.NoError(t, m.TimeoutNow(&tick))
	require.Equal(t, RoleCandidate, m.Role())
}
