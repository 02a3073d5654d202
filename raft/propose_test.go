package raft

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProposeCommandFailsWhenNotLeaderWithHint(t *testing.T) {
	now := time.Now()
	m, _ := newTestModule(1, []ServerId{1, 2, 3}, now)

	candidate := ServerId(2)
	m.meta.VotedFor = &candidate

	tick := NewTick(now)
	_, err := m.ProposeCommand([]byte("hello"), &tick)

	pe, ok := AsProposeError(err)
	require.True(t, ok)
	require.NotNil(t, pe.NotLeader)
	require.Equal(t, candidate, *pe.NotLeader.LeaderHint)
}

func TestProposeConfigChangeBlocksOnPendingChange(t *testing.T) {
	now := time.Now()
	m, _ := newTestModule(1, []ServerId{1, 2, 3}, now)
	m.meta.CurrentTerm = 1
	makeLeader(m, 0, now)

	tick := NewTick(now)
	m.cycle(&tick) // followers 2 and 3 acknowledge nothing, so the first change stays uncommitted
	require.Equal(t, RoleLeader, m.Role())

	first := NewTick(now)
	prop, err := m.ProposeConfigChange(ConfigChange{Kind: ConfigAddLearner, Id: 4}, &first)
	require.NoError(t, err)

	second := NewTick(now)
	_, err = m.ProposeConfigChange(ConfigChange{Kind: ConfigAddLearner, Id: 5}, &second)

	pe, ok := AsProposeError(err)
	require.True(t, ok)
	require.NotNil(t, pe.RetryAfter)
	require.Equal(t, prop.Index, pe.RetryAfter.Pending.Index)
}

func TestProposalStatusOfTable(t *testing.T) {
	now := time.Now()
	m, log := newTestModule(1, []ServerId{1}, now)
	m.meta.CurrentTerm = 3
	log.Append(LogEntry{Index: 1, Term: 2, Kind: EntryNoop})
	log.Append(LogEntry{Index: 2, Term: 3, Kind: EntryNoop})
	m.meta.CommitIndex = 1

	require.Equal(t, ProposalMissing, m.ProposalStatusOf(Proposal{Term: 3, Index: 3}))
	require.Equal(t, ProposalMissing, m.ProposalStatusOf(Proposal{Term: 5, Index: 2}))
	require.Equal(t, ProposalCommitted, m.ProposalStatusOf(Proposal{Term: 2, Index: 1}))

	// log[2].term == 3 == prop.term but commit_index(1) < 2: the entry is
	// still in the log, uncommitted, and ProposalStatusOf reports Failed,
	// not Pending.
	require.Equal(t, ProposalFailed, m.ProposalStatusOf(Proposal{Term: 3, Index: 2}))
}
