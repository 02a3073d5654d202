package raft

// ProposalStatus is the outcome of checking a Proposal against the
// local log and commit index.
type ProposalStatus int

const (
	ProposalCommitted ProposalStatus = iota
	ProposalFailed
	ProposalPending
	ProposalMissing
	ProposalUnavailable
)

func (s ProposalStatus) String() string {
	switch s {
	case ProposalCommitted:
		return "Committed"
	case ProposalFailed:
		return "Failed"
	case ProposalPending:
		return "Pending"
	case ProposalMissing:
		return "Missing"
	case ProposalUnavailable:
		return "Unavailable"
	default:
		return "Unknown"
	}
}

// ProposeCommand appends data as a Command entry if this server is the
// leader.
func (m *Module) ProposeCommand(data []byte, tick *Tick) (Proposal, error) {
	return m.proposeEntry(LogEntry{Kind: EntryCommand, Command: data}, tick)
}

// ProposeNoop appends a Noop entry if this server is the leader.
func (m *Module) ProposeNoop(tick *Tick) (Proposal, error) {
	return m.proposeEntry(LogEntry{Kind: EntryNoop}, tick)
}

// ProposeConfigChange appends a single-server membership change if this
// server is the leader and no other config change is currently
// pipelined.
func (m *Module) ProposeConfigChange(change ConfigChange, tick *Tick) (Proposal, error) {
	return m.proposeEntry(LogEntry{Kind: EntryConfig, Config: change}, tick)
}

// proposeEntry is the shared implementation behind every proposeX
// method.
func (m *Module) proposeEntry(data LogEntry, tick *Tick) (Proposal, error) {
	if m.role.role != RoleLeader {
		var hint *ServerId
		if m.role.role == RoleFollower {
			hint = m.role.follower.lastLeaderId
			if hint == nil {
				hint = m.meta.VotedFor
			}
		}
		return Proposal{}, notLeaderError(hint)
	}

	lastIndex, ok := m.log.LastIndex()
	if !ok {
		lastIndex = 0
	}
	term := m.meta.CurrentTerm
	index := lastIndex + 1

	if data.Kind == EntryConfig && m.config.pending != 0 {
		pendingTerm, _ := m.log.Term(m.config.pending)
		return Proposal{}, retryAfterError(Proposal{Index: m.config.pending, Term: pendingTerm})
	}

	data.Index = index
	data.Term = term
	tick.NewEntries = true
	m.log.Append(data)

	if entry, ok := m.log.Entry(index); ok {
		m.config.apply(entry, m.meta.CommitIndex)
	}

	m.cycle(tick)

	return Proposal{Term: term, Index: index}, nil
}

// ProposalStatusOf compares prop against the local log and commit
// index.
//
// The branch where the log term at prop.Index matches prop.Term but
// commit_index has not yet reached prop.Index returns Failed, not
// Pending, even though the entry is still in the log under the
// proposal's term and may yet commit. ProposalPending is never returned.
func (m *Module) ProposalStatusOf(prop Proposal) ProposalStatus {
	lastIndex, ok := m.log.LastIndex()
	if !ok {
		lastIndex = 0
	}
	lastTerm, _ := m.log.Term(lastIndex)

	if prop.Index > lastIndex || prop.Term > lastTerm {
		return ProposalMissing
	}

	entryTerm, ok := m.log.Term(prop.Index)
	if !ok {
		return ProposalUnavailable
	}

	switch {
	case entryTerm > prop.Term:
		return ProposalFailed
	case entryTerm < prop.Term:
		if m.meta.CommitIndex >= prop.Index {
			return ProposalFailed
		}
		return ProposalMissing
	default: // entryTerm == prop.Term
		if m.meta.CommitIndex >= prop.Index {
			return ProposalCommitted
		}
		return ProposalFailed
	}
}
