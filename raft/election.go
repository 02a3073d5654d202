package raft

// StartElection begins a new election: becomes (or stays) Candidate and
// requests votes from every other member. The host is only ever
// expected to trigger this when canBeLeader() holds — cycle checks
// that invariant for timer-driven elections, and TimeoutNow trusts the
// leader that issued it to have done the same for leadership transfer.
func (m *Module) StartElection(tick *Tick) {
	if !m.canBeLeader() {
		m.logger.Panicf("%d cannot become the leader of this cluster (commit_index ahead of its log)", m.id)
	}

	mustIncrement := true
	if m.role.role == RoleCandidate && !m.role.candidate.someRejected {
		mustIncrement = false
	}

	if mustIncrement {
		m.meta.CurrentTerm++
		self := m.id
		m.meta.VotedFor = &self
		tick.writeMeta()
	}

	m.role = newCandidateRole(tick.Time, m.newElectionTimeout())

	m.performElection(tick)

	m.cycle(tick)
}

// performElection sends the current term's RequestVote to every other
// member. It's a no-op for a single-member cluster, since there's
// nobody left to ask — cycle alone will carry us to Leader.
func (m *Module) performElection(tick *Tick) {
	lastIndex, ok := m.log.LastIndex()
	if !ok {
		lastIndex = 0
	}
	lastTerm, _ := m.log.Term(lastIndex)

	req := RequestVoteBody{
		Term:         m.meta.CurrentTerm,
		CandidateId:  m.id,
		LastLogIndex: lastIndex,
		LastLogTerm:  lastTerm,
	}

	for id := range m.config.value.Members {
		if id == m.id {
			continue
		}
		tick.send(Message{Kind: MsgRequestVote, From: m.id, To: id, RequestVote: &req})
	}
}

// TimeoutNow handles a leadership-transfer nudge from the current
// leader: immediately contest an election, skipping the wait for our
// own timeout to elapse.
func (m *Module) TimeoutNow(tick *Tick) error {
	m.StartElection(tick)
	return nil
}
