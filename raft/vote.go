package raft

// PreVote is a pure, non-mutating predicate: would this server grant
// RequestVote(req) right now? It backs both the real request_vote
// handler's grant decision and an external pre-vote round a host may
// run before incrementing its term, to avoid disruptive term inflation
// from a partitioned candidate.
func (m *Module) PreVote(req RequestVoteBody) RequestVoteResponseBody {
	return RequestVoteResponseBody{
		Term:        m.meta.CurrentTerm,
		VoteGranted: m.shouldGrantVote(req),
	}
}

func (m *Module) shouldGrantVote(req RequestVoteBody) bool {
	if req.Term < m.meta.CurrentTerm {
		return false
	}

	lastIndex, ok := m.log.LastIndex()
	if !ok {
		lastIndex = 0
	}
	lastTerm, _ := m.log.Term(lastIndex)

	upToDate := req.LastLogTerm > lastTerm ||
		(req.LastLogTerm == lastTerm && req.LastLogIndex >= lastIndex)
	if !upToDate {
		return false
	}

	// A strictly higher term implies we can't have voted for anyone in
	// it yet.
	if req.Term > m.meta.CurrentTerm {
		return true
	}

	return m.meta.VotedFor == nil || *m.meta.VotedFor == req.CandidateId
}

// RequestVote handles an incoming vote request. The response is
// wrapped in MustPersist because granting a vote dirties VotedFor,
// which must be durable before the response is allowed out over the
// wire.
func (m *Module) RequestVote(req RequestVoteBody, tick *Tick) MustPersist[RequestVoteResponseBody] {
	m.observeTerm(req.Term, tick)

	resp := m.PreVote(req)
	if resp.VoteGranted {
		if m.role.role != RoleFollower {
			m.logger.Panicf("%d granted a vote but is not a follower (role=%s)", m.id, m.role.role)
		}
		m.role.follower.lastHeartbeat = tick.Time
		candidate := req.CandidateId
		m.meta.VotedFor = &candidate
		tick.writeMeta()
	}
	return newMustPersist(resp)
}

// RequestVoteCallback handles the response to a RequestVote this server
// sent to from.
func (m *Module) RequestVoteCallback(from ServerId, resp RequestVoteResponseBody, tick *Tick) {
	m.observeTerm(resp.Term, tick)

	if m.meta.CurrentTerm != resp.Term || m.role.role != RoleCandidate {
		return
	}
	if from == m.id {
		return
	}

	if resp.VoteGranted {
		m.role.candidate.votesReceived[from] = struct{}{}
	} else {
		m.role.candidate.someRejected = true
	}
	m.cycle(tick)
}

// observeTerm is run whenever a term is seen in a remote request or
// response: if it's higher than ours, we must step down to Follower.
func (m *Module) observeTerm(term Term, tick *Tick) {
	if term > m.meta.CurrentTerm {
		m.meta.CurrentTerm = term
		m.meta.VotedFor = nil
		tick.writeMeta()
		m.becomeFollower(tick)
	}
}

func (m *Module) becomeFollower(tick *Tick) {
	m.role = newFollowerRole(tick.Time, m.newElectionTimeout())
	m.cycle(tick)
}
