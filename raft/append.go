package raft

// MatchConstraint wraps an AppendEntriesResponseBody together with the
// log position it was computed against. The response is only valid to
// send if the log at Pos still matches when the host serializes the
// reply — the host must either hold the write lock across the send or
// re-verify before transmitting.
type MatchConstraint struct {
	Response AppendEntriesResponseBody
	PosTerm  Term
	PosIndex LogIndex
}

// AppendEntries handles a replication batch from the claimed leader.
func (m *Module) AppendEntries(req AppendEntriesBody, tick *Tick) (MatchConstraint, error) {
	m.observeTerm(req.Term, tick)

	if req.Term == m.meta.CurrentTerm && m.role.role == RoleCandidate {
		m.becomeFollower(tick)
	}

	respond := func(success bool, lastLogIndex *LogIndex) MatchConstraint {
		lastIndex, ok := m.log.LastIndex()
		if !ok {
			lastIndex = 0
		}
		lastTerm, _ := m.log.Term(lastIndex)
		return MatchConstraint{
			Response: AppendEntriesResponseBody{Term: m.meta.CurrentTerm, Success: success, LastLogIndex: lastLogIndex},
			PosTerm:  lastTerm,
			PosIndex: lastIndex,
		}
	}

	if req.Term < m.meta.CurrentTerm {
		return respond(false, nil), nil
	}

	switch m.role.role {
	case RoleFollower:
		m.role.follower.lastHeartbeat = tick.Time
		leader := req.LeaderId
		m.role.follower.lastLeaderId = &leader
	case RoleLeader:
		if req.LeaderId != m.id {
			return MatchConstraint{}, ErrTwoLeadersSameTerm
		}
	case RoleCandidate:
		// observeTerm/the check above always demotes a same-term
		// candidate before we reach here.
		m.logger.Panicf("%d is still a candidate while handling append_entries at its own term", m.id)
	}

	if len(req.Entries) >= 1 {
		first := req.Entries[0]
		if first.Term < req.PrevLogTerm || first.Index != req.PrevLogIndex+1 {
			return MatchConstraint{}, ErrMalformedBatch
		}
		for i := 0; i+1 < len(req.Entries); i++ {
			cur, next := req.Entries[i], req.Entries[i+1]
			if cur.Term > next.Term || next.Index != cur.Index+1 {
				return MatchConstraint{}, ErrMalformedBatch
			}
		}
	}

	firstIndex, ok := m.log.FirstIndex()
	if !ok {
		firstIndex = 1
	}
	if req.PrevLogIndex < firstIndex-1 {
		return MatchConstraint{}, ErrBeforeSnapshotHorizon
	}

	prevTerm, ok := m.log.Term(req.PrevLogIndex)
	if !ok {
		lastIndex, lok := m.log.LastIndex()
		if !lok {
			lastIndex = 0
		}
		return respond(false, &lastIndex), nil
	}
	if prevTerm != req.PrevLogTerm {
		ci := m.meta.CommitIndex
		return respond(false, &ci), nil
	}

	lastNew, lastNewTerm := req.PrevLogIndex, req.PrevLogTerm
	firstNew := 0
	for _, e := range req.Entries {
		existingTerm, exists := m.log.Term(e.Index)
		if !exists {
			break
		}
		if existingTerm == e.Term {
			firstNew++
			lastNew, lastNewTerm = e.Index, e.Term
			continue
		}
		if m.meta.CommitIndex >= e.Index {
			return MatchConstraint{}, ErrRefuseTruncateCommit
		}
		m.config.revert(e.Index)
		m.log.TruncateSuffix(e.Index)
		break
	}

	if firstNew < len(req.Entries) {
		for _, e := range req.Entries[firstNew:] {
			tick.NewEntries = true
			m.log.Append(e)
			if entry, ok := m.log.Entry(e.Index); ok {
				m.config.apply(entry, m.meta.CommitIndex)
			}
			lastNew, lastNewTerm = e.Index, e.Term
		}
	}

	if req.LeaderCommit > m.meta.CommitIndex {
		next := req.LeaderCommit
		if lastNew < next {
			next = lastNew
		}
		if next > m.meta.CommitIndex {
			m.updateCommitted(next, tick)
		}
	}

	lastLogIndex, ok := m.log.LastIndex()
	if !ok {
		lastLogIndex = 0
	}
	var hint *LogIndex
	if lastLogIndex != lastNew {
		hint = &lastLogIndex
	}
	return MatchConstraint{
		Response: AppendEntriesResponseBody{Term: m.meta.CurrentTerm, Success: true, LastLogIndex: hint},
		PosTerm:  lastNewTerm,
		PosIndex: lastNew,
	}, nil
}

// AppendEntriesCallback handles the response to an AppendEntries this
// leader sent to from; lastIndex is the index of the last entry that
// request carried.
func (m *Module) AppendEntriesCallback(from ServerId, lastIndex LogIndex, resp AppendEntriesResponseBody, tick *Tick) {
	m.observeTerm(resp.Term, tick)

	if m.role.role != RoleLeader {
		return
	}
	progress, ok := m.role.leader.servers[from]
	if !ok {
		return
	}

	shouldNoop := false
	if resp.Success {
		if lastIndex > progress.MatchIndex {
			progress.MatchIndex = lastIndex
			progress.NextIndex = lastIndex + 1
		}
		if resp.LastLogIndex != nil {
			ourLast, ok := m.log.LastIndex()
			if !ok {
				ourLast = 0
			}
			ourLastTerm, _ := m.log.Term(ourLast)
			if *resp.LastLogIndex > ourLast && ourLastTerm != m.meta.CurrentTerm {
				shouldNoop = true
			}
		}
	} else {
		if resp.LastLogIndex != nil {
			progress.NextIndex = *resp.LastLogIndex + 1
		} else if progress.NextIndex > 1 {
			progress.NextIndex--
		}
	}
	progress.RequestPending = false

	if shouldNoop {
		if _, err := m.ProposeNoop(tick); err != nil {
			m.logger.Panicf("%d failed to propose self-noop as leader: %v", m.id, err)
		}
	} else {
		m.cycle(tick)
	}
}

// AppendEntriesNoResponse handles a timeout or transport error for an
// in-flight AppendEntries to from; it only clears flight control, it
// does not force a cycle.
func (m *Module) AppendEntriesNoResponse(from ServerId, tick *Tick) {
	if m.role.role != RoleLeader {
		return
	}
	if progress, ok := m.role.leader.servers[from]; ok {
		progress.RequestPending = false
	}
}
