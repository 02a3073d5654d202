package raft

import "time"

// Cycle is the host's entry point into cycle, for when the timer
// scheduled from a previous Tick's NextTick fires.
func (m *Module) Cycle(tick *Tick) { m.cycle(tick) }

// cycle is the heartbeat of the module. proposeEntry, StartElection and
// the two callbacks call it once they have changed state; AppendEntries
// and RequestVote reach it only when they step down to Follower; the
// host reaches it through Cycle. It is a single, idempotent pass that
// recomputes timeouts and, for a leader, drives replication.
func (m *Module) cycle(tick *Tick) {
	if len(m.config.value.Members) == 0 || !m.config.value.Contains(m.id) {
		tick.scheduleNext(time.Second)
		return
	}

	switch m.role.role {
	case RoleFollower:
		m.cycleFollower(tick)
	case RoleCandidate:
		m.cycleCandidate(tick)
	case RoleLeader:
		m.cycleLeader(tick)
	}
}

func (m *Module) cycleFollower(tick *Tick) {
	f := m.role.follower
	elapsed := tick.Time.Sub(f.lastHeartbeat)

	if !m.canBeLeader() {
		if len(m.config.value.Members) == 1 {
			m.logger.Panicf("%d: corrupt log in single-node mode will not allow us to become the leader", m.id)
		}
		m.role = newFollowerRole(tick.Time, m.newElectionTimeout())
		return
	}

	if elapsed >= f.electionTimeout || len(m.config.value.Members) == 1 {
		m.StartElection(tick)
		return
	}

	tick.scheduleNext(f.electionTimeout - elapsed)
}

func (m *Module) cycleCandidate(tick *Tick) {
	c := m.role.candidate
	voteCount := 1 + len(c.votesReceived)

	if voteCount >= m.majoritySize() {
		lastIndex, ok := m.log.LastIndex()
		if !ok {
			lastIndex = 0
		}

		leader := newLeaderRole()
		for id := range m.config.value.Members {
			if id == m.id {
				continue
			}
			progress := newServerProgress(lastIndex)
			leader.leader.servers[id] = &progress
		}
		m.role = leader

		if m.meta.CommitIndex < lastIndex {
			if _, err := m.ProposeNoop(tick); err != nil {
				m.logger.Panicf("%d failed to propose self-noop as leader: %v", m.id, err)
			}
		}

		m.cycle(tick)
		return
	}

	elapsed := tick.Time.Sub(c.electionStart)
	if elapsed >= c.electionTimeout {
		m.StartElection(tick)
		return
	}
	tick.scheduleNext(c.electionTimeout - elapsed)
}

func (m *Module) cycleLeader(tick *Tick) {
	if ci, ok := m.findNextCommitIndex(); ok {
		m.updateCommitted(ci, tick)
	}

	nextHeartbeat := m.replicateEntries(tick)

	if len(m.config.value.Members)+len(m.config.value.Learners) == 1 {
		nextHeartbeat = 2 * time.Second
	}
	tick.scheduleNext(nextHeartbeat)
}

// findNextCommitIndex walks the log backward from last_log_index to
// commit_index+1, looking for the highest current-term entry that a
// majority of voting members already hold.
func (m *Module) findNextCommitIndex() (LogIndex, bool) {
	lastIndex, ok := m.log.LastIndex()
	if !ok {
		lastIndex = 0
	}
	majority := m.majoritySize()

	for ci := lastIndex; ci > m.meta.CommitIndex; ci-- {
		term, ok := m.log.Term(ci)
		if !ok {
			continue
		}
		if term < m.meta.CurrentTerm {
			break
		}
		if term != m.meta.CurrentTerm {
			continue
		}

		count := 0
		if matchIndex, ok := m.log.MatchIndex(); ok && matchIndex >= ci {
			count++
		}
		for id, p := range m.role.leader.servers {
			if id == m.id {
				continue
			}
			if _, voting := m.config.value.Members[id]; !voting {
				continue
			}
			if p.MatchIndex >= ci {
				count++
			}
		}

		if count >= majority {
			return ci, true
		}
	}
	return 0, false
}

func (m *Module) updateCommitted(index LogIndex, tick *Tick) {
	if index <= m.meta.CommitIndex {
		m.logger.Panicf("%d: updateCommitted called with a non-increasing index", m.id)
	}
	m.meta.CommitIndex = index
	tick.writeMeta()

	if m.config.commit(m.meta.CommitIndex) {
		tick.writeConfig()
	}
}

// replicateEntries builds and sends AppendEntries (or bare heartbeats)
// to every server in members ∪ learners other than ourselves, honoring
// per-follower flight control, and returns the suggested next tick.
func (m *Module) replicateEntries(tick *Tick) time.Duration {
	leader := m.role.leader

	lastIndex, ok := m.log.LastIndex()
	if !ok {
		lastIndex = 0
	}

	sinceLastHeartbeat := time.Duration(0)

	ids := m.config.value.AllIds()
	for _, id := range ids {
		if id == m.id {
			continue
		}

		progress, ok := leader.servers[id]
		if !ok {
			fresh := newServerProgress(lastIndex)
			progress = &fresh
			leader.servers[id] = progress
		}

		if progress.RequestPending {
			continue
		}

		if progress.MatchIndex >= lastIndex && !progress.LastSent.IsZero() {
			elapsed := tick.Time.Sub(progress.LastSent)
			if elapsed < heartbeatTimeout {
				if elapsed > sinceLastHeartbeat {
					sinceLastHeartbeat = elapsed
				}
				continue
			}
		}

		progress.RequestPending = true
		progress.LastSent = tick.Time

		prevLogIndex := progress.NextIndex - 1
		prevLogTerm, _ := m.log.Term(prevLogIndex)

		var entries []LogEntry
		for i := prevLogIndex + 1; i <= lastIndex; i++ {
			if e, ok := m.log.Entry(i); ok {
				entries = append(entries, e)
			}
		}

		body := AppendEntriesBody{
			Term:         m.meta.CurrentTerm,
			LeaderId:     m.id,
			PrevLogIndex: prevLogIndex,
			PrevLogTerm:  prevLogTerm,
			Entries:      entries,
			LeaderCommit: m.meta.CommitIndex,
		}
		tick.send(Message{Kind: MsgAppendEntries, From: m.id, To: id, AppendEntries: &body})
	}

	return heartbeatTimeout - sinceLastHeartbeat
}
