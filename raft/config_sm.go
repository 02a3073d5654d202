package raft

// configStateMachine applies config-change log entries to an in-memory
// Configuration as they land and as they commit, and can revert past a
// truncation point. At most one config change may be pending (in the
// log but not yet committed) at a time; pending tracks it so
// proposeEntry can hand back a retry hint.
type configStateMachine struct {
	value       Configuration
	lastApplied LogIndex

	// pending is the index of the most recent uncommitted config
	// change applied to value, or 0 if none is outstanding.
	pending LogIndex

	// history remembers, for every applied config-changing index not
	// yet committed, the Configuration value immediately before that
	// change landed — so revert can restore it exactly.
	history map[LogIndex]Configuration
}

func newConfigStateMachine(snapshot ConfigurationSnapshot) *configStateMachine {
	return &configStateMachine{
		value:       snapshot.Data.clone(),
		lastApplied: snapshot.LastApplied,
		history:     make(map[LogIndex]Configuration),
	}
}

// apply absorbs entry if it is a config change, recording enough
// history to revert it later. commitIndex is used only to decide
// whether a freshly-applied change is already committed (restoring from
// a snapshot that landed mid-change).
func (c *configStateMachine) apply(entry LogEntry, commitIndex LogIndex) {
	if entry.Index <= c.lastApplied {
		return
	}
	c.lastApplied = entry.Index

	if entry.Kind != EntryConfig {
		return
	}

	c.history[entry.Index] = c.value.clone()
	switch entry.Config.Kind {
	case ConfigAddMember:
		delete(c.value.Learners, entry.Config.Id)
		c.value.Members[entry.Config.Id] = struct{}{}
	case ConfigAddLearner:
		delete(c.value.Members, entry.Config.Id)
		c.value.Learners[entry.Config.Id] = struct{}{}
	case ConfigRemoveServer:
		delete(c.value.Members, entry.Config.Id)
		delete(c.value.Learners, entry.Config.Id)
	}

	if entry.Index <= commitIndex {
		delete(c.history, entry.Index)
		c.pending = 0
	} else {
		c.pending = entry.Index
	}
}

// commit marks index (and anything before it) as committed. Returns
// true iff the pending change was resolved by this commit, meaning the
// host should persist the new snapshot.
func (c *configStateMachine) commit(commitIndex LogIndex) bool {
	if c.pending == 0 || c.pending > commitIndex {
		return false
	}
	for idx := range c.history {
		if idx <= commitIndex {
			delete(c.history, idx)
		}
	}
	c.pending = 0
	return true
}

// revert undoes every application at index >= from, restoring value to
// whatever it was immediately before the earliest reverted change.
func (c *configStateMachine) revert(from LogIndex) {
	var earliest LogIndex
	restored, found := Configuration{}, false
	for idx, snap := range c.history {
		if idx < from {
			continue
		}
		if !found || idx < earliest {
			earliest, restored, found = idx, snap, true
		}
	}
	if found {
		c.value = restored
	}
	for idx := range c.history {
		if idx >= from {
			delete(c.history, idx)
		}
	}
	if from <= c.lastApplied {
		c.lastApplied = from - 1
	}
	if c.pending != 0 && c.pending >= from {
		c.pending = 0
	}
}

// snapshot returns the current configuration and the index it reflects.
func (c *configStateMachine) snapshot() ConfigurationSnapshot {
	return ConfigurationSnapshot{LastApplied: c.lastApplied, Data: c.value.clone()}
}
