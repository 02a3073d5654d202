// Copyright 2015 The etcd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package raft

// ServerId identifies a server in the cluster. It is assigned outside
// this package; 0 (None) is reserved and never refers to a real server.
type ServerId uint64

// None is the placeholder id used when there is no leader or no vote cast.
const None ServerId = 0

// Term is Raft's monotonically increasing logical clock.
type Term uint64

// LogIndex indexes the replicated log, starting at 1. 0 means "before
// the log".
type LogIndex uint64

// EntryKind discriminates the payload carried by a LogEntry.
type EntryKind int

const (
	// EntryNoop occupies a log index without any effect on the state
	// machine or configuration.
	EntryNoop EntryKind = iota
	// EntryConfig carries a single-server membership change.
	EntryConfig
	// EntryCommand carries an opaque command for the user state machine.
	EntryCommand
)

func (k EntryKind) String() string {
	switch k {
	case EntryNoop:
		return "Noop"
	case EntryConfig:
		return "Config"
	case EntryCommand:
		return "Command"
	default:
		return "Unknown"
	}
}

// ConfigChangeKind discriminates the single-server membership change
// carried by an EntryConfig entry.
type ConfigChangeKind int

const (
	ConfigAddMember ConfigChangeKind = iota
	ConfigAddLearner
	ConfigRemoveServer
)

// ConfigChange is a single-server membership change.
type ConfigChange struct {
	Kind ConfigChangeKind
	Id   ServerId
}

// LogEntry is one entry in the replicated log.
type LogEntry struct {
	Index LogIndex
	Term  Term
	Kind  EntryKind

	// Config is populated iff Kind == EntryConfig.
	Config ConfigChange
	// Command is populated iff Kind == EntryCommand.
	Command []byte
}

// Metadata is the persistent per-server state: current term, the
// candidate (if any) voted for in that term, and the commit index.
type Metadata struct {
	CurrentTerm Term
	VotedFor    *ServerId
	CommitIndex LogIndex
}

// Configuration is the cluster membership view: members participate in
// quorum and elections, learners only receive replication.
type Configuration struct {
	Members  map[ServerId]struct{}
	Learners map[ServerId]struct{}
}

// NewConfiguration returns an empty Configuration.
func NewConfiguration() Configuration {
	return Configuration{
		Members:  make(map[ServerId]struct{}),
		Learners: make(map[ServerId]struct{}),
	}
}

// Contains reports whether id is a member or a learner.
func (c *Configuration) Contains(id ServerId) bool {
	if _, ok := c.Members[id]; ok {
		return true
	}
	_, ok := c.Learners[id]
	return ok
}

// AllIds returns every member and learner id, order unspecified.
func (c *Configuration) AllIds() []ServerId {
	ids := make([]ServerId, 0, len(c.Members)+len(c.Learners))
	for id := range c.Members {
		ids = append(ids, id)
	}
	for id := range c.Learners {
		ids = append(ids, id)
	}
	return ids
}

func (c *Configuration) clone() Configuration {
	out := NewConfiguration()
	for id := range c.Members {
		out.Members[id] = struct{}{}
	}
	for id := range c.Learners {
		out.Learners[id] = struct{}{}
	}
	return out
}

// ConfigurationSnapshot is the configuration as of some committed index.
type ConfigurationSnapshot struct {
	LastApplied LogIndex
	Data        Configuration
}

// Proposal identifies a log entry a leader accepted on behalf of a
// caller; it is the handle used later with ProposalStatusOf.
type Proposal struct {
	Term  Term
	Index LogIndex
}
