package raft

import "time"

// Role identifies which of the three role payloads a Module currently
// holds.
type Role int

const (
	RoleFollower Role = iota
	RoleCandidate
	RoleLeader
)

func (r Role) String() string {
	switch r {
	case RoleFollower:
		return "Follower"
	case RoleCandidate:
		return "Candidate"
	case RoleLeader:
		return "Leader"
	default:
		return "Unknown"
	}
}

// followerState is the bookkeeping a Follower keeps.
type followerState struct {
	electionTimeout time.Duration
	lastHeartbeat   time.Time
	lastLeaderId    *ServerId
}

// candidateState is the bookkeeping a Candidate keeps.
type candidateState struct {
	electionStart   time.Time
	electionTimeout time.Duration
	votesReceived   map[ServerId]struct{}
	someRejected    bool
}

// leaderState is the bookkeeping a Leader keeps: one ServerProgress per
// other server in the cluster.
type leaderState struct {
	servers map[ServerId]*ServerProgress
}

// roleState is the tagged union of the three role payloads. Exactly one
// field is non-nil at a time; transitions (newFollowerRole/
// newCandidateRole/newLeaderRole) replace the whole value rather than
// mutating across roles.
type roleState struct {
	role      Role
	follower  *followerState
	candidate *candidateState
	leader    *leaderState
}

func newFollowerRole(now time.Time, timeout time.Duration) roleState {
	return roleState{
		role: RoleFollower,
		follower: &followerState{
			electionTimeout: timeout,
			lastHeartbeat:   now,
		},
	}
}

func newCandidateRole(now time.Time, timeout time.Duration) roleState {
	return roleState{
		role: RoleCandidate,
		candidate: &candidateState{
			electionStart:   now,
			electionTimeout: timeout,
			votesReceived:   make(map[ServerId]struct{}),
		},
	}
}

func newLeaderRole() roleState {
	return roleState{
		role:   RoleLeader,
		leader: &leaderState{servers: make(map[ServerId]*ServerProgress)},
	}
}
