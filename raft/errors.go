package raft

import (
	"fmt"

	juju "github.com/juju/errors"
	pcerr "github.com/pingcap/errors"
)

// ProposeError is returned by propose_command/propose_noop/
// propose_entry when the entry could not be appended right now. Both
// cases are client-recoverable: the caller inspects the error and
// retries, either against leaderHint or after retryAfter resolves.
type ProposeError struct {
	// NotLeader is non-nil when this server isn't the leader.
	NotLeader *NotLeaderError
	// RetryAfter is non-nil when a config-change proposal is blocked on
	// an earlier uncommitted one.
	RetryAfter *RetryAfterError
}

func (e *ProposeError) Error() string {
	switch {
	case e.NotLeader != nil:
		return e.NotLeader.Error()
	case e.RetryAfter != nil:
		return e.RetryAfter.Error()
	default:
		return "propose error"
	}
}

// NotLeaderError reports that this server cannot accept proposals;
// LeaderHint, if non-nil, is the server the caller should retry
// against.
type NotLeaderError struct {
	LeaderHint *ServerId
}

func (e *NotLeaderError) Error() string {
	if e.LeaderHint == nil {
		return "not leader: no hint available"
	}
	return fmt.Sprintf("not leader: retry against %d", *e.LeaderHint)
}

func notLeaderError(hint *ServerId) error {
	return pcerr.Trace(&ProposeError{NotLeader: &NotLeaderError{LeaderHint: hint}})
}

// RetryAfterError reports that a config-change proposal is pipelined
// behind Pending; the caller should wait for Pending to resolve (via
// ProposalStatusOf) and retry.
type RetryAfterError struct {
	Pending Proposal
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("retry after proposal resolves at term=%d index=%d", e.Pending.Term, e.Pending.Index)
}

func retryAfterError(p Proposal) error {
	return pcerr.Trace(&ProposeError{RetryAfter: &RetryAfterError{Pending: p}})
}

// AsProposeError unwraps err (possibly traced by pingcap/errors) back
// into a *ProposeError, for callers that want to switch on which case
// occurred.
func AsProposeError(err error) (*ProposeError, bool) {
	cause := pcerr.Cause(err)
	pe, ok := cause.(*ProposeError)
	return pe, ok
}

// Protocol errors returned from append_entries. These signal a
// malformed or safety-violating batch; the host should close the
// offending connection. The log, commit index and configuration are
// left untouched, but a higher request term has already been adopted
// and a follower has already recorded the request's leader and
// heartbeat time.
var (
	ErrMalformedBatch        = juju.New("append_entries: malformed batch")
	ErrTwoLeadersSameTerm    = juju.New("append_entries: two leaders observed in the same term")
	ErrBeforeSnapshotHorizon = juju.New("append_entries: request predates our compaction horizon")
	ErrRefuseTruncateCommit  = juju.New("append_entries: refusing to truncate committed entries")
)
