package raft

import (
	"math"
	"math/rand"
	"time"

	juju "github.com/juju/errors"
	pcerr "github.com/pingcap/errors"
)

// electionTimeoutMin/Max bound the randomized election timeout window;
// heartbeatTimeout is how often a leader must touch base with each
// follower to keep it from starting an election.
const (
	electionTimeoutMin = 400 * time.Millisecond
	electionTimeoutMax = 800 * time.Millisecond
	heartbeatTimeout   = 150 * time.Millisecond
)

// Rand is the randomness source new_election_timeout draws from; it is
// injected rather than reached for as package-global randomness so
// tests can make elections deterministic.
type Rand interface {
	Int63n(n int64) int64
}

// Module is the consensus core: the public handler surface plus the
// construction/reconciliation logic that brings a server back up from
// its persisted state. It holds no reference to the network or to
// durable storage beyond the Log capability set; every handler is a
// synchronous, side-effect-free (beyond the returned Tick) state
// transition.
type Module struct {
	id ServerId

	meta   Metadata
	config *configStateMachine
	log    Log
	role   roleState

	rand Rand

	logger Logger
}

// Config collects everything New needs to construct a Module. ID and
// Storage are mandatory; Rand and Logger fall back to DefaultRand and
// the package's zap-backed default when left nil.
type Config struct {
	// ID is this server's identity. It cannot be None.
	ID ServerId
	// Meta is the persisted term/vote/commit state to resume from.
	Meta Metadata
	// Snapshot is the persisted configuration state to resume from.
	Snapshot ConfigurationSnapshot
	// Storage is the durable log this server's entries live in.
	Storage Log
	// Rand is the randomness source election timeouts are drawn from.
	Rand Rand
	// Logger receives the core's diagnostic output.
	Logger Logger
}

func (c *Config) validate() error {
	if c.ID == None {
		return juju.New("raft: cannot use None as id")
	}
	if c.Storage == nil {
		return juju.New("raft: storage cannot be nil")
	}
	if c.Rand == nil {
		c.Rand = DefaultRand
	}
	if c.Logger == nil {
		c.Logger = defaultLogger
	}
	return nil
}

// New constructs a Module from its current persistent and volatile
// state, validating cfg first. Construction reconciles the three
// independently-persisted inputs: if the log's last term exceeds
// meta.CurrentTerm, the term is raised and VotedFor cleared (we may
// have cast a vote in that term without durably recording it); if the
// snapshot's LastApplied exceeds meta.CommitIndex, CommitIndex is
// raised to match. It panics if the snapshot ends before the log
// begins, since that would mean a gap no replay could ever fill.
func New(cfg Config) (*Module, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return newModule(cfg.ID, cfg.Meta, cfg.Snapshot, cfg.Storage, cfg.Rand, cfg.Logger, time.Now()), nil
}

func newModule(id ServerId, meta Metadata, snapshot ConfigurationSnapshot, log Log, rnd Rand, logger Logger, now time.Time) *Module {
	if logger == nil {
		logger = defaultLogger
	}

	lastIndex, ok := log.LastIndex()
	if !ok {
		lastIndex = 0
	}
	lastTerm, ok := log.Term(lastIndex)
	if !ok {
		lastTerm = 0
	}
	if lastTerm > meta.CurrentTerm {
		meta.CurrentTerm = lastTerm
		meta.VotedFor = nil
	}

	if snapshot.LastApplied > meta.CommitIndex {
		meta.CommitIndex = snapshot.LastApplied
	}

	firstIndex, ok := log.FirstIndex()
	if ok && snapshot.LastApplied+1 < firstIndex {
		panic(pcerr.Errorf("raft: config snapshot (last_applied=%d) predates the start of the log (first_index=%d)", snapshot.LastApplied, firstIndex))
	}

	cfg := newConfigStateMachine(snapshot)
	for i := cfg.lastApplied + 1; i <= lastIndex; i++ {
		if e, ok := log.Entry(i); ok {
			cfg.apply(e, meta.CommitIndex)
		}
	}

	m := &Module{
		id:     id,
		meta:   meta,
		config: cfg,
		log:    log,
		rand:   rnd,
		logger: logger,
	}
	m.role = newFollowerRole(now, m.newElectionTimeout())
	return m
}

// Id returns this server's id.
func (m *Module) Id() ServerId { return m.id }

// Meta returns a copy of the current persistent metadata.
func (m *Module) Meta() Metadata { return m.meta }

// Role returns which role this server currently holds.
func (m *Module) Role() Role { return m.role.role }

// ConfigSnapshot returns the current in-memory configuration and the
// index it reflects.
func (m *Module) ConfigSnapshot() ConfigurationSnapshot { return m.config.snapshot() }

// canBeLeader reports whether this server's log is caught up enough to
// safely lead: a leader may commit entries before they're locally
// durable, so a crashed-and-restarted former leader may be missing
// entries it once committed, and must not lead again until resynced.
func (m *Module) canBeLeader() bool {
	last, ok := m.log.LastIndex()
	if !ok {
		last = 0
	}
	return last >= m.meta.CommitIndex
}

// majoritySize is floor(|members|/2)+1, or an unreachable sentinel when
// members is empty — this keeps a server with no configured peers yet
// from accidentally electing itself during a bootstrap window.
func (m *Module) majoritySize() int {
	n := len(m.config.value.Members)
	if n == 0 {
		return math.MaxInt
	}
	return n/2 + 1
}

func (m *Module) newElectionTimeout() time.Duration {
	span := int64(electionTimeoutMax - electionTimeoutMin)
	return electionTimeoutMin + time.Duration(m.rand.Int63n(span))
}

// mathRand adapts math/rand's package-level source to the Rand
// interface, for hosts that don't care about deterministic tests.
type mathRand struct{}

func (mathRand) Int63n(n int64) int64 { return rand.Int63n(n) }

// DefaultRand is a non-deterministic Rand backed by math/rand; tests
// should inject their own deterministic Rand instead.
var DefaultRand Rand = mathRand{}
