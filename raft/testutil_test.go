package raft

import (
	"time"

	"github.com/pingcap-incubator/raftcore/storage"
)

// fakeRand is a deterministic Rand: it always returns the same offset
// into [0, n), so elections in tests fire at a known, reproducible
// instant instead of a real randomized window.
type fakeRand struct {
	offset int64
}

func (r fakeRand) Int63n(n int64) int64 {
	if r.offset >= n {
		return n - 1
	}
	return r.offset
}

func newTestConfig(members ...ServerId) Configuration {
	cfg := NewConfiguration()
	for _, id := range members {
		cfg.Members[id] = struct{}{}
	}
	return cfg
}

// newTestModule builds a Module with the given id and voting
// membership, backed by a fresh in-memory log, at a fixed instant.
func newTestModule(id ServerId, members []ServerId, now time.Time) (*Module, *storage.MemLog) {
	log := storage.NewMemLog()
	snapshot := ConfigurationSnapshot{Data: newTestConfig(members...)}
	m := newModule(id, Metadata{}, snapshot, log, fakeRand{offset: 0}, nil, now)
	return m, log
}
