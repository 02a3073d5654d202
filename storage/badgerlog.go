package storage

import (
	"encoding/binary"

	badger "github.com/Connor1996/badger"
	"github.com/pkg/errors"

	"github.com/pingcap-incubator/raftcore/raft"
)

// Key layout in the badger keyspace: a one-byte prefix distinguishes
// log entries from the match-index marker, the same prefix-then-payload
// idiom a column-family iterator uses to scope its own keyspace.
const (
	entryPrefix byte = 'e'
	matchKey         = "match_index"
)

func entryKey(index raft.LogIndex) []byte {
	key := make([]byte, 9)
	key[0] = entryPrefix
	binary.BigEndian.PutUint64(key[1:], uint64(index))
	return key
}

// BadgerLog is a raft.Log backed by a github.com/Connor1996/badger
// key-value store, holding the replicated log itself rather than user
// state machine data.
type BadgerLog struct {
	db *badger.DB

	// first/last are cached in memory; badger is the source of truth,
	// these just avoid a full scan on every FirstIndex/LastIndex call.
	firstIndex raft.LogIndex
	lastIndex  raft.LogIndex
	empty      bool
}

// OpenBadgerLog wraps an already-open *badger.DB and reconstructs the
// in-memory index cache by scanning the entry keyspace once.
func OpenBadgerLog(db *badger.DB) (*BadgerLog, error) {
	l := &BadgerLog{db: db, empty: true}

	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte{entryPrefix}
		it.Seek(prefix)
		if it.ValidForPrefix(prefix) {
			l.firstIndex = decodeIndex(it.Item().Key())
			l.empty = false
		}

		opts.Reverse = true
		itRev := txn.NewIterator(opts)
		defer itRev.Close()
		itRev.Seek(append(append([]byte{}, prefix...), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff))
		if itRev.ValidForPrefix(prefix) {
			l.lastIndex = decodeIndex(itRev.Item().Key())
			l.empty = false
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "storage: scanning badger log keyspace")
	}
	return l, nil
}

func decodeIndex(key []byte) raft.LogIndex {
	return raft.LogIndex(binary.BigEndian.Uint64(key[1:]))
}

func (l *BadgerLog) FirstIndex() (raft.LogIndex, bool) {
	if l.empty {
		return 0, false
	}
	return l.firstIndex, true
}

func (l *BadgerLog) LastIndex() (raft.LogIndex, bool) {
	if l.empty {
		return 0, false
	}
	return l.lastIndex, true
}

func (l *BadgerLog) Term(index raft.LogIndex) (raft.Term, bool) {
	if index == 0 {
		return 0, true
	}
	e, ok := l.Entry(index)
	if !ok {
		return 0, false
	}
	return e.Term, true
}

func (l *BadgerLog) Entry(index raft.LogIndex) (raft.LogEntry, bool) {
	var entry raft.LogEntry
	found := false
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(index))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		val, err := item.Value()
		if err != nil {
			return err
		}
		entry, err = decodeEntry(val)
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return raft.LogEntry{}, false
	}
	return entry, found
}

// Append persists entry; the caller guarantees entry.Index is exactly
// one past the current last index.
func (l *BadgerLog) Append(entry raft.LogEntry) {
	val := encodeEntry(entry)
	err := l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(entry.Index), val)
	})
	if err != nil {
		panic(errors.Wrap(err, "storage: appending log entry"))
	}
	if l.empty {
		l.firstIndex = entry.Index
		l.empty = false
	}
	l.lastIndex = entry.Index
}

// TruncateSuffix removes every entry at index >= from.
func (l *BadgerLog) TruncateSuffix(from raft.LogIndex) {
	if l.empty || from > l.lastIndex {
		return
	}
	err := l.db.Update(func(txn *badger.Txn) error {
		for i := from; i <= l.lastIndex; i++ {
			if err := txn.Delete(entryKey(i)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		panic(errors.Wrap(err, "storage: truncating log suffix"))
	}
	if from <= l.firstIndex {
		l.empty = true
		l.firstIndex = 0
		l.lastIndex = 0
		return
	}
	l.lastIndex = from - 1
}

// MatchIndex is persisted as an ordinary key so it survives a restart
// alongside the entries it vouches for.
func (l *BadgerLog) MatchIndex() (raft.LogIndex, bool) {
	var index raft.LogIndex
	found := false
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(matchKey))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		val, err := item.Value()
		if err != nil {
			return err
		}
		index = raft.LogIndex(binary.BigEndian.Uint64(val))
		found = true
		return nil
	})
	if err != nil {
		return 0, false
	}
	return index, found
}

// AdvanceMatchIndex records index as durably flushed. The host calls
// this once entries up to and including index are confirmed on stable
// storage; match_index is a durability marker the host advances, not
// something the core infers on its own.
func (l *BadgerLog) AdvanceMatchIndex(index raft.LogIndex) error {
	val := make([]byte, 8)
	binary.BigEndian.PutUint64(val, uint64(index))
	err := l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(matchKey), val)
	})
	if err != nil {
		return errors.Wrap(err, "storage: advancing match index")
	}
	return nil
}

// encodeEntry/decodeEntry use a small fixed-field binary layout rather
// than a general-purpose serialization library: every field here is
// either a fixed-width scalar or an opaque byte slice the core never
// interprets, so there is no schema-evolution concern a library like
// protobuf would actually buy us.
func encodeEntry(e raft.LogEntry) []byte {
	buf := make([]byte, 0, 32+len(e.Command))
	tmp := make([]byte, 8)

	binary.BigEndian.PutUint64(tmp, uint64(e.Index))
	buf = append(buf, tmp...)
	binary.BigEndian.PutUint64(tmp, uint64(e.Term))
	buf = append(buf, tmp...)
	buf = append(buf, byte(e.Kind))
	buf = append(buf, byte(e.Config.Kind))

	var cid [8]byte
	binary.BigEndian.PutUint64(cid[:], uint64(e.Config.Id))
	buf = append(buf, cid[:]...)

	var clen [4]byte
	binary.BigEndian.PutUint32(clen[:], uint32(len(e.Command)))
	buf = append(buf, clen[:]...)
	buf = append(buf, e.Command...)
	return buf
}

func decodeEntry(data []byte) (raft.LogEntry, error) {
	if len(data) < 30 {
		return raft.LogEntry{}, errors.New("storage: truncated log entry record")
	}
	var e raft.LogEntry
	e.Index = raft.LogIndex(binary.BigEndian.Uint64(data[0:8]))
	e.Term = raft.Term(binary.BigEndian.Uint64(data[8:16]))
	e.Kind = raft.EntryKind(data[16])
	e.Config.Kind = raft.ConfigChangeKind(data[17])
	e.Config.Id = raft.ServerId(binary.BigEndian.Uint64(data[18:26]))
	cmdLen := binary.BigEndian.Uint32(data[26:30])
	if uint32(len(data)-30) < cmdLen {
		return raft.LogEntry{}, errors.New("storage: log entry command length mismatch")
	}
	if cmdLen > 0 {
		e.Command = append([]byte(nil), data[30:30+cmdLen]...)
	}
	return e, nil
}
