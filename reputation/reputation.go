// Package reputation implements the shared peer reputation/identity store
// (spec §5 "Shared resources": "mutated by validation outcomes under a
// short-lived lock"). It is independent of session state: sessions
// evaporate on restart (spec §6 "Persisted state: none by the core"), but
// reputation is durable across restarts so a peer that misbehaves in one
// session is already penalized the next time it joins.
package reputation

import (
	"encoding/binary"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/LotusiaStewardship/lotus-musig2-core/errs"
)

var peerPrefix = []byte("peer-")

// Penalty is the score deduction applied for a single validation failure
// (spec §4.6.5 step 5: "a reputation penalty is applied to from").
const Penalty = 10

// Default is the starting score for a peer never seen before.
const Default = 100

// Store is a badger-backed peer_id -> score table with an in-process cache
// guarding the hot path (score reads happen on every inbound message).
type Store struct {
	db    *badger.DB
	mu    sync.RWMutex
	cache map[string]int64
}

// Open opens (or creates) the reputation store at dir.
func Open(dir string) (*Store, error) {
	const op = "reputation.Open"
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransientNetwork, op, "opening badger store", err)
	}
	return &Store{db: db, cache: make(map[string]int64)}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(peerID string) []byte {
	return append(append([]byte{}, peerPrefix...), []byte(peerID)...)
}

// Score returns a peer's current reputation score, defaulting to Default
// for a peer never recorded before.
func (s *Store) Score(peerID string) int64 {
	s.mu.RLock()
	if v, ok := s.cache[peerID]; ok {
		s.mu.RUnlock()
		return v
	}
	s.mu.RUnlock()

	var score int64 = Default
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(peerID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			if len(v) == 8 {
				score = int64(binary.BigEndian.Uint64(v))
			}
			return nil
		})
	})
	if err != nil {
		logrus.Errorf("reputation.Score: %v", err)
	}

	s.mu.Lock()
	s.cache[peerID] = score
	s.mu.Unlock()
	return score
}

// Penalize deducts Penalty from peerID's score (spec §4.6.5 step 5) and
// persists the result.
func (s *Store) Penalize(peerID string) {
	s.adjust(peerID, -Penalty)
}

// Reward credits peerID for a cooperative action (e.g. a correctly
// verified partial signature). Not required by the spec but symmetric
// with Penalize and useful for long-running deployments.
func (s *Store) Reward(peerID string, amount int64) {
	s.adjust(peerID, amount)
}

func (s *Store) adjust(peerID string, delta int64) {
	current := s.Score(peerID)
	updated := current + delta

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(updated))
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(peerID), buf)
	})
	if err != nil {
		logrus.Errorf("reputation.adjust: %v", err)
		return
	}

	s.mu.Lock()
	s.cache[peerID] = updated
	s.mu.Unlock()
}

// IsTrusted reports whether peerID's score is still above the minimum
// threshold at which its messages should be accepted at all.
func (s *Store) IsTrusted(peerID string) bool {
	return s.Score(peerID) > 0
}
