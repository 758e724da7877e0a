// Package storage persists order records and the event stream to Pebble,
// giving the engine an audit trail and enough state to rebuild every book
// on startup.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/meridian-dex/meridian/pkg/events"
	"github.com/meridian-dex/meridian/pkg/exchange/orderbook"
)

// Store wraps a Pebble database.
//
// keys: ord:<8-byte-id> latest order record, evt:<pair>:<8-byte-seq> event
// envelope. Order records are upserted as state advances; the event log is
// append-only.
type Store struct {
	db *pebble.DB
}

func NewStore(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func kOrder(id uint64) []byte {
	key := make([]byte, 4+8)
	copy(key, "ord:")
	binary.BigEndian.PutUint64(key[4:], id)
	return key
}

func kEvent(pair string, seq uint64) []byte {
	key := make([]byte, 0, 4+len(pair)+1+8)
	key = append(key, "evt:"...)
	key = append(key, pair...)
	key = append(key, ':')
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], seq)
	return append(key, b[:]...)
}

// eventBounds returns the half-open key range holding one pair's events.
// The upper bound swaps the delimiter for ';' (':'+1), so every sequence
// up to the maximum is inside the range. Pair symbols cannot contain ':'
// (market.Pair.Validate rejects them), so ranges never overlap.
func eventBounds(pair string) (lower, upper []byte) {
	lower = []byte("evt:" + pair + ":")
	upper = []byte("evt:" + pair + ";")
	return lower, upper
}

// SaveOrder upserts the latest state of an order record.
func (s *Store) SaveOrder(o *orderbook.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal order %d: %w", o.ID, err)
	}
	if err := s.db.Set(kOrder(o.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("save order %d: %w", o.ID, err)
	}
	return nil
}

// LoadOrders returns every persisted order record in id order.
func (s *Store) LoadOrders() ([]*orderbook.Order, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("ord:"),
		UpperBound: []byte("ord;"), // ';' is ':'+1
	})
	if err != nil {
		return nil, fmt.Errorf("order iterator: %w", err)
	}
	defer iter.Close()

	var out []*orderbook.Order
	for iter.First(); iter.Valid(); iter.Next() {
		var o orderbook.Order
		if err := json.Unmarshal(iter.Value(), &o); err != nil {
			return nil, fmt.Errorf("decode order record %x: %w", iter.Key(), err)
		}
		out = append(out, &o)
	}
	return out, nil
}

// SaveEvent appends one envelope to the event log.
func (s *Store) SaveEvent(ev events.Envelope) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.db.Set(kEvent(ev.Pair, ev.Seq), data, pebble.Sync); err != nil {
		return fmt.Errorf("save event %s/%d: %w", ev.Pair, ev.Seq, err)
	}
	return nil
}

// ReplayEvents streams a pair's event log in sequence order.
func (s *Store) ReplayEvents(pair string, fn func(ev events.Envelope) error) error {
	lower, upper := eventBounds(pair)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return fmt.Errorf("event iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var ev events.Envelope
		if err := json.Unmarshal(iter.Value(), &ev); err != nil {
			return fmt.Errorf("decode event %x: %w", iter.Key(), err)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	return nil
}

// LastSeq returns the highest event sequence recorded for a pair. Keys end
// in the big-endian sequence, so one reverse seek reads it off the last key.
func (s *Store) LastSeq(pair string) (uint64, error) {
	lower, upper := eventBounds(pair)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return 0, fmt.Errorf("event iterator: %w", err)
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, nil
	}
	key := iter.Key()
	return binary.BigEndian.Uint64(key[len(key)-8:]), nil
}

// Sink adapts the store into an event sink so the audit log is written in
// emission order, inside the pair's critical section.
type Sink struct {
	store *Store
}

func NewSink(store *Store) *Sink { return &Sink{store: store} }

func (s *Sink) Publish(ev events.Envelope) error { return s.store.SaveEvent(ev) }
func (s *Sink) Close() error                     { return nil }
