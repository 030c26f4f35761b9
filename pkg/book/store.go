package book

import (
	"sort"
	"sync"
)

// Store holds every order record, bucketed by timestamp. Buckets preserve
// insertion order. The store owns its records for its whole lifetime; query
// methods hand out the owned pointers, so a matching pass mutates the same
// records the store holds.
//
// One RWMutex guards the store: Insert, Remove and a full matching call run
// under the write lock, read queries under the read lock.
type Store struct {
	mu       sync.RWMutex
	buckets  map[string][]*Order
	timeline []string // sorted bucket keys
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{buckets: make(map[string][]*Order)}
}

// NewStoreFromBuckets seeds a store from loader output. The map and its
// slices are taken over by the store.
func NewStoreFromBuckets(buckets map[string][]*Order) *Store {
	s := &Store{buckets: buckets, timeline: make([]string, 0, len(buckets))}
	for ts := range buckets {
		s.timeline = append(s.timeline, ts)
	}
	sort.Strings(s.timeline)
	return s
}

// Insert appends the record to the bucket for its timestamp, creating the
// bucket if absent. Duplicates are legal and independent.
func (s *Store) Insert(o *Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(o)
}

func (s *Store) insertLocked(o *Order) {
	if _, ok := s.buckets[o.Timestamp]; !ok {
		i := sort.SearchStrings(s.timeline, o.Timestamp)
		s.timeline = append(s.timeline, "")
		copy(s.timeline[i+1:], s.timeline[i:])
		s.timeline[i] = o.Timestamp
	}
	s.buckets[o.Timestamp] = append(s.buckets[o.Timestamp], o)
}

// Remove erases, from the bucket at the record's timestamp, every record
// placed by the record's owner. It filters the owned bucket in place and
// reassigns it, so the removal is visible to later queries.
func (s *Store) Remove(o *Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.buckets[o.Timestamp]
	if !ok {
		return
	}
	kept := bucket[:0]
	for _, rec := range bucket {
		if rec.Owner != o.Owner {
			kept = append(kept, rec)
		}
	}
	for i := len(kept); i < len(bucket); i++ {
		bucket[i] = nil
	}
	s.buckets[o.Timestamp] = kept
}

// OrdersAt returns the bucket for the timestamp in insertion order. The
// returned slice is a copy; the records are the store's own.
func (s *Store) OrdersAt(timestamp string) []*Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket := s.buckets[timestamp]
	out := make([]*Order, len(bucket))
	copy(out, bucket)
	return out
}

// OrdersByKindAndProduct scans every bucket in timeline order and returns the
// records matching kind and product. Used for back-testing across the whole
// history.
func (s *Store) OrdersByKindAndProduct(kind Kind, product string) []*Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Order
	for _, ts := range s.timeline {
		for _, rec := range s.buckets[ts] {
			if rec.Kind == kind && rec.Product == product {
				out = append(out, rec)
			}
		}
	}
	return out
}

// OrdersFiltered returns the records at exactly the given timestamp matching
// kind and product, in bucket insertion order. This is the primary feed into
// matching.
func (s *Store) OrdersFiltered(kind Kind, product, timestamp string) []*Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ordersFilteredLocked(kind, product, timestamp)
}

func (s *Store) ordersFilteredLocked(kind Kind, product, timestamp string) []*Order {
	var out []*Order
	for _, rec := range s.buckets[timestamp] {
		if rec.Kind == kind && rec.Product == product {
			out = append(out, rec)
		}
	}
	return out
}

// KnownProducts returns the sorted set of products observed across all
// buckets.
func (s *Store) KnownProducts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, bucket := range s.buckets {
		for _, rec := range bucket {
			seen[rec.Product] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// EarliestTimestamp returns the smallest bucket key.
func (s *Store) EarliestTimestamp() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.timeline) == 0 {
		return "", ErrNoTimestamps
	}
	return s.timeline[0], nil
}

// NextTimestamp returns the smallest bucket key strictly greater than
// current. When no later bucket exists it wraps to the earliest key of the
// live store, so stepping past the end restarts the replay from the top.
func (s *Store) NextTimestamp(current string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.timeline) == 0 {
		return "", ErrNoTimestamps
	}
	i := sort.SearchStrings(s.timeline, current)
	for i < len(s.timeline) && s.timeline[i] <= current {
		i++
	}
	if i == len(s.timeline) {
		return s.timeline[0], nil
	}
	return s.timeline[i], nil
}

// Timestamps returns the bucket keys in ascending order.
func (s *Store) Timestamps() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.timeline))
	copy(out, s.timeline)
	return out
}

// Len returns the number of buckets.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buckets)
}
