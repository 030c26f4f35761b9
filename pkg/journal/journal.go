// Package journal persists executed trades to a pebble database so a replay
// session leaves an auditable trail. The journal is a pure observer: the
// order store and matching engine never depend on it.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quantfold/exsim/pkg/book"
)

// Trade is the persisted form of one executed trade.
type Trade struct {
	ID         string          `json:"id"`
	Seq        uint64          `json:"seq"`
	Timestamp  string          `json:"timestamp"` // replay time of the crossing call
	Product    string          `json:"product"`
	Kind       string          `json:"kind"` // "bidsale" or "asksale"
	Owner      string          `json:"owner"`
	Price      decimal.Decimal `json:"price"`
	Amount     decimal.Decimal `json:"amount"`
	Annotation string          `json:"annotation,omitempty"`
	RecordedAt time.Time       `json:"recordedAt"`
}

// Journal appends trades to pebble and serves ordered reads.
type Journal struct {
	mu      sync.Mutex
	db      *pebble.DB
	lastSeq uint64
}

// Open opens (or creates) the journal at path and recovers the last
// sequence number.
func Open(path string) (*Journal, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}

	j := &Journal{db: db}
	val, closer, err := db.Get(kLastSeq())
	switch err {
	case nil:
		j.lastSeq = binary.BigEndian.Uint64(val)
		closer.Close()
	case pebble.ErrNotFound:
		// fresh journal
	default:
		db.Close()
		return nil, fmt.Errorf("journal: read seq: %w", err)
	}
	return j, nil
}

func (j *Journal) Close() error { return j.db.Close() }

// Append records one trade from a matching call. Non-sale records are
// rejected; the journal only holds executed trades.
func (j *Journal) Append(sale *book.Order) (Trade, error) {
	if !sale.Kind.IsSale() {
		return Trade{}, fmt.Errorf("journal: cannot append a %s record", sale.Kind)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.lastSeq++
	trade := Trade{
		ID:         uuid.NewString(),
		Seq:        j.lastSeq,
		Timestamp:  sale.Timestamp,
		Product:    sale.Product,
		Kind:       sale.Kind.String(),
		Owner:      sale.Owner,
		Price:      sale.Price,
		Amount:     sale.Amount,
		Annotation: sale.Annotation,
		RecordedAt: time.Now().UTC(),
	}

	val, err := json.Marshal(trade)
	if err != nil {
		return Trade{}, fmt.Errorf("journal: marshal trade: %w", err)
	}

	batch := j.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(tradeKey(trade.Seq), val, nil); err != nil {
		return Trade{}, err
	}
	if err := batch.Set(productKey(trade.Product, trade.Seq), nil, nil); err != nil {
		return Trade{}, err
	}
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], j.lastSeq)
	if err := batch.Set(kLastSeq(), seqBuf[:], nil); err != nil {
		return Trade{}, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return Trade{}, fmt.Errorf("journal: commit: %w", err)
	}
	return trade, nil
}

// Recent returns up to n trades, newest first.
func (j *Journal) Recent(n int) ([]Trade, error) {
	prefix := tradePrefix()
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Trade
	for ok := iter.Last(); ok && len(out) < n; ok = iter.Prev() {
		var trade Trade
		if err := json.Unmarshal(iter.Value(), &trade); err != nil {
			continue // skip a corrupt entry, keep scanning
		}
		out = append(out, trade)
	}
	return out, nil
}

// ByProduct returns every trade for the product in append order.
func (j *Journal) ByProduct(product string) ([]Trade, error) {
	prefix := productPrefix(product)
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Trade
	for iter.First(); iter.Valid(); iter.Next() {
		// The index key ends in the zero-padded sequence; resolve the
		// primary record.
		key := iter.Key()
		seqPart := key[len(prefix):]
		trade, err := j.get(append([]byte(prefixTrade), seqPart...))
		if err != nil {
			continue
		}
		out = append(out, trade)
	}
	return out, nil
}

// Len returns the number of appended trades.
func (j *Journal) Len() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastSeq
}

func (j *Journal) get(key []byte) (Trade, error) {
	val, closer, err := j.db.Get(key)
	if err != nil {
		return Trade{}, err
	}
	defer closer.Close()
	var trade Trade
	if err := json.Unmarshal(val, &trade); err != nil {
		return Trade{}, err
	}
	return trade, nil
}
