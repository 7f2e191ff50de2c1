// Package walletdb is the wallet's ordered, transactional key-value store.
// It is built directly on Badger rather than through an ORM so that
// callers control key layout: every record type owns a key prefix, and
// secondary indexes are just other keys in the same keyspace, kept
// consistent with their primary records inside the same transaction.
package walletdb

import (
	"github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"
)

// Engine owns the underlying Badger handle. All reads and writes to it go
// through Transaction, which mirrors the closure-based transaction idiom
// the rest of the wallet code is written against: callers never see a raw
// *badger.Txn outside of the callback, so they can't forget to close an
// iterator or to commit.
type Engine struct {
	db *badger.DB
}

// Querier is the read-only subset of Transactor. Functions that only ever
// read accept a Querier so their signature documents that they cannot
// mutate the store.
type Querier interface {
	Get(key []byte) ([]byte, error)
	NewIterator(opts badger.IteratorOptions) *badger.Iterator
}

type Transactor interface {
	Querier
	Set(key, value []byte) error
	Delete(key []byte) error
}

func NewEngine(dbPath string, logger badger.Logger) (*Engine, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = logger
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "error opening badger db")
	}
	return &Engine{db: db}, nil
}

func (e *Engine) Close() error {
	return errors.WithStack(e.db.Close())
}

// Transaction runs cb inside a Badger read-write transaction, committing on
// a nil return and rolling back otherwise. Every multi-key write in the
// wallet package goes through this so a record and its secondary indexes
// are never observed half-written.
func (e *Engine) Transaction(cb func(tx Transactor) error) error {
	return e.db.Update(func(txn *badger.Txn) error {
		return cb(transactor{txn: txn})
	})
}

// View runs cb inside a read-only Badger transaction. Prefer this over
// Transaction for read paths: Badger can serve concurrent Views without
// blocking on the single writer Update uses.
func (e *Engine) View(cb func(q Querier) error) error {
	return e.db.View(func(txn *badger.Txn) error {
		return cb(transactor{txn: txn})
	})
}

// ErrNotFound is returned by Get-style helpers when a key is absent. It
// wraps badger.ErrKeyNotFound so callers can errors.Is against either.
var ErrNotFound = badger.ErrKeyNotFound

// prefixIteratorOptions is shared by every prefix-scan helper in this
// package. PrefetchValues is on since every scan here immediately reads
// the value of each key it visits.
func prefixIteratorOptions() badger.IteratorOptions {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	return opts
}

// reverseIteratorOptions is prefixIteratorOptions for a descending scan,
// used by indexes whose most useful ordering is most-recent-first.
func reverseIteratorOptions() badger.IteratorOptions {
	opts := prefixIteratorOptions()
	opts.Reverse = true
	return opts
}

type transactor struct {
	txn *badger.Txn
}

func (t transactor) Get(key []byte) ([]byte, error) {
	item, err := t.txn.Get(key)
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (t transactor) Set(key, value []byte) error {
	return t.txn.Set(key, value)
}

func (t transactor) Delete(key []byte) error {
	return t.txn.Delete(key)
}

func (t transactor) NewIterator(opts badger.IteratorOptions) *badger.Iterator {
	return t.txn.NewIterator(opts)
}
