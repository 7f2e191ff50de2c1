package walletdb

import (
	"bytes"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/umbranet/umbra/bio"
	"github.com/umbranet/umbra/chain"
	"github.com/umbranet/umbra/gcrypto"
)

// TransactionStatus is a pure function of a TransactionRecord and the
// account's current head, computed on read rather than stored, so that
// a transaction's status never drifts out of sync with the chain state
// it is actually derived from.
type TransactionStatus int

const (
	StatusUnknown TransactionStatus = iota
	StatusPending
	StatusUnconfirmed
	StatusConfirmed
	StatusExpired
)

// TransactionType classifies a transaction from one account's point of
// view: the same on-chain transaction is a send for the spender and a
// receive for the recipient.
type TransactionType int

const (
	TypeReceive TransactionType = iota
	TypeSend
	TypeMiner
)

// TransactionRecord is everything the wallet persists about one of an
// account's transactions: the transaction itself, where (if anywhere) it
// has confirmed, and the bookkeeping needed to drive expiration and
// rebroadcast while it is still pending.
//
// SubmittedSeq is the chain sequence at the time of the last broadcast
// attempt. It advances on every rebroadcast attempt, successful or not,
// so the rebroadcast loop never retries the same transaction twice
// within its configured block window.
type TransactionRecord struct {
	Hash          gcrypto.Hash
	Tx            *chain.Transaction
	BlockHash     gcrypto.Hash // nil while pending
	BlockSequence uint64       // 0 while pending
	SubmittedSeq  uint64
}

func (r *TransactionRecord) IsPending() bool {
	return len(r.BlockHash) == 0
}

func (r *TransactionRecord) WriteTo(w io.Writer) (int64, error) {
	g := bio.NewGuardWriter(w)
	bio.WriteFixedBytes(g, r.Hash, chain.HashLen)
	r.Tx.WriteTo(g)
	blockHash := r.BlockHash
	if blockHash == nil {
		blockHash = make(gcrypto.Hash, chain.HashLen)
	}
	bio.WriteFixedBytes(g, blockHash, chain.HashLen)
	bio.WriteUint64LE(g, r.BlockSequence)
	bio.WriteUint64LE(g, r.SubmittedSeq)
	return g.N, errors.Wrap(g.Err, "error writing transaction record")
}

func (r *TransactionRecord) ReadFrom(rd io.Reader) (int64, error) {
	g := bio.NewGuardReader(rd)
	hash, _ := bio.ReadFixedBytes(g, chain.HashLen)
	tx := new(chain.Transaction)
	tx.ReadFrom(g)
	blockHash, _ := bio.ReadFixedBytes(g, chain.HashLen)
	blockSeq, _ := bio.ReadUint64LE(g)
	submittedSeq, _ := bio.ReadUint64LE(g)
	if g.Err != nil {
		return g.N, errors.Wrap(g.Err, "error reading transaction record")
	}
	r.Hash = hash
	r.Tx = tx
	if !gcrypto.Hash(blockHash).IsZero() {
		r.BlockHash = blockHash
	}
	r.BlockSequence = blockSeq
	r.SubmittedSeq = submittedSeq
	return g.N, nil
}

func PutTransaction(tx Transactor, accountID uuid.UUID, rec *TransactionRecord) error {
	return errors.WithStack(tx.Set(txKey(accountID, rec.Hash), encode(rec)))
}

func DeleteTransaction(tx Transactor, accountID uuid.UUID, hash []byte) error {
	return errors.WithStack(tx.Delete(txKey(accountID, hash)))
}

func GetTransaction(q Querier, accountID uuid.UUID, hash []byte) (*TransactionRecord, error) {
	b, err := q.Get(txKey(accountID, hash))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	rec := new(TransactionRecord)
	if err := decode(rec, b); err != nil {
		return nil, err
	}
	return rec, nil
}

func ListTransactions(q Querier, accountID uuid.UUID) ([]*TransactionRecord, error) {
	iter := q.NewIterator(prefixIteratorOptions())
	defer iter.Close()

	prefix := txPrefix(accountID)
	var out []*TransactionRecord
	for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
		val, err := iter.Item().ValueCopy(nil)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		rec := new(TransactionRecord)
		if err := decode(rec, val); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func PutPendingIndex(tx Transactor, accountID uuid.UUID, submittedSeq uint64, txHash []byte) error {
	return errors.WithStack(tx.Set(pendingIndexKey(accountID, submittedSeq, txHash), txHash))
}

func DeletePendingIndex(tx Transactor, accountID uuid.UUID, submittedSeq uint64, txHash []byte) error {
	return errors.WithStack(tx.Delete(pendingIndexKey(accountID, submittedSeq, txHash)))
}

// IteratePendingTransactions visits an account's pending transactions in
// submission order, oldest first, which is also rebroadcast priority
// order: the transaction that has been waiting longest gets rebroadcast
// first.
func IteratePendingTransactions(q Querier, accountID uuid.UUID, visit func(txHash []byte) (bool, error)) error {
	iter := q.NewIterator(prefixIteratorOptions())
	defer iter.Close()

	prefix := pendingIndexPrefix(accountID)
	for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
		val, err := iter.Item().ValueCopy(nil)
		if err != nil {
			return errors.WithStack(err)
		}
		cont, err := visit(val)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

func PutExpiredIndex(tx Transactor, accountID uuid.UUID, expiration uint64, txHash []byte) error {
	return errors.WithStack(tx.Set(expiredIndexKey(accountID, expiration, txHash), txHash))
}

func DeleteExpiredIndex(tx Transactor, accountID uuid.UUID, expiration uint64, txHash []byte) error {
	return errors.WithStack(tx.Delete(expiredIndexKey(accountID, expiration, txHash)))
}

// IterateExpiredTransactions visits every indexed transaction whose
// expiration is <= currentSequence. Expiration zero ("never expires")
// transactions are never indexed here in the first place, so no filtering
// of that case is needed on read.
func IterateExpiredTransactions(q Querier, accountID uuid.UUID, currentSequence uint64, visit func(txHash []byte) error) error {
	iter := q.NewIterator(prefixIteratorOptions())
	defer iter.Close()

	prefix := expiredIndexPrefix(accountID)
	upperBound := expiredIndexUpperBound(accountID, currentSequence)
	for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
		if bytes.Compare(iter.Item().Key(), upperBound) >= 0 {
			break
		}
		val, err := iter.Item().ValueCopy(nil)
		if err != nil {
			return errors.WithStack(err)
		}
		if err := visit(val); err != nil {
			return err
		}
	}
	return nil
}
