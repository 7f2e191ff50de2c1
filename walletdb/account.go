package walletdb

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// AccountRecord is the persisted form of a wallet account: its spending
// authority (encrypted, never stored in the clear), its view keys, its
// public address, and the bookkeeping the wallet needs to know which
// account a newly-created one should default to.
type AccountRecord struct {
	ID                uuid.UUID
	Name              string
	EncryptedSpendKey []byte
	IncomingViewKey   []byte
	OutgoingViewKey   []byte
	PublicAddressHash []byte
	AccountIndex      uint32
	CreatedAt         time.Time
}

func PutAccount(tx Transactor, rec *AccountRecord) error {
	return errors.WithStack(tx.Set(accountKey(rec.ID), gobEncode(rec)))
}

func GetAccount(q Querier, id uuid.UUID) (*AccountRecord, error) {
	b, err := q.Get(accountKey(id))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	rec := new(AccountRecord)
	if err := gobDecode(rec, b); err != nil {
		return nil, err
	}
	return rec, nil
}

func DeleteAccount(tx Transactor, id uuid.UUID) error {
	return errors.WithStack(tx.Delete(accountKey(id)))
}

func ListAccounts(q Querier) ([]*AccountRecord, error) {
	iter := q.NewIterator(prefixIteratorOptions())
	defer iter.Close()

	var out []*AccountRecord
	prefix := []byte(prefixAccount)
	for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
		rec := new(AccountRecord)
		val, err := iter.Item().ValueCopy(nil)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if err := gobDecode(rec, val); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func SetDefaultAccountID(tx Transactor, id uuid.UUID) error {
	idBytes, err := id.MarshalBinary()
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(tx.Set([]byte(keyDefault), idBytes))
}

func DeleteDefaultAccountID(tx Transactor) error {
	err := tx.Delete([]byte(keyDefault))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return errors.WithStack(err)
}

func GetDefaultAccountID(q Querier) (uuid.UUID, error) {
	b, err := q.Get([]byte(keyDefault))
	if err != nil {
		return uuid.UUID{}, errors.WithStack(err)
	}
	var id uuid.UUID
	if err := id.UnmarshalBinary(b); err != nil {
		return uuid.UUID{}, errors.WithStack(err)
	}
	return id, nil
}

// Head is an account's scan-state pointer: the hash and sequence number of
// the last block the account's note set reflects.
type Head struct {
	Hash     []byte
	Sequence uint64
}

// PutHead with a nil head clears the pointer entirely: "no head yet" is
// modeled as key absence, the same state GetHead reports as (nil, nil).
func PutHead(tx Transactor, accountID uuid.UUID, head *Head) error {
	if head == nil {
		err := tx.Delete(headKey(accountID))
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return errors.WithStack(err)
	}
	return errors.WithStack(tx.Set(headKey(accountID), gobEncode(head)))
}

// GetHead returns (nil, nil) when the account has no head yet, which is
// the case for a freshly created account that has not been scanned.
func GetHead(q Querier, accountID uuid.UUID) (*Head, error) {
	b, err := q.Get(headKey(accountID))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	head := new(Head)
	if err := gobDecode(head, b); err != nil {
		return nil, err
	}
	return head, nil
}

// ClearAccountScanState wipes everything a scan derives for an account —
// its notes, unspent and nullifier indexes, and balances — without
// touching the account record itself or any transaction it has
// submitted. RescanAccount calls this before replaying from genesis, so
// the replay starts from a blank slate instead of double-crediting notes
// it already knew about.
func ClearAccountScanState(tx Transactor, accountID uuid.UUID) error {
	prefixes := [][]byte{
		notePrefix(accountID),
		append([]byte(prefixUnspent), accountID[:]...),
		append([]byte(prefixNullifier), accountID[:]...),
		balancePrefix(accountID),
	}
	for _, prefix := range prefixes {
		if err := deletePrefix(tx, prefix); err != nil {
			return err
		}
	}
	return nil
}

// PurgeAccountData is ClearAccountScanState plus everything else keyed
// under the account: its head, its transaction records, and its pending
// and expired indexes. Run by the event loop's cleanup phase after an
// account is removed, never while the account is still registered.
func PurgeAccountData(tx Transactor, accountID uuid.UUID) error {
	if err := ClearAccountScanState(tx, accountID); err != nil {
		return err
	}
	if err := PutHead(tx, accountID, nil); err != nil {
		return err
	}
	prefixes := [][]byte{
		txPrefix(accountID),
		pendingIndexPrefix(accountID),
		expiredIndexPrefix(accountID),
	}
	for _, prefix := range prefixes {
		if err := deletePrefix(tx, prefix); err != nil {
			return err
		}
	}
	return nil
}

func deletePrefix(tx Transactor, prefix []byte) error {
	iter := tx.NewIterator(prefixIteratorOptions())
	var keys [][]byte
	for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	iter.Close()

	for _, k := range keys {
		if err := tx.Delete(k); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
