package walletdb

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// BalanceRecord is an account's running total for one asset: confirmed
// value plus the value locked up in the account's own pending
// transactions, tracked separately so a caller can choose whether to
// treat in-flight change as spendable.
type BalanceRecord struct {
	AssetID   []byte
	Confirmed uint64
	Pending   uint64
}

func PutBalance(tx Transactor, accountID uuid.UUID, bal *BalanceRecord) error {
	return errors.WithStack(tx.Set(balanceKey(accountID, bal.AssetID), gobEncode(bal)))
}

// GetBalance returns a zeroed record, not an error, for an asset the
// account has never held.
func GetBalance(q Querier, accountID uuid.UUID, assetID []byte) (*BalanceRecord, error) {
	b, err := q.Get(balanceKey(accountID, assetID))
	if errors.Is(err, ErrNotFound) {
		return &BalanceRecord{AssetID: assetID}, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	bal := new(BalanceRecord)
	if err := gobDecode(bal, b); err != nil {
		return nil, err
	}
	return bal, nil
}

func ListBalances(q Querier, accountID uuid.UUID) ([]*BalanceRecord, error) {
	iter := q.NewIterator(prefixIteratorOptions())
	defer iter.Close()

	prefix := balancePrefix(accountID)
	var out []*BalanceRecord
	for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
		val, err := iter.Item().ValueCopy(nil)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		bal := new(BalanceRecord)
		if err := gobDecode(bal, val); err != nil {
			return nil, err
		}
		out = append(out, bal)
	}
	return out, nil
}
