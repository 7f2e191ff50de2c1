package walletdb

import "github.com/pkg/errors"

const keySeed = "m/seed"

// PutEncryptedSeed persists the wallet's encrypted master key. There is
// exactly one per walletdb, unlike accounts: every account index is
// derived from this single seed.
func PutEncryptedSeed(tx Transactor, encoded []byte) error {
	return errors.WithStack(tx.Set([]byte(keySeed), encoded))
}

// GetEncryptedSeed returns (nil, nil) if the wallet has never been
// initialized.
func GetEncryptedSeed(q Querier) ([]byte, error) {
	b, err := q.Get([]byte(keySeed))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return b, nil
}
