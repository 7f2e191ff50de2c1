package wallet

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/umbranet/umbra/chain"
	"github.com/umbranet/umbra/gcrypto"
)

var (
	ErrLocked          = errors.New("locked")
	ErrInvalidPassword = errors.New("invalid password")
)

// KeyLocker guards a wallet's master extended key behind a password. An
// umbra process hosts a single wallet, so there is exactly one locker
// per process.
type KeyLocker struct {
	box     SecretBox
	ek      *chain.MasterExtendedKey
	mtx     sync.Mutex
	network *chain.Network
}

func NewKeyLocker(box SecretBox, network *chain.Network) *KeyLocker {
	return &KeyLocker{
		box:     box,
		network: network,
	}
}

func (k *KeyLocker) Unlock(password string) error {
	k.mtx.Lock()
	defer k.mtx.Unlock()
	priv, err := k.box.Decrypt(password)
	if err != nil {
		return ErrInvalidPassword
	}

	ek, err := chain.NewMasterExtendedKeyFromString(string(priv), k.network)
	if err != nil {
		panic(err)
	}
	k.ek = ek
	return nil
}

func (k *KeyLocker) Lock() {
	k.mtx.Lock()
	defer k.mtx.Unlock()
	k.ek = nil
}

func (k *KeyLocker) IsLocked() bool {
	k.mtx.Lock()
	defer k.mtx.Unlock()
	return k.ek == nil
}

// AccountKeys derives account index's spending key and everything folded
// out of it. Requires the master key to be unlocked.
func (k *KeyLocker) AccountKeys(index uint32) (*AccountKeyMaterial, error) {
	k.mtx.Lock()
	defer k.mtx.Unlock()
	if k.ek == nil {
		return nil, ErrLocked
	}

	accountKey := k.ek.AccountIndexKey(index)
	seed, err := accountKey.PrivateKeyBytes()
	if err != nil {
		return nil, errors.Wrap(err, "error reading account key bytes")
	}
	return deriveAccountKeyMaterial(seed), nil
}

// AccountKeyMaterial is the full key hierarchy for one account, derived
// from its spending key: the spending key itself, the two view keys, the
// nullifier deriving key, and the resulting public address.
type AccountKeyMaterial struct {
	SpendingKey     []byte
	IncomingViewKey []byte
	OutgoingViewKey []byte
	NullifierKey    []byte
	PublicAddress   gcrypto.Hash
}

func deriveAccountKeyMaterial(accountSeed []byte) *AccountKeyMaterial {
	return accountKeyMaterialFromSpendingKey(gcrypto.DeriveSpendingKey(accountSeed))
}

// accountKeyMaterialFromSpendingKey folds a bare spending key out into
// the full hierarchy, the entry point for imported accounts whose key
// was never derived from this wallet's master key.
func accountKeyMaterialFromSpendingKey(spendingKey []byte) *AccountKeyMaterial {
	incomingViewKey := gcrypto.DeriveIncomingViewKey(spendingKey)
	return &AccountKeyMaterial{
		SpendingKey:     spendingKey,
		IncomingViewKey: incomingViewKey,
		OutgoingViewKey: gcrypto.DeriveOutgoingViewKey(spendingKey),
		NullifierKey:    gcrypto.DeriveNullifierKey(spendingKey),
		PublicAddress:   gcrypto.DerivePublicAddress(incomingViewKey),
	}
}
