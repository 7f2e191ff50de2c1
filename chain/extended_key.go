package chain

import (
	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcutil/hdkeychain"
	"github.com/tyler-smith/go-bip39"
)

// ExtendedKey is a node in the wallet's single-level account key hierarchy:
// one child per account index, derived from the wallet's master seed. Each
// account's spending key, view keys, and public address all fold out of a
// single child's private key bytes; there is no further derivation beneath
// an account the way an address-chain wallet would derive one key per
// address.
type ExtendedKey interface {
	IsPrivate() bool
	Child(i uint32) ExtendedKey
	PrivateKeyBytes() ([]byte, error)
	PublicString() string
	PrivateString() string
	Neuter() ExtendedKey
}

type MasterExtendedKey struct {
	ek      *hdkeychain.ExtendedKey
	network *Network
}

func NewMasterExtendedKey(seed []byte, network *Network) *MasterExtendedKey {
	ek, err := hdkeychain.NewMaster(seed, network.ChainParams())
	if err != nil {
		panic(err)
	}

	return &MasterExtendedKey{
		ek:      ek,
		network: network,
	}
}

func NewMasterExtendedKeyFromString(priv string, network *Network) (*MasterExtendedKey, error) {
	ek, err := hdkeychain.NewKeyFromString(priv)
	if err != nil {
		return nil, err
	}

	return &MasterExtendedKey{
		ek:      ek,
		network: network,
	}, nil
}

func NewMasterExtendedKeyFromMnemonic(mnemonic string, password string, network *Network) *MasterExtendedKey {
	seed := bip39.NewSeed(mnemonic, password)
	return NewMasterExtendedKey(seed, network)
}

func NewMasterExtendedKeyFromXPub(xPub string, network *Network) (*MasterExtendedKey, error) {
	ek, err := hdkeychain.NewKeyFromString(xPub)
	if err != nil {
		return nil, err
	}

	return &MasterExtendedKey{
		ek:      ek,
		network: network,
	}, nil
}

// AccountIndexKey derives account i's key node. Account indices are always
// hardened so a leaked account spending key can never be used to derive a
// sibling account's key.
func (m *MasterExtendedKey) AccountIndexKey(i uint32) ExtendedKey {
	return m.Child(HardenNode(i))
}

func (m *MasterExtendedKey) IsPrivate() bool {
	return m.ek.IsPrivate()
}

func (m *MasterExtendedKey) Child(i uint32) ExtendedKey {
	ek, err := m.ek.Child(i)
	if err != nil {
		panic(err)
	}

	return &MasterExtendedKey{
		ek:      ek,
		network: m.network,
	}
}

func (m *MasterExtendedKey) PrivateKeyBytes() ([]byte, error) {
	priv, err := m.ek.ECPrivKey()
	if err != nil {
		return nil, err
	}
	return priv.Serialize(), nil
}

func (m *MasterExtendedKey) PublicKey() *btcec.PublicKey {
	pub, err := m.ek.ECPubKey()
	if err != nil {
		panic(err)
	}
	return pub
}

func (m *MasterExtendedKey) PublicString() string {
	pub, err := m.ek.Neuter()
	if err != nil {
		panic(err)
	}
	return pub.String()
}

func (m *MasterExtendedKey) PrivateString() string {
	return m.ek.String()
}

func (m *MasterExtendedKey) Neuter() ExtendedKey {
	ek, err := m.ek.Neuter()
	if err != nil {
		panic(err)
	}
	return &MasterExtendedKey{
		ek:      ek,
		network: m.network,
	}
}

func HardenNode(i uint32) uint32 {
	return i + hdkeychain.HardenedKeyStart
}

func IsHardenedNode(i uint32) bool {
	return i >= hdkeychain.HardenedKeyStart
}
