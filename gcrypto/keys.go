package gcrypto

import (
	"golang.org/x/crypto/blake2b"
)

// Account key derivation folds a single 32-byte account seed (the private
// key bytes of the account's node in the wallet's key hierarchy) into the
// three keys a shielded account needs. Domain-separating each derivation
// with a distinct suffix keeps the spending key, the two view keys, and
// the public address hash from ever colliding even though they all trace
// back to the same seed.
const (
	spendingKeyDomain      = "umbra-spending-key"
	incomingViewKeyDomain  = "umbra-incoming-view-key"
	outgoingViewKeyDomain  = "umbra-outgoing-view-key"
	nullifierDerivingDomain = "umbra-nullifier-key"
)

func DeriveSpendingKey(accountSeed []byte) []byte {
	return domainHash(accountSeed, spendingKeyDomain)
}

func DeriveIncomingViewKey(spendingKey []byte) []byte {
	return domainHash(spendingKey, incomingViewKeyDomain)
}

func DeriveOutgoingViewKey(spendingKey []byte) []byte {
	return domainHash(spendingKey, outgoingViewKeyDomain)
}

// DeriveNullifierKey returns the key mixed into DeriveNullifier. Keeping
// this distinct from the spending key means a future scheme could reveal
// it (e.g. to a viewing-only delegate that must not be able to spend)
// without exposing spend authority.
func DeriveNullifierKey(spendingKey []byte) []byte {
	return domainHash(spendingKey, nullifierDerivingDomain)
}

// DerivePublicAddress hashes an incoming view key down to the 20-byte
// value a sender bech32-encodes into a shareable address.
func DerivePublicAddress(incomingViewKey []byte) Hash {
	return Blake160(incomingViewKey)
}

func domainHash(key []byte, domain string) []byte {
	h, _ := blake2b.New256(key)
	h.Write([]byte(domain))
	return h.Sum(nil)
}
