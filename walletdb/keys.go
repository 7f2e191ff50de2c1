package walletdb

import (
	"encoding/binary"

	"github.com/google/uuid"
	"github.com/umbranet/umbra/bio"
)

// Key layout. A short leading tag namespaces each record family so
// a prefix scan over one family never strays into another, even though
// they all share one Badger keyspace.
//
//	a/<accountID>                                       account record
//	m/defaultAccountId                                  singleton pointer
//	h/<accountID>                                        head pointer
//	n/<accountID>/<noteHash>                             decrypted note
//	t/<accountID>/<txHash>                               transaction record
//	b/<accountID>/<assetID>                              balance record
//	idx/pending/<accountID>/<submittedSeq>/<txHash>       pending index
//	idx/expired/<accountID>/<expiration>/<txHash>         expired index
//	idx/nullifier/<accountID>/<nullifier>                 nullifier index
//	idx/unspent/<accountID>/<assetID>/<seq>/<noteHash>    unspent note order
const (
	prefixAccount     = "a/"
	keyDefault        = "m/defaultAccountId"
	keyNullifierBloom = "m/nullifierBloom"
	prefixHead        = "h/"
	prefixNote        = "n/"
	prefixTx          = "t/"
	prefixBalance     = "b/"
	prefixPending     = "idx/pending/"
	prefixExpired     = "idx/expired/"
	prefixNullifier   = "idx/nullifier/"
	prefixUnspent     = "idx/unspent/"
)

func accountKey(id uuid.UUID) []byte {
	return append([]byte(prefixAccount), id[:]...)
}

func headKey(accountID uuid.UUID) []byte {
	return append([]byte(prefixHead), accountID[:]...)
}

func noteKey(accountID uuid.UUID, noteHash []byte) []byte {
	k := append([]byte(prefixNote), accountID[:]...)
	return append(k, noteHash...)
}

func notePrefix(accountID uuid.UUID) []byte {
	return append([]byte(prefixNote), accountID[:]...)
}

func txKey(accountID uuid.UUID, txHash []byte) []byte {
	k := append([]byte(prefixTx), accountID[:]...)
	return append(k, txHash...)
}

func txPrefix(accountID uuid.UUID) []byte {
	return append([]byte(prefixTx), accountID[:]...)
}

func balanceKey(accountID uuid.UUID, assetID []byte) []byte {
	k := append([]byte(prefixBalance), accountID[:]...)
	return append(k, assetID...)
}

func balancePrefix(accountID uuid.UUID) []byte {
	return append([]byte(prefixBalance), accountID[:]...)
}

func pendingIndexKey(accountID uuid.UUID, submittedSeq uint64, txHash []byte) []byte {
	k := append([]byte(prefixPending), accountID[:]...)
	k = append(k, bio.Uint64BE(submittedSeq)...)
	return append(k, txHash...)
}

func pendingIndexPrefix(accountID uuid.UUID) []byte {
	return append([]byte(prefixPending), accountID[:]...)
}

func expiredIndexKey(accountID uuid.UUID, expiration uint64, txHash []byte) []byte {
	k := append([]byte(prefixExpired), accountID[:]...)
	k = append(k, bio.Uint64BE(expiration)...)
	return append(k, txHash...)
}

func expiredIndexPrefix(accountID uuid.UUID) []byte {
	return append([]byte(prefixExpired), accountID[:]...)
}

// expiredIndexUpperBound returns the key one past the last key whose
// expiration is <= maxExpiration, for a forward scan bounded at
// maxExpiration across an accountID's expired index.
func expiredIndexUpperBound(accountID uuid.UUID, maxExpiration uint64) []byte {
	k := append([]byte(prefixExpired), accountID[:]...)
	return append(k, bio.Uint64BE(maxExpiration+1)...)
}

func nullifierIndexKey(accountID uuid.UUID, nullifier []byte) []byte {
	k := append([]byte(prefixNullifier), accountID[:]...)
	return append(k, nullifier...)
}

func unspentIndexKey(accountID uuid.UUID, assetID []byte, seq uint64, noteHash []byte) []byte {
	k := append([]byte(prefixUnspent), accountID[:]...)
	k = append(k, assetID...)
	k = append(k, bio.Uint64BE(seq)...)
	return append(k, noteHash...)
}

func unspentIndexPrefix(accountID uuid.UUID, assetID []byte) []byte {
	k := append([]byte(prefixUnspent), accountID[:]...)
	return append(k, assetID...)
}

// mustBigEndianUint64 is kept next to the key helpers that use it as a reminder: index
// keys must sort in ascending numeric order under Badger's byte-lexical
// ordering, which is only true for big-endian encodings.
func mustBigEndianUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
