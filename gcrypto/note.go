package gcrypto

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/pkg/errors"
	"github.com/umbranet/umbra/bio"
	"golang.org/x/crypto/blake2b"
)

// NoteKeyLen is the size, in bytes, of an incoming or outgoing view key.
const NoteKeyLen = 32

// noteAEAD builds the AES-GCM instance a view key uses to open or seal a
// note. The nonce is derived from the key and the note's commitment rather
// than generated randomly, since a note's ciphertext is reproducible only
// once and is never rewritten in place.
func noteAEAD(viewKey []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(viewKey)
	if err != nil {
		return nil, errors.Wrap(err, "error initializing block cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "error initializing gcm")
	}
	return gcm, nil
}

func noteNonce(viewKey, commitment []byte) []byte {
	buf, _ := blake2b.New(12, viewKey)
	buf.Write(commitment)
	return buf.Sum(nil)
}

// SealNote encrypts plaintext note fields under the recipient's incoming
// view key, binding the ciphertext to the note's commitment so a swapped
// ciphertext fails to open under the wrong commitment.
func SealNote(incomingViewKey, commitment, pt []byte) ([]byte, error) {
	gcm, err := noteAEAD(incomingViewKey)
	if err != nil {
		return nil, err
	}
	nonce := noteNonce(incomingViewKey, commitment)
	return gcm.Seal(nil, nonce, pt, commitment), nil
}

// OpenNote decrypts a note ciphertext with a candidate incoming view key.
// Callers fan this out across every account's view key; a GCM auth failure
// means the note does not belong to that account, not that the note is
// malformed.
func OpenNote(incomingViewKey, commitment, ct []byte) ([]byte, error) {
	gcm, err := noteAEAD(incomingViewKey)
	if err != nil {
		return nil, err
	}
	nonce := noteNonce(incomingViewKey, commitment)
	return gcm.Open(nil, nonce, ct, commitment)
}

// DeriveNullifier computes the nullifier for a note at a given position in
// the commitment tree, keyed by the account's nullifier key (see
// DeriveNullifierKey). Only a holder of that key can link a revealed
// nullifier back to the note it spends.
func DeriveNullifier(nullifierKey, commitment []byte, position uint64) Hash {
	buf, _ := blake2b.New256(nullifierKey)
	buf.Write(commitment)
	buf.Write(bio.Uint64LE(position))
	return buf.Sum(nil)
}
