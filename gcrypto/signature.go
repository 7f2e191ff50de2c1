package gcrypto

import (
	"math/big"

	"github.com/btcsuite/btcd/btcec"
	"github.com/pkg/errors"
)

// SerializeSignature packs an ECDSA signature into the fixed 64-byte R||S
// form used on the wire, normalizing S to its low form so a signature
// cannot be re-encoded into a second, equally valid byte string.
func SerializeSignature(sig *btcec.Signature) []byte {
	sigS := sig.S
	curve := btcec.S256()
	if sigS.Cmp(new(big.Int).Rsh(curve.N, 1)) == 1 {
		sigS = new(big.Int).Sub(curve.N, sigS)
	}

	rb := sig.R.Bytes()
	sb := sigS.Bytes()
	b := make([]byte, 64)
	copy(b[32-len(rb):32], rb)
	copy(b[64-len(sb):], sb)
	return b
}

func DeserializeSignature(b []byte) (*btcec.Signature, error) {
	if len(b) != 64 {
		return nil, errors.New("mal-formed signature")
	}

	sig := new(btcec.Signature)
	sig.R = new(big.Int).SetBytes(b[:32])
	sig.S = new(big.Int).SetBytes(b[32:])
	return sig, nil
}

// SignBindingHash signs a transaction's unsigned hash with the spend
// authority derived from spendingKey. It is the aggregate signature that
// binds a transaction's spends, outputs, mints, burns, and fee together;
// a transaction whose fields are altered after signing fails verification.
func SignBindingHash(spendingKey []byte, hash Hash) ([]byte, error) {
	priv, _ := btcec.PrivKeyFromBytes(btcec.S256(), spendingKey)
	sig, err := priv.Sign(hash)
	if err != nil {
		return nil, err
	}
	return SerializeSignature(sig), nil
}

// VerifyBindingSignature checks sig against hash using the public key
// that corresponds to spendingKey. Full verifiers that never see a
// spending key instead carry the derived public key alongside the
// transaction and call this with that key's bytes.
func VerifyBindingSignature(publicKey []byte, hash Hash, sig []byte) (bool, error) {
	pub, err := btcec.ParsePubKey(publicKey, btcec.S256())
	if err != nil {
		return false, err
	}
	parsed, err := DeserializeSignature(sig)
	if err != nil {
		return false, err
	}
	return parsed.Verify(hash, pub), nil
}

func PublicKeyFromSpendingKey(spendingKey []byte) []byte {
	_, pub := btcec.PrivKeyFromBytes(btcec.S256(), spendingKey)
	return pub.SerializeCompressed()
}
