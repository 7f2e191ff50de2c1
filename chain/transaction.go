package chain

import (
	"bytes"
	"encoding/hex"
	"io"

	"github.com/pkg/errors"
	"github.com/umbranet/umbra/bio"
	"github.com/umbranet/umbra/gcrypto"
	"golang.org/x/crypto/blake2b"
)

// Transaction is a shielded transaction: it consumes notes by revealing
// their nullifiers, produces new encrypted notes, optionally mints or
// burns an asset, and pays Fee of the native asset to the chain. Every
// value-moving field is bound together by BindingSignature, which is
// computed over the transaction's unsigned hash using the aggregate spend
// authority of its Spends.
type Transaction struct {
	Spends           []*Spend         `json:"spends"`
	Outputs          []*EncryptedNote `json:"outputs"`
	Mints            []*Mint          `json:"mints"`
	Burns            []*Burn          `json:"burns"`
	Fee              uint64           `json:"fee"`
	Expiration       uint64           `json:"expiration"`
	BindingSignature []byte           `json:"binding_signature"`
}

// Hash is the transaction's identity: the binding signature is excluded so
// that the unsigned hash and the signed hash are the same value, and so a
// transaction's id is stable across re-signing.
func (tx *Transaction) Hash() gcrypto.Hash {
	h, _ := blake2b.New256(nil)
	if _, err := tx.writeTo(h, false); err != nil {
		panic(err)
	}
	return h.Sum(nil)
}

func (tx *Transaction) HashHex() string {
	return hex.EncodeToString(tx.Hash())
}

// IsMinersFee reports whether tx is a block reward: it consumes nothing
// and pays no fee, it only mints outputs. Miner rewards are only ever
// valid inside the block that created them, so a wallet rolls them back
// by deleting them outright instead of returning them to pending.
func (tx *Transaction) IsMinersFee() bool {
	return len(tx.Spends) == 0 && tx.Fee == 0 && len(tx.Outputs) > 0
}

// IsExpired reports whether tx is no longer valid for inclusion once the
// chain has reached currentSequence. An Expiration of zero means the
// transaction never expires.
func (tx *Transaction) IsExpired(currentSequence uint64) bool {
	return tx.Expiration != 0 && currentSequence >= tx.Expiration
}

func (tx *Transaction) WriteTo(w io.Writer) (int64, error) {
	return tx.writeTo(w, true)
}

func (tx *Transaction) writeTo(w io.Writer, includeSignature bool) (int64, error) {
	g := bio.NewGuardWriter(w)
	bio.WriteVarint(g, uint64(len(tx.Spends)))
	for _, spend := range tx.Spends {
		spend.WriteTo(g)
	}
	bio.WriteVarint(g, uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		out.WriteTo(g)
	}
	bio.WriteVarint(g, uint64(len(tx.Mints)))
	for _, mint := range tx.Mints {
		mint.WriteTo(g)
	}
	bio.WriteVarint(g, uint64(len(tx.Burns)))
	for _, burn := range tx.Burns {
		burn.WriteTo(g)
	}
	bio.WriteUint64LE(g, tx.Fee)
	bio.WriteUint64LE(g, tx.Expiration)
	if includeSignature {
		bio.WriteVarBytes(g, tx.BindingSignature)
	}
	return g.N, errors.Wrap(g.Err, "error writing transaction")
}

func (tx *Transaction) ReadFrom(r io.Reader) (int64, error) {
	g := bio.NewGuardReader(r)
	spendCount, _ := bio.ReadVarint(g)
	spends := make([]*Spend, 0, spendCount)
	for i := uint64(0); i < spendCount; i++ {
		spend := new(Spend)
		spend.ReadFrom(g)
		spends = append(spends, spend)
	}
	outCount, _ := bio.ReadVarint(g)
	outputs := make([]*EncryptedNote, 0, outCount)
	for i := uint64(0); i < outCount; i++ {
		out := new(EncryptedNote)
		out.ReadFrom(g)
		outputs = append(outputs, out)
	}
	mintCount, _ := bio.ReadVarint(g)
	mints := make([]*Mint, 0, mintCount)
	for i := uint64(0); i < mintCount; i++ {
		mint := new(Mint)
		mint.ReadFrom(g)
		mints = append(mints, mint)
	}
	burnCount, _ := bio.ReadVarint(g)
	burns := make([]*Burn, 0, burnCount)
	for i := uint64(0); i < burnCount; i++ {
		burn := new(Burn)
		burn.ReadFrom(g)
		burns = append(burns, burn)
	}
	fee, _ := bio.ReadUint64LE(g)
	expiration, _ := bio.ReadUint64LE(g)
	sig, _ := bio.ReadVarBytes(g)
	if g.Err != nil {
		return g.N, errors.Wrap(g.Err, "error reading transaction")
	}
	tx.Spends = spends
	tx.Outputs = outputs
	tx.Mints = mints
	tx.Burns = burns
	tx.Fee = fee
	tx.Expiration = expiration
	tx.BindingSignature = sig
	return g.N, nil
}

func (tx *Transaction) Bytes() []byte {
	buf := new(bytes.Buffer)
	if _, err := tx.WriteTo(buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
