package chain

import (
	"encoding/hex"
	"io"

	"github.com/pkg/errors"
	"github.com/umbranet/umbra/bio"
	"github.com/umbranet/umbra/gcrypto"
	"golang.org/x/crypto/blake2b"
)

// Header is a block header as consumed by the wallet's chain follower: just
// enough to drive connect/disconnect and to seed the note commitment tree
// witness requests the spend selector makes.
type Header struct {
	PreviousBlockHash  gcrypto.Hash
	Sequence           uint64
	Timestamp          uint64
	NoteCommitmentRoot gcrypto.Hash
	NullifierRoot      gcrypto.Hash
}

func (h *Header) Hash() gcrypto.Hash {
	buf, _ := blake2b.New256(nil)
	if _, err := h.WriteTo(buf); err != nil {
		panic(err)
	}
	return buf.Sum(nil)
}

func (h *Header) HashHex() string {
	return hex.EncodeToString(h.Hash())
}

func (h *Header) IsGenesis() bool {
	return h.Sequence == GenesisSequence
}

func (h *Header) WriteTo(w io.Writer) (int64, error) {
	g := bio.NewGuardWriter(w)
	bio.WriteFixedBytes(g, h.PreviousBlockHash, HashLen)
	bio.WriteUint64LE(g, h.Sequence)
	bio.WriteUint64LE(g, h.Timestamp)
	bio.WriteFixedBytes(g, h.NoteCommitmentRoot, HashLen)
	bio.WriteFixedBytes(g, h.NullifierRoot, HashLen)
	return g.N, errors.Wrap(g.Err, "error writing header")
}

func (h *Header) ReadFrom(r io.Reader) (int64, error) {
	g := bio.NewGuardReader(r)
	prevHash, _ := bio.ReadFixedBytes(g, HashLen)
	seq, _ := bio.ReadUint64LE(g)
	ts, _ := bio.ReadUint64LE(g)
	ncRoot, _ := bio.ReadFixedBytes(g, HashLen)
	nullRoot, _ := bio.ReadFixedBytes(g, HashLen)
	if g.Err != nil {
		return g.N, errors.Wrap(g.Err, "error reading header")
	}
	h.PreviousBlockHash = prevHash
	h.Sequence = seq
	h.Timestamp = ts
	h.NoteCommitmentRoot = ncRoot
	h.NullifierRoot = nullRoot
	return g.N, nil
}
