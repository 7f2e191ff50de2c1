package chain

import (
	"io"

	"github.com/pkg/errors"
	"github.com/umbranet/umbra/bio"
	"github.com/umbranet/umbra/gcrypto"
	"golang.org/x/crypto/blake2b"
)

const (
	WitnessSideLeft  byte = 0
	WitnessSideRight byte = 1
)

// WitnessNode is one sibling hash on a Merkle authentication path.
type WitnessNode struct {
	Hash gcrypto.Hash
	Side byte
}

// Witness proves that a note commitment was included in the note
// commitment tree at RootHash when the tree held TreeSize leaves. The
// spend selector fetches one of these per note it spends, and a
// transaction's spends carry only the resulting RootHash: the path itself
// stays with the spender.
type Witness struct {
	Commitment gcrypto.Hash
	RootHash   gcrypto.Hash
	TreeSize   uint64
	AuthPath   []*WitnessNode
}

// Verify recomputes the root by folding the commitment up through the
// authentication path and compares it against RootHash.
func (w *Witness) Verify() bool {
	cur := w.Commitment
	for _, node := range w.AuthPath {
		h, _ := blake2b.New256(nil)
		if node.Side == WitnessSideLeft {
			h.Write(node.Hash)
			h.Write(cur)
		} else {
			h.Write(cur)
			h.Write(node.Hash)
		}
		cur = h.Sum(nil)
	}
	return cur.Equal(w.RootHash)
}

func (w *Witness) WriteTo(wr io.Writer) (int64, error) {
	g := bio.NewGuardWriter(wr)
	bio.WriteFixedBytes(g, w.Commitment, HashLen)
	bio.WriteFixedBytes(g, w.RootHash, HashLen)
	bio.WriteUint64LE(g, w.TreeSize)
	bio.WriteVarint(g, uint64(len(w.AuthPath)))
	for _, node := range w.AuthPath {
		bio.WriteFixedBytes(g, node.Hash, HashLen)
		bio.WriteByte(g, node.Side)
	}
	return g.N, errors.Wrap(g.Err, "error writing witness")
}

func (w *Witness) ReadFrom(r io.Reader) (int64, error) {
	g := bio.NewGuardReader(r)
	commitment, _ := bio.ReadFixedBytes(g, HashLen)
	root, _ := bio.ReadFixedBytes(g, HashLen)
	treeSize, _ := bio.ReadUint64LE(g)
	count, _ := bio.ReadVarint(g)
	path := make([]*WitnessNode, 0, count)
	for i := uint64(0); i < count; i++ {
		hash, _ := bio.ReadFixedBytes(g, HashLen)
		side, _ := bio.ReadByte(g)
		path = append(path, &WitnessNode{Hash: hash, Side: side})
	}
	if g.Err != nil {
		return g.N, errors.Wrap(g.Err, "error reading witness")
	}
	w.Commitment = commitment
	w.RootHash = root
	w.TreeSize = treeSize
	w.AuthPath = path
	return g.N, nil
}
