package chain

import (
	"io"

	"github.com/pkg/errors"
	"github.com/umbranet/umbra/bio"
	"github.com/umbranet/umbra/gcrypto"
	"golang.org/x/crypto/blake2b"
)

// Note is the plaintext content of a shielded output: who can spend it, what
// asset and how much of it, and an optional memo. It never appears on the
// wire; only its Commitment and its EncryptedNote ciphertext do.
type Note struct {
	Owner   *Address
	Sender  *Address
	AssetID gcrypto.Hash
	Value   uint64
	Memo    [MemoLen]byte
}

// Commitment is the leaf Merkle-committed into a block's note commitment
// tree. Two notes with identical fields produce the same commitment, which
// is why callers mix in randomness via the memo when that matters.
func (n *Note) Commitment() gcrypto.Hash {
	h, _ := blake2b.New256(nil)
	if _, err := n.WriteTo(h); err != nil {
		panic(err)
	}
	return h.Sum(nil)
}

func (n *Note) WriteTo(w io.Writer) (int64, error) {
	g := bio.NewGuardWriter(w)
	bio.WriteFixedBytes(g, n.Owner.Hash, PublicAddressLen)
	bio.WriteFixedBytes(g, n.Sender.Hash, PublicAddressLen)
	bio.WriteFixedBytes(g, n.AssetID, AssetIDLen)
	bio.WriteUint64LE(g, n.Value)
	bio.WriteRawBytes(g, n.Memo[:])
	return g.N, errors.Wrap(g.Err, "error writing note")
}

func (n *Note) ReadFrom(r io.Reader) (int64, error) {
	g := bio.NewGuardReader(r)
	owner, _ := bio.ReadFixedBytes(g, PublicAddressLen)
	sender, _ := bio.ReadFixedBytes(g, PublicAddressLen)
	assetID, _ := bio.ReadFixedBytes(g, AssetIDLen)
	value, _ := bio.ReadUint64LE(g)
	memo, _ := bio.ReadFixedBytes(g, MemoLen)
	if g.Err != nil {
		return g.N, errors.Wrap(g.Err, "error reading note")
	}
	n.Owner = &Address{Hash: owner}
	n.Sender = &Address{Hash: sender}
	n.AssetID = assetID
	n.Value = value
	copy(n.Memo[:], memo)
	return g.N, nil
}

// EncryptedNote is what actually appears in a transaction's output list:
// the note's commitment plus a ciphertext openable only by the
// recipient's incoming view key. OutCiphertext, when present, is a second
// sealing of the same note under the sender's outgoing view key, so the
// sender can recover what it paid out from chain data alone — without it,
// a rescanned wallet would see its notes disappear with no record of
// where they went.
type EncryptedNote struct {
	Commitment    gcrypto.Hash
	Ciphertext    []byte
	OutCiphertext []byte
}

func (e *EncryptedNote) WriteTo(w io.Writer) (int64, error) {
	g := bio.NewGuardWriter(w)
	bio.WriteFixedBytes(g, e.Commitment, HashLen)
	bio.WriteVarBytes(g, e.Ciphertext)
	bio.WriteVarBytes(g, e.OutCiphertext)
	return g.N, errors.Wrap(g.Err, "error writing encrypted note")
}

func (e *EncryptedNote) ReadFrom(r io.Reader) (int64, error) {
	g := bio.NewGuardReader(r)
	commitment, _ := bio.ReadFixedBytes(g, HashLen)
	ct, _ := bio.ReadVarBytes(g)
	outCt, _ := bio.ReadVarBytes(g)
	if g.Err != nil {
		return g.N, errors.Wrap(g.Err, "error reading encrypted note")
	}
	e.Commitment = commitment
	e.Ciphertext = ct
	e.OutCiphertext = outCt
	return g.N, nil
}

// Spend consumes a previously received note by revealing its nullifier and
// proving, via a Merkle authentication path, that the underlying commitment
// is present in some historical note commitment tree. The note itself is
// never revealed.
type Spend struct {
	Nullifier gcrypto.Hash
	RootHash  gcrypto.Hash
	TreeSize  uint64
}

func (s *Spend) WriteTo(w io.Writer) (int64, error) {
	g := bio.NewGuardWriter(w)
	bio.WriteFixedBytes(g, s.Nullifier, NullifierLen)
	bio.WriteFixedBytes(g, s.RootHash, HashLen)
	bio.WriteUint64LE(g, s.TreeSize)
	return g.N, errors.Wrap(g.Err, "error writing spend")
}

func (s *Spend) ReadFrom(r io.Reader) (int64, error) {
	g := bio.NewGuardReader(r)
	nullifier, _ := bio.ReadFixedBytes(g, NullifierLen)
	root, _ := bio.ReadFixedBytes(g, HashLen)
	treeSize, _ := bio.ReadUint64LE(g)
	if g.Err != nil {
		return g.N, errors.Wrap(g.Err, "error reading spend")
	}
	s.Nullifier = nullifier
	s.RootHash = root
	s.TreeSize = treeSize
	return g.N, nil
}

// ComputeAssetID derives an asset's chain-wide identity from its
// creator and its registered name and metadata. The creator's address is
// part of the preimage, so no other spending authority can mint more of
// an asset it did not create: recomputing the id under the wrong creator
// yields a different asset entirely.
func ComputeAssetID(creator *Address, name, metadata string) gcrypto.Hash {
	h, _ := blake2b.New256(nil)
	h.Write(creator.Hash)
	h.Write([]byte(name))
	h.Write([]byte(metadata))
	return h.Sum(nil)
}

// Mint creates new units of an asset. The first mint of an AssetID also
// registers the asset's name and metadata; later mints of the same
// AssetID are required to match them.
type Mint struct {
	AssetID  gcrypto.Hash
	Name     string
	Metadata string
	Value    uint64
}

func (m *Mint) WriteTo(w io.Writer) (int64, error) {
	g := bio.NewGuardWriter(w)
	bio.WriteFixedBytes(g, m.AssetID, AssetIDLen)
	bio.WriteVarBytes(g, []byte(m.Name))
	bio.WriteVarBytes(g, []byte(m.Metadata))
	bio.WriteUint64LE(g, m.Value)
	return g.N, errors.Wrap(g.Err, "error writing mint")
}

func (m *Mint) ReadFrom(r io.Reader) (int64, error) {
	g := bio.NewGuardReader(r)
	assetID, _ := bio.ReadFixedBytes(g, AssetIDLen)
	name, _ := bio.ReadVarBytes(g)
	metadata, _ := bio.ReadVarBytes(g)
	value, _ := bio.ReadUint64LE(g)
	if g.Err != nil {
		return g.N, errors.Wrap(g.Err, "error reading mint")
	}
	m.AssetID = assetID
	m.Name = string(name)
	m.Metadata = string(metadata)
	m.Value = value
	return g.N, nil
}

// Burn destroys units of an asset the spender already owns a note of.
type Burn struct {
	AssetID gcrypto.Hash
	Value   uint64
}

func (b *Burn) WriteTo(w io.Writer) (int64, error) {
	g := bio.NewGuardWriter(w)
	bio.WriteFixedBytes(g, b.AssetID, AssetIDLen)
	bio.WriteUint64LE(g, b.Value)
	return g.N, errors.Wrap(g.Err, "error writing burn")
}

func (b *Burn) ReadFrom(r io.Reader) (int64, error) {
	g := bio.NewGuardReader(r)
	assetID, _ := bio.ReadFixedBytes(g, AssetIDLen)
	value, _ := bio.ReadUint64LE(g)
	if g.Err != nil {
		return g.N, errors.Wrap(g.Err, "error reading burn")
	}
	b.AssetID = assetID
	b.Value = value
	return g.N, nil
}
