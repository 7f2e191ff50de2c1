package walletdb

import (
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/umbranet/umbra/bio"
	"github.com/umbranet/umbra/chain"
	"github.com/umbranet/umbra/gcrypto"
)

// DecryptedNote is a note the wallet has successfully opened: the
// plaintext note contents, the position it occupies in the chain's note
// commitment tree (needed to rebuild its nullifier and its spend witness),
// and whether it has since been spent.
type DecryptedNote struct {
	Note       *chain.Note
	Commitment gcrypto.Hash
	Position   uint64
	TxHash     gcrypto.Hash
	Spent      bool
	SpentTx    gcrypto.Hash
}

func (n *DecryptedNote) WriteTo(w io.Writer) (int64, error) {
	g := bio.NewGuardWriter(w)
	n.Note.WriteTo(g)
	bio.WriteFixedBytes(g, n.Commitment, chain.HashLen)
	bio.WriteUint64LE(g, n.Position)
	bio.WriteFixedBytes(g, n.TxHash, chain.HashLen)
	spent := byte(0)
	if n.Spent {
		spent = 1
	}
	bio.WriteByte(g, spent)
	spentTx := n.SpentTx
	if spentTx == nil {
		spentTx = make(gcrypto.Hash, chain.HashLen)
	}
	bio.WriteFixedBytes(g, spentTx, chain.HashLen)
	return g.N, errors.Wrap(g.Err, "error writing decrypted note")
}

func (n *DecryptedNote) ReadFrom(r io.Reader) (int64, error) {
	g := bio.NewGuardReader(r)
	note := new(chain.Note)
	note.ReadFrom(g)
	commitment, _ := bio.ReadFixedBytes(g, chain.HashLen)
	position, _ := bio.ReadUint64LE(g)
	txHash, _ := bio.ReadFixedBytes(g, chain.HashLen)
	spent, _ := bio.ReadByte(g)
	spentTx, _ := bio.ReadFixedBytes(g, chain.HashLen)
	if g.Err != nil {
		return g.N, errors.Wrap(g.Err, "error reading decrypted note")
	}
	n.Note = note
	n.Commitment = commitment
	n.Position = position
	n.TxHash = txHash
	n.Spent = spent == 1
	n.SpentTx = spentTx
	return g.N, nil
}

func PutNote(tx Transactor, accountID uuid.UUID, note *DecryptedNote) error {
	if err := tx.Set(noteKey(accountID, note.Commitment), encode(note)); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func GetNote(q Querier, accountID uuid.UUID, commitment []byte) (*DecryptedNote, error) {
	b, err := q.Get(noteKey(accountID, commitment))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	n := new(DecryptedNote)
	if err := decode(n, b); err != nil {
		return nil, err
	}
	return n, nil
}

func ListNotes(q Querier, accountID uuid.UUID) ([]*DecryptedNote, error) {
	iter := q.NewIterator(prefixIteratorOptions())
	defer iter.Close()

	prefix := notePrefix(accountID)
	var out []*DecryptedNote
	for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
		val, err := iter.Item().ValueCopy(nil)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		n := new(DecryptedNote)
		if err := decode(n, val); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func DeleteNote(tx Transactor, accountID uuid.UUID, commitment []byte) error {
	return errors.WithStack(tx.Delete(noteKey(accountID, commitment)))
}

// PutUnspentIndex records commitment as spendable for assetID at position
// seq, the note's position in the commitment tree. Ordering the index by
// that position, rather than by insertion time, lets the spend selector
// prefer older notes without an extra sort.
func PutUnspentIndex(tx Transactor, accountID uuid.UUID, assetID []byte, seq uint64, commitment []byte) error {
	return errors.WithStack(tx.Set(unspentIndexKey(accountID, assetID, seq, commitment), commitment))
}

func DeleteUnspentIndex(tx Transactor, accountID uuid.UUID, assetID []byte, seq uint64, commitment []byte) error {
	return errors.WithStack(tx.Delete(unspentIndexKey(accountID, assetID, seq, commitment)))
}

// IterateUnspentNotes visits an account's unspent notes of one asset in
// ascending commitment-tree-position order, stopping the first time visit
// returns false. This is the order the spend selector consumes notes in.
func IterateUnspentNotes(q Querier, accountID uuid.UUID, assetID []byte, visit func(commitment []byte) (bool, error)) error {
	iter := q.NewIterator(prefixIteratorOptions())
	defer iter.Close()

	prefix := unspentIndexPrefix(accountID, assetID)
	for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
		val, err := iter.Item().ValueCopy(nil)
		if err != nil {
			return errors.WithStack(err)
		}
		cont, err := visit(val)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

func PutNullifierIndex(tx Transactor, accountID uuid.UUID, nullifier, commitment []byte) error {
	return errors.WithStack(tx.Set(nullifierIndexKey(accountID, nullifier), commitment))
}

// GetNoteByNullifier returns the commitment that produced nullifier, or
// (nil, nil) if the account never recorded a note under it. Used on
// block connect to recognize one of the account's own notes being spent
// even though the nullifier alone reveals nothing to an outside observer.
func GetNoteByNullifier(q Querier, accountID uuid.UUID, nullifier []byte) ([]byte, error) {
	b, err := q.Get(nullifierIndexKey(accountID, nullifier))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return b, nil
}

func DeleteNullifierIndex(tx Transactor, accountID uuid.UUID, nullifier []byte) error {
	return errors.WithStack(tx.Delete(nullifierIndexKey(accountID, nullifier)))
}
