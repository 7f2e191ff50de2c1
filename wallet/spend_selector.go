package wallet

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/umbranet/umbra/bio"
	"github.com/umbranet/umbra/chain"
	"github.com/umbranet/umbra/gcrypto"
	"github.com/umbranet/umbra/walletdb"
)

// InsufficientFundsError is raised by the spend selector when an
// account's unspent notes of one asset cannot cover the requested amount.
type InsufficientFundsError struct {
	AssetID []byte
	Have    uint64
	Need    uint64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: asset %x has %d, need %d", e.AssetID, e.Have, e.Need)
}

// SelectedNote is one note chosen by the spend selector along with the
// witness and nullifier it needs to be spent.
type SelectedNote struct {
	Commitment gcrypto.Hash
	Note       *walletdb.DecryptedNote
	Witness    *chain.Witness
	Nullifier  gcrypto.Hash
}

// selectSpends walks an account's unspent notes of assetID oldest-position
// first, skipping any note whose witness cannot yet be resolved (not
// confirmed deep enough) or whose nullifier the chain already knows about
// (it was spent by a transaction this account hasn't connected yet), until
// the running total reaches amount. Selection order is deterministic by
// construction: it is the walletdb iteration order.
//
// bloom is the wallet's filter over every spent nullifier revealed by a
// block it has applied, used as a fast negative pre-check: a nullifier
// the filter has never seen cannot be in the chain's set up to the
// wallet's cursor, so the authoritative (and, against a remote node,
// expensive) NullifierSetContains lookup only runs on filter hits. A nil
// bloom disables the pre-check and every candidate goes to the chain.
//
// A note the chain's nullifier set already contains is repaired in place:
// the local view missed the spend, so the note is marked spent and its
// unspent index entry and balance contribution are removed before moving
// on. This takes a Transactor rather than a Querier for exactly that
// write.
func selectSpends(
	tx walletdb.Transactor,
	chn Chain,
	bloom *NullifierBloom,
	accountID uuid.UUID,
	nullifierKey []byte,
	assetID []byte,
	amount uint64,
) ([]*SelectedNote, uint64, error) {
	var selected []*SelectedNote
	var total uint64

	err := walletdb.IterateUnspentNotes(tx, accountID, assetID, func(commitment []byte) (bool, error) {
		note, err := walletdb.GetNote(tx, accountID, commitment)
		if err != nil {
			return false, err
		}
		if note.Spent || note.Note.Value == 0 {
			return true, nil
		}

		nullifier := gcrypto.DeriveNullifier(nullifierKey, commitment, note.Position)
		if bloom == nil || bloom.Test(nullifier) {
			onChain, err := chn.NullifierSetContains(nullifier)
			if err != nil {
				return false, err
			}
			if onChain {
				if err := repairSpentNote(tx, accountID, note); err != nil {
					return false, err
				}
				return true, nil
			}
		}

		witness, err := chn.NoteWitness(note.Position)
		if err != nil {
			return true, nil
		}

		selected = append(selected, &SelectedNote{
			Commitment: commitment,
			Note:       note,
			Witness:    witness,
			Nullifier:  nullifier,
		})
		total += note.Note.Value
		return total < amount, nil
	})
	if err != nil {
		return nil, 0, err
	}

	if total < amount {
		return nil, 0, &InsufficientFundsError{AssetID: assetID, Have: total, Need: amount}
	}
	return selected, total, nil
}

// repairSpentNote persists the corrected view of a note whose nullifier
// turned out to already be on chain: spent, out of the unspent index, and
// out of the balance. The spending transaction's hash is unknown here —
// whichever block carried it was never connected against this account.
func repairSpentNote(tx walletdb.Transactor, accountID uuid.UUID, note *walletdb.DecryptedNote) error {
	note.Spent = true
	if err := walletdb.PutNote(tx, accountID, note); err != nil {
		return err
	}
	if err := walletdb.DeleteUnspentIndex(tx, accountID, note.Note.AssetID, note.Position, note.Commitment); err != nil {
		return err
	}
	bal, err := walletdb.GetBalance(tx, accountID, note.Note.AssetID)
	if err != nil {
		return err
	}
	bal.Confirmed -= note.Note.Value
	return walletdb.PutBalance(tx, accountID, bal)
}

// fundTransaction covers every asset in needed by selecting spends from
// the account's unspent notes, appending them to builder, and returning
// the per-asset totals actually consumed so the caller can compute change.
// Assets are funded in sorted key order so repeated builds over the same
// state select identically.
func fundTransaction(
	tx walletdb.Transactor,
	chn Chain,
	bloom *NullifierBloom,
	acc *Account,
	builder *TxBuilder,
	needed map[string]uint64,
) (map[string]uint64, error) {
	assets := make([]string, 0, len(needed))
	for asset := range needed {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	totals := make(map[string]uint64, len(needed))
	for _, asset := range assets {
		amount := needed[asset]
		if amount == 0 {
			continue
		}
		selected, total, err := selectSpends(tx, chn, bloom, acc.ID, acc.NullifierKey, []byte(asset), amount)
		if err != nil {
			return nil, err
		}
		for _, sel := range selected {
			builder.AddSpend(&chain.Spend{
				Nullifier: sel.Nullifier,
				RootHash:  sel.Witness.RootHash,
				TreeSize:  sel.Witness.TreeSize,
			})
		}
		totals[asset] = total
	}
	return totals, nil
}

// TxBuilder assembles a chain.Transaction from selected spends and
// outputs, then signs it with the account's spending key.
type TxBuilder struct {
	Spends     []*chain.Spend
	Outputs    []*chain.EncryptedNote
	Mints      []*chain.Mint
	Burns      []*chain.Burn
	Fee        uint64
	Expiration uint64
}

func (b *TxBuilder) AddSpend(spend *chain.Spend) {
	b.Spends = append(b.Spends, spend)
}

func (b *TxBuilder) AddOutput(note *chain.EncryptedNote) {
	b.Outputs = append(b.Outputs, note)
}

func (b *TxBuilder) Build() *chain.Transaction {
	return &chain.Transaction{
		Spends:     b.Spends,
		Outputs:    b.Outputs,
		Mints:      b.Mints,
		Burns:      b.Burns,
		Fee:        b.Fee,
		Expiration: b.Expiration,
	}
}

// Sign computes the transaction's unsigned hash and binds it to
// spendingKey, the proof of spend authority a verifier checks against the
// sum of spent notes' owning public keys.
func (b *TxBuilder) Sign(spendingKey []byte) (*chain.Transaction, error) {
	tx := b.Build()
	sig, err := gcrypto.SignBindingHash(spendingKey, tx.Hash())
	if err != nil {
		return nil, errors.Wrap(err, "error signing transaction")
	}
	tx.BindingSignature = sig
	return tx, nil
}

// EstimateSize approximates the encoded size of the transaction being
// built, used to size the fee before the final output set is known.
func (b *TxBuilder) EstimateSize() int {
	est := 8 + 8 + 64 // fee + expiration + binding signature
	est += bio.SizeVarint(len(b.Spends))
	est += len(b.Spends) * (chain.HashLen*2 + 8)
	est += bio.SizeVarint(len(b.Outputs))
	for _, out := range b.Outputs {
		est += chain.HashLen + bio.SizeVarint(len(out.Ciphertext)) + len(out.Ciphertext)
	}
	est += bio.SizeVarint(len(b.Mints))
	est += bio.SizeVarint(len(b.Burns))
	return est
}
