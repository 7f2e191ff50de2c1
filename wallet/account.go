package wallet

import (
	"bytes"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/umbranet/umbra/chain"
	"github.com/umbranet/umbra/gcrypto"
	"github.com/umbranet/umbra/walletdb"
)

// Account is one spending authority inside the wallet: a public address
// derived from an incoming view key, the key material needed to decrypt
// notes sent to it and (unless watch-only) to spend them, and the
// persisted note/transaction/balance state that key material has earned
// across the chain so far.
type Account struct {
	ID           uuid.UUID
	Name         string
	AccountIndex uint32
	Network      *chain.Network

	IncomingViewKey []byte
	OutgoingViewKey []byte
	NullifierKey    []byte // nil for a watch-only account
	SpendingKey     []byte // nil for a watch-only account

	// EncryptedSpendKey is set only for imported accounts, whose spending
	// key cannot be re-derived from the wallet's master key and so has to
	// be persisted, sealed under the wallet password.
	EncryptedSpendKey []byte

	PublicAddress *chain.Address
}

func NewAccount(id uuid.UUID, name string, network *chain.Network, index uint32, keys *AccountKeyMaterial) *Account {
	return &Account{
		ID:              id,
		Name:            name,
		AccountIndex:    index,
		Network:         network,
		IncomingViewKey: keys.IncomingViewKey,
		OutgoingViewKey: keys.OutgoingViewKey,
		NullifierKey:    keys.NullifierKey,
		SpendingKey:     keys.SpendingKey,
		PublicAddress:   &chain.Address{Hash: keys.PublicAddress},
	}
}

func accountFromRecord(network *chain.Network, rec *walletdb.AccountRecord) *Account {
	return &Account{
		ID:                rec.ID,
		Name:              rec.Name,
		AccountIndex:      rec.AccountIndex,
		Network:           network,
		IncomingViewKey:   rec.IncomingViewKey,
		OutgoingViewKey:   rec.OutgoingViewKey,
		EncryptedSpendKey: rec.EncryptedSpendKey,
		PublicAddress:     &chain.Address{Hash: rec.PublicAddressHash},
	}
}

func (a *Account) IsWatchOnly() bool {
	return a.SpendingKey == nil
}

func (a *Account) record() *walletdb.AccountRecord {
	return &walletdb.AccountRecord{
		ID:                a.ID,
		Name:              a.Name,
		IncomingViewKey:   a.IncomingViewKey,
		OutgoingViewKey:   a.OutgoingViewKey,
		EncryptedSpendKey: a.EncryptedSpendKey,
		PublicAddressHash: a.PublicAddress.Hash,
		AccountIndex:      a.AccountIndex,
		CreatedAt:         time.Now().UTC(),
	}
}

// tryDecrypt attempts to open note against this account's incoming view
// key. A nil return means the note belongs to someone else, the
// overwhelmingly common case.
func (a *Account) tryDecrypt(note *chain.EncryptedNote) (*chain.Note, error) {
	pt, err := gcrypto.OpenNote(a.IncomingViewKey, note.Commitment, note.Ciphertext)
	if err != nil {
		return nil, nil
	}
	n := new(chain.Note)
	if _, err := n.ReadFrom(bytes.NewReader(pt)); err != nil {
		return nil, errors.Wrap(err, "error deserializing decrypted note")
	}
	return n, nil
}

// tryDecryptOutgoing attempts to open an output's sender copy against
// this account's outgoing view key. A match means the account authored
// the payment, not that it can spend the note.
func (a *Account) tryDecryptOutgoing(note *chain.EncryptedNote) (*chain.Note, error) {
	if len(a.OutgoingViewKey) == 0 || len(note.OutCiphertext) == 0 {
		return nil, nil
	}
	pt, err := gcrypto.OpenNote(a.OutgoingViewKey, note.Commitment, note.OutCiphertext)
	if err != nil {
		return nil, nil
	}
	n := new(chain.Note)
	if _, err := n.ReadFrom(bytes.NewReader(pt)); err != nil {
		return nil, errors.Wrap(err, "error deserializing decrypted note")
	}
	return n, nil
}

// recordNote applies a note this account just learned it owns, decrypted
// from a transaction at position in the note commitment tree, connected
// in the block identified by txHash.
func (a *Account) recordNote(tx walletdb.Transactor, note *chain.Note, commitment gcrypto.Hash, position uint64, txHash gcrypto.Hash) error {
	dn := &walletdb.DecryptedNote{
		Note:       note,
		Commitment: commitment,
		Position:   position,
		TxHash:     txHash,
	}
	if err := walletdb.PutNote(tx, a.ID, dn); err != nil {
		return err
	}
	if err := walletdb.PutUnspentIndex(tx, a.ID, note.AssetID, position, commitment); err != nil {
		return err
	}
	if a.NullifierKey != nil {
		nullifier := gcrypto.DeriveNullifier(a.NullifierKey, commitment, position)
		if err := walletdb.PutNullifierIndex(tx, a.ID, nullifier, commitment); err != nil {
			return err
		}
	}
	return a.adjustBalance(tx, note.AssetID, int64(note.Value), 0)
}

// disconnectNote is recordNote's exact inverse, used when rolling back a
// connected block during a reorg.
func (a *Account) disconnectNote(tx walletdb.Transactor, note *chain.Note, commitment gcrypto.Hash, position uint64) error {
	if err := walletdb.DeleteUnspentIndex(tx, a.ID, note.AssetID, position, commitment); err != nil {
		return err
	}
	if a.NullifierKey != nil {
		nullifier := gcrypto.DeriveNullifier(a.NullifierKey, commitment, position)
		if err := walletdb.DeleteNullifierIndex(tx, a.ID, nullifier); err != nil {
			return err
		}
	}
	if err := walletdb.DeleteNote(tx, a.ID, commitment); err != nil {
		return err
	}
	return a.adjustBalance(tx, note.AssetID, -int64(note.Value), 0)
}

// recordSpend marks one of the account's own notes spent because its
// nullifier appeared in a connected transaction's spend list. It reports
// whether the nullifier actually named one of this account's notes, which
// is how the connect path tells a transaction the account was party to
// from the vast majority it was not.
func (a *Account) recordSpend(q walletdb.Querier, tx walletdb.Transactor, nullifier gcrypto.Hash, spendTxHash gcrypto.Hash) (bool, error) {
	commitment, err := walletdb.GetNoteByNullifier(q, a.ID, nullifier)
	if err != nil {
		return false, err
	}
	if commitment == nil {
		return false, nil
	}

	note, err := walletdb.GetNote(q, a.ID, commitment)
	if err != nil {
		return false, err
	}
	if note.Spent {
		// Already marked when the spending transaction went pending; the
		// unspent index entry and balance were adjusted then.
		return true, nil
	}

	note.Spent = true
	note.SpentTx = spendTxHash
	if err := walletdb.PutNote(tx, a.ID, note); err != nil {
		return false, err
	}
	if err := walletdb.DeleteUnspentIndex(tx, a.ID, note.Note.AssetID, note.Position, commitment); err != nil {
		return false, err
	}
	return true, a.adjustBalance(tx, note.Note.AssetID, -int64(note.Note.Value), 0)
}

// disconnectSpend is recordSpend's inverse: the note becomes spendable
// again. Callers skip this when the spending transaction survives the
// disconnect as pending — the pending transaction still claims the note,
// exactly as it did before its block ever connected.
func (a *Account) disconnectSpend(q walletdb.Querier, tx walletdb.Transactor, nullifier gcrypto.Hash) error {
	commitment, err := walletdb.GetNoteByNullifier(q, a.ID, nullifier)
	if err != nil {
		return err
	}
	if commitment == nil {
		return nil
	}

	note, err := walletdb.GetNote(q, a.ID, commitment)
	if err != nil {
		return err
	}
	if !note.Spent {
		return nil
	}

	note.Spent = false
	note.SpentTx = nil
	if err := walletdb.PutNote(tx, a.ID, note); err != nil {
		return err
	}
	if err := walletdb.PutUnspentIndex(tx, a.ID, note.Note.AssetID, note.Position, commitment); err != nil {
		return err
	}
	return a.adjustBalance(tx, note.Note.AssetID, int64(note.Note.Value), 0)
}

func (a *Account) adjustBalance(tx walletdb.Transactor, assetID []byte, confirmedDelta, pendingDelta int64) error {
	bal, err := walletdb.GetBalance(tx, a.ID, assetID)
	if err != nil {
		return err
	}
	bal.Confirmed = addClampedUint64(bal.Confirmed, confirmedDelta)
	bal.Pending = addClampedUint64(bal.Pending, pendingDelta)
	return walletdb.PutBalance(tx, a.ID, bal)
}

func addClampedUint64(v uint64, delta int64) uint64 {
	if delta < 0 && uint64(-delta) > v {
		panic("balance underflow")
	}
	if delta < 0 {
		return v - uint64(-delta)
	}
	return v + uint64(delta)
}

// markConfirmed moves a pending transaction record to confirmed: it sets
// the block it landed in and removes it from the pending index, so the
// event loop's rebroadcast pass stops considering it.
func (a *Account) markConfirmed(q walletdb.Querier, tx walletdb.Transactor, txHash gcrypto.Hash, header *chain.Header) error {
	rec, err := walletdb.GetTransaction(q, a.ID, txHash)
	if err != nil || rec == nil {
		return err
	}
	if err := walletdb.DeletePendingIndex(tx, a.ID, rec.SubmittedSeq, txHash); err != nil {
		return err
	}
	if rec.Tx.Expiration > 0 {
		if err := walletdb.DeleteExpiredIndex(tx, a.ID, rec.Tx.Expiration, txHash); err != nil {
			return err
		}
	}
	rec.BlockHash = header.Hash()
	rec.BlockSequence = header.Sequence
	return walletdb.PutTransaction(tx, a.ID, rec)
}

// markUnconfirmed is markConfirmed's inverse, run when the block the
// transaction confirmed in is disconnected.
func (a *Account) markUnconfirmed(q walletdb.Querier, tx walletdb.Transactor, txHash gcrypto.Hash) error {
	rec, err := walletdb.GetTransaction(q, a.ID, txHash)
	if err != nil || rec == nil {
		return err
	}
	rec.BlockHash = nil
	rec.BlockSequence = 0
	if err := walletdb.PutTransaction(tx, a.ID, rec); err != nil {
		return err
	}
	if err := walletdb.PutPendingIndex(tx, a.ID, rec.SubmittedSeq, txHash); err != nil {
		return err
	}
	if rec.Tx.Expiration > 0 {
		if err := walletdb.PutExpiredIndex(tx, a.ID, rec.Tx.Expiration, txHash); err != nil {
			return err
		}
	}
	return nil
}

// addPendingTransaction records a freshly submitted transaction as
// pending, indexed by submission sequence and, if it has a finite
// expiration, by that expiration sequence too. Any of the account's own
// notes the transaction spends are marked spent right here, before any
// block carries it: the next spend selection must see them as gone, or
// two back-to-back builds would select the same notes.
func (a *Account) addPendingTransaction(tx walletdb.Transactor, txn *chain.Transaction, submittedSeq uint64) error {
	rec := &walletdb.TransactionRecord{
		Hash:         txn.Hash(),
		Tx:           txn,
		SubmittedSeq: submittedSeq,
	}
	if err := walletdb.PutTransaction(tx, a.ID, rec); err != nil {
		return err
	}
	if err := walletdb.PutPendingIndex(tx, a.ID, submittedSeq, rec.Hash); err != nil {
		return err
	}
	if txn.Expiration > 0 {
		if err := walletdb.PutExpiredIndex(tx, a.ID, txn.Expiration, rec.Hash); err != nil {
			return err
		}
	}
	for _, spend := range txn.Spends {
		if _, err := a.recordSpend(tx, tx, spend.Nullifier, rec.Hash); err != nil {
			return err
		}
	}
	return nil
}

// expireTransaction drops a transaction's pending bookkeeping and
// releases every note it had claimed: an expired transaction can never
// confirm, so its spends are undone and the notes become selectable
// again.
func (a *Account) expireTransaction(tx walletdb.Transactor, rec *walletdb.TransactionRecord) error {
	if err := walletdb.DeletePendingIndex(tx, a.ID, rec.SubmittedSeq, rec.Hash); err != nil {
		return err
	}
	if rec.Tx.Expiration > 0 {
		if err := walletdb.DeleteExpiredIndex(tx, a.ID, rec.Tx.Expiration, rec.Hash); err != nil {
			return err
		}
	}
	for _, spend := range rec.Tx.Spends {
		commitment, err := walletdb.GetNoteByNullifier(tx, a.ID, spend.Nullifier)
		if err != nil {
			return err
		}
		if commitment == nil {
			continue
		}
		note, err := walletdb.GetNote(tx, a.ID, commitment)
		if err != nil {
			return err
		}
		// Only release notes this transaction claimed; a nullifier spent
		// by some other, still-live transaction is not ours to free.
		if !note.Spent || !note.SpentTx.Equal(rec.Hash) {
			continue
		}
		if err := a.disconnectSpend(tx, tx, spend.Nullifier); err != nil {
			return err
		}
	}
	return nil
}

func (a *Account) setHead(tx walletdb.Transactor, head *walletdb.Head) error {
	return walletdb.PutHead(tx, a.ID, head)
}

func (a *Account) head(q walletdb.Querier) (*walletdb.Head, error) {
	return walletdb.GetHead(q, a.ID)
}

// TransactionStatus is a pure function of a transaction record and the
// account's current head: no state is stored beyond what's in the
// record, so status can never drift from the chain state it describes. A
// headSequence of zero means the wallet has no head at all, in which case
// nothing can be said about any transaction.
func TransactionStatus(rec *walletdb.TransactionRecord, headSequence uint64, confirmations uint64) walletdb.TransactionStatus {
	if headSequence == 0 {
		return walletdb.StatusUnknown
	}
	if rec.IsPending() {
		if rec.Tx.Expiration != 0 && rec.Tx.Expiration <= headSequence {
			return walletdb.StatusExpired
		}
		return walletdb.StatusPending
	}
	if headSequence >= rec.BlockSequence && headSequence-rec.BlockSequence >= confirmations {
		return walletdb.StatusConfirmed
	}
	return walletdb.StatusUnconfirmed
}

// TransactionType classifies rec from this account's point of view: a
// miner reward, a send (one of the spend nullifiers names a note this
// account owns), or a receive (the account only gained notes from it).
func TransactionType(q walletdb.Querier, accountID uuid.UUID, rec *walletdb.TransactionRecord) (walletdb.TransactionType, error) {
	if rec.Tx.IsMinersFee() {
		return walletdb.TypeMiner, nil
	}
	for _, spend := range rec.Tx.Spends {
		commitment, err := walletdb.GetNoteByNullifier(q, accountID, spend.Nullifier)
		if err != nil {
			return walletdb.TypeReceive, err
		}
		if commitment != nil {
			return walletdb.TypeSend, nil
		}
	}
	return walletdb.TypeReceive, nil
}
