package wallet

import (
	"github.com/umbranet/umbra/chain"
	"github.com/umbranet/umbra/gcrypto"
)

// BlockTransaction pairs a transaction found in a connected block with the
// note-commitment-tree position its first output landed at. Later outputs
// in the same transaction occupy consecutive positions after it.
type BlockTransaction struct {
	Tx               *chain.Transaction
	InitialNoteIndex uint64
}

// Chain is everything the wallet engine reads from the canonical chain.
// It never mutates chain state; all of it is satisfied in production by
// client.ChainClient and in tests by an in-process fake.
type Chain interface {
	Header(hash gcrypto.Hash) (*chain.Header, error)
	BlockTransactions(header *chain.Header) ([]*BlockTransaction, error)
	IterateHeaders(begin, end gcrypto.Hash, reverse, inclusive bool, visit func(*chain.Header) (bool, error)) error
	NoteWitness(position uint64) (*chain.Witness, error)
	NullifierSetContains(nullifier gcrypto.Hash) (bool, error)
	GetAssetByID(assetID gcrypto.Hash) (*chain.Mint, error)
	Head() (*chain.Header, error)
	Genesis() (*chain.Header, error)
	Synced() (bool, error)
	HasBlock(hash gcrypto.Hash) (bool, error)
}

// Verifier checks a transaction's validity before it is allowed onto the
// chain, either freshly built (VerifyCreatedTransaction) or arriving from
// rebroadcast (VerifyTransactionAdd, which also rejects double-spends that
// have since confirmed from elsewhere).
type Verifier interface {
	VerifyCreatedTransaction(tx *chain.Transaction) error
	VerifyTransactionAdd(tx *chain.Transaction) error
}

// MemPool is where a verified transaction goes after proving, ahead of
// propagation to the rest of the network.
type MemPool interface {
	Accept(tx *chain.Transaction) error
}

// DecryptPayload is one unit of note-decryption work: a candidate output
// and the account key material it should be tried against. The incoming
// view key is tried against the output's main ciphertext; the outgoing
// view key against the sender copy, when the output carries one.
type DecryptPayload struct {
	IncomingViewKey []byte
	OutgoingViewKey []byte
	EncryptedNote   *chain.EncryptedNote
	Position        uint64
	TxHash          gcrypto.Hash
}

// ViewKeyKind records which of an account's two view keys opened a note.
// An incoming match means the account received the note; an outgoing
// match means the account sent it — the note belongs to someone else, but
// the account authored the payment and keeps the record.
type ViewKeyKind int

const (
	ViewKeyIncoming ViewKeyKind = iota
	ViewKeyOutgoing
)

// DecryptResult is nil (Note == nil) when neither of the payload's keys
// opened the output, which is the overwhelmingly common case during a
// scan — most notes on chain do not belong to any one account. Matched
// is only meaningful when Note is non-nil.
type DecryptResult struct {
	Note    *chain.Note
	Matched ViewKeyKind
}

// WorkerPool fans out the two genuinely parallel, CPU-bound operations the
// wallet engine performs: trial note decryption during a scan, and binding
// signature / proof construction when building a transaction.
type WorkerPool interface {
	DecryptNotes(payloads []*DecryptPayload) ([]*DecryptResult, error)
	PostTransaction(raw *chain.Transaction) (*chain.Transaction, error)
}
