package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/umbranet/umbra/chain"
	"github.com/umbranet/umbra/gcrypto"
	"github.com/umbranet/umbra/log"
	"github.com/umbranet/umbra/walletdb"
	"gopkg.in/tomb.v2"
)

var walletLogger = log.ModuleLogger("wallet")

// ErrAccountNotFound is returned by Account lookups and by any operation
// scoped to an account id the wallet doesn't hold.
var ErrAccountNotFound = errors.New("account not found")

// ErrAccountExists is returned by CreateAccount/ImportAccount when the
// requested name is already taken. Names are unique across the wallet.
var ErrAccountExists = errors.New("account already exists")

// ErrAccountNotUpToDate is returned by transaction builds when the
// sending account's head has not caught up to the wallet's chain cursor:
// selecting spends from a stale view risks both missed notes and notes
// that are already gone.
var ErrAccountNotUpToDate = errors.New("account is not up to date with the chain")

// ErrInvalidExpiration is returned when a requested expiration sequence
// is already in the past at build time.
var ErrInvalidExpiration = errors.New("transaction expiration is not in the future")

// ErrScanInProgress is returned when a second scan is requested while one
// is already running. The scan slot holds at most one ScanState.
var ErrScanInProgress = errors.New("a scan is already in progress")

// ErrStateInconsistency is raised when the wallet's persisted cursor no
// longer names a block on the canonical chain. Recovery is resetting
// every account's scan state and head, which Start performs itself.
var ErrStateInconsistency = errors.New("wallet state inconsistency: head is not on canonical chain")

// Config holds the wallet engine's tunables.
type Config struct {
	// Confirmations is the depth below the chain head at which a mined
	// transaction counts as confirmed. Zero means confirmed on arrival.
	Confirmations uint64
	// RebroadcastAfter is how many blocks a pending transaction sits
	// unconfirmed before the event loop re-submits it to the mempool.
	RebroadcastAfter uint64
	// DecryptBatchSize bounds how many trial-decryption payloads go to
	// the worker pool per call.
	DecryptBatchSize int
	// ExpirationDelta is the default expiration window, in blocks past
	// the head at build time, applied when a transaction build doesn't
	// name an explicit expiration sequence.
	ExpirationDelta  uint64
	EventLoopCadence time.Duration
}

func DefaultConfig() Config {
	return Config{
		Confirmations:    0,
		RebroadcastAfter: 10,
		DecryptBatchSize: 20,
		ExpirationDelta:  15,
		EventLoopCadence: time.Second,
	}
}

// Wallet is the orchestrator: it owns every Account, drives the chain
// follower, runs the background event loop, and is the one place
// createTransaction/postTransaction serialize through.
type Wallet struct {
	tmb       *tomb.Tomb
	network   *chain.Network
	engine    *walletdb.Engine
	chain     Chain
	mempool   MemPool
	verifier  Verifier
	workers   WorkerPool
	follower  *ChainFollower
	keyLocker *KeyLocker
	config    Config

	// regMtx guards the account registry, the chain cursor, the two scan
	// slots, and the removed-account cleanup queue.
	regMtx          sync.Mutex
	accounts        map[uuid.UUID]*Account
	headHash        gcrypto.Hash
	headSeq         uint64
	scan            *ScanState
	updateHeadState *ScanState
	cleanupQueue    []uuid.UUID

	createTxMtx sync.Mutex

	// bloomMtx guards the spent-nullifier filter, which is written by the
	// event-loop and scan goroutines and snapshotted by transaction
	// builds.
	bloomMtx   sync.Mutex
	bloom      *NullifierBloom
	bloomSeq   uint64
	bloomDirty bool

	events eventBus
}

func NewWallet(
	tmb *tomb.Tomb,
	network *chain.Network,
	engine *walletdb.Engine,
	chn Chain,
	mempool MemPool,
	verifier Verifier,
	workers WorkerPool,
	keyLocker *KeyLocker,
	config Config,
) *Wallet {
	w := &Wallet{
		tmb:       tmb,
		network:   network,
		engine:    engine,
		chain:     chn,
		mempool:   mempool,
		verifier:  verifier,
		workers:   workers,
		keyLocker: keyLocker,
		config:    config,
		accounts:  make(map[uuid.UUID]*Account),
		bloom:     NewNullifierBloom(),
	}
	w.follower = NewChainFollower(tmb, chn, engine)
	return w
}

func (w *Wallet) Start() error {
	var records []*walletdb.AccountRecord
	err := w.engine.View(func(q walletdb.Querier) error {
		recs, err := walletdb.ListAccounts(q)
		if err != nil {
			return err
		}
		records = recs
		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	w.regMtx.Lock()
	for _, rec := range records {
		w.accounts[rec.ID] = accountFromRecord(w.network, rec)
	}
	w.regMtx.Unlock()

	// The cursor is the latest head across accounts. If the block it
	// names has since fallen off the canonical chain (the node reorged
	// past our finality window while we were down), every account's scan
	// state is unrecoverable by rewinding and the only safe move is a
	// full reset followed by a rescan from genesis.
	cursor, err := w.latestAccountHead()
	if err != nil {
		return err
	}
	if cursor != nil {
		onChain, err := w.chain.HasBlock(gcrypto.Hash(cursor.Hash))
		if err != nil {
			return errors.Wrap(err, "error checking cursor against chain")
		}
		if !onChain {
			walletLogger.Error("stored chain cursor is not on the canonical chain, resetting accounts", "err", ErrStateInconsistency)
			if err := w.resetAccountHeads(); err != nil {
				return err
			}
			cursor = nil
		}
	}
	if cursor != nil {
		w.regMtx.Lock()
		w.headHash = gcrypto.Hash(cursor.Hash)
		w.headSeq = cursor.Sequence
		w.regMtx.Unlock()
	}

	if err := w.loadNullifierBloom(cursor); err != nil {
		return err
	}

	if err := w.follower.Start(); err != nil {
		return errors.Wrap(err, "error starting chain follower")
	}

	behind, err := w.anyAccountBehind()
	if err != nil {
		return err
	}
	if behind {
		if _, err := w.scanTransactions(); err != nil && !errors.Is(err, ErrScanInProgress) {
			walletLogger.Error("error starting catch-up scan", "err", err)
		}
	}

	notifications := w.follower.Subscribe()
	w.tmb.Go(func() error {
		ticker := time.NewTicker(w.config.EventLoopCadence)
		defer ticker.Stop()
		for {
			select {
			case notif, ok := <-notifications:
				if !ok {
					return nil
				}
				if err := w.reconcile(notif); err != nil {
					walletLogger.Error("error reconciling chain follower notification", "err", err)
				}
			case <-ticker.C:
				w.tick()
			case <-w.tmb.Dying():
				w.Stop()
				return nil
			}
		}
	})

	return nil
}

// Stop aborts any in-flight scan and head update and waits for both to
// settle, then flushes the spent-nullifier filter. The event loop
// goroutine itself is supervised by the tomb and exits once the tomb
// dies.
func (w *Wallet) Stop() {
	w.regMtx.Lock()
	scan := w.scan
	upd := w.updateHeadState
	w.regMtx.Unlock()
	if scan != nil {
		scan.abort()
	}
	if upd != nil {
		upd.abort()
	}
	w.persistNullifierBloom()
}

// loadNullifierBloom restores the persisted spent-nullifier filter and
// replays into it the spends of any blocks applied after its last flush,
// walking back from the cursor. A wallet with prior scan state but no
// persisted filter replays from genesis, once.
func (w *Wallet) loadNullifierBloom(cursor *walletdb.Head) error {
	var state *walletdb.NullifierBloomState
	err := w.engine.View(func(q walletdb.Querier) error {
		s, err := walletdb.GetNullifierBloomState(q)
		state = s
		return err
	})
	if err != nil {
		return err
	}
	if state != nil {
		bloom, err := NullifierBloomFromBytes(state.Bits)
		if err != nil {
			return err
		}
		w.bloomMtx.Lock()
		w.bloom = bloom
		w.bloomSeq = state.Sequence
		w.bloomMtx.Unlock()
	}

	if cursor == nil {
		return nil
	}
	w.bloomMtx.Lock()
	bloomSeq := w.bloomSeq
	w.bloomMtx.Unlock()
	if bloomSeq >= cursor.Sequence {
		return nil
	}

	walletLogger.Info("replaying spent nullifiers into filter", "from", bloomSeq+1, "to", cursor.Sequence)
	return w.chain.IterateHeaders(gcrypto.Hash(cursor.Hash), gcrypto.Hash{}, true, true, func(h *chain.Header) (bool, error) {
		if h.Sequence <= bloomSeq {
			return false, nil
		}
		blockTxs, err := w.chain.BlockTransactions(h)
		if err != nil {
			return false, err
		}
		w.observeSpentNullifiers(h, blockTxs)
		return true, nil
	})
}

// observeSpentNullifiers absorbs a connected block's revealed nullifiers
// into the filter. Nothing is ever removed — a reorged-out spend just
// leaves a false positive behind, which costs one redundant authoritative
// lookup and nothing else.
func (w *Wallet) observeSpentNullifiers(header *chain.Header, blockTxs []*BlockTransaction) {
	w.bloomMtx.Lock()
	defer w.bloomMtx.Unlock()
	for _, blockTx := range blockTxs {
		for _, spend := range blockTx.Tx.Spends {
			w.bloom.Add(spend.Nullifier)
			w.bloomDirty = true
		}
	}
	if header.Sequence > w.bloomSeq {
		w.bloomSeq = header.Sequence
		w.bloomDirty = true
	}
}

// copyBloom snapshots the filter for a transaction build, so selection
// never races the event loop's writes.
func (w *Wallet) copyBloom() *NullifierBloom {
	w.bloomMtx.Lock()
	defer w.bloomMtx.Unlock()
	return w.bloom.Copy()
}

// persistNullifierBloom flushes the filter and its coverage sequence in
// one transaction, skipping the write entirely when nothing changed since
// the last flush.
func (w *Wallet) persistNullifierBloom() {
	w.bloomMtx.Lock()
	if !w.bloomDirty {
		w.bloomMtx.Unlock()
		return
	}
	state := &walletdb.NullifierBloomState{Sequence: w.bloomSeq, Bits: w.bloom.Bytes()}
	w.bloomDirty = false
	w.bloomMtx.Unlock()

	if err := w.engine.Transaction(func(tx walletdb.Transactor) error {
		return walletdb.PutNullifierBloomState(tx, state)
	}); err != nil {
		walletLogger.Error("error persisting nullifier filter", "err", err)
	}
}

func (w *Wallet) latestAccountHead() (*walletdb.Head, error) {
	var cursor *walletdb.Head
	for _, acc := range w.accountList() {
		head, err := w.currentHead(acc)
		if err != nil {
			return nil, err
		}
		if head != nil && (cursor == nil || head.Sequence > cursor.Sequence) {
			cursor = head
		}
	}
	return cursor, nil
}

func (w *Wallet) anyAccountBehind() (bool, error) {
	w.regMtx.Lock()
	cursorSeq := w.headSeq
	w.regMtx.Unlock()
	if cursorSeq == 0 {
		return false, nil
	}
	for _, acc := range w.accountList() {
		head, err := w.currentHead(acc)
		if err != nil {
			return false, err
		}
		if head == nil || head.Sequence < cursorSeq {
			return true, nil
		}
	}
	return false, nil
}

// resetAccountHeads wipes every account's scan state and head in one
// transaction, the recovery for a cursor that fell off the canonical
// chain.
func (w *Wallet) resetAccountHeads() error {
	accounts := w.accountList()
	return w.engine.Transaction(func(tx walletdb.Transactor) error {
		for _, acc := range accounts {
			if err := walletdb.ClearAccountScanState(tx, acc.ID); err != nil {
				return err
			}
			if err := acc.setHead(tx, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// tick runs the event loop's background phases in order: transaction
// expiry, rebroadcast, then removed-account cleanup. Head updates arrive
// on the follower's notification channel rather than the ticker. There
// is exactly one goroutine calling this, so the phases never overlap.
//
// Expiry and rebroadcast are gated on the chain being synced and the
// wallet having a cursor at all: against a syncing chain, "expired" and
// "waiting too long" are both artifacts of our own lag.
func (w *Wallet) tick() {
	synced, err := w.chain.Synced()
	if err != nil {
		walletLogger.Error("error checking chain sync state", "err", err)
		return
	}
	w.regMtx.Lock()
	hasCursor := !w.headHash.IsZero()
	w.regMtx.Unlock()

	if synced && hasCursor {
		for _, acc := range w.accountList() {
			if err := w.expireAccountTransactions(acc); err != nil {
				walletLogger.Error("error expiring transactions", "account", acc.ID, "err", err)
			}
			if err := w.rebroadcastAccountTransactions(acc); err != nil {
				walletLogger.Error("error rebroadcasting transactions", "account", acc.ID, "err", err)
			}
		}
	}

	w.cleanupRemovedAccounts()
}

func (w *Wallet) accountList() []*Account {
	w.regMtx.Lock()
	defer w.regMtx.Unlock()
	out := make([]*Account, 0, len(w.accounts))
	for _, acc := range w.accounts {
		out = append(out, acc)
	}
	return out
}

func (w *Wallet) Account(id uuid.UUID) (*Account, error) {
	w.regMtx.Lock()
	defer w.regMtx.Unlock()
	acc, ok := w.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return acc, nil
}

func (w *Wallet) Accounts() []*Account {
	return w.accountList()
}

// AccountByName resolves an account by its unique human name.
func (w *Wallet) AccountByName(name string) (*Account, error) {
	w.regMtx.Lock()
	defer w.regMtx.Unlock()
	for _, acc := range w.accounts {
		if acc.Name == name {
			return acc, nil
		}
	}
	return nil, ErrAccountNotFound
}

// Balances returns an account's confirmed and pending balance per asset
// it holds or has ever held any note of.
func (w *Wallet) Balances(accountID uuid.UUID) ([]*walletdb.BalanceRecord, error) {
	var out []*walletdb.BalanceRecord
	err := w.engine.View(func(q walletdb.Querier) error {
		recs, err := walletdb.ListBalances(q, accountID)
		out = recs
		return err
	})
	return out, err
}

// Head returns the sequence the wallet has reconciled every account's
// state up to.
func (w *Wallet) Head() uint64 {
	w.regMtx.Lock()
	defer w.regMtx.Unlock()
	return w.headSeq
}

// SyncChain polls the chain follower once, outside its normal ticker
// cadence. A resulting connect or disconnect is reconciled shortly after
// on the wallet's background event-loop goroutine, not before this
// returns.
func (w *Wallet) SyncChain() error {
	return w.follower.Poll()
}

// DefaultAccount returns the account new operations should target when
// the caller doesn't name one, or nil when the wallet has no accounts.
func (w *Wallet) DefaultAccount() (*Account, error) {
	var id uuid.UUID
	err := w.engine.View(func(q walletdb.Querier) error {
		got, err := walletdb.GetDefaultAccountID(q)
		id = got
		return err
	})
	if errors.Is(err, walletdb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	acc, err := w.Account(id)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, nil
	}
	return acc, err
}

func (w *Wallet) SetDefaultAccount(id uuid.UUID) error {
	if _, err := w.Account(id); err != nil {
		return err
	}
	return w.engine.Transaction(func(tx walletdb.Transactor) error {
		return walletdb.SetDefaultAccountID(tx, id)
	})
}

// UnlockKeys re-derives every loaded account's spending authority.
// Accounts loaded from disk at Start carry only their view keys and
// public address; master-derived accounts get their spending key back
// from the unlocked master key, imported accounts from their sealed
// per-account key, which is why the password is needed here again.
func (w *Wallet) UnlockKeys(password string) error {
	w.regMtx.Lock()
	defer w.regMtx.Unlock()
	for _, acc := range w.accounts {
		var keys *AccountKeyMaterial
		if acc.EncryptedSpendKey != nil {
			box, err := UnmarshalSecretBox(acc.EncryptedSpendKey)
			if err != nil {
				return errors.Wrap(err, "error unmarshaling account spend key")
			}
			sk, err := box.Decrypt(password)
			if err != nil {
				return ErrInvalidPassword
			}
			keys = accountKeyMaterialFromSpendingKey(sk)
		} else {
			derived, err := w.keyLocker.AccountKeys(acc.AccountIndex)
			if err != nil {
				return err
			}
			keys = derived
		}
		acc.SpendingKey = keys.SpendingKey
		acc.NullifierKey = keys.NullifierKey
		acc.OutgoingViewKey = keys.OutgoingViewKey
	}
	return nil
}

// CreateAccount derives the next account index's key material from the
// wallet's unlocked master key and registers it. The first account a
// wallet ever creates becomes the default.
func (w *Wallet) CreateAccount(name string) (*Account, error) {
	w.regMtx.Lock()
	var nextIndex uint32
	for _, acc := range w.accounts {
		if acc.Name == name {
			w.regMtx.Unlock()
			return nil, ErrAccountExists
		}
		if acc.AccountIndex >= nextIndex {
			nextIndex = acc.AccountIndex + 1
		}
	}
	w.regMtx.Unlock()

	keys, err := w.keyLocker.AccountKeys(nextIndex)
	if err != nil {
		return nil, err
	}

	acc := NewAccount(uuid.New(), name, w.network, nextIndex, keys)
	if err := w.persistNewAccount(acc); err != nil {
		return nil, err
	}

	w.events.emitAccountImported(acc)
	return acc, nil
}

// ImportAccount registers an account from a bare spending key that was
// never derived from this wallet's master key. The key is sealed under
// the wallet password before it touches disk, so an imported account
// survives restarts the same way a derived one does.
func (w *Wallet) ImportAccount(name, password string, spendingKey []byte) (*Account, error) {
	w.regMtx.Lock()
	for _, acc := range w.accounts {
		if acc.Name == name || bytes.Equal(acc.SpendingKey, spendingKey) {
			w.regMtx.Unlock()
			return nil, ErrAccountExists
		}
	}
	w.regMtx.Unlock()

	// Sealing under a mistyped password would leave the key unreadable on
	// the next unlock, so the password is checked against the wallet's
	// master box first.
	if err := w.keyLocker.Unlock(password); err != nil {
		return nil, err
	}

	box, err := EncryptDefault(spendingKey, password)
	if err != nil {
		return nil, errors.Wrap(err, "error sealing imported spend key")
	}
	encoded, err := json.Marshal(box)
	if err != nil {
		return nil, errors.Wrap(err, "error marshaling imported spend key")
	}

	keys := accountKeyMaterialFromSpendingKey(spendingKey)
	acc := NewAccount(uuid.New(), name, w.network, 0, keys)
	acc.EncryptedSpendKey = encoded
	if err := w.persistNewAccount(acc); err != nil {
		return nil, err
	}

	w.events.emitAccountImported(acc)
	return acc, nil
}

func (w *Wallet) persistNewAccount(acc *Account) error {
	if err := w.engine.Transaction(func(tx walletdb.Transactor) error {
		if err := walletdb.PutAccount(tx, acc.record()); err != nil {
			return err
		}
		if _, err := walletdb.GetDefaultAccountID(tx); errors.Is(err, walletdb.ErrNotFound) {
			return walletdb.SetDefaultAccountID(tx, acc.ID)
		} else if err != nil {
			return err
		}
		return nil
	}); err != nil {
		return errors.Wrap(err, "error persisting account")
	}

	w.regMtx.Lock()
	w.accounts[acc.ID] = acc
	w.regMtx.Unlock()
	return nil
}

// RemoveAccount forgets an account immediately but defers deleting its
// notes, transactions, and indexes to the event loop's cleanup phase, so
// the deletion never races an in-flight scan still writing under the
// account's keys.
func (w *Wallet) RemoveAccount(id uuid.UUID) error {
	w.regMtx.Lock()
	acc, ok := w.accounts[id]
	if !ok {
		w.regMtx.Unlock()
		return ErrAccountNotFound
	}
	delete(w.accounts, id)
	w.cleanupQueue = append(w.cleanupQueue, id)
	w.regMtx.Unlock()

	if err := w.engine.Transaction(func(tx walletdb.Transactor) error {
		if err := walletdb.DeleteAccount(tx, id); err != nil {
			return err
		}
		defID, err := walletdb.GetDefaultAccountID(tx)
		if errors.Is(err, walletdb.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if defID == id {
			return walletdb.DeleteDefaultAccountID(tx)
		}
		return nil
	}); err != nil {
		return errors.Wrap(err, "error deleting account")
	}

	w.events.emitAccountRemoved(acc)
	return nil
}

// cleanupRemovedAccounts purges the persisted state of accounts removed
// since the last tick. Skipped entirely while a scan is running: the
// scan snapshotted its account list before the removal and may still be
// writing.
func (w *Wallet) cleanupRemovedAccounts() {
	w.regMtx.Lock()
	if w.scan != nil || len(w.cleanupQueue) == 0 {
		w.regMtx.Unlock()
		return
	}
	queue := w.cleanupQueue
	w.cleanupQueue = nil
	w.regMtx.Unlock()

	for _, id := range queue {
		if err := w.engine.Transaction(func(tx walletdb.Transactor) error {
			return walletdb.PurgeAccountData(tx, id)
		}); err != nil {
			walletLogger.Error("error purging removed account", "account", id, "err", err)
		}
	}
}

// RescanAccount forgets id's scan state entirely and replays the chain
// from genesis against it alone, leaving every other account's state
// untouched. It runs in the background; the returned ScanState reports
// progress and, once Done() closes, the final error. At most one scan
// runs per wallet, and it starts only after any in-flight head update
// has settled.
func (w *Wallet) RescanAccount(id uuid.UUID) (*ScanState, error) {
	acc, err := w.Account(id)
	if err != nil {
		return nil, err
	}

	head, err := w.chain.Head()
	if err != nil {
		return nil, errors.Wrap(err, "error fetching chain head")
	}

	w.regMtx.Lock()
	if w.scan != nil {
		w.regMtx.Unlock()
		return nil, ErrScanInProgress
	}
	upd := w.updateHeadState
	scan := newScanState(context.Background(), 0, head.Sequence)
	w.scan = scan
	w.regMtx.Unlock()

	w.tmb.Go(func() error {
		if upd != nil {
			<-upd.Done()
		}

		scanErr := w.engine.Transaction(func(tx walletdb.Transactor) error {
			if err := walletdb.ClearAccountScanState(tx, acc.ID); err != nil {
				return err
			}
			return acc.setHead(tx, nil)
		})
		if scanErr == nil {
			scanErr = w.catchUpAccount(acc, scan, head.Sequence)
		}
		if scanErr != nil {
			walletLogger.Error("error rescanning account", "account", acc.ID, "err", scanErr)
		}
		w.persistNullifierBloom()

		scan.signalComplete(scanErr)
		w.regMtx.Lock()
		w.scan = nil
		w.regMtx.Unlock()
		return nil
	})
	return scan, nil
}

// scanTransactions catches every lagging account up to the wallet's
// cursor (or the chain head when no cursor exists yet). Mutually
// exclusive with RescanAccount via the same scan slot.
func (w *Wallet) scanTransactions() (*ScanState, error) {
	chainHead, err := w.chain.Head()
	if err != nil {
		return nil, errors.Wrap(err, "error fetching chain head")
	}

	w.regMtx.Lock()
	if w.scan != nil {
		w.regMtx.Unlock()
		return nil, ErrScanInProgress
	}
	upd := w.updateHeadState
	target := w.headSeq
	if target == 0 && chainHead != nil {
		target = chainHead.Sequence
	}
	scan := newScanState(context.Background(), 0, target)
	w.scan = scan
	w.regMtx.Unlock()

	w.tmb.Go(func() error {
		if upd != nil {
			<-upd.Done()
		}

		var firstErr error
		for _, acc := range w.accountList() {
			select {
			case <-scan.ctx.Done():
				firstErr = scan.ctx.Err()
			default:
				if err := w.catchUpAccount(acc, scan, target); err != nil {
					walletLogger.Error("error scanning account", "account", acc.ID, "err", err)
					if firstErr == nil {
						firstErr = err
					}
				}
			}
		}

		if firstErr == nil {
			if cursor, err := w.latestAccountHead(); err == nil && cursor != nil {
				w.regMtx.Lock()
				if cursor.Sequence > w.headSeq {
					w.headHash = gcrypto.Hash(cursor.Hash)
					w.headSeq = cursor.Sequence
				}
				w.regMtx.Unlock()
			}
		}
		w.persistNullifierBloom()

		scan.signalComplete(firstErr)
		w.regMtx.Lock()
		w.scan = nil
		w.regMtx.Unlock()
		return nil
	})
	return scan, nil
}

// catchUpAccount walks the canonical chain from acc's head (or genesis)
// up to targetSeq, applying each block to this account alone. Abort is
// honored between blocks, never inside one: a block either fully applies
// or was never started.
func (w *Wallet) catchUpAccount(acc *Account, scan *ScanState, targetSeq uint64) error {
	if targetSeq == 0 {
		return nil
	}
	head, err := w.currentHead(acc)
	if err != nil {
		return err
	}

	var begin gcrypto.Hash
	inclusive := true
	if head != nil {
		if head.Sequence >= targetSeq {
			return nil
		}
		// The head block itself is already applied; start just past it.
		begin = gcrypto.Hash(head.Hash)
		inclusive = false
	}

	return w.chain.IterateHeaders(begin, gcrypto.Hash{}, false, inclusive, func(h *chain.Header) (bool, error) {
		select {
		case <-scan.ctx.Done():
			return false, nil
		default:
		}
		if h.Sequence > targetSeq {
			return false, nil
		}
		if err := w.connectAccountBlock(acc, h); err != nil {
			return false, err
		}
		scan.advance(h.Sequence)
		return h.Sequence < targetSeq, nil
	})
}

// connectAccountBlock is connectBlock narrowed to a single account, used
// by the scan paths to catch one account up without touching any other
// account's already-confirmed state.
func (w *Wallet) connectAccountBlock(acc *Account, header *chain.Header) error {
	blockTxs, err := w.chain.BlockTransactions(header)
	if err != nil {
		return errors.Wrap(err, "error fetching block transactions")
	}
	return w.engine.Transaction(func(tx walletdb.Transactor) error {
		return w.applyBlock(tx, []*Account{acc}, header, blockTxs)
	})
}

// reconcile applies a chain follower notification: it disconnects blocks
// from the wallet's tracked head down to notif.CommonTip, then connects
// forward to notif.ChainTip. Both walks are driven by hashes, since
// sequence numbers alone don't survive a reorg — the header that used to
// occupy a sequence is exactly what disconnecting is undoing.
//
// reconcile holds the updateHeadState slot for its duration and yields
// entirely to an active scan: the scan is already driving every account
// toward the head, and two writers racing over the same heads is exactly
// what the slots exist to prevent.
func (w *Wallet) reconcile(notif *FollowerNotification) error {
	w.regMtx.Lock()
	if w.scan != nil {
		w.regMtx.Unlock()
		return nil
	}
	state := newScanState(context.Background(), notif.CommonTip, notif.ChainTip)
	w.updateHeadState = state
	headHash := w.headHash
	w.regMtx.Unlock()
	defer func() {
		state.signalComplete(nil)
		w.regMtx.Lock()
		w.updateHeadState = nil
		w.regMtx.Unlock()
	}()

	if !headHash.IsZero() {
		err := w.chain.IterateHeaders(headHash, gcrypto.Hash{}, true, true, func(h *chain.Header) (bool, error) {
			if h.Sequence <= notif.CommonTip {
				return false, nil
			}
			if err := w.disconnectBlock(h); err != nil {
				return false, err
			}
			return true, nil
		})
		if err != nil {
			return err
		}
	}

	chainHead, err := w.chain.Head()
	if err != nil {
		return err
	}

	var forward []*chain.Header
	err = w.chain.IterateHeaders(chainHead.Hash(), gcrypto.Hash{}, true, true, func(h *chain.Header) (bool, error) {
		if h.Sequence <= notif.CommonTip {
			return false, nil
		}
		forward = append(forward, h)
		return true, nil
	})
	if err != nil {
		return err
	}

	// Level every account at the common tip first, so a freshly created
	// or lagging account catches up through the same forward walk instead
	// of being silently skipped by the prev-hash eligibility check.
	for _, acc := range w.accountList() {
		if err := w.catchUpAccount(acc, state, notif.CommonTip); err != nil {
			return err
		}
	}

	for i := len(forward) - 1; i >= 0; i-- {
		select {
		case <-state.ctx.Done():
			return nil
		default:
		}
		if err := w.connectBlock(forward[i]); err != nil {
			return err
		}
		state.advance(forward[i].Sequence)
	}

	w.regMtx.Lock()
	w.headHash = chainHead.Hash()
	w.headSeq = chainHead.Sequence
	w.regMtx.Unlock()
	w.persistNullifierBloom()
	return nil
}

// connectBlock applies one block to every eligible account's state inside
// a single walletdb transaction: note decryption fan-out, nullifier spend
// recognition, pending-transaction confirmation, and head advance. An
// account is eligible when its head is the block's parent, or when it has
// no head at all and the block is genesis; anything else is skipped and
// left to the scan paths.
func (w *Wallet) connectBlock(header *chain.Header) error {
	blockTxs, err := w.chain.BlockTransactions(header)
	if err != nil {
		return errors.Wrap(err, "error fetching block transactions")
	}

	accounts := w.accountList()

	return w.engine.Transaction(func(tx walletdb.Transactor) error {
		var eligible []*Account
		for _, acc := range accounts {
			head, err := acc.head(tx)
			if err != nil {
				return err
			}
			if head == nil {
				if !header.IsGenesis() {
					continue
				}
			} else if !gcrypto.Hash(head.Hash).Equal(header.PreviousBlockHash) {
				continue
			}
			eligible = append(eligible, acc)
		}
		if len(eligible) == 0 {
			return nil
		}
		return w.applyBlock(tx, eligible, header, blockTxs)
	})
}

// applyBlock is the shared connect path: decrypt the block's notes
// against every account's keys, record spends of the accounts' own
// notes, confirm or create transaction records for the transactions each
// account was party to, and advance each account's head — all inside the
// caller's walletdb transaction.
func (w *Wallet) applyBlock(tx walletdb.Transactor, accounts []*Account, header *chain.Header, blockTxs []*BlockTransaction) error {
	w.observeSpentNullifiers(header, blockTxs)

	payloads, index := w.buildDecryptPayloads(accounts, blockTxs)
	results, err := w.decryptNotes(payloads)
	if err != nil {
		return errors.Wrap(err, "error decrypting notes")
	}

	received := make(map[uuid.UUID]map[string]bool)
	for i, res := range results {
		if res == nil || res.Note == nil {
			continue
		}
		p := payloads[i]
		acc := index[i]
		// An incoming match is a note the account owns and can spend. An
		// outgoing match is someone else's note this account paid for:
		// nothing spendable to record, but the transaction is still the
		// account's own and gets a record below.
		if res.Matched == ViewKeyIncoming {
			if err := acc.recordNote(tx, res.Note, p.EncryptedNote.Commitment, p.Position, p.TxHash); err != nil {
				return err
			}
		}
		if received[acc.ID] == nil {
			received[acc.ID] = make(map[string]bool)
		}
		received[acc.ID][p.TxHash.String()] = true
	}

	for _, acc := range accounts {
		for _, blockTx := range blockTxs {
			txHash := blockTx.Tx.Hash()
			touched := received[acc.ID][txHash.String()]
			for _, spend := range blockTx.Tx.Spends {
				matched, err := acc.recordSpend(tx, tx, spend.Nullifier, txHash)
				if err != nil {
					return err
				}
				touched = touched || matched
			}

			rec, err := walletdb.GetTransaction(tx, acc.ID, txHash)
			if err != nil {
				return err
			}
			switch {
			case rec != nil && rec.IsPending():
				if err := acc.markConfirmed(tx, tx, txHash, header); err != nil {
					return err
				}
			case rec == nil && touched:
				confirmed := &walletdb.TransactionRecord{
					Hash:          txHash,
					Tx:            blockTx.Tx,
					BlockHash:     header.Hash(),
					BlockSequence: header.Sequence,
					SubmittedSeq:  header.Sequence,
				}
				if err := walletdb.PutTransaction(tx, acc.ID, confirmed); err != nil {
					return err
				}
			}
		}
		if err := acc.setHead(tx, &walletdb.Head{Hash: header.Hash(), Sequence: header.Sequence}); err != nil {
			return err
		}
	}
	return nil
}

// disconnectBlock is connectBlock's exact inverse: applying connectBlock
// then disconnectBlock for the same header is required to be identity on
// every account's (notes, nullifiers, balances, head). The one asymmetry
// is miner rewards, whose transaction records are deleted outright — a
// reward has no existence outside the block that carried it, so there is
// no pending state to return it to.
func (w *Wallet) disconnectBlock(header *chain.Header) error {
	blockTxs, err := w.chain.BlockTransactions(header)
	if err != nil {
		return errors.Wrap(err, "error fetching block transactions")
	}

	accounts := w.accountList()

	return w.engine.Transaction(func(tx walletdb.Transactor) error {
		for _, acc := range accounts {
			head, err := acc.head(tx)
			if err != nil {
				return err
			}
			if head == nil || !gcrypto.Hash(head.Hash).Equal(header.Hash()) {
				continue
			}

			for i := len(blockTxs) - 1; i >= 0; i-- {
				blockTx := blockTxs[i]
				txHash := blockTx.Tx.Hash()

				rec, err := walletdb.GetTransaction(tx, acc.ID, txHash)
				if err != nil {
					return err
				}
				survivesAsPending := rec != nil && !blockTx.Tx.IsMinersFee()
				if rec != nil {
					if blockTx.Tx.IsMinersFee() {
						if err := walletdb.DeleteTransaction(tx, acc.ID, txHash); err != nil {
							return err
						}
					} else if !rec.IsPending() {
						if err := acc.markUnconfirmed(tx, tx, txHash); err != nil {
							return err
						}
					}
				}

				// A transaction that just went back to pending still
				// claims every note it spends, exactly as it did before
				// its block connected; only spends with no surviving
				// pending record are released.
				if !survivesAsPending {
					for j := len(blockTx.Tx.Spends) - 1; j >= 0; j-- {
						if err := acc.disconnectSpend(tx, tx, blockTx.Tx.Spends[j].Nullifier); err != nil {
							return err
						}
					}
				}

				for k, output := range blockTx.Tx.Outputs {
					note, err := acc.tryDecrypt(output)
					if err != nil {
						return err
					}
					if note == nil {
						continue
					}
					position := blockTx.InitialNoteIndex + uint64(k)
					if err := acc.disconnectNote(tx, note, output.Commitment, position); err != nil {
						return err
					}
				}
			}

			var prevHead *walletdb.Head
			if !header.IsGenesis() {
				prevHead = &walletdb.Head{Hash: header.PreviousBlockHash, Sequence: header.Sequence - 1}
			}
			if err := acc.setHead(tx, prevHead); err != nil {
				return err
			}
		}
		return nil
	})
}

// buildDecryptPayloads cross-joins every account's incoming view key with
// every output in blockTxs — decryption fan-out tries each note against
// each account, since the chain gives no hint which account a note
// belongs to. index[i] names which account payloads[i] was tried under.
func (w *Wallet) buildDecryptPayloads(accounts []*Account, blockTxs []*BlockTransaction) ([]*DecryptPayload, []*Account) {
	var payloads []*DecryptPayload
	var index []*Account
	for _, blockTx := range blockTxs {
		txHash := blockTx.Tx.Hash()
		for i, output := range blockTx.Tx.Outputs {
			position := blockTx.InitialNoteIndex + uint64(i)
			for _, acc := range accounts {
				payloads = append(payloads, &DecryptPayload{
					IncomingViewKey: acc.IncomingViewKey,
					OutgoingViewKey: acc.OutgoingViewKey,
					EncryptedNote:   output,
					Position:        position,
					TxHash:          txHash,
				})
				index = append(index, acc)
			}
		}
	}
	return payloads, index
}

// decryptNotes feeds payloads to the worker pool in batches of at most
// config.DecryptBatchSize, preserving order across batches.
func (w *Wallet) decryptNotes(payloads []*DecryptPayload) ([]*DecryptResult, error) {
	batch := w.config.DecryptBatchSize
	if batch <= 0 {
		batch = DefaultConfig().DecryptBatchSize
	}

	results := make([]*DecryptResult, 0, len(payloads))
	for start := 0; start < len(payloads); start += batch {
		end := start + batch
		if end > len(payloads) {
			end = len(payloads)
		}
		batchResults, err := w.workers.DecryptNotes(payloads[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, batchResults...)
	}
	return results, nil
}

func (w *Wallet) expireAccountTransactions(acc *Account) error {
	head, err := w.currentHead(acc)
	if err != nil || head == nil {
		return err
	}

	var expired []*walletdb.TransactionRecord
	err = w.engine.View(func(q walletdb.Querier) error {
		return walletdb.IterateExpiredTransactions(q, acc.ID, head.Sequence, func(txHash []byte) error {
			rec, err := walletdb.GetTransaction(q, acc.ID, txHash)
			if err != nil {
				return err
			}
			if rec != nil && rec.IsPending() {
				expired = append(expired, rec)
			}
			return nil
		})
	})
	if err != nil || len(expired) == 0 {
		return err
	}

	return w.engine.Transaction(func(tx walletdb.Transactor) error {
		for _, rec := range expired {
			if err := acc.expireTransaction(tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// rebroadcastAccountTransactions resubmits pending transactions that have
// sat unconfirmed for at least config.RebroadcastAfter blocks since their
// last submission, oldest first. Every candidate's SubmittedSeq advances
// to the current head whether or not the verifier still accepts it, so a
// transaction that keeps failing verification is retried at the same
// block cadence as a healthy one instead of on every tick.
func (w *Wallet) rebroadcastAccountTransactions(acc *Account) error {
	head, err := w.chain.Head()
	if err != nil {
		return err
	}
	if head == nil {
		return nil
	}
	headSeq := head.Sequence

	var candidates []*walletdb.TransactionRecord
	err = w.engine.View(func(q walletdb.Querier) error {
		return walletdb.IteratePendingTransactions(q, acc.ID, func(txHash []byte) (bool, error) {
			rec, err := walletdb.GetTransaction(q, acc.ID, txHash)
			if err != nil {
				return false, err
			}
			if rec == nil || !rec.IsPending() {
				return true, nil
			}
			if headSeq >= rec.SubmittedSeq && headSeq-rec.SubmittedSeq >= w.config.RebroadcastAfter {
				candidates = append(candidates, rec)
			}
			return true, nil
		})
	})
	if err != nil {
		return err
	}

	for _, rec := range candidates {
		if err := w.verifier.VerifyTransactionAdd(rec.Tx); err != nil {
			walletLogger.Warning("rebroadcast rejected", "tx", rec.Hash.String(), "err", err)
		} else if err := w.mempool.Accept(rec.Tx); err != nil {
			walletLogger.Warning("rebroadcast mempool rejection", "tx", rec.Hash.String(), "err", err)
		} else {
			w.events.emitBroadcastTransaction(rec.Tx)
		}

		prevSeq := rec.SubmittedSeq
		rec.SubmittedSeq = headSeq
		if err := w.engine.Transaction(func(tx walletdb.Transactor) error {
			if err := walletdb.DeletePendingIndex(tx, acc.ID, prevSeq, rec.Hash); err != nil {
				return err
			}
			if err := walletdb.PutPendingIndex(tx, acc.ID, rec.SubmittedSeq, rec.Hash); err != nil {
				return err
			}
			return walletdb.PutTransaction(tx, acc.ID, rec)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (w *Wallet) currentHead(acc *Account) (*walletdb.Head, error) {
	var head *walletdb.Head
	err := w.engine.View(func(q walletdb.Querier) error {
		h, err := acc.head(q)
		head = h
		return err
	})
	return head, err
}

// isAccountUpToDate reports whether acc's head matches the wallet's
// chain cursor. Spend selection against a lagging account would read a
// stale view of which notes remain unspent.
func (w *Wallet) isAccountUpToDate(acc *Account) (bool, error) {
	head, err := w.currentHead(acc)
	if err != nil {
		return false, err
	}
	w.regMtx.Lock()
	cursor := w.headHash
	w.regMtx.Unlock()
	if head == nil {
		return cursor.IsZero(), nil
	}
	return gcrypto.Hash(head.Hash).Equal(cursor), nil
}

// outputIntent is one requested receive: the plaintext note to create and
// the incoming view key it must be sealed under so its recipient can open
// it.
type outputIntent struct {
	note *chain.Note
	ivk  []byte
}

// Send builds, signs, proves, verifies, and broadcasts a transaction
// paying amount of assetID to recipient from acc, returning the
// transaction once it has been accepted into the mempool. recipientIVK is
// the recipient's incoming view key: a public address alone doesn't carry
// it, and without it the output note could only be opened by the
// recipient, never proven deliverable by the sender.
func (w *Wallet) Send(acc *Account, recipient *chain.Address, recipientIVK []byte, assetID []byte, amount uint64, fee uint64, expiration uint64) (*chain.Transaction, error) {
	out := &outputIntent{
		note: &chain.Note{Owner: recipient, Sender: acc.PublicAddress, AssetID: assetID, Value: amount},
		ivk:  recipientIVK,
	}
	return w.createTransaction(acc, []*outputIntent{out}, nil, nil, fee, expiration)
}

// Mint creates value new units of an asset under acc's own spending
// authority, crediting them to acc itself. Callers give either the
// asset's (name, metadata) definition or an existing assetID; with only
// an id, the definition is resolved from chain storage and the id
// recomputed under acc's own address — a mismatch means the asset belongs
// to someone else's key and cannot be minted here.
func (w *Wallet) Mint(acc *Account, assetID []byte, name, metadata string, value, fee, expiration uint64) (*chain.Transaction, error) {
	if name == "" {
		if len(assetID) == 0 {
			return nil, errors.New("mint requires an asset id or an asset name")
		}
		def, err := w.chain.GetAssetByID(gcrypto.Hash(assetID))
		if err != nil {
			return nil, errors.Wrap(err, "error resolving asset")
		}
		if def == nil {
			return nil, errors.New("unknown asset")
		}
		name, metadata = def.Name, def.Metadata
	}

	recomputed := chain.ComputeAssetID(acc.PublicAddress, name, metadata)
	if len(assetID) > 0 && !recomputed.Equal(assetID) {
		return nil, errors.New("asset is not owned by this account")
	}
	assetID = recomputed

	mint := &chain.Mint{AssetID: assetID, Name: name, Metadata: metadata, Value: value}
	out := &outputIntent{
		note: &chain.Note{Owner: acc.PublicAddress, Sender: acc.PublicAddress, AssetID: assetID, Value: value},
		ivk:  acc.IncomingViewKey,
	}
	return w.createTransaction(acc, []*outputIntent{out}, []*chain.Mint{mint}, nil, fee, expiration)
}

// Burn destroys value units of assetID from acc's spendable notes.
func (w *Wallet) Burn(acc *Account, assetID []byte, value, fee, expiration uint64) (*chain.Transaction, error) {
	burn := &chain.Burn{AssetID: assetID, Value: value}
	return w.createTransaction(acc, nil, nil, []*chain.Burn{burn}, fee, expiration)
}

// createTransaction is the shared build path behind Send, Mint, and
// Burn: serialize through createTxMtx so two builds can never select the
// same unspent note, require the sender caught up to the chain cursor,
// resolve the expiration window, fund every touched asset, return change
// to the sender, sign, and hand off to postTransaction.
func (w *Wallet) createTransaction(
	acc *Account,
	outputs []*outputIntent,
	mints []*chain.Mint,
	burns []*chain.Burn,
	fee uint64,
	expiration uint64,
) (*chain.Transaction, error) {
	if acc.IsWatchOnly() {
		return nil, errors.New("cannot spend from a watch-only account")
	}

	w.createTxMtx.Lock()
	defer w.createTxMtx.Unlock()

	upToDate, err := w.isAccountUpToDate(acc)
	if err != nil {
		return nil, err
	}
	if !upToDate {
		return nil, ErrAccountNotUpToDate
	}

	head, err := w.chain.Head()
	if err != nil {
		return nil, errors.Wrap(err, "error fetching chain head")
	}
	if expiration == 0 && w.config.ExpirationDelta > 0 && head != nil {
		expiration = head.Sequence + w.config.ExpirationDelta
	}
	if expiration != 0 && head != nil && expiration <= head.Sequence {
		return nil, ErrInvalidExpiration
	}

	builder := &TxBuilder{Fee: fee, Expiration: expiration, Mints: mints, Burns: burns}

	// amountsNeeded: the fee in the native asset, plus every receive and
	// every burn, minus whatever the transaction's own mints create.
	needed := map[string]uint64{string(chain.NativeAssetID): fee}
	for _, out := range outputs {
		needed[string(out.note.AssetID)] += out.note.Value
	}
	for _, b := range burns {
		needed[string(b.AssetID)] += b.Value
	}
	for _, m := range mints {
		key := string(m.AssetID)
		if needed[key] >= m.Value {
			needed[key] -= m.Value
		} else {
			needed[key] = 0
		}
	}

	var totals map[string]uint64
	if err := w.engine.Transaction(func(tx walletdb.Transactor) error {
		got, err := fundTransaction(tx, w.chain, w.copyBloom(), acc, builder, needed)
		totals = got
		return err
	}); err != nil {
		return nil, err
	}

	// Requested outputs carry a sender copy sealed under the outgoing
	// view key, so this account can re-learn what it paid out from chain
	// data alone after a rescan.
	for _, out := range outputs {
		enc, err := encryptNote(out.note, out.ivk, acc.OutgoingViewKey)
		if err != nil {
			return nil, err
		}
		builder.AddOutput(enc)
	}

	assets := make([]string, 0, len(totals))
	for asset := range totals {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	for _, asset := range assets {
		if change := totals[asset] - needed[asset]; change > 0 {
			changeNote := &chain.Note{
				Owner:   acc.PublicAddress,
				Sender:  acc.PublicAddress,
				AssetID: []byte(asset),
				Value:   change,
			}
			// Change already opens under the account's own incoming view
			// key; no sender copy needed.
			enc, err := encryptNote(changeNote, acc.IncomingViewKey, nil)
			if err != nil {
				return nil, err
			}
			builder.AddOutput(enc)
		}
	}

	txn, err := builder.Sign(acc.SpendingKey)
	if err != nil {
		return nil, err
	}

	return w.postTransaction(txn)
}

// postTransaction proves, verifies, persists, and broadcasts txn. A
// verifier rejection is fatal to the request and leaves no state behind;
// the pending records for every concerned account are written in one
// walletdb transaction before the mempool handoff.
func (w *Wallet) postTransaction(txn *chain.Transaction) (*chain.Transaction, error) {
	proved, err := w.workers.PostTransaction(txn)
	if err != nil {
		return nil, errors.Wrap(err, "error proving transaction")
	}

	if err := w.verifier.VerifyCreatedTransaction(proved); err != nil {
		return nil, errors.Wrap(err, "transaction rejected by verifier")
	}

	if err := w.AddPendingTransaction(proved); err != nil {
		return nil, err
	}
	w.events.emitTransactionCreated(proved)

	if err := w.mempool.Accept(proved); err != nil {
		return nil, errors.Wrap(err, "error accepting transaction into mempool")
	}
	w.events.emitBroadcastTransaction(proved)

	return proved, nil
}

// AddPendingTransaction records txn as pending against every account it
// concerns: accounts whose notes it spends, and accounts whose incoming
// view key opens one of its outputs. Commitment-tree positions are
// unknown until a block carries the transaction, so no decrypted notes
// are persisted here — the notes land with their positions when the
// transaction confirms, and until then they are unspendable anyway.
func (w *Wallet) AddPendingTransaction(txn *chain.Transaction) error {
	head, err := w.chain.Head()
	if err != nil {
		return errors.Wrap(err, "error fetching chain head")
	}
	var submitted uint64
	if head != nil {
		submitted = head.Sequence
	}

	accounts := w.accountList()
	txHash := txn.Hash()

	return w.engine.Transaction(func(tx walletdb.Transactor) error {
		for _, acc := range accounts {
			rec, err := walletdb.GetTransaction(tx, acc.ID, txHash)
			if err != nil {
				return err
			}
			if rec != nil {
				continue
			}

			relevant := false
			for _, spend := range txn.Spends {
				commitment, err := walletdb.GetNoteByNullifier(tx, acc.ID, spend.Nullifier)
				if err != nil {
					return err
				}
				if commitment != nil {
					relevant = true
					break
				}
			}
			if !relevant {
				for _, output := range txn.Outputs {
					note, err := acc.tryDecrypt(output)
					if err != nil {
						return err
					}
					if note == nil {
						note, err = acc.tryDecryptOutgoing(output)
						if err != nil {
							return err
						}
					}
					if note != nil {
						relevant = true
						break
					}
				}
			}
			if !relevant {
				continue
			}

			if err := acc.addPendingTransaction(tx, txn, submitted); err != nil {
				return err
			}
		}
		return nil
	})
}

// encryptNote seals note for its recipient and, when outgoingViewKey is
// given, seals a second copy for the sender's own records.
func encryptNote(note *chain.Note, incomingViewKey, outgoingViewKey []byte) (*chain.EncryptedNote, error) {
	commitment := note.Commitment()
	var buf bytes.Buffer
	if _, err := note.WriteTo(&buf); err != nil {
		return nil, err
	}
	ct, err := gcrypto.SealNote(incomingViewKey, commitment, buf.Bytes())
	if err != nil {
		return nil, err
	}
	enc := &chain.EncryptedNote{Commitment: commitment, Ciphertext: ct}
	if len(outgoingViewKey) > 0 {
		outCt, err := gcrypto.SealNote(outgoingViewKey, commitment, buf.Bytes())
		if err != nil {
			return nil, err
		}
		enc.OutCiphertext = outCt
	}
	return enc, nil
}
