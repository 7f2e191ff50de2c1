package itest

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/umbranet/umbra/chain"
	"github.com/umbranet/umbra/gcrypto"
	"github.com/umbranet/umbra/wallet"
)

// FakeChain is an in-process stand-in for a full node: a header chain the
// test drives directly by calling Connect, plus enough bookkeeping to
// satisfy wallet.Chain, wallet.MemPool, and wallet.Verifier without ever
// touching a real note commitment tree.
//
// Rewind pops the canonical tip without forgetting it: byHash and
// blockTxs keep every header a test ever produced, canonical or not, the
// same way a real node keeps recently orphaned blocks around long enough
// for a disconnecting follower to walk back through them by hash.
type FakeChain struct {
	mtx sync.Mutex

	canonical  []*chain.Header // ascending sequence, genesis first
	byHash     map[string]*chain.Header
	blockTxs   map[string][]*wallet.BlockTransaction
	nextIndex  uint64
	nullifiers map[string]bool
	assets     map[string]*chain.Mint
	mempool    []*chain.Transaction
	synced     bool
}

func NewFakeChain() *FakeChain {
	genesis := &chain.Header{
		PreviousBlockHash:  chain.ZeroHash,
		Sequence:           chain.GenesisSequence,
		NoteCommitmentRoot: chain.ZeroHash,
		NullifierRoot:      chain.ZeroHash,
	}
	fc := &FakeChain{
		canonical:  []*chain.Header{genesis},
		byHash:     make(map[string]*chain.Header),
		blockTxs:   make(map[string][]*wallet.BlockTransaction),
		nullifiers: make(map[string]bool),
		assets:     make(map[string]*chain.Mint),
		synced:     true,
	}
	fc.byHash[genesis.Hash().String()] = genesis
	fc.blockTxs[genesis.HashHex()] = nil
	return fc
}

func (fc *FakeChain) tip() *chain.Header {
	return fc.canonical[len(fc.canonical)-1]
}

// Connect appends a block containing txs on top of the current tip and
// returns the new header, recording each output's commitment-tree
// position and each spend's nullifier as now known to the chain.
func (fc *FakeChain) Connect(txs []*chain.Transaction) *chain.Header {
	fc.mtx.Lock()
	defer fc.mtx.Unlock()

	tip := fc.tip()
	header := &chain.Header{
		PreviousBlockHash:  tip.Hash(),
		Sequence:           tip.Sequence + 1,
		Timestamp:          uint64(len(fc.canonical)),
		NoteCommitmentRoot: tip.Hash(),
		NullifierRoot:      tip.Hash(),
	}

	blockTxs := make([]*wallet.BlockTransaction, len(txs))
	for i, tx := range txs {
		blockTxs[i] = &wallet.BlockTransaction{Tx: tx, InitialNoteIndex: fc.nextIndex}
		fc.nextIndex += uint64(len(tx.Outputs))
		for _, spend := range tx.Spends {
			fc.nullifiers[spend.Nullifier.String()] = true
		}
		for _, mint := range tx.Mints {
			if _, ok := fc.assets[mint.AssetID.String()]; !ok {
				fc.assets[mint.AssetID.String()] = mint
			}
		}
	}

	fc.canonical = append(fc.canonical, header)
	fc.byHash[header.Hash().String()] = header
	fc.blockTxs[header.HashHex()] = blockTxs
	return header
}

// Rewind drops the canonical tip, undoing the nullifiers its block
// recorded. The dropped header and its transactions stay resolvable by
// hash, and commitment-tree positions are never reused, matching a real
// chain where a replacement block mints its own notes at fresh positions.
func (fc *FakeChain) Rewind() {
	fc.mtx.Lock()
	defer fc.mtx.Unlock()
	if len(fc.canonical) <= 1 {
		return
	}
	tip := fc.tip()
	for _, blockTx := range fc.blockTxs[tip.HashHex()] {
		for _, spend := range blockTx.Tx.Spends {
			delete(fc.nullifiers, spend.Nullifier.String())
		}
	}
	fc.canonical = fc.canonical[:len(fc.canonical)-1]
}

func (fc *FakeChain) Header(hash gcrypto.Hash) (*chain.Header, error) {
	fc.mtx.Lock()
	defer fc.mtx.Unlock()
	h, ok := fc.byHash[hash.String()]
	if !ok {
		return nil, errors.New("header not found")
	}
	return h, nil
}

func (fc *FakeChain) BlockTransactions(header *chain.Header) ([]*wallet.BlockTransaction, error) {
	fc.mtx.Lock()
	defer fc.mtx.Unlock()
	return fc.blockTxs[header.HashHex()], nil
}

// IterateHeaders walks the canonical chain forward from begin (or
// genesis, if begin is zero) when reverse is false, and walks backward
// by PreviousBlockHash links from begin (or the current tip) when
// reverse is true — the same hash-chain walk a real node's IterateHeaders
// performs, which is why it still resolves an orphaned begin header a
// reorg has since dropped from the canonical chain.
func (fc *FakeChain) IterateHeaders(begin, end gcrypto.Hash, reverse, inclusive bool, visit func(*chain.Header) (bool, error)) error {
	fc.mtx.Lock()
	canonical := make([]*chain.Header, len(fc.canonical))
	copy(canonical, fc.canonical)
	byHash := fc.byHash
	fc.mtx.Unlock()

	if reverse {
		var cur *chain.Header
		if begin.IsZero() {
			cur = canonical[len(canonical)-1]
		} else {
			h, ok := byHash[begin.String()]
			if !ok {
				return errors.New("begin header not found")
			}
			cur = h
		}

		first := true
		for {
			if !(first && !inclusive) {
				cont, err := visit(cur)
				if err != nil {
					return err
				}
				if !cont {
					return nil
				}
			}
			first = false

			if !end.IsZero() && cur.Hash().Equal(end) {
				return nil
			}
			if cur.IsGenesis() {
				return nil
			}
			prev, ok := byHash[cur.PreviousBlockHash.String()]
			if !ok {
				return nil
			}
			cur = prev
		}
	}

	startIdx := 0
	if !begin.IsZero() {
		found := -1
		for i, h := range canonical {
			if h.Hash().Equal(begin) {
				found = i
				break
			}
		}
		if found == -1 {
			return errors.New("begin header not found")
		}
		startIdx = found
	}

	for i := startIdx; i < len(canonical); i++ {
		h := canonical[i]
		if !inclusive && i == startIdx {
			continue
		}
		cont, err := visit(h)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
		if !end.IsZero() && h.Hash().Equal(end) {
			return nil
		}
	}
	return nil
}

func (fc *FakeChain) NoteWitness(position uint64) (*chain.Witness, error) {
	fc.mtx.Lock()
	defer fc.mtx.Unlock()
	tip := fc.tip()
	return &chain.Witness{
		Commitment: tip.Hash(),
		RootHash:   tip.Hash(),
		TreeSize:   fc.nextIndex,
	}, nil
}

func (fc *FakeChain) NullifierSetContains(nullifier gcrypto.Hash) (bool, error) {
	fc.mtx.Lock()
	defer fc.mtx.Unlock()
	return fc.nullifiers[nullifier.String()], nil
}

// GetAssetByID resolves an asset definition registered by a previously
// connected mint, or nil for an asset the chain has never seen.
func (fc *FakeChain) GetAssetByID(assetID gcrypto.Hash) (*chain.Mint, error) {
	fc.mtx.Lock()
	defer fc.mtx.Unlock()
	return fc.assets[assetID.String()], nil
}

func (fc *FakeChain) Head() (*chain.Header, error) {
	fc.mtx.Lock()
	defer fc.mtx.Unlock()
	return fc.tip(), nil
}

func (fc *FakeChain) Genesis() (*chain.Header, error) {
	fc.mtx.Lock()
	defer fc.mtx.Unlock()
	return fc.canonical[0], nil
}

func (fc *FakeChain) Synced() (bool, error) {
	return fc.synced, nil
}

// HasBlock reports whether hash is part of the current canonical chain,
// used by the chain follower to tell a within-window reorg from one deep
// enough to require a full resync.
func (fc *FakeChain) HasBlock(hash gcrypto.Hash) (bool, error) {
	fc.mtx.Lock()
	defer fc.mtx.Unlock()
	for _, h := range fc.canonical {
		if h.Hash().Equal(hash) {
			return true, nil
		}
	}
	return false, nil
}

// Accept implements wallet.MemPool by recording the transaction; tests
// connect it into a block explicitly with Connect rather than simulating
// mining.
func (fc *FakeChain) Accept(tx *chain.Transaction) error {
	fc.mtx.Lock()
	defer fc.mtx.Unlock()
	fc.mempool = append(fc.mempool, tx)
	return nil
}

func (fc *FakeChain) Mempool() []*chain.Transaction {
	fc.mtx.Lock()
	defer fc.mtx.Unlock()
	out := make([]*chain.Transaction, len(fc.mempool))
	copy(out, fc.mempool)
	return out
}

// VerifyCreatedTransaction and VerifyTransactionAdd always accept: the
// fake chain exists to exercise wallet-side bookkeeping, not consensus
// validation, which belongs to the full node in production.
func (fc *FakeChain) VerifyCreatedTransaction(tx *chain.Transaction) error { return nil }
func (fc *FakeChain) VerifyTransactionAdd(tx *chain.Transaction) error     { return nil }
