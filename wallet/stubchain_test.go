package wallet

import (
	"github.com/pkg/errors"
	"github.com/umbranet/umbra/chain"
	"github.com/umbranet/umbra/gcrypto"
)

// stubChain is a minimal in-memory Chain for unit tests in this package.
// Tests drive it by appending headers with extend and by poking the
// nullifier set and witness behavior directly.
type stubChain struct {
	canonical  []*chain.Header // ascending, genesis first
	byHash     map[string]*chain.Header
	txs        map[string][]*BlockTransaction
	nullifiers map[string]bool
	witnessErr error
	synced     bool

	// nullifierChecks counts NullifierSetContains calls, so tests can
	// assert the bloom pre-check actually short-circuits the lookup.
	nullifierChecks int
}

func newStubChain() *stubChain {
	genesis := &chain.Header{
		PreviousBlockHash:  chain.ZeroHash,
		Sequence:           chain.GenesisSequence,
		NoteCommitmentRoot: chain.ZeroHash,
		NullifierRoot:      chain.ZeroHash,
	}
	sc := &stubChain{
		canonical:  []*chain.Header{genesis},
		byHash:     make(map[string]*chain.Header),
		txs:        make(map[string][]*BlockTransaction),
		nullifiers: make(map[string]bool),
		synced:     true,
	}
	sc.byHash[genesis.Hash().String()] = genesis
	return sc
}

func (sc *stubChain) tip() *chain.Header {
	return sc.canonical[len(sc.canonical)-1]
}

// extend appends an empty block on the current tip, optionally carrying a
// distinguishing timestamp so two competing blocks at the same height
// hash differently.
func (sc *stubChain) extend(timestamp uint64) *chain.Header {
	tip := sc.tip()
	header := &chain.Header{
		PreviousBlockHash:  tip.Hash(),
		Sequence:           tip.Sequence + 1,
		Timestamp:          timestamp,
		NoteCommitmentRoot: tip.Hash(),
		NullifierRoot:      tip.Hash(),
	}
	sc.canonical = append(sc.canonical, header)
	sc.byHash[header.Hash().String()] = header
	return header
}

func (sc *stubChain) rewind() {
	if len(sc.canonical) > 1 {
		sc.canonical = sc.canonical[:len(sc.canonical)-1]
	}
}

func (sc *stubChain) Header(hash gcrypto.Hash) (*chain.Header, error) {
	h, ok := sc.byHash[hash.String()]
	if !ok {
		return nil, errors.New("header not found")
	}
	return h, nil
}

func (sc *stubChain) BlockTransactions(header *chain.Header) ([]*BlockTransaction, error) {
	return sc.txs[header.Hash().String()], nil
}

func (sc *stubChain) IterateHeaders(begin, end gcrypto.Hash, reverse, inclusive bool, visit func(*chain.Header) (bool, error)) error {
	if reverse {
		var cur *chain.Header
		if begin.IsZero() {
			cur = sc.tip()
		} else {
			h, ok := sc.byHash[begin.String()]
			if !ok {
				return errors.New("begin header not found")
			}
			cur = h
		}
		first := true
		for {
			if !(first && !inclusive) {
				cont, err := visit(cur)
				if err != nil || !cont {
					return err
				}
			}
			first = false
			if (!end.IsZero() && cur.Hash().Equal(end)) || cur.IsGenesis() {
				return nil
			}
			prev, ok := sc.byHash[cur.PreviousBlockHash.String()]
			if !ok {
				return nil
			}
			cur = prev
		}
	}

	startIdx := 0
	if !begin.IsZero() {
		startIdx = -1
		for i, h := range sc.canonical {
			if h.Hash().Equal(begin) {
				startIdx = i
				break
			}
		}
		if startIdx == -1 {
			return errors.New("begin header not found")
		}
	}
	for i := startIdx; i < len(sc.canonical); i++ {
		if !inclusive && i == startIdx {
			continue
		}
		h := sc.canonical[i]
		cont, err := visit(h)
		if err != nil || !cont {
			return err
		}
		if !end.IsZero() && h.Hash().Equal(end) {
			return nil
		}
	}
	return nil
}

func (sc *stubChain) NoteWitness(position uint64) (*chain.Witness, error) {
	if sc.witnessErr != nil {
		return nil, sc.witnessErr
	}
	tip := sc.tip()
	return &chain.Witness{Commitment: tip.Hash(), RootHash: tip.Hash(), TreeSize: position + 1}, nil
}

func (sc *stubChain) NullifierSetContains(nullifier gcrypto.Hash) (bool, error) {
	sc.nullifierChecks++
	return sc.nullifiers[nullifier.String()], nil
}

func (sc *stubChain) GetAssetByID(assetID gcrypto.Hash) (*chain.Mint, error) {
	return nil, nil
}

func (sc *stubChain) Head() (*chain.Header, error) {
	return sc.tip(), nil
}

func (sc *stubChain) Genesis() (*chain.Header, error) {
	return sc.canonical[0], nil
}

func (sc *stubChain) Synced() (bool, error) {
	return sc.synced, nil
}

func (sc *stubChain) HasBlock(hash gcrypto.Hash) (bool, error) {
	for _, h := range sc.canonical {
		if h.Hash().Equal(hash) {
			return true, nil
		}
	}
	return false, nil
}
