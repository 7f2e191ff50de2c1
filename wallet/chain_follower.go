package wallet

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/umbranet/umbra/chain"
	"github.com/umbranet/umbra/gcrypto"
	"github.com/umbranet/umbra/log"
	"github.com/umbranet/umbra/walletdb"
	"gopkg.in/tomb.v2"
)

const (
	ChainFollowerFinalityDepth = 10
	chainFollowerPollInterval  = 10 * time.Second
)

var (
	cfLogger = log.ModuleLogger("chain-follower")

	ErrChainFollowerSafetyStop = errors.New("chain follower safety stop")
)

// FollowerNotification tells a subscriber how far the chain has moved and
// the sequence both the subscriber and the chain still agree on, so the
// subscriber knows how far to roll its own state back before replaying
// forward to ChainTip.
type FollowerNotification struct {
	ChainTip  uint64
	CommonTip uint64
}

// ChainFollower keeps a ring of recent (sequence, hash) checkpoints so it
// can cheaply tell, on each poll, whether the canonical chain reorganized
// since the last check, and if so, how far back the common ancestor is.
type ChainFollower struct {
	tmb   *tomb.Tomb
	chain Chain
	engine *walletdb.Engine

	subs         []chan *FollowerNotification
	checkpoints  []*walletdb.BlockCheckpoint // ascending: oldest first, newest (tip) last
	lastSequence uint64
	mtx          sync.RWMutex
	dead         bool
}

func NewChainFollower(tmb *tomb.Tomb, chain Chain, engine *walletdb.Engine) *ChainFollower {
	return &ChainFollower{
		tmb:    tmb,
		chain:  chain,
		engine: engine,
	}
}

func (f *ChainFollower) Start() error {
	var checkpoints []*walletdb.BlockCheckpoint
	err := f.engine.View(func(q walletdb.Querier) error {
		cps, err := walletdb.GetCheckpoints(q)
		if err != nil {
			return err
		}
		checkpoints = cps
		return nil
	})
	if err != nil {
		return err
	}
	f.checkpoints = checkpoints

	f.tmb.Go(func() error {
		if err := f.poll(); err != nil {
			cfLogger.Error("error polling", "err", err)
		}

		tick := time.NewTicker(chainFollowerPollInterval)
		defer tick.Stop()
		for {
			select {
			case <-tick.C:
				if err := f.poll(); err != nil {
					cfLogger.Error("error polling", "err", err)
				}
			case <-f.tmb.Dying():
				f.mtx.Lock()
				f.dead = true
				for _, sub := range f.subs {
					close(sub)
				}
				f.mtx.Unlock()
				return nil
			}
		}
	})

	return nil
}

func (f *ChainFollower) LastSequence() uint64 {
	f.mtx.RLock()
	defer f.mtx.RUnlock()
	return f.lastSequence
}

func (f *ChainFollower) Subscribe() <-chan *FollowerNotification {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.dead {
		panic("chain follower is closed")
	}

	ch := make(chan *FollowerNotification, 1)
	f.subs = append(f.subs, ch)
	return ch
}

func (f *ChainFollower) Poll() error {
	return f.poll()
}

func (f *ChainFollower) poll() error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.dead {
		panic("chain follower is dead")
	}

	head, err := f.chain.Head()
	if err != nil {
		return errors.Wrap(err, "error getting chain head")
	}
	if head == nil {
		return nil
	}

	if len(f.checkpoints) == 0 {
		if err := f.refreshCheckpoints(head.Hash(), head.Sequence); err != nil {
			return err
		}
		f.lastSequence = head.Sequence
		return nil
	}

	checkTip := f.checkpoints[len(f.checkpoints)-1]
	if checkTip.Sequence > head.Sequence {
		return ErrChainFollowerSafetyStop
	}

	if head.Sequence-checkTip.Sequence > ChainFollowerFinalityDepth {
		ok, err := f.chain.HasBlock(gcrypto.Hash(checkTip.Hash))
		if err != nil {
			return err
		}
		if !ok {
			cfLogger.Error(
				"deep reorg detected",
				"chain_sequence", head.Sequence,
				"checkpoint_sequence", checkTip.Sequence,
			)
			return ErrChainFollowerSafetyStop
		}

		if err := f.refreshCheckpoints(head.Hash(), head.Sequence); err != nil {
			return err
		}
		f.lastSequence = head.Sequence
		f.sendNotifications(head.Sequence, head.Sequence)
		return nil
	}

	hashBySequence, err := f.headersDescending(head.Hash(), ChainFollowerFinalityDepth)
	if err != nil {
		return err
	}

	// Find the newest checkpoint both rings agree on, scanning from the
	// checkpoint tip backward, so the reported common point is the
	// smallest rollback a reorg within the window actually requires.
	var commonSequence uint64
	found := false
	for i := len(f.checkpoints) - 1; i >= 0; i-- {
		check := f.checkpoints[i]
		hash, ok := hashBySequence[check.Sequence]
		if ok && hash.Equal(gcrypto.Hash(check.Hash)) {
			commonSequence = check.Sequence
			found = true
			break
		}
	}
	if !found {
		return ErrChainFollowerSafetyStop
	}

	// No reorg: checkTip is still on the canonical chain, so everything
	// since it is new and needs connecting. A reorg narrows that to
	// whatever earlier point the two chains still agree on.
	commonTip := checkTip.Sequence
	if commonSequence != checkTip.Sequence {
		commonTip = commonSequence
	}

	if err := f.refreshCheckpoints(head.Hash(), head.Sequence); err != nil {
		return err
	}
	f.lastSequence = head.Sequence
	f.sendNotifications(head.Sequence, commonTip)
	return nil
}

// refreshCheckpoints rebuilds the checkpoint ring from the finality window
// immediately behind headHash, persists it, and replaces f.checkpoints in
// ascending (oldest-first) order.
func (f *ChainFollower) refreshCheckpoints(headHash gcrypto.Hash, headSequence uint64) error {
	hashBySequence, err := f.headersDescending(headHash, ChainFollowerFinalityDepth)
	if err != nil {
		return err
	}

	var start uint64 = 1
	if headSequence > ChainFollowerFinalityDepth {
		start = headSequence - ChainFollowerFinalityDepth + 1
	}

	var checkpoints []*walletdb.BlockCheckpoint
	for seq := start; seq <= headSequence; seq++ {
		hash, ok := hashBySequence[seq]
		if !ok {
			continue
		}
		checkpoints = append(checkpoints, &walletdb.BlockCheckpoint{
			Sequence: seq,
			Hash:     hash,
		})
	}

	if err := f.engine.Transaction(func(tx walletdb.Transactor) error {
		return walletdb.PutCheckpoints(tx, checkpoints)
	}); err != nil {
		return err
	}

	f.checkpoints = checkpoints
	return nil
}

func (f *ChainFollower) sendNotifications(chainTip, commonTip uint64) {
	notif := &FollowerNotification{ChainTip: chainTip, CommonTip: commonTip}
	subsCopy := make([]chan *FollowerNotification, len(f.subs))
	copy(subsCopy, f.subs)
	for _, sub := range subsCopy {
		sub <- notif
	}
}

// headersDescending walks backward from fromHash for up to count headers,
// returning each header's hash keyed by its sequence.
func (f *ChainFollower) headersDescending(fromHash gcrypto.Hash, count uint64) (map[uint64]gcrypto.Hash, error) {
	out := make(map[uint64]gcrypto.Hash, count)
	var visited uint64
	err := f.chain.IterateHeaders(fromHash, gcrypto.Hash{}, true, true, func(h *chain.Header) (bool, error) {
		out[h.Sequence] = h.Hash()
		visited++
		return visited < count, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "error walking headers")
	}
	return out, nil
}
