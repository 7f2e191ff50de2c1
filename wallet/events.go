package wallet

import (
	"sync"

	"github.com/umbranet/umbra/chain"
)

// eventBus holds the wallet's four observer lists. Each is rare enough
// (account lifecycle, transaction creation/broadcast) that a plain
// mutex-guarded slice of callbacks is simpler than a channel per
// subscriber, unlike the chain follower's higher-frequency notifications.
type eventBus struct {
	mtx sync.Mutex

	onAccountImported      []func(*Account)
	onAccountRemoved       []func(*Account)
	onTransactionCreated   []func(*chain.Transaction)
	onBroadcastTransaction []func(*chain.Transaction)
}

func (b *eventBus) SubscribeAccountImported(fn func(*Account)) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.onAccountImported = append(b.onAccountImported, fn)
}

func (b *eventBus) SubscribeAccountRemoved(fn func(*Account)) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.onAccountRemoved = append(b.onAccountRemoved, fn)
}

func (b *eventBus) SubscribeTransactionCreated(fn func(*chain.Transaction)) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.onTransactionCreated = append(b.onTransactionCreated, fn)
}

func (b *eventBus) SubscribeBroadcastTransaction(fn func(*chain.Transaction)) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.onBroadcastTransaction = append(b.onBroadcastTransaction, fn)
}

func (b *eventBus) emitAccountImported(acc *Account) {
	b.mtx.Lock()
	fns := append([]func(*Account){}, b.onAccountImported...)
	b.mtx.Unlock()
	for _, fn := range fns {
		fn(acc)
	}
}

func (b *eventBus) emitAccountRemoved(acc *Account) {
	b.mtx.Lock()
	fns := append([]func(*Account){}, b.onAccountRemoved...)
	b.mtx.Unlock()
	for _, fn := range fns {
		fn(acc)
	}
}

func (b *eventBus) emitTransactionCreated(tx *chain.Transaction) {
	b.mtx.Lock()
	fns := append([]func(*chain.Transaction){}, b.onTransactionCreated...)
	b.mtx.Unlock()
	for _, fn := range fns {
		fn(tx)
	}
}

func (b *eventBus) emitBroadcastTransaction(tx *chain.Transaction) {
	b.mtx.Lock()
	fns := append([]func(*chain.Transaction){}, b.onBroadcastTransaction...)
	b.mtx.Unlock()
	for _, fn := range fns {
		fn(tx)
	}
}
