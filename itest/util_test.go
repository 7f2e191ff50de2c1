package itest

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/umbranet/umbra/chain"
	"github.com/umbranet/umbra/gcrypto"
	"github.com/umbranet/umbra/wallet"
	"github.com/umbranet/umbra/walletdb"
	"github.com/umbranet/umbra/workers"
	"gopkg.in/tomb.v2"
)

var coinbaseAddress = &chain.Address{Hash: bytes.Repeat([]byte{0xFF}, chain.PublicAddressLen)}
var coinbaseSpendingKey = gcrypto.DeriveSpendingKey(bytes.Repeat([]byte{0x01}, 32))

// mintTransaction builds a transaction with no spends, funding recipient
// (identified by its address and incoming view key) with value of
// assetID. The fake chain accepts any binding signature, so a throwaway
// coinbase key stands in for whatever minting mechanism a real chain uses.
func mintTransaction(t *testing.T, recipient *chain.Address, recipientIVK []byte, assetID []byte, value uint64) *chain.Transaction {
	t.Helper()

	note := &chain.Note{Owner: recipient, Sender: coinbaseAddress, AssetID: assetID, Value: value}
	commitment := note.Commitment()
	var buf bytes.Buffer
	_, err := note.WriteTo(&buf)
	require.NoError(t, err)
	ct, err := gcrypto.SealNote(recipientIVK, commitment, buf.Bytes())
	require.NoError(t, err)

	builder := &wallet.TxBuilder{}
	builder.AddOutput(&chain.EncryptedNote{Commitment: commitment, Ciphertext: ct})
	tx, err := builder.Sign(coinbaseSpendingKey)
	require.NoError(t, err)
	return tx
}

const testPassword = "correct horse battery staple"

// strangerAccountKeys is key material for a recipient outside the wallet
// under test: a real, openable address that no test account watches.
type strangerAccountKeys struct {
	address *chain.Address
	ivk     []byte
}

func strangerKeys() strangerAccountKeys {
	sk := gcrypto.DeriveSpendingKey(bytes.Repeat([]byte{0x5A}, 32))
	ivk := gcrypto.DeriveIncomingViewKey(sk)
	return strangerAccountKeys{
		address: &chain.Address{Hash: gcrypto.DerivePublicAddress(ivk)},
		ivk:     ivk,
	}
}

// testNode wires a wallet.Node against a FakeChain and a fresh on-disk
// walletdb, the same composition cmd/umbra's openNode performs against a
// real client.ChainClient.
type testNode struct {
	t      *testing.T
	tmb    *tomb.Tomb
	engine *walletdb.Engine
	chain  *FakeChain
	node   *wallet.Node
}

func newTestNode(t *testing.T) *testNode {
	return newTestNodeWithConfig(t, wallet.DefaultConfig())
}

func newTestNodeWithConfig(t *testing.T, config wallet.Config) *testNode {
	t.Helper()

	engine, err := walletdb.NewEngine(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, engine.Close())
	})

	fc := NewFakeChain()
	tmb := new(tomb.Tomb)
	node := wallet.NewNode(
		tmb,
		chain.NetworkTestnet,
		engine,
		fc,
		fc,
		fc,
		workers.New(),
		config,
	)
	require.NoError(t, node.Start())
	t.Cleanup(func() {
		tmb.Kill(nil)
		_ = tmb.Wait()
	})

	return &testNode{t: t, tmb: tmb, engine: engine, chain: fc, node: node}
}

// init initializes the node and returns its default account.
func (tn *testNode) init() *wallet.Account {
	tn.t.Helper()
	_, err := tn.node.Initialize(testPassword)
	require.NoError(tn.t, err)

	w, err := tn.node.Wallet()
	require.NoError(tn.t, err)

	accs := w.Accounts()
	require.Len(tn.t, accs, 1)
	return accs[0]
}

func (tn *testNode) wallet() *wallet.Wallet {
	tn.t.Helper()
	w, err := tn.node.Wallet()
	require.NoError(tn.t, err)
	return w
}

// sync polls the wallet's chain follower for header, which the caller has
// already connected on the fake chain, and waits until the wallet's head
// has advanced to header's sequence before returning.
func (tn *testNode) sync(t *testing.T, header *chain.Header) {
	t.Helper()
	require.NoError(t, tn.wallet().SyncChain())
	tn.waitHead(t, header.Sequence)
}

func (tn *testNode) waitHead(t *testing.T, sequence uint64) {
	t.Helper()
	w := tn.wallet()
	require.Eventually(t, func() bool {
		return w.Head() == sequence
	}, 2*time.Second, 5*time.Millisecond)
}
