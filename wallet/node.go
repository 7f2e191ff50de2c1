package wallet

import (
	"encoding/json"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"
	"github.com/umbranet/umbra/chain"
	"github.com/umbranet/umbra/walletdb"
	"gopkg.in/tomb.v2"
)

// ErrAlreadyInitialized is returned by Initialize/ImportMnemonic when the
// node already has a master seed on disk.
var ErrAlreadyInitialized = errors.New("wallet already initialized")

// ErrNotInitialized is returned by any operation that needs a master seed
// before one has been created or imported.
var ErrNotInitialized = errors.New("wallet not initialized")

// Node is the process-level composition root: it owns the walletdb engine,
// the chain client, and the single Wallet an umbra process hosts. Earlier
// versions of this package hosted a map of named wallets per process; a
// process now hosts exactly one, with as many accounts inside it as the
// operator wants.
type Node struct {
	tmb      *tomb.Tomb
	network  *chain.Network
	engine   *walletdb.Engine
	chain    Chain
	mempool  MemPool
	verifier Verifier
	workers  WorkerPool
	config   Config

	mtx    sync.Mutex
	locker *KeyLocker
	wallet *Wallet
}

type NodeStatus struct {
	Status      string `json:"status"`
	Initialized bool   `json:"initialized"`
	Locked      bool   `json:"locked"`
	Sequence    uint64 `json:"sequence"`
	MemUsage    uint64 `json:"mem_usage"`
}

func NewNode(
	tmb *tomb.Tomb,
	network *chain.Network,
	engine *walletdb.Engine,
	chn Chain,
	mempool MemPool,
	verifier Verifier,
	workers WorkerPool,
	config Config,
) *Node {
	return &Node{
		tmb:      tmb,
		network:  network,
		engine:   engine,
		chain:    chn,
		mempool:  mempool,
		verifier: verifier,
		workers:  workers,
		config:   config,
	}
}

func (n *Node) Status() (*NodeStatus, error) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	n.mtx.Lock()
	initialized := n.locker != nil
	locked := initialized && n.locker.IsLocked()
	n.mtx.Unlock()

	status := &NodeStatus{
		Status:      "OK",
		Initialized: initialized,
		Locked:      locked,
		MemUsage:    memStats.HeapAlloc,
	}

	if head, err := n.chain.Head(); err == nil && head != nil {
		status.Sequence = head.Sequence
	}
	return status, nil
}

// Start loads an existing master seed, if one has been persisted, and
// brings its Wallet up. A freshly created node with no seed yet starts
// with nothing running until Initialize or ImportMnemonic is called.
func (n *Node) Start() error {
	var encoded []byte
	err := n.engine.View(func(q walletdb.Querier) error {
		b, err := walletdb.GetEncryptedSeed(q)
		encoded = b
		return err
	})
	if err != nil {
		return errors.WithStack(err)
	}
	if encoded == nil {
		return nil
	}

	box, err := UnmarshalSecretBox(encoded)
	if err != nil {
		return errors.Wrap(err, "error unmarshaling wallet seed")
	}

	n.mtx.Lock()
	n.locker = NewKeyLocker(box, n.network)
	n.wallet = NewWallet(n.tmb, n.network, n.engine, n.chain, n.mempool, n.verifier, n.workers, n.locker, n.config)
	wallet := n.wallet
	n.mtx.Unlock()

	return wallet.Start()
}

// Initialize generates a brand new master seed, encrypts it with password,
// persists it, and starts the wallet. It returns the mnemonic backing the
// seed, which is shown to the operator exactly once.
func (n *Node) Initialize(password string) (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", errors.Wrap(err, "error generating entropy")
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", errors.Wrap(err, "error generating mnemonic")
	}

	if err := n.importMnemonic(password, mnemonic); err != nil {
		return "", err
	}
	return mnemonic, nil
}

// ImportMnemonic replaces Initialize when the operator already holds a
// mnemonic from another wallet instance.
func (n *Node) ImportMnemonic(password, mnemonic string) error {
	if !bip39.IsMnemonicValid(mnemonic) {
		return errors.New("invalid mnemonic")
	}
	return n.importMnemonic(password, mnemonic)
}

func (n *Node) importMnemonic(password, mnemonic string) error {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	if n.locker != nil {
		return ErrAlreadyInitialized
	}

	ek := chain.NewMasterExtendedKeyFromMnemonic(mnemonic, "", n.network)
	box, err := EncryptDefault([]byte(ek.PrivateString()), password)
	if err != nil {
		return errors.Wrap(err, "error encrypting master seed")
	}
	encoded, err := json.Marshal(box)
	if err != nil {
		return errors.Wrap(err, "error marshaling master seed")
	}

	if err := n.engine.Transaction(func(tx walletdb.Transactor) error {
		return walletdb.PutEncryptedSeed(tx, encoded)
	}); err != nil {
		return errors.Wrap(err, "error persisting master seed")
	}

	n.locker = NewKeyLocker(box, n.network)
	if err := n.locker.Unlock(password); err != nil {
		return err
	}

	n.wallet = NewWallet(n.tmb, n.network, n.engine, n.chain, n.mempool, n.verifier, n.workers, n.locker, n.config)
	if err := n.wallet.Start(); err != nil {
		return errors.Wrap(err, "error starting wallet")
	}
	if _, err := n.wallet.CreateAccount("default"); err != nil {
		return errors.Wrap(err, "error creating default account")
	}
	return nil
}

func (n *Node) Unlock(password string) error {
	n.mtx.Lock()
	locker := n.locker
	wallet := n.wallet
	n.mtx.Unlock()
	if locker == nil {
		return ErrNotInitialized
	}
	if err := locker.Unlock(password); err != nil {
		return err
	}
	return wallet.UnlockKeys(password)
}

func (n *Node) Lock() error {
	n.mtx.Lock()
	locker := n.locker
	n.mtx.Unlock()
	if locker == nil {
		return ErrNotInitialized
	}
	locker.Lock()
	return nil
}

func (n *Node) Wallet() (*Wallet, error) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	if n.wallet == nil {
		return nil, ErrNotInitialized
	}
	return n.wallet, nil
}
