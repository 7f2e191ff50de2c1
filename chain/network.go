package chain

import (
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
)

// Network carries the chain parameters that differ between the production
// chain and its test networks: the wire magic, the address HRP used for
// bech32-encoded public addresses, and the coinbase maturity, in blocks,
// for miner's notes. The wallet's spend selector does not read
// CoinbaseMaturity.
type Network struct {
	Net              wire.BitcoinNet
	Name             string
	RPCPort          int
	AddressHRP       string
	CoinbaseMaturity int
	KeyPrefix        *NetworkKeyPrefix

	chainParams *chaincfg.Params
}

type NetworkKeyPrefix struct {
	Private uint8
	XPub    [4]byte
	XPriv   [4]byte
}

var NetworkMain = &Network{
	Net:              0x756d6272, // "umbr"
	Name:             "main",
	RPCPort:          8021,
	AddressHRP:       "um",
	CoinbaseMaturity: 100,
	KeyPrefix: &NetworkKeyPrefix{
		Private: 0x80,
		XPub:    [4]byte{0x04, 0x88, 0xb2, 0x1e},
		XPriv:   [4]byte{0x04, 0x88, 0xad, 0xe4},
	},
}

var NetworkTestnet = &Network{
	Net:              0x756d6274, // "umbt"
	Name:             "testnet",
	RPCPort:          18021,
	AddressHRP:       "umtest",
	CoinbaseMaturity: 4,
	KeyPrefix: &NetworkKeyPrefix{
		Private: 0x5a,
		XPub:    [4]byte{0xea, 0xb4, 0xfa, 0x05},
		XPriv:   [4]byte{0xea, 0xb4, 0x04, 0xc7},
	},
}

func NetworkFromName(name string) (*Network, error) {
	switch name {
	case NetworkMain.Name:
		return NetworkMain, nil
	case NetworkTestnet.Name:
		return NetworkTestnet, nil
	default:
		return nil, errors.New("invalid network")
	}
}

func (n *Network) ChainParams() *chaincfg.Params {
	if n.chainParams != nil {
		return n.chainParams
	}

	params := &chaincfg.Params{
		Net:            n.Net,
		Name:           n.Name + "-umbra",
		PrivateKeyID:   n.KeyPrefix.Private,
		HDPrivateKeyID: n.KeyPrefix.XPriv,
		HDPublicKeyID:  n.KeyPrefix.XPub,
	}
	n.chainParams = params

	return n.chainParams
}

func init() {
	chaincfg.Register(NetworkMain.ChainParams())
	chaincfg.Register(NetworkTestnet.ChainParams())
}
