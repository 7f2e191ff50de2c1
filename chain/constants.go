package chain

const (
	HashLen      = 32
	AssetIDLen   = 32
	MemoLen      = 32
	NullifierLen = 32

	// GenesisSequence is the sequence number of the first block of any chain.
	GenesisSequence = 1

	SignMessageMagic = "umbra signed message:\n"
)

var (
	ZeroHash = make([]byte, HashLen, HashLen)

	// NativeAssetID is the chain's always-present, fee-denominating asset.
	NativeAssetID = make([]byte, AssetIDLen, AssetIDLen)
)