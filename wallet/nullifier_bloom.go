package wallet

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/umbranet/umbra/gcrypto"
	"github.com/willf/bloom"
)

// https://hur.st/bloomfilter/?n=1M&p=1.0E-7&m=&k=
const (
	NullifierBloomM = 3354775
	NullifierBloomK = 23
)

// NullifierBloom is the wallet's probabilistic membership filter over
// every spent nullifier revealed by a block it has applied. The chain's
// nullifier set only ever grows through blocks, so up to the wallet's
// cursor a filter miss is a definitive "not spent" — the spend selector
// uses that to skip the authoritative NullifierSetContains lookup for
// the overwhelming majority of candidate notes, paying the remote round
// trip only on filter hits. False positives cost one redundant lookup;
// removals are never needed because a reorged-out spend just leaves a
// harmless false positive behind.
type NullifierBloom struct {
	filter *bloom.BloomFilter
}

func NewNullifierBloom() *NullifierBloom {
	return &NullifierBloom{filter: bloom.New(NullifierBloomM, NullifierBloomK)}
}

func NullifierBloomFromBytes(buf []byte) (*NullifierBloom, error) {
	r := bytes.NewReader(buf)
	filter := new(bloom.BloomFilter)
	if _, err := filter.ReadFrom(r); err != nil {
		return nil, errors.Wrap(err, "error unmarshaling nullifier bloom filter")
	}
	return &NullifierBloom{filter: filter}, nil
}

func (n *NullifierBloom) Add(nullifier gcrypto.Hash) {
	n.filter.Add(nullifier)
}

func (n *NullifierBloom) Test(nullifier gcrypto.Hash) bool {
	return n.filter.Test(nullifier)
}

func (n *NullifierBloom) Bytes() []byte {
	buf := new(bytes.Buffer)
	if _, err := n.filter.WriteTo(buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func (n *NullifierBloom) Copy() *NullifierBloom {
	return &NullifierBloom{filter: n.filter.Copy()}
}
