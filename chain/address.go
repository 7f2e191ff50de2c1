package chain

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"io"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/pkg/errors"
	"github.com/umbranet/umbra/bio"
)

// PublicAddressLen is the size, in bytes, of the hash an Address wraps:
// blake2b-160 of the account's incoming view key.
const PublicAddressLen = 20

// Address is a shielded account's public address: the value a sender
// needs in order to construct a note that only the recipient's incoming
// view key can decrypt. It carries no spending authority.
type Address struct {
	Hash []byte
}

func NewAddress(hash []byte) *Address {
	return &Address{Hash: hash}
}

func NewAddressFromBech32(bech string) (*Address, error) {
	_, data, err := bech32.Decode(bech)
	if err != nil {
		return nil, errors.Wrap(err, "error decoding bech32 address")
	}
	hash, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, errors.Wrap(err, "error converting bits")
	}
	return &Address{Hash: hash}, nil
}

func MustAddressFromBech32(bech string) *Address {
	addr, err := NewAddressFromBech32(bech)
	if err != nil {
		panic(err)
	}
	return addr
}

func (a *Address) Size() int {
	return len(a.Hash)
}

func (a *Address) String(network *Network) string {
	data, err := bech32.ConvertBits(a.Hash, 8, 5, true)
	if err != nil {
		panic(err)
	}
	bech, err := bech32.Encode(network.AddressHRP, data)
	if err != nil {
		panic(err)
	}
	return bech
}

func (a *Address) Equal(b *Address) bool {
	if b == nil {
		return false
	}
	return bytes.Equal(a.Hash, b.Hash)
}

func (a *Address) WriteTo(w io.Writer) (int64, error) {
	g := bio.NewGuardWriter(w)
	bio.WriteFixedBytes(g, a.Hash, PublicAddressLen)
	return g.N, errors.Wrap(g.Err, "error writing address")
}

func (a *Address) ReadFrom(r io.Reader) (int64, error) {
	g := bio.NewGuardReader(r)
	hash, _ := bio.ReadFixedBytes(g, PublicAddressLen)
	if g.Err != nil {
		return g.N, errors.Wrap(g.Err, "error reading address")
	}
	a.Hash = hash
	return g.N, nil
}

func (a *Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(a.Hash))
}

func (a *Address) UnmarshalJSON(b []byte) error {
	var h string
	if err := json.Unmarshal(b, &h); err != nil {
		return errors.WithStack(err)
	}
	hash, err := hex.DecodeString(h)
	if err != nil {
		return errors.WithStack(err)
	}
	a.Hash = hash
	return nil
}
