package walletdb

import (
	"bytes"
	"encoding/gob"
	"io"

	"github.com/pkg/errors"
)

// encodable is satisfied by every chain-level wire type (chain.Transaction,
// chain.Note, and friends): the same WriteTo/ReadFrom pair already used to
// serialize them for the network is reused here to serialize them for
// storage, so there is exactly one encoding to keep in sync per type.
type encodable interface {
	WriteTo(w io.Writer) (int64, error)
}

type decodable interface {
	ReadFrom(r io.Reader) (int64, error)
}

func encode(v encodable) []byte {
	buf := new(bytes.Buffer)
	if _, err := v.WriteTo(buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func decode(v decodable, b []byte) error {
	_, err := v.ReadFrom(bytes.NewReader(b))
	return errors.WithStack(err)
}

// gobEncode/gobDecode cover the plain bookkeeping structs (account records,
// head pointers, balances) that have no wire-format counterpart and gain
// nothing from a hand-rolled bio layout.
func gobEncode(v interface{}) []byte {
	buf := new(bytes.Buffer)
	if err := gob.NewEncoder(buf).Encode(v); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func gobDecode(v interface{}, b []byte) error {
	return errors.WithStack(gob.NewDecoder(bytes.NewReader(b)).Decode(v))
}
