package client

import (
	"bytes"
	"encoding/hex"

	"github.com/pkg/errors"
	"github.com/umbranet/umbra/chain"
	"github.com/umbranet/umbra/gcrypto"
	"github.com/umbranet/umbra/wallet"
)

// blockTxRes is one element of a getblocktransactions response: a raw
// transaction plus the note commitment tree position its first output
// landed at.
type blockTxRes struct {
	TxHex            string `json:"tx"`
	InitialNoteIndex uint64 `json:"initialNoteIndex"`
}

func decodeHeader(headerHex string) (*chain.Header, error) {
	raw, err := hex.DecodeString(headerHex)
	if err != nil {
		return nil, errors.Wrap(err, "error decoding header hex")
	}
	h := new(chain.Header)
	if _, err := h.ReadFrom(bytes.NewReader(raw)); err != nil {
		return nil, errors.Wrap(err, "error decoding header")
	}
	return h, nil
}

// Header fetches the header identified by hash.
func (c *ChainClient) Header(hash gcrypto.Hash) (*chain.Header, error) {
	var headerHex string
	if err := c.rpcClient.CallFor(&headerHex, "getheaderbyhash", hash.String()); err != nil {
		return nil, errors.Wrap(err, "error getting header by hash")
	}
	return decodeHeader(headerHex)
}

// BlockTransactions fetches every transaction connected in the block
// identified by header, each paired with the note commitment tree position
// its first output occupies.
func (c *ChainClient) BlockTransactions(header *chain.Header) ([]*wallet.BlockTransaction, error) {
	var res []*blockTxRes
	if err := c.rpcClient.CallFor(&res, "getblocktransactions", header.HashHex()); err != nil {
		return nil, errors.Wrap(err, "error getting block transactions")
	}

	out := make([]*wallet.BlockTransaction, len(res))
	for i, r := range res {
		raw, err := hex.DecodeString(r.TxHex)
		if err != nil {
			return nil, errors.Wrap(err, "error decoding transaction hex")
		}
		tx := new(chain.Transaction)
		if _, err := tx.ReadFrom(bytes.NewReader(raw)); err != nil {
			return nil, errors.Wrap(err, "error decoding transaction")
		}
		out[i] = &wallet.BlockTransaction{Tx: tx, InitialNoteIndex: r.InitialNoteIndex}
	}
	return out, nil
}

// IterateHeaders walks headers starting at begin (or, if begin is the zero
// hash, genesis for an ascending walk and the current tip for a
// descending one) toward end (or the current tip, if end is the zero
// hash), in ascending or descending sequence order, visiting each header
// until visit returns false or the walk runs out of headers.
//
// A descending walk follows PreviousBlockHash directly, which every
// header carries. An ascending walk has no equivalent forward pointer, so
// it resolves begin's sequence once and fetches each subsequent header by
// sequence number instead.
func (c *ChainClient) IterateHeaders(begin, end gcrypto.Hash, reverse, inclusive bool, visit func(*chain.Header) (bool, error)) error {
	var cursor *chain.Header
	var err error
	if begin.IsZero() {
		if reverse {
			cursor, err = c.Head()
		} else {
			cursor, err = c.Genesis()
		}
	} else {
		cursor, err = c.Header(begin)
	}
	if err != nil {
		return err
	}

	first := true
	for cursor != nil {
		if !inclusive && first {
			first = false
		} else {
			cont, verr := visit(cursor)
			if verr != nil {
				return verr
			}
			if !cont {
				return nil
			}
		}
		first = false

		if !end.IsZero() && cursor.Hash().Equal(end) {
			return nil
		}

		if reverse {
			if cursor.IsGenesis() {
				return nil
			}
			cursor, err = c.Header(cursor.PreviousBlockHash)
		} else {
			raw, gerr := c.GetHeader(cursor.Sequence + 1)
			if gerr != nil {
				return nil // ran off the end of the known chain
			}
			h := new(chain.Header)
			if _, derr := h.ReadFrom(bytes.NewReader(raw)); derr != nil {
				return errors.Wrap(derr, "error decoding header")
			}
			cursor = h
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *ChainClient) NoteWitness(position uint64) (*chain.Witness, error) {
	var witnessHex string
	if err := c.rpcClient.CallFor(&witnessHex, "getnotewitness", position); err != nil {
		return nil, errors.Wrap(err, "error getting note witness")
	}
	raw, err := hex.DecodeString(witnessHex)
	if err != nil {
		return nil, errors.Wrap(err, "error decoding witness hex")
	}
	w := new(chain.Witness)
	if _, err := w.ReadFrom(bytes.NewReader(raw)); err != nil {
		return nil, errors.Wrap(err, "error decoding witness")
	}
	return w, nil
}

func (c *ChainClient) NullifierSetContains(nullifier gcrypto.Hash) (bool, error) {
	var onChain bool
	err := c.rpcClient.CallFor(&onChain, "checknullifier", nullifier.String())
	return onChain, errors.Wrap(err, "error checking nullifier")
}

func (c *ChainClient) GetAssetByID(assetID gcrypto.Hash) (*chain.Mint, error) {
	var mintHex string
	if err := c.rpcClient.CallFor(&mintHex, "getasset", assetID.String()); err != nil {
		return nil, errors.Wrap(err, "error getting asset")
	}
	if mintHex == "" {
		return nil, nil
	}
	raw, err := hex.DecodeString(mintHex)
	if err != nil {
		return nil, errors.Wrap(err, "error decoding mint hex")
	}
	m := new(chain.Mint)
	if _, err := m.ReadFrom(bytes.NewReader(raw)); err != nil {
		return nil, errors.Wrap(err, "error decoding mint")
	}
	return m, nil
}

func (c *ChainClient) Head() (*chain.Header, error) {
	var headerHex string
	if err := c.rpcClient.CallFor(&headerHex, "gethead"); err != nil {
		return nil, errors.Wrap(err, "error getting chain head")
	}
	return decodeHeader(headerHex)
}

func (c *ChainClient) Genesis() (*chain.Header, error) {
	var headerHex string
	if err := c.rpcClient.CallFor(&headerHex, "getgenesis"); err != nil {
		return nil, errors.Wrap(err, "error getting genesis header")
	}
	return decodeHeader(headerHex)
}

func (c *ChainClient) Synced() (bool, error) {
	var synced bool
	err := c.rpcClient.CallFor(&synced, "getsynced")
	return synced, errors.Wrap(err, "error getting sync status")
}

func (c *ChainClient) HasBlock(hash gcrypto.Hash) (bool, error) {
	var has bool
	err := c.rpcClient.CallFor(&has, "hasblock", hash.String())
	return has, errors.Wrap(err, "error checking block presence")
}

// Accept implements wallet.MemPool by submitting the transaction's wire
// encoding to the node's mempool.
func (c *ChainClient) Accept(tx *chain.Transaction) error {
	var buf bytes.Buffer
	if _, err := tx.WriteTo(&buf); err != nil {
		return errors.Wrap(err, "error encoding transaction")
	}
	_, err := c.SubmitTransaction(buf.Bytes())
	return err
}

// VerifyCreatedTransaction asks the node to validate a freshly built
// transaction before it is persisted as pending.
func (c *ChainClient) VerifyCreatedTransaction(tx *chain.Transaction) error {
	return c.verify("verifycreatedtransaction", tx)
}

// VerifyTransactionAdd asks the node to re-validate a transaction being
// rebroadcast, which also rejects it if one of its nullifiers has since
// confirmed from elsewhere.
func (c *ChainClient) VerifyTransactionAdd(tx *chain.Transaction) error {
	return c.verify("verifytransactionadd", tx)
}

func (c *ChainClient) verify(method string, tx *chain.Transaction) error {
	var buf bytes.Buffer
	if _, err := tx.WriteTo(&buf); err != nil {
		return errors.Wrap(err, "error encoding transaction")
	}
	var reason string
	if err := c.rpcClient.CallFor(&reason, method, hex.EncodeToString(buf.Bytes())); err != nil {
		return errors.Wrap(err, "error verifying transaction")
	}
	if reason != "" {
		return errors.New(reason)
	}
	return nil
}
