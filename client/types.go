package client

import "github.com/umbranet/umbra/gjson"

// InfoRes mirrors a node's getinfo response: the fields the chain
// follower needs to detect new blocks and reorgs.
type InfoRes struct {
	Version    string           `json:"version"`
	Sequence   uint64           `json:"sequence"`
	TipHash    gjson.ByteString `json:"tipHash"`
	TreeSize   uint64           `json:"noteTreeSize"`
	Connections int             `json:"connections"`
}

// BatchHeaderRes is one element of a batched getheaderbysequence call.
type BatchHeaderRes struct {
	Data  []byte
	Error error
}
