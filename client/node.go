package client

import (
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
	"github.com/umbranet/umbra/ghttp"
	"github.com/ybbus/jsonrpc/v2"
)

// ChainClient talks to a full node over JSON-RPC. It implements the
// wallet package's Chain, MemPool, and Verifier interfaces; see chain.go.
type ChainClient struct {
	url       string
	apiKey    string
	rpcClient jsonrpc.RPCClient
}

func NewChainClient(url string, apiKey string) *ChainClient {
	var rpcClient jsonrpc.RPCClient
	if apiKey == "" {
		rpcClient = jsonrpc.NewClient(url)
	} else {
		rpcClient = jsonrpc.NewClientWithOpts(url, &jsonrpc.RPCClientOpts{
			CustomHeaders: map[string]string{
				"Authorization": "Basic " + base64.StdEncoding.EncodeToString([]byte("x:"+apiKey)),
			},
		})
	}

	return &ChainClient{
		url:       url,
		apiKey:    apiKey,
		rpcClient: rpcClient,
	}
}

// HealthRes is the full node's REST health endpoint response. Unlike
// every other call here it is served outside the JSON-RPC surface, so a
// failing RPC layer can still be told apart from an unreachable process.
type HealthRes struct {
	Status string `json:"status"`
}

// Health probes the node's /health endpoint over plain REST. A nil error
// means the process is up and answering HTTP, nothing more.
func (c *ChainClient) Health() (*HealthRes, error) {
	res := new(HealthRes)
	url := strings.TrimSuffix(c.url, "/") + "/health"
	var opts []ghttp.RequestOption
	if c.apiKey != "" {
		opts = append(opts, ghttp.WithBasicAuth("x", c.apiKey))
	}
	if err := ghttp.DefaultClient.DoGetJSON(url, res, opts...); err != nil {
		return nil, errors.Wrap(err, "error checking node health")
	}
	return res, nil
}

func (c *ChainClient) GetInfo() (*InfoRes, error) {
	res := new(InfoRes)
	err := c.rpcClient.CallFor(res, "getinfo")
	return res, errors.Wrap(err, "error getting node info")
}

// GetHeader fetches the raw wire encoding of the header at sequence.
func (c *ChainClient) GetHeader(sequence uint64) ([]byte, error) {
	var headerHex string
	err := c.rpcClient.CallFor(&headerHex, "getheaderbysequence", sequence)
	if err != nil {
		return nil, errors.Wrap(err, "error getting header")
	}
	return hex.DecodeString(headerHex)
}

// GetHeadersBatch fetches count consecutive headers starting at start in
// a single round trip, preserving request order in the response slice.
func (c *ChainClient) GetHeadersBatch(start, count uint64) ([]*BatchHeaderRes, error) {
	var reqs jsonrpc.RPCRequests
	for i := uint64(0); i < count; i++ {
		reqs = append(reqs, &jsonrpc.RPCRequest{
			Method: "getheaderbysequence",
			Params: jsonrpc.Params(start + i),
			ID:     int(i),
		})
	}
	batchRes, err := c.rpcClient.CallBatch(reqs)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	headersRes := make([]*BatchHeaderRes, len(reqs))
	for _, hRes := range batchRes {
		if hRes.Error != nil {
			headersRes[hRes.ID] = &BatchHeaderRes{Error: hRes.Error}
			continue
		}

		headerHex, ok := hRes.Result.(string)
		if !ok {
			headersRes[hRes.ID] = &BatchHeaderRes{Error: errors.New("unexpected header response type")}
			continue
		}
		data, err := hex.DecodeString(headerHex)
		if err != nil {
			headersRes[hRes.ID] = &BatchHeaderRes{Error: err}
			continue
		}
		headersRes[hRes.ID] = &BatchHeaderRes{Data: data}
	}
	return headersRes, nil
}

func (c *ChainClient) SubmitTransaction(raw []byte) (string, error) {
	var hash string
	err := c.rpcClient.CallFor(&hash, "sendrawtransaction", hex.EncodeToString(raw))
	return hash, errors.Wrap(err, "error submitting transaction")
}

func (c *ChainClient) GetMempool() ([]string, error) {
	var entries []string
	err := c.rpcClient.CallFor(&entries, "getrawmempool")
	return entries, errors.Wrap(err, "error getting raw mempool")
}

func (c *ChainClient) EstimateFeeRate(blocks int) (uint64, error) {
	var feeRate float64
	_, err := c.rpcClient.Call("estimatesmartfee", blocks)
	return uint64(feeRate * 1e6), errors.Wrap(err, "error estimating fee rate")
}
