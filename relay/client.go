package relay

import (
	"context"
	"crypto/ecdsa"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ybbus/jsonrpc/v3"
)

const defaultRequestTimeout = 5 * time.Second

// Client is a single relay endpoint, every request is signed with the auth key
type Client struct {
	name   string
	url    string
	client jsonrpc.RPCClient
}

func NewClient(name, url string, authKey *ecdsa.PrivateKey) *Client {
	httpClient := &http.Client{
		Timeout:   defaultRequestTimeout,
		Transport: &signingTransport{key: authKey, base: http.DefaultTransport},
	}
	return &Client{
		name: name,
		url:  url,
		client: jsonrpc.NewClientWithOpts(url, &jsonrpc.RPCClientOpts{
			HTTPClient:         httpClient,
			AllowUnknownFields: true,
		}),
	}
}

func (c *Client) String() string {
	return c.name
}

// CallBundle simulates txs on top of the latest state as if they were included in targetBlock
func (c *Client) CallBundle(ctx context.Context, txs []hexutil.Bytes, targetBlock uint64) (*CallBundleResponse, error) {
	args := CallBundleArgs{
		Txs:              txs,
		BlockNumber:      hexutil.Uint64(targetBlock),
		StateBlockNumber: "latest",
	}
	var res CallBundleResponse
	if err := c.client.CallFor(ctx, &res, "eth_callBundle", []CallBundleArgs{args}); err != nil {
		return nil, err
	}
	return &res, nil
}

// SendBundle submits txs for inclusion in targetBlock only
func (c *Client) SendBundle(ctx context.Context, txs []hexutil.Bytes, targetBlock uint64) (*SendBundleResponse, error) {
	args := SendBundleArgs{
		Txs:         txs,
		BlockNumber: hexutil.Uint64(targetBlock),
	}
	var res SendBundleResponse
	if err := c.client.CallFor(ctx, &res, "eth_sendBundle", []SendBundleArgs{args}); err != nil {
		return nil, err
	}
	return &res, nil
}
