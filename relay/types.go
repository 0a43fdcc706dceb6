package relay

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type CallBundleArgs struct {
	Txs              []hexutil.Bytes `json:"txs"`
	BlockNumber      hexutil.Uint64  `json:"blockNumber"`
	StateBlockNumber string          `json:"stateBlockNumber"`
	Timestamp        *uint64         `json:"timestamp,omitempty"`
}

type CallBundleResult struct {
	TxHash            common.Hash    `json:"txHash"`
	GasUsed           uint64         `json:"gasUsed"`
	GasPrice          string         `json:"gasPrice,omitempty"`
	GasFees           string         `json:"gasFees,omitempty"`
	CoinbaseDiff      string         `json:"coinbaseDiff,omitempty"`
	EthSentToCoinbase string         `json:"ethSentToCoinbase,omitempty"`
	FromAddress       common.Address `json:"fromAddress"`
	ToAddress         common.Address `json:"toAddress"`
	Value             string         `json:"value,omitempty"`
	Error             string         `json:"error,omitempty"`
	Revert            string         `json:"revert,omitempty"`
}

type CallBundleResponse struct {
	BundleGasPrice    string             `json:"bundleGasPrice,omitempty"`
	BundleHash        common.Hash        `json:"bundleHash"`
	CoinbaseDiff      string             `json:"coinbaseDiff,omitempty"`
	EthSentToCoinbase string             `json:"ethSentToCoinbase,omitempty"`
	GasFees           string             `json:"gasFees,omitempty"`
	Results           []CallBundleResult `json:"results"`
	StateBlockNumber  uint64             `json:"stateBlockNumber"`
	TotalGasUsed      uint64             `json:"totalGasUsed"`
}

type SendBundleArgs struct {
	Txs         []hexutil.Bytes `json:"txs"`
	BlockNumber hexutil.Uint64  `json:"blockNumber"`
}

type SendBundleResponse struct {
	BundleHash common.Hash `json:"bundleHash"`
}
