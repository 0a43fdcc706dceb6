package relay

import (
	"errors"
	"fmt"
)

var ErrSimulationFailed = errors.New("bundle simulation failed")

// CheckSimulation accepts a simulation only if every one of the expected transactions executed without error or revert
func CheckSimulation(res *CallBundleResponse, expectedTxs int) error {
	if res == nil {
		return fmt.Errorf("%w: empty response", ErrSimulationFailed)
	}
	if len(res.Results) != expectedTxs {
		return fmt.Errorf("%w: got %d results for %d txs", ErrSimulationFailed, len(res.Results), expectedTxs)
	}
	for i, r := range res.Results {
		if r.Error != "" {
			return fmt.Errorf("%w: tx %d (%s) error: %s", ErrSimulationFailed, i, r.TxHash.Hex(), r.Error)
		}
		if r.Revert != "" {
			return fmt.Errorf("%w: tx %d (%s) reverted: %s", ErrSimulationFailed, i, r.TxHash.Hex(), r.Revert)
		}
	}
	return nil
}
