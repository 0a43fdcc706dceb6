// Package relay talks to flashbots style bundle relays: eth_callBundle to simulate and eth_sendBundle to submit.
package relay

import (
	"bytes"
	"crypto/ecdsa"
	"fmt"
	"io"
	"net/http"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const SignatureHeader = "X-Flashbots-Signature"

// SignPayload returns the X-Flashbots-Signature value for a request body: the signer address and the
// personal_sign signature of the hex encoded keccak256 of the body
func SignPayload(body []byte, key *ecdsa.PrivateKey) (string, error) {
	hash := hexutil.Encode(crypto.Keccak256(body))
	sig, err := crypto.Sign(accounts.TextHash([]byte(hash)), key)
	if err != nil {
		return "", err
	}
	if sig[crypto.RecoveryIDOffset] < 27 {
		sig[crypto.RecoveryIDOffset] += 27
	}
	return fmt.Sprintf("%s:%s", crypto.PubkeyToAddress(key.PublicKey).Hex(), hexutil.Encode(sig)), nil
}

// signingTransport signs every outgoing request body with the relay auth key
type signingTransport struct {
	key  *ecdsa.PrivateKey
	base http.RoundTripper
}

func (t *signingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, err
		}
	}

	signature, err := SignPayload(body, t.key)
	if err != nil {
		return nil, err
	}

	signed := req.Clone(req.Context())
	signed.Body = io.NopCloser(bytes.NewReader(body))
	signed.ContentLength = int64(len(body))
	signed.Header.Set(SignatureHeader, signature)
	return t.base.RoundTrip(signed)
}
