package connectors

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strconv"
)

// Robinhood Crypto API request signing:
//  1) message = apiKey + timestamp + path + method + body (no delimiter)
//  2) Ed25519 sign over the raw UTF-8 bytes
//  3) base64-encode the 64-byte signature
//
// The private key is derived from a base64-encoded 32-byte seed. The same
// timestamp must be used for the signed message and the x-timestamp header,
// otherwise the server cannot verify the signature.

const (
	headerAPIKey    = "x-api-key"
	headerSignature = "x-signature"
	headerTimestamp = "x-timestamp"
)

type Signer struct {
	apiKey     string
	privateKey ed25519.PrivateKey
}

// NewSigner builds a Signer from the API key identifier and the
// base64-encoded Ed25519 seed, as provided by the Robinhood credentials page.
func NewSigner(apiKey, privateKeySeedB64 string) (*Signer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	seed, err := base64.StdEncoding.DecodeString(privateKeySeedB64)
	if err != nil {
		return nil, fmt.Errorf("base64 decode private key seed failed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("private key seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}

	return &Signer{
		apiKey:     apiKey,
		privateKey: ed25519.NewKeyFromSeed(seed),
	}, nil
}

// Sign returns the base64 signature over apiKey+timestamp+path+method+body.
func (s *Signer) Sign(method, path, body string, timestamp int64) string {
	message := s.apiKey + strconv.FormatInt(timestamp, 10) + path + method + body
	sig := ed25519.Sign(s.privateKey, []byte(message))
	return base64.StdEncoding.EncodeToString(sig)
}

// Headers returns the three authentication headers for one request. The body
// must be the exact serialized payload bytes that will be transmitted.
func (s *Signer) Headers(method, path, body string, timestamp int64) map[string]string {
	return map[string]string{
		headerAPIKey:    s.apiKey,
		headerSignature: s.Sign(method, path, body, timestamp),
		headerTimestamp: strconv.FormatInt(timestamp, 10),
	}
}
