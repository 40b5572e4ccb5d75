// Package auth implements the request signing scheme of the trade interface.
// A request is signed with the secp256k1 key of its sender over
// sha256(method \n path \n timestamp \n body), the signature is DER encoded
// and sent in hex form along with the sender's compressed public key and the
// unix timestamp of the request.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	PubkeyHeader    = "X-Escrow-Pubkey"
	SignatureHeader = "X-Escrow-Signature"
	TimestampHeader = "X-Escrow-Timestamp"

	// DefaultWindow is the max distance between the timestamp of a request
	// and the time it's received.
	DefaultWindow = 30 * time.Second
	// DefaultReplayCacheSize is the max number of signed requests remembered
	// within twice the window.
	DefaultReplayCacheSize = 100000
)

var (
	ErrMissingPubkey    = errors.New("missing public key header")
	ErrMissingSignature = errors.New("missing signature header")
	ErrMissingTimestamp = errors.New("missing timestamp header")
	ErrInvalidPubkey    = errors.New("invalid public key")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrExpiredRequest   = errors.New("request timestamp out of window")
	ErrReplayedRequest  = errors.New("request already received")
	ErrTooManyRequests  = errors.New("too many signed requests, retry later")
)

// MessageHash returns the digest that is signed for a request.
func MessageHash(method, path, timestamp string, body []byte) []byte {
	h := sha256.New()
	for _, field := range []string{method, path, timestamp} {
		h.Write([]byte(field))
		h.Write([]byte{'\n'})
	}
	h.Write(body)
	return h.Sum(nil)
}

// Sign returns the hex encoded DER signature of the request and the
// timestamp to send along with it.
func Sign(
	key *btcec.PrivateKey, method, path string, body []byte,
) (signature, timestamp string) {
	timestamp = strconv.FormatInt(time.Now().Unix(), 10)
	return SignAt(key, method, path, timestamp, body), timestamp
}

// SignAt returns the hex encoded DER signature of the request with the given
// timestamp.
func SignAt(
	key *btcec.PrivateKey, method, path, timestamp string, body []byte,
) string {
	sig := ecdsa.Sign(key, MessageHash(method, path, timestamp, body))
	return hex.EncodeToString(sig.Serialize())
}

// Verify checks the signature of the request against the given base58
// encoded public key and returns it if valid. It doesn't check the timestamp,
// see Verifier for that.
func Verify(
	pubkey, signature, method, path, timestamp string, body []byte,
) (string, error) {
	if pubkey == "" {
		return "", ErrMissingPubkey
	}
	if signature == "" {
		return "", ErrMissingSignature
	}
	if timestamp == "" {
		return "", ErrMissingTimestamp
	}

	key, err := btcec.ParsePubKey(base58.Decode(pubkey))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidPubkey, err)
	}
	sigBytes, err := hex.DecodeString(signature)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}
	if !sig.Verify(MessageHash(method, path, timestamp, body), key) {
		return "", ErrInvalidSignature
	}
	return pubkey, nil
}

// Verifier accepts a signed request only if its timestamp is within the
// window and it was never accepted before. Accepted requests are remembered
// by signer and message digest for twice the window, the span a timestamp
// stays acceptable.
type Verifier struct {
	window time.Duration
	size   int
	now    func() time.Time

	lock sync.Mutex
	seen *expirable.LRU[string, struct{}]
}

func NewVerifier(window time.Duration, size int) *Verifier {
	return newVerifier(window, size, time.Now)
}

func newVerifier(
	window time.Duration, size int, now func() time.Time,
) *Verifier {
	if window <= 0 {
		window = DefaultWindow
	}
	if size <= 0 {
		size = DefaultReplayCacheSize
	}
	// The lru never evicts by size since new requests are rejected once
	// full, an evicted entry could be replayed.
	return &Verifier{
		window: window,
		size:   size,
		now:    now,
		seen:   expirable.NewLRU[string, struct{}](0, nil, 2*window),
	}
}

func (v *Verifier) Verify(
	pubkey, signature, method, path, timestamp string, body []byte,
) (string, error) {
	identity, err := Verify(pubkey, signature, method, path, timestamp, body)
	if err != nil {
		return "", err
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidTimestamp, err)
	}
	skew := v.now().Sub(time.Unix(ts, 0))
	if skew > v.window || skew < -v.window {
		return "", ErrExpiredRequest
	}

	key := identity + ":" + hex.EncodeToString(
		MessageHash(method, path, timestamp, body),
	)

	v.lock.Lock()
	defer v.lock.Unlock()

	if v.seen.Contains(key) {
		return "", ErrReplayedRequest
	}
	if v.seen.Len() >= v.size {
		return "", ErrTooManyRequests
	}
	v.seen.Add(key, struct{}{})
	return identity, nil
}

// Identity returns the base58 encoded compressed public key of the given
// private key.
func Identity(key *btcec.PrivateKey) string {
	return base58.Encode(key.PubKey().SerializeCompressed())
}
