package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
)

const (
	// AddressLength is the byte length of any derived address or asset mint.
	AddressLength = 32
	// IdentityLength is the byte length of a compressed secp256k1 public key.
	IdentityLength = 33
)

// Domain separation tags for address derivation.
var (
	tagOffer   = []byte("offer")
	tagVault   = []byte("vault")
	tagHolding = []byte("holding")
	tagAsset   = []byte("asset")
)

// DeriveOfferAddress returns the address of the offer record identified by
// the maker and the maker-chosen numeric id, along with the bump nonce used to
// push the address off the curve.
func DeriveOfferAddress(maker string, id uint64) (string, uint8, error) {
	makerKey, err := decodeIdentity(maker)
	if err != nil {
		return "", 0, err
	}
	idBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(idBytes, id)

	return deriveAddress(tagOffer, makerKey, idBytes)
}

// DeriveVaultAddress returns the custody address tied to exactly one offer and
// the asset it escrows.
func DeriveVaultAddress(offerAddress, asset string) (string, uint8, error) {
	offerKey, err := decodeAddress(offerAddress)
	if err != nil {
		return "", 0, err
	}
	assetKey, err := decodeAddress(asset)
	if err != nil {
		return "", 0, err
	}

	return deriveAddress(tagVault, offerKey, assetKey)
}

// DeriveHoldingAddress returns the address of the account holding the given
// asset on behalf of owner.
func DeriveHoldingAddress(owner, asset string) (string, error) {
	ownerKey, err := decodeIdentity(owner)
	if err != nil {
		return "", err
	}
	assetKey, err := decodeAddress(asset)
	if err != nil {
		return "", err
	}

	addr, _, err := deriveAddress(tagHolding, ownerKey, assetKey)
	return addr, err
}

// DeriveAssetAddress returns the mint address of an asset registered by
// creator under the given symbol.
func DeriveAssetAddress(creator, symbol string) (string, error) {
	creatorKey, err := decodeIdentity(creator)
	if err != nil {
		return "", err
	}

	addr, _, err := deriveAddress(tagAsset, creatorKey, []byte(symbol))
	return addr, err
}

// IsValidAddress returns whether s is a base58 encoded 32-byte address.
func IsValidAddress(s string) bool {
	_, err := decodeAddress(s)
	return err == nil
}

// IsValidIdentity returns whether s is a base58 encoded compressed public key.
func IsValidIdentity(s string) bool {
	_, err := decodeIdentity(s)
	return err == nil
}

// IdentityFromPubKey returns the textual identity of the given public key.
func IdentityFromPubKey(key *btcec.PublicKey) string {
	return base58.Encode(key.SerializeCompressed())
}

// ParseIdentity returns the public key behind the given identity.
func ParseIdentity(identity string) (*btcec.PublicKey, error) {
	buf, err := decodeIdentity(identity)
	if err != nil {
		return nil, err
	}
	return btcec.ParsePubKey(buf)
}

// deriveAddress hashes the tag and the seeds together with a bump byte,
// starting from 255 and going down until the digest is not the x coordinate
// of a point on secp256k1. Such an address has no private key behind it.
func deriveAddress(tag []byte, seeds ...[]byte) (string, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		h.Write(tag)
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{byte(bump)})
		digest := h.Sum(nil)

		if !isOnCurve(digest) {
			return base58.Encode(digest), uint8(bump), nil
		}
	}
	return "", 0, fmt.Errorf("unable to find an off-curve address for tag %s", tag)
}

func isOnCurve(x []byte) bool {
	candidate := make([]byte, 0, IdentityLength)
	candidate = append(candidate, 0x02)
	candidate = append(candidate, x...)
	_, err := btcec.ParsePubKey(candidate)
	return err == nil
}

func decodeAddress(s string) ([]byte, error) {
	buf := base58.Decode(s)
	if len(buf) != AddressLength {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return buf, nil
}

func decodeIdentity(s string) ([]byte, error) {
	buf := base58.Decode(s)
	if len(buf) != IdentityLength {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIdentity, s)
	}
	if _, err := btcec.ParsePubKey(buf); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIdentity, s)
	}
	return buf, nil
}
