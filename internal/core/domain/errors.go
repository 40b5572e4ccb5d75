package domain

import "errors"

// ErrorKind groups swap errors by how a caller is expected to react.
type ErrorKind int

const (
	// KindUnknown is for errors not originated by the domain.
	KindUnknown ErrorKind = iota
	// KindInput errors are detected before any state is touched and go away
	// once the caller fixes its input.
	KindInput
	// KindResource errors are raised when a debit can't be covered.
	KindResource
	// KindLifecycle errors mean that the offer is not in the state required by
	// the transition. Callers should query the offer again before retrying.
	KindLifecycle
	// KindTransient errors come from the environment, ie. a commit conflict.
	KindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindResource:
		return "resource"
	case KindLifecycle:
		return "lifecycle"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// SwapError is a named failure of the swap protocol.
type SwapError struct {
	Name string
	Kind ErrorKind
	msg  string
}

func newError(name string, kind ErrorKind, msg string) *SwapError {
	return &SwapError{name, kind, msg}
}

func (e *SwapError) Error() string {
	return e.msg
}

var (
	// ErrInvalidAmount ...
	ErrInvalidAmount = newError(
		"InvalidAmount", KindInput,
		"amounts must be positive and fit in 64 bits once converted to base units",
	)
	// ErrInvalidExpiry ...
	ErrInvalidExpiry = newError(
		"InvalidExpiry", KindInput, "expiry time is too soon",
	)
	// ErrSameAsset ...
	ErrSameAsset = newError(
		"SameAssetError", KindInput, "offered and wanted assets must differ",
	)
	// ErrSelfTrade ...
	ErrSelfTrade = newError(
		"SelfTradeNotAllowed", KindInput, "maker can't accept its own offer",
	)
	// ErrDuplicateOfferID ...
	ErrDuplicateOfferID = newError(
		"DuplicateOfferId", KindInput, "an open offer with the same id already exists",
	)
	// ErrInvalidAddress ...
	ErrInvalidAddress = newError(
		"InvalidAddress", KindInput, "invalid address",
	)
	// ErrInvalidIdentity ...
	ErrInvalidIdentity = newError(
		"InvalidIdentity", KindInput, "identity must be a base58 compressed public key",
	)
	// ErrInvalidDecimals ...
	ErrInvalidDecimals = newError(
		"InvalidDecimals", KindInput, "asset decimals must be in range [0, 9]",
	)
	// ErrInvalidAsset ...
	ErrInvalidAsset = newError(
		"InvalidAsset", KindInput, "asset name and symbol must not be empty",
	)
	// ErrAssetAlreadyExists ...
	ErrAssetAlreadyExists = newError(
		"AssetAlreadyExists", KindInput, "asset already registered",
	)

	// ErrInsufficientFunds ...
	ErrInsufficientFunds = newError(
		"InsufficientFunds", KindResource, "insufficient balance",
	)

	// ErrOfferNotFound ...
	ErrOfferNotFound = newError(
		"OfferNotFound", KindLifecycle, "offer not found",
	)
	// ErrOfferExpired ...
	ErrOfferExpired = newError(
		"OfferExpired", KindLifecycle,
		"offer has expired and can no longer be accepted",
	)
	// ErrNotExpiredAndNotMaker ...
	ErrNotExpiredAndNotMaker = newError(
		"NotExpiredAndNotMaker", KindLifecycle,
		"only the maker can cancel an offer before expiry",
	)
	// ErrTermsMismatch ...
	ErrTermsMismatch = newError(
		"OfferTermsMismatch", KindLifecycle,
		"offer amounts differ from the accepted ones",
	)
	// ErrAssetNotFound ...
	ErrAssetNotFound = newError(
		"AssetNotFound", KindLifecycle, "asset not found",
	)

	// ErrTransactionConflict is returned when a concurrent transition
	// committed first. Retrying is safe for accept and cancel.
	ErrTransactionConflict = newError(
		"TransactionConflict", KindTransient, "conflicting transaction, retry",
	)
	// ErrAmountOverflow ...
	ErrAmountOverflow = newError(
		"AmountOverflow", KindTransient, "balance overflow",
	)
)

// KindOf returns the kind of the first SwapError found in the err chain.
func KindOf(err error) ErrorKind {
	var e *SwapError
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// NameOf returns the name of the first SwapError found in the err chain, or
// "Internal".
func NameOf(err error) string {
	var e *SwapError
	if errors.As(err, &e) {
		return e.Name
	}
	return "Internal"
}
