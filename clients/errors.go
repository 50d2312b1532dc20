package clients

import "errors"

var (
	// ErrNameNotFound means the name has no address record.
	ErrNameNotFound = errors.New("name not found")
	// ErrNoResolver means the registry has no resolver set for the node.
	ErrNoResolver = errors.New("no resolver for name")
	// ErrTxReverted means a submitted transaction was mined with status 0.
	ErrTxReverted = errors.New("transaction reverted")
	// ErrNoSigner means a write was attempted without a configured key.
	ErrNoSigner = errors.New("no signer configured")
)
