package blockchain

import "errors"

var (
	// ErrBlockRejected wraps every reason a candidate block is refused.
	ErrBlockRejected = errors.New("block rejected")

	// ErrNotExtendingHead is returned by Append when the block does not
	// link to the latest block.
	ErrNotExtendingHead = errors.New("block does not extend the latest block")

	// ErrUnknownBlock is returned for operations on a block the node never saw.
	ErrUnknownBlock = errors.New("unknown block")

	// ErrNoGenesis is returned when the store has no canonical genesis block.
	ErrNoGenesis = errors.New("genesis not found in chain")
)
