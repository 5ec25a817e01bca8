package rdpos

import (
	"github.com/entropyio/go-statecore/common"
	"github.com/entropyio/go-statecore/common/crypto"
	"github.com/holiman/uint256"
)

// RandomGen is a deterministic generator: every call hashes the previous
// seed with keccak256 and returns the digest as a 256 bit integer. Every
// node fed the same seed draws the same sequence.
type RandomGen struct {
	seed common.Hash
}

func NewRandomGen(seed common.Hash) *RandomGen {
	return &RandomGen{seed: seed}
}

// Next advances the generator.
func (r *RandomGen) Next() *uint256.Int {
	r.seed = crypto.Keccak256Hash(r.seed[:])
	return new(uint256.Int).SetBytes(r.seed[:])
}

// Seed returns the current state of the generator.
func (r *RandomGen) Seed() common.Hash { return r.seed }

// Shuffle returns a copy of validators permuted by a RandomGen seeded with
// seed.
func Shuffle(validators []common.Address, seed common.Hash) []common.Address {
	order := append([]common.Address(nil), validators...)
	gen := NewRandomGen(seed)
	for i := range order {
		remaining := uint256.NewInt(uint64(len(order) - i))
		n := i + int(new(uint256.Int).Mod(gen.Next(), remaining).Uint64())
		order[i], order[n] = order[n], order[i]
	}
	return order
}
