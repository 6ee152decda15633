package tiers

import (
	"fmt"
	"math/big"
)

// WeightOf sums the redemption weight of the supplied tokens. Each token
// contributes its tier's voting units, or the tier's price floor when the
// tier substitutes price for voting units. Removed tiers resolve through
// their retained metadata, so tokens from retired tiers keep their weight.
func (e *Engine) WeightOf(tokenIDs []uint64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	total := new(big.Int)
	for _, tokenID := range tokenIDs {
		tier, ok, err := e.state.TierGet(TierOfToken(tokenID))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: token %d", ErrInvalidTier, tokenID)
		}
		total.Add(total, tier.Weight())
	}
	return total, nil
}

// TotalWeight sums the redemption weight across every token minted so far,
// tier by tier. Removed tiers still count: their minted tokens remain
// outstanding claims against the shared treasury.
func (e *Engine) TotalWeight() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	count, err := e.state.TierCount()
	if err != nil {
		return nil, err
	}
	total := new(big.Int)
	for id := uint32(1); id <= uint32(count); id++ {
		tier, ok, err := e.state.TierGet(uint16(id))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		minted := new(big.Int).SetUint64(uint64(tier.Minted))
		total.Add(total, minted.Mul(minted, tier.Weight()))
	}
	return total, nil
}
