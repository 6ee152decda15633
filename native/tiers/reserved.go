package tiers

import (
	"fmt"
	"math/big"
)

// ReservedOutstanding reports how many reserved tokens are currently mintable
// for the tier: the rate-derived entitlement from non-reserved mints minus
// the reserved tokens already minted.
func (e *Engine) ReservedOutstanding(tierID uint16) (uint32, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	tier, ok, err := e.state.TierGet(tierID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: tier %d", ErrInvalidTier, tierID)
	}
	return reservedOutstanding(tier), nil
}

func reservedOutstanding(tier *Tier) uint32 {
	if tier == nil || tier.ReservedRate == 0 {
		return 0
	}
	entitled := uint64(tier.nonReservedMinted()) * uint64(tier.ReservedRate) / ReservedRateDenominator
	if entitled <= uint64(tier.ReservedMinted) {
		return 0
	}
	return uint32(entitled - uint64(tier.ReservedMinted))
}

// MintReserved mints up to the outstanding reserved entitlement of the tier to
// its reserved-token beneficiary. The beneficiary resolution falls back from
// the tier-level override to the engine-wide beneficiary and finally the
// project owner. Reserved mints consume remaining quantity exactly like
// ordinary mints.
func (e *Engine) MintReserved(caller [20]byte, tierID uint16, count uint32) ([]uint64, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.ledger == nil {
		return nil, errNilLedger
	}
	if !e.authorized(caller, PermissionMintReserved) {
		return nil, ErrUnauthorized
	}
	if e.protocolMetadata().ReserveMintingPaused {
		return nil, ErrReserveMintingPaused
	}
	if count == 0 {
		return nil, nil
	}
	plan := newMintPlan()
	tier, ok, err := plan.tier(e, tierID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: tier %d", ErrInvalidTier, tierID)
	}
	if count > reservedOutstanding(tier) {
		return nil, fmt.Errorf("%w: tier %d outstanding %d requested %d",
			ErrInsufficientReserves, tierID, reservedOutstanding(tier), count)
	}
	beneficiary := tier.ReservedBeneficiary
	if isZeroAddress(beneficiary) {
		beneficiary = e.reservedBeneficiary
	}
	if isZeroAddress(beneficiary) {
		beneficiary = e.owner
	}
	if isZeroAddress(beneficiary) {
		return nil, errOwnerNotSet
	}
	for i := uint32(0); i < count; i++ {
		if tier.RemainingQuantity == 0 {
			return nil, fmt.Errorf("%w: tier %d", ErrSupplyExhausted, tierID)
		}
		tier.ReservedMinted++
		plan.claim(tier, beneficiary, "reserved")
	}
	tokenIDs, err := plan.commit(e)
	if err != nil {
		return nil, err
	}
	e.emit(ReservedMinted{TierID: tierID, Beneficiary: beneficiary, Count: count})
	return tokenIDs, nil
}

// TotalSupply reports tokens minted and not burned across all tiers.
func (e *Engine) TotalSupply() (*big.Int, error) {
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
		outstanding := uint64(tier.Minted) - uint64(tier.Burned)
		total.Add(total, new(big.Int).SetUint64(outstanding))
	}
	return total, nil
}
