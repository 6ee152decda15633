package tiers

import (
	"fmt"
	"math/big"
)

// AddTiers appends new tiers to the table and returns the IDs assigned to
// them. Tier IDs are dense and monotonically increasing; the caller-supplied
// params must be sorted ascending by price floor so fallback mint selection
// stays coherent. Contract-wide lock flags reject params exercising a locked
// concern.
func (e *Engine) AddTiers(caller [20]byte, params []TierParams) ([]uint16, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if !e.authorized(caller, PermissionAdjustTiers) {
		return nil, ErrUnauthorized
	}
	if len(params) == 0 {
		return nil, nil
	}
	count, err := e.state.TierCount()
	if err != nil {
		return nil, err
	}
	if int(count)+len(params) > MaxTierID {
		return nil, errTierTableFull
	}

	var lastFloor *big.Int
	if count > 0 {
		last, ok, err := e.state.TierGet(count)
		if err != nil {
			return nil, err
		}
		if ok && !last.Removed {
			lastFloor = last.PriceFloor
		}
	}

	ids := make([]uint16, 0, len(params))
	added := make([]*Tier, 0, len(params))
	for i := range params {
		p := params[i]
		if p.PriceFloor == nil || p.PriceFloor.Sign() < 0 {
			return nil, fmt.Errorf("%w: price floor required", errInvalidTierParams)
		}
		if p.InitialQuantity == 0 {
			return nil, fmt.Errorf("%w: initial quantity required", errInvalidTierParams)
		}
		if p.ReservedRate > ReservedRateDenominator {
			return nil, fmt.Errorf("%w: reserved rate above denominator", errInvalidTierParams)
		}
		if p.RoyaltyRate > RoyaltyRateCap {
			return nil, fmt.Errorf("%w: royalty rate above cap", errInvalidTierParams)
		}
		if lastFloor != nil && p.PriceFloor.Cmp(lastFloor) < 0 {
			return nil, ErrInvalidPriceSortOrder
		}
		if e.flags.LockReservedRateChanges && p.ReservedRate != 0 {
			return nil, errReservedRateLocked
		}
		if e.flags.LockVotingUnitChanges && (p.VotingUnits != 0 || p.UsePriceAsVotingUnits) {
			return nil, errVotingUnitsLocked
		}
		if e.flags.LockManualMintChanges && p.AllowManualMint {
			return nil, errManualMintLocked
		}
		lastFloor = p.PriceFloor

		count++
		tier := &Tier{
			ID:                    count,
			PriceFloor:            new(big.Int).Set(p.PriceFloor),
			RemainingQuantity:     p.InitialQuantity,
			InitialQuantity:       p.InitialQuantity,
			VotingUnits:           p.VotingUnits,
			LockedUntil:           p.LockedUntil,
			ReservedRate:          p.ReservedRate,
			ReservedBeneficiary:   p.ReservedBeneficiary,
			Category:              p.Category,
			RoyaltyRate:           p.RoyaltyRate,
			AllowManualMint:       p.AllowManualMint,
			TransfersPausable:     p.TransfersPausable,
			UsePriceAsVotingUnits: p.UsePriceAsVotingUnits,
		}
		ids = append(ids, tier.ID)
		added = append(added, tier)
	}

	// The whole batch validated; only now do any writes land, so a rejected
	// param never leaves earlier tiers behind.
	for _, tier := range added {
		if err := e.state.TierPut(tier); err != nil {
			return nil, err
		}
	}
	if err := e.state.SetTierCount(count); err != nil {
		return nil, err
	}
	for _, tier := range added {
		e.emit(TierAdded{ID: tier.ID, PriceFloor: tier.PriceFloor, InitialQuantity: tier.InitialQuantity, Category: tier.Category})
	}
	return ids, nil
}

// RemoveTiers retires the supplied tier IDs from future mint eligibility.
// A tier whose lock horizon lies in the future cannot be removed. Stored
// parameters survive removal so tokens already minted keep valid provenance.
func (e *Engine) RemoveTiers(caller [20]byte, ids []uint16) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if !e.authorized(caller, PermissionAdjustTiers) {
		return ErrUnauthorized
	}
	now := e.now()
	removed := make([]*Tier, 0, len(ids))
	staged := make(map[uint16]bool, len(ids))
	for _, id := range ids {
		if staged[id] {
			return ErrInvalidTier
		}
		tier, ok, err := e.state.TierGet(id)
		if err != nil {
			return err
		}
		if !ok || tier.Removed {
			return ErrInvalidTier
		}
		if tier.LockedUntil > now {
			return ErrTierLocked
		}
		tier.Removed = true
		tier.RemainingQuantity = 0
		staged[id] = true
		removed = append(removed, tier)
	}

	// Removals land only once every ID in the batch passed, so a locked tier
	// late in the list never strands earlier tiers half removed.
	for _, tier := range removed {
		if err := e.state.TierPut(tier); err != nil {
			return err
		}
	}
	for _, tier := range removed {
		e.emit(TierRemoved{ID: tier.ID})
	}
	return nil
}

// TierByID returns the stored tier record. Removed tiers still resolve so
// historical token lookups keep working; callers check Removed when mint
// eligibility matters.
func (e *Engine) TierByID(id uint16) (*Tier, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	tier, ok, err := e.state.TierGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTier
	}
	return tier.Clone(), nil
}

// TierOfTokenID resolves the tier a token was minted from using only the
// token ID encoding.
func (e *Engine) TierOfTokenID(tokenID uint64) (*Tier, error) {
	return e.TierByID(TierOfToken(tokenID))
}

// Tiers lists stored tiers in ID order. A nonzero category restricts the
// listing to that grouping tag; removed tiers are included only on request.
func (e *Engine) Tiers(category uint32, includeRemoved bool) ([]*Tier, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	count, err := e.state.TierCount()
	if err != nil {
		return nil, err
	}
	out := make([]*Tier, 0, count)
	for id := uint32(1); id <= uint32(count); id++ {
		tier, ok, err := e.state.TierGet(uint16(id))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if tier.Removed && !includeRemoved {
			continue
		}
		if category != 0 && tier.Category != category {
			continue
		}
		out = append(out, tier.Clone())
	}
	return out, nil
}
