package tiers

import (
	"errors"
	"fmt"
	"math/big"

	"tierforge/core/pricing"
)

// mintPlan accumulates tier mutations and token assignments for one operation
// so every state write lands only after the whole selection succeeded. The
// ledger mint calls then run strictly after the writes are committed, keeping
// reentrant callbacks from observing half-settled state.
type mintPlan struct {
	tiers  map[uint16]*Tier
	tokens []plannedToken
}

type plannedToken struct {
	tokenID uint64
	tierID  uint16
	to      [20]byte
	path    string
}

func newMintPlan() *mintPlan {
	return &mintPlan{tiers: make(map[uint16]*Tier)}
}

func (p *mintPlan) tier(e *Engine, id uint16) (*Tier, bool, error) {
	if tier, ok := p.tiers[id]; ok {
		return tier, true, nil
	}
	tier, ok, err := e.state.TierGet(id)
	if err != nil || !ok {
		return nil, ok, err
	}
	p.tiers[id] = tier
	return tier, true, nil
}

// claim consumes one unit of the tier's remaining quantity and assigns the
// next token ID. The sequence number is derived from the mint counter at the
// time of the mint, so IDs never collide even across tier removals.
func (p *mintPlan) claim(tier *Tier, to [20]byte, path string) uint64 {
	tier.RemainingQuantity--
	tier.Minted++
	tokenID := TokenID(tier.ID, uint64(tier.Minted))
	p.tokens = append(p.tokens, plannedToken{tokenID: tokenID, tierID: tier.ID, to: to, path: path})
	return tokenID
}

// commit persists the planned tier mutations, then mints the planned tokens
// into the outer ledger and emits the matching events.
func (p *mintPlan) commit(e *Engine) ([]uint64, error) {
	for _, tier := range p.tiers {
		if err := e.state.TierPut(tier); err != nil {
			return nil, err
		}
	}
	ids := make([]uint64, 0, len(p.tokens))
	for _, tok := range p.tokens {
		if err := e.ledger.Mint(tok.to, tok.tokenID); err != nil {
			return nil, fmt.Errorf("tiers engine: ledger mint failed: %w", err)
		}
		ids = append(ids, tok.tokenID)
		e.metrics.ObserveMint(tok.path)
		e.emit(TokenMinted{TokenID: tok.tokenID, TierID: tok.tierID, Beneficiary: tok.to, Path: tok.path})
	}
	return ids, nil
}

// RecordPayment is the pay-time hook. It values the contribution in the
// reference currency, merges carried-over credit when the payer pays for
// themselves, walks the requested tier list (or falls back to the best
// affordable tier when no valid selection metadata is present), and settles
// the unspent remainder as credit.
func (e *Engine) RecordPayment(ctx PayContext) (*Receipt, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.ledger == nil {
		return nil, errNilLedger
	}
	if ctx.ProjectID != e.projectID {
		return nil, ErrWrongProject
	}

	value, err := e.normalizeAmount(ctx.Amount)
	if err != nil {
		if errors.Is(err, pricing.ErrUnresolvable) {
			if e.flags.PreventOverspending {
				e.metrics.ObserveRejection("unresolvable_value")
				return nil, fmt.Errorf("%w: contribution currency not convertible", ErrOverspending)
			}
			e.emit(PaymentIgnored{Payer: ctx.Payer, Reason: "unresolvable_value"})
			return &Receipt{TokenIDs: nil, Leftover: big.NewInt(0)}, nil
		}
		return nil, err
	}

	meta, hasMeta := DecodePayMetadata(ctx.Metadata)

	// Carried-over credit only joins the spendable budget when the payer is
	// paying for their own beneficiary; otherwise the stash stays untouched.
	stash, err := e.CreditOf(ctx.Beneficiary)
	if err != nil {
		return nil, err
	}
	selfPay := ctx.Payer == ctx.Beneficiary
	budget := new(big.Int).Set(value)
	if selfPay {
		budget.Add(budget, stash)
	}

	plan := newMintPlan()
	leftover := new(big.Int).Set(budget)
	if hasMeta && len(meta.TierIDs) > 0 {
		leftover, err = e.selectRequested(plan, ctx.Beneficiary, leftover, meta.TierIDs)
		if err != nil {
			return nil, err
		}
	} else {
		leftover, err = e.selectFallback(plan, ctx.Beneficiary, leftover)
		if err != nil {
			return nil, err
		}
	}

	if leftover.Sign() != 0 && e.flags.PreventOverspending && !meta.AllowOverspending {
		e.metrics.ObserveRejection("overspending")
		return nil, fmt.Errorf("%w: leftover %s", ErrOverspending, leftover)
	}

	// Settle credits before the outer ledger is touched.
	if selfPay {
		if err := e.setCredit(ctx.Beneficiary, leftover); err != nil {
			return nil, err
		}
	} else if leftover.Sign() != 0 {
		if err := e.setCredit(ctx.Beneficiary, new(big.Int).Add(stash, leftover)); err != nil {
			return nil, err
		}
	}

	tokenIDs, err := plan.commit(e)
	if err != nil {
		return nil, err
	}
	return &Receipt{TokenIDs: tokenIDs, Leftover: leftover}, nil
}

func (e *Engine) normalizeAmount(amount PayAmount) (*big.Int, error) {
	if e.normalizer == nil {
		return nil, pricing.ErrUnresolvable
	}
	return e.normalizer.Normalize(amount.Value, amount.Currency, amount.Decimals)
}

// selectRequested walks the caller-ordered tier list, minting one token per
// affordable entry. An unknown or removed tier fails the whole call; an
// exhausted tier or an unaffordable price floor only skips that entry.
func (e *Engine) selectRequested(plan *mintPlan, beneficiary [20]byte, budget *big.Int, tierIDs []uint16) (*big.Int, error) {
	remaining := new(big.Int).Set(budget)
	for _, id := range tierIDs {
		tier, ok, err := plan.tier(e, id)
		if err != nil {
			return nil, err
		}
		if !ok || tier.Removed {
			return nil, fmt.Errorf("%w: tier %d", ErrInvalidTier, id)
		}
		if tier.RemainingQuantity == 0 {
			e.metrics.ObserveSkip("supply_exhausted")
			e.emit(MintSkipped{TierID: id, Beneficiary: beneficiary, Reason: "supply_exhausted"})
			continue
		}
		if remaining.Cmp(tier.PriceFloor) < 0 {
			e.metrics.ObserveSkip("insufficient_funds")
			e.emit(MintSkipped{TierID: id, Beneficiary: beneficiary, Reason: "insufficient_funds"})
			continue
		}
		remaining.Sub(remaining, tier.PriceFloor)
		plan.claim(tier, beneficiary, "paid")
	}
	return remaining, nil
}

// selectFallback picks the single highest-priced tier whose floor fits the
// budget and still has supply, minting exactly one token. Without an
// affordable tier the whole budget flows into credit.
func (e *Engine) selectFallback(plan *mintPlan, beneficiary [20]byte, budget *big.Int) (*big.Int, error) {
	count, err := e.state.TierCount()
	if err != nil {
		return nil, err
	}
	var best *Tier
	for id := uint32(1); id <= uint32(count); id++ {
		tier, ok, err := plan.tier(e, uint16(id))
		if err != nil {
			return nil, err
		}
		if !ok || tier.Removed || tier.RemainingQuantity == 0 {
			continue
		}
		if tier.PriceFloor.Cmp(budget) > 0 {
			continue
		}
		if best == nil || tier.PriceFloor.Cmp(best.PriceFloor) >= 0 {
			best = tier
		}
	}
	remaining := new(big.Int).Set(budget)
	if best == nil {
		return remaining, nil
	}
	remaining.Sub(remaining, best.PriceFloor)
	plan.claim(best, beneficiary, "fallback")
	return remaining, nil
}

// MintFor mints one token per supplied tier ID outside the payment path. The
// caller needs mint permission and every tier must allow manual minting; no
// price is charged and no credit bookkeeping happens.
func (e *Engine) MintFor(caller [20]byte, beneficiary [20]byte, tierIDs []uint16) ([]uint64, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.ledger == nil {
		return nil, errNilLedger
	}
	if !e.authorized(caller, PermissionMintManual) {
		return nil, ErrUnauthorized
	}
	plan := newMintPlan()
	for _, id := range tierIDs {
		tier, ok, err := plan.tier(e, id)
		if err != nil {
			return nil, err
		}
		if !ok || tier.Removed {
			return nil, fmt.Errorf("%w: tier %d", ErrInvalidTier, id)
		}
		if !tier.AllowManualMint {
			return nil, fmt.Errorf("%w: tier %d", ErrManualMintDisabled, id)
		}
		if tier.RemainingQuantity == 0 {
			return nil, fmt.Errorf("%w: tier %d", ErrSupplyExhausted, id)
		}
		plan.claim(tier, beneficiary, "manual")
	}
	return plan.commit(e)
}

// RecordBurn accounts for tokens leaving circulation. Remaining quantity is
// not refunded; the burn counter keeps outstanding-supply reporting honest.
func (e *Engine) RecordBurn(tokenIDs []uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	touched := make(map[uint16]*Tier)
	for _, tokenID := range tokenIDs {
		id := TierOfToken(tokenID)
		tier, ok := touched[id]
		if !ok {
			stored, found, err := e.state.TierGet(id)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%w: token %d", errUnknownToken, tokenID)
			}
			tier = stored
			touched[id] = tier
		}
		if tier.Burned >= tier.Minted {
			return fmt.Errorf("%w: token %d", errUnknownToken, tokenID)
		}
		tier.Burned++
	}
	for _, tier := range touched {
		if err := e.state.TierPut(tier); err != nil {
			return err
		}
	}
	for _, tokenID := range tokenIDs {
		e.emit(TokenBurned{TokenID: tokenID, TierID: TierOfToken(tokenID)})
	}
	return nil
}
