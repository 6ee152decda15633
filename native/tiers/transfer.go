package tiers

import (
	"fmt"
	"math/big"
)

// BeforeTransfer is the pre-transfer hook invoked by the outer token ledger.
// Mints (from the zero address) always pass. For genuine transfers the hook
// enforces the tier's transfer pause and records the token's first owner; the
// first-owner write is first-write-wins, so later transfers never overwrite
// the original provenance.
func (e *Engine) BeforeTransfer(from [20]byte, to [20]byte, tokenID uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if isZeroAddress(from) {
		return nil
	}
	tier, ok, err := e.state.TierGet(TierOfToken(tokenID))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: token %d", errUnknownToken, tokenID)
	}
	if tier.TransfersPausable && e.protocolMetadata().TransfersPaused {
		return fmt.Errorf("%w: tier %d", ErrTransfersPaused, tier.ID)
	}
	if _, recorded, err := e.state.FirstOwnerGet(tokenID); err != nil {
		return err
	} else if !recorded {
		if err := e.state.FirstOwnerPut(tokenID, from); err != nil {
			return err
		}
	}
	return nil
}

// AfterTransfer is invoked once the outer ledger committed the ownership
// change. All engine state is settled by now, so the optional governance hook
// may safely re-enter.
func (e *Engine) AfterTransfer(from [20]byte, to [20]byte, tokenID uint64) {
	if e == nil {
		return
	}
	if e.transferHook != nil {
		e.transferHook.TransferRecorded(from, to, tokenID)
	}
}

// FirstOwnerOf resolves the address that originally received the token. A
// token that never left its minting owner has no stored record, so the lookup
// falls back to current ownership.
func (e *Engine) FirstOwnerOf(tokenID uint64) ([20]byte, error) {
	var zero [20]byte
	if e == nil || e.state == nil {
		return zero, errNilState
	}
	owner, recorded, err := e.state.FirstOwnerGet(tokenID)
	if err != nil {
		return zero, err
	}
	if recorded {
		return owner, nil
	}
	if e.ledger == nil {
		return zero, errNilLedger
	}
	current, ok, err := e.ledger.OwnerOf(tokenID)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, fmt.Errorf("%w: token %d", errUnknownToken, tokenID)
	}
	return current, nil
}

// RoyaltyInfo reports the tier-level royalty attribution for a sale: the
// first owner of the token and the royalty share of the supplied sale price.
func (e *Engine) RoyaltyInfo(tokenID uint64, salePrice *big.Int) ([20]byte, *big.Int, error) {
	var zero [20]byte
	tier, err := e.TierOfTokenID(tokenID)
	if err != nil {
		return zero, nil, err
	}
	receiver, err := e.FirstOwnerOf(tokenID)
	if err != nil {
		return zero, nil, err
	}
	amount := new(big.Int)
	if salePrice != nil && salePrice.Sign() > 0 {
		amount.Mul(salePrice, big.NewInt(int64(tier.RoyaltyRate)))
		amount.Quo(amount, big.NewInt(RoyaltyRateCap))
	}
	return receiver, amount, nil
}
