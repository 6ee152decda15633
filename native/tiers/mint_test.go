package tiers

import (
	"errors"
	"math/big"
	"testing"
)

func TestPayExactFloorMintsWithoutCredit(t *testing.T) {
	env := newTestEnv(t)
	env.seedLadder(t, 10, 10)
	buyer := addr(0x01)

	receipt := env.pay(t, buyer, buyer, 10, explicitList(1))

	if len(receipt.TokenIDs) != 1 {
		t.Fatalf("expected one mint, got %d", len(receipt.TokenIDs))
	}
	if TierOfToken(receipt.TokenIDs[0]) != 1 {
		t.Fatalf("token minted from wrong tier: %d", TierOfToken(receipt.TokenIDs[0]))
	}
	if receipt.Leftover.Sign() != 0 {
		t.Fatalf("expected zero leftover, got %s", receipt.Leftover)
	}
	if credit := creditOf(t, env, buyer); credit.Sign() != 0 {
		t.Fatalf("expected zero credit, got %s", credit)
	}
	if owner := env.ledger.owners[receipt.TokenIDs[0]]; owner != buyer {
		t.Fatalf("token not minted to beneficiary")
	}
}

func TestPayBelowLowestFloorAccruesCredit(t *testing.T) {
	env := newTestEnv(t)
	env.seedLadder(t, 10, 10)
	buyer := addr(0x02)

	receipt := env.pay(t, buyer, buyer, 5, nil)

	if len(receipt.TokenIDs) != 0 {
		t.Fatalf("expected no mints, got %d", len(receipt.TokenIDs))
	}
	if credit := creditOf(t, env, buyer); credit.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("expected full amount as credit, got %s", credit)
	}
	if got := env.emitter.byType(TypeCreditIncreased); len(got) != 1 {
		t.Fatalf("expected one credit increase event, got %d", len(got))
	}
}

func TestPayFallbackSelectsHighestAffordableTier(t *testing.T) {
	env := newTestEnv(t)
	env.seedLadder(t, 10, 10)
	buyer := addr(0x03)

	receipt := env.pay(t, buyer, buyer, 100, nil)

	if len(receipt.TokenIDs) != 1 {
		t.Fatalf("expected one mint, got %d", len(receipt.TokenIDs))
	}
	if TierOfToken(receipt.TokenIDs[0]) != 10 {
		t.Fatalf("fallback picked tier %d, want 10", TierOfToken(receipt.TokenIDs[0]))
	}
	if receipt.Leftover.Sign() != 0 {
		t.Fatalf("expected zero leftover, got %s", receipt.Leftover)
	}
}

func TestPayExplicitTierTen(t *testing.T) {
	env := newTestEnv(t)
	env.seedLadder(t, 10, 10)
	buyer := addr(0x04)

	receipt := env.pay(t, buyer, buyer, 100, explicitList(10))

	if len(receipt.TokenIDs) != 1 || TierOfToken(receipt.TokenIDs[0]) != 10 {
		t.Fatalf("expected one mint from tier 10, got %v", receipt.TokenIDs)
	}
	if receipt.Leftover.Sign() != 0 {
		t.Fatalf("expected zero leftover, got %s", receipt.Leftover)
	}
}

func TestPayExplicitListSkipsUnaffordableTiers(t *testing.T) {
	env := newTestEnv(t)
	env.seedLadder(t, 10, 10)
	buyer := addr(0x05)

	receipt := env.pay(t, buyer, buyer, 55, explicitList(1, 2, 3, 4, 5))

	// 10 + 20 fit the budget; 30, 40 and 50 exceed what remains.
	if len(receipt.TokenIDs) != 2 {
		t.Fatalf("expected two mints, got %d", len(receipt.TokenIDs))
	}
	if TierOfToken(receipt.TokenIDs[0]) != 1 || TierOfToken(receipt.TokenIDs[1]) != 2 {
		t.Fatalf("unexpected tier order: %v", receipt.TokenIDs)
	}
	if receipt.Leftover.Cmp(big.NewInt(25)) != 0 {
		t.Fatalf("expected leftover 25, got %s", receipt.Leftover)
	}
	if credit := creditOf(t, env, buyer); credit.Cmp(big.NewInt(25)) != 0 {
		t.Fatalf("expected leftover stored as credit, got %s", credit)
	}
	if skips := env.emitter.byType(TypeMintSkipped); len(skips) != 3 {
		t.Fatalf("expected three skip events, got %d", len(skips))
	}
}

func TestPayDuplicateTierEntriesMintMultiple(t *testing.T) {
	env := newTestEnv(t)
	env.seedLadder(t, 3, 10)
	buyer := addr(0x06)

	receipt := env.pay(t, buyer, buyer, 30, explicitList(1, 1, 1))

	if len(receipt.TokenIDs) != 3 {
		t.Fatalf("expected three mints, got %d", len(receipt.TokenIDs))
	}
	seen := make(map[uint64]bool)
	for _, id := range receipt.TokenIDs {
		if TierOfToken(id) != 1 {
			t.Fatalf("token %d minted from wrong tier", id)
		}
		if seen[id] {
			t.Fatalf("duplicate token id %d", id)
		}
		seen[id] = true
	}
}

func TestSelfPayMergesCarriedCredit(t *testing.T) {
	env := newTestEnv(t)
	env.seedLadder(t, 10, 10)
	buyer := addr(0x07)

	env.pay(t, buyer, buyer, 5, nil)
	receipt := env.pay(t, buyer, buyer, 5, nil)

	if len(receipt.TokenIDs) != 1 || TierOfToken(receipt.TokenIDs[0]) != 1 {
		t.Fatalf("merged credit should afford tier 1, got %v", receipt.TokenIDs)
	}
	if credit := creditOf(t, env, buyer); credit.Sign() != 0 {
		t.Fatalf("expected credit consumed, got %s", credit)
	}
	if got := env.emitter.byType(TypeCreditDecreased); len(got) != 1 {
		t.Fatalf("expected one credit decrease event, got %d", len(got))
	}
}

func TestThirdPartyPaymentLeavesStashUntouched(t *testing.T) {
	env := newTestEnv(t)
	env.seedLadder(t, 10, 10)
	beneficiary := addr(0x08)
	payer := addr(0x09)

	env.pay(t, beneficiary, beneficiary, 5, nil)
	receipt := env.pay(t, payer, beneficiary, 12, nil)

	// The stash does not join the budget, so only tier 1 (floor 10) fits.
	if len(receipt.TokenIDs) != 1 || TierOfToken(receipt.TokenIDs[0]) != 1 {
		t.Fatalf("expected one tier-1 mint, got %v", receipt.TokenIDs)
	}
	if receipt.Leftover.Cmp(big.NewInt(2)) != 0 {
		t.Fatalf("expected leftover 2, got %s", receipt.Leftover)
	}
	if credit := creditOf(t, env, beneficiary); credit.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("expected stash 5 plus leftover 2, got %s", credit)
	}
}

func TestOverspendingRejectedWhenPrevented(t *testing.T) {
	env := newTestEnv(t)
	env.engine.SetFlags(Flags{PreventOverspending: true})
	env.seedLadder(t, 10, 10)
	buyer := addr(0x0A)

	_, err := env.engine.RecordPayment(PayContext{
		ProjectID:   testProjectID,
		Payer:       buyer,
		Beneficiary: buyer,
		Amount:      PayAmount{Value: big.NewInt(15), Currency: testCurrency, Decimals: testRefDecimals},
		Metadata:    explicitList(1),
	})
	if !errors.Is(err, ErrOverspending) {
		t.Fatalf("expected overspending error, got %v", err)
	}
	// The failed call must not leave partial state behind.
	if env.state.tiers[1].RemainingQuantity != 10 {
		t.Fatalf("tier quantity mutated by failed payment")
	}
	if credit := creditOf(t, env, buyer); credit.Sign() != 0 {
		t.Fatalf("credit mutated by failed payment: %s", credit)
	}
	if len(env.ledger.minted) != 0 {
		t.Fatalf("ledger mutated by failed payment")
	}
}

func TestOverspendingAllowedWithOptIn(t *testing.T) {
	env := newTestEnv(t)
	env.engine.SetFlags(Flags{PreventOverspending: true})
	env.seedLadder(t, 10, 10)
	buyer := addr(0x0B)

	metadata := EncodePayMetadata(PayMetadata{AllowOverspending: true, TierIDs: []uint16{1}})
	receipt := env.pay(t, buyer, buyer, 15, metadata)

	if len(receipt.TokenIDs) != 1 {
		t.Fatalf("expected one mint, got %d", len(receipt.TokenIDs))
	}
	if credit := creditOf(t, env, buyer); credit.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("expected leftover 5 as credit, got %s", credit)
	}
}

func TestUnknownTierFailsWholePayment(t *testing.T) {
	env := newTestEnv(t)
	env.seedLadder(t, 3, 10)
	buyer := addr(0x0C)

	_, err := env.engine.RecordPayment(PayContext{
		ProjectID:   testProjectID,
		Payer:       buyer,
		Beneficiary: buyer,
		Amount:      PayAmount{Value: big.NewInt(100), Currency: testCurrency, Decimals: testRefDecimals},
		Metadata:    explicitList(1, 42),
	})
	if !errors.Is(err, ErrInvalidTier) {
		t.Fatalf("expected invalid tier error, got %v", err)
	}
	if env.state.tiers[1].RemainingQuantity != 10 {
		t.Fatalf("tier quantity mutated by failed payment")
	}
}

func TestExhaustedTierSoftSkips(t *testing.T) {
	env := newTestEnv(t)
	env.seedLadder(t, 1, 1)
	first := addr(0x0D)
	second := addr(0x0E)

	env.pay(t, first, first, 10, explicitList(1))
	receipt := env.pay(t, second, second, 10, explicitList(1))

	if len(receipt.TokenIDs) != 0 {
		t.Fatalf("expected exhausted tier to skip, got %v", receipt.TokenIDs)
	}
	if credit := creditOf(t, env, second); credit.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("expected full amount as credit, got %s", credit)
	}
}

func TestWrongProjectRejected(t *testing.T) {
	env := newTestEnv(t)
	env.seedLadder(t, 1, 1)

	_, err := env.engine.RecordPayment(PayContext{
		ProjectID: testProjectID + 1,
		Payer:     addr(0x0F),
		Amount:    PayAmount{Value: big.NewInt(10), Currency: testCurrency, Decimals: testRefDecimals},
	})
	if !errors.Is(err, ErrWrongProject) {
		t.Fatalf("expected wrong project error, got %v", err)
	}
}

func TestUnresolvableCurrencyIgnoredWithoutOracle(t *testing.T) {
	env := newTestEnv(t)
	env.seedLadder(t, 3, 10)
	buyer := addr(0x10)

	receipt, err := env.engine.RecordPayment(PayContext{
		ProjectID:   testProjectID,
		Payer:       buyer,
		Beneficiary: buyer,
		Amount:      PayAmount{Value: big.NewInt(500), Currency: testOtherCurrency, Decimals: testRefDecimals},
	})
	if err != nil {
		t.Fatalf("unresolvable payment should not hard-fail: %v", err)
	}
	if len(receipt.TokenIDs) != 0 || receipt.Leftover.Sign() != 0 {
		t.Fatalf("unresolvable payment must not mint or credit: %+v", receipt)
	}
	if got := env.emitter.byType(TypePaymentIgnored); len(got) != 1 {
		t.Fatalf("expected payment ignored event, got %d", len(got))
	}
}

func TestUnresolvableCurrencyRejectedUnderOverspendProtection(t *testing.T) {
	env := newTestEnv(t)
	env.engine.SetFlags(Flags{PreventOverspending: true})
	env.seedLadder(t, 3, 10)

	_, err := env.engine.RecordPayment(PayContext{
		ProjectID: testProjectID,
		Payer:     addr(0x11),
		Amount:    PayAmount{Value: big.NewInt(500), Currency: testOtherCurrency, Decimals: testRefDecimals},
	})
	if !errors.Is(err, ErrOverspending) {
		t.Fatalf("expected overspending error, got %v", err)
	}
}

func TestManualMintBypassesPrice(t *testing.T) {
	env := newTestEnv(t)
	ids, err := env.engine.AddTiers(env.owner, []TierParams{
		{PriceFloor: big.NewInt(100), InitialQuantity: 2, AllowManualMint: true},
		{PriceFloor: big.NewInt(200), InitialQuantity: 2},
	})
	if err != nil {
		t.Fatalf("seeding tiers failed: %v", err)
	}

	tokenIDs, err := env.engine.MintFor(env.owner, addr(0x12), []uint16{ids[0]})
	if err != nil {
		t.Fatalf("manual mint failed: %v", err)
	}
	if len(tokenIDs) != 1 || TierOfToken(tokenIDs[0]) != ids[0] {
		t.Fatalf("unexpected manual mint result: %v", tokenIDs)
	}

	if _, err := env.engine.MintFor(env.owner, addr(0x12), []uint16{ids[1]}); !errors.Is(err, ErrManualMintDisabled) {
		t.Fatalf("expected manual minting disabled, got %v", err)
	}
}

func TestManualMintRequiresPermission(t *testing.T) {
	env := newTestEnv(t)
	env.seedLadder(t, 1, 1)
	stranger := addr(0x13)

	if _, err := env.engine.MintFor(stranger, stranger, []uint16{1}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	env.engine.SetAuthorizer(&mockAuthorizer{granted: map[string]bool{PermissionMintManual: true}})
	if _, err := env.engine.MintFor(stranger, stranger, []uint16{1}); !errors.Is(err, ErrManualMintDisabled) {
		t.Fatalf("expected manual minting disabled after grant, got %v", err)
	}
}

func TestTokenIDsUniqueAcrossPaths(t *testing.T) {
	env := newTestEnv(t)
	env.engine.AddTiers(env.owner, []TierParams{
		{PriceFloor: big.NewInt(10), InitialQuantity: 20, AllowManualMint: true, ReservedRate: 5000},
	})
	buyer := addr(0x14)

	env.pay(t, buyer, buyer, 10, explicitList(1))
	env.pay(t, buyer, buyer, 10, explicitList(1))
	if _, err := env.engine.MintFor(env.owner, buyer, []uint16{1}); err != nil {
		t.Fatalf("manual mint failed: %v", err)
	}
	if _, err := env.engine.MintReserved(env.owner, 1, 1); err != nil {
		t.Fatalf("reserved mint failed: %v", err)
	}

	seen := make(map[uint64]bool)
	for _, id := range env.ledger.minted {
		if seen[id] {
			t.Fatalf("token id %d assigned twice", id)
		}
		seen[id] = true
		if TierOfToken(id) != 1 {
			t.Fatalf("token %d decodes to wrong tier", id)
		}
	}
	if len(seen) != 4 {
		t.Fatalf("expected four distinct tokens, got %d", len(seen))
	}
}

func TestRemainingNeverExceedsInitial(t *testing.T) {
	env := newTestEnv(t)
	env.seedLadder(t, 5, 3)
	buyer := addr(0x15)

	env.pay(t, buyer, buyer, 30, explicitList(1, 1, 1))
	env.pay(t, buyer, buyer, 20, explicitList(2))
	for id, tier := range env.state.tiers {
		if tier.RemainingQuantity > tier.InitialQuantity {
			t.Fatalf("tier %d remaining %d exceeds initial %d", id, tier.RemainingQuantity, tier.InitialQuantity)
		}
	}
}

func TestRecordBurnTracksOutstandingSupply(t *testing.T) {
	env := newTestEnv(t)
	env.seedLadder(t, 1, 5)
	buyer := addr(0x16)

	receipt := env.pay(t, buyer, buyer, 10, explicitList(1))
	if err := env.engine.RecordBurn(receipt.TokenIDs); err != nil {
		t.Fatalf("burn failed: %v", err)
	}

	supply, err := env.engine.TotalSupply()
	if err != nil {
		t.Fatalf("total supply failed: %v", err)
	}
	if supply.Sign() != 0 {
		t.Fatalf("expected zero outstanding supply, got %s", supply)
	}
	// Burning does not refund quantity.
	if env.state.tiers[1].RemainingQuantity != 4 {
		t.Fatalf("burn refunded remaining quantity")
	}
}
