package tiers

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"tierforge/core/types"
)

const (
	// TypeTierAdded is emitted when a new tier joins the table.
	TypeTierAdded = "tiers.tier.added"
	// TypeTierRemoved is emitted when a tier is retired from minting.
	TypeTierRemoved = "tiers.tier.removed"
	// TypeTokenMinted is emitted for every token the engine mints.
	TypeTokenMinted = "tiers.token.minted"
	// TypeTokenBurned is emitted when burn accounting records a token.
	TypeTokenBurned = "tiers.token.burned"
	// TypeReservedMinted is emitted when reserved entitlement is consumed.
	TypeReservedMinted = "tiers.reserved.minted"
	// TypeMintSkipped is emitted when a requested tier claim is soft-skipped.
	TypeMintSkipped = "tiers.mint.skipped"
	// TypePaymentIgnored is emitted when a contribution cannot be valued.
	TypePaymentIgnored = "tiers.payment.ignored"
	// TypeCreditIncreased is emitted when a stored credit balance grows.
	TypeCreditIncreased = "tiers.credit.increased"
	// TypeCreditDecreased is emitted when a stored credit balance shrinks.
	TypeCreditDecreased = "tiers.credit.decreased"
)

type TierAdded struct {
	ID              uint16
	PriceFloor      *big.Int
	InitialQuantity uint32
	Category        uint32
}

func (TierAdded) EventType() string { return TypeTierAdded }

func (e TierAdded) Event() *types.Event {
	return &types.Event{
		Type: TypeTierAdded,
		Attributes: map[string]string{
			"tierId":          formatUint(uint64(e.ID)),
			"priceFloor":      formatAmount(e.PriceFloor),
			"initialQuantity": formatUint(uint64(e.InitialQuantity)),
			"category":        formatUint(uint64(e.Category)),
		},
	}
}

type TierRemoved struct {
	ID uint16
}

func (TierRemoved) EventType() string { return TypeTierRemoved }

func (e TierRemoved) Event() *types.Event {
	return &types.Event{
		Type:       TypeTierRemoved,
		Attributes: map[string]string{"tierId": formatUint(uint64(e.ID))},
	}
}

type TokenMinted struct {
	TokenID     uint64
	TierID      uint16
	Beneficiary [20]byte
	Path        string
}

func (TokenMinted) EventType() string { return TypeTokenMinted }

func (e TokenMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenMinted,
		Attributes: map[string]string{
			"tokenId":     formatUint(e.TokenID),
			"tierId":      formatUint(uint64(e.TierID)),
			"beneficiary": hexAddr(e.Beneficiary),
			"path":        e.Path,
		},
	}
}

type TokenBurned struct {
	TokenID uint64
	TierID  uint16
}

func (TokenBurned) EventType() string { return TypeTokenBurned }

func (e TokenBurned) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenBurned,
		Attributes: map[string]string{
			"tokenId": formatUint(e.TokenID),
			"tierId":  formatUint(uint64(e.TierID)),
		},
	}
}

type ReservedMinted struct {
	TierID      uint16
	Beneficiary [20]byte
	Count       uint32
}

func (ReservedMinted) EventType() string { return TypeReservedMinted }

func (e ReservedMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeReservedMinted,
		Attributes: map[string]string{
			"tierId":      formatUint(uint64(e.TierID)),
			"beneficiary": hexAddr(e.Beneficiary),
			"count":       formatUint(uint64(e.Count)),
		},
	}
}

type MintSkipped struct {
	TierID      uint16
	Beneficiary [20]byte
	Reason      string
}

func (MintSkipped) EventType() string { return TypeMintSkipped }

func (e MintSkipped) Event() *types.Event {
	return &types.Event{
		Type: TypeMintSkipped,
		Attributes: map[string]string{
			"tierId":      formatUint(uint64(e.TierID)),
			"beneficiary": hexAddr(e.Beneficiary),
			"reason":      e.Reason,
		},
	}
}

type PaymentIgnored struct {
	Payer  [20]byte
	Reason string
}

func (PaymentIgnored) EventType() string { return TypePaymentIgnored }

func (e PaymentIgnored) Event() *types.Event {
	return &types.Event{
		Type: TypePaymentIgnored,
		Attributes: map[string]string{
			"payer":  hexAddr(e.Payer),
			"reason": e.Reason,
		},
	}
}

type CreditIncreased struct {
	Beneficiary [20]byte
	Previous    *big.Int
	Current     *big.Int
}

func (CreditIncreased) EventType() string { return TypeCreditIncreased }

func (e CreditIncreased) Event() *types.Event {
	return &types.Event{
		Type: TypeCreditIncreased,
		Attributes: map[string]string{
			"beneficiary": hexAddr(e.Beneficiary),
			"previous":    formatAmount(e.Previous),
			"current":     formatAmount(e.Current),
		},
	}
}

type CreditDecreased struct {
	Beneficiary [20]byte
	Previous    *big.Int
	Current     *big.Int
}

func (CreditDecreased) EventType() string { return TypeCreditDecreased }

func (e CreditDecreased) Event() *types.Event {
	return &types.Event{
		Type: TypeCreditDecreased,
		Attributes: map[string]string{
			"beneficiary": hexAddr(e.Beneficiary),
			"previous":    formatAmount(e.Previous),
			"current":     formatAmount(e.Current),
		},
	}
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}
