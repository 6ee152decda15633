package tiers

import "math/big"

const (
	// ReservedRateDenominator is the fixed denominator reserved rates are
	// expressed against: a rate of 5000 entitles one reserved token for
	// every two non-reserved mints.
	ReservedRateDenominator = 10_000
	// RoyaltyRateCap bounds the royalty percentage a tier may carry.
	RoyaltyRateCap = 1_000

	// tierIDBits is the low-order bit range of a token ID occupied by the
	// tier ID; the sequence number fills the remaining high-order bits.
	tierIDBits = 16
	tierIDMask = (1 << tierIDBits) - 1

	// MaxTierID bounds the dense tier ID space.
	MaxTierID = tierIDMask
)

// TokenID packs a tier ID and a per-tier sequence number into a single token
// identifier. Sequence numbers are 1-based, so a token ID is never zero.
func TokenID(tierID uint16, sequence uint64) uint64 {
	return sequence<<tierIDBits | uint64(tierID)
}

// TierOfToken recovers the tier ID from a token ID without a lookup table.
func TierOfToken(tokenID uint64) uint16 {
	return uint16(tokenID & tierIDMask)
}

// SequenceOfToken recovers the per-tier sequence number from a token ID.
func SequenceOfToken(tokenID uint64) uint64 {
	return tokenID >> tierIDBits
}

// TierParams carries the caller-supplied attributes for a new tier.
type TierParams struct {
	PriceFloor            *big.Int `json:"priceFloor"`
	InitialQuantity       uint32   `json:"initialQuantity"`
	VotingUnits           uint32   `json:"votingUnits"`
	LockedUntil           int64    `json:"lockedUntil"`
	ReservedRate          uint16   `json:"reservedRate"`
	ReservedBeneficiary   [20]byte `json:"reservedBeneficiary"`
	Category              uint32   `json:"category"`
	RoyaltyRate           uint16   `json:"royaltyRate"`
	AllowManualMint       bool     `json:"allowManualMint"`
	TransfersPausable     bool     `json:"transfersPausable"`
	UsePriceAsVotingUnits bool     `json:"usePriceAsVotingUnits"`
}

// Tier is a priced reward bucket with its own supply cap and attributes. IDs
// are dense and assigned at creation; they are never reused after removal, and
// a removed tier keeps its stored parameters so historical token lookups keep
// working.
type Tier struct {
	ID                    uint16   `json:"id"`
	PriceFloor            *big.Int `json:"priceFloor"`
	RemainingQuantity     uint32   `json:"remainingQuantity"`
	InitialQuantity       uint32   `json:"initialQuantity"`
	Minted                uint32   `json:"minted"`
	Burned                uint32   `json:"burned"`
	ReservedMinted        uint32   `json:"reservedMinted"`
	VotingUnits           uint32   `json:"votingUnits"`
	LockedUntil           int64    `json:"lockedUntil"`
	ReservedRate          uint16   `json:"reservedRate"`
	ReservedBeneficiary   [20]byte `json:"reservedBeneficiary"`
	Category              uint32   `json:"category"`
	RoyaltyRate           uint16   `json:"royaltyRate"`
	AllowManualMint       bool     `json:"allowManualMint"`
	TransfersPausable     bool     `json:"transfersPausable"`
	UsePriceAsVotingUnits bool     `json:"usePriceAsVotingUnits"`
	Removed               bool     `json:"removed"`
}

// Clone returns a deep copy of the tier so callers cannot mutate stored state.
func (t *Tier) Clone() *Tier {
	if t == nil {
		return nil
	}
	clone := *t
	if t.PriceFloor != nil {
		clone.PriceFloor = new(big.Int).Set(t.PriceFloor)
	}
	return &clone
}

// Weight returns the redemption weight one token from this tier carries.
func (t *Tier) Weight() *big.Int {
	if t == nil {
		return big.NewInt(0)
	}
	if t.UsePriceAsVotingUnits {
		if t.PriceFloor == nil {
			return big.NewInt(0)
		}
		return new(big.Int).Set(t.PriceFloor)
	}
	return new(big.Int).SetUint64(uint64(t.VotingUnits))
}

// nonReservedMinted derives how many tokens left the tier through the payment
// or manual paths, feeding the reserved entitlement calculation.
func (t *Tier) nonReservedMinted() uint32 {
	if t == nil || t.Minted < t.ReservedMinted {
		return 0
	}
	return t.Minted - t.ReservedMinted
}

// Flags gate contract-wide mutations. Each lock permanently rejects new tiers
// exercising the locked concern; PreventOverspending hard-fails payments that
// would strand unspent value as credit without an explicit opt-in.
type Flags struct {
	LockReservedRateChanges bool `json:"lockReservedRateChanges"`
	LockVotingUnitChanges   bool `json:"lockVotingUnitChanges"`
	LockManualMintChanges   bool `json:"lockManualMintChanges"`
	PreventOverspending     bool `json:"preventOverspending"`
}

// PayAmount describes a contribution before normalization into the reference
// currency: a raw value plus the currency code and decimal precision it is
// denominated in.
type PayAmount struct {
	Value    *big.Int `json:"value"`
	Currency uint32   `json:"currency"`
	Decimals uint8    `json:"decimals"`
}

// PayContext is the pay-time hook input delivered by the host protocol.
type PayContext struct {
	ProjectID   uint64    `json:"projectId"`
	Payer       [20]byte  `json:"payer"`
	Beneficiary [20]byte  `json:"beneficiary"`
	Amount      PayAmount `json:"amount"`
	Metadata    []byte    `json:"metadata"`
}

// Receipt summarises the outcome of a processed payment.
type Receipt struct {
	TokenIDs []uint64 `json:"tokenIds"`
	Leftover *big.Int `json:"leftover"`
}

// ProtocolMetadata mirrors the host protocol's current funding-cycle switches.
type ProtocolMetadata struct {
	TransfersPaused      bool `json:"transfersPaused"`
	ReserveMintingPaused bool `json:"reserveMintingPaused"`
}
