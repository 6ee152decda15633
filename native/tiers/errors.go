package tiers

import "errors"

var (
	// ErrInvalidTier flags a reference to a tier that does not exist or has
	// been removed from mint eligibility.
	ErrInvalidTier = errors.New("tiers engine: invalid tier")
	// ErrTierLocked flags a removal attempted before the tier's lock horizon.
	ErrTierLocked = errors.New("tiers engine: tier locked")
	// ErrOverspending flags a payment whose leftover value is disallowed.
	ErrOverspending = errors.New("tiers engine: overspending")
	// ErrInsufficientReserves flags a reserved mint beyond the entitlement.
	ErrInsufficientReserves = errors.New("tiers engine: insufficient reserves")
	// ErrTransfersPaused flags a transfer while the tier's pause is active.
	ErrTransfersPaused = errors.New("tiers engine: transfers paused")
	// ErrSupplyExhausted flags a mint from a tier with no remaining quantity.
	ErrSupplyExhausted = errors.New("tiers engine: supply exhausted")
	// ErrUnauthorized flags a caller the authorization gate rejected.
	ErrUnauthorized = errors.New("tiers engine: unauthorized")
	// ErrInvalidPriceSortOrder flags tier additions not sorted by price floor.
	ErrInvalidPriceSortOrder = errors.New("tiers engine: invalid price sort order")
	// ErrManualMintDisabled flags a manual mint from a tier that forbids it.
	ErrManualMintDisabled = errors.New("tiers engine: manual minting disabled")
	// ErrReserveMintingPaused flags a reserved mint while the host protocol
	// pauses reserve distribution.
	ErrReserveMintingPaused = errors.New("tiers engine: reserve minting paused")
	// ErrWrongProject flags a pay hook invocation for a foreign project.
	ErrWrongProject = errors.New("tiers engine: wrong project")

	errNilState           = errors.New("tiers engine: state not configured")
	errNilLedger          = errors.New("tiers engine: token ledger not configured")
	errReservedRateLocked = errors.New("tiers engine: reserved rate changes locked")
	errVotingUnitsLocked  = errors.New("tiers engine: voting unit changes locked")
	errManualMintLocked   = errors.New("tiers engine: manual mint changes locked")
	errTierTableFull      = errors.New("tiers engine: tier id space exhausted")
	errInvalidTierParams  = errors.New("tiers engine: invalid tier params")
	errUnknownToken       = errors.New("tiers engine: unknown token")
	errOwnerNotSet        = errors.New("tiers engine: project owner not configured")
)
