package tiers

import (
	"math/big"
	"time"

	"tierforge/core/events"
	"tierforge/core/pricing"
	"tierforge/observability"
)

// Permission operations checked against the authorization gate.
const (
	PermissionAdjustTiers  = "tiers.adjust"
	PermissionMintManual   = "tiers.mint_manual"
	PermissionMintReserved = "tiers.mint_reserved"
)

// State describes the minimal persistence functionality the tier engine needs
// from the surrounding state implementation.
type State interface {
	TierGet(id uint16) (*Tier, bool, error)
	TierPut(tier *Tier) error
	TierCount() (uint16, error)
	SetTierCount(count uint16) error
	CreditGet(addr [20]byte) (*big.Int, error)
	CreditPut(addr [20]byte, amount *big.Int) error
	FirstOwnerGet(tokenID uint64) ([20]byte, bool, error)
	FirstOwnerPut(tokenID uint64, owner [20]byte) error
}

// TokenLedger is the outer ownership ledger the engine mints into. The engine
// never extends it; it only calls the mint primitive and reads ownership.
type TokenLedger interface {
	Mint(to [20]byte, tokenID uint64) error
	OwnerOf(tokenID uint64) ([20]byte, bool, error)
}

// ProtocolContext exposes the host protocol's current funding-cycle switches.
type ProtocolContext interface {
	CurrentMetadata() ProtocolMetadata
}

// Authorizer is the yes/no permission gate guarding administrative entry
// points.
type Authorizer interface {
	HasPermission(caller [20]byte, projectID uint64, operation string) bool
}

// PostTransferHook receives completed transfers after all ledger mutations
// are committed, e.g. to maintain governance voting snapshots.
type PostTransferHook interface {
	TransferRecorded(from [20]byte, to [20]byte, tokenID uint64)
}

// Engine wires tier accounting business logic with persistence, pricing,
// event emission and the outer token ledger.
//
// All state writes within an operation are committed before any collaborator
// that could re-enter the engine is invoked, so a reentrant call observes
// fully settled ledgers.
type Engine struct {
	state        State
	ledger       TokenLedger
	normalizer   *pricing.Normalizer
	protocol     ProtocolContext
	auth         Authorizer
	emitter      events.Emitter
	transferHook PostTransferHook
	metrics      *observability.TierMetrics
	nowFn        func() int64

	projectID           uint64
	owner               [20]byte
	reservedBeneficiary [20]byte
	flags               Flags
}

// NewEngine constructs a tier engine with default dependencies.
func NewEngine(projectID uint64, owner [20]byte) *Engine {
	return &Engine{
		emitter:   events.NoopEmitter{},
		nowFn:     func() int64 { return time.Now().Unix() },
		projectID: projectID,
		owner:     owner,
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// SetTokenLedger configures the outer ownership ledger tokens are minted into.
func (e *Engine) SetTokenLedger(ledger TokenLedger) { e.ledger = ledger }

// SetNormalizer configures the pricing normalizer used to value contributions.
func (e *Engine) SetNormalizer(n *pricing.Normalizer) { e.normalizer = n }

// SetProtocolContext configures the funding-cycle metadata source.
func (e *Engine) SetProtocolContext(ctx ProtocolContext) { e.protocol = ctx }

// SetAuthorizer configures the permission gate for administrative calls.
func (e *Engine) SetAuthorizer(auth Authorizer) { e.auth = auth }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetTransferHook configures the optional post-transfer accounting hook.
func (e *Engine) SetTransferHook(hook PostTransferHook) { e.transferHook = hook }

// SetMetrics configures the optional metrics registry.
func (e *Engine) SetMetrics(m *observability.TierMetrics) { e.metrics = m }

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetFlags configures the contract-wide mutation gates.
func (e *Engine) SetFlags(flags Flags) { e.flags = flags }

// Flags returns the contract-wide mutation gates.
func (e *Engine) Flags() Flags { return e.flags }

// SetReservedBeneficiary configures the engine-wide fallback recipient for
// reserved token mints.
func (e *Engine) SetReservedBeneficiary(addr [20]byte) { e.reservedBeneficiary = addr }

// ProjectID returns the host protocol project this engine serves.
func (e *Engine) ProjectID() uint64 { return e.projectID }

func (e *Engine) emit(evt events.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) authorized(caller [20]byte, operation string) bool {
	if caller == e.owner {
		return true
	}
	if e.auth == nil {
		return false
	}
	return e.auth.HasPermission(caller, e.projectID, operation)
}

func (e *Engine) protocolMetadata() ProtocolMetadata {
	if e == nil || e.protocol == nil {
		return ProtocolMetadata{}
	}
	return e.protocol.CurrentMetadata()
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}
