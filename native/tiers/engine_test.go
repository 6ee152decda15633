package tiers

import (
	"math/big"
	"testing"

	"tierforge/core/events"
	"tierforge/core/pricing"
)

const (
	testProjectID     = uint64(7)
	testCurrency      = uint32(1)
	testOtherCurrency = uint32(2)
	testRefDecimals   = uint8(0)
)

type mockState struct {
	tiers       map[uint16]*Tier
	count       uint16
	credits     map[[20]byte]*big.Int
	firstOwners map[uint64][20]byte
}

func newMockState() *mockState {
	return &mockState{
		tiers:       make(map[uint16]*Tier),
		credits:     make(map[[20]byte]*big.Int),
		firstOwners: make(map[uint64][20]byte),
	}
}

func (m *mockState) TierGet(id uint16) (*Tier, bool, error) {
	tier, ok := m.tiers[id]
	if !ok {
		return nil, false, nil
	}
	return tier.Clone(), true, nil
}

func (m *mockState) TierPut(tier *Tier) error {
	m.tiers[tier.ID] = tier.Clone()
	return nil
}

func (m *mockState) TierCount() (uint16, error) { return m.count, nil }

func (m *mockState) SetTierCount(count uint16) error {
	m.count = count
	return nil
}

func (m *mockState) CreditGet(addr [20]byte) (*big.Int, error) {
	if credit, ok := m.credits[addr]; ok {
		return new(big.Int).Set(credit), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) CreditPut(addr [20]byte, amount *big.Int) error {
	m.credits[addr] = new(big.Int).Set(amount)
	return nil
}

func (m *mockState) FirstOwnerGet(tokenID uint64) ([20]byte, bool, error) {
	owner, ok := m.firstOwners[tokenID]
	return owner, ok, nil
}

func (m *mockState) FirstOwnerPut(tokenID uint64, owner [20]byte) error {
	m.firstOwners[tokenID] = owner
	return nil
}

type mockLedger struct {
	owners map[uint64][20]byte
	minted []uint64
}

func newMockLedger() *mockLedger {
	return &mockLedger{owners: make(map[uint64][20]byte)}
}

func (m *mockLedger) Mint(to [20]byte, tokenID uint64) error {
	m.owners[tokenID] = to
	m.minted = append(m.minted, tokenID)
	return nil
}

func (m *mockLedger) OwnerOf(tokenID uint64) ([20]byte, bool, error) {
	owner, ok := m.owners[tokenID]
	return owner, ok, nil
}

type mockProtocol struct {
	meta ProtocolMetadata
}

func (m *mockProtocol) CurrentMetadata() ProtocolMetadata { return m.meta }

type mockAuthorizer struct {
	granted map[string]bool
}

func (m *mockAuthorizer) HasPermission(caller [20]byte, projectID uint64, operation string) bool {
	if m.granted == nil {
		return false
	}
	return m.granted[operation]
}

type recordingEmitter struct {
	events []events.Event
}

func (r *recordingEmitter) Emit(evt events.Event) { r.events = append(r.events, evt) }

func (r *recordingEmitter) byType(eventType string) []events.Event {
	var out []events.Event
	for _, evt := range r.events {
		if evt.EventType() == eventType {
			out = append(out, evt)
		}
	}
	return out
}

func addr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

type testEnv struct {
	engine   *Engine
	state    *mockState
	ledger   *mockLedger
	protocol *mockProtocol
	emitter  *recordingEmitter
	owner    [20]byte
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		state:    newMockState(),
		ledger:   newMockLedger(),
		protocol: &mockProtocol{},
		emitter:  &recordingEmitter{},
		owner:    addr(0xEE),
	}
	env.engine = NewEngine(testProjectID, env.owner)
	env.engine.SetState(env.state)
	env.engine.SetTokenLedger(env.ledger)
	env.engine.SetProtocolContext(env.protocol)
	env.engine.SetEmitter(env.emitter)
	env.engine.SetNormalizer(pricing.NewNormalizer(pricing.Context{
		Currency: testCurrency,
		Decimals: testRefDecimals,
	}))
	env.engine.SetNowFunc(func() int64 { return 1_000 })
	return env
}

// seedLadder installs tiers with price floors 10, 20, ..., 10*n and the given
// per-tier quantity.
func (env *testEnv) seedLadder(t *testing.T, n int, quantity uint32) []uint16 {
	t.Helper()
	params := make([]TierParams, 0, n)
	for i := 1; i <= n; i++ {
		params = append(params, TierParams{
			PriceFloor:      big.NewInt(int64(10 * i)),
			InitialQuantity: quantity,
		})
	}
	ids, err := env.engine.AddTiers(env.owner, params)
	if err != nil {
		t.Fatalf("seeding tiers failed: %v", err)
	}
	return ids
}

func (env *testEnv) pay(t *testing.T, payer, beneficiary [20]byte, amount int64, metadata []byte) *Receipt {
	t.Helper()
	receipt, err := env.engine.RecordPayment(PayContext{
		ProjectID:   testProjectID,
		Payer:       payer,
		Beneficiary: beneficiary,
		Amount:      PayAmount{Value: big.NewInt(amount), Currency: testCurrency, Decimals: testRefDecimals},
		Metadata:    metadata,
	})
	if err != nil {
		t.Fatalf("payment failed: %v", err)
	}
	return receipt
}

func explicitList(tierIDs ...uint16) []byte {
	return EncodePayMetadata(PayMetadata{TierIDs: tierIDs})
}

func creditOf(t *testing.T, env *testEnv, addr [20]byte) *big.Int {
	t.Helper()
	credit, err := env.engine.CreditOf(addr)
	if err != nil {
		t.Fatalf("credit lookup failed: %v", err)
	}
	return credit
}
