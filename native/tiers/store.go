package tiers

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"tierforge/storage"
)

const (
	tierKeyFormat       = "tiers/tier/%05d"
	tierCountKey        = "tiers/count"
	creditKeyPrefix     = "tiers/credit/"
	firstOwnerKeyFormat = "tiers/firstowner/%020d"
)

// Store persists tier, credit and first-owner records in a key-value store
// using canonical RLP encoding. It implements the engine State interface.
type Store struct {
	db storage.Database
	mu sync.RWMutex
}

// NewStore constructs a tier store backed by the supplied key-value store.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

type storedTier struct {
	ID                    uint16
	PriceFloor            []byte
	RemainingQuantity     uint32
	InitialQuantity       uint32
	Minted                uint32
	Burned                uint32
	ReservedMinted        uint32
	VotingUnits           uint32
	LockedUntil           uint64
	ReservedRate          uint16
	ReservedBeneficiary   []byte
	Category              uint32
	RoyaltyRate           uint16
	AllowManualMint       bool
	TransfersPausable     bool
	UsePriceAsVotingUnits bool
	Removed               bool
}

func tierKey(id uint16) []byte {
	return []byte(fmt.Sprintf(tierKeyFormat, id))
}

func creditKey(addr [20]byte) []byte {
	return []byte(creditKeyPrefix + hex.EncodeToString(addr[:]))
}

func firstOwnerKey(tokenID uint64) []byte {
	return []byte(fmt.Sprintf(firstOwnerKeyFormat, tokenID))
}

// TierGet loads the tier record for the supplied ID.
func (s *Store) TierGet(id uint16) (*Tier, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ok, err := s.db.Has(tierKey(id))
	if err != nil || !ok {
		return nil, false, err
	}
	raw, err := s.db.Get(tierKey(id))
	if err != nil {
		return nil, false, err
	}
	var stored storedTier
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, false, fmt.Errorf("tiers store: decode tier %d: %w", id, err)
	}
	tier := &Tier{
		ID:                    stored.ID,
		PriceFloor:            new(big.Int).SetBytes(stored.PriceFloor),
		RemainingQuantity:     stored.RemainingQuantity,
		InitialQuantity:       stored.InitialQuantity,
		Minted:                stored.Minted,
		Burned:                stored.Burned,
		ReservedMinted:        stored.ReservedMinted,
		VotingUnits:           stored.VotingUnits,
		LockedUntil:           int64(stored.LockedUntil),
		ReservedRate:          stored.ReservedRate,
		Category:              stored.Category,
		RoyaltyRate:           stored.RoyaltyRate,
		AllowManualMint:       stored.AllowManualMint,
		TransfersPausable:     stored.TransfersPausable,
		UsePriceAsVotingUnits: stored.UsePriceAsVotingUnits,
		Removed:               stored.Removed,
	}
	copy(tier.ReservedBeneficiary[:], stored.ReservedBeneficiary)
	return tier, true, nil
}

// TierPut stores the tier record under its ID.
func (s *Store) TierPut(tier *Tier) error {
	if tier == nil {
		return fmt.Errorf("tiers store: nil tier")
	}
	if tier.LockedUntil < 0 {
		return fmt.Errorf("tiers store: negative lock horizon")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := storedTier{
		ID:                    tier.ID,
		RemainingQuantity:     tier.RemainingQuantity,
		InitialQuantity:       tier.InitialQuantity,
		Minted:                tier.Minted,
		Burned:                tier.Burned,
		ReservedMinted:        tier.ReservedMinted,
		VotingUnits:           tier.VotingUnits,
		LockedUntil:           uint64(tier.LockedUntil),
		ReservedRate:          tier.ReservedRate,
		ReservedBeneficiary:   tier.ReservedBeneficiary[:],
		Category:              tier.Category,
		RoyaltyRate:           tier.RoyaltyRate,
		AllowManualMint:       tier.AllowManualMint,
		TransfersPausable:     tier.TransfersPausable,
		UsePriceAsVotingUnits: tier.UsePriceAsVotingUnits,
		Removed:               tier.Removed,
	}
	if tier.PriceFloor != nil {
		stored.PriceFloor = tier.PriceFloor.Bytes()
	}
	raw, err := rlp.EncodeToBytes(&stored)
	if err != nil {
		return fmt.Errorf("tiers store: encode tier %d: %w", tier.ID, err)
	}
	return s.db.Put(tierKey(tier.ID), raw)
}

// TierCount returns the number of tier IDs assigned so far.
func (s *Store) TierCount() (uint16, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ok, err := s.db.Has([]byte(tierCountKey))
	if err != nil || !ok {
		return 0, err
	}
	raw, err := s.db.Get([]byte(tierCountKey))
	if err != nil {
		return 0, err
	}
	if len(raw) != 2 {
		return 0, fmt.Errorf("tiers store: malformed tier count")
	}
	return binary.BigEndian.Uint16(raw), nil
}

// SetTierCount records the number of tier IDs assigned so far.
func (s *Store) SetTierCount(count uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw := make([]byte, 2)
	binary.BigEndian.PutUint16(raw, count)
	return s.db.Put([]byte(tierCountKey), raw)
}

// CreditGet loads the stored credit balance for the beneficiary, zero when
// no balance was ever written.
func (s *Store) CreditGet(addr [20]byte) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ok, err := s.db.Has(creditKey(addr))
	if err != nil || !ok {
		return big.NewInt(0), err
	}
	raw, err := s.db.Get(creditKey(addr))
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(raw), nil
}

// CreditPut stores the credit balance for the beneficiary.
func (s *Store) CreditPut(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("tiers store: credit must be non-negative")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Put(creditKey(addr), amount.Bytes())
}

// FirstOwnerGet loads the recorded first owner for the token, reporting
// whether a record exists.
func (s *Store) FirstOwnerGet(tokenID uint64) ([20]byte, bool, error) {
	var owner [20]byte
	s.mu.RLock()
	defer s.mu.RUnlock()
	ok, err := s.db.Has(firstOwnerKey(tokenID))
	if err != nil || !ok {
		return owner, false, err
	}
	raw, err := s.db.Get(firstOwnerKey(tokenID))
	if err != nil {
		return owner, false, err
	}
	if len(raw) != len(owner) {
		return owner, false, fmt.Errorf("tiers store: malformed first owner record")
	}
	copy(owner[:], raw)
	return owner, true, nil
}

// FirstOwnerPut records the first owner for the token.
func (s *Store) FirstOwnerPut(tokenID uint64, owner [20]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Put(firstOwnerKey(tokenID), owner[:])
}
