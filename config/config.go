package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config describes a tier engine deployment: which project it serves, the
// reference currency tier price floors are denominated in, the contract-wide
// flags, and where the ledger store lives on disk.
type Config struct {
	ProjectID           uint64 `toml:"ProjectID"`
	Owner               string `toml:"Owner"`
	ReservedBeneficiary string `toml:"ReservedBeneficiary,omitempty"`
	ReferenceCurrency   uint32 `toml:"ReferenceCurrency"`
	ReferenceDecimals   uint8  `toml:"ReferenceDecimals"`
	DataDir             string `toml:"DataDir"`

	Flags FlagsConfig `toml:"Flags"`
}

// FlagsConfig mirrors the engine's contract-wide mutation gates.
type FlagsConfig struct {
	LockReservedRateChanges bool `toml:"LockReservedRateChanges"`
	LockVotingUnitChanges   bool `toml:"LockVotingUnitChanges"`
	LockManualMintChanges   bool `toml:"LockManualMintChanges"`
	PreventOverspending     bool `toml:"PreventOverspending"`
}

// Load reads and validates the configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for structural problems and fills in
// defaults where the file left fields empty.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("nil config")
	}
	if c.ProjectID == 0 {
		return fmt.Errorf("ProjectID must be set")
	}
	if _, err := ParseAddress(c.Owner); err != nil {
		return fmt.Errorf("Owner: %w", err)
	}
	if strings.TrimSpace(c.ReservedBeneficiary) != "" {
		if _, err := ParseAddress(c.ReservedBeneficiary); err != nil {
			return fmt.Errorf("ReservedBeneficiary: %w", err)
		}
	}
	if c.ReferenceDecimals > 30 {
		return fmt.Errorf("ReferenceDecimals out of range")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./tierforge-data"
	}
	return nil
}

// OwnerAddress returns the parsed project owner address.
func (c *Config) OwnerAddress() [20]byte {
	addr, _ := ParseAddress(c.Owner)
	return addr
}

// ReservedBeneficiaryAddress returns the parsed engine-wide reserved token
// beneficiary, the zero address when unset.
func (c *Config) ReservedBeneficiaryAddress() [20]byte {
	if strings.TrimSpace(c.ReservedBeneficiary) == "" {
		return [20]byte{}
	}
	addr, _ := ParseAddress(c.ReservedBeneficiary)
	return addr
}

// ParseAddress decodes a 0x-prefixed 20-byte hex address.
func ParseAddress(s string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(raw) != len(addr) {
		return addr, fmt.Errorf("invalid address %q: want %d bytes", s, len(addr))
	}
	copy(addr[:], raw)
	return addr, nil
}
