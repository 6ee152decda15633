package pricing

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// PriceOracle resolves an exchange rate between two currency codes. The
// returned rate expresses how many source units one target unit costs, as a
// fixed-point integer with the supplied number of decimals.
type PriceOracle interface {
	PriceFor(source uint32, target uint32, decimals uint8) (*big.Int, error)
}

// ErrUnresolvable indicates a contribution cannot be valued in the reference
// currency because no oracle is configured for the pair.
var ErrUnresolvable = errors.New("pricing: contribution value unresolvable")

// Context pins the reference currency and decimal precision all tier price
// floors are denominated in. A nil oracle disables cross-currency conversion.
type Context struct {
	Currency uint32
	Decimals uint8
	Oracle   PriceOracle
}

// Normalizer converts incoming contribution amounts into the reference
// currency and decimals used by the tier table.
type Normalizer struct {
	ctx Context
}

// NewNormalizer constructs a normalizer for the supplied pricing context.
func NewNormalizer(ctx Context) *Normalizer {
	return &Normalizer{ctx: ctx}
}

// Context returns the pricing context the normalizer was configured with.
func (n *Normalizer) Context() Context {
	if n == nil {
		return Context{}
	}
	return n.ctx
}

// Normalize converts the supplied amount from its own currency and decimal
// precision into the reference currency and decimals. Same-currency amounts
// are only rescaled. Cross-currency amounts require an oracle; without one the
// call fails with ErrUnresolvable and the caller decides how the value folds
// into credit accounting.
func (n *Normalizer) Normalize(amount *big.Int, currency uint32, decimals uint8) (*big.Int, error) {
	if n == nil {
		return nil, fmt.Errorf("pricing: normalizer not initialised")
	}
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("pricing: amount must be non-negative")
	}
	if currency == n.ctx.Currency {
		return rescale(amount, decimals, n.ctx.Decimals), nil
	}
	if n.ctx.Oracle == nil {
		return nil, ErrUnresolvable
	}
	rate, err := n.ctx.Oracle.PriceFor(currency, n.ctx.Currency, decimals)
	if err != nil {
		return nil, fmt.Errorf("pricing: oracle query failed: %w", err)
	}
	if rate == nil || rate.Sign() <= 0 {
		return nil, fmt.Errorf("pricing: oracle returned invalid rate")
	}
	value := mulDiv(amount, pow10(decimals), rate)
	return rescale(value, decimals, n.ctx.Decimals), nil
}

// mulDiv computes a*b/d at full precision. The uint256 fast path covers every
// realistic amount; the big.Int fallback keeps the math exact beyond 256 bits.
func mulDiv(a, b, d *big.Int) *big.Int {
	ua, aOver := uint256.FromBig(a)
	ub, bOver := uint256.FromBig(b)
	ud, dOver := uint256.FromBig(d)
	if !aOver && !bOver && !dOver && !ud.IsZero() {
		product := new(uint256.Int)
		if _, overflow := product.MulOverflow(ua, ub); !overflow {
			return product.Div(product, ud).ToBig()
		}
	}
	product := new(big.Int).Mul(a, b)
	return product.Quo(product, d)
}

func rescale(amount *big.Int, from uint8, to uint8) *big.Int {
	switch {
	case from == to:
		return new(big.Int).Set(amount)
	case from < to:
		return new(big.Int).Mul(amount, pow10(to-from))
	default:
		return new(big.Int).Quo(amount, pow10(from-to))
	}
}

func pow10(exp uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
}
