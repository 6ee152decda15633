package tiers

import "math/big"

// CreditOf returns the unspent contribution value carried forward for the
// beneficiary. Credits never expire; they are only rewritten by payment
// settlement.
func (e *Engine) CreditOf(addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	credit, err := e.state.CreditGet(addr)
	if err != nil {
		return nil, err
	}
	if credit == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(credit), nil
}

// setCredit persists the beneficiary's new credit balance and emits an
// increase or decrease observation carrying the old and new totals. A write
// only happens when the stored value actually changes.
func (e *Engine) setCredit(addr [20]byte, next *big.Int) error {
	current, err := e.CreditOf(addr)
	if err != nil {
		return err
	}
	if next == nil {
		next = big.NewInt(0)
	}
	cmp := next.Cmp(current)
	if cmp == 0 {
		return nil
	}
	if err := e.state.CreditPut(addr, new(big.Int).Set(next)); err != nil {
		return err
	}
	if cmp > 0 {
		e.metrics.ObserveCredit("increase")
		e.emit(CreditIncreased{Beneficiary: addr, Previous: current, Current: next})
	} else {
		e.metrics.ObserveCredit("decrease")
		e.emit(CreditDecreased{Beneficiary: addr, Previous: current, Current: next})
	}
	return nil
}
