package types

import "math/big"

// Account tracks the balances the marketplace can move on behalf of an
// address: the native settlement currency and the SPARK fungible token.
type Account struct {
	BalanceNative *big.Int `json:"balanceNative"`
	BalanceSpark  *big.Int `json:"balanceSpark"`
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	if a.BalanceNative != nil {
		clone.BalanceNative = new(big.Int).Set(a.BalanceNative)
	}
	if a.BalanceSpark != nil {
		clone.BalanceSpark = new(big.Int).Set(a.BalanceSpark)
	}
	return &clone
}
