package market

import (
	"fmt"
	"math/big"

	"sparkmarket/core/types"
)

const royaltyDenominator = 10_000

// engineState is the narrow persistence surface shared by the sale engine,
// the auction engine and the claim ledger. Custody transfer and royalty
// metadata are external capabilities surfaced through the same interface.
type engineState interface {
	SaleGet(key ListingKey) (*Sale, bool, error)
	SalePut(sale *Sale) error
	SaleDelete(key ListingKey) error
	AuctionGet(key ListingKey) (*Auction, bool, error)
	AuctionPut(auction *Auction) error
	AuctionDelete(key ListingKey) error
	ClaimableGet(beneficiary [20]byte, currency Currency) (*big.Int, error)
	ClaimablePut(beneficiary [20]byte, currency Currency, amount *big.Int) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
	NFTOwner(collection [20]byte, tokenID uint64) ([20]byte, error)
	NFTTransfer(collection [20]byte, tokenID uint64, from, to [20]byte) error
	RoyaltyInfo(collection [20]byte, tokenID uint64) (*Royalty, bool, error)
}

// CollectionVerifier answers whether a collection has been onboarded and
// verified. The registry engine satisfies this interface.
type CollectionVerifier interface {
	IsVerified(collection [20]byte) (bool, error)
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{BalanceNative: big.NewInt(0), BalanceSpark: big.NewInt(0)}
	}
	if acc.BalanceNative == nil {
		acc.BalanceNative = big.NewInt(0)
	}
	if acc.BalanceSpark == nil {
		acc.BalanceSpark = big.NewInt(0)
	}
	return acc
}

// transferCurrency moves amount between two accounts in the given currency.
func transferCurrency(state engineState, from, to [20]byte, currency Currency, amount *big.Int) error {
	if state == nil {
		return fmt.Errorf("market: state not configured")
	}
	if !currency.Valid() {
		return ErrInvalidCurrency
	}
	amt := cloneBigInt(amount)
	if amt.Sign() < 0 {
		return fmt.Errorf("market: negative transfer amount")
	}
	if amt.Sign() == 0 {
		return nil
	}
	fromAcc, err := state.GetAccount(from[:])
	if err != nil {
		return err
	}
	toAcc, err := state.GetAccount(to[:])
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	toAcc = ensureAccount(toAcc)
	switch currency {
	case CurrencyNative:
		if fromAcc.BalanceNative.Cmp(amt) < 0 {
			return ErrInsufficientFunds
		}
		fromAcc.BalanceNative = new(big.Int).Sub(fromAcc.BalanceNative, amt)
		toAcc.BalanceNative = new(big.Int).Add(toAcc.BalanceNative, amt)
	case CurrencySpark:
		if fromAcc.BalanceSpark.Cmp(amt) < 0 {
			return ErrInsufficientFunds
		}
		fromAcc.BalanceSpark = new(big.Int).Sub(fromAcc.BalanceSpark, amt)
		toAcc.BalanceSpark = new(big.Int).Add(toAcc.BalanceSpark, amt)
	}
	if err := state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return state.PutAccount(to[:], toAcc)
}

// escrowFunds pulls amount from the payer into the vault. For the native
// currency the value attached to the call must equal the declared amount; for
// the SPARK token no value may be attached and the amount is pulled from the
// payer's balance.
func escrowFunds(state engineState, payer, vault [20]byte, currency Currency, amount, value *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	switch currency {
	case CurrencyNative:
		if value == nil || value.Cmp(amount) != 0 {
			return ErrAmountMismatch
		}
	case CurrencySpark:
		if value != nil && value.Sign() > 0 {
			return ErrAmountMismatch
		}
	default:
		return ErrInvalidCurrency
	}
	return transferCurrency(state, payer, vault, currency, amount)
}

// splitProceeds divides an amount between the royalty receiver and the
// seller. Integer division rounds the royalty share down, so any remainder
// stays with the seller and the two shares always sum to the full amount.
func splitProceeds(amount *big.Int, royalty *Royalty) (royaltyShare, sellerShare *big.Int, err error) {
	total := cloneBigInt(amount)
	if royalty == nil {
		return big.NewInt(0), total, nil
	}
	if royalty.BasisPoints > royaltyDenominator {
		return nil, nil, ErrInvalidRoyalty
	}
	royaltyShare = new(big.Int).Mul(total, new(big.Int).SetUint64(uint64(royalty.BasisPoints)))
	royaltyShare.Div(royaltyShare, big.NewInt(royaltyDenominator))
	sellerShare = new(big.Int).Sub(total, royaltyShare)
	return royaltyShare, sellerShare, nil
}

// payOutProceeds pushes the royalty and seller shares of a settlement amount.
func payOutProceeds(state engineState, vault, seller [20]byte, currency Currency, amount *big.Int, royalty *Royalty) error {
	royaltyShare, sellerShare, err := splitProceeds(amount, royalty)
	if err != nil {
		return err
	}
	if royaltyShare.Sign() > 0 {
		if err := transferCurrency(state, vault, royalty.Receiver, currency, royaltyShare); err != nil {
			return err
		}
	}
	if sellerShare.Sign() > 0 {
		if err := transferCurrency(state, vault, seller, currency, sellerShare); err != nil {
			return err
		}
	}
	return nil
}
