package market

import (
	"errors"
	"math/big"
	"time"

	"sparkmarket/core/events"
	"sparkmarket/core/types"
)

var errNilState = errors.New("market: state not configured")

// ClaimLedger accumulates refundable escrow per (beneficiary, currency).
// Both engines credit it whenever a refund cannot or should not be pushed
// synchronously; beneficiaries withdraw the full balance at will.
type ClaimLedger struct {
	state   engineState
	emitter events.Emitter
	vault   [20]byte
	nowFn   func() int64
}

// NewClaimLedger constructs a claim ledger with a no-op emitter.
func NewClaimLedger() *ClaimLedger {
	return &ClaimLedger{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetNowFunc overrides the time source used by the ledger. Primarily intended
// for tests to provide deterministic timestamps.
func (l *ClaimLedger) SetNowFunc(now func() int64) {
	if now == nil {
		l.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	l.nowFn = now
}

func (l *ClaimLedger) now() int64 {
	if l == nil || l.nowFn == nil {
		return time.Now().Unix()
	}
	return l.nowFn()
}

// SetState configures the state backend used by the ledger.
func (l *ClaimLedger) SetState(state engineState) { l.state = state }

// SetVault configures the escrow vault claims are paid out of.
func (l *ClaimLedger) SetVault(addr [20]byte) { l.vault = addr }

// SetEmitter configures the event emitter used by the ledger. Passing nil
// resets the emitter to a no-op implementation.
func (l *ClaimLedger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

func (l *ClaimLedger) emit(evt *types.Event) {
	if l == nil || l.emitter == nil || evt == nil {
		return
	}
	l.emitter.Emit(wrapEvent(evt))
}

// ClaimableBalance returns the accumulated refundable amount for the
// beneficiary in the given currency, zero if none.
func (l *ClaimLedger) ClaimableBalance(beneficiary [20]byte, currency Currency) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	if !currency.Valid() {
		return nil, ErrInvalidCurrency
	}
	balance, err := l.state.ClaimableGet(beneficiary, currency)
	if err != nil {
		return nil, err
	}
	return cloneBigInt(balance), nil
}

// credit adds amount to the beneficiary's refundable balance. Engine-internal:
// the engines call it during settlement and supersession transitions, before
// any outbound transfer is attempted.
func (l *ClaimLedger) credit(beneficiary [20]byte, currency Currency, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := l.state.ClaimableGet(beneficiary, currency)
	if err != nil {
		return err
	}
	return l.state.ClaimablePut(beneficiary, currency, new(big.Int).Add(cloneBigInt(balance), amt))
}

// Claim withdraws the caller's full refundable balance in the given currency.
// The amount must match the balance exactly; partial withdrawals are not
// supported. The balance is zeroed before the payout is pushed.
func (l *ClaimLedger) Claim(caller [20]byte, amount *big.Int, currency Currency) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if !currency.Valid() {
		return ErrInvalidCurrency
	}
	balance, err := l.state.ClaimableGet(caller, currency)
	if err != nil {
		return err
	}
	balance = cloneBigInt(balance)
	if amount == nil || amount.Sign() <= 0 || balance.Cmp(amount) != 0 {
		return ErrClaimMismatch
	}
	if err := l.state.ClaimablePut(caller, currency, big.NewInt(0)); err != nil {
		return err
	}
	if err := transferCurrency(l.state, l.vault, caller, currency, balance); err != nil {
		return err
	}
	l.emit(newClaimWithdrawnEvent(caller, currency, balance, l.now()))
	return nil
}
