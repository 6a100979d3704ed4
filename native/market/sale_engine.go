package market

import (
	"errors"
	"math/big"
	"time"

	"sparkmarket/core/events"
	"sparkmarket/core/types"
)

var errNilVerifier = errors.New("market: verifier not configured")

// SaleEngine owns the decaying-price listing and offer-book state machine.
// Each handler validates first, commits every internal mutation second, and
// performs outbound transfers only as its final phase so that no externally
// observable side effect ever sees stale listing state.
type SaleEngine struct {
	state    engineState
	emitter  events.Emitter
	claims   *ClaimLedger
	verifier CollectionVerifier
	vault    [20]byte
	nowFn    func() int64
}

// NewSaleEngine constructs a sale engine bound to the shared claim ledger.
func NewSaleEngine(claims *ClaimLedger) *SaleEngine {
	return &SaleEngine{
		claims:  claims,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *SaleEngine) SetState(state engineState) { e.state = state }

// SetVerifier configures the collection verification gate.
func (e *SaleEngine) SetVerifier(v CollectionVerifier) { e.verifier = v }

// SetVault configures the address holding escrowed funds and asset custody.
func (e *SaleEngine) SetVault(addr [20]byte) { e.vault = addr }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *SaleEngine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *SaleEngine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *SaleEngine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(wrapEvent(evt))
}

func (e *SaleEngine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *SaleEngine) loadSale(key ListingKey) (*Sale, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	sale, ok, err := e.state.SaleGet(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSaleNotFound
	}
	return sale, nil
}

// CreateSale pulls custody of the asset into the vault and records a new
// decaying-price listing starting at the current time.
func (e *SaleEngine) CreateSale(seller [20]byte, collection [20]byte, tokenID uint64, currency Currency, startPrice, endPrice *big.Int, duration int64) (*Sale, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.verifier == nil {
		return nil, errNilVerifier
	}
	if !currency.Valid() {
		return nil, ErrInvalidCurrency
	}
	verified, err := e.verifier.IsVerified(collection)
	if err != nil {
		return nil, err
	}
	if !verified {
		return nil, ErrNotVerified
	}
	key := ListingKey{Collection: collection, TokenID: tokenID}
	if _, ok, err := e.state.SaleGet(key); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAlreadyListed
	}
	sale := &Sale{
		Key:        key,
		Seller:     seller,
		Currency:   currency,
		StartPrice: cloneBigInt(startPrice),
		EndPrice:   cloneBigInt(endPrice),
		ListedAt:   e.now(),
		Duration:   duration,
	}
	sanitized, err := SanitizeSale(sale)
	if err != nil {
		return nil, err
	}
	owner, err := e.state.NFTOwner(collection, tokenID)
	if err != nil {
		return nil, err
	}
	if owner != seller {
		return nil, ErrUnauthorized
	}
	if err := e.state.NFTTransfer(collection, tokenID, seller, e.vault); err != nil {
		return nil, err
	}
	if err := e.state.SalePut(sanitized); err != nil {
		return nil, err
	}
	e.emit(newSaleCreatedEvent(sanitized))
	return sanitized.Clone(), nil
}

// GetSale returns a deep copy of the live sale for the key.
func (e *SaleEngine) GetSale(key ListingKey) (*Sale, error) {
	sale, err := e.loadSale(key)
	if err != nil {
		return nil, err
	}
	return sale.Clone(), nil
}

// CurrentPrice evaluates the decay curve at the current time. The result is
// always clamped to [endPrice, startPrice].
func (e *SaleEngine) CurrentPrice(key ListingKey) (*big.Int, error) {
	sale, err := e.loadSale(key)
	if err != nil {
		return nil, err
	}
	return priceAt(sale, e.now()), nil
}

// priceAt computes startPrice - (startPrice-endPrice)*min(t,duration)/duration
// for elapsed time t. A zero duration collapses the curve to endPrice.
func priceAt(sale *Sale, now int64) *big.Int {
	start := cloneBigInt(sale.StartPrice)
	end := cloneBigInt(sale.EndPrice)
	if sale.Duration <= 0 {
		return end
	}
	elapsed := now - sale.ListedAt
	if elapsed <= 0 {
		return start
	}
	if elapsed >= sale.Duration {
		return end
	}
	spread := new(big.Int).Sub(start, end)
	decay := new(big.Int).Mul(spread, big.NewInt(elapsed))
	decay.Div(decay, big.NewInt(sale.Duration))
	price := new(big.Int).Sub(start, decay)
	if price.Cmp(end) < 0 {
		return end
	}
	if price.Cmp(start) > 0 {
		return start
	}
	return price
}

// Buy settles the sale at the current price. Native payments must match the
// price exactly; overpayment is rejected rather than refunded. For the SPARK
// currency exactly the current price is pulled from the buyer's balance.
func (e *SaleEngine) Buy(buyer [20]byte, key ListingKey, value *big.Int) (*big.Int, error) {
	sale, err := e.loadSale(key)
	if err != nil {
		return nil, err
	}
	price := priceAt(sale, e.now())
	if sale.Currency == CurrencyNative {
		payment := cloneBigInt(value)
		if payment.Cmp(price) < 0 {
			return nil, ErrInsufficientPayment
		}
		if payment.Cmp(price) > 0 {
			return nil, ErrAmountMismatch
		}
	} else if value != nil && value.Sign() > 0 {
		return nil, ErrAmountMismatch
	}
	royalty, _, err := e.state.RoyaltyInfo(key.Collection, key.TokenID)
	if err != nil {
		return nil, err
	}
	if _, _, err := splitProceeds(price, royalty); err != nil {
		return nil, err
	}
	if err := transferCurrency(e.state, buyer, e.vault, sale.Currency, price); err != nil {
		return nil, err
	}
	if err := e.state.SaleDelete(key); err != nil {
		return nil, err
	}
	if err := e.creditOutstandingOffers(sale, nil); err != nil {
		return nil, err
	}
	if err := payOutProceeds(e.state, e.vault, sale.Seller, sale.Currency, price, royalty); err != nil {
		return nil, err
	}
	if err := e.state.NFTTransfer(key.Collection, key.TokenID, e.vault, buyer); err != nil {
		return nil, err
	}
	e.emit(newSaleSettledEvent(sale, buyer, price))
	return price, nil
}

// CancelSale returns custody to the seller and routes every outstanding
// offer's escrow into the claim ledger.
func (e *SaleEngine) CancelSale(caller [20]byte, key ListingKey) error {
	sale, err := e.loadSale(key)
	if err != nil {
		return err
	}
	if caller != sale.Seller {
		return ErrUnauthorized
	}
	if err := e.state.SaleDelete(key); err != nil {
		return err
	}
	if err := e.creditOutstandingOffers(sale, nil); err != nil {
		return err
	}
	if err := e.state.NFTTransfer(key.Collection, key.TokenID, e.vault, sale.Seller); err != nil {
		return err
	}
	e.emit(newSaleCancelledEvent(sale))
	return nil
}

// MakeOffer escrows amount and appends the offer to the sale's offer book in
// arrival order. An offerer may stack multiple outstanding offers.
func (e *SaleEngine) MakeOffer(caller [20]byte, key ListingKey, amount, value *big.Int) error {
	sale, err := e.loadSale(key)
	if err != nil {
		return err
	}
	if err := escrowFunds(e.state, caller, e.vault, sale.Currency, amount, value); err != nil {
		return err
	}
	offer := Offer{Offerer: caller, Amount: cloneBigInt(amount), MadeAt: e.now()}
	sale.Offers = append(sale.Offers, offer)
	if err := e.state.SalePut(sale); err != nil {
		return err
	}
	e.emit(newOfferMadeEvent(sale, offer))
	return nil
}

// CancelOffer removes the caller's earliest outstanding offer, preserving the
// relative order of the remainder, and refunds its escrow directly.
func (e *SaleEngine) CancelOffer(caller [20]byte, key ListingKey) error {
	sale, err := e.loadSale(key)
	if err != nil {
		return err
	}
	idx := -1
	for i := range sale.Offers {
		if sale.Offers[i].Offerer == caller {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrOfferNotFound
	}
	cancelled := sale.Offers[idx].Clone()
	sale.Offers = append(sale.Offers[:idx], sale.Offers[idx+1:]...)
	if err := e.state.SalePut(sale); err != nil {
		return err
	}
	if err := transferCurrency(e.state, e.vault, caller, sale.Currency, cancelled.Amount); err != nil {
		return err
	}
	e.emit(newOfferCancelledEvent(sale, cancelled))
	return nil
}

// AcceptOffer settles the sale with the highest outstanding offer, ties broken
// by earliest arrival. Every other offer's escrow moves to the claim ledger.
func (e *SaleEngine) AcceptOffer(caller [20]byte, key ListingKey) (*big.Int, error) {
	sale, err := e.loadSale(key)
	if err != nil {
		return nil, err
	}
	if caller != sale.Seller {
		return nil, ErrUnauthorized
	}
	if len(sale.Offers) == 0 {
		return nil, ErrNoOffers
	}
	best := 0
	for i := 1; i < len(sale.Offers); i++ {
		if sale.Offers[i].Amount.Cmp(sale.Offers[best].Amount) > 0 {
			best = i
		}
	}
	winner := sale.Offers[best].Clone()
	royalty, _, err := e.state.RoyaltyInfo(key.Collection, key.TokenID)
	if err != nil {
		return nil, err
	}
	if _, _, err := splitProceeds(winner.Amount, royalty); err != nil {
		return nil, err
	}
	if err := e.state.SaleDelete(key); err != nil {
		return nil, err
	}
	skip := best
	if err := e.creditOutstandingOffers(sale, &skip); err != nil {
		return nil, err
	}
	if err := payOutProceeds(e.state, e.vault, sale.Seller, sale.Currency, winner.Amount, royalty); err != nil {
		return nil, err
	}
	if err := e.state.NFTTransfer(key.Collection, key.TokenID, e.vault, winner.Offerer); err != nil {
		return nil, err
	}
	e.emit(newOfferAcceptedEvent(sale, winner))
	return cloneBigInt(winner.Amount), nil
}

// creditOutstandingOffers moves every offer's escrow into the claim ledger,
// except the offer at *skip when provided.
func (e *SaleEngine) creditOutstandingOffers(sale *Sale, skip *int) error {
	if e.claims == nil {
		return errNilState
	}
	for i := range sale.Offers {
		if skip != nil && i == *skip {
			continue
		}
		if err := e.claims.credit(sale.Offers[i].Offerer, sale.Currency, sale.Offers[i].Amount); err != nil {
			return err
		}
	}
	return nil
}
