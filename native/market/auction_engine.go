package market

import (
	"math/big"
	"time"

	"sparkmarket/core/events"
	"sparkmarket/core/types"
)

// AuctionEngine owns the open-bid listing state machine. It shares the claim
// ledger and state backend with the sale engine but keeps independent listing
// records; custody possession enforces mutual exclusion between the two.
type AuctionEngine struct {
	state    engineState
	emitter  events.Emitter
	claims   *ClaimLedger
	verifier CollectionVerifier
	vault    [20]byte
	nowFn    func() int64
}

// NewAuctionEngine constructs an auction engine bound to the shared claim
// ledger.
func NewAuctionEngine(claims *ClaimLedger) *AuctionEngine {
	return &AuctionEngine{
		claims:  claims,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *AuctionEngine) SetState(state engineState) { e.state = state }

// SetVerifier configures the collection verification gate.
func (e *AuctionEngine) SetVerifier(v CollectionVerifier) { e.verifier = v }

// SetVault configures the address holding escrowed funds and asset custody.
func (e *AuctionEngine) SetVault(addr [20]byte) { e.vault = addr }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *AuctionEngine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *AuctionEngine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *AuctionEngine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(wrapEvent(evt))
}

func (e *AuctionEngine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *AuctionEngine) loadAuction(key ListingKey) (*Auction, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	auction, ok, err := e.state.AuctionGet(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAuctionNotFound
	}
	return auction, nil
}

// CreateAuction pulls custody of the asset into the vault and opens a new
// auction with an empty highest-bid slot. No reserve price is required.
func (e *AuctionEngine) CreateAuction(seller [20]byte, collection [20]byte, tokenID uint64, currency Currency) (*Auction, error) {
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
	if _, ok, err := e.state.AuctionGet(key); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAlreadyListed
	}
	owner, err := e.state.NFTOwner(collection, tokenID)
	if err != nil {
		return nil, err
	}
	if owner != seller {
		return nil, ErrUnauthorized
	}
	auction := &Auction{
		Key:       key,
		Seller:    seller,
		Currency:  currency,
		CreatedAt: e.now(),
	}
	if err := e.state.NFTTransfer(collection, tokenID, seller, e.vault); err != nil {
		return nil, err
	}
	if err := e.state.AuctionPut(auction); err != nil {
		return nil, err
	}
	e.emit(newAuctionCreatedEvent(auction))
	return auction.Clone(), nil
}

// GetAuction returns a deep copy of the live auction for the key.
func (e *AuctionEngine) GetAuction(key ListingKey) (*Auction, error) {
	auction, err := e.loadAuction(key)
	if err != nil {
		return nil, err
	}
	return auction.Clone(), nil
}

// Bid escrows a new highest bid. A superseded bidder's escrow is credited to
// the claim ledger rather than pushed back synchronously, so an untrusted
// refund path can never block the new bid.
func (e *AuctionEngine) Bid(caller [20]byte, key ListingKey, amount, value *big.Int) error {
	auction, err := e.loadAuction(key)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if auction.HighestBid != nil && amount.Cmp(auction.HighestBid.Amount) <= 0 {
		return ErrBidTooLow
	}
	if err := escrowFunds(e.state, caller, e.vault, auction.Currency, amount, value); err != nil {
		return err
	}
	superseded := auction.HighestBid.Clone()
	if superseded != nil {
		if err := e.claims.credit(superseded.Bidder, auction.Currency, superseded.Amount); err != nil {
			return err
		}
	}
	bid := &Bid{Bidder: caller, Amount: cloneBigInt(amount), PlacedAt: e.now()}
	auction.HighestBid = bid
	if err := e.state.AuctionPut(auction); err != nil {
		return err
	}
	e.emit(newBidPlacedEvent(auction, bid))
	return nil
}

// CancelBid clears the highest-bid slot and refunds the caller's escrow
// directly. Only the current highest bidder may cancel.
func (e *AuctionEngine) CancelBid(caller [20]byte, key ListingKey) error {
	auction, err := e.loadAuction(key)
	if err != nil {
		return err
	}
	if auction.HighestBid == nil || auction.HighestBid.Bidder != caller {
		return ErrUnauthorized
	}
	cancelled := auction.HighestBid.Clone()
	auction.HighestBid = nil
	if err := e.state.AuctionPut(auction); err != nil {
		return err
	}
	if err := transferCurrency(e.state, e.vault, caller, auction.Currency, cancelled.Amount); err != nil {
		return err
	}
	e.emit(newBidCancelledEvent(auction, cancelled))
	return nil
}

// AcceptBid settles the auction with the current highest bid, splitting the
// proceeds between royalty receiver and seller and handing custody to the
// bidder. Superseded bidders were already routed to the claim ledger.
func (e *AuctionEngine) AcceptBid(caller [20]byte, key ListingKey) (*big.Int, error) {
	auction, err := e.loadAuction(key)
	if err != nil {
		return nil, err
	}
	if caller != auction.Seller {
		return nil, ErrUnauthorized
	}
	if auction.HighestBid == nil {
		return nil, ErrNoBids
	}
	winner := auction.HighestBid.Clone()
	royalty, _, err := e.state.RoyaltyInfo(key.Collection, key.TokenID)
	if err != nil {
		return nil, err
	}
	if _, _, err := splitProceeds(winner.Amount, royalty); err != nil {
		return nil, err
	}
	if err := e.state.AuctionDelete(key); err != nil {
		return nil, err
	}
	if err := payOutProceeds(e.state, e.vault, auction.Seller, auction.Currency, winner.Amount, royalty); err != nil {
		return nil, err
	}
	if err := e.state.NFTTransfer(key.Collection, key.TokenID, e.vault, winner.Bidder); err != nil {
		return nil, err
	}
	e.emit(newBidAcceptedEvent(auction, winner))
	return cloneBigInt(winner.Amount), nil
}

// CancelAuction returns custody to the seller. A live highest bid moves to the
// claim ledger for the bidder to withdraw.
func (e *AuctionEngine) CancelAuction(caller [20]byte, key ListingKey) error {
	auction, err := e.loadAuction(key)
	if err != nil {
		return err
	}
	if caller != auction.Seller {
		return ErrUnauthorized
	}
	if err := e.state.AuctionDelete(key); err != nil {
		return err
	}
	if auction.HighestBid != nil {
		if err := e.claims.credit(auction.HighestBid.Bidder, auction.Currency, auction.HighestBid.Amount); err != nil {
			return err
		}
	}
	if err := e.state.NFTTransfer(key.Collection, key.TokenID, e.vault, auction.Seller); err != nil {
		return err
	}
	e.emit(newAuctionCancelledEvent(auction))
	return nil
}
