package market

import (
	"errors"
	"math/big"
)

// Currency enumerates the settlement currencies supported by the marketplace.
// Native amounts are bound to the call that carries them; SPARK amounts are
// pulled from the payer's balance at escrow time.
type Currency uint8

const (
	CurrencyNative Currency = iota
	CurrencySpark
)

// Valid reports whether the currency value is within the supported range.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyNative, CurrencySpark:
		return true
	default:
		return false
	}
}

func (c Currency) String() string {
	switch c {
	case CurrencyNative:
		return "native"
	case CurrencySpark:
		return "spark"
	default:
		return "unknown"
	}
}

var (
	ErrNotVerified         = errors.New("market: collection not verified")
	ErrAlreadyListed       = errors.New("market: asset already listed")
	ErrSaleNotFound        = errors.New("market: sale not found")
	ErrAuctionNotFound     = errors.New("market: auction not found")
	ErrUnauthorized        = errors.New("market: unauthorized caller")
	ErrInsufficientPayment = errors.New("market: payment below current price")
	ErrBidTooLow           = errors.New("market: bid does not beat current highest")
	ErrNoOffers            = errors.New("market: no outstanding offers")
	ErrNoBids              = errors.New("market: no outstanding bid")
	ErrOfferNotFound       = errors.New("market: offer not found")
	ErrAmountMismatch      = errors.New("market: attached value does not match amount")
	ErrClaimMismatch       = errors.New("market: claim amount does not match balance")
	ErrInvalidCurrency     = errors.New("market: unsupported currency")
	ErrInvalidAmount       = errors.New("market: amount must be positive")
	ErrInvalidPricing      = errors.New("market: invalid price curve")
	ErrInvalidRoyalty      = errors.New("market: royalty basis points out of range")
	ErrInsufficientFunds   = errors.New("market: insufficient balance")
)

// ListingKey identifies a single asset: at most one live Sale and one live
// Auction may exist for a key at any time.
type ListingKey struct {
	Collection [20]byte `json:"collection"`
	TokenID    uint64   `json:"tokenId"`
}

// Offer is a single escrowed off-list offer appended to a sale in arrival
// order. Offers are not deduplicated by offerer.
type Offer struct {
	Offerer [20]byte `json:"offerer"`
	Amount  *big.Int `json:"amount"`
	MadeAt  int64    `json:"madeAt"`
}

// Clone returns a deep copy of the offer.
func (o Offer) Clone() Offer {
	clone := o
	if o.Amount != nil {
		clone.Amount = new(big.Int).Set(o.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return clone
}

// Sale is a decaying-price listing together with its outstanding offer book.
// The record lives from CreateSale until a terminal transition removes it.
type Sale struct {
	Key        ListingKey `json:"key"`
	Seller     [20]byte   `json:"seller"`
	Currency   Currency   `json:"currency"`
	StartPrice *big.Int   `json:"startPrice"`
	EndPrice   *big.Int   `json:"endPrice"`
	ListedAt   int64      `json:"listedAt"`
	Duration   int64      `json:"duration"`
	Offers     []Offer    `json:"offers,omitempty"`
}

// Clone returns a deep copy of the sale so callers can safely mutate the copy
// without affecting the stored instance.
func (s *Sale) Clone() *Sale {
	if s == nil {
		return nil
	}
	clone := *s
	if s.StartPrice != nil {
		clone.StartPrice = new(big.Int).Set(s.StartPrice)
	} else {
		clone.StartPrice = big.NewInt(0)
	}
	if s.EndPrice != nil {
		clone.EndPrice = new(big.Int).Set(s.EndPrice)
	} else {
		clone.EndPrice = big.NewInt(0)
	}
	if s.Offers != nil {
		clone.Offers = make([]Offer, len(s.Offers))
		for i := range s.Offers {
			clone.Offers[i] = s.Offers[i].Clone()
		}
	}
	return &clone
}

// Bid is the current highest auction bid. Superseded bids are routed to the
// claim ledger at bid time and never appear here.
type Bid struct {
	Bidder   [20]byte `json:"bidder"`
	Amount   *big.Int `json:"amount"`
	PlacedAt int64    `json:"placedAt"`
}

// Clone returns a deep copy of the bid.
func (b *Bid) Clone() *Bid {
	if b == nil {
		return nil
	}
	clone := *b
	if b.Amount != nil {
		clone.Amount = new(big.Int).Set(b.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// Auction is an open-bid listing holding at most one live bid.
type Auction struct {
	Key        ListingKey `json:"key"`
	Seller     [20]byte   `json:"seller"`
	Currency   Currency   `json:"currency"`
	CreatedAt  int64      `json:"createdAt"`
	HighestBid *Bid       `json:"highestBid,omitempty"`
}

// Clone returns a deep copy of the auction.
func (a *Auction) Clone() *Auction {
	if a == nil {
		return nil
	}
	clone := *a
	clone.HighestBid = a.HighestBid.Clone()
	return &clone
}

// Royalty is the (receiver, basis points) pair read from the asset contract.
type Royalty struct {
	Receiver    [20]byte `json:"receiver"`
	BasisPoints uint32   `json:"basisPoints"`
}

// SanitizeSale validates a sale record and returns a normalised deep copy.
func SanitizeSale(s *Sale) (*Sale, error) {
	if s == nil {
		return nil, errors.New("market: nil sale")
	}
	if !s.Currency.Valid() {
		return nil, ErrInvalidCurrency
	}
	clone := s.Clone()
	if clone.StartPrice.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if clone.EndPrice.Sign() < 0 || clone.EndPrice.Cmp(clone.StartPrice) > 0 {
		return nil, ErrInvalidPricing
	}
	if clone.Duration < 0 {
		return nil, ErrInvalidPricing
	}
	for i := range clone.Offers {
		if clone.Offers[i].Amount == nil || clone.Offers[i].Amount.Sign() <= 0 {
			return nil, ErrInvalidAmount
		}
	}
	return clone, nil
}

// SanitizeAuction validates an auction record and returns a deep copy.
func SanitizeAuction(a *Auction) (*Auction, error) {
	if a == nil {
		return nil, errors.New("market: nil auction")
	}
	if !a.Currency.Valid() {
		return nil, ErrInvalidCurrency
	}
	clone := a.Clone()
	if clone.HighestBid != nil && clone.HighestBid.Amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	return clone, nil
}
