package market

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"sparkmarket/core/types"
)

const (
	EventTypeSaleCreated      = "market.sale.created"
	EventTypeSaleSettled      = "market.sale.settled"
	EventTypeSaleCancelled    = "market.sale.cancelled"
	EventTypeOfferMade        = "market.offer.made"
	EventTypeOfferCancelled   = "market.offer.cancelled"
	EventTypeOfferAccepted    = "market.offer.accepted"
	EventTypeAuctionCreated   = "market.auction.created"
	EventTypeBidPlaced        = "market.auction.bid"
	EventTypeBidCancelled     = "market.auction.bid_cancelled"
	EventTypeBidAccepted      = "market.auction.bid_accepted"
	EventTypeAuctionCancelled = "market.auction.cancelled"
	EventTypeClaimWithdrawn   = "market.claim.withdrawn"
)

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketEvent) Event() *types.Event { return e.evt }

func wrapEvent(evt *types.Event) marketEvent { return marketEvent{evt: evt} }

func listingAttrs(key ListingKey, seller [20]byte, currency Currency) map[string]string {
	return map[string]string{
		"collection": hex.EncodeToString(key.Collection[:]),
		"tokenId":    strconv.FormatUint(key.TokenID, 10),
		"seller":     hex.EncodeToString(seller[:]),
		"currency":   currency.String(),
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func newSaleCreatedEvent(s *Sale) *types.Event {
	attrs := listingAttrs(s.Key, s.Seller, s.Currency)
	attrs["startPrice"] = formatAmount(s.StartPrice)
	attrs["endPrice"] = formatAmount(s.EndPrice)
	attrs["duration"] = strconv.FormatInt(s.Duration, 10)
	attrs["listedAt"] = strconv.FormatInt(s.ListedAt, 10)
	return &types.Event{Type: EventTypeSaleCreated, Attributes: attrs}
}

func newSaleSettledEvent(s *Sale, buyer [20]byte, price *big.Int) *types.Event {
	attrs := listingAttrs(s.Key, s.Seller, s.Currency)
	attrs["buyer"] = hex.EncodeToString(buyer[:])
	attrs["price"] = formatAmount(price)
	return &types.Event{Type: EventTypeSaleSettled, Attributes: attrs}
}

func newSaleCancelledEvent(s *Sale) *types.Event {
	return &types.Event{Type: EventTypeSaleCancelled, Attributes: listingAttrs(s.Key, s.Seller, s.Currency)}
}

func newOfferMadeEvent(s *Sale, offer Offer) *types.Event {
	attrs := listingAttrs(s.Key, s.Seller, s.Currency)
	attrs["offerer"] = hex.EncodeToString(offer.Offerer[:])
	attrs["amount"] = formatAmount(offer.Amount)
	return &types.Event{Type: EventTypeOfferMade, Attributes: attrs}
}

func newOfferCancelledEvent(s *Sale, offer Offer) *types.Event {
	attrs := listingAttrs(s.Key, s.Seller, s.Currency)
	attrs["offerer"] = hex.EncodeToString(offer.Offerer[:])
	attrs["amount"] = formatAmount(offer.Amount)
	return &types.Event{Type: EventTypeOfferCancelled, Attributes: attrs}
}

func newOfferAcceptedEvent(s *Sale, offer Offer) *types.Event {
	attrs := listingAttrs(s.Key, s.Seller, s.Currency)
	attrs["offerer"] = hex.EncodeToString(offer.Offerer[:])
	attrs["price"] = formatAmount(offer.Amount)
	return &types.Event{Type: EventTypeOfferAccepted, Attributes: attrs}
}

func newAuctionCreatedEvent(a *Auction) *types.Event {
	attrs := listingAttrs(a.Key, a.Seller, a.Currency)
	attrs["createdAt"] = strconv.FormatInt(a.CreatedAt, 10)
	return &types.Event{Type: EventTypeAuctionCreated, Attributes: attrs}
}

func newBidPlacedEvent(a *Auction, bid *Bid) *types.Event {
	attrs := listingAttrs(a.Key, a.Seller, a.Currency)
	attrs["bidder"] = hex.EncodeToString(bid.Bidder[:])
	attrs["amount"] = formatAmount(bid.Amount)
	return &types.Event{Type: EventTypeBidPlaced, Attributes: attrs}
}

func newBidCancelledEvent(a *Auction, bid *Bid) *types.Event {
	attrs := listingAttrs(a.Key, a.Seller, a.Currency)
	attrs["bidder"] = hex.EncodeToString(bid.Bidder[:])
	attrs["amount"] = formatAmount(bid.Amount)
	return &types.Event{Type: EventTypeBidCancelled, Attributes: attrs}
}

func newBidAcceptedEvent(a *Auction, bid *Bid) *types.Event {
	attrs := listingAttrs(a.Key, a.Seller, a.Currency)
	attrs["bidder"] = hex.EncodeToString(bid.Bidder[:])
	attrs["price"] = formatAmount(bid.Amount)
	return &types.Event{Type: EventTypeBidAccepted, Attributes: attrs}
}

func newAuctionCancelledEvent(a *Auction) *types.Event {
	return &types.Event{Type: EventTypeAuctionCancelled, Attributes: listingAttrs(a.Key, a.Seller, a.Currency)}
}

func newClaimWithdrawnEvent(beneficiary [20]byte, currency Currency, amount *big.Int, at int64) *types.Event {
	return &types.Event{
		Type: EventTypeClaimWithdrawn,
		Attributes: map[string]string{
			"beneficiary": hex.EncodeToString(beneficiary[:]),
			"currency":    currency.String(),
			"amount":      formatAmount(amount),
			"claimedAt":   strconv.FormatInt(at, 10),
		},
	}
}
