package rpc

import (
	"sparkmarket/native/market"
)

type auctionCreateParams struct {
	Seller     string `json:"seller"`
	Collection string `json:"collection"`
	TokenID    uint64 `json:"tokenId"`
	Currency   string `json:"currency"`
}

type bidParams struct {
	Caller     string `json:"caller"`
	Collection string `json:"collection"`
	TokenID    uint64 `json:"tokenId"`
	Amount     string `json:"amount"`
	Value      string `json:"value,omitempty"`
}

type bidJSON struct {
	Bidder   string `json:"bidder"`
	Amount   string `json:"amount"`
	PlacedAt int64  `json:"placedAt"`
}

type auctionJSON struct {
	Collection string   `json:"collection"`
	TokenID    uint64   `json:"tokenId"`
	Seller     string   `json:"seller"`
	Currency   string   `json:"currency"`
	CreatedAt  int64    `json:"createdAt"`
	HighestBid *bidJSON `json:"highestBid,omitempty"`
}

func auctionToJSON(auction *market.Auction) *auctionJSON {
	out := &auctionJSON{
		Collection: encodeAddress(auction.Key.Collection),
		TokenID:    auction.Key.TokenID,
		Seller:     encodeAddress(auction.Seller),
		Currency:   auction.Currency.String(),
		CreatedAt:  auction.CreatedAt,
	}
	if auction.HighestBid != nil {
		out.HighestBid = &bidJSON{
			Bidder:   encodeAddress(auction.HighestBid.Bidder),
			Amount:   auction.HighestBid.Amount.String(),
			PlacedAt: auction.HighestBid.PlacedAt,
		}
	}
	return out
}

func (s *Server) handleCreateAuction(req *RPCRequest) (interface{}, error) {
	var params auctionCreateParams
	if err := singleObjectParams(req, &params); err != nil {
		return nil, err
	}
	seller, err := parseAddress("seller", params.Seller)
	if err != nil {
		return nil, err
	}
	collection, err := parseAddress("collection", params.Collection)
	if err != nil {
		return nil, err
	}
	currency, err := parseCurrency(params.Currency)
	if err != nil {
		return nil, err
	}
	auction, err := s.auction.CreateAuction(seller, collection, params.TokenID, currency)
	if err != nil {
		return nil, err
	}
	return auctionToJSON(auction), nil
}

func (s *Server) handleGetAuction(req *RPCRequest) (interface{}, error) {
	var params listingKeyParams
	if err := singleObjectParams(req, &params); err != nil {
		return nil, err
	}
	key, err := params.key()
	if err != nil {
		return nil, err
	}
	auction, err := s.auction.GetAuction(key)
	if err != nil {
		return nil, err
	}
	return auctionToJSON(auction), nil
}

func (s *Server) handleBid(req *RPCRequest) (interface{}, error) {
	var params bidParams
	if err := singleObjectParams(req, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		return nil, err
	}
	collection, err := parseAddress("collection", params.Collection)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		return nil, err
	}
	value, err := parseAmount("value", params.Value)
	if err != nil {
		return nil, err
	}
	key := market.ListingKey{Collection: collection, TokenID: params.TokenID}
	if err := s.auction.Bid(caller, key, amount, value); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) handleCancelBid(req *RPCRequest) (interface{}, error) {
	var params saleActorParams
	if err := singleObjectParams(req, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		return nil, err
	}
	collection, err := parseAddress("collection", params.Collection)
	if err != nil {
		return nil, err
	}
	key := market.ListingKey{Collection: collection, TokenID: params.TokenID}
	if err := s.auction.CancelBid(caller, key); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) handleAcceptBid(req *RPCRequest) (interface{}, error) {
	var params saleActorParams
	if err := singleObjectParams(req, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		return nil, err
	}
	collection, err := parseAddress("collection", params.Collection)
	if err != nil {
		return nil, err
	}
	key := market.ListingKey{Collection: collection, TokenID: params.TokenID}
	price, err := s.auction.AcceptBid(caller, key)
	if err != nil {
		return nil, err
	}
	return priceResult{Price: price.String()}, nil
}

func (s *Server) handleCancelAuction(req *RPCRequest) (interface{}, error) {
	var params saleActorParams
	if err := singleObjectParams(req, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		return nil, err
	}
	collection, err := parseAddress("collection", params.Collection)
	if err != nil {
		return nil, err
	}
	key := market.ListingKey{Collection: collection, TokenID: params.TokenID}
	if err := s.auction.CancelAuction(caller, key); err != nil {
		return nil, err
	}
	return true, nil
}
