package rpc

import (
	"sparkmarket/native/market"
)

type listingKeyParams struct {
	Collection string `json:"collection"`
	TokenID    uint64 `json:"tokenId"`
}

func (p listingKeyParams) key() (market.ListingKey, error) {
	collection, err := parseAddress("collection", p.Collection)
	if err != nil {
		return market.ListingKey{}, err
	}
	return market.ListingKey{Collection: collection, TokenID: p.TokenID}, nil
}

type saleCreateParams struct {
	Seller     string `json:"seller"`
	Collection string `json:"collection"`
	TokenID    uint64 `json:"tokenId"`
	Currency   string `json:"currency"`
	StartPrice string `json:"startPrice"`
	EndPrice   string `json:"endPrice"`
	Duration   int64  `json:"duration"`
}

type saleActorParams struct {
	Caller     string `json:"caller"`
	Collection string `json:"collection"`
	TokenID    uint64 `json:"tokenId"`
}

type saleBuyParams struct {
	Buyer      string `json:"buyer"`
	Collection string `json:"collection"`
	TokenID    uint64 `json:"tokenId"`
	Value      string `json:"value,omitempty"`
}

type offerParams struct {
	Caller     string `json:"caller"`
	Collection string `json:"collection"`
	TokenID    uint64 `json:"tokenId"`
	Amount     string `json:"amount"`
	Value      string `json:"value,omitempty"`
}

type offerJSON struct {
	Offerer string `json:"offerer"`
	Amount  string `json:"amount"`
	MadeAt  int64  `json:"madeAt"`
}

type saleJSON struct {
	Collection string      `json:"collection"`
	TokenID    uint64      `json:"tokenId"`
	Seller     string      `json:"seller"`
	Currency   string      `json:"currency"`
	StartPrice string      `json:"startPrice"`
	EndPrice   string      `json:"endPrice"`
	ListedAt   int64       `json:"listedAt"`
	Duration   int64       `json:"duration"`
	Offers     []offerJSON `json:"offers"`
}

func saleToJSON(sale *market.Sale) *saleJSON {
	out := &saleJSON{
		Collection: encodeAddress(sale.Key.Collection),
		TokenID:    sale.Key.TokenID,
		Seller:     encodeAddress(sale.Seller),
		Currency:   sale.Currency.String(),
		StartPrice: sale.StartPrice.String(),
		EndPrice:   sale.EndPrice.String(),
		ListedAt:   sale.ListedAt,
		Duration:   sale.Duration,
		Offers:     make([]offerJSON, 0, len(sale.Offers)),
	}
	for _, offer := range sale.Offers {
		out.Offers = append(out.Offers, offerJSON{
			Offerer: encodeAddress(offer.Offerer),
			Amount:  offer.Amount.String(),
			MadeAt:  offer.MadeAt,
		})
	}
	return out
}

type priceResult struct {
	Price string `json:"price"`
}

func (s *Server) handleCreateSale(req *RPCRequest) (interface{}, error) {
	var params saleCreateParams
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
	startPrice, err := parseAmount("startPrice", params.StartPrice)
	if err != nil {
		return nil, err
	}
	endPrice, err := parseAmount("endPrice", params.EndPrice)
	if err != nil {
		return nil, err
	}
	sale, err := s.sale.CreateSale(seller, collection, params.TokenID, currency, startPrice, endPrice, params.Duration)
	if err != nil {
		return nil, err
	}
	return saleToJSON(sale), nil
}

func (s *Server) handleGetSale(req *RPCRequest) (interface{}, error) {
	var params listingKeyParams
	if err := singleObjectParams(req, &params); err != nil {
		return nil, err
	}
	key, err := params.key()
	if err != nil {
		return nil, err
	}
	sale, err := s.sale.GetSale(key)
	if err != nil {
		return nil, err
	}
	return saleToJSON(sale), nil
}

func (s *Server) handleGetCurrentPrice(req *RPCRequest) (interface{}, error) {
	var params listingKeyParams
	if err := singleObjectParams(req, &params); err != nil {
		return nil, err
	}
	key, err := params.key()
	if err != nil {
		return nil, err
	}
	price, err := s.sale.CurrentPrice(key)
	if err != nil {
		return nil, err
	}
	return priceResult{Price: price.String()}, nil
}

func (s *Server) handleBuy(req *RPCRequest) (interface{}, error) {
	var params saleBuyParams
	if err := singleObjectParams(req, &params); err != nil {
		return nil, err
	}
	buyer, err := parseAddress("buyer", params.Buyer)
	if err != nil {
		return nil, err
	}
	collection, err := parseAddress("collection", params.Collection)
	if err != nil {
		return nil, err
	}
	value, err := parseAmount("value", params.Value)
	if err != nil {
		return nil, err
	}
	key := market.ListingKey{Collection: collection, TokenID: params.TokenID}
	price, err := s.sale.Buy(buyer, key, value)
	if err != nil {
		return nil, err
	}
	return priceResult{Price: price.String()}, nil
}

func (s *Server) handleCancelSale(req *RPCRequest) (interface{}, error) {
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
	if err := s.sale.CancelSale(caller, key); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) handleMakeOffer(req *RPCRequest) (interface{}, error) {
	var params offerParams
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
	if err := s.sale.MakeOffer(caller, key, amount, value); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) handleCancelOffer(req *RPCRequest) (interface{}, error) {
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
	if err := s.sale.CancelOffer(caller, key); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) handleAcceptOffer(req *RPCRequest) (interface{}, error) {
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
	price, err := s.sale.AcceptOffer(caller, key)
	if err != nil {
		return nil, err
	}
	return priceResult{Price: price.String()}, nil
}
