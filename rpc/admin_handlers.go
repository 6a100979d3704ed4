package rpc

import (
	"fmt"

	"sparkmarket/native/market"
)

// The admin surface seeds local deployments: it mints assets into the
// ownership book and credits account balances. It is not part of the trading
// API and, like every mutating method, sits behind the bearer token when one
// is configured.

type adminMintParams struct {
	Collection      string `json:"collection"`
	TokenID         uint64 `json:"tokenId"`
	Owner           string `json:"owner"`
	RoyaltyReceiver string `json:"royaltyReceiver,omitempty"`
	RoyaltyBps      uint32 `json:"royaltyBps,omitempty"`
}

type adminCreditParams struct {
	Account  string `json:"account"`
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

type assetOwnerParams struct {
	Collection string `json:"collection"`
	TokenID    uint64 `json:"tokenId"`
}

type assetOwnerResult struct {
	Collection string `json:"collection"`
	TokenID    uint64 `json:"tokenId"`
	Owner      string `json:"owner"`
}

func (s *Server) handleAdminMintAsset(req *RPCRequest) (interface{}, error) {
	var params adminMintParams
	if err := singleObjectParams(req, &params); err != nil {
		return nil, err
	}
	collection, err := parseAddress("collection", params.Collection)
	if err != nil {
		return nil, err
	}
	owner, err := parseAddress("owner", params.Owner)
	if err != nil {
		return nil, err
	}
	var royalty *market.Royalty
	if params.RoyaltyReceiver != "" || params.RoyaltyBps > 0 {
		receiver, err := parseAddress("royaltyReceiver", params.RoyaltyReceiver)
		if err != nil {
			return nil, err
		}
		royalty = &market.Royalty{Receiver: receiver, BasisPoints: params.RoyaltyBps}
	}
	if err := s.store.NFTMint(collection, params.TokenID, owner, royalty); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) handleAdminCreditAccount(req *RPCRequest) (interface{}, error) {
	var params adminCreditParams
	if err := singleObjectParams(req, &params); err != nil {
		return nil, err
	}
	account, err := parseAddress("account", params.Account)
	if err != nil {
		return nil, err
	}
	currency, err := parseCurrency(params.Currency)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", errInvalidParams)
	}
	if err := s.store.Credit(account, currency, amount); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) handleAdminAssetOwner(req *RPCRequest) (interface{}, error) {
	var params assetOwnerParams
	if err := singleObjectParams(req, &params); err != nil {
		return nil, err
	}
	collection, err := parseAddress("collection", params.Collection)
	if err != nil {
		return nil, err
	}
	owner, err := s.store.NFTOwner(collection, params.TokenID)
	if err != nil {
		return nil, err
	}
	return assetOwnerResult{
		Collection: encodeAddress(collection),
		TokenID:    params.TokenID,
		Owner:      encodeAddress(owner),
	}, nil
}
