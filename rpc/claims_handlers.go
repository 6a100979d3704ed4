package rpc

type claimBalanceParams struct {
	Beneficiary string `json:"beneficiary"`
	Currency    string `json:"currency"`
}

type claimWithdrawParams struct {
	Caller   string `json:"caller"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type claimBalanceResult struct {
	Beneficiary string `json:"beneficiary"`
	Currency    string `json:"currency"`
	Amount      string `json:"amount"`
}

func (s *Server) handleClaimBalance(req *RPCRequest) (interface{}, error) {
	var params claimBalanceParams
	if err := singleObjectParams(req, &params); err != nil {
		return nil, err
	}
	beneficiary, err := parseAddress("beneficiary", params.Beneficiary)
	if err != nil {
		return nil, err
	}
	currency, err := parseCurrency(params.Currency)
	if err != nil {
		return nil, err
	}
	balance, err := s.claims.ClaimableBalance(beneficiary, currency)
	if err != nil {
		return nil, err
	}
	return claimBalanceResult{
		Beneficiary: encodeAddress(beneficiary),
		Currency:    currency.String(),
		Amount:      balance.String(),
	}, nil
}

func (s *Server) handleClaimWithdraw(req *RPCRequest) (interface{}, error) {
	var params claimWithdrawParams
	if err := singleObjectParams(req, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		return nil, err
	}
	currency, err := parseCurrency(params.Currency)
	if err != nil {
		return nil, err
	}
	if err := s.claims.Claim(caller, amount, currency); err != nil {
		return nil, err
	}
	return true, nil
}
