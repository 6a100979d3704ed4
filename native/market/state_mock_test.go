package market

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"
	"testing"

	"sparkmarket/core/events"
	coretypes "sparkmarket/core/types"
)

type mockState struct {
	sales     map[ListingKey]*Sale
	auctions  map[ListingKey]*Auction
	claims    map[string]*big.Int
	accounts  map[[20]byte]*coretypes.Account
	owners    map[string][20]byte
	royalties map[string]*Royalty
}

func newMockState() *mockState {
	return &mockState{
		sales:     make(map[ListingKey]*Sale),
		auctions:  make(map[ListingKey]*Auction),
		claims:    make(map[string]*big.Int),
		accounts:  make(map[[20]byte]*coretypes.Account),
		owners:    make(map[string][20]byte),
		royalties: make(map[string]*Royalty),
	}
}

func assetID(collection [20]byte, tokenID uint64) string {
	var id [8]byte
	binary.BigEndian.PutUint64(id[:], tokenID)
	return string(collection[:]) + string(id[:])
}

func claimID(beneficiary [20]byte, currency Currency) string {
	return string([]byte{byte(currency)}) + string(beneficiary[:])
}

func (m *mockState) SaleGet(key ListingKey) (*Sale, bool, error) {
	sale, ok := m.sales[key]
	if !ok {
		return nil, false, nil
	}
	return sale.Clone(), true, nil
}

func (m *mockState) SalePut(sale *Sale) error {
	sanitized, err := SanitizeSale(sale)
	if err != nil {
		return err
	}
	m.sales[sanitized.Key] = sanitized
	return nil
}

func (m *mockState) SaleDelete(key ListingKey) error {
	delete(m.sales, key)
	return nil
}

func (m *mockState) AuctionGet(key ListingKey) (*Auction, bool, error) {
	auction, ok := m.auctions[key]
	if !ok {
		return nil, false, nil
	}
	return auction.Clone(), true, nil
}

func (m *mockState) AuctionPut(auction *Auction) error {
	sanitized, err := SanitizeAuction(auction)
	if err != nil {
		return err
	}
	m.auctions[sanitized.Key] = sanitized
	return nil
}

func (m *mockState) AuctionDelete(key ListingKey) error {
	delete(m.auctions, key)
	return nil
}

func (m *mockState) ClaimableGet(beneficiary [20]byte, currency Currency) (*big.Int, error) {
	balance, ok := m.claims[claimID(beneficiary, currency)]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(balance), nil
}

func (m *mockState) ClaimablePut(beneficiary [20]byte, currency Currency, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("negative claim balance")
	}
	m.claims[claimID(beneficiary, currency)] = new(big.Int).Set(amount)
	return nil
}

func (m *mockState) GetAccount(addr []byte) (*coretypes.Account, error) {
	var key [20]byte
	copy(key[:], addr)
	account, ok := m.accounts[key]
	if !ok {
		return &coretypes.Account{BalanceNative: big.NewInt(0), BalanceSpark: big.NewInt(0)}, nil
	}
	return account.Clone(), nil
}

func (m *mockState) PutAccount(addr []byte, account *coretypes.Account) error {
	var key [20]byte
	copy(key[:], addr)
	m.accounts[key] = account.Clone()
	return nil
}

func (m *mockState) NFTOwner(collection [20]byte, tokenID uint64) ([20]byte, error) {
	owner, ok := m.owners[assetID(collection, tokenID)]
	if !ok {
		return [20]byte{}, fmt.Errorf("asset not found")
	}
	return owner, nil
}

func (m *mockState) NFTTransfer(collection [20]byte, tokenID uint64, from, to [20]byte) error {
	owner, err := m.NFTOwner(collection, tokenID)
	if err != nil {
		return err
	}
	if owner != from {
		return fmt.Errorf("transfer from non-owner")
	}
	m.owners[assetID(collection, tokenID)] = to
	return nil
}

func (m *mockState) RoyaltyInfo(collection [20]byte, tokenID uint64) (*Royalty, bool, error) {
	royalty, ok := m.royalties[assetID(collection, tokenID)]
	if !ok {
		return nil, false, nil
	}
	clone := *royalty
	return &clone, true, nil
}

func (m *mockState) mint(collection [20]byte, tokenID uint64, owner [20]byte) {
	m.owners[assetID(collection, tokenID)] = owner
}

func (m *mockState) setRoyalty(collection [20]byte, tokenID uint64, receiver [20]byte, bps uint32) {
	m.royalties[assetID(collection, tokenID)] = &Royalty{Receiver: receiver, BasisPoints: bps}
}

func (m *mockState) setBalance(addr [20]byte, currency Currency, amount int64) {
	account := &coretypes.Account{BalanceNative: big.NewInt(0), BalanceSpark: big.NewInt(0)}
	if existing, ok := m.accounts[addr]; ok {
		account = existing.Clone()
	}
	switch currency {
	case CurrencyNative:
		account.BalanceNative = big.NewInt(amount)
	case CurrencySpark:
		account.BalanceSpark = big.NewInt(amount)
	}
	m.accounts[addr] = account
}

func (m *mockState) balance(addr [20]byte, currency Currency) *big.Int {
	account, ok := m.accounts[addr]
	if !ok {
		return big.NewInt(0)
	}
	switch currency {
	case CurrencyNative:
		if account.BalanceNative == nil {
			return big.NewInt(0)
		}
		return new(big.Int).Set(account.BalanceNative)
	default:
		if account.BalanceSpark == nil {
			return big.NewInt(0)
		}
		return new(big.Int).Set(account.BalanceSpark)
	}
}

type mockVerifier struct {
	verified map[[20]byte]bool
}

func (v *mockVerifier) IsVerified(collection [20]byte) (bool, error) {
	return v.verified[collection], nil
}

type capturingEmitter struct {
	events []events.Event
}

func (c *capturingEmitter) Emit(evt events.Event) {
	c.events = append(c.events, evt)
}

func (c *capturingEmitter) seen(eventType string) bool {
	for _, evt := range c.events {
		if evt.EventType() == eventType {
			return true
		}
	}
	return false
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

type marketEnv struct {
	state    *mockState
	claims   *ClaimLedger
	sale     *SaleEngine
	auction  *AuctionEngine
	emitter  *capturingEmitter
	verifier *mockVerifier
	vault    [20]byte
	now      int64
}

func newMarketEnv(t *testing.T) *marketEnv {
	t.Helper()
	env := &marketEnv{
		state:    newMockState(),
		emitter:  &capturingEmitter{},
		verifier: &mockVerifier{verified: make(map[[20]byte]bool)},
		vault:    newTestAddress(0xEE),
		now:      1000,
	}
	clock := func() int64 { return env.now }

	env.claims = NewClaimLedger()
	env.claims.SetState(env.state)
	env.claims.SetVault(env.vault)
	env.claims.SetEmitter(env.emitter)
	env.claims.SetNowFunc(clock)

	env.sale = NewSaleEngine(env.claims)
	env.sale.SetState(env.state)
	env.sale.SetVerifier(env.verifier)
	env.sale.SetVault(env.vault)
	env.sale.SetEmitter(env.emitter)
	env.sale.SetNowFunc(clock)

	env.auction = NewAuctionEngine(env.claims)
	env.auction.SetState(env.state)
	env.auction.SetVerifier(env.verifier)
	env.auction.SetVault(env.vault)
	env.auction.SetEmitter(env.emitter)
	env.auction.SetNowFunc(clock)

	return env
}
