package storage

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"sparkmarket/core/types"
	"sparkmarket/native/market"
	"sparkmarket/native/registry"
)

// ErrAssetNotFound is returned when an asset has no ownership record.
var ErrAssetNotFound = errors.New("storage: asset not found")

const (
	prefixSale      = "market/sale/"
	prefixAuction   = "market/auction/"
	prefixClaim     = "market/claim/"
	prefixAccount   = "account/"
	prefixRegistry  = "registry/record/"
	prefixAsset     = "asset/owner/"
	prefixRoyalty   = "asset/royalty/"
	keyRegistryList = "registry/index"
)

// MarketStore persists every record the engines operate on: listings, claim
// balances, accounts, registry records and the asset ownership/royalty book.
// Records are JSON-encoded; listing and asset keys are keccak derived so the
// key layout is independent of the field encoding.
type MarketStore struct {
	db Database
}

// NewMarketStore wraps a key-value database in the engines' state surface.
func NewMarketStore(db Database) *MarketStore {
	return &MarketStore{db: db}
}

func listingKeyHash(key market.ListingKey) []byte {
	var tokenID [8]byte
	binary.BigEndian.PutUint64(tokenID[:], key.TokenID)
	hash := ethcrypto.Keccak256Hash(key.Collection[:], tokenID[:])
	return hash[:]
}

func saleKey(key market.ListingKey) []byte {
	return append([]byte(prefixSale), listingKeyHash(key)...)
}

func auctionKey(key market.ListingKey) []byte {
	return append([]byte(prefixAuction), listingKeyHash(key)...)
}

func assetKey(prefix string, collection [20]byte, tokenID uint64) []byte {
	var id [8]byte
	binary.BigEndian.PutUint64(id[:], tokenID)
	hash := ethcrypto.Keccak256Hash(collection[:], id[:])
	return append([]byte(prefix), hash[:]...)
}

func claimKey(beneficiary [20]byte, currency market.Currency) []byte {
	out := []byte(prefixClaim)
	out = append(out, byte(currency))
	out = append(out, '/')
	return append(out, beneficiary[:]...)
}

func accountKey(addr []byte) []byte {
	return append([]byte(prefixAccount), addr...)
}

func registryKey(collection [20]byte) []byte {
	return append([]byte(prefixRegistry), collection[:]...)
}

func (s *MarketStore) getJSON(key []byte, out interface{}) (bool, error) {
	raw, err := s.db.Get(key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("storage: decode %q: %w", string(key), err)
	}
	return true, nil
}

func (s *MarketStore) putJSON(key []byte, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: encode %q: %w", string(key), err)
	}
	return s.db.Put(key, raw)
}

// --- market engine state ---

func (s *MarketStore) SaleGet(key market.ListingKey) (*market.Sale, bool, error) {
	sale := &market.Sale{}
	ok, err := s.getJSON(saleKey(key), sale)
	if err != nil || !ok {
		return nil, false, err
	}
	return sale, true, nil
}

func (s *MarketStore) SalePut(sale *market.Sale) error {
	sanitized, err := market.SanitizeSale(sale)
	if err != nil {
		return err
	}
	return s.putJSON(saleKey(sanitized.Key), sanitized)
}

func (s *MarketStore) SaleDelete(key market.ListingKey) error {
	return s.db.Delete(saleKey(key))
}

func (s *MarketStore) AuctionGet(key market.ListingKey) (*market.Auction, bool, error) {
	auction := &market.Auction{}
	ok, err := s.getJSON(auctionKey(key), auction)
	if err != nil || !ok {
		return nil, false, err
	}
	return auction, true, nil
}

func (s *MarketStore) AuctionPut(auction *market.Auction) error {
	sanitized, err := market.SanitizeAuction(auction)
	if err != nil {
		return err
	}
	return s.putJSON(auctionKey(sanitized.Key), sanitized)
}

func (s *MarketStore) AuctionDelete(key market.ListingKey) error {
	return s.db.Delete(auctionKey(key))
}

func (s *MarketStore) ClaimableGet(beneficiary [20]byte, currency market.Currency) (*big.Int, error) {
	raw, err := s.db.Get(claimKey(beneficiary, currency))
	if errors.Is(err, ErrKeyNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	balance, ok := new(big.Int).SetString(string(raw), 10)
	if !ok {
		return nil, fmt.Errorf("storage: corrupt claim balance for %x", beneficiary)
	}
	return balance, nil
}

func (s *MarketStore) ClaimablePut(beneficiary [20]byte, currency market.Currency, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("storage: claim balance must be non-negative")
	}
	if amount.Sign() == 0 {
		return s.db.Delete(claimKey(beneficiary, currency))
	}
	return s.db.Put(claimKey(beneficiary, currency), []byte(amount.String()))
}

func (s *MarketStore) GetAccount(addr []byte) (*types.Account, error) {
	account := &types.Account{}
	ok, err := s.getJSON(accountKey(addr), account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &types.Account{BalanceNative: big.NewInt(0), BalanceSpark: big.NewInt(0)}, nil
	}
	if account.BalanceNative == nil {
		account.BalanceNative = big.NewInt(0)
	}
	if account.BalanceSpark == nil {
		account.BalanceSpark = big.NewInt(0)
	}
	return account, nil
}

func (s *MarketStore) PutAccount(addr []byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("storage: nil account")
	}
	return s.putJSON(accountKey(addr), account)
}

// --- asset custody and royalty metadata ---

func (s *MarketStore) NFTOwner(collection [20]byte, tokenID uint64) ([20]byte, error) {
	var owner [20]byte
	raw, err := s.db.Get(assetKey(prefixAsset, collection, tokenID))
	if errors.Is(err, ErrKeyNotFound) {
		return owner, ErrAssetNotFound
	}
	if err != nil {
		return owner, err
	}
	if len(raw) != len(owner) {
		return owner, fmt.Errorf("storage: corrupt owner record for %x/%d", collection, tokenID)
	}
	copy(owner[:], raw)
	return owner, nil
}

func (s *MarketStore) NFTTransfer(collection [20]byte, tokenID uint64, from, to [20]byte) error {
	owner, err := s.NFTOwner(collection, tokenID)
	if err != nil {
		return err
	}
	if owner != from {
		return fmt.Errorf("storage: transfer from non-owner of %x/%d", collection, tokenID)
	}
	return s.db.Put(assetKey(prefixAsset, collection, tokenID), to[:])
}

// NFTMint records the initial owner of an asset, optionally with royalty
// metadata. Minting an already tracked asset fails.
func (s *MarketStore) NFTMint(collection [20]byte, tokenID uint64, owner [20]byte, royalty *market.Royalty) error {
	key := assetKey(prefixAsset, collection, tokenID)
	exists, err := s.db.Has(key)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("storage: asset %x/%d already minted", collection, tokenID)
	}
	if err := s.db.Put(key, owner[:]); err != nil {
		return err
	}
	if royalty == nil {
		return nil
	}
	return s.putJSON(assetKey(prefixRoyalty, collection, tokenID), royalty)
}

func (s *MarketStore) RoyaltyInfo(collection [20]byte, tokenID uint64) (*market.Royalty, bool, error) {
	royalty := &market.Royalty{}
	ok, err := s.getJSON(assetKey(prefixRoyalty, collection, tokenID), royalty)
	if err != nil || !ok {
		return nil, false, err
	}
	return royalty, true, nil
}

// --- registry state ---

func (s *MarketStore) RegistryGet(collection [20]byte) (*registry.Record, bool, error) {
	record := &registry.Record{}
	ok, err := s.getJSON(registryKey(collection), record)
	if err != nil || !ok {
		return nil, false, err
	}
	return record, true, nil
}

func (s *MarketStore) RegistryPut(record *registry.Record) error {
	if record == nil {
		return fmt.Errorf("storage: nil registry record")
	}
	index, err := s.registryIndex()
	if err != nil {
		return err
	}
	encoded := hex.EncodeToString(record.Collection[:])
	found := false
	for _, entry := range index {
		if entry == encoded {
			found = true
			break
		}
	}
	if !found {
		index = append(index, encoded)
		sort.Strings(index)
		if err := s.putJSON([]byte(keyRegistryList), index); err != nil {
			return err
		}
	}
	return s.putJSON(registryKey(record.Collection), record)
}

func (s *MarketStore) RegistryDelete(collection [20]byte) error {
	index, err := s.registryIndex()
	if err != nil {
		return err
	}
	encoded := hex.EncodeToString(collection[:])
	filtered := index[:0]
	for _, entry := range index {
		if entry != encoded {
			filtered = append(filtered, entry)
		}
	}
	if err := s.putJSON([]byte(keyRegistryList), filtered); err != nil {
		return err
	}
	return s.db.Delete(registryKey(collection))
}

func (s *MarketStore) RegistryList() ([]*registry.Record, error) {
	index, err := s.registryIndex()
	if err != nil {
		return nil, err
	}
	records := make([]*registry.Record, 0, len(index))
	for _, entry := range index {
		raw, err := hex.DecodeString(entry)
		if err != nil || len(raw) != 20 {
			return nil, fmt.Errorf("storage: corrupt registry index entry %q", entry)
		}
		var collection [20]byte
		copy(collection[:], raw)
		record, ok, err := s.RegistryGet(collection)
		if err != nil {
			return nil, err
		}
		if ok {
			records = append(records, record)
		}
	}
	return records, nil
}

func (s *MarketStore) registryIndex() ([]string, error) {
	var index []string
	if _, err := s.getJSON([]byte(keyRegistryList), &index); err != nil {
		return nil, err
	}
	return index, nil
}

// Credit adds funds to an account balance. Used by the daemon's faucet-style
// admin surface and by tests to seed balances.
func (s *MarketStore) Credit(addr [20]byte, currency market.Currency, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("storage: credit amount must be positive")
	}
	account, err := s.GetAccount(addr[:])
	if err != nil {
		return err
	}
	switch currency {
	case market.CurrencyNative:
		account.BalanceNative = new(big.Int).Add(account.BalanceNative, amount)
	case market.CurrencySpark:
		account.BalanceSpark = new(big.Int).Add(account.BalanceSpark, amount)
	default:
		return market.ErrInvalidCurrency
	}
	return s.PutAccount(addr[:], account)
}
