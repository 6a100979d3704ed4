package market

import (
	"errors"
	"math/big"
	"testing"
)

func TestCurrencyValidation(t *testing.T) {
	if !CurrencyNative.Valid() || !CurrencySpark.Valid() {
		t.Fatalf("expected both supported currencies to be valid")
	}
	if Currency(2).Valid() {
		t.Fatalf("unknown currency must not validate")
	}
	if got := CurrencyNative.String(); got != "native" {
		t.Fatalf("unexpected native label %q", got)
	}
	if got := CurrencySpark.String(); got != "spark" {
		t.Fatalf("unexpected spark label %q", got)
	}
}

func TestSanitizeSaleRejectsBadRecords(t *testing.T) {
	base := func() *Sale {
		return &Sale{
			Key:        ListingKey{Collection: newTestAddress(0xC0), TokenID: 1},
			Seller:     newTestAddress(0x01),
			Currency:   CurrencyNative,
			StartPrice: big.NewInt(100),
			EndPrice:   big.NewInt(50),
			ListedAt:   1000,
			Duration:   100,
		}
	}

	if _, err := SanitizeSale(base()); err != nil {
		t.Fatalf("valid sale rejected: %v", err)
	}

	s := base()
	s.Currency = Currency(7)
	if _, err := SanitizeSale(s); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}

	s = base()
	s.StartPrice = big.NewInt(0)
	if _, err := SanitizeSale(s); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	s = base()
	s.EndPrice = big.NewInt(200)
	if _, err := SanitizeSale(s); !errors.Is(err, ErrInvalidPricing) {
		t.Fatalf("expected ErrInvalidPricing, got %v", err)
	}

	s = base()
	s.Duration = -1
	if _, err := SanitizeSale(s); !errors.Is(err, ErrInvalidPricing) {
		t.Fatalf("expected ErrInvalidPricing for negative duration, got %v", err)
	}

	s = base()
	s.Offers = []Offer{{Offerer: newTestAddress(0x03), Amount: big.NewInt(0), MadeAt: 1000}}
	if _, err := SanitizeSale(s); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero offer, got %v", err)
	}
}

func TestSaleCloneIsDeep(t *testing.T) {
	sale := &Sale{
		Key:        ListingKey{Collection: newTestAddress(0xC0), TokenID: 1},
		Seller:     newTestAddress(0x01),
		Currency:   CurrencyNative,
		StartPrice: big.NewInt(100),
		EndPrice:   big.NewInt(50),
		Offers:     []Offer{{Offerer: newTestAddress(0x03), Amount: big.NewInt(80), MadeAt: 1000}},
	}
	clone := sale.Clone()
	clone.StartPrice.SetInt64(999)
	clone.Offers[0].Amount.SetInt64(999)
	if sale.StartPrice.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("clone shares start price")
	}
	if sale.Offers[0].Amount.Cmp(big.NewInt(80)) != 0 {
		t.Fatalf("clone shares offer amounts")
	}
}

func TestAuctionCloneHandlesNilBid(t *testing.T) {
	auction := &Auction{
		Key:      ListingKey{Collection: newTestAddress(0xC1), TokenID: 2},
		Seller:   newTestAddress(0x01),
		Currency: CurrencySpark,
	}
	clone := auction.Clone()
	if clone.HighestBid != nil {
		t.Fatalf("expected nil bid preserved")
	}
	auction.HighestBid = &Bid{Bidder: newTestAddress(0x03), Amount: big.NewInt(80), PlacedAt: 1000}
	clone = auction.Clone()
	clone.HighestBid.Amount.SetInt64(999)
	if auction.HighestBid.Amount.Cmp(big.NewInt(80)) != 0 {
		t.Fatalf("clone shares bid amount")
	}
}

func TestSplitProceedsExactness(t *testing.T) {
	royalty := &Royalty{Receiver: newTestAddress(0x05), BasisPoints: 1000}

	amount := new(big.Int)
	amount.SetString("1000000000000000000", 10)
	royaltyShare, sellerShare, err := splitProceeds(amount, royalty)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	want := new(big.Int)
	want.SetString("100000000000000000", 10)
	if royaltyShare.Cmp(want) != 0 {
		t.Fatalf("expected 10%% royalty share, got %s", royaltyShare)
	}
	if new(big.Int).Add(royaltyShare, sellerShare).Cmp(amount) != 0 {
		t.Fatalf("shares do not sum to the settlement amount")
	}

	// Integer division rounds the royalty share down, remainder to the seller.
	royaltyShare, sellerShare, err = splitProceeds(big.NewInt(19), &Royalty{BasisPoints: 5000})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if royaltyShare.Cmp(big.NewInt(9)) != 0 || sellerShare.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("expected 9/10 split of 19 at 5000 bps, got %s/%s", royaltyShare, sellerShare)
	}

	royaltyShare, sellerShare, err = splitProceeds(big.NewInt(100), nil)
	if err != nil {
		t.Fatalf("split without royalty: %v", err)
	}
	if royaltyShare.Sign() != 0 || sellerShare.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected full amount to seller without royalty, got %s/%s", royaltyShare, sellerShare)
	}

	if _, _, err := splitProceeds(big.NewInt(100), &Royalty{BasisPoints: 10_001}); !errors.Is(err, ErrInvalidRoyalty) {
		t.Fatalf("expected ErrInvalidRoyalty, got %v", err)
	}
}
