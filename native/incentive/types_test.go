package incentive

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

func TestPackLiquidityRoundTrip(t *testing.T) {
	one96 := new(uint256.Int).Lsh(uint256.NewInt(1), 96)
	cases := []struct {
		name     string
		value    *uint256.Int
		overflow bool
	}{
		{"zero", uint256.NewInt(0), false},
		{"small", uint256.NewInt(123_456_789), false},
		{"just below threshold", new(uint256.Int).SubUint64(one96, 2), false},
		{"at threshold", new(uint256.Int).SubUint64(one96, 1), true},
		{"above threshold", one96, true},
		{"max uint128", maxUint128, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			packed, err := PackLiquidity(tc.value)
			if err != nil {
				t.Fatalf("pack: %v", err)
			}
			if got := packed.Unpack(); !got.Eq(tc.value) {
				t.Fatalf("round trip mismatch: %s != %s", got, tc.value)
			}
			usedWide := !packed.Wide.IsZero()
			if usedWide != tc.overflow {
				t.Fatalf("wide field usage = %v, want %v", usedWide, tc.overflow)
			}
			if tc.overflow && !packed.Narrow.Eq(maxUint96) {
				t.Fatalf("sentinel missing for overflowing value")
			}
		})
	}
}

func TestPackLiquidityRejectsWideValues(t *testing.T) {
	tooWide := new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	if _, err := PackLiquidity(tooWide); !errors.Is(err, ErrLiquidityTooWide) {
		t.Fatalf("expected ErrLiquidityTooWide, got %v", err)
	}
	if _, err := PackLiquidity(nil); !errors.Is(err, ErrLiquidityTooWide) {
		t.Fatalf("expected ErrLiquidityTooWide for nil, got %v", err)
	}
}

func TestIncentiveKeyHashIdentity(t *testing.T) {
	key := IncentiveKey{
		RewardToken: testToken,
		Pool:        pool,
		StartTime:   100,
		EndTime:     200,
		MinDuration: 10,
		Refundee:    treasury,
	}
	same := key
	if key.Hash() != same.Hash() {
		t.Fatal("identical keys must hash identically")
	}
	changed := key
	changed.EndTime = 201
	if key.Hash() == changed.Hash() {
		t.Fatal("differing keys must hash differently")
	}
}

func TestReferralRatesValidate(t *testing.T) {
	if err := DefaultReferralRates().Validate(); err != nil {
		t.Fatalf("default table invalid: %v", err)
	}
	if DefaultReferralRates().Sum() != 7500 {
		t.Fatalf("default table sum = %d, want 7500", DefaultReferralRates().Sum())
	}
	over := ReferralRates{5000, 5000, 1, 0, 0}
	if err := over.Validate(); !errors.Is(err, ErrRateTableSum) {
		t.Fatalf("expected ErrRateTableSum, got %v", err)
	}
	tier := ReferralRates{10_001, 0, 0, 0, 0}
	if err := tier.Validate(); !errors.Is(err, ErrRateTooHigh) {
		t.Fatalf("expected ErrRateTooHigh, got %v", err)
	}
}
