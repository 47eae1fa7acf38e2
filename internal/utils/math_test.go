package utils

import (
	"math"
	"testing"
)

func TestSharesForDepositEmptyPool(t *testing.T) {
	if got := SharesForDeposit(1000, 0, 0); got != 1000 {
		t.Fatalf("expected 1:1 mint on empty pool, got %d", got)
	}
	if got := SharesForDeposit(1, 0, 0); got != 1 {
		t.Fatalf("expected 1 share, got %d", got)
	}
}

func TestSharesForDepositAtParity(t *testing.T) {
	// 1000 units backing 1000 shares: rate is 1.0.
	if got := SharesForDeposit(500, 1000, 1000); got != 500 {
		t.Fatalf("expected 500 shares at parity, got %d", got)
	}
}

func TestSharesForDepositAfterYield(t *testing.T) {
	// 1100 units backing 1000 shares: each share is worth 1.1, so a 550
	// deposit mints 500 shares.
	if got := SharesForDeposit(550, 1100, 1000); got != 500 {
		t.Fatalf("expected 500 shares, got %d", got)
	}
	// Floor rounding: 551 * 1000 / 1100 = 500.9… -> 500.
	if got := SharesForDeposit(551, 1100, 1000); got != 500 {
		t.Fatalf("expected floor to 500 shares, got %d", got)
	}
}

func TestAmountForShares(t *testing.T) {
	if got := AmountForShares(500, 1100, 1000); got != 550 {
		t.Fatalf("expected 550, got %d", got)
	}
	// Floor rounding favors the pool.
	if got := AmountForShares(3, 1000, 7); got != 428 {
		t.Fatalf("expected 428, got %d", got)
	}
}

func TestSharesForWithdrawRoundsUp(t *testing.T) {
	// 428 * 7 / 1000 = 2.996 -> 3 shares burned for a 428 payout.
	if got := SharesForWithdraw(428, 1000, 7); got != 3 {
		t.Fatalf("expected ceil to 3 shares, got %d", got)
	}
	if got := SharesForWithdraw(550, 1100, 1000); got != 500 {
		t.Fatalf("expected exact 500 shares, got %d", got)
	}
}

func TestDepositWithdrawRoundTripNeverProfits(t *testing.T) {
	cases := []struct {
		totalAmount, totalShares uint64
	}{
		{1000, 1000},
		{1100, 1000},
		{999999999, 7},
		{7, 999999999},
		{math.MaxUint64 / 2, 3},
	}
	for _, tc := range cases {
		for _, amount := range []uint64{1, 3, 999, 123456789} {
			shares := SharesForDeposit(amount, tc.totalAmount, tc.totalShares)
			back := AmountForShares(shares, tc.totalAmount, tc.totalShares)
			if back > amount {
				t.Fatalf("round trip profits: amount=%d pool=%d/%d shares=%d back=%d",
					amount, tc.totalAmount, tc.totalShares, shares, back)
			}
		}
	}
}

func TestMulDivNoOverflow(t *testing.T) {
	// Products above 64 bits must not wrap.
	a := uint64(math.MaxUint64)
	if got := MulDivFloor(a, a, a); got != a {
		t.Fatalf("expected %d, got %d", a, got)
	}
	if got := MulDivCeil(a-1, a, a); got != a-1 {
		t.Fatalf("expected %d, got %d", a-1, got)
	}
}

func TestMulDivCeil(t *testing.T) {
	if got := MulDivCeil(10, 1, 3); got != 4 {
		t.Fatalf("expected 4, got %d", got)
	}
	if got := MulDivCeil(9, 1, 3); got != 3 {
		t.Fatalf("expected exact 3, got %d", got)
	}
	if got := MulDivCeil(0, 5, 3); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestBpsShare(t *testing.T) {
	if got := BpsShare(1000, 500); got != 50 {
		t.Fatalf("expected 50, got %d", got)
	}
	if got := BpsShare(1000, 0); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := BpsShare(1000, BpsDenominator); got != 1000 {
		t.Fatalf("expected full amount, got %d", got)
	}
	// Floor rounding.
	if got := BpsShare(999, 1); got != 0 {
		t.Fatalf("expected floor to 0, got %d", got)
	}
}
