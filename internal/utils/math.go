package utils

import (
	"math/big"
)

// BpsDenominator is the percentage scale used everywhere in the ledger:
// integer basis points, 10000 = 100%.
const BpsDenominator = 10000

// MulDivFloor computes floor(a * b / d) without intermediate overflow.
// Panics if d == 0; callers must gate on non-zero denominators.
func MulDivFloor(a, b, d uint64) uint64 {
	if d == 0 {
		panic("utils: division by zero in MulDivFloor")
	}
	res := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	res.Quo(res, new(big.Int).SetUint64(d))
	if !res.IsUint64() {
		panic("utils: MulDivFloor result overflows uint64")
	}
	return res.Uint64()
}

// MulDivCeil computes ceil(a * b / d) without intermediate overflow.
func MulDivCeil(a, b, d uint64) uint64 {
	if d == 0 {
		panic("utils: division by zero in MulDivCeil")
	}
	num := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	den := new(big.Int).SetUint64(d)
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	if !q.IsUint64() {
		panic("utils: MulDivCeil result overflows uint64")
	}
	return q.Uint64()
}

// SharesForDeposit converts a deposit amount to LP shares at the current
// ledger totals. The first depositor mints 1:1; afterwards the result is
// floored so rounding dust always accrues to the pool.
func SharesForDeposit(amount, totalAmount, totalShares uint64) uint64 {
	if totalShares == 0 || totalAmount == 0 {
		return amount
	}
	return MulDivFloor(amount, totalShares, totalAmount)
}

// AmountForShares converts LP shares back to an asset amount, floored, so a
// holder can never extract more value than the shares represent.
func AmountForShares(shares, totalAmount, totalShares uint64) uint64 {
	if totalShares == 0 {
		return 0
	}
	return MulDivFloor(shares, totalAmount, totalShares)
}

// SharesForWithdraw converts an amount-denominated withdrawal into the shares
// to burn. Rounded up: burning too few shares would slowly leak value out of
// the pool, the mirror image of the floored mint.
func SharesForWithdraw(amount, totalAmount, totalShares uint64) uint64 {
	if totalAmount == 0 {
		return 0
	}
	return MulDivCeil(amount, totalShares, totalAmount)
}

// BpsShare computes floor(amount * bps / 10000).
func BpsShare(amount uint64, bps int64) uint64 {
	if bps <= 0 {
		return 0
	}
	return MulDivFloor(amount, uint64(bps), BpsDenominator)
}
