package services

import (
	"fmt"

	"vault-backend/internal/models"
	"vault-backend/internal/utils"
)

// Pool mutation helpers shared by the synchronous and deferred withdrawal
// paths. Both totals move together or not at all; callers run inside a single
// store transaction.

// mintShares converts amount to LP shares at the asset's current rate and
// applies the mint to the aggregate ledger.
func mintShares(asset *models.AssetState, amount uint64) uint64 {
	shares := utils.SharesForDeposit(amount, asset.TotalAmount, asset.TotalLPShares)
	asset.TotalAmount += amount
	asset.TotalLPShares += shares
	return shares
}

// burnShares removes amount and shares from the aggregate ledger. Totals
// going negative means the caller's checks were wrong, not bad user input.
func burnShares(asset *models.AssetState, amount, shares uint64) error {
	if amount > asset.TotalAmount {
		return fmt.Errorf("%w: burn amount %d exceeds total %d for %s",
			ErrLedgerInvariant, amount, asset.TotalAmount, asset.Asset)
	}
	if shares > asset.TotalLPShares {
		return fmt.Errorf("%w: burn shares %d exceed total %d for %s",
			ErrLedgerInvariant, shares, asset.TotalLPShares, asset.Asset)
	}
	asset.TotalAmount -= amount
	asset.TotalLPShares -= shares
	return nil
}

// sharesToBurn prices an amount-denominated withdrawal in shares, capped at
// the holder's balance so ceiling rounding on a full exit cannot overshoot.
func sharesToBurn(asset *models.AssetState, amount, held uint64) (uint64, error) {
	shares := utils.SharesForWithdraw(amount, asset.TotalAmount, asset.TotalLPShares)
	if shares > held {
		// A full exit may round one share past the balance; allow it only
		// when the held shares still cover the amount at the floor rate.
		if utils.AmountForShares(held, asset.TotalAmount, asset.TotalLPShares) >= amount {
			return held, nil
		}
		return 0, ErrInsufficientShares
	}
	return shares, nil
}

// debitPrincipal reduces the principal ledger, saturating at zero. After
// interest distribution a position's share value can exceed its principal,
// so an appreciated withdrawal legitimately debits more than was deposited.
func debitPrincipal(account *models.AccountAsset, amount uint64) {
	if amount >= account.CurrentAmount {
		account.CurrentAmount = 0
	} else {
		account.CurrentAmount -= amount
	}
}

func checkDepositBounds(asset *models.AssetState, amount uint64) error {
	if amount < asset.MinDeposit {
		return ErrAmountOutOfRange
	}
	if asset.MaxDeposit > 0 && amount > asset.MaxDeposit {
		return ErrAmountOutOfRange
	}
	return nil
}

func checkWithdrawBounds(asset *models.AssetState, amount uint64) error {
	if amount < asset.MinWithdraw {
		return ErrAmountOutOfRange
	}
	if asset.MaxWithdraw > 0 && amount > asset.MaxWithdraw {
		return ErrAmountOutOfRange
	}
	return nil
}
