package fee

import (
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/money"
)

// Policy governs transfer fees. Amounts at or below MinTransferAmount are
// free; above it the fee is BaseFee plus PercentageFee of the amount.
type Policy struct {
	MinTransferAmount decimal.Decimal
	BaseFee           decimal.Decimal
	PercentageFee     decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		MinTransferAmount: decimal.RequireFromString("25.00"),
		BaseFee:           decimal.RequireFromString("2.50"),
		PercentageFee:     decimal.RequireFromString("0.10"),
	}
}

// Calculate returns the fee for amount together with its components. The
// percentage component is exact; only the total is rounded.
func (p Policy) Calculate(amount decimal.Decimal) domain.FeeBreakdown {
	if amount.LessThanOrEqual(p.MinTransferAmount) {
		return domain.FeeBreakdown{
			BaseFee:       decimal.Zero,
			PercentageFee: decimal.Zero,
			TotalFee:      decimal.Zero,
			FeeApplied:    false,
		}
	}

	pct := amount.Mul(p.PercentageFee)
	return domain.FeeBreakdown{
		BaseFee:       p.BaseFee,
		PercentageFee: pct,
		TotalFee:      money.Round(p.BaseFee.Add(pct)),
		FeeApplied:    true,
	}
}

func (p Policy) Fee(amount decimal.Decimal) decimal.Decimal {
	return p.Calculate(amount).TotalFee
}
