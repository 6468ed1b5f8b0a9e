package chain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// ToBaseUnits converts a human-readable amount into token base units,
// truncating any precision beyond the token's decimals.
func ToBaseUnits(amount decimal.Decimal, decimals int) *big.Int {
	return amount.Shift(int32(decimals)).Truncate(0).BigInt()
}

// FromBaseUnits converts token base units back into a human-readable amount.
func FromBaseUnits(amount *big.Int, decimals int) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimals))
}
