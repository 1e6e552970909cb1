package chain

import "fmt"

// Anchor numbers custom program errors from 6000 in enum declaration order.
const customErrorBase = 6000

var errorCodeNames = []string{
	"DepositTooSmall",
	"BetTooLarge",
	"InsufficientFunds",
	"ExceedsLiquidityLimit",
	"BetAlreadySettled",
	"InvalidFightId",
	"Unauthorized",
	"InsufficientTreasuryFunds",
	"InsufficientSolVaultFunds",
	"InvalidTransferAmount",
	"TreasuryBalanceBelowMinimum",
	"InvalidBetState",
	"InvalidOdds",
	"InvalidAuthority",
	"CalculationOverflow",
	"InvalidAccount",
	"BetNotSettled",
}

// ErrorCodeName translates a custom error number from the betting program
// into its symbolic name. Unknown numbers come back as Custom(n) so the
// caller still sees something diagnosable.
func ErrorCodeName(code int) string {
	idx := code - customErrorBase
	if idx >= 0 && idx < len(errorCodeNames) {
		return errorCodeNames[idx]
	}
	return fmt.Sprintf("Custom(%d)", code)
}
