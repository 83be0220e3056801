package compliance

import (
	"github.com/shopspring/decimal"
	"github.com/warp/shift-engine/roster"
)

// =============================================================================
// CONTRACT POLICY - Weekly ceiling and minimum rest
// =============================================================================

var (
	maxHoursOperativo = decimal.NewFromInt(48)
	maxHoursConfianza = decimal.NewFromInt(72)
	minRestHours      = decimal.NewFromInt(12)
)

// MaxHours returns the weekly-hour ceiling of a contract.
// Unknown contracts get the Operativo ceiling.
func MaxHours(c roster.Contract) decimal.Decimal {
	if c == roster.ContractConfianza {
		return maxHoursConfianza
	}
	return maxHoursOperativo
}

// MinRestHours is the minimum rest between consecutive working days. It does
// not depend on the contract.
func MinRestHours() decimal.Decimal { return minRestHours }
