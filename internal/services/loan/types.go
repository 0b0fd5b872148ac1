package loan

import (
	"github.com/shopspring/decimal"

	"rnrspay/internal/models"
)

// Monthly repayment is a flat share of salary regardless of principal
// or term. Product decision carried over as-is.
var monthlyDeductionRate = decimal.NewFromFloat(0.04)

// Principal ceilings as a multiple of monthly salary, per loan type.
var (
	weeklyAdvanceCeiling = decimal.NewFromFloat(0.25)
	salaryAdvanceCeiling = decimal.NewFromFloat(0.5)
	emergencyCeiling     = decimal.NewFromInt(2)
)

// RequestInput is the payload for a new loan request.
type RequestInput struct {
	EmployeeID     uint
	Amount         decimal.Decimal
	Purpose        string
	LoanType       string
	RequestedWeeks int
}

// Scope restricts query results by caller role. Organization callers
// only see loans for their own employees; staff roles see everything.
type Scope struct {
	Role           string
	OrganizationID uint
}

func (s Scope) organizationID() uint {
	if s.Role == models.RoleOrganization {
		return s.OrganizationID
	}
	return 0
}

// CeilingFor returns the maximum principal for a loan type given the
// employee's monthly salary. Unknown types use the salary_advance rule.
func CeilingFor(loanType string, monthlySalary decimal.Decimal) decimal.Decimal {
	switch loanType {
	case models.LoanTypeWeeklyAdvance:
		return monthlySalary.Mul(weeklyAdvanceCeiling).Round(2)
	case models.LoanTypeEmergency:
		return monthlySalary.Mul(emergencyCeiling).Round(2)
	default:
		return monthlySalary.Mul(salaryAdvanceCeiling).Round(2)
	}
}
