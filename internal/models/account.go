package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Disbursement account pools. Every payroll transfer leg is sourced from
// the main pool; savings and insurance deductions land in their pools.
const (
	AccountPoolMain      = "main"
	AccountPoolSavings   = "savings"
	AccountPoolInsurance = "insurance"
)

// DisbursementAccount is a named pool of funds used for outbound
// transfers. Balances are maintained by the external rail, not mutated
// by the core.
type DisbursementAccount struct {
	ID            uint            `gorm:"primarykey"`
	Name          string          `gorm:"size:24;uniqueIndex;not null"`
	AccountNumber string          `gorm:"not null"`
	BankName      string          `gorm:"not null"`
	AccountName   string
	Balance       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Active        bool            `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
