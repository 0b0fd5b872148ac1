package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment statuses
const (
	PaymentStatusPending    = "PENDING"
	PaymentStatusProcessing = "PROCESSING"
	PaymentStatusCompleted  = "COMPLETED"
	PaymentStatusFailed     = "FAILED"
)

// Payment records one employee's disbursement for a payroll period. The
// partial unique index over COMPLETED rows is the batch's idempotency
// guard against paying the same period twice.
type Payment struct {
	ID                 uint            `gorm:"primarykey"`
	Reference          string          `gorm:"size:48;uniqueIndex;not null"`
	SalaryCode         string          `gorm:"size:40;index;not null"`
	EmployeeID         uint            `gorm:"not null;index;uniqueIndex:ux_payments_completed_period,where:status = 'COMPLETED'"`
	Employee           *Employee       `gorm:"foreignKey:EmployeeID"`
	GrossSalary        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	LoanDeduction      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	SavingsDeduction   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	InsuranceDeduction decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	NetSalary          decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Status             string          `gorm:"not null;default:'PENDING';index"`
	PaymentMonth       int             `gorm:"not null;uniqueIndex:ux_payments_completed_period,where:status = 'COMPLETED'"`
	PaymentYear        int             `gorm:"not null;uniqueIndex:ux_payments_completed_period,where:status = 'COMPLETED'"`
	ProcessedAt        *time.Time
	TransactionID      string // salary-leg transaction id from the gateway
	FailureReason      string `gorm:"type:text"`
	RetryCount         int    `gorm:"not null;default:0"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
