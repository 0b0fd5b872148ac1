package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Loan types
const (
	LoanTypeWeeklyAdvance = "weekly_advance"
	LoanTypeSalaryAdvance = "salary_advance"
	LoanTypeEmergency     = "emergency_loan"
)

// Loan statuses
const (
	LoanStatusPending   = "PENDING"
	LoanStatusApproved  = "APPROVED"
	LoanStatusActive    = "ACTIVE"
	LoanStatusCompleted = "COMPLETED"
	LoanStatusRejected  = "REJECTED"
)

// Loan is a short-term advance against future salary. At most one loan
// per employee may be ACTIVE at any time; repayments are deducted by the
// payroll batch until RemainingAmount reaches zero.
type Loan struct {
	ID               uint            `gorm:"primarykey"`
	Code             string          `gorm:"size:40;uniqueIndex;not null"`
	EmployeeID       uint            `gorm:"not null;index;uniqueIndex:ux_loans_employee_active,where:status = 'ACTIVE'"`
	Employee         *Employee       `gorm:"foreignKey:EmployeeID"`
	Type             string          `gorm:"not null;default:'salary_advance'"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	AmountPaid       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	RemainingAmount  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	MonthlyDeduction decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Status           string          `gorm:"not null;default:'PENDING';index"`
	Purpose          string          `gorm:"type:text"`
	RequestedWeeks   int
	ApproverID       uint
	ApproverRole     string
	ApprovalComments string `gorm:"type:text"`
	RequestedAt      time.Time `gorm:"not null"`
	ApprovedAt       *time.Time
	CompletedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
