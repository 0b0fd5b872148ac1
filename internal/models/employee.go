package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Employment statuses
const (
	EmploymentActive     = "active"
	EmploymentTerminated = "terminated"
)

// Employee is enrolled by an organization and paid through the monthly
// batch. The core reads employees; onboarding owns their lifecycle.
type Employee struct {
	ID             uint            `gorm:"primarykey"`
	FirstName      string          `gorm:"not null"`
	LastName       string          `gorm:"not null"`
	MonthlySalary  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Status         string          `gorm:"not null;default:'active'"`
	AccountNumber  string          `gorm:"not null"`
	BankName       string          `gorm:"not null"`
	AccountName    string          // account holder display name
	OrganizationID uint            `gorm:"not null;index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FullName returns the display name used on transfer legs.
func (e *Employee) FullName() string {
	if e.AccountName != "" {
		return e.AccountName
	}
	return e.FirstName + " " + e.LastName
}
