package models

import "time"

// Organization enrolls employees. Onboarding and contract signing are
// external; the core only consults the loan-eligibility flag.
type Organization struct {
	ID           uint   `gorm:"primarykey"`
	Name         string `gorm:"not null"`
	LoanEligible bool   `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
