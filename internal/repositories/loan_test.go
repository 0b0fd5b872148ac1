package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rnrspay/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func seedEmployee(t *testing.T, db *gorm.DB, orgID uint, salary int64) *models.Employee {
	t.Helper()
	emp := &models.Employee{
		FirstName:      "Jean",
		LastName:       "Mugisha",
		MonthlySalary:  decimal.NewFromInt(salary),
		Status:         models.EmploymentActive,
		AccountNumber:  "1000",
		BankName:       "Bank of Kigali",
		AccountName:    "Jean Mugisha",
		OrganizationID: orgID,
	}
	require.NoError(t, db.Create(emp).Error)
	return emp
}

func seedLoan(t *testing.T, db *gorm.DB, employeeID uint, status string, requestedAt time.Time) *models.Loan {
	t.Helper()
	l := &models.Loan{
		Code:             "LN-" + requestedAt.Format("20060102150405") + "-" + status,
		EmployeeID:       employeeID,
		Type:             models.LoanTypeSalaryAdvance,
		Amount:           decimal.NewFromInt(100000),
		RemainingAmount:  decimal.NewFromInt(100000),
		MonthlyDeduction: decimal.NewFromInt(20000),
		Status:           status,
		RequestedAt:      requestedAt,
	}
	if status == models.LoanStatusApproved || status == models.LoanStatusActive {
		at := requestedAt.Add(time.Hour)
		l.ApprovedAt = &at
	}
	require.NoError(t, db.Create(l).Error)
	return l
}

func TestLoanRepositoryCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	emp := seedEmployee(t, db, 10, 500000)
	created := seedLoan(t, db, emp.ID, models.LoanStatusPending, time.Now().UTC())

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Code, got.Code)
	require.NotNil(t, got.Employee)
	assert.Equal(t, emp.ID, got.Employee.ID)

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoanRepositoryActiveByEmployee(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	emp := seedEmployee(t, db, 10, 500000)
	seedLoan(t, db, emp.ID, models.LoanStatusCompleted, time.Now().UTC().Add(-48*time.Hour))
	active := seedLoan(t, db, emp.ID, models.LoanStatusActive, time.Now().UTC())

	got, err := repo.ActiveByEmployee(ctx, emp.ID)
	require.NoError(t, err)
	assert.Equal(t, active.ID, got.ID)

	other := seedEmployee(t, db, 10, 300000)
	_, err = repo.ActiveByEmployee(ctx, other.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoanRepositoryPendingScopedByOrganization(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	inOrg := seedEmployee(t, db, 10, 500000)
	outOrg := seedEmployee(t, db, 20, 300000)
	second := seedLoan(t, db, inOrg.ID, models.LoanStatusPending, now)
	first := seedLoan(t, db, outOrg.ID, models.LoanStatusPending, now.Add(-time.Hour))

	all, err := repo.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	// oldest request first
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)

	scoped, err := repo.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, second.ID, scoped[0].ID)
	require.NotNil(t, scoped[0].Employee)
}

func TestLoanRepositoryApprovedOrdering(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	emp := seedEmployee(t, db, 10, 500000)
	older := seedLoan(t, db, emp.ID, models.LoanStatusApproved, time.Now().UTC().Add(-24*time.Hour))
	newer := seedLoan(t, db, emp.ID, models.LoanStatusApproved, time.Now().UTC())

	got, err := repo.Approved(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// most recently approved first
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)
}

func TestLoanRepositoryByEmployee(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	emp := seedEmployee(t, db, 10, 500000)
	seedLoan(t, db, emp.ID, models.LoanStatusCompleted, time.Now().UTC().Add(-72*time.Hour))
	seedLoan(t, db, emp.ID, models.LoanStatusActive, time.Now().UTC())

	history, err := repo.ByEmployee(ctx, emp.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	// newest request first
	assert.Equal(t, models.LoanStatusActive, history[0].Status)
}

func TestLoanRepositoryUpdateInTransaction(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	emp := seedEmployee(t, db, 10, 500000)
	l := seedLoan(t, db, emp.ID, models.LoanStatusActive, time.Now().UTC())

	err := repo.ExecuteInTransaction(func(tx LoanRepository) error {
		got, err := tx.GetByID(ctx, l.ID)
		if err != nil {
			return err
		}
		got.AmountPaid = decimal.NewFromInt(20000)
		got.RemainingAmount = decimal.NewFromInt(80000)
		return tx.Update(ctx, got)
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.True(t, got.RemainingAmount.Equal(decimal.NewFromInt(80000)))
}

func TestLoanRepositorySingleActivePerEmployee(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	emp := seedEmployee(t, db, 10, 500000)
	seedLoan(t, db, emp.ID, models.LoanStatusActive, time.Now().UTC().Add(-time.Hour))

	// a second ACTIVE loan for the same employee violates the partial index
	dup := &models.Loan{
		Code:             "LN-DUP-ACTIVE",
		EmployeeID:       emp.ID,
		Type:             models.LoanTypeSalaryAdvance,
		Amount:           decimal.NewFromInt(50000),
		RemainingAmount:  decimal.NewFromInt(50000),
		MonthlyDeduction: decimal.NewFromInt(20000),
		Status:           models.LoanStatusActive,
		RequestedAt:      time.Now().UTC(),
	}
	assert.Error(t, repo.Create(ctx, dup))

	// non-ACTIVE rows for the same employee are unconstrained
	seedLoan(t, db, emp.ID, models.LoanStatusCompleted, time.Now().UTC())
	seedLoan(t, db, emp.ID, models.LoanStatusApproved, time.Now().UTC().Add(time.Minute))
}

func TestLoanRepositoryDuplicateCodeRejected(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	emp := seedEmployee(t, db, 10, 500000)
	l := seedLoan(t, db, emp.ID, models.LoanStatusCompleted, time.Now().UTC())

	dup := *l
	dup.ID = 0
	err := repo.Create(ctx, &dup)
	assert.Error(t, err)
}
