package payroll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rnrspay/internal/models"
	"rnrspay/internal/repositories"
	"rnrspay/internal/services/gateway"
	"rnrspay/internal/services/loan"
)

// --- in-memory fakes ---

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[uint]*models.Payment
	nextID   uint
	// employees lets FailedBelowRetryLimit attach the employee like the
	// real preload does.
	employees map[uint]*models.Employee
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{
		payments:  make(map[uint]*models.Payment),
		employees: make(map[uint]*models.Employee),
	}
}

func (r *fakePaymentRepo) Create(_ context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) Update(_ context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) GetByID(_ context.Context, id uint) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaymentRepo) CompletedExists(_ context.Context, employeeID uint, month, year int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.EmployeeID == employeeID && p.PaymentMonth == month && p.PaymentYear == year &&
			p.Status == models.PaymentStatusCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePaymentRepo) ByEmployee(_ context.Context, employeeID uint, limit int) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Payment
	for _, p := range r.payments {
		if p.EmployeeID == employeeID {
			out = append(out, *p)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakePaymentRepo) ByReference(_ context.Context, reference string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.Reference == reference {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakePaymentRepo) BySalaryCode(_ context.Context, salaryCode string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.SalaryCode == salaryCode {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakePaymentRepo) FailedBelowRetryLimit(_ context.Context, maxAttempts int) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Payment
	for _, p := range r.payments {
		if p.Status == models.PaymentStatusFailed && p.RetryCount < maxAttempts {
			cp := *p
			cp.Employee = r.employees[p.EmployeeID]
			out = append(out, cp)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) all() []models.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Payment
	for _, p := range r.payments {
		out = append(out, *p)
	}
	return out
}

func (r *fakePaymentRepo) forEmployee(employeeID uint) []models.Payment {
	var out []models.Payment
	for _, p := range r.all() {
		if p.EmployeeID == employeeID {
			out = append(out, p)
		}
	}
	return out
}

type fakeEmployeeRepo struct {
	employees []models.Employee
}

func (r *fakeEmployeeRepo) GetByID(_ context.Context, id uint) (*models.Employee, error) {
	for i := range r.employees {
		if r.employees[i].ID == id {
			return &r.employees[i], nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeEmployeeRepo) Active(_ context.Context) ([]models.Employee, error) {
	var out []models.Employee
	for _, e := range r.employees {
		if e.Status == models.EmploymentActive {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeAccountRepo struct{}

func (r *fakeAccountRepo) GetByName(_ context.Context, name string) (*models.DisbursementAccount, error) {
	return &models.DisbursementAccount{
		Name:          name,
		AccountNumber: "400-" + name,
		BankName:      "Bank of Kigali",
		AccountName:   "RNRS " + name,
		Active:        true,
	}, nil
}

func (r *fakeAccountRepo) Create(_ context.Context, _ *models.DisbursementAccount) error {
	return nil
}

type repaymentCall struct {
	loanID uint
	amount decimal.Decimal
}

type fakeLedger struct {
	mu         sync.Mutex
	active     map[uint]*models.Loan // keyed by employee id
	repayments []repaymentCall
}

func (f *fakeLedger) ActiveLoanFor(_ context.Context, _ loan.Scope, employeeID uint) (*models.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.active[employeeID]
	if !ok {
		return nil, loan.ErrLoanNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLedger) ApplyRepayment(_ context.Context, loanID uint, amount decimal.Decimal) (*models.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repayments = append(f.repayments, repaymentCall{loanID: loanID, amount: amount})
	for _, l := range f.active {
		if l.ID == loanID {
			l.AmountPaid = l.AmountPaid.Add(amount)
			l.RemainingAmount = l.RemainingAmount.Sub(amount)
			cp := *l
			return &cp, nil
		}
	}
	return nil, loan.ErrLoanNotFound
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocker() *fakeLocker { return &fakeLocker{held: make(map[string]bool)} }

func (l *fakeLocker) key(month, year int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

func (l *fakeLocker) Acquire(_ context.Context, month, year int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := l.key(month, year)
	if l.held[k] {
		return false, nil
	}
	l.held[k] = true
	return true, nil
}

func (l *fakeLocker) Release(_ context.Context, month, year int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, l.key(month, year))
	return nil
}

// --- fixtures ---

type fixture struct {
	svc      Service
	payments *fakePaymentRepo
	ledger   *fakeLedger
	rail     *gateway.Simulated
	locker   *fakeLocker
}

func newFixture(employees []models.Employee, activeLoans map[uint]*models.Loan) *fixture {
	payments := newFakePaymentRepo()
	for i := range employees {
		e := employees[i]
		payments.employees[e.ID] = &e
	}
	if activeLoans == nil {
		activeLoans = map[uint]*models.Loan{}
	}
	ledger := &fakeLedger{active: activeLoans}
	rail := gateway.NewSimulated()
	locker := newFakeLocker()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	svc := NewService(
		payments,
		&fakeEmployeeRepo{employees: employees},
		&fakeAccountRepo{},
		ledger,
		rail,
		locker,
		nil,
		Config{Workers: 2},
		log,
	)
	return &fixture{svc: svc, payments: payments, ledger: ledger, rail: rail, locker: locker}
}

func employee(id uint, salary int64) models.Employee {
	return models.Employee{
		ID:            id,
		FirstName:     "Emp",
		LastName:      "Loyee",
		MonthlySalary: decimal.NewFromInt(salary),
		Status:        models.EmploymentActive,
		AccountNumber: fmt.Sprintf("ACC-%d", id),
		BankName:      "Equity Bank",
	}
}

// --- tests ---

func TestRunComputesDeductionsAndRepays(t *testing.T) {
	activeLoan := &models.Loan{
		ID:               3,
		EmployeeID:       1,
		Status:           models.LoanStatusActive,
		Amount:           decimal.NewFromInt(200000),
		RemainingAmount:  decimal.NewFromInt(200000),
		MonthlyDeduction: decimal.NewFromInt(20000),
	}
	f := newFixture([]models.Employee{employee(1, 500000)}, map[uint]*models.Loan{1: activeLoan})

	summary, err := f.svc.Run(context.Background(), 3, 2026)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 0, summary.Failed)

	ps := f.payments.forEmployee(1)
	require.Len(t, ps, 1)
	p := ps[0]
	assert.Equal(t, models.PaymentStatusCompleted, p.Status)
	assert.True(t, p.LoanDeduction.Equal(decimal.NewFromInt(20000)), "loan = %s", p.LoanDeduction)
	assert.True(t, p.SavingsDeduction.Equal(decimal.NewFromInt(5000)), "savings = %s", p.SavingsDeduction)
	assert.True(t, p.InsuranceDeduction.Equal(decimal.NewFromInt(5000)), "insurance = %s", p.InsuranceDeduction)
	assert.True(t, p.NetSalary.Equal(decimal.NewFromInt(470000)), "net = %s", p.NetSalary)
	assert.NotEmpty(t, p.TransactionID)
	assert.NotNil(t, p.ProcessedAt)

	require.Len(t, f.ledger.repayments, 1)
	assert.Equal(t, uint(3), f.ledger.repayments[0].loanID)
	assert.True(t, f.ledger.repayments[0].amount.Equal(decimal.NewFromInt(20000)))

	// salary, savings and insurance legs, all from the main pool
	calls := f.rail.Calls()
	require.Len(t, calls, 3)
	for _, d := range calls {
		assert.Equal(t, "400-main", d.SourceAccount)
	}
}

func TestRunWithoutLoanHasZeroLoanDeduction(t *testing.T) {
	f := newFixture([]models.Employee{employee(1, 500000)}, nil)

	_, err := f.svc.Run(context.Background(), 3, 2026)
	require.NoError(t, err)

	ps := f.payments.forEmployee(1)
	require.Len(t, ps, 1)
	assert.True(t, ps[0].LoanDeduction.IsZero())
	assert.True(t, ps[0].NetSalary.Equal(decimal.NewFromInt(490000)))
	assert.Empty(t, f.ledger.repayments)
}

func TestRunIsIdempotentPerPeriod(t *testing.T) {
	f := newFixture([]models.Employee{employee(1, 500000)}, nil)

	first, err := f.svc.Run(context.Background(), 3, 2026)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Processed)

	second, err := f.svc.Run(context.Background(), 3, 2026)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Processed)
	assert.Equal(t, 1, second.Skipped)

	assert.Len(t, f.payments.forEmployee(1), 1)

	// a different period is processed again
	third, err := f.svc.Run(context.Background(), 4, 2026)
	require.NoError(t, err)
	assert.Equal(t, 1, third.Processed)
}

func TestRunTransferFailureIsolation(t *testing.T) {
	activeLoan := &models.Loan{
		ID:               3,
		EmployeeID:       1,
		Status:           models.LoanStatusActive,
		RemainingAmount:  decimal.NewFromInt(200000),
		MonthlyDeduction: decimal.NewFromInt(20000),
	}
	f := newFixture(
		[]models.Employee{employee(1, 500000), employee(2, 300000)},
		map[uint]*models.Loan{1: activeLoan},
	)
	// fail only employee 1's salary leg
	f.rail.SetFailFunc(func(d gateway.Descriptor) error {
		if d.DestinationAccount == "ACC-1" {
			return errors.New("rail unavailable")
		}
		return nil
	})

	summary, err := f.svc.Run(context.Background(), 3, 2026)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Processed)

	failed := f.payments.forEmployee(1)
	require.Len(t, failed, 1)
	assert.Equal(t, models.PaymentStatusFailed, failed[0].Status)
	assert.NotEmpty(t, failed[0].FailureReason)
	assert.Contains(t, failed[0].FailureReason, "salary leg")

	// no repayment was applied for the failed employee
	assert.Empty(t, f.ledger.repayments)
	assert.True(t, activeLoan.RemainingAmount.Equal(decimal.NewFromInt(200000)))

	ok := f.payments.forEmployee(2)
	require.Len(t, ok, 1)
	assert.Equal(t, models.PaymentStatusCompleted, ok[0].Status)
}

func TestRunRejectsOverlappingExecutions(t *testing.T) {
	f := newFixture([]models.Employee{employee(1, 500000)}, nil)

	ok, err := f.locker.Acquire(context.Background(), 3, 2026)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.Run(context.Background(), 3, 2026)
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestRunValidatesPeriod(t *testing.T) {
	f := newFixture(nil, nil)
	_, err := f.svc.Run(context.Background(), 13, 2026)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
	_, err = f.svc.Run(context.Background(), 0, 2026)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestRetryFailedRecoversPayment(t *testing.T) {
	f := newFixture([]models.Employee{employee(1, 500000)}, nil)

	f.rail.SetFailFunc(func(gateway.Descriptor) error { return errors.New("rail down") })
	_, err := f.svc.Run(context.Background(), 3, 2026)
	require.NoError(t, err)

	ps := f.payments.forEmployee(1)
	require.Len(t, ps, 1)
	require.Equal(t, models.PaymentStatusFailed, ps[0].Status)

	// rail recovers
	f.rail.SetFailFunc(nil)
	summary, err := f.svc.RetryFailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)

	ps = f.payments.forEmployee(1)
	require.Len(t, ps, 1)
	assert.Equal(t, models.PaymentStatusCompleted, ps[0].Status)
	assert.Equal(t, 1, ps[0].RetryCount)
	assert.NotEmpty(t, ps[0].TransactionID)
}

func TestRetryFailedStopsAfterMaxAttempts(t *testing.T) {
	f := newFixture([]models.Employee{employee(1, 500000)}, nil)
	f.rail.SetFailFunc(func(gateway.Descriptor) error { return errors.New("rail down") })

	_, err := f.svc.Run(context.Background(), 3, 2026)
	require.NoError(t, err)

	// three attempts allowed by default
	for i := 0; i < 3; i++ {
		summary, err := f.svc.RetryFailed(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Failed)
	}

	// attempts exhausted: nothing left to retry
	summary, err := f.svc.RetryFailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 0, summary.Processed)

	ps := f.payments.forEmployee(1)
	require.Len(t, ps, 1)
	assert.Equal(t, models.PaymentStatusFailed, ps[0].Status)
	assert.Equal(t, 3, ps[0].RetryCount)
}

func TestRetryFailedSkipsSupersededPayment(t *testing.T) {
	f := newFixture([]models.Employee{employee(1, 500000)}, nil)

	f.rail.SetFailFunc(func(gateway.Descriptor) error { return errors.New("rail down") })
	_, err := f.svc.Run(context.Background(), 3, 2026)
	require.NoError(t, err)

	// a later run for the same period completes a fresh payment
	f.rail.SetFailFunc(nil)
	rerun, err := f.svc.Run(context.Background(), 3, 2026)
	require.NoError(t, err)
	require.Equal(t, 1, rerun.Processed)
	legsBefore := len(f.rail.Calls())

	// the stale FAILED row must not be resubmitted
	summary, err := f.svc.RetryFailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Len(t, f.rail.Calls(), legsBefore)

	var completed, failed int
	for _, p := range f.payments.forEmployee(1) {
		switch p.Status {
		case models.PaymentStatusCompleted:
			completed++
		case models.PaymentStatusFailed:
			failed++
			assert.Contains(t, p.FailureReason, "superseded")
		}
	}
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, failed)

	// the superseded row stays out of every later retry pass
	summary, err = f.svc.RetryFailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.Processed)
}

func TestPaymentReads(t *testing.T) {
	f := newFixture([]models.Employee{employee(1, 500000)}, nil)
	_, err := f.svc.Run(context.Background(), 3, 2026)
	require.NoError(t, err)

	ps := f.payments.forEmployee(1)
	require.Len(t, ps, 1)

	byRef, err := f.svc.ByReference(context.Background(), ps[0].Reference)
	require.NoError(t, err)
	assert.Equal(t, ps[0].ID, byRef.ID)

	byCode, err := f.svc.BySalaryCode(context.Background(), ps[0].SalaryCode)
	require.NoError(t, err)
	assert.Equal(t, ps[0].ID, byCode.ID)

	_, err = f.svc.ByReference(context.Background(), "PAY-NOPE")
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	list, err := f.svc.PaymentsFor(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
