package payroll

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"rnrspay/internal/models"
	"rnrspay/internal/repositories"
	"rnrspay/internal/repositories/cache"
	"rnrspay/internal/services/gateway"
	"rnrspay/internal/services/loan"
)

type service struct {
	payments  repositories.PaymentRepository
	employees repositories.EmployeeRepository
	accounts  repositories.AccountRepository
	ledger    LoanLedger
	rail      gateway.Gateway
	lock      RunLocker
	cache     *cache.CacheService
	cfg       Config
	log       *logrus.Logger
}

// NewService creates the payroll batch service. The cache is optional.
func NewService(
	payments repositories.PaymentRepository,
	employees repositories.EmployeeRepository,
	accounts repositories.AccountRepository,
	ledger LoanLedger,
	rail gateway.Gateway,
	lock RunLocker,
	cacheService *cache.CacheService,
	cfg Config,
	log *logrus.Logger,
) Service {
	if payments == nil {
		panic("payment repository is required")
	}
	if employees == nil {
		panic("employee repository is required")
	}
	if accounts == nil {
		panic("account repository is required")
	}
	if ledger == nil {
		panic("loan ledger is required")
	}
	if rail == nil {
		panic("transfer gateway is required")
	}
	if lock == nil {
		panic("run locker is required")
	}
	if log == nil {
		log = logrus.New()
	}
	return &service{
		payments:  payments,
		employees: employees,
		accounts:  accounts,
		ledger:    ledger,
		rail:      rail,
		lock:      lock,
		cache:     cacheService,
		cfg:       cfg.withDefaults(),
		log:       log,
	}
}

// pools holds the disbursement accounts resolved once per run.
type pools struct {
	main      *models.DisbursementAccount
	savings   *models.DisbursementAccount
	insurance *models.DisbursementAccount
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeCompleted
	outcomeFailed
)

func (s *service) Run(ctx context.Context, month, year int) (*RunSummary, error) {
	if month < 1 || month > 12 || year < 2000 {
		return nil, ErrInvalidPeriod
	}

	ok, err := s.lock.Acquire(ctx, month, year)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	defer func() {
		if err := s.lock.Release(context.Background(), month, year); err != nil {
			s.log.WithError(err).Error("failed to release payroll run lock")
		}
	}()

	p, err := s.loadPools(ctx)
	if err != nil {
		return nil, err
	}
	emps, err := s.employees.Active(ctx)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{Month: month, Year: year}
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		fatalErr error
	)
	sem := make(chan struct{}, s.cfg.Workers)

	for i := range emps {
		mu.Lock()
		stop := fatalErr != nil
		mu.Unlock()
		if stop {
			break
		}

		emp := emps[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := s.processEmployee(ctx, &emp, p, month, year)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Store-level failure: continuing without durable
				// storage is unsafe.
				if fatalErr == nil {
					fatalErr = err
				}
				return
			}
			switch result {
			case outcomeSkipped:
				summary.Skipped++
			case outcomeCompleted:
				summary.Processed++
			case outcomeFailed:
				summary.Failed++
			}
		}()
	}
	wg.Wait()

	if fatalErr != nil {
		return nil, fmt.Errorf("payroll run %d/%d aborted: %w", month, year, fatalErr)
	}

	s.log.WithFields(logrus.Fields{
		"month":     month,
		"year":      year,
		"processed": summary.Processed,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
	}).Info("payroll run finished")
	return summary, nil
}

func (s *service) processEmployee(ctx context.Context, emp *models.Employee, p *pools, month, year int) (outcome, error) {
	done, err := s.payments.CompletedExists(ctx, emp.ID, month, year)
	if err != nil {
		return 0, err
	}
	if done {
		return outcomeSkipped, nil
	}

	loanDeduction := decimal.Zero
	var activeLoan *models.Loan
	if l, err := s.ledger.ActiveLoanFor(ctx, loan.Scope{}, emp.ID); err == nil {
		activeLoan = l
		loanDeduction = l.MonthlyDeduction
	} else if !errors.Is(err, loan.ErrLoanNotFound) {
		return 0, err
	}

	gross := emp.MonthlySalary
	savings := gross.Mul(savingsRate).Round(2)
	insurance := gross.Mul(insuranceRate).Round(2)
	net := gross.Sub(loanDeduction).Sub(savings).Sub(insurance)

	payment := &models.Payment{
		Reference:          generateReference(),
		SalaryCode:         generateSalaryCode(month, year, emp.ID),
		EmployeeID:         emp.ID,
		GrossSalary:        gross,
		LoanDeduction:      loanDeduction,
		SavingsDeduction:   savings,
		InsuranceDeduction: insurance,
		NetSalary:          net,
		Status:             models.PaymentStatusProcessing,
		PaymentMonth:       month,
		PaymentYear:        year,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return 0, err
	}

	receipt, err := s.executeLegs(ctx, payment, emp, p)
	if err != nil {
		payment.Status = models.PaymentStatusFailed
		payment.FailureReason = err.Error()
		if uerr := s.payments.Update(ctx, payment); uerr != nil {
			return 0, uerr
		}
		s.log.WithFields(logrus.Fields{
			"employee_id": emp.ID,
			"reference":   payment.Reference,
		}).WithError(err).Warn("payroll payment failed")
		return outcomeFailed, nil
	}

	now := time.Now().UTC()
	payment.Status = models.PaymentStatusCompleted
	payment.TransactionID = receipt.TransactionID
	payment.ProcessedAt = &now
	if err := s.payments.Update(ctx, payment); err != nil {
		return 0, err
	}

	// Repayment only after the transfers are confirmed.
	if activeLoan != nil && loanDeduction.IsPositive() {
		if _, err := s.ledger.ApplyRepayment(ctx, activeLoan.ID, loanDeduction); err != nil {
			return 0, err
		}
	}
	return outcomeCompleted, nil
}

// executeLegs runs the three transfer legs, all sourced from the main
// pool. Returns the salary-leg receipt on full success.
func (s *service) executeLegs(ctx context.Context, p *models.Payment, emp *models.Employee, pools *pools) (*gateway.Receipt, error) {
	period := fmt.Sprintf("%04d-%02d", p.PaymentYear, p.PaymentMonth)

	salary, err := s.transfer(ctx, gateway.Descriptor{
		SourceAccount:      pools.main.AccountNumber,
		DestinationAccount: emp.AccountNumber,
		DestinationBank:    emp.BankName,
		Amount:             p.NetSalary,
		Reference:          p.Reference,
		Description:        "Net salary " + period,
		RecipientName:      emp.FullName(),
	})
	if err != nil {
		return nil, fmt.Errorf("salary leg: %w", err)
	}

	if p.SavingsDeduction.IsPositive() {
		if _, err := s.transfer(ctx, gateway.Descriptor{
			SourceAccount:      pools.main.AccountNumber,
			DestinationAccount: pools.savings.AccountNumber,
			DestinationBank:    pools.savings.BankName,
			Amount:             p.SavingsDeduction,
			Reference:          p.Reference + "-SAV",
			Description:        "Savings deduction " + period,
			RecipientName:      pools.savings.AccountName,
		}); err != nil {
			return nil, fmt.Errorf("savings leg: %w", err)
		}
	}

	if p.InsuranceDeduction.IsPositive() {
		if _, err := s.transfer(ctx, gateway.Descriptor{
			SourceAccount:      pools.main.AccountNumber,
			DestinationAccount: pools.insurance.AccountNumber,
			DestinationBank:    pools.insurance.BankName,
			Amount:             p.InsuranceDeduction,
			Reference:          p.Reference + "-INS",
			Description:        "Insurance deduction " + period,
			RecipientName:      pools.insurance.AccountName,
		}); err != nil {
			return nil, fmt.Errorf("insurance leg: %w", err)
		}
	}

	return salary, nil
}

func (s *service) transfer(ctx context.Context, d gateway.Descriptor) (*gateway.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.TransferTimeout)
	defer cancel()
	return s.rail.Transfer(ctx, d)
}

func (s *service) RetryFailed(ctx context.Context) (*RunSummary, error) {
	failed, err := s.payments.FailedBelowRetryLimit(ctx, s.cfg.MaxRetryAttempts)
	if err != nil {
		return nil, err
	}
	if len(failed) == 0 {
		return &RunSummary{}, nil
	}

	p, err := s.loadPools(ctx)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{}
	for i := range failed {
		payment := &failed[i]
		if payment.Employee == nil {
			s.log.WithField("reference", payment.Reference).Warn("failed payment without employee, skipping retry")
			continue
		}

		// A later run may have already paid this period; resubmitting the
		// stale row would disburse the salary twice.
		done, err := s.payments.CompletedExists(ctx, payment.EmployeeID, payment.PaymentMonth, payment.PaymentYear)
		if err != nil {
			return nil, err
		}
		if done {
			payment.RetryCount = s.cfg.MaxRetryAttempts
			payment.FailureReason = "superseded by a completed payment for the same period"
			if err := s.payments.Update(ctx, payment); err != nil {
				return nil, err
			}
			s.log.WithField("reference", payment.Reference).Info("failed payment superseded, not retried")
			summary.Skipped++
			continue
		}

		payment.RetryCount++
		payment.Status = models.PaymentStatusProcessing
		payment.FailureReason = ""
		if err := s.payments.Update(ctx, payment); err != nil {
			return nil, err
		}

		receipt, err := s.executeLegs(ctx, payment, payment.Employee, p)
		if err != nil {
			payment.Status = models.PaymentStatusFailed
			payment.FailureReason = err.Error()
			if uerr := s.payments.Update(ctx, payment); uerr != nil {
				return nil, uerr
			}
			summary.Failed++
			continue
		}

		now := time.Now().UTC()
		payment.Status = models.PaymentStatusCompleted
		payment.TransactionID = receipt.TransactionID
		payment.ProcessedAt = &now
		if err := s.payments.Update(ctx, payment); err != nil {
			return nil, err
		}

		if payment.LoanDeduction.IsPositive() {
			if l, err := s.ledger.ActiveLoanFor(ctx, loan.Scope{}, payment.EmployeeID); err == nil {
				if _, err := s.ledger.ApplyRepayment(ctx, l.ID, payment.LoanDeduction); err != nil {
					return nil, err
				}
			} else if !errors.Is(err, loan.ErrLoanNotFound) {
				return nil, err
			}
		}
		summary.Processed++
	}

	s.log.WithFields(logrus.Fields{
		"retried": summary.Processed,
		"failed":  summary.Failed,
	}).Info("failed payment retry finished")
	return summary, nil
}

func (s *service) PaymentsFor(ctx context.Context, employeeID uint, limit int) ([]models.Payment, error) {
	return s.payments.ByEmployee(ctx, employeeID, limit)
}

func (s *service) ByReference(ctx context.Context, reference string) (*models.Payment, error) {
	if s.cache != nil {
		var cached models.Payment
		key := s.cache.GenerateKey("payment", "reference", reference)
		if ok, err := s.cache.Get(ctx, key, &cached); err == nil && ok {
			return &cached, nil
		}
	}

	payment, err := s.payments.ByReference(ctx, reference)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}

	// Only terminal successful payments are safe to cache.
	if s.cache != nil && payment.Status == models.PaymentStatusCompleted {
		_ = s.cache.Set(ctx, s.cache.GenerateKey("payment", "reference", reference), payment)
	}
	return payment, nil
}

func (s *service) BySalaryCode(ctx context.Context, salaryCode string) (*models.Payment, error) {
	payment, err := s.payments.BySalaryCode(ctx, salaryCode)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrPaymentNotFound
	}
	return payment, err
}

func (s *service) loadPools(ctx context.Context) (*pools, error) {
	main, err := s.accounts.GetByName(ctx, models.AccountPoolMain)
	if err != nil {
		return nil, fmt.Errorf("main disbursement account: %w", err)
	}
	savings, err := s.accounts.GetByName(ctx, models.AccountPoolSavings)
	if err != nil {
		return nil, fmt.Errorf("savings disbursement account: %w", err)
	}
	insurance, err := s.accounts.GetByName(ctx, models.AccountPoolInsurance)
	if err != nil {
		return nil, fmt.Errorf("insurance disbursement account: %w", err)
	}
	return &pools{main: main, savings: savings, insurance: insurance}, nil
}

func generateReference() string {
	return "PAY-" + strings.ToUpper(uuid.NewString()[:12])
}

func generateSalaryCode(month, year int, employeeID uint) string {
	return fmt.Sprintf("SAL-%04d%02d-%d", year, month, employeeID)
}
