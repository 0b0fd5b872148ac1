// Command seed provisions the disbursement account pools and a demo
// organization with a few employees for local runs.
package main

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"rnrspay/internal/config"
	"rnrspay/internal/models"
	"rnrspay/internal/repositories"
)

func main() {
	log := logrus.New()
	config.LoadEnv()

	db, err := repositories.NewDB(repositories.DBConfigFromEnv())
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	ctx := context.Background()
	accountRepo := repositories.NewAccountRepository(db)

	pools := []models.DisbursementAccount{
		{Name: models.AccountPoolMain, AccountNumber: "4001000001", BankName: "Bank of Kigali", AccountName: "RNRS Payroll Main", Active: true},
		{Name: models.AccountPoolSavings, AccountNumber: "4001000002", BankName: "Bank of Kigali", AccountName: "RNRS Employee Savings", Active: true},
		{Name: models.AccountPoolInsurance, AccountNumber: "4001000003", BankName: "Bank of Kigali", AccountName: "RNRS Insurance Pool", Active: true},
	}
	for i := range pools {
		if _, err := accountRepo.GetByName(ctx, pools[i].Name); err == nil {
			log.Infof("account pool %s already exists", pools[i].Name)
			continue
		}
		if err := accountRepo.Create(ctx, &pools[i]); err != nil {
			log.Fatalf("failed to seed account pool %s: %v", pools[i].Name, err)
		}
		log.Infof("seeded account pool %s", pools[i].Name)
	}

	org := models.Organization{Name: "Demo Holdings Ltd", LoanEligible: true}
	if err := db.WithContext(ctx).FirstOrCreate(&org, models.Organization{Name: org.Name}).Error; err != nil {
		log.Fatalf("failed to seed organization: %v", err)
	}

	employees := []models.Employee{
		{FirstName: "Aline", LastName: "Uwase", MonthlySalary: decimal.NewFromInt(500000), Status: models.EmploymentActive, AccountNumber: "1000200001", BankName: "Bank of Kigali", OrganizationID: org.ID},
		{FirstName: "Eric", LastName: "Mugisha", MonthlySalary: decimal.NewFromInt(350000), Status: models.EmploymentActive, AccountNumber: "1000200002", BankName: "Equity Bank", OrganizationID: org.ID},
		{FirstName: "Diane", LastName: "Ingabire", MonthlySalary: decimal.NewFromInt(800000), Status: models.EmploymentActive, AccountNumber: "1000200003", BankName: "I&M Bank", OrganizationID: org.ID},
	}
	for i := range employees {
		e := employees[i]
		if err := db.WithContext(ctx).
			FirstOrCreate(&e, models.Employee{AccountNumber: e.AccountNumber}).Error; err != nil {
			log.Fatalf("failed to seed employee %s: %v", e.LastName, err)
		}
	}
	log.Info("seed complete")
}
