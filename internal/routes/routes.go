// Package routes defines the API routing configuration for the loan and
// payroll surfaces. Everything except the health check sits behind the
// bearer-token middleware and role gates.
package routes

import (
	"github.com/gofiber/fiber/v2"

	"rnrspay/internal/handlers"
	"rnrspay/internal/middleware"
	"rnrspay/internal/models"
	"rnrspay/internal/services/loan"
	"rnrspay/internal/services/payroll"
	"rnrspay/internal/services/scheduler"
)

// SetupRoutes wires handlers onto the fiber app.
func SetupRoutes(app *fiber.App, loanSvc loan.Service, payrollSvc payroll.Service, sched *scheduler.Scheduler) {
	app.Get("/health", handlers.HealthCheck)

	loanHandler := handlers.NewLoanHandler(loanSvc)
	paymentHandler := handlers.NewPaymentHandler(payrollSvc, sched)

	authenticated := app.Group("/", middleware.Auth)

	loans := authenticated.Group("/loan")
	loans.Post("/request", loanHandler.Request)
	loans.Put("/:id/approve", middleware.RequireRole(models.RoleAgent), loanHandler.Approve)
	loans.Put("/:id/reject", middleware.RequireRole(models.RoleAgent), loanHandler.Reject)
	loans.Put("/:id/activate", middleware.RequireRole(models.RoleAgent, models.RoleAdmin), loanHandler.Activate)
	loans.Get("/pending",
		middleware.RequireRole(models.RoleAgent, models.RoleOrganization, models.RoleAdmin),
		loanHandler.Pending)
	loans.Get("/approved",
		middleware.RequireRole(models.RoleAgent, models.RoleOrganization, models.RoleAdmin),
		loanHandler.Approved)
	loans.Get("/employee/:id",
		middleware.RequireRole(models.RoleAgent, models.RoleOrganization, models.RoleAdmin),
		loanHandler.History)
	loans.Get("/employee/:id/active",
		middleware.RequireRole(models.RoleAgent, models.RoleOrganization, models.RoleAdmin),
		loanHandler.Active)

	payments := authenticated.Group("/payment")
	payments.Post("/process-monthly",
		middleware.RequireRole(models.RoleAgent, models.RoleSuperAdmin),
		paymentHandler.ProcessMonthly)
	payments.Post("/trigger-manual",
		middleware.RequireRole(models.RoleAgent, models.RoleSuperAdmin),
		paymentHandler.TriggerManual)
	payments.Post("/retry-failed",
		middleware.RequireRole(models.RoleAgent, models.RoleSuperAdmin),
		paymentHandler.RetryFailed)
	payments.Get("/employee/:id",
		middleware.RequireRole(models.RoleAgent, models.RoleAdmin, models.RoleSuperAdmin),
		paymentHandler.ByEmployee)
	payments.Get("/reference/:ref", paymentHandler.ByReference)
	payments.Get("/salary-code/:code", paymentHandler.BySalaryCode)
}
