package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"rnrspay/internal/services/payroll"
	"rnrspay/internal/services/scheduler"
	"rnrspay/internal/utils/response"
)

// PaymentHandler exposes batch triggers and payment reads.
type PaymentHandler struct {
	payments payroll.Service
	sched    *scheduler.Scheduler
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(payments payroll.Service, sched *scheduler.Scheduler) *PaymentHandler {
	return &PaymentHandler{payments: payments, sched: sched}
}

// ProcessMonthly handles POST /payment/process-monthly. Runs the batch
// for the current calendar period.
func (h *PaymentHandler) ProcessMonthly(c *fiber.Ctx) error {
	now := time.Now().UTC()
	summary, err := h.sched.TriggerPayroll(c.Context(), int(now.Month()), now.Year())
	if err != nil {
		return batchError(c, err)
	}
	return response.Success(c, "payroll run completed", summary)
}

// TriggerManual handles POST /payment/trigger-manual. Runs the batch for
// an explicit period, synchronously.
func (h *PaymentHandler) TriggerManual(c *fiber.Ctx) error {
	var req struct {
		Month int `json:"month"`
		Year  int `json:"year"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	summary, err := h.sched.TriggerPayroll(c.Context(), req.Month, req.Year)
	if err != nil {
		return batchError(c, err)
	}
	return response.Success(c, "payroll run completed", summary)
}

// RetryFailed handles POST /payment/retry-failed.
func (h *PaymentHandler) RetryFailed(c *fiber.Ctx) error {
	summary, err := h.sched.TriggerRetry(c.Context())
	if err != nil {
		return batchError(c, err)
	}
	return response.Success(c, "failed payment retry completed", summary)
}

// ByEmployee handles GET /payment/employee/:id.
func (h *PaymentHandler) ByEmployee(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "invalid employee id")
	}
	limit := c.QueryInt("limit", 12)
	payments, err := h.payments.PaymentsFor(c.Context(), id, limit)
	if err != nil {
		return batchError(c, err)
	}
	return response.Success(c, "payments", payments)
}

// ByReference handles GET /payment/reference/:ref.
func (h *PaymentHandler) ByReference(c *fiber.Ctx) error {
	payment, err := h.payments.ByReference(c.Context(), c.Params("ref"))
	if err != nil {
		return batchError(c, err)
	}
	return response.Success(c, "payment", payment)
}

// BySalaryCode handles GET /payment/salary-code/:code.
func (h *PaymentHandler) BySalaryCode(c *fiber.Ctx) error {
	payment, err := h.payments.BySalaryCode(c.Context(), c.Params("code"))
	if err != nil {
		return batchError(c, err)
	}
	return response.Success(c, "payment", payment)
}

func batchError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, payroll.ErrPaymentNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, payroll.ErrRunInProgress):
		return response.Conflict(c, err.Error())
	case errors.Is(err, payroll.ErrInvalidPeriod):
		return response.BadRequest(c, err.Error())
	default:
		return response.ServerError(c, "internal error")
	}
}
