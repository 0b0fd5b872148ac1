package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"rnrspay/internal/models"
	"rnrspay/internal/services/loan"
	"rnrspay/internal/utils/response"
)

// LoanHandler exposes the loan lifecycle endpoints.
type LoanHandler struct {
	service loan.Service
}

// NewLoanHandler creates a new LoanHandler.
func NewLoanHandler(s loan.Service) *LoanHandler { return &LoanHandler{service: s} }

// Request handles POST /loan/request.
func (h *LoanHandler) Request(c *fiber.Ctx) error {
	var req struct {
		EmployeeID     uint            `json:"employeeId"`
		LoanAmount     decimal.Decimal `json:"loanAmount"`
		Purpose        string          `json:"purpose"`
		LoanType       string          `json:"loanType"`
		RequestedWeeks int             `json:"requestedWeeks"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	l, err := h.service.RequestLoan(c.Context(), loan.RequestInput{
		EmployeeID:     req.EmployeeID,
		Amount:         req.LoanAmount,
		Purpose:        req.Purpose,
		LoanType:       req.LoanType,
		RequestedWeeks: req.RequestedWeeks,
	})
	if err != nil {
		return loanError(c, err)
	}
	return response.Success(c, "loan requested", l)
}

// Approve handles PUT /loan/:id/approve.
func (h *LoanHandler) Approve(c *fiber.Ctx) error {
	return h.decide(c, true)
}

// Reject handles PUT /loan/:id/reject.
func (h *LoanHandler) Reject(c *fiber.Ctx) error {
	return h.decide(c, false)
}

func (h *LoanHandler) decide(c *fiber.Ctx, approve bool) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "invalid loan id")
	}
	claims := c.Locals("claims").(*models.UserClaims)

	var req struct {
		Comments string `json:"comments"`
	}
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return response.BadRequest(c, "invalid request body")
	}

	var l *models.Loan
	if approve {
		l, err = h.service.ApproveLoan(c.Context(), id, claims.UserID, claims.Role, req.Comments)
	} else {
		l, err = h.service.RejectLoan(c.Context(), id, claims.UserID, claims.Role, req.Comments)
	}
	if err != nil {
		return loanError(c, err)
	}
	return response.Success(c, "loan decision recorded", l)
}

// Activate handles PUT /loan/:id/activate.
func (h *LoanHandler) Activate(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "invalid loan id")
	}
	l, err := h.service.ActivateLoan(c.Context(), id)
	if err != nil {
		return loanError(c, err)
	}
	return response.Success(c, "loan activated", l)
}

// Pending handles GET /loan/pending.
func (h *LoanHandler) Pending(c *fiber.Ctx) error {
	loans, err := h.service.PendingForApproval(c.Context(), scopeFrom(c))
	if err != nil {
		return loanError(c, err)
	}
	return response.Success(c, "pending loans", loans)
}

// Approved handles GET /loan/approved.
func (h *LoanHandler) Approved(c *fiber.Ctx) error {
	loans, err := h.service.ApprovedLoans(c.Context(), scopeFrom(c))
	if err != nil {
		return loanError(c, err)
	}
	return response.Success(c, "approved loans", loans)
}

// History handles GET /loan/employee/:id.
func (h *LoanHandler) History(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "invalid employee id")
	}
	loans, err := h.service.HistoryFor(c.Context(), scopeFrom(c), id)
	if err != nil {
		return loanError(c, err)
	}
	return response.Success(c, "loan history", loans)
}

// Active handles GET /loan/employee/:id/active.
func (h *LoanHandler) Active(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "invalid employee id")
	}
	l, err := h.service.ActiveLoanFor(c.Context(), scopeFrom(c), id)
	if err != nil {
		return loanError(c, err)
	}
	return response.Success(c, "active loan", l)
}

func scopeFrom(c *fiber.Ctx) loan.Scope {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok {
		return loan.Scope{}
	}
	return loan.Scope{Role: claims.Role, OrganizationID: claims.OrganizationID}
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// loanError maps the loan error taxonomy to HTTP statuses.
func loanError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, loan.ErrEmployeeNotFound), errors.Is(err, loan.ErrLoanNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, loan.ErrActiveLoanExists):
		return response.Conflict(c, err.Error())
	case errors.Is(err, loan.ErrNotEligible):
		return response.Error(c, fiber.StatusUnprocessableEntity, err.Error())
	case loan.IsValidation(err):
		return response.BadRequest(c, err.Error())
	default:
		return response.ServerError(c, "internal error")
	}
}
