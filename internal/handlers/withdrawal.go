package handlers

import (
	"momopay/internal/middleware"
	"momopay/internal/services/withdrawal"
	"momopay/internal/utils/pagination"
	"momopay/internal/utils/response"
	"momopay/internal/utils/validation"

	"github.com/gofiber/fiber/v2"
)

type WithdrawalHandler struct {
	service withdrawal.Service
}

func NewWithdrawalHandler(service withdrawal.Service) *WithdrawalHandler {
	return &WithdrawalHandler{service: service}
}

func (h *WithdrawalHandler) Create(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}
	var input withdrawal.Request
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	input.UserID = claims.UserID
	if err := validation.Struct(input); err != nil {
		return response.ValidationError(c, validation.FormatValidationError(err))
	}

	w, err := h.service.Request(c.UserContext(), input)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "Withdrawal submitted", w)
}

func (h *WithdrawalHandler) List(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}
	page := pagination.ParseFromRequest(c)
	items, err := h.service.ListByUser(c.UserContext(), claims.UserID, page.Limit, page.Offset)
	if err != nil {
		return response.FromError(c, err)
	}
	page.Total = int64(len(items))
	return response.Success(c, "Withdrawals retrieved", pagination.Response(page, items))
}

// Get returns one withdrawal; users only see their own.
func (h *WithdrawalHandler) Get(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}
	w, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	if w.UserID != claims.UserID && !middleware.IsAdmin(claims) {
		return response.NotFound(c, withdrawal.ErrWithdrawalNotFound.Message)
	}
	return response.Success(c, "Withdrawal retrieved", w)
}
