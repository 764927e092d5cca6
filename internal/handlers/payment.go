package handlers

import (
	"momopay/internal/logger"
	"momopay/internal/services/collection"
	"momopay/internal/services/provider"
	"momopay/internal/utils/response"
	"momopay/internal/utils/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GatewayResolver finds a provider gateway by name.
type GatewayResolver interface {
	Get(name string) (provider.Gateway, error)
}

type PaymentHandler struct {
	collections     collection.Service
	gateways        GatewayResolver
	defaultProvider string
	currency        string
}

func NewPaymentHandler(collections collection.Service, gateways GatewayResolver, defaultProvider, currency string) *PaymentHandler {
	return &PaymentHandler{
		collections:     collections,
		gateways:        gateways,
		defaultProvider: defaultProvider,
		currency:        currency,
	}
}

// Collect asks the payer to approve a payment and, when requested, waits
// for the voucher issued on settlement.
func (h *PaymentHandler) Collect(c *fiber.Ctx) error {
	var input collection.Request
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if err := validation.Struct(input); err != nil {
		return response.ValidationError(c, validation.FormatValidationError(err))
	}

	res, err := h.collections.Collect(c.UserContext(), input)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(res)
}

type disburseInput struct {
	Provider  string          `json:"provider"`
	Phone     string          `json:"phone" validate:"required,msisdn"`
	Amount    decimal.Decimal `json:"amount" validate:"gt=0"`
	Reference string          `json:"reference" validate:"omitempty,max=64"`
	Note      string          `json:"note" validate:"max=160"`
}

// Disburse pays out to a phone that owns a wallet.
func (h *PaymentHandler) Disburse(c *fiber.Ctx) error {
	var input disburseInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if err := validation.Struct(input); err != nil {
		return response.ValidationError(c, validation.FormatValidationError(err))
	}
	name := input.Provider
	if name == "" {
		name = h.defaultProvider
	}
	gw, err := h.gateways.Get(name)
	if err != nil {
		return response.FromError(c, err)
	}
	if input.Reference == "" {
		input.Reference = uuid.NewString()
	}

	res, err := gw.Disburse(c.UserContext(), provider.DisburseRequest{
		Phone:     input.Phone,
		Amount:    input.Amount,
		Reference: input.Reference,
		Currency:  h.currency,
		Note:      input.Note,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	logger.WithField("reference", input.Reference).WithField("provider", res.Provider).Info("disbursement submitted")
	return c.JSON(res)
}

// Status queries a provider for the current state of a payment.
func (h *PaymentHandler) Status(c *fiber.Ctx) error {
	gw, err := h.gateways.Get(c.Params("provider"))
	if err != nil {
		return response.FromError(c, err)
	}
	res, err := gw.CheckStatus(c.UserContext(), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(fiber.Map{
		"status":      res.Status,
		"raw":         res.RawStatus,
		"provider":    res.Provider,
		"provider_id": res.ProviderID,
		"reference":   res.Reference,
	})
}
