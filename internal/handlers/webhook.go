package handlers

import (
	"momopay/internal/services/webhook"
	"momopay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

const (
	airtelSignatureHeader = "X-Signature"
	iotecSignatureHeader  = "X-Signature-Header"
)

type WebhookHandler struct {
	service webhook.Service
}

func NewWebhookHandler(service webhook.Service) *WebhookHandler {
	return &WebhookHandler{service: service}
}

// The raw body is passed through untouched; signatures cover the exact bytes.

func (h *WebhookHandler) AirtelCollection(c *fiber.Ctx) error {
	out, err := h.service.HandleAirtelCollection(c.UserContext(), c.Body(), c.Get(airtelSignatureHeader))
	if err != nil {
		return response.FromError(c, err)
	}
	return collectionAck(c, out)
}

func (h *WebhookHandler) IotecCollection(c *fiber.Ctx) error {
	out, err := h.service.HandleIotecCollection(c.UserContext(), c.Body(), c.Get(iotecSignatureHeader))
	if err != nil {
		return response.FromError(c, err)
	}
	return collectionAck(c, out)
}

func (h *WebhookHandler) Disbursement(c *fiber.Ctx) error {
	out, err := h.service.HandleDisbursement(c.UserContext(), c.Body(), c.Get(iotecSignatureHeader))
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(fiber.Map{
		"status":    "ok",
		"reference": out.Reference,
		"state":     out.Status,
	})
}

// collectionAck answers 200 for every recorded callback so the provider
// stops retrying; only fully processed ones report "ok".
func collectionAck(c *fiber.Ctx, out *webhook.Outcome) error {
	if out.Processed {
		return c.JSON(fiber.Map{"status": "ok", "reference": out.Reference})
	}
	body := fiber.Map{"received": true, "reference": out.Reference, "status": out.Status}
	if out.Reason != "" {
		body["reason"] = out.Reason
	}
	return c.JSON(body)
}
