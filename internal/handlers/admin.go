package handlers

import (
	"context"
	"errors"
	"time"

	apperrors "momopay/internal/errors"
	"momopay/internal/jobs"
	"momopay/internal/logger"
	"momopay/internal/middleware"
	"momopay/internal/models"
	"momopay/internal/repositories"
	"momopay/internal/services/ledger"
	"momopay/internal/services/withdrawal"
	"momopay/internal/utils/pagination"
	"momopay/internal/utils/response"
	"momopay/internal/utils/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// AdjustmentPrefix marks references of manual balance corrections.
const AdjustmentPrefix = "adjustment-"

// ReconcileTrigger enqueues an out-of-schedule reconciliation.
type ReconcileTrigger func(ctx context.Context, olderThan time.Duration) (string, error)

// QueueTrigger enqueues reconciliation tasks on q.
func QueueTrigger(q jobs.Enqueuer) ReconcileTrigger {
	return func(ctx context.Context, olderThan time.Duration) (string, error) {
		return jobs.TriggerReconcile(ctx, q, olderThan)
	}
}

type AdminHandler struct {
	wallets          repositories.WalletRepository
	revenue          repositories.RevenueRepository
	webhookLogs      repositories.WebhookLogRepository
	ledger           ledger.Service
	withdrawals      withdrawal.Service
	reconcile        ReconcileTrigger
	platformWalletID string
	reconcileAge     time.Duration
}

// AdminDeps groups the collaborators of AdminHandler.
type AdminDeps struct {
	Wallets     repositories.WalletRepository
	Revenue     repositories.RevenueRepository
	WebhookLogs repositories.WebhookLogRepository
	Ledger      ledger.Service
	Withdrawals withdrawal.Service
	Reconcile   ReconcileTrigger
}

func NewAdminHandler(deps AdminDeps, platformWalletID string, reconcileAge time.Duration) *AdminHandler {
	return &AdminHandler{
		wallets:          deps.Wallets,
		revenue:          deps.Revenue,
		webhookLogs:      deps.WebhookLogs,
		ledger:           deps.Ledger,
		withdrawals:      deps.Withdrawals,
		reconcile:        deps.Reconcile,
		platformWalletID: platformWalletID,
		reconcileAge:     reconcileAge,
	}
}

type createWalletInput struct {
	UserID string `json:"user_id" validate:"required,max=64"`
	Phone  string `json:"phone" validate:"required,msisdn"`
}

// CreateWallet opens a zero-balance wallet for a reseller.
func (h *AdminHandler) CreateWallet(c *fiber.Ctx) error {
	var input createWalletInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if err := validation.Struct(input); err != nil {
		return response.ValidationError(c, validation.FormatValidationError(err))
	}

	w := &models.Wallet{UserID: input.UserID, Phone: input.Phone}
	if err := h.wallets.Create(c.UserContext(), w); err != nil {
		return response.FromError(c, repositoryError(err))
	}
	return response.Created(c, "Wallet created", w)
}

func (h *AdminHandler) ListWallets(c *fiber.Ctx) error {
	page := pagination.ParseFromRequest(c)
	items, total, err := h.wallets.List(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return response.FromError(c, err)
	}
	page.Total = total
	return response.Success(c, "Wallets retrieved", pagination.Response(page, items))
}

type freezeInput struct {
	Frozen bool `json:"frozen"`
}

func (h *AdminHandler) FreezeWallet(c *fiber.Ctx) error {
	var input freezeInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if err := h.wallets.SetFrozen(c.UserContext(), c.Params("id"), input.Frozen); err != nil {
		return response.FromError(c, repositoryError(err))
	}
	return response.Success(c, "Wallet updated", fiber.Map{"id": c.Params("id"), "frozen": input.Frozen})
}

type adjustInput struct {
	Amount    decimal.Decimal       `json:"amount" validate:"gt=0"`
	Direction models.EntryDirection `json:"direction" validate:"required,oneof=CREDIT DEBIT"`
	Reference string                `json:"reference" validate:"omitempty,max=64"`
	Reason    string                `json:"reason" validate:"required,max=160"`
}

// AdjustWallet corrects a balance with a transfer against the platform
// wallet, so the ledger stays balanced.
func (h *AdminHandler) AdjustWallet(c *fiber.Ctx) error {
	var input adjustInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if err := validation.Struct(input); err != nil {
		return response.ValidationError(c, validation.FormatValidationError(err))
	}
	if input.Reference == "" {
		input.Reference = AdjustmentPrefix + uuid.NewString()
	}

	req := ledger.TransferRequest{
		From:      h.platformWalletID,
		To:        c.Params("id"),
		Amount:    input.Amount,
		Reference: input.Reference,
	}
	if input.Direction == models.Debit {
		req.From, req.To = req.To, req.From
	}

	posting, err := h.ledger.Transfer(c.UserContext(), req)
	if errors.Is(err, ledger.ErrAlreadyPosted) {
		return response.Error(c, fiber.StatusConflict, "reference already posted")
	}
	if errors.Is(err, ledger.ErrSameWallet) {
		return response.BadRequest(c, err.Error())
	}
	if err != nil {
		return response.FromError(c, err)
	}

	fields := logrus.Fields{
		"wallet_id": c.Params("id"),
		"reference": input.Reference,
		"direction": input.Direction,
		"amount":    input.Amount.String(),
		"reason":    input.Reason,
	}
	if claims, ok := middleware.Claims(c); ok {
		fields["admin_id"] = claims.UserID
	}
	logger.WithFields(fields).Info("wallet adjusted")
	return response.Success(c, "Wallet adjusted", posting)
}

func (h *AdminHandler) WalletHistory(c *fiber.Ctx) error {
	page := pagination.ParseFromRequest(c)
	entries, err := h.ledger.History(c.UserContext(), c.Params("id"), page.Limit, page.Offset)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Ledger history retrieved", entries)
}

func (h *AdminHandler) LedgerByReference(c *fiber.Ctx) error {
	entries, err := h.ledger.Entries(c.UserContext(), c.Params("reference"))
	if err != nil {
		return response.FromError(c, err)
	}
	if len(entries) == 0 {
		return response.NotFound(c, "no ledger entries for reference")
	}
	return response.Success(c, "Ledger entries retrieved", entries)
}

func (h *AdminHandler) Withdrawals(c *fiber.Ctx) error {
	page := pagination.ParseFromRequest(c)
	status := models.WithdrawalStatus(c.Query("status", string(models.WithdrawalRequested)))
	items, err := h.withdrawals.ListByStatus(c.UserContext(), status, page.Limit)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Withdrawals retrieved", items)
}

func (h *AdminHandler) Revenue(c *fiber.Ctx) error {
	rev, err := h.revenue.Get(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Revenue retrieved", rev)
}

func (h *AdminHandler) WebhookLogs(c *fiber.Ctx) error {
	page := pagination.ParseFromRequest(c)
	logs, err := h.webhookLogs.List(c.UserContext(), c.Query("provider"), page.Limit, page.Offset)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Webhook logs retrieved", logs)
}

// Reconcile enqueues an immediate sweep instead of waiting for the schedule.
func (h *AdminHandler) Reconcile(c *fiber.Ctx) error {
	if h.reconcile == nil {
		return response.Error(c, fiber.StatusServiceUnavailable, "reconciliation queue unavailable")
	}
	id, err := h.reconcile(c.UserContext(), h.reconcileAge)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"task_id": id})
}

// repositoryError lifts storage sentinels into API errors.
func repositoryError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrWalletNotFound):
		return apperrors.ErrWalletNotFound
	case errors.Is(err, repositories.ErrDuplicateWallet):
		return apperrors.ErrWalletExists
	case errors.Is(err, repositories.ErrTransactionNotFound):
		return apperrors.ErrTransactionNotFound
	case errors.Is(err, repositories.ErrWithdrawalNotFound):
		return apperrors.ErrWithdrawalNotFound
	}
	return err
}
