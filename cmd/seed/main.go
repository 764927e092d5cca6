// Command seed creates the platform wallet and, when ADMIN_USER_ID is set,
// prints a signed admin token for operating the admin API.
package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"momopay/internal/config"
	"momopay/internal/logger"
	"momopay/internal/middleware"
	"momopay/internal/models"
	"momopay/internal/repositories"
)

func main() {
	config.LoadEnv()
	cfg := config.Load()
	logger.Configure(cfg.LogLevel, cfg.LogJSON)

	if err := repositories.InitDB(cfg); err != nil {
		logger.Fatalf("failed to initialize storage: %v", err)
	}
	defer repositories.Close()

	ctx := context.Background()
	wallets := repositories.NewWalletRepository(repositories.DB)

	if err := seedPlatformWallet(ctx, wallets, cfg); err != nil {
		logger.Fatalf("failed to seed platform wallet: %v", err)
	}

	adminID := config.GetEnv("ADMIN_USER_ID", "")
	if adminID == "" {
		return
	}
	ttl := config.GetDurationEnv("ADMIN_TOKEN_TTL", 24*time.Hour)
	token, err := middleware.NewAuthMiddleware(cfg.JWTSecret).Issue(models.UserClaims{
		UserID: adminID,
		Role:   models.RoleAdmin,
	}, ttl)
	if err != nil {
		logger.Fatalf("failed to issue admin token: %v", err)
	}
	fmt.Println(token)
}

func seedPlatformWallet(ctx context.Context, wallets repositories.WalletRepository, cfg *config.Config) error {
	existing, err := wallets.GetByID(ctx, cfg.PlatformWalletID)
	if err == nil {
		if !existing.AllowOverdraft {
			logger.Warnf("platform wallet %s exists without overdraft", existing.ID)
		}
		logger.Info("platform wallet already exists")
		return nil
	}
	if !errors.Is(err, repositories.ErrWalletNotFound) {
		return err
	}

	w := &models.Wallet{
		ID:             cfg.PlatformWalletID,
		UserID:         "platform",
		Phone:          cfg.PlatformWalletPhone,
		AllowOverdraft: true,
	}
	if err := wallets.Create(ctx, w); err != nil {
		return err
	}
	logger.WithField("wallet_id", w.ID).Info("platform wallet created")
	return nil
}
