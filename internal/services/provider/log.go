package provider

import (
	"time"

	"momopay/internal/logger"

	"github.com/sirupsen/logrus"
)

func logRequest(provider, op string, status int, took time.Duration) {
	logger.WithFields(logrus.Fields{
		"provider":   provider,
		"operation":  op,
		"status":     status,
		"latency_ms": took.Milliseconds(),
	}).Debug("provider call")
}

func logResult(op string, res *Result) {
	logger.WithFields(logrus.Fields{
		"provider":    res.Provider,
		"operation":   op,
		"reference":   res.Reference,
		"provider_id": res.ProviderID,
		"status":      res.Status,
		"raw_status":  res.RawStatus,
	}).Info("provider call completed")
}
