package withdrawal

import (
	"strings"

	"momopay/internal/models"
)

var transitions = map[models.WithdrawalStatus][]models.WithdrawalStatus{
	models.WithdrawalRequested: {models.WithdrawalApproved, models.WithdrawalPaid, models.WithdrawalRejected},
	models.WithdrawalApproved:  {models.WithdrawalPaid, models.WithdrawalRejected},
}

// CanTransition reports whether from may move to to. PAID and REJECTED are terminal.
func CanTransition(from, to models.WithdrawalStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StatusFromProvider maps a payout provider's status word onto a withdrawal
// status. Unknown words map to REQUESTED, which never moves a withdrawal.
func StatusFromProvider(raw string) models.WithdrawalStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SUCCESSFUL", "COMPLETED", "SUCCESS":
		return models.WithdrawalPaid
	case "FAILED", "REJECTED":
		return models.WithdrawalRejected
	case "PENDING", "PROCESSING":
		return models.WithdrawalApproved
	default:
		return models.WithdrawalRequested
	}
}
