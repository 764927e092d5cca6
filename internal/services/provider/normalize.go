package provider

import "strings"

var vocabularies = map[string]map[string]Status{
	"airtel": {
		"TS":         StatusSuccess,
		"SUCCESSFUL": StatusSuccess,
		"SUCCESS":    StatusSuccess,
		"TF":         StatusFailed,
		"TE":         StatusFailed,
		"FAILED":     StatusFailed,
		"REJECTED":   StatusFailed,
		"EXPIRED":    StatusFailed,
		"TIP":        StatusPending,
		"TA":         StatusPending,
		"PENDING":    StatusPending,
	},
	"mtn": {
		"SUCCESSFUL": StatusSuccess,
		"FAILED":     StatusFailed,
		"REJECTED":   StatusFailed,
		"TIMEOUT":    StatusFailed,
		"PENDING":    StatusPending,
	},
	"iotec": {
		"SUCCESS":          StatusSuccess,
		"SUCCESSFUL":       StatusSuccess,
		"COMPLETED":        StatusSuccess,
		"FAILED":           StatusFailed,
		"REJECTED":         StatusFailed,
		"CANCELLED":        StatusFailed,
		"ROLLEDBACK":       StatusFailed,
		"PENDING":          StatusPending,
		"SENTTOVENDOR":     StatusPending,
		"AWAITINGAPPROVAL": StatusPending,
		"SCHEDULED":        StatusPending,
	},
}

// Normalize maps a provider status word onto PENDING, SUCCESS or FAILED.
// Unknown words are PENDING.
func Normalize(provider, raw string) Status {
	vocab, ok := vocabularies[strings.ToLower(provider)]
	if !ok {
		return StatusPending
	}
	if s, ok := vocab[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return s
	}
	return StatusPending
}
