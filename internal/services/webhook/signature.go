package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	apperrors "momopay/internal/errors"
)

// SignaturePrefix is the optional scheme prefix on ioTec signature headers.
const SignaturePrefix = "sha256="

// Sign returns the hex HMAC-SHA256 of raw under secret.
func Sign(secret string, raw []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(raw)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks header against the HMAC-SHA256 of the exact raw
// body. prefix, when set, may precede the hex digest. A missing secret or
// header never verifies.
func VerifySignature(secret string, raw []byte, header, prefix string) error {
	header = strings.TrimSpace(header)
	if secret == "" || header == "" {
		return apperrors.ErrSignatureInvalid
	}
	if prefix != "" {
		header = strings.TrimPrefix(header, prefix)
	}
	got, err := hex.DecodeString(header)
	if err != nil {
		return apperrors.ErrSignatureInvalid
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(raw)
	if !hmac.Equal(mac.Sum(nil), got) {
		return apperrors.ErrSignatureInvalid
	}
	return nil
}
