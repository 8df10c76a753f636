package observability

import (
	"strings"

	"github.com/wondertwin-ai/app-otp/internal/logging"
)

// Logger returns the global safe logger instance
func Logger() *logging.SafeLogger {
	return logging.Logger
}

// MaskPhone masks a phone number for logging, keeping the country prefix
// and the last two digits visible.
func MaskPhone(phone string) string {
	if len(phone) < 6 {
		return "****"
	}
	return phone[:3] + strings.Repeat("*", len(phone)-5) + phone[len(phone)-2:]
}
