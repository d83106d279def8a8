package parse

import (
	"fmt"
	"strings"

	"billing-admin-backend/internal/model"
)

// PaymentMethod normalises a client supplied method, case-insensitively,
// to one of UPI, Card or Cash.
func PaymentMethod(raw string) (model.PaymentMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "UPI":
		return model.MethodUPI, nil
	case "CARD":
		return model.MethodCard, nil
	case "CASH":
		return model.MethodCash, nil
	}
	return "", fmt.Errorf("method must be UPI, Card, or Cash, got %q", raw)
}

// PaymentStatus validates a payment status. An empty string yields success.
func PaymentStatus(raw string) (model.PaymentStatus, error) {
	switch s := model.PaymentStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case "":
		return model.PaymentSuccess, nil
	case model.PaymentSuccess, model.PaymentPending, model.PaymentFailed:
		return s, nil
	}
	return "", fmt.Errorf("status must be success, pending, or failed, got %q", raw)
}
