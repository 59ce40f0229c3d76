package enums

import (
	"fmt"
	"strings"
)

// PaymentMode records how the buyer intends to pay for an order.
type PaymentMode string

const (
	PaymentModeCOD PaymentMode = "COD"
)

var validPaymentModes = []PaymentMode{
	PaymentModeCOD,
}

// String implements fmt.Stringer.
func (p PaymentMode) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMode.
func (p PaymentMode) IsValid() bool {
	for _, candidate := range validPaymentModes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMode converts raw input into a PaymentMode. Empty input yields COD.
func ParsePaymentMode(value string) (PaymentMode, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return PaymentModeCOD, nil
	}
	for _, candidate := range validPaymentModes {
		if string(candidate) == trimmed {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment mode %q", value)
}
