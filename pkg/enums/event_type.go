package enums

import (
	"fmt"
	"strings"
)

// EventType enumerates the shopper behaviour signals fed to recommendations.
type EventType string

const (
	EventTypeView      EventType = "view"
	EventTypeClick     EventType = "click"
	EventTypeAddToCart EventType = "add_to_cart"
	EventTypePurchase  EventType = "purchase"
)

var validEventTypes = []EventType{
	EventTypeView,
	EventTypeClick,
	EventTypeAddToCart,
	EventTypePurchase,
}

// String implements fmt.Stringer.
func (e EventType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EventType.
func (e EventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEventType converts raw input into an EventType.
func ParseEventType(value string) (EventType, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validEventTypes {
		if string(candidate) == trimmed {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
