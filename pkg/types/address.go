package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ShippingAddress is the delivery address captured on an order snapshot.
type ShippingAddress struct {
	FullName string  `json:"full_name" validate:"required,max=120"`
	Phone    string  `json:"phone" validate:"required,min=7,max=20"`
	Line1    string  `json:"line1" validate:"required,max=200"`
	Line2    *string `json:"line2,omitempty" validate:"omitempty,max=200"`
	City     string  `json:"city" validate:"required,max=100"`
	State    string  `json:"state" validate:"required,max=100"`
	Pincode  string  `json:"pincode" validate:"required,max=12"`
}

// Normalize trims every field and drops an empty second line.
func (a ShippingAddress) Normalize() ShippingAddress {
	out := ShippingAddress{
		FullName: strings.TrimSpace(a.FullName),
		Phone:    strings.TrimSpace(a.Phone),
		Line1:    strings.TrimSpace(a.Line1),
		City:     strings.TrimSpace(a.City),
		State:    strings.TrimSpace(a.State),
		Pincode:  strings.TrimSpace(a.Pincode),
	}
	if a.Line2 != nil {
		if line2 := strings.TrimSpace(*a.Line2); line2 != "" {
			out.Line2 = &line2
		}
	}
	return out
}

// Missing lists the json names of required fields that are blank.
func (a ShippingAddress) Missing() []string {
	var missing []string
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	check("full_name", a.FullName)
	check("phone", a.Phone)
	check("line1", a.Line1)
	check("city", a.City)
	check("state", a.State)
	check("pincode", a.Pincode)
	return missing
}

// Value stores the address as a JSON document.
func (a ShippingAddress) Value() (driver.Value, error) {
	if missing := a.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("address: missing %s", strings.Join(missing, ", "))
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("address: marshal: %w", err)
	}
	return string(raw), nil
}

// Scan decodes the JSON address document.
func (a *ShippingAddress) Scan(value interface{}) error {
	if value == nil {
		*a = ShippingAddress{}
		return nil
	}
	raw, ok := toBytes(value)
	if !ok {
		return fmt.Errorf("address: unsupported scan type %T", value)
	}
	var decoded ShippingAddress
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("address: unmarshal: %w", err)
	}
	*a = decoded
	return nil
}
