package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// CartLine is a single product/quantity entry inside a cart document.
type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CartLines is the full line list of a cart, persisted as one JSON document so
// a write replaces it atomically.
type CartLines []CartLine

// Value implements driver.Valuer. A nil list is stored as an empty array.
func (c CartLines) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	raw, err := json.Marshal([]CartLine(c))
	if err != nil {
		return nil, fmt.Errorf("cart lines: marshal: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner for the JSON items column.
func (c *CartLines) Scan(value interface{}) error {
	if value == nil {
		*c = CartLines{}
		return nil
	}
	raw, ok := toBytes(value)
	if !ok {
		return fmt.Errorf("cart lines: unsupported scan type %T", value)
	}
	if len(raw) == 0 {
		*c = CartLines{}
		return nil
	}
	var lines []CartLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		return fmt.Errorf("cart lines: unmarshal: %w", err)
	}
	if lines == nil {
		lines = []CartLine{}
	}
	*c = lines
	return nil
}

// Clone returns an independent copy of the list.
func (c CartLines) Clone() CartLines {
	out := make(CartLines, len(c))
	copy(out, c)
	return out
}

// Quantity returns the quantity held for productID, or zero.
func (c CartLines) Quantity(productID string) int {
	for _, line := range c {
		if line.ProductID == productID {
			return line.Quantity
		}
	}
	return 0
}

// ProductIDs returns the distinct product ids in line order.
func (c CartLines) ProductIDs() []string {
	ids := make([]string, 0, len(c))
	seen := make(map[string]struct{}, len(c))
	for _, line := range c {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	return ids
}

func toBytes(value interface{}) ([]byte, bool) {
	switch v := value.(type) {
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	default:
		return nil, false
	}
}
