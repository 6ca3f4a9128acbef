package fivesim

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FlexID is a vendor identifier that arrives as either a JSON number or a
// JSON string depending on the endpoint.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = ""
		return nil
	}

	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("flex id string: %w", err)
		}
		*f = FlexID(str)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("flex id number: %w", err)
	}
	*f = FlexID(num.String())

	return nil
}

// Order is a tolerant view over the vendor's activation order body. The
// vendor is inconsistent about field names (id vs order_id, phone vs number,
// price vs cost), so every accessor checks both spellings.
type Order struct {
	ID      FlexID  `json:"id"`
	OrderID FlexID  `json:"order_id"`
	Phone   string  `json:"phone"`
	Number  string  `json:"number"`
	Price   float64 `json:"price"`
	Cost    float64 `json:"cost"`
	Status  string  `json:"status"`
}

// ParseOrder decodes an order from a raw vendor body.
func ParseOrder(body json.RawMessage) (Order, error) {
	var o Order

	err := json.Unmarshal(body, &o)
	if err != nil {
		return Order{}, fmt.Errorf("parse vendor order: %w", err)
	}

	return o, nil
}

// OrderRef returns the vendor order identifier as a string, or "" when the
// body carried none.
func (o Order) OrderRef() string {
	if o.ID != "" {
		return string(o.ID)
	}

	return string(o.OrderID)
}

// PhoneNumber returns the assigned number under either field name.
func (o Order) PhoneNumber() string {
	if o.Phone != "" {
		return o.Phone
	}

	return o.Number
}

// QuotedPrice returns the vendor-quoted price under either field name.
func (o Order) QuotedPrice() float64 {
	if o.Price != 0 {
		return o.Price
	}

	return o.Cost
}
