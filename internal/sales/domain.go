package sales

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// ID is a record key. Older backends send names or numeric ids, newer ones
// send strings, so both JSON forms are accepted.
type ID string

// UnmarshalJSON accepts a JSON string, number or null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*id = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*id = ID(n.String())
	}
	return nil
}

func (id ID) String() string { return string(id) }

// Customer is a buyer. The name is unique and some backends use it as the key.
type Customer struct {
	ID   ID     `json:"Customer ID,omitempty"`
	Name string `json:"Customer Name" validate:"required"`
}

// Key returns the value used to address the customer in delete requests.
func (c Customer) Key() string {
	if c.ID != "" {
		return c.ID.String()
	}
	return c.Name
}

// Sale represents a delivery of bricks to a customer.
type Sale struct {
	ID              ID      `json:"Sale ID,omitempty"`
	CustomerName    string  `json:"Customer Name" validate:"required"`
	Date            string  `json:"Date" validate:"required,dmy"`
	Quantity        float64 `json:"Quantity" validate:"gt=0"`
	Rate            float64 `json:"Rate" validate:"gt=0"`
	VehicleRent     float64 `json:"Vehicle Rent" validate:"gte=0"`
	Amount          float64 `json:"Amount"`
	PaymentMethod   string  `json:"Payment Method"`
	PaymentReceived float64 `json:"Payment Received" validate:"gte=0"`
	Remarks         string  `json:"Remarks"`
}

// Normalize trims text fields, clears the received amount when no payment
// method is chosen and recomputes Amount.
func (s *Sale) Normalize() {
	s.CustomerName = strings.TrimSpace(s.CustomerName)
	s.Date = strings.TrimSpace(s.Date)
	s.PaymentMethod = strings.TrimSpace(s.PaymentMethod)
	s.Remarks = strings.TrimSpace(s.Remarks)
	if s.PaymentMethod == "" {
		s.PaymentReceived = 0
	}
	s.Amount = ComputeAmount(s.Quantity, s.Rate, s.VehicleRent).InexactFloat64()
}

// Payment is money received from a customer outside of a sale.
type Payment struct {
	ID              ID      `json:"Payment ID,omitempty"`
	CustomerName    string  `json:"Customer Name" validate:"required"`
	Date            string  `json:"Date" validate:"required,dmy"`
	PaymentMethod   string  `json:"Payment Method" validate:"required"`
	PaymentReceived float64 `json:"Payment Received" validate:"gt=0"`
	Remarks         string  `json:"Remarks"`
}

// Normalize trims text fields.
func (p *Payment) Normalize() {
	p.CustomerName = strings.TrimSpace(p.CustomerName)
	p.Date = strings.TrimSpace(p.Date)
	p.PaymentMethod = strings.TrimSpace(p.PaymentMethod)
	p.Remarks = strings.TrimSpace(p.Remarks)
}

// Transaction is a server-derived ledger line built from sales and payments.
type Transaction struct {
	CustomerName string  `json:"Customer Name"`
	Date         string  `json:"Date"`
	Type         string  `json:"Type"`
	Amount       float64 `json:"Amount"`
}

// Balance is the server-derived pending balance of a customer.
type Balance struct {
	CustomerName   string  `json:"Customer Name"`
	PendingBalance float64 `json:"Pending Balance"`
}

// LogEntry is one line of the activity log. Type is only set on entries
// recorded locally.
type LogEntry struct {
	Timestamp string `json:"Timestamp"`
	Message   string `json:"Message"`
	Type      string `json:"Type,omitempty"`
}

// ComputeAmount returns quantity * rate + vehicle rent rounded to cents.
func ComputeAmount(quantity, rate, vehicleRent float64) decimal.Decimal {
	return decimal.NewFromFloat(quantity).
		Mul(decimal.NewFromFloat(rate)).
		Add(decimal.NewFromFloat(vehicleRent)).
		Round(2)
}
