package sales

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSale() Sale {
	return Sale{CustomerName: "Acme", Date: "15/03/2024", Quantity: 10, Rate: 5, VehicleRent: 2}
}

func TestValidateCustomerName(t *testing.T) {
	name, err := ValidateCustomerName("  Acme  ")
	require.NoError(t, err)
	assert.Equal(t, "Acme", name)

	_, err = ValidateCustomerName(" \t ")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "required", verr.Fields["Customer Name"])
	assert.Equal(t, "Customer Name is required", err.Error())
}

func TestValidateSale(t *testing.T) {
	s := validSale()
	s.Normalize()
	assert.NoError(t, ValidateSale(s))

	tests := []struct {
		name  string
		edit  func(*Sale)
		field string
		rule  string
	}{
		{"missing customer", func(s *Sale) { s.CustomerName = "" }, "Customer Name", "required"},
		{"missing date", func(s *Sale) { s.Date = "" }, "Date", "required"},
		{"bad date", func(s *Sale) { s.Date = "2024-03-15" }, "Date", "dmy"},
		{"zero quantity", func(s *Sale) { s.Quantity = 0 }, "Quantity", "gt"},
		{"negative rate", func(s *Sale) { s.Rate = -1 }, "Rate", "gt"},
		{"negative rent", func(s *Sale) { s.VehicleRent = -2 }, "Vehicle Rent", "gte"},
		{"negative received", func(s *Sale) { s.PaymentReceived = -1 }, "Payment Received", "gte"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSale()
			tt.edit(&s)
			err := ValidateSale(s)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.rule, verr.Fields[tt.field])
		})
	}
}

func TestValidatePayment(t *testing.T) {
	p := Payment{CustomerName: "Acme", Date: "15/03/2024", PaymentMethod: "Cash", PaymentReceived: 100}
	assert.NoError(t, ValidatePayment(p))

	p.PaymentReceived = 0
	p.PaymentMethod = ""
	err := ValidatePayment(p)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "gt", verr.Fields["Payment Received"])
	assert.Equal(t, "required", verr.Fields["Payment Method"])
	assert.Contains(t, err.Error(), "Payment Received must be a positive number")
}
