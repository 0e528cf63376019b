package loader

import (
	"errors"
	"fmt"
	"strings"

	"bricksync/internal/remote"
)

var ErrUnknownView = errors.New("unknown view")

// View is a screen of the client.
type View string

const (
	Dashboard    View = "dashboard"
	Customers    View = "customers"
	Sales        View = "sales"
	Payments     View = "payments"
	Transactions View = "transactions"
	Balances     View = "balances"
	Logs         View = "logs"
	Settings     View = "settings"
)

// dependencies lists, in fetch order, the resources each view needs.
var dependencies = map[View][]string{
	Dashboard:    {remote.Customers, remote.Sales, remote.Payments, remote.Balances},
	Customers:    {remote.Customers},
	Sales:        {remote.Customers, remote.Sales},
	Payments:     {remote.Customers, remote.Payments},
	Transactions: {remote.Customers, remote.Sales, remote.Payments, remote.Transactions},
	Balances:     {remote.Balances},
	Logs:         {remote.Logs},
	Settings:     nil,
}

// ParseView accepts a view name in any case.
func ParseView(s string) (View, error) {
	v := View(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := dependencies[v]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
	}
	return v, nil
}

// Resources returns the resources v needs, in fetch order.
func (v View) Resources() []string {
	return append([]string(nil), dependencies[v]...)
}

func (v View) String() string { return string(v) }
