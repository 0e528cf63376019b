package sales

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Point is one labelled value of a dashboard series.
type Point struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

// Summary holds the dashboard figures derived from balances, sales and
// payments. SalesByDate runs oldest first; the other series keep the order
// in which labels first appear.
type Summary struct {
	Customers          int             `json:"customers"`
	SalesByDate        []Point         `json:"sales_by_date"`
	SalesByCustomer    []Point         `json:"sales_by_customer"`
	PaymentsByCustomer []Point         `json:"payments_by_customer"`
	BalanceByCustomer  []Point         `json:"balance_by_customer"`
	TotalSales         decimal.Decimal `json:"total_sales"`
	TotalPayments      decimal.Decimal `json:"total_payments"`
	TotalBalance       decimal.Decimal `json:"total_balance"`
}

type series struct {
	idx    map[string]int
	points []Point
}

func newSeries() *series { return &series{idx: map[string]int{}} }

func (s *series) add(label string, v decimal.Decimal) {
	if i, ok := s.idx[label]; ok {
		s.points[i].Value = s.points[i].Value.Add(v)
		return
	}
	s.idx[label] = len(s.points)
	s.points = append(s.points, Point{Label: label, Value: v})
}

// last value wins, used for balances
func (s *series) set(label string, v decimal.Decimal) {
	if i, ok := s.idx[label]; ok {
		s.points[i].Value = v
		return
	}
	s.idx[label] = len(s.points)
	s.points = append(s.points, Point{Label: label, Value: v})
}

// Summarize groups sales by date and customer, payments by customer and
// totals everything.
func Summarize(customers []Customer, balances []Balance, sales []Sale, payments []Payment) Summary {
	byDate, byCustomer, paid, balance := newSeries(), newSeries(), newSeries(), newSeries()
	out := Summary{Customers: len(customers)}

	for _, s := range sales {
		amt := decimal.NewFromFloat(s.Amount)
		byDate.add(s.Date, amt)
		byCustomer.add(s.CustomerName, amt)
		out.TotalSales = out.TotalSales.Add(amt)
	}
	for _, p := range payments {
		amt := decimal.NewFromFloat(p.PaymentReceived)
		paid.add(p.CustomerName, amt)
		out.TotalPayments = out.TotalPayments.Add(amt)
	}
	for _, b := range balances {
		amt := decimal.NewFromFloat(b.PendingBalance)
		balance.set(b.CustomerName, amt)
	}
	for _, p := range balance.points {
		out.TotalBalance = out.TotalBalance.Add(p.Value)
	}

	sortByDate(byDate.points)
	out.SalesByDate = byDate.points
	out.SalesByCustomer = byCustomer.points
	out.PaymentsByCustomer = paid.points
	out.BalanceByCustomer = balance.points
	return out
}

// sortByDate orders dd/mm/yyyy labels chronologically. Labels that do not
// parse go last, in their original order.
func sortByDate(points []Point) {
	sort.SliceStable(points, func(i, j int) bool {
		ti, erri := time.Parse(DateLayout, points[i].Label)
		tj, errj := time.Parse(DateLayout, points[j].Label)
		switch {
		case erri != nil:
			return false
		case errj != nil:
			return true
		}
		return ti.Before(tj)
	})
}
