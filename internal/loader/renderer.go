package loader

import "bricksync/internal/sales"

// Renderer is what a view draws into. The loader draws one load at a time,
// so a render call must not wait on another load.
type Renderer interface {
	RenderCustomers(customers []sales.Customer)
	RenderSales(list []sales.Sale)
	RenderPayments(payments []sales.Payment)
	RenderTransactions(transactions []sales.Transaction)
	RenderBalances(balances []sales.Balance)
	RenderLogs(entries []sales.LogEntry)
	RenderDashboard(customers []sales.Customer)
	RenderDashboardCharts(summary sales.Summary)
	PopulateCustomerDropdowns(customers []sales.Customer, view string)
	SetBusy(scope string, busy bool)
}

// ViewSwitcher is implemented by renderers that track the view on display.
// Show is called last, as part of the same render.
type ViewSwitcher interface {
	Show(view View)
}

// NopRenderer discards everything.
type NopRenderer struct{}

func (NopRenderer) RenderCustomers([]sales.Customer) {}
func (NopRenderer) RenderSales([]sales.Sale) {}
func (NopRenderer) RenderPayments([]sales.Payment) {}
func (NopRenderer) RenderTransactions([]sales.Transaction) {}
func (NopRenderer) RenderBalances([]sales.Balance) {}
func (NopRenderer) RenderLogs([]sales.LogEntry) {}
func (NopRenderer) RenderDashboard([]sales.Customer) {}
func (NopRenderer) RenderDashboardCharts(sales.Summary) {}
func (NopRenderer) PopulateCustomerDropdowns([]sales.Customer, string) {}
func (NopRenderer) SetBusy(string, bool) {}
