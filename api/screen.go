package api

import (
	"sort"
	"sync"
	"time"

	"bricksync/internal/loader"
	"bricksync/internal/sales"
)

// Screen is the shared render target of the gateway. Loads and mutations
// draw into it and GET /screen reads it back.
type Screen struct {
	mu        sync.Mutex
	view      loader.View
	sections  map[string]any
	dropdowns map[string][]string
	busy      map[string]bool
	updatedAt time.Time
}

var (
	_ loader.Renderer     = (*Screen)(nil)
	_ loader.ViewSwitcher = (*Screen)(nil)
)

func NewScreen() *Screen {
	return &Screen{
		sections:  map[string]any{},
		dropdowns: map[string][]string{},
		busy:      map[string]bool{},
	}
}

// ScreenContents is a copy of the screen.
type ScreenContents struct {
	View      loader.View         `json:"view"`
	Sections  map[string]any      `json:"sections"`
	Dropdowns map[string][]string `json:"dropdowns"`
	Busy      []string            `json:"busy"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

func (s *Screen) Contents() ScreenContents {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := ScreenContents{
		View:      s.view,
		Sections:  make(map[string]any, len(s.sections)),
		Dropdowns: make(map[string][]string, len(s.dropdowns)),
		Busy:      []string{},
		UpdatedAt: s.updatedAt,
	}
	for k, v := range s.sections {
		out.Sections[k] = v
	}
	for k, v := range s.dropdowns {
		out.Dropdowns[k] = append([]string(nil), v...)
	}
	for scope, on := range s.busy {
		if on {
			out.Busy = append(out.Busy, scope)
		}
	}
	sort.Strings(out.Busy)
	return out
}

// Section returns what was last rendered under name.
func (s *Screen) Section(name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.sections[name]
	return v, ok
}

// Show marks view as the one on display.
func (s *Screen) Show(view loader.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = view
}

func (s *Screen) set(name string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sections[name] = v
	s.updatedAt = time.Now()
}

func (s *Screen) RenderCustomers(customers []sales.Customer) { s.set("customers", customers) }
func (s *Screen) RenderSales(list []sales.Sale) { s.set("sales", list) }
func (s *Screen) RenderPayments(payments []sales.Payment) { s.set("payments", payments) }
func (s *Screen) RenderBalances(balances []sales.Balance) { s.set("balances", balances) }
func (s *Screen) RenderLogs(entries []sales.LogEntry) { s.set("logs", entries) }

func (s *Screen) RenderTransactions(transactions []sales.Transaction) {
	s.set("transactions", transactions)
}

func (s *Screen) RenderDashboard(customers []sales.Customer) { s.set("dashboard", customers) }

func (s *Screen) RenderDashboardCharts(summary sales.Summary) { s.set("charts", summary) }

func (s *Screen) PopulateCustomerDropdowns(customers []sales.Customer, view string) {
	names := make([]string, 0, len(customers))
	for _, c := range customers {
		names = append(names, c.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropdowns[view] = names
}

func (s *Screen) SetBusy(scope string, busy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy[scope] = busy
}
