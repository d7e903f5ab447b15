package statement

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

const (
	// RowsPerPage counts month header rows as well as transactions
	RowsPerPage = 50
	// UnknownMonth keys transactions whose date could not be parsed
	UnknownMonth = "unknown"
)

// Totals are debit/credit sums in both booking currencies
type Totals struct {
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	DebitIQD  decimal.Decimal `json:"debit_iqd"`
	CreditIQD decimal.Decimal `json:"credit_iqd"`
}

// Add accumulates one transaction
func (t *Totals) Add(tx *Transaction) {
	t.Debit = t.Debit.Add(tx.Debit)
	t.Credit = t.Credit.Add(tx.Credit)
	t.DebitIQD = t.DebitIQD.Add(tx.DebitIQD)
	t.CreditIQD = t.CreditIQD.Add(tx.CreditIQD)
}

// Net returns credit minus debit per currency
func (t Totals) Net() (usd, iqd decimal.Decimal) {
	return t.Credit.Sub(t.Debit), t.CreditIQD.Sub(t.DebitIQD)
}

// MonthGroup holds the transactions of one calendar month in display order
type MonthGroup struct {
	Key          string        `json:"key"`
	Label        string        `json:"label"`
	Transactions []Transaction `json:"transactions"`
	Totals       Totals        `json:"totals"`
}

// Layout is a statement arranged for display: carried-forward balances first,
// then months in ascending order with the unknown bucket last.
type Layout struct {
	Pinned []Transaction `json:"pinned"`
	Months []MonthGroup  `json:"months"`
}

// MonthKey returns YYYY-MM for a parsed date, or UnknownMonth
func MonthKey(t *Transaction) string {
	if t.Time.IsZero() {
		return UnknownMonth
	}
	return t.Time.Format("2006-01")
}

// MonthLabel renders a month key as "March 2025"
func MonthLabel(key string) string {
	if len(key) != 7 || key[4] != '-' {
		return "Unknown date"
	}
	year, err := strconv.Atoi(key[:4])
	if err != nil {
		return "Unknown date"
	}
	month, err := strconv.Atoi(key[5:])
	if err != nil || month < 1 || month > 12 {
		return "Unknown date"
	}
	return monthNames[month-1] + " " + strconv.Itoa(year)
}

var monthNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// GroupByMonth arranges transactions for display. The input is not modified.
// Within a month rows are ordered by parsed date, then serial number; ties
// keep their input order.
func GroupByMonth(txs []Transaction) Layout {
	sorted := make([]Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := &sorted[i], &sorted[j]
		if !a.Time.Equal(b.Time) {
			return a.Time.Before(b.Time)
		}
		return a.No < b.No
	})

	var layout Layout
	index := make(map[string]int)
	for i := range sorted {
		tx := sorted[i]
		if tx.IsPreviousBalance() {
			layout.Pinned = append(layout.Pinned, tx)
			continue
		}
		key := MonthKey(&tx)
		gi, ok := index[key]
		if !ok {
			gi = len(layout.Months)
			index[key] = gi
			layout.Months = append(layout.Months, MonthGroup{Key: key, Label: MonthLabel(key)})
		}
		g := &layout.Months[gi]
		g.Transactions = append(g.Transactions, tx)
		g.Totals.Add(&tx)
	}

	// zero times sort first; the unknown bucket belongs at the end
	if gi, ok := index[UnknownMonth]; ok && gi != len(layout.Months)-1 {
		unknown := layout.Months[gi]
		layout.Months = append(layout.Months[:gi], layout.Months[gi+1:]...)
		layout.Months = append(layout.Months, unknown)
	}
	return layout
}

// Transactions returns the layout's rows in display order
func (l Layout) Transactions() []Transaction {
	out := make([]Transaction, 0, len(l.Pinned))
	out = append(out, l.Pinned...)
	for _, g := range l.Months {
		out = append(out, g.Transactions...)
	}
	return out
}

// Totals sums every month; carried-forward rows are excluded
func (l Layout) Totals() Totals {
	var t Totals
	for _, g := range l.Months {
		t.Debit = t.Debit.Add(g.Totals.Debit)
		t.Credit = t.Credit.Add(g.Totals.Credit)
		t.DebitIQD = t.DebitIQD.Add(g.Totals.DebitIQD)
		t.CreditIQD = t.CreditIQD.Add(g.Totals.CreditIQD)
	}
	return t
}

// RowKind distinguishes display rows
type RowKind string

const (
	RowPreviousBalance RowKind = "previous_balance"
	RowMonthHeader     RowKind = "month_header"
	RowTransaction     RowKind = "transaction"
)

// Row is one line of the paginated statement view
type Row struct {
	Kind        RowKind      `json:"kind"`
	Month       string       `json:"month,omitempty"`
	Label       string       `json:"label,omitempty"`
	Totals      *Totals      `json:"totals,omitempty"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

// Flatten turns a layout into display rows with one header per month
func Flatten(l Layout) []Row {
	rows := make([]Row, 0, len(l.Pinned)+len(l.Months))
	for i := range l.Pinned {
		rows = append(rows, Row{Kind: RowPreviousBalance, Transaction: &l.Pinned[i]})
	}
	for gi := range l.Months {
		g := &l.Months[gi]
		rows = append(rows, Row{Kind: RowMonthHeader, Month: g.Key, Label: g.Label, Totals: &g.Totals})
		for i := range g.Transactions {
			rows = append(rows, Row{Kind: RowTransaction, Month: g.Key, Transaction: &g.Transactions[i]})
		}
	}
	return rows
}

// View is one page of display rows
type View struct {
	Rows      []Row `json:"rows"`
	Page      int   `json:"page"`
	Pages     int   `json:"pages"`
	PerPage   int   `json:"per_page"`
	TotalRows int   `json:"total_rows"`
}

// Paginate cuts a page out of rows. Pages start at 1; a page past the end
// yields no rows. The page count is at least 1.
func Paginate(rows []Row, page, perPage int) View {
	if perPage <= 0 {
		perPage = RowsPerPage
	}
	if page < 1 {
		page = 1
	}
	pages := (len(rows) + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}

	v := View{Page: page, Pages: pages, PerPage: perPage, TotalRows: len(rows), Rows: []Row{}}
	// past the last page; checked before multiplying so huge pages cannot overflow
	if page > pages {
		return v
	}
	start := (page - 1) * perPage
	if start >= len(rows) {
		return v
	}
	end := start + perPage
	if end > len(rows) {
		end = len(rows)
	}
	v.Rows = rows[start:end]
	return v
}
