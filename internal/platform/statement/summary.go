package statement

import (
	"github.com/shopspring/decimal"
)

// Overview is derived from the accumulated transactions, independent of the
// summary the API reports.
type Overview struct {
	Count          int             `json:"count"`
	Totals         Totals          `json:"totals"`
	ByType         map[string]int  `json:"by_type"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	ClosingIQD     decimal.Decimal `json:"closing_balance_iqd"`
	Passengers     PassengerTotals `json:"passengers"`
	Months         int             `json:"months"`
}

// PassengerTotals adds up reconciled head counts across notes
type PassengerTotals struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
}

// Overview computes derived figures for a layout. The closing balance is the
// balance of the last row in display order.
func (l Layout) Overview() Overview {
	o := Overview{
		ByType: make(map[string]int),
		Totals: l.Totals(),
		Months: len(l.Months),
	}

	rows := l.Transactions()
	o.Count = len(rows)
	for i := range rows {
		tx := &rows[i]
		if tx.Type != "" {
			o.ByType[tx.Type]++
		}
		if tx.Parsed != nil && tx.Parsed.Passengers != nil {
			p := tx.Parsed.Passengers
			o.Passengers.Adults += p.Adults
			o.Passengers.Children += p.Children
			o.Passengers.Infants += p.Infants
		}
	}
	if n := len(rows); n > 0 {
		o.ClosingBalance = rows[n-1].Balance
		o.ClosingIQD = rows[n-1].BalanceIQD
	}
	return o
}
