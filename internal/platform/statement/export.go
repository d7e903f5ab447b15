package statement

import (
	"embed"
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alsaadxx12/fly1234/pkg/money"
)

// utf8BOM lets spreadsheet tools detect UTF-8 so Arabic notes survive
const utf8BOM = "\ufeff"

var csvHeader = []string{
	"No", "Date", "Type", "Details", "Note", "PNR", "Booking ID", "Invoice No",
	"Debit USD", "Credit USD", "Balance USD", "Debit IQD", "Credit IQD", "Balance IQD",
}

// WriteCSV writes the transactions in the given order as a spreadsheet. The
// note column holds the normalized one-line rendering.
func WriteCSV(w io.Writer, txs []Transaction) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	usd, iqd := money.USD.Places(), money.IQD.Places()
	for i := range txs {
		tx := &txs[i]
		noteText := tx.Note
		if tx.Parsed != nil {
			noteText = tx.Parsed.Text()
		}
		record := []string{
			strconv.FormatInt(tx.No, 10),
			tx.Date,
			tx.Type,
			tx.Details,
			noteText,
			tx.PNR,
			tx.BookingID,
			tx.InvoiceNo,
			tx.Debit.StringFixed(usd),
			tx.Credit.StringFixed(usd),
			tx.Balance.StringFixed(usd),
			tx.DebitIQD.StringFixed(iqd),
			tx.CreditIQD.StringFixed(iqd),
			tx.BalanceIQD.StringFixed(iqd),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", tx.No, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

//go:embed templates/print.html.tmpl
var templateFS embed.FS

var printTemplate = template.Must(
	template.New("print.html.tmpl").Funcs(template.FuncMap{
		"usd": func(d decimal.Decimal) string { return money.Format(d, money.USD) },
		"iqd": func(d decimal.Decimal) string { return money.Format(d, money.IQD) },
		// NoteHTML is built from escaped fragments
		"noteHTML": func(tx Transaction) template.HTML { return template.HTML(tx.NoteHTML) },
		"isZero":   func(d decimal.Decimal) bool { return d.IsZero() },
		"date":     func(t time.Time) string { return t.Format("2006-01-02 15:04") },
	}).ParseFS(templateFS, "templates/print.html.tmpl"),
)

// PrintData feeds the printable statement
type PrintData struct {
	BuyerName   string
	Summary     *Summary
	Filter      Filter
	Layout      Layout
	Overview    Overview
	GeneratedAt time.Time
}

// RenderHTML writes a printable statement page
func RenderHTML(w io.Writer, data PrintData) error {
	if err := printTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render statement: %w", err)
	}
	return nil
}
