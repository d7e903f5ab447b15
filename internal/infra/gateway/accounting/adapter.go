package accounting

import (
	"context"
	"strings"

	"github.com/alsaadxx12/fly1234/internal/platform/statement"
	"github.com/alsaadxx12/fly1234/pkg/money"
)

// PageSource adapts the client to statement.PageSource
type PageSource struct {
	client *Client
}

// Compile-time check that PageSource implements statement.PageSource
var _ statement.PageSource = (*PageSource)(nil)

// NewPageSource creates a statement page source backed by the client
func NewPageSource(client *Client) *PageSource {
	return &PageSource{client: client}
}

// FetchPage fetches one page and converts it to domain types
func (s *PageSource) FetchPage(ctx context.Context, q statement.PageQuery) (*statement.Page, error) {
	resp, err := s.client.GetTransactions(ctx, TransactionsQuery{
		BuyerID: q.AccountID,
		Token:   q.Token,
		Page:    q.Page,
		PerPage: q.PerPage,
		From:    q.Filter.From,
		To:      q.Filter.To,
		Type:    q.Filter.Type,
	})
	if err != nil {
		return nil, err
	}

	page := &statement.Page{
		Transactions: make([]statement.Transaction, 0, len(resp.Data)),
	}
	for _, td := range resp.Data {
		page.Transactions = append(page.Transactions, convertTransaction(td))
	}
	if resp.Summary != nil {
		page.Summary = convertSummary(resp.Summary)
	}
	return page, nil
}

func convertTransaction(td TransactionData) statement.Transaction {
	return statement.Transaction{
		No:         int64(td.No),
		Date:       strings.TrimSpace(td.Date),
		Details:    td.Details,
		Note:       td.Note,
		Type:       strings.ToUpper(strings.TrimSpace(td.Type)),
		Debit:      td.Debit.Decimal,
		Credit:     td.Credit.Decimal,
		Balance:    td.Balance.Decimal,
		DebitIQD:   td.DebitIQD.Decimal,
		CreditIQD:  td.CreditIQD.Decimal,
		BalanceIQD: td.BalanceIQD.Decimal,
		InvoiceNo:  string(td.InvoiceNo),
		PNR:        strings.TrimSpace(td.PNR),
		BookingID:  string(td.BookingID),
	}
}

func convertSummary(sd *SummaryData) *statement.Summary {
	currency, err := money.ParseCurrency(sd.Currency)
	if err != nil {
		currency = money.Currency(strings.ToUpper(sd.Currency))
	}
	return &statement.Summary{
		PreviousBalance: sd.PreviousBalance.Decimal,
		TotalCredit:     sd.TotalCredit.Decimal,
		TotalDebit:      sd.TotalDebit.Decimal,
		BalanceDue:      sd.BalanceDue.Decimal,
		Currency:        currency,
		From:            sd.From,
		To:              sd.To,
	}
}
