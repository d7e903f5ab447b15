package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alsaadxx12/fly1234/internal/platform/ticket"
	"github.com/alsaadxx12/fly1234/internal/transport/httpapi/handler"
	"github.com/alsaadxx12/fly1234/pkg/money"
)

type MockTicketService struct {
	mock.Mock
}

func (m *MockTicketService) Create(ctx context.Context, t *ticket.Ticket, operator string) (*ticket.Ticket, error) {
	args := m.Called(ctx, t, operator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ticket.Ticket), args.Error(1)
}

func (m *MockTicketService) GetByID(ctx context.Context, id uuid.UUID) (*ticket.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ticket.Ticket), args.Error(1)
}

func (m *MockTicketService) List(ctx context.Context, f ticket.ListFilter) ([]*ticket.Ticket, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ticket.Ticket), args.Error(1)
}

func (m *MockTicketService) Update(ctx context.Context, t *ticket.Ticket) (*ticket.Ticket, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ticket.Ticket), args.Error(1)
}

func (m *MockTicketService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockTicketService) Audit(ctx context.Context, id uuid.UUID, auditor string) (*ticket.Ticket, error) {
	args := m.Called(ctx, id, auditor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ticket.Ticket), args.Error(1)
}

func ticketRouter(svc *MockTicketService) http.Handler {
	h := handler.NewTicketHandler(svc)
	r := chi.NewRouter()
	r.Post("/tickets", h.CreateTicket)
	r.Get("/tickets", h.ListTickets)
	r.Get("/tickets/{id}", h.GetTicket)
	r.Put("/tickets/{id}", h.UpdateTicket)
	r.Delete("/tickets/{id}", h.DeleteTicket)
	r.Post("/tickets/{id}/audit", h.AuditTicket)
	return r
}

func ticketBody(buyerID uuid.UUID) map[string]any {
	return map[string]any{
		"kind":           "ticket",
		"pnr":            "abc123",
		"passenger_name": "Ali Hassan",
		"buyer_id":       buyerID,
		"sale_price":     "520.00",
		"purchase_price": "480.00",
		"currency":       "USD",
		"issue_date":     "2025-04-02",
	}
}

func TestCreateTicket_RecordsOperator(t *testing.T) {
	svc := new(MockTicketService)
	r := ticketRouter(svc)
	buyerID := uuid.New()

	svc.On("Create", mock.Anything, mock.MatchedBy(func(tk *ticket.Ticket) bool {
		return tk.BuyerID == buyerID &&
			tk.SalePrice.Equal(decimal.NewFromInt(520)) &&
			tk.IssueDate.Equal(time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC))
	}), operatorEmail).Return(&ticket.Ticket{ID: uuid.New(), CreatedBy: operatorEmail}, nil)

	rec := serve(r, newRequest(t, http.MethodPost, "/tickets", ticketBody(buyerID)))

	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestCreateTicket_BadIssueDate(t *testing.T) {
	svc := new(MockTicketService)
	r := ticketRouter(svc)

	body := ticketBody(uuid.New())
	body["issue_date"] = "02/04/2025"
	rec := serve(r, newRequest(t, http.MethodPost, "/tickets", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestListTickets_Totals(t *testing.T) {
	svc := new(MockTicketService)
	r := ticketRouter(svc)

	audited := false
	buyerID := uuid.New()
	svc.On("List", mock.Anything, ticket.ListFilter{
		Kind:    ticket.KindRefund,
		BuyerID: buyerID,
		Audited: &audited,
		From:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}).Return([]*ticket.Ticket{
		{Currency: money.USD, SalePrice: decimal.NewFromInt(100), PurchasePrice: decimal.NewFromInt(90)},
		{Currency: money.USD, SalePrice: decimal.NewFromInt(50), PurchasePrice: decimal.NewFromInt(45)},
		{Currency: money.IQD, SalePrice: decimal.NewFromInt(150000), PurchasePrice: decimal.NewFromInt(140000)},
	}, nil)

	rec := serve(r, newRequest(t, http.MethodGet,
		"/tickets?kind=refund&audited=false&from=2025-01-01&buyer_id="+buyerID.String(), nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[handler.TicketsListResponse](t, rec)
	assert.Len(t, body.Tickets, 3)
	assert.Equal(t, 2, body.Totals[money.USD].Count)
	assert.True(t, body.Totals[money.USD].Profit.Equal(decimal.NewFromInt(15)))
	assert.True(t, body.Totals[money.IQD].Profit.Equal(decimal.NewFromInt(10000)))
}

func TestListTickets_BadFilters(t *testing.T) {
	r := ticketRouter(new(MockTicketService))

	for _, q := range []string{"audited=maybe", "buyer_id=42", "from=yesterday", "limit=ten"} {
		rec := serve(r, newRequest(t, http.MethodGet, "/tickets?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestAuditedTicketIsLocked(t *testing.T) {
	svc := new(MockTicketService)
	r := ticketRouter(svc)
	id := uuid.New()

	svc.On("Update", mock.Anything, mock.Anything).Return(nil, ticket.ErrTicketAudited)
	svc.On("Delete", mock.Anything, id).Return(ticket.ErrTicketAudited)

	rec := serve(r, newRequest(t, http.MethodPut, "/tickets/"+id.String(), ticketBody(uuid.New())))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", decode[errorBody](t, rec).Code)

	rec = serve(r, newRequest(t, http.MethodDelete, "/tickets/"+id.String(), nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuditTicket(t *testing.T) {
	svc := new(MockTicketService)
	r := ticketRouter(svc)
	id := uuid.New()
	now := time.Now().UTC()

	svc.On("Audit", mock.Anything, id, operatorEmail).
		Return(&ticket.Ticket{ID: id, Audited: true, AuditedBy: operatorEmail, AuditedAt: &now}, nil)

	rec := serve(r, newRequest(t, http.MethodPost, "/tickets/"+id.String()+"/audit", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[ticket.Ticket](t, rec)
	assert.True(t, got.Audited)
	assert.Equal(t, operatorEmail, got.AuditedBy)
}

func TestAuditTicket_RequiresOperator(t *testing.T) {
	svc := new(MockTicketService)
	r := ticketRouter(svc)

	req := newRequest(t, http.MethodPost, "/tickets/"+uuid.NewString()+"/audit", nil)
	req = req.WithContext(context.Background())
	rec := serve(r, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	svc.AssertNotCalled(t, "Audit", mock.Anything, mock.Anything, mock.Anything)
}
