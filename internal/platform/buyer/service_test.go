package buyer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alsaadxx12/fly1234/internal/platform/buyer"
	"github.com/alsaadxx12/fly1234/internal/platform/changefeed"
	"github.com/alsaadxx12/fly1234/pkg/money"
)

// MockBuyerRepository is a mock implementation of buyer.Repository
type MockBuyerRepository struct {
	mock.Mock
}

func (m *MockBuyerRepository) Create(ctx context.Context, b *buyer.Buyer) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockBuyerRepository) GetByID(ctx context.Context, id uuid.UUID) (*buyer.Buyer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*buyer.Buyer), args.Error(1)
}

func (m *MockBuyerRepository) List(ctx context.Context, f buyer.ListFilter) ([]*buyer.Buyer, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*buyer.Buyer), args.Error(1)
}

func (m *MockBuyerRepository) Update(ctx context.Context, b *buyer.Buyer) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockBuyerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockBuyerRepository) ExistsByAccountingID(ctx context.Context, accountingID string, exclude uuid.UUID) (bool, error) {
	args := m.Called(ctx, accountingID, exclude)
	return args.Bool(0), args.Error(1)
}

func (m *MockBuyerRepository) ListForSync(ctx context.Context) ([]*buyer.Buyer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*buyer.Buyer), args.Error(1)
}

func (m *MockBuyerRepository) SetBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal, syncedAt time.Time) error {
	return m.Called(ctx, id, balance, syncedAt).Error(0)
}

// recordingFeed keeps published events
type recordingFeed struct {
	events []changefeed.Event
}

func (f *recordingFeed) Publish(_ context.Context, e changefeed.Event) error {
	f.events = append(f.events, e)
	return nil
}

// =============================================================================
// Create
// =============================================================================

func TestBuyerService_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name           string
		buyer          *buyer.Buyer
		setupMock      func(*MockBuyerRepository)
		wantErr        error
		expectedErrMsg string
	}{
		{
			name:  "valid buyer",
			buyer: &buyer.Buyer{Name: "  Al Noor Travel ", AccountingID: "B-17", Phone: "+964 770 123 4567"},
			setupMock: func(m *MockBuyerRepository) {
				m.On("ExistsByAccountingID", ctx, "B-17", uuid.Nil).Return(false, nil)
				m.On("Create", ctx, mock.AnythingOfType("*buyer.Buyer")).Return(nil)
			},
		},
		{
			name:           "missing name",
			buyer:          &buyer.Buyer{Name: "  ", AccountingID: "B-17"},
			setupMock:      func(m *MockBuyerRepository) {},
			wantErr:        buyer.ErrMissingName,
			expectedErrMsg: "validation failed",
		},
		{
			name:      "missing accounting id",
			buyer:     &buyer.Buyer{Name: "Al Noor"},
			setupMock: func(m *MockBuyerRepository) {},
			wantErr:   buyer.ErrMissingAccountingID,
		},
		{
			name:      "bad phone",
			buyer:     &buyer.Buyer{Name: "Al Noor", AccountingID: "B-17", Phone: "call me"},
			setupMock: func(m *MockBuyerRepository) {},
			wantErr:   buyer.ErrInvalidPhone,
		},
		{
			name:      "unsupported currency",
			buyer:     &buyer.Buyer{Name: "Al Noor", AccountingID: "B-17", Currency: "EUR"},
			setupMock: func(m *MockBuyerRepository) {},
			wantErr:   money.ErrUnsupportedCurrency,
		},
		{
			name:  "duplicate accounting id",
			buyer: &buyer.Buyer{Name: "Al Noor", AccountingID: "B-17"},
			setupMock: func(m *MockBuyerRepository) {
				m.On("ExistsByAccountingID", ctx, "B-17", uuid.Nil).Return(true, nil)
			},
			wantErr: buyer.ErrDuplicateAccounting,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockBuyerRepository)
			tt.setupMock(repo)
			feed := &recordingFeed{}

			svc := buyer.NewService(repo, feed)
			created, err := svc.Create(ctx, tt.buyer)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				if tt.expectedErrMsg != "" {
					assert.Contains(t, err.Error(), tt.expectedErrMsg)
				}
				assert.Nil(t, created)
				assert.Empty(t, feed.events)
				repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, created.ID)
			assert.Equal(t, "Al Noor Travel", created.Name)
			assert.Equal(t, money.USD, created.Currency)
			assert.False(t, created.Balance.Valid)
			require.Len(t, feed.events, 1)
			assert.Equal(t, changefeed.Buyers, feed.events[0].Collection)
			assert.Equal(t, changefeed.OpCreate, feed.events[0].Op)
			repo.AssertExpectations(t)
		})
	}
}

// =============================================================================
// Update
// =============================================================================

func TestBuyerService_Update_KeepsSyncedBalance(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	synced := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	existing := &buyer.Buyer{
		ID:              id,
		Name:            "Old",
		AccountingID:    "B-1",
		Balance:         decimal.NewNullDecimal(decimal.NewFromInt(1500)),
		BalanceSyncedAt: &synced,
		CreatedAt:       synced.Add(-time.Hour),
	}

	repo := new(MockBuyerRepository)
	repo.On("GetByID", ctx, id).Return(existing, nil)
	repo.On("Update", ctx, mock.AnythingOfType("*buyer.Buyer")).Return(nil)

	svc := buyer.NewService(repo, nil)
	updated, err := svc.Update(ctx, &buyer.Buyer{ID: id, Name: "New", AccountingID: "B-1"})
	require.NoError(t, err)

	assert.Equal(t, "New", updated.Name)
	assert.True(t, updated.Balance.Decimal.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, &synced, updated.BalanceSyncedAt)
	assert.Equal(t, existing.CreatedAt, updated.CreatedAt)
	repo.AssertNotCalled(t, "ExistsByAccountingID", mock.Anything, mock.Anything, mock.Anything)
}

func TestBuyerService_Update_ChangedAccountingIDChecked(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	repo := new(MockBuyerRepository)
	repo.On("GetByID", ctx, id).Return(&buyer.Buyer{ID: id, Name: "A", AccountingID: "B-1"}, nil)
	repo.On("ExistsByAccountingID", ctx, "B-2", id).Return(true, nil)

	svc := buyer.NewService(repo, nil)
	_, err := svc.Update(ctx, &buyer.Buyer{ID: id, Name: "A", AccountingID: "B-2"})
	assert.ErrorIs(t, err, buyer.ErrDuplicateAccounting)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestBuyerService_Update_NotFound(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	repo := new(MockBuyerRepository)
	repo.On("GetByID", ctx, id).Return(nil, buyer.ErrBuyerNotFound)

	svc := buyer.NewService(repo, nil)
	_, err := svc.Update(ctx, &buyer.Buyer{ID: id, Name: "A", AccountingID: "B-2"})
	assert.ErrorIs(t, err, buyer.ErrBuyerNotFound)
}

// =============================================================================
// List, Delete, RecordBalance
// =============================================================================

func TestBuyerService_List_ClampsLimit(t *testing.T) {
	ctx := context.Background()
	repo := new(MockBuyerRepository)
	repo.On("List", ctx, buyer.ListFilter{Search: "noor", Limit: 100}).Return([]*buyer.Buyer{}, nil)

	svc := buyer.NewService(repo, nil)
	_, err := svc.List(ctx, buyer.ListFilter{Search: "noor", Limit: 10000, Offset: -4})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestBuyerService_Delete(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("publishes on success", func(t *testing.T) {
		repo := new(MockBuyerRepository)
		repo.On("Delete", ctx, id).Return(nil)
		feed := &recordingFeed{}

		require.NoError(t, buyer.NewService(repo, feed).Delete(ctx, id))
		require.Len(t, feed.events, 1)
		assert.Equal(t, changefeed.OpDelete, feed.events[0].Op)
		assert.Equal(t, id.String(), feed.events[0].ID)
	})

	t.Run("not found publishes nothing", func(t *testing.T) {
		repo := new(MockBuyerRepository)
		repo.On("Delete", ctx, id).Return(buyer.ErrBuyerNotFound)
		feed := &recordingFeed{}

		err := buyer.NewService(repo, feed).Delete(ctx, id)
		assert.ErrorIs(t, err, buyer.ErrBuyerNotFound)
		assert.Empty(t, feed.events)
	})
}

func TestBuyerService_RecordBalance(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	balance := decimal.RequireFromString("-250.75")

	repo := new(MockBuyerRepository)
	repo.On("SetBalance", ctx, id, balance, mock.AnythingOfType("time.Time")).Return(errors.New("connection reset"))

	err := buyer.NewService(repo, nil).RecordBalance(ctx, id, balance)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record balance")
}
