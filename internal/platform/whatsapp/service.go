package whatsapp

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alsaadxx12/fly1234/internal/platform/broadcast"
	"github.com/alsaadxx12/fly1234/internal/platform/changefeed"
	"github.com/alsaadxx12/fly1234/pkg/logger"
)

// Service manages gateway accounts and the one-off gateway calls made
// through them
type Service struct {
	repo    Repository
	gateway Gateway
	feed    changefeed.Publisher
	logger  *logger.Logger
}

// NewService creates a new account service. feed may be nil.
func NewService(repo Repository, gateway Gateway, feed changefeed.Publisher, log *logger.Logger) *Service {
	if feed == nil {
		feed = changefeed.Nop{}
	}
	return &Service{
		repo:    repo,
		gateway: gateway,
		feed:    feed,
		logger:  log.WithField("component", "whatsapp_accounts"),
	}
}

// Create adds an account. The first active account becomes the default.
func (s *Service) Create(ctx context.Context, a *Account) (*Account, error) {
	a.Normalize()
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	exists, err := s.repo.ExistsByInstanceID(ctx, a.InstanceID, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check instance id: %w", err)
	}
	if exists {
		return nil, ErrDuplicateInstance
	}

	now := time.Now().UTC()
	a.ID = uuid.New()
	a.CreatedAt = now
	a.UpdatedAt = now
	wantDefault := a.IsDefault && a.IsActive
	a.IsDefault = false

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create whatsapp account: %w", err)
	}
	if wantDefault {
		if err := s.repo.SetDefault(ctx, a.ID); err != nil {
			return nil, fmt.Errorf("failed to set default account: %w", err)
		}
		a.IsDefault = true
	}
	s.publish(ctx, a.ID, changefeed.OpCreate)
	return a, nil
}

// GetByID retrieves an account
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves all accounts, oldest first
func (s *Service) List(ctx context.Context) ([]*Account, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list whatsapp accounts: %w", err)
	}
	return accounts, nil
}

// Update edits an account. An empty token keeps the stored one. Deactivating
// the default account clears its default flag.
func (s *Service) Update(ctx context.Context, a *Account) (*Account, error) {
	existing, err := s.repo.GetByID(ctx, a.ID)
	if err != nil {
		return nil, err
	}

	a.Normalize()
	if a.Token == "" {
		a.Token = existing.Token
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if a.InstanceID != existing.InstanceID {
		exists, err := s.repo.ExistsByInstanceID(ctx, a.InstanceID, a.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check instance id: %w", err)
		}
		if exists {
			return nil, ErrDuplicateInstance
		}
	}

	a.IsDefault = existing.IsDefault && a.IsActive
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to update whatsapp account: %w", err)
	}
	s.publish(ctx, a.ID, changefeed.OpUpdate)
	return a, nil
}

// Delete removes an account
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, id, changefeed.OpDelete)
	return nil
}

// SetDefault makes an active account the default
func (s *Service) SetDefault(ctx context.Context, id uuid.UUID) (*Account, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.IsActive {
		return nil, ErrAccountInactive
	}
	if err := s.repo.SetDefault(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to set default account: %w", err)
	}
	a.IsDefault = true
	s.publish(ctx, id, changefeed.OpUpdate)
	return a, nil
}

// Default returns the active default account. When none is marked the oldest
// active account is chosen and stored as the default.
func (s *Service) Default(ctx context.Context) (*Account, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list whatsapp accounts: %w", err)
	}

	a, marked := pickDefault(accounts)
	if a == nil {
		return nil, ErrNoActiveAccount
	}
	if marked {
		return a, nil
	}

	if err := s.repo.SetDefault(ctx, a.ID); err != nil {
		return nil, fmt.Errorf("failed to set default account: %w", err)
	}
	a.IsDefault = true
	s.logger.Info("default account selected", "account_id", a.ID, "name", a.Name)
	s.publish(ctx, a.ID, changefeed.OpUpdate)
	return a, nil
}

// Resolve returns the account with id, or the default account when id is nil.
// The account must be active.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID) (*Account, error) {
	if id == uuid.Nil {
		return s.Default(ctx)
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.IsActive {
		return nil, ErrAccountInactive
	}
	return a, nil
}

// ProfilePicture looks up the avatar of phone through account id
func (s *Service) ProfilePicture(ctx context.Context, id uuid.UUID, phone string) (string, error) {
	to := broadcast.NormalizePhone(phone)
	if to == "" {
		return "", fmt.Errorf("validation failed: %w", ErrInvalidPhone)
	}
	a, err := s.Resolve(ctx, id)
	if err != nil {
		return "", err
	}
	return s.gateway.ProfilePicture(ctx, a.Sender(), to)
}

// UploadMedia hosts a file through account id and returns its URL
func (s *Service) UploadMedia(ctx context.Context, id uuid.UUID, filename string, file io.Reader) (string, error) {
	if file == nil || strings.TrimSpace(filename) == "" {
		return "", fmt.Errorf("validation failed: %w", ErrMissingFile)
	}
	a, err := s.Resolve(ctx, id)
	if err != nil {
		return "", err
	}
	return s.gateway.UploadMedia(ctx, a.Sender(), filename, file)
}

// DocumentRequest is a single document delivery, e.g. a ticket or a statement
type DocumentRequest struct {
	To       string `json:"to"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Caption  string `json:"caption"`
}

// SendDocument sends one document to one recipient through account id
func (s *Service) SendDocument(ctx context.Context, id uuid.UUID, req DocumentRequest) error {
	to := broadcast.NormalizePhone(req.To)
	if to == "" {
		return fmt.Errorf("validation failed: %w", ErrInvalidPhone)
	}
	if strings.TrimSpace(req.URL) == "" {
		return fmt.Errorf("validation failed: %w", ErrMissingDocument)
	}
	msg := broadcast.Message{Kind: broadcast.KindDocument, MediaURL: req.URL, Filename: req.Filename, Caption: req.Caption}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	a, err := s.Resolve(ctx, id)
	if err != nil {
		return err
	}
	if err := s.gateway.Send(ctx, a.Sender(), to, msg); err != nil {
		s.logger.Warn("document not delivered", "account_id", a.ID, "to", to, "error", err)
		return err
	}
	return nil
}

func (s *Service) publish(ctx context.Context, id uuid.UUID, op changefeed.Op) {
	_ = s.feed.Publish(ctx, changefeed.New(changefeed.WhatsAppAccounts, id.String(), op))
}
