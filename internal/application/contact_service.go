package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/bnema/smartwallet-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

type ContactService struct {
	repo  ports.ContactRepository
	clock ports.Clock
}

func NewContactService(repo ports.ContactRepository, clock ports.Clock) *ContactService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &ContactService{repo: repo, clock: clock}
}

func (s *ContactService) Add(ctx context.Context, name, rawAddress string) (domain.Contact, error) {
	name = strings.TrimSpace(name)
	if err := validateContactName(name); err != nil {
		return domain.Contact{}, err
	}

	address, err := domain.ParseAddress(rawAddress)
	if err != nil {
		return domain.Contact{}, err
	}

	if _, err := s.repo.GetByName(ctx, name); err == nil {
		return domain.Contact{}, fmt.Errorf("%w: %q", domain.ErrContactExists, name)
	} else if !errors.Is(err, domain.ErrContactNotFound) {
		return domain.Contact{}, fmt.Errorf("get contact by name: %w", err)
	}

	contact := domain.Contact{
		ID:        domain.ContactID(uuid.NewString()),
		Name:      name,
		Address:   address,
		CreatedAt: s.clock.Now().UTC(),
	}

	if err := s.repo.Save(ctx, contact); err != nil {
		return domain.Contact{}, fmt.Errorf("save contact: %w", err)
	}

	return contact, nil
}

func (s *ContactService) List(ctx context.Context) ([]domain.Contact, error) {
	contacts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}

	return contacts, nil
}

func (s *ContactService) Remove(ctx context.Context, name string) error {
	contact, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return fmt.Errorf("get contact by name: %w", err)
	}

	if err := s.repo.Delete(ctx, contact.ID); err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}

	return nil
}

// Resolve turns a recipient into an address. Hex addresses pass through;
// anything else is looked up as a contact name.
func (s *ContactService) Resolve(ctx context.Context, recipient string) (common.Address, error) {
	trimmed := strings.TrimSpace(recipient)
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		return domain.ParseAddress(trimmed)
	}

	contact, err := s.repo.GetByName(ctx, trimmed)
	if err != nil {
		return common.Address{}, fmt.Errorf("resolve recipient %q: %w", recipient, err)
	}

	return contact.Address, nil
}

func validateContactName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty", domain.ErrInvalidContactName)
	}
	if strings.HasPrefix(name, "0x") || strings.HasPrefix(name, "0X") {
		return fmt.Errorf("%w: %q looks like an address", domain.ErrInvalidContactName, name)
	}
	if strings.ContainsAny(name, "\n\r\t") {
		return fmt.Errorf("%w: %q contains control characters", domain.ErrInvalidContactName, name)
	}
	return nil
}
